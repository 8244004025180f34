package directive

type parser struct {
	lx *lexer
}

// parseArgs consumes a literal tuple up to and including ")". The opening
// parenthesis has already been consumed.
func (p *parser) parseArgs() ([]Value, bool) {
	args := []Value{}

	tok := p.lx.next()
	if tok.kind == tokRParen {
		return args, true
	}

	for {
		val, ok := literal(tok)
		if !ok {
			return nil, false
		}
		args = append(args, val)

		tok = p.lx.next()
		switch tok.kind {
		case tokRParen:
			return args, true
		case tokComma:
			tok = p.lx.next()
			if tok.kind == tokRParen {
				return args, true
			}
		default:
			return nil, false
		}
	}
}

func literal(tok token) (Value, bool) {
	switch tok.kind {
	case tokString, tokInt, tokFloat, tokBool:
		return tok.val, true
	}
	return Value{}, false
}
