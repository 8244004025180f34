package directive

import (
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIllegal
	tokString
	tokInt
	tokFloat
	tokBool
	tokComma
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	val  Value
}

// lexer tokenises the inside of a directive's argument list. It stops
// producing meaningful tokens after the closing parenthesis.
type lexer struct {
	src string
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: src}
}

func (l *lexer) next() token {
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF}
	}

	c := l.src[l.pos]
	switch {
	case c == ',':
		l.pos++
		return token{kind: tokComma, text: ","}
	case c == ')':
		l.pos++
		return token{kind: tokRParen, text: ")"}
	case c == '"' || c == '\'':
		return l.lexString(c)
	case c == '+' || c == '-' || c == '.' || isDigit(c):
		return l.lexNumber()
	case isIdentStart(c):
		return l.lexWord()
	}

	l.pos++
	return token{kind: tokIllegal, text: string(c)}
}

func (l *lexer) lexString(quote byte) token {
	start := l.pos
	l.pos++

	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == quote:
			l.pos++
			return token{kind: tokString, text: l.src[start:l.pos], val: String(b.String())}
		case c == '\\':
			if l.pos+1 >= len(l.src) {
				return token{kind: tokIllegal, text: l.src[start:]}
			}
			esc, ok := unescape(l.src[l.pos+1])
			if !ok {
				return token{kind: tokIllegal, text: l.src[start : l.pos+2]}
			}
			b.WriteByte(esc)
			l.pos += 2
		case c == '\n':
			return token{kind: tokIllegal, text: l.src[start:l.pos]}
		default:
			b.WriteByte(c)
			l.pos++
		}
	}

	return token{kind: tokIllegal, text: l.src[start:]}
}

func unescape(c byte) (byte, bool) {
	switch c {
	case '\\', '\'', '"':
		return c, true
	case 'n':
		return '\n', true
	case 't':
		return '\t', true
	case 'r':
		return '\r', true
	}
	return 0, false
}

func (l *lexer) lexNumber() token {
	start := l.pos
	if c := l.src[l.pos]; c == '+' || c == '-' {
		l.pos++
	}

	digits := l.scanDigits()
	isFloat := false

	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		isFloat = true
		l.pos++
		digits += l.scanDigits()
	}
	if digits == 0 {
		return token{kind: tokIllegal, text: l.src[start:l.pos]}
	}

	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		isFloat = true
		l.pos++
		if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
			l.pos++
		}
		if l.scanDigits() == 0 {
			return token{kind: tokIllegal, text: l.src[start:l.pos]}
		}
	}

	// 12abc is not a literal
	if l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
		return token{kind: tokIllegal, text: l.src[start : l.pos+1]}
	}

	text := l.src[start:l.pos]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return token{kind: tokIllegal, text: text}
		}
		return token{kind: tokFloat, text: text, val: Float(f)}
	}

	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return token{kind: tokIllegal, text: text}
	}
	return token{kind: tokInt, text: text, val: Int(i)}
}

func (l *lexer) scanDigits() int {
	n := 0
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
		n++
	}
	return n
}

func (l *lexer) lexWord() token {
	start := l.pos
	for l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
		l.pos++
	}

	word := l.src[start:l.pos]
	switch word {
	case "True", "true":
		return token{kind: tokBool, text: word, val: Bool(true)}
	case "False", "false":
		return token{kind: tokBool, text: word, val: Bool(false)}
	}
	// bare identifiers are expressions, not literals
	return token{kind: tokIllegal, text: word}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
