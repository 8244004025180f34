// Package directive recognises tool invocation directives embedded in free
// model text.
//
// Grammar version 1:
//
//	directive := "Call" WS+ IDENT "(" [ literal { "," literal } [ "," ] ] ")"
//	IDENT     := [A-Za-z_][A-Za-z0-9_]*
//	literal   := STRING | NUMBER | BOOL
//
// Strings use single or double quotes with backslash escapes. Numbers are
// decimal integers or floats with an optional sign and exponent. Booleans are
// True/False (either case of the first letter). Anything else inside the
// parentheses makes the whole directive invalid.
package directive

import (
	"strconv"
	"strings"
)

const (
	GrammarVersion = 1
	Keyword        = "Call"
)

type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	}
	return "unknown"
}

// Value is one literal argument.
type Value struct {
	Kind  Kind
	Str   string
	Int   int64
	Float float64
	Bool  bool
}

func String(s string) Value { return Value{Kind: KindString, Str: s} }
func Int(i int64) Value { return Value{Kind: KindInt, Int: i} }
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Any converts the literal to the value sent over the wire.
func (v Value) Any() any {
	switch v.Kind {
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindBool:
		return v.Bool
	}
	return v.Str
}

// Text renders the literal as plain text, the way it would be passed to a
// string parameter.
func (v Value) Text() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	}
	return v.Str
}

// Call is a parsed directive.
type Call struct {
	ToolName string
	Args     []Value
}

// String renders the call in directive syntax.
func (c Call) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		if a.Kind == KindString {
			parts[i] = strconv.Quote(a.Str)
		} else {
			parts[i] = a.Text()
		}
	}
	return Keyword + " " + c.ToolName + "(" + strings.Join(parts, ", ") + ")"
}

// Parse returns the first directive found in text. The first "Call name("
// occurrence is the only candidate: when its argument list is not a valid
// literal tuple, Parse reports false instead of looking further.
func Parse(text string) (Call, bool) {
	name, open, found := findCandidate(text)
	if !found {
		return Call{}, false
	}

	p := &parser{lx: newLexer(text[open+1:])}
	args, ok := p.parseArgs()
	if !ok {
		return Call{}, false
	}

	return Call{ToolName: name, Args: args}, true
}

// findCandidate locates the first keyword occurrence followed by whitespace,
// an identifier and "(". It returns the identifier and the offset of "(".
func findCandidate(text string) (string, int, bool) {
	offset := 0
	for {
		idx := strings.Index(text[offset:], Keyword)
		if idx < 0 {
			return "", 0, false
		}
		pos := offset + idx
		offset = pos + len(Keyword)

		if pos > 0 && isIdentChar(text[pos-1]) {
			continue
		}

		i := offset
		ws := i
		for i < len(text) && isSpace(text[i]) {
			i++
		}
		if i == ws {
			continue
		}

		identStart := i
		if i >= len(text) || !isIdentStart(text[i]) {
			continue
		}
		for i < len(text) && isIdentChar(text[i]) {
			i++
		}
		name := text[identStart:i]

		if i >= len(text) || text[i] != '(' {
			continue
		}

		return name, i, true
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
