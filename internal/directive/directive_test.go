package directive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWellFormed(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Call
	}{
		{
			name: "two strings",
			text: `Call get_docs("retriever", "langchain")`,
			want: Call{ToolName: "get_docs", Args: []Value{String("retriever"), String("langchain")}},
		},
		{
			name: "surrounded by prose",
			text: "Let me look that up.\nCall get_docs(\"vector store\", \"LlamaIndex\")\nOne moment.",
			want: Call{ToolName: "get_docs", Args: []Value{String("vector store"), String("LlamaIndex")}},
		},
		{
			name: "single quotes and escapes",
			text: `Call get_docs('it\'s "quoted"', 'openai')`,
			want: Call{ToolName: "get_docs", Args: []Value{String(`it's "quoted"`), String("openai")}},
		},
		{
			name: "paren inside string",
			text: `Call search("f(x)", "math")`,
			want: Call{ToolName: "search", Args: []Value{String("f(x)"), String("math")}},
		},
		{
			name: "numbers and booleans",
			text: `Call calc(1, -2.5, 3e2, True, false)`,
			want: Call{ToolName: "calc", Args: []Value{Int(1), Float(-2.5), Float(300), Bool(true), Bool(false)}},
		},
		{
			name: "empty argument list",
			text: `Call current_time()`,
			want: Call{ToolName: "current_time", Args: []Value{}},
		},
		{
			name: "trailing comma",
			text: `Call get_docs("a",)`,
			want: Call{ToolName: "get_docs", Args: []Value{String("a")}},
		},
		{
			name: "multiple spaces after keyword",
			text: "Call \t get_docs(\"a\", \"b\")",
			want: Call{ToolName: "get_docs", Args: []Value{String("a"), String("b")}},
		},
		{
			name: "earlier non-call use of keyword is skipped",
			text: `Call me later. Call get_docs("a", "b")`,
			want: Call{ToolName: "get_docs", Args: []Value{String("a"), String("b")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.text)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseNoDirective(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"plain prose", "LangChain retrievers wrap a vector store."},
		{"empty", ""},
		{"lowercase keyword", `call get_docs("a", "b")`},
		{"keyword glued to identifier", `Callget_docs("a")`},
		{"keyword inside a word", `Recall get_docs("a")`},
		{"no parenthesis", `Call get_docs "a"`},
		{"missing whitespace", `Call(get_docs)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Parse(tt.text)
			assert.False(t, ok)
		})
	}
}

func TestParseMalformedArgumentsIsNoDirective(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"expression", `Call get_docs(1 + 2)`},
		{"bare identifier", `Call get_docs(query, library)`},
		{"function call", `Call get_docs(__import__("os"))`},
		{"unterminated string", `Call get_docs("abc)`},
		{"unclosed list", `Call get_docs("a", "b"`},
		{"missing comma", `Call get_docs("a" "b")`},
		{"double comma", `Call get_docs("a",, "b")`},
		{"leading comma", `Call get_docs(, "a")`},
		{"list literal", `Call get_docs(["a"])`},
		{"bad escape", `Call get_docs("\q")`},
		{"number glued to word", `Call get_docs(12abc)`},
		{"lone sign", `Call get_docs(-)`},
		{"None is not supported", `Call get_docs(None)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, ok := Parse(tt.text)
				assert.False(t, ok)
			})
		})
	}
}

func TestParseOnlyFirstCandidateIsHonored(t *testing.T) {
	got, ok := Parse(`Call first("a") then Call second("b")`)
	require.True(t, ok)
	assert.Equal(t, "first", got.ToolName)

	// a malformed first candidate does not fall through to a later one
	_, ok = Parse(`Call first(x) then Call second("b")`)
	assert.False(t, ok)
}

func TestValueConversions(t *testing.T) {
	assert.Equal(t, "abc", String("abc").Any())
	assert.Equal(t, int64(3), Int(3).Any())
	assert.Equal(t, 2.5, Float(2.5).Any())
	assert.Equal(t, true, Bool(true).Any())

	assert.Equal(t, "3", Int(3).Text())
	assert.Equal(t, "2.5", Float(2.5).Text())
	assert.Equal(t, "false", Bool(false).Text())

	call := Call{ToolName: "get_docs", Args: []Value{String("a"), Int(2)}}
	assert.Equal(t, `Call get_docs("a", 2)`, call.String())

	reparsed, ok := Parse(call.String())
	require.True(t, ok)
	assert.Equal(t, call, reparsed)
}
