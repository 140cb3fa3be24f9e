package lexer

import (
	"strings"
	"testing"

	"github.com/rkurbatov/myangular/pkg/source"
)

func lex(t *testing.T, input string) []Token {
	t.Helper()
	tokens, err := New(source.NewEval(input)).Lex()
	if err != nil {
		t.Fatalf("lex(%q) failed: %v", input, err)
	}
	return tokens
}

func TestTokenStream(t *testing.T) {
	input := `a.b[0] + 42 * -1.5e2 >= $x && !done || this === null ? 'yes' : "no" | f:2; {k: [1,],}`

	tests := []struct {
		expectedText string
		identifier   bool
	}{
		{"a", true},
		{".", false},
		{"b", true},
		{"[", false},
		{"0", false},
		{"]", false},
		{"+", false},
		{"42", false},
		{"*", false},
		{"-", false},
		{"1.5e2", false},
		{">=", false},
		{"$x", true},
		{"&&", false},
		{"!", false},
		{"done", true},
		{"||", false},
		{"this", true},
		{"===", false},
		{"null", true},
		{"?", false},
		{"'yes'", false},
		{":", false},
		{`"no"`, false},
		{"|", false},
		{"f", true},
		{":", false},
		{"2", false},
		{";", false},
		{"{", false},
		{"k", true},
		{":", false},
		{"[", false},
		{"1", false},
		{",", false},
		{"]", false},
		{",", false},
		{"}", false},
	}

	tokens := lex(t, input)
	if len(tokens) != len(tests) {
		t.Fatalf("expected %d tokens, got %d", len(tests), len(tokens))
	}
	for i, tt := range tests {
		tok := tokens[i]
		if tok.Text != tt.expectedText {
			t.Errorf("token %d: expected text %q, got %q", i, tt.expectedText, tok.Text)
		}
		if tok.Identifier != tt.identifier {
			t.Errorf("token %d (%q): expected identifier=%v", i, tok.Text, tt.identifier)
		}
	}
}

func TestNumberValues(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"42", 42},
		{"4.2", 4.2},
		{".42", 0.42},
		{"4.", 4},
		{"1e3", 1000},
		{"1E3", 1000},
		{"1.5e-2", 0.015},
		{"42e+1", 420},
	}
	for _, tt := range tests {
		tokens := lex(t, tt.input)
		if len(tokens) != 1 {
			t.Fatalf("%q: expected one token, got %d", tt.input, len(tokens))
		}
		if !tokens[0].HasValue {
			t.Fatalf("%q: number token has no value", tt.input)
		}
		if got := tokens[0].Value.AsNumber(); got != tt.expected {
			t.Errorf("%q: expected %v, got %v", tt.input, tt.expected, got)
		}
	}
}

func TestStringValues(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`'hello'`, "hello"},
		{`"hello"`, "hello"},
		{`'a\'b'`, "a'b"},
		{`"a\"b"`, `a"b`},
		{`'tab\there'`, "tab\there"},
		{`'nl\nhere'`, "nl\nhere"},
		{`'ff\fhere'`, "ff\fhere"},
		{`'vt\vhere'`, "vt\vhere"},
		{`'cr\rhere'`, "cr\rhere"},
		{`'é'`, "é"},
		{`'\u00e9'`, "é"},
		{`'\u00E9'`, "é"},
		{`'pass\zthrough'`, "passzthrough"},
	}
	for _, tt := range tests {
		tokens := lex(t, tt.input)
		if len(tokens) != 1 {
			t.Fatalf("%q: expected one token, got %d", tt.input, len(tokens))
		}
		if got := tokens[0].Value.AsString(); got != tt.expected {
			t.Errorf("%q: expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestWhitespace(t *testing.T) {
	// Includes vertical tab and a U+00A0 no-break space.
	input := "a \t\r\n\v  b"
	tokens := lex(t, input)
	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(tokens))
	}
	if tokens[0].Text != "a" || tokens[1].Text != "b" {
		t.Errorf("unexpected tokens: %q, %q", tokens[0].Text, tokens[1].Text)
	}
}

func TestLinesAndColumns(t *testing.T) {
	tokens := lex(t, "a +\n  b")
	if tokens[0].Line != 1 || tokens[0].Column != 1 {
		t.Errorf("token a: got %d:%d", tokens[0].Line, tokens[0].Column)
	}
	if tokens[2].Line != 2 || tokens[2].Column != 3 {
		t.Errorf("token b: got %d:%d", tokens[2].Line, tokens[2].Column)
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		input   string
		message string
	}{
		{"a # b", "Unexpected next character '#'"},
		{"1e+", "Invalid exponent"},
		{"1e-", "Invalid exponent"},
		{"'unterminated", "Unterminated quote"},
		{`"mismatched'`, "Unterminated quote"},
		{`'\uXYZW'`, "Invalid unicode escape"},
		{`'\u12'`, "Invalid unicode escape"},
	}
	for _, tt := range tests {
		_, err := New(source.NewEval(tt.input)).Lex()
		if err == nil {
			t.Errorf("%q: expected an error", tt.input)
			continue
		}
		if !strings.Contains(err.Error(), tt.message) {
			t.Errorf("%q: expected message containing %q, got %q", tt.input, tt.message, err.Error())
		}
	}
}

func TestOperatorLongestMatch(t *testing.T) {
	tokens := lex(t, "a===b!==c==d!=e<=f>=g")
	expected := []string{"a", "===", "b", "!==", "c", "==", "d", "!=", "e", "<=", "f", ">=", "g"}
	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %d", len(expected), len(tokens))
	}
	for i, text := range expected {
		if tokens[i].Text != text {
			t.Errorf("token %d: expected %q, got %q", i, text, tokens[i].Text)
		}
	}
}

func TestEmptyInput(t *testing.T) {
	if tokens := lex(t, ""); len(tokens) != 0 {
		t.Errorf("expected no tokens, got %d", len(tokens))
	}
}

func TestKeywordsAreIdentifierTokens(t *testing.T) {
	for _, kw := range []string{"true", "false", "null", "undefined", "this", "$locals"} {
		tokens := lex(t, kw)
		if len(tokens) != 1 || !tokens[0].Identifier {
			t.Errorf("%q should lex as a single identifier token", kw)
		}
	}
}
