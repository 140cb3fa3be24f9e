package parser

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, input string) *Program {
	t.Helper()
	program, err := ParseString(input)
	require.NoError(t, err, "parse(%q)", input)
	return program
}

// The golden files pin the canonical rendering of parsed programs,
// which encodes precedence and associativity decisions.
func TestGoldenRendering(t *testing.T) {
	g := goldie.New(t)
	cases := []struct {
		name  string
		input string
	}{
		{"precedence", "2 + 3 * 5 - 4 / 2"},
		{"logical", "a && b || !c"},
		{"ternary", "a === 42 ? 'y' : 'n'"},
		{"members", "a.b[c](1, 'x').d"},
		{"literals", "[1, 'two', [3], {four: 4},]"},
		{"filters", "arr | filter:'o' | limitTo:2"},
		{"assignment", "a.b = c = 42"},
		{"program", "a = 1; b = a + 1;"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			program := parse(t, tc.input)
			g.Assert(t, tc.name, []byte(program.String()+"\n"))
		})
	}
}

func TestPrecedence(t *testing.T) {
	tests := []struct {
		input    string
		rendered string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"1 < 2 == true", "((1 < 2) == true)"},
		{"a && b && c", "((a && b) && c)"},
		{"a || b && c", "(a || (b && c))"},
		{"-  -a", "--a"},
		{"!!a", "!!a"},
		{"a ? b : c ? d : e", "(a ? b : (c ? d : e))"},
		{"a = b = 1", "a = b = 1"},
		{"1 - 2 - 3", "((1 - 2) - 3)"},
		{"8 / 4 / 2", "((8 / 4) / 2)"},
		{"5 % 3 % 2", "((5 % 3) % 2)"},
	}
	for _, tt := range tests {
		program := parse(t, tt.input)
		assert.Equal(t, tt.rendered, program.String(), "input %q", tt.input)
	}
}

func TestEmptyPrograms(t *testing.T) {
	for _, input := range []string{"", ";", " ;; "} {
		program := parse(t, input)
		assert.Empty(t, program.Body, "input %q", input)
	}
}

func TestPrimaryKeywords(t *testing.T) {
	program := parse(t, "this")
	require.Len(t, program.Body, 1)
	assert.IsType(t, &ThisExpression{}, program.Body[0])

	program = parse(t, "$locals")
	require.Len(t, program.Body, 1)
	assert.IsType(t, &LocalsExpression{}, program.Body[0])

	for _, kw := range []string{"true", "false", "null", "undefined"} {
		program := parse(t, kw)
		require.Len(t, program.Body, 1, "input %q", kw)
		assert.IsType(t, &Literal{}, program.Body[0], "input %q", kw)
	}
}

func TestObjectKeys(t *testing.T) {
	program := parse(t, "{a: 1, 'b c': 2, 42: 3}")
	object := program.Body[0].(*ObjectLiteral)
	require.Len(t, object.Properties, 3)
	assert.IsType(t, &Identifier{}, object.Properties[0].Key)
	assert.IsType(t, &Literal{}, object.Properties[1].Key)
	assert.IsType(t, &Literal{}, object.Properties[2].Key)
}

func TestTrailingCommas(t *testing.T) {
	array := parse(t, "[1, 2,]").Body[0].(*ArrayLiteral)
	assert.Len(t, array.Elements, 2)

	object := parse(t, "{a: 1,}").Body[0].(*ObjectLiteral)
	assert.Len(t, object.Properties, 1)
}

func TestFilterShape(t *testing.T) {
	program := parse(t, "x | f:1:2")
	call := program.Body[0].(*CallExpression)
	require.True(t, call.Filter)
	assert.Equal(t, "f", call.Callee.(*Identifier).Name)
	require.Len(t, call.Arguments, 3, "piped value plus two extras")
	assert.IsType(t, &Identifier{}, call.Arguments[0])
}

func TestTernaryArmsAcceptAssignments(t *testing.T) {
	program := parse(t, "a ? b = 1 : c = 2")
	cond := program.Body[0].(*ConditionalExpression)
	assert.IsType(t, &AssignmentExpression{}, cond.Consequent)
	assert.IsType(t, &AssignmentExpression{}, cond.Alternate)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input   string
		message string
	}{
		{"[1", "Unexpected! Expecting: ]"},
		{"{a: 1", "Unexpected! Expecting: }"},
		{"{a 1}", "Unexpected! Expecting: :"},
		{"(a", "Unexpected! Expecting: )"},
		{"a ? b", "Unexpected! Expecting: :"},
		{"a.3", "'.3' is an unexpected token"},
		{"a.", "Unexpected end of expression"},
		{"+", "Unexpected end of expression"},
		{")", "unexpected token"},
		{"a b", "unexpected token"},
		{"{3p: 1}", "Unexpected! Expecting: :"},
	}
	for _, tt := range tests {
		_, err := ParseString(tt.input)
		require.Error(t, err, "input %q", tt.input)
		assert.Contains(t, err.Error(), tt.message, "input %q", tt.input)
	}
}

func TestRenderReparseRoundTrip(t *testing.T) {
	// Rendering a parsed program and parsing the rendering again is a
	// fixed point.
	inputs := []string{
		"((a + b) * 2)",
		`arr | filter:"o"`,
		"a.b.c[0]",
		`{x: [1, 2], y: "z"}`,
		"(a ? 1 : 2)",
	}
	for _, input := range inputs {
		first := parse(t, input).String()
		second := parse(t, first).String()
		assert.Equal(t, first, second, "input %q", input)
	}
}

func TestErrorsMentionPosition(t *testing.T) {
	_, err := ParseString("a ==")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "Syntax Error at 1:5:"), "got %q", err.Error())
}
