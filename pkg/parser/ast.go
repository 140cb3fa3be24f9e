package parser

import (
	"strings"

	"github.com/rkurbatov/myangular/pkg/values"
)

// Node is the base interface for all AST nodes. Every node carries an
// analysis record (constant flag plus watch set) filled in after parsing.
type Node interface {
	String() string // canonical rendering, used by goldens and the REPL
	Analysis() *Analysis
}

// Analysis is the per-node decoration computed by the post-order
// constancy pass: whether the subtree is constant, and which nodes a
// watcher has to track to observe the subtree changing.
type Analysis struct {
	Constant bool
	ToWatch  []Node
}

// base is embedded by every node to satisfy the Analysis accessor.
type base struct {
	analysis Analysis
}

func (b *base) Analysis() *Analysis { return &b.analysis }

// --- Node variants ---

// Program is the root node: a semicolon-separated statement list.
type Program struct {
	base
	Body []Node
}

func (p *Program) String() string {
	parts := make([]string, len(p.Body))
	for i, stmt := range p.Body {
		parts[i] = stmt.String()
	}
	return strings.Join(parts, "; ")
}

// Literal is a number, string, boolean, null or undefined constant.
type Literal struct {
	base
	Value values.Value
}

func (l *Literal) String() string {
	if l.Value.IsString() {
		return l.Value.Inspect()
	}
	return l.Value.ToString()
}

// Identifier is a bare name resolved against locals and the scope chain.
type Identifier struct {
	base
	Name string
}

func (i *Identifier) String() string { return i.Name }

// ThisExpression evaluates to the scope under evaluation.
type ThisExpression struct{ base }

func (t *ThisExpression) String() string { return "this" }

// LocalsExpression evaluates to the per-evaluation locals overlay.
type LocalsExpression struct{ base }

func (l *LocalsExpression) String() string { return "$locals" }

// ValueParameter marks the right-hand side of a synthesised assignment:
// it evaluates to the value handed to a compiled setter.
type ValueParameter struct{ base }

func (v *ValueParameter) String() string { return "<value>" }

// ArrayLiteral is [a, b, c]; a trailing comma is permitted.
type ArrayLiteral struct {
	base
	Elements []Node
}

func (a *ArrayLiteral) String() string {
	parts := make([]string, len(a.Elements))
	for i, el := range a.Elements {
		parts[i] = el.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Property is one key-value entry of an object literal. The key is an
// Identifier or a Literal.
type Property struct {
	base
	Key   Node
	Value Node
}

func (p *Property) String() string { return p.Key.String() + ": " + p.Value.String() }

// ObjectLiteral is {k: v, ...}; a trailing comma is permitted.
type ObjectLiteral struct {
	base
	Properties []*Property
}

func (o *ObjectLiteral) String() string {
	parts := make([]string, len(o.Properties))
	for i, prop := range o.Properties {
		parts[i] = prop.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// MemberExpression is a.b (non-computed) or a[b] (computed).
type MemberExpression struct {
	base
	Object   Node
	Property Node
	Computed bool
}

func (m *MemberExpression) String() string {
	if m.Computed {
		return m.Object.String() + "[" + m.Property.String() + "]"
	}
	return m.Object.String() + "." + m.Property.String()
}

// CallExpression is callee(args...). The filter form `x | f:a` is a call
// with Filter set; its callee names a registry entry, not a scope value.
type CallExpression struct {
	base
	Callee    Node
	Arguments []Node
	Filter    bool
}

func (c *CallExpression) String() string {
	if c.Filter {
		out := c.Arguments[0].String() + " | " + c.Callee.String()
		for _, arg := range c.Arguments[1:] {
			out += ":" + arg.String()
		}
		return out
	}
	parts := make([]string, len(c.Arguments))
	for i, arg := range c.Arguments {
		parts[i] = arg.String()
	}
	return c.Callee.String() + "(" + strings.Join(parts, ", ") + ")"
}

// AssignmentExpression is left = right.
type AssignmentExpression struct {
	base
	Left  Node
	Right Node
}

func (a *AssignmentExpression) String() string {
	return a.Left.String() + " = " + a.Right.String()
}

// UnaryExpression is +x, -x or !x.
type UnaryExpression struct {
	base
	Operator string
	Argument Node
}

func (u *UnaryExpression) String() string { return u.Operator + u.Argument.String() }

// BinaryExpression covers the arithmetic, relational and equality
// operators.
type BinaryExpression struct {
	base
	Operator string
	Left     Node
	Right    Node
}

func (b *BinaryExpression) String() string {
	return "(" + b.Left.String() + " " + b.Operator + " " + b.Right.String() + ")"
}

// LogicalExpression is && or ||; evaluation short-circuits.
type LogicalExpression struct {
	base
	Operator string
	Left     Node
	Right    Node
}

func (l *LogicalExpression) String() string {
	return "(" + l.Left.String() + " " + l.Operator + " " + l.Right.String() + ")"
}

// ConditionalExpression is test ? consequent : alternate.
type ConditionalExpression struct {
	base
	Test       Node
	Consequent Node
	Alternate  Node
}

func (c *ConditionalExpression) String() string {
	return "(" + c.Test.String() + " ? " + c.Consequent.String() + " : " + c.Alternate.String() + ")"
}
