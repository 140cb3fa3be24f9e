package compiler

import (
	"github.com/rkurbatov/myangular/pkg/parser"
)

// statefulChecker answers whether a named filter is stateful; stateful
// filters disable constant folding and input tracking for their calls.
type statefulChecker interface {
	Stateful(name string) bool
}

// analyze runs the single post-order pass that marks every node with its
// constancy flag and the set of nodes a watcher must track to observe it.
func analyze(node parser.Node, filters statefulChecker) {
	switch n := node.(type) {
	case *parser.Program:
		allConstants := true
		for _, stmt := range n.Body {
			analyze(stmt, filters)
			allConstants = allConstants && stmt.Analysis().Constant
		}
		n.Analysis().Constant = allConstants

	case *parser.Literal:
		n.Analysis().Constant = true

	case *parser.ThisExpression, *parser.LocalsExpression, *parser.ValueParameter:
		// Mutable roots: never constant, nothing finer to watch.

	case *parser.Identifier:
		n.Analysis().ToWatch = []parser.Node{n}

	case *parser.UnaryExpression:
		analyze(n.Argument, filters)
		n.Analysis().Constant = n.Argument.Analysis().Constant
		n.Analysis().ToWatch = n.Argument.Analysis().ToWatch

	case *parser.BinaryExpression:
		analyze(n.Left, filters)
		analyze(n.Right, filters)
		n.Analysis().Constant = n.Left.Analysis().Constant && n.Right.Analysis().Constant
		n.Analysis().ToWatch = append(
			append([]parser.Node{}, n.Left.Analysis().ToWatch...),
			n.Right.Analysis().ToWatch...)

	case *parser.LogicalExpression:
		analyze(n.Left, filters)
		analyze(n.Right, filters)
		n.Analysis().Constant = n.Left.Analysis().Constant && n.Right.Analysis().Constant
		n.Analysis().ToWatch = []parser.Node{n}

	case *parser.ConditionalExpression:
		analyze(n.Test, filters)
		analyze(n.Consequent, filters)
		analyze(n.Alternate, filters)
		n.Analysis().Constant = n.Test.Analysis().Constant &&
			n.Consequent.Analysis().Constant && n.Alternate.Analysis().Constant
		n.Analysis().ToWatch = []parser.Node{n}

	case *parser.MemberExpression:
		analyze(n.Object, filters)
		constant := n.Object.Analysis().Constant
		if n.Computed {
			analyze(n.Property, filters)
			constant = constant && n.Property.Analysis().Constant
		}
		n.Analysis().Constant = constant
		n.Analysis().ToWatch = []parser.Node{n}

	case *parser.CallExpression:
		stateless := false
		if n.Filter {
			name := n.Callee.(*parser.Identifier).Name
			stateless = !filters.Stateful(name)
		}
		if stateless {
			allConstants := true
			var argsToWatch []parser.Node
			for _, arg := range n.Arguments {
				analyze(arg, filters)
				allConstants = allConstants && arg.Analysis().Constant
				argsToWatch = append(argsToWatch, arg.Analysis().ToWatch...)
			}
			n.Analysis().Constant = allConstants
			n.Analysis().ToWatch = argsToWatch
		} else {
			for _, arg := range n.Arguments {
				analyze(arg, filters)
			}
			n.Analysis().ToWatch = []parser.Node{n}
		}

	case *parser.AssignmentExpression:
		analyze(n.Left, filters)
		analyze(n.Right, filters)
		n.Analysis().Constant = n.Left.Analysis().Constant && n.Right.Analysis().Constant
		n.Analysis().ToWatch = []parser.Node{n}

	case *parser.ArrayLiteral:
		allConstants := true
		var argsToWatch []parser.Node
		for _, el := range n.Elements {
			analyze(el, filters)
			allConstants = allConstants && el.Analysis().Constant
			argsToWatch = append(argsToWatch, el.Analysis().ToWatch...)
		}
		n.Analysis().Constant = allConstants
		n.Analysis().ToWatch = argsToWatch

	case *parser.ObjectLiteral:
		allConstants := true
		var argsToWatch []parser.Node
		for _, prop := range n.Properties {
			analyze(prop.Value, filters)
			allConstants = allConstants && prop.Value.Analysis().Constant
			argsToWatch = append(argsToWatch, prop.Value.Analysis().ToWatch...)
		}
		n.Analysis().Constant = allConstants
		n.Analysis().ToWatch = argsToWatch
	}
}

// inputNodes derives the sub-expressions a watcher can compare instead of
// re-running the whole program. Only single-statement programs qualify,
// and a statement that can only watch itself yields nothing.
func inputNodes(program *parser.Program) []parser.Node {
	if len(program.Body) != 1 {
		return nil
	}
	last := program.Body[0]
	candidate := last.Analysis().ToWatch
	if len(candidate) == 0 {
		return nil
	}
	if len(candidate) == 1 && candidate[0] == last {
		return nil
	}
	return candidate
}

// isLiteralProgram reports whether the program is an empty body or a
// single top-level Literal, ArrayLiteral or ObjectLiteral.
func isLiteralProgram(program *parser.Program) bool {
	if len(program.Body) == 0 {
		return true
	}
	if len(program.Body) > 1 {
		return false
	}
	switch program.Body[0].(type) {
	case *parser.Literal, *parser.ArrayLiteral, *parser.ObjectLiteral:
		return true
	}
	return false
}

// assignableNode returns the single statement when the program can be
// shaped into a settable location.
func assignableNode(program *parser.Program) parser.Node {
	if len(program.Body) != 1 {
		return nil
	}
	switch program.Body[0].(type) {
	case *parser.Identifier, *parser.MemberExpression:
		return program.Body[0]
	}
	return nil
}
