package compiler

import (
	"strings"

	"github.com/rkurbatov/myangular/pkg/errors"
	"github.com/rkurbatov/myangular/pkg/filters"
	"github.com/rkurbatov/myangular/pkg/parser"
	"github.com/rkurbatov/myangular/pkg/source"
	"github.com/rkurbatov/myangular/pkg/values"
)

// frame is the per-evaluation state threaded through compiled closures.
type frame struct {
	ctx    values.Context
	scope  values.Value   // ctx wrapped as a value, what `this` yields
	locals *values.Object // per-evaluation overlay, may be nil
	param  values.Value   // RHS value for setter invocations
}

type evalFn func(f *frame) (values.Value, error)

// InputFn evaluates one tracked input of a compiled expression.
type InputFn func(ctx values.Context, locals *values.Object) (values.Value, error)

// Compiled is a parsed, analysed and closed-over expression. It is
// immutable after compilation and safe to share between watchers.
type Compiled struct {
	text string
	fn   evalFn

	Constant bool
	Literal  bool
	OneTime  bool
	Inputs   []InputFn

	assign evalFn
}

func (c *Compiled) Text() string { return c.text }

// Eval runs the expression against ctx with an optional locals overlay.
func (c *Compiled) Eval(ctx values.Context, locals *values.Object) (values.Value, error) {
	f := &frame{ctx: ctx, scope: values.NewScopeValue(ctx), locals: locals}
	return c.fn(f)
}

// Assignable reports whether the expression denotes a settable location.
func (c *Compiled) Assignable() bool { return c.assign != nil }

// Assign stores value into the location the expression denotes, creating
// intermediate mappings along the path, and returns the stored value.
func (c *Compiled) Assign(ctx values.Context, value values.Value, locals *values.Object) (values.Value, error) {
	if c.assign == nil {
		return values.Undefined, errors.NewRuntime("expression '%s' is not assignable", c.text)
	}
	f := &frame{ctx: ctx, scope: values.NewScopeValue(ctx), locals: locals, param: value}
	return c.assign(f)
}

// Compiler turns expression text into Compiled programs. Compilations
// are cached by expression text; the cache is not synchronised because
// the engine is single-threaded cooperative.
type Compiler struct {
	filters *filters.Registry
	cache   map[string]*Compiled
}

func New(registry *filters.Registry) *Compiler {
	return &Compiler{filters: registry, cache: map[string]*Compiled{}}
}

// Filters exposes the registry the compiler resolves filter calls from.
func (c *Compiler) Filters() *filters.Registry { return c.filters }

// Compile parses, analyses and closes over one expression. A leading ::
// marks the expression one-time.
func (c *Compiler) Compile(text string) (*Compiled, error) {
	if cached, ok := c.cache[text]; ok {
		return cached, nil
	}

	oneTime := false
	body := text
	if trimmed := strings.TrimSpace(text); strings.HasPrefix(trimmed, "::") {
		oneTime = true
		body = strings.TrimPrefix(trimmed, "::")
	}

	program, err := parser.Parse(source.NewEval(body))
	if err != nil {
		return nil, err
	}
	analyze(program, c.filters)

	fn, err := c.compile(program)
	if err != nil {
		return nil, err
	}

	compiled := &Compiled{
		text:     text,
		fn:       fn,
		Constant: program.Analysis().Constant,
		Literal:  isLiteralProgram(program),
		OneTime:  oneTime,
	}

	if !compiled.Constant {
		for _, node := range inputNodes(program) {
			inputFn, err := c.compile(node)
			if err != nil {
				return nil, err
			}
			compiled.Inputs = append(compiled.Inputs, func(ctx values.Context, locals *values.Object) (values.Value, error) {
				f := &frame{ctx: ctx, scope: values.NewScopeValue(ctx), locals: locals}
				return inputFn(f)
			})
		}
	}

	if target := assignableNode(program); target != nil {
		setter := &parser.AssignmentExpression{Left: target, Right: &parser.ValueParameter{}}
		assignFn, err := c.compile(setter)
		if err != nil {
			return nil, err
		}
		compiled.assign = assignFn
	}

	c.cache[text] = compiled
	return compiled, nil
}

// --- Node compilation ---

func (c *Compiler) compile(node parser.Node) (evalFn, error) {
	switch n := node.(type) {
	case *parser.Program:
		stmts := make([]evalFn, len(n.Body))
		for i, stmt := range n.Body {
			fn, err := c.compile(stmt)
			if err != nil {
				return nil, err
			}
			stmts[i] = fn
		}
		return func(f *frame) (values.Value, error) {
			result := values.Undefined
			for _, stmt := range stmts {
				v, err := stmt(f)
				if err != nil {
					return values.Undefined, err
				}
				result = v
			}
			return result, nil
		}, nil

	case *parser.Literal:
		v := n.Value
		return func(f *frame) (values.Value, error) { return v, nil }, nil

	case *parser.ThisExpression:
		return func(f *frame) (values.Value, error) { return f.scope, nil }, nil

	case *parser.LocalsExpression:
		return func(f *frame) (values.Value, error) {
			if f.locals == nil {
				return values.Undefined, nil
			}
			return values.ObjectValue(f.locals), nil
		}, nil

	case *parser.ValueParameter:
		return func(f *frame) (values.Value, error) { return f.param, nil }, nil

	case *parser.Identifier:
		name := n.Name
		if err := checkSafeName(name); err != nil {
			return nil, err
		}
		return func(f *frame) (values.Value, error) {
			if f.locals != nil && f.locals.Has(name) {
				v, _ := f.locals.Get(name)
				return v, nil
			}
			if v, ok := f.ctx.Lookup(name); ok {
				return v, nil
			}
			return values.Undefined, nil
		}, nil

	case *parser.ArrayLiteral:
		elements := make([]evalFn, len(n.Elements))
		for i, el := range n.Elements {
			fn, err := c.compile(el)
			if err != nil {
				return nil, err
			}
			elements[i] = fn
		}
		return func(f *frame) (values.Value, error) {
			out := make([]values.Value, len(elements))
			for i, el := range elements {
				v, err := el(f)
				if err != nil {
					return values.Undefined, err
				}
				out[i] = v
			}
			return values.NewArray(out...), nil
		}, nil

	case *parser.ObjectLiteral:
		keys := make([]string, len(n.Properties))
		vals := make([]evalFn, len(n.Properties))
		for i, prop := range n.Properties {
			switch key := prop.Key.(type) {
			case *parser.Identifier:
				keys[i] = key.Name
			case *parser.Literal:
				keys[i] = key.Value.ToString()
			}
			fn, err := c.compile(prop.Value)
			if err != nil {
				return nil, err
			}
			vals[i] = fn
		}
		return func(f *frame) (values.Value, error) {
			out := values.NewObject()
			obj := out.AsObject()
			for i := range keys {
				v, err := vals[i](f)
				if err != nil {
					return values.Undefined, err
				}
				obj.Set(keys[i], v)
			}
			return out, nil
		}, nil

	case *parser.MemberExpression:
		return c.compileMember(n)

	case *parser.CallExpression:
		if n.Filter {
			return c.compileFilterCall(n)
		}
		return c.compileCall(n)

	case *parser.AssignmentExpression:
		rightFn, err := c.compile(n.Right)
		if err != nil {
			return nil, err
		}
		return c.compileAssign(n.Left, rightFn)

	case *parser.UnaryExpression:
		return c.compileUnary(n)

	case *parser.BinaryExpression:
		return c.compileBinary(n)

	case *parser.LogicalExpression:
		leftFn, err := c.compile(n.Left)
		if err != nil {
			return nil, err
		}
		rightFn, err := c.compile(n.Right)
		if err != nil {
			return nil, err
		}
		and := n.Operator == "&&"
		return func(f *frame) (values.Value, error) {
			left, err := leftFn(f)
			if err != nil {
				return values.Undefined, err
			}
			if left.IsTruthy() == and {
				return rightFn(f)
			}
			return left, nil
		}, nil

	case *parser.ConditionalExpression:
		testFn, err := c.compile(n.Test)
		if err != nil {
			return nil, err
		}
		consFn, err := c.compile(n.Consequent)
		if err != nil {
			return nil, err
		}
		altFn, err := c.compile(n.Alternate)
		if err != nil {
			return nil, err
		}
		return func(f *frame) (values.Value, error) {
			test, err := testFn(f)
			if err != nil {
				return values.Undefined, err
			}
			if test.IsTruthy() {
				return consFn(f)
			}
			return altFn(f)
		}, nil
	}
	return nil, errors.NewRuntime("cannot compile node %T", node)
}

func (c *Compiler) compileMember(n *parser.MemberExpression) (evalFn, error) {
	objectFn, err := c.compile(n.Object)
	if err != nil {
		return nil, err
	}
	keyFn, err := c.compileKey(n)
	if err != nil {
		return nil, err
	}
	return func(f *frame) (values.Value, error) {
		object, err := objectFn(f)
		if err != nil {
			return values.Undefined, err
		}
		if !object.IsDefined() || object.IsNull() {
			return values.Undefined, nil
		}
		name, err := keyFn(f)
		if err != nil {
			return values.Undefined, err
		}
		if err := checkSafeMember(object, name); err != nil {
			return values.Undefined, err
		}
		if err := checkSafeObject(object); err != nil {
			return values.Undefined, err
		}
		result := getMember(object, name)
		if err := checkSafeObject(result); err != nil {
			return values.Undefined, err
		}
		return result, nil
	}, nil
}

// compileKey resolves the member name: a compile-time constant for dotted
// access, an evaluated coerced string for computed access. Constant names
// are vetted once, at compile time.
func (c *Compiler) compileKey(n *parser.MemberExpression) (func(f *frame) (string, error), error) {
	if !n.Computed {
		name := n.Property.(*parser.Identifier).Name
		if err := checkSafeName(name); err != nil {
			return nil, err
		}
		return func(f *frame) (string, error) { return name, nil }, nil
	}
	propertyFn, err := c.compile(n.Property)
	if err != nil {
		return nil, err
	}
	return func(f *frame) (string, error) {
		property, err := propertyFn(f)
		if err != nil {
			return "", err
		}
		return property.ToString(), nil
	}, nil
}

func (c *Compiler) compileCall(n *parser.CallExpression) (evalFn, error) {
	argFns := make([]evalFn, len(n.Arguments))
	for i, arg := range n.Arguments {
		fn, err := c.compile(arg)
		if err != nil {
			return nil, err
		}
		argFns[i] = fn
	}

	// Resolve callee and its receiver: member calls bind the enclosing
	// object, bare calls bind the container that owns the name.
	var resolve func(f *frame) (values.Value, values.Value, error)
	calleeName := "expression"
	switch callee := n.Callee.(type) {
	case *parser.Identifier:
		name := callee.Name
		calleeName = name
		if err := checkSafeName(name); err != nil {
			return nil, err
		}
		resolve = func(f *frame) (values.Value, values.Value, error) {
			if f.locals != nil && f.locals.Has(name) {
				v, _ := f.locals.Get(name)
				return v, values.ObjectValue(f.locals), nil
			}
			if v, ok := f.ctx.Lookup(name); ok {
				return v, f.scope, nil
			}
			return values.Undefined, f.scope, nil
		}
	case *parser.MemberExpression:
		calleeName = callee.String()
		objectFn, err := c.compile(callee.Object)
		if err != nil {
			return nil, err
		}
		keyFn, err := c.compileKey(callee)
		if err != nil {
			return nil, err
		}
		resolve = func(f *frame) (values.Value, values.Value, error) {
			object, err := objectFn(f)
			if err != nil {
				return values.Undefined, values.Undefined, err
			}
			if !object.IsDefined() || object.IsNull() {
				return values.Undefined, values.Undefined, nil
			}
			name, err := keyFn(f)
			if err != nil {
				return values.Undefined, values.Undefined, err
			}
			if err := checkSafeMember(object, name); err != nil {
				return values.Undefined, values.Undefined, err
			}
			if err := checkSafeObject(object); err != nil {
				return values.Undefined, values.Undefined, err
			}
			return getMember(object, name), object, nil
		}
	default:
		calleeFn, err := c.compile(n.Callee)
		if err != nil {
			return nil, err
		}
		resolve = func(f *frame) (values.Value, values.Value, error) {
			v, err := calleeFn(f)
			return v, values.Undefined, err
		}
	}

	return func(f *frame) (values.Value, error) {
		callee, this, err := resolve(f)
		if err != nil {
			return values.Undefined, err
		}
		if err := checkSafeObject(callee); err != nil {
			return values.Undefined, err
		}
		if !callee.IsCallable() {
			return values.Undefined, errors.NewRuntime("'%s' is not a function", calleeName)
		}
		args := make([]values.Value, len(argFns))
		for i, argFn := range argFns {
			arg, err := argFn(f)
			if err != nil {
				return values.Undefined, err
			}
			if err := checkSafeObject(arg); err != nil {
				return values.Undefined, err
			}
			args[i] = arg
		}
		result, err := callee.AsFunction().Call(this, args)
		if err != nil {
			return values.Undefined, err
		}
		if err := checkSafeObject(result); err != nil {
			return values.Undefined, err
		}
		return result, nil
	}, nil
}

// compileFilterCall resolves the filter against the registry at
// evaluation time; filters are not values in the scope.
func (c *Compiler) compileFilterCall(n *parser.CallExpression) (evalFn, error) {
	name := n.Callee.(*parser.Identifier).Name
	argFns := make([]evalFn, len(n.Arguments))
	for i, arg := range n.Arguments {
		fn, err := c.compile(arg)
		if err != nil {
			return nil, err
		}
		argFns[i] = fn
	}
	registry := c.filters
	return func(f *frame) (values.Value, error) {
		filter, ok := registry.Filter(name)
		if !ok {
			return values.Undefined, errors.NewRuntime("Filter '%s' is not defined", name)
		}
		args := make([]values.Value, len(argFns))
		for i, argFn := range argFns {
			arg, err := argFn(f)
			if err != nil {
				return values.Undefined, err
			}
			args[i] = arg
		}
		return filter(args)
	}, nil
}

func (c *Compiler) compileUnary(n *parser.UnaryExpression) (evalFn, error) {
	argFn, err := c.compile(n.Argument)
	if err != nil {
		return nil, err
	}
	op := n.Operator
	return func(f *frame) (values.Value, error) {
		arg, err := argFn(f)
		if err != nil {
			return values.Undefined, err
		}
		switch op {
		case "+":
			if !arg.IsDefined() {
				return values.NumberValue(0), nil
			}
			return values.NumberValue(arg.ToNumber()), nil
		case "-":
			if !arg.IsDefined() {
				return values.NumberValue(0), nil
			}
			return values.NumberValue(-arg.ToNumber()), nil
		default: // "!"
			return values.BooleanValue(arg.IsFalsey()), nil
		}
	}, nil
}

func (c *Compiler) compileBinary(n *parser.BinaryExpression) (evalFn, error) {
	leftFn, err := c.compile(n.Left)
	if err != nil {
		return nil, err
	}
	rightFn, err := c.compile(n.Right)
	if err != nil {
		return nil, err
	}
	op := n.Operator
	return func(f *frame) (values.Value, error) {
		left, err := leftFn(f)
		if err != nil {
			return values.Undefined, err
		}
		right, err := rightFn(f)
		if err != nil {
			return values.Undefined, err
		}
		return applyBinary(op, left, right), nil
	}, nil
}

func (c *Compiler) compileAssign(left parser.Node, rightFn evalFn) (evalFn, error) {
	switch l := left.(type) {
	case *parser.Identifier:
		name := l.Name
		if err := checkSafeName(name); err != nil {
			return nil, err
		}
		return func(f *frame) (values.Value, error) {
			v, err := rightFn(f)
			if err != nil {
				return values.Undefined, err
			}
			if err := checkSafeObject(v); err != nil {
				return values.Undefined, err
			}
			if f.locals != nil && f.locals.Has(name) {
				f.locals.Set(name, v)
				return v, nil
			}
			owner := f.ctx.Owner(name)
			if owner == nil {
				owner = f.ctx
			}
			owner.Define(name, v)
			return v, nil
		}, nil

	case *parser.MemberExpression:
		objectFn, err := c.compileRef(l.Object)
		if err != nil {
			return nil, err
		}
		keyFn, err := c.compileKey(l)
		if err != nil {
			return nil, err
		}
		return func(f *frame) (values.Value, error) {
			object, err := objectFn(f)
			if err != nil {
				return values.Undefined, err
			}
			name, err := keyFn(f)
			if err != nil {
				return values.Undefined, err
			}
			if err := checkSafeMember(object, name); err != nil {
				return values.Undefined, err
			}
			v, err := rightFn(f)
			if err != nil {
				return values.Undefined, err
			}
			if err := checkSafeObject(v); err != nil {
				return values.Undefined, err
			}
			if err := setMember(object, name, v); err != nil {
				return values.Undefined, err
			}
			return v, nil
		}, nil
	}
	return nil, errors.NewSyntax(errors.Position{}, "Trying to assign a value to a non l-value")
}

// compileRef resolves a node for writing: missing or nullish steps along
// the path become fresh mappings on the container that owns the root.
func (c *Compiler) compileRef(node parser.Node) (evalFn, error) {
	switch n := node.(type) {
	case *parser.Identifier:
		name := n.Name
		if err := checkSafeName(name); err != nil {
			return nil, err
		}
		return func(f *frame) (values.Value, error) {
			if f.locals != nil && f.locals.Has(name) {
				v, _ := f.locals.Get(name)
				if !v.IsDefined() || v.IsNull() {
					v = values.NewObject()
					f.locals.Set(name, v)
				}
				return v, nil
			}
			owner := f.ctx.Owner(name)
			if owner == nil {
				owner = f.ctx
			}
			v, ok := owner.Lookup(name)
			if !ok || !v.IsDefined() || v.IsNull() {
				v = values.NewObject()
				owner.Define(name, v)
			}
			return v, nil
		}, nil

	case *parser.MemberExpression:
		objectFn, err := c.compileRef(n.Object)
		if err != nil {
			return nil, err
		}
		keyFn, err := c.compileKey(n)
		if err != nil {
			return nil, err
		}
		return func(f *frame) (values.Value, error) {
			object, err := objectFn(f)
			if err != nil {
				return values.Undefined, err
			}
			name, err := keyFn(f)
			if err != nil {
				return values.Undefined, err
			}
			if err := checkSafeMember(object, name); err != nil {
				return values.Undefined, err
			}
			v := getMember(object, name)
			if !v.IsDefined() || v.IsNull() {
				v = values.NewObject()
				if err := setMember(object, name, v); err != nil {
					return values.Undefined, err
				}
			}
			if err := checkSafeObject(v); err != nil {
				return values.Undefined, err
			}
			return v, nil
		}, nil

	case *parser.ThisExpression:
		return func(f *frame) (values.Value, error) { return f.scope, nil }, nil

	case *parser.LocalsExpression:
		return func(f *frame) (values.Value, error) {
			if f.locals == nil {
				return values.Undefined, nil
			}
			return values.ObjectValue(f.locals), nil
		}, nil
	}
	return c.compile(node)
}
