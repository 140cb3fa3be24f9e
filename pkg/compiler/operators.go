package compiler

import (
	"math"
	"strconv"

	"github.com/rkurbatov/myangular/pkg/errors"
	"github.com/rkurbatov/myangular/pkg/values"
)

// getMember reads a named member off a value. Missing members and
// members of non-containers read as Undefined.
func getMember(object values.Value, name string) values.Value {
	switch object.Type() {
	case values.TypeObject:
		v, _ := object.AsObject().Get(name)
		return v
	case values.TypeScope:
		v, _ := object.AsContext().Lookup(name)
		return v
	case values.TypeArray:
		arr := object.AsArray()
		if name == "length" {
			return values.NumberValue(float64(arr.Len()))
		}
		if i, err := strconv.Atoi(name); err == nil {
			return arr.Get(i)
		}
		return values.Undefined
	case values.TypeString:
		runes := []rune(object.AsString())
		if name == "length" {
			return values.NumberValue(float64(len(runes)))
		}
		if i, err := strconv.Atoi(name); err == nil && i >= 0 && i < len(runes) {
			return values.NewString(string(runes[i]))
		}
		return values.Undefined
	default:
		return values.Undefined
	}
}

// setMember stores a named member into a container value.
func setMember(object values.Value, name string, v values.Value) error {
	switch object.Type() {
	case values.TypeObject:
		object.AsObject().Set(name, v)
		return nil
	case values.TypeScope:
		object.AsContext().Define(name, v)
		return nil
	case values.TypeArray:
		arr := object.AsArray()
		if name == "length" {
			arr.SetLength(int(v.ToNumber()))
			return nil
		}
		if i, err := strconv.Atoi(name); err == nil {
			arr.Set(i, v)
			return nil
		}
		return errors.NewRuntime("cannot assign to member '%s' of an array", name)
	default:
		return errors.NewRuntime("cannot assign to member '%s' of a %s", name, object.TypeName())
	}
}

func applyBinary(op string, left, right values.Value) values.Value {
	switch op {
	case "+":
		return add(left, right)
	case "-":
		return values.NumberValue(definedNumber(left) - definedNumber(right))
	case "*":
		return values.NumberValue(left.ToNumber() * right.ToNumber())
	case "/":
		return values.NumberValue(left.ToNumber() / right.ToNumber())
	case "%":
		return values.NumberValue(math.Mod(left.ToNumber(), right.ToNumber()))
	case "==":
		return values.BooleanValue(left.LooseEquals(right))
	case "!=":
		return values.BooleanValue(!left.LooseEquals(right))
	case "===":
		return values.BooleanValue(left.StrictEquals(right))
	case "!==":
		return values.BooleanValue(!left.StrictEquals(right))
	default:
		return compare(op, left, right)
	}
}

// add follows the host addition rules with one exception: an undefined
// operand yields the other operand rather than NaN.
func add(left, right values.Value) values.Value {
	if !left.IsDefined() && !right.IsDefined() {
		return values.Undefined
	}
	if !left.IsDefined() {
		return right
	}
	if !right.IsDefined() {
		return left
	}
	if left.IsString() || right.IsString() {
		return values.NewString(left.ToString() + right.ToString())
	}
	return values.NumberValue(left.ToNumber() + right.ToNumber())
}

// definedNumber substitutes 0 for undefined before numeric coercion.
func definedNumber(v values.Value) float64 {
	if !v.IsDefined() {
		return 0
	}
	return v.ToNumber()
}

// compare handles the relational operators: two strings compare
// lexically, everything else numerically, NaN comparisons are false.
func compare(op string, left, right values.Value) values.Value {
	if left.IsString() && right.IsString() {
		a, b := left.AsString(), right.AsString()
		switch op {
		case "<":
			return values.BooleanValue(a < b)
		case ">":
			return values.BooleanValue(a > b)
		case "<=":
			return values.BooleanValue(a <= b)
		default:
			return values.BooleanValue(a >= b)
		}
	}
	a, b := left.ToNumber(), right.ToNumber()
	if math.IsNaN(a) || math.IsNaN(b) {
		return values.False
	}
	switch op {
	case "<":
		return values.BooleanValue(a < b)
	case ">":
		return values.BooleanValue(a > b)
	case "<=":
		return values.BooleanValue(a <= b)
	default:
		return values.BooleanValue(a >= b)
	}
}
