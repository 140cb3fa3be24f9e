package filters

import (
	"strings"

	"github.com/rkurbatov/myangular/pkg/errors"
	"github.com/rkurbatov/myangular/pkg/values"
)

// anyPropertyKey is the wildcard key in mapping criteria: its criterion
// applies across all keys at the same level.
const anyPropertyKey = "$"

// filterFilter builds the array predicate filter: selects the elements
// of the piped array matching a criterion. The criterion is a predicate
// callable, a primitive (coerced-lowercase substring match) or a mapping
// (per-key deep compare). An optional comparator tightens matching:
// `true` means strict deep equality, a callable replaces the primitive
// comparator entirely.
func filterFilter() Fn {
	return func(args []values.Value) (values.Value, error) {
		array := argAt(args, 0)
		if !array.IsArray() {
			if !array.IsDefined() || array.IsNull() {
				return array, nil
			}
			return values.Undefined, errors.NewRuntime(
				"filter expected an array but received %s", array.TypeName())
		}
		criterion := argAt(args, 1)
		comparator := argAt(args, 2)

		var predicate func(item values.Value) (bool, error)
		switch {
		case criterion.IsCallable():
			fn := criterion.AsFunction()
			predicate = func(item values.Value) (bool, error) {
				result, err := fn.Call(values.Undefined, []values.Value{item})
				if err != nil {
					return false, err
				}
				return result.IsTruthy(), nil
			}
		case criterion.IsObject() || criterion.IsBoolean() || criterion.IsNumber() ||
			criterion.IsString() || criterion.IsNull():
			predicate = criterionPredicate(criterion, comparator)
		default:
			// No usable criterion: the array passes through unfiltered.
			return array, nil
		}

		out := values.NewArray()
		for _, item := range array.AsArray().Elements() {
			ok, err := predicate(item)
			if err != nil {
				return values.Undefined, err
			}
			if ok {
				out.AsArray().Append(item)
			}
		}
		return out, nil
	}
}

type comparatorFn func(actual, expected values.Value) (bool, error)

func criterionPredicate(criterion, comparator values.Value) func(values.Value) (bool, error) {
	// A `$` entry in a mapping criterion also matches bare primitives.
	shouldMatchPrimitives := criterion.IsObject() && criterion.AsObject().Has(anyPropertyKey)

	var compare comparatorFn
	switch {
	case comparator.IsBoolean() && comparator.AsBoolean():
		compare = func(actual, expected values.Value) (bool, error) {
			return actual.DeepEquals(expected), nil
		}
	case comparator.IsCallable():
		fn := comparator.AsFunction()
		compare = func(actual, expected values.Value) (bool, error) {
			result, err := fn.Call(values.Undefined, []values.Value{actual, expected})
			if err != nil {
				return false, err
			}
			return result.IsTruthy(), nil
		}
	default:
		compare = substringComparator
	}

	// Primitive criteria range over every key of candidate mappings;
	// mapping criteria pick their keys themselves.
	matchAgainstAnyProp := !criterion.IsObject()

	return func(item values.Value) (bool, error) {
		if shouldMatchPrimitives && !item.IsObject() {
			dollar, _ := criterion.AsObject().Get(anyPropertyKey)
			return deepCompare(item, dollar, compare, false, false)
		}
		return deepCompare(item, criterion, compare, matchAgainstAnyProp, false)
	}
}

// substringComparator is the primitive match: both sides coerce to
// lowercase strings and the expected side must occur in the actual one.
// Undefined never matches; null matches only null.
func substringComparator(actual, expected values.Value) (bool, error) {
	if !actual.IsDefined() || !expected.IsDefined() {
		return false, nil
	}
	if actual.IsNull() || expected.IsNull() {
		return actual.IsNull() && expected.IsNull(), nil
	}
	if expected.IsObject() || expected.IsArray() || actual.IsObject() || actual.IsArray() {
		return false, nil
	}
	a := strings.ToLower(actual.ToString())
	e := strings.ToLower(expected.ToString())
	return strings.Contains(a, e), nil
}

// deepCompare matches actual against expected. String criteria starting
// with ! negate; arrays match when any element matches; mapping criteria
// apply per key, with `$` ranging over every key at that level.
func deepCompare(actual, expected values.Value, compare comparatorFn,
	matchAgainstAnyProp, dontMatchWholeObject bool) (bool, error) {

	if expected.IsString() && strings.HasPrefix(expected.AsString(), "!") {
		ok, err := deepCompare(actual,
			values.NewString(expected.AsString()[1:]),
			compare, matchAgainstAnyProp, dontMatchWholeObject)
		return !ok, err
	}

	if actual.IsArray() {
		for _, item := range actual.AsArray().Elements() {
			ok, err := deepCompare(item, expected, compare, matchAgainstAnyProp, false)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}

	switch {
	case actual.IsObject():
		if matchAgainstAnyProp {
			obj := actual.AsObject()
			for _, key := range obj.Keys() {
				if strings.HasPrefix(key, "$") {
					continue
				}
				v, _ := obj.Get(key)
				ok, err := deepCompare(v, expected, compare, true, false)
				if err != nil || ok {
					return ok, err
				}
			}
			if dontMatchWholeObject {
				return false, nil
			}
			return deepCompare(actual, expected, compare, false, false)
		}
		if expected.IsObject() {
			exp := expected.AsObject()
			for _, key := range exp.Keys() {
				expectedVal, _ := exp.Get(key)
				if expectedVal.IsCallable() || !expectedVal.IsDefined() {
					continue
				}
				matchAnyProperty := key == anyPropertyKey
				actualVal := actual
				if !matchAnyProperty {
					actualVal = getProperty(actual, key)
				}
				ok, err := deepCompare(actualVal, expectedVal, compare,
					matchAnyProperty, !matchAnyProperty)
				if err != nil {
					return false, err
				}
				if !ok {
					return false, nil
				}
			}
			return true, nil
		}
		return compare(actual, expected)
	case actual.IsCallable():
		return false, nil
	default:
		return compare(actual, expected)
	}
}

func getProperty(v values.Value, key string) values.Value {
	if !v.IsObject() {
		return values.Undefined
	}
	out, _ := v.AsObject().Get(key)
	return out
}

func argAt(args []values.Value, i int) values.Value {
	if i >= len(args) {
		return values.Undefined
	}
	return args[i]
}
