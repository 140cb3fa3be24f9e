package filters

import (
	"encoding/json"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rkurbatov/myangular/pkg/errors"
	"github.com/rkurbatov/myangular/pkg/values"
)

func registerBuiltins(r *Registry) {
	r.Register("filter", filterFilter)
	r.Register("lowercase", lowercaseFilter)
	r.Register("uppercase", uppercaseFilter)
	r.Register("limitTo", limitToFilter)
	r.Register("json", jsonFilter)
}

// lowercaseFilter folds a string to lower case; non-strings pass
// through untouched.
func lowercaseFilter() Fn {
	caser := cases.Lower(language.Und)
	return func(args []values.Value) (values.Value, error) {
		input := argAt(args, 0)
		if !input.IsString() {
			return input, nil
		}
		return values.NewString(caser.String(input.AsString())), nil
	}
}

func uppercaseFilter() Fn {
	caser := cases.Upper(language.Und)
	return func(args []values.Value) (values.Value, error) {
		input := argAt(args, 0)
		if !input.IsString() {
			return input, nil
		}
		return values.NewString(caser.String(input.AsString())), nil
	}
}

// limitToFilter slices the first (or, for a negative limit, last) n
// elements of an array or characters of a string.
func limitToFilter() Fn {
	return func(args []values.Value) (values.Value, error) {
		input := argAt(args, 0)
		limitArg := argAt(args, 1)
		if !limitArg.IsDefined() || limitArg.IsNaNNumber() {
			return input, nil
		}
		limit := int(limitArg.ToNumber())
		switch input.Type() {
		case values.TypeString:
			runes := []rune(input.AsString())
			return values.NewString(string(slice(runes, limit))), nil
		case values.TypeArray:
			elements := slice(input.AsArray().Elements(), limit)
			out := make([]values.Value, len(elements))
			copy(out, elements)
			return values.NewArray(out...), nil
		default:
			return input, nil
		}
	}
}

func slice[T any](in []T, limit int) []T {
	if limit >= 0 {
		if limit > len(in) {
			limit = len(in)
		}
		return in[:limit]
	}
	if -limit > len(in) {
		limit = -len(in)
	}
	return in[len(in)+limit:]
}

// jsonFilter renders any value as indented JSON.
func jsonFilter() Fn {
	return func(args []values.Value) (values.Value, error) {
		out, err := json.MarshalIndent(argAt(args, 0).Export(), "", "  ")
		if err != nil {
			return values.Undefined, errors.NewRuntime("cannot serialise value: %v", err)
		}
		return values.NewString(string(out)), nil
	}
}
