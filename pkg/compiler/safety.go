package compiler

import (
	"github.com/rkurbatov/myangular/pkg/errors"
	"github.com/rkurbatov/myangular/pkg/values"
)

// The safety gate is the single authority on what expressions may reach.
// The lexer and parser know nothing about these rules; compiled code
// funnels every member name and every touched object through here.

// disallowedMembers can never be read or written as member names.
var disallowedMembers = map[string]bool{
	"constructor":      true,
	"__proto__":        true,
	"__defineGetter__": true,
	"__defineSetter__": true,
	"__lookupGetter__": true,
	"__lookupSetter__": true,
}

// functionBuiltins may not be plucked off callables.
var functionBuiltins = map[string]bool{
	"call":  true,
	"apply": true,
	"bind":  true,
}

// checkSafeName rejects the disallowed member names.
func checkSafeName(name string) error {
	if disallowedMembers[name] {
		return errors.NewSafety("Attempting to access a disallowed field")
	}
	return nil
}

// checkSafeMember gates a member access: the name itself, plus the
// call/apply/bind rule for callable receivers.
func checkSafeMember(object values.Value, name string) error {
	if err := checkSafeName(name); err != nil {
		return err
	}
	if object.IsCallable() && functionBuiltins[name] {
		return errors.NewSafety("Referencing call, apply or bind in expressions is disallowed")
	}
	return nil
}

// checkSafeObject gates any object an expression reaches: receivers,
// call arguments and call results. The prohibitions are heuristics over
// the value graph, mirroring the shapes of the host objects they stand
// in for.
func checkSafeObject(v values.Value) error {
	if !v.IsObject() {
		return nil
	}
	obj := v.AsObject()

	// The global environment handle is self-referential: env.window == env.
	if w, ok := obj.Get("window"); ok && w.Is(v) {
		return errors.NewSafety("Referencing the global environment in expressions is disallowed")
	}

	// DOM-like nodes expose a children collection plus either nodeName or
	// the prop/find/attr accessor triple.
	if obj.Has("children") &&
		(obj.Has("nodeName") || (obj.Has("prop") && obj.Has("find") && obj.Has("attr"))) {
		return errors.NewSafety("Referencing DOM nodes in expressions is disallowed")
	}

	// A function constructor is its own constructor.
	if c, ok := obj.Get("constructor"); ok && c.Is(v) {
		return errors.NewSafety("Referencing the Function constructor in expressions is disallowed")
	}

	// The root object builtin carries the reflection surface.
	if obj.Has("create") && obj.Has("getPrototypeOf") && obj.Has("defineProperty") {
		return errors.NewSafety("Referencing the Object builtin in expressions is disallowed")
	}

	return nil
}
