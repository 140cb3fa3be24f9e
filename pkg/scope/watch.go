package scope

import (
	"github.com/rkurbatov/myangular/pkg/compiler"
	"github.com/rkurbatov/myangular/pkg/values"
)

// WatchFn is a host-provided watch expression.
type WatchFn func(s *Scope) values.Value

// ListenerFn observes a watched value changing. On the first firing the
// old value is the new value.
type ListenerFn func(newValue, oldValue values.Value, s *Scope)

// internalWatchFn is what the digest actually evaluates; compiled
// expressions surface their faults through the error.
type internalWatchFn func(s *Scope) (values.Value, error)

// initWatchValue is the sentinel a fresh watcher holds as its last seen
// value. It is a dedicated callable, distinct from every legal
// expression result, so the first evaluation always reads as a change.
var initWatchValue = values.NewFunction("initWatchVal", func(values.Value, []values.Value) (values.Value, error) {
	return values.Undefined, nil
})

type watcher struct {
	watchFn    internalWatchFn
	listenerFn ListenerFn
	valueEq    bool
	last       values.Value
}

// Watch registers a watcher for an expression. Compilation failures
// surface synchronously. The returned destructor removes the watcher;
// calling it more than once is harmless.
//
// Compiled expressions can delegate their own registration strategy:
// constants self-remove after the first firing, one-time expressions
// deregister once their value settles defined, and expressions with
// tracked inputs short-circuit re-evaluation.
func (s *Scope) Watch(expr string, listenerFn ListenerFn, valueEq bool) (func(), error) {
	compiled, err := s.root.parse.Compile(expr)
	if err != nil {
		return nil, err
	}
	watchFn := evalWatch(compiled)
	if len(compiled.Inputs) > 0 {
		// Literal collections rebuild on every evaluation; caching on
		// unchanged inputs is what lets them settle under reference
		// comparison.
		watchFn = inputsWatchFn(compiled)
	}
	switch {
	case compiled.Constant:
		return s.constantWatch(compiled, listenerFn, valueEq), nil
	case compiled.OneTime && compiled.Literal:
		return s.oneTimeWatch(watchFn, listenerFn, valueEq, allDefined), nil
	case compiled.OneTime:
		return s.oneTimeWatch(watchFn, listenerFn, valueEq, values.Value.IsDefined), nil
	default:
		return s.addWatcher(watchFn, listenerFn, valueEq), nil
	}
}

// WatchFunc registers a host-provided watch function.
func (s *Scope) WatchFunc(watchFn WatchFn, listenerFn ListenerFn, valueEq bool) func() {
	return s.addWatcher(func(sc *Scope) (values.Value, error) {
		return watchFn(sc), nil
	}, listenerFn, valueEq)
}

// MustWatch is Watch for expressions known to be valid; it panics on
// compile errors.
func (s *Scope) MustWatch(expr string, listenerFn ListenerFn, valueEq bool) func() {
	destroy, err := s.Watch(expr, listenerFn, valueEq)
	if err != nil {
		panic(err)
	}
	return destroy
}

func evalWatch(compiled *compiler.Compiled) internalWatchFn {
	return func(sc *Scope) (values.Value, error) {
		return compiled.Eval(sc, nil)
	}
}

// addWatcher prepends the record. The digest iterates watchers in
// reverse, so a watcher added during a digest pass is not reached by
// that pass, and removing one never causes another to be skipped.
func (s *Scope) addWatcher(watchFn internalWatchFn, listenerFn ListenerFn, valueEq bool) func() {
	w := &watcher{
		watchFn:    watchFn,
		listenerFn: listenerFn,
		valueEq:    valueEq,
		last:       initWatchValue,
	}
	s.watchers = append([]*watcher{w}, s.watchers...)
	s.root.lastDirtyWatch = nil
	return func() {
		for i, cand := range s.watchers {
			if cand == w {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				// Defeat the short-circuit: indices moved under it.
				s.root.lastDirtyWatch = nil
				break
			}
		}
	}
}

// constantWatch fires the listener once with the constant value, then
// removes itself.
func (s *Scope) constantWatch(compiled *compiler.Compiled, listenerFn ListenerFn, valueEq bool) func() {
	var unwatch func()
	unwatch = s.addWatcher(evalWatch(compiled), func(newValue, oldValue values.Value, sc *Scope) {
		if listenerFn != nil {
			listenerFn(newValue, oldValue, sc)
		}
		unwatch()
	}, valueEq)
	return unwatch
}

// oneTimeWatch keeps firing until the value settles: once the latest
// value satisfies settled at listener time, a post-digest check removes
// the watcher if it still does. The double check is deliberate; a value
// that turns undefined again before the digest ends keeps the watcher
// alive for late arrivals.
func (s *Scope) oneTimeWatch(watchFn internalWatchFn, listenerFn ListenerFn, valueEq bool, settled func(values.Value) bool) func() {
	var unwatch func()
	var lastValue values.Value
	unwatch = s.addWatcher(watchFn, func(newValue, oldValue values.Value, sc *Scope) {
		lastValue = newValue
		if listenerFn != nil {
			listenerFn(newValue, oldValue, sc)
		}
		if settled(newValue) {
			sc.PostDigest(func() {
				if settled(lastValue) {
					unwatch()
				}
			})
		}
	}, valueEq)
	return unwatch
}

// allDefined is the literal one-time settling rule: no element or
// property of the collection may be undefined.
func allDefined(v values.Value) bool {
	switch v.Type() {
	case values.TypeArray:
		for _, el := range v.AsArray().Elements() {
			if !el.IsDefined() {
				return false
			}
		}
		return true
	case values.TypeObject:
		obj := v.AsObject()
		for _, key := range obj.Keys() {
			if el, _ := obj.Get(key); !el.IsDefined() {
				return false
			}
		}
		return true
	default:
		return v.IsDefined()
	}
}

// inputsWatchFn re-evaluates the full expression only when one of its
// tracked inputs changed since the previous round. NaN-to-NaN input
// transitions count as unchanged.
func inputsWatchFn(compiled *compiler.Compiled) internalWatchFn {
	oldInputs := make([]values.Value, len(compiled.Inputs))
	for i := range oldInputs {
		oldInputs[i] = initWatchValue
	}
	var lastResult values.Value
	return func(sc *Scope) (values.Value, error) {
		changed := false
		for i, input := range compiled.Inputs {
			newInput, err := input(sc, nil)
			if err != nil {
				return values.Undefined, err
			}
			if !newInput.Is(oldInputs[i]) {
				changed = true
				oldInputs[i] = newInput
			}
		}
		if changed {
			result, err := compiled.Eval(sc, nil)
			if err != nil {
				return values.Undefined, err
			}
			lastResult = result
		}
		return lastResult, nil
	}
}
