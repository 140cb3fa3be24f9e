package scope

import (
	"github.com/rkurbatov/myangular/pkg/values"
)

// GroupListenerFn observes a group of watched expressions with parallel
// new/old value sequences.
type GroupListenerFn func(newValues, oldValues []values.Value, s *Scope)

// WatchGroup watches an ordered expression list and fires the listener
// at most once per digest with parallel value arrays. The first firing
// passes the same sequence as both arguments; later firings pass
// distinct sequences. An empty group still fires once, through the
// async queue, unless deregistered first.
func (s *Scope) WatchGroup(exprs []string, listenerFn GroupListenerFn) (func(), error) {
	newValues := make([]values.Value, len(exprs))
	oldValues := make([]values.Value, len(exprs))
	changeReactionScheduled := false
	firstRun := true

	if len(exprs) == 0 {
		shouldCall := true
		s.EvalAsyncFunc(func(sc *Scope) {
			if shouldCall {
				listenerFn(newValues, newValues, sc)
			}
		})
		return func() { shouldCall = false }, nil
	}

	watchGroupListener := func(sc *Scope) {
		if firstRun {
			firstRun = false
			listenerFn(newValues, newValues, sc)
		} else {
			listenerFn(newValues, oldValues, sc)
		}
		changeReactionScheduled = false
	}

	destroyFns := make([]func(), 0, len(exprs))
	destroyAll := func() {
		for _, destroy := range destroyFns {
			destroy()
		}
	}
	for i, expr := range exprs {
		i := i
		destroy, err := s.Watch(expr, func(newValue, oldValue values.Value, sc *Scope) {
			newValues[i] = newValue
			oldValues[i] = oldValue
			if !changeReactionScheduled {
				changeReactionScheduled = true
				sc.EvalAsyncFunc(watchGroupListener)
			}
		}, false)
		if err != nil {
			destroyAll()
			return nil, err
		}
		destroyFns = append(destroyFns, destroy)
	}
	return destroyAll, nil
}
