package scope

import (
	"github.com/rkurbatov/myangular/pkg/values"
)

// WatchCollection watches an expression for shallow collection changes:
// elements added, removed or replaced in an array, keys added, changed
// or removed in a mapping. Non-collection values fall back to reference
// equality. The listener's old value is a shallow copy of the collection
// as it looked at the previous firing (the new value again on the first
// firing).
func (s *Scope) WatchCollection(expr string, listenerFn ListenerFn) (func(), error) {
	compiled, err := s.root.parse.Compile(expr)
	if err != nil {
		return nil, err
	}
	return s.watchCollection(evalWatch(compiled), listenerFn), nil
}

// WatchCollectionFunc is WatchCollection for host watch functions.
func (s *Scope) WatchCollectionFunc(watchFn WatchFn, listenerFn ListenerFn) func() {
	return s.watchCollection(func(sc *Scope) (values.Value, error) {
		return watchFn(sc), nil
	}, listenerFn)
}

func (s *Scope) watchCollection(watchFn internalWatchFn, listenerFn ListenerFn) func() {
	var newValue values.Value
	oldValue := values.Undefined // internal tracker, mutated in place
	veryOldValue := values.Undefined
	oldLength := 0
	changeCount := 0
	firstRun := true

	// The watch value is a change counter: any shallow difference bumps
	// it, which is what makes the digest consider the watcher dirty.
	internalWatch := func(sc *Scope) (values.Value, error) {
		value, err := watchFn(sc)
		if err != nil {
			return values.Undefined, err
		}
		newValue = value

		switch {
		case newValue.IsArray():
			if !oldValue.IsArray() {
				changeCount++
				oldValue = values.NewArray()
			}
			newArr, oldArr := newValue.AsArray(), oldValue.AsArray()
			if newArr.Len() != oldArr.Len() {
				changeCount++
				oldArr.SetLength(newArr.Len())
			}
			for i := 0; i < newArr.Len(); i++ {
				if !newArr.Get(i).Is(oldArr.Get(i)) {
					changeCount++
					oldArr.Set(i, newArr.Get(i))
				}
			}

		case newValue.IsObject():
			if !oldValue.IsObject() {
				changeCount++
				oldValue = values.NewObject()
				oldLength = 0
			}
			newObj, oldObj := newValue.AsObject(), oldValue.AsObject()
			newLength := 0
			for _, key := range newObj.Keys() {
				newLength++
				nv, _ := newObj.Get(key)
				if ov, ok := oldObj.Get(key); ok {
					if !nv.Is(ov) {
						changeCount++
						oldObj.Set(key, nv)
					}
				} else {
					changeCount++
					oldLength++
					oldObj.Set(key, nv)
				}
			}
			if oldLength > newLength {
				// Something must have been removed.
				changeCount++
				for _, key := range append([]string{}, oldObj.Keys()...) {
					if !newObj.Has(key) {
						oldLength--
						oldObj.Delete(key)
					}
				}
			}

		default:
			if !newValue.Is(oldValue) {
				changeCount++
			}
			oldValue = newValue
		}

		return values.NumberValue(float64(changeCount)), nil
	}

	internalListener := func(_, _ values.Value, sc *Scope) {
		if firstRun {
			firstRun = false
			listenerFn(newValue, newValue, sc)
		} else {
			listenerFn(newValue, veryOldValue, sc)
		}
		veryOldValue = newValue.ShallowCopy()
	}

	return s.addWatcher(internalWatch, internalListener, false)
}
