package filters

import (
	"github.com/rkurbatov/myangular/pkg/values"
)

// Fn is an instantiated filter: the piped value arrives as args[0], the
// colon-separated extras follow.
type Fn func(args []values.Value) (values.Value, error)

// Factory builds a filter instance; it runs once, on first lookup.
type Factory func() Fn

type entry struct {
	factory  Factory
	instance Fn
	built    bool
	stateful bool
}

// Registry is the name→filter mapping the compiler resolves filter
// expressions against. The array predicate `filter` is always present.
type Registry struct {
	entries map[string]*entry
}

// NewRegistry returns a registry with the built-in filters installed.
func NewRegistry() *Registry {
	r := &Registry{entries: map[string]*entry{}}
	registerBuiltins(r)
	return r
}

// Register installs a filter under name, replacing any previous one.
func (r *Registry) Register(name string, factory Factory) {
	r.entries[name] = &entry{factory: factory}
}

// RegisterStateful installs a filter whose output can change between two
// calls with equal inputs; such filters disable constant folding.
func (r *Registry) RegisterStateful(name string, factory Factory) {
	r.entries[name] = &entry{factory: factory, stateful: true}
}

// RegisterMap is the batch form of Register.
func (r *Registry) RegisterMap(factories map[string]Factory) {
	for name, factory := range factories {
		r.Register(name, factory)
	}
}

// Filter looks a filter up by name; ok is false when absent.
func (r *Registry) Filter(name string) (Fn, bool) {
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	if !e.built {
		e.instance = e.factory()
		e.built = true
	}
	return e.instance, true
}

// Stateful reports whether the named filter is marked stateful. Unknown
// names are not stateful.
func (r *Registry) Stateful(name string) bool {
	e, ok := r.entries[name]
	return ok && e.stateful
}
