package scope

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/rkurbatov/myangular/pkg/compiler"
	"github.com/rkurbatov/myangular/pkg/runtime"
	"github.com/rkurbatov/myangular/pkg/values"
)

const (
	phaseDigest = "$digest"
	phaseApply  = "$apply"

	// defaultTTL bounds the digest fixed-point iteration.
	defaultTTL = 10
)

// Scope is one node of the reactive context tree. It hosts attribute
// state, watcher registrations and event listeners; the root
// additionally owns the digest phase, the short-circuit marker, the
// cooperative queues and the services every scope in the tree shares.
type Scope struct {
	ID string

	root        *Scope
	parent      *Scope // hierarchy parent, nil on the root
	inheritFrom *Scope // attribute read-through parent, nil when isolated
	children    []*Scope

	attrs     map[string]values.Value
	watchers  []*watcher
	listeners map[string][]*listenerSlot

	// Root-only state.
	phase            string
	lastDirtyWatch   *watcher
	asyncQueue       []asyncTask
	applyAsyncQueue  []func()
	applyAsyncCancel func()
	postDigestQueue  []func()
	ttl              int
	parse            *compiler.Compiler
	sched            runtime.Scheduler
	sink             ErrorSink
}

type asyncTask struct {
	scope *Scope
	run   func(*Scope) error
}

// NewRoot builds the indestructible root of a scope tree. The compiler,
// scheduler and sink are shared by every scope created under it.
func NewRoot(parse *compiler.Compiler, sched runtime.Scheduler, sink ErrorSink) *Scope {
	if sched == nil {
		sched = runtime.NewQueueScheduler()
	}
	if sink == nil {
		sink = NewStderrSink()
	}
	root := &Scope{
		ID:        uuid.NewString(),
		attrs:     map[string]values.Value{},
		listeners: map[string][]*listenerSlot{},
		ttl:       defaultTTL,
		parse:     parse,
		sched:     sched,
		sink:      sink,
	}
	root.root = root
	return root
}

// SetTTL overrides the digest iteration bound for the whole tree.
func (s *Scope) SetTTL(ttl int) {
	if ttl > 0 {
		s.root.ttl = ttl
	}
}

func (s *Scope) Root() *Scope   { return s.root }
func (s *Scope) Parent() *Scope { return s.parent }

// NewChild creates a child scope. Non-isolated children resolve
// attribute reads through this scope; isolated children do not, but
// still share the root and its queues.
func (s *Scope) NewChild(isolated bool) *Scope {
	return s.NewChildOf(isolated, s)
}

// NewChildOf attaches the new scope under an alternative hierarchy
// parent while inheriting attribute reads from s.
func (s *Scope) NewChildOf(isolated bool, parent *Scope) *Scope {
	if parent == nil {
		parent = s
	}
	child := &Scope{
		ID:        uuid.NewString(),
		root:      s.root,
		parent:    parent,
		attrs:     map[string]values.Value{},
		listeners: map[string][]*listenerSlot{},
	}
	if !isolated {
		child.inheritFrom = s
	}
	parent.children = append(parent.children, child)
	return child
}

// Destroy detaches the scope from the tree after broadcasting $destroy
// through its subtree, and drops its watchers and listeners. The root
// cannot be destroyed.
func (s *Scope) Destroy() {
	if s.parent == nil {
		return
	}
	s.Broadcast("$destroy")
	siblings := s.parent.children
	for i, sibling := range siblings {
		if sibling == s {
			s.parent.children = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	s.parent = nil
	s.watchers = nil
	s.listeners = map[string][]*listenerSlot{}
}

// everyScope walks the subtree pre-order until fn returns false.
func (s *Scope) everyScope(fn func(*Scope) bool) bool {
	if !fn(s) {
		return false
	}
	for _, child := range s.children {
		if !child.everyScope(fn) {
			return false
		}
	}
	return true
}

// --- Attribute store: the values.Context implementation ---

// Lookup resolves an attribute through the inheritance chain.
func (s *Scope) Lookup(name string) (values.Value, bool) {
	for cur := s; cur != nil; cur = cur.inheritFrom {
		if v, ok := cur.attrs[name]; ok {
			return v, true
		}
	}
	return values.Undefined, false
}

// Owner returns the nearest scope in the inheritance chain that defines
// name, or nil when none does.
func (s *Scope) Owner(name string) values.Context {
	for cur := s; cur != nil; cur = cur.inheritFrom {
		if _, ok := cur.attrs[name]; ok {
			return cur
		}
	}
	return nil
}

// Define sets an own attribute on this scope, shadowing any inherited
// value of the same name.
func (s *Scope) Define(name string, v values.Value) {
	s.attrs[name] = v
}

// Get reads an attribute through the inheritance chain, Undefined when
// absent anywhere.
func (s *Scope) Get(name string) values.Value {
	v, _ := s.Lookup(name)
	return v
}

// GetOwn reads an attribute defined on this scope itself.
func (s *Scope) GetOwn(name string) (values.Value, bool) {
	v, ok := s.attrs[name]
	return v, ok
}

// Set is Define under the name host code expects.
func (s *Scope) Set(name string, v values.Value) {
	s.attrs[name] = v
}

func (s *Scope) Delete(name string) {
	delete(s.attrs, name)
}

// OwnNames lists this scope's own attribute names, sorted.
func (s *Scope) OwnNames() []string {
	names := make([]string, 0, len(s.attrs))
	for name := range s.attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// --- Evaluation ---

// Eval compiles and evaluates an expression against this scope with an
// optional locals overlay consulted before the scope chain.
func (s *Scope) Eval(expr string, locals *values.Object) (values.Value, error) {
	compiled, err := s.root.parse.Compile(expr)
	if err != nil {
		return values.Undefined, err
	}
	return compiled.Eval(s, locals)
}

// EvalFunc runs fn against this scope. It exists so host callbacks can
// be used everywhere an expression string can.
func (s *Scope) EvalFunc(fn func(*Scope) values.Value) values.Value {
	return fn(s)
}

// Apply evaluates the expression and then digests the whole tree from
// the root, so external state changes become visible everywhere.
func (s *Scope) Apply(expr string) (v values.Value, err error) {
	root := s.root
	if root.phase != "" {
		return values.Undefined, fmt.Errorf("%s already in progress", root.phase)
	}
	root.phase = phaseApply
	defer func() {
		root.phase = ""
		if digestErr := root.Digest(); err == nil {
			err = digestErr
		}
	}()
	v, err = s.Eval(expr, nil)
	return v, err
}

// ApplyFunc is Apply for host callbacks. The digest runs even when fn
// panics, and the panic propagates afterwards.
func (s *Scope) ApplyFunc(fn func(*Scope)) (err error) {
	root := s.root
	if root.phase != "" {
		return fmt.Errorf("%s already in progress", root.phase)
	}
	root.phase = phaseApply
	defer func() {
		root.phase = ""
		if digestErr := root.Digest(); err == nil {
			err = digestErr
		}
	}()
	if fn != nil {
		fn(s)
	}
	return nil
}

// EvalAsync queues the expression for evaluation inside the current
// digest, or schedules a digest when none is running.
func (s *Scope) EvalAsync(expr string) error {
	compiled, err := s.root.parse.Compile(expr)
	if err != nil {
		return err
	}
	s.evalAsyncTask(func(sc *Scope) error {
		_, evalErr := compiled.Eval(sc, nil)
		return evalErr
	})
	return nil
}

// EvalAsyncFunc is EvalAsync for host callbacks.
func (s *Scope) EvalAsyncFunc(fn func(*Scope)) {
	s.evalAsyncTask(func(sc *Scope) error {
		fn(sc)
		return nil
	})
}

func (s *Scope) evalAsyncTask(run func(*Scope) error) {
	root := s.root
	if root.phase == "" && len(root.asyncQueue) == 0 {
		root.sched.Defer(func() {
			if len(root.asyncQueue) > 0 {
				if err := root.Digest(); err != nil {
					root.sink.OnError(err, "$evalAsync")
				}
			}
		})
	}
	root.asyncQueue = append(root.asyncQueue, asyncTask{scope: s, run: run})
}

// ApplyAsync coalesces expression applications: tasks accumulate until
// the scheduled flush fires, or until a digest preempts the flush and
// drains them up front. Tasks never run in the digest that queued them.
func (s *Scope) ApplyAsync(expr string) error {
	compiled, err := s.root.parse.Compile(expr)
	if err != nil {
		return err
	}
	self := s
	s.applyAsyncTask(func() {
		if _, evalErr := compiled.Eval(self, nil); evalErr != nil {
			s.root.sink.OnError(evalErr, "$applyAsync")
		}
	})
	return nil
}

// ApplyAsyncFunc is ApplyAsync for host callbacks.
func (s *Scope) ApplyAsyncFunc(fn func(*Scope)) {
	self := s
	s.applyAsyncTask(func() { fn(self) })
}

func (s *Scope) applyAsyncTask(run func()) {
	root := s.root
	root.applyAsyncQueue = append(root.applyAsyncQueue, run)
	if root.applyAsyncCancel == nil {
		root.applyAsyncCancel = root.sched.Defer(func() {
			if err := root.ApplyFunc(func(*Scope) { root.flushApplyAsync() }); err != nil {
				root.sink.OnError(err, "$applyAsync")
			}
		})
	}
}

func (s *Scope) flushApplyAsync() {
	root := s.root
	for len(root.applyAsyncQueue) > 0 {
		task := root.applyAsyncQueue[0]
		root.applyAsyncQueue = root.applyAsyncQueue[1:]
		root.guard("$applyAsync", func() error {
			task()
			return nil
		})
	}
	root.applyAsyncCancel = nil
}

// PostDigest queues fn to run after the next digest settles. Nothing is
// scheduled: the queue drains only when a digest happens to run.
func (s *Scope) PostDigest(fn func()) {
	s.root.postDigestQueue = append(s.root.postDigestQueue, fn)
}

// --- Digest ---

// Digest runs the dirty-check fixed point over this scope's subtree.
// Async tasks queued during the digest run inside it; the iteration is
// bounded by the TTL.
func (s *Scope) Digest() error {
	root := s.root
	if root.phase != "" {
		return fmt.Errorf("%s already in progress", root.phase)
	}
	ttl := root.ttl
	root.lastDirtyWatch = nil
	root.phase = phaseDigest

	if root.applyAsyncCancel != nil {
		root.applyAsyncCancel()
		root.flushApplyAsync()
	}

	for {
		for len(root.asyncQueue) > 0 {
			task := root.asyncQueue[0]
			root.asyncQueue = root.asyncQueue[1:]
			root.guard(phaseDigest, func() error {
				return task.run(task.scope)
			})
		}
		dirty := s.digestOnce()
		ttl--
		if (dirty || len(root.asyncQueue) > 0) && ttl == 0 {
			root.phase = ""
			return fmt.Errorf("Maximum $watch TTL exceeded")
		}
		if !dirty && len(root.asyncQueue) == 0 {
			break
		}
	}
	root.phase = ""

	for len(root.postDigestQueue) > 0 {
		task := root.postDigestQueue[0]
		root.postDigestQueue = root.postDigestQueue[1:]
		root.guard("$$postDigest", func() error {
			task()
			return nil
		})
	}
	return nil
}

// digestOnce walks the subtree pre-order, re-evaluating each scope's
// watchers newest-last. Returns whether anything changed.
func (s *Scope) digestOnce() bool {
	root := s.root
	dirty := false
	continueLoop := true
	s.everyScope(func(scope *Scope) bool {
		for i := len(scope.watchers) - 1; i >= 0; i-- {
			if i >= len(scope.watchers) {
				// A listener removed watchers ahead of us.
				continue
			}
			w := scope.watchers[i]
			root.guard(phaseDigest, func() error {
				newValue, err := w.watchFn(scope)
				if err != nil {
					return err
				}
				oldValue := w.last
				if !areEqual(newValue, oldValue, w.valueEq) {
					root.lastDirtyWatch = w
					if w.valueEq {
						w.last = newValue.Copy()
					} else {
						w.last = newValue
					}
					if w.listenerFn != nil {
						reported := oldValue
						if oldValue.Is(initWatchValue) {
							reported = newValue
						}
						w.listenerFn(newValue, reported, scope)
					}
					dirty = true
				} else if w == root.lastDirtyWatch {
					// Nothing past the last dirty watcher can have
					// changed since the previous round.
					continueLoop = false
				}
				return nil
			})
			if !continueLoop {
				return false
			}
		}
		return true
	})
	return dirty
}

// guard runs fn, routing returned errors and panics to the sink so the
// digest machinery keeps making progress.
func (s *Scope) guard(context string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				s.root.sink.OnError(err, context)
				return
			}
			s.root.sink.OnError(fmt.Errorf("panic: %v", r), context)
		}
	}()
	if err := fn(); err != nil {
		s.root.sink.OnError(err, context)
	}
}

func areEqual(newValue, oldValue values.Value, valueEq bool) bool {
	if valueEq {
		return newValue.DeepEquals(oldValue)
	}
	return newValue.Is(oldValue)
}
