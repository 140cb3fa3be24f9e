package driver

import (
	"github.com/rkurbatov/myangular/pkg/compiler"
	"github.com/rkurbatov/myangular/pkg/filters"
	"github.com/rkurbatov/myangular/pkg/runtime"
	"github.com/rkurbatov/myangular/pkg/scope"
	"github.com/rkurbatov/myangular/pkg/values"
)

// Session is a persistent binding-engine instance: one filter registry,
// one caching compiler, one scheduler and one scope tree. State set in
// one evaluation is visible to subsequent ones.
type Session struct {
	registry *filters.Registry
	compiler *compiler.Compiler
	sched    runtime.Scheduler
	sink     scope.ErrorSink
	root     *scope.Scope
}

// Option tweaks a Session under construction.
type Option func(*Session)

// WithScheduler replaces the default queue scheduler.
func WithScheduler(sched runtime.Scheduler) Option {
	return func(s *Session) { s.sched = sched }
}

// WithSink replaces the default stderr error sink.
func WithSink(sink scope.ErrorSink) Option {
	return func(s *Session) { s.sink = sink }
}

// New builds a session with the built-in filters installed and a fresh
// root scope.
func New(opts ...Option) *Session {
	s := &Session{
		registry: filters.NewRegistry(),
		sched:    runtime.NewQueueScheduler(),
		sink:     scope.NewStderrSink(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.compiler = compiler.New(s.registry)
	s.root = scope.NewRoot(s.compiler, s.sched, s.sink)
	return s
}

// Root returns the tree root; children hang off it via NewChild.
func (s *Session) Root() *scope.Scope { return s.root }

// Filters returns the registry; hosts install their filters here before
// compiling expressions that use them.
func (s *Session) Filters() *filters.Registry { return s.registry }

// Scheduler returns the deferred-task primitive backing EvalAsync and
// ApplyAsync. Hosts drive it (or drive their own) to let deferred
// digests run.
func (s *Session) Scheduler() runtime.Scheduler { return s.sched }

// Parse compiles an expression using the session's cache and registry.
func (s *Session) Parse(expr string) (*compiler.Compiled, error) {
	return s.compiler.Compile(expr)
}

// Eval is the one-shot convenience: compile and evaluate against the
// root scope.
func (s *Session) Eval(expr string) (values.Value, error) {
	return s.root.Eval(expr, nil)
}
