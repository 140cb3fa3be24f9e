package scope

import (
	"fmt"
	"io"
	"os"

	"github.com/rkurbatov/myangular/pkg/errors"
)

// ErrorSink receives the exceptions the digest machinery swallows:
// watcher and listener faults, async task failures, event listener
// panics. Swallowing keeps the digest making progress; the sink keeps
// the faults observable.
type ErrorSink interface {
	OnError(err error, context string)
}

// WriterSink renders swallowed errors to a writer, one report per error.
type WriterSink struct {
	W io.Writer
}

func NewStderrSink() *WriterSink {
	return &WriterSink{W: os.Stderr}
}

func (s *WriterSink) OnError(err error, context string) {
	fmt.Fprintf(s.W, "[%s] ", context)
	errors.Display(s.W, err)
}

// CollectSink accumulates errors in memory. Meant for tests and for
// hosts that surface faults through their own channels.
type CollectSink struct {
	Entries []SinkEntry
}

type SinkEntry struct {
	Err     error
	Context string
}

func (s *CollectSink) OnError(err error, context string) {
	s.Entries = append(s.Entries, SinkEntry{Err: err, Context: context})
}
