package scope

import (
	"github.com/rkurbatov/myangular/pkg/values"
)

// Event is the record shared by every listener across one emit or
// broadcast propagation.
type Event struct {
	Name             string
	TargetScope      *Scope
	CurrentScope     *Scope
	DefaultPrevented bool

	stopped bool
}

// PreventDefault marks the event; the engine attaches no behaviour to
// the mark beyond carrying it.
func (e *Event) PreventDefault() { e.DefaultPrevented = true }

// StopPropagation stops an upward (emit) propagation after the current
// scope. Downward broadcasts ignore it.
func (e *Event) StopPropagation() { e.stopped = true }

// EventListener receives the shared event record plus the emit
// arguments.
type EventListener func(event *Event, args ...values.Value)

// listenerSlot keeps a stable position in the listener list so removal
// can null in place; firing compacts nulled slots for its event name.
type listenerSlot struct {
	fn EventListener
}

// On registers a listener. The destructor nulls the slot rather than
// splicing, so a listener removing itself mid-dispatch never makes the
// dispatch skip its neighbour.
func (s *Scope) On(name string, listener EventListener) func() {
	slot := &listenerSlot{fn: listener}
	s.listeners[name] = append(s.listeners[name], slot)
	return func() {
		slot.fn = nil
	}
}

// Emit dispatches the event on this scope and then up the parent chain
// to the root, honouring StopPropagation.
func (s *Scope) Emit(name string, args ...values.Value) *Event {
	event := &Event{Name: name, TargetScope: s}
	for scope := s; scope != nil; scope = scope.parent {
		event.CurrentScope = scope
		scope.fireEvent(name, event, args)
		if event.stopped {
			break
		}
	}
	event.CurrentScope = nil
	return event
}

// Broadcast dispatches the event on this scope and every descendant,
// pre-order. It cannot be stopped.
func (s *Scope) Broadcast(name string, args ...values.Value) *Event {
	event := &Event{Name: name, TargetScope: s}
	s.everyScope(func(scope *Scope) bool {
		event.CurrentScope = scope
		scope.fireEvent(name, event, args)
		return true
	})
	event.CurrentScope = nil
	return event
}

func (s *Scope) fireEvent(name string, event *Event, args []values.Value) {
	i := 0
	for {
		slots := s.listeners[name]
		if i >= len(slots) {
			return
		}
		if slots[i].fn == nil {
			s.listeners[name] = append(slots[:i], slots[i+1:]...)
			continue
		}
		fn := slots[i].fn
		s.guard("$on("+name+")", func() error {
			fn(event, args...)
			return nil
		})
		i++
	}
}
