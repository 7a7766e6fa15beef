package core

import (
	"context"
)

// Task is the unit of work (Closure).
//
// A task is type-erased: it usually wraps "invoke this receiver's handler
// with this event". It executes at most once, on the consumer goroutine of
// the processor whose queue held it.
type Task func(ctx context.Context)

// =============================================================================
// Receiver: statically typed event handler
// =============================================================================

// Receiver handles events of type E.
//
// The event type is a type parameter, so the handler invoked for an event is
// chosen at compile time from the static type of the event. A type that wants
// to receive several event types exposes one method per type and hands the
// method values to ReceiverFunc.
type Receiver[E any] interface {
	Process(ctx context.Context, ev E)
}

// ReceiverFunc adapts a plain function to Receiver.
type ReceiverFunc[E any] func(ctx context.Context, ev E)

// Process calls f(ctx, ev).
func (f ReceiverFunc[E]) Process(ctx context.Context, ev E) {
	f(ctx, ev)
}

// Bind captures the receiver and the event into a Task.
//
// The receiver is referenced, not owned; it must outlive the task. The event
// value is moved into the closure. Pointer events are shared with the
// producer, which must not mutate them after queuing.
func Bind[E any](ev E, r Receiver[E]) Task {
	return func(ctx context.Context) {
		r.Process(ctx, ev)
	}
}

// =============================================================================
// Context Helper
// =============================================================================
type processorKeyType struct{}

var processorKey processorKeyType

// GetCurrentProcessor returns the processor executing the current task, or
// nil when ctx does not come from a processor.
func GetCurrentProcessor(ctx context.Context) *EventProcessor {
	if v := ctx.Value(processorKey); v != nil {
		return v.(*EventProcessor)
	}
	return nil
}
