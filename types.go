package sinema

import "github.com/jerbs/sinema-sub001/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the sinema package for most use cases.

// Task is the unit of work (Closure)
type Task = core.Task

// EventProcessor runs tasks one at a time on a single consumer goroutine
type EventProcessor = core.EventProcessor

// ProcessorConfig configures an EventProcessor
type ProcessorConfig = core.ProcessorConfig

// Timer bridges timer expiries into an EventProcessor
type Timer = core.Timer

// Quit is the built-in control event that terminates a processor
type Quit = core.Quit

// Tag is the runtime message tag used by Dispatcher
type Tag = core.Tag

// Receiver handles events of type E
type Receiver[E any] = core.Receiver[E]

// ReceiverFunc adapts a function to Receiver
type ReceiverFunc[E any] = core.ReceiverFunc[E]

// BlockingQueue is the thread-safe FIFO behind every processor
type BlockingQueue[T any] = core.BlockingQueue[T]

// Dispatcher maps runtime tags to typed handlers
type Dispatcher[S any] = core.Dispatcher[S]

// Logger is the structured logging interface
type Logger = core.Logger

// Metrics collects processor metrics
type Metrics = core.Metrics

// NewEventProcessor creates a processor with the default configuration.
func NewEventProcessor() *EventProcessor {
	return core.NewEventProcessor()
}

// NewEventProcessorWithConfig creates a processor from cfg.
func NewEventProcessorWithConfig(cfg *ProcessorConfig) *EventProcessor {
	return core.NewEventProcessorWithConfig(cfg)
}

// NewTimer creates an OS-backed timer.
func NewTimer() (*Timer, error) {
	return core.NewTimer()
}

// NewPortableTimer creates a timer on the portable timer service.
func NewPortableTimer() (*Timer, error) {
	return core.NewPortableTimer()
}

// NewBlockingQueue creates an empty queue.
func NewBlockingQueue[T any]() *BlockingQueue[T] {
	return core.NewBlockingQueue[T]()
}

// QueueEvent queues r.Process(ev) on p's immediate queue.
func QueueEvent[E any](p *EventProcessor, ev E, r Receiver[E]) {
	core.QueueEvent(p, ev, r)
}

// DeferEvent queues r.Process(ev) on p's deferred queue.
func DeferEvent[E any](p *EventProcessor, ev E, r Receiver[E]) {
	core.DeferEvent(p, ev, r)
}

// StartTimer arms t to deliver r.Process(ev) to p on every expiry.
func StartTimer[E any](p *EventProcessor, ev E, r Receiver[E], t *Timer) error {
	return core.StartTimer(p, ev, r, t)
}

// GetCurrentProcessor retrieves the current EventProcessor from context
var GetCurrentProcessor = core.GetCurrentProcessor

// NewDefaultLogger creates the default zerolog-backed logger
var NewDefaultLogger = core.NewDefaultLogger
