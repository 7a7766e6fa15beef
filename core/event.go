package core

import "context"

// QueueEvent binds r.Process(ev) into a task and pushes it onto p's immediate
// queue. Safe from any goroutine.
//
// The handler is selected by the static type E, so two event types queued to
// the same processor resolve to two different handlers without any runtime
// type inspection.
func QueueEvent[E any](p *EventProcessor, ev E, r Receiver[E]) {
	p.immediate.Push(newTaskItem(Bind(ev, r), eventName[E]()))
}

// DeferEvent is QueueEvent onto the deferred queue. The task runs only after
// a later DrainDeferred moves it to the immediate queue.
func DeferEvent[E any](p *EventProcessor, ev E, r Receiver[E]) {
	p.deferred.Push(newTaskItem(Bind(ev, r), eventName[E]()))
}

// StartTimer arms t so that every expiry pushes r.Process(ev) onto p's
// immediate queue. The handler therefore always runs on p's consumer, never
// on the timer service goroutine; the expiry notification itself only
// enqueues.
//
// Arming an armed timer replaces its schedule and its bound event.
func StartTimer[E any](p *EventProcessor, ev E, r Receiver[E], t *Timer) error {
	task := Bind(ev, r)
	name := eventName[E]()
	err := t.start(func(overrun int) {
		p.metrics.RecordTimerExpiry(p.name, overrun)
		p.immediate.Push(newTaskItem(task, name))
	})
	if err != nil {
		p.logger.Warn("timer arm failed",
			F("processor", p.name),
			F("timer", t.ID()),
			F("event", name),
			F("error", err))
		return err
	}
	return nil
}

// =============================================================================
// Quit: built-in control event
// =============================================================================

// Quit asks a processor to terminate. Because it travels through the queue
// like any other event, shutdown is serialized with the work queued before it
// and nothing queued after it runs.
type Quit struct{}

// Process handles Quit by terminating the processor.
func (p *EventProcessor) Process(ctx context.Context, _ Quit) {
	p.Terminate()
}

// QueueQuit queues a Quit event addressed to p itself.
func (p *EventProcessor) QueueQuit() {
	QueueEvent[Quit](p, Quit{}, p)
}

var _ Receiver[Quit] = (*EventProcessor)(nil)
