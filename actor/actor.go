// Package actor builds isolated units of sequential logic on top of
// core.EventProcessor: a processor plus statically typed mailboxes, so that
// every message sent to the actor, including the ones it sends itself, is
// handled on its single consumer goroutine.
package actor

import (
	"context"
	"sync/atomic"

	"github.com/jerbs/sinema-sub001/core"
)

// =============================================================================
// Mailbox
// =============================================================================

// Mailbox delivers events of type E to one receiver on one processor.
// The zero value is not usable.
type Mailbox[E any] struct {
	p *core.EventProcessor
	r core.Receiver[E]
}

// NewMailbox binds r to p.
func NewMailbox[E any](p *core.EventProcessor, r core.Receiver[E]) Mailbox[E] {
	return Mailbox[E]{p: p, r: r}
}

// NewMailboxFunc binds a handler function to p.
func NewMailboxFunc[E any](p *core.EventProcessor, f func(ctx context.Context, ev E)) Mailbox[E] {
	return NewMailbox[E](p, core.ReceiverFunc[E](f))
}

// Queue sends ev to the immediate queue. Safe from any goroutine.
func (m Mailbox[E]) Queue(ev E) {
	core.QueueEvent(m.p, ev, m.r)
}

// Defer sends ev to the deferred queue.
func (m Mailbox[E]) Defer(ev E) {
	core.DeferEvent(m.p, ev, m.r)
}

// StartTimer delivers ev on every expiry of t.
func (m Mailbox[E]) StartTimer(ev E, t *core.Timer) error {
	return core.StartTimer(m.p, ev, m.r, t)
}

// StopTimer disarms t.
func (m Mailbox[E]) StopTimer(t *core.Timer) error {
	return m.p.StopTimer(t)
}

// Processor returns the processor the mailbox delivers to.
func (m Mailbox[E]) Processor() *core.EventProcessor {
	return m.p
}

// =============================================================================
// Control events
// =============================================================================

// Start moves an actor to Running.
type Start struct{}

// Stop moves an actor to Stopped. The processor keeps consuming.
type Stop struct{}

// Quit stops the actor and terminates its processor.
type Quit = core.Quit

// State is the lifecycle state of an EventReceiver.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Hooks are invoked on the actor's consumer goroutine on state changes.
// Nil hooks are skipped.
type Hooks struct {
	OnStart func(ctx context.Context)
	OnStop  func(ctx context.Context)
	OnQuit  func(ctx context.Context)
}

// =============================================================================
// EventReceiver
// =============================================================================

// EventReceiver is the minimal actor: an EventProcessor with Start, Stop and
// Quit handlers and a three-state lifecycle. Start from Stopped restarts.
//
// The embedded processor's Start spawns the consumer goroutine; QueueStart
// sends the Start event.
type EventReceiver struct {
	*core.EventProcessor

	state atomic.Int32
	hooks Hooks

	start Mailbox[Start]
	stop  Mailbox[Stop]
	quit  Mailbox[Quit]
}

// NewEventReceiver creates an idle actor. cfg may be nil.
func NewEventReceiver(cfg *core.ProcessorConfig, hooks Hooks) *EventReceiver {
	a := &EventReceiver{
		EventProcessor: core.NewEventProcessorWithConfig(cfg),
		hooks:          hooks,
	}
	a.start = NewMailboxFunc(a.EventProcessor, a.handleStart)
	a.stop = NewMailboxFunc(a.EventProcessor, a.handleStop)
	a.quit = NewMailboxFunc(a.EventProcessor, a.handleQuit)
	return a
}

// State reports the lifecycle state. Safe from any goroutine.
func (a *EventReceiver) State() State {
	return State(a.state.Load())
}

// QueueStart sends Start to the actor itself.
func (a *EventReceiver) QueueStart() {
	a.start.Queue(Start{})
}

// QueueStop sends Stop to the actor itself.
func (a *EventReceiver) QueueStop() {
	a.stop.Queue(Stop{})
}

// QueueQuit sends Quit to the actor itself. Unlike the bare processor's
// QueueQuit, a running actor passes through its stop hook first.
func (a *EventReceiver) QueueQuit() {
	a.quit.Queue(Quit{})
}

// IsRunning reports whether the actor is in StateRunning.
func (a *EventReceiver) IsRunning() bool {
	return a.State() == StateRunning
}

func (a *EventReceiver) handleStart(ctx context.Context, _ Start) {
	if a.State() == StateRunning {
		return
	}
	a.state.Store(int32(StateRunning))
	a.Logger().Debug("actor started", core.F("actor", a.Name()))
	if a.hooks.OnStart != nil {
		a.hooks.OnStart(ctx)
	}
}

func (a *EventReceiver) handleStop(ctx context.Context, _ Stop) {
	if a.State() != StateRunning {
		return
	}
	a.state.Store(int32(StateStopped))
	a.Logger().Debug("actor stopped", core.F("actor", a.Name()))
	if a.hooks.OnStop != nil {
		a.hooks.OnStop(ctx)
	}
}

func (a *EventReceiver) handleQuit(ctx context.Context, q Quit) {
	a.handleStop(ctx, Stop{})
	a.state.Store(int32(StateStopped))
	if a.hooks.OnQuit != nil {
		a.hooks.OnQuit(ctx)
	}
	a.EventProcessor.Process(ctx, q)
}
