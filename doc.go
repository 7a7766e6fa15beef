// Package sinema provides a single-consumer event-dispatch core for Go.
//
// Producers on any goroutine bind an event to a statically typed receiver
// and queue the resulting task on an EventProcessor. The processor executes
// tasks strictly one at a time, in arrival order, on one consumer goroutine,
// so state touched only from handlers needs no locking.
//
// # Quick Start
//
//	p := sinema.NewEventProcessor()
//	p.Start()
//
//	sinema.QueueEvent(p, Greeting{Text: "hello"}, sinema.ReceiverFunc[Greeting](
//		func(ctx context.Context, g Greeting) {
//			fmt.Println(g.Text)
//		}))
//
//	p.QueueQuit()
//	<-p.Done()
//
// # Key Concepts
//
// EventProcessor: owns an immediate and a deferred queue. QueueEvent feeds the
// immediate queue; DeferEvent feeds the deferred one, whose tasks only become
// eligible after DrainDeferred. Host loops that cannot dedicate a goroutine
// pump a processor with DequeueAndProcess or DequeueAndProcessUntilEmpty.
//
// Quit: shutdown is an ordinary queued event, serialized with the work queued
// before it.
//
// Timer: an OS timer (timerfd on Linux) or the portable timer service.
// StartTimer converts every expiry into a task on the owning processor, so
// timer handlers run on the consumer goroutine too.
//
// Dispatcher: maps a runtime Tag to a handler instantiated with the static
// payload type. Unknown tags are reported as *core.UnknownTagError.
//
// The actor package composes these into actors with Start, Stop and Quit
// lifecycles and a packet Demuxer.
package sinema
