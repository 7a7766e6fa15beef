package core

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
)

// timerBackend is the expiry source behind a Timer. Backends deliver expiries
// by calling the fire function they were created with, from a goroutine of
// their own; they must not hold internal locks while doing so. Every fire
// carries the generation passed to the arm call that scheduled it.
type timerBackend interface {
	arm(s timerSchedule, gen uint64) error
	disarm() error
	remaining() (time.Duration, error)
	now() (time.Time, error)
	close() error
}

type timerSchedule struct {
	absolute bool
	at       time.Time
	after    time.Duration
	interval time.Duration
}

// Timer bridges a timer facility into the EventProcessor model.
//
// Lifecycle: created (NewTimer acquires the backend resource) -> configured
// (Absolute / Relative / Periodic, pure, no effect on an armed timer) ->
// armed (StartTimer) -> fires zero or more times -> disarmed
// (EventProcessor.StopTimer) -> closed (Close releases the resource).
//
// Expiries are observed on a timer service goroutine. The only thing done
// there is pushing the bound task onto the owning processor's queue.
type Timer struct {
	id      string
	backend timerBackend

	mu         sync.Mutex
	sched      timerSchedule
	configured bool
	armed      bool
	closed     bool
	oneShot    bool
	notify     func(overrun int) // set only while armed
	gen        uint64            // bumped by every start and stop

	overrun atomic.Int64
}

// NewTimer creates a timer backed by the operating system: a timerfd on
// Linux, the portable timer service elsewhere. Failing to acquire the OS
// resource is returned as an error.
func NewTimer() (*Timer, error) {
	t := &Timer{id: xid.New().String()}
	b, err := newOSTimerBackend(t.expire)
	if err != nil {
		return nil, fmt.Errorf("timer: create: %w", err)
	}
	t.backend = b
	return t, nil
}

// NewPortableTimer creates a timer served by the process-wide portable timer
// service (one goroutine, deadline heap), on every platform.
func NewPortableTimer() (*Timer, error) {
	t := &Timer{id: xid.New().String()}
	t.backend = newHeapTimerBackend(t.expire)
	return t, nil
}

// ID returns the timer's unique id.
func (t *Timer) ID() string {
	return t.id
}

// Absolute sets the initial expiry to the wall-clock instant at.
// An instant in the past expires as soon as the timer is armed.
func (t *Timer) Absolute(at time.Time) *Timer {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sched.absolute = true
	t.sched.at = at
	t.sched.after = 0
	t.configured = true
	return t
}

// Relative sets the initial expiry to d after arming. d <= 0 expires as soon
// as possible.
func (t *Timer) Relative(d time.Duration) *Timer {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sched.absolute = false
	t.sched.at = time.Time{}
	t.sched.after = d
	t.configured = true
	return t
}

// Periodic sets the repeat interval. Zero (or negative) makes the timer
// one-shot.
func (t *Timer) Periodic(interval time.Duration) *Timer {
	t.mu.Lock()
	defer t.mu.Unlock()
	if interval < 0 {
		interval = 0
	}
	t.sched.interval = interval
	return t
}

// IsArmed reports whether the timer is armed. A one-shot timer disarms itself
// when it fires.
func (t *Timer) IsArmed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}

// Overrun returns the number of expirations missed before the most recently
// delivered one.
func (t *Timer) Overrun() int {
	return int(t.overrun.Load())
}

// RemainingTime returns the time until the next expiry, or zero if the timer
// is disarmed.
func (t *Timer) RemainingTime() (time.Duration, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, ErrTimerClosed
	}
	return t.backend.remaining()
}

// CurrentTime reads the clock the timer runs on.
func (t *Timer) CurrentTime() (time.Time, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return time.Time{}, ErrTimerClosed
	}
	return t.backend.now()
}

// Close disarms the timer and releases its resource. Closing twice is a no-op.
func (t *Timer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.armed = false
	t.notify = nil
	return t.backend.close()
}

func (t *Timer) start(notify func(overrun int)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTimerClosed
	}
	if !t.configured {
		return ErrTimerNotConfigured
	}

	t.gen++
	t.notify = notify
	t.armed = true
	t.oneShot = t.sched.interval == 0
	t.overrun.Store(0)
	if err := t.backend.arm(t.sched, t.gen); err != nil {
		t.notify = nil
		t.armed = false
		return fmt.Errorf("timer: arm: %w", err)
	}
	return nil
}

func (t *Timer) stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTimerClosed
	}
	t.gen++
	t.notify = nil
	t.armed = false
	if err := t.backend.disarm(); err != nil {
		return fmt.Errorf("timer: disarm: %w", err)
	}
	return nil
}

// expire runs on the timer service goroutine. A fire scheduled by an earlier
// arming (gen no longer current) is dropped, so it can neither deliver the
// event of a newer arming nor disarm it.
func (t *Timer) expire(gen uint64, overrun int) {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	notify := t.notify
	if notify != nil && t.oneShot {
		t.armed = false
		t.notify = nil
	}
	t.mu.Unlock()

	if notify == nil {
		return
	}
	// notify was taken before any concurrent stop cleared it, so this one
	// delivery may land after stop returned: the accepted cancel/fire race.
	t.overrun.Store(int64(overrun))
	notify(overrun)
}
