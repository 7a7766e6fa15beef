package core

import (
	"container/heap"
	"sync"
	"time"
)

// heapEntry is one scheduled expiry of a portable timer.
type heapEntry struct {
	when    time.Time
	backend *heapTimerBackend
	index   int // for heap interface
}

// deadlineHeap implements heap.Interface, earliest deadline first.
type deadlineHeap []*heapEntry

func (h deadlineHeap) Len() int           { return len(h) }
func (h deadlineHeap) Less(i, j int) bool { return h[i].when.Before(h[j].when) }
func (h deadlineHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *deadlineHeap) Push(x any) {
	n := len(*h)
	item := x.(*heapEntry)
	item.index = n
	*h = append(*h, item)
}

func (h *deadlineHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	item.index = -1
	*h = old[0 : n-1]
	return item
}

func (h *deadlineHeap) Peek() *heapEntry {
	if len(*h) == 0 {
		return nil
	}
	return (*h)[0]
}

// heapTimerService is the process-wide portable timer service: one goroutine
// sleeping until the earliest deadline of all armed portable timers.
type heapTimerService struct {
	mu     sync.Mutex
	pq     deadlineHeap
	wakeup chan struct{}
}

var (
	heapServiceOnce sync.Once
	heapService     *heapTimerService
)

func sharedHeapTimerService() *heapTimerService {
	heapServiceOnce.Do(func() {
		heapService = &heapTimerService{
			pq:     make(deadlineHeap, 0),
			wakeup: make(chan struct{}, 1),
		}
		heap.Init(&heapService.pq)
		go heapService.loop()
	})
	return heapService
}

// schedule must be called with s.mu held.
func (s *heapTimerService) schedule(b *heapTimerBackend, when time.Time) {
	s.unscheduleLocked(b)
	e := &heapEntry{when: when, backend: b}
	heap.Push(&s.pq, e)
	b.entry = e

	if e.index == 0 {
		select {
		case s.wakeup <- struct{}{}:
		default:
		}
	}
}

func (s *heapTimerService) unscheduleLocked(b *heapTimerBackend) {
	if b.entry == nil {
		return
	}
	if b.entry.index >= 0 {
		heap.Remove(&s.pq, b.entry.index)
	}
	b.entry = nil
}

func (s *heapTimerService) loop() {
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	for {
		next, ok := s.nextWait()
		if !ok {
			// Nothing armed, sleep until a schedule wakes us.
			next = 1000 * time.Hour
		}
		timer.Reset(next)

		select {
		case <-timer.C:
			s.processExpired()
		case <-s.wakeup:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}
	}
}

// nextWait returns how long to sleep until the earliest deadline.
func (s *heapTimerService) nextWait() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.pq.Peek()
	if e == nil {
		return 0, false
	}
	return max(time.Until(e.when), 0), true
}

type heapExpiry struct {
	backend *heapTimerBackend
	gen     uint64
	overrun int
}

// processExpired pops every due entry, reschedules periodic ones and fires
// them outside the lock.
func (s *heapTimerService) processExpired() {
	s.mu.Lock()

	now := time.Now()
	var expired []heapExpiry
	for s.pq.Len() > 0 {
		e := s.pq.Peek()
		if e.when.After(now) {
			break
		}
		heap.Pop(&s.pq)
		b := e.backend
		b.entry = nil

		overrun := 0
		if b.interval > 0 {
			overrun = int(now.Sub(e.when) / b.interval)
			s.schedule(b, e.when.Add(time.Duration(overrun+1)*b.interval))
		}
		expired = append(expired, heapExpiry{backend: b, gen: b.gen, overrun: overrun})
	}

	s.mu.Unlock()

	for _, x := range expired {
		x.backend.fire(x.gen, x.overrun)
	}
}

// heapTimerBackend is a timerBackend served by heapTimerService.
type heapTimerBackend struct {
	svc  *heapTimerService
	fire func(gen uint64, overrun int)

	// guarded by svc.mu
	entry    *heapEntry
	interval time.Duration
	gen      uint64
	closed   bool
}

func newHeapTimerBackend(fire func(gen uint64, overrun int)) *heapTimerBackend {
	return &heapTimerBackend{
		svc:  sharedHeapTimerService(),
		fire: fire,
	}
}

func (b *heapTimerBackend) arm(sched timerSchedule, gen uint64) error {
	when := sched.at
	if !sched.absolute {
		when = time.Now().Add(max(sched.after, 0))
	}

	b.svc.mu.Lock()
	defer b.svc.mu.Unlock()
	if b.closed {
		return ErrTimerClosed
	}
	b.interval = sched.interval
	b.gen = gen
	b.svc.schedule(b, when)
	return nil
}

func (b *heapTimerBackend) disarm() error {
	b.svc.mu.Lock()
	defer b.svc.mu.Unlock()
	b.svc.unscheduleLocked(b)
	return nil
}

func (b *heapTimerBackend) remaining() (time.Duration, error) {
	b.svc.mu.Lock()
	defer b.svc.mu.Unlock()
	if b.entry == nil {
		return 0, nil
	}
	return max(time.Until(b.entry.when), 0), nil
}

func (b *heapTimerBackend) now() (time.Time, error) {
	return time.Now(), nil
}

func (b *heapTimerBackend) close() error {
	b.svc.mu.Lock()
	defer b.svc.mu.Unlock()
	b.svc.unscheduleLocked(b)
	b.closed = true
	return nil
}
