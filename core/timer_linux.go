//go:build linux

package core

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// timerfdService multiplexes every timerfd of the process over one epoll
// instance and one goroutine.
type timerfdService struct {
	epfd int

	mu       sync.Mutex
	backends map[int32]*timerfdBackend
}

var (
	timerfdServiceOnce sync.Once
	timerfdSvc         *timerfdService
	timerfdSvcErr      error
)

func sharedTimerfdService() (*timerfdService, error) {
	timerfdServiceOnce.Do(func() {
		epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
		if err != nil {
			timerfdSvcErr = fmt.Errorf("epoll_create1: %w", err)
			return
		}
		timerfdSvc = &timerfdService{
			epfd:     epfd,
			backends: make(map[int32]*timerfdBackend),
		}
		go timerfdSvc.loop()
	})
	return timerfdSvc, timerfdSvcErr
}

func (s *timerfdService) loop() {
	events := make([]unix.EpollEvent, 32)
	for {
		n, err := unix.EpollWait(s.epfd, events, -1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			// epoll fd is never closed; any other error is unrecoverable.
			return
		}
		for i := 0; i < n; i++ {
			s.mu.Lock()
			b := s.backends[events[i].Fd]
			s.mu.Unlock()
			if b != nil {
				b.onReadable()
			}
		}
	}
}

func (s *timerfdService) add(b *timerfdBackend) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(b.fd)}
	if err := unix.EpollCtl(s.epfd, unix.EPOLL_CTL_ADD, b.fd, &ev); err != nil {
		return fmt.Errorf("epoll_ctl add: %w", err)
	}
	s.backends[int32(b.fd)] = b
	return nil
}

func (s *timerfdService) remove(b *timerfdBackend) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.backends, int32(b.fd))
	if err := unix.EpollCtl(s.epfd, unix.EPOLL_CTL_DEL, b.fd, nil); err != nil {
		return fmt.Errorf("epoll_ctl del: %w", err)
	}
	return nil
}

// timerfdBackend is a timerBackend over one CLOCK_REALTIME timerfd.
type timerfdBackend struct {
	svc  *timerfdService
	fire func(gen uint64, overrun int)

	mu  sync.Mutex
	fd  int // -1 once closed
	gen uint64
}

func newOSTimerBackend(fire func(gen uint64, overrun int)) (timerBackend, error) {
	svc, err := sharedTimerfdService()
	if err != nil {
		return nil, err
	}
	fd, err := unix.TimerfdCreate(unix.CLOCK_REALTIME, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("timerfd_create: %w", err)
	}
	b := &timerfdBackend{svc: svc, fire: fire, fd: fd}
	if err := svc.add(b); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return b, nil
}

func (b *timerfdBackend) arm(sched timerSchedule, gen uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fd < 0 {
		return ErrTimerClosed
	}

	var spec unix.ItimerSpec
	flags := 0
	if sched.absolute {
		flags = unix.TFD_TIMER_ABSTIME
		// A zero it_value disarms, so instants at or before the epoch are
		// clamped to the first nanosecond.
		spec.Value = unix.NsecToTimespec(max(sched.at.UnixNano(), 1))
	} else {
		spec.Value = unix.NsecToTimespec(max(sched.after.Nanoseconds(), 1))
	}
	spec.Interval = unix.NsecToTimespec(sched.interval.Nanoseconds())

	if err := unix.TimerfdSettime(b.fd, flags, &spec, nil); err != nil {
		return fmt.Errorf("timerfd_settime: %w", err)
	}
	b.gen = gen
	return nil
}

func (b *timerfdBackend) disarm() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fd < 0 {
		return ErrTimerClosed
	}
	var spec unix.ItimerSpec
	if err := unix.TimerfdSettime(b.fd, 0, &spec, nil); err != nil {
		return fmt.Errorf("timerfd_settime: %w", err)
	}
	return nil
}

func (b *timerfdBackend) remaining() (time.Duration, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fd < 0 {
		return 0, ErrTimerClosed
	}
	var cur unix.ItimerSpec
	if err := unix.TimerfdGettime(b.fd, &cur); err != nil {
		return 0, fmt.Errorf("timerfd_gettime: %w", err)
	}
	return time.Duration(cur.Value.Nano()), nil
}

func (b *timerfdBackend) now() (time.Time, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_REALTIME, &ts); err != nil {
		return time.Time{}, fmt.Errorf("clock_gettime: %w", err)
	}
	return time.Unix(ts.Unix()), nil
}

func (b *timerfdBackend) close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fd < 0 {
		return nil
	}
	rmErr := b.svc.remove(b)
	closeErr := unix.Close(b.fd)
	b.fd = -1
	return errors.Join(rmErr, closeErr)
}

// onReadable consumes the expiry counter and reports count-1 as overrun.
// Runs on the service goroutine. A read that finds nothing (the timer was
// re-armed or disarmed after epoll reported it) is ignored. The counter and
// the generation are read under one lock, so the fire is tagged with the
// arming that produced it.
func (b *timerfdBackend) onReadable() {
	var buf [8]byte

	b.mu.Lock()
	if b.fd < 0 {
		b.mu.Unlock()
		return
	}
	n, err := unix.Read(b.fd, buf[:])
	gen := b.gen
	b.mu.Unlock()

	if err != nil || n != len(buf) {
		return
	}
	count := binary.NativeEndian.Uint64(buf[:])
	if count == 0 {
		return
	}
	b.fire(gen, int(count-1))
}
