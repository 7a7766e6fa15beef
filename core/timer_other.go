//go:build !linux

package core

// Without timerfd the OS-backed timer falls back to the portable service.
func newOSTimerBackend(fire func(gen uint64, overrun int)) (timerBackend, error) {
	return newHeapTimerBackend(fire), nil
}
