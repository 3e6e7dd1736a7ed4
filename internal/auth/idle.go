package auth

import (
	"sync"
	"time"
)

// IdleTimer fires a callback once after a fixed window of inactivity. Touch
// resets the window; Stop cancels it. It is the inactivity-logout component:
// independent of the listing and mutation code, coupled only through the
// expiry callback.
type IdleTimer struct {
	timeout time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	fired   bool
}

// NewIdleTimer starts a timer that calls onExpire after timeout of
// inactivity. onExpire runs on a timer goroutine and fires at most once.
func NewIdleTimer(timeout time.Duration, onExpire func()) *IdleTimer {
	it := &IdleTimer{timeout: timeout}
	it.timer = time.AfterFunc(timeout, func() {
		it.mu.Lock()
		if it.stopped || it.fired {
			it.mu.Unlock()
			return
		}
		it.fired = true
		it.mu.Unlock()
		onExpire()
	})
	return it
}

// Touch registers activity, pushing the expiry out by the full window.
// Touching a stopped or fired timer is a no-op.
func (it *IdleTimer) Touch() {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.stopped || it.fired {
		return
	}
	it.timer.Reset(it.timeout)
}

// Stop cancels the timer. The callback will not fire after Stop returns
// unless it was already in flight.
func (it *IdleTimer) Stop() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.stopped = true
	it.timer.Stop()
}
