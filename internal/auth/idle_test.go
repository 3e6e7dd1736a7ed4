package auth

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestIdleTimer_Fires(t *testing.T) {
	fired := make(chan struct{})
	NewIdleTimer(20*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
}

func TestIdleTimer_FiresAtMostOnce(t *testing.T) {
	var count int32
	it := NewIdleTimer(10*time.Millisecond, func() { atomic.AddInt32(&count, 1) })

	time.Sleep(50 * time.Millisecond)
	it.Touch() // no-op after fire
	time.Sleep(50 * time.Millisecond)

	if got := atomic.LoadInt32(&count); got != 1 {
		t.Errorf("fired %d times, want 1", got)
	}
}

func TestIdleTimer_TouchResets(t *testing.T) {
	var count int32
	it := NewIdleTimer(60*time.Millisecond, func() { atomic.AddInt32(&count, 1) })

	for i := 0; i < 4; i++ {
		time.Sleep(30 * time.Millisecond)
		it.Touch()
	}
	if got := atomic.LoadInt32(&count); got != 0 {
		t.Fatalf("fired %d times while active, want 0", got)
	}

	time.Sleep(150 * time.Millisecond)
	if got := atomic.LoadInt32(&count); got != 1 {
		t.Errorf("fired %d times after going idle, want 1", got)
	}
}

func TestIdleTimer_Stop(t *testing.T) {
	var count int32
	it := NewIdleTimer(20*time.Millisecond, func() { atomic.AddInt32(&count, 1) })

	it.Stop()
	time.Sleep(60 * time.Millisecond)

	if got := atomic.LoadInt32(&count); got != 0 {
		t.Errorf("fired %d times after Stop, want 0", got)
	}
}
