// Package debounce provides a single-slot timer: scheduling always replaces
// the pending callback, so at most one is ever outstanding.
package debounce

import (
	"sync"
	"time"
)

// Timer runs the most recently scheduled callback once its quiet period
// elapses without another Schedule call.
type Timer struct {
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// New returns a Timer with the given quiet period.
func New(delay time.Duration) *Timer {
	return &Timer{delay: delay}
}

// Schedule cancels any pending callback and arms fn to run after the quiet
// period. fn runs on its own goroutine.
func (t *Timer) Schedule(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timer = time.AfterFunc(t.delay, func() {
		t.mu.Lock()
		// A Cancel or Schedule that raced the expiry bumps gen.
		if gen != t.gen {
			t.mu.Unlock()
			return
		}
		t.timer = nil
		t.mu.Unlock()
		fn()
	})
}

// Cancel drops the pending callback, if any. It reports whether one was pending.
func (t *Timer) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.gen++
	if t.timer == nil {
		return false
	}
	t.timer.Stop()
	t.timer = nil
	return true
}

// Pending reports whether a callback is armed.
func (t *Timer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}
