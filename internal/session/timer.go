package session

import (
	"sync"
	"time"
)

// Timer counts down whole seconds for the current question. At most one
// countdown runs at a time; Start replaces any previous one.
//
// Cancel stops future callbacks, but a callback already running when Cancel
// is called may still complete. Callers tag callbacks themselves and drop
// stale ones.
type Timer struct {
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
}

// NewTimer creates a timer that ticks every interval (one "second").
func NewTimer(interval time.Duration) *Timer {
	if interval <= 0 {
		interval = time.Second
	}
	return &Timer{interval: interval}
}

// Start begins a countdown from deadlineSeconds. onTick receives the remaining
// seconds after every tick while time remains; onExpire fires once when the
// countdown reaches zero.
func (t *Timer) Start(deadlineSeconds int, onTick func(remaining int), onExpire func()) {
	t.mu.Lock()
	if t.stop != nil {
		close(t.stop)
	}
	stop := make(chan struct{})
	t.stop = stop
	t.mu.Unlock()

	go t.run(stop, deadlineSeconds, onTick, onExpire)
}

func (t *Timer) run(stop chan struct{}, remaining int, onTick func(int), onExpire func()) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for remaining > 0 {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		// prefer cancellation over a tick that raced with it
		select {
		case <-stop:
			return
		default:
		}

		remaining--
		if remaining > 0 && onTick != nil {
			onTick(remaining)
		}
	}

	if !t.finish(stop) {
		return
	}
	if onExpire != nil {
		onExpire()
	}
}

// finish marks the countdown owning stop as done. It returns false when the
// countdown was cancelled or replaced in the meantime.
func (t *Timer) finish(stop chan struct{}) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != stop {
		return false
	}
	t.stop = nil
	return true
}

// Cancel stops the running countdown, if any. Safe to call repeatedly.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

func (t *Timer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil
}
