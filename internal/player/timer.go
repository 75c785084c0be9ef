package player

import (
	"sync"
	"time"
)

// RestState is a point-in-time view of the rest countdown.
type RestState struct {
	RemainingSeconds int  `json:"remaining_seconds"`
	Active           bool `json:"active"`
}

// RestTimer is a single countdown between sets. Starting a new countdown
// replaces the running one. It is advisory only and never blocks the session.
type RestTimer struct {
	mu        sync.Mutex
	remaining int
	active    bool
	interval  time.Duration
	manual    bool
	gen       uint64
	stop      chan struct{}
}

// TimerOption configures a RestTimer.
type TimerOption func(*RestTimer)

// WithTickInterval overrides the one-second cadence.
func WithTickInterval(d time.Duration) TimerOption {
	return func(t *RestTimer) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithManualTicks disables the background ticker; the owner calls Tick.
func WithManualTicks() TimerOption {
	return func(t *RestTimer) { t.manual = true }
}

// NewRestTimer creates an idle timer.
func NewRestTimer(opts ...TimerOption) *RestTimer {
	t := &RestTimer{interval: time.Second}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Start begins a countdown of the given seconds, cancelling any previous one.
// Non-positive values leave the timer idle.
func (t *RestTimer) Start(seconds int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelLocked()
	if seconds <= 0 {
		t.remaining, t.active = 0, false
		return
	}
	t.remaining, t.active = seconds, true
	if t.manual {
		return
	}

	t.gen++
	t.stop = make(chan struct{})
	go t.run(t.gen, t.stop)
}

// Skip ends the rest immediately.
func (t *RestTimer) Skip() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
	t.remaining, t.active = 0, false
}

// Stop cancels the countdown without touching the remaining value.
func (t *RestTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
	t.active = false
}

// Tick decrements the countdown by one second. Reaching zero deactivates it.
func (t *RestTimer) Tick() RestState {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tickLocked()
	return RestState{RemainingSeconds: t.remaining, Active: t.active}
}

// State returns the current countdown.
func (t *RestTimer) State() RestState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return RestState{RemainingSeconds: t.remaining, Active: t.active}
}

func (t *RestTimer) tickLocked() {
	if !t.active {
		return
	}
	if t.remaining > 0 {
		t.remaining--
	}
	if t.remaining == 0 {
		t.active = false
		t.cancelLocked()
	}
}

// cancelLocked signals the running goroutine, if any, to exit.
func (t *RestTimer) cancelLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

func (t *RestTimer) run(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			if t.gen != gen {
				t.mu.Unlock()
				return
			}
			t.tickLocked()
			done := !t.active
			t.mu.Unlock()
			if done {
				return
			}
		}
	}
}
