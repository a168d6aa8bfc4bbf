package overlay

import (
	"sync"
	"time"
)

// resettableTimer is a cancellable one-shot timer. Arm replaces any pending
// fire, so re-arming recomputes the deadline instead of extending it. Every
// Arm and Cancel advances a generation counter; the callback receives the
// generation of its arming and must abort once it is stale. Stopping the
// time.Timer alone is not enough: a callback that already fired but is
// parked on a lock would otherwise survive the re-arm and run against the
// old deadline.
type resettableTimer struct {
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// Arm schedules fn after d, invalidating any previously armed fire.
func (t *resettableTimer) Arm(d time.Duration, fn func(gen uint64)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timer = time.AfterFunc(d, func() { fn(gen) })
}

// Cancel stops and invalidates any pending fire. Safe to call when nothing
// is armed.
func (t *resettableTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
}

// Current reports whether gen belongs to the latest arming. Callbacks call
// this after acquiring whatever lock guards the guarded state, so a fire
// that lost the race to a re-arm or cancel backs off.
func (t *resettableTimer) Current(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil && gen == t.gen
}
