package playback

import (
	"sync"
	"time"
)

// timerSet tracks every pending timer its owner creates so teardown can
// cancel all of them on any exit path. A timer that fires after its
// owner is gone would mutate state nobody displays anymore.
type timerSet struct {
	mu      sync.Mutex
	pending map[*time.Timer]struct{}
	stopped bool
}

func newTimerSet() *timerSet {
	return &timerSet{pending: make(map[*time.Timer]struct{})}
}

// After schedules fn and registers the timer. Returns nil after StopAll.
func (ts *timerSet) After(d time.Duration, fn func()) *time.Timer {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.stopped {
		return nil
	}

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		ts.mu.Lock()
		_, live := ts.pending[t]
		delete(ts.pending, t)
		ts.mu.Unlock()
		if live {
			fn()
		}
	})
	ts.pending[t] = struct{}{}
	return t
}

// Cancel stops one timer; its callback will not run.
func (ts *timerSet) Cancel(t *time.Timer) {
	if t == nil {
		return
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	delete(ts.pending, t)
	t.Stop()
}

// CancelAll stops every pending timer but keeps the set usable.
func (ts *timerSet) CancelAll() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for t := range ts.pending {
		t.Stop()
		delete(ts.pending, t)
	}
}

// StopAll cancels everything and rejects future timers. Terminal.
func (ts *timerSet) StopAll() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.stopped = true
	for t := range ts.pending {
		t.Stop()
		delete(ts.pending, t)
	}
}
