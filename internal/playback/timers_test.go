package playback

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerSet_AfterFires(t *testing.T) {
	ts := newTimerSet()

	var fired atomic.Int32
	ts.After(10*time.Millisecond, func() { fired.Add(1) })

	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 1 {
		t.Errorf("expected 1 fire, got %d", fired.Load())
	}
}

func TestTimerSet_CancelPreventsFire(t *testing.T) {
	ts := newTimerSet()

	var fired atomic.Int32
	timer := ts.After(20*time.Millisecond, func() { fired.Add(1) })
	ts.Cancel(timer)

	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Errorf("expected no fires after cancel, got %d", fired.Load())
	}
}

func TestTimerSet_CancelAllKeepsSetUsable(t *testing.T) {
	ts := newTimerSet()

	var first, second atomic.Int32
	ts.After(20*time.Millisecond, func() { first.Add(1) })
	ts.CancelAll()

	ts.After(10*time.Millisecond, func() { second.Add(1) })
	time.Sleep(60 * time.Millisecond)

	if first.Load() != 0 {
		t.Errorf("cancelled timer fired %d times", first.Load())
	}
	if second.Load() != 1 {
		t.Errorf("expected timer scheduled after CancelAll to fire, got %d", second.Load())
	}
}

func TestTimerSet_StopAllIsTerminal(t *testing.T) {
	ts := newTimerSet()

	var fired atomic.Int32
	ts.After(20*time.Millisecond, func() { fired.Add(1) })
	ts.StopAll()

	if timer := ts.After(5*time.Millisecond, func() { fired.Add(1) }); timer != nil {
		t.Error("expected nil timer after StopAll")
	}

	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Errorf("expected no fires after StopAll, got %d", fired.Load())
	}
}
