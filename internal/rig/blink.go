package rig

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Blink morph targets. Dedicated names keep the blink channel disjoint
// from expression and viseme writes.
var blinkTargets = []string{"eyeBlinkLeft", "eyeBlinkRight"}

// blinkSpeed closes and opens the lids within a couple of ticks.
const blinkSpeed = 0.5

// Blinker closes the avatar's eyes at random intervals, independent of
// whatever the playback pipeline is doing.
type Blinker struct {
	mu sync.Mutex

	blender *Blender
	logger  zerolog.Logger

	minGap time.Duration
	maxGap time.Duration
	hold   time.Duration

	timer   *time.Timer
	running bool
}

// NewBlinker creates a stopped blinker. Gaps below sane bounds fall
// back to the 1–5 s defaults.
func NewBlinker(b *Blender, minGap, maxGap, hold time.Duration, logger zerolog.Logger) *Blinker {
	if minGap <= 0 || maxGap < minGap {
		minGap = time.Second
		maxGap = 5 * time.Second
	}
	if hold <= 0 {
		hold = 200 * time.Millisecond
	}
	return &Blinker{
		blender: b,
		logger:  logger.With().Str("component", "blink").Logger(),
		minGap:  minGap,
		maxGap:  maxGap,
		hold:    hold,
	}
}

// Start schedules the first blink. Safe to call once.
func (bl *Blinker) Start() {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	if bl.running {
		return
	}
	bl.running = true
	bl.scheduleLocked()
}

// Stop cancels any pending blink timer and opens the eyes.
func (bl *Blinker) Stop() {
	bl.mu.Lock()
	defer bl.mu.Unlock()

	bl.running = false
	if bl.timer != nil {
		bl.timer.Stop()
		bl.timer = nil
	}
	for _, t := range blinkTargets {
		bl.blender.SetTarget(t, 0, blinkSpeed)
	}
}

func (bl *Blinker) scheduleLocked() {
	gap := bl.minGap + time.Duration(rand.Int63n(int64(bl.maxGap-bl.minGap)+1))
	bl.timer = time.AfterFunc(gap, bl.close)
}

func (bl *Blinker) close() {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	if !bl.running {
		return
	}
	for _, t := range blinkTargets {
		bl.blender.SetTarget(t, 1, blinkSpeed)
	}
	bl.timer = time.AfterFunc(bl.hold, bl.open)
}

func (bl *Blinker) open() {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	if !bl.running {
		return
	}
	for _, t := range blinkTargets {
		bl.blender.SetTarget(t, 0, blinkSpeed)
	}
	bl.scheduleLocked()
}
