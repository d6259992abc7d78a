package anim

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CrossfadeDuration is how long an outgoing clip fades while the next
// one fades in.
const CrossfadeDuration = 500 * time.Millisecond

type activeClip struct {
	clip   Clip
	weight float32
	// +1 fading in, -1 fading out, 0 steady
	fade float32
}

// Mixer crossfades between clips from the library. The first clip ever
// played snaps in with no fade, matching a mixer with no action in use.
type Mixer struct {
	mu sync.Mutex

	lib    *Library
	logger zerolog.Logger

	current  *activeClip
	outgoing *activeClip
}

// NewMixer creates a mixer over the library.
func NewMixer(lib *Library, logger zerolog.Logger) *Mixer {
	return &Mixer{
		lib:    lib,
		logger: logger.With().Str("component", "mixer").Logger(),
	}
}

// Play crossfades to the named clip. Unknown names log a warning and
// leave the running clip untouched. Replaying the current clip is a
// no-op.
func (mx *Mixer) Play(name string) bool {
	mx.mu.Lock()
	defer mx.mu.Unlock()

	clip, ok := mx.lib.Lookup(name)
	if !ok {
		mx.logger.Warn().Str("clip", name).Msg("unknown animation clip, keeping current")
		return false
	}

	if mx.current != nil && mx.current.clip.Name == name {
		return true
	}

	if mx.current == nil {
		mx.current = &activeClip{clip: clip, weight: 1}
		return true
	}

	mx.outgoing = mx.current
	mx.outgoing.fade = -1
	mx.current = &activeClip{clip: clip, weight: 0, fade: 1}
	return true
}

// Update advances fade weights by dt.
func (mx *Mixer) Update(dt float32) {
	mx.mu.Lock()
	defer mx.mu.Unlock()

	step := dt / float32(CrossfadeDuration.Seconds())

	if mx.current != nil && mx.current.fade > 0 {
		mx.current.weight += step
		if mx.current.weight >= 1 {
			mx.current.weight = 1
			mx.current.fade = 0
		}
	}
	if mx.outgoing != nil {
		mx.outgoing.weight -= step
		if mx.outgoing.weight <= 0 {
			mx.outgoing = nil
		}
	}
}

// Current returns the active clip name, or "" when nothing plays.
func (mx *Mixer) Current() string {
	mx.mu.Lock()
	defer mx.mu.Unlock()
	if mx.current == nil {
		return ""
	}
	return mx.current.clip.Name
}

// Weight returns the blend weight of the named clip, counting both the
// incoming and outgoing sides of a crossfade.
func (mx *Mixer) Weight(name string) float32 {
	mx.mu.Lock()
	defer mx.mu.Unlock()

	if mx.current != nil && mx.current.clip.Name == name {
		return mx.current.weight
	}
	if mx.outgoing != nil && mx.outgoing.clip.Name == name {
		return mx.outgoing.weight
	}
	return 0
}

// Stop drops both sides of any crossfade.
func (mx *Mixer) Stop() {
	mx.mu.Lock()
	defer mx.mu.Unlock()
	mx.current = nil
	mx.outgoing = nil
}
