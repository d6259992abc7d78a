package rig

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Cue is one lip-sync interval: show the viseme for Value while the
// audio position is inside [Start, End). Cues are sorted ascending by
// Start and do not overlap.
type Cue struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Value string  `json:"value"`
}

// SilenceCue is the phoneme-extraction rest code (mouth closed).
const SilenceCue = "X"

// visemeTargets maps the phoneme extractor's cue codes to morph target
// names on the avatar head mesh.
var visemeTargets = map[string]string{
	"A":        "viseme_PP",
	"B":        "viseme_kk",
	"C":        "viseme_I",
	"D":        "viseme_AA",
	"E":        "viseme_O",
	"F":        "viseme_U",
	"G":        "viseme_FF",
	"H":        "viseme_TH",
	SilenceCue: "viseme_PP",
}

// visemeSpeed is the per-tick lerp rate for mouth shapes. Faster than
// expressions: mouth shapes change several times per second.
const visemeSpeed = 0.2

// VisemeDriver switches mouth-shape morph targets from the current
// audio playback position.
type VisemeDriver struct {
	mu sync.Mutex

	blender *Blender
	current string
	logger  zerolog.Logger
}

// NewVisemeDriver creates a driver in the silent state.
func NewVisemeDriver(b *Blender, logger zerolog.Logger) *VisemeDriver {
	return &VisemeDriver{
		blender: b,
		current: SilenceCue,
		logger:  logger.With().Str("component", "visemes").Logger(),
	}
}

// FindCue returns the cue containing position, or -1. Cues are sorted
// by start so a binary search suffices.
func FindCue(position float64, cues []Cue) int {
	i := sort.Search(len(cues), func(i int) bool {
		return cues[i].End > position
	})
	if i < len(cues) && cues[i].Start <= position {
		return i
	}
	return -1
}

// Drive selects the viseme for the given playback position. When no cue
// matches (a gap, or a position outside the cue range) the previous
// viseme is held; snapping to silence between adjacent cues reads as
// flicker.
func (d *VisemeDriver) Drive(position float64, cues []Cue) {
	i := FindCue(position, cues)
	if i < 0 {
		return
	}
	d.apply(cues[i].Value)
}

// Silence closes the mouth: every viseme target is driven to zero and
// the current code returns to rest. Called when playback ends.
func (d *VisemeDriver) Silence() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, target := range visemeTargets {
		d.blender.SetTarget(target, 0, visemeSpeed)
	}
	d.current = SilenceCue
}

// Current returns the active cue code.
func (d *VisemeDriver) Current() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

func (d *VisemeDriver) apply(code string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if code == d.current {
		return
	}

	target, ok := visemeTargets[code]
	if !ok {
		d.logger.Warn().Str("cue", code).Msg("unknown viseme cue code")
		return
	}

	for other, name := range visemeTargets {
		if other == code || name == target {
			continue
		}
		d.blender.SetTarget(name, 0, visemeSpeed)
	}
	d.blender.SetTarget(target, 1, visemeSpeed)
	d.current = code
}
