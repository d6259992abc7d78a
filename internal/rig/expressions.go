package rig

import (
	"sync"

	"github.com/rs/zerolog"
)

// Preset maps morph target names to weights for one facial expression.
type Preset map[string]float32

// DefaultExpression is applied when a message names no expression, and
// after playback returns to idle.
const DefaultExpression = "neutral"

// expressionSpeed is the per-tick lerp rate for expression changes.
const expressionSpeed = 0.1

// defaultPresets covers the expression vocabulary of the retail
// assistant's language model contract. Weights are tuned for the
// ARKit-style morph dictionary of Ready Player Me avatars.
func defaultPresets() map[string]Preset {
	return map[string]Preset{
		DefaultExpression: {},
		"smile": {
			"browInnerUp":    0.17,
			"eyeSquintLeft":  0.4,
			"eyeSquintRight": 0.44,
			"noseSneerLeft":  0.17,
			"noseSneerRight": 0.14,
			"mouthPressLeft": 0.61,
			"mouthPressRight": 0.41,
		},
		"sad": {
			"mouthFrownLeft":   1,
			"mouthFrownRight":  1,
			"mouthShrugLower":  0.78,
			"browInnerUp":      0.45,
			"eyeSquintLeft":    0.72,
			"eyeSquintRight":   0.75,
			"eyeLookDownLeft":  0.5,
			"eyeLookDownRight": 0.5,
			"jawForward":       1,
		},
		"angry": {
			"browDownLeft":    1,
			"browDownRight":   1,
			"eyeSquintLeft":   1,
			"eyeSquintRight":  1,
			"jawForward":      1,
			"jawLeft":         1,
			"mouthShrugLower": 1,
			"noseSneerLeft":   1,
			"noseSneerRight":  0.42,
			"cheekSquintLeft": 1,
			"cheekSquintRight": 1,
			"mouthClose":      0.23,
			"mouthFunnel":     0.63,
		},
		"surprised": {
			"eyeWideLeft":  0.5,
			"eyeWideRight": 0.5,
			"jawOpen":      0.35,
			"mouthFunnel":  1,
			"browInnerUp":  1,
		},
		"funnyFace": {
			"jawLeft":         0.63,
			"mouthPucker":     0.53,
			"noseSneerLeft":   1,
			"noseSneerRight":  0.39,
			"mouthLeft":       1,
			"eyeLookUpLeft":   1,
			"eyeLookUpRight":  1,
			"cheekPuff":       0.99,
			"mouthDimpleLeft": 0.41,
			"mouthRollLower":  0.32,
			"mouthSmileLeft":  0.35,
			"mouthSmileRight": 0.35,
		},
	}
}

// Expressions applies facial expression presets through the blender.
// Exactly one expression is active at a time: applying one drives every
// target used by the other presets back to zero. Blink and viseme
// targets are untouched because their names are disjoint.
type Expressions struct {
	mu sync.Mutex

	blender *Blender
	presets map[string]Preset
	current string
	logger  zerolog.Logger
}

// NewExpressions creates the controller with the built-in presets.
func NewExpressions(b *Blender, logger zerolog.Logger) *Expressions {
	return &Expressions{
		blender: b,
		presets: defaultPresets(),
		current: DefaultExpression,
		logger:  logger.With().Str("component", "expressions").Logger(),
	}
}

// Apply activates the named expression. Unknown keys are a warning and
// the previous expression stays active. The backend contract calls the
// resting face "default"; it is folded into the neutral preset.
func (e *Expressions) Apply(key string) {
	if key == "" || key == "default" {
		key = DefaultExpression
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	preset, ok := e.presets[key]
	if !ok {
		e.logger.Warn().Str("expression", key).Msg("unknown facial expression, keeping previous")
		return
	}

	// Zero every target any other preset uses, then raise the selected
	// preset's own targets. Selected values win on overlap.
	for name, other := range e.presets {
		if name == key {
			continue
		}
		for target := range other {
			if _, used := preset[target]; used {
				continue
			}
			e.blender.SetTarget(target, 0, expressionSpeed)
		}
	}
	for target, weight := range preset {
		e.blender.SetTarget(target, weight, expressionSpeed)
	}

	e.current = key
}

// Current returns the active expression key.
func (e *Expressions) Current() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Known reports whether the key names a loaded preset.
func (e *Expressions) Known(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.presets[key]
	return ok
}

// SetPresets replaces the preset table, e.g. from a hot-reloaded tuning
// file. The default expression is always retained.
func (e *Expressions) SetPresets(presets map[string]Preset) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if presets == nil {
		presets = defaultPresets()
	}
	if _, ok := presets[DefaultExpression]; !ok {
		presets[DefaultExpression] = Preset{}
	}
	e.presets = presets
}
