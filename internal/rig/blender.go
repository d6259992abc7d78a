// Package rig drives the avatar's face: smoothed morph target blending,
// facial expressions, lip-sync visemes, and blinking. The blender is the
// single write path to the scene's morph influences; expression, viseme,
// and blink channels use disjoint target names so their writes never
// conflict.
package rig

import (
	"sync"

	"github.com/retailmind/emilyavatar/internal/scene"
)

// DefaultFirstFrameBoost replaces the per-call speed for one tick after
// a phase transition so a new expression or viseme lands immediately
// instead of fading in over many frames.
const DefaultFirstFrameBoost = 0.85

type blendTarget struct {
	value float32
	speed float32
}

// Blender owns the target weight for every named morph target and moves
// the scene's current influences toward those targets once per tick.
type Blender struct {
	mu sync.Mutex

	rig     *scene.Rig
	targets map[string]blendTarget

	firstFrame bool
	boost      float32
}

// NewBlender creates a blender over the given rig.
func NewBlender(r *scene.Rig) *Blender {
	return &Blender{
		rig:     r,
		targets: make(map[string]blendTarget),
		boost:   DefaultFirstFrameBoost,
	}
}

// SetTarget sets the desired weight for a named morph target. The value
// is approached by lerp at baseSpeed per tick. Names no mesh exposes
// are carried anyway and silently do nothing, matching the rule that a
// mesh may legitimately lack a given blend shape.
func (b *Blender) SetTarget(name string, value, baseSpeed float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.targets[name] = blendTarget{value: clamp(value, 0, 1), speed: baseSpeed}
}

// MarkTransition makes the next Update use the first-frame boost.
func (b *Blender) MarkTransition() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.firstFrame = true
}

// Update advances every tracked target by one tick.
func (b *Blender) Update() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for name, tgt := range b.targets {
		speed := tgt.speed
		if b.firstFrame {
			speed = b.boost
		}
		for _, m := range b.rig.Meshes() {
			cur, ok := m.Influence(name)
			if !ok {
				continue
			}
			m.SetInfluence(name, lerp(cur, tgt.value, speed))
		}
	}
	b.firstFrame = false
}

// Target returns the current target value for a name, if any.
func (b *Blender) Target(name string) (float32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.targets[name]
	return t.value, ok
}

// ResetAll zeroes every tracked target and every scene influence.
// Used on teardown and when the playback queue drains.
func (b *Blender) ResetAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for name := range b.targets {
		delete(b.targets, name)
	}
	b.rig.ResetInfluences()
}

// Rig returns the underlying scene rig.
func (b *Blender) Rig() *scene.Rig {
	return b.rig
}

func lerp(a, b, t float32) float32 {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	return a + (b-a)*t
}

func clamp(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
