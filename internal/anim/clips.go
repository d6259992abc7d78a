// Package anim tracks skeletal animation clips and crossfades between
// them. Actual skinning happens in the rendering client; the mixer owns
// which clip is active and the fade weights the client applies.
package anim

import (
	"fmt"

	"github.com/qmuntal/gltf"
)

// IdleClip is the resting animation the avatar returns to between
// messages.
const IdleClip = "Idle"

// Clip is one skeletal animation.
type Clip struct {
	Name     string
	Duration float64 // seconds
}

// Library is an immutable set of clips keyed by name.
type Library struct {
	clips map[string]Clip
	order []string
}

// NewLibrary builds a library from clips.
func NewLibrary(clips ...Clip) *Library {
	l := &Library{clips: make(map[string]Clip, len(clips))}
	for _, c := range clips {
		if _, ok := l.clips[c.Name]; !ok {
			l.order = append(l.order, c.Name)
		}
		l.clips[c.Name] = c
	}
	return l
}

// DefaultLibrary covers the clip vocabulary of the assistant's language
// model contract, with durations from the stock animation pack.
func DefaultLibrary() *Library {
	return NewLibrary(
		Clip{Name: IdleClip, Duration: 6.6},
		Clip{Name: "TalkingOne", Duration: 7.0},
		Clip{Name: "TalkingThree", Duration: 5.2},
		Clip{Name: "SadIdle", Duration: 7.4},
		Clip{Name: "Defeated", Duration: 3.5},
		Clip{Name: "Angry", Duration: 4.1},
		Clip{Name: "Surprised", Duration: 3.3},
		Clip{Name: "DismissingGesture", Duration: 2.9},
		Clip{Name: "ThoughtfulHeadShake", Duration: 4.8},
	)
}

// LoadLibrary reads clip names and durations from an animations GLB.
// Duration is the maximum keyframe time across all of a clip's sampler
// inputs, taken from the accessor bounds so the buffers never need
// decoding.
func LoadLibrary(path string) (*Library, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}
	if len(doc.Animations) == 0 {
		return nil, fmt.Errorf("no animations in %s", path)
	}

	clips := make([]Clip, 0, len(doc.Animations))
	for _, a := range doc.Animations {
		var duration float64
		for _, s := range a.Samplers {
			acc := doc.Accessors[s.Input]
			if len(acc.Max) > 0 && acc.Max[0] > duration {
				duration = acc.Max[0]
			}
		}
		clips = append(clips, Clip{Name: a.Name, Duration: duration})
	}
	return NewLibrary(clips...), nil
}

// Lookup returns the named clip.
func (l *Library) Lookup(name string) (Clip, bool) {
	c, ok := l.clips[name]
	return c, ok
}

// Names returns clip names in declaration order.
func (l *Library) Names() []string {
	return l.order
}
