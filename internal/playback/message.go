// Package playback sequences assistant message units: skeletal
// animation, facial expression, speech audio, lip-sync visemes, and
// captions, one unit at a time in arrival order.
package playback

import (
	"fmt"
	"time"

	"github.com/retailmind/emilyavatar/internal/rig"
)

// MouthCue is one lip-sync interval from the phoneme extractor.
type MouthCue = rig.Cue

// LipsyncMeta carries the transcript-level timing.
type LipsyncMeta struct {
	Duration float64 `json:"duration"` // seconds
}

// Lipsync is the phoneme transcript for one utterance.
type Lipsync struct {
	Metadata  LipsyncMeta `json:"metadata"`
	MouthCues []MouthCue  `json:"mouthCues"`
}

// MessageUnit is one assistant message fragment as delivered by the
// chat backend. Audio is the raw encoded payload (base64 on the wire;
// encoding/json handles the conversion for []byte).
type MessageUnit struct {
	Text             string   `json:"text"`
	Animation        string   `json:"animation,omitempty"`
	FacialExpression string   `json:"facialExpression,omitempty"`
	Audio            []byte   `json:"audio,omitempty"`
	Lipsync          *Lipsync `json:"lipsync,omitempty"`
}

// HasAudio reports whether the unit carries a speech payload.
func (u *MessageUnit) HasAudio() bool {
	return len(u.Audio) > 0
}

// Cues returns the unit's mouth cues, nil when lip-sync data is absent.
func (u *MessageUnit) Cues() []rig.Cue {
	if u.Lipsync == nil {
		return nil
	}
	return u.Lipsync.MouthCues
}

// Duration is the unit's declared pacing interval. Units without any
// timing fall back to the supplied default; the declared duration also
// paces units whose audio is missing or broken.
func (u *MessageUnit) Duration(fallback time.Duration) time.Duration {
	if u.Lipsync != nil && u.Lipsync.Metadata.Duration > 0 {
		return time.Duration(u.Lipsync.Metadata.Duration * float64(time.Second))
	}
	return fallback
}

// Validate checks the lip-sync invariants: cues sorted ascending by
// start, non-overlapping, and a declared duration covering every cue
// when audio is present. Violations are reported, not fatal; callers
// log and play the unit anyway.
func (u *MessageUnit) Validate() error {
	if u.Lipsync == nil {
		return nil
	}

	var maxEnd float64
	var prevEnd float64
	for i, c := range u.Lipsync.MouthCues {
		if c.End < c.Start {
			return fmt.Errorf("cue %d: end %.3f before start %.3f", i, c.End, c.Start)
		}
		if c.Start < prevEnd {
			return fmt.Errorf("cue %d: overlaps previous (start %.3f < end %.3f)", i, c.Start, prevEnd)
		}
		prevEnd = c.End
		if c.End > maxEnd {
			maxEnd = c.End
		}
	}

	if u.HasAudio() && u.Lipsync.Metadata.Duration < maxEnd {
		return fmt.Errorf("declared duration %.3f shorter than last cue end %.3f",
			u.Lipsync.Metadata.Duration, maxEnd)
	}
	return nil
}
