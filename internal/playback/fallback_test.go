package playback

import (
	"testing"
	"time"

	"github.com/retailmind/emilyavatar/internal/rig"
)

func TestSynthesizeCues_CoversDuration(t *testing.T) {
	cues := SynthesizeCues("hello there shopper", 2*time.Second)
	if len(cues) == 0 {
		t.Fatal("expected cues")
	}

	last := cues[len(cues)-1]
	if last.Value != rig.SilenceCue {
		t.Errorf("expected trailing silence, got %s", last.Value)
	}
	if last.End != 2.0 {
		t.Errorf("expected track to end at the declared duration, got %v", last.End)
	}
}

func TestSynthesizeCues_SortedAndNonOverlapping(t *testing.T) {
	cues := SynthesizeCues("the quick brown fox jumps over the lazy dog", 3*time.Second)

	var prevEnd float64
	for i, c := range cues {
		if c.Start < prevEnd {
			t.Fatalf("cue %d overlaps previous: start %v < end %v", i, c.Start, prevEnd)
		}
		if c.End < c.Start {
			t.Fatalf("cue %d inverted: %v..%v", i, c.Start, c.End)
		}
		prevEnd = c.End
	}
}

func TestSynthesizeCues_NoConsecutiveDuplicates(t *testing.T) {
	cues := SynthesizeCues("mmm ooo", time.Second)
	for i := 1; i < len(cues); i++ {
		if cues[i].Value == cues[i-1].Value && cues[i].Value != rig.SilenceCue {
			t.Errorf("consecutive duplicate cue %s at %d", cues[i].Value, i)
		}
	}
}

func TestSynthesizeCues_EmptyText(t *testing.T) {
	if cues := SynthesizeCues("", time.Second); cues != nil {
		t.Errorf("expected no cues for empty text, got %v", cues)
	}
	if cues := SynthesizeCues("... !!!", time.Second); cues != nil {
		t.Errorf("expected no cues for punctuation-only text, got %v", cues)
	}
}

func TestSynthesizeCues_ValidatesAsLipsync(t *testing.T) {
	cues := SynthesizeCues("welcome to the store", 2*time.Second)
	u := &MessageUnit{
		Text:  "welcome to the store",
		Audio: []byte("pcm"),
		Lipsync: &Lipsync{
			Metadata:  LipsyncMeta{Duration: 2.0},
			MouthCues: cues,
		},
	}
	if err := u.Validate(); err != nil {
		t.Errorf("synthesized track should satisfy the cue invariants: %v", err)
	}
}
