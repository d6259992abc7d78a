package anim

import (
	"testing"

	"github.com/rs/zerolog"
)

func testMixer() *Mixer {
	return NewMixer(DefaultLibrary(), zerolog.Nop())
}

func TestMixer_FirstClipSnapsIn(t *testing.T) {
	mx := testMixer()

	if !mx.Play(IdleClip) {
		t.Fatal("expected Play to succeed")
	}
	if mx.Current() != IdleClip {
		t.Errorf("expected %s, got %s", IdleClip, mx.Current())
	}
	if w := mx.Weight(IdleClip); w != 1 {
		t.Errorf("first clip should snap to weight 1, got %v", w)
	}
}

func TestMixer_Crossfade(t *testing.T) {
	mx := testMixer()
	mx.Play(IdleClip)
	mx.Play("TalkingOne")

	if mx.Current() != "TalkingOne" {
		t.Fatalf("expected TalkingOne current, got %s", mx.Current())
	}
	if w := mx.Weight("TalkingOne"); w != 0 {
		t.Errorf("incoming clip should start at 0, got %v", w)
	}
	if w := mx.Weight(IdleClip); w != 1 {
		t.Errorf("outgoing clip should start at 1, got %v", w)
	}

	// Half the crossfade window.
	mx.Update(0.25)
	if w := mx.Weight("TalkingOne"); w != 0.5 {
		t.Errorf("expected incoming 0.5 at midpoint, got %v", w)
	}
	if w := mx.Weight(IdleClip); w != 0.5 {
		t.Errorf("expected outgoing 0.5 at midpoint, got %v", w)
	}

	// Past the end of the fade.
	mx.Update(0.3)
	if w := mx.Weight("TalkingOne"); w != 1 {
		t.Errorf("expected incoming settled at 1, got %v", w)
	}
	if w := mx.Weight(IdleClip); w != 0 {
		t.Errorf("expected outgoing dropped, got %v", w)
	}
}

func TestMixer_UnknownClipKeepsCurrent(t *testing.T) {
	mx := testMixer()
	mx.Play(IdleClip)

	if mx.Play("Moonwalk") {
		t.Error("expected Play to fail for unknown clip")
	}
	if mx.Current() != IdleClip {
		t.Errorf("expected current unchanged, got %s", mx.Current())
	}
}

func TestMixer_ReplayCurrentIsNoop(t *testing.T) {
	mx := testMixer()
	mx.Play(IdleClip)
	mx.Play("TalkingOne")
	mx.Update(0.1)
	w := mx.Weight("TalkingOne")

	mx.Play("TalkingOne")
	if got := mx.Weight("TalkingOne"); got != w {
		t.Errorf("replaying the current clip should not reset its fade: %v != %v", got, w)
	}
}

func TestLibrary_DefaultVocabulary(t *testing.T) {
	lib := DefaultLibrary()
	for _, name := range []string{
		IdleClip, "TalkingOne", "TalkingThree", "SadIdle", "Defeated",
		"Angry", "Surprised", "DismissingGesture", "ThoughtfulHeadShake",
	} {
		clip, ok := lib.Lookup(name)
		if !ok {
			t.Errorf("missing clip %s", name)
			continue
		}
		if clip.Duration <= 0 {
			t.Errorf("clip %s has no duration", name)
		}
	}
}
