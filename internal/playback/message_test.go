package playback

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageUnit_DecodeWirePayload(t *testing.T) {
	raw := `{
		"text": "Welcome to the store!",
		"animation": "TalkingOne",
		"facialExpression": "smile",
		"audio": "aGVsbG8=",
		"lipsync": {
			"metadata": {"duration": 2.0},
			"mouthCues": [
				{"start": 0.0, "end": 0.5, "value": "A"},
				{"start": 0.5, "end": 1.2, "value": "B"}
			]
		}
	}`

	var u MessageUnit
	require.NoError(t, json.Unmarshal([]byte(raw), &u))

	assert.Equal(t, "Welcome to the store!", u.Text)
	assert.Equal(t, "TalkingOne", u.Animation)
	assert.Equal(t, "smile", u.FacialExpression)
	assert.Equal(t, []byte("hello"), u.Audio)
	assert.True(t, u.HasAudio())
	require.Len(t, u.Cues(), 2)
	assert.Equal(t, "B", u.Cues()[1].Value)
}

func TestMessageUnit_DurationFromLipsync(t *testing.T) {
	u := &MessageUnit{Lipsync: &Lipsync{Metadata: LipsyncMeta{Duration: 2.0}}}
	assert.Equal(t, 2*time.Second, u.Duration(3*time.Second))
}

func TestMessageUnit_DurationFallback(t *testing.T) {
	u := &MessageUnit{Text: "no timing"}
	assert.Equal(t, 3*time.Second, u.Duration(3*time.Second))

	u = &MessageUnit{Lipsync: &Lipsync{}}
	assert.Equal(t, 3*time.Second, u.Duration(3*time.Second))
}

func TestMessageUnit_ValidateOK(t *testing.T) {
	u := &MessageUnit{
		Audio: []byte("x"),
		Lipsync: &Lipsync{
			Metadata: LipsyncMeta{Duration: 1.5},
			MouthCues: []MouthCue{
				{Start: 0, End: 0.5, Value: "A"},
				{Start: 0.5, End: 1.4, Value: "B"},
			},
		},
	}
	assert.NoError(t, u.Validate())
}

func TestMessageUnit_ValidateNoLipsync(t *testing.T) {
	u := &MessageUnit{Text: "plain"}
	assert.NoError(t, u.Validate())
}

func TestMessageUnit_ValidateOverlap(t *testing.T) {
	u := &MessageUnit{
		Lipsync: &Lipsync{
			MouthCues: []MouthCue{
				{Start: 0, End: 0.6, Value: "A"},
				{Start: 0.5, End: 1.0, Value: "B"},
			},
		},
	}
	assert.Error(t, u.Validate())
}

func TestMessageUnit_ValidateDurationTooShort(t *testing.T) {
	u := &MessageUnit{
		Audio: []byte("x"),
		Lipsync: &Lipsync{
			Metadata:  LipsyncMeta{Duration: 0.5},
			MouthCues: []MouthCue{{Start: 0, End: 1.0, Value: "A"}},
		},
	}
	assert.Error(t, u.Validate())

	// Without audio the declared duration is not binding.
	u.Audio = nil
	assert.NoError(t, u.Validate())
}
