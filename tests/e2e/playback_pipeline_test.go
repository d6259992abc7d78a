package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailmind/emilyavatar/internal/anim"
	"github.com/retailmind/emilyavatar/internal/audio"
	"github.com/retailmind/emilyavatar/internal/bus"
	"github.com/retailmind/emilyavatar/internal/chat"
	"github.com/retailmind/emilyavatar/internal/playback"
	"github.com/retailmind/emilyavatar/internal/rig"
	"github.com/retailmind/emilyavatar/internal/scene"
	"github.com/retailmind/emilyavatar/tests/testutil"
)

// TestResponsePipelineE2E runs the complete cycle: user query → mock
// backend → message units → playback queue → player → rig, with the
// caption track alongside.
func TestResponsePipelineE2E(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	logger := zerolog.Nop()

	backend := testutil.CreateMockBackend(t, testutil.MockBackendScript{
		Messages: []testutil.MockMessage{
			{
				Text:             "Welcome! We have wool beanies on sale.",
				Animation:        "TalkingOne",
				FacialExpression: "smile",
				Audio:            testutil.EncodeAudio([]byte("pcm-one")),
				Lipsync: testutil.LipsyncPayload(0.3,
					[3]any{0.0, 0.1, "A"},
					[3]any{0.1, 0.3, "D"},
				),
			},
			{
				Text:             "Would you like to see them?",
				Animation:        "TalkingThree",
				FacialExpression: "surprised",
				Audio:            testutil.EncodeAudio([]byte("pcm-two")),
				Lipsync: testutil.LipsyncPayload(0.3,
					[3]any{0.0, 0.2, "C"},
				),
			},
		},
		Products: []map[string]any{
			{"id": "hat-1", "name": "Wool Beanie", "price": 19.99},
		},
	})

	// Assemble the pipeline over a synthetic head.
	r := scene.NewRig(scene.NewMesh("Head", []string{
		"browInnerUp", "eyeSquintLeft", "eyeSquintRight",
		"mouthPressLeft", "mouthPressRight", "noseSneerLeft", "noseSneerRight",
		"eyeWideLeft", "eyeWideRight", "jawOpen", "mouthFunnel",
		"viseme_PP", "viseme_kk", "viseme_I", "viseme_AA",
		"viseme_O", "viseme_U", "viseme_FF", "viseme_TH",
	}))
	blender := rig.NewBlender(r)
	expressions := rig.NewExpressions(blender, logger)
	visemes := rig.NewVisemeDriver(blender, logger)
	mixer := anim.NewMixer(anim.DefaultLibrary(), logger)
	sink := audio.NewClockSink(logger)
	events := bus.NewEventBus()

	player := playback.NewPlayer(playback.PlayerDeps{
		Blender: blender,
		Expr:    expressions,
		Visemes: visemes,
		Mixer:   mixer,
		Sink:    sink,
		Events:  events,
	}, 300*time.Millisecond, 50*time.Millisecond, logger)
	defer player.Shutdown()

	driver := playback.NewDriver(events, 300*time.Millisecond, 100*time.Millisecond, 50*time.Millisecond, logger)
	captions := playback.NewCaptionSync(events, 300*time.Millisecond, 100*time.Millisecond, logger)
	orchestrator := playback.NewOrchestrator(driver, captions, events, logger)
	orchestrator.AttachPlayer(player)
	defer orchestrator.Shutdown()

	var started []string
	startedCh := make(chan string, 8)
	events.Subscribe(bus.EventUnitStarted, func(e bus.Event) {
		if text, ok := e.Data["text"].(string); ok {
			startedCh <- text
		}
	})

	// Query the backend.
	cfg := chat.DefaultClientConfig()
	cfg.BaseURL = backend.URL
	client := chat.NewClient(cfg, logger)

	resp, err := client.Ask(context.Background(), "any hats?")
	require.NoError(t, err)
	require.Len(t, resp.Messages, 2)
	require.Len(t, resp.Products, 1)

	// Feed playback and watch both units run in order.
	orchestrator.Enqueue(resp.Messages)

	for i := 0; i < 2; i++ {
		select {
		case text := <-startedCh:
			started = append(started, text)
		case <-time.After(2 * time.Second):
			t.Fatalf("unit %d never started", i)
		}
	}
	assert.Equal(t, "Welcome! We have wool beanies on sale.", started[0])
	assert.Equal(t, "Would you like to see them?", started[1])

	// While the second unit runs its expression is applied.
	assert.Equal(t, "surprised", expressions.Current())
	assert.Equal(t, "TalkingThree", mixer.Current())

	// Let everything drain: declared duration + buffer + grace.
	time.Sleep(800 * time.Millisecond)
	assert.Equal(t, playback.PhaseIdle, player.Phase())
	assert.Equal(t, anim.IdleClip, mixer.Current())
	assert.Equal(t, rig.DefaultExpression, expressions.Current())
	if _, visible := captions.Current(); visible {
		t.Error("expected captions hidden after drain")
	}

	// History round trip.
	history, err := client.History(context.Background())
	require.NoError(t, err)
	assert.Len(t, history, 3) // query + two assistant messages

	require.NoError(t, client.ClearHistory(context.Background()))
	history, err = client.History(context.Background())
	require.NoError(t, err)
	assert.Empty(t, history)
}

// TestResetMidPlaybackE2E interrupts a long batch and verifies nothing
// stale fires afterwards.
func TestResetMidPlaybackE2E(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	logger := zerolog.Nop()
	r := scene.NewRig(scene.NewMesh("Head", []string{
		"viseme_PP", "viseme_kk", "viseme_AA", "jawOpen", "browInnerUp",
		"eyeSquintLeft", "eyeSquintRight", "mouthPressLeft", "mouthPressRight",
		"noseSneerLeft", "noseSneerRight",
	}))
	blender := rig.NewBlender(r)
	expressions := rig.NewExpressions(blender, logger)
	visemes := rig.NewVisemeDriver(blender, logger)
	mixer := anim.NewMixer(anim.DefaultLibrary(), logger)
	events := bus.NewEventBus()

	player := playback.NewPlayer(playback.PlayerDeps{
		Blender: blender,
		Expr:    expressions,
		Visemes: visemes,
		Mixer:   mixer,
		Sink:    audio.NewClockSink(logger),
		Events:  events,
	}, 5*time.Second, 50*time.Millisecond, logger)
	defer player.Shutdown()

	driver := playback.NewDriver(events, 5*time.Second, 100*time.Millisecond, 50*time.Millisecond, logger)
	captions := playback.NewCaptionSync(events, 5*time.Second, 100*time.Millisecond, logger)
	orchestrator := playback.NewOrchestrator(driver, captions, events, logger)
	orchestrator.AttachPlayer(player)
	defer orchestrator.Shutdown()

	units := []*playback.MessageUnit{
		{Text: "a very long message", Animation: "TalkingOne", FacialExpression: "smile",
			Lipsync: &playback.Lipsync{Metadata: playback.LipsyncMeta{Duration: 5}}},
		{Text: "that never plays",
			Lipsync: &playback.Lipsync{Metadata: playback.LipsyncMeta{Duration: 5}}},
	}
	orchestrator.Enqueue(units)

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, playback.PhasePlaying, player.Phase())

	orchestrator.ResetToIdle()

	assert.Equal(t, playback.PhaseIdle, player.Phase())
	assert.Equal(t, 0, orchestrator.Queue().Len())
	if _, visible := captions.Current(); visible {
		t.Error("expected captions hidden after reset")
	}

	// The abandoned units' timers must stay dead.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, playback.PhaseIdle, player.Phase())
	assert.Equal(t, anim.IdleClip, mixer.Current())
}
