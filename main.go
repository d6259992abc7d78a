package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/retailmind/emilyavatar/internal/anim"
	"github.com/retailmind/emilyavatar/internal/app"
	"github.com/retailmind/emilyavatar/internal/audio"
	"github.com/retailmind/emilyavatar/internal/bus"
	"github.com/retailmind/emilyavatar/internal/chat"
	"github.com/retailmind/emilyavatar/internal/config"
	"github.com/retailmind/emilyavatar/internal/logging"
	"github.com/retailmind/emilyavatar/internal/playback"
	"github.com/retailmind/emilyavatar/internal/rig"
	"github.com/retailmind/emilyavatar/internal/scene"
	"github.com/retailmind/emilyavatar/internal/stream"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "emilyavatar:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Console = cfg.Logging.Console
	logger, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logger.Close()

	log := logger.Zerolog()
	log.Info().Str("backend", cfg.Backend.BaseURL).Str("stream", cfg.Stream.Addr).Msg("starting emily avatar")

	events := bus.NewEventBus()

	avatarRig := loadRig(cfg, log)

	blender := rig.NewBlender(avatarRig)
	expressions := rig.NewExpressions(blender, log)
	visemes := rig.NewVisemeDriver(blender, log)
	blinker := rig.NewBlinker(blender, cfg.Avatar.BlinkMinGap, cfg.Avatar.BlinkMaxGap, cfg.Avatar.BlinkHold, log)

	var watcher *rig.PresetWatcher
	if cfg.Avatar.PresetsPath != "" {
		w, err := rig.NewPresetWatcher(cfg.Avatar.PresetsPath, expressions, log)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.Avatar.PresetsPath).Msg("preset file unusable, using built-ins")
		} else {
			watcher = w
		}
	}

	library := anim.DefaultLibrary()
	if cfg.Avatar.AnimationsPath != "" {
		if loaded, err := anim.LoadLibrary(cfg.Avatar.AnimationsPath); err != nil {
			log.Warn().Err(err).Str("path", cfg.Avatar.AnimationsPath).Msg("animation file unusable, using built-in clips")
		} else {
			library = loaded
		}
	}
	mixer := anim.NewMixer(library, log)

	sink := audio.NewClockSink(log)

	player := playback.NewPlayer(playback.PlayerDeps{
		Blender: blender,
		Expr:    expressions,
		Visemes: visemes,
		Mixer:   mixer,
		Sink:    sink,
		Events:  events,
	}, cfg.Playback.DefaultDuration, cfg.Playback.IdleGrace, log)

	driver := playback.NewDriver(events, cfg.Playback.DefaultDuration, cfg.Playback.AdvanceBuffer, cfg.Playback.RetryInterval, log)
	captions := playback.NewCaptionSync(events, cfg.Playback.DefaultDuration, cfg.Caption.LingerBuffer, log)
	orchestrator := playback.NewOrchestrator(driver, captions, events, log)
	orchestrator.AttachPlayer(player)

	chatClient := chat.NewClient(&chat.ClientConfig{
		BaseURL:  cfg.Backend.BaseURL,
		Timeout:  cfg.Backend.Timeout,
		Language: cfg.Backend.Language,
		Token:    cfg.Backend.Token,
	}, log)
	chatLog := chat.NewLog(chat.DefaultLogConfig())

	hub := stream.NewHub(cfg.Stream.Addr, cfg.Stream.SendBuffer, log)

	logger.SetOnEntry(func(e logging.Entry) {
		hub.Broadcast(stream.Frame{Type: stream.FrameLog, Log: e.Message, Level: e.Level})
	})

	a := app.New(app.Options{
		Config:       cfg,
		Logger:       log,
		Events:       events,
		Rig:          avatarRig,
		Blender:      blender,
		Expressions:  expressions,
		Visemes:      visemes,
		Blinker:      blinker,
		Mixer:        mixer,
		Player:       player,
		Orchestrator: orchestrator,
		ChatClient:   chatClient,
		ChatLog:      chatLog,
		Hub:          hub,
		Watcher:      watcher,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return a.Run(ctx)
}

// loadRig opens the configured GLB, falling back to a synthetic head so
// the pipeline still runs without a model on disk.
func loadRig(cfg *config.Config, log zerolog.Logger) *scene.Rig {
	if cfg.Avatar.ModelPath != "" {
		r, err := scene.LoadRig(cfg.Avatar.ModelPath)
		if err == nil {
			log.Info().Str("path", cfg.Avatar.ModelPath).Msg("avatar model loaded")
			return r
		}
		log.Warn().Err(err).Str("path", cfg.Avatar.ModelPath).Msg("avatar model unusable, using synthetic rig")
	}
	return syntheticRig()
}

// syntheticRig carries the morph targets the controllers drive, so a
// headless run still produces weight streams.
func syntheticRig() *scene.Rig {
	targets := []string{
		"eyeBlinkLeft", "eyeBlinkRight",
		"browInnerUp", "browDownLeft", "browDownRight",
		"cheekPuff", "cheekSquintLeft", "cheekSquintRight",
		"eyeSquintLeft", "eyeSquintRight", "eyeWideLeft", "eyeWideRight",
		"eyeLookUpLeft", "eyeLookUpRight", "eyeLookDownLeft", "eyeLookDownRight",
		"jawOpen", "jawForward", "jawLeft",
		"mouthSmileLeft", "mouthSmileRight", "mouthFrownLeft", "mouthFrownRight",
		"mouthDimpleLeft", "mouthPressLeft", "mouthPressRight",
		"mouthPucker", "mouthFunnel", "mouthLeft", "mouthClose",
		"mouthRollLower", "mouthShrugLower",
		"noseSneerLeft", "noseSneerRight",
		"viseme_PP", "viseme_kk", "viseme_I", "viseme_AA",
		"viseme_O", "viseme_U", "viseme_FF", "viseme_TH",
	}
	return scene.NewRig(scene.NewMesh("Head", targets))
}
