// Package app wires the avatar together and runs its frame loop.
package app

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/retailmind/emilyavatar/internal/anim"
	"github.com/retailmind/emilyavatar/internal/bus"
	"github.com/retailmind/emilyavatar/internal/chat"
	"github.com/retailmind/emilyavatar/internal/config"
	"github.com/retailmind/emilyavatar/internal/playback"
	"github.com/retailmind/emilyavatar/internal/rig"
	"github.com/retailmind/emilyavatar/internal/scene"
	"github.com/retailmind/emilyavatar/internal/stream"
)

// App owns the assembled avatar: the rig controllers, the playback
// pipelines, the backend client, and the stream hub.
type App struct {
	cfg    *config.Config
	logger zerolog.Logger
	events *bus.EventBus

	rig          *scene.Rig
	blender      *rig.Blender
	expressions  *rig.Expressions
	visemes      *rig.VisemeDriver
	blinker      *rig.Blinker
	mixer        *anim.Mixer
	player       *playback.Player
	orchestrator *playback.Orchestrator
	chatClient   *chat.Client
	chatLog      *chat.Log
	hub          *stream.Hub
	watcher      *rig.PresetWatcher
}

// Options collects the pieces main assembles.
type Options struct {
	Config       *config.Config
	Logger       zerolog.Logger
	Events       *bus.EventBus
	Rig          *scene.Rig
	Blender      *rig.Blender
	Expressions  *rig.Expressions
	Visemes      *rig.VisemeDriver
	Blinker      *rig.Blinker
	Mixer        *anim.Mixer
	Player       *playback.Player
	Orchestrator *playback.Orchestrator
	ChatClient   *chat.Client
	ChatLog      *chat.Log
	Hub          *stream.Hub
	Watcher      *rig.PresetWatcher
}

// New builds the app from pre-wired components.
func New(opts Options) *App {
	a := &App{
		cfg:          opts.Config,
		logger:       opts.Logger.With().Str("component", "app").Logger(),
		events:       opts.Events,
		rig:          opts.Rig,
		blender:      opts.Blender,
		expressions:  opts.Expressions,
		visemes:      opts.Visemes,
		blinker:      opts.Blinker,
		mixer:        opts.Mixer,
		player:       opts.Player,
		orchestrator: opts.Orchestrator,
		chatClient:   opts.ChatClient,
		chatLog:      opts.ChatLog,
		hub:          opts.Hub,
		watcher:      opts.Watcher,
	}
	if a.chatLog == nil {
		a.chatLog = chat.NewLog(chat.DefaultLogConfig())
	}
	return a
}

// Run starts the frame loop and the stream hub, and blocks until the
// context is cancelled. Teardown is ordered: pipelines first, then the
// blinker, then the preset watcher.
func (a *App) Run(ctx context.Context) error {
	a.hub.SetQueryHandler(func(query string) {
		go a.handleQuery(ctx, query)
	})
	a.hub.SetHelloFrame(a.sceneFrame())
	a.wireEvents()

	a.blinker.Start()
	a.mixer.Play(anim.IdleClip)
	a.expressions.Apply(rig.DefaultExpression)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.hub.Run(ctx)
	})

	g.Go(func() error {
		return a.frameLoop(ctx)
	})

	err := g.Wait()

	a.orchestrator.Shutdown()
	a.blinker.Stop()
	if a.watcher != nil {
		a.watcher.Close()
	}

	if err == context.Canceled {
		return nil
	}
	return err
}

// Ask submits a user query to the backend and enqueues the reply for
// playback. Products go straight to the display clients.
func (a *App) Ask(ctx context.Context, query string) error {
	resp, err := a.chatClient.Ask(ctx, query)
	if err != nil {
		a.events.Publish(bus.Event{Type: bus.EventChatError, Data: map[string]any{"error": err.Error()}})
		return err
	}

	a.orchestrator.Enqueue(resp.Messages)
	a.chatLog.Add(query, joinMessageTexts(resp.Messages))

	if len(resp.Products) > 0 {
		a.events.Publish(bus.Event{Type: bus.EventProducts, Data: map[string]any{"products": resp.Products}})
	}
	return nil
}

// Reset abandons playback and clears the conversation, both the local
// mirror and the backend's stored history.
func (a *App) Reset(ctx context.Context) error {
	a.orchestrator.ResetToIdle()
	a.chatLog.Clear()
	return a.chatClient.ClearHistory(ctx)
}

// RecentExchanges returns the local conversation mirror for display.
func (a *App) RecentExchanges(n int) []chat.Exchange {
	return a.chatLog.Recent(n)
}

func joinMessageTexts(units []*playback.MessageUnit) string {
	parts := make([]string, 0, len(units))
	for _, u := range units {
		if u.Text != "" {
			parts = append(parts, u.Text)
		}
	}
	return strings.Join(parts, " ")
}

func (a *App) handleQuery(ctx context.Context, query string) {
	qctx, cancel := context.WithTimeout(ctx, a.cfg.Backend.Timeout)
	defer cancel()
	if err := a.Ask(qctx, query); err != nil {
		a.logger.Error().Err(err).Str("query", query).Msg("query failed")
	}
}

// frameLoop advances the rig at the configured tick rate and streams
// the resulting weights.
func (a *App) frameLoop(ctx context.Context) error {
	interval := time.Second / time.Duration(a.cfg.Avatar.TickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			dt := float32(now.Sub(last).Seconds())
			last = now

			a.player.Tick()
			a.blender.Update()
			a.mixer.Update(dt)

			if a.hub.Subscribers() > 0 {
				a.hub.Broadcast(stream.Frame{
					Type:       stream.FrameWeights,
					Weights:    a.currentWeights(),
					Clip:       a.mixer.Current(),
					Expression: a.expressions.Current(),
				})
			}
		}
	}
}

// sceneFrame captures each mesh's placement so a client can lay out
// the scene before the first weights frame.
func (a *App) sceneFrame() stream.Frame {
	meshes := a.rig.Meshes()
	placements := make([]stream.MeshPlacement, 0, len(meshes))
	for _, m := range meshes {
		placements = append(placements, stream.MeshPlacement{
			Name:   m.Name,
			Matrix: [16]float32(m.ModelMatrix()),
		})
	}
	return stream.Frame{Type: stream.FrameScene, Meshes: placements}
}

func (a *App) currentWeights() map[string]float32 {
	names := a.rig.TargetNames()
	weights := make(map[string]float32, len(names))
	for _, name := range names {
		if w, ok := a.rig.Influence(name); ok {
			weights[name] = w
		}
	}
	return weights
}

// wireEvents forwards caption and product events to display clients.
func (a *App) wireEvents() {
	a.events.Subscribe(bus.EventCaptionShown, func(e bus.Event) {
		text, _ := e.Data["text"].(string)
		a.hub.Broadcast(stream.Frame{Type: stream.FrameCaption, Caption: text, Visible: true})
	})
	a.events.Subscribe(bus.EventCaptionHidden, func(e bus.Event) {
		a.hub.Broadcast(stream.Frame{Type: stream.FrameCaption, Visible: false})
	})
	a.events.Subscribe(bus.EventProducts, func(e bus.Event) {
		raw, err := marshalProducts(e.Data["products"])
		if err != nil {
			a.logger.Warn().Err(err).Msg("failed to encode products")
			return
		}
		a.hub.Broadcast(stream.Frame{Type: stream.FrameProducts, Products: raw})
	})
}
