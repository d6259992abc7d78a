package playback

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/retailmind/emilyavatar/internal/anim"
	"github.com/retailmind/emilyavatar/internal/audio"
	"github.com/retailmind/emilyavatar/internal/bus"
	"github.com/retailmind/emilyavatar/internal/rig"
)

// Port is the narrow command surface the queue driver depends on. The
// rig-backed Player is the production adapter; tests substitute their
// own.
type Port interface {
	ProcessMessage(unit *MessageUnit)
	ResetToIdle()
}

// Phase is the player's observable state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePlaying
)

// Player presents one message unit at a time: it selects the skeletal
// clip, applies the facial expression, starts audio, and switches
// visemes off the playback position every tick. Completion is signaled
// by the audio ended event, or by a fallback timer when audio is
// missing or broken, so a bad payload never stalls the queue.
type Player struct {
	mu sync.Mutex

	blender *rig.Blender
	expr    *rig.Expressions
	visemes *rig.VisemeDriver
	mixer   *anim.Mixer
	sink    audio.Sink

	events *bus.EventBus
	logger zerolog.Logger
	timers *timerSet

	defaultDuration time.Duration
	idleGrace       time.Duration

	phase      Phase
	unit       *MessageUnit
	cues       []rig.Cue
	finished   bool
	lastViseme string
	graceTimer *time.Timer
	guardTimer *time.Timer
	onComplete func(unit *MessageUnit)
}

// PlayerDeps bundles the rig-side collaborators.
type PlayerDeps struct {
	Blender *rig.Blender
	Expr    *rig.Expressions
	Visemes *rig.VisemeDriver
	Mixer   *anim.Mixer
	Sink    audio.Sink
	Events  *bus.EventBus
}

// NewPlayer creates an idle player.
func NewPlayer(deps PlayerDeps, defaultDuration, idleGrace time.Duration, logger zerolog.Logger) *Player {
	if defaultDuration <= 0 {
		defaultDuration = 3 * time.Second
	}
	if idleGrace <= 0 {
		idleGrace = time.Second
	}
	p := &Player{
		blender:         deps.Blender,
		expr:            deps.Expr,
		visemes:         deps.Visemes,
		mixer:           deps.Mixer,
		sink:            deps.Sink,
		events:          deps.Events,
		logger:          logger.With().Str("component", "player").Logger(),
		timers:          newTimerSet(),
		defaultDuration: defaultDuration,
		idleGrace:       idleGrace,
		phase:           PhaseIdle,
	}
	p.sink.SetOnEnded(p.audioEnded)
	return p
}

// SetOnComplete registers the completion signal consumed by the
// orchestrator.
func (p *Player) SetOnComplete(fn func(unit *MessageUnit)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onComplete = fn
}

// Phase returns the current phase.
func (p *Player) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

// ProcessMessage starts presenting a unit. A unit already playing is
// torn down first; the queue driver's pacing normally prevents that,
// but a forced interrupt must not leak its timers or audio.
func (p *Player) ProcessMessage(unit *MessageUnit) {
	p.mu.Lock()

	if p.phase == PhasePlaying {
		p.teardownLocked()
	}

	p.unit = unit
	p.finished = false
	p.phase = PhasePlaying

	p.blender.MarkTransition()

	if unit.Animation != "" {
		if p.mixer.Play(unit.Animation) {
			p.publish(bus.EventAnimationChanged, map[string]any{"clip": unit.Animation})
		}
	}

	p.expr.Apply(unit.FacialExpression)
	p.publish(bus.EventExpressionChanged, map[string]any{"expression": p.expr.Current()})

	duration := unit.Duration(p.defaultDuration)

	p.cues = unit.Cues()
	if unit.HasAudio() && len(p.cues) == 0 && unit.Text != "" {
		// Audio without a transcript: approximate the mouth from the
		// text rather than leaving it frozen.
		p.cues = SynthesizeCues(unit.Text, duration)
		p.logger.Debug().Int("cues", len(p.cues)).Msg("synthesized mouth cues from text")
	}

	if unit.HasAudio() {
		if err := p.sink.Play(unit.Audio, duration); err != nil {
			p.logger.Warn().Err(err).Msg("audio playback failed, pacing by declared duration")
			p.timers.After(duration, func() { p.finish(unit) })
		} else {
			// The ended event is the normal completion path; the guard
			// fires only if the sink hangs past the declared window.
			p.guardTimer = p.timers.After(duration+500*time.Millisecond, func() { p.finish(unit) })
		}
	} else {
		p.timers.After(duration, func() { p.finish(unit) })
	}

	p.publish(bus.EventUnitStarted, map[string]any{
		"text":     unit.Text,
		"duration": duration.Seconds(),
		"audio":    unit.HasAudio(),
	})

	p.mu.Unlock()
}

// Tick drives viseme selection from the audio position. Called once per
// animation frame by the run loop.
func (p *Player) Tick() {
	p.mu.Lock()
	unit := p.unit
	cues := p.cues
	playing := p.phase == PhasePlaying && unit != nil && unit.HasAudio() && p.sink.Playing()
	p.mu.Unlock()

	if !playing || len(cues) == 0 {
		return
	}
	p.visemes.Drive(p.sink.Position(), cues)

	code := p.visemes.Current()
	p.mu.Lock()
	changed := code != p.lastViseme
	p.lastViseme = code
	p.mu.Unlock()
	if changed {
		p.publish(bus.EventVisemeChanged, map[string]any{"viseme": code})
	}
}

// ResetToIdle forces an immediate return to the resting state: audio
// stopped, timers cancelled, mouth closed, neutral face, idle clip.
func (p *Player) ResetToIdle() {
	p.mu.Lock()
	p.teardownLocked()
	p.restLocked()
	p.mu.Unlock()

	p.publish(bus.EventPlaybackReset, nil)
}

// Shutdown tears everything down and rejects further timers.
func (p *Player) Shutdown() {
	p.mu.Lock()
	p.teardownLocked()
	p.restLocked()
	p.timers.StopAll()
	p.mu.Unlock()
}

func (p *Player) audioEnded() {
	p.mu.Lock()
	unit := p.unit
	p.mu.Unlock()
	if unit != nil {
		p.finish(unit)
	}
}

// finish ends the presentation of one unit: visemes go silent at once,
// and after a short grace the avatar returns to the idle pose. The
// grace stops an abrupt snap to neutral while a caption may still be
// on screen. Idempotent per unit.
func (p *Player) finish(unit *MessageUnit) {
	p.mu.Lock()
	if p.unit != unit || p.finished {
		p.mu.Unlock()
		return
	}
	p.finished = true

	if p.guardTimer != nil {
		p.timers.Cancel(p.guardTimer)
		p.guardTimer = nil
	}

	p.visemes.Silence()

	p.graceTimer = p.timers.After(p.idleGrace, func() {
		p.mu.Lock()
		if p.unit == unit {
			p.restLocked()
		}
		p.mu.Unlock()
	})

	done := p.onComplete
	p.mu.Unlock()

	p.publish(bus.EventUnitCompleted, map[string]any{"text": unit.Text})
	if done != nil {
		done(unit)
	}
}

// teardownLocked stops whatever the previous unit left in flight.
func (p *Player) teardownLocked() {
	p.sink.Stop()
	if p.graceTimer != nil {
		p.timers.Cancel(p.graceTimer)
		p.graceTimer = nil
	}
	if p.guardTimer != nil {
		p.timers.Cancel(p.guardTimer)
		p.guardTimer = nil
	}
	p.timers.CancelAll()
	p.visemes.Silence()
}

// restLocked puts the rig in the resting state. It only runs when no
// successor unit started, which is the queue-drained case, so every
// morph weight is dropped to zero before the neutral face fades in.
func (p *Player) restLocked() {
	p.unit = nil
	p.cues = nil
	p.finished = false
	p.lastViseme = ""
	p.phase = PhaseIdle
	p.blender.ResetAll()
	p.blender.MarkTransition()
	p.mixer.Play(anim.IdleClip)
	p.expr.Apply(rig.DefaultExpression)
}

func (p *Player) publish(t bus.EventType, data map[string]any) {
	if p.events == nil {
		return
	}
	p.events.Publish(bus.Event{Type: t, Data: data})
}
