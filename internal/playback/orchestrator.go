package playback

import (
	"github.com/rs/zerolog"

	"github.com/retailmind/emilyavatar/internal/bus"
)

// Orchestrator is the single entry point for response batches. It
// validates units, feeds the playback queue and the caption queue, and
// owns teardown for both.
type Orchestrator struct {
	driver   *Driver
	captions *CaptionSync
	player   *Player
	events   *bus.EventBus
	logger   zerolog.Logger
}

// NewOrchestrator wires the two pipelines together.
func NewOrchestrator(driver *Driver, captions *CaptionSync, events *bus.EventBus, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		driver:   driver,
		captions: captions,
		events:   events,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
	}
}

// AttachPlayer makes the rig-backed player available to the queue. The
// driver holds units enqueued before this point. The completion signal
// is observational only; queue pacing runs off declared durations.
func (o *Orchestrator) AttachPlayer(p *Player) {
	o.player = p
	p.SetOnComplete(func(u *MessageUnit) {
		o.logger.Debug().Str("text", u.Text).Int("queued", o.driver.Len()).Msg("unit presentation finished")
	})
	o.driver.AttachPlayer(p)
}

// Enqueue accepts a response batch. Malformed units are logged and
// played anyway with their declared pacing; an empty batch is a no-op.
func (o *Orchestrator) Enqueue(units []*MessageUnit) {
	if len(units) == 0 {
		return
	}
	for _, u := range units {
		if err := u.Validate(); err != nil {
			o.logger.Warn().Err(err).Str("text", u.Text).Msg("malformed message unit")
		}
	}
	if o.events != nil {
		o.events.Publish(bus.Event{Type: bus.EventBatchReceived, Data: map[string]any{"units": len(units)}})
	}
	o.driver.Enqueue(units...)
	o.captions.Enqueue(units...)
}

// Captions exposes the caption synchronizer for display wiring.
func (o *Orchestrator) Captions() *CaptionSync {
	return o.captions
}

// Queue exposes the playback driver.
func (o *Orchestrator) Queue() *Driver {
	return o.driver
}

// ResetToIdle abandons everything in flight: pending units dropped,
// current unit stopped, captions hidden, rig returned to the resting
// pose.
func (o *Orchestrator) ResetToIdle() {
	o.driver.Clear()
	o.captions.ClearAll()
	if o.player != nil {
		o.player.ResetToIdle()
	}
}

// Shutdown tears down both pipelines permanently.
func (o *Orchestrator) Shutdown() {
	o.driver.Shutdown()
	o.captions.Shutdown()
	if o.player != nil {
		o.player.Shutdown()
	}
}
