package playback

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/retailmind/emilyavatar/internal/bus"
)

// Driver paces units through the player. It trusts each unit's declared
// duration: the advance timer is armed when a unit starts, at
// duration plus a fixed buffer, so a corrupt audio payload can delay
// the next unit by at most the buffer. The player's own completion
// signal never gates the queue.
type Driver struct {
	mu sync.Mutex

	player        Port
	queue         []*MessageUnit
	processing    bool
	timers        *timerSet
	events        *bus.EventBus
	logger        zerolog.Logger
	defaultDur    time.Duration
	advanceBuffer time.Duration
	retryInterval time.Duration
}

// NewDriver creates an empty, idle driver. The player may be attached
// later; units enqueued before that are retried, not dropped.
func NewDriver(events *bus.EventBus, defaultDur, advanceBuffer, retryInterval time.Duration, logger zerolog.Logger) *Driver {
	if defaultDur <= 0 {
		defaultDur = 3 * time.Second
	}
	if advanceBuffer <= 0 {
		advanceBuffer = 500 * time.Millisecond
	}
	if retryInterval <= 0 {
		retryInterval = 500 * time.Millisecond
	}
	return &Driver{
		timers:        newTimerSet(),
		events:        events,
		logger:        logger.With().Str("component", "queue").Logger(),
		defaultDur:    defaultDur,
		advanceBuffer: advanceBuffer,
		retryInterval: retryInterval,
	}
}

// AttachPlayer wires the playback port.
func (d *Driver) AttachPlayer(p Port) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.player = p
}

// Enqueue appends units in order and starts processing if the queue
// was quiescent.
func (d *Driver) Enqueue(units ...*MessageUnit) {
	if len(units) == 0 {
		return
	}
	d.mu.Lock()
	d.queue = append(d.queue, units...)
	start := !d.processing
	if start {
		d.processing = true
	}
	d.mu.Unlock()

	if start {
		d.processNext()
	}
}

// Len reports pending units, not counting the one currently playing.
func (d *Driver) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Clear drops all pending units and cancels the advance timer. The
// unit currently in the player is not touched; callers wanting a full
// stop reset the player too.
func (d *Driver) Clear() {
	d.mu.Lock()
	d.queue = nil
	d.processing = false
	d.timers.CancelAll()
	d.mu.Unlock()
}

// Shutdown stops the driver permanently.
func (d *Driver) Shutdown() {
	d.mu.Lock()
	d.queue = nil
	d.processing = false
	d.timers.StopAll()
	d.mu.Unlock()
}

func (d *Driver) processNext() {
	d.mu.Lock()

	if len(d.queue) == 0 {
		d.processing = false
		d.mu.Unlock()
		d.publish(bus.EventQueueDrained, nil)
		return
	}

	if d.player == nil {
		// Renderer not up yet. Hold the queue and retry.
		d.timers.After(d.retryInterval, d.processNext)
		d.mu.Unlock()
		return
	}

	unit := d.queue[0]
	d.queue = d.queue[1:]
	player := d.player

	hold := unit.Duration(d.defaultDur) + d.advanceBuffer
	d.timers.After(hold, d.processNext)
	d.mu.Unlock()

	d.logger.Debug().
		Str("text", unit.Text).
		Dur("hold", hold).
		Msg("dispatching unit")
	player.ProcessMessage(unit)
}

func (d *Driver) publish(t bus.EventType, data map[string]any) {
	if d.events == nil {
		return
	}
	d.events.Publish(bus.Event{Type: t, Data: data})
}
