package playback

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/retailmind/emilyavatar/internal/bus"
)

// CaptionSync runs its own queue of caption texts beside the player.
// Each caption stays up for its unit's declared duration plus a linger
// buffer, so the text outlives the audio slightly instead of vanishing
// mid-word. It never consults the player: the two pipelines share only
// the declared durations.
type CaptionSync struct {
	mu sync.Mutex

	queue      []*MessageUnit
	processing bool
	current    string
	visible    bool

	timers       *timerSet
	events       *bus.EventBus
	logger       zerolog.Logger
	defaultDur   time.Duration
	lingerBuffer time.Duration
	onChange     func(text string, visible bool)
}

// NewCaptionSync creates a hidden, empty synchronizer.
func NewCaptionSync(events *bus.EventBus, defaultDur, lingerBuffer time.Duration, logger zerolog.Logger) *CaptionSync {
	if defaultDur <= 0 {
		defaultDur = 3 * time.Second
	}
	if lingerBuffer <= 0 {
		lingerBuffer = time.Second
	}
	return &CaptionSync{
		timers:       newTimerSet(),
		events:       events,
		logger:       logger.With().Str("component", "captions").Logger(),
		defaultDur:   defaultDur,
		lingerBuffer: lingerBuffer,
	}
}

// SetOnChange registers the display callback. Invoked without the
// synchronizer's lock held.
func (c *CaptionSync) SetOnChange(fn func(text string, visible bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// Enqueue adds the text-bearing units of a batch. Units with empty
// text are skipped here; the player still presents them.
func (c *CaptionSync) Enqueue(units ...*MessageUnit) {
	c.mu.Lock()
	for _, u := range units {
		if u.Text == "" {
			continue
		}
		c.queue = append(c.queue, u)
	}
	start := !c.processing && len(c.queue) > 0
	if start {
		c.processing = true
	}
	c.mu.Unlock()

	if start {
		c.advance()
	}
}

// Current returns the caption text and whether one is on screen.
func (c *CaptionSync) Current() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.visible
}

// ClearAll hides the caption immediately and drops everything pending.
func (c *CaptionSync) ClearAll() {
	c.mu.Lock()
	c.queue = nil
	c.processing = false
	c.timers.CancelAll()
	wasVisible := c.visible
	c.current = ""
	c.visible = false
	notify := c.onChange
	c.mu.Unlock()

	if wasVisible {
		c.publish(bus.EventCaptionHidden, nil)
		if notify != nil {
			notify("", false)
		}
	}
}

// Shutdown stops the synchronizer permanently.
func (c *CaptionSync) Shutdown() {
	c.ClearAll()
	c.timers.StopAll()
}

func (c *CaptionSync) advance() {
	c.mu.Lock()

	if len(c.queue) == 0 {
		c.processing = false
		wasVisible := c.visible
		c.current = ""
		c.visible = false
		notify := c.onChange
		c.mu.Unlock()

		if wasVisible {
			c.publish(bus.EventCaptionHidden, nil)
			if notify != nil {
				notify("", false)
			}
		}
		return
	}

	unit := c.queue[0]
	c.queue = c.queue[1:]
	c.current = unit.Text
	c.visible = true
	hold := unit.Duration(c.defaultDur) + c.lingerBuffer
	c.timers.After(hold, c.advance)
	notify := c.onChange
	c.mu.Unlock()

	c.publish(bus.EventCaptionShown, map[string]any{"text": unit.Text})
	if notify != nil {
		notify(unit.Text, true)
	}
}

func (c *CaptionSync) publish(t bus.EventType, data map[string]any) {
	if c.events == nil {
		return
	}
	c.events.Publish(bus.Event{Type: t, Data: data})
}
