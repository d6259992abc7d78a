// Package audio abstracts speech playback for the pipeline. Decoded
// output is produced by the rendering client; the engine only needs a
// playback position to drive visemes and an ended signal. A Sink is the
// narrow surface both the real client bridge and the in-process clock
// pacer implement.
package audio

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrEmptyPayload is returned when a message carries a zero-length
// audio buffer.
var ErrEmptyPayload = errors.New("audio: empty payload")

// Sink plays one utterance at a time. Play is asynchronous: it returns
// once playback is scheduled, and the ended callback fires later on the
// sink's own schedule. Starting a new payload stops the previous one
// without firing its ended callback.
type Sink interface {
	// Play starts playback of an encoded payload. declared is the
	// upstream-reported duration, used by sinks that cannot measure
	// the payload themselves.
	Play(data []byte, declared time.Duration) error
	// Position is seconds since playback started, 0 when idle.
	Position() float64
	// Playing reports whether an utterance is in flight.
	Playing() bool
	// SetOnEnded registers the playback-finished callback.
	SetOnEnded(fn func())
	// Stop halts playback; no ended callback fires.
	Stop()
}

// ClockSink paces playback against the wall clock using the declared
// duration. It is the default sink when the engine runs headless or the
// rendering client handles actual audio output itself.
type ClockSink struct {
	mu sync.Mutex

	logger  zerolog.Logger
	start   time.Time
	playing bool
	timer   *time.Timer
	onEnded func()
}

// NewClockSink creates an idle sink.
func NewClockSink(logger zerolog.Logger) *ClockSink {
	return &ClockSink{
		logger: logger.With().Str("component", "audio").Logger(),
	}
}

// Play schedules the ended callback after the declared duration.
func (s *ClockSink) Play(data []byte, declared time.Duration) error {
	if len(data) == 0 {
		return ErrEmptyPayload
	}
	if declared <= 0 {
		return errors.New("audio: non-positive duration")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.start = time.Now()
	s.playing = true
	s.timer = time.AfterFunc(declared, s.ended)

	s.logger.Debug().Dur("duration", declared).Int("bytes", len(data)).Msg("playback started")
	return nil
}

// Position returns seconds into the current utterance.
func (s *ClockSink) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing {
		return 0
	}
	return time.Since(s.start).Seconds()
}

// Playing reports whether an utterance is in flight.
func (s *ClockSink) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// SetOnEnded registers the playback-finished callback.
func (s *ClockSink) SetOnEnded(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEnded = fn
}

// Stop halts playback without firing the ended callback.
func (s *ClockSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.playing = false
}

func (s *ClockSink) ended() {
	s.mu.Lock()
	if !s.playing {
		s.mu.Unlock()
		return
	}
	s.playing = false
	s.timer = nil
	fn := s.onEnded
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}
