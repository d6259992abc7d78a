package chat

import (
	"sync"
	"time"
)

// Exchange is one local user/assistant turn.
type Exchange struct {
	UserText      string    `json:"userText"`
	AssistantText string    `json:"assistantText"`
	Timestamp     time.Time `json:"timestamp"`
}

// LogConfig bounds the local conversation log.
type LogConfig struct {
	// MaxExchanges is the number of turns retained (default: 20)
	MaxExchanges int
	// InactivityTimeout expires the log after a quiet period
	// (default: 10 minutes)
	InactivityTimeout time.Duration
}

// DefaultLogConfig returns sensible defaults.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		MaxExchanges:      20,
		InactivityTimeout: 10 * time.Minute,
	}
}

// Log mirrors the conversation locally so the display can show recent
// turns without a round trip, and so a long-idle kiosk starts visually
// fresh for the next shopper. The backend keeps the authoritative
// history; this is a bounded cache.
type Log struct {
	mu           sync.RWMutex
	exchanges    []Exchange
	lastActivity time.Time
	config       LogConfig
}

// NewLog creates an empty log. Zero config fields fall back to
// defaults.
func NewLog(config LogConfig) *Log {
	if config.MaxExchanges <= 0 {
		config.MaxExchanges = 20
	}
	if config.InactivityTimeout <= 0 {
		config.InactivityTimeout = 10 * time.Minute
	}
	return &Log{
		exchanges:    make([]Exchange, 0, config.MaxExchanges),
		lastActivity: time.Now(),
		config:       config,
	}
}

// Add records one turn, trimming the oldest past the retention bound.
// An expired log is cleared first.
func (l *Log) Add(userText, assistantText string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.expiredLocked() {
		l.exchanges = l.exchanges[:0]
	}

	l.exchanges = append(l.exchanges, Exchange{
		UserText:      userText,
		AssistantText: assistantText,
		Timestamp:     time.Now(),
	})
	if len(l.exchanges) > l.config.MaxExchanges {
		l.exchanges = l.exchanges[len(l.exchanges)-l.config.MaxExchanges:]
	}
	l.lastActivity = time.Now()
}

// Recent returns up to n newest turns, oldest first. n <= 0 returns
// everything retained.
func (l *Log) Recent(n int) []Exchange {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.expiredLocked() {
		return nil
	}

	out := l.exchanges
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return append([]Exchange(nil), out...)
}

// Len reports retained turns, zero once the log has expired.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.expiredLocked() {
		return 0
	}
	return len(l.exchanges)
}

// Clear drops everything.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.exchanges = l.exchanges[:0]
	l.lastActivity = time.Now()
}

func (l *Log) expiredLocked() bool {
	return time.Since(l.lastActivity) > l.config.InactivityTimeout
}
