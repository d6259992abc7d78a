// Package logging provides structured logging with file and console output.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Entry is a single log record kept in history and streamed to the UI.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// Config holds logger configuration.
type Config struct {
	LogDir     string // directory for log files (default: ~/.emilyavatar/logs)
	Level      string // minimum level: debug, info, warn, error (default: info)
	MaxHistory int    // max entries kept in memory (default: 500)
	Console    bool   // also log to stdout (default: true)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		LogDir:     filepath.Join(home, ".emilyavatar", "logs"),
		Level:      "info",
		MaxHistory: 500,
		Console:    true,
	}
}

// Logger wraps zerolog with file output and a bounded in-memory history.
type Logger struct {
	zlog zerolog.Logger
	file *os.File
	path string

	mu      sync.RWMutex
	history []Entry
	maxHist int
	onEntry func(Entry)
}

// New creates a Logger writing to a date-stamped file and optionally stdout.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	path := filepath.Join(cfg.LogDir, fmt.Sprintf("emilyavatar_%s.log", time.Now().Format("2006-01-02")))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	writers := []io.Writer{file}
	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"})
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	l := &Logger{
		file:    file,
		path:    path,
		history: make([]Entry, 0, cfg.MaxHistory),
		maxHist: cfg.MaxHistory,
	}

	l.zlog = zerolog.New(io.MultiWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Str("app", "emilyavatar").
		Logger().
		Hook(historyHook{l})

	return l, nil
}

// Component returns a child logger tagged with the component name.
func (l *Logger) Component(name string) zerolog.Logger {
	return l.zlog.With().Str("component", name).Logger()
}

// Zerolog returns the underlying logger.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zlog
}

// SetOnEntry registers a callback invoked for every emitted record.
// Used to stream log entries to connected UI clients.
func (l *Logger) SetOnEntry(fn func(Entry)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onEntry = fn
}

// History returns up to limit of the most recent entries, oldest first.
func (l *Logger) History(limit int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 || limit > len(l.history) {
		limit = len(l.history)
	}
	out := make([]Entry, limit)
	copy(out, l.history[len(l.history)-limit:])
	return out
}

// Path returns the active log file path.
func (l *Logger) Path() string {
	return l.path
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) record(e Entry) {
	l.mu.Lock()
	l.history = append(l.history, e)
	if len(l.history) > l.maxHist {
		l.history = l.history[len(l.history)-l.maxHist:]
	}
	fn := l.onEntry
	l.mu.Unlock()

	if fn != nil {
		go fn(e)
	}
}

// historyHook mirrors every record into the in-memory history.
type historyHook struct {
	l *Logger
}

func (h historyHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	if level == zerolog.NoLevel {
		return
	}
	h.l.record(Entry{
		Timestamp: time.Now().Format("15:04:05.000"),
		Level:     level.String(),
		Message:   msg,
	})
}
