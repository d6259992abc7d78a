package rig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// PresetWatcher hot-reloads expression presets from a JSON tuning file.
// Artists adjust blend weights without restarting the engine.
type PresetWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	expr    *Expressions
	logger  zerolog.Logger
	done    chan struct{}
}

// LoadPresets parses a preset file: a JSON object mapping expression
// keys to target-name/weight objects.
func LoadPresets(path string) (map[string]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	var presets map[string]Preset
	if err := json.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	return presets, nil
}

// NewPresetWatcher loads the file once and then reloads it on every
// write. The watch is on the directory: editors that replace the file
// would otherwise drop the watch.
func NewPresetWatcher(path string, expr *Expressions, logger zerolog.Logger) (*PresetWatcher, error) {
	presets, err := LoadPresets(path)
	if err != nil {
		return nil, err
	}
	expr.SetPresets(presets)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	pw := &PresetWatcher{
		watcher: watcher,
		path:    path,
		expr:    expr,
		logger:  logger.With().Str("component", "presets").Logger(),
		done:    make(chan struct{}),
	}

	go pw.watchLoop()

	return pw, nil
}

// Close stops the watcher.
func (pw *PresetWatcher) Close() error {
	close(pw.done)
	return pw.watcher.Close()
}

func (pw *PresetWatcher) watchLoop() {
	for {
		select {
		case <-pw.done:
			return
		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			if event.Name != pw.path || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			presets, err := LoadPresets(pw.path)
			if err != nil {
				pw.logger.Error().Err(err).Msg("preset reload failed, keeping previous table")
				continue
			}
			pw.expr.SetPresets(presets)
			pw.logger.Info().Int("expressions", len(presets)).Msg("expression presets reloaded")
		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			pw.logger.Warn().Err(err).Msg("preset watcher error")
		}
	}
}
