// Package config provides configuration management for the Emily avatar engine.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Backend  BackendConfig  `mapstructure:"backend"`
	Avatar   AvatarConfig   `mapstructure:"avatar"`
	Playback PlaybackConfig `mapstructure:"playback"`
	Caption  CaptionConfig  `mapstructure:"caption"`
	Stream   StreamConfig   `mapstructure:"stream"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// BackendConfig configures the chat backend boundary.
type BackendConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Language string        `mapstructure:"language"`
	Token    string        `mapstructure:"token"`
}

// AvatarConfig configures the rig and its ambient motion.
type AvatarConfig struct {
	ModelPath      string        `mapstructure:"model_path"`      // avatar GLB with morph targets
	AnimationsPath string        `mapstructure:"animations_path"` // skeletal clips GLB
	TickRate       int           `mapstructure:"tick_rate"`       // updates per second
	PresetsPath    string        `mapstructure:"presets_path"`    // optional expression overrides (hot reloaded)
	BlinkMinGap    time.Duration `mapstructure:"blink_min_gap"`
	BlinkMaxGap    time.Duration `mapstructure:"blink_max_gap"`
	BlinkHold      time.Duration `mapstructure:"blink_hold"`
}

// PlaybackConfig configures message pacing.
type PlaybackConfig struct {
	DefaultDuration time.Duration `mapstructure:"default_duration"` // used when a unit carries no timing at all
	AdvanceBuffer   time.Duration `mapstructure:"advance_buffer"`   // added to a unit's duration before the next starts
	IdleGrace       time.Duration `mapstructure:"idle_grace"`       // delay before returning to the idle pose
	RetryInterval   time.Duration `mapstructure:"retry_interval"`   // re-check cadence while the player is unavailable
}

// CaptionConfig configures the caption synchronizer.
type CaptionConfig struct {
	LingerBuffer time.Duration `mapstructure:"linger_buffer"` // captions outlast audio by this much
}

// StreamConfig configures the UI websocket hub.
type StreamConfig struct {
	Addr       string `mapstructure:"addr"`
	SendBuffer int    `mapstructure:"send_buffer"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:  "http://localhost:3000",
			Timeout:  60 * time.Second,
			Language: "en",
		},
		Avatar: AvatarConfig{
			ModelPath:      "",
			AnimationsPath: "",
			TickRate:       60,
			BlinkMinGap:    1 * time.Second,
			BlinkMaxGap:    5 * time.Second,
			BlinkHold:      200 * time.Millisecond,
		},
		Playback: PlaybackConfig{
			DefaultDuration: 3 * time.Second,
			AdvanceBuffer:   500 * time.Millisecond,
			IdleGrace:       1 * time.Second,
			RetryInterval:   500 * time.Millisecond,
		},
		Caption: CaptionConfig{
			LingerBuffer: 1 * time.Second,
		},
		Stream: StreamConfig{
			Addr:       "localhost:8765",
			SendBuffer: 64,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Dir returns the configuration directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".emilyavatar"), nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	cfg := Default()

	dir, err := Dir()
	if err != nil {
		return cfg, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return cfg, err
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.AddConfigPath(".")

	v.SetEnvPrefix("EMILYAVATAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Save writes the configuration to the config directory.
func Save(cfg *Config) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	v := viper.New()
	v.Set("backend.base_url", cfg.Backend.BaseURL)
	v.Set("backend.timeout", cfg.Backend.Timeout.String())
	v.Set("backend.language", cfg.Backend.Language)
	v.Set("backend.token", cfg.Backend.Token)
	v.Set("avatar.model_path", cfg.Avatar.ModelPath)
	v.Set("avatar.animations_path", cfg.Avatar.AnimationsPath)
	v.Set("avatar.tick_rate", cfg.Avatar.TickRate)
	v.Set("avatar.presets_path", cfg.Avatar.PresetsPath)
	v.Set("avatar.blink_min_gap", cfg.Avatar.BlinkMinGap.String())
	v.Set("avatar.blink_max_gap", cfg.Avatar.BlinkMaxGap.String())
	v.Set("avatar.blink_hold", cfg.Avatar.BlinkHold.String())
	v.Set("playback.default_duration", cfg.Playback.DefaultDuration.String())
	v.Set("playback.advance_buffer", cfg.Playback.AdvanceBuffer.String())
	v.Set("playback.idle_grace", cfg.Playback.IdleGrace.String())
	v.Set("playback.retry_interval", cfg.Playback.RetryInterval.String())
	v.Set("caption.linger_buffer", cfg.Caption.LingerBuffer.String())
	v.Set("stream.addr", cfg.Stream.Addr)
	v.Set("stream.send_buffer", cfg.Stream.SendBuffer)
	v.Set("logging.level", cfg.Logging.Level)
	v.Set("logging.console", cfg.Logging.Console)

	return v.WriteConfigAs(filepath.Join(dir, "config.yaml"))
}
