package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when GENRESCOPE_CONFIG is unset.
const DefaultPath = "config.yaml"

type Config struct {
	Backend    BackendConfig    `yaml:"backend"`
	Health     HealthConfig     `yaml:"health"`
	Capture    CaptureConfig    `yaml:"capture"`
	System     SystemConfig     `yaml:"system"`
	Visualizer VisualizerConfig `yaml:"visualizer"`
	Notify     NotifyConfig     `yaml:"notify"`
	Web        WebConfig        `yaml:"web"`
	Log        LogConfig        `yaml:"log"`
}

type BackendConfig struct {
	URL        string `yaml:"url"`         // prediction service base URL
	TimeoutSec int    `yaml:"timeout_sec"` // per request
}

type HealthConfig struct {
	IntervalSec int `yaml:"interval_sec"`
}

type CaptureConfig struct {
	FFmpeg     string `yaml:"ffmpeg"`      // binary path
	Format     string `yaml:"format"`      // ffmpeg input format, e.g. "pulse", "alsa", "avfoundation"
	Device     string `yaml:"device"`      // ffmpeg input device
	MaxSeconds int    `yaml:"max_seconds"` // recording stops by itself after this
}

// SystemConfig bounds the system capture duration slider.
type SystemConfig struct {
	MinSeconds     int `yaml:"min_seconds"`
	MaxSeconds     int `yaml:"max_seconds"`
	DefaultSeconds int `yaml:"default_seconds"`
}

type VisualizerConfig struct {
	FPS     int `yaml:"fps"`
	Bars    int `yaml:"bars"`
	FFTSize int `yaml:"fft_size"` // power of two
}

type NotifyConfig struct {
	DismissSec int `yaml:"dismiss_sec"`
}

type WebConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug|info|warn|error
}

// Defaults returns the configuration used when no file is present.
func Defaults() *Config {
	return &Config{
		Backend:    BackendConfig{URL: "http://localhost:8000", TimeoutSec: 120},
		Health:     HealthConfig{IntervalSec: 10},
		Capture:    CaptureConfig{FFmpeg: "ffmpeg", Format: "pulse", Device: "default", MaxSeconds: 30},
		System:     SystemConfig{MinSeconds: 5, MaxSeconds: 30, DefaultSeconds: 10},
		Visualizer: VisualizerConfig{FPS: 30, Bars: 64, FFTSize: 256},
		Notify:     NotifyConfig{DismissSec: 5},
		Web:        WebConfig{Port: 8899},
		Log:        LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Debug("no config file, using defaults", "path", path)
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the config file location from GENRESCOPE_CONFIG.
func Path() string {
	if p := os.Getenv("GENRESCOPE_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GENRESCOPE_BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv("GENRESCOPE_WEB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Web.Port = port
		} else {
			slog.Warn("ignoring invalid GENRESCOPE_WEB_PORT", "value", v)
		}
	}
	if v := os.Getenv("GENRESCOPE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate rejects values the rest of the program cannot work with.
func (c *Config) Validate() error {
	c.Backend.URL = strings.TrimRight(c.Backend.URL, "/")
	if c.Backend.URL == "" {
		return errors.New("backend.url is required")
	}
	if c.System.MinSeconds <= 0 || c.System.MinSeconds > c.System.MaxSeconds {
		return fmt.Errorf("system duration bounds %d..%d are invalid", c.System.MinSeconds, c.System.MaxSeconds)
	}
	if c.System.DefaultSeconds < c.System.MinSeconds || c.System.DefaultSeconds > c.System.MaxSeconds {
		return fmt.Errorf("system.default_seconds %d outside %d..%d",
			c.System.DefaultSeconds, c.System.MinSeconds, c.System.MaxSeconds)
	}
	if n := c.Visualizer.FFTSize; n < 2 || n&(n-1) != 0 {
		return fmt.Errorf("visualizer.fft_size %d is not a power of two", n)
	}
	if c.Visualizer.FPS <= 0 || c.Visualizer.Bars <= 0 {
		return errors.New("visualizer.fps and visualizer.bars must be positive")
	}
	if c.Notify.DismissSec <= 0 {
		return fmt.Errorf("notify.dismiss_sec %d must be positive", c.Notify.DismissSec)
	}
	if c.Health.IntervalSec <= 0 || c.Capture.MaxSeconds <= 0 || c.Backend.TimeoutSec <= 0 {
		return errors.New("health.interval_sec, capture.max_seconds and backend.timeout_sec must be positive")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

func (c *Config) HealthInterval() time.Duration {
	return time.Duration(c.Health.IntervalSec) * time.Second
}

func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSec) * time.Second
}

func (c *Config) MaxRecord() time.Duration {
	return time.Duration(c.Capture.MaxSeconds) * time.Second
}

func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.Visualizer.FPS)
}

// DismissDelay is the toast lifetime.
func (c *Config) DismissDelay() time.Duration {
	return time.Duration(c.Notify.DismissSec) * time.Second
}

// ParseLevel maps log.level onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", s, err)
	}
	return lvl, nil
}
