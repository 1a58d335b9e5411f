// Package config loads the strokereplay configuration.
//
// Settings are layered, higher layers overriding lower:
//
//  1. built-in defaults
//  2. the TOML config file, when it exists
//  3. STROKEUNDO_* environment variables
//
// A config file looks like:
//
//	[history]
//	undo_limit = 50
//
//	[strokes]
//	queue_size = 1024
//
//	[watch]
//	debounce_ms = 100
//
//	[log]
//	level = "debug"
//	format = "json"
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/strokeundo/internal/config/loader"
	"github.com/dshills/strokeundo/internal/logging"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "STROKEUNDO_"

// Config is the complete configuration.
type Config struct {
	History HistoryConfig `toml:"history"`
	Strokes StrokesConfig `toml:"strokes"`
	Watch   WatchConfig   `toml:"watch"`
	Log     LogConfig     `toml:"log"`
}

// HistoryConfig configures the undo history.
type HistoryConfig struct {
	// UndoLimit is the number of entries kept. Zero means unlimited.
	UndoLimit int `toml:"undo_limit"`
}

// StrokesConfig configures the stroke runner.
type StrokesConfig struct {
	// QueueSize is the capacity of the task queue.
	QueueSize int `toml:"queue_size"`
}

// WatchConfig configures scenario watching.
type WatchConfig struct {
	// DebounceMS coalesces file changes within this many milliseconds.
	DebounceMS int `toml:"debounce_ms"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		History: HistoryConfig{UndoLimit: 0},
		Strokes: StrokesConfig{QueueSize: 1024},
		Watch:   WatchConfig{DebounceMS: 100},
		Log:     LogConfig{Level: "info", Format: string(logging.FormatText)},
	}
}

// Option configures Load.
type Option func(*options)

type options struct {
	path string
	fs   loader.FileSystem
	env  loader.Loader
}

// WithFile sets the config file path. A missing file is not an error.
func WithFile(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithFileSystem sets the file system the config file is read from.
func WithFileSystem(fsys loader.FileSystem) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

// WithEnv sets the environment source. Pass nil to ignore the environment.
func WithEnv(env []string) Option {
	return func(o *options) {
		if env == nil {
			o.env = nil
			return
		}
		o.env = loader.NewEnvLoaderFrom(EnvPrefix, env)
	}
}

// Load builds the configuration from defaults, the config file and the
// environment, then validates it.
func Load(opts ...Option) (*Config, error) {
	o := options{
		fs:  loader.DefaultFS(),
		env: loader.NewEnvLoader(EnvPrefix),
	}
	for _, opt := range opts {
		opt(&o)
	}

	merged, err := toMap(Default())
	if err != nil {
		return nil, err
	}

	sources := []loader.Loader{loader.NewTOMLLoaderWithFS(o.fs, o.path)}
	if o.env != nil {
		sources = append(sources, o.env)
	}
	for _, src := range sources {
		layer, err := src.Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, layer)
	}

	cfg, err := fromMap(merged)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads a TOML document over the defaults and validates the result.
func Parse(r io.Reader) (*Config, error) {
	layer, err := loader.NewTOMLLoaderWithFS(loader.MapFS{}, "").LoadFromReader(r)
	if err != nil {
		return nil, err
	}
	merged, err := toMap(Default())
	if err != nil {
		return nil, err
	}
	cfg, err := fromMap(loader.DeepMerge(merged, layer))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every setting and returns all failures joined.
func (c *Config) Validate() error {
	var errs []error
	if c.History.UndoLimit < 0 {
		errs = append(errs, &ValidationError{Path: "history.undo_limit", Value: c.History.UndoLimit, Message: "must not be negative"})
	}
	if c.Strokes.QueueSize <= 0 {
		errs = append(errs, &ValidationError{Path: "strokes.queue_size", Value: c.Strokes.QueueSize, Message: "must be positive"})
	}
	if c.Watch.DebounceMS < 0 {
		errs = append(errs, &ValidationError{Path: "watch.debounce_ms", Value: c.Watch.DebounceMS, Message: "must not be negative"})
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, &ValidationError{Path: "log.level", Value: c.Log.Level, Message: "must be debug, info, warn or error"})
	}
	switch logging.Format(strings.ToLower(c.Log.Format)) {
	case logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, &ValidationError{Path: "log.format", Value: c.Log.Format, Message: "must be text or json"})
	}
	return errors.Join(errs...)
}

// Logging returns the logging configuration. Output is left unset.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(c.Log.Level)
	cfg.Format = logging.ParseFormat(c.Log.Format)
	return cfg
}

// DebounceDelay returns the watch debounce as a duration.
func (c *Config) DebounceDelay() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

// String renders the configuration as TOML.
func (c *Config) String() string {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return string(data)
}

// toMap and fromMap convert through TOML so that merged layers are decoded
// with the same rules as the config file.
func toMap(c *Config) (map[string]any, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	var m map[string]any
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return m, nil
}

func fromMap(m map[string]any) (*Config, error) {
	data, err := toml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg := &Config{}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("unknown setting: %s", strict.String())
		}
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}
