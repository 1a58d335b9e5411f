// Package logging provides the slog-based logger shared by the undo core,
// the stroke runner and the command line tools.
//
// By default nothing is logged. Call SetLogger (or install the result of New)
// to enable output.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
)

// nopHandler discards every record. Enabled reports false so callers skip
// attribute formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger installs l as the process logger. Passing nil restores the
// silent default. Safe for concurrent use.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current process logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// WithComponent returns the current logger with the component attribute set.
// The logger is resolved at call time, so callers should not cache the result
// across SetLogger calls.
func WithComponent(component string) *slog.Logger {
	return Logger().With("component", component)
}

// Format selects the handler used by New.
type Format string

const (
	// FormatText writes logfmt-style lines.
	FormatText Format = "text"
	// FormatJSON writes one JSON object per line.
	FormatJSON Format = "json"
)

// Config configures a logger built by New.
type Config struct {
	// Level is the minimum level written.
	Level slog.Level
	// Format is the output encoding. Defaults to FormatText.
	Format Format
	// Output is where records are written. Defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  slog.LevelInfo,
		Format: FormatText,
		Output: os.Stderr,
	}
}

// New builds a logger from cfg. It does not install it.
func New(cfg Config) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var h slog.Handler
	switch cfg.Format {
	case FormatJSON:
		h = slog.NewJSONHandler(cfg.Output, opts)
	default:
		h = slog.NewTextHandler(cfg.Output, opts)
	}
	return slog.New(h)
}

// ParseLevel parses a level name. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseFormat parses a format name. Unknown names map to FormatText.
func ParseFormat(s string) Format {
	if strings.EqualFold(s, string(FormatJSON)) {
		return FormatJSON
	}
	return FormatText
}

// SafeAssert logs a warning when cond is false and returns cond.
// It is the recoverable counterpart of a debug assertion: execution always
// continues and the caller decides how to degrade.
func SafeAssert(cond bool, msg string, args ...any) bool {
	if cond {
		return true
	}
	l := Logger()
	if !l.Enabled(context.Background(), slog.LevelWarn) {
		return false
	}
	if _, file, line, ok := runtime.Caller(1); ok {
		args = append(args, "at", fmt.Sprintf("%s:%d", file, line))
	}
	l.Warn("assertion failed: "+msg, args...)
	return false
}
