// Package logging provides the structured logger used throughout fsdrive.
//
// The package is a thin wrapper around zerolog so that callers never import
// zerolog directly. It is organized into a handful of small files:
//   - logger.go: core Logger/Event types, level management, package-level helpers
//   - console_writer.go: human-readable console output for interactive runs
//   - fields.go: field name constants shared across log call sites
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger so call sites depend only on this package.
type Logger struct {
	zl zerolog.Logger
}

// Event wraps zerolog.Event.
type Event struct {
	ze *zerolog.Event
}

// DefaultLogger is used by the package-level helpers (Info, Error, ...).
var DefaultLogger = Logger{zl: zerolog.New(os.Stdout).With().Timestamp().Logger()}

// Level mirrors zerolog.Level without exposing the dependency.
type Level int8

const (
	DebugLevel Level = Level(zerolog.DebugLevel)
	InfoLevel  Level = Level(zerolog.InfoLevel)
	WarnLevel  Level = Level(zerolog.WarnLevel)
	ErrorLevel Level = Level(zerolog.ErrorLevel)
	FatalLevel Level = Level(zerolog.FatalLevel)
	TraceLevel Level = Level(zerolog.TraceLevel)
	Disabled   Level = Level(zerolog.Disabled)
)

// ParseLevel parses a level name such as "debug" or "warn".
func ParseLevel(s string) (Level, error) {
	l, err := zerolog.ParseLevel(s)
	if err != nil {
		return Disabled, err
	}
	return Level(l), nil
}

func (l Level) String() string { return zerolog.Level(l).String() }

// SetGlobalLevel changes the level for every logger created from this package.
func SetGlobalLevel(l Level) { zerolog.SetGlobalLevel(zerolog.Level(l)) }

// New creates a Logger writing to w.
func New(w io.Writer) Logger {
	return Logger{zl: zerolog.New(w).With().Timestamp().Logger()}
}

// Output returns a copy of l writing to w.
func (l Logger) Output(w io.Writer) Logger {
	return Logger{zl: l.zl.Output(w)}
}

func (l Logger) Debug() Event { return Event{ze: l.zl.Debug()} }
func (l Logger) Info() Event  { return Event{ze: l.zl.Info()} }
func (l Logger) Warn() Event  { return Event{ze: l.zl.Warn()} }
func (l Logger) Error() Event { return Event{ze: l.zl.Error()} }
func (l Logger) Fatal() Event { return Event{ze: l.zl.Fatal()} }
func (l Logger) Trace() Event { return Event{ze: l.zl.Trace()} }

func Debug() Event { return DefaultLogger.Debug() }
func Info() Event  { return DefaultLogger.Info() }
func Warn() Event  { return DefaultLogger.Warn() }
func Error() Event { return DefaultLogger.Error() }
func Fatal() Event { return DefaultLogger.Fatal() }
func Trace() Event { return DefaultLogger.Trace() }

func (e Event) Str(key, val string) Event {
	e.ze = e.ze.Str(key, val)
	return e
}

func (e Event) Int(key string, val int) Event {
	e.ze = e.ze.Int(key, val)
	return e
}

func (e Event) Int64(key string, val int64) Event {
	e.ze = e.ze.Int64(key, val)
	return e
}

func (e Event) Uint64(key string, val uint64) Event {
	e.ze = e.ze.Uint64(key, val)
	return e
}

func (e Event) Float64(key string, val float64) Event {
	e.ze = e.ze.Float64(key, val)
	return e
}

func (e Event) Bool(key string, val bool) Event {
	e.ze = e.ze.Bool(key, val)
	return e
}

func (e Event) Err(err error) Event {
	e.ze = e.ze.Err(err)
	return e
}

func (e Event) Dur(key string, d time.Duration) Event {
	e.ze = e.ze.Dur(key, d)
	return e
}

func (e Event) Msg(msg string) { e.ze.Msg(msg) }

func (e Event) Msgf(format string, args ...interface{}) { e.ze.Msgf(format, args...) }
