// Package logging wraps rs/zerolog into the structured-logging surface
// every Trough component uses. See doc.go for complete package
// documentation.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level is a logging verbosity level, read from config.Config.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls how Init builds the package-level logger.
type Config struct {
	Level  Level
	JSON   bool
	Output io.Writer
}

// Logger is the package-level logger every component logs through,
// initialized by Init at process startup.
var Logger zerolog.Logger

// Init builds the package-level Logger from cfg. Uninitialized, Logger
// is zerolog's zero value (a working, if unconfigured, no-op logger),
// so packages that log before Init runs (unit tests, mainly) don't
// panic.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSON {
		Logger = zerolog.New(output).With().Timestamp().Logger()
		return
	}
	Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
}

// WithComponent returns a child logger tagged with component, the
// convention every internal package's constructor uses to scope its
// own log lines (see internal/master.New, internal/local.New).
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithNode returns a child logger tagged with this host's node id.
func WithNode(node string) zerolog.Logger {
	return Logger.With().Str("node", node).Logger()
}

// WithSegment returns a child logger tagged with a segment id.
func WithSegment(segment string) zerolog.Logger {
	return Logger.With().Str("segment", segment).Logger()
}
