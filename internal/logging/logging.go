// Package logging provides stepper's logging setup built on charmbracelet/log.
//
// All log output goes to stderr; stdout is reserved for plans, reports and
// other structured output.
//
// Usage:
//
//	// During CLI initialization (PersistentPreRun):
//	logging.Setup(logging.Options{Verbose: verbose})
//
//	// In each package:
//	logger := logging.New("engine")
//	logger.Info("step started", "step", id)
//
// Setup must be called before New. charmbracelet/log copies the default
// logger's state into a child at creation time.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Level aliases for charmbracelet/log levels.
const (
	LevelDebug = log.DebugLevel
	LevelInfo  = log.InfoLevel
	LevelWarn  = log.WarnLevel
	LevelError = log.ErrorLevel
	LevelFatal = log.FatalLevel
)

// EnvLogLevel names the environment variable consulted when no explicit
// level flag is set.
const EnvLogLevel = "STEPPER_LOG_LEVEL"

// Options controls Setup.
type Options struct {
	// Verbose sets the level to Debug.
	Verbose bool
	// Quiet sets the level to Error. Quiet wins over Verbose.
	Quiet bool
	// JSON switches to the NDJSON formatter.
	JSON bool
	// Level, when set, is parsed with log.ParseLevel and wins over Verbose
	// and Quiet.
	Level string
	// Output defaults to os.Stderr.
	Output io.Writer
}

// Setup configures the global logging defaults. Call once during CLI
// initialization. It fails only for an unparsable Level.
func Setup(opts Options) error {
	level := log.InfoLevel
	if opts.Verbose {
		level = log.DebugLevel
	}
	if opts.Quiet {
		level = log.ErrorLevel
	}
	if opts.Level != "" {
		parsed, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	log.SetLevel(level)
	log.SetOutput(out)
	log.SetReportTimestamp(opts.JSON)

	if opts.JSON {
		log.SetFormatter(log.JSONFormatter)
	} else {
		log.SetFormatter(log.TextFormatter)
	}
	return nil
}

// New creates a logger with the given component prefix. An empty component
// produces a logger without a prefix.
func New(component string) *log.Logger {
	return log.WithPrefix(component)
}

// Discard returns a logger that drops everything, for callers that require
// a non-nil logger.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// SetOutput overrides the output writer for the default logger. Tests use it
// to capture output; restore the original with t.Cleanup.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}
