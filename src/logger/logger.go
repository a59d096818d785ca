package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger defines the interface for logging throughout the application.
// Different implementations can be used for different contexts (console, silent, structured).
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// annotationPrefix makes Buildkite expand the surrounding log group, so
// warnings and errors are visible without clicking through collapsed output.
const annotationPrefix = "^^^ +++\n"

// ConsoleLogger writes human-readable logs to stdout/stderr.
type ConsoleLogger struct {
	// Annotate prefixes warnings and errors with the Buildkite expand marker.
	Annotate bool
	// Verbose enables Debug output.
	Verbose bool

	out io.Writer
	err io.Writer
}

func NewConsoleLogger() *ConsoleLogger {
	return &ConsoleLogger{out: os.Stdout, err: os.Stderr}
}

// NewConsoleLoggerTo writes info/debug to out and warnings/errors to errOut.
func NewConsoleLoggerTo(out, errOut io.Writer) *ConsoleLogger {
	return &ConsoleLogger{out: out, err: errOut}
}

func (c *ConsoleLogger) Info(msg string, args ...interface{}) {
	fmt.Fprintf(c.out, "[INFO] "+msg+"\n", args...)
}

func (c *ConsoleLogger) Warn(msg string, args ...interface{}) {
	fmt.Fprintf(c.err, c.prefix()+"[WARN] "+msg+"\n", args...)
}

func (c *ConsoleLogger) Error(msg string, args ...interface{}) {
	fmt.Fprintf(c.err, c.prefix()+"[ERROR] "+msg+"\n", args...)
}

func (c *ConsoleLogger) Debug(msg string, args ...interface{}) {
	if !c.Verbose {
		return
	}
	fmt.Fprintf(c.out, "[DEBUG] "+msg+"\n", args...)
}

func (c *ConsoleLogger) prefix() string {
	if c.Annotate {
		return annotationPrefix
	}
	return ""
}

// SilentLogger discards all log messages.
// Used when running in TUI or MCP mode, where stdout belongs to the display or protocol.
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Warn(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
func (s *SilentLogger) Debug(msg string, args ...interface{}) {}

// StructuredLogger emits JSON log lines through zerolog.
type StructuredLogger struct {
	log zerolog.Logger
}

// NewStructuredLogger writes JSON lines to w. Debug lines are dropped unless verbose.
func NewStructuredLogger(w io.Writer, verbose bool) *StructuredLogger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	return &StructuredLogger{
		log: zerolog.New(w).Level(level).With().Timestamp().Logger(),
	}
}

func (s *StructuredLogger) Info(msg string, args ...interface{}) {
	s.log.Info().Msgf(msg, args...)
}

func (s *StructuredLogger) Warn(msg string, args ...interface{}) {
	s.log.Warn().Msgf(msg, args...)
}

func (s *StructuredLogger) Error(msg string, args ...interface{}) {
	s.log.Error().Msgf(msg, args...)
}

func (s *StructuredLogger) Debug(msg string, args ...interface{}) {
	s.log.Debug().Msgf(msg, args...)
}

// With returns a logger that adds a string field to every line.
func (s *StructuredLogger) With(key, value string) *StructuredLogger {
	return &StructuredLogger{log: s.log.With().Str(key, value).Logger()}
}
