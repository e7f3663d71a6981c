// Package logging provides structured logging for the CLI and the staging subsystem.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// Logger wraps zerolog with console/JSON output selection.
type Logger struct {
	zlog    zerolog.Logger
	console bool
	output  io.Writer // current output writer
}

// NewLogger creates a logger writing to w. When console is true the output is
// human readable, otherwise one JSON object per line.
func NewLogger(w io.Writer, console bool) *Logger {
	l := &Logger{console: console}
	l.SetOutput(w)
	return l
}

// NewDefaultCLILogger creates a logger on stderr. Console formatting is only
// used when stderr is a terminal so that redirected output stays machine readable.
func NewDefaultCLILogger() *Logger {
	return NewLogger(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())))
}

// Nop returns a logger that discards everything. Used by tests and as the
// fallback when a component is constructed without a logger.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop(), output: io.Discard}
}

// Info returns an info level event.
func (l *Logger) Info() *zerolog.Event {
	return l.zlog.Info()
}

// Error returns an error level event.
func (l *Logger) Error() *zerolog.Event {
	return l.zlog.Error()
}

// Debug returns a debug level event.
func (l *Logger) Debug() *zerolog.Event {
	return l.zlog.Debug()
}

// Warn returns a warn level event.
func (l *Logger) Warn() *zerolog.Event {
	return l.zlog.Warn()
}

// With creates a child logger with additional context.
func (l *Logger) With() zerolog.Context {
	return l.zlog.With()
}

// WithComponent returns a child logger tagged with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		zlog:    l.zlog.With().Str("component", name).Logger(),
		console: l.console,
		output:  l.output,
	}
}

// SetOutput changes the output writer for the logger.
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
	if l.console {
		l.zlog = zerolog.New(zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: "15:04:05",
		}).With().Timestamp().Logger()
		return
	}
	l.zlog = zerolog.New(w).With().Timestamp().Logger()
}

// Output returns the current output writer.
func (l *Logger) Output() io.Writer {
	return l.output
}

// Infof logs an info message with printf-style formatting.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.zlog.Info().Msgf(format, args...)
}

// Warnf logs a warning message with printf-style formatting.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.zlog.Warn().Msgf(format, args...)
}

// SetGlobalLevel sets the global log level.
func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

// ParseLevel maps a config value ("debug", "info", "warn", "error") to a zerolog level.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info", "":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level: %s", level)
	}
}

func init() {
	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Configure global logger
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	})
}
