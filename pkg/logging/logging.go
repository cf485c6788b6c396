// Package logging provides a thin wrapper around zerolog used across
// chainwatch. Library code takes a *Logger so callers can silence or
// redirect output; the CLI installs the global logger at startup.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with variadic key/value convenience methods.
type Logger struct {
	zl zerolog.Logger
}

var global = NewDevelopment()

// NewProduction creates a production logger with JSON output.
func NewProduction() *Logger {
	zl := zerolog.New(os.Stdout).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Logger()
	return &Logger{zl: zl}
}

// NewDevelopment creates a development logger with pretty console output.
func NewDevelopment() *Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	zl := zerolog.New(output).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Logger()
	return &Logger{zl: zl}
}

// NewWithWriter creates a logger with a custom writer and level.
func NewWithWriter(w io.Writer, level zerolog.Level) *Logger {
	zl := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()
	return &Logger{zl: zl}
}

// Nop returns a logger that discards everything. Used as the library default
// so importing packages stay quiet unless a logger is injected.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// SetGlobal installs the global logger instance.
func SetGlobal(l *Logger) {
	global = l
}

// Global returns the global logger instance.
func Global() *Logger {
	return global
}

// With returns a child logger with the field attached to every event.
func (l *Logger) With(key string, value any) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

// Debug logs a debug message with alternating key/value fields.
func (l *Logger) Debug(msg string, fields ...any) {
	emit(l.zl.Debug(), msg, fields)
}

// Info logs an info message with alternating key/value fields.
func (l *Logger) Info(msg string, fields ...any) {
	emit(l.zl.Info(), msg, fields)
}

// Warn logs a warning message with alternating key/value fields.
func (l *Logger) Warn(msg string, fields ...any) {
	emit(l.zl.Warn(), msg, fields)
}

// Error logs an error message with alternating key/value fields.
func (l *Logger) Error(msg string, fields ...any) {
	emit(l.zl.Error(), msg, fields)
}

func emit(e *zerolog.Event, msg string, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		if err, isErr := fields[i+1].(error); isErr {
			e.Str(key, err.Error())
			continue
		}
		e.Interface(key, fields[i+1])
	}
	e.Msg(msg)
}
