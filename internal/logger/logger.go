// Package logger wraps zerolog with the console setup shared by the
// build-support binaries.
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger.
type Logger struct {
	logger zerolog.Logger
}

// New creates a logger writing human-readable output to stderr.
// Unknown levels fall back to info.
func New(level string) *Logger {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}

	var output io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	logger := zerolog.New(output).Level(logLevel).With().Timestamp().Logger()

	return &Logger{logger: logger}
}

// Discard returns a logger that drops everything. Used in tests.
func Discard() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// Infof logs an info message with formatting.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.logger.Info().Msgf(format, args...)
}

// Warnf logs a warning message with formatting.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

// Errorf logs an error message with formatting.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

// Fatal logs a fatal message and exits.
func (l *Logger) Fatal(msg string, err error) {
	l.logger.Fatal().Err(err).Msg(msg)
}
