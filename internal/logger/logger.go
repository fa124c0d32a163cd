// Package logger is the structured logging facade used across the service.
// It wraps zerolog so that callers only deal with a message and a field map.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Fatal(msg string, fields map[string]interface{})

	WithFields(fields map[string]interface{}) Logger
}

type ZerologLogger struct {
	logger zerolog.Logger
}

// New builds a logger writing to output (stdout when nil). Development mode
// switches to zerolog's human readable console writer.
func New(level string, development bool, output io.Writer) Logger {
	if output == nil {
		output = os.Stdout
	}

	zerolog.TimeFieldFormat = time.RFC3339

	w := output
	if development {
		w = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	zl := zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()

	return &ZerologLogger{logger: zl}
}

// Nop discards everything; handy in tests.
func Nop() Logger {
	return &ZerologLogger{logger: zerolog.Nop()}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *ZerologLogger) WithFields(fields map[string]interface{}) Logger {
	return &ZerologLogger{logger: l.logger.With().Fields(fields).Logger()}
}

func (l *ZerologLogger) Debug(msg string, fields map[string]interface{}) {
	l.logger.Debug().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Info(msg string, fields map[string]interface{}) {
	l.logger.Info().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Warn(msg string, fields map[string]interface{}) {
	l.logger.Warn().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Error(msg string, fields map[string]interface{}) {
	l.logger.Error().Fields(fields).Msg(msg)
}

// Fatal logs and exits the process with status 1.
func (l *ZerologLogger) Fatal(msg string, fields map[string]interface{}) {
	l.logger.Fatal().Fields(fields).Msg(msg)
}
