// Package logger создаёт общий zerolog-логгер приложения.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New создаёт консольный логгер с указанным уровнем.
func New(level string) zerolog.Logger {
	return NewWithWriter(level, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05"})
}

// NewWithWriter нужен тестам и запуску без консоли: вывод идёт в переданный writer.
func NewWithWriter(level string, w io.Writer) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(level))
	return zerolog.New(w).With().Timestamp().Logger()
}

// parseLevel переводит строку из конфига в уровень zerolog, по умолчанию info.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
