package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ParseLevel maps LOG_LEVEL values to a zerolog level. Unknown values fall
// back to def.
func ParseLevel(v string, def zerolog.Level) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "dev", "development", "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "production", "prod":
		return zerolog.ErrorLevel
	}
	return def
}

// New builds a logger writing to w. format "json" writes raw JSON lines,
// anything else a human readable console format.
func New(w io.Writer, level zerolog.Level, format string) zerolog.Logger {
	if format != "json" {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Init configures the global logger from LOG_LEVEL and LOG_FORMAT. The
// default level is info.
func Init() zerolog.Logger {
	level := ParseLevel(os.Getenv("LOG_LEVEL"), zerolog.InfoLevel)
	logger := New(os.Stderr, level, os.Getenv("LOG_FORMAT"))
	log.Logger = logger
	return logger
}
