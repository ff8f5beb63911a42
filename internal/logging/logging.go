package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Configure sets up the global zerolog logger.
//
// level: debug, info, warn or error (anything else means info)
// env: "DEV" writes human-readable console output, anything else JSON
//
// Output goes to stderr; stdout is reserved for program output.
func Configure(level, env string) zerolog.Logger {
	logger := New(os.Stderr, level, env)
	log.Logger = logger
	return logger
}

// New builds a logger writing to w without touching the global logger.
func New(w io.Writer, level, env string) zerolog.Logger {
	if strings.EqualFold(env, "DEV") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// ParseLevel converts a string log level to a zerolog.Level.
// Returns zerolog.InfoLevel for unrecognized values.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
