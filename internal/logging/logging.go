// Package logging provides the process-wide structured logger.
package logging

import (
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Init configures the global logger from a level string ("debug", "info",
// "warn", "error"). Unknown levels fall back to "info". Safe to call once;
// subsequent calls are no-ops.
func Init(level string) {
	once.Do(func() {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		lvl, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			lvl = zerolog.InfoLevel
		}
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}).
			Level(lvl).
			With().
			Timestamp().
			Logger()
	})
}

// L returns the global logger, initializing it with "info" level if Init
// was never called.
func L() *zerolog.Logger {
	Init("info")
	return &logger
}

// Named returns a child logger tagged with a component field, the way the
// teacher tags log lines with a subsystem prefix.
func Named(component string) zerolog.Logger {
	return L().With().Str("component", component).Logger()
}
