// Package logger builds the zerolog root logger every component derives
// its own from. Components tag themselves with With().Str("component", ...)
// so a single run can be filtered per subsystem.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration
type Config struct {
	Level  string    // debug, info, warn, error
	Pretty bool      // console output with caller info, for dev mode
	Out    io.Writer // defaults to os.Stdout
}

// New creates the root logger. Unknown level strings fall back to info
// so a typo in the environment never silences the process.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
		}
	}

	ctx := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "foresight")
	if cfg.Pretty {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}
