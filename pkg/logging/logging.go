// Package logging configures the process-global zerolog logger.
package logging

import (
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config controls logger initialization.
type Config struct {
	// Level is one of trace, debug, info, warn, error, fatal.
	Level string
	// WithCaller adds file:line to every entry.
	WithCaller bool
	// ForceJSON disables console formatting even on a terminal.
	ForceJSON bool
}

// Init sets up the global logger. On a terminal it uses the console
// writer; otherwise structured JSON.
func Init(cfg Config) error {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", cfg.Level)
	}

	var logger zerolog.Logger
	if !cfg.ForceJSON && isatty.IsTerminal(os.Stderr.Fd()) {
		writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
		logger = zerolog.New(writer)
	} else {
		logger = zerolog.New(os.Stderr)
	}

	ctx := logger.With().Timestamp()
	if cfg.WithCaller {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger().Level(level)
	zerolog.SetGlobalLevel(level)
	return nil
}
