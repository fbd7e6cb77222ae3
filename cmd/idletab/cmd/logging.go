package cmd

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/corey/idletab/internal/config"
)

// newLogger builds the daemon's root logger: JSON lines to out, or a console
// writer on stderr in development.
func newLogger(cfg config.Config, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(cfg.Level())

	logger := zerolog.New(out).With().Timestamp().Logger()
	if cfg.IsDevelopment() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return logger
}
