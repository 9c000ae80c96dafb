// Package logger configures the global zerolog logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options selects the log level and output format.
type Options struct {
	Level  string `doc:"Log level: trace, debug, info, warn, error" default:"info"`
	Format string `doc:"Log format: console or json" default:"console"`
}

// Setup installs the global logger writing to stderr.
func (o Options) Setup() error {
	return o.SetupWriter(os.Stderr)
}

// SetupWriter installs the global logger writing to w.
func (o Options) SetupWriter(w io.Writer) error {
	level := zerolog.InfoLevel
	if o.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(o.Level))
		if err != nil {
			return fmt.Errorf("log level: %w", err)
		}
		level = l
	}

	switch strings.ToLower(o.Format) {
	case "", "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	case "json":
	default:
		return fmt.Errorf("unknown log format %q", o.Format)
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return nil
}
