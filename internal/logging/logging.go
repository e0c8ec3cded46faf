// Package logging builds the structured loggers used by fscache and its CLI.
//
// Basic usage:
//
//	logger, err := logging.New(logging.Config{Level: "debug", Format: "text"})
//	if err != nil {
//	    return err
//	}
//	walker := fscache.NewWalker(afero.NewOsFs(), fscache.WithWalkLogger(logger))
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// DefaultPrefix is prepended to every message.
const DefaultPrefix = "fscache"

// ErrInvalidFormat is returned when an unknown output format is requested.
var ErrInvalidFormat = errors.New("invalid log format")

// Config configures a logger.
type Config struct {
	// Level is the minimum level (debug, info, warn, error). Empty means warn.
	Level string

	// Format is one of text, json or logfmt. Empty means text.
	Format string

	// Output receives log lines. Nil means stderr.
	Output io.Writer

	// Prefix overrides DefaultPrefix.
	Prefix string
}

// New builds a logger from cfg.
func New(cfg Config) (*log.Logger, error) {
	level := log.WarnLevel
	if cfg.Level != "" {
		parsed, err := log.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, fmt.Errorf("failed to parse log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	formatter, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return log.NewWithOptions(out, log.Options{
		Level:     level,
		Formatter: formatter,
		Prefix:    prefix,
	}), nil
}

// Default returns a warn-level text logger writing to stderr.
func Default() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:  log.WarnLevel,
		Prefix: DefaultPrefix,
	})
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

func parseFormat(s string) (log.Formatter, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return log.TextFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	default:
		return log.TextFormatter, fmt.Errorf("%w: %s", ErrInvalidFormat, s)
	}
}
