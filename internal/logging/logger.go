// Package logging builds the zerolog loggers used across the studio.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Canonical field names.
const (
	FieldComponent = "component"
	FieldSession   = "session"
	FieldRequestID = "request_id"
	FieldProductID = "product_id"
	FieldEvent     = "event"
	FieldOldState  = "old_state"
	FieldNewState  = "new_state"
)

// Config captures options for building a logger.
type Config struct {
	Level   string    // "debug", "info", ...; falls back to STUDIO_LOG_LEVEL, then info
	Output  io.Writer // defaults to os.Stderr
	Console bool      // human-readable output for terminals
}

// New returns a logger configured from cfg.
func New(cfg Config) zerolog.Logger {
	level := zerolog.InfoLevel
	raw := strings.TrimSpace(cfg.Level)
	if raw == "" {
		raw = strings.TrimSpace(os.Getenv("STUDIO_LOG_LEVEL"))
	}
	if raw != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(raw)); err == nil {
			level = parsed
		}
	}
	zerolog.TimeFieldFormat = time.RFC3339

	writer := cfg.Output
	if writer == nil {
		writer = os.Stderr
	}
	if cfg.Console {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.Kitchen}
	}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

// Nop returns a disabled logger.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// WithComponent returns a child logger annotated with the component name.
func WithComponent(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str(FieldComponent, component).Logger()
}

// OpenFile opens (appending) a log file, creating parent directories.
func OpenFile(path string) (*os.File, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, fmt.Errorf("log file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory for %s: %w", p, err)
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", p, err)
	}
	return f, nil
}
