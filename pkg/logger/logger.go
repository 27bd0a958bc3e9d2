// Package logger builds the zerolog logger used by the audit. Nothing here
// touches the global zerolog logger; callers pass the returned logger down.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// FileTimeLayout is the timestamp layout used in log and report file names.
const FileTimeLayout = "20060102-150405"

// Config holds logging configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // console, json
	// Dir, when set, also receives a JSON log file named
	// txaudit-<timestamp>.log.
	Dir string
	// Out is the terminal writer. Defaults to os.Stderr.
	Out io.Writer
	// Now stamps the log file name. Defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns console logging at info level.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: FormatConsole,
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a logger from cfg. The returned Closer releases the log file,
// if any.
func New(cfg Config) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = l
	}

	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	switch cfg.Format {
	case "", FormatConsole:
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	case FormatJSON:
	default:
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	var closer io.Closer = nopCloser{}
	if cfg.Dir != "" {
		now := time.Now
		if cfg.Now != nil {
			now = cfg.Now
		}
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("failed to create log directory: %w", err)
		}
		name := filepath.Join(cfg.Dir, fmt.Sprintf("txaudit-%s.log", now().Format(FileTimeLayout)))
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("failed to open log file: %w", err)
		}
		out = zerolog.MultiLevelWriter(out, f)
		closer = f
	}

	l := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return l, closer, nil
}
