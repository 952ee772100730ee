package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// DefaultPath is the log file under XDG_STATE_HOME (~/.local/state).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	xdgState := os.Getenv("XDG_STATE_HOME")
	if xdgState == "" {
		xdgState = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(xdgState, "busysim", "busysim.log"), nil
}

// New builds a file logger. The terminal belongs to the UI, so nothing is
// ever written to stdout or stderr. Level "disabled" (or "off") yields a
// no-op logger.
func New(level, path string) (zerolog.Logger, io.Closer, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}
	if lvl == zerolog.Disabled {
		return zerolog.Nop(), nopCloser{}, nil
	}

	if path == "" {
		path, err = DefaultPath()
		if err != nil {
			return zerolog.Nop(), nopCloser{}, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("failed to open log file: %w", err)
	}

	return NewWriter(f, lvl), f, nil
}

// NewWriter logs human readable lines to w.
func NewWriter(w io.Writer, lvl zerolog.Level) zerolog.Logger {
	cw := zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: timeFormat}
	return zerolog.New(cw).Level(lvl).With().Timestamp().Logger()
}

// ParseLevel accepts zerolog level names plus "off".
func ParseLevel(level string) (zerolog.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	switch level {
	case "":
		return zerolog.InfoLevel, nil
	case "off", "disabled", "none":
		return zerolog.Disabled, nil
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q", level)
	}
	return lvl, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
