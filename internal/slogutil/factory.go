package slogutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

// Options describe where logs go. The zero value logs info to stderr.
type Options struct {
	// Level is the configured level name ("debug", "info", ...).
	Level string
	// Override, when non-zero, wins over Level (from CLI flags).
	Override slog.Level
	// File adds a file sink when set.
	File string
	// MaxSize rotates File once it would grow past this size ("10MB",
	// "512KiB"). Empty disables rotation.
	MaxSize    string
	MaxBackups int
}

// Setup builds the process logger: stderr plus an optional rotating file.
// Close the returned closer on exit.
func Setup(stderr io.Writer, opts Options) (*slog.Logger, io.Closer, error) {
	level := LevelFromString(opts.Level)
	if opts.Override != 0 {
		level = opts.Override
	}

	console := NewLineHandler(stderr, &slog.HandlerOptions{Level: level})
	if opts.File == "" {
		return slog.New(console), nopCloser{}, nil
	}

	limit, err := parseSize(opts.MaxSize)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}

	var sink io.WriteCloser
	if limit > 0 {
		sink, err = openRotatingFile(opts.File, limit, opts.MaxBackups)
	} else {
		sink, err = os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	file := NewLineHandler(sink, &slog.HandlerOptions{Level: level})
	return slog.New(fanout{console, file}), sink, nil
}

// parseSize reads a human size such as "10MB" or "1.5GiB". Empty is 0.
func parseSize(s string) (int64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid logging.maxSize %q: %w", s, err)
	}
	return int64(n), nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
