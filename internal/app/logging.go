package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/dshills/outliner/internal/outline"
)

// NewLogger creates a logger writing to w. format is "console" or "json".
func NewLogger(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parsing log level: %w", err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	switch format {
	case "", "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000", NoColor: !isTerminal(w)}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", format)
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// OpenLogFile opens path for appending. An empty path returns os.Stderr.
func OpenLogFile(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stderr}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, &FileError{Op: "open log", Path: path, Err: err}
	}
	return f, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ErrorLogger reports outlining errors through a zerolog.Logger.
type ErrorLogger struct {
	log zerolog.Logger
}

// NewErrorLogger creates an outline.Logger backed by log.
func NewErrorLogger(log zerolog.Logger) *ErrorLogger {
	return &ErrorLogger{log: log}
}

// LogError implements outline.Logger. It never panics.
func (l *ErrorLogger) LogError(err error, context string) {
	defer func() { _ = recover() }()
	l.log.Error().Err(err).Str("context", context).Msg("outline computation failed")
}

var _ outline.Logger = (*ErrorLogger)(nil)

// panicLogger returns a loop panic handler that logs the panic.
func panicLogger(log zerolog.Logger) func(any, []byte) {
	return func(v any, stack []byte) {
		log.Error().
			Str("panic", fmt.Sprint(v)).
			Bytes("stack", stack).
			Msg("task panicked on the interactive loop")
	}
}
