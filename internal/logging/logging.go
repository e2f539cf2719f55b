// Package logging builds the process logger: a tint console handler and a
// tint handler writing to a rotating log file, fanned out by MultiLevelHandler.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// Console receives human-oriented log lines (nil disables console logging).
	Console io.Writer
	// ConsoleLevel is the minimum level written to Console.
	ConsoleLevel slog.Level
	// NoColor disables ANSI colors on the console.
	NoColor bool

	// FilePath is the log file (empty disables file logging).
	FilePath string
	// FileLevel is the minimum level written to the file.
	FileLevel slog.Level
}

// New builds a logger from opts. The returned closer flushes and closes the
// log file and must be called before exit.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	handler := &MultiLevelHandler{}
	var closer io.Closer = nopCloser{}

	if opts.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		lumber := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    10,
			MaxBackups: 5,
			Compress:   true,
		}
		handler.fileHandler = tint.NewHandler(lumber, &tint.Options{
			Level:      opts.FileLevel,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
		closer = lumber
	}

	if opts.Console != nil {
		handler.consoleHandler = tint.NewHandler(opts.Console, &tint.Options{
			Level:      opts.ConsoleLevel,
			TimeFormat: time.Kitchen,
			NoColor:    opts.NoColor,
		})
	}

	return slog.New(handler), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// MultiLevelHandler sends each record to every handler whose level admits it.
type MultiLevelHandler struct {
	fileHandler    slog.Handler
	consoleHandler slog.Handler
}

// NewMultiLevelHandler combines a file and a console handler; either may be nil.
func NewMultiLevelHandler(file, console slog.Handler) *MultiLevelHandler {
	return &MultiLevelHandler{fileHandler: file, consoleHandler: console}
}

// Enabled implements slog.Handler.
func (h *MultiLevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.fileHandler != nil && h.fileHandler.Enabled(ctx, level) {
		return true
	}
	return h.consoleHandler != nil && h.consoleHandler.Enabled(ctx, level)
}

// Handle implements slog.Handler. Both handlers see the record even when the
// first one fails.
func (h *MultiLevelHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	if h.fileHandler != nil && h.fileHandler.Enabled(ctx, r.Level) {
		if err := h.fileHandler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	if h.consoleHandler != nil && h.consoleHandler.Enabled(ctx, r.Level) {
		if err := h.consoleHandler.Handle(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs implements slog.Handler.
func (h *MultiLevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	n := &MultiLevelHandler{}
	if h.fileHandler != nil {
		n.fileHandler = h.fileHandler.WithAttrs(attrs)
	}
	if h.consoleHandler != nil {
		n.consoleHandler = h.consoleHandler.WithAttrs(attrs)
	}
	return n
}

// WithGroup implements slog.Handler.
func (h *MultiLevelHandler) WithGroup(name string) slog.Handler {
	n := &MultiLevelHandler{}
	if h.fileHandler != nil {
		n.fileHandler = h.fileHandler.WithGroup(name)
	}
	if h.consoleHandler != nil {
		n.consoleHandler = h.consoleHandler.WithGroup(name)
	}
	return n
}
