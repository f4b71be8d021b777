// Package logging builds the slog logger used across tock.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Options holds configuration for the logger.
type Options struct {
	Level      slog.Level
	AddSource  bool
	IsJSON     bool
	SetDefault bool
	Writer     io.Writer
}

// Option functional options pattern for logger configuration.
type Option func(*Options)

// NewLogger creates a text or JSON logger writing to stderr by default.
func NewLogger(opts ...Option) *slog.Logger {
	o := &Options{
		Level:      slog.LevelInfo,
		SetDefault: true,
		Writer:     os.Stderr,
	}
	for _, opt := range opts {
		opt(o)
	}

	handlerOpts := &slog.HandlerOptions{
		AddSource: o.AddSource,
		Level:     o.Level,
	}

	var h slog.Handler = slog.NewTextHandler(o.Writer, handlerOpts)
	if o.IsJSON {
		h = slog.NewJSONHandler(o.Writer, handlerOpts)
	}

	logger := slog.New(h)
	if o.SetDefault {
		slog.SetDefault(logger)
	}
	return logger
}

// WithLevel sets the level by name ("debug", "info", ...). An unknown name
// is logged and falls back to info.
func WithLevel(level string) Option {
	return func(o *Options) {
		var l slog.Level
		if err := l.UnmarshalText([]byte(level)); err != nil {
			slog.Default().Error("failed to parse log level",
				slog.String("input", level),
				slog.String("default", "info"),
				slog.Any("error", err),
			)
			l = slog.LevelInfo
		}
		o.Level = l
	}
}

// WithJSON switches the output format to JSON.
func WithJSON(isJSON bool) Option {
	return func(o *Options) {
		o.IsJSON = isJSON
	}
}

// WithAddSource enables/disables source file logging.
func WithAddSource(addSource bool) Option {
	return func(o *Options) {
		o.AddSource = addSource
	}
}

// WithSetDefault controls whether the logger replaces slog.Default.
func WithSetDefault(setDefault bool) Option {
	return func(o *Options) {
		o.SetDefault = setDefault
	}
}

// WithWriter sets the destination.
func WithWriter(w io.Writer) Option {
	return func(o *Options) {
		o.Writer = w
	}
}
