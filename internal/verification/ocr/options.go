package ocr

import (
	"io"
	"log/slog"
)

type settings struct {
	logger *slog.Logger
}

// Option configures an adapter built by this package.
type Option func(*settings)

func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

func newSettings(opts ...Option) settings {
	s := settings{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
