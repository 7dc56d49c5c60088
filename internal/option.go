package internal

import (
	"io"
	"log/slog"

	"github.com/starford/folio/internal/photo"
	"github.com/starford/folio/internal/sse"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	logger  *slog.Logger
	stdout  io.Writer
	encoder photo.Encoder
	broker  *sse.Broker
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger overrides the logger derived from the configuration.
func WithLogger(logger *slog.Logger) Option {
	return func(a *application) {
		a.logger = logger
	}
}

// WithStdout sets where summary tables are rendered.
func WithStdout(w io.Writer) Option {
	return func(a *application) {
		a.stdout = w
	}
}

// WithEncoder overrides the WebP encoder built from output.quality.
func WithEncoder(enc photo.Encoder) Option {
	return func(a *application) {
		a.encoder = enc
	}
}

// WithBroker publishes per-gallery results to b.
func WithBroker(b *sse.Broker) Option {
	return func(a *application) {
		a.broker = b
	}
}
