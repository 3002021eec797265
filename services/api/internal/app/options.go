package app

import (
	"context"
	"log/slog"

	"github.com/V1nSky/key-bot/services/api/internal/metrics"
)

type options struct {
	logger   *slog.Logger
	metrics  *metrics.Metrics
	notifier Notifier
}

// Option configures the ambient collaborators shared by every service.
type Option func(*options)

// WithLogger overrides slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records service outcomes. A nil Metrics is a no-op.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithNotifier sets the sink that receives committed outcomes.
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		if n != nil {
			o.notifier = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:   slog.Default(),
		notifier: NopNotifier{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// TxRunner runs fn inside a single storage transaction carried by the context.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
