package sqlstore

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

type options struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithRegisterer exports operation and pool metrics to reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}
