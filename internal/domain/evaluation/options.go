package evaluation

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/fairlens/internal/domain/fairness"
	"github.com/okian/fairlens/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithTesterOptions configures the situation tester (metric, dimension,
// parallelism, self exclusion).
func WithTesterOptions(opts ...fairness.Option) Option {
	return func(e *Engine) {
		e.testerOpts = append(e.testerOpts, opts...)
	}
}

// WithMaxIndividuals rejects datasets with more individuals than n. Zero disables the limit.
func WithMaxIndividuals(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxIndividuals = n
		}
	}
}

// WithLogger sets the logger used for evaluation diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTracerProvider sets the provider evaluation spans are created from.
// The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		if tp != nil {
			e.tracerProvider = tp
		}
	}
}
