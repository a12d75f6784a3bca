package fairness

// Option applies a configuration option to the Tester.
type Option func(*Tester)

// WithMetric sets the distance metric used for neighbour search.
func WithMetric(metric Metric) Option {
	return func(t *Tester) {
		if metric != "" {
			t.metric = metric
		}
	}
}

// WithDimension fixes the expected feature dimensionality. Zero infers it
// from the first individual.
func WithDimension(dimension int) Option {
	return func(t *Tester) {
		if dimension >= 0 {
			t.dimension = dimension
		}
	}
}

// WithParallelism bounds the number of goroutines answering neighbour queries.
func WithParallelism(n int) Option {
	return func(t *Tester) {
		if n > 0 {
			t.parallelism = n
		}
	}
}

// WithSelfExclusion leaves the tested individual out of its own group's neighbours.
func WithSelfExclusion(exclude bool) Option {
	return func(t *Tester) {
		t.excludeSelf = exclude
	}
}
