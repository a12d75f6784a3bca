// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and environment variables over the defaults.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// WorkerCount sets the number of report workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory report job queue.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize bounds the set of remembered report request ids.
	DedupeSize int `koanf:"dedupe_size"`

	// ReportStoreSize caps how many finished reports stay retrievable.
	ReportStoreSize int `koanf:"report_store_size"`

	// MaxIndividuals rejects datasets larger than this many individuals.
	MaxIndividuals int `koanf:"max_individuals"`

	// MaxBodyBytes caps HTTP request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// DistanceMetric is the situation-testing metric: euclidean, manhattan or chebyshev.
	DistanceMetric string `koanf:"distance_metric"`

	// Dimension fixes the feature dimensionality; 0 infers it per request.
	Dimension int `koanf:"dimension"`

	// SituationParallelism bounds concurrent neighbour queries per situation test.
	SituationParallelism int `koanf:"situation_parallelism"`

	// ExcludeSelf leaves the tested individual out of its own group's neighbours.
	ExcludeSelf bool `koanf:"exclude_self"`

	// TraceExporter selects the span exporter: none or stdout.
	TraceExporter string `koanf:"trace_exporter"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		WorkerCount:          runtime.NumCPU(),
		QueueSize:            1_000,
		DedupeSize:           50_000,
		ReportStoreSize:      10_000,
		MaxIndividuals:       200_000,
		MaxBodyBytes:         64 << 20,
		DistanceMetric:       "euclidean",
		Dimension:            0,
		SituationParallelism: runtime.NumCPU(),
		ExcludeSelf:          false,
		TraceExporter:        "none",
	}
}
