// Package tracing installs the global OpenTelemetry tracer provider.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Exporter names accepted by Init.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// ErrUnknownExporter is returned for an unsupported exporter name.
var ErrUnknownExporter = errors.New("unknown trace exporter")

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(ctx context.Context) error

// Options configures Init.
type Options struct {
	Exporter       string
	ServiceName    string
	ServiceVersion string
	Writer         io.Writer // stdout exporter destination, os.Stderr if nil
}

// Validate reports whether name is a supported exporter.
func Validate(name string) error {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ExporterNone, ExporterStdout:
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownExporter, name)
}

// Init installs a tracer provider for the configured exporter. With the
// none exporter the global no-op provider stays in place.
func Init(_ context.Context, opts Options) (ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }

	var exporter sdktrace.SpanExporter
	switch strings.ToLower(strings.TrimSpace(opts.Exporter)) {
	case "", ExporterNone:
		return noop, nil
	case ExporterStdout:
		w := opts.Writer
		if w == nil {
			w = os.Stderr
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return noop, fmt.Errorf("create stdout exporter: %w", err)
		}
		exporter = exp
	default:
		return noop, fmt.Errorf("%w: %s", ErrUnknownExporter, opts.Exporter)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", opts.ServiceName),
		attribute.String("service.version", opts.ServiceVersion),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
