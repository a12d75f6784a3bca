package tracing_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/okian/fairlens/pkg/tracing"
	. "github.com/smartystreets/goconvey/convey"
	"go.opentelemetry.io/otel"
)

func TestInit(t *testing.T) {
	Convey("Given the none exporter", t, func() {
		shutdown, err := tracing.Init(context.Background(), tracing.Options{Exporter: tracing.ExporterNone})

		Convey("Then nothing is installed and shutdown is a no-op", func() {
			So(err, ShouldBeNil)
			So(shutdown(context.Background()), ShouldBeNil)
		})
	})

	Convey("Given the stdout exporter", t, func() {
		var buf bytes.Buffer
		shutdown, err := tracing.Init(context.Background(), tracing.Options{
			Exporter:    tracing.ExporterStdout,
			ServiceName: "fairlens-test",
			Writer:      &buf,
		})
		So(err, ShouldBeNil)

		Convey("When a span ends and the provider shuts down", func() {
			_, span := otel.Tracer("test").Start(context.Background(), "unit")
			span.End()
			So(shutdown(context.Background()), ShouldBeNil)

			Convey("Then the span is written", func() {
				So(buf.String(), ShouldContainSubstring, `"Name":"unit"`)
			})
		})
	})

	Convey("Given an unknown exporter", t, func() {
		_, err := tracing.Init(context.Background(), tracing.Options{Exporter: "zipkin"})

		Convey("Then ErrUnknownExporter is returned", func() {
			So(errors.Is(err, tracing.ErrUnknownExporter), ShouldBeTrue)
			So(errors.Is(tracing.Validate("zipkin"), tracing.ErrUnknownExporter), ShouldBeTrue)
			So(tracing.Validate("STDOUT"), ShouldBeNil)
		})
	})
}
