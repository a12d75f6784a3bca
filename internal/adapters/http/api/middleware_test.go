package api_test

import (
	"context"
	"net/http"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	service "github.com/okian/fairlens/internal/app"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsMiddleware_Tracing(t *testing.T) {
	Convey("Given a global recording tracer provider", t, func() {
		recorder := tracetest.NewSpanRecorder()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
		otel.SetTracerProvider(tp)
		defer func() { _ = tp.Shutdown(context.Background()) }()

		svc := service.New()
		mux := newMux(svc, svc)

		Convey("When a measure is requested", func() {
			w := do(mux, http.MethodPost, "/v1/measures/mean_difference", `{"outcomes":[1,0],"protected":[0,1]}`)
			So(w.Code, ShouldEqual, http.StatusOK)

			Convey("Then the measure span is a child of the server span", func() {
				spans := recorder.Ended()
				So(len(spans), ShouldBeGreaterThanOrEqualTo, 2)
				server := spans[len(spans)-1]
				So(server.Name(), ShouldEqual, "POST measure")
				So(server.SpanKind(), ShouldEqual, trace.SpanKindServer)
				So(spans[0].Name(), ShouldEqual, "evaluation.measure")
				So(spans[0].Parent().SpanID(), ShouldEqual, server.SpanContext().SpanID())
			})
		})
	})
}
