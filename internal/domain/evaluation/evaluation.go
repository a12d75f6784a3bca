// Package evaluation runs fairness measures over request payloads and
// records their metrics.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/fairlens/internal/domain/fairness"
	"github.com/okian/fairlens/internal/domain/model"
	"github.com/okian/fairlens/pkg/logger"
	"github.com/okian/fairlens/pkg/metrics"
)

const tracerName = "fairlens/evaluation"

// Names used for metrics and logs of the measures outside the group registry.
const (
	MeasureUnexplainedDifference = "unexplained_difference"
	MeasureSituationTesting      = "situation_testing"
	MeasureScoreMeanDifference   = "score_mean_difference"
	MeasurePredictiveEquality    = "predictive_equality"
)

// ErrDatasetTooLarge is returned when a request exceeds the configured size.
var ErrDatasetTooLarge = errors.New("dataset too large")

// Evaluator computes a full report for a request.
type Evaluator interface {
	// Evaluate computes every measure the request's vectors allow.
	Evaluate(ctx context.Context, req model.ReportRequest) (model.Report, error)
}

// Engine implements Evaluator on top of the fairness package.
type Engine struct {
	tester         *fairness.Tester
	testerOpts     []fairness.Option
	maxIndividuals int
	logger         logger.Logger
	tracerProvider trace.TracerProvider
	tracer         trace.Tracer
}

// NewEngine creates an Engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracerProvider == nil {
		e.tracerProvider = otel.GetTracerProvider()
	}
	e.tracer = e.tracerProvider.Tracer(tracerName)
	e.tester = fairness.NewTester(e.testerOpts...)
	return e
}

// Measure runs the named group measure.
func (e *Engine) Measure(ctx context.Context, name string, outcomes, protected []int) (float64, error) {
	fn, err := fairness.LookupMeasure(name)
	if err != nil {
		return 0, err
	}
	if err := e.checkSize(len(outcomes)); err != nil {
		return 0, err
	}
	ctx, span, start := e.begin(ctx, name, len(outcomes))
	score, err := fn(outcomes, protected)
	e.end(ctx, span, name, start, err)
	return score, err
}

// Stratified returns the explained and unexplained parts of the mean difference.
func (e *Engine) Stratified(ctx context.Context, outcomes, protected []int, stratum []string) (model.StratifiedResult, error) {
	if err := e.checkSize(len(outcomes)); err != nil {
		return model.StratifiedResult{}, err
	}
	ctx, span, start := e.begin(ctx, MeasureUnexplainedDifference, len(outcomes))
	res, err := stratified(outcomes, protected, stratum)
	e.end(ctx, span, MeasureUnexplainedDifference, start, err)
	if err != nil {
		return model.StratifiedResult{}, err
	}
	metrics.RecordExplainedDifference(res.Explained)
	return res, nil
}

func stratified(outcomes, protected []int, stratum []string) (model.StratifiedResult, error) {
	split, err := fairness.SplitDifference(outcomes, protected, stratum)
	if err != nil {
		return model.StratifiedResult{}, err
	}
	return model.StratifiedResult{Explained: split.Explained, Unexplained: split.Unexplained, Strata: split.Strata}, nil
}

// SituationTesting runs the configured tester with the caller's threshold and k.
func (e *Engine) SituationTesting(ctx context.Context, outcomes, protected []int, individuals [][]float64, spec model.SituationSpec) (model.SituationResult, error) {
	if err := e.checkSize(len(outcomes)); err != nil {
		return model.SituationResult{}, err
	}
	ctx, span, start := e.begin(ctx, MeasureSituationTesting, len(outcomes))
	span.SetAttributes(attribute.Int("k", spec.K), attribute.Float64("threshold", spec.Threshold))
	verdicts, err := e.tester.Verdicts(ctx, outcomes, protected, individuals, spec.Threshold, spec.K)
	e.end(ctx, span, MeasureSituationTesting, start, err)
	if err != nil {
		return model.SituationResult{}, err
	}

	res := model.SituationResult{Tested: len(verdicts), Flagged: []int{}}
	for _, v := range verdicts {
		if v.Discriminated {
			res.Flagged = append(res.Flagged, v.Index)
		}
	}
	res.Fraction = float64(len(res.Flagged)) / float64(res.Tested)
	metrics.RecordSituationTest(res.Tested, len(res.Flagged))
	return res, nil
}

// Evaluate computes every measure the request's vectors allow. The first
// failing measure aborts the report.
func (e *Engine) Evaluate(ctx context.Context, req model.ReportRequest) (rep model.Report, err error) {
	ctx, span := e.tracer.Start(ctx, "evaluation.Evaluate", trace.WithAttributes(
		attribute.Int("n", len(req.Outcomes)),
		attribute.String("request_id", req.RequestID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := e.Check(req); err != nil {
		return model.Report{}, err
	}

	rep = model.Report{N: len(req.Outcomes), Measures: make(map[string]float64)}
	for _, name := range fairness.MeasureNames() {
		score, err := e.Measure(ctx, name, req.Outcomes, req.Protected)
		if err != nil {
			return model.Report{}, fmt.Errorf("%s: %w", name, err)
		}
		rep.Measures[name] = score
	}

	if req.Stratum != nil {
		res, err := e.Stratified(ctx, req.Outcomes, req.Protected, req.Stratum)
		if err != nil {
			return model.Report{}, fmt.Errorf("%s: %w", MeasureUnexplainedDifference, err)
		}
		rep.Stratified = &res
	}

	if req.Individuals != nil {
		res, err := e.SituationTesting(ctx, req.Outcomes, req.Protected, req.Individuals, *req.Situation)
		if err != nil {
			return model.Report{}, fmt.Errorf("%s: %w", MeasureSituationTesting, err)
		}
		rep.Situation = &res
	}

	if req.Distances != nil {
		mctx, span, start := e.begin(ctx, MeasureScoreMeanDifference, len(req.Distances))
		d, err := scoreMeanDifference(req.Distances, req.Protected)
		e.end(mctx, span, MeasureScoreMeanDifference, start, err)
		if err != nil {
			return model.Report{}, fmt.Errorf("%s: %w", MeasureScoreMeanDifference, err)
		}
		rep.ScoreMeanDifference = &d
	}

	if req.Predicted != nil {
		mctx, span, start := e.begin(ctx, MeasurePredictiveEquality, len(req.Outcomes))
		rates, err := fairness.PredictiveEquality(req.Outcomes, req.Predicted, req.Protected)
		e.end(mctx, span, MeasurePredictiveEquality, start, err)
		if err != nil {
			return model.Report{}, fmt.Errorf("%s: %w", MeasurePredictiveEquality, err)
		}
		rep.ErrorRates = &rates
	}

	e.logger.Debug(ctx, "report evaluated",
		logger.Int("n", rep.N),
		logger.Bool("stratified", rep.Stratified != nil),
		logger.Bool("situation", rep.Situation != nil),
	)
	return rep, nil
}

// Check performs the validation that does not need a measure to run: the
// size limit, the outcome and protected vectors, and the shape of the
// situation testing section.
func (e *Engine) Check(req model.ReportRequest) error {
	const op = "evaluation.report"
	if err := e.checkSize(len(req.Outcomes)); err != nil {
		return err
	}
	if _, err := fairness.NewGroupStatistics(req.Outcomes, req.Protected); err != nil {
		return err
	}
	switch {
	case req.Individuals != nil && req.Situation == nil:
		return &fairness.InvalidInputError{Op: op, Reason: "individuals require situation parameters"}
	case req.Individuals == nil && req.Situation != nil:
		return &fairness.InvalidInputError{Op: op, Reason: "situation parameters require individuals"}
	}
	return nil
}

func scoreMeanDifference(distances [][2]float64, protected []int) (float64, error) {
	scores, err := fairness.SoftScores(distances)
	if err != nil {
		return 0, err
	}
	return fairness.ScoreMeanDifference(scores, protected)
}

func (e *Engine) checkSize(n int) error {
	if e.maxIndividuals > 0 && n > e.maxIndividuals {
		return fmt.Errorf("%w: %d individuals, limit %d", ErrDatasetTooLarge, n, e.maxIndividuals)
	}
	return nil
}

// begin opens the span of one measurement call.
func (e *Engine) begin(ctx context.Context, measure string, n int) (context.Context, trace.Span, time.Time) {
	ctx, span := e.tracer.Start(ctx, "evaluation.measure", trace.WithAttributes(
		attribute.String("measure", measure),
		attribute.Int("n", n),
	))
	return ctx, span, time.Now()
}

// end records latency and status of one measurement call and closes its span.
func (e *Engine) end(ctx context.Context, span trace.Span, measure string, start time.Time, err error) {
	defer span.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	latencyMs := float64(time.Since(start).Microseconds()) / 1000
	status := metrics.StatusOK
	switch {
	case errors.Is(err, fairness.ErrInvalidInput):
		status = metrics.StatusInvalid
		e.logger.Debug(ctx, "measurement rejected input", logger.String("measure", measure), logger.Error(err))
	case err != nil:
		status = metrics.StatusError
		metrics.RecordError("evaluation", measure)
		e.logger.Warn(ctx, "measurement failed", logger.String("measure", measure), logger.Error(err))
	}
	metrics.RecordMeasurement(measure, status, latencyMs)
}
