// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	service "github.com/okian/fairlens/internal/app"
	"github.com/okian/fairlens/internal/adapters/mq/queue"
	"github.com/okian/fairlens/internal/adapters/repository"
	"github.com/okian/fairlens/internal/domain/evaluation"
	"github.com/okian/fairlens/internal/domain/fairness"
	"github.com/okian/fairlens/internal/domain/model"
	"github.com/okian/fairlens/pkg/logger"
)

const defaultMaxBodyBytes = 64 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	MeasureNames() []string
	Measure(ctx context.Context, name string, outcomes, protected []int) (float64, error)
	UnexplainedDifference(ctx context.Context, outcomes, protected []int, stratum []string) (model.StratifiedResult, error)
	SituationTesting(ctx context.Context, outcomes, protected []int, individuals [][]float64, spec model.SituationSpec) (model.SituationResult, error)

	// Submit queues a full report. Returns service.ErrQueueFull on backpressure.
	Submit(ctx context.Context, req model.ReportRequest) (service.SubmitResult, error)
	Report(ctx context.Context, id string) (model.JobResult, error)
	Reports(ctx context.Context, limit int) ([]model.JobResult, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	measuresHandler *MeasuresHandler
	reportsHandler  *ReportsHandler
}

// ServerOption configures the Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	maxBodyBytes int64
	logger       logger.Logger
}

// WithMaxBodyBytes limits the size of request bodies.
func WithMaxBodyBytes(n int64) ServerOption {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) ServerOption {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	cfg := serverConfig{maxBodyBytes: defaultMaxBodyBytes, logger: logger.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	codec := &codec{maxBodyBytes: cfg.maxBodyBytes, logger: cfg.logger}
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		measuresHandler: NewMeasuresHandler(deps, codec),
		reportsHandler:  NewReportsHandler(deps, codec),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /v1/measures", MetricsMiddleware(s.measuresHandler.HandleList, "measures"))
	mux.HandleFunc("POST /v1/measures/{name}", MetricsMiddleware(s.measuresHandler.HandleMeasure, "measure"))
	mux.HandleFunc("POST /v1/unexplained-difference", MetricsMiddleware(s.measuresHandler.HandleUnexplained, "unexplained_difference"))
	mux.HandleFunc("POST /v1/situation-testing", MetricsMiddleware(s.measuresHandler.HandleSituation, "situation_testing"))

	mux.HandleFunc("POST /v1/reports", MetricsMiddleware(s.reportsHandler.HandleSubmit, "reports_submit"))
	mux.HandleFunc("GET /v1/reports", MetricsMiddleware(s.reportsHandler.HandleList, "reports_list"))
	mux.HandleFunc("GET /v1/reports/{id}", MetricsMiddleware(s.reportsHandler.HandleGet, "report"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// codec decodes size-limited JSON bodies and writes JSON responses.
type codec struct {
	maxBodyBytes int64
	logger       logger.Logger
}

func (c *codec) decode(w http.ResponseWriter, r *http.Request, op string, v any) error {
	body := http.MaxBytesReader(w, r.Body, c.maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return WrapKind(op, ErrBodyTooLarge, err)
		}
		return WrapKind(op, ErrBadRequest, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return NewKind(op, fmt.Errorf("%w: trailing data after JSON body", ErrBadRequest))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail maps a domain or API error to its status code and writes it.
func (c *codec) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrBodyTooLarge), errors.Is(err, evaluation.ErrDatasetTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", err)
	case errors.Is(err, ErrBadRequest), errors.Is(err, repository.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, fairness.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err)
	case errors.Is(err, fairness.ErrUnknownMeasure), errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrBackpressure), errors.Is(err, service.ErrQueueFull), errors.Is(err, queue.ErrFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, ErrUnavailable), errors.Is(err, service.ErrNotStarted), errors.Is(err, queue.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "cancelled", err)
	default:
		c.logger.Error(r.Context(), "request failed", logger.String("path", r.URL.Path), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", nil)
	}
}

// stratumLabels keys arbitrary JSON scalars by their compact JSON text, so
// "1" and 1 are distinct strata.
func stratumLabels(op string, raw []json.RawMessage) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	labels := make([]string, len(raw))
	var buf bytes.Buffer
	for i, msg := range raw {
		buf.Reset()
		if err := json.Compact(&buf, msg); err != nil {
			return nil, WrapKind(op, ErrBadRequest, err)
		}
		if b := buf.Bytes(); len(b) == 0 || b[0] == '{' || b[0] == '[' {
			return nil, NewKind(op, fmt.Errorf("%w: stratum[%d] must be a JSON scalar", ErrBadRequest, i))
		}
		labels[i] = buf.String()
	}
	return labels, nil
}
