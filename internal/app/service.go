// Package service wires the fairness engine, the report pipeline and the
// report store into the operations the HTTP API exposes.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	jobqueue "github.com/okian/fairlens/internal/adapters/mq/queue"
	workerpool "github.com/okian/fairlens/internal/adapters/mq/worker"
	"github.com/okian/fairlens/internal/adapters/repository"
	"github.com/okian/fairlens/internal/domain/dedupe"
	"github.com/okian/fairlens/internal/domain/evaluation"
	"github.com/okian/fairlens/internal/domain/fairness"
	"github.com/okian/fairlens/internal/domain/model"
	"github.com/okian/fairlens/pkg/logger"
	"github.com/okian/fairlens/pkg/metrics"
)

// Service implements the API dependencies for the fairness engine.
type Service struct {
	mu sync.RWMutex

	engine  *evaluation.Engine
	store   repository.Store
	deduper dedupe.Deduper
	jobs    jobqueue.Queue
	pool    *workerpool.Pool

	workerCount     int
	queueSize       int
	dedupeSize      int
	reportStoreSize int
	maxIndividuals  int
	testerOpts      []fairness.Option

	started bool
	logger  logger.Logger
}

// SubmitResult identifies the job a report request resolved to.
type SubmitResult struct {
	JobID     string `json:"job_id"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of report workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the report queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many request IDs are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithReportStoreSize sets how many job results are kept.
func WithReportStoreSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.reportStoreSize = size
		}
	}
}

// WithMaxIndividuals caps the dataset size of every request. Zero disables the cap.
func WithMaxIndividuals(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxIndividuals = n
		}
	}
}

// WithTesterOptions configures situation testing.
func WithTesterOptions(opts ...fairness.Option) Option {
	return func(s *Service) {
		s.testerOpts = append(s.testerOpts, opts...)
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Synchronous measures work immediately; report
// submission needs Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     runtime.NumCPU(),
		queueSize:       1_000,
		dedupeSize:      50_000,
		reportStoreSize: 10_000,
		maxIndividuals:  200_000,
		logger:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine = evaluation.NewEngine(
		evaluation.WithTesterOptions(s.testerOpts...),
		evaluation.WithMaxIndividuals(s.maxIndividuals),
		evaluation.WithLogger(s.logger.Named("evaluation")),
	)
	s.store = repository.NewMemoryStore(repository.WithCapacity(s.reportStoreSize))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start starts the report workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting fairness service...")

	s.jobs = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.jobs, s.engine, s.store,
		workerpool.WithLogger(s.logger),
	)
	// Workers outlive the start context; Stop ends them.
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "fairness service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("reportStoreSize", s.reportStoreSize),
	)
	return nil
}

// Stop closes the report queue and waits for queued jobs to finish.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping fairness service...")
	s.started = false
	if err := s.pool.Shutdown(ctx); err != nil {
		return fmt.Errorf("stop workers: %w", err)
	}
	s.logger.Info(ctx, "fairness service stopped")
	return nil
}

// Measure computes a registered group measure.
func (s *Service) Measure(ctx context.Context, name string, outcomes, protected []int) (float64, error) {
	return s.engine.Measure(ctx, name, outcomes, protected)
}

// MeasureNames lists the registered group measures.
func (s *Service) MeasureNames() []string {
	return fairness.MeasureNames()
}

// UnexplainedDifference splits the mean difference by stratum.
func (s *Service) UnexplainedDifference(ctx context.Context, outcomes, protected []int, stratum []string) (model.StratifiedResult, error) {
	return s.engine.Stratified(ctx, outcomes, protected, stratum)
}

// SituationTesting runs situation testing with the service's tester configuration.
func (s *Service) SituationTesting(ctx context.Context, outcomes, protected []int, individuals [][]float64, spec model.SituationSpec) (model.SituationResult, error) {
	return s.engine.SituationTesting(ctx, outcomes, protected, individuals, spec)
}

// Submit validates a report request and queues it. A request ID that was
// already submitted resolves to its original job.
func (s *Service) Submit(ctx context.Context, req model.ReportRequest) (SubmitResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return SubmitResult{}, ErrNotStarted
	}
	if err := s.engine.Check(req); err != nil {
		return SubmitResult{}, err
	}

	jobID := uuid.NewString()
	if req.RequestID != "" {
		if existing, seen := s.deduper.SeenAndRecord(ctx, req.RequestID, jobID); seen {
			metrics.RecordReportDuplicate()
			s.logger.Debug(ctx, "duplicate report request",
				logger.String("requestID", req.RequestID),
				logger.String("jobID", existing),
			)
			return SubmitResult{JobID: existing, Duplicate: true}, nil
		}
	}

	job := model.Job{ID: jobID, Request: req, SubmittedAt: time.Now()}
	pending := model.JobResult{ID: jobID, RequestID: req.RequestID, Status: model.JobPending, SubmittedAt: job.SubmittedAt}
	// the pending result must exist before a worker can overwrite it
	if err := s.store.Put(ctx, pending); err != nil {
		s.forget(ctx, req.RequestID)
		return SubmitResult{}, fmt.Errorf("store pending job: %w", err)
	}

	if err := s.jobs.Enqueue(ctx, job); err != nil {
		s.store.Delete(ctx, jobID)
		s.forget(ctx, req.RequestID)
		if errors.Is(err, jobqueue.ErrFull) {
			return SubmitResult{}, fmt.Errorf("%w: %w", ErrQueueFull, err)
		}
		return SubmitResult{}, fmt.Errorf("enqueue job: %w", err)
	}

	metrics.RecordReportSubmitted()
	s.logger.Debug(ctx, "report queued", logger.String("jobID", jobID), logger.Int("n", len(req.Outcomes)))
	return SubmitResult{JobID: jobID}, nil
}

func (s *Service) forget(ctx context.Context, requestID string) {
	if requestID != "" {
		s.deduper.Unrecord(ctx, requestID)
	}
}

// Report returns the status and, once finished, the result of a job.
func (s *Service) Report(ctx context.Context, id string) (model.JobResult, error) {
	return s.store.Get(ctx, id)
}

// Reports returns up to limit jobs, most recent first.
func (s *Service) Reports(ctx context.Context, limit int) ([]model.JobResult, error) {
	return s.store.List(ctx, limit)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":         s.started,
		"workerCount":     s.workerCount,
		"queueSize":       s.queueSize,
		"dedupeSize":      s.dedupeSize,
		"reportStoreSize": s.reportStoreSize,
		"maxIndividuals":  s.maxIndividuals,
		"storedReports":   s.store.Count(ctx),
		"trackedRequests": s.deduper.Size(),
		"measures":        fairness.MeasureNames(),
	}
	if s.jobs != nil {
		stats["queueLength"] = s.jobs.Len(ctx)
		stats["queueCapacity"] = s.jobs.Capacity()
		stats["queueClosed"] = s.jobs.IsClosed()
	}
	if s.pool != nil {
		stats["activeWorkers"] = 0
		if s.started {
			stats["activeWorkers"] = s.pool.Size()
		}
	}
	return stats
}
