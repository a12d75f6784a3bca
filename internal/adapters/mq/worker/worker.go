package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/fairlens/internal/domain/model"
	"github.com/okian/fairlens/pkg/logger"
	"github.com/okian/fairlens/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Evaluator computes the report for a job's request.
type Evaluator interface {
	Evaluate(ctx context.Context, req model.ReportRequest) (model.Report, error)
}

// Store receives finished job results.
type Store interface {
	Put(ctx context.Context, res model.JobResult) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Job
}

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for report jobs.
type InMemoryWorker struct {
	queue     Queue
	evaluator Evaluator
	store     Store
	name      string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, evaluator Evaluator, store Store, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		evaluator: evaluator,
		store:     store,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "error storing job result", logger.String("job_id", job.ID), logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process evaluates one job. Evaluation failures become failed results;
// only a store failure is returned.
func (w *InMemoryWorker) process(ctx context.Context, job model.Job) error { //nolint:gocritic // hugeParam: jobs travel by value over the channel
	start := time.Now()
	rep, err := w.evaluator.Evaluate(ctx, job.Request)
	metrics.RecordWorkerLatency(float64(time.Since(start).Microseconds()) / 1000)

	res := model.JobResult{
		ID:          job.ID,
		RequestID:   job.Request.RequestID,
		Status:      model.JobDone,
		SubmittedAt: job.SubmittedAt,
		CompletedAt: time.Now(),
	}
	if err != nil {
		res.Status = model.JobFailed
		res.Error = err.Error()
		metrics.RecordWorkerError()
		w.logger.Warn(ctx, "report evaluation failed", logger.String("job_id", job.ID), logger.Error(err))
	} else {
		res.Report = &rep
	}
	metrics.RecordReportCompleted(string(res.Status))

	if err := w.store.Put(ctx, res); err != nil {
		metrics.RecordError("worker", "store")
		return fmt.Errorf("store result of job %s: %w", job.ID, err)
	}
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers. Options apply to every
// worker; each gets its own name.
func NewPool(workerCount int, q Queue, evaluator Evaluator, store Store, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Nop(),
	}
	defaults := &InMemoryWorker{logger: p.logger}
	for _, opt := range opts {
		opt(defaults)
	}
	p.logger = defaults.logger.Named("worker-pool")

	for i := range p.workers {
		workerOpts := append(append([]Option{}, opts...), WithName("worker-"+strconv.Itoa(i)))
		p.workers[i] = NewInMemoryWorker(q, evaluator, store, workerOpts...)
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
		}
	}
	metrics.UpdateWorkerCount(0)
	return nil
}
