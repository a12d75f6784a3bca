package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/fairlens/internal/adapters/mq/queue"
	"github.com/okian/fairlens/internal/adapters/mq/worker"
	"github.com/okian/fairlens/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

type mockEvaluator struct {
	errs map[string]error // keyed by request ID
}

func (m *mockEvaluator) Evaluate(_ context.Context, req model.ReportRequest) (model.Report, error) {
	if err, ok := m.errs[req.RequestID]; ok {
		return model.Report{}, err
	}
	return model.Report{N: len(req.Outcomes)}, nil
}

type mockStore struct {
	mu      sync.Mutex
	results map[string]model.JobResult
	err     error
}

func newMockStore() *mockStore {
	return &mockStore{results: make(map[string]model.JobResult)}
}

func (m *mockStore) Put(_ context.Context, res model.JobResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.results[res.ID] = res
	return nil
}

func (m *mockStore) get(id string) (model.JobResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.results[id]
	return res, ok
}

func newJob(id, requestID string) model.Job {
	return model.Job{
		ID:          id,
		Request:     model.ReportRequest{RequestID: requestID, Outcomes: []int{1, 0, 1}, Protected: []int{0, 1, 1}},
		SubmittedAt: time.Now(),
	}
}

func TestWorker(t *testing.T) {
	convey.Convey("Given a worker reading from a queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		store := newMockStore()
		eval := &mockEvaluator{errs: map[string]error{"bad": errors.New("boom")}}
		w := worker.NewInMemoryWorker(q, eval, store, worker.WithName("test"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a job evaluates successfully", func() {
			convey.So(q.Enqueue(ctx, newJob("job-1", "ok")), convey.ShouldBeNil)

			convey.Convey("Then a done result with the report is stored", func() {
				convey.So(waitFor(func() bool { _, ok := store.get("job-1"); return ok }), convey.ShouldBeTrue)
				res, _ := store.get("job-1")
				convey.So(res.Status, convey.ShouldEqual, model.JobDone)
				convey.So(res.RequestID, convey.ShouldEqual, "ok")
				convey.So(res.Report, convey.ShouldNotBeNil)
				convey.So(res.Report.N, convey.ShouldEqual, 3)
				convey.So(res.CompletedAt.IsZero(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When a job fails to evaluate", func() {
			convey.So(q.Enqueue(ctx, newJob("job-2", "bad")), convey.ShouldBeNil)

			convey.Convey("Then a failed result carries the error", func() {
				convey.So(waitFor(func() bool { _, ok := store.get("job-2"); return ok }), convey.ShouldBeTrue)
				res, _ := store.get("job-2")
				convey.So(res.Status, convey.ShouldEqual, model.JobFailed)
				convey.So(res.Error, convey.ShouldEqual, "boom")
				convey.So(res.Report, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the worker is shut down", func() {
			err := w.Shutdown(context.Background())

			convey.Convey("Then it stops without error", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of workers", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		store := newMockStore()
		p := worker.NewPool(4, q, &mockEvaluator{}, store)
		convey.So(p.Size(), convey.ShouldEqual, 4)

		ctx := context.Background()
		p.Start(ctx)

		ids := []string{"a", "b", "c", "d", "e", "f"}
		for _, id := range ids {
			convey.So(q.Enqueue(ctx, newJob(id, id)), convey.ShouldBeNil)
		}

		convey.Convey("When the pool is shut down", func() {
			err := p.Shutdown(ctx)

			convey.Convey("Then queued jobs are drained first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
				for _, id := range ids {
					res, ok := store.get(id)
					convey.So(ok, convey.ShouldBeTrue)
					convey.So(res.Status, convey.ShouldEqual, model.JobDone)
				}
			})
		})
	})

	convey.Convey("Given a pool with a non-positive worker count", t, func() {
		p := worker.NewPool(0, queue.NewInMemoryQueue(), &mockEvaluator{}, newMockStore())

		convey.Convey("Then it sizes itself from the CPU count", func() {
			convey.So(p.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}
