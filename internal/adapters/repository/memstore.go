package repository

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/okian/fairlens/internal/domain/model"
	"github.com/okian/fairlens/pkg/metrics"
)

const defaultCapacity = 10_000

// MemoryStore is a bounded in-memory Store with FIFO eviction.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[string]*list.Element
	order    *list.List // front is oldest
	capacity int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		byID:     make(map[string]*list.Element),
		order:    list.New(),
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	metrics.UpdateReportStoreSize(0)
	return s
}

func (s *MemoryStore) Put(_ context.Context, res model.JobResult) error { //nolint:gocritic // hugeParam: stored by value
	if res.ID == "" {
		return ErrMissingID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.byID[res.ID]; ok {
		el.Value = res
		return nil
	}
	for s.order.Len() >= s.capacity {
		oldest := s.order.Front()
		s.order.Remove(oldest)
		delete(s.byID, oldest.Value.(model.JobResult).ID)
		metrics.RecordReportStoreEviction()
	}
	s.byID[res.ID] = s.order.PushBack(res)
	metrics.UpdateReportStoreSize(s.order.Len())
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (model.JobResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	el, ok := s.byID[id]
	if !ok {
		return model.JobResult{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return el.Value.(model.JobResult), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.byID[id]; ok {
		s.order.Remove(el)
		delete(s.byID, id)
		metrics.UpdateReportStoreSize(s.order.Len())
	}
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]model.JobResult, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.JobResult, 0, min(limit, s.order.Len()))
	for el := s.order.Back(); el != nil && len(out) < limit; el = el.Prev() {
		out = append(out, el.Value.(model.JobResult))
	}
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.order.Len()
}
