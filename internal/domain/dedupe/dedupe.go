// Package dedupe tracks client request IDs so a resubmitted report request
// resolves to the job it already created.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

// Deduper maps request IDs to the job they were submitted as.
type Deduper interface {
	// SeenAndRecord atomically looks up requestID. If it was seen, the
	// original job ID is returned with true. Otherwise jobID is recorded
	// and returned with false.
	SeenAndRecord(ctx context.Context, requestID, jobID string) (string, bool)

	// Unrecord forgets requestID so it can be submitted again. Used when
	// the job was recorded but could not be enqueued.
	Unrecord(ctx context.Context, requestID string)

	// Size returns the number of tracked request IDs.
	Size() int
}

type entry struct {
	requestID string
	jobID     string
}

// inMemoryDeduper keeps IDs in insertion order and evicts the oldest first.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front is oldest
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50_000,
		seen:    make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, requestID, jobID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[requestID]; ok {
		return el.Value.(entry).jobID, true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.seen, oldest.Value.(entry).requestID)
	}
	d.seen[requestID] = d.order.PushBack(entry{requestID: requestID, jobID: jobID})
	return jobID, false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, requestID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[requestID]; ok {
		d.order.Remove(el)
		delete(d.seen, requestID)
	}
}

func (d *inMemoryDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.order.Len()
}
