// Package repository stores report job results.
package repository

import (
	"context"

	"github.com/okian/fairlens/internal/domain/model"
)

// Store provides read/write access to job results.
type Store interface {
	// Put inserts or replaces the result for res.ID. Replacing keeps the
	// job's original position in the eviction order.
	Put(ctx context.Context, res model.JobResult) error

	// Get returns the result for a job. Returns ErrNotFound if unknown.
	Get(ctx context.Context, id string) (model.JobResult, error)

	// Delete removes a result. Unknown ids are ignored.
	Delete(ctx context.Context, id string)

	// List returns up to limit results, most recently submitted first.
	List(ctx context.Context, limit int) ([]model.JobResult, error)

	// Count returns the number of stored results.
	Count(ctx context.Context) int
}
