package repository

import "errors"

// Sentinel kinds for report store errors.
var (
	ErrNotFound     = errors.New("report not found")
	ErrInvalidLimit = errors.New("invalid report list limit")
	ErrMissingID    = errors.New("job result without id")
)
