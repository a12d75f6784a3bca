package fairness

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package.
var (
	// ErrInvalidInput is the only error kind returned by the measures. Every
	// *InvalidInputError matches it through errors.Is.
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnknownMeasure = errors.New("unknown measure")
	ErrUnknownMetric  = errors.New("unknown distance metric")
)

// InvalidInputError describes why a measurement call rejected its inputs.
type InvalidInputError struct {
	Op     string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Op, ErrInvalidInput, e.Reason)
}

// Is reports whether target is ErrInvalidInput.
func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

func invalid(op, format string, args ...any) error {
	return &InvalidInputError{Op: op, Reason: fmt.Sprintf(format, args...)}
}
