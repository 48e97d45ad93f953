package order

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("order: not found")
	ErrConflict          = errors.New("order: conflict")
	ErrForbidden         = errors.New("order: forbidden")
	ErrValidation        = errors.New("order: validation failed")
	ErrInvalidTransition = errors.New("order: invalid status transition")
	// ErrIdempotentNoop marks a mutation that is already applied or would regress state.
	// Callers treat it as success.
	ErrIdempotentNoop = errors.New("order: already applied")
)

// ValidationError carries an actionable message for the caller.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func Validation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// InvalidTransitionError reports a status move outside the allowed graph.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order: cannot transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }
