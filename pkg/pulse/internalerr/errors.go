package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrStoreUnavailable = errors.New("store unavailable")

	// Request-level failures. Any of these aborts the whole request.
	ErrValidation = errors.New("validation failed")
	ErrLabel      = errors.New("unmappable classifier label")
	ErrClassifier = errors.New("classifier failed")
)

// ValidationError reports an empty or malformed input batch.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validation is shorthand for &ValidationError{Reason: reason}.
func Validation(reason string) error {
	return &ValidationError{Reason: reason}
}

// LabelError reports a classifier label outside the canonical vocabulary.
type LabelError struct {
	Label string
	Index int // position in the batch, -1 when unknown
}

func (e *LabelError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("unmappable classifier label %q at index %d", e.Label, e.Index)
	}
	return fmt.Sprintf("unmappable classifier label %q", e.Label)
}

func (e *LabelError) Unwrap() error { return ErrLabel }

// ClassifierError reports a prediction failure after the dense retry.
type ClassifierError struct {
	Op  string
	Err error
}

func (e *ClassifierError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("classifier %s failed", e.Op)
	}
	return fmt.Sprintf("classifier %s: %v", e.Op, e.Err)
}

// Is lets errors.Is match both ErrClassifier and the wrapped cause.
func (e *ClassifierError) Is(target error) bool { return target == ErrClassifier }

func (e *ClassifierError) Unwrap() error { return e.Err }
