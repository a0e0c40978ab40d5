package engine

import (
	"errors"
	"fmt"
)

// ClosureError represents an error detected during closure computation.
//
// Closure errors include:
//   - Missing reference: an identifier outside the loaded universe was
//     reached while the engine runs with MissingAbort
//   - Aborted: the traversal state is unusable after an earlier error
//
// ClosureError includes structured fields for diagnostics.
type ClosureError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// ID is the unresolved (canonical) identifier.
	ID string

	// Referrer is the object whose reference could not be resolved.
	// Empty when the identifier was requested directly.
	Referrer string
}

// ErrorCode categorizes closure errors.
type ErrorCode string

const (
	// ErrCodeMissingReference indicates a reference outside the universe.
	ErrCodeMissingReference ErrorCode = "MISSING_REFERENCE"

	// ErrCodeAborted indicates the engine refused work after a fatal error.
	ErrCodeAborted ErrorCode = "ABORTED"
)

// Error implements the error interface.
func (e *ClosureError) Error() string {
	if e.Referrer != "" {
		return fmt.Sprintf("%s: %s: %s (referenced by %s)", e.Code, e.Message, e.ID, e.Referrer)
	}
	if e.ID != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.ID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsMissingReference returns true if err is a missing reference error.
// Uses errors.As to handle wrapped errors.
func IsMissingReference(err error) bool {
	var ce *ClosureError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeMissingReference
	}
	return false
}

// NewMissingReferenceError creates a ClosureError for an unresolved identifier.
func NewMissingReferenceError(id, referrer string) *ClosureError {
	return &ClosureError{
		Code:     ErrCodeMissingReference,
		Message:  "reference to unknown store object",
		ID:       id,
		Referrer: referrer,
	}
}

func newAbortedError(cause error) *ClosureError {
	return &ClosureError{
		Code:    ErrCodeAborted,
		Message: fmt.Sprintf("closure computation aborted earlier: %v", cause),
	}
}
