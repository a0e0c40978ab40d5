package cli

import (
	"errors"
	"io/fs"

	"github.com/roach88/cachegc/internal/engine"
	"github.com/roach88/cachegc/internal/source"
	"github.com/roach88/cachegc/internal/sweep"
)

// Error codes reported in ErrorBody.Code.
const (
	ErrCodeGeneric          = "E001" // Generic/unknown error
	ErrCodeConfig           = "E002" // Configuration invalid or unreadable
	ErrCodeInputNotFound    = "E003" // Input location does not exist
	ErrCodeInputMalformed   = "E004" // Input could not be decoded
	ErrCodeMissingReference = "E005" // Dangling reference under the abort policy
	ErrCodeRootNoClosure    = "E006" // Root selected without a computed closure
	ErrCodeWriteFailed      = "E007" // Output or metrics write failed
	ErrCodeTestFailed       = "E_TEST_FAILED"
	ErrCodeCheckFailed      = "E_CHECK_FAILED"
)

// classifyLoadError maps a source error to its error code. Every load
// failure is a command error.
func classifyLoadError(err error) string {
	var decodeErr *source.DecodeError
	switch {
	case errors.As(err, &decodeErr):
		return ErrCodeInputMalformed
	case errors.Is(err, source.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return ErrCodeInputNotFound
	default:
		return ErrCodeGeneric
	}
}

// classifyRunError maps a pipeline error to its error code.
func classifyRunError(err error) string {
	switch {
	case engine.IsMissingReference(err):
		return ErrCodeMissingReference
	case errors.Is(err, sweep.ErrRootWithoutClosure):
		return ErrCodeRootNoClosure
	default:
		return ErrCodeGeneric
	}
}
