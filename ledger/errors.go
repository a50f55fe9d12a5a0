/*
errors.go - Centralized error types for the ledger core

PURPOSE:
  All error types in one place for consistency and discoverability.
  The API layer maps these to HTTP statuses.

ERROR CATEGORIES:
  1. Validation errors - Contradictory or missing input, rejected before
     any mutation
  2. Not-found errors - Missing records; not-authorized collapses into the
     same signal so existence is never leaked
  3. Storage errors - Persistence failures

SEE ALSO:
  - service.go: Raises these errors
  - api/handlers.go: Maps them to HTTP statuses
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned for missing records. Not-authorized access
	// deliberately returns the same error: an actor may not distinguish
	// "doesn't exist" from "exists but you can't see it".
	ErrNotFound = errors.New("not found")

	// ErrProofStorage is returned when persisting a proof attachment fails.
	// Proof attachment is not best-effort; the whole operation aborts.
	ErrProofStorage = errors.New("failed to store proof attachment")
)

// =============================================================================
// VALIDATION ERRORS - Reject the operation before any mutation
// =============================================================================

// ValidationError reports contradictory or missing input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a client-input problem.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is the missing/not-visible signal.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
