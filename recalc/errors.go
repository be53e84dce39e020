package recalc

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrSessionNotFound is returned when a recalculation targets a
	// session id that does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrPhotographerNotFound is returned by batch entry points when the
	// photographer whose sessions should be recalculated is absent.
	ErrPhotographerNotFound = errors.New("photographer not found")

	// ErrSchoolNotFound is the school-scoped equivalent.
	ErrSchoolNotFound = errors.New("school not found")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ItemError records one failed session inside a batch. Batches are
// fail-soft: item errors are tallied, never fatal.
type ItemError struct {
	SessionID string
	Err       error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("session %s: %v", e.SessionID, e.Err)
}

func (e ItemError) Unwrap() error { return e.Err }
