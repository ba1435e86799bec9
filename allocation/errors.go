/*
errors.go - Validation outcomes for the allocation engine

PURPOSE:
  Every failure in this package is a validation outcome returned as a value.
  Nothing panics and nothing corrupts state: a rejected operation leaves the
  store exactly as it was.

ERROR CATEGORIES:
  1. Blocking errors - prevent a save (invalid count, missing section,
     capacity exceeded for the grade, bad grade/section, no grade open)
  2. Advisory warning - the pool is exceeded across all grades; the panel
     keeps working and the submit boundary decides what to do

USAGE:
  if _, err := store.Add(c); err != nil {
      var capErr *allocation.CapacityExceededError
      if errors.As(err, &capErr) {
          fmt.Println("only", capErr.Remaining, "left")
      }
  }

SEE ALSO:
  - store.go: Returns these from Add
  - controller.go: Surfaces them per keystroke
*/
package allocation

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidStudentCount is returned when the student count is not positive.
	ErrInvalidStudentCount = errors.New("student count must be greater than zero")

	// ErrMissingSection is returned when no section was chosen.
	ErrMissingSection = errors.New("section is required")

	// ErrCapacityExceeded is returned when a grade cannot absorb the students.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrGlobalCapacityExceeded marks the advisory over-allocation state.
	ErrGlobalCapacityExceeded = errors.New("total allocation exceeds expected students")

	ErrInvalidGrade   = errors.New("grade out of range")
	ErrInvalidSection = errors.New("unknown section")

	// ErrDuplicateAllocation is returned by Restore for a missing or repeated id.
	ErrDuplicateAllocation = errors.New("duplicate allocation id")

	// ErrNoGradeExpanded is returned by the controller when no grade is open.
	ErrNoGradeExpanded = errors.New("no grade expanded")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// CapacityExceededError reports how much room a grade had left.
type CapacityExceededError struct {
	Grade     Grade
	Requested int
	Remaining int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("capacity exceeded for grade %d: requested %d, remaining %d",
		e.Grade, e.Requested, e.Remaining)
}

func (e *CapacityExceededError) Unwrap() error {
	return ErrCapacityExceeded
}

// GlobalCapacityWarning describes an over-allocated pool. It is advisory
// inside the panel and only rejected at the submit boundary.
type GlobalCapacityWarning struct {
	Pool      int
	Allocated int
	Over      int
}

func (w *GlobalCapacityWarning) Error() string {
	return fmt.Sprintf("allocated %d of %d expected students (%d over)", w.Allocated, w.Pool, w.Over)
}

func (w *GlobalCapacityWarning) Unwrap() error {
	return ErrGlobalCapacityExceeded
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsBlocking reports whether err must disable saving.
// The global warning is the only non-blocking outcome.
func IsBlocking(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrGlobalCapacityExceeded)
}

// IsClientError returns true if the error is due to invalid operator input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidStudentCount) ||
		errors.Is(err, ErrMissingSection) ||
		errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrGlobalCapacityExceeded) ||
		errors.Is(err, ErrInvalidGrade) ||
		errors.Is(err, ErrInvalidSection) ||
		errors.Is(err, ErrNoGradeExpanded)
}
