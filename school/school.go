/*
Package school is the host side of the allocation panel.

PURPOSE:
  The allocation engine never persists anything. When the onboarding form is
  submitted, the school record (name, expected students and the allocation
  list) is handed to this package, checked at the submit boundary and
  written through a Repository.

SUBMIT BOUNDARY:
  Inside the panel an over-allocated pool is only a warning. Submitting one
  is rejected with *allocation.GlobalCapacityWarning so the operator has to
  fix the numbers before the school is saved.

IMPLEMENTATIONS:
  - school/store/memory.go: In-memory for tests/dev
  - store/sqlite/sqlite.go: SQLite

SEE ALSO:
  - service.go: Submit / Get / List / Delete
  - allocation/store.go: Restore, used to re-validate submitted allocations
*/
package school

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/warp/school-onboarding/allocation"
)

// School is a saved onboarding result.
type School struct {
	ID                    string
	Name                  string
	TotalStudentsExpected int
	Sections              []allocation.SectionAllocation
	Grades                []allocation.GradeAllocation // derived from Sections on every save/load
	CreatedAt             time.Time
}

// Allocated returns the students allocated across all grades.
func (s School) Allocated() int {
	total := 0
	for _, r := range s.Sections {
		total += r.Students
	}
	return total
}

// =============================================================================
// REPOSITORY - Persistence for schools
// =============================================================================

// Repository persists schools. Save replaces any existing school with the
// same ID together with its allocation list.
type Repository interface {
	Save(ctx context.Context, s School) error
	Get(ctx context.Context, id string) (*School, error)
	List(ctx context.Context) ([]School, error)
	Delete(ctx context.Context, id string) error
	Reset(ctx context.Context) error
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrSchoolNotFound = errors.New("school not found")
	ErrInvalidSchool  = errors.New("invalid school")
)

// FieldError names one invalid field of a submission.
type FieldError struct {
	Field string
	Error string
}

// ValidationError lists every invalid field of a submission.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Error)
	}
	return "invalid school: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidSchool
}

// IsNotFound returns true if the error indicates a missing school.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSchoolNotFound)
}
