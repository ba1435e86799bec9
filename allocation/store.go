/*
store.go - Authoritative list of section allocations

PURPOSE:
  Store owns the ordered list of SectionAllocation records for one panel
  session together with the pool they draw from. Add is the only way to
  create a record and Remove the only way to destroy one.

CAPACITY RULES:
  RemainingGlobal   = pool - sum(students)
  RemainingForGrade = pool - sum(students where grade = g)

  Both may go negative. Add rejects only when the target GRADE cannot absorb
  the request; exceeding the pool across grades is reported separately by
  Warning().

ORDERING:
  Records keep insertion order for their whole lifetime. Removal does not
  reorder the remaining records.

CONCURRENCY:
  Store is not safe for concurrent use. One panel session owns it.

SEE ALSO:
  - errors.go: Validation outcomes
  - aggregate.go: Derives grade summaries from All()
*/
package allocation

import (
	"fmt"

	"github.com/google/uuid"
)

// Store holds the allocations of one session.
type Store struct {
	pool    int
	records []SectionAllocation
	newID   func() AllocationID
}

// NewStore creates an empty store for the given pool.
// A negative pool is treated as zero.
func NewStore(pool int) *Store {
	if pool < 0 {
		pool = 0
	}
	return &Store{
		pool:  pool,
		newID: func() AllocationID { return AllocationID(uuid.NewString()) },
	}
}

// Pool returns the total students expected.
func (s *Store) Pool() int { return s.pool }

// Allocated returns the sum of students across all records.
func (s *Store) Allocated() int {
	total := 0
	for _, r := range s.records {
		total += r.Students
	}
	return total
}

// RemainingGlobal may be negative.
func (s *Store) RemainingGlobal() int {
	return s.pool - s.Allocated()
}

// RemainingForGrade may be negative.
func (s *Store) RemainingForGrade(g Grade) int {
	return s.pool - s.gradeTotal(g)
}

func (s *Store) gradeTotal(g Grade) int {
	total := 0
	for _, r := range s.records {
		if r.Grade == g {
			total += r.Students
		}
	}
	return total
}

// Validate checks a candidate against the current state without mutating it.
func (s *Store) Validate(c Candidate) error {
	if !c.Grade.Valid() {
		return ErrInvalidGrade
	}
	if c.Students <= 0 {
		return ErrInvalidStudentCount
	}
	if !c.Section.IsSet() {
		return ErrMissingSection
	}
	if !c.Section.Valid() {
		return ErrInvalidSection
	}
	if remaining := s.RemainingForGrade(c.Grade); c.Students > remaining {
		return &CapacityExceededError{Grade: c.Grade, Requested: c.Students, Remaining: remaining}
	}
	return nil
}

// Add validates c and appends a new record on success.
// A rejected candidate leaves the store untouched.
func (s *Store) Add(c Candidate) (SectionAllocation, error) {
	if err := s.Validate(c); err != nil {
		return SectionAllocation{}, err
	}
	rec := SectionAllocation{
		ID:       s.newID(),
		Grade:    c.Grade,
		Section:  c.Section,
		Students: c.Students,
		Course:   c.Course,
	}
	s.records = append(s.records, rec)
	return rec, nil
}

// Remove deletes the record with id. Unknown ids are a no-op.
func (s *Store) Remove(id AllocationID) bool {
	for i, r := range s.records {
		if r.ID == id {
			s.records = append(s.records[:i:i], s.records[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns the record with id.
func (s *Store) Get(id AllocationID) (SectionAllocation, bool) {
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return SectionAllocation{}, false
}

// AllocationsForGrade returns the grade's records in insertion order.
func (s *Store) AllocationsForGrade(g Grade) []SectionAllocation {
	var out []SectionAllocation
	for _, r := range s.records {
		if r.Grade == g {
			out = append(out, r)
		}
	}
	return out
}

// All returns a copy of every record in insertion order.
func (s *Store) All() []SectionAllocation {
	out := make([]SectionAllocation, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Store) Len() int { return len(s.records) }

// Warning returns a GlobalCapacityWarning when the pool is over-allocated.
func (s *Store) Warning() *GlobalCapacityWarning {
	allocated := s.Allocated()
	if allocated <= s.pool {
		return nil
	}
	return &GlobalCapacityWarning{Pool: s.pool, Allocated: allocated, Over: allocated - s.pool}
}

// Restore rebuilds a Store from saved records, keeping their ids and order.
// Every record must pass the same checks Add applies.
func Restore(pool int, records []SectionAllocation) (*Store, error) {
	s := NewStore(pool)
	seen := make(map[AllocationID]bool, len(records))
	for _, r := range records {
		if r.ID == "" || seen[r.ID] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateAllocation, r.ID)
		}
		c := Candidate{Grade: r.Grade, Section: r.Section, Students: r.Students, Course: r.Course}
		if err := s.Validate(c); err != nil {
			return nil, err
		}
		seen[r.ID] = true
		s.records = append(s.records, r)
	}
	return s, nil
}
