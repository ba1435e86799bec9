/*
Package allocation provides the grade/section capacity-allocation engine.

PURPOSE:
  When a school is onboarded, an operator distributes a pool of expected
  students across grades and sections. This package owns that distribution:
  the authoritative list of section-level allocations, the capacity checks
  against the pool, the section recommendation heuristic, and the grade-level
  summaries derived from the section list.

KEY CONCEPTS IN THIS FILE (types.go):
  - Grade: A school grade in the closed range [MinGrade, MaxGrade]
  - Section: A section label from the fixed alphabet {A, B, C, D}
  - SectionAllocation: The atomic unit of state (grade, section, students, course)
  - GradeAllocation: Derived per-grade summary, never stored directly

CAPACITY MODEL:
  The pool (total students expected) is read-only for the whole session.
  Each grade is capped by the FULL pool, not by a grade-specific quota.
  Over-allocation across grades is an advisory warning, not an error.

USAGE:
  store := allocation.NewStore(100)
  rec, err := store.Add(allocation.Candidate{Grade: 1, Section: allocation.SectionA, Students: 60})
  store.RemainingForGrade(1) // 40

SEE ALSO:
  - store.go: Store (add/remove/capacity queries)
  - recommend.go: Section recommendation heuristic
  - aggregate.go: Grade-level summaries
  - controller.go: Interactive panel state machine
*/
package allocation

import "fmt"

// =============================================================================
// GRADES AND SECTIONS
// =============================================================================

// Grade is a school grade number.
type Grade int

const (
	MinGrade Grade = 1
	MaxGrade Grade = 10
)

// Valid reports whether g is inside the supported grade range.
func (g Grade) Valid() bool { return g >= MinGrade && g <= MaxGrade }

func (g Grade) String() string { return fmt.Sprintf("Grade %d", int(g)) }

// Grades returns every supported grade in ascending order.
func Grades() []Grade {
	out := make([]Grade, 0, MaxGrade-MinGrade+1)
	for g := MinGrade; g <= MaxGrade; g++ {
		out = append(out, g)
	}
	return out
}

// Section is a section label. The zero value means "unset".
type Section string

const (
	SectionA Section = "A"
	SectionB Section = "B"
	SectionC Section = "C"
	SectionD Section = "D"
)

// sectionAlphabet is ordered; recommendations take a prefix of it.
var sectionAlphabet = []Section{SectionA, SectionB, SectionC, SectionD}

// Sections returns the section alphabet in order.
func Sections() []Section {
	out := make([]Section, len(sectionAlphabet))
	copy(out, sectionAlphabet)
	return out
}

func (s Section) IsSet() bool { return s != "" }

// Valid reports whether s belongs to the alphabet.
func (s Section) Valid() bool {
	for _, l := range sectionAlphabet {
		if s == l {
			return true
		}
	}
	return false
}

// =============================================================================
// ALLOCATIONS
// =============================================================================

// AllocationID identifies a SectionAllocation. Never reused.
type AllocationID string

// Candidate is the input to Store.Add.
type Candidate struct {
	Grade    Grade
	Section  Section
	Students int
	Course   string // optional
}

// SectionAllocation assigns a number of students to one section of a grade.
// Records are immutable; a change is a Remove followed by an Add.
type SectionAllocation struct {
	ID       AllocationID
	Grade    Grade
	Section  Section
	Students int
	Course   string
}

// GradeAllocation is the per-grade roll-up of SectionAllocations.
type GradeAllocation struct {
	Grade    Grade
	Students int
	Sections []Section // deduplicated, first-seen order
	Course   string    // last non-empty course seen for the grade
}
