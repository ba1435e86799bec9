/*
aggregate.go - Grade-level summaries derived from section allocations

PURPOSE:
  The panel, the summary view and the host "save school" call all want the
  allocation list rolled up per grade. Aggregator derives that roll-up from
  scratch on every Recompute; there is no incremental bookkeeping to drift
  out of sync with the Store.

DERIVED FIELDS:
  Students: sum of students for the grade
  Sections: labels seen for the grade, deduplicated, first-seen order
  Course:   last non-empty course seen for the grade
  Remaining (GradeSummary): pool - Students, may be negative
  FillPercent (GradeSummary): Students / pool * 100, two decimals

SEE ALSO:
  - store.go: Source of the allocation list
  - controller.go: Calls Recompute after every mutation
*/
package allocation

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Aggregator caches the result of the last Recompute.
type Aggregator struct {
	grades []GradeAllocation
	totals map[Grade]int
}

func NewAggregator() *Aggregator {
	return &Aggregator{totals: make(map[Grade]int)}
}

// Recompute rebuilds the grade summaries from records.
// The result is ordered by grade ascending.
func (a *Aggregator) Recompute(records []SectionAllocation) []GradeAllocation {
	byGrade := make(map[Grade]*GradeAllocation)
	seen := make(map[Grade]map[Section]bool)
	totals := make(map[Grade]int)

	for _, r := range records {
		ga, ok := byGrade[r.Grade]
		if !ok {
			ga = &GradeAllocation{Grade: r.Grade, Sections: []Section{}}
			byGrade[r.Grade] = ga
			seen[r.Grade] = make(map[Section]bool)
		}
		ga.Students += r.Students
		if !seen[r.Grade][r.Section] {
			seen[r.Grade][r.Section] = true
			ga.Sections = append(ga.Sections, r.Section)
		}
		if r.Course != "" {
			ga.Course = r.Course
		}
		totals[r.Grade] += r.Students
	}

	grades := make([]GradeAllocation, 0, len(byGrade))
	for _, ga := range byGrade {
		grades = append(grades, *ga)
	}
	sort.Slice(grades, func(i, j int) bool { return grades[i].Grade < grades[j].Grade })

	a.grades = grades
	a.totals = totals
	return a.Grades()
}

// Grades returns a copy of the last computed summaries.
func (a *Aggregator) Grades() []GradeAllocation {
	out := make([]GradeAllocation, len(a.grades))
	for i, ga := range a.grades {
		ga.Sections = append([]Section{}, ga.Sections...)
		out[i] = ga
	}
	return out
}

// GradeTotal returns the students allocated to g as of the last Recompute.
func (a *Aggregator) GradeTotal(g Grade) int {
	return a.totals[g]
}

// AllGradesWithAllocations returns grades with at least one record, ascending.
func (a *Aggregator) AllGradesWithAllocations() []Grade {
	out := make([]Grade, 0, len(a.grades))
	for _, ga := range a.grades {
		out = append(out, ga.Grade)
	}
	return out
}

// =============================================================================
// GRADE SUMMARY - Display view with capacity figures
// =============================================================================

// GradeSummary adds capacity figures to a GradeAllocation.
type GradeSummary struct {
	GradeAllocation
	Remaining   int
	FillPercent decimal.Decimal
}

// Summaries pairs every computed grade with its remaining capacity.
func (a *Aggregator) Summaries(pool int) []GradeSummary {
	return Summarize(a.Grades(), pool)
}

// Summarize adds capacity figures to already aggregated grades.
func Summarize(grades []GradeAllocation, pool int) []GradeSummary {
	out := make([]GradeSummary, 0, len(grades))
	for _, ga := range grades {
		out = append(out, GradeSummary{
			GradeAllocation: ga,
			Remaining:       pool - ga.Students,
			FillPercent:     FillPercent(ga.Students, pool),
		})
	}
	return out
}

// FillPercent returns allocated/pool as a percentage rounded to 2 places.
// An empty pool reports zero.
func FillPercent(allocated, pool int) decimal.Decimal {
	if pool <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(allocated)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(pool))).
		Round(2)
}

// Aggregate is a convenience for one-shot derivation.
func Aggregate(records []SectionAllocation) []GradeAllocation {
	return NewAggregator().Recompute(records)
}
