package allocation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SECTION RECOMMENDER - Class-size heuristic
// =============================================================================

// TargetSectionSize is the class size the recommender aims for.
const TargetSectionSize = 25

// Recommendation is advisory output; it never touches a Store.
type Recommendation struct {
	Students       int
	Count          int
	Sections       []Section
	PerSectionSize int

	// Clamped is set when the heuristic asked for more sections than the
	// alphabet provides and Count was reduced to the alphabet size.
	Clamped bool
}

// Recommend proposes a section split for n students.
//
//	count          = max(1, round(n / 25))   (half away from zero)
//	sections       = first count labels of the alphabet
//	perSectionSize = ceil(n / count)
//
// n <= 0 yields an empty recommendation.
func Recommend(n int) Recommendation {
	if n <= 0 {
		return Recommendation{Students: n, Sections: []Section{}}
	}

	students := decimal.NewFromInt(int64(n))
	count := int(students.Div(decimal.NewFromInt(TargetSectionSize)).Round(0).IntPart())
	if count < 1 {
		count = 1
	}

	clamped := false
	if count > len(sectionAlphabet) {
		count = len(sectionAlphabet)
		clamped = true
	}

	perSection := students.Div(decimal.NewFromInt(int64(count))).Ceil().IntPart()

	return Recommendation{
		Students:       n,
		Count:          count,
		Sections:       Sections()[:count],
		PerSectionSize: int(perSection),
		Clamped:        clamped,
	}
}

// Advisory renders the recommendation as display text.
func (r Recommendation) Advisory() string {
	if r.Count == 0 {
		return ""
	}
	noun := "sections"
	if r.Count == 1 {
		noun = "section"
	}
	text := fmt.Sprintf("%d students, %d %s recommended (%d each)", r.Students, r.Count, noun, r.PerSectionSize)
	if r.Clamped {
		text += fmt.Sprintf("; capped at %d sections", len(sectionAlphabet))
	}
	return text
}
