package allocation

import (
	"strconv"
	"strings"
)

// =============================================================================
// INPUT BUFFER - What the operator typed vs. what the engine consumes
// =============================================================================

// Input is the unsaved state of the expanded grade's form.
type Input struct {
	Raw      string // students field exactly as typed
	Students int    // ParseStudentCount(Raw)
	Section  Section
	Course   string
	Err      error // most recent advisory validation outcome
}

// ParseStudentCount is the forgiving parse used for the students field.
// Surrounding whitespace is ignored; blank or non-numeric input reads as 0.
// Negative numbers parse as typed so validation can flag them.
func ParseStudentCount(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
