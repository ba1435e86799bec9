/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the allocation engine's Go types from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Sessions:
    CreateSessionRequest, ExpandRequest, InputRequest, SessionDTO, InputDTO

  Allocations:
    AllocationDTO, GradeSummaryDTO, RecommendationDTO, WarningDTO

  Schools:
    SchoolDTO, GradeAllocationDTO

  Scenarios:
    ScenarioDTO, LoadScenarioRequest, LoadScenarioResponse

VALIDATION:
  Shape checks use validator struct tags. Business rules (student counts,
  sections, capacity) are left to the allocation engine so its error
  taxonomy reaches the client unchanged.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/school-onboarding/allocation"
	"github.com/warp/school-onboarding/school"
)

// =============================================================================
// SESSION TYPES
// =============================================================================

// CreateSessionRequest opens a new allocation panel.
type CreateSessionRequest struct {
	SchoolName            string `json:"school_name" validate:"required,max=200"`
	TotalStudentsExpected *int   `json:"total_students_expected" validate:"required,gte=0"`
}

// ExpandRequest toggles a grade card.
type ExpandRequest struct {
	Grade int `json:"grade"`
}

// InputRequest updates the open grade's form. Nil fields are left alone.
// Students is the raw text of the field; non-numeric text counts as 0.
type InputRequest struct {
	Students *string `json:"students,omitempty"`
	Section  *string `json:"section,omitempty" validate:"omitempty,max=1"`
	Course   *string `json:"course,omitempty" validate:"omitempty,max=100"`
}

// SubmitSessionRequest optionally overrides the school name on submit.
type SubmitSessionRequest struct {
	SchoolName string `json:"school_name,omitempty" validate:"omitempty,max=200"`
}

// SessionDTO is the full panel state.
type SessionDTO struct {
	ID                    string             `json:"id"`
	SchoolID              string             `json:"school_id,omitempty"`
	SchoolName            string             `json:"school_name"`
	TotalStudentsExpected int                `json:"total_students_expected"`
	Allocated             int                `json:"allocated"`
	RemainingGlobal       int                `json:"remaining_global"`
	State                 string             `json:"state"`
	ExpandedGrade         *int               `json:"expanded_grade,omitempty"`
	Input                 *InputDTO          `json:"input,omitempty"`
	CanSave               bool               `json:"can_save"`
	Grades                []GradeSummaryDTO  `json:"grades"`
	Allocations           []AllocationDTO    `json:"allocations"`
	Warning               *WarningDTO        `json:"warning,omitempty"`
	Recommendation        *RecommendationDTO `json:"recommendation,omitempty"`
}

// InputDTO is the open grade's unsaved form.
type InputDTO struct {
	Students          string `json:"students"`
	StudentCount      int    `json:"student_count"`
	Section           string `json:"section,omitempty"`
	Course            string `json:"course,omitempty"`
	Error             string `json:"error,omitempty"`
	ErrorCode         string `json:"error_code,omitempty"`
	RemainingForGrade int    `json:"remaining_for_grade"`
}

// =============================================================================
// ALLOCATION TYPES
// =============================================================================

type AllocationDTO struct {
	ID       string `json:"id"`
	Grade    int    `json:"grade"`
	Section  string `json:"section"`
	Students int    `json:"students"`
	Course   string `json:"course,omitempty"`
}

// GradeAllocationDTO is the persisted per-grade roll-up.
type GradeAllocationDTO struct {
	Grade    int      `json:"grade"`
	Students int      `json:"students"`
	Sections []string `json:"sections"`
	Course   string   `json:"course,omitempty"`
}

// GradeSummaryDTO adds capacity figures for the panel.
type GradeSummaryDTO struct {
	GradeAllocationDTO
	Remaining   int    `json:"remaining"`
	FillPercent string `json:"fill_percent"`
}

type RecommendationDTO struct {
	Students       int      `json:"students"`
	Count          int      `json:"count"`
	Sections       []string `json:"sections"`
	PerSectionSize int      `json:"per_section_size"`
	Clamped        bool     `json:"clamped,omitempty"`
	Advisory       string   `json:"advisory,omitempty"`
}

// WarningDTO is the non-blocking over-allocation banner.
type WarningDTO struct {
	Message   string `json:"message"`
	Allocated int    `json:"allocated"`
	Over      int    `json:"over"`
}

// =============================================================================
// SCHOOL TYPES
// =============================================================================

type SchoolDTO struct {
	ID                    string               `json:"id"`
	Name                  string               `json:"name"`
	TotalStudentsExpected int                  `json:"total_students_expected"`
	Allocated             int                  `json:"allocated"`
	Grades                []GradeAllocationDTO `json:"grades"`
	Sections              []AllocationDTO      `json:"sections"`
	CreatedAt             string               `json:"created_at"`
}

// =============================================================================
// SCENARIO TYPES
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

type LoadScenarioResponse struct {
	ScenarioID string   `json:"scenario_id"`
	SchoolIDs  []string `json:"school_ids"`
	SessionIDs []string `json:"session_ids"`
}

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorResponse is returned for all API errors.
type ErrorResponse struct {
	Error   string          `json:"error"`
	Code    string          `json:"code,omitempty"`
	Details string          `json:"details,omitempty"`
	Fields  []FieldErrorDTO `json:"fields,omitempty"`
}

type FieldErrorDTO struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toAllocationDTOs(recs []allocation.SectionAllocation) []AllocationDTO {
	out := make([]AllocationDTO, len(recs))
	for i, r := range recs {
		out[i] = AllocationDTO{
			ID:       string(r.ID),
			Grade:    int(r.Grade),
			Section:  string(r.Section),
			Students: r.Students,
			Course:   r.Course,
		}
	}
	return out
}

func toGradeAllocationDTO(ga allocation.GradeAllocation) GradeAllocationDTO {
	return GradeAllocationDTO{
		Grade:    int(ga.Grade),
		Students: ga.Students,
		Sections: sectionStrings(ga.Sections),
		Course:   ga.Course,
	}
}

func toGradeSummaryDTOs(sums []allocation.GradeSummary) []GradeSummaryDTO {
	out := make([]GradeSummaryDTO, len(sums))
	for i, s := range sums {
		out[i] = GradeSummaryDTO{
			GradeAllocationDTO: toGradeAllocationDTO(s.GradeAllocation),
			Remaining:          s.Remaining,
			FillPercent:        s.FillPercent.StringFixed(2),
		}
	}
	return out
}

func toRecommendationDTO(r allocation.Recommendation) *RecommendationDTO {
	return &RecommendationDTO{
		Students:       r.Students,
		Count:          r.Count,
		Sections:       sectionStrings(r.Sections),
		PerSectionSize: r.PerSectionSize,
		Clamped:        r.Clamped,
		Advisory:       r.Advisory(),
	}
}

func toSchoolDTO(s school.School) SchoolDTO {
	grades := make([]GradeAllocationDTO, len(s.Grades))
	for i, ga := range s.Grades {
		grades[i] = toGradeAllocationDTO(ga)
	}
	return SchoolDTO{
		ID:                    s.ID,
		Name:                  s.Name,
		TotalStudentsExpected: s.TotalStudentsExpected,
		Allocated:             s.Allocated(),
		Grades:                grades,
		Sections:              toAllocationDTOs(s.Sections),
		CreatedAt:             s.CreatedAt.Format(time.RFC3339),
	}
}

func sectionStrings(secs []allocation.Section) []string {
	out := make([]string, len(secs))
	for i, s := range secs {
		out[i] = string(s)
	}
	return out
}
