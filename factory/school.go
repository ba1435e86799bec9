/*
Package factory builds allocation panels from JSON school definitions.

PURPOSE:
  Lets demo data and fixtures describe a school as JSON instead of Go code.
  A definition is replayed through an allocation.Controller exactly as a user
  would type it, so every row passes the same validation as the UI.

JSON SCHEMA:
  {
    "name": "Sunrise Primary",
    "total_students_expected": 180,
    "sections": [
      {"grade": 1, "section": "A", "students": 25, "course": "CBSE"},
      {"grade": 1, "section": "B", "students": 22}
    ]
  }

USAGE:
  f := factory.NewSchoolFactory()
  def, err := f.ParseSchool(jsonString)
  ctrl, err := f.Build(def)
  svc.Submit(ctx, school.SubmitInput{Name: def.Name, ...})

SEE ALSO:
  - allocation/controller.go: Transitions replayed by Build
  - api/scenarios.go: Demo scenarios defined as JSON
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/warp/school-onboarding/allocation"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// SchoolJSON is the JSON representation of a school and its sections.
type SchoolJSON struct {
	Name                  string        `json:"name"`
	TotalStudentsExpected int           `json:"total_students_expected"`
	Sections              []SectionJSON `json:"sections"`
}

// SectionJSON is one section allocation row.
type SectionJSON struct {
	Grade    int    `json:"grade"`
	Section  string `json:"section"`
	Students int    `json:"students"`
	Course   string `json:"course,omitempty"`
}

// =============================================================================
// SCHOOL FACTORY
// =============================================================================

// SchoolFactory converts JSON definitions into allocation panels.
type SchoolFactory struct{}

func NewSchoolFactory() *SchoolFactory {
	return &SchoolFactory{}
}

// ParseSchool decodes a definition and checks its shape. Capacity is
// checked later, by Build.
func (f *SchoolFactory) ParseSchool(jsonStr string) (*SchoolJSON, error) {
	var def SchoolJSON
	dec := json.NewDecoder(strings.NewReader(jsonStr))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	def.Name = strings.TrimSpace(def.Name)
	if def.Name == "" {
		return nil, fmt.Errorf("school name is required")
	}
	if def.TotalStudentsExpected < 0 {
		return nil, fmt.Errorf("total_students_expected must be >= 0, got %d", def.TotalStudentsExpected)
	}
	for i := range def.Sections {
		def.Sections[i].Section = strings.ToUpper(strings.TrimSpace(def.Sections[i].Section))
	}
	return &def, nil
}

// Build replays the definition through a fresh Controller and returns it
// idle. The first row that the panel would reject aborts the build.
func (f *SchoolFactory) Build(def *SchoolJSON) (*allocation.Controller, error) {
	ctrl := allocation.NewController(def.TotalStudentsExpected)
	for i, row := range def.Sections {
		if err := replay(ctrl, row); err != nil {
			return nil, fmt.Errorf("section %d (grade %d %s): %w", i, row.Grade, row.Section, err)
		}
	}
	ctrl.Cancel()
	return ctrl, nil
}

func replay(ctrl *allocation.Controller, row SectionJSON) error {
	grade := allocation.Grade(row.Grade)
	if g, open := ctrl.Expanded(); !open || g != grade {
		if err := ctrl.Expand(grade); err != nil {
			return err
		}
	}
	ctrl.SetStudents(strconv.Itoa(row.Students))
	if err := ctrl.SetSection(allocation.Section(row.Section)); err != nil {
		return err
	}
	ctrl.SetCourse(row.Course)
	_, err := ctrl.Save()
	return err
}
