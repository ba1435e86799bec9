/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Populates the repository (and optionally open panel sessions) with
  realistic schools so the frontend has something to show.

AVAILABLE SCENARIOS:
  primary-school:    One saved primary school, grades 1-5
  secondary-school:  One saved secondary school with multi-section grades and courses
  district:          Both of the above plus a half-finished draft session
  over-allocated:    A draft session whose grades exceed the pool (warning shown)

HOW SCENARIOS WORK:
  1. Reset: clear the repository and drop every open session
  2. Replay a JSON school definition through factory.SchoolFactory, which
     drives an allocation.Controller through the same transitions as the UI
  3. Either submit it through school.Service or leave it open as a session

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "district"}

NOTE:
  Scenarios reset the database. Only use in development/demo environments.
*/
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/warp/school-onboarding/allocation"
	"github.com/warp/school-onboarding/factory"
	"github.com/warp/school-onboarding/school"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "primary-school",
		Name:        "Primary School",
		Description: "Grades 1-5, one or two sections each, fully allocated",
	},
	{
		ID:          "secondary-school",
		Name:        "Secondary School",
		Description: "Grades 6-10 with up to four sections and per-grade courses",
	},
	{
		ID:          "district",
		Name:        "District",
		Description: "Two onboarded schools plus a draft session with grade 3 open",
	},
	{
		ID:          "over-allocated",
		Name:        "Over-Allocated Draft",
		Description: "Draft session where grade totals exceed the expected students",
	},
}

// School definitions replayed through the factory.
const (
	primarySchoolJSON = `{
		"name": "Sunrise Primary",
		"total_students_expected": 180,
		"sections": [
			{"grade": 1, "section": "A", "students": 25, "course": "CBSE"},
			{"grade": 1, "section": "B", "students": 22, "course": "CBSE"},
			{"grade": 2, "section": "A", "students": 28, "course": "CBSE"},
			{"grade": 3, "section": "A", "students": 24, "course": "CBSE"},
			{"grade": 3, "section": "B", "students": 21, "course": "CBSE"},
			{"grade": 4, "section": "A", "students": 30, "course": "CBSE"},
			{"grade": 5, "section": "A", "students": 30, "course": "CBSE"}
		]
	}`

	secondarySchoolJSON = `{
		"name": "Hilltop Secondary",
		"total_students_expected": 340,
		"sections": [
			{"grade": 6, "section": "A", "students": 32, "course": "Cambridge"},
			{"grade": 6, "section": "B", "students": 30, "course": "Cambridge"},
			{"grade": 7, "section": "A", "students": 25, "course": "Cambridge"},
			{"grade": 7, "section": "B", "students": 25, "course": "Cambridge"},
			{"grade": 7, "section": "C", "students": 20, "course": "Cambridge"},
			{"grade": 8, "section": "A", "students": 35, "course": "Cambridge"},
			{"grade": 8, "section": "B", "students": 33, "course": "Cambridge"},
			{"grade": 9, "section": "A", "students": 26, "course": "IGCSE"},
			{"grade": 9, "section": "B", "students": 26, "course": "IGCSE"},
			{"grade": 9, "section": "C", "students": 24, "course": "IGCSE"},
			{"grade": 9, "section": "D", "students": 24, "course": "IGCSE"},
			{"grade": 10, "section": "A", "students": 40, "course": "IGCSE"}
		]
	}`

	lakesideDraftJSON = `{
		"name": "Lakeside Academy",
		"total_students_expected": 150,
		"sections": [
			{"grade": 1, "section": "A", "students": 30, "course": "Montessori"},
			{"grade": 2, "section": "A", "students": 30, "course": "Montessori"}
		]
	}`

	riversideDraftJSON = `{
		"name": "Riverside Elementary",
		"total_students_expected": 100,
		"sections": [
			{"grade": 1, "section": "A", "students": 40},
			{"grade": 1, "section": "B", "students": 30},
			{"grade": 2, "section": "A", "students": 45},
			{"grade": 3, "section": "A", "students": 35}
		]
	}`
)

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets all data and loads a predefined scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	if err := h.reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	resp := LoadScenarioResponse{ScenarioID: req.ScenarioID, SchoolIDs: []string{}, SessionIDs: []string{}}
	var err error
	switch req.ScenarioID {
	case "primary-school":
		err = h.seedSchool(ctx, &resp, primarySchoolJSON)
	case "secondary-school":
		err = h.seedSchool(ctx, &resp, secondarySchoolJSON)
	case "district":
		err = h.loadDistrictScenario(ctx, &resp)
	case "over-allocated":
		_, err = h.seedDraft(&resp, riversideDraftJSON)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	log.Printf("scenario %s loaded (%d schools, %d sessions)", req.ScenarioID, len(resp.SchoolIDs), len(resp.SessionIDs))
	writeJSON(w, http.StatusOK, resp)
}

// ResetDatabase clears all schools and open sessions.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) reset(ctx context.Context) error {
	if err := h.Repo.Reset(ctx); err != nil {
		return err
	}
	h.mu.Lock()
	h.sessions = make(map[string]*session)
	h.currentScenario = ""
	h.mu.Unlock()
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadDistrictScenario(ctx context.Context, resp *LoadScenarioResponse) error {
	for _, def := range []string{primarySchoolJSON, secondarySchoolJSON} {
		if err := h.seedSchool(ctx, resp, def); err != nil {
			return err
		}
	}
	s, err := h.seedDraft(resp, lakesideDraftJSON)
	if err != nil {
		return err
	}

	// Leave grade 3 open with a count typed so the recommendation shows
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ctrl.Expand(3); err != nil {
		return err
	}
	return s.ctrl.SetStudents("60")
}

// seedSchool builds a definition and submits it like the frontend would.
func (h *Handler) seedSchool(ctx context.Context, resp *LoadScenarioResponse, defJSON string) error {
	def, ctrl, err := buildDefinition(defJSON)
	if err != nil {
		return err
	}
	sch, err := h.Schools.Submit(ctx, school.SubmitInput{
		Name:                  def.Name,
		TotalStudentsExpected: def.TotalStudentsExpected,
		Allocations:           ctrl.Store().All(),
	})
	if err != nil {
		return fmt.Errorf("submit %s: %w", def.Name, err)
	}
	resp.SchoolIDs = append(resp.SchoolIDs, sch.ID)
	return nil
}

// seedDraft builds a definition and leaves it open as a session.
func (h *Handler) seedDraft(resp *LoadScenarioResponse, defJSON string) (*session, error) {
	def, ctrl, err := buildDefinition(defJSON)
	if err != nil {
		return nil, err
	}
	s := h.openSession("", def.Name, ctrl)
	resp.SessionIDs = append(resp.SessionIDs, s.id)
	return s, nil
}

func buildDefinition(defJSON string) (*factory.SchoolJSON, *allocation.Controller, error) {
	f := factory.NewSchoolFactory()
	def, err := f.ParseSchool(defJSON)
	if err != nil {
		return nil, nil, err
	}
	ctrl, err := f.Build(def)
	if err != nil {
		return nil, nil, fmt.Errorf("build %s: %w", def.Name, err)
	}
	return def, ctrl, nil
}
