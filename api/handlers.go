/*
handlers.go - HTTP API handlers for school onboarding

PURPOSE:
  Exposes the allocation panel over REST. Each panel session wraps one
  allocation.Controller; the handlers translate HTTP calls into controller
  transitions and return the full panel state after each one.

ENDPOINTS:
  Sessions:
    POST   /api/sessions                               Open a panel (school name, pool)
    GET    /api/sessions/{id}                          Panel state
    POST   /api/sessions/{id}/expand                   Toggle a grade card
    PUT    /api/sessions/{id}/input                    Update the open grade's form
    POST   /api/sessions/{id}/save                     Add the form as an allocation
    POST   /api/sessions/{id}/cancel                   Close the grade, discard the form
    DELETE /api/sessions/{id}/allocations/{allocID}    Remove an allocation
    POST   /api/sessions/{id}/submit                   Persist the school, close the session

  Schools:
    GET    /api/schools                List saved schools
    GET    /api/schools/{id}           Saved school
    POST   /api/schools/{id}/edit      Reopen a saved school as a session
    DELETE /api/schools/{id}           Delete a school

  Recommendations:
    GET    /api/recommendations?students=N

SESSIONS:
  The controller is single-threaded. Every session carries its own mutex
  and handlers hold it for the whole transition.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors (student count, section, grade, capacity)
  - 404: Session or school not found
  - 409: Duplicate allocation ids
  - 422: Submitting an over-allocated pool
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/warp/school-onboarding/allocation"
	"github.com/warp/school-onboarding/school"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Repo    school.Repository
	Schools *school.Service

	validate *validator.Validate

	mu       sync.RWMutex
	sessions map[string]*session

	// Track currently loaded scenario
	currentScenario string
}

// session is one open allocation panel.
type session struct {
	mu         sync.Mutex
	id         string
	schoolID   string // set when editing a saved school
	schoolName string
	ctrl       *allocation.Controller

	// last grade list pushed by the controller's listener
	grades []allocation.GradeAllocation
}

// NewHandler creates a new handler over the given repository.
func NewHandler(repo school.Repository) *Handler {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{
		Repo:     repo,
		Schools:  school.NewService(repo),
		validate: v,
		sessions: make(map[string]*session),
	}
}

func (h *Handler) openSession(schoolID, name string, ctrl *allocation.Controller) *session {
	s := &session{
		id:         uuid.NewString(),
		schoolID:   schoolID,
		schoolName: name,
		ctrl:       ctrl,
		grades:     ctrl.Summary(),
	}
	ctrl.Subscribe(func(grades []allocation.GradeAllocation) { s.grades = grades })

	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
	return s
}

func (h *Handler) lookupSession(w http.ResponseWriter, r *http.Request) (*session, bool) {
	id := chi.URLParam(r, "id")
	h.mu.RLock()
	s, ok := h.sessions[id]
	h.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found", nil)
		return nil, false
	}
	return s, true
}

func (h *Handler) closeSession(id string) {
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

// CreateSession opens a new allocation panel.
// POST /api/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	s := h.openSession("", strings.TrimSpace(req.SchoolName), allocation.NewController(*req.TotalStudentsExpected))
	log.Printf("session %s opened for %q (pool %d)", s.id, s.schoolName, *req.TotalStudentsExpected)

	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusCreated, s.toDTO())
}

// GetSession returns the panel state.
// GET /api/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.toDTO())
}

// ExpandGrade toggles a grade card.
// POST /api/sessions/{id}/expand
func (h *Handler) ExpandGrade(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	var req ExpandRequest
	if !h.decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ctrl.Expand(allocation.Grade(req.Grade)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toDTO())
}

// UpdateInput applies keystrokes to the open grade's form. Advisory
// validation errors are reported inside the session state, not as a
// failed request.
// PUT /api/sessions/{id}/input
func (h *Handler) UpdateInput(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	var req InputRequest
	if !h.decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, open := s.ctrl.Expanded(); !open {
		writeDomainError(w, allocation.ErrNoGradeExpanded)
		return
	}
	if req.Section != nil {
		if err := s.ctrl.SetSection(allocation.Section(strings.ToUpper(strings.TrimSpace(*req.Section)))); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if req.Course != nil {
		s.ctrl.SetCourse(strings.TrimSpace(*req.Course))
	}
	if req.Students != nil {
		s.ctrl.SetStudents(*req.Students)
	}
	writeJSON(w, http.StatusOK, s.toDTO())
}

// SaveAllocation commits the open grade's form.
// POST /api/sessions/{id}/save
func (h *Handler) SaveAllocation(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ctrl.Save(); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.toDTO())
}

// CancelInput closes the open grade without saving.
// POST /api/sessions/{id}/cancel
func (h *Handler) CancelInput(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.Cancel()
	writeJSON(w, http.StatusOK, s.toDTO())
}

// RemoveAllocation deletes one allocation from the panel.
// DELETE /api/sessions/{id}/allocations/{allocID}
func (h *Handler) RemoveAllocation(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	allocID := allocation.AllocationID(chi.URLParam(r, "allocID"))

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ctrl.RemoveAllocation(allocID) {
		writeError(w, http.StatusNotFound, "Allocation not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, s.toDTO())
}

// SubmitSession persists the school and closes the session.
// POST /api/sessions/{id}/submit
func (h *Handler) SubmitSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	var req SubmitSessionRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sch, err := h.submitSession(r.Context(), s, req.SchoolName)
	if errors.Is(err, errSessionClosed) {
		writeError(w, http.StatusNotFound, "Session not found", nil)
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	log.Printf("session %s submitted as school %s (%d students allocated)", s.id, sch.ID, sch.Allocated())
	writeJSON(w, http.StatusCreated, toSchoolDTO(*sch))
}

var errSessionClosed = errors.New("session closed")

// submitSession persists s and unregisters it. Caller holds s.mu. A request
// that looked s up before another submit closed it gets errSessionClosed.
func (h *Handler) submitSession(ctx context.Context, s *session, name string) (*school.School, error) {
	h.mu.RLock()
	open := h.sessions[s.id] == s
	h.mu.RUnlock()
	if !open {
		return nil, errSessionClosed
	}

	if name == "" {
		name = s.schoolName
	}
	sch, err := h.Schools.Submit(ctx, school.SubmitInput{
		ID:                    s.schoolID,
		Name:                  name,
		TotalStudentsExpected: s.ctrl.Store().Pool(),
		Allocations:           s.ctrl.Store().All(),
	})
	if err != nil {
		return nil, err
	}
	h.closeSession(s.id)
	return sch, nil
}

// =============================================================================
// SCHOOL HANDLERS
// =============================================================================

// ListSchools returns every saved school.
// GET /api/schools
func (h *Handler) ListSchools(w http.ResponseWriter, r *http.Request) {
	schools, err := h.Schools.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list schools", err)
		return
	}
	dtos := make([]SchoolDTO, len(schools))
	for i, s := range schools {
		dtos[i] = toSchoolDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetSchool returns one saved school.
// GET /api/schools/{id}
func (h *Handler) GetSchool(w http.ResponseWriter, r *http.Request) {
	sch, err := h.Schools.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSchoolDTO(*sch))
}

// EditSchool reopens a saved school as a panel session.
// POST /api/schools/{id}/edit
func (h *Handler) EditSchool(w http.ResponseWriter, r *http.Request) {
	ctrl, sch, err := h.Schools.Edit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s := h.openSession(sch.ID, sch.Name, ctrl)

	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusCreated, s.toDTO())
}

// DeleteSchool removes a saved school.
// DELETE /api/schools/{id}
func (h *Handler) DeleteSchool(w http.ResponseWriter, r *http.Request) {
	if err := h.Schools.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RECOMMENDATIONS
// =============================================================================

// GetRecommendation returns the advisory section split.
// GET /api/recommendations?students=N
func (h *Handler) GetRecommendation(w http.ResponseWriter, r *http.Request) {
	n := allocation.ParseStudentCount(r.URL.Query().Get("students"))
	writeJSON(w, http.StatusOK, toRecommendationDTO(allocation.Recommend(n)))
}

// =============================================================================
// HELPERS
// =============================================================================

// toDTO renders the session. Caller holds s.mu.
func (s *session) toDTO() SessionDTO {
	store := s.ctrl.Store()

	dto := SessionDTO{
		ID:                    s.id,
		SchoolID:              s.schoolID,
		SchoolName:            s.schoolName,
		TotalStudentsExpected: store.Pool(),
		Allocated:             store.Allocated(),
		RemainingGlobal:       store.RemainingGlobal(),
		State:                 s.ctrl.State().String(),
		CanSave:               s.ctrl.CanSave(),
		Grades:                toGradeSummaryDTOs(allocation.Summarize(s.grades, store.Pool())),
		Allocations:           toAllocationDTOs(store.All()),
	}

	if g, open := s.ctrl.Expanded(); open {
		grade := int(g)
		in := s.ctrl.Input()
		dto.ExpandedGrade = &grade
		dto.Input = &InputDTO{
			Students:          in.Raw,
			StudentCount:      in.Students,
			Section:           string(in.Section),
			Course:            in.Course,
			RemainingForGrade: store.RemainingForGrade(g),
		}
		if in.Err != nil {
			dto.Input.Error = in.Err.Error()
			dto.Input.ErrorCode = errorCode(in.Err)
		}
		if in.Students > 0 {
			dto.Recommendation = toRecommendationDTO(s.ctrl.Recommendation())
		}
	}

	if warn := s.ctrl.Warning(); warn != nil {
		dto.Warning = &WarningDTO{Message: warn.Error(), Allocated: warn.Allocated, Over: warn.Over}
	}
	return dto
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			resp := ErrorResponse{Error: "Invalid request", Code: "invalid_request"}
			for _, fe := range verrs {
				resp.Fields = append(resp.Fields, FieldErrorDTO{Field: fe.Field(), Error: fe.Tag()})
			}
			writeJSON(w, http.StatusBadRequest, resp)
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine and repository errors to HTTP responses.
func writeDomainError(w http.ResponseWriter, err error) {
	var verr *school.ValidationError
	switch {
	case errors.As(err, &verr):
		resp := ErrorResponse{Error: "Invalid school", Code: "invalid_school", Details: err.Error()}
		for _, f := range verr.Fields {
			resp.Fields = append(resp.Fields, FieldErrorDTO{Field: f.Field, Error: f.Error})
		}
		writeJSON(w, http.StatusBadRequest, resp)
	case school.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "School not found", Code: "not_found"})
	case errors.Is(err, allocation.ErrGlobalCapacityExceeded):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: errorCode(err)})
	case errors.Is(err, allocation.ErrDuplicateAllocation):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Code: errorCode(err)})
	case allocation.IsClientError(err):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: errorCode(err)})
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, allocation.ErrInvalidStudentCount):
		return "invalid_student_count"
	case errors.Is(err, allocation.ErrMissingSection):
		return "missing_section"
	case errors.Is(err, allocation.ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, allocation.ErrGlobalCapacityExceeded):
		return "global_capacity_exceeded"
	case errors.Is(err, allocation.ErrInvalidGrade):
		return "invalid_grade"
	case errors.Is(err, allocation.ErrInvalidSection):
		return "invalid_section"
	case errors.Is(err, allocation.ErrNoGradeExpanded):
		return "no_grade_expanded"
	case errors.Is(err, allocation.ErrDuplicateAllocation):
		return "duplicate_allocation"
	default:
		return ""
	}
}
