/*
controller.go - Interactive allocation panel

PURPOSE:
  Controller is the state machine behind the grade cards. It turns operator
  input (open a grade, type a count, pick a section and course, save, remove)
  into Store calls, keeps the aggregate current, and tells the host about
  every successful mutation.

STATES:
  Idle                  no grade open
  GradeExpanded(grade)  one grade's input form open

  Idle --Expand(g)--> GradeExpanded(g)
  GradeExpanded(g) --Expand(g)--> Idle            (toggle)
  GradeExpanded(g) --Expand(h)--> GradeExpanded(h) (input for g discarded)
  GradeExpanded(g) --Cancel--> Idle
  GradeExpanded(g) --Save ok--> GradeExpanded(g)  (input cleared)

VALIDATION:
  SetStudents validates on every keystroke but never rejects the keystroke;
  the outcome sits in Input().Err. Save validates again against the live
  Store, so a stale advisory error can never let a bad record through.
  Section and course changes drop an error the buffer no longer has.

SEE ALSO:
  - store.go: Mutations and capacity queries
  - aggregate.go: Recomputed after each mutation
  - input.go: Forgiving student-count parse
*/
package allocation

import "errors"

// PanelState is the controller's top-level state.
type PanelState int

const (
	StateIdle PanelState = iota
	StateGradeExpanded
)

func (s PanelState) String() string {
	switch s {
	case StateGradeExpanded:
		return "grade_expanded"
	default:
		return "idle"
	}
}

// Listener receives the grade summaries after each successful mutation.
type Listener func([]GradeAllocation)

// Controller coordinates one allocation session.
type Controller struct {
	store     *Store
	agg       *Aggregator
	state     PanelState
	grade     Grade
	input     Input
	listeners []Listener
}

// NewController starts an Idle session over a fresh Store.
func NewController(pool int) *Controller {
	return NewControllerWithStore(NewStore(pool))
}

// NewControllerWithStore starts an Idle session over an existing Store.
func NewControllerWithStore(store *Store) *Controller {
	c := &Controller{store: store, agg: NewAggregator()}
	c.agg.Recompute(store.All())
	return c
}

func (c *Controller) Store() *Store           { return c.store }
func (c *Controller) Aggregator() *Aggregator { return c.agg }
func (c *Controller) State() PanelState       { return c.state }
func (c *Controller) Input() Input            { return c.input }

// Expanded returns the open grade, if any.
func (c *Controller) Expanded() (Grade, bool) {
	if c.state != StateGradeExpanded {
		return 0, false
	}
	return c.grade, true
}

// Subscribe registers fn to be called after every successful mutation.
func (c *Controller) Subscribe(fn Listener) {
	c.listeners = append(c.listeners, fn)
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// Expand opens g, or collapses it if g is already open.
func (c *Controller) Expand(g Grade) error {
	if !g.Valid() {
		return ErrInvalidGrade
	}
	if c.state == StateGradeExpanded && c.grade == g {
		c.collapse()
		return nil
	}
	c.state = StateGradeExpanded
	c.grade = g
	c.input = Input{}
	return nil
}

// Cancel discards the input buffer and returns to Idle.
func (c *Controller) Cancel() {
	c.collapse()
}

func (c *Controller) collapse() {
	c.state = StateIdle
	c.grade = 0
	c.input = Input{}
}

// SetStudents records raw input and re-runs advisory validation.
func (c *Controller) SetStudents(raw string) error {
	if c.state != StateGradeExpanded {
		return ErrNoGradeExpanded
	}
	c.input.Raw = raw
	c.input.Students = ParseStudentCount(raw)
	c.input.Err = c.adviseStudents()
	return c.input.Err
}

func (c *Controller) adviseStudents() error {
	n := c.input.Students
	if n < 0 {
		return ErrInvalidStudentCount
	}
	if remaining := c.store.RemainingForGrade(c.grade); n > remaining {
		return &CapacityExceededError{Grade: c.grade, Requested: n, Remaining: remaining}
	}
	return nil
}

func (c *Controller) SetSection(s Section) error {
	if c.state != StateGradeExpanded {
		return ErrNoGradeExpanded
	}
	if s.IsSet() && !s.Valid() {
		return ErrInvalidSection
	}
	c.input.Section = s
	c.revalidate()
	return nil
}

func (c *Controller) SetCourse(course string) error {
	if c.state != StateGradeExpanded {
		return ErrNoGradeExpanded
	}
	c.input.Course = course
	c.revalidate()
	return nil
}

// revalidate refreshes a pending error after the buffer changed. An error
// left by a failed Save stays only while the buffer still fails the same way.
func (c *Controller) revalidate() {
	if c.input.Err == nil {
		return
	}
	if err := c.adviseStudents(); err != nil {
		c.input.Err = err
		return
	}
	if err := c.store.Validate(c.candidate()); err != nil && errors.Is(err, c.input.Err) {
		c.input.Err = err
		return
	}
	c.input.Err = nil
}

func (c *Controller) candidate() Candidate {
	return Candidate{
		Grade:    c.grade,
		Section:  c.input.Section,
		Students: c.input.Students,
		Course:   c.input.Course,
	}
}

// CanSave reports whether Save would succeed right now.
// The global over-allocation warning does not affect it.
func (c *Controller) CanSave() bool {
	if c.state != StateGradeExpanded {
		return false
	}
	return !IsBlocking(c.store.Validate(c.candidate()))
}

// Save commits the input buffer as a new allocation. On success the buffer
// is cleared and the grade stays open; on failure nothing but Input().Err
// changes.
func (c *Controller) Save() (SectionAllocation, error) {
	if c.state != StateGradeExpanded {
		return SectionAllocation{}, ErrNoGradeExpanded
	}
	rec, err := c.store.Add(c.candidate())
	if err != nil {
		c.input.Err = err
		return SectionAllocation{}, err
	}
	c.input = Input{}
	c.changed()
	return rec, nil
}

// RemoveAllocation deletes id and reports whether anything was removed.
func (c *Controller) RemoveAllocation(id AllocationID) bool {
	if !c.store.Remove(id) {
		return false
	}
	if c.state == StateGradeExpanded && c.input.Raw != "" {
		c.input.Err = c.adviseStudents()
	}
	c.changed()
	return true
}

func (c *Controller) changed() {
	grades := c.agg.Recompute(c.store.All())
	for _, fn := range c.listeners {
		fn(grades)
	}
}

// =============================================================================
// DERIVED VIEWS
// =============================================================================

// Summary returns the grade allocations as of the last mutation.
func (c *Controller) Summary() []GradeAllocation {
	return c.agg.Grades()
}

// Warning is non-nil while the pool is over-allocated across grades.
func (c *Controller) Warning() *GlobalCapacityWarning {
	return c.store.Warning()
}

// Recommendation is the advisory split for the students currently typed.
func (c *Controller) Recommendation() Recommendation {
	return Recommend(c.input.Students)
}
