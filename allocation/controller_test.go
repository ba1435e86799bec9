package allocation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/school-onboarding/allocation"
)

func expanded(t *testing.T, pool int, g allocation.Grade) *allocation.Controller {
	t.Helper()
	c := allocation.NewController(pool)
	require.NoError(t, c.Expand(g))
	return c
}

// =============================================================================
// EXPAND / COLLAPSE
// =============================================================================

func TestController_StartsIdle(t *testing.T) {
	c := allocation.NewController(100)

	assert.Equal(t, allocation.StateIdle, c.State())
	_, ok := c.Expanded()
	assert.False(t, ok)
	assert.False(t, c.CanSave())
}

func TestController_ExpandTwiceTogglesAndDiscardsInput(t *testing.T) {
	// GIVEN: Grade 3 open with unsaved input
	c := expanded(t, 100, 3)
	c.SetStudents("20")
	require.NoError(t, c.SetSection(allocation.SectionA))

	// WHEN: Expanding grade 3 again
	require.NoError(t, c.Expand(3))

	// THEN: Back to idle, buffer gone
	assert.Equal(t, allocation.StateIdle, c.State())
	assert.Equal(t, allocation.Input{}, c.Input())

	// AND: Reopening starts from a clean buffer
	require.NoError(t, c.Expand(3))
	assert.Equal(t, allocation.Input{}, c.Input())
}

func TestController_ExpandOtherGradeResetsInput(t *testing.T) {
	c := expanded(t, 100, 1)
	c.SetStudents("15")
	c.SetCourse("Montessori")

	require.NoError(t, c.Expand(2))

	g, ok := c.Expanded()
	require.True(t, ok)
	assert.Equal(t, allocation.Grade(2), g)
	assert.Equal(t, allocation.Input{}, c.Input())
}

func TestController_ExpandInvalidGrade(t *testing.T) {
	c := expanded(t, 100, 4)

	assert.ErrorIs(t, c.Expand(0), allocation.ErrInvalidGrade)
	assert.ErrorIs(t, c.Expand(11), allocation.ErrInvalidGrade)

	g, _ := c.Expanded()
	assert.Equal(t, allocation.Grade(4), g)
}

func TestController_Cancel(t *testing.T) {
	c := expanded(t, 100, 5)
	c.SetStudents("10")
	c.SetSection(allocation.SectionB)

	c.Cancel()

	assert.Equal(t, allocation.StateIdle, c.State())
	assert.Equal(t, allocation.Input{}, c.Input())
	assert.Equal(t, 0, c.Store().Len())
}

func TestController_SettersRequireExpandedGrade(t *testing.T) {
	c := allocation.NewController(10)

	assert.ErrorIs(t, c.SetStudents("3"), allocation.ErrNoGradeExpanded)
	assert.ErrorIs(t, c.SetSection(allocation.SectionA), allocation.ErrNoGradeExpanded)
	assert.ErrorIs(t, c.SetCourse("x"), allocation.ErrNoGradeExpanded)
	_, err := c.Save()
	assert.ErrorIs(t, err, allocation.ErrNoGradeExpanded)
}

// =============================================================================
// INPUT VALIDATION
// =============================================================================

func TestController_SetStudents_ForgivingParse(t *testing.T) {
	c := expanded(t, 100, 1)

	for _, raw := range []string{"", "abc", "12abc", "  "} {
		assert.NoError(t, c.SetStudents(raw), raw)
		assert.Equal(t, 0, c.Input().Students, raw)
		assert.Equal(t, raw, c.Input().Raw)
	}

	assert.NoError(t, c.SetStudents(" 42 "))
	assert.Equal(t, 42, c.Input().Students)
}

func TestController_SetStudents_AdvisoryErrors(t *testing.T) {
	c := expanded(t, 50, 1)

	err := c.SetStudents("-2")
	assert.ErrorIs(t, err, allocation.ErrInvalidStudentCount)
	assert.ErrorIs(t, c.Input().Err, allocation.ErrInvalidStudentCount)

	err = c.SetStudents("51")
	var capErr *allocation.CapacityExceededError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 50, capErr.Remaining)

	// Typing continues and the error clears once valid
	assert.NoError(t, c.SetStudents("50"))
	assert.Nil(t, c.Input().Err)
}

func TestController_SetSection_RejectsUnknownLabel(t *testing.T) {
	c := expanded(t, 50, 1)

	assert.ErrorIs(t, c.SetSection("Q"), allocation.ErrInvalidSection)
	assert.False(t, c.Input().Section.IsSet())
}

// =============================================================================
// SAVE
// =============================================================================

func TestController_Save_Success(t *testing.T) {
	c := expanded(t, 100, 2)
	var notified [][]allocation.GradeAllocation
	c.Subscribe(func(g []allocation.GradeAllocation) { notified = append(notified, g) })

	c.SetStudents("30")
	c.SetSection(allocation.SectionA)
	c.SetCourse("Cambridge")
	require.True(t, c.CanSave())

	rec, err := c.Save()
	require.NoError(t, err)

	assert.Equal(t, allocation.Grade(2), rec.Grade)
	assert.Equal(t, 30, rec.Students)
	assert.Equal(t, "Cambridge", rec.Course)

	// Grade stays open, buffer cleared
	g, ok := c.Expanded()
	assert.True(t, ok)
	assert.Equal(t, allocation.Grade(2), g)
	assert.Equal(t, allocation.Input{}, c.Input())

	// Aggregate recomputed and pushed to the host
	require.Len(t, notified, 1)
	require.Len(t, notified[0], 1)
	assert.Equal(t, 30, notified[0][0].Students)
	assert.Equal(t, 30, c.Aggregator().GradeTotal(2))
	assert.Equal(t, 70, c.Store().RemainingForGrade(2))
}

func TestController_Save_Failures(t *testing.T) {
	tests := []struct {
		name     string
		students string
		section  allocation.Section
		want     error
	}{
		{"no students", "", allocation.SectionA, allocation.ErrInvalidStudentCount},
		{"negative", "-1", allocation.SectionA, allocation.ErrInvalidStudentCount},
		{"no section", "10", "", allocation.ErrMissingSection},
		{"over capacity", "101", allocation.SectionA, allocation.ErrCapacityExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := expanded(t, 100, 1)
			calls := 0
			c.Subscribe(func([]allocation.GradeAllocation) { calls++ })
			c.SetStudents(tt.students)
			c.SetSection(tt.section)

			assert.False(t, c.CanSave())
			_, err := c.Save()

			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, c.Input().Err, tt.want)
			assert.Equal(t, 0, c.Store().Len())
			assert.Equal(t, 0, calls)
			assert.Equal(t, tt.students, c.Input().Raw, "input preserved")
		})
	}
}

func TestController_SetSection_ClearsMissingSectionError(t *testing.T) {
	// GIVEN: A save rejected for lack of a section
	c := expanded(t, 100, 1)
	c.SetStudents("10")
	_, err := c.Save()
	require.ErrorIs(t, err, allocation.ErrMissingSection)

	// WHEN: The operator picks a section
	require.NoError(t, c.SetSection(allocation.SectionA))

	// THEN: The stale error is gone and the form can be saved
	assert.Nil(t, c.Input().Err)
	assert.True(t, c.CanSave())
}

func TestController_SettersKeepErrorsThatStillApply(t *testing.T) {
	// GIVEN: A save rejected for an empty student count
	c := expanded(t, 100, 1)
	_, err := c.Save()
	require.ErrorIs(t, err, allocation.ErrInvalidStudentCount)

	// WHEN: Only section and course are filled in
	require.NoError(t, c.SetSection(allocation.SectionB))
	require.NoError(t, c.SetCourse("CBSE"))

	// THEN: The count is still missing
	assert.ErrorIs(t, c.Input().Err, allocation.ErrInvalidStudentCount)
	assert.False(t, c.CanSave())

	// AND: A capacity error survives a course change
	c.SetStudents("150")
	require.NoError(t, c.SetCourse("IB"))
	assert.ErrorIs(t, c.Input().Err, allocation.ErrCapacityExceeded)
}

func TestController_GlobalWarningDoesNotBlockSave(t *testing.T) {
	// GIVEN: Pool of 100, grade 1 fully allocated
	c := expanded(t, 100, 1)
	c.SetStudents("100")
	c.SetSection(allocation.SectionA)
	_, err := c.Save()
	require.NoError(t, err)
	assert.Nil(t, c.Warning())

	// WHEN: Grade 2 also takes 100
	require.NoError(t, c.Expand(2))
	c.SetStudents("100")
	c.SetSection(allocation.SectionA)

	// THEN: Save is still allowed, the warning appears afterwards
	assert.True(t, c.CanSave())
	_, err = c.Save()
	require.NoError(t, err)

	w := c.Warning()
	require.NotNil(t, w)
	assert.Equal(t, 200, w.Allocated)
	assert.Equal(t, 100, w.Over)
	assert.Equal(t, -100, c.Store().RemainingGlobal())
}

// =============================================================================
// REMOVE
// =============================================================================

func TestController_RemoveAllocation(t *testing.T) {
	c := expanded(t, 40, 6)
	c.SetStudents("40")
	c.SetSection(allocation.SectionA)
	rec, err := c.Save()
	require.NoError(t, err)

	// Typing more now exceeds capacity
	require.Error(t, c.SetStudents("10"))

	calls := 0
	c.Subscribe(func(g []allocation.GradeAllocation) {
		calls++
		assert.Empty(t, g)
	})

	assert.True(t, c.RemoveAllocation(rec.ID))
	assert.Equal(t, 1, calls)
	assert.Empty(t, c.Summary())

	// Advisory error re-evaluated against freed capacity
	assert.Nil(t, c.Input().Err)
	assert.False(t, c.RemoveAllocation(rec.ID))
	assert.Equal(t, 1, calls)
}

func TestController_Recommendation(t *testing.T) {
	c := expanded(t, 200, 1)
	c.SetStudents("38")

	r := c.Recommendation()
	assert.Equal(t, 2, r.Count)
	assert.Equal(t, "38 students, 2 sections recommended (19 each)", r.Advisory())
}

func TestController_NewControllerWithStore_SeedsAggregate(t *testing.T) {
	s := allocation.NewStore(100)
	mustAdd(t, s, cand(7, allocation.SectionD, 12))

	c := allocation.NewControllerWithStore(s)

	assert.Equal(t, 12, c.Aggregator().GradeTotal(7))
	require.Len(t, c.Summary(), 1)
}

func TestParseStudentCount(t *testing.T) {
	assert.Equal(t, 0, allocation.ParseStudentCount(""))
	assert.Equal(t, 0, allocation.ParseStudentCount("twelve"))
	assert.Equal(t, 0, allocation.ParseStudentCount("1.5"))
	assert.Equal(t, 7, allocation.ParseStudentCount("7"))
	assert.Equal(t, -3, allocation.ParseStudentCount("-3"))
	assert.Equal(t, 8, allocation.ParseStudentCount("\t8\n"))
}
