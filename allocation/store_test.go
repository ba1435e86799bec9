package allocation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/school-onboarding/allocation"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func cand(grade int, section allocation.Section, students int) allocation.Candidate {
	return allocation.Candidate{Grade: allocation.Grade(grade), Section: section, Students: students}
}

func mustAdd(t *testing.T, s *allocation.Store, c allocation.Candidate) allocation.SectionAllocation {
	t.Helper()
	rec, err := s.Add(c)
	require.NoError(t, err)
	return rec
}

// =============================================================================
// ADD / REMOVE
// =============================================================================

func TestStore_EndToEndScenario(t *testing.T) {
	// GIVEN: A pool of 100 students
	s := allocation.NewStore(100)

	// WHEN: 60 go to grade 1 section A
	mustAdd(t, s, cand(1, allocation.SectionA, 60))
	assert.Equal(t, 40, s.RemainingForGrade(1))

	// AND: 50 more are requested for grade 1 section B
	_, err := s.Add(cand(1, allocation.SectionB, 50))

	// THEN: Rejected with the grade's remaining capacity
	var capErr *allocation.CapacityExceededError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 40, capErr.Remaining)
	assert.Equal(t, 50, capErr.Requested)
	assert.ErrorIs(t, err, allocation.ErrCapacityExceeded)
	assert.Equal(t, 1, s.Len())

	// AND: Grade 2 still has the full pool as its ceiling
	mustAdd(t, s, cand(2, allocation.SectionA, 100))
	assert.Equal(t, 0, s.RemainingForGrade(2))
	assert.Equal(t, -60, s.RemainingGlobal())

	w := s.Warning()
	require.NotNil(t, w)
	assert.Equal(t, 60, w.Over)
	assert.ErrorIs(t, w, allocation.ErrGlobalCapacityExceeded)
}

func TestStore_Add_AssignsUniqueIDs(t *testing.T) {
	s := allocation.NewStore(100)
	a := mustAdd(t, s, cand(1, allocation.SectionA, 10))
	b := mustAdd(t, s, cand(1, allocation.SectionA, 10))

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestStore_Add_ExactRemainingAccepted(t *testing.T) {
	s := allocation.NewStore(30)
	mustAdd(t, s, cand(3, allocation.SectionA, 20))

	_, err := s.Add(cand(3, allocation.SectionB, 10))
	assert.NoError(t, err)
	assert.Equal(t, 0, s.RemainingForGrade(3))
}

func TestStore_Add_RejectionsDoNotMutate(t *testing.T) {
	tests := []struct {
		name string
		c    allocation.Candidate
		want error
	}{
		{"zero students", cand(1, allocation.SectionA, 0), allocation.ErrInvalidStudentCount},
		{"negative students", cand(1, allocation.SectionA, -3), allocation.ErrInvalidStudentCount},
		{"missing section", cand(1, "", 5), allocation.ErrMissingSection},
		{"unknown section", cand(1, "Z", 5), allocation.ErrInvalidSection},
		{"grade below range", cand(0, allocation.SectionA, 5), allocation.ErrInvalidGrade},
		{"grade above range", cand(11, allocation.SectionA, 5), allocation.ErrInvalidGrade},
		{"over capacity", cand(1, allocation.SectionB, 41), allocation.ErrCapacityExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := allocation.NewStore(100)
			mustAdd(t, s, cand(1, allocation.SectionA, 60))
			before := s.All()
			global, grade := s.RemainingGlobal(), s.RemainingForGrade(1)

			_, err := s.Add(tt.c)

			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, s.All())
			assert.Equal(t, global, s.RemainingGlobal())
			assert.Equal(t, grade, s.RemainingForGrade(1))
		})
	}
}

func TestStore_AddThenRemove_RestoresState(t *testing.T) {
	s := allocation.NewStore(80)
	mustAdd(t, s, cand(2, allocation.SectionA, 20))
	before := s.All()
	remaining := s.RemainingGlobal()

	rec := mustAdd(t, s, cand(4, allocation.SectionC, 15))
	assert.True(t, s.Remove(rec.ID))

	assert.Equal(t, before, s.All())
	assert.Equal(t, remaining, s.RemainingGlobal())
}

func TestStore_Remove_UnknownIDIsNoop(t *testing.T) {
	s := allocation.NewStore(10)
	mustAdd(t, s, cand(1, allocation.SectionA, 5))

	assert.False(t, s.Remove("does-not-exist"))
	assert.Equal(t, 1, s.Len())
}

func TestStore_Remove_KeepsInsertionOrder(t *testing.T) {
	s := allocation.NewStore(100)
	a := mustAdd(t, s, cand(1, allocation.SectionA, 10))
	b := mustAdd(t, s, cand(1, allocation.SectionB, 10))
	c := mustAdd(t, s, cand(1, allocation.SectionC, 10))

	require.True(t, s.Remove(b.ID))

	got := s.AllocationsForGrade(1)
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, c.ID, got[1].ID)
}

func TestStore_AllocationsForGrade_FiltersAndOrders(t *testing.T) {
	s := allocation.NewStore(100)
	first := mustAdd(t, s, cand(5, allocation.SectionB, 10))
	mustAdd(t, s, cand(6, allocation.SectionA, 10))
	second := mustAdd(t, s, cand(5, allocation.SectionB, 7))

	got := s.AllocationsForGrade(5)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, second.ID, got[1].ID)
	assert.Empty(t, s.AllocationsForGrade(9))
}

func TestStore_All_ReturnsCopy(t *testing.T) {
	s := allocation.NewStore(100)
	mustAdd(t, s, cand(1, allocation.SectionA, 10))

	all := s.All()
	all[0].Students = 99

	assert.Equal(t, 10, s.All()[0].Students)
}

func TestStore_NegativePoolTreatedAsZero(t *testing.T) {
	s := allocation.NewStore(-5)

	assert.Equal(t, 0, s.Pool())
	_, err := s.Add(cand(1, allocation.SectionA, 1))
	assert.ErrorIs(t, err, allocation.ErrCapacityExceeded)
}

func TestStore_PerGradeInvariant_HoldsForAcceptedAdds(t *testing.T) {
	// GIVEN: A sequence mixing acceptable and oversized requests
	s := allocation.NewStore(50)
	requests := []allocation.Candidate{
		cand(1, allocation.SectionA, 20),
		cand(1, allocation.SectionB, 25),
		cand(1, allocation.SectionC, 10), // rejected: 5 left
		cand(2, allocation.SectionA, 50),
		cand(2, allocation.SectionB, 1), // rejected: 0 left
		cand(1, allocation.SectionD, 5),
	}

	// THEN: No grade ever exceeds the pool
	for _, c := range requests {
		_, _ = s.Add(c)
		for _, g := range allocation.Grades() {
			total := 0
			for _, r := range s.AllocationsForGrade(g) {
				total += r.Students
			}
			assert.LessOrEqual(t, total, s.Pool(), "grade %d", g)
		}
	}
	assert.Equal(t, 0, s.RemainingForGrade(1))
	assert.Equal(t, -50, s.RemainingGlobal())
}

func TestIsBlocking(t *testing.T) {
	assert.False(t, allocation.IsBlocking(nil))
	assert.False(t, allocation.IsBlocking(&allocation.GlobalCapacityWarning{Pool: 1, Allocated: 2, Over: 1}))
	assert.True(t, allocation.IsBlocking(allocation.ErrMissingSection))
	assert.True(t, allocation.IsBlocking(&allocation.CapacityExceededError{Grade: 1}))
	assert.True(t, allocation.IsClientError(allocation.ErrInvalidStudentCount))
}

// =============================================================================
// RESTORE
// =============================================================================

func TestRestore_KeepsIDsAndOrder(t *testing.T) {
	saved := []allocation.SectionAllocation{
		{ID: "x-2", Grade: 2, Section: allocation.SectionB, Students: 10},
		{ID: "x-1", Grade: 1, Section: allocation.SectionA, Students: 5, Course: "IB"},
	}

	s, err := allocation.Restore(20, saved)
	require.NoError(t, err)

	assert.Equal(t, saved, s.All())
	assert.Equal(t, 5, s.RemainingGlobal())

	// New records still get fresh ids
	rec := mustAdd(t, s, cand(1, allocation.SectionB, 3))
	assert.NotEqual(t, allocation.AllocationID("x-1"), rec.ID)
}

func TestRestore_Rejects(t *testing.T) {
	_, err := allocation.Restore(10, []allocation.SectionAllocation{
		{ID: "a", Grade: 1, Section: allocation.SectionA, Students: 5},
		{ID: "a", Grade: 1, Section: allocation.SectionB, Students: 1},
	})
	assert.ErrorIs(t, err, allocation.ErrDuplicateAllocation)

	_, err = allocation.Restore(10, []allocation.SectionAllocation{
		{ID: "a", Grade: 1, Section: allocation.SectionA, Students: 8},
		{ID: "b", Grade: 1, Section: allocation.SectionB, Students: 3},
	})
	assert.ErrorIs(t, err, allocation.ErrCapacityExceeded)

	_, err = allocation.Restore(10, []allocation.SectionAllocation{
		{ID: "a", Grade: 1, Students: 8},
	})
	assert.ErrorIs(t, err, allocation.ErrMissingSection)
}
