// Package store provides in-memory school.Repository implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/school-onboarding/allocation"
	"github.com/warp/school-onboarding/school"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	schools map[string]school.School
}

func NewMemory() *Memory {
	return &Memory{schools: make(map[string]school.School)}
}

// Save stores a deep copy so callers cannot mutate stored state.
func (m *Memory) Save(_ context.Context, s school.School) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schools[s.ID] = clone(s)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*school.School, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.schools[id]
	if !ok {
		return nil, school.ErrSchoolNotFound
	}
	out := clone(s)
	return &out, nil
}

// List returns schools ordered by creation time, then ID.
func (m *Memory) List(_ context.Context) ([]school.School, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]school.School, 0, len(m.schools))
	for _, s := range m.schools {
		result = append(result, clone(s))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.schools[id]; !ok {
		return school.ErrSchoolNotFound
	}
	delete(m.schools, id)
	return nil
}

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schools = make(map[string]school.School)
	return nil
}

func clone(s school.School) school.School {
	s.Sections = append([]allocation.SectionAllocation{}, s.Sections...)
	s.Grades = allocation.Aggregate(s.Sections)
	return s
}
