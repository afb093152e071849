package grading

import (
	"context"
	"sync"
)

// OpenRoster accepts every carnet. Used when no roster provider is wired.
type OpenRoster struct{}

var _ RosterProvider = OpenRoster{} // interface compliance check

func (OpenRoster) GetStudent(_ context.Context, _, carnet string) (Student, error) {
	if carnet == "" {
		return Student{}, ErrUnknownStudent
	}
	return Student{Carnet: carnet}, nil
}

// StaticRoster is an in-memory roster: {groupID: {carnet: Student}}.
type StaticRoster struct {
	mu       sync.RWMutex
	students map[string]map[string]Student
}

var _ RosterProvider = (*StaticRoster)(nil) // interface compliance check

func NewStaticRoster() *StaticRoster {
	return &StaticRoster{students: make(map[string]map[string]Student)}
}

// Enroll adds students to a group's roster.
func (r *StaticRoster) Enroll(groupID string, students ...Student) {
	r.mu.Lock()
	defer r.mu.Unlock()

	grp, ok := r.students[groupID]
	if !ok {
		grp = make(map[string]Student, len(students))
		r.students[groupID] = grp
	}
	for _, st := range students {
		grp[st.Carnet] = st
	}
}

func (r *StaticRoster) GetStudent(_ context.Context, groupID, carnet string) (Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if st, ok := r.students[groupID][carnet]; ok {
		return st, nil
	}
	return Student{}, ErrUnknownStudent
}
