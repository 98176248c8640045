package engine

import (
	"context"
	"errors"
	"sync"

	"learnkit/core"
)

// memStore is a minimal in-package Storage double with failure injection.
// The production in-memory adapter lives in adapters/memory; it imports this
// package, so it cannot be used here.
type memStore struct {
	mu          sync.Mutex
	progress    map[core.UserID]*core.ProgressRecord
	enrollments map[core.UserID]map[core.CourseID]core.Enrollment

	failBadges      bool
	failEnrollments bool
	failUpdates     bool
}

func newMemStore() *memStore {
	return &memStore{
		progress:    map[core.UserID]*core.ProgressRecord{},
		enrollments: map[core.UserID]map[core.CourseID]core.Enrollment{},
	}
}

var errInjected = errors.New("injected storage failure")

func (m *memStore) rec(user core.UserID) *core.ProgressRecord {
	if r, ok := m.progress[user]; ok {
		return r
	}
	r := &core.ProgressRecord{UserID: user, Level: 1, Badges: map[core.BadgeID]struct{}{}}
	m.progress[user] = r
	return r
}

func (m *memStore) AddPoints(_ context.Context, user core.UserID, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.rec(user)
	r.TotalPoints += delta
	return r.TotalPoints, nil
}

func (m *memStore) AwardBadge(_ context.Context, user core.UserID, badge core.BadgeID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failBadges {
		return false, errInjected
	}
	r := m.rec(user)
	if _, ok := r.Badges[badge]; ok {
		return false, nil
	}
	r.Badges[badge] = struct{}{}
	return true, nil
}

func (m *memStore) ExtendStreak(_ context.Context, user core.UserID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.rec(user)
	r.StreakCount++
	return r.StreakCount, nil
}

func (m *memStore) ResetStreak(_ context.Context, user core.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec(user).StreakCount = 0
	return nil
}

func (m *memStore) SetLevel(_ context.Context, user core.UserID, level int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec(user).Level = level
	return nil
}

func (m *memStore) GetProgress(_ context.Context, user core.UserID) (core.ProgressRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec(user).Clone(), nil
}

func (m *memStore) GetEnrollment(_ context.Context, user core.UserID, course core.CourseID) (core.Enrollment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failEnrollments {
		return core.Enrollment{}, false, errInjected
	}
	e, ok := m.enrollments[user][course]
	return e, ok, nil
}

func (m *memStore) CreateEnrollment(_ context.Context, e core.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failEnrollments {
		return errInjected
	}
	if m.enrollments[e.UserID] == nil {
		m.enrollments[e.UserID] = map[core.CourseID]core.Enrollment{}
	}
	if _, ok := m.enrollments[e.UserID][e.CourseID]; ok {
		return core.ErrAlreadyEnrolled
	}
	m.enrollments[e.UserID][e.CourseID] = e
	m.rec(e.UserID).EnrolledCourses++
	return nil
}

func (m *memStore) DeleteEnrollment(_ context.Context, user core.UserID, course core.CourseID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.enrollments[user][course]
	if !ok {
		return core.ErrNotEnrolled
	}
	if e.Status == core.StatusCompleted {
		return core.ErrCannotUnenrollCompleted
	}
	delete(m.enrollments[user], course)
	m.rec(user).EnrolledCourses--
	return nil
}

func (m *memStore) UpdateEnrollment(_ context.Context, e core.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdates {
		return errInjected
	}
	stored, ok := m.enrollments[e.UserID][e.CourseID]
	if !ok {
		return core.ErrNotEnrolled
	}
	stored.Status = e.Status
	stored.Progress = e.Progress
	stored.LastAccessedAt = e.LastAccessedAt
	stored.CompletedAt = e.CompletedAt
	m.enrollments[e.UserID][e.CourseID] = stored
	return nil
}

func (m *memStore) enrollment(user core.UserID, course core.CourseID) (core.Enrollment, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.enrollments[user][course]
	return e, ok
}

var _ Storage = (*memStore)(nil)
