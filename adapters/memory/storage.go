package memory

import (
	"context"
	"sync"
	"time"

	"learnkit/core"
	"learnkit/engine"
)

// Store is a concurrent in-memory Storage implementation. Each user record
// carries its own lock, so the enrollment create/delete plus counter
// mutation is naturally a single atomic unit.
type Store struct {
	users sync.Map // map[core.UserID]*userRecord
}

type userRecord struct {
	mu          sync.Mutex
	progress    core.ProgressRecord
	enrollments map[core.CourseID]core.Enrollment
}

func New() *Store { return &Store{} }

func (s *Store) getOrCreate(user core.UserID) *userRecord {
	if v, ok := s.users.Load(user); ok {
		return v.(*userRecord)
	}
	rec := &userRecord{
		progress: core.ProgressRecord{
			UserID:  user,
			Level:   1,
			Badges:  map[core.BadgeID]struct{}{},
			Updated: time.Now().UTC(),
		},
		enrollments: map[core.CourseID]core.Enrollment{},
	}
	actual, _ := s.users.LoadOrStore(user, rec)
	return actual.(*userRecord)
}

func (s *Store) AddPoints(_ context.Context, user core.UserID, delta int64) (int64, error) {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	next, err := core.AddSafe(rec.progress.TotalPoints, delta)
	if err != nil {
		return 0, err
	}
	rec.progress.TotalPoints = next
	rec.progress.Updated = time.Now().UTC()
	return next, nil
}

func (s *Store) AwardBadge(_ context.Context, user core.UserID, badge core.BadgeID) (bool, error) {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if _, ok := rec.progress.Badges[badge]; ok {
		return false, nil
	}
	rec.progress.Badges[badge] = struct{}{}
	rec.progress.Updated = time.Now().UTC()
	return true, nil
}

func (s *Store) ExtendStreak(_ context.Context, user core.UserID) (int64, error) {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.progress.StreakCount++
	rec.progress.Updated = time.Now().UTC()
	return rec.progress.StreakCount, nil
}

func (s *Store) ResetStreak(_ context.Context, user core.UserID) error {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.progress.StreakCount = 0
	rec.progress.Updated = time.Now().UTC()
	return nil
}

func (s *Store) SetLevel(_ context.Context, user core.UserID, level int64) error {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.progress.Level = level
	rec.progress.Updated = time.Now().UTC()
	return nil
}

func (s *Store) GetProgress(_ context.Context, user core.UserID) (core.ProgressRecord, error) {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.progress.Clone(), nil
}

func (s *Store) GetEnrollment(_ context.Context, user core.UserID, course core.CourseID) (core.Enrollment, bool, error) {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	e, ok := rec.enrollments[course]
	return e, ok, nil
}

func (s *Store) CreateEnrollment(_ context.Context, e core.Enrollment) error {
	rec := s.getOrCreate(e.UserID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if _, ok := rec.enrollments[e.CourseID]; ok {
		return core.ErrAlreadyEnrolled
	}
	rec.enrollments[e.CourseID] = e
	rec.progress.EnrolledCourses++
	rec.progress.Updated = time.Now().UTC()
	return nil
}

func (s *Store) DeleteEnrollment(_ context.Context, user core.UserID, course core.CourseID) error {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	e, ok := rec.enrollments[course]
	if !ok {
		return core.ErrNotEnrolled
	}
	if e.Status == core.StatusCompleted {
		return core.ErrCannotUnenrollCompleted
	}
	delete(rec.enrollments, course)
	rec.progress.EnrolledCourses--
	rec.progress.Updated = time.Now().UTC()
	return nil
}

func (s *Store) UpdateEnrollment(_ context.Context, e core.Enrollment) error {
	rec := s.getOrCreate(e.UserID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	stored, ok := rec.enrollments[e.CourseID]
	if !ok {
		return core.ErrNotEnrolled
	}
	// merge mutable fields only; enrolledAt is immutable after create
	stored.Status = e.Status
	stored.Progress = e.Progress
	stored.LastAccessedAt = e.LastAccessedAt
	stored.CompletedAt = e.CompletedAt
	rec.enrollments[e.CourseID] = stored
	return nil
}

var _ engine.Storage = (*Store)(nil)
