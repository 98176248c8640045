package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"learnkit/core"
)

// Store persists entire state to a single JSON file.
// Suitable for demos and small deployments.
type Store struct {
	path string
	mu   sync.Mutex
	// in-memory cache for speed
	data map[core.UserID]*userRecord
}

// userRecord is the on-disk shape for one learner. Badges are stored as a
// list because JSON has no set type.
type userRecord struct {
	Points      int64                      `json:"points"`
	Streak      int64                      `json:"streak"`
	Level       int64                      `json:"level"`
	Badges      []string                   `json:"badges"`
	Enrollments map[string]core.Enrollment `json:"enrollments"`
	Updated     time.Time                  `json:"updated"`
}

func New(path string) (*Store, error) {
	s := &Store{path: path, data: map[core.UserID]*userRecord{}}
	if err := s.load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var raw map[string]*userRecord
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		if v.Enrollments == nil {
			v.Enrollments = map[string]core.Enrollment{}
		}
		s.data[core.UserID(k)] = v
	}
	return nil
}

func (s *Store) persist() error {
	tmp := s.path + ".tmp"
	raw := make(map[string]*userRecord, len(s.data))
	for k, v := range s.data {
		raw[string(k)] = v
	}
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) get(user core.UserID) *userRecord {
	if r, ok := s.data[user]; ok {
		return r
	}
	r := &userRecord{Level: 1, Enrollments: map[string]core.Enrollment{}, Updated: time.Now().UTC()}
	s.data[user] = r
	return r
}

func (r *userRecord) hasBadge(badge core.BadgeID) bool {
	for _, b := range r.Badges {
		if b == string(badge) {
			return true
		}
	}
	return false
}

func (s *Store) AddPoints(_ context.Context, user core.UserID, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.get(user)
	next, err := core.AddSafe(r.Points, delta)
	if err != nil {
		return 0, err
	}
	r.Points = next
	r.Updated = time.Now().UTC()
	if err := s.persist(); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Store) AwardBadge(_ context.Context, user core.UserID, badge core.BadgeID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.get(user)
	if r.hasBadge(badge) {
		return false, nil
	}
	r.Badges = append(r.Badges, string(badge))
	r.Updated = time.Now().UTC()
	if err := s.persist(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) ExtendStreak(_ context.Context, user core.UserID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.get(user)
	r.Streak++
	r.Updated = time.Now().UTC()
	if err := s.persist(); err != nil {
		return 0, err
	}
	return r.Streak, nil
}

func (s *Store) ResetStreak(_ context.Context, user core.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.get(user)
	r.Streak = 0
	r.Updated = time.Now().UTC()
	return s.persist()
}

func (s *Store) SetLevel(_ context.Context, user core.UserID, level int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.get(user)
	r.Level = level
	r.Updated = time.Now().UTC()
	return s.persist()
}

func (s *Store) GetProgress(_ context.Context, user core.UserID) (core.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.get(user)
	rec := core.ProgressRecord{
		UserID:          user,
		TotalPoints:     r.Points,
		StreakCount:     r.Streak,
		Level:           r.Level,
		Badges:          make(map[core.BadgeID]struct{}, len(r.Badges)),
		EnrolledCourses: int64(len(r.Enrollments)),
		Updated:         r.Updated,
	}
	for _, b := range r.Badges {
		rec.Badges[core.BadgeID(b)] = struct{}{}
	}
	return rec, nil
}

func (s *Store) GetEnrollment(_ context.Context, user core.UserID, course core.CourseID) (core.Enrollment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.get(user)
	e, ok := r.Enrollments[string(course)]
	return e, ok, nil
}

func (s *Store) CreateEnrollment(_ context.Context, e core.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.get(e.UserID)
	if _, ok := r.Enrollments[string(e.CourseID)]; ok {
		return core.ErrAlreadyEnrolled
	}
	r.Enrollments[string(e.CourseID)] = e
	r.Updated = time.Now().UTC()
	return s.persist()
}

func (s *Store) DeleteEnrollment(_ context.Context, user core.UserID, course core.CourseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.get(user)
	e, ok := r.Enrollments[string(course)]
	if !ok {
		return core.ErrNotEnrolled
	}
	if e.Status == core.StatusCompleted {
		return core.ErrCannotUnenrollCompleted
	}
	delete(r.Enrollments, string(course))
	r.Updated = time.Now().UTC()
	return s.persist()
}

func (s *Store) UpdateEnrollment(_ context.Context, e core.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.get(e.UserID)
	stored, ok := r.Enrollments[string(e.CourseID)]
	if !ok {
		return core.ErrNotEnrolled
	}
	stored.Status = e.Status
	stored.Progress = e.Progress
	stored.LastAccessedAt = e.LastAccessedAt
	stored.CompletedAt = e.CompletedAt
	r.Enrollments[string(e.CourseID)] = stored
	r.Updated = time.Now().UTC()
	return s.persist()
}
