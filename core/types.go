package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// UserID uniquely identifies a learner.
type UserID string

// CourseID identifies a course in the content catalog.
type CourseID string

// BadgeID identifies a badge in the catalog.
type BadgeID string

// Sentinel errors for enrollment preconditions. These are cheap local checks
// returned before any store call is attempted; callers match them with
// errors.Is.
var (
	ErrAlreadyEnrolled         = errors.New("already enrolled in course")
	ErrNotEnrolled             = errors.New("not enrolled in course")
	ErrCannotUnenrollCompleted = errors.New("cannot unenroll from a completed course")
	ErrInvalidID               = errors.New("invalid identifier")
	ErrLessonLocked            = errors.New("lesson is locked")
)

// StorageError wraps a failure from the persistence collaborator.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// WrapStorage wraps err in a StorageError. Domain sentinels pass through
// unchanged so errors.Is keeps working across the storage boundary.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAlreadyEnrolled) || errors.Is(err, ErrNotEnrolled) || errors.Is(err, ErrCannotUnenrollCompleted) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// ProgressRecord is an immutable snapshot of a learner's gamification state.
// Implementations should return deep copies to maintain immutability
// guarantees.
type ProgressRecord struct {
	UserID          UserID               `json:"user_id"`
	TotalPoints     int64                `json:"total_points"`
	StreakCount     int64                `json:"streak_count"`
	Level           int64                `json:"level"`
	Badges          map[BadgeID]struct{} `json:"badges"`
	EnrolledCourses int64                `json:"enrolled_courses"`
	Updated         time.Time            `json:"updated"`
}

// Clone returns a deep copy of the record to uphold immutability.
func (r ProgressRecord) Clone() ProgressRecord {
	cp := r
	cp.Badges = make(map[BadgeID]struct{}, len(r.Badges))
	for b := range r.Badges {
		cp.Badges[b] = struct{}{}
	}
	return cp
}

// HasBadge reports whether the badge is in the awarded set.
func (r ProgressRecord) HasBadge(b BadgeID) bool {
	_, ok := r.Badges[b]
	return ok
}

// EnrollmentStatus enumerates the lifecycle states of a user-course pair.
// StatusNotEnrolled is the absence of a record and is never stored.
type EnrollmentStatus string

const (
	StatusNotEnrolled EnrollmentStatus = "not_enrolled"
	StatusEnrolled    EnrollmentStatus = "enrolled"
	StatusInProgress  EnrollmentStatus = "in_progress"
	StatusCompleted   EnrollmentStatus = "completed"
)

// Enrollment records that a user is taking a course.
type Enrollment struct {
	UserID         UserID           `json:"user_id"`
	CourseID       CourseID         `json:"course_id"`
	Status         EnrollmentStatus `json:"status"`
	Progress       int64            `json:"progress"`
	EnrolledAt     time.Time        `json:"enrolled_at"`
	LastAccessedAt time.Time        `json:"last_accessed_at"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
}

// DeriveStatus maps stored fields to the externally visible status:
// Completed is sticky, otherwise any progress means InProgress.
func (e Enrollment) DeriveStatus() EnrollmentStatus {
	switch {
	case e.Status == StatusCompleted:
		return StatusCompleted
	case e.Progress > 0:
		return StatusInProgress
	default:
		return StatusEnrolled
	}
}

// AddSafe adds delta to base ensuring no signed overflow occurs.
func AddSafe(base int64, delta int64) (int64, error) {
	if (delta > 0 && base > math.MaxInt64-delta) || (delta < 0 && base < math.MinInt64-delta) {
		return 0, errors.New("integer overflow in AddSafe")
	}
	return base + delta, nil
}

// NormalizeUserID trims and lowercases user identifiers.
func NormalizeUserID(id UserID) (UserID, error) {
	s := strings.TrimSpace(string(id))
	if s == "" {
		return "", fmt.Errorf("%w: empty user id", ErrInvalidID)
	}
	return UserID(strings.ToLower(s)), nil
}

// NormalizeCourseID trims and lowercases course identifiers.
func NormalizeCourseID(id CourseID) (CourseID, error) {
	s := strings.TrimSpace(string(id))
	if s == "" {
		return "", fmt.Errorf("%w: empty course id", ErrInvalidID)
	}
	return CourseID(strings.ToLower(s)), nil
}

// ValidateBadgeID ensures non-empty badge id with simple charset check.
func ValidateBadgeID(b BadgeID) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return fmt.Errorf("%w: empty badge id", ErrInvalidID)
	}
	// simple check: alnum, dash, underscore
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' {
			continue
		}
		return fmt.Errorf("%w: badge id %q", ErrInvalidID, s)
	}
	return nil
}
