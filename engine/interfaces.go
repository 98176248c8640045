package engine

import (
	"context"

	"learnkit/core"
)

// Storage abstracts persistence for learner progress and enrollments. All
// mutations are partial: an implementation touches only the fields named by
// the operation, never the whole record, so independent triggers cannot
// clobber each other.
type Storage interface {
	// AddPoints atomically increments the user's point total and returns the
	// new total.
	AddPoints(ctx context.Context, user core.UserID, delta int64) (int64, error)

	// AwardBadge adds the badge to the user's set with set-union semantics:
	// a repeated award is a no-op, never a duplicate or an error. The bool
	// reports whether the badge was newly added.
	AwardBadge(ctx context.Context, user core.UserID, badge core.BadgeID) (bool, error)

	// ExtendStreak increments the user's streak counter and returns it.
	ExtendStreak(ctx context.Context, user core.UserID) (int64, error)

	// ResetStreak sets the streak counter back to zero.
	ResetStreak(ctx context.Context, user core.UserID) error

	// SetLevel records the user's derived level.
	SetLevel(ctx context.Context, user core.UserID, level int64) error

	// GetProgress returns a snapshot of the user's progress record.
	GetProgress(ctx context.Context, user core.UserID) (core.ProgressRecord, error)

	// GetEnrollment returns the enrollment for (user, course). The bool is
	// false when no record exists.
	GetEnrollment(ctx context.Context, user core.UserID, course core.CourseID) (core.Enrollment, bool, error)

	// CreateEnrollment creates the record and increments the user's
	// enrolled-course counter in a single transactional unit. Returns
	// core.ErrAlreadyEnrolled when a record already exists, without writing.
	CreateEnrollment(ctx context.Context, e core.Enrollment) error

	// DeleteEnrollment removes the record and decrements the counter in a
	// single transactional unit. Returns core.ErrNotEnrolled when absent and
	// core.ErrCannotUnenrollCompleted when the stored status is completed.
	DeleteEnrollment(ctx context.Context, user core.UserID, course core.CourseID) error

	// UpdateEnrollment writes the mutable enrollment fields (status,
	// progress, timestamps) for an existing record.
	UpdateEnrollment(ctx context.Context, e core.Enrollment) error
}
