package engine

import (
	"context"
	"log/slog"
	"time"

	"learnkit/core"
)

// EnrollmentEngine manages the enroll/unenroll/progress lifecycle for a
// user-course pair. Precondition errors (duplicate enroll, unenroll of a
// completed course, bad identifiers) are returned before any store call.
type EnrollmentEngine struct {
	storage Storage
	badges  *BadgeEngine
	bus     *EventBus
	log     *slog.Logger
	now     func() time.Time
}

func NewEnrollmentEngine(storage Storage, badges *BadgeEngine, bus *EventBus, log *slog.Logger) *EnrollmentEngine {
	if log == nil {
		log = slog.Default()
	}
	return &EnrollmentEngine{storage: storage, badges: badges, bus: bus, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// EnrollmentState is the caller-facing status summary.
type EnrollmentState struct {
	Status     core.EnrollmentStatus `json:"status"`
	Progress   int64                 `json:"progress"`
	EnrolledAt time.Time             `json:"enrolled_at"`
}

func (e *EnrollmentEngine) normalize(user core.UserID, course core.CourseID) (core.UserID, core.CourseID, error) {
	u, err := core.NormalizeUserID(user)
	if err != nil {
		return "", "", err
	}
	c, err := core.NormalizeCourseID(course)
	if err != nil {
		return "", "", err
	}
	return u, c, nil
}

// Enroll creates the enrollment record and increments the user's
// enrolled-course counter as one transactional unit. A duplicate enroll
// fails with core.ErrAlreadyEnrolled and writes nothing.
func (e *EnrollmentEngine) Enroll(ctx context.Context, user core.UserID, course core.CourseID) error {
	user, course, err := e.normalize(user, course)
	if err != nil {
		return err
	}
	_, exists, err := e.storage.GetEnrollment(ctx, user, course)
	if err != nil {
		return core.WrapStorage("enrollment lookup", err)
	}
	if exists {
		return core.ErrAlreadyEnrolled
	}
	now := e.now()
	rec := core.Enrollment{
		UserID:         user,
		CourseID:       course,
		Status:         core.StatusEnrolled,
		Progress:       0,
		EnrolledAt:     now,
		LastAccessedAt: now,
	}
	// Storage re-checks existence inside the transaction, closing the race
	// between the lookup above and the write.
	if err := e.storage.CreateEnrollment(ctx, rec); err != nil {
		return core.WrapStorage("enroll", err)
	}
	e.bus.Publish(ctx, core.NewEnrolled(user, course))
	return nil
}

// Unenroll deletes the record and decrements the counter atomically. A
// completed course cannot be unenrolled from.
func (e *EnrollmentEngine) Unenroll(ctx context.Context, user core.UserID, course core.CourseID) error {
	user, course, err := e.normalize(user, course)
	if err != nil {
		return err
	}
	rec, exists, err := e.storage.GetEnrollment(ctx, user, course)
	if err != nil {
		return core.WrapStorage("enrollment lookup", err)
	}
	if !exists {
		return core.ErrNotEnrolled
	}
	if rec.Status == core.StatusCompleted {
		return core.ErrCannotUnenrollCompleted
	}
	if err := e.storage.DeleteEnrollment(ctx, user, course); err != nil {
		return core.WrapStorage("unenroll", err)
	}
	e.bus.Publish(ctx, core.NewUnenrolled(user, course))
	return nil
}

// CheckStatus derives the visible status. Absence of a record is
// StatusNotEnrolled with zero progress, not an error.
func (e *EnrollmentEngine) CheckStatus(ctx context.Context, user core.UserID, course core.CourseID) (EnrollmentState, error) {
	user, course, err := e.normalize(user, course)
	if err != nil {
		return EnrollmentState{}, err
	}
	rec, exists, err := e.storage.GetEnrollment(ctx, user, course)
	if err != nil {
		return EnrollmentState{}, core.WrapStorage("enrollment lookup", err)
	}
	if !exists {
		return EnrollmentState{Status: core.StatusNotEnrolled}, nil
	}
	return EnrollmentState{
		Status:     rec.DeriveStatus(),
		Progress:   rec.Progress,
		EnrolledAt: rec.EnrolledAt,
	}, nil
}

// UpdateProgress records completed units out of total and advances status:
// completed >= total marks the course Completed (setting completedAt),
// completed > 0 marks it InProgress. A record that already reached
// Completed never regresses, whatever the later counts say.
func (e *EnrollmentEngine) UpdateProgress(ctx context.Context, user core.UserID, course core.CourseID, completed, total int64) error {
	user, course, err := e.normalize(user, course)
	if err != nil {
		return err
	}
	rec, exists, err := e.storage.GetEnrollment(ctx, user, course)
	if err != nil {
		return core.WrapStorage("enrollment lookup", err)
	}
	if !exists {
		return core.ErrNotEnrolled
	}

	now := e.now()
	wasCompleted := rec.Status == core.StatusCompleted
	rec.Progress = completed
	rec.LastAccessedAt = now

	switch {
	case wasCompleted:
		// sticky: keep status and completedAt as they are
	case total > 0 && completed >= total:
		rec.Status = core.StatusCompleted
		rec.CompletedAt = &now
	case completed > 0:
		rec.Status = core.StatusInProgress
	}

	if err := e.storage.UpdateEnrollment(ctx, rec); err != nil {
		return core.WrapStorage("update progress", err)
	}

	if !wasCompleted && rec.Status == core.StatusCompleted {
		e.bus.Publish(ctx, core.NewCourseCompleted(user, course))
		if e.badges != nil {
			e.badges.AwardCourseCompleteBadge(ctx, user)
		}
	}
	return nil
}
