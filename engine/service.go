package engine

import (
	"context"
	"errors"
	"log/slog"

	"learnkit/core"
)

// LearnService wires storage, the badge catalog, and the event bus into a
// cohesive API covering points, levels, streaks, badges, enrollments, and
// lesson progression.
type LearnService struct {
	storage     Storage
	catalog     *core.Catalog
	bus         *EventBus
	badges      *BadgeEngine
	enrollments *EnrollmentEngine
	log         *slog.Logger
}

func NewLearnService(storage Storage, catalog *core.Catalog, bus *EventBus, log *slog.Logger) *LearnService {
	if storage == nil || catalog == nil || bus == nil {
		panic("NewLearnService requires non-nil storage, catalog, and bus")
	}
	if log == nil {
		log = slog.Default()
	}
	badges := NewBadgeEngine(storage, catalog, bus, log)
	return &LearnService{
		storage:     storage,
		catalog:     catalog,
		bus:         bus,
		badges:      badges,
		enrollments: NewEnrollmentEngine(storage, badges, bus, log),
		log:         log,
	}
}

// Badges exposes the badge engine.
func (s *LearnService) Badges() *BadgeEngine { return s.badges }

// Enrollments exposes the enrollment engine.
func (s *LearnService) Enrollments() *EnrollmentEngine { return s.enrollments }

// Catalog exposes the immutable badge catalog.
func (s *LearnService) Catalog() *core.Catalog { return s.catalog }

// Subscribe convenience method.
func (s *LearnService) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	return s.bus.Subscribe(typ, handler)
}

func (s *LearnService) Publish(ctx context.Context, ev core.Event) {
	s.bus.Publish(ctx, ev)
}

// AddPoints grants points, derives the level, and runs the point badge
// check. The badge check and level write are best-effort side effects of a
// point grant that has already succeeded.
func (s *LearnService) AddPoints(ctx context.Context, user core.UserID, delta int64) (int64, error) {
	if delta <= 0 {
		return 0, errors.New("delta must be positive")
	}
	user, err := core.NormalizeUserID(user)
	if err != nil {
		return 0, err
	}
	total, err := s.storage.AddPoints(ctx, user, delta)
	if err != nil {
		return 0, core.WrapStorage("add points", err)
	}
	s.bus.Publish(ctx, core.NewPointsAdded(user, delta, total))

	if level, up := core.CheckLevelUp(total-delta, total); up {
		if err := s.storage.SetLevel(ctx, user, level); err != nil {
			s.log.Warn("level write failed", "user", user, "level", level, "error", err)
		}
		s.bus.Publish(ctx, core.NewLevelUp(user, level))
	}

	s.badges.CheckAndAwardPointBadges(ctx, user, total)
	return total, nil
}

// ExtendStreak bumps the daily streak counter and runs the streak badge
// check.
func (s *LearnService) ExtendStreak(ctx context.Context, user core.UserID) (int64, error) {
	user, err := core.NormalizeUserID(user)
	if err != nil {
		return 0, err
	}
	streak, err := s.storage.ExtendStreak(ctx, user)
	if err != nil {
		return 0, core.WrapStorage("extend streak", err)
	}
	s.bus.Publish(ctx, core.NewStreakExtended(user, streak))
	s.badges.CheckAndAwardStreakBadge(ctx, user, streak)
	return streak, nil
}

// ResetStreak zeroes the streak counter (a missed day).
func (s *LearnService) ResetStreak(ctx context.Context, user core.UserID) error {
	user, err := core.NormalizeUserID(user)
	if err != nil {
		return err
	}
	return core.WrapStorage("reset streak", s.storage.ResetStreak(ctx, user))
}

// Progress returns a snapshot of the user's progress record.
func (s *LearnService) Progress(ctx context.Context, user core.UserID) (core.ProgressRecord, error) {
	user, err := core.NormalizeUserID(user)
	if err != nil {
		return core.ProgressRecord{}, err
	}
	rec, err := s.storage.GetProgress(ctx, user)
	if err != nil {
		return core.ProgressRecord{}, core.WrapStorage("get progress", err)
	}
	return rec, nil
}

func (s *LearnService) Close() { s.bus.Close() }
