package engine

import (
	"context"
	"log/slog"

	"learnkit/core"
)

// BadgeEngine evaluates learner stats against the catalog and issues
// idempotent awards. Every award path is best-effort: a storage failure here
// is logged and swallowed so the primary action (the point grant, the lesson
// completion) that triggered the check never fails because of it.
type BadgeEngine struct {
	storage Storage
	catalog *core.Catalog
	bus     *EventBus
	log     *slog.Logger
}

func NewBadgeEngine(storage Storage, catalog *core.Catalog, bus *EventBus, log *slog.Logger) *BadgeEngine {
	if log == nil {
		log = slog.Default()
	}
	return &BadgeEngine{storage: storage, catalog: catalog, bus: bus, log: log}
}

// AwardBadge is the primitive: add badgeID to the user's set. The storage
// layer uses set-union semantics, so a repeated award is a no-op. An event
// is published only when the badge is newly earned.
func (b *BadgeEngine) AwardBadge(ctx context.Context, user core.UserID, badge core.BadgeID) error {
	if err := core.ValidateBadgeID(badge); err != nil {
		return err
	}
	added, err := b.storage.AwardBadge(ctx, user, badge)
	if err != nil {
		return core.WrapStorage("award badge", err)
	}
	if added {
		b.bus.Publish(ctx, core.NewBadgeAwarded(user, badge))
	}
	return nil
}

// CheckAndAwardPointBadges awards every points-conditioned badge whose
// threshold the total has reached. Safe to call on every point event.
func (b *BadgeEngine) CheckAndAwardPointBadges(ctx context.Context, user core.UserID, totalPoints int64) {
	for _, def := range b.catalog.ByCondition(core.ConditionPoints) {
		if totalPoints < def.Threshold {
			continue
		}
		if err := b.AwardBadge(ctx, user, def.ID); err != nil {
			b.log.Warn("point badge award failed", "user", user, "badge", def.ID, "error", err)
		}
	}
}

// CheckAndAwardStreakBadge awards every streak-conditioned badge the current
// streak has reached.
func (b *BadgeEngine) CheckAndAwardStreakBadge(ctx context.Context, user core.UserID, streak int64) {
	for _, def := range b.catalog.ByCondition(core.ConditionStreak) {
		if streak < def.Threshold {
			continue
		}
		if err := b.AwardBadge(ctx, user, def.ID); err != nil {
			b.log.Warn("streak badge award failed", "user", user, "badge", def.ID, "error", err)
		}
	}
}

// AwardCourseCompleteBadge awards the fixed course-completion badge. The
// caller has already verified the completion event.
func (b *BadgeEngine) AwardCourseCompleteBadge(ctx context.Context, user core.UserID) {
	if err := b.AwardBadge(ctx, user, core.BadgeCourseChampion); err != nil {
		b.log.Warn("course badge award failed", "user", user, "error", err)
	}
}

// AwardQuizMasteryBadge awards the fixed quiz-mastery badge. The caller has
// already verified the perfect score.
func (b *BadgeEngine) AwardQuizMasteryBadge(ctx context.Context, user core.UserID) {
	if err := b.AwardBadge(ctx, user, core.BadgeQuizWizard); err != nil {
		b.log.Warn("quiz badge award failed", "user", user, "error", err)
	}
}
