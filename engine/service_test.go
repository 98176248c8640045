package engine

import (
	"context"
	"testing"

	"learnkit/core"
)

func newTestService() (*LearnService, *memStore) {
	store := newMemStore()
	bus := NewEventBus(DispatchSync)
	return NewLearnService(store, core.NewDefaultCatalog(), bus, nil), store
}

func TestAddPointsLevelUpAndBadges(t *testing.T) {
	svc, _ := newTestService()

	var levelUps []int64
	svc.Subscribe(core.EventLevelUp, func(_ context.Context, e core.Event) { levelUps = append(levelUps, e.Level) })
	badges := map[core.BadgeID]int{}
	svc.Subscribe(core.EventBadgeAwarded, func(_ context.Context, e core.Event) { badges[e.Badge]++ })

	total, err := svc.AddPoints(context.Background(), "User1", 150)
	if err != nil {
		t.Fatal(err)
	}
	if total != 150 {
		t.Fatalf("total = %d", total)
	}
	if len(levelUps) != 1 || levelUps[0] != 2 {
		t.Fatalf("expected level up to 2, got %v", levelUps)
	}
	if badges["first-steps"] != 1 {
		t.Fatalf("expected first-steps badge once, got %v", badges)
	}

	// second grant past 500: point-collector fires once, first-steps not again
	if _, err := svc.AddPoints(context.Background(), "user1", 400); err != nil {
		t.Fatal(err)
	}
	if badges["first-steps"] != 1 || badges["point-collector"] != 1 {
		t.Fatalf("badge events not at-most-once: %v", badges)
	}

	rec, err := svc.Progress(context.Background(), "user1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.TotalPoints != 550 || !rec.HasBadge("point-collector") {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestAddPointsRejectsNonPositiveDelta(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.AddPoints(context.Background(), "u", 0); err == nil {
		t.Fatal("expected error for zero delta")
	}
	if _, err := svc.AddPoints(context.Background(), "u", -5); err == nil {
		t.Fatal("expected error for negative delta")
	}
}

func TestExtendStreakAwardsBadge(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := svc.ExtendStreak(ctx, "u"); err != nil {
			t.Fatal(err)
		}
	}
	rec, _ := svc.Progress(ctx, "u")
	if rec.StreakCount != 3 || !rec.HasBadge("warming-up") {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.HasBadge("week-streak") {
		t.Fatal("7-day badge must not fire at 3")
	}
	if err := svc.ResetStreak(ctx, "u"); err != nil {
		t.Fatal(err)
	}
	rec, _ = svc.Progress(ctx, "u")
	if rec.StreakCount != 0 {
		t.Fatalf("streak = %d", rec.StreakCount)
	}
}

func TestBadgeAwardIdempotent(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	events := 0
	svc.Subscribe(core.EventBadgeAwarded, func(context.Context, core.Event) { events++ })

	if err := svc.Badges().AwardBadge(ctx, "u", "first-steps"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Badges().AwardBadge(ctx, "u", "first-steps"); err != nil {
		t.Fatal(err)
	}
	rec, _ := store.GetProgress(ctx, "u")
	if len(rec.Badges) != 1 {
		t.Fatalf("want exactly one badge, got %d", len(rec.Badges))
	}
	if events != 1 {
		t.Fatalf("want one award event, got %d", events)
	}
}

func TestBadgeAwardFailureIsSwallowed(t *testing.T) {
	store := newMemStore()
	store.failBadges = true
	bus := NewEventBus(DispatchSync)
	svc := NewLearnService(store, core.NewDefaultCatalog(), bus, nil)

	// the point grant must succeed even though every badge write fails
	total, err := svc.AddPoints(context.Background(), "u", 200)
	if err != nil {
		t.Fatalf("point grant must not fail on badge errors: %v", err)
	}
	if total != 200 {
		t.Fatalf("total = %d", total)
	}
}
