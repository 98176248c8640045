package jsonfile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"learnkit/core"
)

func TestPersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddPoints(ctx, "u", 75); err != nil {
		t.Fatal(err)
	}
	if added, err := s.AwardBadge(ctx, "u", "first-steps"); err != nil || !added {
		t.Fatalf("got %v %v", added, err)
	}
	if _, err := s.ExtendStreak(ctx, "u"); err != nil {
		t.Fatal(err)
	}
	now := time.Now().UTC()
	e := core.Enrollment{UserID: "u", CourseID: "c", Status: core.StatusEnrolled, EnrolledAt: now, LastAccessedAt: now}
	if err := s.CreateEnrollment(ctx, e); err != nil {
		t.Fatal(err)
	}

	// reopen from disk
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := s2.GetProgress(ctx, "u")
	if err != nil {
		t.Fatal(err)
	}
	if rec.TotalPoints != 75 || rec.StreakCount != 1 || rec.EnrolledCourses != 1 {
		t.Fatalf("reloaded state wrong: %+v", rec)
	}
	if !rec.HasBadge("first-steps") {
		t.Fatal("badge lost on reload")
	}
	if _, found, _ := s2.GetEnrollment(ctx, "u", "c"); !found {
		t.Fatal("enrollment lost on reload")
	}
}

func TestBadgeIdempotent(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if added, _ := s.AwardBadge(ctx, "u", "b"); !added {
		t.Fatal("first award should add")
	}
	if added, _ := s.AwardBadge(ctx, "u", "b"); added {
		t.Fatal("second award must be a no-op")
	}
	rec, _ := s.GetProgress(ctx, "u")
	if len(rec.Badges) != 1 {
		t.Fatalf("badge set wrong: %+v", rec.Badges)
	}
}

func TestEnrollmentGuards(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	now := time.Now().UTC()
	e := core.Enrollment{UserID: "u", CourseID: "c", Status: core.StatusEnrolled, EnrolledAt: now, LastAccessedAt: now}

	if err := s.DeleteEnrollment(ctx, "u", "c"); !errors.Is(err, core.ErrNotEnrolled) {
		t.Fatalf("want ErrNotEnrolled, got %v", err)
	}
	if err := s.CreateEnrollment(ctx, e); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateEnrollment(ctx, e); !errors.Is(err, core.ErrAlreadyEnrolled) {
		t.Fatalf("want ErrAlreadyEnrolled, got %v", err)
	}

	e.Status = core.StatusCompleted
	e.CompletedAt = &now
	if err := s.UpdateEnrollment(ctx, e); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteEnrollment(ctx, "u", "c"); !errors.Is(err, core.ErrCannotUnenrollCompleted) {
		t.Fatalf("want ErrCannotUnenrollCompleted, got %v", err)
	}
}
