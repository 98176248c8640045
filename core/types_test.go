package core

import (
	"errors"
	"math"
	"testing"
)

func TestAddSafe(t *testing.T) {
	if v, err := AddSafe(10, 5); err != nil || v != 15 {
		t.Fatalf("got %v %v", v, err)
	}
	if _, err := AddSafe(math.MaxInt64, 1); err == nil {
		t.Fatalf("expected overflow")
	}
}

func TestNormalizeUserID(t *testing.T) {
	id, err := NormalizeUserID(" Alice ")
	if err != nil || id != "alice" {
		t.Fatalf("got %v %v", id, err)
	}
	if _, err := NormalizeUserID("   "); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestNormalizeCourseID(t *testing.T) {
	id, err := NormalizeCourseID("GO-101 ")
	if err != nil || id != "go-101" {
		t.Fatalf("got %v %v", id, err)
	}
	if _, err := NormalizeCourseID(""); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestValidateBadgeID(t *testing.T) {
	if err := ValidateBadgeID("first-steps_1"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := ValidateBadgeID("bad badge"); err == nil {
		t.Fatalf("expected invalid badge err")
	}
}

func TestProgressRecordClone(t *testing.T) {
	rec := ProgressRecord{
		UserID:      "u",
		TotalPoints: 50,
		Badges:      map[BadgeID]struct{}{"first-steps": {}},
	}
	cp := rec.Clone()
	cp.Badges["extra"] = struct{}{}
	if rec.HasBadge("extra") {
		t.Fatal("clone should not share badge set")
	}
}

func TestDeriveStatus(t *testing.T) {
	e := Enrollment{Status: StatusEnrolled}
	if got := e.DeriveStatus(); got != StatusEnrolled {
		t.Fatalf("got %s", got)
	}
	e.Progress = 3
	if got := e.DeriveStatus(); got != StatusInProgress {
		t.Fatalf("got %s", got)
	}
	e.Status = StatusCompleted
	e.Progress = 0
	if got := e.DeriveStatus(); got != StatusCompleted {
		t.Fatalf("completed must be sticky, got %s", got)
	}
}

func TestWrapStoragePassesSentinels(t *testing.T) {
	if err := WrapStorage("enroll", ErrAlreadyEnrolled); !errors.Is(err, ErrAlreadyEnrolled) {
		t.Fatalf("sentinel lost: %v", err)
	}
	wrapped := WrapStorage("enroll", errors.New("conn refused"))
	var se *StorageError
	if !errors.As(wrapped, &se) || se.Op != "enroll" {
		t.Fatalf("expected StorageError, got %v", wrapped)
	}
}
