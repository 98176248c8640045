package sdk

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	mem "learnkit/adapters/memory"
	"learnkit/api/httpapi"
	"learnkit/core"
	"learnkit/engine"
	"learnkit/leaderboard"
	"learnkit/realtime"
)

// newTestServer runs the real API mux so the SDK is exercised end to end.
func newTestServer() (*httptest.Server, *realtime.Hub) {
	storage := mem.New()
	bus := engine.NewEventBus(engine.DispatchSync)
	svc := engine.NewLearnService(storage, core.NewDefaultCatalog(), bus, nil)
	hub := realtime.NewHub()
	board := leaderboard.NewSkipList()
	board.Update("alice", 50)
	handler := httpapi.NewMux(svc, hub, board, httpapi.Options{PathPrefix: "/api"})
	return httptest.NewServer(handler), hub
}

func TestClient_PointsBadgesProgressHealth(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Close()

	client, err := NewClient(srv.URL+"/api", WithAPIKey("k1"))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx := context.Background()

	total, err := client.AddPoints(ctx, "alice", 50)
	if err != nil || total != 50 {
		t.Fatalf("add points got total=%d err=%v", total, err)
	}

	if err := client.AwardBadge(ctx, "alice", "quiz-wizard"); err != nil {
		t.Fatalf("award badge: %v", err)
	}

	if _, err := client.ExtendStreak(ctx, "alice"); err != nil {
		t.Fatalf("extend streak: %v", err)
	}

	p, err := client.GetProgress(ctx, "alice")
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if p.UserID != "alice" || p.TotalPoints != 50 || p.StreakCount != 1 {
		t.Fatalf("unexpected progress: %+v", p)
	}
	if _, ok := p.Badges["quiz-wizard"]; !ok {
		t.Fatalf("badge missing: %+v", p.Badges)
	}

	health, err := client.Health(ctx)
	if err != nil || health.Status != "healthy" {
		t.Fatalf("health: %+v err=%v", health, err)
	}
}

func TestClient_EnrollmentErrors(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Close()

	client, err := NewClient(srv.URL + "/api")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ctx := context.Background()

	if err := client.Enroll(ctx, "alice", "go-101"); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if err := client.Enroll(ctx, "alice", "go-101"); !errors.Is(err, ErrAlreadyEnrolled) {
		t.Fatalf("want ErrAlreadyEnrolled, got %v", err)
	}

	st, err := client.EnrollmentStatus(ctx, "alice", "go-101")
	if err != nil || st.Status != "enrolled" {
		t.Fatalf("status: %+v err=%v", st, err)
	}

	if err := client.UpdateProgress(ctx, "alice", "go-101", 10, 10); err != nil {
		t.Fatalf("update progress: %v", err)
	}
	if err := client.Unenroll(ctx, "alice", "go-101"); !errors.Is(err, ErrCourseCompleted) {
		t.Fatalf("want ErrCourseCompleted, got %v", err)
	}
	if err := client.Unenroll(ctx, "alice", "never-enrolled"); !errors.Is(err, ErrNotEnrolled) {
		t.Fatalf("want ErrNotEnrolled, got %v", err)
	}
}

func TestClient_Leaderboard(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Close()

	client, err := NewClient(srv.URL + "/api")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	entries, err := client.Leaderboard(context.Background(), 5)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 1 || entries[0].User != "alice" || entries[0].Points != 50 {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestClient_SubscribeEvents(t *testing.T) {
	srv, hub := newTestServer()
	defer srv.Close()

	client, err := NewClient(srv.URL + "/api")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	events, err := client.SubscribeEvents(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// give the server-side subscriber a moment to register
	time.Sleep(10 * time.Millisecond)
	hub.Broadcast(ctx, core.NewPointsAdded("alice", 10, 10))

	select {
	case evt := <-events:
		if evt.Type != core.EventPointsAdded {
			t.Fatalf("unexpected event type: %s", evt.Type)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}
