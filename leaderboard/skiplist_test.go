package leaderboard

import (
	"testing"

	"learnkit/core"
)

func TestSkipListBasic(t *testing.T) {
	s := NewSkipList()
	s.Update(core.UserID("a"), 10)
	s.Update(core.UserID("b"), 20)
	s.Update(core.UserID("c"), 15)
	top := s.TopN(3)
	if len(top) != 3 || top[0].User != core.UserID("b") || top[1].User != core.UserID("c") || top[2].User != core.UserID("a") {
		t.Fatalf("unexpected order: %#v", top)
	}
	s.Update(core.UserID("a"), 25)
	top = s.TopN(1)
	if top[0].User != core.UserID("a") {
		t.Fatalf("top should be a, got %#v", top)
	}
}

func TestSkipListRank(t *testing.T) {
	s := NewSkipList()
	s.Update("a", 10)
	s.Update("b", 20)
	s.Update("c", 15)

	if r, ok := s.Rank("b"); !ok || r != 1 {
		t.Fatalf("rank b = %d %v", r, ok)
	}
	if r, ok := s.Rank("a"); !ok || r != 3 {
		t.Fatalf("rank a = %d %v", r, ok)
	}
	if _, ok := s.Rank("ghost"); ok {
		t.Fatal("ghost should have no rank")
	}
}

func TestSkipListTiesAndChurn(t *testing.T) {
	s := NewSkipList()
	// equal totals order by user ascending
	s.Update("zed", 50)
	s.Update("amy", 50)
	top := s.TopN(2)
	if top[0].User != core.UserID("amy") || top[1].User != core.UserID("zed") {
		t.Fatalf("tie order wrong: %#v", top)
	}

	// enough inserts and moves to grow and shrink node heights
	for i := 0; i < 200; i++ {
		s.Update(core.UserID(rune('A'+i%26)), int64(i))
	}
	for i := 0; i < 26; i += 2 {
		s.Remove(core.UserID(rune('A' + i)))
	}
	top = s.TopN(100)
	for i := 1; i < len(top); i++ {
		if before(top[i], top[i-1]) {
			t.Fatalf("order violated at %d: %#v", i, top[i-1:i+1])
		}
	}
}

func TestSkipListRemove(t *testing.T) {
	s := NewSkipList()
	s.Update("a", 10)
	s.Update("b", 20)
	s.Remove("b")
	if _, ok := s.Get("b"); ok {
		t.Fatal("b should be gone")
	}
	top := s.TopN(2)
	if len(top) != 1 || top[0].User != core.UserID("a") {
		t.Fatalf("unexpected top: %#v", top)
	}
}
