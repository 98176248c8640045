package core

import "testing"

func TestLevelForXPBounds(t *testing.T) {
	if LevelForXP(-5) != 1 || LevelForXP(0) != 1 {
		t.Fatal("negative and zero xp should both map to level 1")
	}
	if LevelForXP(4500) != MaxLevel || LevelForXP(1_000_000) != MaxLevel {
		t.Fatal("xp at or past the top threshold should map to MaxLevel")
	}
}

func TestLevelForXPMonotonic(t *testing.T) {
	prev := int64(0)
	for xp := int64(0); xp <= 5000; xp += 7 {
		lvl := LevelForXP(xp)
		if lvl < prev {
			t.Fatalf("level regressed at xp=%d: %d < %d", xp, lvl, prev)
		}
		prev = lvl
	}
}

func TestLevelThresholdRoundTrip(t *testing.T) {
	for l := int64(1); l <= MaxLevel; l++ {
		if got := LevelForXP(XPForLevel(l)); got != l {
			t.Fatalf("LevelForXP(XPForLevel(%d)) = %d", l, got)
		}
	}
}

func TestCheckLevelUp(t *testing.T) {
	if lvl, up := CheckLevelUp(99, 100); !up || lvl != 2 {
		t.Fatalf("want level up to 2, got %d %v", lvl, up)
	}
	if _, up := CheckLevelUp(100, 150); up {
		t.Fatal("same band should not signal a level up")
	}
	if _, up := CheckLevelUp(150, 120); up {
		t.Fatal("losing xp should never signal a level up")
	}
}

func TestProgressPercent(t *testing.T) {
	if ProgressPercent(0) != 0 {
		t.Fatalf("got %d", ProgressPercent(0))
	}
	// level 1 band is 0..100, so 50 xp is halfway
	if ProgressPercent(50) != 50 {
		t.Fatalf("got %d", ProgressPercent(50))
	}
	if ProgressPercent(4500) != 100 || ProgressPercent(9000) != 100 {
		t.Fatal("max level should always report 100")
	}
}

func TestXPToNextLevel(t *testing.T) {
	if got := XPToNextLevel(99); got != 1 {
		t.Fatalf("got %d", got)
	}
	if got := XPToNextLevel(4500); got != 0 {
		t.Fatalf("max level should need 0, got %d", got)
	}
}
