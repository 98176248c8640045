package core

import "testing"

func TestDefaultCatalogUniqueIDs(t *testing.T) {
	c := NewDefaultCatalog()
	seen := map[BadgeID]bool{}
	for _, d := range c.All() {
		if seen[d.ID] {
			t.Fatalf("duplicate badge id %s", d.ID)
		}
		seen[d.ID] = true
	}
}

func TestCatalogAllReturnsFreshCopy(t *testing.T) {
	c := NewDefaultCatalog()
	a := c.All()
	a[0].Title = "tampered"
	if c.All()[0].Title == "tampered" {
		t.Fatal("All must return a copy, not shared state")
	}
}

func TestCatalogByID(t *testing.T) {
	c := NewDefaultCatalog()
	d, ok := c.ByID(BadgeCourseChampion)
	if !ok || d.Condition != ConditionCourseComplete {
		t.Fatalf("got %+v ok=%v", d, ok)
	}
	if _, ok := c.ByID("no-such-badge"); ok {
		t.Fatal("expected not found")
	}
}

func TestCatalogByCategoryAndCondition(t *testing.T) {
	c := NewDefaultCatalog()
	for _, d := range c.ByCategory(CategoryConsistency) {
		if d.Condition != ConditionStreak {
			t.Fatalf("consistency badge %s has condition %s", d.ID, d.Condition)
		}
	}
	points := c.ByCondition(ConditionPoints)
	if len(points) == 0 {
		t.Fatal("expected point badges")
	}
	// thresholds should be registered in ascending order
	for i := 1; i < len(points); i++ {
		if points[i].Threshold <= points[i-1].Threshold {
			t.Fatalf("point thresholds out of order at %d", i)
		}
	}
}

func TestNewCatalogRejectsDuplicates(t *testing.T) {
	_, err := NewCatalog([]BadgeDefinition{{ID: "dup"}, {ID: "dup"}})
	if err == nil {
		t.Fatal("expected duplicate id error")
	}
}
