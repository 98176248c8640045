package core

import "fmt"

// BadgeCategory groups badges for display.
type BadgeCategory string

const (
	CategoryAchievement   BadgeCategory = "achievement"
	CategoryParticipation BadgeCategory = "participation"
	CategoryConsistency   BadgeCategory = "consistency"
	CategoryMastery       BadgeCategory = "mastery"
)

// BadgeCondition is the trigger kind a badge is unlocked by.
type BadgeCondition string

const (
	ConditionPoints         BadgeCondition = "points"
	ConditionStreak         BadgeCondition = "streak"
	ConditionCourseComplete BadgeCondition = "course_complete"
	ConditionQuizMastery    BadgeCondition = "quiz_mastery"
)

// Fixed badge identifiers awarded on caller-verified events.
const (
	BadgeCourseChampion BadgeID = "course-champion"
	BadgeQuizWizard     BadgeID = "quiz-wizard"
)

// BadgeDefinition is an immutable, statically registered badge.
type BadgeDefinition struct {
	ID          BadgeID        `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    BadgeCategory  `json:"category"`
	Condition   BadgeCondition `json:"condition"`
	Threshold   int64          `json:"threshold"`
	Requirement string         `json:"requirement"`
	Icon        string         `json:"icon"`
}

// Catalog is an immutable registry of badge definitions. Construct it once
// at startup and inject it; there is no package-level singleton.
type Catalog struct {
	defs []BadgeDefinition
	byID map[BadgeID]int
}

// NewCatalog builds a catalog from the given definitions, rejecting
// duplicate or malformed identifiers.
func NewCatalog(defs []BadgeDefinition) (*Catalog, error) {
	c := &Catalog{
		defs: make([]BadgeDefinition, len(defs)),
		byID: make(map[BadgeID]int, len(defs)),
	}
	copy(c.defs, defs)
	for i, d := range c.defs {
		if err := ValidateBadgeID(d.ID); err != nil {
			return nil, err
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate badge id %q", d.ID)
		}
		c.byID[d.ID] = i
	}
	return c, nil
}

// All returns the definitions in registration order as a fresh copy, so
// callers cannot mutate shared state.
func (c *Catalog) All() []BadgeDefinition {
	out := make([]BadgeDefinition, len(c.defs))
	copy(out, c.defs)
	return out
}

// ByCategory returns the definitions in the given category, in registration
// order.
func (c *Catalog) ByCategory(cat BadgeCategory) []BadgeDefinition {
	var out []BadgeDefinition
	for _, d := range c.defs {
		if d.Category == cat {
			out = append(out, d)
		}
	}
	return out
}

// ByCondition returns the definitions with the given condition type.
func (c *Catalog) ByCondition(cond BadgeCondition) []BadgeDefinition {
	var out []BadgeDefinition
	for _, d := range c.defs {
		if d.Condition == cond {
			out = append(out, d)
		}
	}
	return out
}

// ByID looks up a definition by identifier.
func (c *Catalog) ByID(id BadgeID) (BadgeDefinition, bool) {
	i, ok := c.byID[id]
	if !ok {
		return BadgeDefinition{}, false
	}
	return c.defs[i], true
}

// Len reports the number of registered definitions.
func (c *Catalog) Len() int { return len(c.defs) }

// NewDefaultCatalog returns the stock badge set.
func NewDefaultCatalog() *Catalog {
	c, err := NewCatalog([]BadgeDefinition{
		{
			ID:          "first-steps",
			Title:       "First Steps",
			Description: "You earned your first 100 points.",
			Category:    CategoryAchievement,
			Condition:   ConditionPoints,
			Threshold:   100,
			Requirement: "Earn 100 points",
			Icon:        "footprints",
		},
		{
			ID:          "point-collector",
			Title:       "Point Collector",
			Description: "500 points and counting.",
			Category:    CategoryAchievement,
			Condition:   ConditionPoints,
			Threshold:   500,
			Requirement: "Earn 500 points",
			Icon:        "coins",
		},
		{
			ID:          "point-master",
			Title:       "Point Master",
			Description: "A full thousand points earned.",
			Category:    CategoryAchievement,
			Condition:   ConditionPoints,
			Threshold:   1000,
			Requirement: "Earn 1,000 points",
			Icon:        "trophy",
		},
		{
			ID:          "point-legend",
			Title:       "Point Legend",
			Description: "2,500 points. Few make it this far.",
			Category:    CategoryAchievement,
			Condition:   ConditionPoints,
			Threshold:   2500,
			Requirement: "Earn 2,500 points",
			Icon:        "crown",
		},
		{
			ID:          "warming-up",
			Title:       "Warming Up",
			Description: "Learned three days in a row.",
			Category:    CategoryConsistency,
			Condition:   ConditionStreak,
			Threshold:   3,
			Requirement: "Keep a 3-day streak",
			Icon:        "flame",
		},
		{
			ID:          "week-streak",
			Title:       "Week Streak",
			Description: "A full week of daily learning.",
			Category:    CategoryConsistency,
			Condition:   ConditionStreak,
			Threshold:   7,
			Requirement: "Keep a 7-day streak",
			Icon:        "calendar-check",
		},
		{
			ID:          "unstoppable",
			Title:       "Unstoppable",
			Description: "Thirty consecutive days of learning.",
			Category:    CategoryConsistency,
			Condition:   ConditionStreak,
			Threshold:   30,
			Requirement: "Keep a 30-day streak",
			Icon:        "rocket",
		},
		{
			ID:          BadgeCourseChampion,
			Title:       "Course Champion",
			Description: "Completed a course from start to finish.",
			Category:    CategoryParticipation,
			Condition:   ConditionCourseComplete,
			Threshold:   1,
			Requirement: "Complete a course",
			Icon:        "graduation-cap",
		},
		{
			ID:          BadgeQuizWizard,
			Title:       "Quiz Wizard",
			Description: "Aced a quiz with a perfect score.",
			Category:    CategoryMastery,
			Condition:   ConditionQuizMastery,
			Threshold:   1,
			Requirement: "Score 100% on a quiz",
			Icon:        "wand",
		},
	})
	if err != nil {
		// the stock definitions are constants; a failure here is a programming error
		panic(err)
	}
	return c
}
