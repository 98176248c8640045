package core

// XP thresholds per level: index i holds the XP required to reach level i+1.
// Level 1 starts at 0 XP; the table is strictly increasing.
var levelThresholds = [...]int64{0, 100, 300, 600, 1000, 1500, 2100, 2800, 3600, 4500}

// MaxLevel is the highest reachable level.
const MaxLevel = int64(len(levelThresholds))

// LevelForXP returns the highest level whose threshold is <= xp, in
// [1, MaxLevel]. Negative xp is clamped to 0. The function is pure and total:
// identical input always yields identical output.
func LevelForXP(xp int64) int64 {
	if xp < 0 {
		xp = 0
	}
	level := int64(1)
	for i, threshold := range levelThresholds {
		if xp >= threshold {
			level = int64(i) + 1
		} else {
			break
		}
	}
	return level
}

// XPForLevel returns the XP threshold at which the given level begins.
// Levels outside [1, MaxLevel] are clamped.
func XPForLevel(level int64) int64 {
	if level < 1 {
		level = 1
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return levelThresholds[level-1]
}

// XPForNextLevel returns the XP threshold of level+1, or the max-level
// threshold when already at or above MaxLevel.
func XPForNextLevel(level int64) int64 {
	if level >= MaxLevel {
		return levelThresholds[MaxLevel-1]
	}
	return XPForLevel(level + 1)
}

// ProgressPercent reports how far xp has progressed through the current
// level band, in [0,100]. At MaxLevel it is always 100.
func ProgressPercent(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	level := LevelForXP(xp)
	if level >= MaxLevel {
		return 100
	}
	lo := XPForLevel(level)
	hi := XPForNextLevel(level)
	if hi <= lo {
		return 0
	}
	return int(100 * (xp - lo) / (hi - lo))
}

// XPToNextLevel returns how much XP is still needed to reach the next
// level, or 0 at MaxLevel.
func XPToNextLevel(xp int64) int64 {
	if xp < 0 {
		xp = 0
	}
	level := LevelForXP(xp)
	if level >= MaxLevel {
		return 0
	}
	return XPForNextLevel(level) - xp
}

// CheckLevelUp compares the levels for two XP totals and returns the new
// level with true only when the level strictly increased.
func CheckLevelUp(oldXP, newXP int64) (int64, bool) {
	oldLevel := LevelForXP(oldXP)
	newLevel := LevelForXP(newXP)
	if newLevel > oldLevel {
		return newLevel, true
	}
	return oldLevel, false
}
