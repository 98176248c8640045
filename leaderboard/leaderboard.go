package leaderboard

import "learnkit/core"

// Entry represents a learner's standing by total points.
type Entry struct {
	User   core.UserID
	Points int64
}

// Board abstracts leaderboard operations.
type Board interface {
	Update(user core.UserID, points int64)
	Remove(user core.UserID)
	TopN(n int) []Entry
	Get(user core.UserID) (Entry, bool)
	Rank(user core.UserID) (int, bool)
}
