package core

import "time"

// EventType enumerates domain events.
type EventType string

const (
	EventPointsAdded     EventType = "points_added"
	EventLevelUp         EventType = "level_up"
	EventBadgeAwarded    EventType = "badge_awarded"
	EventStreakExtended  EventType = "streak_extended"
	EventLessonCompleted EventType = "lesson_completed"
	EventCourseCompleted EventType = "course_completed"
	EventEnrolled        EventType = "enrolled"
	EventUnenrolled      EventType = "unenrolled"
)

// Event represents an immutable domain event.
type Event struct {
	Type     EventType      `json:"type"`
	Time     time.Time      `json:"time"`
	UserID   UserID         `json:"user_id"`
	CourseID CourseID       `json:"course_id,omitempty"`
	LessonID LessonID       `json:"lesson_id,omitempty"`
	Delta    int64          `json:"delta,omitempty"`
	Total    int64          `json:"total,omitempty"`
	Badge    BadgeID        `json:"badge,omitempty"`
	Level    int64          `json:"level,omitempty"`
	Progress int64          `json:"progress,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func NewPointsAdded(user UserID, delta, total int64) Event {
	return Event{Type: EventPointsAdded, Time: time.Now().UTC(), UserID: user, Delta: delta, Total: total}
}

func NewLevelUp(user UserID, level int64) Event {
	return Event{Type: EventLevelUp, Time: time.Now().UTC(), UserID: user, Level: level}
}

func NewBadgeAwarded(user UserID, badge BadgeID) Event {
	return Event{Type: EventBadgeAwarded, Time: time.Now().UTC(), UserID: user, Badge: badge}
}

func NewStreakExtended(user UserID, streak int64) Event {
	return Event{Type: EventStreakExtended, Time: time.Now().UTC(), UserID: user, Total: streak}
}

func NewLessonCompleted(user UserID, course CourseID, lesson LessonID, progress int64) Event {
	return Event{Type: EventLessonCompleted, Time: time.Now().UTC(), UserID: user, CourseID: course, LessonID: lesson, Progress: progress}
}

func NewCourseCompleted(user UserID, course CourseID) Event {
	return Event{Type: EventCourseCompleted, Time: time.Now().UTC(), UserID: user, CourseID: course}
}

func NewEnrolled(user UserID, course CourseID) Event {
	return Event{Type: EventEnrolled, Time: time.Now().UTC(), UserID: user, CourseID: course}
}

func NewUnenrolled(user UserID, course CourseID) Event {
	return Event{Type: EventUnenrolled, Time: time.Now().UTC(), UserID: user, CourseID: course}
}
