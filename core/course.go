package core

import (
	"sort"
	"time"
)

// ModuleID identifies a module within a course.
type ModuleID string

// LessonID identifies a lesson within a module.
type LessonID string

// ContentType enumerates lesson content kinds.
type ContentType string

const (
	ContentText     ContentType = "text"
	ContentVideo    ContentType = "video"
	ContentQuiz     ContentType = "quiz"
	ContentDownload ContentType = "download"
)

// QuizQuestion is a single question with an ordered option list.
type QuizQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
}

// Lesson is an individual content unit within a module.
type Lesson struct {
	ID             LessonID       `json:"id"`
	Title          string         `json:"title"`
	Order          int            `json:"order"`
	Type           ContentType    `json:"type"`
	Locked         bool           `json:"locked"`
	Completed      bool           `json:"completed"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	ResumePosition int            `json:"resume_position,omitempty"`
	Questions      []QuizQuestion `json:"questions,omitempty"`
}

// Module is an ordered group of lessons.
type Module struct {
	ID      ModuleID `json:"id"`
	Title   string   `json:"title"`
	Order   int      `json:"order"`
	Locked  bool     `json:"locked"`
	Lessons []Lesson `json:"lessons"`
}

// Course is the structural unit owned by the content collaborator; this
// core reads ordering and totals and mutates lock/completion flags only.
type Course struct {
	ID          CourseID `json:"id"`
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Published   bool     `json:"published"`
	Modules     []Module `json:"modules"`
}

// IsModuleCompleted reports whether every lesson in the module is completed.
// An empty module is never completed.
func IsModuleCompleted(m Module) bool {
	if len(m.Lessons) == 0 {
		return false
	}
	for _, l := range m.Lessons {
		if !l.Completed {
			return false
		}
	}
	return true
}

// ModuleCompletionPercent is floor(100 * completed / total), 0 for an empty
// module.
func ModuleCompletionPercent(m Module) int {
	if len(m.Lessons) == 0 {
		return 0
	}
	done := 0
	for _, l := range m.Lessons {
		if l.Completed {
			done++
		}
	}
	return 100 * done / len(m.Lessons)
}

// ApplySequentialProgression recomputes every lock flag from current
// completion state. It is a pure function of that state, re-run after each
// completion event rather than patched incrementally, so lock flags cannot
// drift. Modules are walked in order-index order: module 0 is unlocked,
// module i is locked iff module i-1 is incomplete. Lesson 0 mirrors its
// module's lock; lesson j is locked iff lesson j-1 is incomplete or the
// module is locked.
func ApplySequentialProgression(modules []Module) {
	sort.SliceStable(modules, func(i, j int) bool { return modules[i].Order < modules[j].Order })
	for i := range modules {
		if i == 0 {
			modules[i].Locked = false
		} else {
			modules[i].Locked = !IsModuleCompleted(modules[i-1])
		}
		applyLessonLocks(&modules[i])
	}
}

func applyLessonLocks(m *Module) {
	sort.SliceStable(m.Lessons, func(i, j int) bool { return m.Lessons[i].Order < m.Lessons[j].Order })
	for j := range m.Lessons {
		if j == 0 {
			m.Lessons[j].Locked = m.Locked
		} else {
			m.Lessons[j].Locked = m.Locked || !m.Lessons[j-1].Completed
		}
	}
}

// FindLesson locates a lesson by id across all modules.
func (c *Course) FindLesson(id LessonID) (*Module, *Lesson, bool) {
	for i := range c.Modules {
		for j := range c.Modules[i].Lessons {
			if c.Modules[i].Lessons[j].ID == id {
				return &c.Modules[i], &c.Modules[i].Lessons[j], true
			}
		}
	}
	return nil, nil, false
}

// TotalLessons counts every lesson in the course.
func (c *Course) TotalLessons() int {
	n := 0
	for _, m := range c.Modules {
		n += len(m.Lessons)
	}
	return n
}

// CompletedLessons counts completed lessons across all modules.
func (c *Course) CompletedLessons() int {
	n := 0
	for _, m := range c.Modules {
		for _, l := range m.Lessons {
			if l.Completed {
				n++
			}
		}
	}
	return n
}

// CompletionPercent is the course-level completion metric, floor semantics.
func (c *Course) CompletionPercent() int {
	total := c.TotalLessons()
	if total == 0 {
		return 0
	}
	return 100 * c.CompletedLessons() / total
}
