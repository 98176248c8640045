package engine

import (
	"context"
	"fmt"

	"learnkit/core"
)

// Points granted by progression events.
const (
	PointsPerLesson        = 25
	PointsPerCorrectAnswer = 10
)

// CompleteLesson marks the lesson completed, recomputes lock state across
// the whole course, and pushes the new completion count into the user's
// enrollment. The course value is mutated in place (completion flags,
// timestamps, locks); it is the caller's working copy of the structural
// data, not shared state.
//
// Completing an already-completed lesson is a no-op; completing a locked
// lesson fails with core.ErrLessonLocked.
func (s *LearnService) CompleteLesson(ctx context.Context, user core.UserID, course *core.Course, lessonID core.LessonID) error {
	user, err := core.NormalizeUserID(user)
	if err != nil {
		return err
	}

	core.ApplySequentialProgression(course.Modules)
	_, lesson, ok := course.FindLesson(lessonID)
	if !ok {
		return fmt.Errorf("lesson %q not found in course %q", lessonID, course.ID)
	}
	if lesson.Completed {
		return nil
	}
	if lesson.Locked {
		return core.ErrLessonLocked
	}

	now := s.enrollments.now()
	lesson.Completed = true
	lesson.CompletedAt = &now
	core.ApplySequentialProgression(course.Modules)

	completed := int64(course.CompletedLessons())
	total := int64(course.TotalLessons())
	if err := s.enrollments.UpdateProgress(ctx, user, course.ID, completed, total); err != nil {
		// roll the caller's copy back so a retry is not a silent no-op
		lesson.Completed = false
		lesson.CompletedAt = nil
		core.ApplySequentialProgression(course.Modules)
		return err
	}
	s.bus.Publish(ctx, core.NewLessonCompleted(user, course.ID, lessonID, completed))

	// lesson points feed the level and point-badge pipeline
	if _, err := s.AddPoints(ctx, user, PointsPerLesson); err != nil {
		s.log.Warn("lesson points grant failed", "user", user, "lesson", lessonID, "error", err)
	}
	return nil
}

// QuizResult summarizes a graded submission.
type QuizResult struct {
	Correct int   `json:"correct"`
	Total   int   `json:"total"`
	Points  int64 `json:"points"`
	Perfect bool  `json:"perfect"`
}

// SubmitQuiz grades answers against the lesson's question list. Points are
// granted per correct answer; a perfect score completes the lesson and
// awards the quiz mastery badge.
func (s *LearnService) SubmitQuiz(ctx context.Context, user core.UserID, course *core.Course, lessonID core.LessonID, answers []int) (QuizResult, error) {
	user, err := core.NormalizeUserID(user)
	if err != nil {
		return QuizResult{}, err
	}

	core.ApplySequentialProgression(course.Modules)
	_, lesson, ok := course.FindLesson(lessonID)
	if !ok {
		return QuizResult{}, fmt.Errorf("lesson %q not found in course %q", lessonID, course.ID)
	}
	if lesson.Type != core.ContentQuiz {
		return QuizResult{}, fmt.Errorf("lesson %q is not a quiz", lessonID)
	}
	if lesson.Locked {
		return QuizResult{}, core.ErrLessonLocked
	}
	if len(lesson.Questions) == 0 {
		return QuizResult{}, fmt.Errorf("quiz %q has no questions", lessonID)
	}

	res := QuizResult{Total: len(lesson.Questions)}
	for i, q := range lesson.Questions {
		if i < len(answers) && answers[i] == q.CorrectIndex {
			res.Correct++
		}
	}
	res.Perfect = res.Correct == res.Total
	res.Points = int64(res.Correct) * PointsPerCorrectAnswer

	if res.Points > 0 {
		if _, err := s.AddPoints(ctx, user, res.Points); err != nil {
			s.log.Warn("quiz points grant failed", "user", user, "lesson", lessonID, "error", err)
		}
	}
	if res.Perfect {
		s.badges.AwardQuizMasteryBadge(ctx, user)
		if err := s.CompleteLesson(ctx, user, course, lessonID); err != nil {
			return res, err
		}
	}
	return res, nil
}
