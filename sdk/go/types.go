package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Progress mirrors the public JSON surface of core.ProgressRecord.
type Progress struct {
	UserID          string              `json:"user_id"`
	TotalPoints     int64               `json:"total_points"`
	StreakCount     int64               `json:"streak_count"`
	Level           int64               `json:"level"`
	Badges          map[string]struct{} `json:"badges"`
	EnrolledCourses int64               `json:"enrolled_courses"`
	Updated         time.Time           `json:"updated"`
}

// EnrollmentState mirrors the enrollment status response.
type EnrollmentState struct {
	Status     string    `json:"status"`
	Progress   int64     `json:"progress"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// LeaderboardEntry is one row of the leaderboard response.
type LeaderboardEntry struct {
	User   string `json:"User"`
	Points int64  `json:"Points"`
}

// HealthStatus describes the /healthz response.
type HealthStatus struct {
	Status string                 `json:"status"`
	Checks map[string]interface{} `json:"checks"`
}

// Typed errors mapped from the server's error codes.
var (
	ErrEmptyUserID     = errors.New("user id is required")
	ErrAlreadyEnrolled = errors.New("already enrolled in course")
	ErrNotEnrolled     = errors.New("not enrolled in course")
	ErrCourseCompleted = errors.New("cannot unenroll from a completed course")
	ErrInvalidInput    = errors.New("invalid input")
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// decodeJSON decodes a success body, or maps an error body to a typed error.
func decodeJSON(resp *http.Response, target any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil {
			switch apiErr.Code {
			case "already_enrolled":
				return ErrAlreadyEnrolled
			case "not_enrolled":
				return ErrNotEnrolled
			case "course_completed":
				return ErrCourseCompleted
			case "invalid_input", "invalid_user", "invalid_delta", "invalid_badge", "invalid_completed", "invalid_total":
				return fmt.Errorf("%w: %s", ErrInvalidInput, apiErr.Message)
			}
		}
		return fmt.Errorf("request failed: status %d", resp.StatusCode)
	}
	if target == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(target)
}
