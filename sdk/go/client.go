package sdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"learnkit/core"
)

// Option configures the Client.
type Option func(*Client)

// Client provides typed access to the learnkit HTTP + WebSocket API.
type Client struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client
	headers    http.Header
}

// NewClient constructs a new SDK client targeting the given baseURL (e.g., http://localhost:8080/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	c := &Client{
		baseURL:    baseURL,
		wsURL:      deriveWSURL(baseURL),
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithAuthToken adds an Authorization: Bearer token header to all requests (HTTP + WS).
func WithAuthToken(token string) Option {
	return func(c *Client) {
		if strings.TrimSpace(token) != "" {
			c.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithAPIKey adds an X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if strings.TrimSpace(key) != "" {
			c.headers.Set("X-API-Key", key)
		}
	}
}

// WithHeader sets an arbitrary header applied to HTTP and WS calls.
func WithHeader(k, v string) Option {
	return func(c *Client) {
		if k != "" {
			c.headers.Set(k, v)
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeJSON(resp, target)
}

// AddPoints grants points to a user and returns the new total.
func (c *Client) AddPoints(ctx context.Context, userID string, delta int64) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, ErrEmptyUserID
	}
	path := fmt.Sprintf("/users/%s/points?delta=%d", url.PathEscape(userID), delta)
	var body struct {
		Total int64 `json:"total"`
	}
	if err := c.do(ctx, http.MethodPost, path, &body); err != nil {
		return 0, err
	}
	return body.Total, nil
}

// AwardBadge assigns a badge to a user.
func (c *Client) AwardBadge(ctx context.Context, userID string, badge string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUserID
	}
	path := fmt.Sprintf("/users/%s/badges/%s", url.PathEscape(userID), url.PathEscape(badge))
	return c.do(ctx, http.MethodPost, path, nil)
}

// ExtendStreak increments the user's streak and returns the new count.
func (c *Client) ExtendStreak(ctx context.Context, userID string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, ErrEmptyUserID
	}
	path := fmt.Sprintf("/users/%s/streak", url.PathEscape(userID))
	var body struct {
		Streak int64 `json:"streak"`
	}
	if err := c.do(ctx, http.MethodPost, path, &body); err != nil {
		return 0, err
	}
	return body.Streak, nil
}

// ResetStreak zeroes the user's streak.
func (c *Client) ResetStreak(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUserID
	}
	path := fmt.Sprintf("/users/%s/streak", url.PathEscape(userID))
	return c.do(ctx, http.MethodDelete, path, nil)
}

// GetProgress fetches the current learning progress for a user.
func (c *Client) GetProgress(ctx context.Context, userID string) (Progress, error) {
	if strings.TrimSpace(userID) == "" {
		return Progress{}, ErrEmptyUserID
	}
	var p Progress
	err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), &p)
	return p, err
}

// Enroll enrolls a user in a course. Returns ErrAlreadyEnrolled on a duplicate.
func (c *Client) Enroll(ctx context.Context, userID, courseID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUserID
	}
	path := fmt.Sprintf("/users/%s/enrollments/%s", url.PathEscape(userID), url.PathEscape(courseID))
	return c.do(ctx, http.MethodPost, path, nil)
}

// Unenroll removes a user's enrollment. Returns ErrNotEnrolled or
// ErrCourseCompleted as appropriate.
func (c *Client) Unenroll(ctx context.Context, userID, courseID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUserID
	}
	path := fmt.Sprintf("/users/%s/enrollments/%s", url.PathEscape(userID), url.PathEscape(courseID))
	return c.do(ctx, http.MethodDelete, path, nil)
}

// EnrollmentStatus fetches the enrollment state for a user-course pair.
func (c *Client) EnrollmentStatus(ctx context.Context, userID, courseID string) (EnrollmentState, error) {
	if strings.TrimSpace(userID) == "" {
		return EnrollmentState{}, ErrEmptyUserID
	}
	path := fmt.Sprintf("/users/%s/enrollments/%s", url.PathEscape(userID), url.PathEscape(courseID))
	var st EnrollmentState
	err := c.do(ctx, http.MethodGet, path, &st)
	return st, err
}

// UpdateProgress reports lesson completion counts for an enrolled course.
func (c *Client) UpdateProgress(ctx context.Context, userID, courseID string, completed, total int64) error {
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUserID
	}
	path := fmt.Sprintf("/users/%s/enrollments/%s/progress?completed=%d&total=%d",
		url.PathEscape(userID), url.PathEscape(courseID), completed, total)
	return c.do(ctx, http.MethodPut, path, nil)
}

// Leaderboard fetches the top n entries.
func (c *Client) Leaderboard(ctx context.Context, n int) ([]LeaderboardEntry, error) {
	var body struct {
		Entries []LeaderboardEntry `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/leaderboard?n=%d", n), &body); err != nil {
		return nil, err
	}
	return body.Entries, nil
}

// Health probes /healthz and returns status + storage check.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var hs HealthStatus
	err := c.do(ctx, http.MethodGet, "/healthz", &hs)
	return hs, err
}

// SubscribeEvents connects to the WebSocket stream and emits core.Event values.
// The returned channel closes when ctx is done or the connection drops.
func (c *Client) SubscribeEvents(ctx context.Context) (<-chan core.Event, error) {
	if c.wsURL == "" {
		return nil, errors.New("wsURL is not set; ensure baseURL is http/https")
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, c.wsURL, c.headers)
	if err != nil {
		return nil, err
	}

	out := make(chan core.Event, 32)
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			select {
			case <-ctx.Done():
				return
			default:
				var evt core.Event
				if err := conn.ReadJSON(&evt); err != nil {
					return
				}
				select {
				case out <- evt:
				default:
					// drop if consumer is slow
				}
			}
		}
	}()
	return out, nil
}

func (c *Client) applyHeaders(r *http.Request) {
	for k, vals := range c.headers {
		for _, v := range vals {
			r.Header.Add(k, v)
		}
	}
}

func deriveWSURL(httpBase string) string {
	u, err := url.Parse(httpBase)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		// leave as-is for custom schemes
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}
