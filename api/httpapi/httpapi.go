package httpapi

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	wsadapter "learnkit/adapters/websocket"
	"learnkit/core"
	"learnkit/engine"
	"learnkit/leaderboard"
	"learnkit/realtime"
)

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/api").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables basic CORS with the given origin (use "*" for any).
	AllowCORSOrigin string
	// APIKeys, if non-empty, enables static API key auth via Authorization: Bearer or X-API-Key.
	APIKeys []string
	// RateLimitEnabled toggles rate limiting.
	RateLimitEnabled bool
	// RateLimitRPM is the allowed requests per minute per client key.
	RateLimitRPM int
	// RateLimitBurst defines burst capacity.
	RateLimitBurst int
}

// NewMux builds an http.Handler exposing the learning progression REST API
// and WebSocket stream.
// Routes:
//   - GET    {prefix}/users/{id}
//   - POST   {prefix}/users/{id}/points?delta=50
//   - POST   {prefix}/users/{id}/badges/{badge}
//   - POST   {prefix}/users/{id}/streak
//   - DELETE {prefix}/users/{id}/streak
//   - POST   {prefix}/users/{id}/enrollments/{course}
//   - DELETE {prefix}/users/{id}/enrollments/{course}
//   - GET    {prefix}/users/{id}/enrollments/{course}
//   - PUT    {prefix}/users/{id}/enrollments/{course}/progress?completed=3&total=10
//   - GET    {prefix}/leaderboard?n=10
//   - GET    {prefix}/healthz
//   - WS     {prefix}/ws
func NewMux(svc *engine.LearnService, hub *realtime.Hub, board leaderboard.Board, opts Options) http.Handler {
	mux := http.NewServeMux()

	// health
	mux.HandleFunc(withPrefix(opts.PathPrefix, "/healthz"), func(w http.ResponseWriter, r *http.Request) {
		healthCheck(w, r, svc)
	})

	// WebSocket events
	if hub != nil {
		mux.Handle(withPrefix(opts.PathPrefix, "/ws"), wsadapter.Handler(hub))
	}

	// Leaderboard
	if board != nil {
		mux.HandleFunc(withPrefix(opts.PathPrefix, "/leaderboard"), func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
				return
			}
			n := 10
			if raw := r.URL.Query().Get("n"); raw != "" {
				if v, err := strconv.Atoi(raw); err == nil && v > 0 {
					n = v
				}
			}
			writeJSON(w, map[string]any{"entries": board.TopN(n)})
		})
	}

	// Users API
	mux.HandleFunc(withPrefix(opts.PathPrefix, "/users/"), func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, opts.PathPrefix)
		if path == "" || path[0] != '/' {
			path = "/" + path
		}
		parts := split(path, '/')
		if len(parts) < 2 {
			writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
			return
		}
		user, err := core.NormalizeUserID(core.UserID(parts[1]))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_user", err.Error(), nil)
			return
		}

		switch {
		case len(parts) == 2 && r.Method == http.MethodGet:
			handleGetProgress(w, r, svc, user)
		case len(parts) == 3 && parts[2] == "points" && r.Method == http.MethodPost:
			handleAddPoints(w, r, svc, user)
		case len(parts) == 4 && parts[2] == "badges" && r.Method == http.MethodPost:
			handleAwardBadge(w, r, svc, user, core.BadgeID(parts[3]))
		case len(parts) == 3 && parts[2] == "streak" && r.Method == http.MethodPost:
			handleExtendStreak(w, r, svc, user)
		case len(parts) == 3 && parts[2] == "streak" && r.Method == http.MethodDelete:
			handleResetStreak(w, r, svc, user)
		case len(parts) == 4 && parts[2] == "enrollments":
			handleEnrollment(w, r, svc, user, core.CourseID(parts[3]))
		case len(parts) == 5 && parts[2] == "enrollments" && parts[4] == "progress" && r.Method == http.MethodPut:
			handleUpdateProgress(w, r, svc, user, core.CourseID(parts[3]))
		default:
			writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
		}
	})

	var handler http.Handler = mux
	if opts.AllowCORSOrigin != "" {
		handler = withCORS(handler, opts.AllowCORSOrigin)
	}
	if len(opts.APIKeys) > 0 {
		handler = withAPIKeyAuth(handler, opts.APIKeys)
	}
	if opts.RateLimitEnabled && opts.RateLimitRPM > 0 && opts.RateLimitBurst > 0 {
		handler = withRateLimit(handler, opts.RateLimitRPM, opts.RateLimitBurst)
	}
	return handler
}

func handleGetProgress(w http.ResponseWriter, r *http.Request, svc *engine.LearnService, user core.UserID) {
	rec, err := svc.Progress(r.Context(), user)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, rec)
}

func handleAddPoints(w http.ResponseWriter, r *http.Request, svc *engine.LearnService, user core.UserID) {
	delta, err := strconv.ParseInt(r.URL.Query().Get("delta"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_delta", "delta must be an integer", nil)
		return
	}
	total, err := svc.AddPoints(r.Context(), user, delta)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]any{"total": total})
}

func handleAwardBadge(w http.ResponseWriter, r *http.Request, svc *engine.LearnService, user core.UserID, badge core.BadgeID) {
	if err := svc.Badges().AwardBadge(r.Context(), user, badge); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func handleExtendStreak(w http.ResponseWriter, r *http.Request, svc *engine.LearnService, user core.UserID) {
	streak, err := svc.ExtendStreak(r.Context(), user)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]any{"streak": streak})
}

func handleResetStreak(w http.ResponseWriter, r *http.Request, svc *engine.LearnService, user core.UserID) {
	if err := svc.ResetStreak(r.Context(), user); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func handleEnrollment(w http.ResponseWriter, r *http.Request, svc *engine.LearnService, user core.UserID, course core.CourseID) {
	switch r.Method {
	case http.MethodPost:
		if err := svc.Enrollments().Enroll(r.Context(), user, course); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, map[string]any{"ok": true})
	case http.MethodDelete:
		if err := svc.Enrollments().Unenroll(r.Context(), user, course); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	case http.MethodGet:
		state, err := svc.Enrollments().CheckStatus(r.Context(), user, course)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, state)
	default:
		writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
	}
}

func handleUpdateProgress(w http.ResponseWriter, r *http.Request, svc *engine.LearnService, user core.UserID, course core.CourseID) {
	completed, err := strconv.ParseInt(r.URL.Query().Get("completed"), 10, 64)
	if err != nil || completed < 0 {
		writeError(w, http.StatusBadRequest, "invalid_completed", "completed must be a non-negative integer", nil)
		return
	}
	total, err := strconv.ParseInt(r.URL.Query().Get("total"), 10, 64)
	if err != nil || total < 0 {
		writeError(w, http.StatusBadRequest, "invalid_total", "total must be a non-negative integer", nil)
		return
	}
	if err := svc.Enrollments().UpdateProgress(r.Context(), user, course, completed, total); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

// writeDomainError maps domain sentinels to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrAlreadyEnrolled):
		writeError(w, http.StatusConflict, "already_enrolled", err.Error(), nil)
	case errors.Is(err, core.ErrNotEnrolled):
		writeError(w, http.StatusNotFound, "not_enrolled", err.Error(), nil)
	case errors.Is(err, core.ErrCannotUnenrollCompleted):
		writeError(w, http.StatusConflict, "course_completed", err.Error(), nil)
	case errors.Is(err, core.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
	default:
		var se *core.StorageError
		if errors.As(err, &se) {
			writeError(w, http.StatusInternalServerError, "storage_error", "storage operation failed", nil)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
	}
}

// Helpers

// healthCheck verifies the service is working properly
func healthCheck(w http.ResponseWriter, r *http.Request, svc *engine.LearnService) {
	ctx := r.Context()

	// Verify storage works by trying to fetch a dummy user
	// This is a safe, lightweight check that doesn't affect real data
	dummyUser := core.UserID("healthcheck_probe")
	_, err := svc.Progress(ctx, dummyUser)

	status := map[string]any{
		"status": "healthy",
		"checks": map[string]any{
			"storage": "ok",
		},
	}

	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		status["status"] = "unhealthy"
		status["checks"].(map[string]any)["storage"] = "failed"
	} else {
		w.WriteHeader(http.StatusOK)
	}

	writeJSON(w, status)
}

func withPrefix(prefix, path string) string {
	if prefix == "" || prefix == "/" {
		return path
	}
	if prefix[len(prefix)-1] == '/' {
		return prefix[:len(prefix)-1] + path
	}
	return prefix + path
}

func split(p string, sep rune) []string {
	var parts []string
	cur := make([]rune, 0, len(p))
	// trim leading '/'
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	for _, r := range p {
		if r == sep {
			if len(cur) > 0 {
				parts = append(parts, string(cur))
				cur = cur[:0]
			}
			continue
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		parts = append(parts, string(cur))
	}
	return parts
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{Code: code, Message: msg, Details: details})
}

// withCORS wraps a handler with a minimal CORS policy.
func withCORS(next http.Handler, origin string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withAPIKeyAuth enforces a shared API key list.
func withAPIKeyAuth(next http.Handler, apiKeys []string) http.Handler {
	allowed := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		k = strings.TrimSpace(k)
		if k != "" {
			allowed[k] = struct{}{}
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := extractAPIKey(r)
		if key == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing API key", nil)
			return
		}
		if _, ok := allowed[key]; !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid API key", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit applies a simple token-bucket limiter per client key.
func withRateLimit(next http.Handler, rpm int, burst int) http.Handler {
	limiter := newRateLimiter(rpm, burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !limiter.allow(key) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractAPIKey(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return ""
}

// clientKey uses API key if present, otherwise remote IP.
func clientKey(r *http.Request) string {
	if key := extractAPIKey(r); key != "" {
		return key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type rateLimiter struct {
	rpm   float64
	burst float64
	mu    sync.Mutex
	b     map[string]*bucket
}

type bucket struct {
	tokens float64
	last   time.Time
}

func newRateLimiter(rpm, burst int) *rateLimiter {
	return &rateLimiter{
		rpm:   float64(rpm),
		burst: float64(burst),
		b:     make(map[string]*bucket),
	}
}

func (l *rateLimiter) allow(key string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.b[key]
	if !ok {
		l.b[key] = &bucket{tokens: l.burst - 1, last: now}
		return true
	}

	elapsed := now.Sub(b.last).Minutes()
	b.tokens += elapsed * l.rpm
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	if b.tokens < 1 {
		b.last = now
		return false
	}
	b.tokens--
	b.last = now
	return true
}
