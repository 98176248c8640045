package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"learnkit/core"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Store implements the engine.Storage interface using Redis as the backend.
// Data structure:
//   - learner:{user_id}:points  -> int64 point total
//   - learner:{user_id}:streak  -> int64 streak counter
//   - learner:{user_id}:level   -> int64 derived level
//   - learner:{user_id}:courses -> int64 enrolled-course counter
//   - learner:{user_id}:badges  -> set of badge ids (SADD gives the
//     duplicate-safe set-union award semantics)
//   - enrollment:{user_id}:{course_id} -> hash of enrollment fields
//
// Enrollment create/delete run as Lua scripts so the record write and the
// course counter move in one atomic step, which also closes the
// check-then-write race between concurrent enroll calls.
type Store struct {
	client *redis.Client
}

// New creates a new Redis-backed storage with the provided configuration
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client}, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func pointsKey(user core.UserID) string  { return fmt.Sprintf("learner:%s:points", user) }
func streakKey(user core.UserID) string  { return fmt.Sprintf("learner:%s:streak", user) }
func levelKey(user core.UserID) string   { return fmt.Sprintf("learner:%s:level", user) }
func coursesKey(user core.UserID) string { return fmt.Sprintf("learner:%s:courses", user) }
func badgesKey(user core.UserID) string  { return fmt.Sprintf("learner:%s:badges", user) }
func enrollmentKey(user core.UserID, course core.CourseID) string {
	return fmt.Sprintf("enrollment:%s:%s", user, course)
}

// Lua script for atomic point addition with overflow protection
var addPointsScript = redis.NewScript(`
	local key = KEYS[1]
	local delta = tonumber(ARGV[1])
	local current = tonumber(redis.call('GET', key) or '0')
	local next_val = current + delta

	if next_val > 9223372036854775807 or next_val < -9223372036854775808 then
		return redis.error_reply('integer overflow')
	end

	redis.call('SET', key, next_val)
	return next_val
`)

// enrollScript creates the enrollment hash and bumps the course counter in
// one atomic unit; a no-op when the record already exists.
var enrollScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 1 then
		return 0
	end
	redis.call('HSET', KEYS[1],
		'status', ARGV[1],
		'progress', ARGV[2],
		'enrolled_at', ARGV[3],
		'last_accessed_at', ARGV[4])
	redis.call('INCR', KEYS[2])
	return 1
`)

// unenrollScript deletes the hash and decrements the counter atomically,
// refusing completed enrollments.
var unenrollScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 0 then
		return 0
	end
	if redis.call('HGET', KEYS[1], 'status') == 'completed' then
		return -1
	end
	redis.call('DEL', KEYS[1])
	redis.call('DECR', KEYS[2])
	return 1
`)

// AddPoints atomically adds points to the user's total with overflow protection
func (s *Store) AddPoints(ctx context.Context, user core.UserID, delta int64) (int64, error) {
	if delta == 0 {
		return 0, errors.New("delta cannot be zero")
	}

	result, err := addPointsScript.Run(ctx, s.client, []string{pointsKey(user)}, delta).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to add points: %w", err)
	}

	total, ok := result.(int64)
	if !ok {
		return 0, errors.New("unexpected result type from Redis script")
	}
	return total, nil
}

// AwardBadge adds the badge to the user's set; SADD reports whether the
// member was new, which gives the idempotence contract for free.
func (s *Store) AwardBadge(ctx context.Context, user core.UserID, badge core.BadgeID) (bool, error) {
	added, err := s.client.SAdd(ctx, badgesKey(user), string(badge)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to award badge: %w", err)
	}
	return added == 1, nil
}

// ExtendStreak increments the streak counter
func (s *Store) ExtendStreak(ctx context.Context, user core.UserID) (int64, error) {
	streak, err := s.client.Incr(ctx, streakKey(user)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to extend streak: %w", err)
	}
	return streak, nil
}

// ResetStreak zeroes the streak counter
func (s *Store) ResetStreak(ctx context.Context, user core.UserID) error {
	if err := s.client.Set(ctx, streakKey(user), 0, 0).Err(); err != nil {
		return fmt.Errorf("failed to reset streak: %w", err)
	}
	return nil
}

// SetLevel records the derived level
func (s *Store) SetLevel(ctx context.Context, user core.UserID, level int64) error {
	if err := s.client.Set(ctx, levelKey(user), level, 0).Err(); err != nil {
		return fmt.Errorf("failed to set level: %w", err)
	}
	return nil
}

// GetProgress rebuilds the progress record from the per-field keys
func (s *Store) GetProgress(ctx context.Context, user core.UserID) (core.ProgressRecord, error) {
	rec := core.ProgressRecord{
		UserID:  user,
		Level:   1,
		Badges:  make(map[core.BadgeID]struct{}),
		Updated: time.Now().UTC(),
	}

	for _, f := range []struct {
		key string
		dst *int64
	}{
		{pointsKey(user), &rec.TotalPoints},
		{streakKey(user), &rec.StreakCount},
		{coursesKey(user), &rec.EnrolledCourses},
	} {
		val, err := s.client.Get(ctx, f.key).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return core.ProgressRecord{}, fmt.Errorf("failed to read %s: %w", f.key, err)
		}
		*f.dst = val
	}

	if lvl, err := s.client.Get(ctx, levelKey(user)).Int64(); err == nil && lvl > 0 {
		rec.Level = lvl
	} else if err != nil && !errors.Is(err, redis.Nil) {
		return core.ProgressRecord{}, fmt.Errorf("failed to read level: %w", err)
	}

	badges, err := s.client.SMembers(ctx, badgesKey(user)).Result()
	if err != nil {
		return core.ProgressRecord{}, fmt.Errorf("failed to read badges: %w", err)
	}
	for _, b := range badges {
		rec.Badges[core.BadgeID(b)] = struct{}{}
	}
	return rec, nil
}

// GetEnrollment reads the enrollment hash; an empty hash means no record
func (s *Store) GetEnrollment(ctx context.Context, user core.UserID, course core.CourseID) (core.Enrollment, bool, error) {
	fields, err := s.client.HGetAll(ctx, enrollmentKey(user, course)).Result()
	if err != nil {
		return core.Enrollment{}, false, fmt.Errorf("failed to read enrollment: %w", err)
	}
	if len(fields) == 0 {
		return core.Enrollment{}, false, nil
	}

	rec := core.Enrollment{
		UserID:   user,
		CourseID: course,
		Status:   core.EnrollmentStatus(fields["status"]),
	}
	if v, ok := fields["progress"]; ok {
		rec.Progress, _ = strconv.ParseInt(v, 10, 64)
	}
	if ts, err := parseTime(fields["enrolled_at"]); err == nil {
		rec.EnrolledAt = ts
	}
	if ts, err := parseTime(fields["last_accessed_at"]); err == nil {
		rec.LastAccessedAt = ts
	}
	if v, ok := fields["completed_at"]; ok && v != "" {
		if ts, err := parseTime(v); err == nil {
			rec.CompletedAt = &ts
		}
	}
	return rec, true, nil
}

// CreateEnrollment writes the record and bumps the counter atomically
func (s *Store) CreateEnrollment(ctx context.Context, e core.Enrollment) error {
	keys := []string{enrollmentKey(e.UserID, e.CourseID), coursesKey(e.UserID)}
	res, err := enrollScript.Run(ctx, s.client, keys,
		string(e.Status),
		e.Progress,
		formatTime(e.EnrolledAt),
		formatTime(e.LastAccessedAt),
	).Result()
	if err != nil {
		return fmt.Errorf("failed to create enrollment: %w", err)
	}
	if n, _ := res.(int64); n == 0 {
		return core.ErrAlreadyEnrolled
	}
	return nil
}

// DeleteEnrollment removes the record and decrements the counter atomically
func (s *Store) DeleteEnrollment(ctx context.Context, user core.UserID, course core.CourseID) error {
	keys := []string{enrollmentKey(user, course), coursesKey(user)}
	res, err := unenrollScript.Run(ctx, s.client, keys).Result()
	if err != nil {
		return fmt.Errorf("failed to delete enrollment: %w", err)
	}
	switch n, _ := res.(int64); n {
	case 0:
		return core.ErrNotEnrolled
	case -1:
		return core.ErrCannotUnenrollCompleted
	}
	return nil
}

// UpdateEnrollment writes only the mutable fields of an existing record
func (s *Store) UpdateEnrollment(ctx context.Context, e core.Enrollment) error {
	key := enrollmentKey(e.UserID, e.CourseID)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check enrollment: %w", err)
	}
	if exists == 0 {
		return core.ErrNotEnrolled
	}

	fields := map[string]interface{}{
		"status":           string(e.Status),
		"progress":         e.Progress,
		"last_accessed_at": formatTime(e.LastAccessedAt),
	}
	if e.CompletedAt != nil {
		fields["completed_at"] = formatTime(*e.CompletedAt)
	}
	if err := s.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("failed to update enrollment: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty time")
	}
	return time.Parse(time.RFC3339Nano, s)
}
