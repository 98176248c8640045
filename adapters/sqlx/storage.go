package sqlx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"learnkit/core"
)

// Driver selects the SQL dialect used for placeholder rebinding.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// Config holds SQL connection configuration
type Config struct {
	Driver          Driver
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns sensible defaults for the given driver
func DefaultConfig(driver Driver) Config {
	return Config{
		Driver:          driver,
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// Store implements the engine.Storage interface on a SQL database via sqlx.
// Tables:
//   - user_progress  (user_id, points, streak, level, updated_at)
//   - user_badges    (user_id, badge, awarded_at) with a unique pair index
//   - enrollments    (user_id, course_id, status, progress, enrolled_at,
//     last_accessed_at, completed_at)
//
// The enrolled-course counter is derived with COUNT(*) over enrollments, so
// it can never drift from the records themselves. All read-modify-write
// operations run inside a transaction.
type Store struct {
	db     *sqlx.DB
	driver Driver
}

// New opens a connection with the provided configuration and verifies it
func New(config Config) (*Store, error) {
	db, err := sqlx.Connect(string(config.Driver), config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", config.Driver, err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	return &Store{db: db, driver: config.Driver}, nil
}

// NewWithDB wraps an existing sqlx handle (useful for testing with sqlmock)
func NewWithDB(db *sqlx.DB, driver Driver) *Store {
	return &Store{db: db, driver: driver}
}

// Close closes the underlying database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the tables if they do not exist
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS user_progress (
			user_id    VARCHAR(255) PRIMARY KEY,
			points     BIGINT NOT NULL DEFAULT 0,
			streak     BIGINT NOT NULL DEFAULT 0,
			level      BIGINT NOT NULL DEFAULT 1,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_badges (
			user_id    VARCHAR(255) NOT NULL,
			badge      VARCHAR(255) NOT NULL,
			awarded_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, badge)
		)`,
		`CREATE TABLE IF NOT EXISTS enrollments (
			user_id          VARCHAR(255) NOT NULL,
			course_id        VARCHAR(255) NOT NULL,
			status           VARCHAR(32) NOT NULL,
			progress         BIGINT NOT NULL DEFAULT 0,
			enrolled_at      TIMESTAMP NOT NULL,
			last_accessed_at TIMESTAMP NOT NULL,
			completed_at     TIMESTAMP NULL,
			PRIMARY KEY (user_id, course_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a duplicate-key error from either
// supported driver. The EXISTS pre-checks cannot see rows committed by a
// concurrent transaction at default isolation, so the primary keys are the
// real duplicate guard and their violations carry domain meaning.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}

type progressRow struct {
	Points int64
	Streak int64
	Level  int64
	found  bool
}

func (s *Store) readProgressRow(ctx context.Context, tx *sqlx.Tx, user core.UserID) (progressRow, error) {
	var row progressRow
	q := s.db.Rebind(`SELECT points, streak, level FROM user_progress WHERE user_id = ?`)
	err := tx.QueryRowxContext(ctx, q, user).Scan(&row.Points, &row.Streak, &row.Level)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return progressRow{Level: 1}, nil
	case err != nil:
		return progressRow{}, err
	}
	row.found = true
	return row, nil
}

func (s *Store) writeProgressRow(ctx context.Context, tx *sqlx.Tx, user core.UserID, row progressRow) error {
	now := time.Now().UTC()
	if row.found {
		q := s.db.Rebind(`UPDATE user_progress SET points = ?, streak = ?, level = ?, updated_at = ? WHERE user_id = ?`)
		_, err := tx.ExecContext(ctx, q, row.Points, row.Streak, row.Level, now, user)
		return err
	}
	q := s.db.Rebind(`INSERT INTO user_progress (user_id, points, streak, level, updated_at) VALUES (?, ?, ?, ?, ?)`)
	_, err := tx.ExecContext(ctx, q, user, row.Points, row.Streak, row.Level, now)
	return err
}

// mutateProgress runs fn against the user's row inside a transaction
func (s *Store) mutateProgress(ctx context.Context, user core.UserID, fn func(*progressRow)) (progressRow, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return progressRow{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row, err := s.readProgressRow(ctx, tx, user)
	if err != nil {
		return progressRow{}, fmt.Errorf("failed to read progress: %w", err)
	}
	fn(&row)
	if err := s.writeProgressRow(ctx, tx, user, row); err != nil {
		return progressRow{}, fmt.Errorf("failed to write progress: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return progressRow{}, fmt.Errorf("failed to commit: %w", err)
	}
	return row, nil
}

// AddPoints adds points to the user's total and returns the new total
func (s *Store) AddPoints(ctx context.Context, user core.UserID, delta int64) (int64, error) {
	row, err := s.mutateProgress(ctx, user, func(r *progressRow) { r.Points += delta })
	if err != nil {
		return 0, err
	}
	return row.Points, nil
}

// AwardBadge inserts the badge row unless it already exists
func (s *Store) AwardBadge(ctx context.Context, user core.UserID, badge core.BadgeID) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	q := s.db.Rebind(`SELECT EXISTS(SELECT 1 FROM user_badges WHERE user_id = ? AND badge = ?)`)
	if err := tx.QueryRowxContext(ctx, q, user, badge).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check badge: %w", err)
	}
	if exists {
		return false, tx.Commit()
	}

	q = s.db.Rebind(`INSERT INTO user_badges (user_id, badge, awarded_at) VALUES (?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, q, user, badge, time.Now().UTC()); err != nil {
		// a concurrent award beat us to the insert; same as already-held
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert badge: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	return true, nil
}

// ExtendStreak increments the streak counter and returns the new value
func (s *Store) ExtendStreak(ctx context.Context, user core.UserID) (int64, error) {
	row, err := s.mutateProgress(ctx, user, func(r *progressRow) { r.Streak++ })
	if err != nil {
		return 0, err
	}
	return row.Streak, nil
}

// ResetStreak zeroes the streak counter
func (s *Store) ResetStreak(ctx context.Context, user core.UserID) error {
	_, err := s.mutateProgress(ctx, user, func(r *progressRow) { r.Streak = 0 })
	return err
}

// SetLevel records the derived level
func (s *Store) SetLevel(ctx context.Context, user core.UserID, level int64) error {
	_, err := s.mutateProgress(ctx, user, func(r *progressRow) { r.Level = level })
	return err
}

// GetProgress assembles the progress record from the three tables
func (s *Store) GetProgress(ctx context.Context, user core.UserID) (core.ProgressRecord, error) {
	rec := core.ProgressRecord{
		UserID:  user,
		Level:   1,
		Badges:  make(map[core.BadgeID]struct{}),
		Updated: time.Now().UTC(),
	}

	q := s.db.Rebind(`SELECT points, streak, level FROM user_progress WHERE user_id = ?`)
	err := s.db.QueryRowxContext(ctx, q, user).Scan(&rec.TotalPoints, &rec.StreakCount, &rec.Level)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return core.ProgressRecord{}, fmt.Errorf("failed to read progress: %w", err)
	}

	q = s.db.Rebind(`SELECT badge FROM user_badges WHERE user_id = ?`)
	rows, err := s.db.QueryxContext(ctx, q, user)
	if err != nil {
		return core.ProgressRecord{}, fmt.Errorf("failed to read badges: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return core.ProgressRecord{}, fmt.Errorf("failed to scan badge: %w", err)
		}
		rec.Badges[core.BadgeID(b)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return core.ProgressRecord{}, fmt.Errorf("failed to iterate badges: %w", err)
	}

	q = s.db.Rebind(`SELECT COUNT(*) FROM enrollments WHERE user_id = ?`)
	if err := s.db.QueryRowxContext(ctx, q, user).Scan(&rec.EnrolledCourses); err != nil {
		return core.ProgressRecord{}, fmt.Errorf("failed to count enrollments: %w", err)
	}
	return rec, nil
}

type enrollmentRow struct {
	Status         string       `db:"status"`
	Progress       int64        `db:"progress"`
	EnrolledAt     time.Time    `db:"enrolled_at"`
	LastAccessedAt time.Time    `db:"last_accessed_at"`
	CompletedAt    sql.NullTime `db:"completed_at"`
}

// GetEnrollment reads a single enrollment row
func (s *Store) GetEnrollment(ctx context.Context, user core.UserID, course core.CourseID) (core.Enrollment, bool, error) {
	var row enrollmentRow
	q := s.db.Rebind(`SELECT status, progress, enrolled_at, last_accessed_at, completed_at FROM enrollments WHERE user_id = ? AND course_id = ?`)
	err := s.db.QueryRowxContext(ctx, q, user, course).StructScan(&row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return core.Enrollment{}, false, nil
	case err != nil:
		return core.Enrollment{}, false, fmt.Errorf("failed to read enrollment: %w", err)
	}

	rec := core.Enrollment{
		UserID:         user,
		CourseID:       course,
		Status:         core.EnrollmentStatus(row.Status),
		Progress:       row.Progress,
		EnrolledAt:     row.EnrolledAt,
		LastAccessedAt: row.LastAccessedAt,
	}
	if row.CompletedAt.Valid {
		t := row.CompletedAt.Time
		rec.CompletedAt = &t
	}
	return rec, true, nil
}

// CreateEnrollment inserts the row, failing on a duplicate pair
func (s *Store) CreateEnrollment(ctx context.Context, e core.Enrollment) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	q := s.db.Rebind(`SELECT EXISTS(SELECT 1 FROM enrollments WHERE user_id = ? AND course_id = ?)`)
	if err := tx.QueryRowxContext(ctx, q, e.UserID, e.CourseID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check enrollment: %w", err)
	}
	if exists {
		return core.ErrAlreadyEnrolled
	}

	q = s.db.Rebind(`INSERT INTO enrollments (user_id, course_id, status, progress, enrolled_at, last_accessed_at, completed_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	var completedAt sql.NullTime
	if e.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *e.CompletedAt, Valid: true}
	}
	if _, err := tx.ExecContext(ctx, q, e.UserID, e.CourseID, string(e.Status), e.Progress, e.EnrolledAt, e.LastAccessedAt, completedAt); err != nil {
		if isUniqueViolation(err) {
			return core.ErrAlreadyEnrolled
		}
		return fmt.Errorf("failed to insert enrollment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// DeleteEnrollment removes the row, refusing completed enrollments
func (s *Store) DeleteEnrollment(ctx context.Context, user core.UserID, course core.CourseID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	q := s.db.Rebind(`SELECT status FROM enrollments WHERE user_id = ? AND course_id = ?`)
	err = tx.QueryRowxContext(ctx, q, user, course).Scan(&status)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return core.ErrNotEnrolled
	case err != nil:
		return fmt.Errorf("failed to read enrollment: %w", err)
	}
	if core.EnrollmentStatus(status) == core.StatusCompleted {
		return core.ErrCannotUnenrollCompleted
	}

	q = s.db.Rebind(`DELETE FROM enrollments WHERE user_id = ? AND course_id = ?`)
	if _, err := tx.ExecContext(ctx, q, user, course); err != nil {
		return fmt.Errorf("failed to delete enrollment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// UpdateEnrollment updates the mutable fields of an existing row
func (s *Store) UpdateEnrollment(ctx context.Context, e core.Enrollment) error {
	var completedAt sql.NullTime
	if e.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *e.CompletedAt, Valid: true}
	}
	q := s.db.Rebind(`UPDATE enrollments SET status = ?, progress = ?, last_accessed_at = ?, completed_at = ? WHERE user_id = ? AND course_id = ?`)
	res, err := s.db.ExecContext(ctx, q, string(e.Status), e.Progress, e.LastAccessedAt, completedAt, e.UserID, e.CourseID)
	if err != nil {
		return fmt.Errorf("failed to update enrollment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotEnrolled
	}
	return nil
}
