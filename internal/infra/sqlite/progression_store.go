package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"

	"quranverse-quiz-service/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS progression (
	user_id           TEXT PRIMARY KEY,
	total_points      INTEGER NOT NULL DEFAULT 0,
	current_streak    INTEGER NOT NULL DEFAULT 0,
	longest_streak    INTEGER NOT NULL DEFAULT 0,
	quizzes_completed INTEGER NOT NULL DEFAULT 0,
	last_activity     TEXT NOT NULL DEFAULT ''
)`

// ProgressionStore keeps learner progression in an embedded SQLite file, for
// single-node deployments without Postgres.
type ProgressionStore struct {
	db *sql.DB
}

// Open connects to the database at dsn and creates the schema.
func Open(dsn string) (*ProgressionStore, error) {
	if dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: SQLite serializes writers anyway and :memory: is per connection.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &ProgressionStore{db: db}, nil
}

// Close closes the database connection.
func (s *ProgressionStore) Close() error {
	return s.db.Close()
}

func (s *ProgressionStore) Apply(ctx context.Context, update domain.ProgressionUpdate) (domain.Progression, error) {
	progression := domain.Progression{UserID: update.UserID}
	var lastActivity string
	err := s.db.QueryRowContext(ctx, `
INSERT INTO progression (user_id, total_points, current_streak, longest_streak, quizzes_completed, last_activity)
VALUES (?1, ?2, MAX(?3, 0), MAX(?3, 0), 1, ?4)
ON CONFLICT (user_id) DO UPDATE SET
	total_points      = total_points + excluded.total_points,
	current_streak    = MAX(current_streak + ?3, 0),
	longest_streak    = MAX(longest_streak, current_streak + ?3),
	quizzes_completed = quizzes_completed + 1,
	last_activity     = excluded.last_activity
RETURNING total_points, current_streak, longest_streak, quizzes_completed, last_activity`,
		update.UserID, update.PointsEarned, update.StreakDelta, formatTime(update.At),
	).Scan(
		&progression.TotalPoints,
		&progression.CurrentStreak,
		&progression.LongestStreak,
		&progression.QuizzesCompleted,
		&lastActivity,
	)
	if err != nil {
		return domain.Progression{}, fmt.Errorf("apply progression: %w", err)
	}
	progression.LastActivity, err = parseTime(lastActivity)
	if err != nil {
		return domain.Progression{}, err
	}
	return progression, nil
}

func (s *ProgressionStore) Get(ctx context.Context, userID string) (domain.Progression, error) {
	progression := domain.Progression{UserID: userID}
	var lastActivity string
	err := s.db.QueryRowContext(ctx, `
SELECT total_points, current_streak, longest_streak, quizzes_completed, last_activity
FROM progression WHERE user_id = ?`, userID,
	).Scan(
		&progression.TotalPoints,
		&progression.CurrentStreak,
		&progression.LongestStreak,
		&progression.QuizzesCompleted,
		&lastActivity,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return progression, nil
	}
	if err != nil {
		return domain.Progression{}, fmt.Errorf("get progression: %w", err)
	}
	progression.LastActivity, err = parseTime(lastActivity)
	if err != nil {
		return domain.Progression{}, err
	}
	return progression, nil
}

// applyPragmas configures SQLite for a single writer process.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last activity: %w", err)
	}
	return t, nil
}
