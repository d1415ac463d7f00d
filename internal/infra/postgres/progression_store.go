package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quranverse-quiz-service/internal/domain"
)

// ProgressionStore keeps one progression row per learner.
type ProgressionStore struct {
	pool *pgxpool.Pool
}

func NewProgressionStore(pool *pgxpool.Pool) *ProgressionStore {
	return &ProgressionStore{pool: pool}
}

// Apply is a single upsert, so concurrent finishes of one learner serialize on the row lock.
func (s *ProgressionStore) Apply(ctx context.Context, update domain.ProgressionUpdate) (domain.Progression, error) {
	progression := domain.Progression{UserID: update.UserID}
	err := s.pool.QueryRow(ctx, `
INSERT INTO progression AS p (user_id, total_points, current_streak, longest_streak, quizzes_completed, last_activity)
VALUES ($1, $2, GREATEST($3::int, 0), GREATEST($3::int, 0), 1, $4)
ON CONFLICT (user_id) DO UPDATE SET
	total_points      = p.total_points + EXCLUDED.total_points,
	current_streak    = GREATEST(p.current_streak + $3::int, 0),
	longest_streak    = GREATEST(p.longest_streak, p.current_streak + $3::int),
	quizzes_completed = p.quizzes_completed + 1,
	last_activity     = EXCLUDED.last_activity
RETURNING total_points, current_streak, longest_streak, quizzes_completed, last_activity`,
		update.UserID, update.PointsEarned, update.StreakDelta, update.At.UTC(),
	).Scan(
		&progression.TotalPoints,
		&progression.CurrentStreak,
		&progression.LongestStreak,
		&progression.QuizzesCompleted,
		&progression.LastActivity,
	)
	if err != nil {
		return domain.Progression{}, fmt.Errorf("apply progression: %w", err)
	}
	return progression, nil
}

func (s *ProgressionStore) Get(ctx context.Context, userID string) (domain.Progression, error) {
	progression := domain.Progression{UserID: userID}
	var lastActivity *time.Time
	err := s.pool.QueryRow(ctx, `
SELECT total_points, current_streak, longest_streak, quizzes_completed, last_activity
FROM progression WHERE user_id = $1`, userID,
	).Scan(
		&progression.TotalPoints,
		&progression.CurrentStreak,
		&progression.LongestStreak,
		&progression.QuizzesCompleted,
		&lastActivity,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return progression, nil
	}
	if err != nil {
		return domain.Progression{}, fmt.Errorf("get progression: %w", err)
	}
	if lastActivity != nil {
		progression.LastActivity = *lastActivity
	}
	return progression, nil
}
