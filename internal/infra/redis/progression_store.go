package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"quranverse-quiz-service/internal/domain"
)

// applyProgression updates the learner hash in one step so concurrent
// finishes of the same learner never lose points.
// Fields: HSET progression:{userID} total_points current_streak longest_streak quizzes_completed last_activity
var applyProgression = redis.NewScript(`
local key = KEYS[1]
local total = tonumber(redis.call('HGET', key, 'total_points') or '0') + tonumber(ARGV[1])
local streak = tonumber(redis.call('HGET', key, 'current_streak') or '0') + tonumber(ARGV[2])
if streak < 0 then
	streak = 0
end
local longest = tonumber(redis.call('HGET', key, 'longest_streak') or '0')
if streak > longest then
	longest = streak
end
local completed = redis.call('HINCRBY', key, 'quizzes_completed', 1)
redis.call('HSET', key,
	'total_points', total,
	'current_streak', streak,
	'longest_streak', longest,
	'last_activity', ARGV[3])
return {total, streak, longest, completed}
`)

// ProgressionStore keeps learner progression in a Redis hash per user.
type ProgressionStore struct {
	client *redis.Client
}

func NewProgressionStore(client *redis.Client) *ProgressionStore {
	return &ProgressionStore{client: client}
}

func (s *ProgressionStore) Apply(ctx context.Context, update domain.ProgressionUpdate) (domain.Progression, error) {
	values, err := applyProgression.Run(ctx, s.client, []string{s.key(update.UserID)},
		update.PointsEarned, update.StreakDelta, update.At.UTC().Format(time.RFC3339Nano),
	).Int64Slice()
	if err != nil {
		return domain.Progression{}, fmt.Errorf("apply progression: %w", err)
	}
	if len(values) != 4 {
		return domain.Progression{}, fmt.Errorf("apply progression: unexpected reply %v", values)
	}
	return domain.Progression{
		UserID:           update.UserID,
		TotalPoints:      int(values[0]),
		CurrentStreak:    int(values[1]),
		LongestStreak:    int(values[2]),
		QuizzesCompleted: int(values[3]),
		LastActivity:     update.At.UTC(),
	}, nil
}

func (s *ProgressionStore) Get(ctx context.Context, userID string) (domain.Progression, error) {
	fields, err := s.client.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return domain.Progression{}, fmt.Errorf("get progression: %w", err)
	}
	progression := domain.Progression{
		UserID:           userID,
		TotalPoints:      atoi(fields["total_points"]),
		CurrentStreak:    atoi(fields["current_streak"]),
		LongestStreak:    atoi(fields["longest_streak"]),
		QuizzesCompleted: atoi(fields["quizzes_completed"]),
	}
	if raw := fields["last_activity"]; raw != "" {
		at, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return domain.Progression{}, fmt.Errorf("parse last activity: %w", err)
		}
		progression.LastActivity = at
	}
	return progression, nil
}

func (s *ProgressionStore) key(userID string) string {
	return "progression:" + userID
}

func atoi(raw string) int {
	n, _ := strconv.Atoi(raw)
	return n
}
