package app

import (
	"context"
	"time"

	"quranverse-quiz-service/internal/domain"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis-backed, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
	// IDs lists the sessions held by this instance.
	IDs() []string
}

// QuizRepository stores quizzes so they can be replayed by id.
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
}

// ContentProvider produces quiz content.
type ContentProvider interface {
	GenerateQuiz(ctx context.Context, req domain.GenerateRequest) (domain.Quiz, error)
	// DailyQuiz must return the same quiz for every call on the same calendar day.
	DailyQuiz(ctx context.Context, day time.Time) (domain.Quiz, error)
}

// ProgressionStore persists cumulative learner stats.
type ProgressionStore interface {
	Apply(ctx context.Context, update domain.ProgressionUpdate) (domain.Progression, error)
	Get(ctx context.Context, userID string) (domain.Progression, error)
}
