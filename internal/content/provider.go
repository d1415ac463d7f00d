package content

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quranverse-quiz-service/internal/domain"
)

// Generator produces a quiz for a request.
type Generator interface {
	GenerateQuiz(ctx context.Context, req domain.GenerateRequest) (domain.Quiz, error)
}

// DefaultDailyTopics rotate by day of month.
var DefaultDailyTopics = []string{"science", "history", "morality", "worship"}

// RandomTopics are drawn from when a request names no topic.
var RandomTopics = []string{"water", "mountains", "astronomy", "embryology"}

const (
	dailyQuestionCount  = 3
	randomQuestionCount = 5
)

// Provider adds the daily and random selections on top of a Generator.
type Provider struct {
	gen         Generator
	dailyTopics []string

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewProvider wraps gen; empty dailyTopics selects DefaultDailyTopics.
func NewProvider(gen Generator, dailyTopics []string) *Provider {
	if len(dailyTopics) == 0 {
		dailyTopics = DefaultDailyTopics
	}
	return &Provider{
		gen:         gen,
		dailyTopics: dailyTopics,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GenerateQuiz forwards to the generator. A request without a topic gets a
// random topic, and without a question count the random-quiz length.
func (p *Provider) GenerateQuiz(ctx context.Context, req domain.GenerateRequest) (domain.Quiz, error) {
	if req.Topic == "" {
		req.Topic = p.randomTopic()
		if req.QuestionCount == 0 {
			req.QuestionCount = randomQuestionCount
		}
	}
	if req.Difficulty == "" {
		req.Difficulty = domain.DifficultyMedium
	}
	quiz, err := p.gen.GenerateQuiz(ctx, req)
	if err != nil {
		return domain.Quiz{}, err
	}
	if len(quiz.Questions) == 0 {
		return domain.Quiz{}, domain.ErrEmptyQuiz
	}
	return quiz, nil
}

// DailyQuiz picks the day's topic by day of month, so every call on the same
// calendar day asks for the same quiz.
func (p *Provider) DailyQuiz(ctx context.Context, day time.Time) (domain.Quiz, error) {
	quiz, err := p.GenerateQuiz(ctx, domain.GenerateRequest{
		Topic:         DailyTopic(p.dailyTopics, day),
		Difficulty:    domain.DifficultyMedium,
		QuestionCount: dailyQuestionCount,
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.ID = domain.DailyQuizID(day)
	return quiz, nil
}

// DailyTopic returns the topic for the given day.
func DailyTopic(topics []string, day time.Time) string {
	return topics[day.Day()%len(topics)]
}

func (p *Provider) randomTopic() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return RandomTopics[p.rnd.Intn(len(RandomTopics))]
}
