package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"quranverse-quiz-service/internal/domain"
)

// Options tunes session behaviour.
type Options struct {
	// DefaultTimeLimit in seconds, for quizzes without their own limit.
	DefaultTimeLimit int
	// TickInterval is the countdown period; zero disables the automatic countdown.
	// Servers always set it, see cli.tickInterval.
	TickInterval time.Duration
	Clock        func() time.Time
}

// QuizService contains the quiz session use cases.
type QuizService struct {
	sessions    SessionRepository
	quizzes     QuizRepository
	content     ContentProvider
	progression ProgressionStore
	sink        ProgressionSink
	opts        Options
}

func NewQuizService(store SessionRepository, quizzes QuizRepository, content ContentProvider, progression ProgressionStore, sink ProgressionSink, opts Options) *QuizService {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &QuizService{
		sessions:    store,
		quizzes:     quizzes,
		content:     content,
		progression: progression,
		sink:        sink,
		opts:        opts,
	}
}

// Start resolves the requested quiz and opens a session on it. Nothing is
// registered when the quiz cannot be produced.
func (s *QuizService) Start(ctx context.Context, userID string, req domain.StartRequest) (*Session, error) {
	quiz, err := s.resolveQuiz(ctx, req)
	if err != nil {
		return nil, err
	}

	session, err := NewSession(SessionConfig{
		ID:               uuid.NewString(),
		UserID:           userID,
		Quiz:             quiz,
		DefaultTimeLimit: s.opts.DefaultTimeLimit,
		Progression:      s.sink,
		Now:              s.opts.Clock,
	})
	if err != nil {
		return nil, err
	}

	s.sessions.Put(session)
	if s.opts.TickInterval > 0 {
		session.StartCountdown(s.opts.TickInterval)
	}
	log.Printf("session %s started: user=%s quiz=%s questions=%d limit=%ds",
		session.ID(), userID, quiz.ID, len(quiz.Questions), session.TimeLimit())
	return session, nil
}

func (s *QuizService) resolveQuiz(ctx context.Context, req domain.StartRequest) (domain.Quiz, error) {
	switch {
	case req.QuizID != "":
		return s.quizzes.GetQuiz(ctx, req.QuizID)
	case req.Daily:
		return s.dailyQuiz(ctx)
	}

	quiz, err := s.content.GenerateQuiz(ctx, req.GenerateRequest)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("generate quiz on %q: %w", req.Topic, err)
	}
	s.remember(ctx, quiz)
	return quiz, nil
}

// dailyQuiz generates the quiz of the day once and replays it afterwards.
func (s *QuizService) dailyQuiz(ctx context.Context) (domain.Quiz, error) {
	day := s.opts.Clock()
	id := domain.DailyQuizID(day)

	quiz, err := s.quizzes.GetQuiz(ctx, id)
	if err == nil {
		return quiz, nil
	}
	if !errors.Is(err, domain.ErrQuizNotFound) {
		return domain.Quiz{}, err
	}

	quiz, err = s.content.DailyQuiz(ctx, day)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("daily quiz: %w", err)
	}
	quiz.ID = id
	s.remember(ctx, quiz)
	return quiz, nil
}

// remember stores a generated quiz for replay; a failure only costs replay.
func (s *QuizService) remember(ctx context.Context, quiz domain.Quiz) {
	if err := s.quizzes.SaveQuiz(ctx, quiz); err != nil {
		log.Printf("save quiz %s: %v", quiz.ID, err)
	}
}

// SelectAnswer records an answer in the given session. ok is false when the
// selection was ignored. Correctness stays hidden until the result.
func (s *QuizService) SelectAnswer(_ context.Context, sessionID, questionID string, option int) (domain.AnswerView, bool, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.AnswerView{}, false, err
	}
	answer, ok := session.SelectAnswer(questionID, option)
	return answer.View(), ok, nil
}

// Advance moves the session forward, returning the result when it finished.
func (s *QuizService) Advance(_ context.Context, sessionID string) (*domain.Result, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return session.Advance()
}

// Back moves the session to the previous question.
func (s *QuizService) Back(_ context.Context, sessionID string) error {
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}
	return session.Back()
}

// Finish ends the session early.
func (s *QuizService) Finish(_ context.Context, sessionID string) (domain.Result, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.Result{}, err
	}
	return session.Finish()
}

// Snapshot returns the current view of a session.
func (s *QuizService) Snapshot(_ context.Context, sessionID string) (domain.SessionSnapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	return session.Snapshot(), nil
}

// Subscribe returns a channel that receives snapshots of a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan domain.SessionSnapshot, func(), error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Exit discards a session; an unfinished attempt is dropped without scoring.
func (s *QuizService) Exit(_ context.Context, sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Delete(sessionID)
	log.Printf("session %s closed", sessionID)
}

// Shutdown exits every live session so none can finish after the progression
// dispatcher stops. Unfinished attempts are dropped as with Exit.
func (s *QuizService) Shutdown(ctx context.Context) {
	ids := s.sessions.IDs()
	for _, id := range ids {
		s.Exit(ctx, id)
	}
	if len(ids) > 0 {
		log.Printf("closed %d live sessions", len(ids))
	}
}

// Progression returns the learner's cumulative stats.
func (s *QuizService) Progression(ctx context.Context, userID string) (domain.Progression, error) {
	return s.progression.Get(ctx, userID)
}

func (s *QuizService) session(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}
