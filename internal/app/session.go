package app

import (
	"sync"
	"time"

	"quranverse-quiz-service/internal/domain"
)

// DefaultTimeLimit applies when neither the quiz nor the service configures one.
const DefaultTimeLimit = 300

// State is the lifecycle state of a quiz session.
type State string

const (
	StateInProgress State = "in_progress"
	StateFinished   State = "finished"
)

// ProgressionSink receives the progression update of a finished session.
// Submit must not block the caller.
type ProgressionSink interface {
	Submit(update domain.ProgressionUpdate)
}

// SessionConfig describes a new session.
type SessionConfig struct {
	ID     string
	UserID string
	Quiz   domain.Quiz
	// DefaultTimeLimit is used when the quiz does not set its own limit.
	DefaultTimeLimit int
	Progression      ProgressionSink
	Now              func() time.Time
}

// Session is one learner's attempt at a quiz. All methods serialize on the
// session mutex, so countdown ticks and learner input never interleave.
type Session struct {
	id        string
	userID    string
	quiz      domain.Quiz
	timeLimit int
	sink      ProgressionSink
	now       func() time.Time

	mu          sync.Mutex
	state       State
	current     int
	answers     []domain.Answer
	remaining   int
	result      *domain.Result
	closed      bool
	countdown   *Countdown
	subscribers map[chan domain.SessionSnapshot]struct{}
}

// NewSession builds an in-progress session positioned on the first question.
func NewSession(cfg SessionConfig) (*Session, error) {
	if len(cfg.Quiz.Questions) == 0 {
		return nil, domain.ErrEmptyQuiz
	}

	limit := cfg.Quiz.TimeLimit
	if limit <= 0 {
		limit = cfg.DefaultTimeLimit
	}
	if limit <= 0 {
		limit = DefaultTimeLimit
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Session{
		id:          cfg.ID,
		userID:      cfg.UserID,
		quiz:        cfg.Quiz,
		timeLimit:   limit,
		sink:        cfg.Progression,
		now:         now,
		state:       StateInProgress,
		remaining:   limit,
		subscribers: make(map[chan domain.SessionSnapshot]struct{}),
	}, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// UserID returns the learner the session belongs to.
func (s *Session) UserID() string { return s.userID }

// Quiz returns the quiz being attempted.
func (s *Session) Quiz() domain.Quiz { return s.quiz }

// TimeLimit returns the countdown length in seconds.
func (s *Session) TimeLimit() int { return s.timeLimit }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentIndex returns the index of the question on screen.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Remaining returns the seconds left on the countdown.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Answers returns the recorded answers in submission order.
func (s *Session) Answers() []domain.Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Answer{}, s.answers...)
}

// Result returns the final result once the session has finished.
func (s *Session) Result() (domain.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return domain.Result{}, false
	}
	return copyResult(*s.result), true
}

// SelectAnswer records the learner's choice for a question, replacing any
// earlier choice for the same question. Unknown questions, out-of-range
// options and inactive sessions are ignored and report false.
func (s *Session) SelectAnswer(questionID string, option int) (domain.Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.state != StateInProgress {
		return domain.Answer{}, false
	}
	question, ok := s.quiz.Question(questionID)
	if !ok || option < 0 || option >= len(question.Options) {
		return domain.Answer{}, false
	}

	answer := domain.Answer{
		QuestionID:     questionID,
		SelectedAnswer: option,
		IsCorrect:      option == question.CorrectAnswer,
		TimeSpent:      s.timeLimit - s.remaining,
	}

	kept := make([]domain.Answer, 0, len(s.answers)+1)
	for _, existing := range s.answers {
		if existing.QuestionID != questionID {
			kept = append(kept, existing)
		}
	}
	s.answers = append(kept, answer)

	s.broadcastLocked()
	return answer, true
}

// Advance moves to the next question, or finishes the session from the last
// one. It returns domain.ErrNotReadyToAdvance while the current question is
// unanswered.
func (s *Session) Advance() (*domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.activeLocked(); err != nil {
		return nil, err
	}
	if !s.answeredLocked(s.quiz.Questions[s.current].ID) {
		return nil, domain.ErrNotReadyToAdvance
	}
	if s.current < len(s.quiz.Questions)-1 {
		s.current++
		s.broadcastLocked()
		return nil, nil
	}
	result := s.finishLocked(false)
	return &result, nil
}

// Back moves to the previous question.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.activeLocked(); err != nil {
		return err
	}
	if s.current == 0 {
		return domain.ErrAtFirstQuestion
	}
	s.current--
	s.broadcastLocked()
	return nil
}

// Finish ends the session on the learner's request. Repeated calls return
// the first result without re-applying progression.
func (s *Session) Finish() (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.Result{}, domain.ErrSessionClosed
	}
	if s.result != nil {
		return copyResult(*s.result), nil
	}
	return s.finishLocked(false), nil
}

// Tick advances the countdown by one second. When the countdown reaches zero
// the session is finished regardless of how many questions were answered.
func (s *Session) Tick() (int, *domain.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.state != StateInProgress {
		return s.remaining, nil
	}
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining == 0 {
		result := s.finishLocked(true)
		return 0, &result
	}
	s.broadcastLocked()
	return s.remaining, nil
}

// StartCountdown begins ticking every interval until the session finishes
// or is closed.
func (s *Session) StartCountdown(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.countdown != nil || s.closed || s.state != StateInProgress {
		return
	}
	s.countdown = NewCountdown(interval, func() bool {
		_, result := s.Tick()
		return result == nil && s.active()
	})
	s.countdown.Start()
}

// Close tears the session down: the countdown is stopped and waited for,
// subscribers are released and every later call becomes a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	countdown := s.countdown
	if countdown != nil {
		countdown.Cancel()
	}
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.mu.Unlock()

	// The ticker goroutine may be waiting on the mutex; it observes closed and exits.
	if countdown != nil {
		<-countdown.Done()
	}
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel receiving a snapshot after every change.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.SessionSnapshot, func()) {
	ch := make(chan domain.SessionSnapshot, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.state == StateInProgress
}

func (s *Session) activeLocked() error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.state != StateInProgress {
		return domain.ErrSessionFinished
	}
	return nil
}

func (s *Session) answeredLocked(questionID string) bool {
	for _, answer := range s.answers {
		if answer.QuestionID == questionID {
			return true
		}
	}
	return false
}

// finishLocked is the single transition into StateFinished, which makes it
// the only place progression is submitted.
func (s *Session) finishLocked(forced bool) domain.Result {
	result := Score(s.quiz, s.answers)
	result.SessionID = s.id
	result.Forced = forced

	s.state = StateFinished
	s.result = &result
	if s.countdown != nil {
		s.countdown.Cancel()
	}

	if s.sink != nil {
		s.sink.Submit(domain.ProgressionUpdate{
			UserID:       s.userID,
			PointsEarned: result.PointsEarned,
			StreakDelta:  1,
			At:           s.now(),
		})
	}

	s.broadcastLocked()
	return copyResult(result)
}

func (s *Session) broadcastLocked() {
	snapshot := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snapshot:
		default:
			// Latest snapshot wins over a slow reader.
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

func (s *Session) snapshotLocked() domain.SessionSnapshot {
	snapshot := domain.SessionSnapshot{
		SessionID:        s.id,
		QuizID:           s.quiz.ID,
		Title:            s.quiz.Title,
		Difficulty:       s.quiz.Difficulty,
		State:            string(s.state),
		CurrentIndex:     s.current,
		TotalQuestions:   len(s.quiz.Questions),
		Current:          s.quiz.Questions[s.current].View(),
		Answers:          make([]domain.AnswerView, 0, len(s.answers)),
		RemainingSeconds: s.remaining,
		TimeLimit:        s.timeLimit,
	}
	for _, answer := range s.answers {
		snapshot.Answers = append(snapshot.Answers, answer.View())
	}
	if s.result != nil {
		result := copyResult(*s.result)
		snapshot.Result = &result
		snapshot.Review = append([]domain.Question{}, s.quiz.Questions...)
	}
	return snapshot
}

func copyResult(r domain.Result) domain.Result {
	r.Answers = append([]domain.Answer{}, r.Answers...)
	return r
}
