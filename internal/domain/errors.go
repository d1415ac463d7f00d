package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a session id is unknown or already exited.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrEmptyQuiz is returned when a provider hands back a quiz without questions.
	ErrEmptyQuiz = errors.New("quiz has no questions")
	// ErrInvalidRequest indicates a bad topic, difficulty or question count.
	ErrInvalidRequest = errors.New("invalid quiz request")
	// ErrNotReadyToAdvance is returned when the current question has no answer yet.
	ErrNotReadyToAdvance = errors.New("not ready to advance")
	// ErrAtFirstQuestion is returned when going back from the first question.
	ErrAtFirstQuestion = errors.New("already at first question")
	// ErrSessionFinished is returned for navigation on a finished session.
	ErrSessionFinished = errors.New("quiz session finished")
	// ErrSessionClosed is returned for any call on a torn-down session.
	ErrSessionClosed = errors.New("quiz session closed")
)
