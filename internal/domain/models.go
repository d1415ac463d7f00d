package domain

import (
	"strings"
	"time"
)

// Difficulty is the tier a quiz is generated for.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty normalizes user input; empty input means medium.
func ParseDifficulty(raw string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(raw))); d {
	case "":
		return DifficultyMedium, nil
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	}
	return "", ErrInvalidRequest
}

// Verse is a cited Quranic reference attached to a question.
type Verse struct {
	Arabic      string `json:"arabic"`
	Translation string `json:"translation"`
	Reference   string `json:"reference"`
}

// Question models a multiple choice question; CorrectAnswer indexes Options.
type Question struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Points        int      `json:"points"`
	Explanation   string   `json:"explanation,omitempty"`
	Verse         *Verse   `json:"verse,omitempty"`
}

// Quiz is an ordered set of questions on a topic. It is treated as immutable
// once handed to a session.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Topic       string     `json:"topic,omitempty"`
	Category    string     `json:"category,omitempty"`
	Difficulty  Difficulty `json:"difficulty"`
	Questions   []Question `json:"questions"`
	Points      int        `json:"points"`
	TimeLimit   int        `json:"timeLimit,omitempty"` // seconds, 0 means unset
	CreatedAt   time.Time  `json:"createdAt"`
}

// Question returns the question with the given id.
func (q Quiz) Question(id string) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// Answer is a learner's response to one question.
type Answer struct {
	QuestionID     string `json:"questionId"`
	SelectedAnswer int    `json:"selectedAnswer"`
	IsCorrect      bool   `json:"isCorrect"`
	TimeSpent      int    `json:"timeSpent"` // seconds elapsed when answered
}

// AnswerView is an answer as shown while the quiz is still running, without
// its correctness.
type AnswerView struct {
	QuestionID     string `json:"questionId"`
	SelectedAnswer int    `json:"selectedAnswer"`
	TimeSpent      int    `json:"timeSpent"`
}

// View drops the correctness flag.
func (a Answer) View() AnswerView {
	return AnswerView{QuestionID: a.QuestionID, SelectedAnswer: a.SelectedAnswer, TimeSpent: a.TimeSpent}
}

// Result is reported once a session finishes.
type Result struct {
	QuizID         string   `json:"quizId"`
	SessionID      string   `json:"sessionId,omitempty"`
	ScorePercent   int      `json:"scorePercent"`
	CorrectCount   int      `json:"correctCount"`
	TotalQuestions int      `json:"totalQuestions"`
	PointsEarned   int      `json:"pointsEarned"`
	Answers        []Answer `json:"answers"`
	Forced         bool     `json:"forced"` // finished by the countdown
}

// SessionSnapshot is a read-only view of a quiz session.
type SessionSnapshot struct {
	SessionID        string       `json:"sessionId"`
	QuizID           string       `json:"quizId"`
	Title            string       `json:"title"`
	Difficulty       Difficulty   `json:"difficulty"`
	State            string       `json:"state"`
	CurrentIndex     int          `json:"currentIndex"`
	TotalQuestions   int          `json:"totalQuestions"`
	Current          QuestionView `json:"current"`
	Answers          []AnswerView `json:"answers"`
	RemainingSeconds int          `json:"remainingSeconds"`
	TimeLimit        int          `json:"timeLimit"`
	Result           *Result      `json:"result,omitempty"`
	// Review carries the full questions, answer key included, once finished.
	Review []Question `json:"review,omitempty"`
}

// GenerateRequest asks a content provider for a fresh quiz.
type GenerateRequest struct {
	Topic         string
	Difficulty    Difficulty
	QuestionCount int
}

// Validate checks the request bounds shared by every provider.
func (r GenerateRequest) Validate() error {
	if r.QuestionCount <= 0 {
		return ErrInvalidRequest
	}
	switch r.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return nil
	}
	return ErrInvalidRequest
}

// StartRequest selects the quiz a new session runs. QuizID replays a stored
// quiz, Daily picks the quiz of the day, otherwise a quiz is generated.
type StartRequest struct {
	QuizID string
	Daily  bool
	GenerateRequest
}

// ProgressionUpdate is emitted exactly once per finished session.
type ProgressionUpdate struct {
	UserID       string
	PointsEarned int
	StreakDelta  int
	At           time.Time
}

// Progression holds cumulative learner stats.
type Progression struct {
	UserID           string    `json:"userId"`
	TotalPoints      int       `json:"totalPoints"`
	CurrentStreak    int       `json:"currentStreak"`
	LongestStreak    int       `json:"longestStreak"`
	QuizzesCompleted int       `json:"quizzesCompleted"`
	LastActivity     time.Time `json:"lastActivity"`
}

// PointsPerLevel is the XP needed to move up one level.
const PointsPerLevel = 100

// Level derives the learner level from total points, starting at 1.
func (p Progression) Level() int {
	return p.TotalPoints/PointsPerLevel + 1
}

// PointsToNextLevel returns the XP remaining until the next level.
func (p Progression) PointsToNextLevel() int {
	return PointsPerLevel - p.TotalPoints%PointsPerLevel
}

// Apply folds an update into the snapshot. Stores that cannot run this in
// process implement the same arithmetic natively.
func (p Progression) Apply(u ProgressionUpdate) Progression {
	p.UserID = u.UserID
	p.TotalPoints += u.PointsEarned
	p.CurrentStreak += u.StreakDelta
	if p.CurrentStreak < 0 {
		p.CurrentStreak = 0
	}
	if p.CurrentStreak > p.LongestStreak {
		p.LongestStreak = p.CurrentStreak
	}
	p.QuizzesCompleted++
	p.LastActivity = u.At
	return p
}

// NextStreakMilestone returns the next streak length worth celebrating.
func NextStreakMilestone(streak int) int {
	for _, m := range []int{7, 30, 100, 365} {
		if streak < m {
			return m
		}
	}
	// Beyond a year, every hundred days.
	return (streak/100 + 1) * 100
}

// QuestionView is a question as shown to a learner mid-quiz, without the answer key.
type QuestionView struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Points  int      `json:"points"`
	Verse   *Verse   `json:"verse,omitempty"`
}

// View strips the answer key and explanation.
func (q Question) View() QuestionView {
	return QuestionView{
		ID:      q.ID,
		Prompt:  q.Prompt,
		Options: append([]string(nil), q.Options...),
		Points:  q.Points,
		Verse:   q.Verse,
	}
}

// DailyQuizID names the quiz of the given calendar day.
func DailyQuizID(day time.Time) string {
	return "daily-" + day.Format("2006-01-02")
}
