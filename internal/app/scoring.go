package app

import "quranverse-quiz-service/internal/domain"

// Score turns the answer set of a finished attempt into a result. The
// denominator is always the quiz length, so unanswered questions count as
// incorrect.
func Score(quiz domain.Quiz, answers []domain.Answer) domain.Result {
	correct, points := 0, 0
	for _, answer := range answers {
		if !answer.IsCorrect {
			continue
		}
		correct++
		if question, ok := quiz.Question(answer.QuestionID); ok {
			points += question.Points
		}
	}

	return domain.Result{
		QuizID:         quiz.ID,
		ScorePercent:   scorePercent(correct, len(quiz.Questions)),
		CorrectCount:   correct,
		TotalQuestions: len(quiz.Questions),
		PointsEarned:   points,
		Answers:        append([]domain.Answer{}, answers...),
	}
}

// scorePercent rounds 100*correct/total half up using integers only.
func scorePercent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*correct + total) / (2 * total)
}
