package domain

import (
	"testing"
	"time"
)

func TestProgressionApply(t *testing.T) {
	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	p := Progression{UserID: "u1", TotalPoints: 95, CurrentStreak: 4, LongestStreak: 4}

	p = p.Apply(ProgressionUpdate{UserID: "u1", PointsEarned: 10, StreakDelta: 1, At: at})
	if p.TotalPoints != 105 || p.CurrentStreak != 5 || p.LongestStreak != 5 {
		t.Fatalf("unexpected progression %+v", p)
	}
	if p.QuizzesCompleted != 1 || !p.LastActivity.Equal(at) {
		t.Fatalf("expected completion bookkeeping, got %+v", p)
	}
	if p.Level() != 2 || p.PointsToNextLevel() != 95 {
		t.Fatalf("expected level 2 with 95 to go, got %d/%d", p.Level(), p.PointsToNextLevel())
	}

	p = p.Apply(ProgressionUpdate{UserID: "u1", StreakDelta: -10, At: at})
	if p.CurrentStreak != 0 || p.LongestStreak != 5 {
		t.Fatalf("expected streak floored at zero and longest kept, got %+v", p)
	}
}

func TestNextStreakMilestone(t *testing.T) {
	cases := map[int]int{0: 7, 6: 7, 7: 30, 29: 30, 99: 100, 364: 365, 365: 400, 401: 500}
	for streak, want := range cases {
		if got := NextStreakMilestone(streak); got != want {
			t.Fatalf("streak %d: expected %d, got %d", streak, want, got)
		}
	}
}

func TestParseDifficulty(t *testing.T) {
	if d, err := ParseDifficulty(" Hard "); err != nil || d != DifficultyHard {
		t.Fatalf("expected hard, got %q %v", d, err)
	}
	if d, _ := ParseDifficulty(""); d != DifficultyMedium {
		t.Fatalf("expected medium default, got %q", d)
	}
	if _, err := ParseDifficulty("expert"); err != ErrInvalidRequest {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestGenerateRequestValidate(t *testing.T) {
	if err := (GenerateRequest{Topic: "water", Difficulty: DifficultyEasy, QuestionCount: 0}).Validate(); err != ErrInvalidRequest {
		t.Fatalf("expected invalid count to fail, got %v", err)
	}
	if err := (GenerateRequest{Topic: "water", Difficulty: "weird", QuestionCount: 2}).Validate(); err != ErrInvalidRequest {
		t.Fatalf("expected invalid difficulty to fail, got %v", err)
	}
	if err := (GenerateRequest{Topic: "water", Difficulty: DifficultyEasy, QuestionCount: 2}).Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}
