package http

import (
	"encoding/json"
	"log"
	"net/http"

	"quranverse-quiz-service/internal/app"
	"quranverse-quiz-service/internal/domain"
)

// ProgressionHandler serves a learner's progression as JSON.
type ProgressionHandler struct {
	service *app.QuizService
}

func NewProgressionHandler(service *app.QuizService) *ProgressionHandler {
	return &ProgressionHandler{service: service}
}

type progressionView struct {
	domain.Progression
	Level               int `json:"level"`
	PointsToNextLevel   int `json:"pointsToNextLevel"`
	NextStreakMilestone int `json:"nextStreakMilestone"`
}

func (h *ProgressionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	progression, err := h.service.Progression(r.Context(), userID)
	if err != nil {
		log.Printf("get progression for %s: %v", userID, err)
		http.Error(w, "progression unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(progressionView{
		Progression:         progression,
		Level:               progression.Level(),
		PointsToNextLevel:   progression.PointsToNextLevel(),
		NextStreakMilestone: domain.NextStreakMilestone(progression.CurrentStreak),
	})
}
