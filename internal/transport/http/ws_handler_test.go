package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quranverse-quiz-service/internal/app"
	"quranverse-quiz-service/internal/content"
	"quranverse-quiz-service/internal/domain"
	"quranverse-quiz-service/internal/infra/memory"
)

func TestWebSocketQuizFlow(t *testing.T) {
	env := newTestServer(t, 0)
	conn := env.dial(t, "u1")

	send(t, conn, "start", map[string]any{"quizId": "quiz-1"})
	_, payload := readNext(conn, t, "session")
	if payload["currentIndex"].(float64) != 0 || payload["totalQuestions"].(float64) != 2 {
		t.Fatalf("unexpected initial snapshot %+v", payload)
	}

	send(t, conn, "next", nil)
	_, payload = readNext(conn, t, "notReady")
	if payload["questionId"] != "q1" {
		t.Fatalf("expected notReady for q1, got %+v", payload)
	}

	send(t, conn, "select", map[string]any{"questionId": "q1", "selectedAnswer": 2})
	_, payload = readNext(conn, t, "session")
	answers := payload["answers"].([]any)
	if len(answers) != 1 {
		t.Fatalf("expected one answer, got %+v", payload)
	}
	if _, leaked := answers[0].(map[string]any)["isCorrect"]; leaked {
		t.Fatalf("expected correctness hidden mid-quiz, got %+v", answers[0])
	}
	send(t, conn, "next", nil)
	_, payload = readNext(conn, t, "session")
	if payload["currentIndex"].(float64) != 1 {
		t.Fatalf("expected second question, got %+v", payload)
	}

	send(t, conn, "select", map[string]any{"questionId": "q2", "selectedAnswer": 1})
	readNext(conn, t, "session")
	send(t, conn, "next", nil)

	_, payload = readNext(conn, t, "session")
	if payload["state"] != string(app.StateFinished) {
		t.Fatalf("expected finished snapshot, got %+v", payload)
	}
	_, payload = readNext(conn, t, "finished")
	if payload["scorePercent"].(float64) != 50 || payload["pointsEarned"].(float64) != 10 || payload["correctCount"].(float64) != 1 {
		t.Fatalf("unexpected result %+v", payload)
	}

	env.waitProgression(t, "u1", 10)
}

func TestWebSocketCountdownFinishes(t *testing.T) {
	env := newTestServer(t, 5*time.Millisecond)
	conn := env.dial(t, "u1")

	send(t, conn, "start", map[string]any{"quizId": "quiz-short"})
	for {
		typ, payload := readNext(conn, t, "")
		if typ != "finished" {
			continue
		}
		if payload["forced"] != true || payload["scorePercent"].(float64) != 0 {
			t.Fatalf("expected forced empty result, got %+v", payload)
		}
		break
	}
	env.waitProgression(t, "u1", 0)
}

func TestWebSocketRejectsCommandsWithoutSession(t *testing.T) {
	env := newTestServer(t, 0)
	conn := env.dial(t, "u1")

	send(t, conn, "next", nil)
	_, payload := readNext(conn, t, "error")
	if payload["message"] != "no active session" {
		t.Fatalf("unexpected error %+v", payload)
	}

	send(t, conn, "start", map[string]any{"quizId": "missing"})
	_, payload = readNext(conn, t, "error")
	if payload["message"] == "" {
		t.Fatalf("expected quiz not found error")
	}

	send(t, conn, "start", map[string]any{"topic": "water", "difficulty": "expert"})
	readNext(conn, t, "error")
}

func TestWebSocketGeneratedQuiz(t *testing.T) {
	env := newTestServer(t, 0)
	conn := env.dial(t, "u1")

	send(t, conn, "start", map[string]any{"topic": "mountains", "difficulty": "easy"})
	_, payload := readNext(conn, t, "session")
	if payload["title"] != "Mountains in Islamic Perspective" || payload["difficulty"] != "easy" {
		t.Fatalf("unexpected generated session %+v", payload)
	}
	current := payload["current"].(map[string]any)
	if _, leaked := current["correctAnswer"]; leaked {
		t.Fatalf("expected answer key hidden while in progress")
	}
}

func TestWebSocketDisconnectExitsSession(t *testing.T) {
	env := newTestServer(t, 0)
	conn := env.dial(t, "u1")

	send(t, conn, "start", map[string]any{"quizId": "quiz-1"})
	readNext(conn, t, "session")
	_ = conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for env.sessions.Len() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected session removed after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketRequiresUser(t *testing.T) {
	env := newTestServer(t, 0)

	resp, err := http.Get(env.server.URL + "/ws")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestProgressionEndpoint(t *testing.T) {
	env := newTestServer(t, 0)
	env.progression.Seed(domain.Progression{UserID: "u1", TotalPoints: 250, CurrentStreak: 8, LongestStreak: 8, QuizzesCompleted: 25})

	resp, err := http.Get(env.server.URL + "/progression?userId=u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["totalPoints"].(float64) != 250 || body["level"].(float64) != 3 || body["pointsToNextLevel"].(float64) != 50 {
		t.Fatalf("unexpected progression %+v", body)
	}
	if body["nextStreakMilestone"].(float64) != 30 {
		t.Fatalf("expected next milestone 30, got %v", body["nextStreakMilestone"])
	}

	missing, err := http.Get(env.server.URL + "/progression")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without userId, got %d", missing.StatusCode)
	}
}

type testServer struct {
	server      *httptest.Server
	sessions    *memory.SessionStore
	progression *memory.ProgressionStore
	dispatcher  *app.Dispatcher
}

func newTestServer(t *testing.T, tick time.Duration) *testServer {
	t.Helper()
	sessions := memory.NewSessionStore()
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuizzes()), time.Minute)
	progression := memory.NewProgressionStore()
	dispatcher := app.NewDispatcher(progression, 16)
	service := app.NewQuizService(sessions, quizRepo, content.NewProvider(content.NewCatalogue(), nil), progression, dispatcher, app.Options{
		TickInterval: tick,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = dispatcher.Run(ctx)
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", NewWSHandler(service).ServeWS)
	mux.Handle("/progression", NewProgressionHandler(service))
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		cancel()
		<-done
	})
	return &testServer{server: server, sessions: sessions, progression: progression, dispatcher: dispatcher}
}

func (s *testServer) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	u := "ws" + s.server.URL[len("http"):] + "/ws?userId=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// waitProgression polls until the dispatcher has applied the session's update.
func (s *testServer) waitProgression(t *testing.T, userID string, points int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		progression, _ := s.progression.Get(context.Background(), userID)
		if progression.QuizzesCompleted == 1 {
			if progression.TotalPoints != points || progression.CurrentStreak != 1 {
				t.Fatalf("unexpected progression %+v", progression)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("progression for %s never applied", userID)
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

func sampleQuizzes() map[string]domain.Quiz {
	question := func(id string, correct int) domain.Question {
		return domain.Question{
			ID:            id,
			Prompt:        "Which option is right?",
			Options:       []string{"A", "B", "C", "D"},
			CorrectAnswer: correct,
			Points:        10,
		}
	}
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:         "quiz-1",
			Title:      "Water in the Quran",
			Difficulty: domain.DifficultyMedium,
			Questions:  []domain.Question{question("q1", 2), question("q2", 0)},
			Points:     20,
		},
		"quiz-short": {
			ID:         "quiz-short",
			Title:      "Quick round",
			Difficulty: domain.DifficultyEasy,
			Questions:  []domain.Question{question("q1", 0), question("q2", 0), question("q3", 0)},
			Points:     30,
			TimeLimit:  3,
		},
	}
}
