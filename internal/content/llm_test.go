package content

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"quranverse-quiz-service/internal/domain"
)

func newTestGenerator(t *testing.T, handler http.HandlerFunc) *LLMGenerator {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := openai.DefaultConfig("test-key")
	config.BaseURL = server.URL + "/v1"
	return &LLMGenerator{
		client:    openai.NewClientWithConfig(config),
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
		clock:     func() time.Time { return time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC) },
	}
}

func completion(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1234567890,
			"model":   defaultModel,
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 120, "total_tokens": 160},
		})
	}
}

const generatedQuiz = `{
  "title": "Astronomy and the Quran",
  "description": "The heavens as signs",
  "category": "Science & Quran",
  "questions": [
    {
      "question": "What does the Quran say about the expansion of the heaven?",
      "options": ["It is fixed", "It is expanding", "It is shrinking", "It is flat"],
      "correct_answer": 1,
      "explanation": "Surah Adh-Dhariyat 51:47 speaks of the heaven being expanded.",
      "verse": {"arabic": "وَالسَّمَاءَ بَنَيْنَاهَا بِأَيْدٍ وَإِنَّا لَمُوسِعُونَ", "translation": "And the heaven We constructed with strength, and indeed, We are its expander", "reference": "Adh-Dhariyat 51:47"},
      "points": 0
    },
    {
      "question": "What are the sun and moon said to follow?",
      "options": ["Random paths", "Calculated courses"],
      "correct_answer": 1,
      "explanation": "Surah Ar-Rahman 55:5.",
      "verse": {"arabic": "", "translation": "", "reference": ""},
      "points": 20
    },
    {
      "question": "Extra question",
      "options": ["a", "b"],
      "correct_answer": 0,
      "explanation": "",
      "verse": {"arabic": "", "translation": "", "reference": ""},
      "points": 10
    }
  ]
}`

func TestLLMGeneratorBuildsQuiz(t *testing.T) {
	var captured map[string]any
	handler := func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		completion(generatedQuiz)(w, r)
	}
	gen := newTestGenerator(t, handler)

	quiz, err := gen.GenerateQuiz(context.Background(), domain.GenerateRequest{
		Topic:         "astronomy",
		Difficulty:    domain.DifficultyHard,
		QuestionCount: 2,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(quiz.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(quiz.Questions))
	}
	first := quiz.Questions[0]
	if first.ID != "1" || first.CorrectAnswer != 1 || first.Points != 10 {
		t.Fatalf("unexpected first question %+v", first)
	}
	if first.Verse == nil || first.Verse.Reference != "Adh-Dhariyat 51:47" {
		t.Fatalf("expected cited verse, got %+v", first.Verse)
	}
	if quiz.Questions[1].Verse != nil {
		t.Fatalf("expected empty verse dropped, got %+v", quiz.Questions[1].Verse)
	}
	if quiz.Points != 30 || quiz.Difficulty != domain.DifficultyHard || quiz.Title != "Astronomy and the Quran" {
		t.Fatalf("unexpected quiz metadata %+v", quiz)
	}
	format, _ := captured["response_format"].(map[string]any)
	if format["type"] != string(openai.ChatCompletionResponseFormatTypeJSONSchema) {
		t.Fatalf("expected json schema response format, got %v", captured["response_format"])
	}
}

func TestLLMGeneratorRejectsOutOfRangeAnswer(t *testing.T) {
	content := `{"title":"t","description":"","category":"","questions":[{"question":"q","options":["a","b"],"correct_answer":4,"explanation":"","verse":{"arabic":"","translation":"","reference":""},"points":10}]}`
	gen := newTestGenerator(t, completion(content))

	_, err := gen.GenerateQuiz(context.Background(), domain.GenerateRequest{Topic: "water", Difficulty: domain.DifficultyEasy, QuestionCount: 1})
	if !errors.Is(err, ErrInvalidContent) {
		t.Fatalf("expected invalid content, got %v", err)
	}
}

func TestLLMGeneratorRejectsMalformedJSON(t *testing.T) {
	gen := newTestGenerator(t, completion(`not json`))

	_, err := gen.GenerateQuiz(context.Background(), domain.GenerateRequest{Topic: "water", Difficulty: domain.DifficultyEasy, QuestionCount: 1})
	if !errors.Is(err, ErrInvalidContent) {
		t.Fatalf("expected invalid content, got %v", err)
	}
}

func TestLLMGeneratorSurfacesProviderFailure(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "overloaded", "type": "server_error"},
		})
	}
	gen := newTestGenerator(t, handler)

	_, err := gen.GenerateQuiz(context.Background(), domain.GenerateRequest{Topic: "water", Difficulty: domain.DifficultyEasy, QuestionCount: 1})
	if err == nil {
		t.Fatalf("expected provider failure")
	}
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) || apiErr.HTTPStatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected wrapped api error, got %v", err)
	}
}

func TestNewLLMGeneratorRequiresKey(t *testing.T) {
	if _, err := NewLLMGenerator(LLMConfig{}); err == nil {
		t.Fatalf("expected missing key error")
	}
}
