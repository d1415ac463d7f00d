package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"quranverse-quiz-service/internal/domain"
)

const (
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 2048
	defaultPoints    = 10
)

// ErrInvalidContent is returned when the model output cannot be turned into a quiz.
var ErrInvalidContent = errors.New("invalid generated quiz content")

// LLMConfig configures the OpenAI-compatible generator.
type LLMConfig struct {
	APIKey string
	// BaseURL points at any OpenAI-compatible endpoint (OpenRouter, a proxy).
	BaseURL   string
	Model     string
	MaxTokens int
}

// LLMGenerator asks a chat completion model for a quiz in structured JSON.
type LLMGenerator struct {
	client    *openai.Client
	model     string
	maxTokens int
	clock     func() time.Time
}

// NewLLMGenerator creates a generator; an API key is required.
func NewLLMGenerator(cfg LLMConfig) (*LLMGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm api key is required")
	}
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &LLMGenerator{
		client:    openai.NewClientWithConfig(config),
		model:     model,
		maxTokens: maxTokens,
		clock:     time.Now,
	}, nil
}

const systemPrompt = `You write educational quizzes that connect scientific topics to Quranic teachings and Islamic scholarship.
Every question has exactly four options and one correct answer.
Each explanation cites the relevant verse. Include the Arabic text, an English translation and the surah:ayah reference whenever a verse applies; otherwise leave the verse fields empty.
Keep questions accurate, respectful and suitable for learners.`

type quizOutput struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Questions   []questionOutput `json:"questions"`
}

type questionOutput struct {
	Question      string      `json:"question"`
	Options       []string    `json:"options"`
	CorrectAnswer int         `json:"correct_answer"`
	Explanation   string      `json:"explanation"`
	Verse         verseOutput `json:"verse"`
	Points        int         `json:"points"`
}

type verseOutput struct {
	Arabic      string `json:"arabic"`
	Translation string `json:"translation"`
	Reference   string `json:"reference"`
}

// GenerateQuiz returns up to req.QuestionCount questions. The whole quiz is
// rejected when any question is malformed.
func (g *LLMGenerator) GenerateQuiz(ctx context.Context, req domain.GenerateRequest) (domain.Quiz, error) {
	if err := req.Validate(); err != nil {
		return domain.Quiz{}, err
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(req)},
		},
		MaxCompletionTokens: g.maxTokens,
		Temperature:         0.7,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "quran-quiz",
				Schema: quizSchema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("llm completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Quiz{}, fmt.Errorf("%w: no choices in response", ErrInvalidContent)
	}
	if resp.Choices[0].FinishReason == openai.FinishReasonLength {
		return domain.Quiz{}, fmt.Errorf("%w: response truncated", ErrInvalidContent)
	}

	var out quizOutput
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &out); err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	return g.buildQuiz(req, out)
}

func (g *LLMGenerator) buildQuiz(req domain.GenerateRequest, out quizOutput) (domain.Quiz, error) {
	if len(out.Questions) == 0 {
		return domain.Quiz{}, domain.ErrEmptyQuiz
	}
	if len(out.Questions) > req.QuestionCount {
		out.Questions = out.Questions[:req.QuestionCount]
	}

	questions := make([]domain.Question, 0, len(out.Questions))
	for i, q := range out.Questions {
		if strings.TrimSpace(q.Question) == "" || len(q.Options) < 2 {
			return domain.Quiz{}, fmt.Errorf("%w: question %d is incomplete", ErrInvalidContent, i+1)
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return domain.Quiz{}, fmt.Errorf("%w: question %d answer %d out of range", ErrInvalidContent, i+1, q.CorrectAnswer)
		}
		points := q.Points
		if points <= 0 {
			points = defaultPoints
		}
		question := domain.Question{
			ID:            strconv.Itoa(i + 1),
			Prompt:        q.Question,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
			Points:        points,
		}
		if q.Verse.Reference != "" || q.Verse.Arabic != "" {
			question.Verse = &domain.Verse{
				Arabic:      q.Verse.Arabic,
				Translation: q.Verse.Translation,
				Reference:   q.Verse.Reference,
			}
		}
		questions = append(questions, question)
	}

	title := out.Title
	if title == "" {
		title = req.Topic + " in the Quran"
	}
	return domain.Quiz{
		ID:          uuid.NewString(),
		Title:       title,
		Description: out.Description,
		Topic:       req.Topic,
		Category:    out.Category,
		Difficulty:  req.Difficulty,
		Questions:   questions,
		Points:      totalPoints(questions),
		CreatedAt:   g.clock(),
	}, nil
}

func userPrompt(req domain.GenerateRequest) string {
	return fmt.Sprintf(`Create a quiz about %q from an Islamic/Quranic perspective with %d questions.
Difficulty: %s.
For each question give four options, the index (0-3) of the correct option, a brief explanation citing the relevant verse, and %d points.`,
		req.Topic, req.QuestionCount, req.Difficulty, defaultPoints)
}

var quizSchema = mustMarshal(map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []string{"title", "description", "category", "questions"},
	"properties": map[string]any{
		"title":       map[string]any{"type": "string"},
		"description": map[string]any{"type": "string"},
		"category":    map[string]any{"type": "string"},
		"questions": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"question", "options", "correct_answer", "explanation", "verse", "points"},
				"properties": map[string]any{
					"question":       map[string]any{"type": "string"},
					"options":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"correct_answer": map[string]any{"type": "integer"},
					"explanation":    map[string]any{"type": "string"},
					"points":         map[string]any{"type": "integer"},
					"verse": map[string]any{
						"type":                 "object",
						"additionalProperties": false,
						"required":             []string{"arabic", "translation", "reference"},
						"properties": map[string]any{
							"arabic":      map[string]any{"type": "string"},
							"translation": map[string]any{"type": "string"},
							"reference":   map[string]any{"type": "string"},
						},
					},
				},
			},
		},
	},
})

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
