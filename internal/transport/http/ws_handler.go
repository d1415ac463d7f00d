package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"quranverse-quiz-service/internal/app"
	"quranverse-quiz-service/internal/domain"
)

const defaultQuestionCount = 5

type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	QuizID        string `json:"quizId"`
	Daily         bool   `json:"daily"`
	Topic         string `json:"topic"`
	Difficulty    string `json:"difficulty"`
	QuestionCount int    `json:"questionCount"`
}

type selectPayload struct {
	QuestionID     string `json:"questionId"`
	SelectedAnswer int    `json:"selectedAnswer"`
}

type notReadyPayload struct {
	QuestionID string `json:"questionId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// attached is the session a connection is currently playing, with the
// goroutine forwarding its snapshots.
type attached struct {
	id     string
	cancel func()
	stop   chan struct{}
	done   chan struct{}
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz use cases.
// A connection plays one session at a time; leaving the socket exits it.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// The request context ends with the handler; sessions must not depend on it.
	ctx := context.WithoutCancel(r.Context())

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	push := func(typ string, payload any) {
		select {
		case send <- outboundMessage[any]{Type: typ, Payload: payload}:
		case <-writerDone:
		}
	}
	fail := func(err error) {
		push("error", errorPayload{Message: err.Error()})
	}

	var current *attached
	detach := func() {
		if current == nil {
			return
		}
		close(current.stop)
		current.cancel()
		<-current.done
		h.service.Exit(ctx, current.id)
		current = nil
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}

		if inbound.Type == "start" {
			req, err := decodeStart(inbound.Payload)
			if err != nil {
				fail(err)
				continue
			}
			detach()
			session, err := h.service.Start(ctx, userID, req)
			if err != nil {
				fail(err)
				continue
			}
			updates, cancel, err := h.service.Subscribe(ctx, session.ID())
			if err != nil {
				h.service.Exit(ctx, session.ID())
				fail(err)
				continue
			}
			current = &attached{id: session.ID(), cancel: cancel, stop: make(chan struct{}), done: make(chan struct{})}
			go forward(updates, send, current.stop, writerDone, current.done)
			continue
		}

		if current == nil {
			fail(errors.New("no active session"))
			continue
		}

		switch inbound.Type {
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				fail(errors.New("invalid select payload"))
				continue
			}
			// Ignored selections are silent; recorded ones arrive as a snapshot.
			if _, _, err := h.service.SelectAnswer(ctx, current.id, payload.QuestionID, payload.SelectedAnswer); err != nil {
				fail(err)
			}
		case "next":
			_, err := h.service.Advance(ctx, current.id)
			if errors.Is(err, domain.ErrNotReadyToAdvance) {
				snapshot, _ := h.service.Snapshot(ctx, current.id)
				push("notReady", notReadyPayload{QuestionID: snapshot.Current.ID})
				continue
			}
			if err != nil {
				fail(err)
			}
		case "back":
			if err := h.service.Back(ctx, current.id); err != nil {
				fail(err)
			}
		case "finish":
			if _, err := h.service.Finish(ctx, current.id); err != nil {
				fail(err)
			}
		case "exit":
			detach()
		default:
			fail(errors.New("unsupported message type"))
		}
	}

	detach()
	close(send)
	<-writerDone
}

// forward relays snapshots as "session" messages and reports the result once
// as "finished", whether the learner or the countdown ended the session.
func forward(updates <-chan domain.SessionSnapshot, send chan<- outboundMessage[any], stop, writerDone <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	finished := false
	emit := func(msg outboundMessage[any]) bool {
		select {
		case send <- msg:
			return true
		case <-stop:
		case <-writerDone:
		}
		return false
	}

	for {
		select {
		case snapshot, ok := <-updates:
			if !ok {
				return
			}
			if !emit(outboundMessage[any]{Type: "session", Payload: snapshot}) {
				return
			}
			if snapshot.Result != nil && !finished {
				finished = true
				if !emit(outboundMessage[any]{Type: "finished", Payload: *snapshot.Result}) {
					return
				}
			}
		case <-stop:
			return
		}
	}
}

func decodeStart(raw json.RawMessage) (domain.StartRequest, error) {
	var payload startPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return domain.StartRequest{}, errors.New("invalid start payload")
		}
	}
	difficulty, err := domain.ParseDifficulty(payload.Difficulty)
	if err != nil {
		return domain.StartRequest{}, err
	}
	if payload.QuestionCount < 0 {
		return domain.StartRequest{}, domain.ErrInvalidRequest
	}
	if payload.Topic != "" && payload.QuestionCount == 0 {
		payload.QuestionCount = defaultQuestionCount
	}
	return domain.StartRequest{
		QuizID: payload.QuizID,
		Daily:  payload.Daily,
		GenerateRequest: domain.GenerateRequest{
			Topic:         payload.Topic,
			Difficulty:    difficulty,
			QuestionCount: payload.QuestionCount,
		},
	}, nil
}
