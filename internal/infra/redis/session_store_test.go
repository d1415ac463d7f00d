package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quranverse-quiz-service/internal/app"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	session, err := app.NewSession(app.SessionConfig{ID: "s1", UserID: "u1", Quiz: sampleQuiz()})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	defer session.Close()
	store.Put(session)

	if !mr.Exists("quiz:session:s1") {
		t.Fatalf("expected redis key to be set")
	}
	if got := mr.HGet("quiz:session:s1", "quiz"); got != "quiz-1" {
		t.Fatalf("expected quiz id recorded, got %q", got)
	}
	if ttl := mr.TTL("quiz:session:s1"); ttl < 300*time.Second {
		t.Fatalf("expected marker to outlive the countdown, got %v", ttl)
	}
	if got, ok := store.Get("s1"); !ok || got != session {
		t.Fatalf("expected local session returned")
	}
	live, err := store.Live(context.Background(), "s1")
	if err != nil || !live {
		t.Fatalf("expected live session, got %v %v", live, err)
	}

	store.Delete("s1")
	if mr.Exists("quiz:session:s1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("s1"); ok {
		t.Fatalf("expected local session removed")
	}
}
