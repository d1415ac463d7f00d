package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quranverse-quiz-service/internal/app"
	"quranverse-quiz-service/internal/domain"
	"quranverse-quiz-service/internal/infra/memory"
)

func TestDispatcherAppliesUpdates(t *testing.T) {
	store := memory.NewProgressionStore()
	dispatcher := app.NewDispatcher(store, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- dispatcher.Run(ctx) }()

	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	dispatcher.Submit(domain.ProgressionUpdate{UserID: "u1", PointsEarned: 20, StreakDelta: 1, At: at})
	dispatcher.Submit(domain.ProgressionUpdate{UserID: "u1", PointsEarned: 10, StreakDelta: 1, At: at})

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}

	progression, _ := store.Get(context.Background(), "u1")
	if progression.TotalPoints != 30 || progression.CurrentStreak != 2 || progression.QuizzesCompleted != 2 {
		t.Fatalf("expected both updates applied, got %+v", progression)
	}
}

func TestDispatcherSubmitNeverBlocks(t *testing.T) {
	store := memory.NewProgressionStore()
	dispatcher := app.NewDispatcher(store, 1)

	// Nothing drains the queue yet; extra updates go out of band.
	for i := 0; i < 5; i++ {
		dispatcher.Submit(domain.ProgressionUpdate{UserID: "u1", PointsEarned: 10, StreakDelta: 1})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = dispatcher.Run(ctx)

	progression, _ := store.Get(context.Background(), "u1")
	if progression.TotalPoints != 50 || progression.QuizzesCompleted != 5 {
		t.Fatalf("expected every update applied, got %+v", progression)
	}
}

func TestDispatcherSurvivesStoreFailure(t *testing.T) {
	store := &failingStore{}
	dispatcher := app.NewDispatcher(store, 2)
	dispatcher.Submit(domain.ProgressionUpdate{UserID: "u1", PointsEarned: 10, StreakDelta: 1})
	dispatcher.Submit(domain.ProgressionUpdate{UserID: "u2", PointsEarned: 10, StreakDelta: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := dispatcher.Run(ctx); err != nil {
		t.Fatalf("expected store failures to be swallowed, got %v", err)
	}
	if store.calls() != 2 {
		t.Fatalf("expected 2 attempts, got %d", store.calls())
	}
}

func TestDispatcherAppliesUpdatesSubmittedAfterDrain(t *testing.T) {
	store := memory.NewProgressionStore()
	dispatcher := app.NewDispatcher(store, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- dispatcher.Run(ctx) }()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}

	// Nothing reads the queue any more; the update must still land.
	dispatcher.Submit(domain.ProgressionUpdate{UserID: "u1", PointsEarned: 10, StreakDelta: 1})

	progression, _ := store.Get(context.Background(), "u1")
	if progression.TotalPoints != 10 || progression.QuizzesCompleted != 1 {
		t.Fatalf("expected late update applied, got %+v", progression)
	}
}

func TestDispatcherConcurrentSubmitDuringDrain(t *testing.T) {
	store := memory.NewProgressionStore()
	dispatcher := app.NewDispatcher(store, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- dispatcher.Run(ctx) }()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dispatcher.Submit(domain.ProgressionUpdate{UserID: "u1", PointsEarned: 1, StreakDelta: 1})
		}()
	}
	cancel()
	wg.Wait()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}

	progression, _ := store.Get(context.Background(), "u1")
	if progression.TotalPoints != 20 || progression.QuizzesCompleted != 20 {
		t.Fatalf("expected all 20 updates applied, got %+v", progression)
	}
}

type failingStore struct {
	mu sync.Mutex
	n  int
}

func (s *failingStore) Apply(context.Context, domain.ProgressionUpdate) (domain.Progression, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return domain.Progression{}, errors.New("store unavailable")
}

func (s *failingStore) Get(context.Context, string) (domain.Progression, error) {
	return domain.Progression{}, nil
}

func (s *failingStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}
