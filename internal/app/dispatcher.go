package app

import (
	"context"
	"log"
	"sync"
	"time"

	"quranverse-quiz-service/internal/domain"
)

const applyTimeout = 5 * time.Second

// Dispatcher hands progression updates from finished sessions to a
// ProgressionStore without blocking the session that produced them.
type Dispatcher struct {
	store ProgressionStore
	queue chan domain.ProgressionUpdate

	// mu orders Submit against drain: once closed is set nothing enters the
	// queue or the overflow group.
	mu     sync.Mutex
	closed bool
	// overflow tracks updates applied outside the worker when the queue is full.
	overflow sync.WaitGroup
}

// NewDispatcher creates a dispatcher with the given queue size.
func NewDispatcher(store ProgressionStore, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 64
	}
	return &Dispatcher{
		store: store,
		queue: make(chan domain.ProgressionUpdate, buffer),
	}
}

// Submit enqueues an update. While Run is active it never blocks: when the
// queue is full the update is applied on its own goroutine. Once Run has
// drained, updates are applied inline.
func (d *Dispatcher) Submit(update domain.ProgressionUpdate) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		log.Printf("progression dispatcher stopped, applying update for %s inline", update.UserID)
		d.apply(context.Background(), update)
		return
	}
	defer d.mu.Unlock()

	select {
	case d.queue <- update:
	default:
		log.Printf("progression queue full, applying update for %s out of band", update.UserID)
		d.overflow.Add(1)
		go func() {
			defer d.overflow.Done()
			d.apply(context.Background(), update)
		}()
	}
}

// Run applies queued updates until ctx is canceled, then drains what is left.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case update := <-d.queue:
			d.apply(ctx, update)
		case <-ctx.Done():
			d.drain()
			return nil
		}
	}
}

func (d *Dispatcher) drain() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	for {
		select {
		case update := <-d.queue:
			d.apply(context.Background(), update)
		default:
			d.overflow.Wait()
			return
		}
	}
}

// apply logs failures only: the score shown to the learner stands regardless.
// Updates dequeued during shutdown still get their full timeout.
func (d *Dispatcher) apply(ctx context.Context, update domain.ProgressionUpdate) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), applyTimeout)
	defer cancel()

	progression, err := d.store.Apply(ctx, update)
	if err != nil {
		log.Printf("apply progression for %s (+%d points): %v", update.UserID, update.PointsEarned, err)
		return
	}
	log.Printf("progression for %s: %d points, streak %d", progression.UserID, progression.TotalPoints, progression.CurrentStreak)
}
