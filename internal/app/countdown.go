package app

import (
	"sync"
	"time"
)

// Countdown drives a session's one-second tick from a single goroutine.
// tick reports whether the countdown should keep running.
type Countdown struct {
	interval time.Duration
	tick     func() bool

	startOnce  sync.Once
	cancelOnce sync.Once
	stop       chan struct{}
	done       chan struct{}
}

// NewCountdown builds a stopped countdown.
func NewCountdown(interval time.Duration, tick func() bool) *Countdown {
	return &Countdown{
		interval: interval,
		tick:     tick,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the ticker goroutine; later calls are no-ops.
func (c *Countdown) Start() {
	c.startOnce.Do(func() {
		go c.run()
	})
}

// Cancel stops ticking. It never blocks, so it is safe to call from inside tick.
func (c *Countdown) Cancel() {
	c.cancelOnce.Do(func() {
		close(c.stop)
	})
	// A countdown that never started has no goroutine to close done.
	c.startOnce.Do(func() {
		close(c.done)
	})
}

// Done is closed once the ticker goroutine has exited.
func (c *Countdown) Done() <-chan struct{} {
	return c.done
}

func (c *Countdown) run() {
	defer close(c.done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			// Cancel may race with a pending tick; cancellation wins.
			select {
			case <-c.stop:
				return
			default:
			}
			if !c.tick() {
				return
			}
		}
	}
}
