/*
sweeper.go - Periodic backfill sweep

PURPOSE:
  Write triggers cover the normal path, but dependency edits made while
  the service was down (or through out-of-band tooling) leave stale
  breakdowns behind. The sweeper runs a full backfill on a configurable
  interval to pick those up.

DESIGN:
  - Background goroutine on a ticker
  - Start/Stop with a WaitGroup; Stop blocks until the loop exits
  - Each sweep is just Engine.Backfill, so sweep behavior cannot drift
    from the manual backfill endpoint

SEE ALSO:
  - engine.go: Backfill
  - cmd/server/main.go: lifecycle wiring
*/
package recalc

import (
	"context"
	"log"
	"sync"
	"time"
)

// Sweeper periodically backfills every session's cost breakdown.
type Sweeper struct {
	Engine   *Engine
	Interval time.Duration
	Enabled  bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSweeper creates a sweeper with the default hourly interval.
func NewSweeper(engine *Engine) *Sweeper {
	return &Sweeper{
		Engine:   engine,
		Interval: 1 * time.Hour,
		Enabled:  true,
		stop:     make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		log.Println("[Sweeper] Disabled, not starting")
		return
	}
	if s.ticker != nil {
		// Already running.
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	s.wg.Add(1)
	go s.run()

	log.Printf("[Sweeper] Started with interval: %v", s.Interval)
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil

	log.Println("[Sweeper] Stopped")
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if _, err := s.Engine.Backfill(ctx); err != nil {
		log.Printf("[Sweeper] Sweep failed: %v", err)
	}
}
