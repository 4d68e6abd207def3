package services

import (
	"context"
	"sync"
	"time"

	"scambait-lab/internal/domain/models"
	"scambait-lab/pkg/logger"
)

// SessionFinalizer handles sessions removed by the sweeper so their
// intelligence still gets reported
type SessionFinalizer interface {
	FinalizeExpired(ctx context.Context, session models.Session)
}

// Sweeper periodically purges idle sessions from memory
type Sweeper struct {
	memory    *Memory
	finalizer SessionFinalizer
	ttl       time.Duration
	interval  time.Duration
	logger    *logger.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewSweeper creates a new idle session sweeper
func NewSweeper(memory *Memory, finalizer SessionFinalizer, ttl, interval time.Duration, log *logger.Logger) *Sweeper {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{
		memory:    memory,
		finalizer: finalizer,
		ttl:       ttl,
		interval:  interval,
		logger:    log.WithComponent("sweeper"),
		stopCh:    make(chan struct{}),
	}
}

// Start runs the sweep loop until the context is cancelled or Stop is called
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info().
		Dur("ttl", s.ttl).
		Dur("interval", s.interval).
		Msg("sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Stop stops the sweep loop
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
	s.logger.Info().Msg("sweeper stopped")
}

// Sweep purges idle sessions once and finalizes whatever was removed
func (s *Sweeper) Sweep(ctx context.Context) int {
	purged := s.memory.PurgeIdle(s.ttl)
	if s.finalizer != nil {
		for _, sess := range purged {
			s.finalizer.FinalizeExpired(ctx, sess)
		}
	}
	return len(purged)
}
