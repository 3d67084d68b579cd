package service

import (
	"context"
	"time"

	apprepository "github.com/linkmint/linkmint/internal/app/repository"
	"go.uber.org/zap"
)

const defaultSweepInterval = 10 * time.Minute

// ExpirySweeper periodically deletes links whose TTL has passed. Reaping is
// best effort and purely a hygiene job: resolution checks expires_at itself
// and never depends on rows being gone.
type ExpirySweeper struct {
	logger   *zap.Logger
	repo     apprepository.LinkRepository
	interval time.Duration
	now      func() time.Time
	stopChan chan struct{}
}

// NewExpirySweeper creates a sweeper over the given repository. A
// non-positive interval falls back to the default.
func NewExpirySweeper(logger *zap.Logger, repo apprepository.LinkRepository, interval time.Duration) *ExpirySweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &ExpirySweeper{
		logger:   logger,
		repo:     repo,
		interval: interval,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start begins sweeping in the background.
func (s *ExpirySweeper) Start() {
	go s.run()
}

// Stop halts the sweep loop.
func (s *ExpirySweeper) Stop() {
	close(s.stopChan)
}

func (s *ExpirySweeper) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopChan:
			s.logger.Info("expiry sweeper stopped")
			return
		}
	}
}

func (s *ExpirySweeper) sweep() {
	ctx := context.Background()
	cutoff := s.now()

	reaped, err := s.repo.DeleteExpired(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to reap expired links", zap.Error(err))
		return
	}

	if reaped > 0 {
		s.logger.Info("reaped expired links",
			zap.Int64("count", reaped),
			zap.Time("cutoff", cutoff),
		)
	}
}
