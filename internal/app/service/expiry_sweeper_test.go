package service

import (
	"context"
	"testing"
	"time"

	"github.com/linkmint/linkmint/internal/app/model"
	"go.uber.org/zap"
)

func TestExpirySweeper_ReapsOnlyExpiredRows(t *testing.T) {
	repo := newMemoryLinkRepository()
	now := time.Now()

	repo.links["EXPIRED0"] = linkAt(now.Add(-time.Hour))
	repo.links["EXPIRED1"] = linkAt(now.Add(-time.Minute))
	repo.links["LIVE0000"] = linkAt(now.Add(24 * time.Hour))

	sweeper := NewExpirySweeper(zap.NewNop(), repo, time.Minute)
	sweeper.now = func() time.Time { return now }
	sweeper.sweep()

	if _, err := repo.GetByCode(context.Background(), "EXPIRED0"); err == nil {
		t.Fatal("expired row EXPIRED0 should have been reaped")
	}
	if _, err := repo.GetByCode(context.Background(), "EXPIRED1"); err == nil {
		t.Fatal("expired row EXPIRED1 should have been reaped")
	}
	if _, err := repo.GetByCode(context.Background(), "LIVE0000"); err != nil {
		t.Fatalf("live row must survive the sweep: %v", err)
	}
}

func TestExpirySweeper_StartStop(t *testing.T) {
	repo := newMemoryLinkRepository()
	sweeper := NewExpirySweeper(zap.NewNop(), repo, 10*time.Millisecond)

	sweeper.Start()
	time.Sleep(30 * time.Millisecond)
	sweeper.Stop()
}

func linkAt(expires time.Time) model.Link {
	return model.Link{
		URL:       "https://example.com",
		ExpiresAt: expires,
	}
}
