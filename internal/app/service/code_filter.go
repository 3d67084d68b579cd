package service

import (
	"context"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/linkmint/linkmint/internal/app/repository"
)

const (
	// filterCapacity sizes the bloom filter; at this many codes the false
	// positive rate stays at filterFalsePositive.
	filterCapacity      = 10_000_000
	filterFalsePositive = 0.001
)

// CodeFilter is an in-process bloom filter over every code the store has ever
// committed. A miss means the code definitely does not exist, which lets the
// resolve path drop garbage lookups without touching Redis or Postgres.
//
// The filter is warmed from the store at startup and updated on local
// creates, so it assumes a single writer instance. False positives only cost
// a store lookup; there are no false negatives for locally minted codes.
type CodeFilter struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewCodeFilter returns an empty filter sized for the expected code volume.
func NewCodeFilter() *CodeFilter {
	return &CodeFilter{
		filter: bloom.NewWithEstimates(filterCapacity, filterFalsePositive),
	}
}

// Warm loads every stored code into the filter. Expired-but-unreaped rows are
// included on purpose: their codes are still unavailable for minting.
func (f *CodeFilter) Warm(ctx context.Context, repo repository.LinkRepository) (int, error) {
	codes, err := repo.Codes(ctx)
	if err != nil {
		return 0, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, code := range codes {
		f.filter.AddString(code)
	}
	return len(codes), nil
}

// Add records a freshly committed code.
func (f *CodeFilter) Add(code string) {
	f.mu.Lock()
	f.filter.AddString(code)
	f.mu.Unlock()
}

// MayContain reports whether the code could exist in the store. False means
// definitely absent.
func (f *CodeFilter) MayContain(code string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter.TestString(code)
}
