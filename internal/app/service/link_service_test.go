package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/linkmint/linkmint/internal/app/model"
	"github.com/linkmint/linkmint/internal/app/repository"
	"github.com/linkmint/linkmint/internal/app/shortcode"
)

type mockLinkRepository struct {
	putFn    func(ctx context.Context, link *model.Link) error
	getFn    func(ctx context.Context, code string) (*model.Link, error)
	listFn   func(ctx context.Context, limit, offset int) ([]model.Link, error)
	codesFn  func(ctx context.Context) ([]string, error)
	deleteFn func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *mockLinkRepository) PutIfAbsent(ctx context.Context, link *model.Link) error {
	if m.putFn != nil {
		return m.putFn(ctx, link)
	}
	return nil
}

func (m *mockLinkRepository) GetByCode(ctx context.Context, code string) (*model.Link, error) {
	if m.getFn != nil {
		return m.getFn(ctx, code)
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkRepository) List(ctx context.Context, limit, offset int) ([]model.Link, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockLinkRepository) Codes(ctx context.Context) ([]string, error) {
	if m.codesFn != nil {
		return m.codesFn(ctx)
	}
	return nil, nil
}

func (m *mockLinkRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, cutoff)
	}
	return 0, nil
}

// memoryLinkRepository backs loop and concurrency tests with a real
// conditional-insert semantic.
type memoryLinkRepository struct {
	mu    sync.Mutex
	links map[string]model.Link
}

func newMemoryLinkRepository() *memoryLinkRepository {
	return &memoryLinkRepository{links: make(map[string]model.Link)}
}

func (m *memoryLinkRepository) PutIfAbsent(_ context.Context, link *model.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.links[link.Code]; exists {
		return repository.ErrLinkExists
	}
	m.links[link.Code] = *link
	return nil
}

func (m *memoryLinkRepository) GetByCode(_ context.Context, code string) (*model.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[code]
	if !ok {
		return nil, repository.ErrLinkNotFound
	}
	return &link, nil
}

func (m *memoryLinkRepository) List(_ context.Context, limit, offset int) ([]model.Link, error) {
	return nil, nil
}

func (m *memoryLinkRepository) Codes(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := make([]string, 0, len(m.links))
	for code := range m.links {
		codes = append(codes, code)
	}
	return codes, nil
}

func (m *memoryLinkRepository) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for code, link := range m.links {
		if !link.ExpiresAt.After(cutoff) {
			delete(m.links, code)
			n++
		}
	}
	return n, nil
}

func TestLinkService_CreateThenResolve(t *testing.T) {
	repo := newMemoryLinkRepository()
	svc := NewLinkService(LinkServiceDeps{Repo: repo})

	link, err := svc.CreateLink(context.Background(), CreateLinkInput{
		URL:   "https://example.com/a",
		Owner: "user@example.com",
	})
	if err != nil {
		t.Fatalf("CreateLink returned error: %v", err)
	}
	if !shortcode.Valid(link.Code) {
		t.Fatalf("minted code %q is not a valid short code", link.Code)
	}
	if got := link.ExpiresAt.Sub(link.CreatedAt); got != model.LinkTTL {
		t.Fatalf("expected TTL %v, got %v", model.LinkTTL, got)
	}

	resolved, err := svc.ResolveLink(context.Background(), link.Code)
	if err != nil {
		t.Fatalf("ResolveLink returned error: %v", err)
	}
	if resolved.URL != "https://example.com/a" {
		t.Fatalf("resolved URL %q does not match submitted URL", resolved.URL)
	}
}

func TestLinkService_CreateValidation(t *testing.T) {
	svc := NewLinkService(LinkServiceDeps{Repo: &mockLinkRepository{
		putFn: func(ctx context.Context, link *model.Link) error {
			t.Fatal("store must not be touched for invalid input")
			return nil
		},
	}})

	cases := []struct {
		name string
		url  string
		want error
	}{
		{"empty", "", ErrMissingURL},
		{"whitespace", "   ", ErrMissingURL},
		{"no scheme", "example.com/path", ErrInvalidURL},
		{"wrong scheme", "ftp://example.com", ErrInvalidURL},
		{"scheme only", "https://", ErrInvalidURL},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateLink(context.Background(), CreateLinkInput{URL: tc.url})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !IsValidationError(err) {
				t.Fatalf("expected a validation error, got %v", err)
			}
		})
	}
}

func TestLinkService_CreateRetriesOnCollision(t *testing.T) {
	calls := 0
	var committed *model.Link
	repo := &mockLinkRepository{
		putFn: func(ctx context.Context, link *model.Link) error {
			calls++
			if calls < 3 {
				return repository.ErrLinkExists
			}
			committed = link
			return nil
		},
	}

	codes := []string{"AAAAAAAA", "BBBBBBBB", "CCCCCCCC"}
	gen := 0
	svc := NewLinkService(LinkServiceDeps{
		Repo: repo,
		Generate: func() (string, error) {
			code := codes[gen]
			gen++
			return code, nil
		},
	})

	link, err := svc.CreateLink(context.Background(), CreateLinkInput{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("CreateLink returned error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 insert attempts, got %d", calls)
	}
	if link.Code != "CCCCCCCC" || committed.Code != "CCCCCCCC" {
		t.Fatalf("expected the third candidate to commit, got %q", link.Code)
	}
}

func TestLinkService_CreateExhausted(t *testing.T) {
	calls := 0
	repo := &mockLinkRepository{
		putFn: func(ctx context.Context, link *model.Link) error {
			calls++
			return repository.ErrLinkExists
		},
	}

	svc := NewLinkService(LinkServiceDeps{Repo: repo})
	_, err := svc.CreateLink(context.Background(), CreateLinkInput{URL: "https://example.com"})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if calls != 5 {
		t.Fatalf("expected exactly 5 attempts, got %d", calls)
	}
}

func TestLinkService_CreateStoreFailure(t *testing.T) {
	storeErr := errors.New("connection refused")
	calls := 0
	repo := &mockLinkRepository{
		putFn: func(ctx context.Context, link *model.Link) error {
			calls++
			return storeErr
		},
	}

	svc := NewLinkService(LinkServiceDeps{Repo: repo})
	_, err := svc.CreateLink(context.Background(), CreateLinkInput{URL: "https://example.com"})
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("store failures must not be retried, got %d attempts", calls)
	}
}

func TestLinkService_ConcurrentCreateSameCandidate(t *testing.T) {
	repo := newMemoryLinkRepository()

	// Both workers draw the same first candidate; the loser must retry to a
	// distinct code.
	var mu sync.Mutex
	sequence := []string{"SHARED00", "SHARED00", "FRESH000", "FRESH111"}
	svc := NewLinkService(LinkServiceDeps{
		Repo: repo,
		Generate: func() (string, error) {
			mu.Lock()
			defer mu.Unlock()
			code := sequence[0]
			sequence = sequence[1:]
			return code, nil
		},
	})

	var wg sync.WaitGroup
	results := make([]*model.Link, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.CreateLink(context.Background(), CreateLinkInput{
				URL: "https://example.com/concurrent",
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < 2; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d failed: %v", i, errs[i])
		}
	}
	if results[0].Code == results[1].Code {
		t.Fatalf("both workers committed the same code %q", results[0].Code)
	}
}

func TestLinkService_ResolveNotFound(t *testing.T) {
	touched := false
	repo := &mockLinkRepository{
		getFn: func(ctx context.Context, code string) (*model.Link, error) {
			touched = true
			return nil, repository.ErrLinkNotFound
		},
	}
	svc := NewLinkService(LinkServiceDeps{Repo: repo})

	// Not syntactically a code: rejected before the store.
	_, err := svc.ResolveLink(context.Background(), "doesNotExist")
	if !errors.Is(err, repository.ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
	if touched {
		t.Fatal("malformed codes must not reach the store")
	}

	// Well-formed but absent.
	_, err = svc.ResolveLink(context.Background(), "AAAAbbbb")
	if !errors.Is(err, repository.ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
	if !touched {
		t.Fatal("well-formed codes must be looked up")
	}
}

func TestLinkService_ResolveExpiredRecordStillPresent(t *testing.T) {
	now := time.Now()
	repo := &mockLinkRepository{
		getFn: func(ctx context.Context, code string) (*model.Link, error) {
			// The sweeper has not reaped this row yet.
			return &model.Link{
				Code:      code,
				URL:       "https://example.com/old",
				CreatedAt: now.Add(-91 * 24 * time.Hour),
				ExpiresAt: now.Add(-24 * time.Hour),
			}, nil
		},
	}

	svc := NewLinkService(LinkServiceDeps{Repo: repo, Now: func() time.Time { return now }})
	_, err := svc.ResolveLink(context.Background(), "AAAAbbbb")
	if !errors.Is(err, repository.ErrLinkNotFound) {
		t.Fatalf("expired link must resolve as not found, got %v", err)
	}
}

func TestLinkService_ResolveExactlyAtExpiry(t *testing.T) {
	now := time.Now()
	repo := &mockLinkRepository{
		getFn: func(ctx context.Context, code string) (*model.Link, error) {
			return &model.Link{Code: code, URL: "https://example.com", ExpiresAt: now}, nil
		},
	}

	svc := NewLinkService(LinkServiceDeps{Repo: repo, Now: func() time.Time { return now }})
	_, err := svc.ResolveLink(context.Background(), "AAAAbbbb")
	if !errors.Is(err, repository.ErrLinkNotFound) {
		t.Fatalf("a link expiring exactly now must be not found, got %v", err)
	}
}

func TestLinkService_ResolveStoreFailure(t *testing.T) {
	storeErr := errors.New("timeout")
	repo := &mockLinkRepository{
		getFn: func(ctx context.Context, code string) (*model.Link, error) {
			return nil, storeErr
		},
	}

	svc := NewLinkService(LinkServiceDeps{Repo: repo})
	_, err := svc.ResolveLink(context.Background(), "AAAAbbbb")
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if errors.Is(err, repository.ErrLinkNotFound) {
		t.Fatal("store failures must not masquerade as not found")
	}
}

func TestLinkService_ListLinks(t *testing.T) {
	repo := &mockLinkRepository{
		listFn: func(ctx context.Context, limit, offset int) ([]model.Link, error) {
			return []model.Link{{Code: "AAAAAAAA"}, {Code: "BBBBBBBB"}}, nil
		},
	}
	svc := NewLinkService(LinkServiceDeps{Repo: repo})

	list, err := svc.ListLinks(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("ListLinks error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 links, got %d", len(list))
	}
}
