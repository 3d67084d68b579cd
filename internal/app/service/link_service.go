package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/linkmint/linkmint/internal/app/model"
	"github.com/linkmint/linkmint/internal/app/repository"
	"github.com/linkmint/linkmint/internal/app/shortcode"
	"github.com/linkmint/linkmint/internal/infra/prometheus"
)

// maxCreateAttempts bounds the generate-and-insert loop. With an 8-character
// base62 code space a collision is already vanishingly rare, so hitting this
// bound means either a broken random source or a table near saturation.
const maxCreateAttempts = 5

var (
	// ErrMissingURL rejects empty creation input.
	ErrMissingURL = errors.New("long_url is required")

	// ErrInvalidURL rejects targets that are not absolute http(s) URLs.
	ErrInvalidURL = errors.New("long_url must be a valid http:// or https:// URL")

	// ErrExhausted signals that every allocation attempt collided. This is an
	// operational fault, not an expected outcome.
	ErrExhausted = errors.New("could not generate a unique short code")
)

// IsValidationError reports whether err is a user-facing input rejection
// rather than a server-side fault.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingURL) || errors.Is(err, ErrInvalidURL)
}

// LinkService defines behaviour-level operations on links.
type LinkService interface {
	// CreateLink validates the target and mints a unique short code for it.
	CreateLink(ctx context.Context, input CreateLinkInput) (*model.Link, error)
	// ResolveLink returns the live link for a code, treating expired and
	// absent codes identically as repository.ErrLinkNotFound.
	ResolveLink(ctx context.Context, code string) (*model.Link, error)
	// GetLink returns stored metadata for a live code.
	GetLink(ctx context.Context, code string) (*model.Link, error)
	ListLinks(ctx context.Context, limit, offset int) ([]model.Link, error)
}

// CreateLinkInput captures data required to create a link. Owner is the
// already-authenticated subject supplied by the auth gate; the service treats
// it as an opaque value and performs no credential checks of its own.
type CreateLinkInput struct {
	URL   string
	Owner string
}

// LinkServiceDeps bundles what the service needs. Generate and Now exist so
// tests can pin codes and clocks; both default to the real implementations.
type LinkServiceDeps struct {
	Repo     repository.LinkRepository
	Filter   *CodeFilter
	Generate func() (string, error)
	Now      func() time.Time
}

type linkService struct {
	repo     repository.LinkRepository
	filter   *CodeFilter
	generate func() (string, error)
	now      func() time.Time
}

// NewLinkService returns a service implementation backed by the given deps.
func NewLinkService(deps LinkServiceDeps) LinkService {
	s := &linkService{
		repo:     deps.Repo,
		filter:   deps.Filter,
		generate: deps.Generate,
		now:      deps.Now,
	}
	if s.generate == nil {
		s.generate = shortcode.Generate
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *linkService) CreateLink(ctx context.Context, input CreateLinkInput) (*model.Link, error) {
	target, err := validateTarget(input.URL)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}

		now := s.now()
		link := &model.Link{
			Code:      code,
			URL:       target,
			Owner:     input.Owner,
			CreatedAt: now,
			ExpiresAt: now.Add(model.LinkTTL),
		}

		switch err := s.repo.PutIfAbsent(ctx, link); {
		case err == nil:
			if s.filter != nil {
				s.filter.Add(code)
			}
			prometheus.LinksCreated.Inc()
			return link, nil
		case errors.Is(err, repository.ErrLinkExists):
			// Collision: the code is taken, possibly by an expired row the
			// store has not reaped yet. Retry with a fresh candidate.
			prometheus.CodeCollisions.Inc()
			continue
		default:
			return nil, fmt.Errorf("put link: %w", err)
		}
	}

	prometheus.CreateExhausted.Inc()
	return nil, ErrExhausted
}

func (s *linkService) ResolveLink(ctx context.Context, code string) (*model.Link, error) {
	// Anything that is not syntactically a code cannot be in the store.
	if !shortcode.Valid(code) {
		prometheus.Resolves.WithLabelValues(prometheus.ResolveOutcomeNotFound).Inc()
		return nil, repository.ErrLinkNotFound
	}
	if s.filter != nil && !s.filter.MayContain(code) {
		prometheus.Resolves.WithLabelValues(prometheus.ResolveOutcomeNotFound).Inc()
		return nil, repository.ErrLinkNotFound
	}

	link, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			prometheus.Resolves.WithLabelValues(prometheus.ResolveOutcomeNotFound).Inc()
			return nil, err
		}
		prometheus.Resolves.WithLabelValues(prometheus.ResolveOutcomeError).Inc()
		return nil, fmt.Errorf("get link: %w", err)
	}

	// Expiry is enforced here, not by the sweeper: a row past its TTL may
	// linger in the store for a while but must resolve as not found.
	if link.Expired(s.now()) {
		prometheus.Resolves.WithLabelValues(prometheus.ResolveOutcomeExpired).Inc()
		return nil, repository.ErrLinkNotFound
	}

	prometheus.Resolves.WithLabelValues(prometheus.ResolveOutcomeOK).Inc()
	return link, nil
}

func (s *linkService) GetLink(ctx context.Context, code string) (*model.Link, error) {
	link, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get link: %w", err)
	}
	if link.Expired(s.now()) {
		return nil, repository.ErrLinkNotFound
	}
	return link, nil
}

func (s *linkService) ListLinks(ctx context.Context, limit, offset int) ([]model.Link, error) {
	links, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return links, nil
}

// validateTarget normalizes and validates the long URL before any store
// traffic. Only absolute http(s) URLs are accepted.
func validateTarget(raw string) (string, error) {
	target := strings.TrimSpace(raw)
	if target == "" {
		return "", ErrMissingURL
	}
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		return "", ErrInvalidURL
	}

	parsed, err := url.Parse(target)
	if err != nil || parsed.Host == "" {
		return "", ErrInvalidURL
	}

	return target, nil
}
