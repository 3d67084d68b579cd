package repository

import (
	"context"
	"time"

	"github.com/linkmint/linkmint/internal/app/model"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "link:"

// CachedLinkRepository decorates a LinkRepository with a Redis read-through
// cache for resolution traffic. Writes go straight to the underlying store;
// only committed rows are cached.
type CachedLinkRepository struct {
	LinkRepository

	client *redis.Client
	ttl    time.Duration
}

// NewCachedLinkRepository wraps repo with a Redis cache. Entries live for at
// most ttl, and never past the link's own expiry.
func NewCachedLinkRepository(repo LinkRepository, client *redis.Client, ttl time.Duration) *CachedLinkRepository {
	return &CachedLinkRepository{
		LinkRepository: repo,
		client:         client,
		ttl:            ttl,
	}
}

func (r *CachedLinkRepository) PutIfAbsent(ctx context.Context, link *model.Link) error {
	if err := r.LinkRepository.PutIfAbsent(ctx, link); err != nil {
		return err
	}

	// Write-through after the store commit. Cache failures are not fatal;
	// the next read falls through to Postgres.
	r.cache(ctx, link)
	return nil
}

func (r *CachedLinkRepository) GetByCode(ctx context.Context, code string) (*model.Link, error) {
	if link, err := r.fromCache(ctx, code); err == nil {
		return link, nil
	}

	link, err := r.LinkRepository.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	r.cache(ctx, link)
	return link, nil
}

func (r *CachedLinkRepository) fromCache(ctx context.Context, code string) (*model.Link, error) {
	fields, err := r.client.HGetAll(ctx, cacheKeyPrefix+code).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrLinkNotFound
	}

	link := model.Link{
		Code:  fields["code"],
		URL:   fields["url"],
		Owner: fields["owner"],
	}
	if t, err := time.Parse(time.RFC3339Nano, fields["created_at"]); err == nil {
		link.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, fields["expires_at"]); err == nil {
		link.ExpiresAt = t
	} else {
		// An entry without a parsable expiry cannot be trusted; treat as miss.
		return nil, ErrLinkNotFound
	}

	return &link, nil
}

func (r *CachedLinkRepository) cache(ctx context.Context, link *model.Link) {
	ttl := r.ttl
	if remaining := time.Until(link.ExpiresAt); remaining <= 0 {
		// Already past expiry; nothing worth caching.
		return
	} else if ttl <= 0 || remaining < ttl {
		ttl = remaining
	}

	key := cacheKeyPrefix + link.Code
	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"code":       link.Code,
		"url":        link.URL,
		"owner":      link.Owner,
		"created_at": link.CreatedAt.Format(time.RFC3339Nano),
		"expires_at": link.ExpiresAt.Format(time.RFC3339Nano),
	})
	pipe.Expire(ctx, key, ttl)
	_, _ = pipe.Exec(ctx)
}

// Compile-time check.
var _ LinkRepository = (*CachedLinkRepository)(nil)
