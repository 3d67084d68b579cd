package repository

import (
	"context"
	"errors"
	"time"

	"github.com/linkmint/linkmint/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrLinkNotFound signals that the requested short link does not exist.
	ErrLinkNotFound = errors.New("link not found")

	// ErrLinkExists signals that a conditional insert lost to an existing
	// row with the same code.
	ErrLinkExists = errors.New("link code already exists")
)

// LinkRepository defines the data access contract for short links.
type LinkRepository interface {
	// PutIfAbsent inserts the link only if no row with its code exists.
	// The insert is a single atomic statement; it never overwrites a live
	// row. Returns ErrLinkExists when the code is taken.
	PutIfAbsent(ctx context.Context, link *model.Link) error
	GetByCode(ctx context.Context, code string) (*model.Link, error)
	List(ctx context.Context, limit, offset int) ([]model.Link, error)
	// Codes returns every stored code, expired rows included. Used to warm
	// the in-process code filter at startup.
	Codes(ctx context.Context) ([]string, error)
	// DeleteExpired reaps rows whose expiry is at or before the cutoff and
	// reports how many were removed.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type linkRepository struct {
	db *gorm.DB
}

// NewLinkRepository returns a GORM-backed LinkRepository.
func NewLinkRepository(db *gorm.DB) LinkRepository {
	return &linkRepository{db: db}
}

func (r *linkRepository) PutIfAbsent(ctx context.Context, link *model.Link) error {
	// INSERT ... ON CONFLICT (code) DO NOTHING executes as one statement, so
	// two concurrent inserts of the same code can never both commit. A plain
	// read-then-write here would reintroduce exactly that race.
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).
		Create(link)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLinkExists
	}
	return nil
}

func (r *linkRepository) GetByCode(ctx context.Context, code string) (*model.Link, error) {
	var link model.Link
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *linkRepository) List(ctx context.Context, limit, offset int) ([]model.Link, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var result []model.Link
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *linkRepository) Codes(ctx context.Context) ([]string, error) {
	var codes []string
	if err := r.db.WithContext(ctx).
		Model(&model.Link{}).
		Pluck("code", &codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *linkRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", cutoff).
		Delete(&model.Link{})
	return result.RowsAffected, result.Error
}
