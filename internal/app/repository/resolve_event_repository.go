package repository

import (
	"context"

	"github.com/linkmint/linkmint/internal/app/model"
	"gorm.io/gorm"
)

// ResolveEventRepository defines the data access contract for resolve events.
type ResolveEventRepository interface {
	Create(ctx context.Context, event *model.ResolveEvent) error
	CountByCode(ctx context.Context, code string) (int64, error)
}

type resolveEventRepository struct {
	db *gorm.DB
}

// NewResolveEventRepository returns a GORM-backed ResolveEventRepository.
func NewResolveEventRepository(db *gorm.DB) ResolveEventRepository {
	return &resolveEventRepository{db: db}
}

func (r *resolveEventRepository) Create(ctx context.Context, event *model.ResolveEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *resolveEventRepository) CountByCode(ctx context.Context, code string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ResolveEvent{}).
		Where("link_code = ?", code).
		Count(&count).Error
	return count, err
}
