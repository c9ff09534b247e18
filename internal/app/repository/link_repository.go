package repository

import (
	"context"
	"errors"

	"github.com/velichkin/shorty/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrLinkNotFound signals that the requested link does not exist
	// or is not owned by the requesting user.
	ErrLinkNotFound = errors.New("link not found")
)

// LinkRepository defines the data access contract for links.
type LinkRepository interface {
	Create(ctx context.Context, link *model.Link) error
	ListByOwner(ctx context.Context, ownerID string) ([]model.Link, error)
	GetByIDForOwner(ctx context.Context, id, ownerID string) (*model.Link, error)
	DeleteByIDForOwner(ctx context.Context, id, ownerID string) error
	ListRecent(ctx context.Context, limit int) ([]model.Link, error)
}

type linkRepository struct {
	db *gorm.DB
}

// NewLinkRepository returns a GORM-backed LinkRepository.
func NewLinkRepository(db *gorm.DB) LinkRepository {
	return &linkRepository{db: db}
}

func (r *linkRepository) Create(ctx context.Context, link *model.Link) error {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		return err
	}
	return nil
}

func (r *linkRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Link, error) {
	var result []model.Link
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *linkRepository) GetByIDForOwner(ctx context.Context, id, ownerID string) (*model.Link, error) {
	var link model.Link
	if err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *linkRepository) DeleteByIDForOwner(ctx context.Context, id, ownerID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&model.Link{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLinkNotFound
	}

	return nil
}

func (r *linkRepository) ListRecent(ctx context.Context, limit int) ([]model.Link, error) {
	if limit <= 0 {
		limit = 100
	}

	var result []model.Link
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}
