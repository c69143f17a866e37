package repository

import (
	"context"

	"rentalhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AttractionRepository interface {
	Create(ctx context.Context, a *model.Attraction) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Attraction, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Attraction, error)
	List(ctx context.Context, includeInactive bool) ([]model.Attraction, error)
	Update(ctx context.Context, a *model.Attraction) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type attractionRepo struct{ db *gorm.DB }

func NewAttractionRepository(db *gorm.DB) AttractionRepository { return &attractionRepo{db: db} }

// Create writes every column so that an explicit active=false is not
// replaced by the column default.
func (r *attractionRepo) Create(ctx context.Context, a *model.Attraction) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Select("*").Create(a).Error
}

func (r *attractionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Attraction, error) {
	var a model.Attraction
	err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error
	return &a, err
}

func (r *attractionRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Attraction, error) {
	var list []model.Attraction
	if len(ids) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error
	return list, err
}

func (r *attractionRepo) List(ctx context.Context, includeInactive bool) ([]model.Attraction, error) {
	var list []model.Attraction
	q := r.db.WithContext(ctx)
	if !includeInactive {
		q = q.Where("active = true")
	}
	err := q.Order("name ASC").Find(&list).Error
	return list, err
}

func (r *attractionRepo) Update(ctx context.Context, a *model.Attraction) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *attractionRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Attraction{}).Where("id = ?", id).Update("active", false).Error
}
