package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/jadiazinf/condominio-core/internal/formula/domain"
	"gorm.io/gorm"
)

type gormRepository struct{}

// Provide returns the gorm-backed formula repository.
func Provide() domain.Repository {
	return &gormRepository{}
}

func (r *gormRepository) Insert(ctx context.Context, db *gorm.DB, formula *domain.QuotaFormula) error {
	return db.WithContext(ctx).Create(formula).Error
}

func (r *gormRepository) Update(ctx context.Context, db *gorm.DB, formula *domain.QuotaFormula) error {
	return db.WithContext(ctx).Save(formula).Error
}

func (r *gormRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.QuotaFormula, error) {
	var formula domain.QuotaFormula
	err := db.WithContext(ctx).First(&formula, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &formula, nil
}

func (r *gormRepository) ListByCondominium(ctx context.Context, db *gorm.DB, condominiumID snowflake.ID, includeInactive bool) ([]domain.QuotaFormula, error) {
	query := db.WithContext(ctx).Where("condominium_id = ?", condominiumID)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var formulas []domain.QuotaFormula
	if err := query.Order("created_at DESC").Find(&formulas).Error; err != nil {
		return nil, err
	}
	return formulas, nil
}
