package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jadiazinf/condominio-core/internal/generationrule/domain"
	"gorm.io/gorm"
)

type gormRepository struct{}

// Provide returns the gorm-backed generation rule repository.
func Provide() domain.Repository {
	return &gormRepository{}
}

func (r *gormRepository) Insert(ctx context.Context, db *gorm.DB, rule *domain.QuotaGenerationRule) error {
	return db.WithContext(ctx).Create(rule).Error
}

func (r *gormRepository) Update(ctx context.Context, db *gorm.DB, rule *domain.QuotaGenerationRule) error {
	return db.WithContext(ctx).Save(rule).Error
}

func (r *gormRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.QuotaGenerationRule, error) {
	var rule domain.QuotaGenerationRule
	err := db.WithContext(ctx).First(&rule, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *gormRepository) ListByCondominium(ctx context.Context, db *gorm.DB, condominiumID snowflake.ID, includeInactive bool) ([]domain.QuotaGenerationRule, error) {
	query := db.WithContext(ctx).Where("condominium_id = ?", condominiumID)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var rules []domain.QuotaGenerationRule
	if err := query.Order("effective_from DESC, id DESC").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *gormRepository) FindCandidates(ctx context.Context, db *gorm.DB, condominiumID, paymentConceptID snowflake.ID, targetDate time.Time) ([]domain.QuotaGenerationRule, error) {
	day := domain.DateOnly(targetDate)

	var rules []domain.QuotaGenerationRule
	err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("condominium_id = ?", condominiumID).
		Where("payment_concept_id = ?", paymentConceptID).
		Where("effective_from <= ?", day).
		Where("effective_to IS NULL OR effective_to >= ?", day).
		Order("effective_from DESC, id DESC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *gormRepository) ListActiveByConcept(ctx context.Context, db *gorm.DB, condominiumID, paymentConceptID snowflake.ID) ([]domain.QuotaGenerationRule, error) {
	var rules []domain.QuotaGenerationRule
	err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("condominium_id = ?", condominiumID).
		Where("payment_concept_id = ?", paymentConceptID).
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}
