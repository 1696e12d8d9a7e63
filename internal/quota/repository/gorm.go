package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jadiazinf/condominio-core/internal/quota/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormRepository struct{}

// Provide returns the gorm-backed quota repository.
func Provide() domain.Repository {
	return &gormRepository{}
}

func (r *gormRepository) Insert(ctx context.Context, db *gorm.DB, quota *domain.Quota) error {
	return db.WithContext(ctx).Create(quota).Error
}

func (r *gormRepository) Update(ctx context.Context, db *gorm.DB, quota *domain.Quota) error {
	return db.WithContext(ctx).Save(quota).Error
}

func (r *gormRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Quota, error) {
	return findQuota(ctx, db, id)
}

func (r *gormRepository) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Quota, error) {
	// sqlite has no row locks; its transactions already serialize writers.
	if db.Dialector.Name() == "postgres" {
		db = db.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	}
	return findQuota(ctx, db, id)
}

func findQuota(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Quota, error) {
	var quota domain.Quota
	err := db.WithContext(ctx).First(&quota, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &quota, nil
}

func (r *gormRepository) ListByUnit(ctx context.Context, db *gorm.DB, unitID snowflake.ID) ([]domain.Quota, error) {
	var quotas []domain.Quota
	err := db.WithContext(ctx).
		Where("unit_id = ?", unitID).
		Order("period_year DESC, period_month DESC").
		Find(&quotas).Error
	if err != nil {
		return nil, err
	}
	return quotas, nil
}

func (r *gormRepository) ListByPeriod(ctx context.Context, db *gorm.DB, year, month int) ([]domain.Quota, error) {
	var quotas []domain.Quota
	err := db.WithContext(ctx).
		Where("period_year = ? AND period_month = ?", year, month).
		Find(&quotas).Error
	if err != nil {
		return nil, err
	}
	return quotas, nil
}

func (r *gormRepository) ExistsForUnitConceptPeriod(ctx context.Context, db *gorm.DB, unitID, conceptID snowflake.ID, year, month int) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Quota{}).
		Where("unit_id = ? AND payment_concept_id = ? AND period_year = ? AND period_month = ?", unitID, conceptID, year, month).
		Where("status <> ?", domain.StatusCancelled).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *gormRepository) MarkOverdue(ctx context.Context, db *gorm.DB, asOf time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.Quota{}).
		Where("status = ? AND due_date <= ?", domain.StatusPending, asOf).
		Updates(map[string]any{
			"status":     domain.StatusOverdue,
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

type gormAdjustmentRepository struct{}

// ProvideAdjustments returns the gorm-backed adjustment repository. The
// table is append-only, so there is no update or delete.
func ProvideAdjustments() domain.AdjustmentRepository {
	return &gormAdjustmentRepository{}
}

func (r *gormAdjustmentRepository) Insert(ctx context.Context, db *gorm.DB, adjustment *domain.QuotaAdjustment) error {
	return db.WithContext(ctx).Create(adjustment).Error
}

func (r *gormAdjustmentRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.QuotaAdjustment, error) {
	var adjustment domain.QuotaAdjustment
	err := db.WithContext(ctx).First(&adjustment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &adjustment, nil
}

func (r *gormAdjustmentRepository) ListByQuota(ctx context.Context, db *gorm.DB, quotaID snowflake.ID) ([]domain.QuotaAdjustment, error) {
	return listAdjustments(ctx, db, "quota_id = ?", quotaID)
}

func (r *gormAdjustmentRepository) ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]domain.QuotaAdjustment, error) {
	return listAdjustments(ctx, db, "created_by = ?", userID)
}

func (r *gormAdjustmentRepository) ListByType(ctx context.Context, db *gorm.DB, adjustmentType domain.AdjustmentType) ([]domain.QuotaAdjustment, error) {
	return listAdjustments(ctx, db, "adjustment_type = ?", adjustmentType)
}

func listAdjustments(ctx context.Context, db *gorm.DB, cond string, arg any) ([]domain.QuotaAdjustment, error) {
	var adjustments []domain.QuotaAdjustment
	err := db.WithContext(ctx).
		Where(cond, arg).
		Order("created_at DESC").
		Find(&adjustments).Error
	if err != nil {
		return nil, err
	}
	return adjustments, nil
}
