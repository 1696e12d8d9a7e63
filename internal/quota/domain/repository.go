package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, quota *Quota) error
	Update(ctx context.Context, db *gorm.DB, quota *Quota) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Quota, error)

	// FindByIDForUpdate takes a row lock so concurrent adjustments against
	// the same quota serialize. Must run inside a transaction.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Quota, error)

	ListByUnit(ctx context.Context, db *gorm.DB, unitID snowflake.ID) ([]Quota, error)
	ListByPeriod(ctx context.Context, db *gorm.DB, year, month int) ([]Quota, error)

	// ExistsForUnitConceptPeriod reports whether a non-cancelled quota
	// already exists; batch generation uses it to stay idempotent.
	ExistsForUnitConceptPeriod(ctx context.Context, db *gorm.DB, unitID, conceptID snowflake.ID, year, month int) (bool, error)

	// MarkOverdue flips pending quotas whose due date has passed and
	// returns how many rows changed.
	MarkOverdue(ctx context.Context, db *gorm.DB, asOf time.Time) (int64, error)
}

type AdjustmentRepository interface {
	Insert(ctx context.Context, db *gorm.DB, adjustment *QuotaAdjustment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*QuotaAdjustment, error)
	ListByQuota(ctx context.Context, db *gorm.DB, quotaID snowflake.ID) ([]QuotaAdjustment, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]QuotaAdjustment, error)
	ListByType(ctx context.Context, db *gorm.DB, adjustmentType AdjustmentType) ([]QuotaAdjustment, error)
}
