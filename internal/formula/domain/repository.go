package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, formula *QuotaFormula) error
	Update(ctx context.Context, db *gorm.DB, formula *QuotaFormula) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*QuotaFormula, error)
	ListByCondominium(ctx context.Context, db *gorm.DB, condominiumID snowflake.ID, includeInactive bool) ([]QuotaFormula, error)
}
