package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, rule *QuotaGenerationRule) error
	Update(ctx context.Context, db *gorm.DB, rule *QuotaGenerationRule) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*QuotaGenerationRule, error)
	ListByCondominium(ctx context.Context, db *gorm.DB, condominiumID snowflake.ID, includeInactive bool) ([]QuotaGenerationRule, error)

	// FindCandidates returns the active rules for the condominium and
	// payment concept whose effective window contains targetDate, at both
	// scopes. The resolver applies the priority policy in memory so the
	// "which rule wins" logic stays testable without a database.
	FindCandidates(ctx context.Context, db *gorm.DB, condominiumID, paymentConceptID snowflake.ID, targetDate time.Time) ([]QuotaGenerationRule, error)

	// ListActiveByConcept returns every active rule for the concept,
	// regardless of window; the write path uses it for overlap detection.
	ListActiveByConcept(ctx context.Context, db *gorm.DB, condominiumID, paymentConceptID snowflake.ID) ([]QuotaGenerationRule, error)
}
