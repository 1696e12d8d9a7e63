package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jadiazinf/condominio-core/internal/apperr"
)

// CreateRequest registers a new generation rule. Dates are "2006-01-02".
type CreateRequest struct {
	CondominiumID    string `json:"condominium_id"`
	BuildingID       string `json:"building_id"`
	PaymentConceptID string `json:"payment_concept_id"`
	QuotaFormulaID   string `json:"quota_formula_id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	EffectiveFrom    string `json:"effective_from"`
	EffectiveTo      string `json:"effective_to"`
}

// ResolveRequest asks which rule governs a concept on a date, optionally
// from the perspective of one building.
type ResolveRequest struct {
	CondominiumID    string `form:"condominium_id" json:"condominium_id"`
	PaymentConceptID string `form:"payment_concept_id" json:"payment_concept_id"`
	TargetDate       string `form:"target_date" json:"target_date"`
	BuildingID       string `form:"building_id" json:"building_id"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest, actorID snowflake.ID) (*QuotaGenerationRule, error)
	GetByID(ctx context.Context, id string) (*QuotaGenerationRule, error)
	ListByCondominium(ctx context.Context, condominiumID string, includeInactive bool) ([]QuotaGenerationRule, error)
	Deactivate(ctx context.Context, id string, reason string, actorID snowflake.ID) (*QuotaGenerationRule, error)

	// Resolve selects the single applicable rule: a building-scoped rule
	// wins unconditionally over a condominium-wide one for the same window;
	// otherwise the condominium-wide rule applies; otherwise ErrNoRule.
	Resolve(ctx context.Context, req ResolveRequest) (*QuotaGenerationRule, error)
}

// ResolveCandidates applies the pure priority policy over pre-filtered
// candidates (active, window containing the target date). Same-scope
// overlaps — a data-integrity situation the write path prevents but the
// read path must tolerate — resolve deterministically: latest EffectiveFrom
// wins, then highest ID.
func ResolveCandidates(candidates []QuotaGenerationRule, buildingID *snowflake.ID, targetDate time.Time) *QuotaGenerationRule {
	var buildingMatch, condominiumWide *QuotaGenerationRule
	for i := range candidates {
		rule := &candidates[i]
		if !rule.IsActive || !rule.CoversDate(targetDate) {
			continue
		}
		switch {
		case rule.BuildingScoped():
			if buildingID != nil && *rule.BuildingID == *buildingID && prefer(rule, buildingMatch) {
				buildingMatch = rule
			}
		default:
			if prefer(rule, condominiumWide) {
				condominiumWide = rule
			}
		}
	}
	if buildingMatch != nil {
		return buildingMatch
	}
	return condominiumWide
}

func prefer(candidate, current *QuotaGenerationRule) bool {
	if current == nil {
		return true
	}
	a := DateOnly(candidate.EffectiveFrom)
	b := DateOnly(current.EffectiveFrom)
	if a.After(b) {
		return true
	}
	if a.Before(b) {
		return false
	}
	return candidate.ID > current.ID
}

// Contract errors; messages are asserted by clients and tests.
var (
	ErrCondominiumNotFound     = apperr.NotFound("Condominium not found")
	ErrBuildingNotFound        = apperr.NotFound("Building not found")
	ErrPaymentConceptNotFound  = apperr.NotFound("Payment concept not found")
	ErrFormulaNotFound         = apperr.NotFound("Quota formula not found")
	ErrRuleNotFound            = apperr.NotFound("Generation rule not found")
	ErrNoRule                  = apperr.NotFound("No applicable generation rule found")
	ErrBuildingWrongCondo      = apperr.BadRequest("Building does not belong to the specified condominium")
	ErrFormulaWrongCondo       = apperr.BadRequest("Quota formula does not belong to the specified condominium")
	ErrFormulaInactive         = apperr.BadRequest("Quota formula is not active")
	ErrInvalidDateWindow       = apperr.BadRequest("Effective from date must be before or equal to effective to date")
	ErrInvalidEffectiveFrom    = apperr.BadRequest("Effective from date is required and must be YYYY-MM-DD")
	ErrOverlappingRule         = apperr.Conflict("A rule already exists for this payment concept in the specified date range")
	ErrDeactivateReasonMissing = apperr.BadRequest("Deactivation reason is required")
)
