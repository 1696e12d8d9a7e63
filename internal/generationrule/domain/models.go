package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// QuotaGenerationRule binds a formula to a (condominium, building-or-nil,
// payment concept) scope for a date window. A nil BuildingID means the rule
// applies condominium-wide. Rules are soft-deleted via IsActive so the
// historical billing audit trail survives.
type QuotaGenerationRule struct {
	ID               snowflake.ID  `gorm:"primaryKey" json:"id"`
	CondominiumID    snowflake.ID  `gorm:"not null;index" json:"condominium_id"`
	BuildingID       *snowflake.ID `gorm:"index" json:"building_id,omitempty"`
	PaymentConceptID snowflake.ID  `gorm:"not null;index" json:"payment_concept_id"`
	QuotaFormulaID   snowflake.ID  `gorm:"not null;index" json:"quota_formula_id"`
	Name             string        `gorm:"type:text;not null" json:"name"`
	Description      string        `gorm:"type:text" json:"description,omitempty"`
	EffectiveFrom    time.Time     `gorm:"type:date;not null;index" json:"effective_from"`
	EffectiveTo      *time.Time    `gorm:"type:date;index" json:"effective_to,omitempty"`
	// No default tag: gorm drops zero-valued fields that carry one, which
	// would silently activate a row inserted with IsActive false.
	IsActive         bool          `gorm:"not null;index" json:"is_active"`
	CreatedBy        snowflake.ID  `gorm:"not null" json:"created_by"`
	CreatedAt        time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedBy        *snowflake.ID `json:"updated_by,omitempty"`
	UpdatedAt        time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdateReason     string        `gorm:"type:text" json:"update_reason,omitempty"`
}

// TableName sets the database table name.
func (QuotaGenerationRule) TableName() string { return "quota_generation_rules" }

// CoversDate reports whether the rule's effective window contains the target
// date. Comparison is date-only; an open EffectiveTo means unbounded future.
func (r *QuotaGenerationRule) CoversDate(target time.Time) bool {
	day := DateOnly(target)
	if day.Before(DateOnly(r.EffectiveFrom)) {
		return false
	}
	if r.EffectiveTo != nil && day.After(DateOnly(*r.EffectiveTo)) {
		return false
	}
	return true
}

// BuildingScoped reports whether the rule targets a single building.
func (r *QuotaGenerationRule) BuildingScoped() bool { return r.BuildingID != nil }

// DateOnly strips the time-of-day component, keeping the UTC calendar date.
func DateOnly(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Overlaps reports whether two date windows intersect. Open ends extend to
// infinity on their side.
func Overlaps(fromA time.Time, toA *time.Time, fromB time.Time, toB *time.Time) bool {
	if toA != nil && DateOnly(*toA).Before(DateOnly(fromB)) {
		return false
	}
	if toB != nil && DateOnly(*toB).Before(DateOnly(fromA)) {
		return false
	}
	return true
}
