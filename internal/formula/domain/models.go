package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// FormulaType selects how a formula produces a quota's base amount.
type FormulaType string

const (
	FormulaTypeFixed      FormulaType = "fixed"
	FormulaTypeExpression FormulaType = "expression"
	FormulaTypePerUnit    FormulaType = "per_unit"
)

// Valid reports whether the type is one of the three supported kinds.
func (t FormulaType) Valid() bool {
	switch t {
	case FormulaTypeFixed, FormulaTypeExpression, FormulaTypePerUnit:
		return true
	}
	return false
}

// QuotaFormula is a named, versioned pricing definition owned by a
// condominium. Exactly one of FixedAmount, Expression or UnitAmounts is
// populated, matching FormulaType.
type QuotaFormula struct {
	ID            snowflake.ID        `gorm:"primaryKey" json:"id"`
	CondominiumID snowflake.ID        `gorm:"not null;index" json:"condominium_id"`
	Name          string              `gorm:"type:text;not null" json:"name"`
	Description   string              `gorm:"type:text" json:"description,omitempty"`
	FormulaType   FormulaType         `gorm:"type:text;not null;index" json:"formula_type"`
	FixedAmount   decimal.NullDecimal `gorm:"type:numeric(15,2)" json:"fixed_amount,omitempty"`
	Expression    string              `gorm:"type:text" json:"expression,omitempty"`
	Variables     datatypes.JSONMap   `gorm:"type:jsonb" json:"variables,omitempty"`
	UnitAmounts   datatypes.JSONMap   `gorm:"type:jsonb" json:"unit_amounts,omitempty"`
	CurrencyID    snowflake.ID        `gorm:"not null" json:"currency_id"`
	IsActive      bool                `gorm:"not null;default:true;index" json:"is_active"`
	CreatedBy     snowflake.ID        `gorm:"not null" json:"created_by"`
	CreatedAt     time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedBy     *snowflake.ID       `json:"updated_by,omitempty"`
	UpdatedAt     time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdateReason  string              `gorm:"type:text" json:"update_reason,omitempty"`
}

// TableName sets the database table name.
func (QuotaFormula) TableName() string { return "quota_formulas" }

// AllowedVariables is the whitelist of identifiers an expression formula may
// reference. base_rate and unit_count arrive from the caller or the stored
// defaults; the rest derive from the unit being billed.
var AllowedVariables = []string{
	"base_rate",
	"aliquot_percentage",
	"area_m2",
	"unit_count",
	"floor",
	"parking_spaces",
}

// VariableAllowed reports membership in AllowedVariables.
func VariableAllowed(name string) bool {
	for _, allowed := range AllowedVariables {
		if name == allowed {
			return true
		}
	}
	return false
}
