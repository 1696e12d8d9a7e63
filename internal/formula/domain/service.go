package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/jadiazinf/condominio-core/internal/apperr"
	"github.com/shopspring/decimal"
)

// CreateRequest carries the fields an administrator submits for a new
// formula. Only the config field matching FormulaType may be set.
type CreateRequest struct {
	CondominiumID string             `json:"condominium_id"`
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	FormulaType   FormulaType        `json:"formula_type"`
	FixedAmount   string             `json:"fixed_amount"`
	Expression    string             `json:"expression"`
	Variables     map[string]float64 `json:"variables"`
	UnitAmounts   map[string]string  `json:"unit_amounts"`
	CurrencyID    string             `json:"currency_id"`
}

// UpdateRequest mutates a formula. Updating a formula referenced by an
// in-use generation rule is discouraged rather than forbidden; the change is
// tracked via UpdatedBy and UpdateReason.
type UpdateRequest struct {
	ID           string              `json:"id"`
	Name         *string             `json:"name"`
	Description  *string             `json:"description"`
	FixedAmount  *string             `json:"fixed_amount"`
	Expression   *string             `json:"expression"`
	Variables    *map[string]float64 `json:"variables"`
	UnitAmounts  *map[string]string  `json:"unit_amounts"`
	IsActive     *bool               `json:"is_active"`
	UpdateReason string              `json:"update_reason"`
}

// EvaluateRequest computes the base amount a formula yields for a unit.
type EvaluateRequest struct {
	FormulaID string             `json:"formula_id"`
	UnitID    string             `json:"unit_id"`
	Overrides map[string]float64 `json:"variables"`
}

// Evaluation is the result of applying a formula: the rounded amount plus a
// breakdown for transparency in the admin UI.
type Evaluation struct {
	Amount      decimal.Decimal            `json:"amount"`
	FormulaType FormulaType                `json:"formula_type"`
	Variables   map[string]decimal.Decimal `json:"variables,omitempty"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest, actorID snowflake.ID) (*QuotaFormula, error)
	Update(ctx context.Context, req UpdateRequest, actorID snowflake.ID) (*QuotaFormula, error)
	GetByID(ctx context.Context, id string) (*QuotaFormula, error)
	ListByCondominium(ctx context.Context, condominiumID string, includeInactive bool) ([]QuotaFormula, error)

	// Evaluate resolves the formula and unit by id and computes the amount:
	// fixed is verbatim, per_unit is an exact table lookup, and expression
	// merges stored defaults, unit variables and overrides before delegating
	// to the arithmetic evaluator.
	Evaluate(ctx context.Context, req EvaluateRequest) (*Evaluation, error)

	// EvaluateFormula applies an already-loaded formula for a unit; the
	// generation pipeline uses it to avoid re-fetching per unit.
	EvaluateFormula(ctx context.Context, formula *QuotaFormula, unitID snowflake.ID, overrides map[string]decimal.Decimal) (*Evaluation, error)
}

// Contract errors; messages are asserted by clients and tests.
var (
	ErrCondominiumNotFound = apperr.NotFound("Condominium not found")
	ErrCurrencyNotFound    = apperr.NotFound("Currency not found")
	ErrFormulaNotFound     = apperr.NotFound("Formula not found")
	ErrUnitNotFound        = apperr.NotFound("Unit not found")
	ErrFormulaInactive     = apperr.BadRequest("Formula is not active")

	ErrFixedAmountRequired    = apperr.BadRequest("Fixed amount is required for fixed formula type")
	ErrFixedAmountInvalid     = apperr.BadRequest("Fixed amount must be a valid non-negative number")
	ErrExpressionRequired     = apperr.BadRequest("Expression is required for expression formula type")
	ErrUnitAmountsRequired    = apperr.BadRequest("Unit amounts are required for per_unit formula type")
	ErrInvalidFormulaType     = apperr.BadRequest("Invalid formula type")
	ErrNoAmountForUnit        = apperr.BadRequest("No amount defined for this unit in per_unit formula")
	ErrCalculationInvalid     = apperr.BadRequest("Formula calculation resulted in invalid number")
	ErrCalculationNegative    = apperr.BadRequest("Formula calculation resulted in negative amount")
	ErrUpdateReasonRequired   = apperr.BadRequest("Update reason is required")
	ErrInvalidUnitAmountValue = apperr.BadRequest("Unit amounts must be valid non-negative numbers")
)
