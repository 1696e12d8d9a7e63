package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jadiazinf/condominio-core/internal/apperr"
	"github.com/jadiazinf/condominio-core/internal/cache"
	condominiumdomain "github.com/jadiazinf/condominio-core/internal/condominium/domain"
	currencydomain "github.com/jadiazinf/condominio-core/internal/currency/domain"
	"github.com/jadiazinf/condominio-core/internal/events"
	"github.com/jadiazinf/condominio-core/internal/formula/domain"
	"github.com/jadiazinf/condominio-core/internal/formula/expr"
	unitdomain "github.com/jadiazinf/condominio-core/internal/unit/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const formulaCacheTTL = 30 * time.Second

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Repo            domain.Repository
	CondominiumRepo condominiumdomain.Repository
	CurrencyRepo    currencydomain.Repository
	UnitRepo        unitdomain.Repository
	Outbox          *events.Outbox
	Cache           cache.Cache[snowflake.ID, domain.QuotaFormula] `optional:"true"`
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	repo            domain.Repository
	condominiumRepo condominiumdomain.Repository
	currencyRepo    currencydomain.Repository
	unitRepo        unitdomain.Repository
	outbox          *events.Outbox
	cache           cache.Cache[snowflake.ID, domain.QuotaFormula]
}

func NewService(p Params) domain.Service {
	c := p.Cache
	if c == nil {
		c = cache.NewTTLCache[snowflake.ID, domain.QuotaFormula]()
	}
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("formula.service"),
		genID:           p.GenID,
		repo:            p.Repo,
		condominiumRepo: p.CondominiumRepo,
		currencyRepo:    p.CurrencyRepo,
		unitRepo:        p.UnitRepo,
		outbox:          p.Outbox,
		cache:           c,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest, actorID snowflake.ID) (*domain.QuotaFormula, error) {
	condominiumID, err := snowflake.ParseString(strings.TrimSpace(req.CondominiumID))
	if err != nil {
		return nil, domain.ErrCondominiumNotFound
	}
	currencyID, err := snowflake.ParseString(strings.TrimSpace(req.CurrencyID))
	if err != nil {
		return nil, domain.ErrCurrencyNotFound
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.BadRequest("Formula name is required")
	}
	if !req.FormulaType.Valid() {
		return nil, domain.ErrInvalidFormulaType
	}

	condominium, err := s.condominiumRepo.FindByID(ctx, s.db, condominiumID)
	if err != nil {
		return nil, err
	}
	if condominium == nil {
		return nil, domain.ErrCondominiumNotFound
	}
	currency, err := s.currencyRepo.FindByID(ctx, s.db, currencyID)
	if err != nil {
		return nil, err
	}
	if currency == nil {
		return nil, domain.ErrCurrencyNotFound
	}

	formula := &domain.QuotaFormula{
		ID:            s.genID.Generate(),
		CondominiumID: condominiumID,
		Name:          name,
		Description:   strings.TrimSpace(req.Description),
		FormulaType:   req.FormulaType,
		CurrencyID:    currencyID,
		IsActive:      true,
		CreatedBy:     actorID,
	}

	// Only the configuration matching the declared type is persisted. This
	// is what keeps the exactly-one-of invariant true at the data layer.
	switch req.FormulaType {
	case domain.FormulaTypeFixed:
		amount, err := validateFixedAmount(req.FixedAmount)
		if err != nil {
			return nil, err
		}
		formula.FixedAmount = decimal.NewNullDecimal(amount)

	case domain.FormulaTypeExpression:
		expression := strings.TrimSpace(req.Expression)
		if expression == "" {
			return nil, domain.ErrExpressionRequired
		}
		// Authoring errors surface at creation time, not at billing time.
		if err := expr.Validate(expression, domain.VariableAllowed); err != nil {
			return nil, apperr.BadRequestFrom(err)
		}
		formula.Expression = expression
		if len(req.Variables) > 0 {
			vars := datatypes.JSONMap{}
			for varName, value := range req.Variables {
				vars[varName] = value
			}
			formula.Variables = vars
		}

	case domain.FormulaTypePerUnit:
		if len(req.UnitAmounts) == 0 {
			return nil, domain.ErrUnitAmountsRequired
		}
		amounts := datatypes.JSONMap{}
		for unitID, raw := range req.UnitAmounts {
			value, err := decimal.NewFromString(strings.TrimSpace(raw))
			if err != nil || value.IsNegative() {
				return nil, domain.ErrInvalidUnitAmountValue
			}
			amounts[unitID] = value.String()
		}
		formula.UnitAmounts = amounts
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, formula); err != nil {
			return err
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			CondominiumID: condominiumID,
			Type:          events.EventFormulaCreated,
			Payload: map[string]any{
				"formula_id":   formula.ID.String(),
				"formula_type": string(formula.FormulaType),
				"name":         formula.Name,
			},
			DedupeKey: "formula.created:" + formula.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("quota formula created",
		zap.String("formula_id", formula.ID.String()),
		zap.String("condominium_id", condominiumID.String()),
		zap.String("formula_type", string(formula.FormulaType)),
	)
	return formula, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest, actorID snowflake.ID) (*domain.QuotaFormula, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrFormulaNotFound
	}
	reason := strings.TrimSpace(req.UpdateReason)
	if reason == "" {
		return nil, domain.ErrUpdateReasonRequired
	}

	formula, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if formula == nil {
		return nil, domain.ErrFormulaNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperr.BadRequest("Formula name is required")
		}
		formula.Name = name
	}
	if req.Description != nil {
		formula.Description = strings.TrimSpace(*req.Description)
	}
	if req.IsActive != nil {
		formula.IsActive = *req.IsActive
	}

	// Type is immutable; only the configuration for the existing type may
	// change, and it revalidates exactly like creation.
	switch formula.FormulaType {
	case domain.FormulaTypeFixed:
		if req.FixedAmount != nil {
			amount, err := validateFixedAmount(*req.FixedAmount)
			if err != nil {
				return nil, err
			}
			formula.FixedAmount = decimal.NewNullDecimal(amount)
		}
	case domain.FormulaTypeExpression:
		if req.Expression != nil {
			expression := strings.TrimSpace(*req.Expression)
			if expression == "" {
				return nil, domain.ErrExpressionRequired
			}
			if err := expr.Validate(expression, domain.VariableAllowed); err != nil {
				return nil, apperr.BadRequestFrom(err)
			}
			formula.Expression = expression
		}
		if req.Variables != nil {
			vars := datatypes.JSONMap{}
			for varName, value := range *req.Variables {
				vars[varName] = value
			}
			formula.Variables = vars
		}
	case domain.FormulaTypePerUnit:
		if req.UnitAmounts != nil {
			if len(*req.UnitAmounts) == 0 {
				return nil, domain.ErrUnitAmountsRequired
			}
			amounts := datatypes.JSONMap{}
			for unitID, raw := range *req.UnitAmounts {
				value, err := decimal.NewFromString(strings.TrimSpace(raw))
				if err != nil || value.IsNegative() {
					return nil, domain.ErrInvalidUnitAmountValue
				}
				amounts[unitID] = value.String()
			}
			formula.UnitAmounts = amounts
		}
	}

	formula.UpdatedBy = &actorID
	formula.UpdateReason = reason
	formula.UpdatedAt = time.Now().UTC()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, formula); err != nil {
			return err
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			CondominiumID: formula.CondominiumID,
			Type:          events.EventFormulaUpdated,
			Payload: map[string]any{
				"formula_id": formula.ID.String(),
				"reason":     reason,
			},
			DedupeKey: fmt.Sprintf("formula.updated:%s:%d", formula.ID.String(), formula.UpdatedAt.UnixNano()),
		})
	})
	if err != nil {
		return nil, err
	}

	s.cache.Delete(formula.ID)
	return formula, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (*domain.QuotaFormula, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil {
		return nil, domain.ErrFormulaNotFound
	}
	formula, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if formula == nil {
		return nil, domain.ErrFormulaNotFound
	}
	return formula, nil
}

func (s *Service) ListByCondominium(ctx context.Context, rawCondominiumID string, includeInactive bool) ([]domain.QuotaFormula, error) {
	condominiumID, err := snowflake.ParseString(strings.TrimSpace(rawCondominiumID))
	if err != nil {
		return nil, domain.ErrCondominiumNotFound
	}
	return s.repo.ListByCondominium(ctx, s.db, condominiumID, includeInactive)
}

func (s *Service) Evaluate(ctx context.Context, req domain.EvaluateRequest) (*domain.Evaluation, error) {
	formulaID, err := snowflake.ParseString(strings.TrimSpace(req.FormulaID))
	if err != nil {
		return nil, domain.ErrFormulaNotFound
	}
	unitID, err := snowflake.ParseString(strings.TrimSpace(req.UnitID))
	if err != nil {
		return nil, domain.ErrUnitNotFound
	}

	formula, err := s.loadFormula(ctx, formulaID)
	if err != nil {
		return nil, err
	}

	overrides := make(map[string]decimal.Decimal, len(req.Overrides))
	for name, value := range req.Overrides {
		overrides[name] = decimal.NewFromFloat(value)
	}
	return s.EvaluateFormula(ctx, formula, unitID, overrides)
}

func (s *Service) EvaluateFormula(ctx context.Context, formula *domain.QuotaFormula, unitID snowflake.ID, overrides map[string]decimal.Decimal) (*domain.Evaluation, error) {
	if formula == nil {
		return nil, domain.ErrFormulaNotFound
	}
	if !formula.IsActive {
		return nil, domain.ErrFormulaInactive
	}

	unit, err := s.unitRepo.FindByID(ctx, s.db, unitID)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, domain.ErrUnitNotFound
	}

	places, err := s.currencyPlaces(ctx, formula.CurrencyID)
	if err != nil {
		return nil, err
	}

	switch formula.FormulaType {
	case domain.FormulaTypeFixed:
		if !formula.FixedAmount.Valid {
			return nil, domain.ErrCalculationInvalid
		}
		return &domain.Evaluation{
			Amount:      formula.FixedAmount.Decimal.Round(places),
			FormulaType: domain.FormulaTypeFixed,
		}, nil

	case domain.FormulaTypePerUnit:
		amount, err := perUnitAmount(formula.UnitAmounts, unitID)
		if err != nil {
			return nil, err
		}
		return &domain.Evaluation{
			Amount:      amount.Round(places),
			FormulaType: domain.FormulaTypePerUnit,
		}, nil

	case domain.FormulaTypeExpression:
		vars := buildVariableContext(formula.Variables, unit, overrides)
		result, err := expr.Evaluate(formula.Expression, vars)
		if err != nil {
			if errors.Is(err, expr.ErrDivisionByZero) {
				return nil, domain.ErrCalculationInvalid
			}
			return nil, apperr.BadRequestFrom(err)
		}
		if result.IsNegative() {
			return nil, domain.ErrCalculationNegative
		}
		return &domain.Evaluation{
			Amount:      result.Round(places),
			FormulaType: domain.FormulaTypeExpression,
			Variables:   vars,
		}, nil

	default:
		return nil, domain.ErrInvalidFormulaType
	}
}

func (s *Service) loadFormula(ctx context.Context, id snowflake.ID) (*domain.QuotaFormula, error) {
	if cached, ok := s.cache.Get(id); ok {
		return &cached, nil
	}
	formula, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if formula == nil {
		return nil, domain.ErrFormulaNotFound
	}
	s.cache.Set(id, *formula, formulaCacheTTL)
	return formula, nil
}

func (s *Service) currencyPlaces(ctx context.Context, currencyID snowflake.ID) (int32, error) {
	currency, err := s.currencyRepo.FindByID(ctx, s.db, currencyID)
	if err != nil {
		return 0, err
	}
	if currency == nil {
		return 0, domain.ErrCurrencyNotFound
	}
	return currency.DecimalPlaces, nil
}

// buildVariableContext merges, in increasing precedence: stored formula
// defaults, the unit's physical attributes, and caller-supplied overrides.
func buildVariableContext(defaults datatypes.JSONMap, unit *unitdomain.Unit, overrides map[string]decimal.Decimal) map[string]decimal.Decimal {
	vars := make(map[string]decimal.Decimal)
	for name, raw := range defaults {
		if value, ok := toDecimal(raw); ok {
			vars[name] = value
		}
	}
	for name, value := range unit.Variables() {
		vars[name] = value
	}
	for name, value := range overrides {
		vars[name] = value
	}
	return vars
}

func perUnitAmount(unitAmounts datatypes.JSONMap, unitID snowflake.ID) (decimal.Decimal, error) {
	raw, ok := unitAmounts[unitID.String()]
	if !ok {
		return decimal.Zero, domain.ErrNoAmountForUnit
	}
	value, ok := toDecimal(raw)
	if !ok {
		return decimal.Zero, domain.ErrCalculationInvalid
	}
	return value, nil
}

// toDecimal converts JSONB round-tripped values (float64, string, int) into
// exact decimals.
func toDecimal(raw any) (decimal.Decimal, bool) {
	switch v := raw.(type) {
	case string:
		value, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, false
		}
		return value, true
	case float64:
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	default:
		return decimal.Zero, false
	}
}

func validateFixedAmount(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, domain.ErrFixedAmountRequired
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil || amount.IsNegative() {
		return decimal.Zero, domain.ErrFixedAmountInvalid
	}
	return amount, nil
}
