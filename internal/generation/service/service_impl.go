package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jadiazinf/condominio-core/internal/clock"
	"github.com/jadiazinf/condominio-core/internal/events"
	formuladomain "github.com/jadiazinf/condominio-core/internal/formula/domain"
	"github.com/jadiazinf/condominio-core/internal/generation/domain"
	ruledomain "github.com/jadiazinf/condominio-core/internal/generationrule/domain"
	"github.com/jadiazinf/condominio-core/internal/observability/metrics"
	quotadomain "github.com/jadiazinf/condominio-core/internal/quota/domain"
	unitdomain "github.com/jadiazinf/condominio-core/internal/unit/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SystemActor attributes automated runs in audit columns.
const SystemActor = snowflake.ID(0)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	ScheduleRepo domain.ScheduleRepository
	LogRepo      domain.LogRepository
	RuleRepo     ruledomain.Repository
	FormulaRepo  formuladomain.Repository
	FormulaSvc   formuladomain.Service
	UnitRepo     unitdomain.Repository
	QuotaRepo    quotadomain.Repository
	Outbox       *events.Outbox
	Metrics      *metrics.BillingMetrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	scheduleRepo domain.ScheduleRepository
	logRepo      domain.LogRepository
	ruleRepo     ruledomain.Repository
	formulaRepo  formuladomain.Repository
	formulaSvc   formuladomain.Service
	unitRepo     unitdomain.Repository
	quotaRepo    quotadomain.Repository
	outbox       *events.Outbox
	metrics      *metrics.BillingMetrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("generation.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		scheduleRepo: p.ScheduleRepo,
		logRepo:      p.LogRepo,
		ruleRepo:     p.RuleRepo,
		formulaRepo:  p.FormulaRepo,
		formulaSvc:   p.FormulaSvc,
		unitRepo:     p.UnitRepo,
		quotaRepo:    p.QuotaRepo,
		outbox:       p.Outbox,
		metrics:      p.Metrics,
	}
}

func (s *Service) CreateSchedule(ctx context.Context, req domain.CreateScheduleRequest, actorID snowflake.ID) (*domain.GenerationSchedule, error) {
	ruleID, err := snowflake.ParseString(strings.TrimSpace(req.QuotaGenerationRuleID))
	if err != nil {
		return nil, ruledomain.ErrRuleNotFound
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrScheduleNameNeeded
	}
	if !domain.ValidFrequency(req.FrequencyType) {
		return nil, domain.ErrInvalidFrequency
	}
	// 1..28 keeps day-of-month semantics stable in every month.
	for _, day := range []int{req.GenerationDay, req.IssueDay, req.DueDay} {
		if day < 1 || day > 28 {
			return nil, domain.ErrInvalidDayOfMonth
		}
	}

	rule, err := s.ruleRepo.FindByID(ctx, s.db, ruleID)
	if err != nil {
		return nil, err
	}
	if rule == nil || !rule.IsActive {
		return nil, domain.ErrRuleNotUsable
	}

	periodsInAdvance := req.PeriodsInAdvance
	if periodsInAdvance <= 0 {
		periodsInAdvance = 1
	}
	graceDays := req.GraceDays
	if graceDays < 0 {
		graceDays = 0
	}

	now := s.clock.Now()
	next := domain.BuildDate(now.Year(), int(now.Month()), req.GenerationDay)
	if !next.After(ruledomain.DateOnly(now)) {
		next = domain.BuildDate(now.Year(), int(now.Month())+1, req.GenerationDay)
	}

	schedule := &domain.GenerationSchedule{
		ID:                    s.genID.Generate(),
		QuotaGenerationRuleID: ruleID,
		Name:                  name,
		FrequencyType:         req.FrequencyType,
		FrequencyValue:        req.FrequencyValue,
		GenerationDay:         req.GenerationDay,
		PeriodsInAdvance:      periodsInAdvance,
		IssueDay:              req.IssueDay,
		DueDay:                req.DueDay,
		GraceDays:             graceDays,
		IsActive:              true,
		NextGenerationDate:    &next,
		CreatedBy:             actorID,
	}
	if err := s.scheduleRepo.Insert(ctx, s.db, schedule); err != nil {
		return nil, err
	}

	s.log.Info("generation schedule created",
		zap.String("schedule_id", schedule.ID.String()),
		zap.String("rule_id", ruleID.String()),
		zap.String("frequency", schedule.FrequencyType),
	)
	return schedule, nil
}

func (s *Service) GetSchedule(ctx context.Context, rawID string) (*domain.GenerationSchedule, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil {
		return nil, domain.ErrScheduleNotFound
	}
	schedule, err := s.scheduleRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, domain.ErrScheduleNotFound
	}
	return schedule, nil
}

func (s *Service) ListSchedulesByRule(ctx context.Context, rawRuleID string) ([]domain.GenerationSchedule, error) {
	ruleID, err := snowflake.ParseString(strings.TrimSpace(rawRuleID))
	if err != nil {
		return nil, ruledomain.ErrRuleNotFound
	}
	return s.scheduleRepo.ListByRule(ctx, s.db, ruleID)
}

type unitAmount struct {
	unit   unitdomain.Unit
	amount decimal.Decimal
}

func (s *Service) Generate(ctx context.Context, req domain.GenerateRequest, actorID snowflake.ID) (*domain.GenerateResult, error) {
	scheduleID, err := snowflake.ParseString(strings.TrimSpace(req.ScheduleID))
	if err != nil {
		return nil, domain.ErrScheduleNotFound
	}
	if req.PeriodMonth < 1 || req.PeriodMonth > 12 {
		return nil, domain.ErrInvalidPeriod
	}
	method := req.Method
	if method == "" {
		method = domain.MethodManual
	}

	schedule, err := s.scheduleRepo.FindByID(ctx, s.db, scheduleID)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, domain.ErrScheduleNotFound
	}

	rule, err := s.ruleRepo.FindByID(ctx, s.db, schedule.QuotaGenerationRuleID)
	if err != nil {
		return nil, err
	}
	if rule == nil || !rule.IsActive {
		return nil, domain.ErrRuleNotUsable
	}

	formula, err := s.formulaRepo.FindByID(ctx, s.db, rule.QuotaFormulaID)
	if err != nil {
		return nil, err
	}
	if formula == nil || !formula.IsActive {
		return nil, domain.ErrFormulaNotUsable
	}

	var units []unitdomain.Unit
	if rule.BuildingID != nil {
		units, err = s.unitRepo.ListByBuilding(ctx, s.db, *rule.BuildingID)
	} else {
		units, err = s.unitRepo.ListByCondominium(ctx, s.db, rule.CondominiumID)
	}
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, domain.ErrNoUnitsInScope
	}

	issueDate := domain.BuildDate(req.PeriodYear, req.PeriodMonth, schedule.IssueDay)
	dueDate := domain.BuildDate(req.PeriodYear, req.PeriodMonth, schedule.DueDay)
	periodDescription := domain.PeriodDescription(req.PeriodYear, req.PeriodMonth)

	// Pre-compute amounts before opening the write transaction. A unit
	// whose amount cannot be computed is counted as failed without
	// blocking the rest of the batch.
	amounts := make([]unitAmount, 0, len(units))
	failed := 0
	var errorLines []string
	for i := range units {
		evaluation, err := s.formulaSvc.EvaluateFormula(ctx, formula, units[i].ID, nil)
		if err != nil {
			failed++
			errorLines = append(errorLines, fmt.Sprintf("Unit %s: %v", units[i].ID, err))
			s.log.Warn("amount computation failed",
				zap.String("unit_id", units[i].ID.String()),
				zap.Error(err),
			)
			continue
		}
		amounts = append(amounts, unitAmount{unit: units[i], amount: evaluation.Amount})
	}

	now := s.clock.Now()
	result := &domain.GenerateResult{QuotasFailed: failed, TotalAmount: decimal.Zero}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, entry := range amounts {
			exists, err := s.quotaRepo.ExistsForUnitConceptPeriod(ctx, tx, entry.unit.ID, rule.PaymentConceptID, req.PeriodYear, req.PeriodMonth)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			quota := &quotadomain.Quota{
				ID:                s.genID.Generate(),
				UnitID:            entry.unit.ID,
				PaymentConceptID:  rule.PaymentConceptID,
				PeriodYear:        req.PeriodYear,
				PeriodMonth:       req.PeriodMonth,
				PeriodDescription: periodDescription,
				BaseAmount:        entry.amount,
				CurrencyID:        formula.CurrencyID,
				InterestAmount:    decimal.Zero,
				IssueDate:         issueDate,
				DueDate:           dueDate,
				Status:            quotadomain.StatusPending,
				PaidAmount:        decimal.Zero,
				Balance:           entry.amount,
				CreatedBy:         actorID,
			}
			if err := s.quotaRepo.Insert(ctx, tx, quota); err != nil {
				return err
			}
			result.QuotasCreated++
			result.TotalAmount = result.TotalAmount.Add(entry.amount)
		}

		status := domain.RunCompleted
		switch {
		case result.QuotasFailed > 0 && result.QuotasCreated > 0:
			status = domain.RunPartial
		case result.QuotasFailed > 0 && result.QuotasCreated == 0:
			status = domain.RunFailed
		}

		ruleID := rule.ID
		formulaID := formula.ID
		currencyID := formula.CurrencyID
		log := &domain.GenerationLog{
			ID:                   s.genID.Generate(),
			GenerationRuleID:     &ruleID,
			GenerationScheduleID: &scheduleID,
			QuotaFormulaID:       &formulaID,
			GenerationMethod:     method,
			PeriodYear:           req.PeriodYear,
			PeriodMonth:          req.PeriodMonth,
			PeriodDescription:    periodDescription,
			QuotasCreated:        result.QuotasCreated,
			QuotasFailed:         result.QuotasFailed,
			TotalAmount:          result.TotalAmount,
			CurrencyID:           &currencyID,
			Parameters: datatypes.JSONMap{
				"schedule_id": scheduleID.String(),
				"rule_id":     ruleID.String(),
				"formula_id":  formulaID.String(),
				"issue_date":  issueDate.Format("2006-01-02"),
				"due_date":    dueDate.Format("2006-01-02"),
			},
			FormulaSnapshot: formulaSnapshot(formula),
			Status:          status,
			ErrorDetails:    strings.Join(errorLines, "\n"),
			GeneratedBy:     actorID,
			GeneratedAt:     now,
		}
		if err := s.logRepo.Insert(ctx, tx, log); err != nil {
			return err
		}
		result.LogID = log.ID

		schedule.LastGeneratedPeriod = domain.PeriodKey(req.PeriodYear, req.PeriodMonth)
		lastGeneratedAt := now
		schedule.LastGeneratedAt = &lastGeneratedAt
		next := schedule.NextRunDate(now)
		schedule.NextGenerationDate = &next
		schedule.UpdatedAt = now
		if err := s.scheduleRepo.Update(ctx, tx, schedule); err != nil {
			return err
		}

		payload := events.QuotaGeneratedPayload{
			GenerationLogID: log.ID.String(),
			RuleID:          ruleID.String(),
			Period:          schedule.LastGeneratedPeriod,
			QuotasCreated:   result.QuotasCreated,
			QuotasFailed:    result.QuotasFailed,
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			CondominiumID: rule.CondominiumID,
			Type:          events.EventQuotaGenerated,
			Payload:       payload.ToMap(),
			DedupeKey:     "quota.generated:" + log.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AddQuotasCreated(result.QuotasCreated)
	s.metrics.AddQuotasFailed(result.QuotasFailed)
	s.log.Info("generation run finished",
		zap.String("schedule_id", scheduleID.String()),
		zap.String("period", domain.PeriodKey(req.PeriodYear, req.PeriodMonth)),
		zap.Int("quotas_created", result.QuotasCreated),
		zap.Int("quotas_failed", result.QuotasFailed),
		zap.String("total_amount", result.TotalAmount.StringFixed(2)),
	)
	return result, nil
}

func (s *Service) RunDue(ctx context.Context, asOf time.Time) (int, error) {
	due, err := s.scheduleRepo.ListDue(ctx, s.db, ruledomain.DateOnly(asOf))
	if err != nil {
		return 0, err
	}

	ran := 0
	for i := range due {
		year, month := due[i].TargetPeriod(asOf)
		_, err := s.Generate(ctx, domain.GenerateRequest{
			ScheduleID:  due[i].ID.String(),
			PeriodYear:  year,
			PeriodMonth: month,
			Method:      domain.MethodScheduled,
		}, SystemActor)
		if err != nil {
			// One broken schedule must not starve the rest.
			s.log.Error("scheduled generation failed",
				zap.String("schedule_id", due[i].ID.String()),
				zap.Error(err),
			)
			continue
		}
		ran++
	}
	return ran, nil
}

func (s *Service) ListLogsBySchedule(ctx context.Context, rawScheduleID string) ([]domain.GenerationLog, error) {
	scheduleID, err := snowflake.ParseString(strings.TrimSpace(rawScheduleID))
	if err != nil {
		return nil, domain.ErrScheduleNotFound
	}
	return s.logRepo.ListBySchedule(ctx, s.db, scheduleID)
}

func (s *Service) ListLogsByRule(ctx context.Context, rawRuleID string) ([]domain.GenerationLog, error) {
	ruleID, err := snowflake.ParseString(strings.TrimSpace(rawRuleID))
	if err != nil {
		return nil, ruledomain.ErrRuleNotFound
	}
	return s.logRepo.ListByRule(ctx, s.db, ruleID)
}

func formulaSnapshot(formula *formuladomain.QuotaFormula) datatypes.JSONMap {
	snapshot := datatypes.JSONMap{
		"id":           formula.ID.String(),
		"name":         formula.Name,
		"formula_type": string(formula.FormulaType),
	}
	if formula.FixedAmount.Valid {
		snapshot["fixed_amount"] = formula.FixedAmount.Decimal.String()
	}
	if formula.Expression != "" {
		snapshot["expression"] = formula.Expression
	}
	return snapshot
}
