package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jadiazinf/condominio-core/internal/apperr"
	"github.com/jadiazinf/condominio-core/internal/clock"
	condominiumdomain "github.com/jadiazinf/condominio-core/internal/condominium/domain"
	"github.com/jadiazinf/condominio-core/internal/events"
	formuladomain "github.com/jadiazinf/condominio-core/internal/formula/domain"
	"github.com/jadiazinf/condominio-core/internal/generationrule/domain"
	paymentconceptdomain "github.com/jadiazinf/condominio-core/internal/paymentconcept/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Repo            domain.Repository
	CondominiumRepo condominiumdomain.Repository
	ConceptRepo     paymentconceptdomain.Repository
	FormulaRepo     formuladomain.Repository
	Outbox          *events.Outbox
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	clock           clock.Clock
	repo            domain.Repository
	condominiumRepo condominiumdomain.Repository
	conceptRepo     paymentconceptdomain.Repository
	formulaRepo     formuladomain.Repository
	outbox          *events.Outbox
}

func NewService(p Params) domain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("generationrule.service"),
		genID:           p.GenID,
		clock:           p.Clock,
		repo:            p.Repo,
		condominiumRepo: p.CondominiumRepo,
		conceptRepo:     p.ConceptRepo,
		formulaRepo:     p.FormulaRepo,
		outbox:          p.Outbox,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest, actorID snowflake.ID) (*domain.QuotaGenerationRule, error) {
	condominiumID, err := snowflake.ParseString(strings.TrimSpace(req.CondominiumID))
	if err != nil {
		return nil, domain.ErrCondominiumNotFound
	}
	conceptID, err := snowflake.ParseString(strings.TrimSpace(req.PaymentConceptID))
	if err != nil {
		return nil, domain.ErrPaymentConceptNotFound
	}
	formulaID, err := snowflake.ParseString(strings.TrimSpace(req.QuotaFormulaID))
	if err != nil {
		return nil, domain.ErrFormulaNotFound
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.BadRequest("Rule name is required")
	}

	effectiveFrom, err := parseDate(req.EffectiveFrom)
	if err != nil {
		return nil, domain.ErrInvalidEffectiveFrom
	}
	var effectiveTo *time.Time
	if strings.TrimSpace(req.EffectiveTo) != "" {
		to, err := parseDate(req.EffectiveTo)
		if err != nil {
			return nil, apperr.BadRequest("Effective to date must be YYYY-MM-DD")
		}
		effectiveTo = &to
	}
	if effectiveTo != nil && effectiveFrom.After(*effectiveTo) {
		return nil, domain.ErrInvalidDateWindow
	}

	condominium, err := s.condominiumRepo.FindByID(ctx, s.db, condominiumID)
	if err != nil {
		return nil, err
	}
	if condominium == nil {
		return nil, domain.ErrCondominiumNotFound
	}

	var buildingID *snowflake.ID
	if strings.TrimSpace(req.BuildingID) != "" {
		id, err := snowflake.ParseString(strings.TrimSpace(req.BuildingID))
		if err != nil {
			return nil, domain.ErrBuildingNotFound
		}
		building, err := s.condominiumRepo.FindBuildingByID(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		if building == nil {
			return nil, domain.ErrBuildingNotFound
		}
		if building.CondominiumID != condominiumID {
			return nil, domain.ErrBuildingWrongCondo
		}
		buildingID = &id
	}

	concept, err := s.conceptRepo.FindByID(ctx, s.db, conceptID)
	if err != nil {
		return nil, err
	}
	if concept == nil {
		return nil, domain.ErrPaymentConceptNotFound
	}

	formula, err := s.formulaRepo.FindByID(ctx, s.db, formulaID)
	if err != nil {
		return nil, err
	}
	if formula == nil {
		return nil, domain.ErrFormulaNotFound
	}
	if formula.CondominiumID != condominiumID {
		return nil, domain.ErrFormulaWrongCondo
	}
	if !formula.IsActive {
		return nil, domain.ErrFormulaInactive
	}

	rule := &domain.QuotaGenerationRule{
		ID:               s.genID.Generate(),
		CondominiumID:    condominiumID,
		BuildingID:       buildingID,
		PaymentConceptID: conceptID,
		QuotaFormulaID:   formulaID,
		Name:             name,
		Description:      strings.TrimSpace(req.Description),
		EffectiveFrom:    effectiveFrom,
		EffectiveTo:      effectiveTo,
		IsActive:         true,
		CreatedBy:        actorID,
	}

	// The overlap check and the insert share one transaction so concurrent
	// creates cannot both pass the check.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.ListActiveByConcept(ctx, tx, condominiumID, conceptID)
		if err != nil {
			return err
		}
		for i := range existing {
			if !sameScope(rule.BuildingID, existing[i].BuildingID) {
				continue
			}
			if domain.Overlaps(rule.EffectiveFrom, rule.EffectiveTo, existing[i].EffectiveFrom, existing[i].EffectiveTo) {
				return domain.ErrOverlappingRule
			}
		}
		if err := s.repo.Insert(ctx, tx, rule); err != nil {
			return err
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			CondominiumID: condominiumID,
			Type:          events.EventRuleCreated,
			Payload: map[string]any{
				"rule_id":            rule.ID.String(),
				"payment_concept_id": conceptID.String(),
				"quota_formula_id":   formulaID.String(),
				"effective_from":     rule.EffectiveFrom.Format(dateLayout),
			},
			DedupeKey: "generation_rule.created:" + rule.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("generation rule created",
		zap.String("rule_id", rule.ID.String()),
		zap.String("condominium_id", condominiumID.String()),
		zap.Bool("building_scoped", rule.BuildingScoped()),
	)
	return rule, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (*domain.QuotaGenerationRule, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil {
		return nil, domain.ErrRuleNotFound
	}
	rule, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, domain.ErrRuleNotFound
	}
	return rule, nil
}

func (s *Service) ListByCondominium(ctx context.Context, rawCondominiumID string, includeInactive bool) ([]domain.QuotaGenerationRule, error) {
	condominiumID, err := snowflake.ParseString(strings.TrimSpace(rawCondominiumID))
	if err != nil {
		return nil, domain.ErrCondominiumNotFound
	}
	return s.repo.ListByCondominium(ctx, s.db, condominiumID, includeInactive)
}

func (s *Service) Deactivate(ctx context.Context, rawID string, reason string, actorID snowflake.ID) (*domain.QuotaGenerationRule, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil {
		return nil, domain.ErrRuleNotFound
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.ErrDeactivateReasonMissing
	}

	rule, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, domain.ErrRuleNotFound
	}
	if !rule.IsActive {
		return rule, nil
	}

	rule.IsActive = false
	rule.UpdatedBy = &actorID
	rule.UpdateReason = reason
	rule.UpdatedAt = s.clock.Now()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, rule); err != nil {
			return err
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			CondominiumID: rule.CondominiumID,
			Type:          events.EventRuleDeactivated,
			Payload: map[string]any{
				"rule_id": rule.ID.String(),
				"reason":  reason,
			},
			DedupeKey: "generation_rule.deactivated:" + rule.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *Service) Resolve(ctx context.Context, req domain.ResolveRequest) (*domain.QuotaGenerationRule, error) {
	condominiumID, err := snowflake.ParseString(strings.TrimSpace(req.CondominiumID))
	if err != nil {
		return nil, domain.ErrCondominiumNotFound
	}
	conceptID, err := snowflake.ParseString(strings.TrimSpace(req.PaymentConceptID))
	if err != nil {
		return nil, domain.ErrPaymentConceptNotFound
	}
	targetDate, err := parseDate(req.TargetDate)
	if err != nil {
		return nil, apperr.BadRequest("Target date is required and must be YYYY-MM-DD")
	}

	var buildingID *snowflake.ID
	if strings.TrimSpace(req.BuildingID) != "" {
		id, err := snowflake.ParseString(strings.TrimSpace(req.BuildingID))
		if err != nil {
			return nil, domain.ErrBuildingNotFound
		}
		buildingID = &id
	}

	candidates, err := s.repo.FindCandidates(ctx, s.db, condominiumID, conceptID, targetDate)
	if err != nil {
		return nil, err
	}
	rule := domain.ResolveCandidates(candidates, buildingID, targetDate)
	if rule == nil {
		return nil, domain.ErrNoRule
	}
	return rule, nil
}

func sameScope(a, b *snowflake.ID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func parseDate(raw string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, strings.TrimSpace(raw), time.UTC)
}
