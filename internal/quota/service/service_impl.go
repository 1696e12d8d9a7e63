package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jadiazinf/condominio-core/internal/clock"
	condominiumdomain "github.com/jadiazinf/condominio-core/internal/condominium/domain"
	"github.com/jadiazinf/condominio-core/internal/events"
	"github.com/jadiazinf/condominio-core/internal/observability/metrics"
	"github.com/jadiazinf/condominio-core/internal/quota/domain"
	unitdomain "github.com/jadiazinf/condominio-core/internal/unit/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Repo            domain.Repository
	AdjustmentRepo  domain.AdjustmentRepository
	UnitRepo        unitdomain.Repository
	CondominiumRepo condominiumdomain.Repository
	Outbox          *events.Outbox
	Metrics         *metrics.BillingMetrics `optional:"true"`
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	clock           clock.Clock
	repo            domain.Repository
	adjustmentRepo  domain.AdjustmentRepository
	unitRepo        unitdomain.Repository
	condominiumRepo condominiumdomain.Repository
	outbox          *events.Outbox
	metrics         *metrics.BillingMetrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("quota.service"),
		genID:           p.GenID,
		clock:           p.Clock,
		repo:            p.Repo,
		adjustmentRepo:  p.AdjustmentRepo,
		unitRepo:        p.UnitRepo,
		condominiumRepo: p.CondominiumRepo,
		outbox:          p.Outbox,
		metrics:         p.Metrics,
	}
}

func (s *Service) Adjust(ctx context.Context, req domain.AdjustRequest, actorID snowflake.ID) (*domain.AdjustResult, error) {
	quotaID, err := snowflake.ParseString(strings.TrimSpace(req.QuotaID))
	if err != nil {
		return nil, domain.ErrQuotaNotFound
	}
	if !req.AdjustmentType.Valid() {
		return nil, domain.ErrInvalidAdjustmentType
	}
	reason := strings.TrimSpace(req.Reason)
	if len(reason) < domain.MinReasonLength {
		return nil, domain.ErrReasonTooShort
	}
	newAmount, err := decimal.NewFromString(strings.TrimSpace(req.NewAmount))
	if err != nil {
		return nil, domain.ErrInvalidAmount
	}

	var result *domain.AdjustResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quota, err := s.repo.FindByIDForUpdate(ctx, tx, quotaID)
		if err != nil {
			return err
		}
		if quota == nil {
			return domain.ErrQuotaNotFound
		}
		if quota.Status == domain.StatusCancelled {
			return domain.ErrQuotaCancelled
		}
		if newAmount.Equal(quota.BaseAmount) {
			return domain.ErrAmountUnchanged
		}
		if req.AdjustmentType == domain.AdjustmentWaiver {
			if !newAmount.IsZero() {
				return domain.ErrWaiverNotZero
			}
		} else if newAmount.IsNegative() {
			return domain.ErrAmountNegative
		}

		previousAmount := quota.BaseAmount
		adjustment := &domain.QuotaAdjustment{
			ID:             s.genID.Generate(),
			QuotaID:        quota.ID,
			PreviousAmount: previousAmount,
			NewAmount:      newAmount,
			AdjustmentType: req.AdjustmentType,
			Reason:         reason,
			CreatedBy:      actorID,
			CreatedAt:      s.clock.Now(),
		}
		if err := s.adjustmentRepo.Insert(ctx, tx, adjustment); err != nil {
			return err
		}

		quota.BaseAmount = newAmount
		quota.Balance = quota.ComputeBalance()
		switch {
		case req.AdjustmentType == domain.AdjustmentWaiver:
			// A waiver zeroes and closes the quota.
			quota.Status = domain.StatusCancelled
		case quota.Balance.LessThanOrEqual(decimal.Zero):
			quota.Status = domain.StatusPaid
		}
		quota.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, quota); err != nil {
			return err
		}

		condominiumID, err := s.condominiumIDForUnit(ctx, tx, quota.UnitID)
		if err != nil {
			return err
		}
		payload := events.QuotaAdjustedPayload{
			QuotaID:        quota.ID.String(),
			AdjustmentID:   adjustment.ID.String(),
			AdjustmentType: string(adjustment.AdjustmentType),
			PreviousAmount: previousAmount.StringFixed(2),
			NewAmount:      newAmount.StringFixed(2),
			Status:         quota.Status,
		}
		if err := s.outbox.PublishTx(ctx, tx, events.Event{
			CondominiumID: condominiumID,
			Type:          events.EventQuotaAdjusted,
			Payload:       payload.ToMap(),
			DedupeKey:     "quota.adjusted:" + adjustment.ID.String(),
		}); err != nil {
			return err
		}

		result = &domain.AdjustResult{
			Quota:      quota,
			Adjustment: adjustment,
			Message:    adjustMessage(previousAmount, newAmount),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncAdjustment(string(req.AdjustmentType))
	s.log.Info("quota adjusted",
		zap.String("quota_id", result.Quota.ID.String()),
		zap.String("adjustment_type", string(req.AdjustmentType)),
		zap.String("previous_amount", result.Adjustment.PreviousAmount.StringFixed(2)),
		zap.String("new_amount", result.Adjustment.NewAmount.StringFixed(2)),
		zap.String("status", result.Quota.Status),
	)
	return result, nil
}

// adjustMessage renders the signed delta, e.g.
// "Quota adjusted from 50.00 to 40.00 (-10.00)".
func adjustMessage(previous, current decimal.Decimal) string {
	delta := current.Sub(previous)
	sign := ""
	if delta.IsPositive() {
		sign = "+"
	}
	return fmt.Sprintf("Quota adjusted from %s to %s (%s%s)",
		previous.StringFixed(2), current.StringFixed(2), sign, delta.StringFixed(2))
}

func (s *Service) GetByID(ctx context.Context, rawID string) (*domain.Quota, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil {
		return nil, domain.ErrQuotaNotFound
	}
	quota, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if quota == nil {
		return nil, domain.ErrQuotaNotFound
	}
	return quota, nil
}

func (s *Service) ListByUnit(ctx context.Context, rawUnitID string) ([]domain.Quota, error) {
	unitID, err := snowflake.ParseString(strings.TrimSpace(rawUnitID))
	if err != nil {
		return nil, domain.ErrUnitNotFound
	}
	return s.repo.ListByUnit(ctx, s.db, unitID)
}

func (s *Service) ListByPeriod(ctx context.Context, year, month int) ([]domain.Quota, error) {
	return s.repo.ListByPeriod(ctx, s.db, year, month)
}

func (s *Service) GetAdjustmentByID(ctx context.Context, rawID string) (*domain.QuotaAdjustment, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil {
		return nil, domain.ErrAdjustmentNotFound
	}
	adjustment, err := s.adjustmentRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if adjustment == nil {
		return nil, domain.ErrAdjustmentNotFound
	}
	return adjustment, nil
}

func (s *Service) ListAdjustmentsByQuota(ctx context.Context, rawQuotaID string) ([]domain.QuotaAdjustment, error) {
	quotaID, err := snowflake.ParseString(strings.TrimSpace(rawQuotaID))
	if err != nil {
		return nil, domain.ErrQuotaNotFound
	}
	return s.adjustmentRepo.ListByQuota(ctx, s.db, quotaID)
}

func (s *Service) ListAdjustmentsByUser(ctx context.Context, rawUserID string) ([]domain.QuotaAdjustment, error) {
	userID, err := snowflake.ParseString(strings.TrimSpace(rawUserID))
	if err != nil {
		return nil, domain.ErrAdjustmentNotFound
	}
	return s.adjustmentRepo.ListByUser(ctx, s.db, userID)
}

func (s *Service) ListAdjustmentsByType(ctx context.Context, adjustmentType domain.AdjustmentType) ([]domain.QuotaAdjustment, error) {
	if !adjustmentType.Valid() {
		return nil, domain.ErrInvalidAdjustmentType
	}
	return s.adjustmentRepo.ListByType(ctx, s.db, adjustmentType)
}

func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	marked, err := s.repo.MarkOverdue(ctx, s.db, asOf)
	if err != nil {
		return 0, err
	}
	if marked > 0 {
		s.log.Info("quotas marked overdue",
			zap.Int64("count", marked),
			zap.String("as_of", asOf.Format("2006-01-02")),
		)
	}
	return marked, nil
}

func (s *Service) condominiumIDForUnit(ctx context.Context, db *gorm.DB, unitID snowflake.ID) (snowflake.ID, error) {
	unit, err := s.unitRepo.FindByID(ctx, db, unitID)
	if err != nil {
		return 0, err
	}
	if unit == nil {
		return 0, domain.ErrUnitNotFound
	}
	building, err := s.condominiumRepo.FindBuildingByID(ctx, db, unit.BuildingID)
	if err != nil {
		return 0, err
	}
	if building == nil {
		return 0, domain.ErrUnitNotFound
	}
	return building.CondominiumID, nil
}
