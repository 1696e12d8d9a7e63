package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jadiazinf/condominio-core/internal/apperr"
)

// MinReasonLength is the shortest acceptable adjustment reason. Short
// reasons make the audit trail useless.
const MinReasonLength = 10

// AdjustRequest changes a quota's base amount. NewAmount is a decimal
// string so callers cannot smuggle float rounding into the ledger.
type AdjustRequest struct {
	QuotaID        string         `json:"quota_id"`
	NewAmount      string         `json:"new_amount"`
	AdjustmentType AdjustmentType `json:"adjustment_type"`
	Reason         string         `json:"reason"`
}

// AdjustResult pairs the updated quota with its ledger entry and a
// human-readable summary of the change.
type AdjustResult struct {
	Quota      *Quota           `json:"quota"`
	Adjustment *QuotaAdjustment `json:"adjustment"`
	Message    string           `json:"message"`
}

type Service interface {
	// Adjust validates, appends the adjustment record, recomputes the
	// balance and transitions status, all in one transaction.
	Adjust(ctx context.Context, req AdjustRequest, actorID snowflake.ID) (*AdjustResult, error)

	GetByID(ctx context.Context, id string) (*Quota, error)
	ListByUnit(ctx context.Context, unitID string) ([]Quota, error)
	ListByPeriod(ctx context.Context, year, month int) ([]Quota, error)

	GetAdjustmentByID(ctx context.Context, id string) (*QuotaAdjustment, error)
	ListAdjustmentsByQuota(ctx context.Context, quotaID string) ([]QuotaAdjustment, error)
	ListAdjustmentsByUser(ctx context.Context, userID string) ([]QuotaAdjustment, error)
	ListAdjustmentsByType(ctx context.Context, adjustmentType AdjustmentType) ([]QuotaAdjustment, error)

	// MarkOverdue transitions pending quotas past their due date as of the
	// given day and returns the number marked.
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

// Contract errors; messages are asserted by clients and tests.
var (
	ErrQuotaNotFound         = apperr.NotFound("Quota not found")
	ErrUnitNotFound          = apperr.NotFound("Unit not found")
	ErrAdjustmentNotFound    = apperr.NotFound("Adjustment not found")
	ErrQuotaCancelled        = apperr.BadRequest("Cannot adjust a cancelled quota")
	ErrAmountUnchanged       = apperr.BadRequest("New amount must be different from current amount")
	ErrAmountNegative        = apperr.BadRequest("New amount cannot be negative")
	ErrWaiverNotZero         = apperr.BadRequest("Waiver adjustment must set amount to 0")
	ErrInvalidAmount         = apperr.BadRequest("New amount must be a valid decimal number")
	ErrInvalidAdjustmentType = apperr.BadRequest("Invalid adjustment type")
	ErrReasonTooShort        = apperr.BadRequest("Reason must be at least 10 characters long")
)
