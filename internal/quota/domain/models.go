package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Quota statuses. Cancelled is terminal.
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusOverdue   = "overdue"
	StatusCancelled = "cancelled"
)

// AdjustmentType classifies why a quota's base amount changed.
type AdjustmentType string

const (
	AdjustmentDiscount   AdjustmentType = "discount"
	AdjustmentIncrease   AdjustmentType = "increase"
	AdjustmentCorrection AdjustmentType = "correction"
	AdjustmentWaiver     AdjustmentType = "waiver"
)

func (t AdjustmentType) Valid() bool {
	switch t {
	case AdjustmentDiscount, AdjustmentIncrease, AdjustmentCorrection, AdjustmentWaiver:
		return true
	}
	return false
}

// Quota is one billing obligation for one unit, concept and period. Amounts
// are exact decimals; Balance is always BaseAmount + InterestAmount -
// PaidAmount, recomputed on every mutation.
type Quota struct {
	ID                   snowflake.ID        `gorm:"primaryKey" json:"id"`
	UnitID               snowflake.ID        `gorm:"not null;index" json:"unit_id"`
	PaymentConceptID     snowflake.ID        `gorm:"not null;index" json:"payment_concept_id"`
	PeriodYear           int                 `gorm:"not null;index:idx_quotas_period" json:"period_year"`
	PeriodMonth          int                 `gorm:"not null;index:idx_quotas_period" json:"period_month"`
	PeriodDescription    string              `gorm:"type:text" json:"period_description"`
	BaseAmount           decimal.Decimal     `gorm:"type:numeric(15,2);not null" json:"base_amount"`
	CurrencyID           snowflake.ID        `gorm:"not null" json:"currency_id"`
	InterestAmount       decimal.Decimal     `gorm:"type:numeric(15,2);not null;default:0" json:"interest_amount"`
	AmountInBaseCurrency decimal.NullDecimal `gorm:"type:numeric(15,2)" json:"amount_in_base_currency,omitempty"`
	ExchangeRateUsed     decimal.NullDecimal `gorm:"type:numeric(15,6)" json:"exchange_rate_used,omitempty"`
	IssueDate            time.Time           `gorm:"type:date;not null" json:"issue_date"`
	DueDate              time.Time           `gorm:"type:date;not null;index" json:"due_date"`
	Status               string              `gorm:"type:text;not null;default:pending;index" json:"status"`
	PaidAmount           decimal.Decimal     `gorm:"type:numeric(15,2);not null;default:0" json:"paid_amount"`
	Balance              decimal.Decimal     `gorm:"type:numeric(15,2);not null" json:"balance"`
	Notes                string              `gorm:"type:text" json:"notes,omitempty"`
	Metadata             datatypes.JSONMap   `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedBy            snowflake.ID        `gorm:"not null" json:"created_by"`
	CreatedAt            time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt            time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Quota) TableName() string { return "quotas" }

// ComputeBalance derives the outstanding balance from the amount columns.
func (q *Quota) ComputeBalance() decimal.Decimal {
	return q.BaseAmount.Add(q.InterestAmount).Sub(q.PaidAmount)
}

// QuotaAdjustment is one append-only ledger entry recording a base-amount
// change. Rows are never updated or deleted.
type QuotaAdjustment struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	QuotaID        snowflake.ID    `gorm:"not null;index" json:"quota_id"`
	PreviousAmount decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"previous_amount"`
	NewAmount      decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"new_amount"`
	AdjustmentType AdjustmentType  `gorm:"type:text;not null;index" json:"adjustment_type"`
	Reason         string          `gorm:"type:text;not null" json:"reason"`
	CreatedBy      snowflake.ID    `gorm:"not null;index" json:"created_by"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (QuotaAdjustment) TableName() string { return "quota_adjustments" }
