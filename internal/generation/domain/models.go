package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Frequency types for generation schedules.
const (
	FrequencyMonthly    = "monthly"
	FrequencyQuarterly  = "quarterly"
	FrequencySemiAnnual = "semi_annual"
	FrequencyAnnual     = "annual"
	FrequencyDays       = "days"
)

func ValidFrequency(frequency string) bool {
	switch frequency {
	case FrequencyMonthly, FrequencyQuarterly, FrequencySemiAnnual, FrequencyAnnual, FrequencyDays:
		return true
	}
	return false
}

// Generation run outcomes.
const (
	RunCompleted = "completed"
	RunPartial   = "partial"
	RunFailed    = "failed"
)

// How a generation run was triggered.
const (
	MethodScheduled = "scheduled"
	MethodManual    = "manual"
)

// GenerationSchedule configures recurring quota generation for one rule.
// Day fields are day-of-month values, clamped to short months at run time.
type GenerationSchedule struct {
	ID                    snowflake.ID  `gorm:"primaryKey" json:"id"`
	QuotaGenerationRuleID snowflake.ID  `gorm:"not null;index" json:"quota_generation_rule_id"`
	Name                  string        `gorm:"type:text;not null" json:"name"`
	FrequencyType         string        `gorm:"type:text;not null" json:"frequency_type"`
	FrequencyValue        int           `gorm:"not null;default:0" json:"frequency_value"`
	GenerationDay         int           `gorm:"not null" json:"generation_day"`
	PeriodsInAdvance      int           `gorm:"not null;default:1" json:"periods_in_advance"`
	IssueDay              int           `gorm:"not null" json:"issue_day"`
	DueDay                int           `gorm:"not null" json:"due_day"`
	GraceDays             int           `gorm:"not null;default:0" json:"grace_days"`
	IsActive              bool          `gorm:"not null;default:true;index" json:"is_active"`
	LastGeneratedPeriod   string        `gorm:"type:text" json:"last_generated_period,omitempty"`
	LastGeneratedAt       *time.Time    `json:"last_generated_at,omitempty"`
	NextGenerationDate    *time.Time    `gorm:"type:date;index" json:"next_generation_date,omitempty"`
	CreatedBy             snowflake.ID  `gorm:"not null" json:"created_by"`
	CreatedAt             time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedBy             *snowflake.ID `json:"updated_by,omitempty"`
	UpdatedAt             time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdateReason          string        `gorm:"type:text" json:"update_reason,omitempty"`
}

// TableName sets the database table name.
func (GenerationSchedule) TableName() string { return "quota_generation_schedules" }

// GenerationLog records the outcome of one generation run, successful or
// not, including a snapshot of the formula used.
type GenerationLog struct {
	ID                   snowflake.ID      `gorm:"primaryKey" json:"id"`
	GenerationRuleID     *snowflake.ID     `gorm:"index" json:"generation_rule_id,omitempty"`
	GenerationScheduleID *snowflake.ID     `gorm:"index" json:"generation_schedule_id,omitempty"`
	QuotaFormulaID       *snowflake.ID     `gorm:"index" json:"quota_formula_id,omitempty"`
	GenerationMethod     string            `gorm:"type:text;not null" json:"generation_method"`
	PeriodYear           int               `gorm:"not null;index:idx_quota_gen_logs_period" json:"period_year"`
	PeriodMonth          int               `gorm:"not null;index:idx_quota_gen_logs_period" json:"period_month"`
	PeriodDescription    string            `gorm:"type:text" json:"period_description"`
	QuotasCreated        int               `gorm:"not null;default:0" json:"quotas_created"`
	QuotasFailed         int               `gorm:"not null;default:0" json:"quotas_failed"`
	TotalAmount          decimal.Decimal   `gorm:"type:numeric(15,2);not null;default:0" json:"total_amount"`
	CurrencyID           *snowflake.ID     `json:"currency_id,omitempty"`
	Parameters           datatypes.JSONMap `gorm:"type:jsonb" json:"parameters,omitempty"`
	FormulaSnapshot      datatypes.JSONMap `gorm:"type:jsonb" json:"formula_snapshot,omitempty"`
	Status               string            `gorm:"type:text;not null;index" json:"status"`
	ErrorDetails         string            `gorm:"type:text" json:"error_details,omitempty"`
	GeneratedBy          snowflake.ID      `gorm:"not null" json:"generated_by"`
	GeneratedAt          time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"generated_at"`
}

// TableName sets the database table name.
func (GenerationLog) TableName() string { return "quota_generation_logs" }

var monthNames = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// PeriodDescription renders a period as "January 2026".
func PeriodDescription(year, month int) string {
	if month < 1 || month > 12 {
		return fmt.Sprintf("%d-%02d", year, month)
	}
	return fmt.Sprintf("%s %d", monthNames[month-1], year)
}

// PeriodKey renders a period as "2026-01" for schedule bookkeeping.
func PeriodKey(year, month int) string {
	return fmt.Sprintf("%d-%02d", year, month)
}

// BuildDate resolves a day-of-month within the period, clamping to the last
// day of short months (issue day 31 in February yields Feb 28/29).
func BuildDate(year, month, day int) time.Time {
	lastDay := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// TargetPeriod computes the billing period a run should generate, counting
// PeriodsInAdvance months forward from now.
func (s *GenerationSchedule) TargetPeriod(now time.Time) (year, month int) {
	advance := s.PeriodsInAdvance
	if advance <= 0 {
		advance = 1
	}
	target := time.Date(now.Year(), now.Month()+time.Month(advance), 1, 0, 0, 0, 0, time.UTC)
	return target.Year(), int(target.Month())
}

// NextRunDate computes when the schedule should fire again after a
// run at now.
func (s *GenerationSchedule) NextRunDate(now time.Time) time.Time {
	switch s.FrequencyType {
	case FrequencyMonthly:
		return BuildDate(now.Year(), int(now.Month())+1, s.GenerationDay)
	case FrequencyQuarterly:
		return BuildDate(now.Year(), int(now.Month())+3, s.GenerationDay)
	case FrequencySemiAnnual:
		return BuildDate(now.Year(), int(now.Month())+6, s.GenerationDay)
	case FrequencyAnnual:
		return BuildDate(now.Year()+1, int(now.Month()), s.GenerationDay)
	default:
		days := s.FrequencyValue
		if days <= 0 {
			days = s.GenerationDay
		}
		return now.UTC().AddDate(0, 0, days)
	}
}
