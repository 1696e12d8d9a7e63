package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jadiazinf/condominio-core/internal/apperr"
	"github.com/shopspring/decimal"
)

// CreateScheduleRequest registers a recurring generation schedule for a
// rule.
type CreateScheduleRequest struct {
	QuotaGenerationRuleID string `json:"quota_generation_rule_id"`
	Name                  string `json:"name"`
	FrequencyType         string `json:"frequency_type"`
	FrequencyValue        int    `json:"frequency_value"`
	GenerationDay         int    `json:"generation_day"`
	PeriodsInAdvance      int    `json:"periods_in_advance"`
	IssueDay              int    `json:"issue_day"`
	DueDay                int    `json:"due_day"`
	GraceDays             int    `json:"grace_days"`
}

// GenerateRequest triggers one generation run for a schedule and period.
type GenerateRequest struct {
	ScheduleID  string `json:"schedule_id"`
	PeriodYear  int    `json:"period_year"`
	PeriodMonth int    `json:"period_month"`
	Method      string `json:"-"`
}

// GenerateResult summarizes one run.
type GenerateResult struct {
	QuotasCreated int             `json:"quotas_created"`
	QuotasFailed  int             `json:"quotas_failed"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	LogID         snowflake.ID    `json:"log_id"`
}

type Service interface {
	CreateSchedule(ctx context.Context, req CreateScheduleRequest, actorID snowflake.ID) (*GenerationSchedule, error)
	GetSchedule(ctx context.Context, id string) (*GenerationSchedule, error)
	ListSchedulesByRule(ctx context.Context, ruleID string) ([]GenerationSchedule, error)

	// Generate creates quotas for every unit in the rule's scope for the
	// requested period. Amounts are pre-computed outside the write
	// transaction; inserts, the log row and schedule bookkeeping commit
	// atomically. Units with an existing non-cancelled quota are skipped.
	Generate(ctx context.Context, req GenerateRequest, actorID snowflake.ID) (*GenerateResult, error)

	// RunDue executes every schedule due as of the given day and returns
	// how many ran.
	RunDue(ctx context.Context, asOf time.Time) (int, error)

	ListLogsBySchedule(ctx context.Context, scheduleID string) ([]GenerationLog, error)
	ListLogsByRule(ctx context.Context, ruleID string) ([]GenerationLog, error)
}

// Contract errors; messages are asserted by clients and tests.
var (
	ErrScheduleNotFound   = apperr.NotFound("Schedule not found")
	ErrRuleNotUsable      = apperr.BadRequest("Generation rule not found or inactive")
	ErrFormulaNotUsable   = apperr.BadRequest("Formula not found or inactive")
	ErrNoUnitsInScope     = apperr.BadRequest("No units found in scope")
	ErrInvalidFrequency   = apperr.BadRequest("Invalid frequency type")
	ErrInvalidDayOfMonth  = apperr.BadRequest("Day values must be between 1 and 28")
	ErrInvalidPeriod      = apperr.BadRequest("Period month must be between 1 and 12")
	ErrScheduleNameNeeded = apperr.BadRequest("Schedule name is required")
)
