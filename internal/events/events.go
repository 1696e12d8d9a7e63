package events

// Billing event types emitted by the quota core.
const (
	EventFormulaCreated  = "formula.created"
	EventFormulaUpdated  = "formula.updated"
	EventQuotaGenerated  = "quota.generated"
	EventQuotaAdjusted   = "quota.adjusted"
	EventQuotasOverdue   = "quota.marked_overdue"
	EventRuleCreated     = "generation_rule.created"
	EventRuleDeactivated = "generation_rule.deactivated"
)

// QuotaAdjustedPayload captures the minimal data downstream consumers
// (notifications, account statements) need to react to an adjustment.
type QuotaAdjustedPayload struct {
	QuotaID        string `json:"quota_id"`
	AdjustmentID   string `json:"adjustment_id"`
	AdjustmentType string `json:"adjustment_type"`
	PreviousAmount string `json:"previous_amount"`
	NewAmount      string `json:"new_amount"`
	Status         string `json:"status"`
}

// ToMap converts the payload into an outbox-friendly map.
func (p QuotaAdjustedPayload) ToMap() map[string]any {
	return map[string]any{
		"quota_id":        p.QuotaID,
		"adjustment_id":   p.AdjustmentID,
		"adjustment_type": p.AdjustmentType,
		"previous_amount": p.PreviousAmount,
		"new_amount":      p.NewAmount,
		"status":          p.Status,
	}
}

// QuotaGeneratedPayload summarizes one batch generation run.
type QuotaGeneratedPayload struct {
	GenerationLogID string `json:"generation_log_id"`
	RuleID          string `json:"rule_id"`
	Period          string `json:"period"`
	QuotasCreated   int    `json:"quotas_created"`
	QuotasFailed    int    `json:"quotas_failed"`
}

// ToMap converts the payload into an outbox-friendly map.
func (p QuotaGeneratedPayload) ToMap() map[string]any {
	return map[string]any{
		"generation_log_id": p.GenerationLogID,
		"rule_id":           p.RuleID,
		"period":            p.Period,
		"quotas_created":    p.QuotasCreated,
		"quotas_failed":     p.QuotasFailed,
	}
}
