package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BillingMetrics instruments the quota generation worker and the
// adjustment engine.
type BillingMetrics struct {
	generationRuns      *prometheus.CounterVec
	generationDuration  prometheus.Histogram
	quotasCreated       prometheus.Counter
	quotasFailed        prometheus.Counter
	quotasMarkedOverdue prometheus.Counter
	adjustmentsApplied  *prometheus.CounterVec
}

var (
	billingMetricsOnce sync.Once
	billingMetrics     *BillingMetrics
)

func Billing() *BillingMetrics {
	return BillingWithConfig(Config{})
}

func BillingWithConfig(cfg Config) *BillingMetrics {
	billingMetricsOnce.Do(func() {
		billingMetrics = newBillingMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return billingMetrics
}

func ResetBillingMetricsForTest() {
	billingMetricsOnce = sync.Once{}
	billingMetrics = nil
}

func newBillingMetrics(registerer prometheus.Registerer, cfg Config) *BillingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "condocore"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	generationRuns := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "condocore_quota_generation_runs_total",
			Help:        "Total quota generation runs by outcome.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // completed | partial | failed | error
	)

	generationDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:        "condocore_quota_generation_duration_seconds",
			Help:        "Wall time of one quota generation cycle.",
			Buckets:     []float64{0.1, 0.5, 1, 5, 15, 60, 300},
			ConstLabels: constLabels,
		},
	)

	quotasCreated := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "condocore_quotas_created_total",
			Help:        "Total quotas created by batch generation.",
			ConstLabels: constLabels,
		},
	)

	quotasFailed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "condocore_quotas_failed_total",
			Help:        "Total units whose quota could not be generated.",
			ConstLabels: constLabels,
		},
	)

	quotasMarkedOverdue := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "condocore_quotas_marked_overdue_total",
			Help:        "Total quotas transitioned pending to overdue.",
			ConstLabels: constLabels,
		},
	)

	adjustmentsApplied := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "condocore_quota_adjustments_total",
			Help:        "Total quota adjustments by type.",
			ConstLabels: constLabels,
		},
		[]string{"type"}, // discount | increase | correction | waiver
	)

	registerer.MustRegister(
		generationRuns,
		generationDuration,
		quotasCreated,
		quotasFailed,
		quotasMarkedOverdue,
		adjustmentsApplied,
	)

	return &BillingMetrics{
		generationRuns:      generationRuns,
		generationDuration:  generationDuration,
		quotasCreated:       quotasCreated,
		quotasFailed:        quotasFailed,
		quotasMarkedOverdue: quotasMarkedOverdue,
		adjustmentsApplied:  adjustmentsApplied,
	}
}

func (m *BillingMetrics) IncGenerationRun(result string) {
	if m == nil {
		return
	}
	m.generationRuns.WithLabelValues(result).Inc()
}

func (m *BillingMetrics) ObserveGenerationDuration(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.generationDuration.Observe(elapsed.Seconds())
}

func (m *BillingMetrics) AddQuotasCreated(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.quotasCreated.Add(float64(count))
}

func (m *BillingMetrics) AddQuotasFailed(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.quotasFailed.Add(float64(count))
}

func (m *BillingMetrics) AddQuotasMarkedOverdue(count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.quotasMarkedOverdue.Add(float64(count))
}

func (m *BillingMetrics) IncAdjustment(adjustmentType string) {
	if m == nil {
		return
	}
	m.adjustmentsApplied.WithLabelValues(adjustmentType).Inc()
}
