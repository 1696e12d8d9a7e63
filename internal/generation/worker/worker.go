package worker

import (
	"context"
	"errors"
	"time"

	"github.com/jadiazinf/condominio-core/internal/clock"
	"github.com/jadiazinf/condominio-core/internal/generation/domain"
	"github.com/jadiazinf/condominio-core/internal/observability/metrics"
	quotadomain "github.com/jadiazinf/condominio-core/internal/quota/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	Service  domain.Service
	QuotaSvc quotadomain.Service
	Metrics  *metrics.BillingMetrics `optional:"true"`
	Config   Config                  `optional:"true"`
}

// Worker runs due generation schedules on a fixed interval and marks
// overdue quotas at the end of each cycle.
type Worker struct {
	log      *zap.Logger
	clock    clock.Clock
	service  domain.Service
	quotaSvc quotadomain.Service
	metrics  *metrics.BillingMetrics
	cfg      Config
}

func NewWorker(p Params) *Worker {
	cfg := p.Config.withDefaults()
	return &Worker{
		log:      p.Log.Named("generation.worker"),
		clock:    p.Clock,
		service:  p.Service,
		quotaSvc: p.QuotaSvc,
		metrics:  p.Metrics,
		cfg:      cfg,
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	// The first run waits one full interval so deploys do not trigger an
	// immediate generation burst.
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := w.RunOnce(); err != nil {
			w.log.Warn("generation cycle failed", zap.Error(err))
		}
	}
}

func (w *Worker) RunOnce() error {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.RunTimeout)
	defer cancel()

	if w.service == nil || w.quotaSvc == nil {
		return errors.New("generation_worker_unavailable")
	}

	start := time.Now()
	now := w.clock.Now()

	ran, genErr := w.service.RunDue(ctx, now)
	if genErr != nil {
		w.metrics.IncGenerationRun("error")
	} else {
		w.metrics.IncGenerationRun("ok")
		if ran > 0 {
			w.log.Info("generation schedules processed", zap.Int("count", ran))
		}
	}

	marked, overdueErr := w.quotaSvc.MarkOverdue(ctx, now)
	if overdueErr == nil {
		w.metrics.AddQuotasMarkedOverdue(marked)
	}

	w.metrics.ObserveGenerationDuration(time.Since(start))
	return errors.Join(genErr, overdueErr)
}
