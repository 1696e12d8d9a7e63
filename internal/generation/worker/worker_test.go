package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jadiazinf/condominio-core/internal/clock"
	"github.com/jadiazinf/condominio-core/internal/generation/domain"
	quotadomain "github.com/jadiazinf/condominio-core/internal/quota/domain"
	"go.uber.org/zap"
)

type stubGenerationService struct {
	domain.Service
	runs atomic.Int32
	err  error
}

func (s *stubGenerationService) RunDue(ctx context.Context, asOf time.Time) (int, error) {
	s.runs.Add(1)
	if s.err != nil {
		return 0, s.err
	}
	return 1, nil
}

type stubQuotaService struct {
	quotadomain.Service
	marks atomic.Int32
}

func (s *stubQuotaService) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	s.marks.Add(1)
	return 2, nil
}

func newTestWorker(gen *stubGenerationService, quotas *stubQuotaService, interval time.Duration) *Worker {
	return &Worker{
		log:      zap.NewNop(),
		clock:    clock.SystemClock{},
		service:  gen,
		quotaSvc: quotas,
		cfg: Config{
			PollInterval: interval,
			RunTimeout:   time.Second,
		},
	}
}

func TestRunOnceRunsGenerationAndOverdue(t *testing.T) {
	gen := &stubGenerationService{}
	quotas := &stubQuotaService{}
	w := newTestWorker(gen, quotas, time.Hour)

	if err := w.RunOnce(); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if gen.runs.Load() != 1 {
		t.Fatalf("generation runs = %d, want 1", gen.runs.Load())
	}
	if quotas.marks.Load() != 1 {
		t.Fatalf("overdue passes = %d, want 1", quotas.marks.Load())
	}
}

func TestRunOnceSurfacesGenerationError(t *testing.T) {
	gen := &stubGenerationService{err: errors.New("schedule query failed")}
	quotas := &stubQuotaService{}
	w := newTestWorker(gen, quotas, time.Hour)

	if err := w.RunOnce(); err == nil {
		t.Fatal("expected error from failed generation cycle")
	}
	// The overdue sweep still runs when generation fails.
	if quotas.marks.Load() != 1 {
		t.Fatalf("overdue passes = %d, want 1", quotas.marks.Load())
	}
}

func TestRunForeverRunsAfterTick(t *testing.T) {
	gen := &stubGenerationService{}
	quotas := &stubQuotaService{}
	w := newTestWorker(gen, quotas, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.RunForever(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for gen.runs.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("worker never ran a cycle")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunForeverStopsOnCancel(t *testing.T) {
	gen := &stubGenerationService{}
	quotas := &stubQuotaService{}
	w := newTestWorker(gen, quotas, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.RunForever(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}
