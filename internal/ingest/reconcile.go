package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/novacode/novacode-backend/internal/projects/domain"
	"github.com/novacode/novacode-backend/internal/projects/repository"
)

const (
	staleReason     = "ingestion did not complete"
	reconcileBatch  = 200
	reconcileBudget = time.Minute
)

// Reconciler marks records that stayed pending past a deadline as failed.
// These are ingestions that crashed or lost their metadata patch.
type Reconciler struct {
	projects repository.Repository
	after    time.Duration
	metrics  *Metrics
	log      *zap.Logger
	now      func() time.Time

	cron *cron.Cron
}

func NewReconciler(projects repository.Repository, after time.Duration, metrics *Metrics, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		projects: projects,
		after:    after,
		metrics:  metrics,
		log:      log.Named("reconcile"),
		now:      time.Now,
	}
}

// Start schedules RunOnce with a six-field (seconds) cron spec.
func (r *Reconciler) Start(schedule string) error {
	c := cron.New(cron.WithSeconds())

	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), reconcileBudget)
		defer cancel()
		if _, err := r.RunOnce(ctx); err != nil {
			r.log.Error("sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reconciliation %q: %w", schedule, err)
	}

	r.cron = c
	c.Start()
	r.log.Info("reconciliation scheduled", zap.String("schedule", schedule), zap.Duration("after", r.after))
	return nil
}

// Stop halts the schedule and waits for a running sweep.
func (r *Reconciler) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}

// RunOnce sweeps one batch and returns how many records it failed.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-r.after)

	stale, err := r.projects.ListStale(ctx, domain.StatusPending, cutoff, reconcileBatch)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, p := range stale {
		err := r.projects.MarkFailed(ctx, p.ID, staleReason)
		switch {
		case err == nil:
			swept++
			r.log.Warn("marked stale project failed",
				zap.String("project_id", p.ID),
				zap.Time("created_at", p.CreatedAt))
		case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrNotFound):
			// finished or removed since the listing
		default:
			r.metrics.observeSwept(swept)
			return swept, fmt.Errorf("mark %s failed: %w", p.ID, err)
		}
	}

	r.metrics.observeSwept(swept)
	return swept, nil
}
