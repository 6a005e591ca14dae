package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultReconcileGrace = 2 * time.Minute
	defaultReconcileBatch = 100
)

type requestReconciler interface {
	ReconcileMissingRequests(ctx context.Context, createdBefore time.Time, limit int) (int, error)
}

type ReconcileJobParams struct {
	Logger     *logger.Logger
	Reconciler requestReconciler
	GraceAge   time.Duration
	Batch      int
}

// NewReconcileJob builds the job that recreates approval requests for orders
// older than the grace age that have none.
func NewReconcileJob(params ReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	grace := params.GraceAge
	if grace <= 0 {
		grace = defaultReconcileGrace
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	return &reconcileJob{
		logg:       params.Logger,
		reconciler: params.Reconciler,
		grace:      grace,
		batch:      batch,
		now:        time.Now,
	}, nil
}

type reconcileJob struct {
	logg       *logger.Logger
	reconciler requestReconciler
	grace      time.Duration
	batch      int
	now        func() time.Time
}

func (j *reconcileJob) Name() string { return "order-request-reconcile" }

func (j *reconcileJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.grace)
	created, err := j.reconciler.ReconcileMissingRequests(ctx, cutoff, j.batch)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":           cutoff,
		"batch":            j.batch,
		"requests_created": created,
	})
	if err != nil {
		return fmt.Errorf("reconcile requests: %w", err)
	}
	if created > 0 {
		j.logg.Warn(logCtx, "recreated missing order requests")
		return nil
	}
	j.logg.Info(logCtx, "order request reconcile complete")
	return nil
}
