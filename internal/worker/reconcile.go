package worker

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/hyperengineering/pindex/internal/pi"
	"github.com/hyperengineering/pindex/internal/store"
	"github.com/hyperengineering/pindex/internal/types"
)

// ReconcileStore defines the store operations needed by the reconcile worker.
type ReconcileStore interface {
	ScanDetails(ctx context.Context, afterID string, limit int) ([]types.ItemDetail, error)
	// UpdateDerived must refuse the write with store.ErrStale when the detail
	// was saved after readAt.
	UpdateDerived(ctx context.Context, detailID string, readAt time.Time, total, calculated *float64) error
}

// ReconcileResult summarises one reconcile pass.
type ReconcileResult struct {
	Scanned  int
	Repaired int
	// Skipped counts drifted rows that were saved again before the repair;
	// the save already stored fresh derived values.
	Skipped int
	Failed  int
}

// ReconcileWorker periodically recomputes the stored participant total and
// PI of every detail from its counts and repairs rows that drifted.
type ReconcileWorker struct {
	store     ReconcileStore
	interval  time.Duration
	batchSize int
}

// NewReconcileWorker creates a worker with the given store, interval and page size.
func NewReconcileWorker(store ReconcileStore, interval time.Duration, batchSize int) *ReconcileWorker {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &ReconcileWorker{
		store:     store,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run starts the worker loop. Blocks until ctx is cancelled.
// The first pass runs after one interval.
func (w *ReconcileWorker) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "pi-reconcile",
		"interval", w.interval.String(),
		"batch_size", w.batchSize,
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "pi-reconcile",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.runReconcile(ctx)
		}
	}
}

func (w *ReconcileWorker) runReconcile(ctx context.Context) {
	start := time.Now()

	res, err := w.Reconcile(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("reconcile failed",
			"component", "worker",
			"action", "reconcile_failed",
			"scanned", res.Scanned,
			"error", err,
		)
		return
	}

	slog.Info("reconcile cycle completed",
		"component", "worker",
		"action", "reconcile_complete",
		"scanned", res.Scanned,
		"repaired", res.Repaired,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// Reconcile makes one pass over all stored details. A failed repair is
// logged and counted; a failed scan stops the pass. Rows saved or deleted
// between the scan and the repair are skipped.
func (w *ReconcileWorker) Reconcile(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult
	after := ""
	for {
		page, err := w.store.ScanDetails(ctx, after, w.batchSize)
		if err != nil {
			return res, err
		}
		for _, d := range page {
			res.Scanned++
			total, calculated, drifted := expectedDerived(d)
			if !drifted {
				continue
			}
			if err := w.store.UpdateDerived(ctx, d.ID, d.UpdatedAt, total, calculated); err != nil {
				if ctx.Err() != nil {
					return res, ctx.Err()
				}
				if errors.Is(err, store.ErrStale) || errors.Is(err, store.ErrNotFound) {
					res.Skipped++
					continue
				}
				slog.Warn("derived value repair failed",
					"component", "worker",
					"action", "repair_failed",
					"detail_id", d.ID,
					"error", err,
				)
				res.Failed++
				continue
			}
			slog.Debug("derived values repaired",
				"component", "worker",
				"action", "repair",
				"detail_id", d.ID,
				"stored_pi", pi.Format(d.CalculatedPI),
				"expected_pi", pi.Format(calculated),
			)
			res.Repaired++
		}
		if len(page) < w.batchSize {
			return res, nil
		}
		after = page[len(page)-1].ID
	}
}

// expectedDerived recomputes the derived values of d and reports whether the
// stored ones differ.
func expectedDerived(d types.ItemDetail) (total, calculated *float64, drifted bool) {
	counts := d.Counts()
	if n, ok := pi.Total(counts); ok {
		total = &n
	}
	calculated = pi.Ptr(counts)
	drifted = !sameValue(d.TotalParticipationN, total) || !sameValue(d.CalculatedPI, calculated)
	return total, calculated, drifted
}

func sameValue(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return math.Abs(*a-*b) <= 1e-9
}
