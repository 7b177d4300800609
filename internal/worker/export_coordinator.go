package worker

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hyperengineering/pindex/internal/types"
)

// ProjectLister lists the projects to export.
type ProjectLister interface {
	ListProjects(ctx context.Context) ([]types.ProjectSummary, error)
}

// ProjectExporter exports a single project's report.
type ProjectExporter interface {
	Export(ctx context.Context, projectID string) (*types.ExportResult, error)
}

// ExportCoordinator periodically exports the report of every project.
type ExportCoordinator struct {
	projects    ProjectLister
	exporter    ProjectExporter
	interval    time.Duration
	concurrency int
}

// NewExportCoordinator creates a coordinator exporting at most concurrency
// projects at a time.
func NewExportCoordinator(projects ProjectLister, exporter ProjectExporter, interval time.Duration, concurrency int) *ExportCoordinator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ExportCoordinator{
		projects:    projects,
		exporter:    exporter,
		interval:    interval,
		concurrency: concurrency,
	}
}

// Run starts the coordinator loop. Exports run immediately on start and then
// once per interval.
func (c *ExportCoordinator) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "export-coordinator",
		"action", "worker_started",
		"interval", c.interval.String(),
		"concurrency", c.concurrency,
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.exportAll(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "export-coordinator",
				"action", "worker_stopped",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			c.exportAll(ctx)
		}
	}
}

// exportAll exports every project. A failed project is logged and does not
// stop the others.
func (c *ExportCoordinator) exportAll(ctx context.Context) (succeeded, failed int) {
	projects, err := c.projects.ListProjects(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("failed to list projects for export",
				"component", "worker",
				"worker", "export-coordinator",
				"action", "list_projects_failed",
				"error", err,
			)
		}
		return 0, 0
	}

	var ok, bad atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, p := range projects {
		if gctx.Err() != nil {
			break
		}
		projectID := p.ID
		g.Go(func() error {
			if _, err := c.exporter.Export(gctx, projectID); err != nil {
				bad.Add(1)
				if gctx.Err() == nil {
					slog.Warn("project export failed",
						"component", "worker",
						"worker", "export-coordinator",
						"action", "export_failed",
						"project_id", projectID,
						"error", err,
					)
				}
				return nil
			}
			ok.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	succeeded, failed = int(ok.Load()), int(bad.Load())
	if ctx.Err() == nil && (succeeded > 0 || failed > 0) {
		slog.Info("export cycle completed",
			"component", "worker",
			"worker", "export-coordinator",
			"action", "cycle_complete",
			"total", len(projects),
			"succeeded", succeeded,
			"failed", failed,
		)
	}
	return succeeded, failed
}
