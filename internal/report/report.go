// Package report assembles the full participation report of a project.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hyperengineering/pindex/internal/rollup"
	"github.com/hyperengineering/pindex/internal/types"
)

// Reader is the slice of the store a report needs. ListItems must return
// items with their details attached.
type Reader interface {
	GetProject(ctx context.Context, id string) (*types.Project, error)
	ListItems(ctx context.Context, projectID string) ([]types.ChecklistItem, error)
	ListCategories(ctx context.Context) ([]types.Category, error)
}

// Report is everything shown on a project's printable report.
type Report struct {
	Project     types.Project             `json:"project"`
	Checklist   []types.CategoryChecklist `json:"checklist"`
	Analytics   rollup.AnalyticsSeries    `json:"analytics"`
	GeneratedAt time.Time                 `json:"generated_at"`
}

// Builder builds reports from a Reader.
type Builder struct {
	store  Reader
	logger *slog.Logger
	now    func() time.Time
}

// NewBuilder creates a Builder. A nil logger uses slog.Default().
func NewBuilder(store Reader, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		store:  store,
		logger: logger.With("component", "report"),
		now:    time.Now,
	}
}

// Build loads a project and derives its checklist and analytics. Items whose
// method key disagrees with their title are logged as data-quality warnings.
func (b *Builder) Build(ctx context.Context, projectID string) (*Report, error) {
	var (
		project    *types.Project
		items      []types.ChecklistItem
		categories []types.Category
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		project, err = b.store.GetProject(gctx, projectID)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = b.store.ListItems(gctx, projectID)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = b.store.ListCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load project %s: %w", projectID, err)
	}

	series := rollup.ProjectForAnalytics(items, nil, categories)
	for _, inc := range series.Inconsistencies {
		b.logger.Warn("method key disagrees with title",
			"action", "build",
			"project_id", projectID,
			"item_id", inc.ItemID,
			"method_key", inc.MethodKey,
			"title_key", inc.TitleKey,
		)
	}

	for _, m := range series.Misfiled {
		b.logger.Warn("method item filed under another category",
			"action", "build",
			"project_id", projectID,
			"item_id", m.ItemID,
			"category_id", m.CategoryID,
			"expected_category", m.ExpectedCategory,
		)
	}

	return &Report{
		Project:     *project,
		Checklist:   GroupChecklist(items, categories),
		Analytics:   series,
		GeneratedAt: b.now().UTC(),
	}, nil
}

// GroupChecklist groups items by category in category order, splitting each
// group into analog and digital items. Categories without items are left out.
func GroupChecklist(items []types.ChecklistItem, categories []types.Category) []types.CategoryChecklist {
	byCategory := make(map[string]*types.CategoryChecklist, len(categories))
	for _, it := range items {
		g, ok := byCategory[it.CategoryID]
		if !ok {
			g = &types.CategoryChecklist{}
			byCategory[it.CategoryID] = g
		}
		if it.ItemType == types.ItemDigital {
			g.Digital = append(g.Digital, it)
		} else {
			g.Analog = append(g.Analog, it)
		}
	}

	out := []types.CategoryChecklist{}
	for _, c := range categories {
		g, ok := byCategory[c.ID]
		if !ok {
			continue
		}
		g.Category = c
		out = append(out, *g)
	}
	return out
}
