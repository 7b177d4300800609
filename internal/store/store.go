package store

import (
	"context"
	"time"

	"github.com/hyperengineering/pindex/internal/types"
)

// Store defines the persistence operations of the service.
// Items returned by ListItems and GetItem carry their detail, if any.
type Store interface {
	// Projects
	CreateProject(ctx context.Context, p types.NewProject) (*types.Project, error)
	GetProject(ctx context.Context, id string) (*types.Project, error)
	ListProjects(ctx context.Context) ([]types.ProjectSummary, error)
	UpdateProject(ctx context.Context, id string, p types.NewProject) (*types.Project, error)
	DeleteProject(ctx context.Context, id string) error

	// Categories
	ListCategories(ctx context.Context) ([]types.Category, error)
	CreateCategory(ctx context.Context, name string) (*types.Category, error)
	RemoveCategory(ctx context.Context, projectID, categoryID string) (deleted bool, err error)

	// Checklist items
	ListItems(ctx context.Context, projectID string) ([]types.ChecklistItem, error)
	GetItem(ctx context.Context, projectID, itemID string) (*types.ChecklistItem, error)
	CreateItem(ctx context.Context, item types.NewChecklistItem) (*types.ChecklistItem, error)
	FindOrCreateItem(ctx context.Context, item types.NewChecklistItem) (*types.ChecklistItem, bool, error)
	ToggleItem(ctx context.Context, projectID, itemID string) (*types.ChecklistItem, error)
	DeleteItem(ctx context.Context, projectID, itemID string) error

	// Item details
	GetDetail(ctx context.Context, projectID, itemID string) (*types.ItemDetail, error)
	ListDetails(ctx context.Context, projectID string) ([]types.ItemDetail, error)
	SaveDetail(ctx context.Context, projectID, itemID string, in types.DetailInput) (*types.ItemDetail, error)
	ScanDetails(ctx context.Context, afterID string, limit int) ([]types.ItemDetail, error)
	UpdateDerived(ctx context.Context, detailID string, readAt time.Time, total, pi *float64) error

	GetStats(ctx context.Context) (*types.StoreStats, error)
	Close() error
}
