package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hyperengineering/pindex/internal/rollup"
	"github.com/hyperengineering/pindex/internal/types"
)

const itemColumns = `ci.id, ci.project_id, ci.category_id, ci.item_type, ci.title, ci.description,
	ci.is_completed, ci.stage_number, ci.method_key, ci.created_at, ci.updated_at`

// ListItems returns a project's checklist items with their details attached,
// ordered by creation. Items and details are read from one snapshot.
func (s *SQLStore) ListItems(ctx context.Context, projectID string) ([]types.ChecklistItem, error) {
	var out []types.ChecklistItem
	err := s.withReadTx(ctx, func(tx *sql.Tx) error {
		items, err := s.listItems(ctx, tx, projectID)
		if err != nil {
			return err
		}
		details, err := s.listDetails(ctx, tx, projectID)
		if err != nil {
			return err
		}
		out = rollup.Attach(items, details)
		return nil
	})
	return out, err
}

func (s *SQLStore) listItems(ctx context.Context, q querier, projectID string) ([]types.ChecklistItem, error) {
	rows, err := q.QueryContext(ctx, s.q(`
		SELECT `+itemColumns+`
		FROM checklist_items ci
		WHERE ci.project_id = ?
		ORDER BY ci.created_at, ci.id
	`), projectID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var out []types.ChecklistItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

// GetItem returns one item of a project with its detail.
func (s *SQLStore) GetItem(ctx context.Context, projectID, itemID string) (*types.ChecklistItem, error) {
	return s.getItem(ctx, s.db, projectID, itemID)
}

func (s *SQLStore) getItem(ctx context.Context, q querier, projectID, itemID string) (*types.ChecklistItem, error) {
	row := q.QueryRowContext(ctx, s.q(`
		SELECT `+itemColumns+`
		FROM checklist_items ci
		WHERE ci.id = ? AND ci.project_id = ?
	`), itemID, projectID)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	d, err := s.getDetail(ctx, q, itemID)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, err
	default:
		it.Detail = d
	}
	return it, nil
}

// CreateItem adds an item to a project.
func (s *SQLStore) CreateItem(ctx context.Context, item types.NewChecklistItem) (*types.ChecklistItem, error) {
	var created *types.ChecklistItem
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.checkCategory(ctx, tx, item.CategoryID); err != nil {
			return err
		}
		var err error
		created, err = s.insertItem(ctx, tx, item, time.Now().UTC())
		if err == nil && created == nil {
			err = fmt.Errorf("insert item: %w", ErrDuplicateItem)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// FindOrCreateItem returns the project's item with the same category, stage
// and title, creating it when none exists. created reports which happened.
// A unique index on those columns makes concurrent callers agree on one item.
func (s *SQLStore) FindOrCreateItem(ctx context.Context, item types.NewChecklistItem) (*types.ChecklistItem, bool, error) {
	if item.StageNumber == nil {
		return nil, false, errors.New("find or create item: stage number is required")
	}

	var out *types.ChecklistItem
	var created bool

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		found, err := s.findMethodItem(ctx, tx, item)
		if err != nil || found != nil {
			out = found
			return err
		}

		if err := s.checkCategory(ctx, tx, item.CategoryID); err != nil {
			return err
		}
		out, err = s.insertItem(ctx, tx, item, time.Now().UTC())
		if err != nil {
			return err
		}
		if out != nil {
			created = true
			return nil
		}

		// Lost the race to a concurrent insert; return the winner.
		out, err = s.findMethodItem(ctx, tx, item)
		if err == nil && out == nil {
			err = fmt.Errorf("find item: %w", ErrNotFound)
		}
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

// findMethodItem returns the item matching item's project, category, stage
// and title, or nil when there is none.
func (s *SQLStore) findMethodItem(ctx context.Context, q querier, item types.NewChecklistItem) (*types.ChecklistItem, error) {
	var id string
	err := q.QueryRowContext(ctx, s.q(`
		SELECT id FROM checklist_items
		WHERE project_id = ? AND category_id = ? AND stage_number = ? AND title = ?
	`), item.ProjectID, item.CategoryID, deref(item.StageNumber), item.Title).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find item: %w", err)
	}
	return s.getItem(ctx, q, item.ProjectID, id)
}

// ToggleItem flips the completion flag of an item.
func (s *SQLStore) ToggleItem(ctx context.Context, projectID, itemID string) (*types.ChecklistItem, error) {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE checklist_items SET is_completed = NOT is_completed, updated_at = ?
		WHERE id = ? AND project_id = ?
	`), formatTime(time.Now()), itemID, projectID)
	if err != nil {
		return nil, fmt.Errorf("toggle item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetItem(ctx, projectID, itemID)
}

// DeleteItem deletes an item and its detail.
func (s *SQLStore) DeleteItem(ctx context.Context, projectID, itemID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q(`
			DELETE FROM item_details
			WHERE checklist_item_id IN (SELECT id FROM checklist_items WHERE id = ? AND project_id = ?)
		`), itemID, projectID); err != nil {
			return fmt.Errorf("delete detail: %w", err)
		}
		res, err := tx.ExecContext(ctx, s.q(`DELETE FROM checklist_items WHERE id = ? AND project_id = ?`), itemID, projectID)
		if err != nil {
			return fmt.Errorf("delete item: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *SQLStore) checkCategory(ctx context.Context, q querier, categoryID string) error {
	var n int
	if err := q.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM categories WHERE id = ?`), categoryID).Scan(&n); err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	if n == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// insertItem adds a row and returns nil without error when an item with the
// same stage and title already exists.
func (s *SQLStore) insertItem(ctx context.Context, q querier, item types.NewChecklistItem, now time.Time) (*types.ChecklistItem, error) {
	it := types.ChecklistItem{
		ID:          ulid.Make().String(),
		ProjectID:   item.ProjectID,
		CategoryID:  item.CategoryID,
		ItemType:    item.ItemType,
		Title:       item.Title,
		Description: item.Description,
		StageNumber: item.StageNumber,
		MethodKey:   item.MethodKey,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	res, err := q.ExecContext(ctx, s.q(`
		INSERT INTO checklist_items
			(id, project_id, category_id, item_type, title, description, is_completed,
			 stage_number, method_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`), it.ID, it.ProjectID, it.CategoryID, string(it.ItemType), it.Title, it.Description, false,
		deref(it.StageNumber), nullString(it.MethodKey), formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return &it, nil
}

func scanItem(scanner interface{ Scan(...any) error }) (*types.ChecklistItem, error) {
	var it types.ChecklistItem
	var itemType, createdAt, updatedAt string
	var stage sql.NullInt64
	var methodKey sql.NullString

	err := scanner.Scan(
		&it.ID,
		&it.ProjectID,
		&it.CategoryID,
		&itemType,
		&it.Title,
		&it.Description,
		&it.IsCompleted,
		&stage,
		&methodKey,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	it.ItemType = types.ItemType(itemType)
	it.StageNumber = intPtr(stage)
	it.MethodKey = methodKey.String
	it.CreatedAt = parseTime(createdAt)
	it.UpdatedAt = parseTime(updatedAt)
	return &it, nil
}
