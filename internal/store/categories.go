package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hyperengineering/pindex/internal/types"
)

// ListCategories returns every category in display order.
func (s *SQLStore) ListCategories(ctx context.Context) ([]types.Category, error) {
	return s.listCategories(ctx, s.db)
}

func (s *SQLStore) listCategories(ctx context.Context, q querier) ([]types.Category, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, sort_order, builtin, created_at
		FROM categories
		ORDER BY sort_order, name
	`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []types.Category
	for rows.Next() {
		var c types.Category
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &c.SortOrder, &c.Builtin, &createdAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.CreatedAt = parseTime(createdAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateCategory adds a custom category after the existing ones.
func (s *SQLStore) CreateCategory(ctx context.Context, name string) (*types.Category, error) {
	now := time.Now().UTC()
	c := types.Category{
		ID:        ulid.Make().String(),
		Name:      name,
		CreatedAt: now,
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM categories WHERE name = ?`), name).Scan(&exists); err != nil {
			return fmt.Errorf("check category name: %w", err)
		}
		if exists > 0 {
			return ErrDuplicateCategory
		}

		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(sort_order), 0) + 1 FROM categories`).Scan(&c.SortOrder); err != nil {
			return fmt.Errorf("next sort order: %w", err)
		}

		_, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO categories (id, name, sort_order, builtin, created_at)
			VALUES (?, ?, ?, ?, ?)
		`), c.ID, c.Name, c.SortOrder, false, formatTime(now))
		if isUniqueViolation(err) {
			return ErrDuplicateCategory
		}
		if err != nil {
			return fmt.Errorf("insert category: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// RemoveCategory removes a project's items in a category along with their
// details. The category itself is deleted when it is not builtin and no
// other project still has items in it; deleted reports whether that happened.
func (s *SQLStore) RemoveCategory(ctx context.Context, projectID, categoryID string) (bool, error) {
	var deleted bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var builtin bool
		err := tx.QueryRowContext(ctx, s.q(`SELECT builtin FROM categories WHERE id = ?`), categoryID).Scan(&builtin)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCategoryNotFound
		}
		if err != nil {
			return fmt.Errorf("get category: %w", err)
		}

		if _, err := tx.ExecContext(ctx, s.q(`
			DELETE FROM item_details
			WHERE checklist_item_id IN (
				SELECT id FROM checklist_items WHERE project_id = ? AND category_id = ?
			)
		`), projectID, categoryID); err != nil {
			return fmt.Errorf("delete details: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.q(`
			DELETE FROM checklist_items WHERE project_id = ? AND category_id = ?
		`), projectID, categoryID); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}

		if builtin {
			return nil
		}

		var remaining int
		if err := tx.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM checklist_items WHERE category_id = ?`), categoryID).Scan(&remaining); err != nil {
			return fmt.Errorf("count category items: %w", err)
		}
		if remaining > 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM categories WHERE id = ?`), categoryID); err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		deleted = true
		return nil
	})
	return deleted, err
}
