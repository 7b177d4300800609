package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hyperengineering/pindex/internal/catalog"
	"github.com/hyperengineering/pindex/internal/rollup"
	"github.com/hyperengineering/pindex/internal/types"
)

const projectColumns = `id, name, description, image, created_at, updated_at`

// CreateProject inserts a project and seeds it with the default checklist.
func (s *SQLStore) CreateProject(ctx context.Context, p types.NewProject) (*types.Project, error) {
	now := time.Now().UTC()
	project := types.Project{
		ID:          ulid.Make().String(),
		Name:        p.Name,
		Description: p.Description,
		Image:       p.Image,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO projects (id, name, description, image, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`), project.ID, project.Name, project.Description, project.Image, formatTime(now), formatTime(now))
		if err != nil {
			return fmt.Errorf("insert project: %w", err)
		}

		categories, err := s.listCategories(ctx, tx)
		if err != nil {
			return err
		}
		index := catalog.BuildCategoryIndex(categories)

		for _, tmpl := range catalog.DefaultChecklist() {
			categoryID, ok := index.ID(tmpl.Category)
			if !ok {
				continue
			}
			_, err := s.insertItem(ctx, tx, types.NewChecklistItem{
				ProjectID:  project.ID,
				CategoryID: categoryID,
				ItemType:   tmpl.ItemType,
				Title:      tmpl.Title,
			}, now)
			if err != nil {
				return fmt.Errorf("seed checklist: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &project, nil
}

// GetProject returns the project with the given id.
func (s *SQLStore) GetProject(ctx context.Context, id string) (*types.Project, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+projectColumns+` FROM projects WHERE id = ?`), id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// ListProjects returns all projects, newest first, with checklist progress.
func (s *SQLStore) ListProjects(ctx context.Context) ([]types.ProjectSummary, error) {
	projects, err := s.listProjects(ctx)
	if err != nil {
		return nil, err
	}

	progress, err := s.projectProgress(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]types.ProjectSummary, len(projects))
	for i, p := range projects {
		c := progress[p.ID]
		out[i] = types.ProjectSummary{
			Project:        p,
			Completed:      c.completed,
			Total:          c.total,
			CompletionRate: rollup.Rate(c.completed, c.total),
		}
	}
	return out, nil
}

func (s *SQLStore) listProjects(ctx context.Context) ([]types.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []types.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

type progressCount struct {
	completed int
	total     int
}

// projectProgress counts items per project, deciding completion with
// rollup.IsComplete.
func (s *SQLStore) projectProgress(ctx context.Context) (map[string]progressCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ci.project_id, ci.is_completed, d.id IS NOT NULL
		FROM checklist_items ci
		LEFT JOIN item_details d ON d.checklist_item_id = ci.id
	`)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	out := make(map[string]progressCount)
	for rows.Next() {
		var projectID string
		var completed, hasDetail bool
		if err := rows.Scan(&projectID, &completed, &hasDetail); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		item := types.ChecklistItem{IsCompleted: completed}
		if hasDetail {
			item.Detail = &types.ItemDetail{}
		}
		c := out[projectID]
		c.total++
		if rollup.IsComplete(item) {
			c.completed++
		}
		out[projectID] = c
	}
	return out, rows.Err()
}

// UpdateProject replaces the editable fields of a project.
func (s *SQLStore) UpdateProject(ctx context.Context, id string, p types.NewProject) (*types.Project, error) {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE projects SET name = ?, description = ?, image = ?, updated_at = ?
		WHERE id = ?
	`), p.Name, p.Description, p.Image, formatTime(time.Now()), id)
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetProject(ctx, id)
}

// DeleteProject deletes a project with its items and their details.
func (s *SQLStore) DeleteProject(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q(`
			DELETE FROM item_details
			WHERE checklist_item_id IN (SELECT id FROM checklist_items WHERE project_id = ?)
		`), id); err != nil {
			return fmt.Errorf("delete details: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM checklist_items WHERE project_id = ?`), id); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		res, err := tx.ExecContext(ctx, s.q(`DELETE FROM projects WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func scanProject(scanner interface{ Scan(...any) error }) (*types.Project, error) {
	var p types.Project
	var createdAt, updatedAt string
	if err := scanner.Scan(&p.ID, &p.Name, &p.Description, &p.Image, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}
