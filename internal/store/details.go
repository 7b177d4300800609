package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hyperengineering/pindex/internal/pi"
	"github.com/hyperengineering/pindex/internal/types"
)

const detailColumns = `d.id, d.checklist_item_id, d.activity,
	d.image1_url, d.image2_url, d.image3_url, d.image4_url,
	d.attend_fa, d.consult_fc, d.involve_fi, d.collaborate_fcol, d.empower_femp,
	d.total_participation_n, d.calculated_pi,
	d.assumptions, d.data_collected_by, d.collection_date,
	d.created_at, d.updated_at`

// GetDetail returns the detail of a project's item.
func (s *SQLStore) GetDetail(ctx context.Context, projectID, itemID string) (*types.ItemDetail, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		SELECT `+detailColumns+`
		FROM item_details d
		JOIN checklist_items ci ON ci.id = d.checklist_item_id
		WHERE d.checklist_item_id = ? AND ci.project_id = ?
	`), itemID, projectID)
	d, err := scanDetail(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get detail: %w", err)
	}
	return d, nil
}

func (s *SQLStore) getDetail(ctx context.Context, q querier, itemID string) (*types.ItemDetail, error) {
	row := q.QueryRowContext(ctx, s.q(`SELECT `+detailColumns+` FROM item_details d WHERE d.checklist_item_id = ?`), itemID)
	d, err := scanDetail(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get detail: %w", err)
	}
	return d, nil
}

// ListDetails returns the details of all items of a project.
func (s *SQLStore) ListDetails(ctx context.Context, projectID string) ([]types.ItemDetail, error) {
	return s.listDetails(ctx, s.db, projectID)
}

func (s *SQLStore) listDetails(ctx context.Context, q querier, projectID string) ([]types.ItemDetail, error) {
	return s.queryDetails(ctx, q, s.q(`
		SELECT `+detailColumns+`
		FROM item_details d
		JOIN checklist_items ci ON ci.id = d.checklist_item_id
		WHERE ci.project_id = ?
		ORDER BY d.id
	`), projectID)
}

// ScanDetails pages through every stored detail in id order, starting after
// afterID.
func (s *SQLStore) ScanDetails(ctx context.Context, afterID string, limit int) ([]types.ItemDetail, error) {
	return s.queryDetails(ctx, s.db, s.q(`
		SELECT `+detailColumns+`
		FROM item_details d
		WHERE d.id > ?
		ORDER BY d.id
		LIMIT ?
	`), afterID, limit)
}

func (s *SQLStore) queryDetails(ctx context.Context, q querier, query string, args ...any) ([]types.ItemDetail, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query details: %w", err)
	}
	defer rows.Close()

	var out []types.ItemDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan detail: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// SaveDetail creates or replaces the detail of an item and marks the item
// complete. The derived total and PI are recomputed from the counts.
// Negative or non-finite counts are rejected with the pi package's errors.
func (s *SQLStore) SaveDetail(ctx context.Context, projectID, itemID string, in types.DetailInput) (*types.ItemDetail, error) {
	counts := in.Counts()
	if err := pi.Validate(counts); err != nil {
		return nil, fmt.Errorf("save detail: %w", err)
	}
	total, ok := pi.Total(counts)
	var totalArg any
	if ok {
		totalArg = total
	}
	piArg := deref(pi.Ptr(counts))
	now := formatTime(time.Now())

	var saved *types.ItemDetail
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, s.q(`
			SELECT COUNT(*) FROM checklist_items WHERE id = ? AND project_id = ?
		`), itemID, projectID).Scan(&exists); err != nil {
			return fmt.Errorf("check item: %w", err)
		}
		if exists == 0 {
			return ErrNotFound
		}

		_, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO item_details (
				id, checklist_item_id, activity,
				image1_url, image2_url, image3_url, image4_url,
				attend_fa, consult_fc, involve_fi, collaborate_fcol, empower_femp,
				total_participation_n, calculated_pi,
				assumptions, data_collected_by, collection_date,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (checklist_item_id) DO UPDATE SET
				activity = excluded.activity,
				image1_url = excluded.image1_url,
				image2_url = excluded.image2_url,
				image3_url = excluded.image3_url,
				image4_url = excluded.image4_url,
				attend_fa = excluded.attend_fa,
				consult_fc = excluded.consult_fc,
				involve_fi = excluded.involve_fi,
				collaborate_fcol = excluded.collaborate_fcol,
				empower_femp = excluded.empower_femp,
				total_participation_n = excluded.total_participation_n,
				calculated_pi = excluded.calculated_pi,
				assumptions = excluded.assumptions,
				data_collected_by = excluded.data_collected_by,
				collection_date = excluded.collection_date,
				updated_at = excluded.updated_at
		`),
			ulid.Make().String(), itemID, in.Activity,
			in.Image1URL, in.Image2URL, in.Image3URL, in.Image4URL,
			deref(in.AttendFA), deref(in.ConsultFC), deref(in.InvolveFI), deref(in.CollaborateFCOL), deref(in.EmpowerFEMP),
			totalArg, piArg,
			in.Assumptions, in.DataCollectedBy, in.CollectionDate,
			now, now,
		)
		if err != nil {
			return fmt.Errorf("upsert detail: %w", err)
		}

		if _, err := tx.ExecContext(ctx, s.q(`
			UPDATE checklist_items SET is_completed = ?, updated_at = ? WHERE id = ?
		`), true, now, itemID); err != nil {
			return fmt.Errorf("mark item complete: %w", err)
		}

		saved, err = s.getDetail(ctx, tx, itemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// UpdateDerived overwrites the derived total and PI of a detail, provided
// the detail has not been saved since readAt (the UpdatedAt the caller read).
// It returns ErrStale when a newer save won and ErrNotFound when the detail
// is gone.
func (s *SQLStore) UpdateDerived(ctx context.Context, detailID string, readAt time.Time, total, calculated *float64) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE item_details SET total_participation_n = ?, calculated_pi = ?
		WHERE id = ? AND updated_at = ?
	`), deref(total), deref(calculated), detailID, formatTime(readAt))
	if err != nil {
		return fmt.Errorf("update derived values: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var exists int
	if err := s.db.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM item_details WHERE id = ?`), detailID).Scan(&exists); err != nil {
		return fmt.Errorf("check detail: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return ErrStale
}

func scanDetail(scanner interface{ Scan(...any) error }) (*types.ItemDetail, error) {
	var d types.ItemDetail
	var fa, fc, fi, fcol, femp, total, calculated sql.NullFloat64
	var createdAt, updatedAt string

	err := scanner.Scan(
		&d.ID,
		&d.ChecklistItemID,
		&d.Activity,
		&d.Image1URL,
		&d.Image2URL,
		&d.Image3URL,
		&d.Image4URL,
		&fa,
		&fc,
		&fi,
		&fcol,
		&femp,
		&total,
		&calculated,
		&d.Assumptions,
		&d.DataCollectedBy,
		&d.CollectionDate,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.AttendFA = floatPtr(fa)
	d.ConsultFC = floatPtr(fc)
	d.InvolveFI = floatPtr(fi)
	d.CollaborateFCOL = floatPtr(fcol)
	d.EmpowerFEMP = floatPtr(femp)
	d.TotalParticipationN = floatPtr(total)
	d.CalculatedPI = floatPtr(calculated)
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	return &d, nil
}
