package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hama-community/welfare/internal/database"
	"github.com/hama-community/welfare/internal/model"
)

// CancelReasonRepo manages the cancellation reason catalog.
type CancelReasonRepo struct{ db *sql.DB }

func NewCancelReasonRepo(db *sql.DB) *CancelReasonRepo { return &CancelReasonRepo{db: db} }

const reasonSelect = `SELECT id, name, description, is_active, created_at, updated_at FROM cancel_reasons`

func scanReason(s rowScanner) (*model.CancelReason, error) {
	var (
		cr        model.CancelReason
		desc      sql.NullString
		updatedAt sql.NullTime
	)
	if err := s.Scan(&cr.ID, &cr.Name, &desc, &cr.IsActive, &cr.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}
	cr.Description = desc.String
	if updatedAt.Valid {
		t := updatedAt.Time
		cr.UpdatedAt = &t
	}
	return &cr, nil
}

// List returns the catalog ordered by name.
func (r *CancelReasonRepo) List(ctx context.Context, activeOnly bool) ([]model.CancelReason, error) {
	q := reasonSelect
	if activeOnly {
		q += " WHERE is_active = TRUE"
	}
	rows, err := r.db.QueryContext(ctx, q+" ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.CancelReason, 0)
	for rows.Next() {
		cr, err := scanReason(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *cr)
	}
	return out, rows.Err()
}

// GetByID fetches a reason.  ErrNotFound when missing.
func (r *CancelReasonRepo) GetByID(ctx context.Context, id string) (*model.CancelReason, error) {
	cr, err := scanReason(r.db.QueryRowContext(ctx, reasonSelect+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return cr, err
}

// Create inserts an active reason with the caller-provided id.
func (r *CancelReasonRepo) Create(ctx context.Context, id, name, description string) (*model.CancelReason, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cancel_reasons (id, name, description, is_active) VALUES (?, ?, ?, TRUE)`,
		id, name, description)
	if err != nil {
		return nil, mapDuplicate(err)
	}
	return r.GetByID(ctx, id)
}

// Update changes name and description.
func (r *CancelReasonRepo) Update(ctx context.Context, id, name, description string) (*model.CancelReason, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cancel_reasons SET name = ?, description = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, description, id)
	if err != nil {
		return nil, mapDuplicate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// ToggleActive flips is_active and returns the updated reason.
func (r *CancelReasonRepo) ToggleActive(ctx context.Context, id string) (*model.CancelReason, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cancel_reasons SET is_active = NOT is_active, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func mapDuplicate(err error) error {
	if database.IsDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}
