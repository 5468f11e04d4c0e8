package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hama-community/welfare/internal/database"
	"github.com/hama-community/welfare/internal/model"
)

// providerTable maps a provider type to its table and display-name column.
// Doctors are stored by full name, pharmacies and laboratories by name.
var providerTable = map[model.ProviderType]struct{ table, name, specialty string }{
	model.ProviderDoctor:     {"doctors", "full_name", "specialty_id"},
	model.ProviderPharmacy:   {"pharmacies", "name", "NULL"},
	model.ProviderLaboratory: {"laboratories", "name", "NULL"},
}

// ProviderRepo reads the healthcare directory.
type ProviderRepo struct{ db *sql.DB }

func NewProviderRepo(db *sql.DB) *ProviderRepo { return &ProviderRepo{db: db} }

// ProviderFilter narrows List.  SolidarityOnly keeps providers taking part
// in the takaful program.
type ProviderFilter struct {
	NeighborhoodID string
	SolidarityOnly bool
	ActiveOnly     bool
}

func providerQuery(t model.ProviderType) (string, error) {
	pt, ok := providerTable[t]
	if !ok {
		return "", model.ErrInvalidProviderType
	}
	return fmt.Sprintf(`SELECT id, %s, %s, neighborhood_id, phone, address, is_active, participates_in_solidarity, created_at FROM %s`,
		pt.name, pt.specialty, pt.table), nil
}

func scanProvider(s rowScanner, t model.ProviderType) (*model.Provider, error) {
	var (
		p                 model.Provider
		specialty, nbh    sql.NullString
		phone, address    sql.NullString
	)
	if err := s.Scan(&p.ID, &p.Name, &specialty, &nbh, &phone, &address, &p.IsActive, &p.ParticipatesInSolidarity, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Type = t
	p.SpecialtyID, p.NeighborhoodID = nullString(specialty), nullString(nbh)
	p.Phone, p.Address = phone.String, address.String
	return &p, nil
}

// List returns providers of one type ordered by name.
func (r *ProviderRepo) List(ctx context.Context, t model.ProviderType, f ProviderFilter) ([]model.Provider, error) {
	q, err := providerQuery(t)
	if err != nil {
		return nil, err
	}
	var (
		conds []string
		args  []any
	)
	if f.NeighborhoodID != "" {
		conds = append(conds, "neighborhood_id = ?")
		args = append(args, f.NeighborhoodID)
	}
	if f.SolidarityOnly {
		conds = append(conds, "participates_in_solidarity = TRUE")
	}
	if f.ActiveOnly {
		conds = append(conds, "is_active = TRUE")
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY " + providerTable[t].name

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Provider, 0)
	for rows.Next() {
		p, err := scanProvider(rows, t)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// GetByID fetches a provider of the given type.
func (r *ProviderRepo) GetByID(ctx context.Context, t model.ProviderType, id string) (*model.Provider, error) {
	q, err := providerQuery(t)
	if err != nil {
		return nil, err
	}
	p, err := scanProvider(r.db.QueryRowContext(ctx, q+" WHERE id = ?", id), t)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// FamilyRepo stores the family registry.
type FamilyRepo struct{ db *sql.DB }

func NewFamilyRepo(db *sql.DB) *FamilyRepo { return &FamilyRepo{db: db} }

const familySelect = `SELECT id, family_number, name, neighborhood_id, members_count, monthly_need,
       COALESCE(description, ''), status, created_at FROM families`

func scanFamily(s rowScanner) (*model.Family, error) {
	var (
		f   model.Family
		nbh sql.NullString
	)
	if err := s.Scan(&f.ID, &f.FamilyNumber, &f.Name, &nbh, &f.MembersCount, &f.MonthlyNeed, &f.Description, &f.Status, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.NeighborhoodID = nullString(nbh)
	return &f, nil
}

// List returns families, optionally restricted to one neighborhood.
func (r *FamilyRepo) List(ctx context.Context, neighborhoodID string) ([]model.Family, error) {
	q, args := familySelect, []any{}
	if neighborhoodID != "" {
		q += " WHERE neighborhood_id = ?"
		args = append(args, neighborhoodID)
	}
	rows, err := r.db.QueryContext(ctx, q+" ORDER BY family_number", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Family, 0)
	for rows.Next() {
		f, err := scanFamily(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// GetByID fetches a family.  ErrNotFound when missing.
func (r *FamilyRepo) GetByID(ctx context.Context, id string) (*model.Family, error) {
	f, err := scanFamily(r.db.QueryRowContext(ctx, familySelect+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return f, err
}

// Create inserts f.  A taken family number yields ErrDuplicate.
func (r *FamilyRepo) Create(ctx context.Context, f *model.Family) error {
	const q = `INSERT INTO families (id, family_number, name, neighborhood_id, members_count, monthly_need, description, status)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, f.ID, f.FamilyNumber, f.Name, f.NeighborhoodID,
		f.MembersCount, f.MonthlyNeed, f.Description, f.Status)
	return mapDuplicate(err)
}

// Update replaces every editable column of f.
func (r *FamilyRepo) Update(ctx context.Context, f *model.Family) error {
	const q = `UPDATE families
                  SET family_number = ?, name = ?, neighborhood_id = ?, members_count = ?,
                      monthly_need = ?, description = ?, status = ?, updated_at = CURRENT_TIMESTAMP
                WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, f.FamilyNumber, f.Name, f.NeighborhoodID, f.MembersCount,
		f.MonthlyNeed, f.Description, f.Status, f.ID)
	if err != nil {
		return mapDuplicate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a family.  A family still referenced by a benefit yields
// ErrConflict.
func (r *FamilyRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM families WHERE id = ?`, id)
	if database.IsRowReferenced(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// NeighborhoodRepo reads neighborhoods.
type NeighborhoodRepo struct{ db *sql.DB }

func NewNeighborhoodRepo(db *sql.DB) *NeighborhoodRepo { return &NeighborhoodRepo{db: db} }

// List returns neighborhoods ordered by number.
func (r *NeighborhoodRepo) List(ctx context.Context, activeOnly bool) ([]model.Neighborhood, error) {
	q := `SELECT id, name, number, is_active, created_at FROM neighborhoods`
	if activeOnly {
		q += ` WHERE is_active = TRUE`
	}
	rows, err := r.db.QueryContext(ctx, q+` ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Neighborhood, 0)
	for rows.Next() {
		var n model.Neighborhood
		if err := rows.Scan(&n.ID, &n.Name, &n.Number, &n.IsActive, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
