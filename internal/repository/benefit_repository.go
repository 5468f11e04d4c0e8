package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/hama-community/welfare/internal/database"
	"github.com/hama-community/welfare/internal/model"
)

// BenefitRepo provides persistence for takaful benefit records.  Provider
// and cancel-reason names are joined in for display; the family number is
// stored on the benefit row itself when a family is linked.
type BenefitRepo struct {
	db *sql.DB
}

// NewBenefitRepo returns a BenefitRepo bound to the given database.
func NewBenefitRepo(db *sql.DB) *BenefitRepo { return &BenefitRepo{db: db} }

const benefitSelect = `SELECT b.id, b.benefit_code, b.provider_type, b.provider_id,
       COALESCE(d.full_name, ph.name, lb.name, ''),
       b.family_id, b.family_number, DATE_FORMAT(b.benefit_date, '%Y-%m-%d'),
       b.benefit_type, b.discount_percentage, b.original_amount, b.final_amount, b.free_amount,
       b.notes, b.status, b.status_note, b.cancel_reason, cr.name,
       b.created_at, b.created_by, b.updated_at, b.updated_by
  FROM takaful_benefits b
  LEFT JOIN doctors d       ON b.provider_type = 'doctor'     AND d.id = b.provider_id
  LEFT JOIN pharmacies ph   ON b.provider_type = 'pharmacy'   AND ph.id = b.provider_id
  LEFT JOIN laboratories lb ON b.provider_type = 'laboratory' AND lb.id = b.provider_id
  LEFT JOIN cancel_reasons cr ON cr.id = b.cancel_reason`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBenefit(s rowScanner) (*model.TakafulBenefit, error) {
	var (
		b                                   model.TakafulBenefit
		familyID, familyNumber              sql.NullString
		statusNote, cancelReason, reasonNm  sql.NullString
		createdBy, updatedBy                sql.NullString
		pct, orig, final, free              sql.NullFloat64
		updatedAt                           sql.NullTime
		providerType, benefitType, status   string
	)
	err := s.Scan(
		&b.ID, &b.BenefitCode, &providerType, &b.ProviderID, &b.ProviderName,
		&familyID, &familyNumber, &b.BenefitDate,
		&benefitType, &pct, &orig, &final, &free,
		&b.Notes, &status, &statusNote, &cancelReason, &reasonNm,
		&b.CreatedAt, &createdBy, &updatedAt, &updatedBy,
	)
	if err != nil {
		return nil, err
	}
	b.ProviderType = model.ProviderType(providerType)
	b.BenefitType = model.BenefitType(benefitType)
	b.Status = model.BenefitStatus(status)
	b.FamilyID, b.FamilyNumber = nullString(familyID), nullString(familyNumber)
	b.StatusNote, b.CancelReason, b.CancelReasonName = nullString(statusNote), nullString(cancelReason), nullString(reasonNm)
	b.CreatedBy, b.UpdatedBy = nullString(createdBy), nullString(updatedBy)
	b.DiscountPercentage, b.OriginalAmount = nullFloat(pct), nullFloat(orig)
	b.FinalAmount, b.FreeAmount = nullFloat(final), nullFloat(free)
	if updatedAt.Valid {
		t := updatedAt.Time
		b.UpdatedAt = &t
	}
	return &b, nil
}

// Create inserts a new benefit.  ID and BenefitCode must be set by the
// caller.  After the insert the row is read back so that server-assigned
// fields (created_at, provider name) are populated on b.  A clash on id or
// benefit_code is reported as ErrDuplicate.
func (r *BenefitRepo) Create(ctx context.Context, b *model.TakafulBenefit) error {
	const q = `INSERT INTO takaful_benefits
        (id, benefit_code, provider_type, provider_id, family_id, family_number, benefit_date,
         benefit_type, discount_percentage, original_amount, final_amount, free_amount,
         notes, status, created_by)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		b.ID, b.BenefitCode, string(b.ProviderType), b.ProviderID, b.FamilyID, b.FamilyNumber, b.BenefitDate,
		string(b.BenefitType), b.DiscountPercentage, b.OriginalAmount, b.FinalAmount, b.FreeAmount,
		b.Notes, string(b.Status), b.CreatedBy,
	)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	stored, err := r.GetByID(ctx, b.ID)
	if err != nil {
		return err
	}
	*b = *stored
	return nil
}

// GetByID fetches a benefit with its display joins.  ErrNotFound is
// returned when no row matches.
func (r *BenefitRepo) GetByID(ctx context.Context, id string) (*model.TakafulBenefit, error) {
	b, err := scanBenefit(r.db.QueryRowContext(ctx, benefitSelect+` WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// BenefitFilter narrows List.  Zero values mean "no restriction".  From/To
// form a half-open date range on benefit_date.
type BenefitFilter struct {
	From             time.Time
	To               time.Time
	ProviderType     model.ProviderType
	ProviderID       string
	NeighborhoodID   string // provider's neighborhood
	ExcludeCancelled bool
}

func (f BenefitFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !f.From.IsZero() {
		conds = append(conds, "b.benefit_date >= ?")
		args = append(args, f.From.Format(model.DateLayout))
	}
	if !f.To.IsZero() {
		conds = append(conds, "b.benefit_date < ?")
		args = append(args, f.To.Format(model.DateLayout))
	}
	if f.ProviderType != "" {
		conds = append(conds, "b.provider_type = ?")
		args = append(args, string(f.ProviderType))
	}
	if f.ProviderID != "" {
		conds = append(conds, "b.provider_id = ?")
		args = append(args, f.ProviderID)
	}
	if f.NeighborhoodID != "" {
		conds = append(conds, "COALESCE(d.neighborhood_id, ph.neighborhood_id, lb.neighborhood_id) = ?")
		args = append(args, f.NeighborhoodID)
	}
	if f.ExcludeCancelled {
		conds = append(conds, "b.status <> 'cancelled'")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns benefits matching f, newest benefit_date first.
func (r *BenefitRepo) List(ctx context.Context, f BenefitFilter) ([]model.TakafulBenefit, error) {
	where, args := f.where()
	rows, err := r.db.QueryContext(ctx, benefitSelect+where+` ORDER BY b.benefit_date DESC, b.created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.TakafulBenefit, 0)
	for rows.Next() {
		b, err := scanBenefit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats counts a provider's non-cancelled benefits by type.
func (r *BenefitRepo) Stats(ctx context.Context, t model.ProviderType, providerID string) (model.BenefitStats, error) {
	const q = `SELECT COUNT(*),
                      COALESCE(SUM(benefit_type = 'free'), 0),
                      COALESCE(SUM(benefit_type = 'discount'), 0)
                 FROM takaful_benefits
                WHERE provider_type = ? AND provider_id = ? AND status <> 'cancelled'`
	var s model.BenefitStats
	err := r.db.QueryRowContext(ctx, q, string(t), providerID).Scan(&s.TotalBenefits, &s.FreeBenefits, &s.DiscountBenefits)
	return s, err
}

// StatusUpdate describes a guarded status write.  From lists the statuses
// the record must currently be in; the write is skipped otherwise.
type StatusUpdate struct {
	ID           string
	From         []model.BenefitStatus
	To           model.BenefitStatus
	StatusNote   *string
	CancelReason *string
	UpdatedBy    string
}

// UpdateStatus writes the new status and its metadata in one conditional
// statement.  Both metadata columns are always written so that the field
// not belonging to the new status is cleared.  ErrConflict is returned when
// the record was not in one of u.From (or does not exist).
func (r *BenefitRepo) UpdateStatus(ctx context.Context, u StatusUpdate) error {
	if len(u.From) == 0 {
		return ErrConflict
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(u.From)), ",")
	q := `UPDATE takaful_benefits
             SET status = ?, status_note = ?, cancel_reason = ?,
                 updated_at = CURRENT_TIMESTAMP, updated_by = ?
           WHERE id = ? AND status IN (` + marks + `)`
	args := []any{string(u.To), u.StatusNote, u.CancelReason, u.UpdatedBy, u.ID}
	for _, s := range u.From {
		args = append(args, string(s))
	}
	return expectOneRow(r.db.ExecContext(ctx, q, args...))
}

// DetailsUpdate is a partial write of the non-status fields.  Nil fields
// keep their stored value.  FamilyNumber is stored alongside FamilyID.
type DetailsUpdate struct {
	ID           string
	FamilyID     *string
	FamilyNumber *string
	Notes        *string
	UpdatedBy    string
}

// UpdateDetails links a family and/or replaces the notes in a single
// statement.  When a family is given the record must not be cancelled;
// ErrConflict is returned when no row matched.
func (r *BenefitRepo) UpdateDetails(ctx context.Context, u DetailsUpdate) error {
	if u.FamilyID == nil && u.Notes == nil {
		return ErrConflict
	}
	sets := []string{}
	args := []any{}
	if u.FamilyID != nil {
		sets = append(sets, "family_id = ?", "family_number = ?")
		args = append(args, *u.FamilyID, u.FamilyNumber)
	}
	if u.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *u.Notes)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP", "updated_by = ?")
	args = append(args, u.UpdatedBy, u.ID)

	q := "UPDATE takaful_benefits SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	if u.FamilyID != nil {
		q += " AND status <> 'cancelled'"
	}
	return expectOneRow(r.db.ExecContext(ctx, q, args...))
}

// DeleteUnlinkedOpen removes a benefit only while it is open and has no
// family attached.  ErrConflict is returned otherwise.
func (r *BenefitRepo) DeleteUnlinkedOpen(ctx context.Context, id string) error {
	const q = `DELETE FROM takaful_benefits WHERE id = ? AND status = 'open' AND family_id IS NULL`
	return expectOneRow(r.db.ExecContext(ctx, q, id))
}

func expectOneRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullFloat(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}
