package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// BenefitStatus is the lifecycle state of a takaful benefit record.
type BenefitStatus string

const (
	StatusOpen       BenefitStatus = "open"
	StatusInProgress BenefitStatus = "inprogress"
	StatusClosed     BenefitStatus = "closed"
	StatusCancelled  BenefitStatus = "cancelled"
)

// AllStatuses lists every status in display order.
var AllStatuses = []BenefitStatus{StatusOpen, StatusInProgress, StatusClosed, StatusCancelled}

// Valid reports whether s is a known status.
func (s BenefitStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusClosed, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s BenefitStatus) Terminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

// Label returns the Arabic label shown to committee members.
func (s BenefitStatus) Label() string {
	switch s {
	case StatusOpen:
		return "مفتوحة"
	case StatusInProgress:
		return "قيد التنفيذ"
	case StatusClosed:
		return "مغلقة"
	case StatusCancelled:
		return "ملغاة"
	}
	return string(s)
}

// transitions maps a status to the statuses it may move to.
// open -> inprogress is driven by the provider side, not by committee users.
var transitions = map[BenefitStatus][]BenefitStatus{
	StatusOpen:       {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusClosed, StatusCancelled},
}

// CanTransition reports whether a record in status from may move to status to.
func CanTransition(from, to BenefitStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StatusAction is a user-initiated move out of an active status.
type StatusAction string

const (
	ActionClose  StatusAction = "close"
	ActionCancel StatusAction = "cancel"
)

// TargetStatus returns the status an action leads to.
func (a StatusAction) TargetStatus() (BenefitStatus, bool) {
	switch a {
	case ActionClose:
		return StatusClosed, true
	case ActionCancel:
		return StatusCancelled, true
	}
	return "", false
}

// AllowedActions returns the actions a committee user may take on a record
// in status s. Closing is only offered once the service is in progress.
func AllowedActions(s BenefitStatus) []StatusAction {
	var out []StatusAction
	if CanTransition(s, StatusClosed) {
		out = append(out, ActionClose)
	}
	if CanTransition(s, StatusCancelled) {
		out = append(out, ActionCancel)
	}
	return out
}

// ProviderType identifies which directory a provider id belongs to.
type ProviderType string

const (
	ProviderDoctor     ProviderType = "doctor"
	ProviderPharmacy   ProviderType = "pharmacy"
	ProviderLaboratory ProviderType = "laboratory"
)

// AllProviderTypes lists the provider directories.
var AllProviderTypes = []ProviderType{ProviderDoctor, ProviderPharmacy, ProviderLaboratory}

func (p ProviderType) Valid() bool {
	return p == ProviderDoctor || p == ProviderPharmacy || p == ProviderLaboratory
}

// Label returns the Arabic label of the provider type.
func (p ProviderType) Label() string {
	switch p {
	case ProviderDoctor:
		return "طبيب"
	case ProviderPharmacy:
		return "صيدلية"
	case ProviderLaboratory:
		return "مخبر"
	}
	return string(p)
}

// BenefitType is the kind of relief granted by the provider.
type BenefitType string

const (
	BenefitFree     BenefitType = "free"
	BenefitDiscount BenefitType = "discount"
)

func (t BenefitType) Valid() bool { return t == BenefitFree || t == BenefitDiscount }

// DateLayout is the wire and storage format of benefit_date.
const DateLayout = "2006-01-02"

// TakafulBenefit is one family's use of a participating provider's free or
// discounted service. Provider, family and reason names are display-only
// values joined in by the repository.
type TakafulBenefit struct {
	ID                 string        `json:"id"`
	BenefitCode        string        `json:"benefit_code"`
	ProviderType       ProviderType  `json:"provider_type"`
	ProviderID         string        `json:"provider_id"`
	ProviderName       string        `json:"provider_name,omitempty"`
	FamilyID           *string       `json:"family_id"`
	FamilyNumber       *string       `json:"family_number"`
	BenefitDate        string        `json:"benefit_date"`
	BenefitType        BenefitType   `json:"benefit_type"`
	DiscountPercentage *float64      `json:"discount_percentage"`
	OriginalAmount     *float64      `json:"original_amount"`
	FinalAmount        *float64      `json:"final_amount"`
	FreeAmount         *float64      `json:"free_amount"`
	Notes              string        `json:"notes"`
	Status             BenefitStatus `json:"status"`
	StatusNote         *string       `json:"status_note"`
	CancelReason       *string       `json:"cancel_reason"`
	CancelReasonName   *string       `json:"cancel_reason_name,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	CreatedBy          *string       `json:"created_by"`
	UpdatedAt          *time.Time    `json:"updated_at"`
	UpdatedBy          *string       `json:"updated_by"`
}

// Linked reports whether a family has been attached.
func (b *TakafulBenefit) Linked() bool { return b.FamilyID != nil && *b.FamilyID != "" }

// Deletable reports whether the record may still be removed: it must be
// open and not yet linked to a family.
func (b *TakafulBenefit) Deletable() bool { return b.Status == StatusOpen && !b.Linked() }

var (
	ErrInvalidProviderType = errors.New("invalid provider type")
	ErrInvalidBenefitType  = errors.New("invalid benefit type")
	ErrInvalidDiscount     = errors.New("discount percentage must be in (0, 100]")
	ErrUnexpectedDiscount  = errors.New("discount percentage is only allowed for discount benefits")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidDate         = errors.New("benefit_date must be YYYY-MM-DD")
	ErrNegativeAmount      = errors.New("original amount must not be negative")
	ErrMetadataMismatch    = errors.New("status metadata does not match status")
)

// Validate checks the record-level rules: the discount percentage
// exists iff the benefit is a discount, cancel_reason exists iff the record
// is cancelled and status_note is only carried by closed records.
func (b *TakafulBenefit) Validate() error {
	if !b.ProviderType.Valid() {
		return ErrInvalidProviderType
	}
	if !b.BenefitType.Valid() {
		return ErrInvalidBenefitType
	}
	if !b.Status.Valid() {
		return ErrInvalidStatus
	}
	if err := ValidateDiscount(b.BenefitType, b.DiscountPercentage); err != nil {
		return err
	}
	if _, err := time.Parse(DateLayout, b.BenefitDate); err != nil {
		return ErrInvalidDate
	}
	if b.OriginalAmount != nil && *b.OriginalAmount < 0 {
		return ErrNegativeAmount
	}
	hasReason := b.CancelReason != nil && *b.CancelReason != ""
	if hasReason != (b.Status == StatusCancelled) {
		return fmt.Errorf("%w: cancel_reason with status %s", ErrMetadataMismatch, b.Status)
	}
	if b.StatusNote != nil && b.Status != StatusClosed {
		return fmt.Errorf("%w: status_note with status %s", ErrMetadataMismatch, b.Status)
	}
	return nil
}

// ValidateDiscount enforces discount_percentage ∈ (0,100] for discounts and
// its absence for free benefits.
func ValidateDiscount(t BenefitType, pct *float64) error {
	switch t {
	case BenefitDiscount:
		if pct == nil || *pct <= 0 || *pct > 100 {
			return ErrInvalidDiscount
		}
	case BenefitFree:
		if pct != nil {
			return ErrUnexpectedDiscount
		}
	default:
		return ErrInvalidBenefitType
	}
	return nil
}

// ComputeAmounts derives final and free amounts from the original amount.
// Nothing is set when the original amount is unknown.
func (b *TakafulBenefit) ComputeAmounts() {
	b.FinalAmount, b.FreeAmount = nil, nil
	if b.OriginalAmount == nil {
		return
	}
	orig := round2(*b.OriginalAmount)
	final := 0.0
	if b.BenefitType == BenefitDiscount && b.DiscountPercentage != nil {
		final = round2(orig * (1 - *b.DiscountPercentage/100))
	}
	free := round2(orig - final)
	b.OriginalAmount, b.FinalAmount, b.FreeAmount = &orig, &final, &free
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// BenefitStats summarises a provider's non-cancelled benefits.
type BenefitStats struct {
	TotalBenefits    int `json:"total_benefits"`
	FreeBenefits     int `json:"free_benefits"`
	DiscountBenefits int `json:"discount_benefits"`
}

// MonthRange returns the half-open [start, end) date range of a month.
func MonthRange(year, month int) (time.Time, time.Time, error) {
	if month < 1 || month > 12 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %d", month)
	}
	if year < 2000 || year > 2100 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid year %d", year)
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), nil
}
