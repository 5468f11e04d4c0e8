package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to BenefitStatus
		ok       bool
	}{
		{StatusOpen, StatusInProgress, true},
		{StatusOpen, StatusCancelled, true},
		{StatusOpen, StatusClosed, false},
		{StatusInProgress, StatusClosed, true},
		{StatusInProgress, StatusCancelled, true},
		{StatusInProgress, StatusOpen, false},
		{StatusClosed, StatusCancelled, false},
		{StatusClosed, StatusOpen, false},
		{StatusCancelled, StatusOpen, false},
		{StatusCancelled, StatusInProgress, false},
		{StatusOpen, StatusOpen, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestAllowedActions(t *testing.T) {
	assert.Equal(t, []StatusAction{ActionCancel}, AllowedActions(StatusOpen))
	assert.Equal(t, []StatusAction{ActionClose, ActionCancel}, AllowedActions(StatusInProgress))
	assert.Empty(t, AllowedActions(StatusClosed))
	assert.Empty(t, AllowedActions(StatusCancelled))
}

func TestValidateDiscountInvariant(t *testing.T) {
	b := validBenefit()
	require.NoError(t, b.Validate())

	b.DiscountPercentage = ptr(10.0)
	assert.ErrorIs(t, b.Validate(), ErrUnexpectedDiscount)

	b.BenefitType = BenefitDiscount
	require.NoError(t, b.Validate())

	for _, bad := range []float64{0, -5, 100.5} {
		b.DiscountPercentage = ptr(bad)
		assert.ErrorIs(t, b.Validate(), ErrInvalidDiscount, "pct %v", bad)
	}
	b.DiscountPercentage = ptr(100.0)
	assert.NoError(t, b.Validate())

	b.DiscountPercentage = nil
	assert.ErrorIs(t, b.Validate(), ErrInvalidDiscount)
}

func TestValidateStatusMetadata(t *testing.T) {
	b := validBenefit()
	b.Status = StatusCancelled
	assert.ErrorIs(t, b.Validate(), ErrMetadataMismatch)

	b.CancelReason = ptr("r1")
	assert.NoError(t, b.Validate())

	b.Status = StatusClosed
	assert.ErrorIs(t, b.Validate(), ErrMetadataMismatch)

	b.CancelReason = nil
	b.StatusNote = ptr("تم التسليم")
	assert.NoError(t, b.Validate())

	b.Status = StatusInProgress
	assert.ErrorIs(t, b.Validate(), ErrMetadataMismatch)
}

func TestValidateRejectsBadDate(t *testing.T) {
	b := validBenefit()
	b.BenefitDate = "14/03/2025"
	assert.ErrorIs(t, b.Validate(), ErrInvalidDate)
}

func TestComputeAmounts(t *testing.T) {
	b := validBenefit()
	b.ComputeAmounts()
	assert.Nil(t, b.FinalAmount)
	assert.Nil(t, b.FreeAmount)

	b.OriginalAmount = ptr(15000.0)
	b.ComputeAmounts()
	require.NotNil(t, b.FinalAmount)
	assert.Equal(t, 0.0, *b.FinalAmount)
	assert.Equal(t, 15000.0, *b.FreeAmount)

	b.BenefitType = BenefitDiscount
	b.DiscountPercentage = ptr(25.0)
	b.ComputeAmounts()
	assert.Equal(t, 11250.0, *b.FinalAmount)
	assert.Equal(t, 3750.0, *b.FreeAmount)

	b.OriginalAmount = ptr(99.99)
	b.DiscountPercentage = ptr(33.0)
	b.ComputeAmounts()
	assert.Equal(t, 66.99, *b.FinalAmount)
	assert.Equal(t, 33.0, *b.FreeAmount)
}

func TestDeletable(t *testing.T) {
	b := validBenefit()
	assert.True(t, b.Deletable())
	b.FamilyID = ptr("f1")
	assert.False(t, b.Deletable())
	b.FamilyID = nil
	b.Status = StatusInProgress
	assert.False(t, b.Deletable())
}

func TestMonthRange(t *testing.T) {
	start, end, err := MonthRange(2025, 12)
	require.NoError(t, err)
	assert.Equal(t, "2025-12-01", start.Format(DateLayout))
	assert.Equal(t, "2026-01-01", end.Format(DateLayout))

	_, _, err = MonthRange(2025, 13)
	assert.Error(t, err)
	_, _, err = MonthRange(1999, 1)
	assert.Error(t, err)
}
