package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
)

func TestJobStatus_Transitions(t *testing.T) {
	assert.True(t, JobStatusOpen.CanTransitionTo(JobStatusAssigned))
	assert.True(t, JobStatusOpen.CanTransitionTo(JobStatusCancelled))
	assert.True(t, JobStatusAssigned.CanTransitionTo(JobStatusWorkDone))
	assert.True(t, JobStatusWorkDone.CanTransitionTo(JobStatusCompleted))
	assert.True(t, JobStatusWorkDone.CanTransitionTo(JobStatusWaitingForPayment))
	assert.True(t, JobStatusWaitingForPayment.CanTransitionTo(JobStatusWorkDone))

	assert.False(t, JobStatusOpen.CanTransitionTo(JobStatusWorkDone))
	assert.False(t, JobStatusAssigned.CanTransitionTo(JobStatusCompleted))
	assert.False(t, JobStatusCompleted.CanTransitionTo(JobStatusOpen))
	assert.False(t, JobStatusCancelled.CanTransitionTo(JobStatusAssigned))
}

func TestNewJobStatus_Invalid(t *testing.T) {
	_, err := NewJobStatus("deleted")
	assert.Error(t, err)
}

func TestOfferStatus_IsActive(t *testing.T) {
	assert.True(t, OfferStatusPending.IsActive())
	assert.True(t, OfferStatusAccepted.IsActive())
	assert.False(t, OfferStatusRejected.IsActive())
	assert.False(t, OfferStatusWithdrawn.IsActive())
}

func TestNewOfferType_DefaultsToCustom(t *testing.T) {
	ot, err := NewOfferType("")
	require.NoError(t, err)
	assert.Equal(t, OfferTypeCustomOffer, ot)

	_, err = NewOfferType("auction")
	assert.Error(t, err)
}

func TestTransactionStatus_ForwardOnly(t *testing.T) {
	assert.True(t, TransactionStatusPending.CanTransitionTo(TransactionStatusCompleted))
	assert.True(t, TransactionStatusPending.CanTransitionTo(TransactionStatusFailed))
	assert.False(t, TransactionStatusCompleted.CanTransitionTo(TransactionStatusPending))
	assert.False(t, TransactionStatusFailed.CanTransitionTo(TransactionStatusCompleted))
}

func TestCommissionRate_SplitConservesAmount(t *testing.T) {
	rate, err := CommissionRateFromDecimal(0.1)
	require.NoError(t, err)
	assert.Equal(t, 1000, rate.BasisPoints)

	for _, amount := range []int64{1, 4, 5, 9, 15, 999, 1000, 1234567, MaxAmount} {
		split := rate.Split(amount)
		assert.Equal(t, amount, split.Commission+split.FreelancerAmount, "amount %d", amount)
	}
}

func TestCommissionRate_RoundsHalfUp(t *testing.T) {
	rate, _ := NewCommissionRate(1000)

	assert.Equal(t, int64(100), rate.Split(1000).Commission)
	assert.Equal(t, int64(0), rate.Split(4).Commission)
	assert.Equal(t, int64(1), rate.Split(5).Commission)
	assert.Equal(t, int64(2), rate.Split(15).Commission)

	assert.Equal(t, int64(900), rate.Split(1000).FreelancerAmount)
}

func TestCommissionRate_Bounds(t *testing.T) {
	_, err := CommissionRateFromDecimal(1.5)
	assert.Error(t, err)
	_, err = NewCommissionRate(-1)
	assert.Error(t, err)

	_, err = CommissionRateFromDecimal(0.12345)
	assert.True(t, apperror.IsValidation(err), "доли базисного пункта не округляются молча")

	fine, err := CommissionRateFromDecimal(0.1235)
	require.NoError(t, err)
	assert.Equal(t, 1235, fine.BasisPoints)

	zero, err := CommissionRateFromDecimal(0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), zero.Split(100).Commission)
}

func TestValidateAmount(t *testing.T) {
	assert.Error(t, ValidateAmount("amount", 0))
	assert.Error(t, ValidateAmount("amount", -5))
	assert.Error(t, ValidateAmount("amount", MaxAmount+1))
	assert.NoError(t, ValidateAmount("amount", 1))
}
