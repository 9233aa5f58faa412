package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
)

func validJobParams() NewJobParams {
	return NewJobParams{
		ClientID:       uuid.New(),
		Title:          "Помыть окна",
		Description:    "Нужно помыть окна в трёхкомнатной квартире",
		Category:       "cleaning",
		Amount:         1000,
		NumberOfPeople: 1,
		Address:        "Алматы, Абая 10",
	}
}

func TestNewJob_Defaults(t *testing.T) {
	now := time.Now()
	job, err := NewJob(validJobParams(), now)
	require.NoError(t, err)

	assert.Equal(t, valueobject.JobStatusOpen, job.Status)
	assert.Equal(t, valueobject.GenderPreferenceAny, job.GenderPreference)
	assert.True(t, job.IsActive)
	assert.Nil(t, job.FreelancerID)
}

func TestNewJob_Validation(t *testing.T) {
	cases := map[string]func(p *NewJobParams){
		"amount zero":      func(p *NewJobParams) { p.Amount = 0 },
		"people zero":      func(p *NewJobParams) { p.NumberOfPeople = 0 },
		"people too many":  func(p *NewJobParams) { p.NumberOfPeople = 101 },
		"missing category": func(p *NewJobParams) { p.Category = " " },
		"missing address":  func(p *NewJobParams) { p.Address = "" },
		"short title":      func(p *NewJobParams) { p.Title = "ab" },
		"bad gender":       func(p *NewJobParams) { p.GenderPreference = "robot" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := validJobParams()
			mutate(&p)
			_, err := NewJob(p, time.Now())
			assert.True(t, apperror.IsValidation(err), "got %v", err)
		})
	}
}

func assigned(job *Job, freelancerID uuid.UUID) {
	now := time.Now()
	job.Status = valueobject.JobStatusAssigned
	job.FreelancerID = &freelancerID
	job.AssignedAt = &now
}

func TestJob_CheckWorkDone(t *testing.T) {
	job, _ := NewJob(validJobParams(), time.Now())
	freelancer := uuid.New()

	assert.True(t, apperror.IsForbidden(job.CheckWorkDone(freelancer)))

	assigned(job, freelancer)
	assert.NoError(t, job.CheckWorkDone(freelancer))
	assert.True(t, apperror.IsForbidden(job.CheckWorkDone(uuid.New())))
}

func TestJob_CheckDeletable(t *testing.T) {
	job, _ := NewJob(validJobParams(), time.Now())
	assert.NoError(t, job.CheckDeletable())

	assigned(job, uuid.New())
	err := job.CheckDeletable()
	assert.True(t, apperror.IsInvalidState(err))
}

func TestOffer_CooldownRemaining(t *testing.T) {
	job, _ := NewJob(validJobParams(), time.Now())
	created := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	offer, err := NewOffer(job, uuid.New(), 900, "", valueobject.OfferTypeCustomOffer, created)
	require.NoError(t, err)

	assert.Equal(t, int64(1000), offer.OriginalAmount)
	assert.Equal(t, ReofferCooldown, offer.CooldownRemaining(created))
	assert.Equal(t, 180, RemainingSeconds(offer.CooldownRemaining(created.Add(2*time.Minute))))
	assert.Equal(t, 1, RemainingSeconds(offer.CooldownRemaining(created.Add(4*time.Minute+59500*time.Millisecond))))
	assert.Zero(t, offer.CooldownRemaining(created.Add(ReofferCooldown)))
}

func TestOffer_AcceptRejectOnlyFromPending(t *testing.T) {
	job, _ := NewJob(validJobParams(), time.Now())
	offer, _ := NewOffer(job, uuid.New(), 900, "готов", valueobject.OfferTypeCustomOffer, time.Now())

	require.NoError(t, offer.Accept(time.Now()))
	err := offer.Reject("поздно", time.Now())
	assert.Equal(t, apperror.ErrCodeAlreadyResolved, apperror.CodeOf(err))
}

func TestNewWithdrawal_RequiresBankDetails(t *testing.T) {
	_, err := NewWithdrawal(uuid.New(), 100, BankDetails{AccountName: "Иван"}, time.Now())
	assert.True(t, apperror.IsValidation(err))

	tx, err := NewWithdrawal(uuid.New(), 100, BankDetails{AccountName: "Иван", AccountNumber: "KZ00", BankName: "Kaspi"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, valueobject.TransactionStatusPending, tx.Status)
	assert.Nil(t, tx.CompletedAt)
}

func TestNewCommission_RecordsRate(t *testing.T) {
	job, _ := NewJob(validJobParams(), time.Now())
	payment := NewPayment(job, valueobject.PaymentMethodWallet, valueobject.TransactionStatusCompleted, PaymentReference(job.ID), time.Now())
	rate := valueobject.CommissionRate{BasisPoints: 1000, Version: 3}

	commission := NewCommission(uuid.New(), payment, rate.Split(job.Amount), time.Now())

	assert.Equal(t, int64(100), commission.Amount)
	assert.Equal(t, payment.ID, *commission.RelatedID)
	assert.Equal(t, 1000, *commission.CommissionRateBps)
	assert.Equal(t, int64(3), *commission.RateVersion)
	assert.Equal(t, CommissionReference(job.ID), commission.Reference)
}
