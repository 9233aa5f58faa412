package offer_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/gig-marketplace/internal/usecase/notification"
	"github.com/ignatzorin/gig-marketplace/internal/usecase/offer"
	"github.com/ignatzorin/gig-marketplace/internal/usecase/usecasetest"
	"github.com/ignatzorin/gig-marketplace/internal/usecase/user"
)

type fixture struct {
	store    *usecasetest.Store
	notifier *usecasetest.Notifier
	submit   *offer.SubmitOfferUseCase
	respond  *offer.RespondToOfferUseCase
	withdraw *offer.WithdrawOfferUseCase
	now      time.Time
	client   *entity.User
	job      *entity.Job
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := usecasetest.NewStore()
	notifier := &usecasetest.Notifier{}
	f := &fixture{
		store:    store,
		notifier: notifier,
		submit:   offer.NewSubmitOfferUseCase(store.Transactor(), store.Users(), store.Profiles(), store.Jobs(), store.Offers(), notifier),
		respond:  offer.NewRespondToOfferUseCase(store.Transactor(), store.Users(), store.Jobs(), store.Offers(), notifier),
		withdraw: offer.NewWithdrawOfferUseCase(store.Jobs(), store.Offers(), notifier),
		now:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.submit.SetClock(func() time.Time { return f.now })
	f.client = store.AddUser(valueobject.RoleClient)
	f.job = store.AddJob(f.client.ID, 1000, valueobject.JobStatusOpen, nil)
	return f
}

func (f *fixture) offerFrom(freelancerID uuid.UUID, amount int64, offerType string) (*offer.SubmitOfferOutput, error) {
	return f.submit.Execute(context.Background(), offer.SubmitOfferInput{
		JobID:         f.job.ID,
		FreelancerID:  freelancerID,
		OfferedAmount: amount,
		Message:       "Готов приступить сегодня",
		OfferType:     offerType,
	})
}

func TestSubmitOffer_CreatesPendingOffer(t *testing.T) {
	f := newFixture(t)
	freelancer := f.store.AddUser(valueobject.RoleFreelancer)

	out, err := f.offerFrom(freelancer.ID, 900, "")
	require.NoError(t, err)

	assert.Equal(t, offer.OutcomeCreated, out.Outcome)
	assert.Nil(t, out.Job)
	assert.Equal(t, valueobject.OfferStatusPending, out.Offer.Status)
	assert.Equal(t, valueobject.OfferTypeCustomOffer, out.Offer.OfferType)
	assert.Equal(t, int64(1000), out.Offer.OriginalAmount)
	assert.Equal(t, int64(900), out.Offer.OfferedAmount)
	assert.True(t, f.notifier.Has(f.client.ID, notification.EventOfferReceived))
}

func TestSubmitOffer_CooldownThenUpdateInPlace(t *testing.T) {
	f := newFixture(t)
	freelancer := f.store.AddUser(valueobject.RoleFreelancer)

	first, err := f.offerFrom(freelancer.ID, 900, "")
	require.NoError(t, err)

	f.now = f.now.Add(2*time.Minute + 30*time.Second + 500*time.Millisecond)
	_, err = f.offerFrom(freelancer.ID, 850, "")
	require.Equal(t, apperror.ErrCodeCooldownActive, apperror.CodeOf(err))
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 150, appErr.Details["remaining_seconds"])
	assert.Equal(t, int64(900), f.store.Offer(first.Offer.ID).OfferedAmount, "строка не меняется во время кулдауна")

	f.now = first.Offer.CreatedAt.Add(entity.ReofferCooldown)
	second, err := f.offerFrom(freelancer.ID, 850, "")
	require.NoError(t, err)

	assert.Equal(t, offer.OutcomeUpdated, second.Outcome)
	assert.Equal(t, first.Offer.ID, second.Offer.ID)
	assert.Equal(t, int64(850), f.store.Offer(first.Offer.ID).OfferedAmount)
	assert.Len(t, f.store.OffersByJob(f.job.ID), 1)
	assert.True(t, f.notifier.Has(f.client.ID, notification.EventOfferUpdated))
}

func TestSubmitOffer_CooldownAgeIsMeasuredFromCreation(t *testing.T) {
	f := newFixture(t)
	freelancer := f.store.AddUser(valueobject.RoleFreelancer)
	first, err := f.offerFrom(freelancer.ID, 900, "")
	require.NoError(t, err)

	f.now = f.now.Add(6 * time.Minute)
	_, err = f.offerFrom(freelancer.ID, 880, "")
	require.NoError(t, err)

	f.now = f.now.Add(time.Minute)
	out, err := f.offerFrom(freelancer.ID, 870, "")
	require.NoError(t, err)
	assert.Equal(t, first.Offer.ID, out.Offer.ID)
	assert.Equal(t, int64(870), f.store.Offer(first.Offer.ID).OfferedAmount)
}

func TestSubmitOffer_Preconditions(t *testing.T) {
	f := newFixture(t)
	verified := f.store.AddUser(valueobject.RoleFreelancer)
	unverified := f.store.AddUser(valueobject.RoleFreelancer)
	f.store.SetVerification(unverified.ID, valueobject.VerificationPending)

	_, err := f.offerFrom(verified.ID, 0, "")
	assert.True(t, apperror.IsValidation(err))

	_, err = f.offerFrom(verified.ID, 900, "bulk")
	assert.True(t, apperror.IsValidation(err))

	for _, offerType := range []string{"custom_offer", "direct_apply"} {
		_, err = f.offerFrom(unverified.ID, 900, offerType)
		assert.True(t, apperror.IsForbidden(err), offerType)
	}

	_, err = f.offerFrom(f.client.ID, 900, "")
	assert.True(t, apperror.IsForbidden(err), "нельзя откликаться на своё задание")

	otherClient := f.store.AddUser(valueobject.RoleClient)
	f.store.SetVerification(otherClient.ID, valueobject.VerificationApproved)
	_, err = f.offerFrom(otherClient.ID, 900, "")
	assert.True(t, apperror.IsForbidden(err), "клиент не может отправлять предложения")

	_, err = f.submit.Execute(context.Background(), offer.SubmitOfferInput{JobID: uuid.New(), FreelancerID: verified.ID, OfferedAmount: 100})
	assert.True(t, apperror.IsNotFound(err))

	assigned := f.store.AddJob(f.client.ID, 1000, valueobject.JobStatusAssigned, &verified.ID)
	_, err = f.submit.Execute(context.Background(), offer.SubmitOfferInput{JobID: assigned.ID, FreelancerID: verified.ID, OfferedAmount: 100})
	assert.True(t, apperror.IsInvalidState(err))
}

func TestSubmitOffer_ConcurrentSubmitsCreateOneRow(t *testing.T) {
	f := newFixture(t)
	freelancer := f.store.AddUser(valueobject.RoleFreelancer)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.offerFrom(freelancer.ID, int64(900+i), "")
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.Equal(t, apperror.ErrCodeCooldownActive, apperror.CodeOf(err))
	}
	assert.Equal(t, 1, created)
	assert.Len(t, f.store.OffersByJob(f.job.ID), 1)
}

func TestRespondToOffer_AcceptCascadesRejection(t *testing.T) {
	f := newFixture(t)
	a := f.store.AddUser(valueobject.RoleFreelancer)
	b := f.store.AddUser(valueobject.RoleFreelancer)
	c := f.store.AddUser(valueobject.RoleFreelancer)

	outA, err := f.offerFrom(a.ID, 900, "")
	require.NoError(t, err)
	_, err = f.offerFrom(b.ID, 950, "")
	require.NoError(t, err)
	_, err = f.offerFrom(c.ID, 990, "")
	require.NoError(t, err)

	res, err := f.respond.Execute(context.Background(), offer.RespondToOfferInput{
		OfferID:  outA.Offer.ID,
		ClientID: f.client.ID,
		Action:   "accept",
	})
	require.NoError(t, err)

	assert.Equal(t, valueobject.OfferStatusAccepted, res.Offer.Status)
	assert.NotNil(t, res.Offer.RespondedAt)
	assert.Equal(t, valueobject.JobStatusAssigned, res.Job.Status)
	assert.True(t, res.Job.IsAssignedTo(a.ID))
	assert.Equal(t, int64(2), res.Rejected)

	accepted := 0
	for _, o := range f.store.OffersByJob(f.job.ID) {
		if o.Status == valueobject.OfferStatusAccepted {
			accepted++
			continue
		}
		assert.Equal(t, valueobject.OfferStatusRejected, o.Status)
		require.NotNil(t, o.ResponseMessage)
		assert.Equal(t, entity.ResponseAnotherOfferAccepted, *o.ResponseMessage)
	}
	assert.Equal(t, 1, accepted)
	assert.True(t, f.notifier.Has(a.ID, notification.EventOfferAccepted))
	assert.True(t, f.notifier.Has(b.ID, notification.EventOfferRejected))
	assert.True(t, f.notifier.Has(c.ID, notification.EventOfferRejected))
}

func TestRespondToOffer_RejectLeavesJobOpen(t *testing.T) {
	f := newFixture(t)
	a := f.store.AddUser(valueobject.RoleFreelancer)
	out, err := f.offerFrom(a.ID, 900, "")
	require.NoError(t, err)

	res, err := f.respond.Execute(context.Background(), offer.RespondToOfferInput{
		OfferID:         out.Offer.ID,
		ClientID:        f.client.ID,
		Action:          "reject",
		ResponseMessage: "Слишком дорого",
	})
	require.NoError(t, err)
	assert.Equal(t, valueobject.OfferStatusRejected, res.Offer.Status)
	require.NotNil(t, res.Offer.ResponseMessage)
	assert.Equal(t, "Слишком дорого", *res.Offer.ResponseMessage)
	assert.Equal(t, valueobject.JobStatusOpen, res.Job.Status)

	_, err = f.respond.Execute(context.Background(), offer.RespondToOfferInput{OfferID: out.Offer.ID, ClientID: f.client.ID, Action: "accept"})
	assert.Equal(t, apperror.ErrCodeAlreadyResolved, apperror.CodeOf(err))
	assert.True(t, apperror.IsInvalidState(err))
}

func TestRespondToOffer_Guards(t *testing.T) {
	f := newFixture(t)
	a := f.store.AddUser(valueobject.RoleFreelancer)
	out, err := f.offerFrom(a.ID, 900, "")
	require.NoError(t, err)

	_, err = f.respond.Execute(context.Background(), offer.RespondToOfferInput{OfferID: out.Offer.ID, ClientID: f.client.ID, Action: "maybe"})
	assert.True(t, apperror.IsValidation(err))

	stranger := f.store.AddUser(valueobject.RoleClient)
	_, err = f.respond.Execute(context.Background(), offer.RespondToOfferInput{OfferID: out.Offer.ID, ClientID: stranger.ID, Action: "accept"})
	assert.True(t, apperror.IsForbidden(err))

	_, err = f.respond.Execute(context.Background(), offer.RespondToOfferInput{OfferID: uuid.New(), ClientID: f.client.ID, Action: "accept"})
	assert.True(t, apperror.IsNotFound(err))
}

func TestRespondToOffer_ConcurrentAcceptsAssignOnce(t *testing.T) {
	f := newFixture(t)
	const n = 6
	offerIDs := make([]uuid.UUID, n)
	for i := 0; i < n; i++ {
		freelancer := f.store.AddUser(valueobject.RoleFreelancer)
		out, err := f.offerFrom(freelancer.ID, int64(800+i), "")
		require.NoError(t, err)
		offerIDs[i] = out.Offer.ID
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.respond.Execute(context.Background(), offer.RespondToOfferInput{
				OfferID:  offerIDs[i],
				ClientID: f.client.ID,
				Action:   "accept",
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperror.IsInvalidState(err), "got %v", err)
	}
	assert.Equal(t, 1, succeeded)

	accepted := 0
	for _, o := range f.store.OffersByJob(f.job.ID) {
		if o.Status == valueobject.OfferStatusAccepted {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted)
}

// jobsWithHook выполняет hook один раз сразу после первого чтения задания.
type jobsWithHook struct {
	*usecasetest.JobRepository
	once sync.Once
	hook func()
}

func (j *jobsWithHook) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	job, err := j.JobRepository.FindByID(ctx, id)
	j.once.Do(j.hook)
	return job, err
}

func TestSubmitOffer_JobAssignedAfterPrecheck(t *testing.T) {
	f := newFixture(t)
	a := f.store.AddUser(valueobject.RoleFreelancer)
	c := f.store.AddUser(valueobject.RoleFreelancer)
	outA, err := f.offerFrom(a.ID, 900, "")
	require.NoError(t, err)

	jobs := &jobsWithHook{JobRepository: f.store.Jobs(), hook: func() {
		_, err := f.respond.Execute(context.Background(), offer.RespondToOfferInput{OfferID: outA.Offer.ID, ClientID: f.client.ID, Action: "accept"})
		require.NoError(t, err)
	}}
	submit := offer.NewSubmitOfferUseCase(f.store.Transactor(), f.store.Users(), f.store.Profiles(), jobs, f.store.Offers(), f.notifier)
	submit.SetClock(func() time.Time { return f.now })

	_, err = submit.Execute(context.Background(), offer.SubmitOfferInput{
		JobID:         f.job.ID,
		FreelancerID:  c.ID,
		OfferedAmount: 950,
		OfferType:     "custom_offer",
	})
	require.Equal(t, apperror.ErrCodeInvalidState, apperror.CodeOf(err))

	assert.Equal(t, valueobject.JobStatusAssigned, f.store.Job(f.job.ID).Status)
	for _, o := range f.store.OffersByJob(f.job.ID) {
		assert.NotEqual(t, c.ID, o.FreelancerID, "на назначенное задание предложение не сохраняется")
	}
}

func TestRespondToOffer_AuthorSwitchedToClient(t *testing.T) {
	f := newFixture(t)
	a := f.store.AddUser(valueobject.RoleFreelancer)
	out, err := f.offerFrom(a.ID, 900, "")
	require.NoError(t, err)

	switcher := user.NewSwitchRoleUseCase(f.store.Transactor(), f.store.Users(), f.store.Jobs(), f.notifier)
	switched, err := switcher.Execute(context.Background(), a.ID, "client")
	require.NoError(t, err)
	require.Equal(t, valueobject.RoleClient, switched.Role)

	_, err = f.respond.Execute(context.Background(), offer.RespondToOfferInput{OfferID: out.Offer.ID, ClientID: f.client.ID, Action: "accept"})
	require.Equal(t, apperror.ErrCodeInvalidState, apperror.CodeOf(err))

	assert.Equal(t, valueobject.JobStatusOpen, f.store.Job(f.job.ID).Status)
	assert.Nil(t, f.store.Job(f.job.ID).FreelancerID)
	assert.Equal(t, valueobject.OfferStatusPending, f.store.Offer(out.Offer.ID).Status)
}

func TestDirectApply_AssignsWithoutCascade(t *testing.T) {
	f := newFixture(t)
	a := f.store.AddUser(valueobject.RoleFreelancer)
	b := f.store.AddUser(valueobject.RoleFreelancer)

	outA, err := f.offerFrom(a.ID, 900, "custom_offer")
	require.NoError(t, err)

	outB, err := f.offerFrom(b.ID, 1000, "direct_apply")
	require.NoError(t, err)
	assert.Equal(t, valueobject.OfferStatusAccepted, outB.Offer.Status)
	require.NotNil(t, outB.Job)
	assert.Equal(t, valueobject.JobStatusAssigned, outB.Job.Status)
	assert.True(t, outB.Job.IsAssignedTo(b.ID))
	assert.True(t, f.notifier.Has(f.client.ID, notification.EventJobAssigned))

	assert.Equal(t, valueobject.OfferStatusPending, f.store.Offer(outA.Offer.ID).Status)

	_, err = f.respond.Execute(context.Background(), offer.RespondToOfferInput{OfferID: outA.Offer.ID, ClientID: f.client.ID, Action: "accept"})
	require.Equal(t, apperror.ErrCodeInvalidState, apperror.CodeOf(err))
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, valueobject.JobStatusAssigned, appErr.Details["current_status"])
	assert.Equal(t, valueobject.OfferStatusPending, f.store.Offer(outA.Offer.ID).Status, "откат оставляет предложение ожидающим")
}

func TestWithdrawOffer_AllowsImmediateResubmit(t *testing.T) {
	f := newFixture(t)
	a := f.store.AddUser(valueobject.RoleFreelancer)
	out, err := f.offerFrom(a.ID, 900, "")
	require.NoError(t, err)

	other := f.store.AddUser(valueobject.RoleFreelancer)
	_, err = f.withdraw.Execute(context.Background(), out.Offer.ID, other.ID)
	assert.True(t, apperror.IsForbidden(err))

	withdrawn, err := f.withdraw.Execute(context.Background(), out.Offer.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.OfferStatusWithdrawn, withdrawn.Status)

	again, err := f.offerFrom(a.ID, 800, "")
	require.NoError(t, err)
	assert.Equal(t, offer.OutcomeCreated, again.Outcome)
	assert.NotEqual(t, out.Offer.ID, again.Offer.ID)

	_, err = f.withdraw.Execute(context.Background(), out.Offer.ID, a.ID)
	assert.Equal(t, apperror.ErrCodeAlreadyResolved, apperror.CodeOf(err))
}

func TestListJobOffers_VisibleByRole(t *testing.T) {
	f := newFixture(t)
	a := f.store.AddUser(valueobject.RoleFreelancer)
	b := f.store.AddUser(valueobject.RoleFreelancer)
	_, err := f.offerFrom(a.ID, 900, "")
	require.NoError(t, err)
	_, err = f.offerFrom(b.ID, 950, "")
	require.NoError(t, err)

	uc := offer.NewListJobOffersUseCase(f.store.Jobs(), f.store.Offers())
	all, err := uc.Execute(context.Background(), f.job.ID, f.client.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := uc.Execute(context.Background(), f.job.ID, a.ID)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, a.ID, own[0].FreelancerID)
}
