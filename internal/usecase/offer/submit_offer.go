package offer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
	"github.com/ignatzorin/gig-marketplace/internal/domain/repository"
	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/gig-marketplace/internal/logger"
	"github.com/ignatzorin/gig-marketplace/internal/metrics"
	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/gig-marketplace/internal/usecase/notification"
)

const (
	OutcomeCreated = "created"
	OutcomeUpdated = "updated"
)

type SubmitOfferInput struct {
	JobID         uuid.UUID
	FreelancerID  uuid.UUID
	OfferedAmount int64
	Message       string
	OfferType     string
}

type SubmitOfferOutput struct {
	Offer   *entity.Offer
	Outcome string
	// Job заполнен, если предложение сразу назначило исполнителя (direct_apply).
	Job *entity.Job
}

type SubmitOfferUseCase struct {
	tx       repository.Transactor
	users    repository.UserRepository
	profiles repository.ProfileRepository
	jobs     repository.JobRepository
	offers   repository.OfferRepository
	notifier notification.Notifier
	now      func() time.Time
}

func NewSubmitOfferUseCase(
	tx repository.Transactor,
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	jobs repository.JobRepository,
	offers repository.OfferRepository,
	notifier notification.Notifier,
) *SubmitOfferUseCase {
	return &SubmitOfferUseCase{
		tx:       tx,
		users:    users,
		profiles: profiles,
		jobs:     jobs,
		offers:   offers,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock подменяет источник времени для проверки кулдауна.
func (uc *SubmitOfferUseCase) SetClock(now func() time.Time) {
	uc.now = now
}

func (uc *SubmitOfferUseCase) Execute(ctx context.Context, input SubmitOfferInput) (*SubmitOfferOutput, error) {
	offerType, err := valueobject.NewOfferType(input.OfferType)
	if err != nil {
		return nil, err
	}
	if err := valueobject.ValidateAmount("offered_amount", input.OfferedAmount); err != nil {
		return nil, err
	}

	job, err := uc.jobs.FindByID(ctx, input.JobID)
	if err != nil {
		return nil, err
	}
	if err := job.EnsureStatus(valueobject.JobStatusOpen, "задание не принимает предложения"); err != nil {
		return nil, err
	}
	if job.IsOwnedBy(input.FreelancerID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "нельзя откликнуться на собственное задание")
	}

	profile, err := uc.profiles.FindByUserID(ctx, input.FreelancerID)
	if err != nil {
		return nil, err
	}
	if !profile.IsVerified() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "предложения доступны только верифицированным исполнителям").
			WithDetail("verification_status", profile.VerificationStatus)
	}

	now := uc.now()
	out := &SubmitOfferOutput{}
	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		user, err := uc.users.Lock(ctx, input.FreelancerID, repository.LockShare)
		if err != nil {
			return err
		}
		if !user.HasRole(valueobject.RoleFreelancer) {
			return apperror.New(apperror.ErrCodeForbidden, "предложения может отправлять только исполнитель")
		}

		// Порядок блокировок как при принятии: пользователь, задание, предложение.
		// Принятие чужого предложения ждёт конца этой транзакции, и каскад увидит новое предложение.
		mode := repository.LockShare
		if offerType == valueobject.OfferTypeDirectApply {
			mode = repository.LockUpdate
		}
		current, err := uc.jobs.Lock(ctx, job.ID, mode)
		if err != nil {
			return err
		}
		if err := current.EnsureStatus(valueobject.JobStatusOpen, "задание не принимает предложения"); err != nil {
			return err
		}

		existing, err := uc.offers.FindActiveForUpdate(ctx, job.ID, input.FreelancerID)
		if err != nil {
			return err
		}

		var offer *entity.Offer
		switch {
		case existing == nil:
			offer, err = entity.NewOffer(current, input.FreelancerID, input.OfferedAmount, input.Message, offerType, now)
			if err != nil {
				return err
			}
			inserted, err := uc.offers.Insert(ctx, offer)
			if err != nil {
				return err
			}
			if !inserted {
				// Параллельный запрос успел создать предложение: для клиента это тот же кулдаун.
				return apperror.CooldownActive(entity.RemainingSeconds(entity.ReofferCooldown))
			}
			out.Outcome = OutcomeCreated
		case existing.Status == valueobject.OfferStatusAccepted:
			return apperror.InvalidState("предложение уже принято", existing.Status)
		default:
			if remaining := existing.CooldownRemaining(now); remaining > 0 {
				return apperror.CooldownActive(entity.RemainingSeconds(remaining))
			}
			if err := existing.Revise(input.OfferedAmount, input.Message, offerType, now); err != nil {
				return err
			}
			if err := uc.offers.Revise(ctx, existing); err != nil {
				return err
			}
			offer = existing
			out.Outcome = OutcomeUpdated
		}

		if offerType == valueobject.OfferTypeDirectApply {
			if err := uc.autoAccept(ctx, job.ID, offer, now); err != nil {
				return err
			}
			assigned, err := uc.jobs.FindByID(ctx, job.ID)
			if err != nil {
				return err
			}
			out.Job = assigned
		}
		out.Offer = offer
		return nil
	})
	if err != nil {
		if apperror.CodeOf(err) == apperror.ErrCodeCooldownActive {
			metrics.RecordOfferSubmitted("cooldown")
		}
		return nil, err
	}

	metrics.RecordOfferSubmitted(out.Outcome)
	logger.Log.WithFields(logrus.Fields{
		"offer_id":      out.Offer.ID,
		"job_id":        job.ID,
		"freelancer_id": input.FreelancerID,
		"offer_type":    offerType,
		"outcome":       out.Outcome,
	}).Info("предложение сохранено")

	event := notification.EventOfferReceived
	if out.Outcome == OutcomeUpdated {
		event = notification.EventOfferUpdated
	}
	if out.Job != nil {
		metrics.RecordOfferResolved("direct_apply")
		event = notification.EventJobAssigned
	}
	uc.notifier.Notify(ctx, job.ClientID, event, map[string]any{
		"job_id":   job.ID,
		"offer_id": out.Offer.ID,
	})
	return out, nil
}

// autoAccept принимает предложение direct_apply и назначает исполнителя.
// Остальные ожидающие предложения не трогаются: их принятие позже
// завершится ошибкой InvalidState, так как задание уже не открыто.
func (uc *SubmitOfferUseCase) autoAccept(ctx context.Context, jobID uuid.UUID, offer *entity.Offer, now time.Time) error {
	ok, err := uc.jobs.Assign(ctx, jobID, offer.FreelancerID, now)
	if err != nil {
		return err
	}
	if !ok {
		return stateLost(ctx, uc.jobs, jobID)
	}
	previous := offer.Status
	if err := offer.Accept(now); err != nil {
		return err
	}
	ok, err = uc.offers.Resolve(ctx, offer.ID, valueobject.OfferStatusPending, valueobject.OfferStatusAccepted, nil, now)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.AlreadyResolved(previous)
	}
	return nil
}

func stateLost(ctx context.Context, jobs repository.JobRepository, jobID uuid.UUID) error {
	current, err := jobs.FindByID(ctx, jobID)
	if err != nil {
		return err
	}
	return apperror.InvalidState("задание уже не открыто", current.Status)
}
