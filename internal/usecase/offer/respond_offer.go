package offer

import (
	"context"
	"strings"
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
	"github.com/ignatzorin/gig-marketplace/internal/validation"
)

type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
)

func NewAction(value string) (Action, error) {
	switch a := Action(value); a {
	case ActionAccept, ActionReject:
		return a, nil
	}
	return "", apperror.Validation("action", "действие должно быть accept или reject")
}

type RespondToOfferInput struct {
	OfferID         uuid.UUID
	ClientID        uuid.UUID
	Action          string
	ResponseMessage string
}

type RespondToOfferOutput struct {
	Offer *entity.Offer
	Job   *entity.Job
	// Rejected: сколько ожидающих предложений отклонено каскадом.
	Rejected int64
}

type RespondToOfferUseCase struct {
	tx       repository.Transactor
	users    repository.UserRepository
	jobs     repository.JobRepository
	offers   repository.OfferRepository
	notifier notification.Notifier
}

func NewRespondToOfferUseCase(
	tx repository.Transactor,
	users repository.UserRepository,
	jobs repository.JobRepository,
	offers repository.OfferRepository,
	notifier notification.Notifier,
) *RespondToOfferUseCase {
	return &RespondToOfferUseCase{tx: tx, users: users, jobs: jobs, offers: offers, notifier: notifier}
}

func (uc *RespondToOfferUseCase) Execute(ctx context.Context, input RespondToOfferInput) (*RespondToOfferOutput, error) {
	action, err := NewAction(input.Action)
	if err != nil {
		return nil, err
	}
	message := strings.TrimSpace(input.ResponseMessage)
	if err := validation.ValidateResponseMessage(message); err != nil {
		return nil, apperror.Validation("response_message", err.Error())
	}

	offer, err := uc.offers.FindByID(ctx, input.OfferID)
	if err != nil {
		return nil, err
	}
	job, err := uc.jobs.FindByID(ctx, offer.JobID)
	if err != nil {
		return nil, err
	}
	if !job.IsOwnedBy(input.ClientID) {
		return nil, apperror.ErrForbidden
	}
	if offer.Status != valueobject.OfferStatusPending {
		return nil, apperror.AlreadyResolved(offer.Status)
	}

	var cascaded []uuid.UUID
	out := &RespondToOfferOutput{}
	now := time.Now().UTC()
	var responseMessage *string
	if message != "" {
		responseMessage = &message
	}

	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if action == ActionReject {
			ok, err := uc.offers.Resolve(ctx, offer.ID, valueobject.OfferStatusPending, valueobject.OfferStatusRejected, responseMessage, now)
			if err != nil {
				return err
			}
			if !ok {
				return uc.alreadyResolved(ctx, offer.ID)
			}
			return nil
		}

		// Автор мог сменить роль после отправки: блокировка строки
		// не даёт смене роли пройти, пока задание назначается.
		author, err := uc.users.Lock(ctx, offer.FreelancerID, repository.LockShare)
		if err != nil {
			return err
		}
		if !author.HasRole(valueobject.RoleFreelancer) {
			return apperror.InvalidState("автор предложения больше не исполнитель", author.Role)
		}

		// Затем задание: его строка сериализует параллельные принятия,
		// и каскад ниже не ждёт блокировок чужих предложений.
		assigned, err := uc.jobs.Assign(ctx, job.ID, offer.FreelancerID, now)
		if err != nil {
			return err
		}
		if !assigned {
			return stateLost(ctx, uc.jobs, job.ID)
		}
		ok, err := uc.offers.Resolve(ctx, offer.ID, valueobject.OfferStatusPending, valueobject.OfferStatusAccepted, responseMessage, now)
		if err != nil {
			return err
		}
		if !ok {
			return uc.alreadyResolved(ctx, offer.ID)
		}

		others, err := uc.offers.ListByJob(ctx, job.ID)
		if err != nil {
			return err
		}
		for _, o := range others {
			if o.ID != offer.ID && o.Status == valueobject.OfferStatusPending {
				cascaded = append(cascaded, o.FreelancerID)
			}
		}
		out.Rejected, err = uc.offers.RejectPending(ctx, job.ID, offer.ID, entity.ResponseAnotherOfferAccepted, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	if out.Offer, err = uc.offers.FindByID(ctx, offer.ID); err != nil {
		return nil, err
	}
	if out.Job, err = uc.jobs.FindByID(ctx, job.ID); err != nil {
		return nil, err
	}

	metrics.RecordOfferResolved(string(action))
	logger.Log.WithFields(logrus.Fields{
		"offer_id": offer.ID,
		"job_id":   job.ID,
		"action":   action,
		"rejected": out.Rejected,
	}).Info("ответ на предложение")

	data := map[string]any{"job_id": job.ID, "offer_id": offer.ID}
	if action == ActionAccept {
		uc.notifier.Notify(ctx, offer.FreelancerID, notification.EventOfferAccepted, data)
		for _, freelancerID := range cascaded {
			uc.notifier.Notify(ctx, freelancerID, notification.EventOfferRejected, map[string]any{
				"job_id": job.ID,
				"reason": entity.ResponseAnotherOfferAccepted,
			})
		}
	} else {
		uc.notifier.Notify(ctx, offer.FreelancerID, notification.EventOfferRejected, data)
	}
	return out, nil
}

func (uc *RespondToOfferUseCase) alreadyResolved(ctx context.Context, offerID uuid.UUID) error {
	current, err := uc.offers.FindByID(ctx, offerID)
	if err != nil {
		return err
	}
	return apperror.AlreadyResolved(current.Status)
}

type WithdrawOfferUseCase struct {
	jobs     repository.JobRepository
	offers   repository.OfferRepository
	notifier notification.Notifier
}

func NewWithdrawOfferUseCase(jobs repository.JobRepository, offers repository.OfferRepository, notifier notification.Notifier) *WithdrawOfferUseCase {
	return &WithdrawOfferUseCase{jobs: jobs, offers: offers, notifier: notifier}
}

// Execute отзывает ожидающее предложение. После этого исполнитель может
// отправить новое без ожидания кулдауна.
func (uc *WithdrawOfferUseCase) Execute(ctx context.Context, offerID, freelancerID uuid.UUID) (*entity.Offer, error) {
	offer, err := uc.offers.FindByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if !offer.IsOwnedBy(freelancerID) {
		return nil, apperror.ErrForbidden
	}
	if offer.Status != valueobject.OfferStatusPending {
		return nil, apperror.AlreadyResolved(offer.Status)
	}

	ok, err := uc.offers.Resolve(ctx, offerID, valueobject.OfferStatusPending, valueobject.OfferStatusWithdrawn, nil, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		current, err := uc.offers.FindByID(ctx, offerID)
		if err != nil {
			return nil, err
		}
		return nil, apperror.AlreadyResolved(current.Status)
	}

	metrics.RecordOfferResolved("withdraw")
	uc.notifier.Notify(ctx, offer.ClientID, notification.EventOfferWithdrawn, map[string]any{
		"job_id":   offer.JobID,
		"offer_id": offer.ID,
	})
	return uc.offers.FindByID(ctx, offerID)
}
