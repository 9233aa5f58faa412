package job

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
	"github.com/ignatzorin/gig-marketplace/internal/domain/repository"
	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/gig-marketplace/internal/logger"
	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/gig-marketplace/internal/usecase/notification"
)

// stateLost возвращает InvalidState с актуальным статусом задания после проигранной гонки.
func stateLost(ctx context.Context, jobs repository.JobRepository, id uuid.UUID, message string) error {
	current, err := jobs.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return apperror.InvalidState(message, current.Status)
}

func findOwnedJob(ctx context.Context, jobs repository.JobRepository, jobID, clientID uuid.UUID) (*entity.Job, error) {
	job, err := jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.IsOwnedBy(clientID) {
		return nil, apperror.ErrForbidden
	}
	return job, nil
}

type MarkWorkDoneUseCase struct {
	jobs     repository.JobRepository
	notifier notification.Notifier
}

func NewMarkWorkDoneUseCase(jobs repository.JobRepository, notifier notification.Notifier) *MarkWorkDoneUseCase {
	return &MarkWorkDoneUseCase{jobs: jobs, notifier: notifier}
}

func (uc *MarkWorkDoneUseCase) Execute(ctx context.Context, jobID, freelancerID uuid.UUID) (*entity.Job, error) {
	job, err := uc.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := job.CheckWorkDone(freelancerID); err != nil {
		return nil, err
	}

	ok, err := uc.jobs.UpdateStatus(ctx, jobID, valueobject.JobStatusAssigned, valueobject.JobStatusWorkDone, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, stateLost(ctx, uc.jobs, jobID, "задание уже не в работе")
	}

	job, err = uc.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	logger.WithJob(jobID).WithField("freelancer_id", freelancerID).Info("работа отмечена выполненной")
	uc.notifier.Notify(ctx, job.ClientID, notification.EventWorkDone, map[string]any{"job_id": jobID})
	return job, nil
}

type DeleteJobUseCase struct {
	jobs repository.JobRepository
}

func NewDeleteJobUseCase(jobs repository.JobRepository) *DeleteJobUseCase {
	return &DeleteJobUseCase{jobs: jobs}
}

// Execute удаляет открытое задание. В остальных статусах запись не меняется.
func (uc *DeleteJobUseCase) Execute(ctx context.Context, jobID, clientID uuid.UUID) error {
	job, err := findOwnedJob(ctx, uc.jobs, jobID, clientID)
	if err != nil {
		return err
	}
	if err := job.CheckDeletable(); err != nil {
		return err
	}

	ok, err := uc.jobs.DeleteOpen(ctx, jobID)
	if err != nil {
		return err
	}
	if !ok {
		return stateLost(ctx, uc.jobs, jobID, "удалить можно только открытое задание")
	}
	logger.WithJob(jobID).Info("задание удалено")
	return nil
}

type CancelJobUseCase struct {
	tx       repository.Transactor
	jobs     repository.JobRepository
	offers   repository.OfferRepository
	notifier notification.Notifier
}

func NewCancelJobUseCase(tx repository.Transactor, jobs repository.JobRepository, offers repository.OfferRepository, notifier notification.Notifier) *CancelJobUseCase {
	return &CancelJobUseCase{tx: tx, jobs: jobs, offers: offers, notifier: notifier}
}

// Execute отменяет открытое задание и отклоняет все ожидающие предложения.
func (uc *CancelJobUseCase) Execute(ctx context.Context, jobID, clientID uuid.UUID) (*entity.Job, error) {
	job, err := findOwnedJob(ctx, uc.jobs, jobID, clientID)
	if err != nil {
		return nil, err
	}
	if err := job.EnsureStatus(valueobject.JobStatusOpen, "отменить можно только открытое задание"); err != nil {
		return nil, err
	}

	var notified []uuid.UUID
	now := time.Now().UTC()
	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := uc.jobs.UpdateStatus(ctx, jobID, valueobject.JobStatusOpen, valueobject.JobStatusCancelled, now)
		if err != nil {
			return err
		}
		if !ok {
			return stateLost(ctx, uc.jobs, jobID, "отменить можно только открытое задание")
		}
		offers, err := uc.offers.ListByJob(ctx, jobID)
		if err != nil {
			return err
		}
		for _, o := range offers {
			if o.Status == valueobject.OfferStatusPending {
				notified = append(notified, o.FreelancerID)
			}
		}
		_, err = uc.offers.RejectPending(ctx, jobID, uuid.Nil, entity.ResponseJobCancelled, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.WithJob(jobID).WithField("rejected_offers", len(notified)).Info("задание отменено")
	for _, freelancerID := range notified {
		uc.notifier.Notify(ctx, freelancerID, notification.EventJobCancelled, map[string]any{"job_id": jobID})
	}
	return uc.jobs.FindByID(ctx, jobID)
}

type SetJobActiveUseCase struct {
	jobs repository.JobRepository
}

func NewSetJobActiveUseCase(jobs repository.JobRepository) *SetJobActiveUseCase {
	return &SetJobActiveUseCase{jobs: jobs}
}

func (uc *SetJobActiveUseCase) Execute(ctx context.Context, jobID, clientID uuid.UUID, active bool) (*entity.Job, error) {
	if _, err := findOwnedJob(ctx, uc.jobs, jobID, clientID); err != nil {
		return nil, err
	}
	if err := uc.jobs.SetActive(ctx, jobID, active, time.Now().UTC()); err != nil {
		return nil, err
	}
	return uc.jobs.FindByID(ctx, jobID)
}
