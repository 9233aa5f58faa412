package job

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
	"github.com/ignatzorin/gig-marketplace/internal/domain/repository"
	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/gig-marketplace/internal/logger"
	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
)

type CreateJobInput struct {
	ClientID         uuid.UUID
	Title            string
	Description      string
	Category         string
	Amount           int64
	NumberOfPeople   int
	Address          string
	GenderPreference string
}

type CreateJobUseCase struct {
	tx       repository.Transactor
	users    repository.UserRepository
	profiles repository.ProfileRepository
	jobs     repository.JobRepository
}

func NewCreateJobUseCase(tx repository.Transactor, users repository.UserRepository, profiles repository.ProfileRepository, jobs repository.JobRepository) *CreateJobUseCase {
	return &CreateJobUseCase{tx: tx, users: users, profiles: profiles, jobs: jobs}
}

// Execute создаёт задание. Роль перечитывается под FOR SHARE, поэтому
// параллельная смена роли дождётся конца вставки или выполнится раньше неё.
func (uc *CreateJobUseCase) Execute(ctx context.Context, input CreateJobInput) (*entity.Job, error) {
	now := time.Now().UTC()
	job, err := entity.NewJob(entity.NewJobParams{
		ClientID:         input.ClientID,
		Title:            input.Title,
		Description:      input.Description,
		Category:         input.Category,
		Amount:           input.Amount,
		NumberOfPeople:   input.NumberOfPeople,
		Address:          input.Address,
		GenderPreference: input.GenderPreference,
	}, now)
	if err != nil {
		return nil, err
	}

	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		user, err := uc.users.Lock(ctx, input.ClientID, repository.LockShare)
		if err != nil {
			return err
		}
		if !user.HasRole(valueobject.RoleClient) {
			return apperror.New(apperror.ErrCodeForbidden, "создавать задания может только клиент")
		}
		if err := uc.jobs.Create(ctx, job); err != nil {
			return err
		}
		return uc.profiles.IncrementJobsPosted(ctx, input.ClientID)
	})
	if err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"job_id":    job.ID,
		"client_id": job.ClientID,
		"amount":    job.Amount,
	}).Info("задание создано")
	return job, nil
}
