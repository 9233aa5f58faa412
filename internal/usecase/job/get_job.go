package job

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
	"github.com/ignatzorin/gig-marketplace/internal/domain/repository"
	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
)

type GetJobUseCase struct {
	jobs repository.JobRepository
}

func NewGetJobUseCase(jobs repository.JobRepository) *GetJobUseCase {
	return &GetJobUseCase{jobs: jobs}
}

func (uc *GetJobUseCase) Execute(ctx context.Context, jobID uuid.UUID) (*entity.Job, error) {
	return uc.jobs.FindByID(ctx, jobID)
}

type ListJobsOutput struct {
	Jobs  []*entity.Job
	Total int
}

type ListOpenJobsUseCase struct {
	jobs repository.JobRepository
}

func NewListOpenJobsUseCase(jobs repository.JobRepository) *ListOpenJobsUseCase {
	return &ListOpenJobsUseCase{jobs: jobs}
}

func (uc *ListOpenJobsUseCase) Execute(ctx context.Context, category string, limit, offset int) (*ListJobsOutput, error) {
	status := valueobject.JobStatusOpen
	jobs, total, err := uc.jobs.List(ctx, repository.JobFilter{
		Status:     &status,
		Category:   category,
		ActiveOnly: true,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, err
	}
	return &ListJobsOutput{Jobs: jobs, Total: total}, nil
}

type ListMyJobsInput struct {
	UserID uuid.UUID
	Role   valueobject.Role
	Status *valueobject.JobStatus
	Limit  int
	Offset int
}

type ListMyJobsUseCase struct {
	jobs repository.JobRepository
}

func NewListMyJobsUseCase(jobs repository.JobRepository) *ListMyJobsUseCase {
	return &ListMyJobsUseCase{jobs: jobs}
}

// Execute возвращает задания клиента или назначенные фрилансеру, в зависимости от роли.
func (uc *ListMyJobsUseCase) Execute(ctx context.Context, input ListMyJobsInput) (*ListJobsOutput, error) {
	filter := repository.JobFilter{Status: input.Status, Limit: input.Limit, Offset: input.Offset}
	if input.Role == valueobject.RoleFreelancer {
		filter.FreelancerID = &input.UserID
	} else {
		filter.ClientID = &input.UserID
	}
	jobs, total, err := uc.jobs.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ListJobsOutput{Jobs: jobs, Total: total}, nil
}
