package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
)

type CreateJobRequest struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	Category         string `json:"category"`
	Amount           int64  `json:"amount"`
	NumberOfPeople   int    `json:"number_of_people"`
	Address          string `json:"address"`
	GenderPreference string `json:"gender_preference"`
}

type SetJobActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

type JobResponse struct {
	ID                 uuid.UUID  `json:"id"`
	ClientID           uuid.UUID  `json:"client_id"`
	FreelancerID       *uuid.UUID `json:"freelancer_id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Category           string     `json:"category"`
	Amount             int64      `json:"amount"`
	NumberOfPeople     int        `json:"number_of_people"`
	Address            string     `json:"address"`
	GenderPreference   string     `json:"gender_preference"`
	Status             string     `json:"status"`
	IsActive           bool       `json:"is_active"`
	AssignedAt         *time.Time `json:"assigned_at"`
	WorkDoneAt         *time.Time `json:"work_done_at"`
	PaymentCompletedAt *time.Time `json:"payment_completed_at"`
	CancelledAt        *time.Time `json:"cancelled_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func ToJobResponse(job *entity.Job) JobResponse {
	return JobResponse{
		ID:                 job.ID,
		ClientID:           job.ClientID,
		FreelancerID:       job.FreelancerID,
		Title:              job.Title,
		Description:        job.Description,
		Category:           job.Category,
		Amount:             job.Amount,
		NumberOfPeople:     job.NumberOfPeople,
		Address:            job.Address,
		GenderPreference:   string(job.GenderPreference),
		Status:             string(job.Status),
		IsActive:           job.IsActive,
		AssignedAt:         job.AssignedAt,
		WorkDoneAt:         job.WorkDoneAt,
		PaymentCompletedAt: job.PaymentCompletedAt,
		CancelledAt:        job.CancelledAt,
		CreatedAt:          job.CreatedAt,
		UpdatedAt:          job.UpdatedAt,
	}
}

func ToJobResponses(jobs []*entity.Job) []JobResponse {
	out := make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, ToJobResponse(j))
	}
	return out
}
