package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
)

type SubmitOfferRequest struct {
	OfferedAmount int64  `json:"offered_amount"`
	Message       string `json:"message"`
	OfferType     string `json:"offer_type"`
}

type RespondToOfferRequest struct {
	Action          string `json:"action" binding:"required"`
	ResponseMessage string `json:"response_message"`
}

type OfferResponse struct {
	ID              uuid.UUID  `json:"id"`
	JobID           uuid.UUID  `json:"job_id"`
	FreelancerID    uuid.UUID  `json:"freelancer_id"`
	ClientID        uuid.UUID  `json:"client_id"`
	OriginalAmount  int64      `json:"original_amount"`
	OfferedAmount   int64      `json:"offered_amount"`
	Message         *string    `json:"message"`
	Status          string     `json:"status"`
	OfferType       string     `json:"offer_type"`
	ResponseMessage *string    `json:"response_message"`
	RespondedAt     *time.Time `json:"responded_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type SubmitOfferResponse struct {
	Offer   OfferResponse `json:"offer"`
	Outcome string        `json:"outcome"`
	Job     *JobResponse  `json:"job,omitempty"`
}

type RespondToOfferResponse struct {
	Offer    OfferResponse `json:"offer"`
	Job      *JobResponse  `json:"job,omitempty"`
	Rejected int64         `json:"rejected_count"`
}

func ToOfferResponse(o *entity.Offer) OfferResponse {
	return OfferResponse{
		ID:              o.ID,
		JobID:           o.JobID,
		FreelancerID:    o.FreelancerID,
		ClientID:        o.ClientID,
		OriginalAmount:  o.OriginalAmount,
		OfferedAmount:   o.OfferedAmount,
		Message:         o.Message,
		Status:          string(o.Status),
		OfferType:       string(o.OfferType),
		ResponseMessage: o.ResponseMessage,
		RespondedAt:     o.RespondedAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func ToOfferResponses(offers []*entity.Offer) []OfferResponse {
	out := make([]OfferResponse, 0, len(offers))
	for _, o := range offers {
		out = append(out, ToOfferResponse(o))
	}
	return out
}

// ToJobResponsePtr возвращает nil для nil задания.
func ToJobResponsePtr(job *entity.Job) *JobResponse {
	if job == nil {
		return nil
	}
	resp := ToJobResponse(job)
	return &resp
}
