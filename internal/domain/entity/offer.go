package entity

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/gig-marketplace/internal/validation"
)

// ReofferCooldown: минимальный возраст активного предложения до его обновления.
const ReofferCooldown = 5 * time.Minute

const (
	ResponseAnotherOfferAccepted = "Another offer was accepted"
	ResponseJobCancelled         = "Job was cancelled"
)

type Offer struct {
	ID              uuid.UUID
	JobID           uuid.UUID
	FreelancerID    uuid.UUID
	ClientID        uuid.UUID
	OriginalAmount  int64
	OfferedAmount   int64
	Message         *string
	Status          valueobject.OfferStatus
	OfferType       valueobject.OfferType
	ResponseMessage *string
	RespondedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewOffer создаёт ожидающее предложение; originalAmount фиксирует цену задания.
func NewOffer(job *Job, freelancerID uuid.UUID, offeredAmount int64, message string, offerType valueobject.OfferType, now time.Time) (*Offer, error) {
	if err := valueobject.ValidateAmount("offered_amount", offeredAmount); err != nil {
		return nil, err
	}
	msg, err := normalizeMessage(message)
	if err != nil {
		return nil, err
	}

	return &Offer{
		ID:             uuid.New(),
		JobID:          job.ID,
		FreelancerID:   freelancerID,
		ClientID:       job.ClientID,
		OriginalAmount: job.Amount,
		OfferedAmount:  offeredAmount,
		Message:        msg,
		Status:         valueobject.OfferStatusPending,
		OfferType:      offerType,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// CooldownRemaining возвращает оставшееся время запрета на обновление.
func (o *Offer) CooldownRemaining(now time.Time) time.Duration {
	remaining := ReofferCooldown - now.Sub(o.CreatedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RemainingSeconds округляет вверх, чтобы клиент не повторил запрос раньше срока.
func RemainingSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

// Revise обновляет ставку и сообщение существующего предложения.
func (o *Offer) Revise(offeredAmount int64, message string, offerType valueobject.OfferType, now time.Time) error {
	if o.Status != valueobject.OfferStatusPending {
		return apperror.InvalidState("обновить можно только ожидающее предложение", o.Status)
	}
	if err := valueobject.ValidateAmount("offered_amount", offeredAmount); err != nil {
		return err
	}
	msg, err := normalizeMessage(message)
	if err != nil {
		return err
	}
	o.OfferedAmount = offeredAmount
	o.Message = msg
	o.OfferType = offerType
	o.UpdatedAt = now
	return nil
}

func (o *Offer) Accept(now time.Time) error {
	if o.Status != valueobject.OfferStatusPending {
		return apperror.AlreadyResolved(o.Status)
	}
	o.Status = valueobject.OfferStatusAccepted
	o.RespondedAt = &now
	o.UpdatedAt = now
	return nil
}

func (o *Offer) Reject(message string, now time.Time) error {
	if o.Status != valueobject.OfferStatusPending {
		return apperror.AlreadyResolved(o.Status)
	}
	o.Status = valueobject.OfferStatusRejected
	if message != "" {
		o.ResponseMessage = &message
	}
	o.RespondedAt = &now
	o.UpdatedAt = now
	return nil
}

func (o *Offer) Withdraw(now time.Time) error {
	if o.Status != valueobject.OfferStatusPending {
		return apperror.AlreadyResolved(o.Status)
	}
	o.Status = valueobject.OfferStatusWithdrawn
	o.UpdatedAt = now
	return nil
}

func (o *Offer) IsOwnedBy(freelancerID uuid.UUID) bool {
	return o.FreelancerID == freelancerID
}

func normalizeMessage(message string) (*string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, nil
	}
	if err := validation.ValidateOfferMessage(message); err != nil {
		return nil, apperror.Validation("message", err.Error())
	}
	return &message, nil
}
