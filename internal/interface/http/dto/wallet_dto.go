package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
)

type WithdrawalRequest struct {
	Amount      int64              `json:"amount"`
	BankDetails entity.BankDetails `json:"bank_details"`
}

type ResolveWithdrawalRequest struct {
	Action        string `json:"action" binding:"required"`
	FailureReason string `json:"failure_reason"`
}

type SetCommissionRequest struct {
	Rate *float64 `json:"rate" binding:"required"`
}

type GatewayCallbackRequest struct {
	Reference string `json:"reference" binding:"required"`
	Status    string `json:"status" binding:"required"`
	Amount    int64  `json:"amount"`
}

type WalletResponse struct {
	UserID  uuid.UUID `json:"user_id"`
	Balance int64     `json:"balance"`
}

type TransactionResponse struct {
	ID                uuid.UUID           `json:"id"`
	UserID            uuid.UUID           `json:"user_id"`
	JobID             *uuid.UUID          `json:"job_id"`
	RelatedID         *uuid.UUID          `json:"related_id,omitempty"`
	Type              string              `json:"type"`
	Amount            int64               `json:"amount"`
	Status            string              `json:"status"`
	Reference         string              `json:"reference"`
	PaymentMethod     *string             `json:"payment_method,omitempty"`
	CommissionRateBps *int                `json:"commission_rate_bps,omitempty"`
	RateVersion       *int64              `json:"rate_version,omitempty"`
	BankDetails       *entity.BankDetails `json:"bank_details,omitempty"`
	FailureReason     *string             `json:"failure_reason,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	CompletedAt       *time.Time          `json:"completed_at"`
}

type CommissionResponse struct {
	Rate        float64 `json:"rate"`
	BasisPoints int     `json:"basis_points"`
	Version     int64   `json:"version"`
}

type SettlementResponse struct {
	Job              JobResponse          `json:"job"`
	Payment          TransactionResponse  `json:"payment"`
	Commission       *TransactionResponse `json:"commission,omitempty"`
	Amount           int64                `json:"amount"`
	CommissionAmount int64                `json:"commission_amount"`
	FreelancerAmount int64                `json:"freelancer_amount"`
	Rate             CommissionResponse   `json:"rate"`
}

type GatewayPaymentResponse struct {
	Transaction      TransactionResponse `json:"transaction"`
	AuthorizationURL string              `json:"authorization_url"`
}

type GatewayCallbackResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	Duplicate   bool                `json:"duplicate"`
	Settled     bool                `json:"settled"`
	Refunded    bool                `json:"refunded"`
}

func ToWalletResponse(w *entity.Wallet) WalletResponse {
	return WalletResponse{UserID: w.UserID, Balance: w.Balance}
}

func ToTransactionResponse(t *entity.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:                t.ID,
		UserID:            t.UserID,
		JobID:             t.JobID,
		RelatedID:         t.RelatedID,
		Type:              string(t.Type),
		Amount:            t.Amount,
		Status:            string(t.Status),
		Reference:         t.Reference,
		CommissionRateBps: t.CommissionRateBps,
		RateVersion:       t.RateVersion,
		BankDetails:       t.Bank,
		FailureReason:     t.FailureReason,
		CreatedAt:         t.CreatedAt,
		CompletedAt:       t.CompletedAt,
	}
	if t.PaymentMethod != nil {
		method := string(*t.PaymentMethod)
		resp.PaymentMethod = &method
	}
	return resp
}

func ToTransactionResponses(items []*entity.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(items))
	for _, t := range items {
		out = append(out, ToTransactionResponse(t))
	}
	return out
}

func ToCommissionResponse(rate valueobject.CommissionRate) CommissionResponse {
	return CommissionResponse{Rate: rate.Decimal(), BasisPoints: rate.BasisPoints, Version: rate.Version}
}
