package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Статусы платежа, которые сообщает платёжный шлюз.
const (
	ChargeSuccess   = "success"
	ChargeFailed    = "failed"
	ChargeAbandoned = "abandoned"
	ChargePending   = "pending"
)

// ErrChargeNotFound: шлюз не знает платежа с таким reference.
var ErrChargeNotFound = errors.New("платёж не найден в шлюзе")

type ChargeRequest struct {
	Reference   string
	Amount      int64
	CustomerID  uuid.UUID
	CallbackURL string
}

type Charge struct {
	Reference        string
	AuthorizationURL string
}

type ChargeStatus struct {
	Reference string
	Status    string
	Amount    int64
}

type PaymentGateway interface {
	InitializeCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	VerifyCharge(ctx context.Context, reference string) (*ChargeStatus, error)
	Refund(ctx context.Context, reference string, amount int64) error
}

// IdentityVerifier превращает токен внешнего провайдера в подтверждённый номер телефона.
type IdentityVerifier interface {
	VerifyPhoneToken(ctx context.Context, idToken string) (string, error)
}
