package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
)

// Transaction: запись финансового журнала. Reference уникален и служит ключом идемпотентности.
type Transaction struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	JobID             *uuid.UUID
	RelatedID         *uuid.UUID
	Type              valueobject.TransactionType
	Amount            int64
	Status            valueobject.TransactionStatus
	Reference         string
	PaymentMethod     *valueobject.PaymentMethod
	CommissionRateBps *int
	RateVersion       *int64
	Bank              *BankDetails
	FailureReason     *string
	CreatedAt         time.Time
	CompletedAt       *time.Time
}

type BankDetails struct {
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
	BankCode      string `json:"bank_code,omitempty"`
}

func (b BankDetails) Validate() error {
	switch {
	case strings.TrimSpace(b.AccountName) == "":
		return apperror.Validation("bank_details.account_name", "имя владельца счёта обязательно")
	case strings.TrimSpace(b.AccountNumber) == "":
		return apperror.Validation("bank_details.account_number", "номер счёта обязателен")
	case strings.TrimSpace(b.BankName) == "":
		return apperror.Validation("bank_details.bank_name", "название банка обязательно")
	}
	return nil
}

// Reference-ключи. Повторная вставка с тем же ключом отклоняется БД.
func PaymentReference(jobID uuid.UUID) string    { return "pay:" + jobID.String() }
func CommissionReference(jobID uuid.UUID) string { return "fee:" + jobID.String() }
func GatewayReference() string                   { return "gw:" + uuid.NewString() }
func WithdrawalReference() string                { return "wd:" + uuid.NewString() }
func RefundReference(paymentRef string) string   { return "refund:" + paymentRef }

func newTransaction(userID uuid.UUID, jobID *uuid.UUID, txType valueobject.TransactionType, amount int64, status valueobject.TransactionStatus, reference string, now time.Time) *Transaction {
	tx := &Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		JobID:     jobID,
		Type:      txType,
		Amount:    amount,
		Status:    status,
		Reference: reference,
		CreatedAt: now,
	}
	if status == valueobject.TransactionStatusCompleted {
		tx.CompletedAt = &now
	}
	return tx
}

// NewPayment создаёт платёж клиента за задание.
func NewPayment(job *Job, method valueobject.PaymentMethod, status valueobject.TransactionStatus, reference string, now time.Time) *Transaction {
	jobID := job.ID
	tx := newTransaction(job.ClientID, &jobID, valueobject.TransactionTypePayment, job.Amount, status, reference, now)
	tx.PaymentMethod = &method
	return tx
}

// NewCommission создаёт проводку комиссии платформы со ссылкой на платёж.
func NewCommission(platformID uuid.UUID, payment *Transaction, split valueobject.Split, now time.Time) *Transaction {
	paymentID := payment.ID
	tx := newTransaction(platformID, payment.JobID, valueobject.TransactionTypeCommission, split.Commission, valueobject.TransactionStatusCompleted, CommissionReference(*payment.JobID), now)
	tx.RelatedID = &paymentID
	bps := split.Rate.BasisPoints
	version := split.Rate.Version
	tx.CommissionRateBps = &bps
	tx.RateVersion = &version
	return tx
}

// NewRefund создаёт возврат по платежу, отменённому после расчёта.
func NewRefund(payment *Transaction, now time.Time) *Transaction {
	paymentID := payment.ID
	tx := newTransaction(payment.UserID, payment.JobID, valueobject.TransactionTypeRefund, payment.Amount, valueobject.TransactionStatusPending, RefundReference(payment.Reference), now)
	tx.RelatedID = &paymentID
	tx.PaymentMethod = payment.PaymentMethod
	return tx
}

// NewWithdrawal создаёт заявку на вывод в статусе pending.
func NewWithdrawal(userID uuid.UUID, amount int64, bank BankDetails, now time.Time) (*Transaction, error) {
	if err := valueobject.ValidateAmount("amount", amount); err != nil {
		return nil, err
	}
	if err := bank.Validate(); err != nil {
		return nil, err
	}
	tx := newTransaction(userID, nil, valueobject.TransactionTypeWithdrawal, amount, valueobject.TransactionStatusPending, WithdrawalReference(), now)
	tx.Bank = &bank
	return tx, nil
}

func (t *Transaction) IsWithdrawal() bool {
	return t.Type == valueobject.TransactionTypeWithdrawal
}
