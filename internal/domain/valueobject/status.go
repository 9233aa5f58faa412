package valueobject

import "github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"

type JobStatus string

const (
	JobStatusOpen              JobStatus = "open"
	JobStatusAssigned          JobStatus = "assigned"
	JobStatusWorkDone          JobStatus = "work_done"
	JobStatusWaitingForPayment JobStatus = "waiting_for_payment"
	JobStatusCompleted         JobStatus = "completed"
	JobStatusCancelled         JobStatus = "cancelled"
)

var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusOpen:              {JobStatusAssigned, JobStatusCancelled},
	JobStatusAssigned:          {JobStatusWorkDone},
	JobStatusWorkDone:          {JobStatusCompleted, JobStatusWaitingForPayment},
	JobStatusWaitingForPayment: {JobStatusCompleted, JobStatusWorkDone},
	JobStatusCompleted:         {},
	JobStatusCancelled:         {},
}

func (s JobStatus) IsValid() bool {
	_, ok := jobTransitions[s]
	return ok
}

func (s JobStatus) CanTransitionTo(newStatus JobStatus) bool {
	for _, status := range jobTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

// CheckTransition: единая точка проверки графа статусов задания.
func (s JobStatus) CheckTransition(to JobStatus) error {
	if !s.CanTransitionTo(to) {
		return apperror.InvalidState("недопустимый переход статуса задания в "+string(to), s)
	}
	return nil
}

func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled
}

func NewJobStatus(status string) (JobStatus, error) {
	s := JobStatus(status)
	if !s.IsValid() {
		return "", apperror.Validation("status", "некорректный статус задания")
	}
	return s, nil
}

// FreelancerObligationStatuses: статусы, в которых за фрилансером числится незавершённая работа.
var FreelancerObligationStatuses = []JobStatus{
	JobStatusAssigned,
	JobStatusWorkDone,
	JobStatusWaitingForPayment,
}

type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "pending"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusRejected  OfferStatus = "rejected"
	OfferStatusWithdrawn OfferStatus = "withdrawn"
)

// IsActive сообщает, занимает ли предложение слот (задание, фрилансер).
func (s OfferStatus) IsActive() bool {
	return s == OfferStatusPending || s == OfferStatusAccepted
}

type OfferType string

const (
	OfferTypeDirectApply OfferType = "direct_apply"
	OfferTypeCustomOffer OfferType = "custom_offer"
)

func NewOfferType(offerType string) (OfferType, error) {
	switch t := OfferType(offerType); t {
	case OfferTypeDirectApply, OfferTypeCustomOffer:
		return t, nil
	case "":
		return OfferTypeCustomOffer, nil
	}
	return "", apperror.Validation("offer_type", "некорректный тип предложения")
}

type Role string

const (
	RoleClient     Role = "client"
	RoleFreelancer Role = "freelancer"
	RoleAdmin      Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleClient, RoleFreelancer, RoleAdmin:
		return true
	}
	return false
}

func NewRole(role string) (Role, error) {
	r := Role(role)
	if !r.IsValid() {
		return "", apperror.Validation("role", "некорректная роль")
	}
	return r, nil
}

type GenderPreference string

const (
	GenderPreferenceAny    GenderPreference = "any"
	GenderPreferenceMale   GenderPreference = "male"
	GenderPreferenceFemale GenderPreference = "female"
)

func NewGenderPreference(value string) (GenderPreference, error) {
	switch g := GenderPreference(value); g {
	case GenderPreferenceAny, GenderPreferenceMale, GenderPreferenceFemale:
		return g, nil
	case "":
		return GenderPreferenceAny, nil
	}
	return "", apperror.Validation("gender_preference", "некорректное предпочтение по полу")
}

// VerificationStatus: единый набор статусов проверки профиля.
type VerificationStatus string

const (
	VerificationNotSubmitted VerificationStatus = "not_submitted"
	VerificationPending      VerificationStatus = "pending"
	VerificationApproved     VerificationStatus = "approved"
	VerificationRejected     VerificationStatus = "rejected"
)

func NewVerificationStatus(value string) (VerificationStatus, error) {
	switch v := VerificationStatus(value); v {
	case VerificationNotSubmitted, VerificationPending, VerificationApproved, VerificationRejected:
		return v, nil
	}
	return "", apperror.Validation("verification_status", "некорректный статус верификации")
}

type TransactionType string

const (
	TransactionTypePayment    TransactionType = "payment"
	TransactionTypeCommission TransactionType = "commission"
	TransactionTypeRefund     TransactionType = "refund"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

func (s TransactionStatus) IsTerminal() bool {
	return s != TransactionStatusPending
}

// CanTransitionTo разрешает только движение вперёд из pending.
// Единственный откат (отклонение вывода) идёт через pending → failed.
func (s TransactionStatus) CanTransitionTo(newStatus TransactionStatus) bool {
	return s == TransactionStatusPending && newStatus != TransactionStatusPending
}

func (s TransactionStatus) CheckTransition(to TransactionStatus) error {
	if !s.CanTransitionTo(to) {
		return apperror.InvalidState("недопустимый переход статуса транзакции в "+string(to), s)
	}
	return nil
}

func NewTransactionStatus(value string) (TransactionStatus, error) {
	switch s := TransactionStatus(value); s {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusCancelled:
		return s, nil
	}
	return "", apperror.Validation("status", "некорректный статус транзакции")
}

type PaymentMethod string

const (
	PaymentMethodWallet  PaymentMethod = "wallet"
	PaymentMethodGateway PaymentMethod = "gateway"
)
