package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
)

// Transactor выполняет fn в одной транзакции БД.
// Репозитории, вызванные с ctx из fn, работают внутри этой транзакции.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type LockMode int

const (
	LockShare LockMode = iota
	LockUpdate
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByPhone(ctx context.Context, phone string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	// Lock читает пользователя с блокировкой строки до конца транзакции.
	Lock(ctx context.Context, id uuid.UUID, mode LockMode) (*entity.User, error)
	// UpdateRole меняет роль только если role_version совпадает с expectedVersion.
	UpdateRole(ctx context.Context, id uuid.UUID, role valueobject.Role, expectedVersion int) (bool, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type ProfileRepository interface {
	Create(ctx context.Context, profile *entity.Profile) error
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Profile, error)
	UpdateVerification(ctx context.Context, userID uuid.UUID, status valueobject.VerificationStatus, note *string) error
	AddFreelancerEarnings(ctx context.Context, userID uuid.UUID, amount int64) error
	AddClientSpending(ctx context.Context, userID uuid.UUID, amount int64) error
	IncrementJobsPosted(ctx context.Context, userID uuid.UUID) error
}

type JobFilter struct {
	Status       *valueobject.JobStatus
	Category     string
	ClientID     *uuid.UUID
	FreelancerID *uuid.UUID
	ActiveOnly   bool
	Limit        int
	Offset       int
}

type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	// Lock читает задание с блокировкой строки до конца транзакции.
	Lock(ctx context.Context, id uuid.UUID, mode LockMode) (*entity.Job, error)
	// Assign переводит open → assigned; false, если задание уже не открыто.
	Assign(ctx context.Context, id, freelancerID uuid.UUID, at time.Time) (bool, error)
	// UpdateStatus: условный переход from → to; false, если статус уже другой.
	// Переход вне графа статусов сразу возвращает INVALID_STATE.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to valueobject.JobStatus, at time.Time) (bool, error)
	// DeleteOpen удаляет задание только в статусе open.
	DeleteOpen(ctx context.Context, id uuid.UUID) (bool, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool, at time.Time) error
	List(ctx context.Context, filter JobFilter) ([]*entity.Job, int, error)
	FindClientConflicts(ctx context.Context, clientID uuid.UUID) ([]entity.JobConflict, error)
	FindFreelancerConflicts(ctx context.Context, freelancerID uuid.UUID) ([]entity.JobConflict, error)
}

type OfferRepository interface {
	// FindActiveForUpdate блокирует pending/accepted предложение пары (задание, фрилансер).
	// Возвращает nil, nil, если такого нет.
	FindActiveForUpdate(ctx context.Context, jobID, freelancerID uuid.UUID) (*entity.Offer, error)
	// Insert возвращает false, если параллельный запрос уже занял слот пары.
	Insert(ctx context.Context, offer *entity.Offer) (bool, error)
	Revise(ctx context.Context, offer *entity.Offer) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Offer, error)
	// Resolve: условный переход статуса предложения.
	Resolve(ctx context.Context, id uuid.UUID, from, to valueobject.OfferStatus, responseMessage *string, at time.Time) (bool, error)
	// RejectPending отклоняет все ожидающие предложения задания, кроме exceptID.
	RejectPending(ctx context.Context, jobID, exceptID uuid.UUID, responseMessage string, at time.Time) (int64, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]*entity.Offer, error)
	ListByFreelancer(ctx context.Context, freelancerID uuid.UUID, limit, offset int) ([]*entity.Offer, error)
}

type TransactionFilter struct {
	UserID *uuid.UUID
	Type   *valueobject.TransactionType
	Status *valueobject.TransactionStatus
	Limit  int
	Offset int
}

type TransactionRepository interface {
	// Create возвращает ошибку CONFLICT при повторном reference.
	Create(ctx context.Context, tx *entity.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Transaction, error)
	LockByID(ctx context.Context, id uuid.UUID) (*entity.Transaction, error)
	LockByReference(ctx context.Context, reference string) (*entity.Transaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to valueobject.TransactionStatus, failureReason *string, at time.Time) (bool, error)
	List(ctx context.Context, filter TransactionFilter) ([]*entity.Transaction, int, error)
	ListStalePendingPayments(ctx context.Context, method valueobject.PaymentMethod, createdBefore time.Time, limit int) ([]*entity.Transaction, error)
}

type WalletRepository interface {
	// Get возвращает кошелёк или нулевой баланс, если записи ещё нет.
	Get(ctx context.Context, userID uuid.UUID) (*entity.Wallet, error)
	// Credit атомарно увеличивает баланс, создавая кошелёк при необходимости.
	Credit(ctx context.Context, userID uuid.UUID, amount int64) error
	// Debit списывает сумму только при достаточном балансе; false, если средств мало.
	Debit(ctx context.Context, userID uuid.UUID, amount int64) (bool, error)
}

type CommissionRepository interface {
	Current(ctx context.Context) (valueobject.CommissionRate, error)
	Create(ctx context.Context, rate valueobject.CommissionRate, createdBy uuid.UUID) (valueobject.CommissionRate, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error)
}
