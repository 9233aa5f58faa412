package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
	"github.com/ignatzorin/gig-marketplace/internal/domain/repository"
	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
)

// Ledger: общие зависимости расчёта по заданию для обоих способов оплаты.
type Ledger struct {
	Jobs         repository.JobRepository
	Transactions repository.TransactionRepository
	Wallets      repository.WalletRepository
	Commission   repository.CommissionRepository
	Profiles     repository.ProfileRepository
	// PlatformID: системный аккаунт, на который зачисляется комиссия.
	PlatformID uuid.UUID
}

// SettlementResult: итог расчёта по заданию.
type SettlementResult struct {
	Payment    *entity.Transaction
	Commission *entity.Transaction
	Job        *entity.Job
	Split      valueobject.Split
}

// distribute выполняет проводки после того, как задание уже переведено в completed.
// Вызывается только внутри транзакции.
func (l *Ledger) distribute(ctx context.Context, job *entity.Job, payment *entity.Transaction, now time.Time) (*SettlementResult, error) {
	if job.FreelancerID == nil {
		return nil, apperror.New(apperror.ErrCodeInternal, "у задания нет исполнителя")
	}

	rate, err := l.Commission.Current(ctx)
	if err != nil {
		return nil, err
	}
	split := rate.Split(payment.Amount)
	result := &SettlementResult{Payment: payment, Split: split}

	if split.Commission > 0 {
		result.Commission = entity.NewCommission(l.PlatformID, payment, split, now)
		if err := l.Transactions.Create(ctx, result.Commission); err != nil {
			return nil, err
		}
		if err := l.Wallets.Credit(ctx, l.PlatformID, split.Commission); err != nil {
			return nil, err
		}
	}
	if split.FreelancerAmount > 0 {
		if err := l.Wallets.Credit(ctx, *job.FreelancerID, split.FreelancerAmount); err != nil {
			return nil, err
		}
	}

	if err := l.Profiles.AddFreelancerEarnings(ctx, *job.FreelancerID, split.FreelancerAmount); err != nil {
		return nil, err
	}
	if err := l.Profiles.AddClientSpending(ctx, job.ClientID, split.Amount); err != nil {
		return nil, err
	}

	completed, err := l.Jobs.FindByID(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	result.Job = completed
	return result, nil
}

// complete: единственная точка, после которой по заданию можно проводить деньги.
// Второй вызов получает InvalidState.
func (l *Ledger) complete(ctx context.Context, jobID uuid.UUID, from valueobject.JobStatus, now time.Time) error {
	ok, err := l.Jobs.UpdateStatus(ctx, jobID, from, valueobject.JobStatusCompleted, now)
	if err != nil {
		return err
	}
	if !ok {
		return stateLost(ctx, l.Jobs, jobID, "задание уже оплачено или не готово к оплате")
	}
	return nil
}

func stateLost(ctx context.Context, jobs repository.JobRepository, jobID uuid.UUID, message string) error {
	current, err := jobs.FindByID(ctx, jobID)
	if err != nil {
		return err
	}
	return apperror.InvalidState(message, current.Status)
}

func findClientJob(ctx context.Context, jobs repository.JobRepository, jobID, clientID uuid.UUID) (*entity.Job, error) {
	job, err := jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.IsOwnedBy(clientID) {
		return nil, apperror.ErrForbidden
	}
	return job, nil
}
