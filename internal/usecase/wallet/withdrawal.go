package wallet

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
	"github.com/ignatzorin/gig-marketplace/internal/domain/repository"
	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/gig-marketplace/internal/logger"
	"github.com/ignatzorin/gig-marketplace/internal/metrics"
	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/gig-marketplace/internal/usecase/notification"
)

type RequestWithdrawalInput struct {
	UserID uuid.UUID
	Amount int64
	Bank   entity.BankDetails
}

type RequestWithdrawalUseCase struct {
	tx           repository.Transactor
	users        repository.UserRepository
	wallets      repository.WalletRepository
	transactions repository.TransactionRepository
}

func NewRequestWithdrawalUseCase(tx repository.Transactor, users repository.UserRepository, wallets repository.WalletRepository, transactions repository.TransactionRepository) *RequestWithdrawalUseCase {
	return &RequestWithdrawalUseCase{tx: tx, users: users, wallets: wallets, transactions: transactions}
}

// Execute списывает сумму с кошелька сразу и создаёт заявку pending.
// При отклонении заявки деньги возвращаются.
func (uc *RequestWithdrawalUseCase) Execute(ctx context.Context, input RequestWithdrawalInput) (*entity.Transaction, error) {
	withdrawal, err := entity.NewWithdrawal(input.UserID, input.Amount, input.Bank, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		user, err := uc.users.Lock(ctx, input.UserID, repository.LockShare)
		if err != nil {
			return err
		}
		if !user.HasRole(valueobject.RoleFreelancer) {
			return apperror.New(apperror.ErrCodeForbidden, "вывод средств доступен только исполнителям")
		}

		ok, err := uc.wallets.Debit(ctx, input.UserID, input.Amount)
		if err != nil {
			return err
		}
		if !ok {
			wallet, err := uc.wallets.Get(ctx, input.UserID)
			if err != nil {
				return err
			}
			return apperror.ErrInsufficientBalance.WithDetail("balance", wallet.Balance)
		}
		return uc.transactions.Create(ctx, withdrawal)
	})
	if err != nil {
		if apperror.CodeOf(err) == apperror.ErrCodeInsufficientBalance {
			metrics.RecordWithdrawal("insufficient")
		}
		return nil, err
	}

	metrics.RecordWithdrawal("requested")
	logger.Log.WithFields(logrus.Fields{
		"transaction_id": withdrawal.ID,
		"user_id":        input.UserID,
		"amount":         input.Amount,
	}).Info("заявка на вывод создана")
	return withdrawal, nil
}

type ResolveAction string

const (
	ResolveApprove ResolveAction = "approve"
	ResolveReject  ResolveAction = "reject"
)

type ResolveWithdrawalInput struct {
	TransactionID uuid.UUID
	AdminID       uuid.UUID
	Action        string
	FailureReason string
}

type ResolveWithdrawalUseCase struct {
	tx           repository.Transactor
	wallets      repository.WalletRepository
	transactions repository.TransactionRepository
	notifier     notification.Notifier
}

func NewResolveWithdrawalUseCase(tx repository.Transactor, wallets repository.WalletRepository, transactions repository.TransactionRepository, notifier notification.Notifier) *ResolveWithdrawalUseCase {
	return &ResolveWithdrawalUseCase{tx: tx, wallets: wallets, transactions: transactions, notifier: notifier}
}

func (uc *ResolveWithdrawalUseCase) Execute(ctx context.Context, input ResolveWithdrawalInput) (*entity.Transaction, error) {
	action := ResolveAction(input.Action)
	if action != ResolveApprove && action != ResolveReject {
		return nil, apperror.Validation("action", "действие должно быть approve или reject")
	}
	reason := strings.TrimSpace(input.FailureReason)
	if action == ResolveReject && reason == "" {
		return nil, apperror.Validation("failure_reason", "укажите причину отклонения")
	}

	now := time.Now().UTC()
	var withdrawal *entity.Transaction
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		withdrawal, err = uc.transactions.LockByID(ctx, input.TransactionID)
		if err != nil {
			return err
		}
		if !withdrawal.IsWithdrawal() {
			return apperror.New(apperror.ErrCodeInvalidState, "транзакция не является заявкой на вывод").
				WithDetail("type", withdrawal.Type)
		}
		if withdrawal.Status != valueobject.TransactionStatusPending {
			return apperror.InvalidState("заявка уже обработана", withdrawal.Status)
		}

		if action == ResolveApprove {
			return uc.transition(ctx, withdrawal, valueobject.TransactionStatusCompleted, nil, now)
		}
		if err := uc.transition(ctx, withdrawal, valueobject.TransactionStatusFailed, &reason, now); err != nil {
			return err
		}
		return uc.wallets.Credit(ctx, withdrawal.UserID, withdrawal.Amount)
	})
	if err != nil {
		return nil, err
	}

	result := "approved"
	if action == ResolveReject {
		result = "rejected"
	}
	metrics.RecordWithdrawal(result)
	logger.Log.WithFields(logrus.Fields{
		"transaction_id": withdrawal.ID,
		"admin_id":       input.AdminID,
		"result":         result,
	}).Info("заявка на вывод обработана")

	uc.notifier.Notify(ctx, withdrawal.UserID, notification.EventWithdrawalResolved, map[string]any{
		"transaction_id": withdrawal.ID,
		"status":         withdrawal.Status,
		"amount":         withdrawal.Amount,
	})
	return uc.transactions.FindByID(ctx, withdrawal.ID)
}

func (uc *ResolveWithdrawalUseCase) transition(ctx context.Context, withdrawal *entity.Transaction, to valueobject.TransactionStatus, reason *string, now time.Time) error {
	ok, err := uc.transactions.UpdateStatus(ctx, withdrawal.ID, valueobject.TransactionStatusPending, to, reason, now)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.InvalidState("заявка уже обработана", withdrawal.Status)
	}
	withdrawal.Status = to
	return nil
}

type ListWithdrawalsInput struct {
	// UserID nil: все заявки (для администратора).
	UserID *uuid.UUID
	Status string
	Limit  int
	Offset int
}

type ListWithdrawalsUseCase struct {
	transactions repository.TransactionRepository
}

func NewListWithdrawalsUseCase(transactions repository.TransactionRepository) *ListWithdrawalsUseCase {
	return &ListWithdrawalsUseCase{transactions: transactions}
}

func (uc *ListWithdrawalsUseCase) Execute(ctx context.Context, input ListWithdrawalsInput) ([]*entity.Transaction, int, error) {
	txType := valueobject.TransactionTypeWithdrawal
	filter := repository.TransactionFilter{
		UserID: input.UserID,
		Type:   &txType,
		Limit:  input.Limit,
		Offset: input.Offset,
	}
	if input.Status != "" {
		status, err := valueobject.NewTransactionStatus(input.Status)
		if err != nil {
			return nil, 0, err
		}
		filter.Status = &status
	}
	return uc.transactions.List(ctx, filter)
}
