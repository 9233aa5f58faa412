package wallet

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
	"github.com/ignatzorin/gig-marketplace/internal/domain/repository"
)

type GetWalletUseCase struct {
	wallets repository.WalletRepository
}

func NewGetWalletUseCase(wallets repository.WalletRepository) *GetWalletUseCase {
	return &GetWalletUseCase{wallets: wallets}
}

func (uc *GetWalletUseCase) Execute(ctx context.Context, userID uuid.UUID) (*entity.Wallet, error) {
	return uc.wallets.Get(ctx, userID)
}

type ListTransactionsUseCase struct {
	transactions repository.TransactionRepository
}

func NewListTransactionsUseCase(transactions repository.TransactionRepository) *ListTransactionsUseCase {
	return &ListTransactionsUseCase{transactions: transactions}
}

func (uc *ListTransactionsUseCase) Execute(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Transaction, int, error) {
	return uc.transactions.List(ctx, repository.TransactionFilter{
		UserID: &userID,
		Limit:  limit,
		Offset: offset,
	})
}
