package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
)

type WalletRepositoryAdapter struct {
	db *sqlx.DB
}

func NewWalletRepositoryAdapter(db *sqlx.DB) *WalletRepositoryAdapter {
	return &WalletRepositoryAdapter{db: db}
}

func (r *WalletRepositoryAdapter) Get(ctx context.Context, userID uuid.UUID) (*entity.Wallet, error) {
	var row struct {
		UserID    uuid.UUID `db:"user_id"`
		Balance   int64     `db:"balance"`
		UpdatedAt time.Time `db:"updated_at"`
	}
	query := `SELECT user_id, balance, updated_at FROM wallets WHERE user_id = $1`
	if err := conn(ctx, r.db).GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &entity.Wallet{UserID: userID}, nil
		}
		return nil, dbError(err, "не удалось получить кошелёк")
	}
	return &entity.Wallet{UserID: row.UserID, Balance: row.Balance, UpdatedAt: row.UpdatedAt}, nil
}

// Credit увеличивает баланс одним выражением, без чтения текущего значения.
func (r *WalletRepositoryAdapter) Credit(ctx context.Context, userID uuid.UUID, amount int64) error {
	if err := valueobject.ValidateAmount("amount", amount); err != nil {
		return err
	}
	query := `
		INSERT INTO wallets (user_id, balance, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET balance = wallets.balance + EXCLUDED.balance, updated_at = NOW()
	`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, userID, amount); err != nil {
		return dbError(err, "не удалось пополнить кошелёк")
	}
	return nil
}

// Debit списывает средства только если их достаточно.
func (r *WalletRepositoryAdapter) Debit(ctx context.Context, userID uuid.UUID, amount int64) (bool, error) {
	if err := valueobject.ValidateAmount("amount", amount); err != nil {
		return false, err
	}
	query := `
		UPDATE wallets SET balance = balance - $2, updated_at = NOW()
		WHERE user_id = $1 AND balance >= $2
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, userID, amount)
	return affected(res, err, "не удалось списать средства")
}

type CommissionRepositoryAdapter struct {
	db *sqlx.DB
}

func NewCommissionRepositoryAdapter(db *sqlx.DB) *CommissionRepositoryAdapter {
	return &CommissionRepositoryAdapter{db: db}
}

// Current читает последнюю версию ставки. Внутри транзакции расчёта
// это даёт ставку, действующую на момент расчёта.
func (r *CommissionRepositoryAdapter) Current(ctx context.Context) (valueobject.CommissionRate, error) {
	var row struct {
		Version int64 `db:"version"`
		RateBps int   `db:"rate_bps"`
	}
	query := `SELECT version, rate_bps FROM commission_rates ORDER BY version DESC LIMIT 1`
	if err := conn(ctx, r.db).GetContext(ctx, &row, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return valueobject.CommissionRate{}, apperror.New(apperror.ErrCodeNotFound, "ставка комиссии не настроена")
		}
		return valueobject.CommissionRate{}, dbError(err, "не удалось получить ставку комиссии")
	}
	return valueobject.CommissionRate{BasisPoints: row.RateBps, Version: row.Version}, nil
}

func (r *CommissionRepositoryAdapter) Create(ctx context.Context, rate valueobject.CommissionRate, createdBy uuid.UUID) (valueobject.CommissionRate, error) {
	var createdByArg any
	if createdBy != uuid.Nil {
		createdByArg = createdBy
	}
	var version int64
	query := `INSERT INTO commission_rates (rate_bps, created_by) VALUES ($1, $2) RETURNING version`
	if err := conn(ctx, r.db).GetContext(ctx, &version, query, rate.BasisPoints, createdByArg); err != nil {
		return valueobject.CommissionRate{}, dbError(err, "не удалось сохранить ставку комиссии")
	}
	rate.Version = version
	return rate, nil
}
