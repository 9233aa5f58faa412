package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
	"github.com/ignatzorin/gig-marketplace/internal/domain/repository"
	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
)

const transactionColumns = `id, user_id, job_id, related_id, type, amount, status, reference, payment_method,
		commission_rate_bps, rate_version, bank_account_name, bank_account_number, bank_name, bank_code,
		failure_reason, created_at, completed_at`

type TransactionRepositoryAdapter struct {
	db *sqlx.DB
}

func NewTransactionRepositoryAdapter(db *sqlx.DB) *TransactionRepositoryAdapter {
	return &TransactionRepositoryAdapter{db: db}
}

func (r *TransactionRepositoryAdapter) Create(ctx context.Context, tx *entity.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, job_id, related_id, type, amount, status, reference, payment_method,
			commission_rate_bps, rate_version, bank_account_name, bank_account_number, bank_name, bank_code,
			failure_reason, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	row := fromTransaction(tx)
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		row.ID, row.UserID, row.JobID, row.RelatedID, row.Type, row.Amount, row.Status, row.Reference, row.PaymentMethod,
		row.CommissionRateBps, row.RateVersion, row.BankAccountName, row.BankAccountNumber, row.BankName, row.BankCode,
		row.FailureReason, row.CreatedAt, row.CompletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Wrap(err, apperror.ErrCodeConflict, "транзакция с таким reference уже существует").
				WithDetail("reference", tx.Reference)
		}
		return dbError(err, "не удалось создать транзакцию")
	}
	return nil
}

func (r *TransactionRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Transaction, error) {
	return r.findOne(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
}

func (r *TransactionRepositoryAdapter) LockByID(ctx context.Context, id uuid.UUID) (*entity.Transaction, error) {
	return r.findOne(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id)
}

func (r *TransactionRepositoryAdapter) LockByReference(ctx context.Context, reference string) (*entity.Transaction, error) {
	return r.findOne(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE reference = $1 FOR UPDATE`, reference)
}

func (r *TransactionRepositoryAdapter) findOne(ctx context.Context, query string, arg any) (*entity.Transaction, error) {
	var row transactionRow
	if err := conn(ctx, r.db).GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrTransactionNotFound
		}
		return nil, dbError(err, "не удалось получить транзакцию")
	}
	return row.toEntity(), nil
}

func (r *TransactionRepositoryAdapter) UpdateStatus(ctx context.Context, id uuid.UUID, from, to valueobject.TransactionStatus, failureReason *string, at time.Time) (bool, error) {
	if err := from.CheckTransition(to); err != nil {
		return false, err
	}
	query := `
		UPDATE transactions SET status = $3, failure_reason = COALESCE($4, failure_reason),
			completed_at = CASE WHEN $3 = 'completed' THEN $5 ELSE completed_at END
		WHERE id = $1 AND status = $2
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, id, string(from), string(to), failureReason, at)
	return affected(res, err, "не удалось обновить статус транзакции")
}

func (r *TransactionRepositoryAdapter) List(ctx context.Context, filter repository.TransactionFilter) ([]*entity.Transaction, int, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.UserID != nil {
		add("user_id = $%d", *filter.UserID)
	}
	if filter.Type != nil {
		add("type = $%d", string(*filter.Type))
	}
	if filter.Status != nil {
		add("status = $%d", string(*filter.Status))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := conn(ctx, r.db).GetContext(ctx, &total, `SELECT COUNT(*) FROM transactions`+clause, args...); err != nil {
		return nil, 0, dbError(err, "не удалось посчитать транзакции")
	}

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM transactions%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, clause, len(args)-1, len(args))

	var rows []transactionRow
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, dbError(err, "не удалось получить транзакции")
	}
	return toTransactionEntities(rows), total, nil
}

func (r *TransactionRepositoryAdapter) ListStalePendingPayments(ctx context.Context, method valueobject.PaymentMethod, createdBefore time.Time, limit int) ([]*entity.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE type = 'payment' AND status = 'pending' AND payment_method = $1 AND created_at < $2
		ORDER BY created_at LIMIT $3`
	var rows []transactionRow
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, string(method), createdBefore, limit); err != nil {
		return nil, dbError(err, "не удалось получить ожидающие платежи")
	}
	return toTransactionEntities(rows), nil
}

type transactionRow struct {
	ID                uuid.UUID  `db:"id"`
	UserID            uuid.UUID  `db:"user_id"`
	JobID             *uuid.UUID `db:"job_id"`
	RelatedID         *uuid.UUID `db:"related_id"`
	Type              string     `db:"type"`
	Amount            int64      `db:"amount"`
	Status            string     `db:"status"`
	Reference         string     `db:"reference"`
	PaymentMethod     *string    `db:"payment_method"`
	CommissionRateBps *int       `db:"commission_rate_bps"`
	RateVersion       *int64     `db:"rate_version"`
	BankAccountName   *string    `db:"bank_account_name"`
	BankAccountNumber *string    `db:"bank_account_number"`
	BankName          *string    `db:"bank_name"`
	BankCode          *string    `db:"bank_code"`
	FailureReason     *string    `db:"failure_reason"`
	CreatedAt         time.Time  `db:"created_at"`
	CompletedAt       *time.Time `db:"completed_at"`
}

func fromTransaction(t *entity.Transaction) transactionRow {
	row := transactionRow{
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
		FailureReason:     t.FailureReason,
		CreatedAt:         t.CreatedAt,
		CompletedAt:       t.CompletedAt,
	}
	if t.PaymentMethod != nil {
		method := string(*t.PaymentMethod)
		row.PaymentMethod = &method
	}
	if t.Bank != nil {
		row.BankAccountName = &t.Bank.AccountName
		row.BankAccountNumber = &t.Bank.AccountNumber
		row.BankName = &t.Bank.BankName
		if t.Bank.BankCode != "" {
			row.BankCode = &t.Bank.BankCode
		}
	}
	return row
}

func (t *transactionRow) toEntity() *entity.Transaction {
	tx := &entity.Transaction{
		ID:                t.ID,
		UserID:            t.UserID,
		JobID:             t.JobID,
		RelatedID:         t.RelatedID,
		Type:              valueobject.TransactionType(t.Type),
		Amount:            t.Amount,
		Status:            valueobject.TransactionStatus(t.Status),
		Reference:         t.Reference,
		CommissionRateBps: t.CommissionRateBps,
		RateVersion:       t.RateVersion,
		FailureReason:     t.FailureReason,
		CreatedAt:         t.CreatedAt,
		CompletedAt:       t.CompletedAt,
	}
	if t.PaymentMethod != nil {
		method := valueobject.PaymentMethod(*t.PaymentMethod)
		tx.PaymentMethod = &method
	}
	if t.BankAccountNumber != nil {
		tx.Bank = &entity.BankDetails{
			AccountName:   deref(t.BankAccountName),
			AccountNumber: deref(t.BankAccountNumber),
			BankName:      deref(t.BankName),
			BankCode:      deref(t.BankCode),
		}
	}
	return tx
}

func toTransactionEntities(rows []transactionRow) []*entity.Transaction {
	txs := make([]*entity.Transaction, 0, len(rows))
	for i := range rows {
		txs = append(txs, rows[i].toEntity())
	}
	return txs
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
