package persistence

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
	"github.com/ignatzorin/gig-marketplace/internal/domain/repository"
	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return sqlx.NewDb(raw, "postgres"), mock
}

func q(fragment string) string {
	return regexp.QuoteMeta(fragment)
}

func TestTransactor_CommitsAndSharesTx(t *testing.T) {
	db, mock := newMockDB(t)
	jobs := NewJobRepositoryAdapter(db)
	wallets := NewWalletRepositoryAdapter(db)
	jobID, freelancerID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE jobs SET status = 'assigned'")).
		WithArgs(jobID, freelancerID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO wallets")).
		WithArgs(freelancerID, int64(900)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := NewTransactor(db).WithinTx(context.Background(), func(ctx context.Context) error {
		ok, err := jobs.Assign(ctx, jobID, freelancerID, time.Now())
		require.NoError(t, err)
		assert.True(t, ok)
		return wallets.Credit(ctx, freelancerID, 900)
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := NewTransactor(db).WithinTx(context.Background(), func(ctx context.Context) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_NestedCallReusesTx(t *testing.T) {
	db, mock := newMockDB(t)
	tr := NewTransactor(db)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := tr.WithinTx(context.Background(), func(ctx context.Context) error {
		return tr.WithinTx(ctx, func(ctx context.Context) error { return nil })
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepository_AssignReportsLostRace(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewJobRepositoryAdapter(db)

	mock.ExpectExec(q("WHERE id = $1 AND status = 'open'")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Assign(context.Background(), uuid.New(), uuid.New(), time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJobRepository_UpdateStatusSetsTimestampColumn(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewJobRepositoryAdapter(db)
	id := uuid.New()

	mock.ExpectExec(q("UPDATE jobs SET status = $3, updated_at = $4, payment_completed_at = $4 WHERE id = $1 AND status = $2")).
		WithArgs(id, "work_done", "completed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.UpdateStatus(context.Background(), id, valueobject.JobStatusWorkDone, valueobject.JobStatusCompleted, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepository_UpdateStatusRejectsTransitionOutsideGraph(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewJobRepositoryAdapter(db)

	ok, err := repo.UpdateStatus(context.Background(), uuid.New(), valueobject.JobStatusOpen, valueobject.JobStatusCompleted, time.Now())
	assert.False(t, ok)
	assert.Equal(t, apperror.ErrCodeInvalidState, apperror.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet(), "запрос в базу не отправляется")
}

func TestJobRepository_LockModes(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewJobRepositoryAdapter(db)
	id := uuid.New()

	mock.ExpectQuery(q("FROM jobs WHERE id = $1 FOR SHARE")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(q("FROM jobs WHERE id = $1 FOR UPDATE")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Lock(context.Background(), id, repository.LockShare)
	assert.True(t, apperror.IsNotFound(err))
	_, err = repo.Lock(context.Background(), id, repository.LockUpdate)
	assert.True(t, apperror.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepository_FindByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewJobRepositoryAdapter(db)

	mock.ExpectQuery(q("FROM jobs WHERE id = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestJobRepository_FindFreelancerConflictsUsesObligationStatuses(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewJobRepositoryAdapter(db)
	freelancerID, jobID := uuid.New(), uuid.New()

	mock.ExpectQuery(q("WHERE freelancer_id = $1 AND status = ANY($2)")).
		WithArgs(freelancerID, pq.Array([]string{"assigned", "work_done", "waiting_for_payment"})).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "status"}).AddRow(jobID.String(), "Покраска", "work_done"))

	conflicts, err := repo.FindFreelancerConflicts(context.Background(), freelancerID)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, jobID, conflicts[0].JobID)
	assert.Equal(t, valueobject.JobStatusWorkDone, conflicts[0].Status)
}

func TestOfferRepository_FindActiveForUpdateNone(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOfferRepositoryAdapter(db)

	mock.ExpectQuery(q("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	offer, err := repo.FindActiveForUpdate(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, offer)
}

func TestOfferRepository_InsertConflictReturnsFalse(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOfferRepositoryAdapter(db)
	job := &entity.Job{ID: uuid.New(), ClientID: uuid.New(), Amount: 1000}
	offer, err := entity.NewOffer(job, uuid.New(), 900, "", valueobject.OfferTypeCustomOffer, time.Now())
	require.NoError(t, err)

	mock.ExpectExec(q("ON CONFLICT (job_id, freelancer_id) WHERE status IN ('pending', 'accepted') DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Insert(context.Background(), offer)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOfferRepository_RejectPendingExcludesAccepted(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOfferRepositoryAdapter(db)
	jobID, acceptedID := uuid.New(), uuid.New()

	mock.ExpectExec(q("WHERE job_id = $1 AND id <> $2 AND status = 'pending'")).
		WithArgs(jobID, acceptedID, entity.ResponseAnotherOfferAccepted, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.RejectPending(context.Background(), jobID, acceptedID, entity.ResponseAnotherOfferAccepted, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestWalletRepository_DebitInsufficient(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWalletRepositoryAdapter(db)
	userID := uuid.New()

	mock.ExpectExec(q("WHERE user_id = $1 AND balance >= $2")).
		WithArgs(userID, int64(500)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Debit(context.Background(), userID, 500)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWalletRepository_GetMissingIsZero(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWalletRepositoryAdapter(db)
	userID := uuid.New()

	mock.ExpectQuery(q("FROM wallets WHERE user_id = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance", "updated_at"}))

	wallet, err := repo.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, userID, wallet.UserID)
	assert.Zero(t, wallet.Balance)
}

func TestTransactionRepository_UpdateStatusOnlyFromPending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepositoryAdapter(db)

	ok, err := repo.UpdateStatus(context.Background(), uuid.New(), valueobject.TransactionStatusCompleted, valueobject.TransactionStatusFailed, nil, time.Now())
	assert.False(t, ok)
	assert.True(t, apperror.IsInvalidState(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_DuplicateReference(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepositoryAdapter(db)
	job := &entity.Job{ID: uuid.New(), ClientID: uuid.New(), Amount: 1000}
	payment := entity.NewPayment(job, valueobject.PaymentMethodWallet, valueobject.TransactionStatusCompleted, entity.PaymentReference(job.ID), time.Now())

	mock.ExpectExec(q("INSERT INTO transactions")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), payment)
	assert.Equal(t, apperror.ErrCodeConflict, apperror.CodeOf(err))
}

func TestTransactionRepository_LockByReferenceMapsBankDetails(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepositoryAdapter(db)
	id, userID := uuid.New(), uuid.New()
	now := time.Now()

	cols := []string{"id", "user_id", "job_id", "related_id", "type", "amount", "status", "reference", "payment_method",
		"commission_rate_bps", "rate_version", "bank_account_name", "bank_account_number", "bank_name", "bank_code",
		"failure_reason", "created_at", "completed_at"}
	values := []driver.Value{id.String(), userID.String(), nil, nil, "withdrawal", int64(300), "pending", "wd:1", nil,
		nil, nil, "Иван", "KZ123", "Kaspi", nil, nil, now, nil}

	mock.ExpectQuery(q("WHERE reference = $1 FOR UPDATE")).
		WithArgs("wd:1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(values...))

	tx, err := repo.LockByReference(context.Background(), "wd:1")
	require.NoError(t, err)
	assert.Equal(t, valueobject.TransactionTypeWithdrawal, tx.Type)
	require.NotNil(t, tx.Bank)
	assert.Equal(t, "KZ123", tx.Bank.AccountNumber)
	assert.Empty(t, tx.Bank.BankCode)
}

func TestUserRepository_UpdateRoleVersionMismatch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepositoryAdapter(db)
	userID := uuid.New()

	mock.ExpectExec(q("WHERE id = $1 AND role_version = $3")).
		WithArgs(userID, "freelancer", 2).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.UpdateRole(context.Background(), userID, valueobject.RoleFreelancer, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCommissionRepository_CurrentEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCommissionRepositoryAdapter(db)

	mock.ExpectQuery(q("FROM commission_rates ORDER BY version DESC LIMIT 1")).
		WillReturnRows(sqlmock.NewRows([]string{"version", "rate_bps"}))

	_, err := repo.Current(context.Background())
	assert.True(t, apperror.IsNotFound(err))
}
