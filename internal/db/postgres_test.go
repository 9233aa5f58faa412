package db

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return sqlx.NewDb(raw, "postgres"), mock
}

func TestRunMigrations_AppliesPendingInOrder(t *testing.T) {
	conn, mock := newMock(t)
	dir := fstest.MapFS{
		"0002_seed.sql": {Data: []byte("INSERT INTO t VALUES (1)")},
		"0001_init.sql": {Data: []byte("CREATE TABLE t (id INT)")},
		"README.md":     {Data: []byte("docs")},
	}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	countQuery := regexp.QuoteMeta(`SELECT COUNT(*) FROM schema_migrations WHERE name = $1`)

	mock.ExpectQuery(countQuery).WithArgs("0001_init.sql").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	mock.ExpectQuery(countQuery).WithArgs("0002_seed.sql").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO t VALUES (1)")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_migrations (name) VALUES ($1)")).WithArgs("0002_seed.sql").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	applied, err := runMigrations(context.Background(), conn, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"0002_seed.sql"}, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_RollsBackFailedFile(t *testing.T) {
	conn, mock := newMock(t)
	dir := fstest.MapFS{"0001_init.sql": {Data: []byte("CREATE TABLE broken (")}}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT COUNT").WithArgs("0001_init.sql").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE broken (")).WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	applied, err := runMigrations(context.Background(), conn, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0001_init.sql")
	assert.Empty(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}
