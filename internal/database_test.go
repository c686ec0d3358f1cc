package internal

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &Database{sqlx.NewDb(db, "postgres")}, mock
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	database, mock := newMockDatabase(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE t").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := database.WithTx(context.Background(), func(ctx context.Context, tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, "UPDATE t SET v = 1")
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	database, mock := newMockDatabase(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := database.WithTx(context.Background(), func(ctx context.Context, tx *sqlx.Tx) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackAndRethrowsPanic(t *testing.T) {
	database, mock := newMockDatabase(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = database.WithTx(context.Background(), func(ctx context.Context, tx *sqlx.Tx) error {
			panic("kaboom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_BeginError(t *testing.T) {
	database, mock := newMockDatabase(t)

	mock.ExpectBegin().WillReturnError(errors.New("no conn"))

	err := database.WithTx(context.Background(), func(ctx context.Context, tx *sqlx.Tx) error {
		t.Fatal("fn must not run")
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ошибка начала транзакции")
}

func TestWithTx_CommitError(t *testing.T) {
	database, mock := newMockDatabase(t)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	err := database.WithTx(context.Background(), func(ctx context.Context, tx *sqlx.Tx) error {
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ошибка фиксации транзакции")
}

func TestRunMigrations_UsesEmbeddedFS(t *testing.T) {
	database, _ := newMockDatabase(t)

	original := gooseUpContext
	t.Cleanup(func() { gooseUpContext = original })

	var gotDir string
	var gotDB *sql.DB
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		gotDB = db
		return nil
	}

	require.NoError(t, database.RunMigrations(context.Background()))
	assert.Equal(t, ".", gotDir)
	assert.Same(t, database.DB.DB, gotDB)
}

func TestRunMigrations_PropagatesError(t *testing.T) {
	database, _ := newMockDatabase(t)

	original := gooseUpContext
	t.Cleanup(func() { gooseUpContext = original })

	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("dirty schema")
	}

	err := database.RunMigrations(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dirty schema")
}
