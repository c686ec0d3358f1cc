package repository

import (
	"EcommerceAuth/internal"
	"EcommerceAuth/internal/common"
	"EcommerceAuth/internal/model"
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDatabase(t *testing.T) (*internal.Database, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &internal.Database{DB: sqlx.NewDb(db, "postgres")}, mock
}

var userRowColumns = []string{"id", "email", "password_hash", "is_active", "is_admin", "created_at", "updated_at"}

func TestUserRepository_Create(t *testing.T) {
	database, mock := newMockDatabase(t)
	repository := NewUserRepository(database)
	now := time.Now().UTC()

	user := &model.User{
		ID:           "u1",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+users\b.*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6,\s*\$7\)$`).
		WithArgs("u1", "alice@example.com", "hash", true, false, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repository.Create(context.Background(), user))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	tests := map[string]error{
		"lib/pq": &pq.Error{Code: "23505"},
		"pgx":    &pgconn.PgError{Code: "23505"},
	}

	for name, driverErr := range tests {
		t.Run(name, func(t *testing.T) {
			database, mock := newMockDatabase(t)
			repository := NewUserRepository(database)

			mock.ExpectExec(`INSERT\s+INTO\s+users`).WillReturnError(driverErr)

			err := repository.Create(context.Background(), &model.User{ID: "u1", Email: "alice@example.com"})
			assert.ErrorIs(t, err, common.ErrConflict)
		})
	}
}

func TestUserRepository_Create_DBError(t *testing.T) {
	database, mock := newMockDatabase(t)
	repository := NewUserRepository(database)

	mock.ExpectExec(`INSERT\s+INTO\s+users`).WillReturnError(errors.New("db down"))

	err := repository.Create(context.Background(), &model.User{ID: "u1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrConflict)
	assert.Contains(t, err.Error(), "ошибка вставки пользователя")
}

func TestUserRepository_FindByEmail(t *testing.T) {
	database, mock := newMockDatabase(t)
	repository := NewUserRepository(database)
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	rows := sqlmock.NewRows(userRowColumns).
		AddRow("u1", "alice@example.com", "hash", true, false, created, created)
	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+email\s*=\s*\$1$`).
		WithArgs("alice@example.com").
		WillReturnRows(rows)

	user, err := repository.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "hash", user.PasswordHash)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsAdmin)
	assert.True(t, created.Equal(user.CreatedAt))
}

func TestUserRepository_FindByID_NotFound(t *testing.T) {
	database, mock := newMockDatabase(t)
	repository := NewUserRepository(database)

	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repository.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUserRepository_List(t *testing.T) {
	database, mock := newMockDatabase(t)
	repository := NewUserRepository(database)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(userRowColumns).
		AddRow("u1", "a@example.com", "h1", true, true, now, now).
		AddRow("u2", "b@example.com", "h2", false, false, now, now)
	mock.ExpectQuery(`(?s)FROM\s+users\s+ORDER\s+BY\s+created_at,\s*id\s+LIMIT\s+\$1\s+OFFSET\s+\$2$`).
		WithArgs(10, 20).
		WillReturnRows(rows)

	users, err := repository.List(context.Background(), 20, 10)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u1", users[0].ID)
	assert.True(t, users[0].IsAdmin)
	assert.False(t, users[1].IsActive)
}

func TestUserRepository_SetActive(t *testing.T) {
	database, mock := newMockDatabase(t)
	repository := NewUserRepository(database)

	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+is_active\s*=\s*\$1,\s*updated_at\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$3$`).
		WithArgs(false, sqlmock.AnyArg(), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repository.SetActive(context.Background(), "u1", false))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_SetActive_NotFound(t *testing.T) {
	database, mock := newMockDatabase(t)
	repository := NewUserRepository(database)

	mock.ExpectExec(`UPDATE\s+users`).
		WithArgs(true, sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repository.SetActive(context.Background(), "missing", true)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
