package repository

import (
	"EcommerceAuth/internal"
	"EcommerceAuth/internal/common"
	"EcommerceAuth/internal/model"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const userColumns = `id, email, password_hash, is_active, is_admin, created_at, updated_at`

type UserRepository struct {
	*internal.Database
}

func NewUserRepository(database *internal.Database) *UserRepository {
	return &UserRepository{database}
}

func (repository *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, email, password_hash, is_active, is_admin, created_at, updated_at)
			  VALUES (:id, :email, :password_hash, :is_active, :is_admin, :created_at, :updated_at)`

	_, err := repository.DB.NamedExecContext(ctx, query, user)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email уже зарегистрирован", common.ErrConflict)
		}
		return fmt.Errorf("ошибка вставки пользователя: %w", err)
	}

	return nil
}

func (repository *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return repository.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (repository *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return repository.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (repository *UserRepository) findOne(ctx context.Context, query string, arg string) (*model.User, error) {
	var user model.User

	err := repository.DB.GetContext(ctx, &user, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: пользователь не найден", common.ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}

	return &user, nil
}

func (repository *UserRepository) List(ctx context.Context, offset int, limit int) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id LIMIT $1 OFFSET $2`

	users := make([]model.User, 0, limit)
	if err := repository.DB.SelectContext(ctx, &users, query, limit, offset); err != nil {
		return nil, fmt.Errorf("ошибка получения списка пользователей: %w", err)
	}

	return users, nil
}

func (repository *UserRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE users SET is_active = $1, updated_at = $2 WHERE id = $3`

	result, err := repository.DB.ExecContext(ctx, query, active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("не удалось обновить пользователя: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("не удалось проверить, обновлен ли пользователь: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: пользователь не найден", common.ErrNotFound)
	}

	return nil
}
