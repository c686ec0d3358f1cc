package repository

import (
	"EcommerceAuth/internal"
	"EcommerceAuth/internal/common"
	"EcommerceAuth/internal/model"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/jmoiron/sqlx"
	"time"
)

const (
	refreshTokenColumns = `id, user_id, token_hash, expires_at, revoked, revoked_at, user_agent, ip_address, created_at`

	insertRefreshTokenQuery = `INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked, user_agent, ip_address, created_at)
			  VALUES ($1, $2, $3, $4, FALSE, $5, $6, $7)`
)

type RefreshTokenRepository struct {
	*internal.Database
}

func NewRefreshTokenRepository(database *internal.Database) *RefreshTokenRepository {
	return &RefreshTokenRepository{database}
}

func (repository *RefreshTokenRepository) Save(ctx context.Context, token *model.RefreshToken) error {
	return saveRefreshToken(ctx, repository.DB, token)
}

func (repository *RefreshTokenRepository) FindByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	query := `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE token_hash = $1`

	var token model.RefreshToken
	if err := repository.DB.GetContext(ctx, &token, query, tokenHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: рефреш токен не найден", common.ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка поиска рефреш токена: %w", err)
	}

	return &token, nil
}

// Rotate revokes the token identified by oldHash and stores next in one
// transaction. Only one caller can win the conditional update; the others get
// common.ErrTokenReused and nothing is inserted.
func (repository *RefreshTokenRepository) Rotate(ctx context.Context, oldHash string, next *model.RefreshToken) error {
	return repository.WithTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		query := `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE token_hash = $1 AND revoked = FALSE`

		result, err := tx.ExecContext(ctx, query, oldHash, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("не удалось отозвать рефреш токен: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("не удалось проверить, отозван ли токен: %w", err)
		}
		if rowsAffected == 0 {
			return common.ErrTokenReused
		}

		return saveRefreshToken(ctx, tx, next)
	})
}

// RevokeAllForUser revokes every live token of the user and reports how many
// were affected. Zero is not an error.
func (repository *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	query := `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE`

	result, err := repository.DB.ExecContext(ctx, query, userID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("не удалось отозвать рефреш токены: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("не удалось проверить количество отозванных токенов: %w", err)
	}

	return rowsAffected, nil
}

func saveRefreshToken(ctx context.Context, execer sqlx.ExecerContext, token *model.RefreshToken) error {
	_, err := execer.ExecContext(ctx, insertRefreshTokenQuery,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.ExpiresAt,
		token.UserAgent,
		token.IpAddress,
		token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка вставки данных в БД: %w", err)
	}

	return nil
}
