package ports

import (
	"EcommerceAuth/internal/model"
	"EcommerceAuth/internal/notifier"
	"EcommerceAuth/internal/security"
	"context"
	"time"
)

// UserRepositoryInterface is the credential store.
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context, offset int, limit int) ([]model.User, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// RefreshTokenRepositoryInterface is the refresh registry storage. Rotate must
// be a single-winner compare-and-set.
type RefreshTokenRepositoryInterface interface {
	Save(ctx context.Context, token *model.RefreshToken) error
	FindByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	Rotate(ctx context.Context, oldHash string, next *model.RefreshToken) error
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
}

type JWTServiceInterface interface {
	IssueAccessToken(user *model.User) (string, error)
	IssueRefreshToken(user *model.User) (string, time.Time, error)
	Decode(token string) (*security.Claims, error)
	Authenticate(token string) (*security.Claims, error)
	AccessTTL() time.Duration
}

type PasswordHasherInterface interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error
}

type NotifierInterface interface {
	Notify(ctx context.Context, payload notifier.WebhookNotify) error
}
