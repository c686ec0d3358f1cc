package service

import (
	"EcommerceAuth/config"
	"EcommerceAuth/internal/common"
	"EcommerceAuth/internal/logging"
	"EcommerceAuth/internal/model"
	"EcommerceAuth/internal/notifier"
	"EcommerceAuth/internal/ports"
	"EcommerceAuth/internal/security"
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"strings"
	"time"
)

const (
	DefaultPageLimit = 100
	MaxPageLimit     = 1000
)

type AuthenticationService struct {
	UserRepository         ports.UserRepositoryInterface
	RefreshTokenRepository ports.RefreshTokenRepositoryInterface
	JWTService             ports.JWTServiceInterface
	PasswordHasher         ports.PasswordHasherInterface
	Notifier               ports.NotifierInterface
	Logger                 logging.Logger
	Config                 *config.Config

	now func() time.Time
	// dummyHash keeps login timing the same for unknown emails.
	dummyHash string
}

type Page struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

func NewAuthenticationService(
	userRepository ports.UserRepositoryInterface,
	refreshTokenRepository ports.RefreshTokenRepositoryInterface,
	jwtService ports.JWTServiceInterface,
	passwordHasher ports.PasswordHasherInterface,
	webhookNotifier ports.NotifierInterface,
	logger logging.Logger,
	cfg *config.Config,
) (*AuthenticationService, error) {
	dummyHash, err := passwordHasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("ошибка подготовки сервиса: %w", err)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	if cfg == nil {
		cfg = config.Default()
	}

	return &AuthenticationService{
		UserRepository:         userRepository,
		RefreshTokenRepository: refreshTokenRepository,
		JWTService:             jwtService,
		PasswordHasher:         passwordHasher,
		Notifier:               webhookNotifier,
		Logger:                 logger,
		Config:                 cfg,
		now:                    time.Now,
		dummyHash:              dummyHash,
	}, nil
}

// WithClock replaces the service clock. It must match the clock of JWTService.
func (service *AuthenticationService) WithClock(now func() time.Time) *AuthenticationService {
	service.now = now
	return service
}

// CreateIdentity stores a new active non-admin user.
func (service *AuthenticationService) CreateIdentity(ctx context.Context, email string, password string) (*model.User, error) {
	return service.createUser(ctx, email, password, false)
}

// VerifyCredentials returns the user owning email when password matches. It
// does not look at the active flag.
func (service *AuthenticationService) VerifyCredentials(ctx context.Context, email string, password string) (*model.User, error) {
	user, err := service.UserRepository.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			_ = service.PasswordHasher.Compare(service.dummyHash, password)
			return nil, fmt.Errorf("%w: неверный email или пароль", common.ErrUnauthorized)
		}
		return nil, fmt.Errorf("не удалось найти пользователя: %w", err)
	}

	if err := service.PasswordHasher.Compare(user.PasswordHash, password); err != nil {
		return nil, fmt.Errorf("%w: неверный email или пароль", common.ErrUnauthorized)
	}

	return user, nil
}

func (service *AuthenticationService) Register(ctx context.Context, email string, password string, client model.ClientInfo) (*model.AuthResult, error) {
	user, err := service.CreateIdentity(ctx, email, password)
	if err != nil {
		return nil, err
	}

	tokensPair, err := service.startSession(ctx, user, client)
	if err != nil {
		return nil, err
	}

	service.Logger.Info(ctx, "пользователь зарегистрирован", "user_id", user.ID)
	return &model.AuthResult{User: user, Tokens: tokensPair}, nil
}

func (service *AuthenticationService) Login(ctx context.Context, email string, password string, client model.ClientInfo) (*model.AuthResult, error) {
	user, err := service.VerifyCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: аккаунт деактивирован", common.ErrForbidden)
	}

	tokensPair, err := service.startSession(ctx, user, client)
	if err != nil {
		return nil, err
	}

	service.Logger.Info(ctx, "выполнен вход", "user_id", user.ID)
	return &model.AuthResult{User: user, Tokens: tokensPair}, nil
}

// RefreshToken exchanges a live refresh token for a new pair. The presented
// token is revoked in the same step that stores its successor, so it can be
// used at most once.
func (service *AuthenticationService) RefreshToken(ctx context.Context, refreshToken string, client model.ClientInfo) (*model.TokensPair, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refresh токен не передан", common.ErrMalformed)
	}

	tokenHash := security.HashToken(refreshToken)

	storedRefreshToken, err := service.RefreshTokenRepository.FindByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: рефреш токен не найден", common.ErrUnauthorized)
		}
		return nil, fmt.Errorf("не удалось найти рефреш токен: %w", err)
	}
	if storedRefreshToken.Revoked {
		service.handleReuse(ctx, storedRefreshToken, client)
		return nil, fmt.Errorf("%w: токен уже был использован", common.ErrUnauthorized)
	}
	if !service.now().Before(storedRefreshToken.ExpiresAt) {
		return nil, fmt.Errorf("%w: токен просрочен", common.ErrUnauthorized)
	}

	claims, err := service.JWTService.Decode(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: не удалось провалидировать токен: %w", common.ErrUnauthorized, err)
	}
	if claims.Type != security.RefreshToken {
		return nil, fmt.Errorf("%w: ожидался refresh токен", common.ErrUnauthorized)
	}
	if claims.Subject != storedRefreshToken.UserID {
		return nil, fmt.Errorf("%w: токен принадлежит другому пользователю", common.ErrUnauthorized)
	}

	user, err := service.UserRepository.FindByID(ctx, storedRefreshToken.UserID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: пользователь не найден", common.ErrUnauthorized)
		}
		return nil, fmt.Errorf("не удалось найти пользователя: %w", err)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: аккаунт деактивирован", common.ErrUnauthorized)
	}

	tokensPair, newRefreshToken, err := service.issueTokens(user, client)
	if err != nil {
		return nil, err
	}

	if err := service.RefreshTokenRepository.Rotate(ctx, tokenHash, newRefreshToken); err != nil {
		if errors.Is(err, common.ErrTokenReused) {
			service.handleReuse(ctx, storedRefreshToken, client)
			return nil, fmt.Errorf("%w: токен уже был использован", common.ErrUnauthorized)
		}
		return nil, fmt.Errorf("не удалось обновить рефреш токен: %w", err)
	}

	if storedRefreshToken.IpAddress != "" && client.IPAddress != "" && storedRefreshToken.IpAddress != client.IPAddress {
		service.Logger.Info(ctx, "обновление токена с нового IP", "user_id", user.ID)
		service.notify(ctx, notifier.WebhookNotify{
			UserID:    user.ID,
			Event:     notifier.EventRefreshFromNewIP,
			NewIP:     client.IPAddress,
			OldIP:     storedRefreshToken.IpAddress,
			UserAgent: client.UserAgent,
		})
	}

	return tokensPair, nil
}

// Logout revokes every refresh token of the user. Repeated calls succeed.
func (service *AuthenticationService) Logout(ctx context.Context, userID string) error {
	revoked, err := service.RefreshTokenRepository.RevokeAllForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("не удалось выполнить выход: %w", err)
	}

	service.Logger.Info(ctx, "выполнен выход", "user_id", userID, "revoked", revoked)
	return nil
}

func (service *AuthenticationService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := service.UserRepository.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить пользователя: %w", err)
	}
	return user, nil
}

// Verify checks an access token locally without touching storage.
func (service *AuthenticationService) Verify(token string) (*security.Claims, error) {
	return service.JWTService.Authenticate(token)
}

func (service *AuthenticationService) ListUsers(ctx context.Context, page Page) ([]model.User, Page, error) {
	page = NormalizePage(page)

	users, err := service.UserRepository.List(ctx, page.Offset, page.Limit)
	if err != nil {
		return nil, page, fmt.Errorf("не удалось получить пользователей: %w", err)
	}
	return users, page, nil
}

// SetUserActive toggles the active flag. Deactivation also revokes every
// refresh token so the user cannot mint new access tokens.
func (service *AuthenticationService) SetUserActive(ctx context.Context, userID string, active bool) (*model.User, error) {
	if err := service.UserRepository.SetActive(ctx, userID, active); err != nil {
		return nil, fmt.Errorf("не удалось изменить статус пользователя: %w", err)
	}

	if !active {
		if _, err := service.RefreshTokenRepository.RevokeAllForUser(ctx, userID); err != nil {
			return nil, fmt.Errorf("не удалось отозвать токены пользователя: %w", err)
		}
		service.notify(ctx, notifier.WebhookNotify{UserID: userID, Event: notifier.EventUserDeactivated})
	}

	service.Logger.Info(ctx, "статус пользователя изменен", "user_id", userID, "active", active)
	return service.CurrentUser(ctx, userID)
}

// EnsureAdmin creates an admin with the given credentials unless the email is
// already registered.
func (service *AuthenticationService) EnsureAdmin(ctx context.Context, email string, password string) error {
	existing, err := service.UserRepository.FindByEmail(ctx, normalizeEmail(email))
	if err == nil {
		if !existing.IsAdmin {
			service.Logger.Warn(ctx, "email администратора занят обычным пользователем", "user_id", existing.ID)
		}
		return nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("не удалось проверить администратора: %w", err)
	}

	admin, err := service.createUser(ctx, email, password, true)
	if err != nil {
		return err
	}

	service.Logger.Info(ctx, "создан администратор", "user_id", admin.ID)
	return nil
}

func NormalizePage(page Page) Page {
	if page.Offset < 0 {
		page.Offset = 0
	}
	if page.Limit <= 0 {
		page.Limit = DefaultPageLimit
	}
	if page.Limit > MaxPageLimit {
		page.Limit = MaxPageLimit
	}
	return page
}

func (service *AuthenticationService) createUser(ctx context.Context, email string, password string, isAdmin bool) (*model.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email и пароль обязательны", common.ErrMalformed)
	}

	_, err := service.UserRepository.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: email уже зарегистрирован", common.ErrConflict)
	case !errors.Is(err, common.ErrNotFound):
		return nil, fmt.Errorf("не удалось проверить email: %w", err)
	}

	passwordHash, err := service.PasswordHasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := service.now().UTC()
	user := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		IsAdmin:      isAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := service.UserRepository.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("не удалось создать пользователя: %w", err)
	}

	return user, nil
}

func (service *AuthenticationService) startSession(ctx context.Context, user *model.User, client model.ClientInfo) (*model.TokensPair, error) {
	tokensPair, refreshToken, err := service.issueTokens(user, client)
	if err != nil {
		return nil, err
	}

	if err := service.RefreshTokenRepository.Save(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("не удалось сохранить рефреш токен: %w", err)
	}

	return tokensPair, nil
}

func (service *AuthenticationService) issueTokens(user *model.User, client model.ClientInfo) (*model.TokensPair, *model.RefreshToken, error) {
	accessToken, err := service.JWTService.IssueAccessToken(user)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка генерации токенов: %w", err)
	}

	refreshToken, expiresAt, err := service.JWTService.IssueRefreshToken(user)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка генерации токенов: %w", err)
	}

	record := &model.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: security.HashToken(refreshToken),
		ExpiresAt: expiresAt.UTC(),
		UserAgent: client.UserAgent,
		IpAddress: client.IPAddress,
		CreatedAt: service.now().UTC(),
	}

	tokensPair := &model.TokensPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(service.JWTService.AccessTTL() / time.Second),
	}

	return tokensPair, record, nil
}

// handleReuse runs when a revoked token is presented again. The chain is
// treated as compromised.
func (service *AuthenticationService) handleReuse(ctx context.Context, stored *model.RefreshToken, client model.ClientInfo) {
	service.Logger.Warn(ctx, "повторное использование рефреш токена", "user_id", stored.UserID, "ip", client.IPAddress)

	if service.Config.JWT.RevokeAllOnReuse {
		if _, err := service.RefreshTokenRepository.RevokeAllForUser(ctx, stored.UserID); err != nil {
			service.Logger.Error(ctx, "не удалось отозвать токены после повторного использования", "user_id", stored.UserID, "error", err)
		}
	}

	service.notify(ctx, notifier.WebhookNotify{
		UserID:    stored.UserID,
		Event:     notifier.EventRefreshTokenReuse,
		NewIP:     client.IPAddress,
		OldIP:     stored.IpAddress,
		UserAgent: client.UserAgent,
	})
}

func (service *AuthenticationService) notify(ctx context.Context, payload notifier.WebhookNotify) {
	if service.Notifier == nil {
		return
	}
	if err := service.Notifier.Notify(ctx, payload); err != nil {
		service.Logger.Error(ctx, "ошибка отправки webhook", "event", payload.Event, "error", err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
