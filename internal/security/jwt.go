package security

import (
	"EcommerceAuth/internal/common"
	"EcommerceAuth/internal/model"
	"errors"
	"fmt"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"time"
)

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

var signingMethod = jwt.SigningMethodHS256

// Claims is the payload shared by every service that trusts these tokens.
// A missing is_admin claim decodes as false.
type Claims struct {
	Email   string    `json:"email"`
	IsAdmin bool      `json:"is_admin,omitempty"`
	Type    TokenType `json:"type"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() string {
	return c.Subject
}

// TokenManager mints and verifies tokens with a single shared HMAC secret.
type TokenManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenManager(secret []byte, issuer string, accessTTL time.Duration, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     secret,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock returns a copy of the manager reading time from now.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	cp := *m
	cp.now = now
	return &cp
}

func (m *TokenManager) AccessTTL() time.Duration {
	return m.accessTTL
}

func (m *TokenManager) IssueAccessToken(user *model.User) (string, error) {
	claims := m.newClaims(user, AccessToken, m.accessTTL)
	claims.IsAdmin = user.IsAdmin

	token, err := m.sign(claims)
	if err != nil {
		return "", fmt.Errorf("ошибка подписи access токена: %w", err)
	}
	return token, nil
}

// IssueRefreshToken returns the signed token and its absolute expiry. Each
// refresh token carries a random jti so two tokens minted in the same second
// never collide.
func (m *TokenManager) IssueRefreshToken(user *model.User) (string, time.Time, error) {
	claims := m.newClaims(user, RefreshToken, m.refreshTTL)
	claims.ID = uuid.NewString()

	token, err := m.sign(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("ошибка подписи refresh токена: %w", err)
	}
	return token, claims.ExpiresAt.Time, nil
}

func (m *TokenManager) newClaims(user *model.User, tokenType TokenType, ttl time.Duration) *Claims {
	now := m.now()
	return &Claims{
		Email: user.Email,
		Type:  tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func (m *TokenManager) sign(claims *Claims) (string, error) {
	return jwt.NewWithClaims(signingMethod, claims).SignedString(m.secret)
}

// Decode verifies signature, expiry and structure. A token with a valid
// signature and a past exp fails with common.ErrExpired; everything else that
// is wrong fails with common.ErrMalformed.
func (m *TokenManager) Decode(tokenStr string) (*Claims, error) {
	claims := &Claims{}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		options = append(options, jwt.WithIssuer(m.issuer))
	}

	_, err := jwt.ParseWithClaims(tokenStr, claims, m.keyFunc, options...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", common.ErrExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", common.ErrMalformed, err)
	}

	switch {
	case claims.Subject == "":
		return nil, fmt.Errorf("%w: отсутствует sub", common.ErrMalformed)
	case claims.IssuedAt == nil:
		return nil, fmt.Errorf("%w: отсутствует iat", common.ErrMalformed)
	case claims.Type != AccessToken && claims.Type != RefreshToken:
		return nil, fmt.Errorf("%w: неизвестный тип токена %q", common.ErrMalformed, claims.Type)
	}

	return claims, nil
}

// Authenticate is Decode restricted to access tokens. Every failure also
// matches common.ErrUnauthorized.
func (m *TokenManager) Authenticate(tokenStr string) (*Claims, error) {
	claims, err := m.Decode(tokenStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrUnauthorized, err)
	}
	if claims.Type != AccessToken {
		return nil, fmt.Errorf("%w: ожидался access токен", common.ErrUnauthorized)
	}
	return claims, nil
}

func (m *TokenManager) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("неверный способ подписи токена: %v", token.Header["alg"])
	}
	return m.secret, nil
}
