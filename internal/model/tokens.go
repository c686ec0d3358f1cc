package model

import "time"

// RefreshToken is the persisted state of an issued refresh token. The raw
// token never reaches storage; records are keyed by TokenHash.
type RefreshToken struct {
	ID        string     `db:"id"`
	UserID    string     `db:"user_id"`
	TokenHash string     `db:"token_hash"`
	ExpiresAt time.Time  `db:"expires_at"`
	Revoked   bool       `db:"revoked"`
	RevokedAt *time.Time `db:"revoked_at"`
	UserAgent string     `db:"user_agent"`
	IpAddress string     `db:"ip_address"`
	CreatedAt time.Time  `db:"created_at"`
}

// TokensPair содержит пару access и refresh токенов
// swagger:model
type TokensPair struct {
	// Access токен (JWT)
	// example: eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...
	AccessToken string `json:"access_token"`

	// Refresh токен (JWT, для получения новой пары)
	// example: eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...
	RefreshToken string `json:"refresh_token"`

	// Тип токена, всегда Bearer
	TokenType string `json:"token_type"`

	// Время жизни access токена в секундах
	// example: 3600
	ExpiresIn int64 `json:"expires_in"`
}

// AuthResult возвращается при регистрации и входе
// swagger:model
type AuthResult struct {
	User   *User       `json:"user"`
	Tokens *TokensPair `json:"tokens"`
}

// ClientInfo describes the caller of a token-issuing request.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}
