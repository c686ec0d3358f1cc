// Package memory provides thread-safe in-process stores with the same
// contracts as the postgres repositories. Reads return copies so callers
// cannot mutate stored state.
package memory

import (
	"EcommerceAuth/internal/common"
	"EcommerceAuth/internal/model"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type UserStore struct {
	mu      sync.RWMutex
	byID    map[string]*model.User
	byEmail map[string]string
}

func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[string]*model.User),
		byEmail: make(map[string]string),
	}
}

func (s *UserStore) Create(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[user.Email]; exists {
		return fmt.Errorf("%w: email уже зарегистрирован", common.ErrConflict)
	}
	if _, exists := s.byID[user.ID]; exists {
		return fmt.Errorf("%w: пользователь уже существует", common.ErrConflict)
	}

	cp := *user
	s.byID[cp.ID] = &cp
	s.byEmail[cp.Email] = cp.ID
	return nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("%w: пользователь не найден", common.ErrNotFound)
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *UserStore) FindByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: пользователь не найден", common.ErrNotFound)
	}
	cp := *user
	return &cp, nil
}

func (s *UserStore) List(_ context.Context, offset int, limit int) ([]model.User, error) {
	s.mu.RLock()
	users := make([]model.User, 0, len(s.byID))
	for _, user := range s.byID {
		users = append(users, *user)
	}
	s.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})

	if offset >= len(users) {
		return []model.User{}, nil
	}
	end := offset + limit
	if end > len(users) {
		end = len(users)
	}
	return users[offset:end], nil
}

func (s *UserStore) SetActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: пользователь не найден", common.ErrNotFound)
	}
	user.IsActive = active
	user.UpdatedAt = time.Now().UTC()
	return nil
}

// PingContext lets the store stand in for a database in health checks.
func (s *UserStore) PingContext(context.Context) error {
	return nil
}

type RefreshTokenStore struct {
	mu     sync.Mutex
	byHash map[string]*model.RefreshToken
}

func NewRefreshTokenStore() *RefreshTokenStore {
	return &RefreshTokenStore{byHash: make(map[string]*model.RefreshToken)}
}

func (s *RefreshTokenStore) Save(_ context.Context, token *model.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(token)
}

func (s *RefreshTokenStore) FindByHash(_ context.Context, tokenHash string) (*model.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.byHash[tokenHash]
	if !ok {
		return nil, fmt.Errorf("%w: рефреш токен не найден", common.ErrNotFound)
	}
	return copyToken(token), nil
}

// Rotate is a compare-and-set under the store lock: the revoke and the insert
// happen together or not at all.
func (s *RefreshTokenStore) Rotate(_ context.Context, oldHash string, next *model.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byHash[oldHash]
	if !ok || current.Revoked {
		return common.ErrTokenReused
	}
	if _, exists := s.byHash[next.TokenHash]; exists {
		return fmt.Errorf("%w: рефреш токен уже существует", common.ErrConflict)
	}

	revokeLocked(current, time.Now().UTC())
	return s.insertLocked(next)
}

func (s *RefreshTokenStore) RevokeAllForUser(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	var revoked int64
	for _, token := range s.byHash {
		if token.UserID == userID && !token.Revoked {
			revokeLocked(token, now)
			revoked++
		}
	}
	return revoked, nil
}

func (s *RefreshTokenStore) insertLocked(token *model.RefreshToken) error {
	if _, exists := s.byHash[token.TokenHash]; exists {
		return fmt.Errorf("%w: рефреш токен уже существует", common.ErrConflict)
	}
	s.byHash[token.TokenHash] = copyToken(token)
	return nil
}

func revokeLocked(token *model.RefreshToken, at time.Time) {
	token.Revoked = true
	token.RevokedAt = &at
}

func copyToken(token *model.RefreshToken) *model.RefreshToken {
	cp := *token
	if token.RevokedAt != nil {
		at := *token.RevokedAt
		cp.RevokedAt = &at
	}
	return &cp
}
