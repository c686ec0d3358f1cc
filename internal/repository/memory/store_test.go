package memory

import (
	"EcommerceAuth/internal/common"
	"EcommerceAuth/internal/model"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStore_CreateAndFind(t *testing.T) {
	store := NewUserStore()
	ctx := context.Background()

	user := &model.User{ID: "u1", Email: "alice@example.com", IsActive: true}
	require.NoError(t, store.Create(ctx, user))

	err := store.Create(ctx, &model.User{ID: "u2", Email: "alice@example.com"})
	assert.ErrorIs(t, err, common.ErrConflict)

	found, err := store.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", found.ID)

	// returned values are copies
	found.IsAdmin = true
	again, err := store.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, again.IsAdmin)

	_, err = store.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUserStore_ListPaginates(t *testing.T) {
	store := NewUserStore()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Create(ctx, &model.User{
			ID:        fmt.Sprintf("u%d", i),
			Email:     fmt.Sprintf("user%d@example.com", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	page, err := store.List(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "u1", page[0].ID)
	assert.Equal(t, "u2", page[1].ID)

	page, err = store.List(ctx, 4, 10)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	page, err = store.List(ctx, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestUserStore_SetActive(t *testing.T) {
	store := NewUserStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &model.User{ID: "u1", Email: "a@example.com", IsActive: true}))

	require.NoError(t, store.SetActive(ctx, "u1", false))
	user, err := store.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, user.IsActive)

	assert.ErrorIs(t, store.SetActive(ctx, "missing", false), common.ErrNotFound)
}

func TestRefreshTokenStore_RotateSingleWinner(t *testing.T) {
	store := NewRefreshTokenStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &model.RefreshToken{ID: "r0", UserID: "u1", TokenHash: "h0"}))

	const callers = 16
	var wins, reused atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.Rotate(ctx, "h0", &model.RefreshToken{ID: fmt.Sprintf("r%d", i+1), UserID: "u1", TokenHash: fmt.Sprintf("h%d", i+1)})
			switch {
			case err == nil:
				wins.Add(1)
			case assert.ErrorIs(t, err, common.ErrTokenReused):
				reused.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(callers-1), reused.Load())

	old, err := store.FindByHash(ctx, "h0")
	require.NoError(t, err)
	assert.True(t, old.Revoked)
	assert.NotNil(t, old.RevokedAt)
}

func TestRefreshTokenStore_RotateUnknownToken(t *testing.T) {
	store := NewRefreshTokenStore()

	err := store.Rotate(context.Background(), "nope", &model.RefreshToken{TokenHash: "h1"})
	assert.ErrorIs(t, err, common.ErrTokenReused)

	_, err = store.FindByHash(context.Background(), "h1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRefreshTokenStore_RevokeAllIsIdempotent(t *testing.T) {
	store := NewRefreshTokenStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &model.RefreshToken{ID: "r1", UserID: "u1", TokenHash: "h1"}))
	require.NoError(t, store.Save(ctx, &model.RefreshToken{ID: "r2", UserID: "u1", TokenHash: "h2"}))
	require.NoError(t, store.Save(ctx, &model.RefreshToken{ID: "r3", UserID: "u2", TokenHash: "h3"}))

	revoked, err := store.RevokeAllForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), revoked)

	revoked, err = store.RevokeAllForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, revoked)

	other, err := store.FindByHash(ctx, "h3")
	require.NoError(t, err)
	assert.False(t, other.Revoked)
}
