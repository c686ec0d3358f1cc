package security

import (
	"EcommerceAuth/internal/common"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusResponder(writer http.ResponseWriter, _ *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrForbidden):
		writer.WriteHeader(http.StatusForbidden)
	default:
		writer.WriteHeader(http.StatusUnauthorized)
	}
}

func protected(t *testing.T, manager *TokenManager, role Role) http.Handler {
	t.Helper()
	final := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		claims, ok := ClaimsFromContext(request.Context())
		require.True(t, ok)
		_, _ = writer.Write([]byte(claims.Subject))
	})

	var handler http.Handler = final
	if role != "" {
		handler = RequireRole(role, statusResponder)(handler)
	}
	return JWTMiddleware(manager, statusResponder)(handler)
}

func serve(handler http.Handler, authorization string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authorization != "" {
		request.Header.Set("Authorization", authorization)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestJWTMiddleware(t *testing.T) {
	manager := newTestManager(&fakeClock{now: time.Now()})
	accessToken, err := manager.IssueAccessToken(testUser())
	require.NoError(t, err)
	refreshToken, _, err := manager.IssueRefreshToken(testUser())
	require.NoError(t, err)

	handler := protected(t, manager, "")

	tests := []struct {
		name          string
		authorization string
		wantStatus    int
	}{
		{"valid access token", "Bearer " + accessToken, http.StatusOK},
		{"lower case scheme", "bearer " + accessToken, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + accessToken, http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"refresh token", "Bearer " + refreshToken, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := serve(handler, tt.authorization)
			assert.Equal(t, tt.wantStatus, recorder.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, testUser().ID, recorder.Body.String())
			}
		})
	}
}

func TestRequireRole_Admin(t *testing.T) {
	manager := newTestManager(&fakeClock{now: time.Now()})
	handler := protected(t, manager, RoleAdmin)

	user := testUser()
	userToken, err := manager.IssueAccessToken(user)
	require.NoError(t, err)

	admin := testUser()
	admin.IsAdmin = true
	adminToken, err := manager.IssueAccessToken(admin)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, serve(handler, "Bearer "+userToken).Code)
	assert.Equal(t, http.StatusOK, serve(handler, "Bearer "+adminToken).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(handler, "").Code)
}

func TestRequireRole_WithoutClaimsIsUnauthorized(t *testing.T) {
	handler := RequireRole(RoleUser, statusResponder)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestAuthorize(t *testing.T) {
	user := &Claims{}
	admin := &Claims{IsAdmin: true}

	assert.NoError(t, Authorize(user, RoleUser))
	assert.NoError(t, Authorize(admin, RoleUser))
	assert.NoError(t, Authorize(admin, RoleAdmin))

	assert.ErrorIs(t, Authorize(user, RoleAdmin), common.ErrForbidden)
	assert.ErrorIs(t, Authorize(admin, Role("superuser")), common.ErrForbidden)
	assert.ErrorIs(t, Authorize(nil, RoleUser), common.ErrUnauthorized)
}
