package security

import (
	"EcommerceAuth/internal/common"
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Authenticator turns a bearer token into verified access claims.
type Authenticator interface {
	Authenticate(token string) (*Claims, error)
}

// ErrorResponder writes err to the client. Handlers supply their own JSON
// envelope.
type ErrorResponder func(writer http.ResponseWriter, request *http.Request, err error)

type claimsContextKey struct{}

func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*Claims)
	return claims, ok && claims != nil
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(request *http.Request) (string, error) {
	authorizationHeader := request.Header.Get("Authorization")
	scheme, token, found := strings.Cut(authorizationHeader, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: пустой или неверный заголовок Authorization", common.ErrUnauthorized)
	}
	return strings.TrimSpace(token), nil
}

// JWTMiddleware rejects requests without a valid access token before the
// wrapped handler runs.
func JWTMiddleware(authenticator Authenticator, respond ErrorResponder) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			token, err := BearerToken(request)
			if err != nil {
				respond(writer, request, err)
				return
			}

			claims, err := authenticator.Authenticate(token)
			if err != nil {
				respond(writer, request, err)
				return
			}

			next.ServeHTTP(writer, request.WithContext(ContextWithClaims(request.Context(), claims)))
		})
	}
}

// RequireRole must run after JWTMiddleware.
func RequireRole(role Role, respond ErrorResponder) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims, _ := ClaimsFromContext(request.Context())
			if err := Authorize(claims, role); err != nil {
				respond(writer, request, err)
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}
