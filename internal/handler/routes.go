package handler

import (
	"EcommerceAuth/internal/logging"
	"EcommerceAuth/internal/security"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"net/http"
	"time"
)

func RegisterRoutes(router chi.Router, authenticationHandler *AuthenticationHandler, adminHandler *AdminHandler, authenticator security.Authenticator, basePath string) {
	router.Get("/health", authenticationHandler.Health)

	router.Route(basePath, func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Post("/register", authenticationHandler.Register)
			r.Post("/login", authenticationHandler.Login)
			r.Post("/refresh", authenticationHandler.RefreshToken)
			r.Post("/verify", authenticationHandler.Verify)
		})
		r.Group(func(r chi.Router) {
			r.Use(security.JWTMiddleware(authenticator, WriteError))
			r.Get("/me", authenticationHandler.GetCurrentUser)
			r.Post("/logout", authenticationHandler.Logout)

			r.Route("/admin", func(r chi.Router) {
				r.Use(security.RequireRole(security.RoleAdmin, WriteError))
				r.Get("/users", adminHandler.ListUsers)
				r.Post("/users/{id}/deactivate", adminHandler.SetUserActive(false))
				r.Post("/users/{id}/activate", adminHandler.SetUserActive(true))
			})
		})
	})
}

// RequestLogger writes one access log line per request. Tokens and bodies are
// never logged.
func RequestLogger(logger logging.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			start := time.Now()
			wrapped := middleware.NewWrapResponseWriter(writer, request.ProtoMajor)

			next.ServeHTTP(wrapped, request)

			logger.Info(request.Context(), "http запрос",
				"method", request.Method,
				"path", request.URL.Path,
				"status", wrapped.Status(),
				"bytes", wrapped.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(request.Context()),
			)
		})
	}
}
