package handler

import (
	"EcommerceAuth/internal/common"
	"EcommerceAuth/internal/logging"
	"EcommerceAuth/internal/model"
	"EcommerceAuth/internal/security"
	"EcommerceAuth/internal/service"
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// Pinger reports whether storage is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type AuthenticationHandler struct {
	*service.AuthenticationService
	logger  logging.Logger
	timeout time.Duration
	pinger  Pinger
}

// RegisterRequest содержит данные для регистрации
// swagger:model
type RegisterRequest struct {
	// example: alice@example.com
	Email string `json:"email" validate:"required,email,max=255"`
	// example: Secret123!
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest содержит учетные данные
// swagger:model
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest содержит refresh токен в json формате
// swagger:model
type RefreshTokenRequest struct {
	// Refresh токен
	// example: eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// VerifyRequest содержит проверяемый access токен
// swagger:model
type VerifyRequest struct {
	Token string `json:"token"`
}

// VerifyResponse результат проверки токена
// swagger:model
type VerifyResponse struct {
	Valid     bool       `json:"valid"`
	UserID    string     `json:"user_id,omitempty"`
	Email     string     `json:"email,omitempty"`
	IsAdmin   bool       `json:"is_admin,omitempty"`
	Type      string     `json:"type,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// LogoutResponse содержит строку с сообщением
// swagger:model
type LogoutResponse struct {
	// Сообщение о результате операции
	// example: выполнен выход из аккаунта
	Message string `json:"message"`
}

// HealthResponse состояние сервиса
// swagger:model
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func NewAuthenticationHandler(authenticationService *service.AuthenticationService, logger logging.Logger, timeout time.Duration, pinger Pinger) *AuthenticationHandler {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &AuthenticationHandler{
		AuthenticationService: authenticationService,
		logger:                logger,
		timeout:               timeout,
		pinger:                pinger,
	}
}

// Register godoc
// @Summary Регистрация
// @Description Создает пользователя и возвращает его вместе с парой токенов. Пример запроса: POST /api/auth/register с телом {"email": "alice@example.com", "password": "Secret123!"}
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Учетные данные"
// @Success 201 {object} model.AuthResult "пользователь создан"
// @Failure 400 {object} ErrorResponse "неверный json или ошибка валидации"
// @Failure 409 {object} ErrorResponse "email уже зарегистрирован"
// @Router /register [post]
func (handler *AuthenticationHandler) Register(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), handler.timeout)
	defer cancel()

	var body RegisterRequest
	if err := decodeJSON(writer, request, &body, false); err != nil {
		handler.fail(ctx, writer, request, err)
		return
	}
	if details := validateStruct(&body); details != nil {
		writeValidationError(writer, details)
		return
	}

	result, err := handler.AuthenticationService.Register(ctx, body.Email, body.Password, clientInfo(request))
	if err != nil {
		handler.fail(ctx, writer, request, err)
		return
	}

	writeJSON(writer, http.StatusCreated, result)
}

// Login godoc
// @Summary Вход
// @Description Проверяет учетные данные и выдает новую пару токенов
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Учетные данные"
// @Success 200 {object} model.AuthResult "успешный вход"
// @Failure 400 {object} ErrorResponse "неверный json или ошибка валидации"
// @Failure 401 {object} ErrorResponse "неверный email или пароль"
// @Failure 403 {object} ErrorResponse "аккаунт деактивирован"
// @Router /login [post]
func (handler *AuthenticationHandler) Login(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), handler.timeout)
	defer cancel()

	var body LoginRequest
	if err := decodeJSON(writer, request, &body, false); err != nil {
		handler.fail(ctx, writer, request, err)
		return
	}
	if details := validateStruct(&body); details != nil {
		writeValidationError(writer, details)
		return
	}

	result, err := handler.AuthenticationService.Login(ctx, body.Email, body.Password, clientInfo(request))
	if err != nil {
		handler.fail(ctx, writer, request, err)
		return
	}

	writeJSON(writer, http.StatusOK, result)
}

// RefreshToken обновляет access и refresh токены
// @Summary Обновление токенов
// @Description Обменивает refresh токен на новую пару. Предъявленный токен отзывается и больше не принимается. Пример запроса: POST /api/auth/refresh с телом {"refresh_token": "<refresh_token>"}
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body RefreshTokenRequest true "Refresh токен в теле запроса"
// @Success 200 {object} model.TokensPair "успешное обновление токенов"
// @Failure 400 {object} ErrorResponse "refresh токен не передан"
// @Failure 401 {object} ErrorResponse "токен недействителен, просрочен или отозван"
// @Router /refresh [post]
func (handler *AuthenticationHandler) RefreshToken(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), handler.timeout)
	defer cancel()

	var body RefreshTokenRequest
	if err := decodeJSON(writer, request, &body, false); err != nil {
		handler.fail(ctx, writer, request, err)
		return
	}
	if details := validateStruct(&body); details != nil {
		writeValidationError(writer, details)
		return
	}

	tokensPair, err := handler.AuthenticationService.RefreshToken(ctx, body.RefreshToken, clientInfo(request))
	if err != nil {
		handler.fail(ctx, writer, request, err)
		return
	}

	writeJSON(writer, http.StatusOK, tokensPair)
}

// Verify godoc
// @Summary Проверка токена
// @Description Проверяет access токен из тела запроса или из заголовка Authorization и возвращает его claims
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body VerifyRequest false "Токен"
// @Success 200 {object} VerifyResponse "токен действителен"
// @Failure 401 {object} VerifyResponse "токен недействителен"
// @Router /verify [post]
func (handler *AuthenticationHandler) Verify(writer http.ResponseWriter, request *http.Request) {
	var body VerifyRequest
	if err := decodeJSON(writer, request, &body, true); err != nil {
		logFailure(request.Context(), handler.logger, request, err)
		writeJSON(writer, http.StatusUnauthorized, &VerifyResponse{Valid: false, Error: "некорректное тело запроса"})
		return
	}

	token := body.Token
	if token == "" {
		token, _ = security.BearerToken(request)
	}
	if token == "" {
		writeJSON(writer, http.StatusUnauthorized, &VerifyResponse{Valid: false, Error: "токен не передан"})
		return
	}

	claims, err := handler.AuthenticationService.Verify(token)
	if err != nil {
		message := "невалидный токен"
		if errors.Is(err, common.ErrExpired) {
			message = "токен просрочен"
		}
		writeJSON(writer, http.StatusUnauthorized, &VerifyResponse{Valid: false, Error: message})
		return
	}

	expiresAt := claims.ExpiresAt.Time.UTC()
	writeJSON(writer, http.StatusOK, &VerifyResponse{
		Valid:     true,
		UserID:    claims.UserID(),
		Email:     claims.Email,
		IsAdmin:   claims.Role() == security.RoleAdmin,
		Type:      string(claims.Type),
		ExpiresAt: &expiresAt,
	})
}

// GetCurrentUser godoc
// @Summary Текущий пользователь
// @Description Возвращает пользователя, которому выдан access токен. Пример запроса: GET /api/auth/me с заголовком Authorization: Bearer <access_token>
// @Tags Authentication
// @Produce json
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} model.User "успешный ответ"
// @Failure 401 {object} ErrorResponse "не авторизован"
// @Failure 404 {object} ErrorResponse "пользователь не найден"
// @Security ApiKeyAuth
// @Router /me [get]
func (handler *AuthenticationHandler) GetCurrentUser(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), handler.timeout)
	defer cancel()

	claims, ok := security.ClaimsFromContext(ctx)
	if !ok {
		WriteError(writer, request, common.ErrUnauthorized)
		return
	}

	user, err := handler.AuthenticationService.CurrentUser(ctx, claims.UserID())
	if err != nil {
		handler.fail(ctx, writer, request, err)
		return
	}

	writeJSON(writer, http.StatusOK, user)
}

// Logout godoc
// @Summary Выход из аккаунта
// @Description Отзывает все refresh токены пользователя. Повторный вызов также успешен. Пример запроса: POST /api/auth/logout с заголовком Authorization: Bearer <access_token>
// @Tags Authentication
// @Produce json
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} LogoutResponse "Успешный выход"
// @Failure 401 {object} ErrorResponse "пользователь не авторизован"
// @Security ApiKeyAuth
// @Router /logout [post]
func (handler *AuthenticationHandler) Logout(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), handler.timeout)
	defer cancel()

	claims, ok := security.ClaimsFromContext(ctx)
	if !ok {
		WriteError(writer, request, common.ErrUnauthorized)
		return
	}

	if err := handler.AuthenticationService.Logout(ctx, claims.UserID()); err != nil {
		handler.fail(ctx, writer, request, err)
		return
	}

	writeJSON(writer, http.StatusOK, &LogoutResponse{Message: "выполнен выход из аккаунта"})
}

// Health godoc
// @Summary Состояние сервиса
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (handler *AuthenticationHandler) Health(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), handler.timeout)
	defer cancel()

	if handler.pinger != nil {
		if err := handler.pinger.PingContext(ctx); err != nil {
			handler.logger.Error(ctx, "хранилище недоступно", "error", err)
			writeJSON(writer, http.StatusServiceUnavailable, &HealthResponse{Status: "unhealthy", Service: "auth-service"})
			return
		}
	}

	writeJSON(writer, http.StatusOK, &HealthResponse{Status: "healthy", Service: "auth-service"})
}

// fail logs unexpected errors and writes the mapped response.
func (handler *AuthenticationHandler) fail(ctx context.Context, writer http.ResponseWriter, request *http.Request, err error) {
	logFailure(ctx, handler.logger, request, err)
	WriteError(writer, request, err)
}

func logFailure(ctx context.Context, logger logging.Logger, request *http.Request, err error) {
	if classify(err) == kindInternal {
		logger.Error(ctx, "ошибка обработки запроса", "path", request.URL.Path, "error", err)
		return
	}
	logger.Debug(ctx, "запрос отклонен", "path", request.URL.Path, "error", err)
}

func clientInfo(request *http.Request) model.ClientInfo {
	ip := request.RemoteAddr
	if host, _, err := net.SplitHostPort(request.RemoteAddr); err == nil {
		ip = host
	}
	return model.ClientInfo{UserAgent: request.UserAgent(), IPAddress: ip}
}
