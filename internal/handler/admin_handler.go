package handler

import (
	"EcommerceAuth/internal/common"
	"EcommerceAuth/internal/logging"
	"EcommerceAuth/internal/model"
	"EcommerceAuth/internal/service"
	"context"
	"fmt"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"net/http"
	"strconv"
	"time"
)

type AdminHandler struct {
	*service.AuthenticationService
	logger  logging.Logger
	timeout time.Duration
}

// ListUsersResponse страница пользователей
// swagger:model
type ListUsersResponse struct {
	Users  []model.User `json:"users"`
	Offset int          `json:"offset"`
	Limit  int          `json:"limit"`
}

func NewAdminHandler(authenticationService *service.AuthenticationService, logger logging.Logger, timeout time.Duration) *AdminHandler {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &AdminHandler{
		AuthenticationService: authenticationService,
		logger:                logger,
		timeout:               timeout,
	}
}

// ListUsers godoc
// @Summary Список пользователей
// @Description Только для администраторов. Пример запроса: GET /api/auth/admin/users?offset=0&limit=100
// @Tags Admin
// @Produce json
// @Param offset query int false "Смещение"
// @Param limit query int false "Размер страницы (по умолчанию 100, максимум 1000)"
// @Success 200 {object} ListUsersResponse
// @Failure 400 {object} ErrorResponse "некорректные параметры"
// @Failure 401 {object} ErrorResponse "не авторизован"
// @Failure 403 {object} ErrorResponse "требуются права администратора"
// @Security ApiKeyAuth
// @Router /admin/users [get]
func (handler *AdminHandler) ListUsers(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), handler.timeout)
	defer cancel()

	offset, err := queryInt(request, "offset")
	if err != nil {
		WriteError(writer, request, err)
		return
	}
	limit, err := queryInt(request, "limit")
	if err != nil {
		WriteError(writer, request, err)
		return
	}

	users, page, err := handler.AuthenticationService.ListUsers(ctx, service.Page{Offset: offset, Limit: limit})
	if err != nil {
		logFailure(ctx, handler.logger, request, err)
		WriteError(writer, request, err)
		return
	}

	writeJSON(writer, http.StatusOK, &ListUsersResponse{Users: users, Offset: page.Offset, Limit: page.Limit})
}

// SetUserActive godoc
// @Summary Активация и деактивация пользователя
// @Description Только для администраторов. Деактивация отзывает все refresh токены пользователя. Пример запроса: POST /api/auth/admin/users/{id}/deactivate
// @Tags Admin
// @Produce json
// @Param id path string true "UUID пользователя"
// @Success 200 {object} model.User
// @Failure 400 {object} ErrorResponse "некорректный UUID"
// @Failure 401 {object} ErrorResponse "не авторизован"
// @Failure 403 {object} ErrorResponse "требуются права администратора"
// @Failure 404 {object} ErrorResponse "пользователь не найден"
// @Security ApiKeyAuth
// @Router /admin/users/{id}/deactivate [post]
// @Router /admin/users/{id}/activate [post]
func (handler *AdminHandler) SetUserActive(active bool) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		ctx, cancel := context.WithTimeout(request.Context(), handler.timeout)
		defer cancel()

		userID := chi.URLParam(request, "id")
		if _, err := uuid.Parse(userID); err != nil {
			WriteError(writer, request, fmt.Errorf("%w: некорректный UUID пользователя", common.ErrMalformed))
			return
		}

		user, err := handler.AuthenticationService.SetUserActive(ctx, userID, active)
		if err != nil {
			logFailure(ctx, handler.logger, request, err)
			WriteError(writer, request, err)
			return
		}

		writeJSON(writer, http.StatusOK, user)
	}
}

func queryInt(request *http.Request, key string) (int, error) {
	raw := request.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: параметр %s должен быть числом", common.ErrMalformed, key)
	}
	return value, nil
}
