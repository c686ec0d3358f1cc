package handler

import (
	"EcommerceAuth/internal/common"
	"encoding/json"
	"errors"
	"net/http"
)

// ErrorResponse тело ответа с ошибкой
// swagger:model
type ErrorResponse struct {
	// Машиночитаемый код ошибки
	// example: unauthorized
	Error string `json:"error"`
	// Сообщение для пользователя
	// example: не авторизован
	Message string `json:"message"`
	// Ошибки валидации по полям
	Details map[string]string `json:"details,omitempty"`
}

type errorKind struct {
	status  int
	code    string
	message string
}

var (
	kindConflict     = errorKind{http.StatusConflict, "conflict", "email уже зарегистрирован"}
	kindForbidden    = errorKind{http.StatusForbidden, "forbidden", "доступ запрещен"}
	kindUnauthorized = errorKind{http.StatusUnauthorized, "unauthorized", "не авторизован"}
	kindNotFound     = errorKind{http.StatusNotFound, "not_found", "не найдено"}
	kindMalformed    = errorKind{http.StatusBadRequest, "malformed", "некорректный запрос"}
	kindInternal     = errorKind{http.StatusInternalServerError, "internal", "внутренняя ошибка сервера"}
)

// classify maps the error taxonomy to a response. Unauthorized is checked
// before Malformed because a broken token is both.
func classify(err error) errorKind {
	switch {
	case errors.Is(err, common.ErrConflict):
		return kindConflict
	case errors.Is(err, common.ErrForbidden):
		return kindForbidden
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrExpired), errors.Is(err, common.ErrTokenReused):
		return kindUnauthorized
	case errors.Is(err, common.ErrNotFound):
		return kindNotFound
	case errors.Is(err, common.ErrMalformed):
		return kindMalformed
	default:
		return kindInternal
	}
}

// WriteError is the only place errors become HTTP responses. Internal error
// text never reaches the client.
func WriteError(writer http.ResponseWriter, request *http.Request, err error) {
	kind := classify(err)
	writeJSON(writer, kind.status, &ErrorResponse{Error: kind.code, Message: kind.message})
}

func writeValidationError(writer http.ResponseWriter, details map[string]string) {
	writeJSON(writer, http.StatusBadRequest, &ErrorResponse{
		Error:   kindMalformed.code,
		Message: "ошибка валидации",
		Details: details,
	})
}

func writeJSON(writer http.ResponseWriter, status int, body any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(body)
}
