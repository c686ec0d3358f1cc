// Package common holds the error taxonomy shared by every layer of the service.
// Handlers translate these sentinels into HTTP statuses; everything below the
// handler only wraps them.
package common

import "errors"

var (
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrMalformed    = errors.New("malformed")
	ErrNotFound     = errors.New("not found")
	ErrExpired      = errors.New("token expired")

	// ErrTokenReused is returned by the refresh registry when the presented
	// token was already revoked by the time the conditional update ran.
	ErrTokenReused = errors.New("refresh token reused")
)
