package types

import (
	"errors"
	"net/http"
)

// ErrorKind classifies failures returned by the service layer.
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindUnauthorized      ErrorKind = "unauthorized"
	KindForbidden         ErrorKind = "forbidden"
	KindNotFound          ErrorKind = "not_found"
	KindConflict          ErrorKind = "conflict"
	KindInvalidTransition ErrorKind = "invalid_transition"
	KindRateLimited       ErrorKind = "rate_limited"
	KindUpstream          ErrorKind = "upstream"
	KindInternal          ErrorKind = "internal"
)

// AppError carries a client-safe message and an optional cause.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func NewValidationError(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: message}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message}
}

func NewConflictError(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

func NewInvalidTransitionError(message string) *AppError {
	return &AppError{Kind: KindInvalidTransition, Message: message}
}

func NewUpstreamError(message string, err error) *AppError {
	return &AppError{Kind: KindUpstream, Message: message, Err: err}
}

func NewInternalError(message string, err error) *AppError {
	return &AppError{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind of err, treating anything that is not an AppError as internal.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error to the status code written by the handlers.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindInvalidTransition:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show to clients.
func PublicMessage(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}
