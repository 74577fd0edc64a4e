package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the HTTP boundary.
type Kind string

const (
	KindAuthRequired        Kind = "AUTH_REQUIRED"
	KindAPIKeyNotConfigured Kind = "API_KEY_NOT_CONFIGURED"
	KindValidation          Kind = "VALIDATION_ERROR"
	KindNotFound            Kind = "RESOURCE_NOT_FOUND"
	KindRemoteRejected      Kind = "REMOTE_REJECTED"
	KindRemoteTransport     Kind = "REMOTE_TRANSPORT_ERROR"
	KindStorage             Kind = "STORAGE_ERROR"
	KindInternalInvariant   Kind = "INTERNAL_INVARIANT"
	KindInternal            Kind = "INTERNAL_ERROR"
)

var statusByKind = map[Kind]int{
	KindAuthRequired:        http.StatusUnauthorized,
	KindAPIKeyNotConfigured: http.StatusUnauthorized,
	KindValidation:          http.StatusBadRequest,
	KindNotFound:            http.StatusNotFound,
	KindRemoteRejected:      http.StatusBadRequest,
	KindRemoteTransport:     http.StatusInternalServerError,
	KindStorage:             http.StatusInternalServerError,
	KindInternalInvariant:   http.StatusInternalServerError,
	KindInternal:            http.StatusInternalServerError,
}

// AppError is an error with a kind and a user-facing message. Details is for
// diagnostics only.
type AppError struct {
	Kind    Kind
	Message string
	Details string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status code for the error's kind.
func (e *AppError) HTTPStatus() int {
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Wrap attaches a cause and copies its text into Details.
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	if err != nil && e.Details == "" {
		e.Details = err.Error()
	}
	return e
}

func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

func AuthRequired() *AppError {
	return New(KindAuthRequired, "authentication required")
}

func APIKeyNotConfigured() *AppError {
	return New(KindAPIKeyNotConfigured, "Nova Poshta API key is not configured. Please set your API key in profile settings.")
}

func Validation(format string, args ...any) *AppError {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

func NotFound(resource string) *AppError {
	return New(KindNotFound, fmt.Sprintf("%s not found", resource))
}

func RemoteRejected(message string) *AppError {
	return New(KindRemoteRejected, message)
}

func RemoteTransport(err error) *AppError {
	return New(KindRemoteTransport, "failed to reach Nova Poshta API").Wrap(err)
}

func Storage(err error) *AppError {
	return New(KindStorage, "storage operation failed").Wrap(err)
}

func InternalInvariant(message string) *AppError {
	return New(KindInternalInvariant, message)
}

func Internal(err error) *AppError {
	return New(KindInternal, "internal server error").Wrap(err)
}

// As returns the AppError in err's chain, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}
