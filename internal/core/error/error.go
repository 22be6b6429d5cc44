package errx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// BillingErrorMessage describes a rejected billing request.
	BillingErrorMessage = "billing request rejected"
	// ExternalErrorMessage describes a failed call to a collaborator service.
	ExternalErrorMessage = "external service unavailable"
	// SessionErrorMessage describes a session whose invariants no longer hold.
	SessionErrorMessage = "session state invalid"
)

// ErrExternalServiceUnavailable marks transport, generation or telemetry I/O failures.
var ErrExternalServiceUnavailable = errors.New("external service unavailable")

// AppError wraps an underlying error with an HTTP-like status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// WrapRedis maps Redis errors to AppError with a consistent status code and message.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return New(err, http.StatusNotFound, RedisNotFoundMessage)
	}
	return New(err, http.StatusBadGateway, RedisErrorMessage)
}

// WrapBilling marks a deterministic billing failure (bad units, unknown class, expired schedule).
func WrapBilling(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusUnprocessableEntity, BillingErrorMessage)
}

// WrapExternal marks a collaborator I/O failure. The result matches
// ErrExternalServiceUnavailable under errors.Is.
func WrapExternal(service string, err error) error {
	if err == nil {
		return nil
	}
	return New(fmt.Errorf("%s: %w: %w", service, ErrExternalServiceUnavailable, err), http.StatusBadGateway, ExternalErrorMessage)
}

// WrapSession marks a session invariant violation.
func WrapSession(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusConflict, SessionErrorMessage)
}

// StatusOf returns the status carried by the first AppError in the chain, or 500.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
