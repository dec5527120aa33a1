package errx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "Internal Server Error"
	// SignatureErrorMessage is returned when a webhook fails signature verification.
	SignatureErrorMessage = "Invalid signature"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
)

// Sentinel kinds. Callers match them with errors.Is.
var (
	ErrSignatureInvalid   = errors.New("webhook signature invalid")
	ErrProviderCallFailed = errors.New("llm provider call failed")
	ErrUnknownFunction    = errors.New("unknown function")
	ErrDateMissing        = errors.New("date argument missing")
	ErrDateInvalid        = errors.New("date argument invalid")
)

// AppError wraps an underlying error with an HTTP status and safe message.
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

// Signature marks err as a webhook authentication failure.
func Signature(err error) *AppError {
	if err == nil {
		err = ErrSignatureInvalid
	} else if !errors.Is(err, ErrSignatureInvalid) {
		err = fmt.Errorf("%w: %w", ErrSignatureInvalid, err)
	}
	return New(err, http.StatusBadRequest, SignatureErrorMessage)
}

// Provider marks err as a failed LLM call on the given turn.
func Provider(turn string, err error) error {
	return fmt.Errorf("%s: %w: %w", turn, ErrProviderCallFailed, err)
}

// WrapRedis maps Redis errors to AppError with appropriate status codes.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return New(err, http.StatusNotFound, RedisNotFoundMessage)
	}
	return New(err, http.StatusBadGateway, RedisErrorMessage)
}

// StatusOf resolves the HTTP status and safe message for err.
// Anything that is not an AppError is a handler fault.
func StatusOf(err error) (int, string) {
	if err == nil {
		return http.StatusOK, "OK"
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status == http.StatusBadRequest {
		return appErr.Status, appErr.Message
	}
	if errors.Is(err, ErrSignatureInvalid) {
		return http.StatusBadRequest, SignatureErrorMessage
	}
	return http.StatusInternalServerError, SystemErrorMessage
}
