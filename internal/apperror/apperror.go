package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. Services wrap these (via the
// constructors below) and handlers translate them to HTTP status codes with
// errors.Is — nothing outside the handler layer knows about status codes.
var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrUnverifiedEmail   = errors.New("unverified email")
	ErrInvalidSession    = errors.New("invalid session")
	ErrSchema            = errors.New("schema error")
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation error")
	ErrConflict          = errors.New("conflict")
)

type AppError struct {
	Err     error  // sentinel the error wraps
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// InvalidCredential marks an identity assertion that failed verification:
// bad signature, expired, wrong audience, or malformed.
func InvalidCredential(message string) *AppError {
	return &AppError{
		Err:     ErrInvalidCredential,
		Message: message,
	}
}

// UnverifiedEmail marks an assertion that verified cryptographically but
// whose email the issuer has not confirmed. Policy: treated like a failed
// verification, login refused.
func UnverifiedEmail(email string) *AppError {
	return &AppError{
		Err:     ErrUnverifiedEmail,
		Message: fmt.Sprintf("email %s is not verified by the identity provider", email),
	}
}

// InvalidSession marks a missing, expired or forged session token.
func InvalidSession(message string) *AppError {
	return &AppError{
		Err:     ErrInvalidSession,
		Message: message,
	}
}

// Schema marks a storage schema that cannot satisfy a required operation,
// e.g. mandatory columns missing or a policy-required value absent.
func Schema(message string) *AppError {
	return &AppError{
		Err:     ErrSchema,
		Message: message,
	}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}
