package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes shared by the chat surface and the admin API.
const (
	CodeValidation         = "VALIDATION_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodePlatform           = "PLATFORM_ERROR"
	CodeInvariantViolation = "INVARIANT_VIOLATION"
	CodePersistence        = "PERSISTENCE_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
	CodeTimeout            = "TIMEOUT"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

// NewTimeout reports a deadline that expired before the work finished.
func NewTimeout(message string, err error) error {
	return &DomainError{Code: CodeTimeout, Message: message, HTTPStatus: http.StatusGatewayTimeout, Err: err}
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewPlatformError wraps a failed chat-platform call. These are never retried
// automatically; the user is told and may retry by hand.
func NewPlatformError(operation string, err error) error {
	return &DomainError{
		Code:       CodePlatform,
		Message:    fmt.Sprintf("chat platform call failed: %s", operation),
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"operation": operation},
		Err:        err,
	}
}

func NewInvariantViolation(message string, details map[string]any) error {
	return NewDomainError(CodeInvariantViolation, message, http.StatusConflict, details)
}

// NewPersistenceError reports a failed durable write. In-memory state has
// already been updated when this is returned.
func NewPersistenceError(err error) error {
	return &DomainError{
		Code:       CodePersistence,
		Message:    "failed to persist ticket data",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// IsCode reports whether err maps to a DomainError with the given code.
func IsCode(err error, code string) bool {
	de := ToDomainError(err)
	return de != nil && de.Code == code
}

// UserMessage renders err as the short text shown to the user who triggered
// the failing action.
func UserMessage(err error) string {
	de := ToDomainError(err)
	if de == nil {
		return ""
	}
	switch de.Code {
	case CodeInternal:
		return "❌ Something went wrong. Please try again."
	case CodePersistence:
		return "⚠️ The action completed but could not be saved. It will be saved with the next change."
	default:
		return "❌ " + de.Message
	}
}
