package errors

import (
	"fmt"
	"net/http"
)

// Kind is the small, fixed vocabulary of error categories the rankings
// engine and its admin API use. It travels with every APIError so RPC
// callers can branch on category without parsing the message.
type Kind string

const (
	KindUnauthenticated  Kind = "unauthenticated"
	KindPermissionDenied Kind = "permission-denied"
	KindInvalidArgument  Kind = "invalid-argument"
	KindNotFound         Kind = "not-found"
	KindDeadlineExceeded Kind = "deadline-exceeded"
	KindInternal         Kind = "internal"
)

var kindStatus = map[Kind]int{
	KindUnauthenticated:  http.StatusUnauthorized,
	KindPermissionDenied: http.StatusForbidden,
	KindInvalidArgument:  http.StatusBadRequest,
	KindNotFound:         http.StatusNotFound,
	KindDeadlineExceeded: http.StatusGatewayTimeout,
	KindInternal:         http.StatusInternalServerError,
}

// APIError represents an API error with status code, message, and kind.
type APIError struct {
	Code    int    `json:"code"`
	Kind    Kind   `json:"kind,omitempty"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e APIError) Error() string {
	return fmt.Sprintf("API Error %d: %s", e.Code, e.Message)
}

// Predefined errors
var (
	ErrNotFound = APIError{
		Code:    http.StatusNotFound,
		Kind:    KindNotFound,
		Message: "Resource not found",
	}

	ErrBadRequest = APIError{
		Code:    http.StatusBadRequest,
		Kind:    KindInvalidArgument,
		Message: "Bad request",
	}

	ErrInternalServer = APIError{
		Code:    http.StatusInternalServerError,
		Kind:    KindInternal,
		Message: "Internal server error",
	}

	ErrUnauthorized = APIError{
		Code:    http.StatusUnauthorized,
		Kind:    KindUnauthenticated,
		Message: "Unauthorized",
	}

	ErrForbidden = APIError{
		Code:    http.StatusForbidden,
		Kind:    KindPermissionDenied,
		Message: "Forbidden",
	}
)

// NewAPIError creates a new API error of the given kind. Its HTTP code is
// derived from kind; a kind with no mapped status gets 500.
func NewAPIError(kind Kind, message string, details ...string) APIError {
	code, ok := kindStatus[kind]
	if !ok {
		code = http.StatusInternalServerError
	}
	err := APIError{
		Code:    code,
		Kind:    kind,
		Message: message,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// NewNotFoundError creates a not-found error for the named resource.
func NewNotFoundError(resource string) APIError {
	return NewAPIError(KindNotFound, fmt.Sprintf("%s not found", resource))
}

// NewBadRequestError creates an invalid-argument error.
func NewBadRequestError(message string) APIError {
	return NewAPIError(KindInvalidArgument, message)
}

// NewInternalServerError creates an internal error. details is never
// surfaced verbatim to untrusted callers; it is for the server log /
// CalculationState error record only.
func NewInternalServerError(details string) APIError {
	return NewAPIError(KindInternal, "Internal server error", details)
}

// NewUnauthenticatedError creates an unauthenticated error.
func NewUnauthenticatedError(message string) APIError {
	return NewAPIError(KindUnauthenticated, message)
}

// NewPermissionDeniedError creates a permission-denied error.
func NewPermissionDeniedError(message string) APIError {
	return NewAPIError(KindPermissionDenied, message)
}

// NewDeadlineExceededError creates a deadline-exceeded error.
func NewDeadlineExceededError(message string) APIError {
	return NewAPIError(KindDeadlineExceeded, message)
}
