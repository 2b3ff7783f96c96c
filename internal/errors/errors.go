package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies an APIError. Every failure leaving the core carries one.
type Kind string

const (
	KindValidation Kind = "VALIDATION_ERROR"
	KindBadRequest Kind = "BAD_REQUEST"
	KindConflict   Kind = "CONFLICT"
	KindAuth       Kind = "AUTH_ERROR"
	KindForbidden  Kind = "FORBIDDEN"
	KindNotFound   Kind = "NOT_FOUND"
	KindUnexpected Kind = "UNEXPECTED_ERROR"
)

// Error codes
const (
	// Authentication errors
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeInvalidToken       = "INVALID_TOKEN"

	// Authorization errors
	ErrCodeForbidden               = "FORBIDDEN"
	ErrCodeNoActiveTenant          = "NO_ACTIVE_TENANT"
	ErrCodeNotTenantMember         = "NOT_TENANT_MEMBER"
	ErrCodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"

	// Validation errors
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeInvalidFormat = "INVALID_FORMAT"

	// Resource errors
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"

	// Business logic errors
	ErrCodeInvalidOperation = "INVALID_OPERATION"

	// Service errors
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// APIError represents a classified error and its client-facing payload.
type APIError struct {
	Kind    Kind                `json:"-"`
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"errors,omitempty"`
	Details interface{}         `json:"details,omitempty"`

	cause error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// Status returns the HTTP status code for the error's kind.
func (e *APIError) Status() int {
	return StatusFor(e.Kind)
}

// WithDetails returns a copy of e carrying details.
func (e *APIError) WithDetails(details interface{}) *APIError {
	cp := *e
	cp.Details = details
	return &cp
}

// StatusFor maps a kind to its HTTP status code.
func StatusFor(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindBadRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// NewAPIError creates a new APIError
func NewAPIError(kind Kind, code, message string) *APIError {
	return &APIError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// Validation builds a field-level validation error.
func Validation(message string, fields map[string][]string) *APIError {
	if message == "" {
		message = "Validation failed"
	}
	return &APIError{Kind: KindValidation, Code: ErrCodeInvalidInput, Message: message, Fields: fields}
}

// FieldError is a shorthand for a validation error on a single field.
func FieldError(field, message string) *APIError {
	return Validation(message, map[string][]string{field: {message}})
}

func BadRequest(message string) *APIError {
	if message == "" {
		message = "Invalid request"
	}
	return NewAPIError(KindBadRequest, ErrCodeInvalidFormat, message)
}

func Conflict(message string) *APIError {
	if message == "" {
		message = "Resource conflict"
	}
	return NewAPIError(KindConflict, ErrCodeAlreadyExists, message)
}

func Auth(code, message string) *APIError {
	if message == "" {
		message = "Authentication required"
	}
	return NewAPIError(KindAuth, code, message)
}

func Forbidden(code, message string) *APIError {
	if message == "" {
		message = "Access denied"
	}
	return NewAPIError(KindForbidden, code, message)
}

func NotFound(message string) *APIError {
	if message == "" {
		message = "Resource not found"
	}
	return NewAPIError(KindNotFound, ErrCodeNotFound, message)
}

// Unexpected wraps an internal failure. The cause is logged, never returned to clients.
func Unexpected(cause error) *APIError {
	return &APIError{
		Kind:    KindUnexpected,
		Code:    ErrCodeInternalError,
		Message: "Internal server error",
		cause:   cause,
	}
}

// Predefined errors
var (
	ErrUnauthorized   = Auth(ErrCodeUnauthorized, "Authentication required")
	ErrInvalidToken   = Auth(ErrCodeInvalidToken, "Invalid or expired token")
	ErrNoActiveTenant = Forbidden(ErrCodeNoActiveTenant, "No active tenant. Select an organization first")
	ErrNotMember      = Forbidden(ErrCodeNotTenantMember, "You do not have access to this organization")
	ErrAdminRequired  = Forbidden(ErrCodeInsufficientPermissions, "Only administrators can perform this action")
	ErrInvalidBody    = BadRequest("Invalid request body")
)

// As extracts an *APIError from err.
func As(err error) (*APIError, bool) {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindUnexpected for unclassified errors.
func KindOf(err error) Kind {
	if apiErr, ok := As(err); ok {
		return apiErr.Kind
	}
	return KindUnexpected
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
