package util

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes surfaced by the lifecycle engine and auth flows.
const (
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodePermissionDenied  = "PERMISSION_DENIED"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeTicketClosed      = "TICKET_CLOSED"
	CodeUnknownField      = "UNKNOWN_FIELD"
	CodeNotFound          = "NOT_FOUND"
	CodeAuthFailed        = "AUTH_FAILED"
	CodeFileTooLarge      = "FILE_TOO_LARGE"
	CodeStoreUnavailable  = "STORE_UNAVAILABLE"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInternal          = "INTERNAL_ERROR"
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

// NewValidationError reports an invalid or missing field by name.
func NewValidationError(field, reason string) error {
	return NewDomainError(CodeValidationFailed, fmt.Sprintf("invalid field %s: %s", field, reason), http.StatusBadRequest, map[string]any{
		"field":  field,
		"reason": reason,
	})
}

// NewPermissionDenied reports a field or action the caller may not touch.
func NewPermissionDenied(subject string) error {
	return NewDomainError(CodePermissionDenied, fmt.Sprintf("permission denied: %s", subject), http.StatusForbidden, map[string]any{
		"subject": subject,
	})
}

// NewInvalidTransition reports a status change outside the transition table.
func NewInvalidTransition(from, to string) error {
	return NewDomainError(CodeInvalidTransition, fmt.Sprintf("cannot transition from %s to %s", from, to), http.StatusConflict, map[string]any{
		"from": from,
		"to":   to,
	})
}

// NewTicketClosed reports a mutation against a terminal ticket.
func NewTicketClosed(ticketID string) error {
	return NewDomainError(CodeTicketClosed, "ticket is closed", http.StatusConflict, map[string]any{
		"ticket_id": ticketID,
	})
}

// NewUnknownField reports a field name the ticket model does not have.
func NewUnknownField(name string) error {
	return NewDomainError(CodeUnknownField, fmt.Sprintf("unknown field %s", name), http.StatusBadRequest, map[string]any{
		"field": name,
	})
}

// NewNotFound reports a missing resource.
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

// NewAuthError reports a failed signup or login with a stable reason tag.
func NewAuthError(reason string) error {
	return NewDomainError(CodeAuthFailed, fmt.Sprintf("authentication failed: %s", reason), http.StatusUnauthorized, map[string]any{
		"reason": reason,
	})
}

// NewFileTooLarge reports an upload exceeding the configured limit.
func NewFileTooLarge(limit int64) error {
	return NewDomainError(CodeFileTooLarge, "file exceeds size limit", http.StatusRequestEntityTooLarge, map[string]any{
		"limit_bytes": limit,
	})
}

// NewStoreUnavailable wraps a store-level failure without retrying it.
func NewStoreUnavailable(err error) error {
	return &DomainError{
		Code:       CodeStoreUnavailable,
		Message:    "ticket store unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err is a DomainError carrying the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
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
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		if de, ok := NewStoreUnavailable(err).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	return ToDomainError(err)
}
