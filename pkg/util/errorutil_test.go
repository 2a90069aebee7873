package util

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestHasCode(t *testing.T) {
	err := NewInvalidTransition("new", "resolved")
	if !HasCode(err, CodeInvalidTransition) {
		t.Fatalf("expected %s", CodeInvalidTransition)
	}
	if HasCode(err, CodeNotFound) {
		t.Fatalf("unexpected code match")
	}
	if HasCode(errors.New("plain"), CodeInternal) {
		t.Fatalf("plain error should carry no code")
	}

	wrapped := fmt.Errorf("while updating: %w", err)
	if !HasCode(wrapped, CodeInvalidTransition) {
		t.Fatalf("wrapped domain error lost its code")
	}
}

func TestConstructorStatusCodes(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{NewValidationError("title", "required"), CodeValidationFailed, http.StatusBadRequest},
		{NewPermissionDenied("status"), CodePermissionDenied, http.StatusForbidden},
		{NewInvalidTransition("closed", "new"), CodeInvalidTransition, http.StatusConflict},
		{NewTicketClosed("t001"), CodeTicketClosed, http.StatusConflict},
		{NewUnknownField("favouriteColor"), CodeUnknownField, http.StatusBadRequest},
		{NewNotFound("ticket", nil), CodeNotFound, http.StatusNotFound},
		{NewAuthError("invalid-credentials"), CodeAuthFailed, http.StatusUnauthorized},
		{NewFileTooLarge(1024), CodeFileTooLarge, http.StatusRequestEntityTooLarge},
		{NewStoreUnavailable(errors.New("down")), CodeStoreUnavailable, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			domainErr := ToDomainError(tc.err)
			if domainErr.Code != tc.code {
				t.Fatalf("code = %s, want %s", domainErr.Code, tc.code)
			}
			if domainErr.HTTPStatus != tc.status {
				t.Fatalf("status = %d, want %d", domainErr.HTTPStatus, tc.status)
			}
		})
	}
}

func TestToDomainErrorMapping(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		if ToDomainError(nil) != nil {
			t.Fatalf("expected nil")
		}
	})

	t.Run("missing row becomes not found", func(t *testing.T) {
		domainErr := ToDomainError(fmt.Errorf("query: %w", pgx.ErrNoRows))
		if domainErr.Code != CodeNotFound {
			t.Fatalf("expected %s, got %s", CodeNotFound, domainErr.Code)
		}
	})

	t.Run("deadline becomes store unavailable", func(t *testing.T) {
		domainErr := ToDomainError(fmt.Errorf("query: %w", context.DeadlineExceeded))
		if domainErr.Code != CodeStoreUnavailable {
			t.Fatalf("expected %s, got %s", CodeStoreUnavailable, domainErr.Code)
		}
	})

	t.Run("anything else is internal", func(t *testing.T) {
		domainErr := ToDomainError(errors.New("boom"))
		if domainErr.Code != CodeInternal {
			t.Fatalf("expected %s, got %s", CodeInternal, domainErr.Code)
		}
	})

	t.Run("domain error passes through", func(t *testing.T) {
		original := NewTicketClosed("t001")
		if ToDomainError(original).Code != CodeTicketClosed {
			t.Fatalf("domain error remapped")
		}
	})
}
