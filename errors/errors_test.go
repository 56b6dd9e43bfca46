package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestNew_RetryableDetection(t *testing.T) {
	tests := []struct {
		code      ErrorCode
		retryable bool
	}{
		{ErrCodeServiceUnavailable, true},
		{ErrCodeConnectionFailed, true},
		{ErrCodeTimeout, true},
		{ErrCodeNotFound, false},
		{ErrCodeQuotaExceeded, false},
		{ErrCodeDatabaseError, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code, "msg", http.StatusBadRequest)
			if err.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", err.Retryable, tt.retryable)
			}
		})
	}
}

func TestQuotaExceeded(t *testing.T) {
	err := QuotaExceeded(30, 45)
	if err.HTTPStatus != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", err.HTTPStatus)
	}
	if !strings.Contains(err.Message, "30") || !strings.Contains(err.Message, "45") {
		t.Errorf("message should cite remaining and required, got %q", err.Message)
	}
	if err.Details["remaining"] != int64(30) {
		t.Errorf("expected remaining=30, got %v", err.Details["remaining"])
	}
}

func TestNotFound_EmptyID(t *testing.T) {
	err := NotFound("task", "")
	if _, ok := err.Details["id"]; ok {
		t.Error("expected no 'id' key in details when id is empty")
	}
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected 404, got %d", err.HTTPStatus)
	}
}

func TestAuthErrors_DefaultMessages(t *testing.T) {
	if got := Unauthorized("").HTTPStatus; got != http.StatusUnauthorized {
		t.Errorf("Unauthorized status = %d", got)
	}
	if got := Forbidden("").Message; got != "invalid token" {
		t.Errorf("Forbidden message = %q", got)
	}
}

func TestToResponse(t *testing.T) {
	t.Run("client error keeps message", func(t *testing.T) {
		resp := Validation("bad page").ToResponse()
		if resp.Error != "bad page" {
			t.Errorf("got %q", resp.Error)
		}
	})
	t.Run("internal error appends cause", func(t *testing.T) {
		resp := Internal(fmt.Errorf("disk full")).ToResponse()
		if !strings.HasSuffix(resp.Error, ": disk full") {
			t.Errorf("got %q", resp.Error)
		}
	})
}

func TestAsAppError_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NotFound("task", "t1"))
	appErr, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AsAppError to unwrap")
	}
	if appErr.Code != ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %s", appErr.Code)
	}
	if !IsCode(wrapped, ErrCodeNotFound) {
		t.Error("IsCode should match wrapped code")
	}
}

func TestFrom(t *testing.T) {
	if From(nil) != nil {
		t.Error("From(nil) should be nil")
	}
	plain := stderrors.New("boom")
	got := From(plain)
	if got.Code != ErrCodeInternal || !stderrors.Is(got, plain) {
		t.Errorf("expected internal wrapping boom, got %v", got)
	}
}
