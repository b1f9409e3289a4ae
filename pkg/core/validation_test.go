package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/NERVsystems/arogyajal/pkg/hydration"
)

func TestFieldText(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"42", "42"},
		{float64(30), "30"},
		{70.5, "70.5"},
		{7, "7"},
		{true, "true"},
	}
	for _, tt := range tests {
		if got := FieldText(tt.in); got != tt.want {
			t.Errorf("FieldText(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormValuesFromArgs(t *testing.T) {
	got := FormValuesFromArgs(map[string]any{
		"age":      float64(30),
		"weight":   "70.5",
		"activity": "moderate",
	})
	want := hydration.FormValues{Age: "30", Weight: "70.5", Activity: "moderate"}
	if got != want {
		t.Errorf("FormValuesFromArgs = %+v, want %+v", got, want)
	}
}

func TestFormError(t *testing.T) {
	_, err := hydration.ValidateForm(hydration.FormValues{Age: "0", Weight: "abc"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	mcpErr := FormError(err)
	if mcpErr.Code != string(ErrInvalidAge) {
		t.Errorf("expected %s, got %s", ErrInvalidAge, mcpErr.Code)
	}
	if len(mcpErr.Suggestions) != 4 {
		t.Errorf("expected one suggestion per field, got %v", mcpErr.Suggestions)
	}
	if mcpErr.HTTPStatus() != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", mcpErr.HTTPStatus())
	}

	_, err = hydration.ValidateForm(hydration.FormValues{Age: "30", Weight: "70", Activity: "moderate"})
	if got := FormError(err).Code; got != string(ErrMissingSelection) {
		t.Errorf("expected %s, got %s", ErrMissingSelection, got)
	}

	if got := FormError(errors.New("boom")).Code; got != string(ErrInternalError) {
		t.Errorf("expected %s for plain error, got %s", ErrInternalError, got)
	}
}

func TestValidateQuery(t *testing.T) {
	q, err := ValidateQuery("  is boiling enough?  ")
	if err != nil || q != "is boiling enough?" {
		t.Errorf("ValidateQuery trimmed = %q, %v", q, err)
	}

	_, err = ValidateQuery("   ")
	if got := AsMCPError(err); got == nil || got.Code != string(ErrEmptyParameter) {
		t.Errorf("expected %s, got %v", ErrEmptyParameter, err)
	}

	_, err = ValidateQuery(strings.Repeat("a", MaxQueryLength+1))
	if got := AsMCPError(err); got == nil || got.Code != string(ErrInvalidParameter) {
		t.Errorf("expected %s, got %v", ErrInvalidParameter, err)
	}
}

func TestAsMCPError(t *testing.T) {
	if AsMCPError(nil) != nil {
		t.Error("nil error should map to nil")
	}

	wrapped := fmt.Errorf("advisor: %w", NewError(ErrRateLimit, "slow down"))
	if got := AsMCPError(wrapped); got.Code != string(ErrRateLimit) || got.HTTPStatus() != http.StatusTooManyRequests {
		t.Errorf("unexpected mapping %+v", got)
	}

	byValue := fmt.Errorf("wrap: %w", MCPError{Code: string(ErrServiceTimeout), Message: "late"})
	if got := AsMCPError(byValue); got.HTTPStatus() != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", got.HTTPStatus())
	}
}

func TestServiceError(t *testing.T) {
	tests := []struct {
		status int
		code   ErrorCode
	}{
		{http.StatusTooManyRequests, ErrRateLimit},
		{http.StatusGatewayTimeout, ErrServiceTimeout},
		{http.StatusBadRequest, ErrUpstreamError},
		{http.StatusForbidden, ErrServiceUnavailable},
		{http.StatusInternalServerError, ErrInternalError},
		{http.StatusTeapot, ErrServiceUnavailable},
	}
	for _, tt := range tests {
		err := ServiceError("Gemini", tt.status, "x")
		if err.Code != string(tt.code) {
			t.Errorf("ServiceError(%d) code = %s, want %s", tt.status, err.Code, tt.code)
		}
		if !strings.HasPrefix(err.Message, "Gemini service error") {
			t.Errorf("unexpected message %q", err.Message)
		}
	}
}
