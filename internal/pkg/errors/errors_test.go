package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := New(CodeValidation, "bad input")
	want := "VALIDATION_ERROR: bad input"
	if err.Error() != want {
		t.Errorf("Error() = %s, want %s", err.Error(), want)
	}

	wrapped := Wrap(CodeInternal, "something broke", errors.New("root cause"))
	want = "INTERNAL_ERROR: something broke: root cause"
	if wrapped.Error() != want {
		t.Errorf("Error() = %s, want %s", wrapped.Error(), want)
	}
}

func TestAppError_Unwrap(t *testing.T) {
	root := errors.New("root cause")
	wrapped := Wrap(CodeInternal, "outer", root)

	if !errors.Is(wrapped, root) {
		t.Error("expected errors.Is to find root cause")
	}
}

func TestAppError_HTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeInvalidRequest, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeConnectivity, http.StatusServiceUnavailable},
		{CodeTimeout, http.StatusGatewayTimeout},
		{CodeInternal, http.StatusInternalServerError},
		{CodeGeneration, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := New(tt.code, "msg").HTTPStatus()
			if got != tt.want {
				t.Errorf("HTTPStatus(%s) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestClassifyExecution(t *testing.T) {
	tests := []struct {
		reason string
		want   string
	}{
		{`column "Raid_Points" does not exist`, CodeSchema},
		{"no such column: raider_name", CodeSchema},
		{"no such table: s_rbr", CodeSchema},
		{"syntax error near SELECT", CodeSyntax},
		{"incomplete input", CodeSyntax},
		{"connection refused", CodeConnectivity},
		{"dial tcp: i/o timeout", CodeConnectivity},
		{"database is locked", CodeConnectivity},
		{"something unexpected", CodeExecution},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			got := ClassifyExecution(fmt.Errorf("%s", tt.reason))
			if got != tt.want {
				t.Errorf("ClassifyExecution(%q) = %s, want %s", tt.reason, got, tt.want)
			}
		})
	}

	if got := ClassifyExecution(nil); got != CodeExecution {
		t.Errorf("ClassifyExecution(nil) = %s, want %s", got, CodeExecution)
	}
}

func TestWithDetail(t *testing.T) {
	err := RateLimitedError(5)
	if err.Details["retry_after"] != "5" {
		t.Errorf("retry_after = %s, want 5", err.Details["retry_after"])
	}
}
