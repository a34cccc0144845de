package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestAppError(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "basic error",
			err:      New(ErrCodeConnectionFailed, "Connection failed"),
			expected: "[MADT1001] ERROR: Connection failed",
		},
		{
			name: "error with suggestions",
			err: New(ErrCodeConnectionFailed, "Connection failed").
				WithSuggestions("Check network", "Verify credentials"),
			expected: "[MADT1001] ERROR: Connection failed\nSuggestions:\n  1. Check network\n  2. Verify credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestErrorWrapping(t *testing.T) {
	baseErr := fmt.Errorf("connection refused")

	appErr := Wrap(baseErr, ErrCodeConnectionFailed, "Failed to connect to warehouse")

	if appErr.Cause != baseErr {
		t.Error("Wrapped error should contain original error as cause")
	}

	if appErr.Code != ErrCodeConnectionFailed {
		t.Errorf("Expected code %s, got %s", ErrCodeConnectionFailed, appErr.Code)
	}

	if !errors.Is(appErr, baseErr) {
		t.Error("errors.Is should match the wrapped cause")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, ErrCodeInternal, "ignored") != nil {
		t.Error("Wrapping nil should return nil")
	}
}

func TestWrapInheritsContext(t *testing.T) {
	inner := New(ErrCodeQueryExecution, "query failed").WithContext("table", "orders")
	outer := Wrap(inner, ErrCodeMetadataUnavailable, "stats unavailable")

	if outer.Context["table"] != "orders" {
		t.Error("Wrapped AppError should inherit context from cause")
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{name: "app error", err: New(ErrCodeGenerationFailed, "x"), want: ErrCodeGenerationFailed},
		{name: "wrapped app error", err: fmt.Errorf("outer: %w", New(ErrCodeMalformedResponse, "x")), want: ErrCodeMalformedResponse},
		{name: "plain error", err: fmt.Errorf("plain"), want: ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorCode(tt.err); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestQueryErrorClassification(t *testing.T) {
	tests := []struct {
		name  string
		cause error
		want  ErrorCode
	}{
		{name: "generic failure", cause: fmt.Errorf("syntax error"), want: ErrCodeQueryExecution},
		{name: "permission failure", cause: fmt.Errorf("permission denied for relation orders"), want: ErrCodeQueryPermission},
		{name: "timeout", cause: fmt.Errorf("canceling statement due to statement timeout"), want: ErrCodeQueryTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := QueryError("Failed to execute query", "SELECT 1", tt.cause)
			if err.Code != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, err.Code)
			}
		})
	}
}

func TestQueryErrorTruncatesQuery(t *testing.T) {
	longQuery := strings.Repeat("SELECT ", 100)
	err := QueryError("Failed to execute query", longQuery, fmt.Errorf("boom"))

	stored, ok := err.Context["query"].(string)
	if !ok {
		t.Fatal("query context should be a string")
	}
	if len(stored) > 203 {
		t.Errorf("Expected truncated query, got %d characters", len(stored))
	}
	if !strings.HasSuffix(stored, "...") {
		t.Error("Truncated query should end with ellipsis")
	}
}

func TestIsRecoverable(t *testing.T) {
	if IsRecoverable(fmt.Errorf("plain")) {
		t.Error("Plain errors are not recoverable")
	}
	if !IsRecoverable(ValidationError("field", "value", "bad")) {
		t.Error("Validation errors are recoverable")
	}
}
