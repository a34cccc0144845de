package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Connection errors (1xxx)
	ErrCodeConnectionFailed     ErrorCode = "MADT1001"
	ErrCodeConnectionTimeout    ErrorCode = "MADT1002"
	ErrCodeAuthenticationFailed ErrorCode = "MADT1003"

	// Configuration errors (2xxx)
	ErrCodeConfigNotFound ErrorCode = "MADT2001"
	ErrCodeConfigInvalid  ErrorCode = "MADT2002"
	ErrCodeConfigMissing  ErrorCode = "MADT2003"

	// Model source errors (3xxx)
	ErrCodeModelNotFound     ErrorCode = "MADT3001"
	ErrCodeModelInvalid      ErrorCode = "MADT3002"
	ErrCodeModelsPathMissing ErrorCode = "MADT3003"

	// Warehouse query errors (4xxx)
	ErrCodeQueryExecution      ErrorCode = "MADT4001"
	ErrCodeQueryTimeout        ErrorCode = "MADT4002"
	ErrCodeQueryPermission     ErrorCode = "MADT4003"
	ErrCodeMetadataUnavailable ErrorCode = "MADT4004"

	// Check generation errors (5xxx)
	ErrCodeGenerationFailed  ErrorCode = "MADT5001"
	ErrCodeMalformedResponse ErrorCode = "MADT5002"
	ErrCodeInvalidCheckSpec  ErrorCode = "MADT5003"

	// Validation errors (6xxx)
	ErrCodeValidationFailed ErrorCode = "MADT6001"
	ErrCodeInvalidInput     ErrorCode = "MADT6002"
	ErrCodeRequiredField    ErrorCode = "MADT6003"

	// Report errors (7xxx)
	ErrCodeReportWrite ErrorCode = "MADT7001"

	// System errors (9xxx)
	ErrCodeInternal ErrorCode = "MADT9001"
	ErrCodeTimeout  ErrorCode = "MADT9002"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL" // System failure, requires immediate attention
	SeverityError    ErrorSeverity = "ERROR"    // Operation failed, but system continues
	SeverityWarning  ErrorSeverity = "WARNING"  // Operation succeeded with issues
	SeverityInfo     ErrorSeverity = "INFO"     // Informational, not an error
)

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Stack       string
	Timestamp   time.Time
	Recoverable bool
	Suggestions []string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\nCaused by: %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:        code,
		Message:     message,
		Severity:    SeverityError,
		Context:     make(map[string]interface{}),
		Stack:       captureStack(),
		Timestamp:   time.Now(),
		Recoverable: false,
	}
}

// Wrap wraps an existing error with AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	// If wrapping another AppError, inherit some properties
	if ae, ok := err.(*AppError); ok {
		for k, v := range ae.Context {
			appErr.Context[k] = v
		}
	}

	return appErr
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// WithSuggestions adds recovery suggestions
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// AsRecoverable marks the error as recoverable
func (e *AppError) AsRecoverable() *AppError {
	e.Recoverable = true
	return e
}

// captureStack captures the current stack trace
func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			b.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return b.String()
}

// Common error constructors

// ConnectionError creates a warehouse connection error
func ConnectionError(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeConnectionFailed, message).
		WithSeverity(SeverityError).
		WithSuggestions(
			"Check your network connection",
			"Verify the warehouse endpoint is accessible",
			"Check firewall settings",
		)
}

// ConfigError creates a configuration-related error
func ConfigError(message string, field string) *AppError {
	return New(ErrCodeConfigInvalid, message).
		WithContext("field", field).
		WithSuggestions(
			fmt.Sprintf("Check the '%s' configuration value", field),
			"Refer to the configuration documentation",
		)
}

// QueryError creates a warehouse query execution error
func QueryError(message string, query string, cause error) *AppError {
	err := Wrap(cause, ErrCodeQueryExecution, message).
		WithContext("query", truncateString(query, 200))

	causeStr := ""
	if cause != nil {
		causeStr = cause.Error()
	}
	if strings.Contains(causeStr, "permission") || strings.Contains(causeStr, "access denied") {
		err.Code = ErrCodeQueryPermission
		_ = err.WithSuggestions(
			"Check user permissions in the warehouse",
			"Verify the user has SELECT privileges on the audited schema",
		)
	} else if strings.Contains(causeStr, "timeout") || strings.Contains(causeStr, "canceling statement") {
		err.Code = ErrCodeQueryTimeout
		_ = err.WithSuggestions(
			"Optimize the query for better performance",
			"Increase the query timeout setting",
		)
	}

	return err
}

// GenerationError creates a check generation error
func GenerationError(message string, cause error) *AppError {
	if cause == nil {
		return New(ErrCodeGenerationFailed, message)
	}
	return Wrap(cause, ErrCodeGenerationFailed, message)
}

// ValidationError creates a validation error
func ValidationError(field string, value interface{}, reason string) *AppError {
	return New(ErrCodeValidationFailed, fmt.Sprintf("Validation failed for %s: %s", field, reason)).
		WithContext("field", field).
		WithContext("value", value).
		WithSeverity(SeverityWarning).
		AsRecoverable()
}

// IsRecoverable checks if an error is recoverable
func IsRecoverable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Recoverable
	}
	return false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// truncateString truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
