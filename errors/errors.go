package errors

import (
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Availability ---

// ServiceUnavailable reports a dependency that is temporarily unavailable.
func ServiceUnavailable(service string) *AppError {
	return &AppError{
		Code: ErrCodeServiceUnavailable, Message: fmt.Sprintf("the %s is temporarily unavailable, please try again", service),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"service": service},
	}
}

// ConnectionFailed reports a failed connection to a dependency.
func ConnectionFailed(service string) *AppError {
	return &AppError{
		Code: ErrCodeConnectionFailed, Message: fmt.Sprintf("unable to connect to %s", service),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"service": service},
	}
}

// Timeout reports an operation that took too long.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("%s timed out", operation),
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// --- Resources ---

// NotFound reports a resource that does not exist or is not visible to the caller.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound, Details: details,
	}
}

// AlreadyExists reports a uniqueness violation. Registration surfaces it as a 400.
func AlreadyExists(resource string) *AppError {
	return &AppError{
		Code: ErrCodeAlreadyExists, Message: fmt.Sprintf("%s already exists", resource),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"resource": resource},
	}
}

// --- Validation ---

// Validation reports a request that failed validation.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeValidation, Message: message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// MissingField reports a required field that was not supplied.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("%s is required", field),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"field": field},
	}
}

// UnsupportedFormat reports a value outside an allow-list.
func UnsupportedFormat(what, value string) *AppError {
	return &AppError{
		Code: ErrCodeUnsupportedFormat, Message: fmt.Sprintf("unsupported %s: %s", what, value),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{what: value},
	}
}

// QuotaExceeded reports that the required seconds exceed the remaining budget.
func QuotaExceeded(remaining, required int64) *AppError {
	return &AppError{
		Code:       ErrCodeQuotaExceeded,
		Message:    fmt.Sprintf("insufficient time: remaining %d sec, required %d sec", remaining, required),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"remaining": remaining, "required": required},
	}
}

// DurationUnavailable reports audio whose duration could not be probed.
func DurationUnavailable(file string) *AppError {
	return &AppError{
		Code: ErrCodeDurationUnavailable, Message: fmt.Sprintf("could not determine duration of %s", file),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"file": file},
	}
}

// --- Auth ---

// Unauthorized reports a request without a credential.
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "authorization token is missing"
	}
	return &AppError{Code: ErrCodeUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized}
}

// Forbidden reports a credential that is not accepted.
func Forbidden(message string) *AppError {
	if message == "" {
		message = "invalid token"
	}
	return &AppError{Code: ErrCodeForbidden, Message: message, HTTPStatus: http.StatusForbidden}
}

// --- Processing ---

// EngineFailure wraps an error raised while transcribing a task.
func EngineFailure(cause error) *AppError {
	return &AppError{
		Code: ErrCodeEngineFailure, Message: "transcription failed",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}

// SegmentFormat wraps a malformed engine segment.
func SegmentFormat(cause error) *AppError {
	return &AppError{
		Code: ErrCodeSegmentFormat, Message: "malformed transcription segment",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}

// --- Internal ---

// Internal wraps an unexpected error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "an unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}

// DatabaseError wraps a persistence failure.
func DatabaseError(cause error) *AppError {
	return &AppError{
		Code: ErrCodeDatabaseError, Message: "a database error occurred",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}
