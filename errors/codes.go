package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Availability errors (retryable)
const (
	// ErrCodeServiceUnavailable indicates a dependency is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeConnectionFailed indicates a failed connection to a dependency.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Resource errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeAlreadyExists indicates the resource already exists.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
)

// Validation errors
const (
	// ErrCodeValidation indicates the request failed validation.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrCodeUnsupportedFormat indicates an audio or artifact format outside the allow-list.
	ErrCodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	// ErrCodeQuotaExceeded indicates the account's remaining time budget is too small.
	ErrCodeQuotaExceeded ErrorCode = "QUOTA_EXCEEDED"
	// ErrCodeDurationUnavailable indicates the audio duration could not be determined.
	ErrCodeDurationUnavailable ErrorCode = "DURATION_UNAVAILABLE"
)

// Authentication errors
const (
	// ErrCodeUnauthorized indicates the request carries no credential.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeForbidden indicates the credential is not valid.
	ErrCodeForbidden ErrorCode = "FORBIDDEN"
)

// Processing errors
const (
	// ErrCodeEngineFailure indicates the transcription engine failed.
	ErrCodeEngineFailure ErrorCode = "ENGINE_FAILURE"
	// ErrCodeSegmentFormat indicates the engine produced a malformed segment.
	ErrCodeSegmentFormat ErrorCode = "SEGMENT_FORMAT"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeDatabaseError indicates a database error.
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeConnectionFailed:   true,
	ErrCodeTimeout:            true,
}

// IsRetryableCode reports whether errors with the given code may be retried.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
