package errors

import (
	stderrors "errors"
	"net/http"
)

// ErrorResponse is the JSON body returned to clients for every failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ToResponse converts an AppError to its client representation. Internal
// errors keep the generic message and append the cause's string form.
func (e *AppError) ToResponse() ErrorResponse {
	msg := e.Message
	if e.HTTPStatus >= http.StatusInternalServerError && e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	return ErrorResponse{Error: msg}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// From returns err as an AppError, wrapping unknown errors as Internal.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Internal(err)
}
