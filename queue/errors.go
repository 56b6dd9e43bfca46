package queue

import (
	"strings"

	apperrors "github.com/kbukum/scribe/errors"
)

var connectionPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"no route to host",
	"network is unreachable",
	"broker not available",
	"leader not available",
	"dial tcp",
}

// IsConnectionError reports whether err looks like a broker connectivity failure.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range connectionPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// FromKafka converts a broker error to an AppError. Every publish failure is
// reported as retryable: the client can submit again once the broker is back.
func FromKafka(err error, topic string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	return apperrors.ServiceUnavailable("message queue").
		WithCause(err).
		WithDetail("topic", topic).
		WithDetail("connection", IsConnectionError(err))
}
