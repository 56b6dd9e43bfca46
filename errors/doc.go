// Package errors provides the service error taxonomy: coded AppErrors that carry
// an HTTP status, a retryable flag and optional details.
package errors
