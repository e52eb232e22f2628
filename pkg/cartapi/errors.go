package cartapi

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned when the client configuration is unusable
	ErrInvalidConfig = errors.New("invalid cart client config")

	// ErrNetworkError is returned when the service could not be reached
	ErrNetworkError = errors.New("network error")

	// ErrTimeout is returned when a request exceeded its deadline
	ErrTimeout = errors.New("request timed out")

	// ErrUnauthorized is returned on 401/403, e.g. an expired or revoked token
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned on 404, e.g. an unknown product
	ErrNotFound = errors.New("not found")

	// ErrRejected is returned for any other non-success status
	ErrRejected = errors.New("request rejected by cart service")

	// ErrMalformedResponse is returned when a success body has an unexpected shape
	ErrMalformedResponse = errors.New("malformed response")

	// ErrCredentialUnavailable is returned when the bearer token could not be obtained
	ErrCredentialUnavailable = errors.New("credential unavailable")
)

// APIError carries the status and error body of a non-success response.
// It unwraps to one of the sentinel errors above.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	kind       error
}

func (e *APIError) Error() string {
	if e.Code == "" && e.Message == "" {
		return fmt.Sprintf("%v: status %d", e.kind, e.StatusCode)
	}
	return fmt.Sprintf("%v: status %d, code=%s, message=%s", e.kind, e.StatusCode, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.kind
}
