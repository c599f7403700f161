package gateway

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies a failed remote call.
type ErrorKind int

const (
	// KindNetwork is a connectivity failure before any HTTP status was read.
	KindNetwork ErrorKind = iota
	// KindTimeout is a request that exceeded its deadline.
	KindTimeout
	// KindRateLimited is HTTP 429.
	KindRateLimited
	// KindServerError is any HTTP 5xx.
	KindServerError
	// KindClientError is an HTTP 4xx other than 429 and 404. Not retryable.
	KindClientError
	// KindNotFound is HTTP 404: a well-formed request for an unknown asset.
	KindNotFound
)

// String returns the string representation of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindRateLimited:
		return "rate_limited"
	case KindServerError:
		return "server_error"
	case KindClientError:
		return "client_error"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// APIError is a classified remote-call failure.
type APIError struct {
	Kind     ErrorKind
	Status   int
	Endpoint string
	Err      error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (endpoint %s): %s", e.Kind, httpStatusLabel(e.Status), e.Endpoint, e.Err)
	}
	return fmt.Sprintf("%s: %s (endpoint %s)", e.Kind, httpStatusLabel(e.Status), e.Endpoint)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient and worth retrying.
func (e *APIError) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout, KindRateLimited, KindServerError:
		return true
	}
	return false
}

// IsRetryable reports whether err is a transient APIError.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}

// ErrNotFound reports whether err is an APIError with KindNotFound.
func ErrNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindNotFound
}

func httpStatusLabel(status int) string {
	if status == 0 {
		return "no response"
	}
	return fmt.Sprintf("HTTP %d", status)
}
