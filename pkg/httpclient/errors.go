package httpclient

import (
	"errors"
	"fmt"
	"time"
)

// CircuitOpenError is returned when the destination's circuit breaker is
// open and the open-timeout window has not elapsed. No network call was
// attempted. Callers can use RetryAfter to decide between skipping and
// queueing the work.
type CircuitOpenError struct {
	Destination string
	RetryAfter  time.Duration
}

// Error implements the error interface.
func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker is OPEN for %s (retry after %s)", e.Destination, e.RetryAfter.Round(time.Second))
}

// ClientError is returned for any 4xx response. Client errors are not
// transient, so they are surfaced immediately and never retried.
type ClientError struct {
	StatusCode int
	URL        string
	Body       []byte
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	return fmt.Sprintf("client error (HTTP %d) from %s: %s", e.StatusCode, e.URL, string(e.Body))
}

// ServiceError is returned after exhausting all retry attempts on 5xx
// responses or transport failures. It wraps the error of the last attempt.
type ServiceError struct {
	Destination string
	Attempts    int
	Err         error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %s unavailable after %d attempts: %v", e.Destination, e.Attempts, e.Err)
}

// Unwrap returns the last attempt's error for errors.Is/As compatibility.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// IsCircuitOpen reports whether err is a CircuitOpenError.
func IsCircuitOpen(err error) bool {
	var coe *CircuitOpenError
	return errors.As(err, &coe)
}

// IsClientError reports whether err is a ClientError.
func IsClientError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}

// IsServiceError reports whether err is a ServiceError.
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}
