package api

import (
	"fmt"
	"time"
)

// InvalidParameterError is returned before any request is made when an
// argument fails validation
type InvalidParameterError struct {
	Param  string
	Value  any
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Param, e.Value, e.Reason)
}

// InvalidRangeError is returned when a date range starts after it ends
type InvalidRangeError struct {
	From time.Time
	To   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range: from %s is after to %s", e.From.Format(time.DateOnly), e.To.Format(time.DateOnly))
}

// UnsupportedLanguageError is returned for a language outside he/en
type UnsupportedLanguageError struct {
	Language string
}

func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("unsupported language %q (allowed: he, en)", e.Language)
}

// AuthenticationError means the token was missing or rejected
type AuthenticationError struct {
	StatusCode int
	URL        string
	Reason     string
}

func (e *AuthenticationError) Error() string {
	if e.StatusCode == 0 {
		return "authentication failed: " + e.Reason
	}
	return fmt.Sprintf("authentication failed: status %d from %s", e.StatusCode, e.URL)
}

// NotFoundError means the requested station or region does not exist
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string {
	return "not found: " + e.URL
}

// ServiceError carries any other non-2xx response
type ServiceError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("API error: status %d from %s, body: %s", e.StatusCode, e.URL, e.Body)
}

// TransportError wraps network-level failures. It is never retried here.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
