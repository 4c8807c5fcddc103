package doordash

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoSuggestions is returned when an autocomplete query yields no places.
var ErrNoSuggestions = errors.New("no address suggestions")

// TransportError is a request that never got a response, ie. a network
// failure or a timeout.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

const maxErrorBody = 200

// StatusError is a response with a non-2xx status.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}
	if body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.Status, body)
}

// MalformedError is a successful response that is missing a field the
// caller depends on.
type MalformedError struct {
	Op     string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s: malformed response: %s", e.Op, e.Reason)
}

// IsNotFound returns true if the error, or any error it wraps, is a 404
// response.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status == http.StatusNotFound
	}
	return false
}

// IsForbidden returns true if the error, or any error it wraps, is a 403
// response.
func IsForbidden(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status == http.StatusForbidden
	}
	return false
}
