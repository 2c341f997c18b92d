package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/skydesk/skydesk/pkg/protocol"
)

// ErrNotFound signals that a named entity is absent from the remote tree.
// Callers distinguish it with errors.Is to present "entity X not found".
var ErrNotFound = errors.New("not found")

// RequestError wraps a failed tree-service request with the operation that
// issued it. All instances are also published on the shared error stream.
type RequestError struct {
	Operation string
	Status    int // HTTP status, 0 for transport-level failures
	Err       error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Operation, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// AsRequestError checks whether err carries a RequestError.
func AsRequestError(err error) (*RequestError, bool) {
	var re *RequestError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// statusError carries the HTTP status of a non-2xx response through to the
// RequestError wrapper.
type statusError struct {
	status int
	err    error
}

func (e *statusError) Error() string { return e.err.Error() }
func (e *statusError) Unwrap() error { return e.err }

func errorFromResponse(resp *http.Response) error {
	var inner error
	var body protocol.ErrorResponse
	if json.NewDecoder(resp.Body).Decode(&body) == nil && body.Error != "" {
		inner = errors.New(body.Error)
	} else {
		inner = fmt.Errorf("server returned %d", resp.StatusCode)
	}
	if resp.StatusCode == http.StatusNotFound {
		inner = fmt.Errorf("%w: %v", ErrNotFound, inner)
	}
	return &statusError{status: resp.StatusCode, err: inner}
}

func asRequestError(operation string, err error) *RequestError {
	var se *statusError
	if errors.As(err, &se) {
		return &RequestError{Operation: operation, Status: se.status, Err: se.err}
	}
	return &RequestError{Operation: operation, Err: err}
}
