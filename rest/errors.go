package rest

import (
	"errors"
	"fmt"
)

// ErrAuthentication is the base of every credential problem. Messages
// wrapping it tell the caller which remediation to run.
var ErrAuthentication = errors.New("authentication error")

var ErrAlreadyAuthenticated = fmt.Errorf(
	"%w: already authenticated. Logout() first to log in again", ErrAuthentication,
)

// TransportError is a network-level failure (DNS, refused connection,
// timeout). Requests are at-most-once: nothing is retried.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s", e.Err.Error())
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteError is a non-2xx response from the API, carrying status and body.
type RemoteError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request rejected by server"
	}
	if len(e.Body) == 0 {
		return fmt.Sprintf("%s (status code = %d)", msg, e.Status)
	}
	return fmt.Sprintf("%s (status code = %d)\n%s", msg, e.Status, string(e.Body))
}

// Conflict reports whether the server rejected a conditional write because
// of a concurrent modification. Pull again before retrying the push.
func (e *RemoteError) Conflict() bool {
	return e.Status == 409 || e.Status == 412
}

func (e *RemoteError) NotFound() bool {
	return e.Status == 404
}

// NotFoundError is a named entity which does not exist, remotely or within
// its parent.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Name)
}

// DecodingError is a response body which is not the JSON it should be.
type DecodingError struct {
	Err error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("cannot decode server response: %s", e.Err.Error())
}

func (e *DecodingError) Unwrap() error {
	return e.Err
}
