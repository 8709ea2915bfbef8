package session

import (
	"errors"
	"fmt"
)

// ErrQueueFull is returned when a request hits an expired session while the
// pending request queue is already at its limit.
var ErrQueueFull = errors.New("session: pending request queue is full")

// AuthError signals a failed login: rejected credentials, a response without
// a session cookie, or a transport failure on the login call itself.
type AuthError struct {
	Status int
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("login failed: %v", e.Err)
	case e.Status != 0:
		return fmt.Sprintf("login failed: status %d: %s", e.Status, e.Reason)
	default:
		return "login failed: " + e.Reason
	}
}

func (e *AuthError) Unwrap() error { return e.Err }

// SessionExpiredError is returned when a request is still rejected after it
// was replayed with a freshly issued session.
type SessionExpiredError struct {
	Method string
	Path   string
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("session rejected for %s %s after re-authentication", e.Method, e.Path)
}

// TimeoutError signals that a request exceeded its deadline.
type TimeoutError struct {
	Method string
	Path   string
	Err    error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s %s timed out: %v", e.Method, e.Path, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// RequestError wraps any other transport level failure.
type RequestError struct {
	Method string
	Path   string
	Err    error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Method, e.Path, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// StatusError is a completed request answered with a non-success status.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// IsTimeout reports whether err is or wraps a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
