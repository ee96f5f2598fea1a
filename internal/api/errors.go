package api

import (
	"errors"
	"fmt"
)

// AuthError indicates that the session token was rejected by the server.
// It is returned for every 401 response.
type AuthError struct {
	Method  string
	Path    string
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("authentication failed (401) on %s %s", e.Method, e.Path)
	}
	return fmt.Sprintf("authentication failed (401) on %s %s: %s", e.Method, e.Path, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	StatusCode int
	Method     string
	Path       string

	// Message is the server's "message" field when present, otherwise
	// the raw response body.
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf(
		"unexpected status %d on %s %s: %s",
		e.StatusCode, e.Method, e.Path, e.Message,
	)
}

// StatusCode returns the HTTP status carried by err, 401 for an
// AuthError, or 0 when err did not come from a response.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	if IsAuthError(err) {
		return 401
	}
	return 0
}

// ErrorMessage extracts the server-provided message from err, falling
// back to err.Error(). Used for user-facing login failures.
func ErrorMessage(err error) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return statusErr.Message
	}
	var authErr *AuthError
	if errors.As(err, &authErr) && authErr.Message != "" {
		return authErr.Message
	}
	return err.Error()
}
