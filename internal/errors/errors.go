package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types for the authentication gateway
var (
	// Handshake errors
	ErrHandshakeNotFound = errors.New("handshake not found or expired")
	ErrStateMismatch     = errors.New("oauth state mismatch")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionExists   = errors.New("session already exists")

	// User errors
	ErrUserNotFound = errors.New("user not found")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
)

// ResponseError is a user-facing outcome carrying an explicit HTTP status and
// a message that is safe to render to the client verbatim. Any error that is
// not a ResponseError is treated as internal: logged with full detail
// server-side and rendered to the caller as a generic 500.
type ResponseError struct {
	Status int
	Detail string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Detail)
}

// NewResponse creates a user-facing error with the given status and detail
func NewResponse(status int, detail string) error {
	return &ResponseError{Status: status, Detail: detail}
}

// Unauthorized creates a 401 response error
func Unauthorized(detail string) error {
	return &ResponseError{Status: http.StatusUnauthorized, Detail: detail}
}

// Forbidden creates a 403 response error
func Forbidden(detail string) error {
	return &ResponseError{Status: http.StatusForbidden, Detail: detail}
}

// AsResponse returns the ResponseError in err's chain, if any
func AsResponse(err error) (*ResponseError, bool) {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr, true
	}
	return nil, false
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
