// File: internal/common/errors.go
package common

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrNotFound is returned by repositories and stores when a key or record does not exist.
var ErrNotFound = errors.New("not found")

// AuthError is a failure reported by the identity platform, identified by a stable
// code such as "auth/wrong-password". Codes are translated to sentences by the auth package.
type AuthError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("AuthError: Code=%s, Message=%s", e.Code, e.Message)
	}
	return fmt.Sprintf("AuthError: Code=%s", e.Code)
}

func (e *AuthError) Unwrap() error {
	return e.Cause
}

// NewAuthError creates an AuthError for a platform code.
func NewAuthError(code, message string) *AuthError {
	return &AuthError{Code: code, Message: message}
}

// WithCause attaches the underlying error.
func (e *AuthError) WithCause(err error) *AuthError {
	e.Cause = err
	return e
}

// IsAuthError reports whether err carries a platform error code.
func IsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

// Platform codes raised locally, before a request reaches the platform.
const (
	CodeInvalidEmail    = "auth/invalid-email"
	CodeArgumentError   = "auth/argument-error"
	CodeNullUser        = "auth/null-user"
	CodeNetworkFailed   = "auth/network-request-failed"
	CodeTimeout         = "auth/timeout"
	CodePopupClosed     = "auth/popup-closed-by-user"
	CodeInvalidAPIKey   = "auth/invalid-api-key"
	CodeInvalidCred     = "auth/invalid-credential"
	CodeUserTokenExpiry = "auth/user-token-expired"
)

// ValidationToAuthError turns validator failures into the platform code the identity
// service would have produced for the same input.
func ValidationToAuthError(errs validator.ValidationErrors) *AuthError {
	for _, e := range errs {
		if e.Tag() == "email" {
			return NewAuthError(CodeInvalidEmail, fmt.Sprintf("%s is not a valid email address", strings.ToLower(e.Field())))
		}
	}
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, fmt.Sprintf("%s(%s)", strings.ToLower(e.Field()), e.Tag()))
	}
	return NewAuthError(CodeArgumentError, "invalid fields: "+strings.Join(fields, ", "))
}
