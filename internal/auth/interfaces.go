// File: internal/auth/interfaces.go
package auth

import (
	"context"

	"firebase_auth_session/internal/user"
)

// Operations is the adapter surface the facade forwards to. A non-nil error means the
// failure was not a platform error and has not been turned into a Result.
type Operations interface {
	Register(ctx context.Context, req user.RegisterRequest) (*Result, error)
	SignInWithEmailAndPassword(ctx context.Context, email, password string) (*Result, error)
	SignInWithGoogle(ctx context.Context) (*Result, error)
	SignUpWithGoogle(ctx context.Context) (*Result, error)
	UpdateUserProfile(ctx context.Context, update user.ProfileUpdate) (*Result, error)
	SignOut(ctx context.Context) (*Result, error)
}
