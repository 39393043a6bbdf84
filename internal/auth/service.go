// File: internal/auth/service.go
package auth

import (
	"context"

	"firebase_auth_session/internal/session"
	"firebase_auth_session/internal/shared"
	"firebase_auth_session/internal/user"

	"go.uber.org/zap"
)

// Fallback sentences for failures the adapter could not translate.
const (
	FallbackNetwork      = "Network error. Please try again."
	FallbackGoogleSignIn = "Google Sign In failed. Please try again."
	FallbackGoogleSignUp = "Google Sign Up failed. Please try again."
	FallbackLogout       = "Logout failed. Please try again."
)

// Service is the entry point for application code. Its operations never return an error
// and never panic: every outcome is a *Result.
type Service struct {
	ops    Operations
	holder *session.Holder
	logger *zap.Logger
}

// NewService creates the facade over ops. holder must be the one ops writes through.
func NewService(ops Operations, holder *session.Holder, logger *zap.Logger) *Service {
	return &Service{
		ops:    ops,
		holder: holder,
		logger: logger.Named("AuthService"),
	}
}

// run executes fn under the in-flight guard and converts errors and panics into the
// operation's fallback result.
func (s *Service) run(ctx context.Context, op, fallback string, fn func(ctx context.Context) (*Result, error)) *Result {
	var res *Result
	err := s.holder.Exclusive(ctx, func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Operation panicked", zap.String("operation", op), zap.Any("panic", r), zap.Stack("stack"))
				res = Failure(fallback)
			}
		}()

		out, err := fn(ctx)
		if err != nil {
			s.logger.Error("Operation failed", zap.String("operation", op), zap.Error(err))
			res = Failure(fallback)
			return
		}
		if out == nil {
			s.logger.Error("Operation returned no result", zap.String("operation", op))
			res = Failure(fallback)
			return
		}
		res = out
	})
	if err != nil {
		s.logger.Warn("Operation abandoned while waiting for another to finish", zap.String("operation", op), zap.Error(err))
		return Failure(fallback)
	}
	return res
}

// Login signs in with the fields of req.
func (s *Service) Login(ctx context.Context, req LoginRequest) *Result {
	return s.LoginWithCredentials(ctx, req.Email, req.Password)
}

// LoginWithCredentials is Login with positional arguments.
func (s *Service) LoginWithCredentials(ctx context.Context, email, password string) *Result {
	return s.run(ctx, "login", FallbackNetwork, func(ctx context.Context) (*Result, error) {
		return s.ops.SignInWithEmailAndPassword(ctx, email, password)
	})
}

func (s *Service) Register(ctx context.Context, req user.RegisterRequest) *Result {
	return s.run(ctx, "register", FallbackNetwork, func(ctx context.Context) (*Result, error) {
		return s.ops.Register(ctx, req)
	})
}

func (s *Service) GoogleSignIn(ctx context.Context) *Result {
	return s.run(ctx, "googleSignIn", FallbackGoogleSignIn, s.ops.SignInWithGoogle)
}

func (s *Service) GoogleSignUp(ctx context.Context) *Result {
	return s.run(ctx, "googleSignUp", FallbackGoogleSignUp, s.ops.SignUpWithGoogle)
}

func (s *Service) Logout(ctx context.Context) *Result {
	return s.run(ctx, "logout", FallbackLogout, s.ops.SignOut)
}

func (s *Service) UpdateProfile(ctx context.Context, update user.ProfileUpdate) *Result {
	return s.run(ctx, "updateProfile", FallbackNetwork, func(ctx context.Context) (*Result, error) {
		return s.ops.UpdateUserProfile(ctx, update)
	})
}

// CurrentUser returns the profile held in memory, falling back to the local cache.
func (s *Service) CurrentUser(ctx context.Context) *user.Profile {
	if p := s.holder.Profile(); p != nil {
		return p
	}
	return s.holder.StoredProfile(ctx)
}

// PlatformUser is the identity platform's user as of the last auth-state event.
func (s *Service) PlatformUser() *shared.AuthUser {
	return s.holder.PlatformUser()
}

// IsAuthenticated requires both a platform user and a profile. The profile is cleared as part
// of a successful Logout, so this turns false before the sign-out event arrives.
func (s *Service) IsAuthenticated() bool {
	return s.holder.PlatformUser() != nil && s.holder.Profile() != nil
}

// OnAuthStateChange registers the single auth-state callback; the last registration wins.
func (s *Service) OnAuthStateChange(cb shared.AuthStateListener) {
	s.holder.OnAuthStateChange(cb)
}

// WaitForTransition blocks until the next auth-state event. Reads made right after an
// operation may predate it.
func (s *Service) WaitForTransition(ctx context.Context) (*shared.AuthUser, error) {
	return s.holder.WaitForTransition(ctx)
}

// StoredUser returns the profile persisted in the local store, or nil.
func (s *Service) StoredUser(ctx context.Context) *user.Profile {
	return s.holder.StoredProfile(ctx)
}
