// File: internal/auth/adapter.go
package auth

import (
	"context"
	"errors"
	"fmt"

	"firebase_auth_session/internal/common"
	"firebase_auth_session/internal/session"
	"firebase_auth_session/internal/shared"
	"firebase_auth_session/internal/user"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Messages returned by the adapter.
const (
	MsgRegistered        = "Registration successful!"
	MsgSignedIn          = "Sign in successful!"
	MsgGoogleSignedIn    = "Google sign in successful!"
	MsgGoogleSignedUp    = "Google signup successful! Please complete your profile."
	MsgProfileUpdated    = "Profile updated successfully!"
	MsgSignedOut         = "Signed out successfully!"
	MsgProfileNotFound   = "User profile not found."
	MsgGoogleUserMissing = "User not found. Please sign up first."
	MsgNotAuthenticated  = "User not authenticated"
	MsgUpdateFailed      = "Failed to update profile. Please try again."
	MsgSignOutFailed     = "Failed to sign out. Please try again."
)

// PlatformAdapter performs each operation against the identity platform and the users
// collection and normalizes the outcome into a Result. Profiles are cached through the
// session holder.
type PlatformAdapter struct {
	identity  shared.IdentityProvider
	users     user.Repository
	google    shared.FederatedFlow
	backend   shared.SessionBackend
	holder    *session.Holder
	validator *validator.Validate
	logger    *zap.Logger
}

var _ Operations = (*PlatformAdapter)(nil)

// NewPlatformAdapter creates the adapter.
func NewPlatformAdapter(
	identity shared.IdentityProvider,
	users user.Repository,
	google shared.FederatedFlow,
	backend shared.SessionBackend,
	holder *session.Holder,
	validate *validator.Validate,
	logger *zap.Logger,
) *PlatformAdapter {
	return &PlatformAdapter{
		identity:  identity,
		users:     users,
		google:    google,
		backend:   backend,
		holder:    holder,
		validator: validate,
		logger:    logger.Named("PlatformAdapter"),
	}
}

// platformFailure turns a platform error into a translated failure. Any other error is
// handed back to the caller untouched.
func (a *PlatformAdapter) platformFailure(op string, err error) (*Result, error) {
	if authErr, ok := common.IsAuthError(err); ok {
		a.logger.Warn("Platform rejected operation",
			zap.String("operation", op),
			zap.String("code", authErr.Code),
			zap.Error(err),
		)
		return Failure(ErrorMessage(authErr.Code)), nil
	}
	return nil, fmt.Errorf("%s: %w", op, err)
}

// Register creates the account, names it, writes the user document and caches it.
// Nothing is rolled back if a later step fails.
func (a *PlatformAdapter) Register(ctx context.Context, req user.RegisterRequest) (*Result, error) {
	if err := a.validator.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return a.platformFailure("register", common.ValidationToAuthError(verrs))
		}
		return nil, fmt.Errorf("register: validating request: %w", err)
	}

	authUser, err := a.identity.CreateUserWithEmailAndPassword(ctx, req.Email, req.Password)
	if err != nil {
		return a.platformFailure("register", err)
	}
	if err := a.identity.UpdateDisplayName(ctx, req.DisplayName()); err != nil {
		return a.platformFailure("register", err)
	}

	profile := user.NewEmailProfile(authUser.UID, authUser.Email, authUser.PhotoURL, authUser.EmailVerified, req).WithNewUser(true)
	if err := a.users.Create(ctx, profile); err != nil {
		return a.platformFailure("register", err)
	}
	if err := a.holder.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}

	a.logger.Info("User registered", zap.String("uid", profile.UID))
	return Success(profile, MsgRegistered).withNewUser(true), nil
}

// SignInWithEmailAndPassword authenticates, loads the user document and opens the backend
// session. A missing document fails the sign-in without touching the cache.
func (a *PlatformAdapter) SignInWithEmailAndPassword(ctx context.Context, email, password string) (*Result, error) {
	authUser, err := a.identity.SignInWithEmailAndPassword(ctx, email, password)
	if err != nil {
		return a.platformFailure("signIn", err)
	}

	profile, err := a.users.FindByUID(ctx, authUser.UID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			a.logger.Warn("Authenticated user has no profile document", zap.String("uid", authUser.UID))
			return Failure(MsgProfileNotFound), nil
		}
		return a.platformFailure("signIn", err)
	}

	if err := a.users.TouchLastLogin(ctx, authUser.UID); err != nil {
		return a.platformFailure("signIn", err)
	}

	idToken, err := a.identity.IDToken(ctx, true)
	if err != nil {
		return a.platformFailure("signIn", err)
	}
	if err := a.backend.SessionLogin(ctx, idToken); err != nil {
		return a.platformFailure("signIn", err)
	}

	if err := a.holder.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}
	a.logger.Info("User signed in", zap.String("uid", authUser.UID))
	return Success(profile, MsgSignedIn), nil
}

func (a *PlatformAdapter) googleUser(ctx context.Context) (*shared.AuthUser, error) {
	cred, err := a.google.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	return a.identity.SignInWithCredential(ctx, cred)
}

// SignInWithGoogle signs in an account that already has a user document. It never
// provisions one.
func (a *PlatformAdapter) SignInWithGoogle(ctx context.Context) (*Result, error) {
	authUser, err := a.googleUser(ctx)
	if err != nil {
		return a.platformFailure("googleSignIn", err)
	}

	profile, err := a.users.FindByUID(ctx, authUser.UID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return Failure(MsgGoogleUserMissing), nil
		}
		return a.platformFailure("googleSignIn", err)
	}
	if err := a.users.TouchLastLogin(ctx, authUser.UID); err != nil {
		return a.platformFailure("googleSignIn", err)
	}

	if err := a.holder.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}
	a.logger.Info("User signed in with Google", zap.String("uid", authUser.UID))
	return Success(profile, MsgGoogleSignedIn), nil
}

// SignUpWithGoogle provisions a user document on first use. For an existing document it
// behaves as a sign-in and only refreshes the last-login timestamp.
func (a *PlatformAdapter) SignUpWithGoogle(ctx context.Context) (*Result, error) {
	authUser, err := a.googleUser(ctx)
	if err != nil {
		return a.platformFailure("googleSignUp", err)
	}

	existing, err := a.users.FindByUID(ctx, authUser.UID)
	switch {
	case errors.Is(err, common.ErrNotFound):
		profile := user.NewGoogleProfile(authUser.UID, authUser.Email, authUser.DisplayName, authUser.PhotoURL, authUser.EmailVerified).WithNewUser(true)
		if err := a.users.Create(ctx, profile); err != nil {
			return a.platformFailure("googleSignUp", err)
		}
		if err := a.holder.SaveProfile(ctx, profile); err != nil {
			return nil, err
		}
		a.logger.Info("User provisioned from Google", zap.String("uid", authUser.UID))
		return Success(profile, MsgGoogleSignedUp).withNewUser(true), nil

	case err != nil:
		return a.platformFailure("googleSignUp", err)
	}

	profile := existing.WithNewUser(false)
	if err := a.users.TouchLastLogin(ctx, authUser.UID); err != nil {
		return a.platformFailure("googleSignUp", err)
	}
	if err := a.holder.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}
	a.logger.Info("Existing user signed in through Google sign-up", zap.String("uid", authUser.UID))
	return Success(profile, MsgGoogleSignedIn).withNewUser(false), nil
}

// UpdateUserProfile writes the supplied fields and merges them into the cached profile.
// Every failure past the authentication check is reported with the same sentence.
func (a *PlatformAdapter) UpdateUserProfile(ctx context.Context, update user.ProfileUpdate) (*Result, error) {
	authUser := a.identity.CurrentUser()
	if authUser == nil {
		return Failure(MsgNotAuthenticated), nil
	}

	stored := a.holder.Profile()
	if stored == nil {
		stored = a.holder.StoredProfile(ctx)
	}

	fields := update.Fields()
	var displayName string
	if update.NameChanged() {
		displayName = update.DisplayNameOver(stored)
		fields["displayName"] = displayName
	}

	fail := func(err error) (*Result, error) {
		a.logger.Error("Profile update failed", zap.String("uid", authUser.UID), zap.Error(err))
		return Failure(MsgUpdateFailed), nil
	}

	if err := a.users.Update(ctx, authUser.UID, fields); err != nil {
		return fail(err)
	}
	if update.NameChanged() {
		if err := a.identity.UpdateDisplayName(ctx, displayName); err != nil {
			return fail(err)
		}
	}

	merged := stored.Merge(update)
	if update.NameChanged() {
		merged.DisplayName = displayName
	}
	if err := a.holder.SaveProfile(ctx, merged); err != nil {
		return fail(err)
	}

	a.logger.Info("Profile updated", zap.String("uid", authUser.UID), zap.Int("fields", len(fields)))
	return Success(merged, MsgProfileUpdated), nil
}

// SignOut ends the platform session and clears the cached profile before telling the backend.
// A failed backend logout is logged and does not fail the sign-out.
func (a *PlatformAdapter) SignOut(ctx context.Context) (*Result, error) {
	if err := a.identity.SignOut(ctx); err != nil {
		a.logger.Error("Platform sign-out failed", zap.Error(err))
		return Failure(MsgSignOutFailed), nil
	}
	if err := a.holder.ClearProfile(ctx); err != nil {
		a.logger.Error("Failed to clear cached profile", zap.Error(err))
		return Failure(MsgSignOutFailed), nil
	}
	if err := a.backend.Logout(ctx); err != nil {
		a.logger.Warn("Backend logout failed; server session cookie may remain", zap.Error(err))
	}
	return &Result{Success: true, Message: MsgSignedOut}, nil
}

// OnAuthStateChange registers the single auth-state callback.
func (a *PlatformAdapter) OnAuthStateChange(cb shared.AuthStateListener) {
	a.holder.OnAuthStateChange(cb)
}

// StoredUser returns the cached profile, or nil.
func (a *PlatformAdapter) StoredUser(ctx context.Context) *user.Profile {
	return a.holder.StoredProfile(ctx)
}
