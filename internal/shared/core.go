package shared

import (
	"context"
	"time"
)

// AuthUser is the identity platform's view of the signed-in account.
type AuthUser struct {
	UID           string  `json:"uid"`
	Email         string  `json:"email"`
	DisplayName   string  `json:"displayName"`
	PhotoURL      *string `json:"photoURL"`
	EmailVerified bool    `json:"emailVerified"`
	ProviderID    string  `json:"providerId"`
}

// Clone returns a deep copy.
func (u *AuthUser) Clone() *AuthUser {
	if u == nil {
		return nil
	}
	c := *u
	if u.PhotoURL != nil {
		p := *u.PhotoURL
		c.PhotoURL = &p
	}
	return &c
}

// Credential is the platform session kept alongside the AuthUser.
type Credential struct {
	IDToken      string    `json:"idToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// IDPCredential is what a federated sign-in flow hands back to the platform.
type IDPCredential struct {
	ProviderID  string
	IDToken     string
	AccessToken string
}

// AuthStateListener receives the signed-in user, or nil after sign-out.
type AuthStateListener func(user *AuthUser)

// IdentityProvider is the identity platform as seen from the client.
// Errors carrying a platform code are *common.AuthError.
type IdentityProvider interface {
	CreateUserWithEmailAndPassword(ctx context.Context, email, password string) (*AuthUser, error)
	SignInWithEmailAndPassword(ctx context.Context, email, password string) (*AuthUser, error)
	SignInWithCredential(ctx context.Context, cred *IDPCredential) (*AuthUser, error)
	UpdateDisplayName(ctx context.Context, displayName string) error
	SignOut(ctx context.Context) error
	// CurrentUser is nil when nobody is signed in.
	CurrentUser() *AuthUser
	// IDToken returns the current ID token, refreshing it first when forced or expired.
	IDToken(ctx context.Context, forceRefresh bool) (string, error)
	// OnAuthStateChanged delivers the current state and every later transition,
	// asynchronously and in order. The returned func unsubscribes.
	OnAuthStateChanged(listener AuthStateListener) (unsubscribe func())
}

// FederatedFlow runs an interactive third-party sign-in and returns its credential.
type FederatedFlow interface {
	Authenticate(ctx context.Context) (*IDPCredential, error)
}

// SessionBackend establishes and clears the server-side session cookie.
type SessionBackend interface {
	SessionLogin(ctx context.Context, idToken string) error
	Logout(ctx context.Context) error
}
