package auth

import (
	"context"

	"firebase_auth_session/internal/shared"
	"firebase_auth_session/internal/user"

	"github.com/stretchr/testify/mock"
)

// MockIdentityProvider is a mock type for shared.IdentityProvider.
// Auth-state listeners are captured so tests can push events.
type MockIdentityProvider struct {
	mock.Mock
	listener shared.AuthStateListener
}

func (m *MockIdentityProvider) CreateUserWithEmailAndPassword(ctx context.Context, email, password string) (*shared.AuthUser, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.AuthUser), args.Error(1)
}

func (m *MockIdentityProvider) SignInWithEmailAndPassword(ctx context.Context, email, password string) (*shared.AuthUser, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.AuthUser), args.Error(1)
}

func (m *MockIdentityProvider) SignInWithCredential(ctx context.Context, cred *shared.IDPCredential) (*shared.AuthUser, error) {
	args := m.Called(ctx, cred)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.AuthUser), args.Error(1)
}

func (m *MockIdentityProvider) UpdateDisplayName(ctx context.Context, displayName string) error {
	args := m.Called(ctx, displayName)
	return args.Error(0)
}

func (m *MockIdentityProvider) SignOut(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockIdentityProvider) CurrentUser() *shared.AuthUser {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*shared.AuthUser)
}

func (m *MockIdentityProvider) IDToken(ctx context.Context, forceRefresh bool) (string, error) {
	args := m.Called(ctx, forceRefresh)
	return args.String(0), args.Error(1)
}

func (m *MockIdentityProvider) OnAuthStateChanged(listener shared.AuthStateListener) func() {
	m.listener = listener
	return func() { m.listener = nil }
}

func (m *MockIdentityProvider) emit(u *shared.AuthUser) {
	if m.listener != nil {
		m.listener(u)
	}
}

// MockUserRepository is a mock type for user.Repository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByUID(ctx context.Context, uid string) (*user.Profile, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.Profile), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, profile *user.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, uid string, fields map[string]interface{}) error {
	args := m.Called(ctx, uid, fields)
	return args.Error(0)
}

func (m *MockUserRepository) TouchLastLogin(ctx context.Context, uid string) error {
	args := m.Called(ctx, uid)
	return args.Error(0)
}

// MockFederatedFlow is a mock type for shared.FederatedFlow
type MockFederatedFlow struct {
	mock.Mock
}

func (m *MockFederatedFlow) Authenticate(ctx context.Context) (*shared.IDPCredential, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.IDPCredential), args.Error(1)
}

// MockSessionBackend is a mock type for shared.SessionBackend
type MockSessionBackend struct {
	mock.Mock
}

func (m *MockSessionBackend) SessionLogin(ctx context.Context, idToken string) error {
	args := m.Called(ctx, idToken)
	return args.Error(0)
}

func (m *MockSessionBackend) Logout(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockOperations is a mock type for Operations
type MockOperations struct {
	mock.Mock
}

func (m *MockOperations) result(args mock.Arguments) (*Result, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Result), args.Error(1)
}

func (m *MockOperations) Register(ctx context.Context, req user.RegisterRequest) (*Result, error) {
	return m.result(m.Called(ctx, req))
}

func (m *MockOperations) SignInWithEmailAndPassword(ctx context.Context, email, password string) (*Result, error) {
	return m.result(m.Called(ctx, email, password))
}

func (m *MockOperations) SignInWithGoogle(ctx context.Context) (*Result, error) {
	return m.result(m.Called(ctx))
}

func (m *MockOperations) SignUpWithGoogle(ctx context.Context) (*Result, error) {
	return m.result(m.Called(ctx))
}

func (m *MockOperations) UpdateUserProfile(ctx context.Context, update user.ProfileUpdate) (*Result, error) {
	return m.result(m.Called(ctx, update))
}

func (m *MockOperations) SignOut(ctx context.Context) (*Result, error) {
	return m.result(m.Called(ctx))
}
