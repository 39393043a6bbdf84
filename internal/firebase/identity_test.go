package firebase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"firebase_auth_session/internal/common"
	"firebase_auth_session/internal/config"
	"firebase_auth_session/internal/localstore"
	"firebase_auth_session/internal/shared"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

func signedToken(t *testing.T, uid string, ttl time.Duration) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uid,
		"exp": time.Now().Add(ttl).Unix(),
	}).SignedString([]byte("test"))
	require.NoError(t, err)
	return tok
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeAPIError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"code":    400,
			"message": message,
			"errors":  []map[string]any{{"message": message, "domain": "global", "reason": "invalid"}},
		},
	})
}

// toolkitStub fakes the relyingparty and secure token endpoints for one account.
type toolkitStub struct {
	t *testing.T

	mu          sync.Mutex
	calls       map[string]int
	lastSetInfo map[string]any
	failWith    map[string]string
	tokenTTL    time.Duration
}

func (s *toolkitStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if r.Header.Get("Content-Type") == "application/json" {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	s.mu.Lock()
	name := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	s.calls[name]++
	if name == "setAccountInfo" {
		s.lastSetInfo = body
	}
	fail := s.failWith[name]
	ttl := s.tokenTTL
	s.mu.Unlock()

	if fail != "" {
		if name == "token" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{"message": fail}})
			return
		}
		writeAPIError(w, fail)
		return
	}

	switch name {
	case "signupNewUser":
		writeJSON(w, http.StatusOK, map[string]any{
			"localId":      "uid-1",
			"email":        body["email"],
			"idToken":      signedToken(s.t, "uid-1", ttl),
			"refreshToken": "refresh-1",
		})
	case "verifyPassword":
		writeJSON(w, http.StatusOK, map[string]any{
			"localId":      "uid-1",
			"email":        body["email"],
			"displayName":  "Ada Lovelace",
			"idToken":      signedToken(s.t, "uid-1", ttl),
			"refreshToken": "refresh-1",
		})
	case "getAccountInfo":
		writeJSON(w, http.StatusOK, map[string]any{
			"users": []map[string]any{{"localId": "uid-1", "emailVerified": true}},
		})
	case "verifyAssertion":
		writeJSON(w, http.StatusOK, map[string]any{
			"localId":       "google-uid",
			"email":         "ada@gmail.com",
			"fullName":      "Ada Lovelace",
			"photoUrl":      "https://example.com/ada.png",
			"emailVerified": true,
			"idToken":       signedToken(s.t, "google-uid", ttl),
			"refreshToken":  "refresh-g",
		})
	case "setAccountInfo":
		writeJSON(w, http.StatusOK, map[string]any{
			"localId":     "uid-1",
			"displayName": body["displayName"],
		})
	case "token":
		_ = r.ParseForm()
		assert.Equal(s.t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(s.t, "test-key", r.URL.Query().Get("key"))
		id := signedToken(s.t, "uid-1", time.Hour)
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  id,
			"id_token":      id,
			"refresh_token": "refresh-2",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	default:
		http.NotFound(w, r)
	}
}

func (s *toolkitStub) fail(name, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith[name] = reason
}

func (s *toolkitStub) setTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenTTL = ttl
}

func (s *toolkitStub) setInfo() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSetInfo
}

func (s *toolkitStub) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func newTestIdentity(t *testing.T, store localstore.Store) (*IdentityService, *toolkitStub) {
	t.Helper()
	stub := &toolkitStub{t: t, calls: map[string]int{}, failWith: map[string]string{}, tokenTTL: time.Hour}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		FirebaseAPIKey:      "test-key",
		SecureTokenEndpoint: srv.URL + "/v1/token",
	}
	svc, cleanup, err := NewIdentityService(cfg, store, zap.NewNop(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	svc.WithHTTPClient(srv.Client())
	return svc, stub
}

func collect(t *testing.T, svc *IdentityService) <-chan *shared.AuthUser {
	t.Helper()
	ch := make(chan *shared.AuthUser, 16)
	unsubscribe := svc.OnAuthStateChanged(func(u *shared.AuthUser) { ch <- u })
	t.Cleanup(unsubscribe)
	return ch
}

func next(t *testing.T, ch <-chan *shared.AuthUser) *shared.AuthUser {
	t.Helper()
	select {
	case u := <-ch:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("no auth state event delivered")
		return nil
	}
}

func TestIdentityService_SignInEmitsStateInOrder(t *testing.T) {
	svc, stub := newTestIdentity(t, localstore.NewMemoryStore())
	events := collect(t, svc)

	assert.Nil(t, next(t, events), "initial state is signed out")

	u, err := svc.SignInWithEmailAndPassword(context.Background(), "ada@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", u.UID)
	assert.Equal(t, "Ada Lovelace", u.DisplayName)
	assert.True(t, u.EmailVerified)
	assert.Equal(t, 1, stub.count("getAccountInfo"))

	got := next(t, events)
	require.NotNil(t, got)
	assert.Equal(t, "uid-1", got.UID)

	require.NoError(t, svc.SignOut(context.Background()))
	assert.Nil(t, next(t, events))
	assert.Nil(t, svc.CurrentUser())
}

func TestIdentityService_CreateUser(t *testing.T) {
	svc, _ := newTestIdentity(t, localstore.NewMemoryStore())

	u, err := svc.CreateUserWithEmailAndPassword(context.Background(), "new@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", u.UID)
	assert.Equal(t, "new@example.com", u.Email)
	assert.Equal(t, "password", u.ProviderID)
	assert.Equal(t, "uid-1", svc.CurrentUser().UID)
}

func TestIdentityService_TranslatesServerErrors(t *testing.T) {
	tests := []struct {
		reason string
		code   string
	}{
		{"EMAIL_EXISTS", "auth/email-already-in-use"},
		{"WEAK_PASSWORD : Password should be at least 6 characters", "auth/weak-password"},
		{"INVALID_EMAIL", "auth/invalid-email"},
		{"SOMETHING_NEW", "auth/internal-error"},
	}
	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			svc, stub := newTestIdentity(t, localstore.NewMemoryStore())
			stub.fail("signupNewUser", tt.reason)

			_, err := svc.CreateUserWithEmailAndPassword(context.Background(), "x@example.com", "pw")
			authErr, ok := common.IsAuthError(err)
			require.True(t, ok, "expected *AuthError, got %v", err)
			assert.Equal(t, tt.code, authErr.Code)
			assert.Nil(t, svc.CurrentUser())
		})
	}
}

func TestIdentityService_SignInWithCredential(t *testing.T) {
	svc, _ := newTestIdentity(t, localstore.NewMemoryStore())

	u, err := svc.SignInWithCredential(context.Background(), &shared.IDPCredential{ProviderID: "google.com", IDToken: "google-id-token"})
	require.NoError(t, err)
	assert.Equal(t, "google-uid", u.UID)
	assert.Equal(t, "Ada Lovelace", u.DisplayName, "falls back to fullName")
	require.NotNil(t, u.PhotoURL)
	assert.Equal(t, "https://example.com/ada.png", *u.PhotoURL)
	assert.Equal(t, "google.com", u.ProviderID)

	_, err = svc.SignInWithCredential(context.Background(), &shared.IDPCredential{ProviderID: "google.com"})
	authErr, ok := common.IsAuthError(err)
	require.True(t, ok)
	assert.Equal(t, common.CodeArgumentError, authErr.Code)
}

func TestIdentityService_PersistsAndRestoresSession(t *testing.T) {
	store := localstore.NewMemoryStore()
	svc, _ := newTestIdentity(t, store)

	_, err := svc.SignInWithEmailAndPassword(context.Background(), "ada@example.com", "secret")
	require.NoError(t, err)

	raw, err := store.Get(context.Background(), "firebase:authUser:test-key")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"refreshToken":"refresh-1"`)

	restored, _ := newTestIdentity(t, store)
	require.NotNil(t, restored.CurrentUser())
	assert.Equal(t, "uid-1", restored.CurrentUser().UID)

	events := collect(t, restored)
	got := next(t, events)
	require.NotNil(t, got, "restored user is delivered on subscribe")
	assert.Equal(t, "uid-1", got.UID)

	require.NoError(t, restored.SignOut(context.Background()))
	_, err = store.Get(context.Background(), "firebase:authUser:test-key")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestIdentityService_IDTokenRefresh(t *testing.T) {
	svc, stub := newTestIdentity(t, localstore.NewMemoryStore())

	_, err := svc.IDToken(context.Background(), false)
	authErr, ok := common.IsAuthError(err)
	require.True(t, ok)
	assert.Equal(t, common.CodeNullUser, authErr.Code)

	stub.setTTL(time.Minute)
	_, err = svc.SignInWithEmailAndPassword(context.Background(), "ada@example.com", "secret")
	require.NoError(t, err)

	tok, err := svc.IDToken(context.Background(), false)
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
	assert.Equal(t, 1, stub.count("token"), "near-expiry token is refreshed")

	again, err := svc.IDToken(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, tok, again)
	assert.Equal(t, 1, stub.count("token"), "fresh token is reused")

	_, err = svc.IDToken(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, stub.count("token"))
}

func TestIdentityService_IDTokenRefreshFailure(t *testing.T) {
	svc, stub := newTestIdentity(t, localstore.NewMemoryStore())
	_, err := svc.SignInWithEmailAndPassword(context.Background(), "ada@example.com", "secret")
	require.NoError(t, err)

	stub.fail("token", "TOKEN_EXPIRED")
	_, err = svc.IDToken(context.Background(), true)
	authErr, ok := common.IsAuthError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, common.CodeUserTokenExpiry, authErr.Code)
}

func TestIdentityService_UpdateDisplayName(t *testing.T) {
	svc, stub := newTestIdentity(t, localstore.NewMemoryStore())

	err := svc.UpdateDisplayName(context.Background(), "Nobody")
	authErr, ok := common.IsAuthError(err)
	require.True(t, ok)
	assert.Equal(t, common.CodeNullUser, authErr.Code)

	_, err = svc.SignInWithEmailAndPassword(context.Background(), "ada@example.com", "secret")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateDisplayName(context.Background(), "Ada King"))
	assert.Equal(t, "Ada King", svc.CurrentUser().DisplayName)
	info := stub.setInfo()
	assert.Equal(t, "Ada King", info["displayName"])
	assert.NotEmpty(t, info["idToken"])
}

func TestNewCredential_ReadsExpiry(t *testing.T) {
	tok := signedToken(t, "u", 10*time.Minute)
	cred := newCredential(tok, "r")
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), cred.ExpiresAt, 5*time.Second)

	cred = newCredential("not-a-jwt", "r")
	assert.WithinDuration(t, time.Now().Add(time.Hour), cred.ExpiresAt, 5*time.Second)
}
