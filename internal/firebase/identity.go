package firebase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"firebase_auth_session/internal/common"
	"firebase_auth_session/internal/config"
	"firebase_auth_session/internal/localstore"
	"firebase_auth_session/internal/shared"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

const (
	// refreshSkew forces a refresh this long before the ID token expires.
	refreshSkew = 5 * time.Minute
	// idpRequestURI is echoed back by verifyAssertion; any registered http URI works.
	idpRequestURI = "http://localhost"

	providerPassword = "password"
)

// persistedSession is what the identity service keeps in the local store between runs.
type persistedSession struct {
	User       *shared.AuthUser   `json:"user"`
	Credential *shared.Credential `json:"credential"`
}

type authEvent struct {
	user   *shared.AuthUser
	target int // 0 means every listener
}

// IdentityService talks to the Identity Toolkit REST API on behalf of one signed-in user
// and keeps that user's session in the local store.
type IdentityService struct {
	relyingParty *identitytoolkit.RelyingpartyService
	secureToken  *oauth2.Config
	httpClient   *http.Client
	store        localstore.Store
	storeKey     string
	logger       *zap.Logger

	mu   sync.RWMutex
	user *shared.AuthUser
	cred *shared.Credential

	lmu       sync.Mutex
	listeners map[int]shared.AuthStateListener
	nextID    int

	events    chan authEvent
	done      chan struct{}
	closeOnce sync.Once
}

var _ shared.IdentityProvider = (*IdentityService)(nil)

// NewIdentityService builds the client, restores any persisted session and starts the
// auth-state dispatcher. Extra client options are appended after the API key.
func NewIdentityService(
	cfg *config.Config,
	store localstore.Store,
	logger *zap.Logger,
	opts ...option.ClientOption,
) (*IdentityService, func(), error) {
	ctx := context.Background()

	clientOpts := []option.ClientOption{option.WithAPIKey(cfg.FirebaseAPIKey)}
	if cfg.IdentityToolkitEndpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.IdentityToolkitEndpoint))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := identitytoolkit.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating identity toolkit client: %w", err)
	}

	s := &IdentityService{
		relyingParty: svc.Relyingparty,
		secureToken: &oauth2.Config{
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.SecureTokenEndpoint + "?key=" + url.QueryEscape(cfg.FirebaseAPIKey),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		store:     store,
		storeKey:  "firebase:authUser:" + cfg.FirebaseAPIKey,
		logger:    logger.Named("IdentityService"),
		listeners: make(map[int]shared.AuthStateListener),
		events:    make(chan authEvent, 64),
		done:      make(chan struct{}),
	}

	if err := s.restore(ctx); err != nil {
		s.logger.Warn("Discarding unreadable persisted session", zap.Error(err))
	}

	go s.dispatch()
	return s, s.Close, nil
}

// WithHTTPClient sets the client used for secure token refreshes.
func (s *IdentityService) WithHTTPClient(c *http.Client) *IdentityService {
	s.httpClient = c
	return s
}

// Close stops the auth-state dispatcher. Pending notifications are dropped.
func (s *IdentityService) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *IdentityService) CreateUserWithEmailAndPassword(ctx context.Context, email, password string) (*shared.AuthUser, error) {
	resp, err := s.relyingParty.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:    email,
		Password: password,
	}).Context(ctx).Do()
	if err != nil {
		return nil, toAuthError(err)
	}

	u := &shared.AuthUser{
		UID:         resp.LocalId,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
		ProviderID:  providerPassword,
	}
	if err := s.setSession(ctx, u, newCredential(resp.IdToken, resp.RefreshToken)); err != nil {
		return nil, err
	}
	s.logger.Info("Account created", zap.String("uid", u.UID))
	return u.Clone(), nil
}

func (s *IdentityService) SignInWithEmailAndPassword(ctx context.Context, email, password string) (*shared.AuthUser, error) {
	resp, err := s.relyingParty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, toAuthError(err)
	}

	u := &shared.AuthUser{
		UID:         resp.LocalId,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
		PhotoURL:    optional(resp.PhotoUrl),
		ProviderID:  providerPassword,
	}
	// verifyPassword does not report verification status; reload the account like the SDK does.
	if info, err := s.lookup(ctx, resp.IdToken); err == nil && info != nil {
		u.EmailVerified = info.EmailVerified
		if info.PhotoUrl != "" {
			u.PhotoURL = optional(info.PhotoUrl)
		}
	} else if err != nil {
		s.logger.Warn("Account lookup after sign-in failed", zap.String("uid", u.UID), zap.Error(err))
	}

	if err := s.setSession(ctx, u, newCredential(resp.IdToken, resp.RefreshToken)); err != nil {
		return nil, err
	}
	s.logger.Info("Signed in with password", zap.String("uid", u.UID))
	return u.Clone(), nil
}

func (s *IdentityService) SignInWithCredential(ctx context.Context, cred *shared.IDPCredential) (*shared.AuthUser, error) {
	if cred == nil || (cred.IDToken == "" && cred.AccessToken == "") {
		return nil, common.NewAuthError(common.CodeArgumentError, "federated credential is empty")
	}
	postBody := url.Values{"providerId": {cred.ProviderID}}
	if cred.IDToken != "" {
		postBody.Set("id_token", cred.IDToken)
	}
	if cred.AccessToken != "" {
		postBody.Set("access_token", cred.AccessToken)
	}

	resp, err := s.relyingParty.VerifyAssertion(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyAssertionRequest{
		PostBody:            postBody.Encode(),
		RequestUri:          idpRequestURI,
		ReturnSecureToken:   true,
		ReturnIdpCredential: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, toAuthError(err)
	}
	if resp.ErrorMessage != "" {
		return nil, common.NewAuthError(codeForReason(resp.ErrorMessage), resp.ErrorMessage)
	}
	if resp.NeedConfirmation {
		return nil, common.NewAuthError("auth/account-exists-with-different-credential", resp.Email)
	}

	displayName := resp.DisplayName
	if displayName == "" {
		displayName = resp.FullName
	}
	u := &shared.AuthUser{
		UID:           resp.LocalId,
		Email:         resp.Email,
		DisplayName:   displayName,
		PhotoURL:      optional(resp.PhotoUrl),
		EmailVerified: resp.EmailVerified,
		ProviderID:    cred.ProviderID,
	}
	if err := s.setSession(ctx, u, newCredential(resp.IdToken, resp.RefreshToken)); err != nil {
		return nil, err
	}
	s.logger.Info("Signed in with federated credential", zap.String("uid", u.UID), zap.String("provider", cred.ProviderID))
	return u.Clone(), nil
}

// UpdateDisplayName changes the current account's display name. Like the browser SDK this
// does not emit an auth-state transition.
func (s *IdentityService) UpdateDisplayName(ctx context.Context, displayName string) error {
	if s.CurrentUser() == nil {
		return common.NewAuthError(common.CodeNullUser, "no signed-in user")
	}
	idToken, err := s.IDToken(ctx, false)
	if err != nil {
		return err
	}

	resp, err := s.relyingParty.SetAccountInfo(&identitytoolkit.IdentitytoolkitRelyingpartySetAccountInfoRequest{
		IdToken:           idToken,
		DisplayName:       displayName,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return toAuthError(err)
	}

	s.mu.Lock()
	if s.user != nil {
		s.user.DisplayName = displayName
	}
	if resp.IdToken != "" && s.cred != nil {
		s.cred = newCredential(resp.IdToken, firstNonEmpty(resp.RefreshToken, s.cred.RefreshToken))
	}
	s.mu.Unlock()
	return s.persist(ctx)
}

// SignOut forgets the session locally and notifies listeners.
func (s *IdentityService) SignOut(ctx context.Context) error {
	s.mu.Lock()
	uid := ""
	if s.user != nil {
		uid = s.user.UID
	}
	s.user, s.cred = nil, nil
	s.mu.Unlock()

	if err := s.store.Delete(ctx, s.storeKey); err != nil {
		return fmt.Errorf("failed to clear persisted session: %w", err)
	}
	s.emit(authEvent{user: nil})
	s.logger.Info("Signed out", zap.String("uid", uid))
	return nil
}

func (s *IdentityService) CurrentUser() *shared.AuthUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

// IDToken returns the current ID token, exchanging the refresh token at the secure token
// endpoint when forced or when the token is about to expire.
func (s *IdentityService) IDToken(ctx context.Context, forceRefresh bool) (string, error) {
	s.mu.RLock()
	cred := s.cred
	s.mu.RUnlock()
	if cred == nil {
		return "", common.NewAuthError(common.CodeNullUser, "no signed-in user")
	}
	if !forceRefresh && time.Until(cred.ExpiresAt) > refreshSkew {
		return cred.IDToken, nil
	}

	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}
	tok, err := s.secureToken.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken}).Token()
	if err != nil {
		return "", toAuthError(err)
	}
	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return "", common.NewAuthError(codeInternal, "secure token response carried no id_token")
	}

	s.mu.Lock()
	if s.cred == nil {
		s.mu.Unlock()
		return "", common.NewAuthError(common.CodeNullUser, "signed out during token refresh")
	}
	s.cred = newCredential(idToken, firstNonEmpty(tok.RefreshToken, cred.RefreshToken))
	s.mu.Unlock()

	if err := s.persist(ctx); err != nil {
		s.logger.Warn("Failed to persist refreshed token", zap.Error(err))
	}
	s.logger.Debug("ID token refreshed", zap.Bool("forced", forceRefresh))
	return idToken, nil
}

// OnAuthStateChanged registers listener and queues the current state for it.
func (s *IdentityService) OnAuthStateChanged(listener shared.AuthStateListener) func() {
	s.lmu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = listener
	s.lmu.Unlock()

	s.emit(authEvent{user: s.CurrentUser(), target: id})

	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

func (s *IdentityService) lookup(ctx context.Context, idToken string) (*identitytoolkit.UserInfo, error) {
	resp, err := s.relyingParty.GetAccountInfo(&identitytoolkit.IdentitytoolkitRelyingpartyGetAccountInfoRequest{
		IdToken: idToken,
	}).Context(ctx).Do()
	if err != nil {
		return nil, toAuthError(err)
	}
	if len(resp.Users) == 0 {
		return nil, nil
	}
	return resp.Users[0], nil
}

func (s *IdentityService) setSession(ctx context.Context, u *shared.AuthUser, cred *shared.Credential) error {
	s.mu.Lock()
	s.user, s.cred = u.Clone(), cred
	s.mu.Unlock()

	if err := s.persist(ctx); err != nil {
		return err
	}
	s.emit(authEvent{user: u.Clone()})
	return nil
}

func (s *IdentityService) persist(ctx context.Context) error {
	s.mu.RLock()
	session := persistedSession{User: s.user.Clone(), Credential: s.cred}
	s.mu.RUnlock()
	if session.User == nil {
		return nil
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.store.Set(ctx, s.storeKey, raw); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

func (s *IdentityService) restore(ctx context.Context) error {
	raw, err := s.store.Get(ctx, s.storeKey)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return err
	}
	var session persistedSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return fmt.Errorf("failed to decode persisted session: %w", err)
	}
	if session.User == nil || session.Credential == nil || session.Credential.RefreshToken == "" {
		return nil
	}
	s.mu.Lock()
	s.user, s.cred = session.User, session.Credential
	s.mu.Unlock()
	s.logger.Debug("Restored persisted session", zap.String("uid", session.User.UID))
	return nil
}

func (s *IdentityService) emit(ev authEvent) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// dispatch delivers auth-state events one at a time, in the order they were emitted.
func (s *IdentityService) dispatch() {
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.events:
			s.lmu.Lock()
			var targets []shared.AuthStateListener
			if ev.target != 0 {
				if l, ok := s.listeners[ev.target]; ok {
					targets = append(targets, l)
				}
			} else {
				for _, l := range s.listeners {
					targets = append(targets, l)
				}
			}
			s.lmu.Unlock()

			for _, l := range targets {
				l(ev.user.Clone())
			}
		}
	}
}

// newCredential reads the expiry from the token's exp claim. The signature is the
// platform's concern and is not checked here.
func newCredential(idToken, refreshToken string) *shared.Credential {
	expiresAt := time.Now().Add(time.Hour)
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			expiresAt = exp.Time
		}
	}
	return &shared.Credential{IDToken: idToken, RefreshToken: refreshToken, ExpiresAt: expiresAt}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
