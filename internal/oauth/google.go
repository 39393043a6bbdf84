// Package oauth runs the interactive Google sign-in: an authorization-code flow with PKCE
// whose redirect lands on a short-lived loopback server.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"firebase_auth_session/internal/common"
	"firebase_auth_session/internal/config"
	"firebase_auth_session/internal/middleware"
	"firebase_auth_session/internal/platform/crypto"
	"firebase_auth_session/internal/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleProviderID is the platform's provider id for Google credentials.
const GoogleProviderID = "google.com"

const callbackPath = "/callback"

// Prompter shows the authorization URL to the user, typically by printing it or opening a browser.
type Prompter func(authURL string) error

type callbackResult struct {
	code string
	err  error
}

// GoogleFlow implements shared.FederatedFlow.
type GoogleFlow struct {
	cfg        *config.Config
	endpoint   oauth2.Endpoint
	prompt     Prompter
	httpClient *http.Client
	logger     *zap.Logger
}

var _ shared.FederatedFlow = (*GoogleFlow)(nil)

// NewGoogleFlow creates the flow against Google's production endpoints.
func NewGoogleFlow(cfg *config.Config, prompt Prompter, logger *zap.Logger) *GoogleFlow {
	return &GoogleFlow{
		cfg:      cfg,
		endpoint: google.Endpoint,
		prompt:   prompt,
		logger:   logger.Named("GoogleFlow"),
	}
}

// WithEndpoint overrides the authorization and token endpoints.
func (f *GoogleFlow) WithEndpoint(e oauth2.Endpoint) *GoogleFlow {
	f.endpoint = e
	return f
}

// WithHTTPClient sets the client used for the code exchange.
func (f *GoogleFlow) WithHTTPClient(c *http.Client) *GoogleFlow {
	f.httpClient = c
	return f
}

func (f *GoogleFlow) oauthConfig(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     f.cfg.GoogleClientID,
		ClientSecret: f.cfg.GoogleClientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"openid", "profile", "email"},
		Endpoint:     f.endpoint,
	}
}

// Authenticate blocks until the user completes or abandons the consent screen, or until
// GOOGLE_SIGNIN_TIMEOUT_SECONDS elapses.
func (f *GoogleFlow) Authenticate(ctx context.Context) (*shared.IDPCredential, error) {
	if f.cfg.GoogleClientID == "" {
		return nil, common.NewAuthError("auth/auth-domain-config-required", "GOOGLE_CLIENT_ID is not set")
	}

	addr := net.JoinHostPort(f.cfg.GoogleRedirectHost, strconv.Itoa(f.cfg.GoogleRedirectPort))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to open loopback listener on %s: %w", addr, err)
	}

	state, err := crypto.GenerateSecureRandomString(32)
	if err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	verifier := oauth2.GenerateVerifier()
	conf := f.oauthConfig("http://" + listener.Addr().String() + callbackPath)

	results := make(chan callbackResult, 1)
	srv := &http.Server{
		Handler:           f.callbackRouter(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.logger.Error("Loopback server stopped", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := conf.AuthCodeURL(state,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
	f.logger.Info("Waiting for Google consent", zap.String("redirect", conf.RedirectURL))
	if err := f.prompt(authURL); err != nil {
		return nil, common.NewAuthError("auth/popup-blocked", "could not present the consent URL").WithCause(err)
	}

	waitCtx := ctx
	if f.cfg.GoogleSignInTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, f.cfg.GoogleSignInTimeout)
		defer cancel()
	}

	var res callbackResult
	select {
	case res = <-results:
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, common.NewAuthError(common.CodeTimeout, "no callback before the sign-in deadline")
	}
	if res.err != nil {
		return nil, res.err
	}

	if f.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	}
	tok, err := conf.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, common.NewAuthError(common.CodeInvalidCred, retrieveErr.ErrorCode).WithCause(err)
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, common.NewAuthError(common.CodeNetworkFailed, "code exchange failed").WithCause(err)
	}

	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return nil, common.NewAuthError(common.CodeInvalidCred, "token response carried no id_token")
	}
	f.logger.Info("Google consent completed")
	return &shared.IDPCredential{
		ProviderID:  GoogleProviderID,
		IDToken:     idToken,
		AccessToken: tok.AccessToken,
	}, nil
}

func (f *GoogleFlow) callbackRouter(state string, results chan<- callbackResult) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ZapLogger(f.logger, f.cfg), middleware.ErrorHandler(f.logger), gin.Recovery())

	deliver := func(res callbackResult) {
		select {
		case results <- res:
		default:
		}
	}

	r.GET(callbackPath, func(c *gin.Context) {
		// A stray request without our state must not end the flow.
		if c.Query("state") != state {
			c.String(http.StatusBadRequest, "Unexpected sign-in response.")
			return
		}

		if e := c.Query("error"); e != "" {
			var authErr *common.AuthError
			if e == "access_denied" {
				authErr = common.NewAuthError(common.CodePopupClosed, c.Query("error_description"))
			} else {
				authErr = common.NewAuthError(common.CodeInvalidCred, e)
			}
			deliver(callbackResult{err: authErr})
			_ = c.Error(authErr)
			return
		}

		code := c.Query("code")
		if code == "" {
			authErr := common.NewAuthError(common.CodeArgumentError, "callback carried no code")
			deliver(callbackResult{err: authErr})
			_ = c.Error(authErr)
			return
		}

		deliver(callbackResult{code: code})
		c.String(http.StatusOK, "Signed in. You can close this window and return to the terminal.")
	})
	return r
}
