// Package backend calls the application's own session endpoints, which turn a platform ID
// token into a server-side session cookie and clear it again.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"firebase_auth_session/internal/common"
	"firebase_auth_session/internal/config"
	"firebase_auth_session/internal/localstore"
	"firebase_auth_session/internal/shared"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

const (
	sessionLoginPath = "/api/auth/sessionLogin"
	logoutPath       = "/api/auth/logout"

	// RequestIDHeader carries a per-call id the backend can log.
	RequestIDHeader = "X-Request-ID"

	// CookieKey is the local store key holding the backend's session cookies between runs.
	CookieKey = "backend:sessionCookies"
)

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// StatusError is returned when an endpoint answers outside the 2xx range.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s returned %d: %s", e.Path, e.StatusCode, e.Body)
}

// SessionClient keeps the session cookie in its own jar, the way a browser would for
// credential-bearing requests. The jar is mirrored into the local store so a later process
// still sends the cookie.
type SessionClient struct {
	baseURL *url.URL
	client  *http.Client
	store   localstore.Store
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  *zap.Logger
}

var _ shared.SessionBackend = (*SessionClient)(nil)

// NewSessionClient builds the client from BACKEND_* settings and restores any session
// cookies saved by an earlier run.
func NewSessionClient(cfg *config.Config, store localstore.Store, logger *zap.Logger) (*SessionClient, error) {
	base, err := url.Parse(cfg.BackendBaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid BACKEND_BASE_URL %q", cfg.BackendBaseURL)
	}
	base.Path = strings.TrimRight(base.Path, "/")

	jar, err := newJar()
	if err != nil {
		return nil, err
	}

	log := logger.Named("SessionClient")
	threshold := uint32(cfg.BackendBreakerThreshold)
	if threshold == 0 {
		threshold = 5
	}

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "backend:session",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     cfg.BackendBreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	c := &SessionClient{
		baseURL: base,
		client:  &http.Client{Jar: jar, Timeout: cfg.BackendTimeout},
		store:   store,
		breaker: breaker,
		logger:  log,
	}
	if err := c.restoreCookies(context.Background()); err != nil {
		log.Warn("Discarding unreadable saved session cookies", zap.Error(err))
	}
	return c, nil
}

func newJar() (http.CookieJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return jar, nil
}

// SessionLogin posts the ID token to sessionLogin. The response body is not inspected.
func (c *SessionClient) SessionLogin(ctx context.Context, idToken string) error {
	body, err := json.Marshal(map[string]string{"idToken": idToken})
	if err != nil {
		return fmt.Errorf("failed to encode session login body: %w", err)
	}
	if err := c.post(ctx, sessionLoginPath, body); err != nil {
		return err
	}
	if err := c.saveCookies(ctx); err != nil {
		c.logger.Warn("Session cookie not saved; a later run will not send it", zap.Error(err))
	}
	return nil
}

// Logout asks the backend to clear its session cookie. The local cookies are dropped
// whether or not the backend answers.
func (c *SessionClient) Logout(ctx context.Context) error {
	err := c.post(ctx, logoutPath, nil)

	jar, jerr := newJar()
	if jerr != nil {
		return errors.Join(err, jerr)
	}
	c.client.Jar = jar
	if derr := c.store.Delete(ctx, CookieKey); derr != nil {
		c.logger.Warn("Failed to remove saved session cookies", zap.Error(derr))
	}
	return err
}

// Cookies returns the cookies the jar would send to the backend.
func (c *SessionClient) Cookies() []*http.Cookie {
	return c.client.Jar.Cookies(c.baseURL)
}

func (c *SessionClient) saveCookies(ctx context.Context) error {
	cookies := c.Cookies()
	if len(cookies) == 0 {
		return c.store.Delete(ctx, CookieKey)
	}
	saved := make([]storedCookie, 0, len(cookies))
	for _, ck := range cookies {
		saved = append(saved, storedCookie{Name: ck.Name, Value: ck.Value})
	}
	raw, err := json.Marshal(saved)
	if err != nil {
		return fmt.Errorf("failed to encode session cookies: %w", err)
	}
	if err := c.store.Set(ctx, CookieKey, raw); err != nil {
		return fmt.Errorf("failed to save session cookies: %w", err)
	}
	return nil
}

func (c *SessionClient) restoreCookies(ctx context.Context) error {
	raw, err := c.store.Get(ctx, CookieKey)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return err
	}
	var saved []storedCookie
	if err := json.Unmarshal(raw, &saved); err != nil {
		return fmt.Errorf("failed to decode session cookies: %w", err)
	}
	cookies := make([]*http.Cookie, 0, len(saved))
	for _, sc := range saved {
		cookies = append(cookies, &http.Cookie{Name: sc.Name, Value: sc.Value, Path: "/"})
	}
	c.client.Jar.SetCookies(c.baseURL, cookies)
	c.logger.Debug("Restored session cookies", zap.Int("count", len(cookies)))
	return nil
}

func (c *SessionClient) post(ctx context.Context, path string, body []byte) error {
	requestID := uuid.NewString()
	start := time.Now()

	_, err := c.breaker.Execute(func() (struct{}, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.String()+path, reader)
		if err != nil {
			return struct{}{}, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set(RequestIDHeader, requestID)

		resp, err := c.client.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return struct{}{}, &StatusError{Path: path, StatusCode: resp.StatusCode, Body: string(snippet)}
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		return struct{}{}, nil
	})

	fields := []zap.Field{
		zap.String("path", path),
		zap.String("requestID", requestID),
		zap.Duration("latency", time.Since(start)),
	}
	if err != nil {
		c.logger.Error("Backend session call failed", append(fields, zap.Error(err))...)
		return fmt.Errorf("backend %s: %w", path, err)
	}
	c.logger.Debug("Backend session call succeeded", fields...)
	return nil
}
