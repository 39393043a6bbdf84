// File: internal/app/app.go
package app

import (
	"context"
	"fmt"
	"time"

	"firebase_auth_session/internal/auth"
	"firebase_auth_session/internal/config"
	"firebase_auth_session/internal/session"
	"firebase_auth_session/internal/shared"

	"go.uber.org/zap"
)

// startupTimeout bounds the wait for the platform's initial auth state.
const startupTimeout = 5 * time.Second

// App holds the wired session components for one process.
type App struct {
	Auth   *auth.Service
	Logger *zap.Logger

	cfg      *config.Config
	holder   *session.Holder
	identity shared.IdentityProvider
	unbind   func()
}

// New creates the application. Start must be called before the first operation.
func New(
	cfg *config.Config,
	logger *zap.Logger,
	authService *auth.Service,
	holder *session.Holder,
	identity shared.IdentityProvider,
) *App {
	return &App{
		Auth:     authService,
		Logger:   logger,
		cfg:      cfg,
		holder:   holder,
		identity: identity,
	}
}

// Start seeds the session from the local store and subscribes to auth-state events, returning
// once the platform has reported whether a persisted session was restored.
func (a *App) Start(ctx context.Context) error {
	if err := a.holder.Load(ctx); err != nil {
		return fmt.Errorf("failed to load cached profile: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()
	unbind, err := a.holder.BindAndWait(waitCtx, a.identity)
	if err != nil {
		return fmt.Errorf("no initial auth state from the platform: %w", err)
	}
	a.unbind = unbind

	fields := []zap.Field{zap.String("storeDriver", a.cfg.LocalStoreDriver)}
	if u := a.holder.PlatformUser(); u != nil {
		fields = append(fields, zap.String("uid", u.UID))
	}
	a.Logger.Debug("Session started", fields...)
	return nil
}

// Stop unsubscribes from auth-state events.
func (a *App) Stop() {
	if a.unbind != nil {
		a.unbind()
		a.unbind = nil
	}
	_ = a.Logger.Sync()
}
