// Package session owns the process-wide view of who is signed in: the platform user pushed by
// auth-state events, the application profile written by auth operations and its local cache
// entry. Both the auth adapter and the facade read and write through one Holder.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"firebase_auth_session/internal/common"
	"firebase_auth_session/internal/localstore"
	"firebase_auth_session/internal/shared"
	"firebase_auth_session/internal/user"

	"go.uber.org/zap"
)

// ProfileKey is the local store key holding the cached profile.
const ProfileKey = "user"

// Holder is safe for concurrent use.
type Holder struct {
	store  localstore.Store
	logger *zap.Logger

	mu           sync.RWMutex
	platformUser *shared.AuthUser
	profile      *user.Profile
	callback     shared.AuthStateListener
	waiters      []chan *shared.AuthUser

	inFlight chan struct{}
}

// New creates an empty holder. Call Load to seed it from the store.
func New(store localstore.Store, logger *zap.Logger) *Holder {
	return &Holder{
		store:    store,
		logger:   logger.Named("SessionHolder"),
		inFlight: make(chan struct{}, 1),
	}
}

// Load seeds the in-memory profile from the local store. An unreadable entry is treated as absent.
func (h *Holder) Load(ctx context.Context) error {
	p, err := h.readProfile(ctx)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.profile = p
	h.mu.Unlock()
	if p != nil {
		h.logger.Debug("Seeded profile from local store", zap.String("uid", p.UID))
	}
	return nil
}

// Bind subscribes the holder to the platform's auth-state events.
func (h *Holder) Bind(idp shared.IdentityProvider) (unsubscribe func()) {
	return idp.OnAuthStateChanged(h.handleAuthState)
}

func (h *Holder) handleAuthState(u *shared.AuthUser) {
	h.mu.Lock()
	h.platformUser = u.Clone()
	cb := h.callback
	waiters := h.waiters
	h.waiters = nil
	h.mu.Unlock()

	if u != nil {
		h.logger.Debug("Auth state: authenticated", zap.String("uid", u.UID))
	} else {
		h.logger.Debug("Auth state: unauthenticated")
	}

	if cb != nil {
		cb(u.Clone())
	}
	for _, w := range waiters {
		w <- u.Clone()
	}
}

// OnAuthStateChange registers the single auth-state callback; a later registration replaces
// it. A nil callback removes it.
func (h *Holder) OnAuthStateChange(cb shared.AuthStateListener) {
	h.mu.Lock()
	h.callback = cb
	h.mu.Unlock()
}

// WaitForTransition blocks until the next auth-state event and returns its user (nil when
// the event is a sign-out).
func (h *Holder) WaitForTransition(ctx context.Context) (*shared.AuthUser, error) {
	return h.await(ctx, h.addWaiter())
}

// BindAndWait subscribes like Bind and then waits for the platform to report its initial
// state, so reads made afterwards reflect a restored session.
func (h *Holder) BindAndWait(ctx context.Context, idp shared.IdentityProvider) (unsubscribe func(), err error) {
	ch := h.addWaiter()
	unsubscribe = h.Bind(idp)
	if _, err := h.await(ctx, ch); err != nil {
		unsubscribe()
		return nil, err
	}
	return unsubscribe, nil
}

func (h *Holder) addWaiter() chan *shared.AuthUser {
	ch := make(chan *shared.AuthUser, 1)
	h.mu.Lock()
	h.waiters = append(h.waiters, ch)
	h.mu.Unlock()
	return ch
}

func (h *Holder) await(ctx context.Context, ch chan *shared.AuthUser) (*shared.AuthUser, error) {
	select {
	case u := <-ch:
		return u, nil
	case <-ctx.Done():
		h.mu.Lock()
		for i, w := range h.waiters {
			if w == ch {
				h.waiters = append(h.waiters[:i], h.waiters[i+1:]...)
				break
			}
		}
		h.mu.Unlock()
		return nil, ctx.Err()
	}
}

// PlatformUser is the user from the last auth-state event.
func (h *Holder) PlatformUser() *shared.AuthUser {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.platformUser.Clone()
}

// Profile is the in-memory profile written by the last successful operation.
func (h *Holder) Profile() *user.Profile {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.profile.Clone()
}

// StoredProfile reads the cached profile straight from the local store. It returns nil when
// the entry is absent or cannot be decoded.
func (h *Holder) StoredProfile(ctx context.Context) *user.Profile {
	p, err := h.readProfile(ctx)
	if err != nil {
		h.logger.Warn("Failed to read cached profile", zap.Error(err))
		return nil
	}
	return p
}

// SaveProfile replaces the profile in memory and in the local store.
func (h *Holder) SaveProfile(ctx context.Context, p *user.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := h.store.Set(ctx, ProfileKey, raw); err != nil {
		return fmt.Errorf("failed to cache profile: %w", err)
	}
	h.mu.Lock()
	h.profile = p.Clone()
	h.mu.Unlock()
	return nil
}

// ClearProfile drops the profile from memory and removes the cache entry.
func (h *Holder) ClearProfile(ctx context.Context) error {
	h.mu.Lock()
	h.profile = nil
	h.mu.Unlock()
	if err := h.store.Delete(ctx, ProfileKey); err != nil {
		return fmt.Errorf("failed to remove cached profile: %w", err)
	}
	return nil
}

// Exclusive runs fn while holding the in-flight guard. Callers queue behind the operation in
// progress; if ctx ends while waiting, fn is not run and ctx.Err() is returned.
func (h *Holder) Exclusive(ctx context.Context, fn func(ctx context.Context)) error {
	select {
	case h.inFlight <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-h.inFlight }()
	fn(ctx)
	return nil
}

func (h *Holder) readProfile(ctx context.Context) (*user.Profile, error) {
	raw, err := h.store.Get(ctx, ProfileKey)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var p user.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Warn("Ignoring unparsable cached profile", zap.Error(err))
		return nil, nil
	}
	return &p, nil
}
