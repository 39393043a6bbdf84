package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"firebase_auth_session/internal/localstore"
	"firebase_auth_session/internal/shared"
	"firebase_auth_session/internal/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newHolder(t *testing.T) (*Holder, localstore.Store) {
	t.Helper()
	store := localstore.NewMemoryStore()
	return New(store, zap.NewNop()), store
}

func TestHolder_SaveLoadClear(t *testing.T) {
	h, store := newHolder(t)
	ctx := context.Background()

	p := &user.Profile{UID: "u1", Email: "a@b.com", FirstName: "Ada", Role: user.RoleUser}
	require.NoError(t, h.SaveProfile(ctx, p))
	assert.Equal(t, p, h.Profile())
	assert.Equal(t, p, h.StoredProfile(ctx))

	// A second holder over the same store picks the profile up on Load.
	other := New(store, zap.NewNop())
	assert.Nil(t, other.Profile())
	require.NoError(t, other.Load(ctx))
	assert.Equal(t, p, other.Profile())

	require.NoError(t, h.ClearProfile(ctx))
	assert.Nil(t, h.Profile())
	assert.Nil(t, h.StoredProfile(ctx))
}

func TestHolder_ProfileIsCopied(t *testing.T) {
	h, _ := newHolder(t)
	p := &user.Profile{UID: "u1", FirstName: "Ada"}
	require.NoError(t, h.SaveProfile(context.Background(), p))

	p.FirstName = "changed"
	got := h.Profile()
	assert.Equal(t, "Ada", got.FirstName)
	got.FirstName = "changed again"
	assert.Equal(t, "Ada", h.Profile().FirstName)
}

func TestHolder_UnparsableEntryIsAbsent(t *testing.T) {
	h, store := newHolder(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, ProfileKey, []byte("{not json")))

	assert.Nil(t, h.StoredProfile(ctx))
	require.NoError(t, h.Load(ctx))
	assert.Nil(t, h.Profile())
}

func TestHolder_LastCallbackWins(t *testing.T) {
	h, _ := newHolder(t)

	var first, second []*shared.AuthUser
	h.OnAuthStateChange(func(u *shared.AuthUser) { first = append(first, u) })
	h.OnAuthStateChange(func(u *shared.AuthUser) { second = append(second, u) })

	h.handleAuthState(&shared.AuthUser{UID: "u1"})
	h.handleAuthState(nil)

	assert.Empty(t, first)
	require.Len(t, second, 2)
	assert.Equal(t, "u1", second[0].UID)
	assert.Nil(t, second[1])
	assert.Nil(t, h.PlatformUser())
}

func TestHolder_WaitForTransition(t *testing.T) {
	h, _ := newHolder(t)

	var wg sync.WaitGroup
	wg.Add(1)
	var got *shared.AuthUser
	var err error
	go func() {
		defer wg.Done()
		got, err = h.WaitForTransition(context.Background())
	}()

	// Give the waiter time to register before the event fires.
	require.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return len(h.waiters) == 1
	}, time.Second, time.Millisecond)

	h.handleAuthState(&shared.AuthUser{UID: "u1"})
	wg.Wait()
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UID)
	assert.Equal(t, "u1", h.PlatformUser().UID)
}

func TestHolder_WaitForTransitionCancelled(t *testing.T) {
	h, _ := newHolder(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := h.WaitForTransition(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, h.waiters)
}

func TestHolder_ExclusiveSerializes(t *testing.T) {
	h, _ := newHolder(t)

	var mu sync.Mutex
	active, maxActive := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := h.Exclusive(context.Background(), func(context.Context) {
				mu.Lock()
				active++
				if active > maxActive {
					maxActive = active
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				active--
				mu.Unlock()
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxActive)
}

func TestHolder_ExclusiveCancelledWhileQueued(t *testing.T) {
	h, _ := newHolder(t)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = h.Exclusive(context.Background(), func(context.Context) {
			close(started)
			<-release
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	ran := false
	err := h.Exclusive(ctx, func(context.Context) { ran = true })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ran)
	close(release)
}

// replayingProvider delivers the current user on subscribe from another goroutine,
// like the platform's dispatcher does.
type replayingProvider struct {
	shared.IdentityProvider
	current *shared.AuthUser
}

func (p *replayingProvider) OnAuthStateChanged(l shared.AuthStateListener) func() {
	go l(p.current.Clone())
	return func() {}
}

func TestHolder_BindAndWait(t *testing.T) {
	h, _ := newHolder(t)

	unsubscribe, err := h.BindAndWait(context.Background(), &replayingProvider{current: &shared.AuthUser{UID: "restored"}})
	require.NoError(t, err)
	defer unsubscribe()

	require.NotNil(t, h.PlatformUser())
	assert.Equal(t, "restored", h.PlatformUser().UID)
}
