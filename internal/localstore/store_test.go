package localstore

import (
	"context"
	"testing"

	"firebase_auth_session/internal/common"
	"firebase_auth_session/internal/config"
	"firebase_auth_session/internal/platform/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSQLite(t *testing.T) Store {
	t.Helper()
	db, err := database.Open(":memory:", &config.Config{LogLevel: "silent"})
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseGORMDB(db) })
	s, err := NewSQLiteStore(db)
	require.NoError(t, err)
	return s
}

func newRedis(t *testing.T) Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, "test:")
}

func TestStores(t *testing.T) {
	impls := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"sqlite": newSQLite,
		"redis":  newRedis,
	}

	for name, build := range impls {
		t.Run(name, func(t *testing.T) {
			s := build(t)
			ctx := context.Background()

			_, err := s.Get(ctx, "user")
			assert.ErrorIs(t, err, common.ErrNotFound)

			require.NoError(t, s.Set(ctx, "user", []byte(`{"uid":"1"}`)))
			got, err := s.Get(ctx, "user")
			require.NoError(t, err)
			assert.JSONEq(t, `{"uid":"1"}`, string(got))

			// Overwrite wins.
			require.NoError(t, s.Set(ctx, "user", []byte(`{"uid":"2"}`)))
			got, err = s.Get(ctx, "user")
			require.NoError(t, err)
			assert.JSONEq(t, `{"uid":"2"}`, string(got))

			require.NoError(t, s.Delete(ctx, "user"))
			_, err = s.Get(ctx, "user")
			assert.ErrorIs(t, err, common.ErrNotFound)

			// Deleting an absent key is not an error.
			assert.NoError(t, s.Delete(ctx, "user"))
		})
	}
}

func TestRedisStore_UsesPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedisStore(client, "authctl:")
	require.NoError(t, s.Set(context.Background(), "user", []byte("x")))

	val, err := mr.Get("authctl:user")
	require.NoError(t, err)
	assert.Equal(t, "x", val)
}

func TestNew_SelectsDriver(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := zap.NewNop()

	s, cleanup, err := New(&config.Config{LocalStoreDriver: config.StoreDriverRedis, RedisAddr: mr.Addr()}, logger)
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, &RedisStore{}, s)

	s, cleanup, err = New(&config.Config{LocalStoreDriver: config.StoreDriverMemory}, logger)
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, &MemoryStore{}, s)

	s, cleanup, err = New(&config.Config{LocalStoreDriver: config.StoreDriverSQLite, LocalStorePath: t.TempDir() + "/local.db"}, logger)
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, &SQLiteStore{}, s)

	_, _, err = New(&config.Config{LocalStoreDriver: "etcd"}, logger)
	assert.Error(t, err)
}
