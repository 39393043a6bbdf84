// Package localstore is the persistent key-value store the session mirrors into,
// the process-side counterpart of a browser's localStorage.
package localstore

import (
	"context"
	"fmt"

	"firebase_auth_session/internal/config"
	"firebase_auth_session/internal/platform/database"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Store persists opaque values under string keys.
// Get returns common.ErrNotFound for absent keys; Delete of an absent key is not an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// New builds the store selected by LOCAL_STORE_DRIVER. The returned cleanup releases
// the underlying connection.
func New(cfg *config.Config, logger *zap.Logger) (Store, func(), error) {
	switch cfg.LocalStoreDriver {
	case config.StoreDriverMemory:
		logger.Info("Using in-memory local store; session state will not survive restarts")
		return NewMemoryStore(), func() {}, nil

	case config.StoreDriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		logger.Info("Using redis local store", zap.String("addr", cfg.RedisAddr))
		return NewRedisStore(client, cfg.RedisKeyPrefix), func() { client.Close() }, nil

	case config.StoreDriverSQLite:
		db, err := database.NewGORM(cfg)
		if err != nil {
			return nil, nil, err
		}
		s, err := NewSQLiteStore(db)
		if err != nil {
			database.CloseGORMDB(db)
			return nil, nil, err
		}
		logger.Info("Using sqlite local store", zap.String("path", cfg.LocalStorePath))
		return s, func() { database.CloseGORMDB(db) }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported local store driver %q", cfg.LocalStoreDriver)
	}
}
