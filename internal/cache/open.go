package cache

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tbourn/trustedloops-edge/internal/config"
)

// Open builds the Store selected by cfg.Backend. db is required for "sqlite".
// For "redis" the server is pinged and an error returned if unreachable.
func Open(ctx context.Context, cfg config.CacheConfig, db *gorm.DB) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(nil), nil
	case "sqlite":
		if db == nil {
			return nil, errors.New("cache: sqlite backend requires a database")
		}
		return NewSQLStore(db, nil), nil
	case "redis":
		s := NewRedisStore(NewRedisClient(RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}), "", nil)
		if err := s.Ping(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", cfg.Backend)
	}
}
