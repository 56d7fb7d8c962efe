package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/trustedloops-edge/internal/domain"
	"github.com/tbourn/trustedloops-edge/internal/repo"
)

// SQLStore persists entries in the edge_cache_entries table through GORM.
type SQLStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSQLStore wraps db. The table must already be migrated (repo.AutoMigrate).
func NewSQLStore(db *gorm.DB, now func() time.Time) *SQLStore {
	if now == nil {
		now = time.Now
	}
	return &SQLStore{db: db, now: now}
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, key string) (Entry, error) {
	row, err := repo.GetCacheEntry(ctx, s.db, key, s.now().UTC())
	if errors.Is(err, repo.ErrNotFound) {
		return Entry{}, ErrMiss
	}
	if err != nil {
		return Entry{}, err
	}
	h := http.Header{}
	if row.Header != "" {
		if err := json.Unmarshal([]byte(row.Header), &h); err != nil {
			return Entry{}, fmt.Errorf("decode cached header: %w", err)
		}
	}
	return Entry{Status: row.Status, Header: h, Body: row.Body, ExpiresAt: row.ExpiresAt}, nil
}

// Set implements Store.
func (s *SQLStore) Set(ctx context.Context, key string, e Entry) error {
	hdr, err := json.Marshal(e.Header)
	if err != nil {
		return err
	}
	return repo.PutCacheEntry(ctx, s.db, &domain.CacheEntry{
		Key:       key,
		Status:    e.Status,
		Header:    string(hdr),
		Body:      e.Body,
		CreatedAt: s.now().UTC(),
		ExpiresAt: e.ExpiresAt.UTC(),
	})
}

// Purge removes expired rows and reports how many were deleted.
func (s *SQLStore) Purge(ctx context.Context) (int64, error) {
	return repo.PurgeExpiredCacheEntries(ctx, s.db, s.now().UTC())
}
