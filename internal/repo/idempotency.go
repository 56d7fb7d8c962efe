package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/trustedloops-edge/internal/domain"
)

// IdempotencyStore remembers completed feedback submissions per
// (client key, Idempotency-Key) for ttl.
type IdempotencyStore struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewIdempotencyStore returns a store over db. The table must be migrated.
func NewIdempotencyStore(db *gorm.DB, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{db: db, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// Get returns the live record for (clientKey, key) or ErrNotFound.
func (s *IdempotencyStore) Get(ctx context.Context, clientKey, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := s.db.WithContext(ctx).
		Where("client_key = ? AND key = ? AND expires_at > ?", clientKey, key, now).
		Take(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Seen reports whether a live record exists. Its signature matches
// middleware.IdempotencyLookup.
func (s *IdempotencyStore) Seen(ctx context.Context, clientKey, key string, now time.Time) (bool, error) {
	_, err := s.Get(ctx, clientKey, key, now)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Remember records (clientKey, key) as completed with status. When a record
// already exists the first outcome wins and nil is returned.
func (s *IdempotencyStore) Remember(ctx context.Context, clientKey, key string, status int) error {
	now := s.now()
	rec := &domain.Idempotency{
		ID:        uuid.NewString(),
		ClientKey: clientKey,
		Key:       key,
		Status:    status,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "client_key"}, {Name: "key"}},
			DoNothing: true,
		}).
		Create(rec).Error
}

// Purge deletes records that expired at or before now.
func (s *IdempotencyStore) Purge(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.Idempotency{})
	return res.RowsAffected, res.Error
}
