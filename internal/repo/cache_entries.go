package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/trustedloops-edge/internal/domain"
)

// GetCacheEntry returns the live entry stored under key, or ErrNotFound when
// the key is absent or its ExpiresAt is not after now.
func GetCacheEntry(ctx context.Context, db *gorm.DB, key string, now time.Time) (*domain.CacheEntry, error) {
	var e domain.CacheEntry
	err := db.WithContext(ctx).
		Where("key = ? AND expires_at > ?", key, now).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// PutCacheEntry inserts or replaces the entry stored under e.Key.
func PutCacheEntry(ctx context.Context, db *gorm.DB, e *domain.CacheEntry) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "header", "body", "created_at", "expires_at"}),
		}).
		Create(e).Error
}

// DeleteCacheEntry removes the entry stored under key (no-op if absent).
func DeleteCacheEntry(ctx context.Context, db *gorm.DB, key string) error {
	return db.WithContext(ctx).Where("key = ?", key).Delete(&domain.CacheEntry{}).Error
}

// PurgeExpiredCacheEntries deletes every entry whose ExpiresAt is not after now.
func PurgeExpiredCacheEntries(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.CacheEntry{})
	return res.RowsAffected, res.Error
}
