// Package repo implements the persistence helpers for the process-lifetime
// tables (edge cache entries and idempotency keys), backed by GORM over the
// pure-Go SQLite driver. The default DSN is an in-memory shared-cache database
// so nothing outlives the process unless DB_PATH points at a file.
package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/trustedloops-edge/internal/domain"
)

// ErrNotFound is returned when no live row matches a lookup.
var ErrNotFound = gorm.ErrRecordNotFound

const defaultMaxConns = 10

// Options tunes Open.
type Options struct {
	Tracing  bool // GORM OpenTelemetry plugin, spans only
	MaxConns int  // default 10
}

// Open connects to dsn, which is either a file path or a "file:" URI. For a
// path the parent directory must already exist. File databases run in WAL
// mode; in-memory ones keep their connections for the process lifetime,
// since the data goes away with the last one.
func Open(dsn string, opts Options) (*gorm.DB, error) {
	memory := isMemoryDSN(dsn)
	if !strings.HasPrefix(dsn, "file:") && !memory {
		if dir := filepath.Dir(dsn); dir != "." {
			if _, err := os.Stat(dir); err != nil {
				return nil, fmt.Errorf("db dir: %w", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	if opts.Tracing {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, fmt.Errorf("db tracing: %w", err)
		}
	}

	pragmas := []string{"synchronous=NORMAL", "busy_timeout=5000"}
	if !memory {
		pragmas = append([]string{"journal_mode=WAL"}, pragmas...)
	}
	for _, p := range pragmas {
		if err := db.Exec("PRAGMA " + p).Error; err != nil {
			return nil, fmt.Errorf("pragma %s: %w", p, err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	n := opts.MaxConns
	if n <= 0 {
		n = defaultMaxConns
	}
	sqlDB.SetMaxOpenConns(n)
	sqlDB.SetMaxIdleConns(n)
	if !memory {
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

// AutoMigrate creates the cache and idempotency tables.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("repo: nil db")
	}
	return db.AutoMigrate(&domain.CacheEntry{}, &domain.Idempotency{})
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}
