package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/trustedloops-edge/internal/domain"
)

// newTestDB opens a private in-memory database named after the test.
func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

// frozenStore pins the store clock so expiry boundaries are exact.
func frozenStore(t *testing.T, ttl time.Duration, at time.Time) *IdempotencyStore {
	t.Helper()
	s := NewIdempotencyStore(newTestDB(t, &domain.Idempotency{}), ttl)
	s.now = func() time.Time { return at }
	return s
}

func TestIdempotencyStore_Seen(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := frozenStore(t, time.Hour, t0)
	ctx := context.Background()
	if err := s.Remember(ctx, "198.51.100.7", "fb-1", 200); err != nil {
		t.Fatalf("Remember: %v", err)
	}

	cases := []struct {
		name   string
		client string
		key    string
		at     time.Time
		want   bool
	}{
		{"same client within ttl", "198.51.100.7", "fb-1", t0.Add(59 * time.Minute), true},
		{"other client", "198.51.100.8", "fb-1", t0, false},
		{"other key", "198.51.100.7", "fb-2", t0, false},
		{"at expiry", "198.51.100.7", "fb-1", t0.Add(time.Hour), false},
		{"blank key", "198.51.100.7", "  ", t0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hit, err := s.Seen(ctx, tc.client, tc.key, tc.at)
			if err != nil || hit != tc.want {
				t.Fatalf("Seen = %v, %v; want %v", hit, err, tc.want)
			}
		})
	}
}

func TestIdempotencyStore_Get(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := frozenStore(t, 90*time.Minute, t0)
	ctx := context.Background()
	if err := s.Remember(ctx, "c", "k", 201); err != nil {
		t.Fatalf("Remember: %v", err)
	}

	rec, err := s.Get(ctx, "c", "k", t0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.ID == "" || rec.Status != 201 || !rec.ExpiresAt.Equal(t0.Add(90*time.Minute)) {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if _, err := s.Get(ctx, "c", "missing", t0); err != ErrNotFound {
		t.Fatalf("missing key: got %v", err)
	}
}

func TestIdempotencyStore_RememberKeepsFirstOutcome(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := frozenStore(t, time.Hour, t0)
	ctx := context.Background()

	if err := s.Remember(ctx, "c", "k", 200); err != nil {
		t.Fatalf("first Remember: %v", err)
	}
	if err := s.Remember(ctx, "c", "k", 500); err != nil {
		t.Fatalf("duplicate Remember should be absorbed, got %v", err)
	}
	rec, err := s.Get(ctx, "c", "k", t0)
	if err != nil || rec.Status != 200 {
		t.Fatalf("first outcome lost: %+v %v", rec, err)
	}
	var n int64
	s.db.Model(&domain.Idempotency{}).Count(&n)
	if n != 1 {
		t.Fatalf("rows = %d; want 1", n)
	}
}

func TestIdempotencyStore_MissingTable(t *testing.T) {
	s := NewIdempotencyStore(newTestDB(t), time.Minute)
	ctx := context.Background()

	if err := s.Remember(ctx, "c", "k", 200); err == nil {
		t.Fatal("Remember without table should fail")
	}
	if hit, err := s.Seen(ctx, "c", "k", time.Now().UTC()); hit || err == nil {
		t.Fatalf("Seen without table = %v, %v; want false and an error", hit, err)
	}
}

func TestIdempotencyStore_Purge(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := frozenStore(t, time.Hour, t0)
	ctx := context.Background()
	for _, k := range []string{"a", "b"} {
		if err := s.Remember(ctx, "c", k, 200); err != nil {
			t.Fatalf("seed %s: %v", k, err)
		}
	}
	s.now = func() time.Time { return t0.Add(30 * time.Minute) }
	if err := s.Remember(ctx, "c", "late", 200); err != nil {
		t.Fatalf("seed late: %v", err)
	}

	n, err := s.Purge(ctx, t0.Add(time.Hour))
	if err != nil || n != 2 {
		t.Fatalf("Purge = %d, %v; want 2", n, err)
	}
	if hit, _ := s.Seen(ctx, "c", "late", t0.Add(time.Hour)); !hit {
		t.Fatal("live record removed by purge")
	}
}
