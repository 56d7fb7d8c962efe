package domain

import "time"

// Idempotency marks a feedback submission as sent. ClientKey is the limiter's
// client identity, so the same Idempotency-Key from two clients names two
// different submissions. Rows are dead once ExpiresAt passes.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	ClientKey string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_client_key,priority:1"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_client_key,priority:2"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index:idx_idempotency_expires_at"`
}

func (Idempotency) TableName() string { return "idempotency" }
