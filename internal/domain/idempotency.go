package domain

import "time"

// IdempotencyRecord remembers the outcome of a completed exchange, keyed by
// (user_id, key). A retried POST /chat carrying the same Idempotency-Key
// replays the stored assistant reply instead of re-running the provider
// round trip, so client retries never double-bill or fork the transcript.
type IdempotencyRecord struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	UserID    string    `gorm:"type:char(36);not null;uniqueIndex:ux_idem_user_key,priority:1"`
	Key       string    `gorm:"type:varchar(200);not null;uniqueIndex:ux_idem_user_key,priority:2"`
	ChatID    string    `gorm:"type:char(36);not null"`
	MessageID uint      `gorm:"not null"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"index"`
}

// TableName implements the GORM tabler interface.
func (IdempotencyRecord) TableName() string { return "idempotency" }
