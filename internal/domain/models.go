// Package domain defines the value types exchanged between the HTTP layer,
// the services and the upstream adapters, plus the GORM models backing the
// process-lifetime tables (edge cache entries and idempotency keys).
package domain

import "time"

// Chat roles accepted in a conversation history.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is a single utterance in a conversation.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatReply is the reshaped answer returned to chat clients.
type ChatReply struct {
	Response string `json:"response"`
	Model    string `json:"model"`
}

// FeedPost is one cleaned RSS item.
//
// Title and Link are always non-empty; items lacking either are dropped by
// the parser. PubDate keeps the raw feed value while Date carries the display
// form (e.g. "Jan 5, 2025").
type FeedPost struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	PubDate     string `json:"pubDate"`
	Date        string `json:"date"`
	Author      string `json:"author"`
}

// Feed is the response body of the feed endpoint. Fetched is an ISO-8601 UTC
// timestamp with millisecond precision.
type Feed struct {
	Posts   []FeedPost `json:"posts"`
	Fetched string     `json:"fetched"`
}

// FeedbackSubmission is the contact form payload.
type FeedbackSubmission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// CacheEntry is the SQL persistence row for an edge cache entry. Key is
// "<METHOD> <full URL>"; Header holds the JSON-encoded replayable headers.
type CacheEntry struct {
	Key       string    `gorm:"type:varchar(512);primaryKey"`
	Status    int       `gorm:"not null"`
	Header    string    `gorm:"type:text;not null;default:'{}'"`
	Body      []byte    `gorm:"type:blob"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index:idx_cache_expires"`
}

// TableName returns the database table name for CacheEntry.
func (CacheEntry) TableName() string { return "edge_cache_entries" }
