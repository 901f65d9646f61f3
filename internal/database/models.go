package database

import (
	"time"
)

// FillRun represents one auto-fill attempt against a page
type FillRun struct {
	ID         string    `db:"id" json:"id"`
	URL        string    `db:"url" json:"url"`
	Source     string    `db:"source" json:"source"` // "browser", "html" or "test"
	Detected   []string  `db:"detected" json:"detected"`
	Filled     []string  `db:"filled" json:"filled"`
	DurationMs int64     `db:"duration_ms" json:"durationMs"`
	Error      string    `db:"error" json:"error,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// CacheEntry is one stored response inside a named asset cache
type CacheEntry struct {
	CacheName string    `db:"cache_name"`
	URL       string    `db:"url"`
	Status    int       `db:"status"`
	Header    string    `db:"header"` // JSON encoded http.Header
	Body      []byte    `db:"body"`
	StoredAt  time.Time `db:"stored_at"`
}
