package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateCache registers a named cache; opening an existing name is a no-op
func (db *DB) CreateCache(ctx context.Context, name string) error {
	query := `INSERT INTO caches (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`
	if _, err := db.conn.ExecContext(ctx, query, name, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to create cache %s: %w", name, err)
	}
	return nil
}

// HasCache reports whether a cache with the given name exists
func (db *DB) HasCache(ctx context.Context, name string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM caches WHERE name = ?`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to look up cache %s: %w", name, err)
	}
	return count > 0, nil
}

// CacheNames lists every registered cache in creation order
func (db *DB) CacheNames(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT name FROM caches ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list caches: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan cache name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeleteCache removes a cache and all of its entries
func (db *DB) DeleteCache(ctx context.Context, name string) (bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// entries go explicitly; the cascade only runs where foreign keys are on
	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_entries WHERE cache_name = ?`, name); err != nil {
		return false, fmt.Errorf("failed to delete entries of cache %s: %w", name, err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM caches WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("failed to delete cache %s: %w", name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit cache deletion: %w", err)
	}
	return affected > 0, nil
}

// PutCacheEntry stores or replaces the entry for entry.URL in the named cache
func (db *DB) PutCacheEntry(ctx context.Context, entry *CacheEntry) error {
	query := `
		INSERT INTO cache_entries (cache_name, url, status, header, body, stored_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_name, url) DO UPDATE SET
			status = excluded.status,
			header = excluded.header,
			body = excluded.body,
			stored_at = excluded.stored_at
	`

	_, err := db.conn.ExecContext(ctx, query,
		entry.CacheName,
		entry.URL,
		entry.Status,
		entry.Header,
		entry.Body,
		entry.StoredAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to store %s in cache %s: %w", entry.URL, entry.CacheName, err)
	}
	return nil
}

// MatchCacheEntry returns the stored entry for url, or nil when absent
func (db *DB) MatchCacheEntry(ctx context.Context, cacheName, url string) (*CacheEntry, error) {
	query := `
		SELECT cache_name, url, status, header, body, stored_at
		FROM cache_entries
		WHERE cache_name = ? AND url = ?
	`

	var entry CacheEntry
	var storedAt int64
	err := db.conn.QueryRowContext(ctx, query, cacheName, url).Scan(
		&entry.CacheName,
		&entry.URL,
		&entry.Status,
		&entry.Header,
		&entry.Body,
		&storedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to match %s in cache %s: %w", url, cacheName, err)
	}
	entry.StoredAt = time.UnixMilli(storedAt)

	return &entry, nil
}

// CacheEntryURLs lists the URLs stored in a cache
func (db *DB) CacheEntryURLs(ctx context.Context, cacheName string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT url FROM cache_entries WHERE cache_name = ? ORDER BY url`, cacheName)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache %s: %w", cacheName, err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan cache url: %w", err)
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}
