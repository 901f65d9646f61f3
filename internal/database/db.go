package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// DB represents the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection. driver is "sqlite3" (mattn, cgo)
// or "sqlite" (modernc, pure Go).
func New(driver, dbPath string) (*DB, error) {
	if dbPath != MemoryPath && !strings.HasPrefix(dbPath, "file:") {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open(driver, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection keeps :memory: databases coherent and serializes writers
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.InitSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the connection is usable
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// InitSchema creates the database tables if they don't exist
func (db *DB) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv_store (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS fill_runs (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		source TEXT NOT NULL,
		detected TEXT NOT NULL,
		filled TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		error TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS caches (
		name TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cache_entries (
		cache_name TEXT NOT NULL,
		url TEXT NOT NULL,
		status INTEGER NOT NULL,
		header TEXT NOT NULL,
		body BLOB,
		stored_at INTEGER NOT NULL,
		PRIMARY KEY (cache_name, url),
		FOREIGN KEY (cache_name) REFERENCES caches(name) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_fill_runs_created_at ON fill_runs(created_at);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Get returns the value stored under key; found is false when absent
func (db *DB) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := db.conn.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value
func (db *DB) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := db.conn.ExecContext(ctx, query, key, value, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

// SaveFillRun records one fill attempt
func (db *DB) SaveFillRun(ctx context.Context, run *FillRun) error {
	query := `
		INSERT INTO fill_runs (id, url, source, detected, filled, duration_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.conn.ExecContext(ctx, query,
		run.ID,
		run.URL,
		run.Source,
		joinFields(run.Detected),
		joinFields(run.Filled),
		run.DurationMs,
		nullString(run.Error),
		run.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save fill run: %w", err)
	}
	return nil
}

// RecentFillRuns returns the newest fill runs first
func (db *DB) RecentFillRuns(ctx context.Context, limit int) ([]FillRun, error) {
	query := `
		SELECT id, url, source, detected, filled, duration_ms, error, created_at
		FROM fill_runs
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query fill runs: %w", err)
	}
	defer rows.Close()

	var runs []FillRun
	for rows.Next() {
		var run FillRun
		var detected, filled string
		var errorStr sql.NullString
		var createdAt int64
		err := rows.Scan(
			&run.ID,
			&run.URL,
			&run.Source,
			&detected,
			&filled,
			&run.DurationMs,
			&errorStr,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fill run: %w", err)
		}
		run.Detected = splitFields(detected)
		run.Filled = splitFields(filled)
		run.CreatedAt = time.UnixMilli(createdAt)
		if errorStr.Valid {
			run.Error = errorStr.String
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Statistics counts what the database holds
type Statistics struct {
	FillRuns   int
	FailedRuns int
	Caches     int
}

// GetStatistics returns database statistics
func (db *DB) GetStatistics(ctx context.Context) (Statistics, error) {
	var stats Statistics
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM fill_runs", &stats.FillRuns},
		{"SELECT COUNT(*) FROM fill_runs WHERE error IS NOT NULL", &stats.FailedRuns},
		{"SELECT COUNT(*) FROM caches", &stats.Caches},
	}
	for _, q := range queries {
		if err := db.conn.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return Statistics{}, fmt.Errorf("failed to count: %w", err)
		}
	}
	return stats, nil
}

func joinFields(fields []string) string {
	return strings.Join(fields, ",")
}

func splitFields(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
