// Package querylog records served queries in SQLite for operator review.
package querylog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/models"
)

// Log is an append-only query journal. Recording is best-effort by
// contract: callers must never fail a query because the journal write did.
type Log struct {
	db *sql.DB
}

// Entry is one served query.
type Entry struct {
	ID        string
	Query     string
	Status    models.Status
	TopScore  float64
	LatencyMS int64
	AskedAt   time.Time
}

// Open opens or creates the query log database at path. Parent directories
// are created if they do not exist.
func Open(path string) (*Log, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create query log directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open query log: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	schema := `
	CREATE TABLE IF NOT EXISTS queries (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		status TEXT NOT NULL,
		top_score REAL NOT NULL,
		latency_ms INTEGER NOT NULL,
		asked_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_queries_asked_at ON queries(asked_at);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize query log schema: %w", err)
	}
	return &Log{db: db}, nil
}

// Record appends one entry. The id and timestamp are assigned here.
func (l *Log) Record(ctx context.Context, e Entry) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO queries (id, query, status, top_score, latency_ms, asked_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), e.Query, string(e.Status), e.TopScore, e.LatencyMS, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record query: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, query, status, top_score, latency_ms, asked_at
		 FROM queries ORDER BY asked_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query log select: %w", err)
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		var status string
		if err := rows.Scan(&e.ID, &e.Query, &status, &e.TopScore, &e.LatencyMS, &e.AskedAt); err != nil {
			return nil, fmt.Errorf("query log scan: %w", err)
		}
		e.Status = models.Status(status)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the total number of recorded queries.
func (l *Log) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("query log count: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}
