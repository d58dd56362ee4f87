package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/elonfeng/xpulse/pkg/producer"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Store caches raw producer responses per (source, handle) so repeated
// comparisons within the TTL do not re-scrape. Comparison results are never
// stored.
type Store interface {
	Get(ctx context.Context, source, handle string, maxAge time.Duration) ([]producer.RawRecord, bool)
	Put(ctx context.Context, source, handle string, records []producer.RawRecord) error
	Purge(ctx context.Context, olderThan time.Duration) (int64, error)
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type cacheRow struct {
	Source    string    `db:"source"`
	Handle    string    `db:"handle"`
	Records   string    `db:"records"`
	FetchedAt time.Time `db:"fetched_at"`
}

// Get returns the cached records for a handle if they are younger than
// maxAge. A zero maxAge disables reads entirely.
func (s *SQLiteStore) Get(ctx context.Context, source, handle string, maxAge time.Duration) ([]producer.RawRecord, bool) {
	if maxAge <= 0 {
		return nil, false
	}

	var row cacheRow
	err := s.db.GetContext(ctx, &row,
		"SELECT * FROM fetch_cache WHERE source = ? AND handle = ?", source, handle)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			fmt.Fprintf(os.Stderr, "  cache read %s/%s error: %v\n", source, handle, err)
		}
		return nil, false
	}

	if time.Since(row.FetchedAt) > maxAge {
		return nil, false
	}

	var records []producer.RawRecord
	if err := json.Unmarshal([]byte(row.Records), &records); err != nil {
		return nil, false
	}
	return records, true
}

// Put stores a handle's records, replacing any previous entry.
func (s *SQLiteStore) Put(ctx context.Context, source, handle string, records []producer.RawRecord) error {
	recordsJSON, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal records %s/%s: %w", source, handle, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO fetch_cache (source, handle, records, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source, handle) DO UPDATE SET
			records = excluded.records,
			fetched_at = excluded.fetched_at
	`, source, handle, string(recordsJSON), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert cache %s/%s: %w", source, handle, err)
	}
	return nil
}

// Purge deletes cache entries older than the given age and returns how many
// were removed.
func (s *SQLiteStore) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.ExecContext(ctx, "DELETE FROM fetch_cache WHERE fetched_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
