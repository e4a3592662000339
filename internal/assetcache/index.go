package assetcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	indexSchemaVersion = 1
)

const indexSchema = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);
CREATE TABLE IF NOT EXISTS assets (
	locator      TEXT PRIMARY KEY,
	path         TEXT NOT NULL,
	kind         TEXT NOT NULL,
	size_bytes   INTEGER NOT NULL,
	fetched_at   TEXT NOT NULL,
	last_used_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assets_last_used ON assets(last_used_at);
`

// Entry is one indexed asset.
type Entry struct {
	Locator    string
	Path       string
	Kind       string
	SizeBytes  int64
	FetchedAt  time.Time
	LastUsedAt time.Time
}

// index persists cache entries in <root>/index.db.
type index struct {
	db *sql.DB
}

func openIndex(root string) (*index, error) {
	dbPath := filepath.Join(root, "index.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	idx := &index{db: db}
	if err := idx.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (i *index) initSchema(ctx context.Context) error {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, indexSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	var version int
	switch err := tx.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", indexSchemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version != indexSchemaVersion:
		return fmt.Errorf("asset index has version %d, expected %d (run 'storyreel cache prune --all' or delete index.db)", version, indexSchemaVersion)
	}
	return tx.Commit()
}

func (i *index) close() error {
	if i == nil || i.db == nil {
		return nil
	}
	return i.db.Close()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (i *index) exec(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := i.db.ExecContext(ctx, query, args...)
		return err
	})
}

func (i *index) upsert(ctx context.Context, e Entry) error {
	now := e.LastUsedAt.UTC().Format(time.RFC3339Nano)
	fetched := e.FetchedAt.UTC().Format(time.RFC3339Nano)
	return i.exec(ctx, `
INSERT INTO assets (locator, path, kind, size_bytes, fetched_at, last_used_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(locator) DO UPDATE SET
	path = excluded.path,
	kind = excluded.kind,
	size_bytes = excluded.size_bytes,
	fetched_at = excluded.fetched_at,
	last_used_at = excluded.last_used_at`,
		e.Locator, e.Path, e.Kind, e.SizeBytes, fetched, now)
}

func (i *index) touch(ctx context.Context, locator string, at time.Time) error {
	return i.exec(ctx, "UPDATE assets SET last_used_at = ? WHERE locator = ?",
		at.UTC().Format(time.RFC3339Nano), locator)
}

func (i *index) remove(ctx context.Context, locator string) error {
	return i.exec(ctx, "DELETE FROM assets WHERE locator = ?", locator)
}

// entries returns every indexed asset, least recently used first.
func (i *index) entries(ctx context.Context) ([]Entry, error) {
	var out []Entry
	err := retryOnBusy(ctx, func() error {
		out = out[:0]
		rows, err := i.db.QueryContext(ctx,
			"SELECT locator, path, kind, size_bytes, fetched_at, last_used_at FROM assets ORDER BY last_used_at ASC, locator ASC")
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				e                 Entry
				fetched, lastUsed string
			)
			if err := rows.Scan(&e.Locator, &e.Path, &e.Kind, &e.SizeBytes, &fetched, &lastUsed); err != nil {
				return err
			}
			e.FetchedAt, _ = time.Parse(time.RFC3339Nano, fetched)
			e.LastUsedAt, _ = time.Parse(time.RFC3339Nano, lastUsed)
			out = append(out, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return out, nil
}
