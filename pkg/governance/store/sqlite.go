package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
    kind TEXT PRIMARY KEY,
    payload BLOB NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// SQLiteBackend stores snapshots in a SQLite file using the pure-Go driver.
type SQLiteBackend struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the snapshot database at path.
func OpenSQLite(path string, busyTimeout time.Duration, logger *slog.Logger) (*SQLiteBackend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	// pragmas are per connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d;", busyTimeout.Milliseconds())); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply snapshot schema: %w", err)
	}

	b := &SQLiteBackend{db: db, logger: logger.With("component", "governance.store.sqlite")}
	b.logger.Info("snapshot store opened", "path", path)
	return b, nil
}

// Put implements Backend.
func (b *SQLiteBackend) Put(ctx context.Context, kind string, payload []byte, at time.Time) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO snapshots (kind, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(kind) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		kind, payload, at.UnixNano())
	if err != nil {
		return fmt.Errorf("put %s: %w", kind, err)
	}
	b.logger.Debug("snapshot saved", "kind", kind, "bytes", len(payload))
	return nil
}

// Get implements Backend.
func (b *SQLiteBackend) Get(ctx context.Context, kind string) ([]byte, time.Time, error) {
	var payload []byte
	var at int64
	err := b.db.QueryRowContext(ctx, `SELECT payload, updated_at FROM snapshots WHERE kind = ?`, kind).Scan(&payload, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrNoSnapshot
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("get %s: %w", kind, err)
	}
	return payload, time.Unix(0, at).UTC(), nil
}

// Ping implements Backend.
func (b *SQLiteBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

// Close implements Backend.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
