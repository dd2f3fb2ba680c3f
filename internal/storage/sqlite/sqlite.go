// Package sqlite provides a SQLite-backed implementation of the storage.Backend interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/groupbuy/internal/storage"
)

// Ensure Backend implements storage.Backend and storage.Historian
var (
	_ storage.Backend   = (*Backend)(nil)
	_ storage.Historian = (*Backend)(nil)
)

// Backend implements storage.Backend using SQLite.
type Backend struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new Backend with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*Backend, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection serializes commits; SQLite allows a single writer anyway.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Backend{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (b *Backend) Close() error {
	return b.db.Close()
}

// Load returns the current record for key.
func (b *Backend) Load(ctx context.Context, key string) (storage.Record, error) {
	var rec storage.Record
	err := b.db.QueryRowContext(ctx,
		"SELECT value, version FROM ledger WHERE key = ?",
		key,
	).Scan(&rec.Value, &rec.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Record{}, nil
	}
	if err != nil {
		return storage.Record{}, fmt.Errorf("failed to load key: %w", err)
	}
	return rec, nil
}

// Commit validates the read set and applies all writes in one SQL transaction.
func (b *Backend) Commit(ctx context.Context, cs *storage.ChangeSet) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for key, want := range cs.Reads {
		got, err := currentVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		if got != want {
			return storage.ErrConflict
		}
	}

	committedAt := b.now().UnixMilli()
	for _, w := range cs.Writes {
		version, err := currentVersion(ctx, tx, w.Key)
		if err != nil {
			return err
		}
		version++

		_, err = tx.ExecContext(ctx,
			`INSERT INTO ledger (key, value, version) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, version = excluded.version`,
			w.Key, w.Value, version,
		)
		if err != nil {
			return fmt.Errorf("failed to write key: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO ledger_log (key, version, value, commit_id, committed_at)
			 VALUES (?, ?, ?, ?, ?)`,
			w.Key, version, w.Value, cs.ID, committedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to append log entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// History returns every committed value of key, oldest first.
func (b *Backend) History(ctx context.Context, key string) ([]storage.LogEntry, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT key, value, version, commit_id, committed_at
		 FROM ledger_log WHERE key = ? ORDER BY version`,
		key,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []storage.LogEntry
	for rows.Next() {
		var e storage.LogEntry
		if err := rows.Scan(&e.Key, &e.Value, &e.Version, &e.CommitID, &e.CommittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}

	return entries, nil
}

func currentVersion(ctx context.Context, tx *sql.Tx, key string) (int64, error) {
	var version int64
	err := tx.QueryRowContext(ctx, "SELECT version FROM ledger WHERE key = ?", key).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read version: %w", err)
	}
	return version, nil
}
