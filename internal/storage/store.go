// Package storage provides the versioned key-value ledger the engines run on.
package storage

import (
	"context"
	"errors"
)

// ErrConflict is returned when a commit's read set changed underneath it.
// Nothing from the transaction was written; the caller may retry.
var ErrConflict = errors.New("storage: write conflict")

// ErrReadOnly is returned by Put inside a View transaction.
var ErrReadOnly = errors.New("storage: read-only transaction")

// Record is a stored value with the version it was written at.
// Version 0 means the key is absent.
type Record struct {
	Value   string
	Version int64
}

// Write is a buffered full-value replacement of one key.
type Write struct {
	Key   string
	Value string
}

// ChangeSet is what a transaction asks a backend to commit.
type ChangeSet struct {
	// ID uniquely identifies the commit in the backend's log.
	ID string

	// Reads maps every key the transaction read to the version it observed.
	Reads map[string]int64

	// Writes are applied in order, all or nothing.
	Writes []Write
}

// LogEntry is one historical value of a key.
type LogEntry struct {
	Key         string
	Value       string
	Version     int64
	CommitID    string
	CommittedAt int64
}

// Backend defines the primitive operations a ledger backend must provide.
// This abstraction allows swapping storage engines (memory, SQLite, LevelDB)
// without changing the engines.
type Backend interface {
	// Load returns the current record for key, or a zero Record if absent.
	Load(ctx context.Context, key string) (Record, error)

	// Commit atomically verifies that every key in cs.Reads is still at the
	// observed version and applies cs.Writes. It returns ErrConflict, and
	// writes nothing, if any read is stale.
	Commit(ctx context.Context, cs *ChangeSet) error

	// Close releases any resources held by the backend.
	Close() error
}

// Ledger runs operations as optimistic transactions over a Backend.
type Ledger interface {
	// View runs fn against a read-only transaction.
	View(ctx context.Context, fn func(tx *Txn) error) error

	// Update runs fn and commits its writes as one unit if nothing it read
	// has changed. If fn returns an error nothing is committed.
	Update(ctx context.Context, fn func(tx *Txn) error) error

	// Close releases the underlying backend.
	Close() error
}

// Historian is implemented by backends that keep every committed value.
type Historian interface {
	// History returns the values key has held, oldest first.
	History(ctx context.Context, key string) ([]LogEntry, error)
}
