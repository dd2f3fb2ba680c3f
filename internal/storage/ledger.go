package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Ensure OptimisticLedger implements Ledger
var _ Ledger = (*OptimisticLedger)(nil)

// OptimisticLedger implements Ledger with read-set validation at commit time.
type OptimisticLedger struct {
	backend Backend
}

// NewLedger wraps backend in an optimistic transaction layer.
func NewLedger(backend Backend) *OptimisticLedger {
	return &OptimisticLedger{backend: backend}
}

// View runs fn against a read-only transaction.
func (l *OptimisticLedger) View(ctx context.Context, fn func(tx *Txn) error) error {
	return fn(newTxn(ctx, l.backend, true))
}

// Update runs fn and commits its buffered writes.
func (l *OptimisticLedger) Update(ctx context.Context, fn func(tx *Txn) error) error {
	tx := newTxn(ctx, l.backend, false)
	if err := fn(tx); err != nil {
		return err
	}
	if len(tx.writes) == 0 {
		return nil
	}

	cs := tx.changeSet(uuid.NewString())
	if err := l.backend.Commit(ctx, cs); err != nil {
		return fmt.Errorf("commit %s: %w", cs.ID, err)
	}
	return nil
}

// Close closes the backend.
func (l *OptimisticLedger) Close() error {
	return l.backend.Close()
}

// Txn is a single ledger transaction. It is not safe for concurrent use.
type Txn struct {
	ctx      context.Context
	backend  Backend
	readOnly bool

	reads  map[string]Record
	index  map[string]int
	writes []Write
}

func newTxn(ctx context.Context, backend Backend, readOnly bool) *Txn {
	return &Txn{
		ctx:      ctx,
		backend:  backend,
		readOnly: readOnly,
		reads:    make(map[string]Record),
		index:    make(map[string]int),
	}
}

// Get returns the value of key as seen by this transaction, including its
// own buffered writes. Repeated reads of a key return the same snapshot.
func (tx *Txn) Get(key string) (string, bool, error) {
	if i, ok := tx.index[key]; ok {
		return tx.writes[i].Value, true, nil
	}
	if rec, ok := tx.reads[key]; ok {
		return rec.Value, rec.Version > 0, nil
	}

	rec, err := tx.backend.Load(tx.ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("failed to load %q: %w", key, err)
	}
	tx.reads[key] = rec
	return rec.Value, rec.Version > 0, nil
}

// Put buffers a full replacement of key's value.
func (tx *Txn) Put(key, value string) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	if i, ok := tx.index[key]; ok {
		tx.writes[i].Value = value
		return nil
	}
	tx.index[key] = len(tx.writes)
	tx.writes = append(tx.writes, Write{Key: key, Value: value})
	return nil
}

func (tx *Txn) changeSet(id string) *ChangeSet {
	reads := make(map[string]int64, len(tx.reads))
	for key, rec := range tx.reads {
		reads[key] = rec.Version
	}
	writes := make([]Write, len(tx.writes))
	copy(writes, tx.writes)
	return &ChangeSet{ID: id, Reads: reads, Writes: writes}
}
