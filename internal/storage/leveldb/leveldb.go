// Package leveldb provides a LevelDB-backed implementation of the storage.Backend interface.
package leveldb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	lvlstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/mmynk/groupbuy/internal/storage"
)

// Ensure Backend implements storage.Backend and storage.Historian
var (
	_ storage.Backend   = (*Backend)(nil)
	_ storage.Historian = (*Backend)(nil)
)

const (
	valuePrefix = "kv/"
	logPrefix   = "log/"
)

// envelope is the on-disk form of a current value.
type envelope struct {
	Version int64  `json:"version"`
	Value   string `json:"value"`
}

// logRecord is the on-disk form of a history entry.
type logRecord struct {
	Value       string `json:"value"`
	CommitID    string `json:"commitID"`
	CommittedAt int64  `json:"committedAt"`
}

// Backend is a persistent ledger backend using LevelDB.
type Backend struct {
	mu  sync.Mutex // serializes commits
	db  *leveldb.DB
	now func() time.Time
}

// Open creates or opens a LevelDB database at the specified path.
func Open(path string) (*Backend, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb: %w", err)
	}
	return &Backend{db: db, now: time.Now}, nil
}

// OpenMem opens a LevelDB database held entirely in memory.
func OpenMem() (*Backend, error) {
	db, err := leveldb.Open(lvlstorage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb: %w", err)
	}
	return &Backend{db: db, now: time.Now}, nil
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// Load returns the current record for key.
func (b *Backend) Load(_ context.Context, key string) (storage.Record, error) {
	env, err := b.load(key)
	if err != nil {
		return storage.Record{}, err
	}
	return storage.Record{Value: env.Value, Version: env.Version}, nil
}

func (b *Backend) load(key string) (envelope, error) {
	data, err := b.db.Get([]byte(valuePrefix+key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return envelope{}, nil
	}
	if err != nil {
		return envelope{}, fmt.Errorf("failed to get key: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, fmt.Errorf("corrupt record for %q: %w", key, err)
	}
	return env, nil
}

// Commit validates the read set and writes a single batch.
func (b *Backend) Commit(_ context.Context, cs *storage.ChangeSet) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, want := range cs.Reads {
		env, err := b.load(key)
		if err != nil {
			return err
		}
		if env.Version != want {
			return storage.ErrConflict
		}
	}

	committedAt := b.now().UnixMilli()
	batch := new(leveldb.Batch)
	versions := make(map[string]int64, len(cs.Writes))
	for _, w := range cs.Writes {
		version, ok := versions[w.Key]
		if !ok {
			env, err := b.load(w.Key)
			if err != nil {
				return err
			}
			version = env.Version
		}
		version++
		versions[w.Key] = version

		value, err := json.Marshal(envelope{Version: version, Value: w.Value})
		if err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
		batch.Put([]byte(valuePrefix+w.Key), value)

		entry, err := json.Marshal(logRecord{Value: w.Value, CommitID: cs.ID, CommittedAt: committedAt})
		if err != nil {
			return fmt.Errorf("failed to encode log entry: %w", err)
		}
		batch.Put(logKey(w.Key, version), entry)
	}

	if err := b.db.Write(batch, nil); err != nil {
		return fmt.Errorf("failed to write batch: %w", err)
	}
	return nil
}

// History returns every committed value of key, oldest first.
func (b *Backend) History(_ context.Context, key string) ([]storage.LogEntry, error) {
	iter := b.db.NewIterator(util.BytesPrefix([]byte(logPrefix+key+"/")), nil)
	defer iter.Release()

	var entries []storage.LogEntry
	for iter.Next() {
		suffix := string(iter.Key()[len(logPrefix)+len(key)+1:])
		if strings.Contains(suffix, "/") {
			// history of a longer key containing a slash
			continue
		}
		var rec logRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("corrupt log entry: %w", err)
		}
		var version int64
		if _, err := fmt.Sscanf(suffix, "%d", &version); err != nil {
			return nil, fmt.Errorf("corrupt log key %q: %w", iter.Key(), err)
		}
		entries = append(entries, storage.LogEntry{
			Key:         key,
			Value:       rec.Value,
			Version:     version,
			CommitID:    rec.CommitID,
			CommittedAt: rec.CommittedAt,
		})
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	return entries, nil
}

// logKey zero-pads the version so iteration order is version order.
func logKey(key string, version int64) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d", logPrefix, key, version))
}
