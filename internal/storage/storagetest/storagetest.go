// Package storagetest holds the conformance suite shared by every ledger backend.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mmynk/groupbuy/internal/storage"
)

// Run exercises the Backend contract against backends produced by open.
func Run(t *testing.T, open func(t *testing.T) storage.Backend) {
	t.Helper()

	t.Run("load absent key", func(t *testing.T) {
		b := open(t)
		rec, err := b.Load(context.Background(), "missing")
		require.NoError(t, err)
		require.Equal(t, storage.Record{}, rec)
	})

	t.Run("commit bumps versions", func(t *testing.T) {
		b := open(t)
		ctx := context.Background()

		require.NoError(t, b.Commit(ctx, &storage.ChangeSet{
			ID:     "c1",
			Reads:  map[string]int64{"k": 0},
			Writes: []storage.Write{{Key: "k", Value: "v1"}},
		}))
		rec, err := b.Load(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, storage.Record{Value: "v1", Version: 1}, rec)

		require.NoError(t, b.Commit(ctx, &storage.ChangeSet{
			ID:     "c2",
			Reads:  map[string]int64{"k": 1},
			Writes: []storage.Write{{Key: "k", Value: "v2"}},
		}))
		rec, err = b.Load(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, storage.Record{Value: "v2", Version: 2}, rec)
	})

	t.Run("stale read is rejected atomically", func(t *testing.T) {
		b := open(t)
		ctx := context.Background()

		require.NoError(t, b.Commit(ctx, &storage.ChangeSet{
			ID:     "c1",
			Writes: []storage.Write{{Key: "counter", Value: "1"}},
		}))

		err := b.Commit(ctx, &storage.ChangeSet{
			ID:    "c2",
			Reads: map[string]int64{"counter": 0},
			Writes: []storage.Write{
				{Key: "other", Value: "x"},
				{Key: "counter", Value: "2"},
			},
		})
		require.True(t, errors.Is(err, storage.ErrConflict), "expected conflict, got %v", err)

		rec, err := b.Load(ctx, "other")
		require.NoError(t, err)
		require.Zero(t, rec.Version, "no write may survive a rejected commit")

		rec, err = b.Load(ctx, "counter")
		require.NoError(t, err)
		require.Equal(t, "1", rec.Value)
	})

	t.Run("racing ledger updates", func(t *testing.T) {
		ledger := storage.NewLedger(open(t))
		ctx := context.Background()

		err := ledger.Update(ctx, func(tx *storage.Txn) error {
			if _, _, err := tx.Get("seat"); err != nil {
				return err
			}
			// Another writer commits between this read and this commit.
			require.NoError(t, ledger.Update(ctx, func(tx *storage.Txn) error {
				return tx.Put("seat", "winner")
			}))
			return tx.Put("seat", "loser")
		})
		require.ErrorIs(t, err, storage.ErrConflict)

		var got string
		require.NoError(t, ledger.View(ctx, func(tx *storage.Txn) error {
			v, _, err := tx.Get("seat")
			got = v
			return err
		}))
		require.Equal(t, "winner", got)
	})
}
