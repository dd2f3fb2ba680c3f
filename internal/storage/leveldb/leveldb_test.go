package leveldb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mmynk/groupbuy/internal/storage"
	"github.com/mmynk/groupbuy/internal/storage/storagetest"
)

func TestBackend(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		b, err := OpenMem()
		require.NoError(t, err)
		t.Cleanup(func() { b.Close() })
		return b
	})
}

func TestHistoryOrderedByVersion(t *testing.T) {
	b, err := Open(filepath.Join(t.TempDir(), "ledger"))
	require.NoError(t, err)
	defer b.Close()

	ledger := storage.NewLedger(b)
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		require.NoError(t, ledger.Update(ctx, func(tx *storage.Txn) error {
			return tx.Put("O1", string(rune('a'+i)))
		}))
	}
	// A key sharing the prefix must not leak into O1's history.
	require.NoError(t, ledger.Update(ctx, func(tx *storage.Txn) error {
		return tx.Put("O1-2", "participant")
	}))

	entries, err := b.History(ctx, "O1")
	require.NoError(t, err)
	require.Len(t, entries, 12)
	for i, e := range entries {
		require.Equal(t, int64(i+1), e.Version)
		require.Equal(t, string(rune('a'+i)), e.Value)
	}
}
