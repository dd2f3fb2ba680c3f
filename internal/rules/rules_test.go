package rules

import (
	"context"
	"testing"
	"time"

	"github.com/raulk/clock"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/groupbuy/internal/failure"
	"github.com/mmynk/groupbuy/internal/models"
	"github.com/mmynk/groupbuy/internal/storage"
	"github.com/mmynk/groupbuy/internal/storage/memory"
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestRegistry(t *testing.T) (*Registry, *clock.Mock) {
	t.Helper()
	mClock := clock.NewMock()
	mClock.Set(epoch)
	return NewRegistry(storage.NewLedger(memory.New()), mClock), mClock
}

func TestCreateRule(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	rule, err := r.CreateRule(ctx, "S", "R1", "G", 3, 90, 100)
	require.NoError(t, err)
	require.Equal(t, models.RuleClosed, rule.RuleState)
	require.Zero(t, rule.StartTime)
	require.Zero(t, rule.EndTime)
	require.Zero(t, rule.OrderNum)
	require.Empty(t, rule.OrderIDs)

	_, err = r.CreateRule(ctx, "S2", "R1", "G2", 2, 1, 1)
	require.ErrorIs(t, err, failure.ErrRuleExists)

	book, err := r.QueryParticipation(ctx, "R1")
	require.NoError(t, err)
	require.Zero(t, book.OrderNum, "failed create must not overwrite the rule")
}

func TestCreateRuleValidation(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		ruleID   string
		groupNum int
		first    int64
		other    int64
	}{
		{"empty id", "", 3, 1, 1},
		{"zero capacity", "R", 0, 1, 1},
		{"negative price", "R", 2, -5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.CreateRule(ctx, "S", tt.ruleID, "G", tt.groupNum, tt.first, tt.other)
			require.Equal(t, failure.InvalidArgument, failure.KindOf(err))
		})
	}
}

func TestOpenRule(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	_, err := r.CreateRule(ctx, "S", "R1", "G", 3, 90, 100)
	require.NoError(t, err)

	rule, err := r.OpenRule(ctx, "R1", 60)
	require.NoError(t, err)
	require.Equal(t, models.RuleOpen, rule.RuleState)
	require.Equal(t, epoch.UnixMilli(), rule.StartTime)
	require.Equal(t, int64(60*60*1000), rule.Duration)
	require.Equal(t, rule.StartTime+rule.Duration, rule.EndTime)

	_, err = r.OpenRule(ctx, "R1", 10)
	require.ErrorIs(t, err, failure.ErrRuleOpen)

	_, err = r.OpenRule(ctx, "missing", 10)
	require.ErrorIs(t, err, failure.ErrRuleNotFound)

	_, err = r.OpenRule(ctx, "R1", 0)
	require.Equal(t, failure.InvalidArgument, failure.KindOf(err))
}

func TestOpenThenCloseResetsWindow(t *testing.T) {
	r, mClock := newTestRegistry(t)
	ctx := context.Background()
	_, err := r.CreateRule(ctx, "S", "R1", "G", 3, 90, 100)
	require.NoError(t, err)

	for _, minutes := range []int{1, 60, 7 * 24 * 60} {
		mClock.Add(time.Duration(minutes) * time.Second)
		_, err := r.OpenRule(ctx, "R1", minutes)
		require.NoError(t, err)

		rule, err := r.CloseRule(ctx, "R1")
		require.NoError(t, err)
		require.Equal(t, models.RuleClosed, rule.RuleState)
		require.Zero(t, rule.StartTime)
		require.Zero(t, rule.EndTime)
		require.Zero(t, rule.Duration)
	}

	_, err = r.CloseRule(ctx, "R1")
	require.ErrorIs(t, err, failure.ErrRuleClosed)

	_, err = r.CloseRule(ctx, "missing")
	require.ErrorIs(t, err, failure.ErrRuleNotFound)
}

func TestReopenKeepsOrderBook(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	_, err := r.CreateRule(ctx, "S", "R1", "G", 3, 90, 100)
	require.NoError(t, err)
	_, err = r.OpenRule(ctx, "R1", 5)
	require.NoError(t, err)
	_, err = r.RegisterOrder(ctx, "R1", "O1")
	require.NoError(t, err)

	_, err = r.CloseRule(ctx, "R1")
	require.NoError(t, err)
	rule, err := r.OpenRule(ctx, "R1", 5)
	require.NoError(t, err)

	require.Equal(t, 1, rule.OrderNum)
	require.Equal(t, []string{"O1"}, rule.OrderIDs)
}

func TestRegisterOrderKeepsCountInSync(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	_, err := r.CreateRule(ctx, "S", "R1", "G", 3, 90, 100)
	require.NoError(t, err)

	ids := []string{"O1", "O2", "O1", "O3"}
	for i, id := range ids {
		rule, err := r.RegisterOrder(ctx, "R1", id)
		require.NoError(t, err)
		require.Equal(t, i+1, rule.OrderNum)
		require.Len(t, rule.OrderIDs, rule.OrderNum)
	}

	book, err := r.QueryParticipation(ctx, "R1")
	require.NoError(t, err)
	require.Equal(t, len(ids), book.OrderNum, "duplicate registrations are counted twice")
	require.Equal(t, ids, book.OrderIDs)

	_, err = r.RegisterOrder(ctx, "missing", "O9")
	require.ErrorIs(t, err, failure.ErrRuleNotFound)
}

func TestQueryState(t *testing.T) {
	r, mClock := newTestRegistry(t)
	ctx := context.Background()
	_, err := r.CreateRule(ctx, "S", "R1", "G", 3, 90, 100)
	require.NoError(t, err)

	status, err := r.QueryState(ctx, "R1")
	require.NoError(t, err)
	require.Equal(t, models.RuleClosed, status.State)
	require.Zero(t, status.Remaining)

	_, err = r.OpenRule(ctx, "R1", 30)
	require.NoError(t, err)
	mClock.Add(10 * time.Minute)

	status, err = r.QueryState(ctx, "R1")
	require.NoError(t, err)
	require.Equal(t, models.RuleOpen, status.State)
	require.Equal(t, 20*time.Minute, status.Remaining)
	require.False(t, status.Expired)

	mClock.Add(21 * time.Minute)
	status, err = r.QueryState(ctx, "R1")
	require.NoError(t, err)
	require.True(t, status.Expired)
	require.Zero(t, status.Remaining)

	_, err = r.QueryState(ctx, "missing")
	require.ErrorIs(t, err, failure.ErrRuleNotFound)
}

func TestLoadTreatsOtherRecordTypesAsMissing(t *testing.T) {
	store := storage.NewLedger(memory.New())
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, func(tx *storage.Txn) error {
		raw, err := models.Encode(&models.GroupBuyingOrder{GroupBuyingID: "X", GroupNum: 2, CurrentNum: 1})
		if err != nil {
			return err
		}
		return tx.Put("X", raw)
	}))

	r := NewRegistry(store, clock.NewMock())
	_, err := r.QueryState(ctx, "X")
	require.ErrorIs(t, err, failure.ErrRuleNotFound)

	_, err = r.CreateRule(ctx, "S", "X", "G", 2, 1, 1)
	require.ErrorIs(t, err, failure.ErrRuleExists, "occupied key must block creation")
}
