package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/raulk/clock"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/groupbuy/internal/failure"
	"github.com/mmynk/groupbuy/internal/groupbuy"
	"github.com/mmynk/groupbuy/internal/models"
	"github.com/mmynk/groupbuy/internal/rules"
	"github.com/mmynk/groupbuy/internal/storage"
	"github.com/mmynk/groupbuy/internal/storage/memory"
)

type fixture struct {
	rules  *rules.Registry
	groups *groupbuy.Engine
	engine *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mClock := clock.NewMock()
	mClock.Set(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	store := storage.NewLedger(memory.New())
	return &fixture{
		rules:  rules.NewRegistry(store, mClock),
		groups: groupbuy.NewEngine(store, mClock),
		engine: NewEngine(store),
	}
}

// fill creates rule ruleID with capacity len(users), opens it and has the
// users form order orderID, the first one initiating.
func (f *fixture) fill(t *testing.T, ruleID, orderID string, users ...string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.rules.CreateRule(ctx, "S", ruleID, "G", len(users), 90, 100)
	require.NoError(t, err)
	_, err = f.rules.OpenRule(ctx, ruleID, 60)
	require.NoError(t, err)
	_, err = f.groups.InitGroup(ctx, users[0], orderID, ruleID)
	require.NoError(t, err)
	for _, u := range users[1:] {
		_, err = f.groups.Participate(ctx, u, orderID)
		require.NoError(t, err)
	}
}

func TestInitTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fill(t, "R1", "O1", "U1", "U2", "U3")

	_, err := f.groups.Participate(ctx, "U4", "O1")
	require.ErrorIs(t, err, failure.ErrCapacityExceeded)

	txn, err := f.engine.InitTransaction(ctx, "R1", "O1")
	require.NoError(t, err)
	require.Equal(t, "O1-R1", txn.ID())
	require.Equal(t, []string{"U1", "U2", "U3"}, txn.PayerIDs)
	require.Equal(t, []int64{90, 100, 100}, txn.Payments)
	require.Equal(t, int64(290), txn.Receivables)
	require.Equal(t, "S", txn.Payee)
	require.Equal(t, models.TransPendingPayment, txn.TransState)

	book, err := f.rules.QueryParticipation(ctx, "R1")
	require.NoError(t, err)
	require.Zero(t, book.OrderNum)
	require.Empty(t, book.OrderIDs)

	receipt, err := f.engine.QueryTransaction(ctx, "O1-R1")
	require.NoError(t, err)
	require.Equal(t, "payment pending", receipt.Label)
	require.Equal(t, txn.PayerIDs, receipt.Transaction.PayerIDs)

	_, err = f.engine.InitTransaction(ctx, "R1", "O1")
	require.ErrorIs(t, err, failure.ErrTransactionExists)
}

func TestInitTransactionFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fill(t, "R1", "O1", "U1", "U2")
	f.fill(t, "R2", "O2", "U1", "U2")

	_, err := f.rules.CreateRule(ctx, "S", "R3", "G", 3, 90, 100)
	require.NoError(t, err)
	_, err = f.rules.OpenRule(ctx, "R3", 60)
	require.NoError(t, err)
	_, err = f.groups.InitGroup(ctx, "U1", "O3", "R3")
	require.NoError(t, err)

	tests := []struct {
		name    string
		ruleID  string
		orderID string
		want    error
	}{
		{"missing rule", "nope", "O1", failure.ErrRuleNotFound},
		{"missing order", "R1", "nope", failure.ErrOrderNotFound},
		{"order not full", "R3", "O3", failure.ErrOrderNotFull},
		{"rule mismatch", "R2", "O1", failure.ErrRuleMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.InitTransaction(ctx, tt.ruleID, tt.orderID)
			require.ErrorIs(t, err, tt.want)
		})
	}

	book, err := f.rules.QueryParticipation(ctx, "R2")
	require.NoError(t, err)
	require.Equal(t, 1, book.OrderNum, "failed settlement must not reset the rule")
}

func TestChangeTransactionStateIsPermissive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fill(t, "R1", "O1", "U1", "U2")

	_, err := f.engine.InitTransaction(ctx, "R1", "O1")
	require.NoError(t, err)

	steps := []struct {
		input string
		want  models.TransState
		label string
	}{
		{"Completed", models.TransCompleted, "payment completed"},
		{"0", models.TransPendingPayment, "payment pending"},
		{"defaulted", models.TransDefaulted, "payer defaulted"},
		{"1", models.TransCompleted, "payment completed"},
	}
	for _, step := range steps {
		txn, err := f.engine.ChangeTransactionState(ctx, "O1-R1", step.input)
		require.NoError(t, err)
		require.Equal(t, step.want, txn.TransState)

		receipt, err := f.engine.QueryTransaction(ctx, "O1-R1")
		require.NoError(t, err)
		require.Equal(t, step.label, receipt.Label)
	}

	_, err = f.engine.ChangeTransactionState(ctx, "O1-R1", "refunded")
	require.ErrorIs(t, err, failure.ErrInvalidArgument)

	_, err = f.engine.ChangeTransactionState(ctx, "missing", "Completed")
	require.ErrorIs(t, err, failure.ErrTransactionNotFound)

	_, err = f.engine.QueryTransaction(ctx, "O1")
	require.ErrorIs(t, err, failure.ErrTransactionNotFound, "an order record is not a transaction")
}
