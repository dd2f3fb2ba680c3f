// Package credit keeps the per-user trust score adjusted by settlement outcomes.
package credit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mmynk/groupbuy/internal/calculator"
	"github.com/mmynk/groupbuy/internal/failure"
	"github.com/mmynk/groupbuy/internal/models"
	"github.com/mmynk/groupbuy/internal/storage"
)

// InitialCredit is the score every account starts with.
const InitialCredit = 100

// Ledger stores credit balances as bare decimal integers.
type Ledger struct {
	store storage.Ledger
}

// NewLedger creates a credit ledger over store.
func NewLedger(store storage.Ledger) *Ledger {
	return &Ledger{store: store}
}

// InitCredit sets the user's balance to InitialCredit, overwriting any
// existing balance. A key holding another record is left alone.
func (l *Ledger) InitCredit(ctx context.Context, userID string) error {
	if userID == "" {
		return failure.Invalid("user id required")
	}
	return l.store.Update(ctx, func(tx *storage.Txn) error {
		if _, _, err := readBalance(tx, userID); err != nil {
			return err
		}
		return tx.Put(models.CreditKey(userID), strconv.Itoa(InitialCredit))
	})
}

// ChangeCredit adds delta to the user's balance and returns the new balance,
// which is never below zero. A missing account counts as a zero balance.
func (l *Ledger) ChangeCredit(ctx context.Context, userID, delta string) (int64, error) {
	if userID == "" {
		return 0, failure.Invalid("user id required")
	}
	d, err := strconv.ParseInt(strings.TrimSpace(delta), 10, 32)
	if err != nil {
		return 0, failure.Invalid(fmt.Sprintf("credit change %q is not an integer", delta))
	}

	var balance int64
	err = l.store.Update(ctx, func(tx *storage.Txn) error {
		old, _, err := readBalance(tx, userID)
		if err != nil {
			return err
		}
		balance = calculator.ApplyCreditDelta(old, d)
		return tx.Put(models.CreditKey(userID), strconv.FormatInt(balance, 10))
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// QueryCredit returns the user's balance.
func (l *Ledger) QueryCredit(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := l.store.View(ctx, func(tx *storage.Txn) error {
		b, found, err := readBalance(tx, userID)
		if errors.Is(err, failure.ErrAccountKeyTaken) || (err == nil && !found) {
			return failure.ErrAccountNotFound.For(userID)
		}
		if err != nil {
			return err
		}
		balance = b
		return nil
	})
	return balance, err
}

// readBalance returns ErrAccountKeyTaken when the credit key holds
// something other than a balance, such as a rule whose ID ends in "-Credit".
func readBalance(tx *storage.Txn, userID string) (int64, bool, error) {
	key := models.CreditKey(userID)
	raw, found, err := tx.Get(key)
	if err != nil {
		return 0, false, err
	}
	if !found || raw == "" {
		return 0, false, nil
	}
	balance, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, failure.ErrAccountKeyTaken.For(key)
	}
	return balance, true, nil
}
