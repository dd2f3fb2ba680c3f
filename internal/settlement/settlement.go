// Package settlement turns a filled group buying order into payment
// instructions and tracks their payment state.
package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmynk/groupbuy/internal/calculator"
	"github.com/mmynk/groupbuy/internal/failure"
	"github.com/mmynk/groupbuy/internal/groupbuy"
	"github.com/mmynk/groupbuy/internal/models"
	"github.com/mmynk/groupbuy/internal/rules"
	"github.com/mmynk/groupbuy/internal/storage"
)

// Engine builds and updates settlement transactions.
type Engine struct {
	store storage.Ledger
}

// NewEngine creates a settlement engine over store.
func NewEngine(store storage.Ledger) *Engine {
	return &Engine{store: store}
}

// Receipt is the rendered view of a settlement transaction.
type Receipt struct {
	TransactionID string
	State         models.TransState
	Label         string
	Transaction   *models.SettlementTransaction
}

// InitTransaction settles a full order created under ruleID. The rule's
// order book is reset in the same commit.
func (e *Engine) InitTransaction(ctx context.Context, ruleID, groupBuyingID string) (*models.SettlementTransaction, error) {
	var txn *models.SettlementTransaction
	err := e.store.Update(ctx, func(tx *storage.Txn) error {
		rule, err := rules.Load(tx, ruleID)
		if err != nil {
			return err
		}
		order, err := groupbuy.LoadOrder(tx, groupBuyingID)
		if err != nil {
			return err
		}
		if !order.Full() {
			return failure.ErrOrderNotFull.For(groupBuyingID).
				Because(fmt.Sprintf("%d of %d joined", order.CurrentNum, order.GroupNum))
		}
		if order.DiscountRuleID != ruleID {
			return failure.ErrRuleMismatch.For(groupBuyingID, ruleID)
		}

		key := models.TransactionKey(groupBuyingID, ruleID)
		_, occupied, err := tx.Get(key)
		if err != nil {
			return err
		}
		if occupied {
			return failure.ErrTransactionExists.For(key)
		}

		payers := make([]string, 0, order.GroupNum)
		payers = append(payers, order.UserID)
		for ordinal := 2; ordinal <= order.GroupNum; ordinal++ {
			p, err := groupbuy.LoadParticipation(tx, groupBuyingID, ordinal)
			if err != nil {
				return err
			}
			payers = append(payers, p.UserID)
		}

		inst, err := calculator.BuildInstructions(payers, rule.FirstBuyerPrice, rule.OtherBuyerPrice)
		if err != nil {
			return failure.Invalid(err.Error())
		}

		txn = &models.SettlementTransaction{
			GroupBuyingID:  groupBuyingID,
			DiscountRuleID: ruleID,
			TransState:     models.TransPendingPayment,
			PayerIDs:       inst.PayerIDs,
			Payee:          rule.SellerID,
			Payments:       inst.Payments,
			Receivables:    inst.Receivables,
		}
		if err := save(tx, txn); err != nil {
			return err
		}

		rule.ResetOrders()
		return rules.Save(tx, ruleID, rule)
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// ChangeTransactionState overwrites the payment state. Any state may follow
// any other.
func (e *Engine) ChangeTransactionState(ctx context.Context, transactionID, newState string) (*models.SettlementTransaction, error) {
	state, err := models.ParseTransState(newState)
	if err != nil {
		return nil, failure.Invalid(err.Error())
	}

	var txn *models.SettlementTransaction
	err = e.store.Update(ctx, func(tx *storage.Txn) error {
		var err error
		txn, err = Load(tx, transactionID)
		if err != nil {
			return err
		}
		txn.TransState = state
		return save(tx, txn)
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// QueryTransaction returns the transaction with its state label.
func (e *Engine) QueryTransaction(ctx context.Context, transactionID string) (*Receipt, error) {
	var receipt *Receipt
	err := e.store.View(ctx, func(tx *storage.Txn) error {
		txn, err := Load(tx, transactionID)
		if err != nil {
			return err
		}
		receipt = &Receipt{
			TransactionID: transactionID,
			State:         txn.TransState,
			Label:         txn.TransState.Label(),
			Transaction:   txn,
		}
		return nil
	})
	return receipt, err
}

// Load reads the transaction stored under transactionID within tx.
func Load(tx *storage.Txn, transactionID string) (*models.SettlementTransaction, error) {
	raw, found, err := tx.Get(transactionID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, failure.ErrTransactionNotFound.For(transactionID)
	}

	txn := &models.SettlementTransaction{}
	if err := models.Decode(raw, txn); err != nil {
		if errors.Is(err, models.ErrWrongType) {
			return nil, failure.ErrTransactionNotFound.For(transactionID)
		}
		return nil, err
	}
	return txn, nil
}

func save(tx *storage.Txn, txn *models.SettlementTransaction) error {
	raw, err := models.Encode(txn)
	if err != nil {
		return err
	}
	return tx.Put(txn.ID(), raw)
}
