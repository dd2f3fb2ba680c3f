package rules

import (
	"context"
	"time"

	"github.com/mmynk/groupbuy/internal/models"
	"github.com/mmynk/groupbuy/internal/storage"
)

// OrderBook is the participation summary of a rule.
type OrderBook struct {
	RuleID   string
	OrderNum int
	OrderIDs []string
}

// Status is the lifecycle view of a rule at query time.
type Status struct {
	RuleID    string
	State     models.RuleState
	StartTime int64
	EndTime   int64
	// Remaining is the time left in an open window; zero once it has ended.
	Remaining time.Duration
	// Expired is set for an open rule whose window has ended.
	Expired bool
}

// QueryParticipation returns the orders registered against the rule.
func (r *Registry) QueryParticipation(ctx context.Context, ruleID string) (*OrderBook, error) {
	var book *OrderBook
	err := r.store.View(ctx, func(tx *storage.Txn) error {
		rule, err := Load(tx, ruleID)
		if err != nil {
			return err
		}
		book = &OrderBook{
			RuleID:   ruleID,
			OrderNum: rule.OrderNum,
			OrderIDs: rule.OrderIDs,
		}
		return nil
	})
	return book, err
}

// QueryState returns the rule's state and, when open, how long it stays open.
func (r *Registry) QueryState(ctx context.Context, ruleID string) (*Status, error) {
	var status *Status
	err := r.store.View(ctx, func(tx *storage.Txn) error {
		rule, err := Load(tx, ruleID)
		if err != nil {
			return err
		}
		status = &Status{
			RuleID:    ruleID,
			State:     rule.RuleState,
			StartTime: rule.StartTime,
			EndTime:   rule.EndTime,
		}
		if rule.RuleState == models.RuleOpen {
			now := r.clock.Now().UnixMilli()
			if rule.Expired(now) {
				status.Expired = true
			} else {
				status.Remaining = time.Duration(rule.EndTime-now) * time.Millisecond
			}
		}
		return nil
	})
	return status, err
}
