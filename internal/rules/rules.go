// Package rules manages the lifecycle of seller-defined discount rules.
package rules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raulk/clock"

	"github.com/mmynk/groupbuy/internal/failure"
	"github.com/mmynk/groupbuy/internal/models"
	"github.com/mmynk/groupbuy/internal/storage"
)

// Registry creates, opens and closes discount rules and keeps their order book.
type Registry struct {
	store storage.Ledger
	clock clock.Clock
}

// NewRegistry creates a registry over store. clk supplies "now" for rule windows.
func NewRegistry(store storage.Ledger, clk clock.Clock) *Registry {
	return &Registry{store: store, clock: clk}
}

// CreateRule stores a new closed rule under ruleID.
func (r *Registry) CreateRule(ctx context.Context, sellerID, ruleID, goodID string, groupNum int, firstBuyerPrice, otherBuyerPrice int64) (*models.DiscountRule, error) {
	switch {
	case ruleID == "":
		return nil, failure.Invalid("rule id required")
	case groupNum < 1:
		return nil, failure.Invalid(fmt.Sprintf("group size must be at least 1, got %d", groupNum))
	case firstBuyerPrice < 0 || otherBuyerPrice < 0:
		return nil, failure.Invalid("prices cannot be negative")
	}

	rule := models.NewDiscountRule(sellerID, goodID, groupNum, firstBuyerPrice, otherBuyerPrice)
	err := r.store.Update(ctx, func(tx *storage.Txn) error {
		_, occupied, err := tx.Get(models.RuleKey(ruleID))
		if err != nil {
			return err
		}
		if occupied {
			return failure.ErrRuleExists.For(ruleID)
		}
		return Save(tx, ruleID, rule)
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// OpenRule opens the rule's window for durationMinutes starting now.
// The order book is left untouched.
func (r *Registry) OpenRule(ctx context.Context, ruleID string, durationMinutes int) (*models.DiscountRule, error) {
	if durationMinutes < 1 {
		return nil, failure.Invalid(fmt.Sprintf("duration must be at least 1 minute, got %d", durationMinutes))
	}

	var rule *models.DiscountRule
	err := r.store.Update(ctx, func(tx *storage.Txn) error {
		var err error
		rule, err = Load(tx, ruleID)
		if err != nil {
			return err
		}
		if rule.RuleState == models.RuleOpen {
			return failure.ErrRuleOpen.For(ruleID)
		}

		rule.Duration = (time.Duration(durationMinutes) * time.Minute).Milliseconds()
		rule.StartTime = r.clock.Now().UnixMilli()
		rule.EndTime = rule.StartTime + rule.Duration
		rule.RuleState = models.RuleOpen
		return Save(tx, ruleID, rule)
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// CloseRule closes the rule and zeroes its window.
func (r *Registry) CloseRule(ctx context.Context, ruleID string) (*models.DiscountRule, error) {
	var rule *models.DiscountRule
	err := r.store.Update(ctx, func(tx *storage.Txn) error {
		var err error
		rule, err = Load(tx, ruleID)
		if err != nil {
			return err
		}
		if rule.RuleState == models.RuleClosed {
			return failure.ErrRuleClosed.For(ruleID)
		}

		rule.Duration = 0
		rule.StartTime = 0
		rule.EndTime = 0
		rule.RuleState = models.RuleClosed
		return Save(tx, ruleID, rule)
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// RegisterOrder appends groupBuyingID to the rule's order book in its own
// commit. It is not idempotent: each call counts one more order.
func (r *Registry) RegisterOrder(ctx context.Context, ruleID, groupBuyingID string) (*models.DiscountRule, error) {
	var rule *models.DiscountRule
	err := r.store.Update(ctx, func(tx *storage.Txn) error {
		var err error
		rule, err = Register(tx, ruleID, groupBuyingID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// Load reads the rule stored under ruleID within tx.
func Load(tx *storage.Txn, ruleID string) (*models.DiscountRule, error) {
	raw, found, err := tx.Get(models.RuleKey(ruleID))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, failure.ErrRuleNotFound.For(ruleID)
	}

	rule := &models.DiscountRule{}
	if err := models.Decode(raw, rule); err != nil {
		if errors.Is(err, models.ErrWrongType) {
			return nil, failure.ErrRuleNotFound.For(ruleID)
		}
		return nil, err
	}
	return rule, nil
}

// Save writes the full rule record within tx.
func Save(tx *storage.Txn, ruleID string, rule *models.DiscountRule) error {
	raw, err := models.Encode(rule)
	if err != nil {
		return err
	}
	return tx.Put(models.RuleKey(ruleID), raw)
}

// Register appends groupBuyingID to the rule's order book within tx.
func Register(tx *storage.Txn, ruleID, groupBuyingID string) (*models.DiscountRule, error) {
	if groupBuyingID == "" {
		return nil, failure.Invalid("group buying id required")
	}
	rule, err := Load(tx, ruleID)
	if err != nil {
		return nil, err
	}
	rule.AppendOrder(groupBuyingID)
	if err := Save(tx, ruleID, rule); err != nil {
		return nil, err
	}
	return rule, nil
}
