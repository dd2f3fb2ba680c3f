// Package groupbuy forms group orders against open discount rules and admits
// participants under the rule's capacity and time window.
package groupbuy

import (
	"context"
	"errors"

	"github.com/raulk/clock"

	"github.com/mmynk/groupbuy/internal/failure"
	"github.com/mmynk/groupbuy/internal/models"
	"github.com/mmynk/groupbuy/internal/rules"
	"github.com/mmynk/groupbuy/internal/storage"
)

// Engine runs group order formation and admission.
type Engine struct {
	store storage.Ledger
	clock clock.Clock
}

// NewEngine creates an engine over store. clk supplies "now" for window checks.
func NewEngine(store storage.Ledger, clk clock.Clock) *Engine {
	return &Engine{store: store, clock: clk}
}

// Admission is the result of a successful Participate call.
type Admission struct {
	Order         *models.GroupBuyingOrder
	Participation *models.Participation
}

// Progress is the read-only view of an order's fill level.
type Progress struct {
	GroupBuyingID string
	RuleID        string
	GroupNum      int
	CurrentNum    int
	Phase         models.GroupPhase
}

// InitGroup creates a group order initiated by userID against an open rule
// and registers it in the rule's order book, in one commit.
func (e *Engine) InitGroup(ctx context.Context, userID, groupBuyingID, ruleID string) (*models.GroupBuyingOrder, error) {
	if userID == "" || groupBuyingID == "" {
		return nil, failure.Invalid("user id and group buying id required")
	}

	var order *models.GroupBuyingOrder
	err := e.store.Update(ctx, func(tx *storage.Txn) error {
		rule, err := rules.Load(tx, ruleID)
		if err != nil {
			return err
		}
		if rule.RuleState != models.RuleOpen {
			return failure.ErrRuleClosed.For(ruleID)
		}
		now := e.clock.Now().UnixMilli()
		if rule.Expired(now) {
			return failure.ErrRuleExpired.For(ruleID)
		}

		_, occupied, err := tx.Get(models.OrderKey(groupBuyingID))
		if err != nil {
			return err
		}
		if occupied {
			return failure.ErrOrderExists.For(groupBuyingID)
		}

		order = &models.GroupBuyingOrder{
			GroupBuyingID:  groupBuyingID,
			UserID:         userID,
			SellerID:       rule.SellerID,
			GoodID:         rule.GoodID,
			DiscountRuleID: ruleID,
			InitTime:       now,
			GroupNum:       rule.GroupNum,
			CurrentNum:     1,
		}
		if err := SaveOrder(tx, order); err != nil {
			return err
		}
		_, err = rules.Register(tx, ruleID, groupBuyingID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Participate admits userID into the order if the rule's window is still
// open, the order has room, and the participation key is free. The capacity check and the counter update
// happen against the same snapshot; a concurrent admission that commits
// first makes this one fail with a storage conflict rather than overfill.
func (e *Engine) Participate(ctx context.Context, userID, groupBuyingID string) (*Admission, error) {
	if userID == "" {
		return nil, failure.Invalid("user id required")
	}

	var admission *Admission
	err := e.store.Update(ctx, func(tx *storage.Txn) error {
		order, err := LoadOrder(tx, groupBuyingID)
		if err != nil {
			return err
		}
		rule, err := rules.Load(tx, order.DiscountRuleID)
		if err != nil {
			return err
		}
		now := e.clock.Now().UnixMilli()
		if rule.Expired(now) {
			return failure.ErrRuleExpired.For(order.DiscountRuleID)
		}

		candidate := order.CurrentNum + 1
		if candidate > order.GroupNum {
			return failure.ErrCapacityExceeded.For(groupBuyingID)
		}

		key := models.ParticipationKey(groupBuyingID, candidate)
		_, occupied, err := tx.Get(key)
		if err != nil {
			return err
		}
		if occupied {
			return failure.ErrParticipationExists.For(key)
		}

		order.CurrentNum = candidate
		p := &models.Participation{
			UserID:          userID,
			GroupBuyingID:   groupBuyingID,
			Ordinal:         candidate,
			ParticipateTime: now,
		}
		if err := SaveOrder(tx, order); err != nil {
			return err
		}
		if err := saveParticipation(tx, p); err != nil {
			return err
		}
		admission = &Admission{Order: order, Participation: p}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return admission, nil
}

// QueryGroupBuying returns the order's capacity and fill level.
func (e *Engine) QueryGroupBuying(ctx context.Context, groupBuyingID string) (*Progress, error) {
	var progress *Progress
	err := e.store.View(ctx, func(tx *storage.Txn) error {
		order, err := LoadOrder(tx, groupBuyingID)
		if err != nil {
			return err
		}
		progress = &Progress{
			GroupBuyingID: groupBuyingID,
			RuleID:        order.DiscountRuleID,
			GroupNum:      order.GroupNum,
			CurrentNum:    order.CurrentNum,
			Phase:         order.Phase(),
		}
		return nil
	})
	return progress, err
}

// LoadOrder reads the order stored under groupBuyingID within tx.
func LoadOrder(tx *storage.Txn, groupBuyingID string) (*models.GroupBuyingOrder, error) {
	raw, found, err := tx.Get(models.OrderKey(groupBuyingID))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, failure.ErrOrderNotFound.For(groupBuyingID)
	}

	order := &models.GroupBuyingOrder{}
	if err := models.Decode(raw, order); err != nil {
		if errors.Is(err, models.ErrWrongType) {
			return nil, failure.ErrOrderNotFound.For(groupBuyingID)
		}
		return nil, err
	}
	return order, nil
}

// SaveOrder writes the full order record within tx.
func SaveOrder(tx *storage.Txn, order *models.GroupBuyingOrder) error {
	raw, err := models.Encode(order)
	if err != nil {
		return err
	}
	return tx.Put(models.OrderKey(order.GroupBuyingID), raw)
}

// LoadParticipation reads the participant admitted at ordinal within tx.
func LoadParticipation(tx *storage.Txn, groupBuyingID string, ordinal int) (*models.Participation, error) {
	key := models.ParticipationKey(groupBuyingID, ordinal)
	raw, found, err := tx.Get(key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, failure.ErrParticipationNotFound.For(key)
	}

	p := &models.Participation{}
	if err := models.Decode(raw, p); err != nil {
		if errors.Is(err, models.ErrWrongType) {
			return nil, failure.ErrParticipationNotFound.For(key)
		}
		return nil, err
	}
	return p, nil
}

func saveParticipation(tx *storage.Txn, p *models.Participation) error {
	raw, err := models.Encode(p)
	if err != nil {
		return err
	}
	return tx.Put(models.ParticipationKey(p.GroupBuyingID, p.Ordinal), raw)
}
