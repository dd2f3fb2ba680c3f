package models

// RuleState is the lifecycle state of a discount rule.
type RuleState int

const (
	RuleClosed RuleState = 0
	RuleOpen   RuleState = 1
)

func (s RuleState) String() string {
	switch s {
	case RuleClosed:
		return "Closed"
	case RuleOpen:
		return "Open"
	default:
		return "Unknown"
	}
}

// DiscountRule is a seller-defined promotion: a capacity, two price tiers
// and a time window during which group orders may form against it.
type DiscountRule struct {
	// DocType is always DocTypeRule once stored.
	DocType string `json:"docType"`

	// SellerID identifies the seller who receives settlement payments.
	SellerID string `json:"sellerID"`

	// GoodID identifies the promoted good.
	GoodID string `json:"goodID"`

	// GroupNum is the number of buyers needed to fill a group. Fixed at creation.
	GroupNum int `json:"groupNum,string"`

	// FirstBuyerPrice is the unit price paid by the group initiator.
	FirstBuyerPrice int64 `json:"firstBuyerPrice,string"`

	// OtherBuyerPrice is the unit price paid by every other participant.
	OtherBuyerPrice int64 `json:"otherBuyerPrice,string"`

	// RuleState is Open while group orders may be created.
	RuleState RuleState `json:"ruleState,string"`

	// StartTime, EndTime are epoch milliseconds; Duration is milliseconds.
	// All three are zero while the rule is closed.
	StartTime int64 `json:"startTime,string"`
	EndTime   int64 `json:"endTime,string"`
	Duration  int64 `json:"duration,string"`

	// OrderNum counts the group orders registered against this rule.
	// It always equals len(OrderIDs).
	OrderNum int `json:"orderNum,string"`

	// OrderIDs lists registered group buying IDs in registration order.
	OrderIDs []string `json:"orderIDs"`
}

// NewDiscountRule returns a closed rule with an empty order book.
func NewDiscountRule(sellerID, goodID string, groupNum int, firstBuyerPrice, otherBuyerPrice int64) *DiscountRule {
	return &DiscountRule{
		SellerID:        sellerID,
		GoodID:          goodID,
		GroupNum:        groupNum,
		FirstBuyerPrice: firstBuyerPrice,
		OtherBuyerPrice: otherBuyerPrice,
		RuleState:       RuleClosed,
		OrderIDs:        []string{},
	}
}

// Expired reports whether nowMillis is past the rule's window.
// A closed rule has a zero EndTime and is therefore always expired.
func (r *DiscountRule) Expired(nowMillis int64) bool {
	return nowMillis > r.EndTime
}

// AppendOrder records a new group order against the rule.
func (r *DiscountRule) AppendOrder(groupBuyingID string) {
	r.OrderIDs = append(r.OrderIDs, groupBuyingID)
	r.OrderNum = len(r.OrderIDs)
}

// ResetOrders empties the rule's order book.
func (r *DiscountRule) ResetOrders() {
	r.OrderIDs = []string{}
	r.OrderNum = 0
}

func (r *DiscountRule) docType() string    { return DocTypeRule }
func (r *DiscountRule) storedType() string { return r.DocType }
func (r *DiscountRule) stamp() {
	r.DocType = DocTypeRule
	if r.OrderIDs == nil {
		r.OrderIDs = []string{}
	}
}
