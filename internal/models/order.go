package models

// GroupPhase is the derived progress of a group buying order.
type GroupPhase string

const (
	PhaseCreated GroupPhase = "Created"
	PhaseFilling GroupPhase = "Filling"
	PhaseFilled  GroupPhase = "Filled"
)

// GroupBuyingOrder is a group of buyers trying to reach a rule's capacity.
type GroupBuyingOrder struct {
	// DocType is always DocTypeOrder once stored.
	DocType string `json:"docType"`

	// GroupBuyingID is the order's own key, kept for readability of the record.
	GroupBuyingID string `json:"groupBuyingID"`

	// UserID is the initiator, who counts as the first participant.
	UserID string `json:"userID"`

	// SellerID and GoodID are copied from the rule at creation.
	SellerID string `json:"sellerID"`
	GoodID   string `json:"goodID"`

	// DiscountRuleID references the rule the order was created against.
	DiscountRuleID string `json:"discountRuleID"`

	// InitTime is the creation time in epoch milliseconds.
	InitTime int64 `json:"initTime,string"`

	// GroupNum is a snapshot of the rule's capacity, not a live reference.
	GroupNum int `json:"groupNum,string"`

	// CurrentNum is the number of admitted buyers, 1 <= CurrentNum <= GroupNum.
	CurrentNum int `json:"currentNum,string"`
}

// Phase derives the order's progress from its counters.
func (o *GroupBuyingOrder) Phase() GroupPhase {
	switch {
	case o.CurrentNum >= o.GroupNum:
		return PhaseFilled
	case o.CurrentNum > 1:
		return PhaseFilling
	default:
		return PhaseCreated
	}
}

// Full reports whether the order has reached its capacity.
func (o *GroupBuyingOrder) Full() bool {
	return o.CurrentNum == o.GroupNum
}

func (o *GroupBuyingOrder) docType() string    { return DocTypeOrder }
func (o *GroupBuyingOrder) storedType() string { return o.DocType }
func (o *GroupBuyingOrder) stamp()             { o.DocType = DocTypeOrder }

// Participation records one buyer admitted into an order after the initiator.
type Participation struct {
	DocType         string `json:"docType"`
	UserID          string `json:"userID"`
	GroupBuyingID   string `json:"groupBuyingID"`
	Ordinal         int    `json:"ordinal,string"`
	ParticipateTime int64  `json:"participateTime,string"`
}

func (p *Participation) docType() string    { return DocTypeParticipation }
func (p *Participation) storedType() string { return p.DocType }
func (p *Participation) stamp()             { p.DocType = DocTypeParticipation }
