package service

import "github.com/mmynk/groupbuy/internal/models"

// Requests carry every argument as a string, the way the dispatcher passes
// them; numeric fields are parsed by the service.

type InitCreditRequest struct {
	UserID string `json:"userID"`
}

type ChangeCreditRequest struct {
	UserID string `json:"userID"`
	Delta  string `json:"delta"`
}

type QueryCreditRequest struct {
	UserID string `json:"userID"`
}

type CreditResponse struct {
	UserID  string `json:"userID"`
	Balance int64  `json:"balance"`
}

type CreateRuleRequest struct {
	SellerID        string `json:"sellerID"`
	RuleID          string `json:"ruleID"`
	GoodID          string `json:"goodID"`
	GroupNum        string `json:"groupNum"`
	FirstBuyerPrice string `json:"firstBuyerPrice"`
	OtherBuyerPrice string `json:"otherBuyerPrice"`
}

type OpenRuleRequest struct {
	RuleID string `json:"ruleID"`
	// Duration is the window length in minutes.
	Duration string `json:"duration"`
}

type CloseRuleRequest struct {
	RuleID string `json:"ruleID"`
}

type RegisterOrderRequest struct {
	RuleID        string `json:"ruleID"`
	GroupBuyingID string `json:"groupBuyingID"`
}

type RuleResponse struct {
	RuleID string               `json:"ruleID"`
	Rule   *models.DiscountRule `json:"rule"`
}

type QueryParticipationRequest struct {
	RuleID string `json:"ruleID"`
}

type ParticipationResponse struct {
	RuleID   string   `json:"ruleID"`
	OrderNum int      `json:"orderNum"`
	OrderIDs []string `json:"orderIDs"`
}

type QueryStateRequest struct {
	RuleID string `json:"ruleID"`
}

type StateResponse struct {
	RuleID          string `json:"ruleID"`
	State           string `json:"state"`
	StartTime       int64  `json:"startTime"`
	EndTime         int64  `json:"endTime"`
	RemainingMillis int64  `json:"remainingMillis"`
	Expired         bool   `json:"expired"`
	Summary         string `json:"summary"`
}

type InitGroupRequest struct {
	UserID        string `json:"userID"`
	GroupBuyingID string `json:"groupBuyingID"`
	RuleID        string `json:"ruleID"`
}

type OrderResponse struct {
	Order *models.GroupBuyingOrder `json:"order"`
}

type ParticipateRequest struct {
	UserID        string `json:"userID"`
	GroupBuyingID string `json:"groupBuyingID"`
}

type ParticipateResponse struct {
	Order         *models.GroupBuyingOrder `json:"order"`
	Participation *models.Participation    `json:"participation"`
}

type QueryGroupBuyingRequest struct {
	GroupBuyingID string `json:"groupBuyingID"`
}

type GroupBuyingResponse struct {
	GroupBuyingID string `json:"groupBuyingID"`
	RuleID        string `json:"ruleID"`
	GroupNum      int    `json:"groupNum"`
	CurrentNum    int    `json:"currentNum"`
	Phase         string `json:"phase"`
}

type InitTransactionRequest struct {
	RuleID        string `json:"ruleID"`
	GroupBuyingID string `json:"groupBuyingID"`
}

type ChangeTransactionStateRequest struct {
	TransactionID string `json:"transactionID"`
	// State is a state name or its code: 0, 1 or -1.
	State string `json:"state"`
}

type QueryTransactionRequest struct {
	TransactionID string `json:"transactionID"`
}

type TransactionResponse struct {
	TransactionID string                        `json:"transactionID"`
	State         string                        `json:"state"`
	Label         string                        `json:"label"`
	Transaction   *models.SettlementTransaction `json:"transaction"`
}

type QueryHistoryRequest struct {
	Key string `json:"key"`
}

type HistoryEntry struct {
	Version     int64  `json:"version"`
	Value       string `json:"value"`
	CommitID    string `json:"commitID"`
	CommittedAt int64  `json:"committedAt"`
}

type HistoryResponse struct {
	Key     string         `json:"key"`
	Entries []HistoryEntry `json:"entries"`
}
