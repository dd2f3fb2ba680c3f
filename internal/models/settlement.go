package models

import (
	"fmt"
	"strconv"
	"strings"
)

// TransState is the payment state of a settlement transaction.
// The numeric codes are the stored representation.
type TransState int

const (
	TransPendingPayment TransState = 0
	TransCompleted      TransState = 1
	TransDefaulted      TransState = -1
)

func (s TransState) String() string {
	switch s {
	case TransPendingPayment:
		return "PendingPayment"
	case TransCompleted:
		return "Completed"
	case TransDefaulted:
		return "Defaulted"
	default:
		return "Unknown"
	}
}

// Label is the human-readable description of the state.
func (s TransState) Label() string {
	switch s {
	case TransPendingPayment:
		return "payment pending"
	case TransCompleted:
		return "payment completed"
	case TransDefaulted:
		return "payer defaulted"
	default:
		return "unknown"
	}
}

// ParseTransState accepts a state name (case-insensitive) or its numeric code.
func ParseTransState(s string) (TransState, error) {
	s = strings.TrimSpace(s)
	for _, state := range []TransState{TransPendingPayment, TransCompleted, TransDefaulted} {
		if strings.EqualFold(s, state.String()) || s == strconv.Itoa(int(state)) {
			return state, nil
		}
	}
	return 0, fmt.Errorf("unknown transaction state %q", s)
}

// SettlementTransaction holds the payment instructions produced once a group
// buying order is full.
type SettlementTransaction struct {
	// DocType is always DocTypeTransaction once stored.
	DocType string `json:"docType"`

	// GroupBuyingID and DiscountRuleID form the transaction key.
	GroupBuyingID  string `json:"groupBuyingID"`
	DiscountRuleID string `json:"discountRuleID"`

	// TransState is the payment state. It can be overwritten freely.
	TransState TransState `json:"transState,string"`

	// PayerIDs lists the initiator first, then participants by ordinal.
	PayerIDs []string `json:"payerIDs"`

	// Payee is the seller receiving all payments.
	Payee string `json:"payee"`

	// Payments is positionally aligned with PayerIDs.
	Payments []int64 `json:"payments"`

	// Receivables is the sum of Payments.
	Receivables int64 `json:"receivables,string"`
}

// ID returns the transaction's ledger key.
func (t *SettlementTransaction) ID() string {
	return TransactionKey(t.GroupBuyingID, t.DiscountRuleID)
}

func (t *SettlementTransaction) docType() string    { return DocTypeTransaction }
func (t *SettlementTransaction) storedType() string { return t.DocType }
func (t *SettlementTransaction) stamp()             { t.DocType = DocTypeTransaction }
