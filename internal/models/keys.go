package models

import "fmt"

// RuleKey returns the ledger key of a discount rule.
func RuleKey(ruleID string) string { return ruleID }

// OrderKey returns the ledger key of a group buying order.
func OrderKey(groupBuyingID string) string { return groupBuyingID }

// ParticipationKey returns the ledger key of the participant admitted at ordinal.
func ParticipationKey(groupBuyingID string, ordinal int) string {
	return fmt.Sprintf("%s-%d", groupBuyingID, ordinal)
}

// TransactionKey returns the ledger key, and ID, of a settlement transaction.
func TransactionKey(groupBuyingID, ruleID string) string {
	return groupBuyingID + "-" + ruleID
}

// CreditKey returns the ledger key of a user's credit balance.
func CreditKey(userID string) string {
	return userID + "-Credit"
}
