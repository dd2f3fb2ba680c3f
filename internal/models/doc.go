// Package models defines the ledger records of the group-buying engine.
//
// # Records
//
// Every entity is a JSON object stored under a plain string key:
//   - DiscountRule: a seller's promotion, keyed by rule ID
//   - GroupBuyingOrder: a group forming against a rule, keyed by group buying ID
//   - Participation: one admitted buyer beyond the initiator, keyed by "{groupBuyingID}-{ordinal}"
//   - SettlementTransaction: payment instructions for a filled group, keyed by "{groupBuyingID}-{ruleID}"
//
// Credit balances are not structured records; they are stored as bare
// decimal integers under "{userID}-Credit".
//
// # Encoding
//
// Scalar fields are encoded as JSON strings (the `,string` tag option) so a
// record reads as a field-to-string map. Ordered sequences are JSON arrays.
// Each record carries a docType discriminator because rules and orders share
// one key namespace: a key holding a different record type is treated as
// absent by Decode.
//
// # Design Principles
//
//  1. Records are full snapshots: callers always read, modify and rewrite the
//     whole record, never a single field.
//  2. No pointers between records: references are key strings.
//  3. Derived values (group phase, transaction labels) are computed, not stored.
package models
