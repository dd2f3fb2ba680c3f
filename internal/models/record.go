package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrWrongType is returned by Decode when the stored record has a different docType.
var ErrWrongType = errors.New("record has a different type")

// Document types stored in the docType field.
const (
	DocTypeRule          = "discountRule"
	DocTypeOrder         = "groupBuyingOrder"
	DocTypeParticipation = "participation"
	DocTypeTransaction   = "settlementTransaction"
)

// Record is implemented by every structured ledger record.
type Record interface {
	docType() string
	storedType() string
	stamp()
}

// Encode serializes a record, stamping its docType.
func Encode(r Record) (string, error) {
	r.stamp()
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", r.docType(), err)
	}
	return string(data), nil
}

// Decode parses raw into r. It returns ErrWrongType when raw holds a record
// of another type.
func Decode(raw string, r Record) error {
	if err := json.Unmarshal([]byte(raw), r); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			// Bare values such as credit balances are not records.
			return fmt.Errorf("%w: want %s: %v", ErrWrongType, r.docType(), err)
		}
		return fmt.Errorf("failed to decode %s: %w", r.docType(), err)
	}
	if r.storedType() != r.docType() {
		return fmt.Errorf("%w: want %s, got %q", ErrWrongType, r.docType(), r.storedType())
	}
	return nil
}
