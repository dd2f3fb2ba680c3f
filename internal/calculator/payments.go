package calculator

import (
	"fmt"
)

// Instructions is the payment plan for one filled group.
type Instructions struct {
	PayerIDs    []string
	Payments    []int64
	Receivables int64
}

// BuildInstructions computes what each payer owes the seller.
// The first payer is the group initiator and pays firstBuyerPrice; every
// other payer pays otherBuyerPrice. Payments are aligned with payers by
// position and Receivables is their sum.
func BuildInstructions(payers []string, firstBuyerPrice, otherBuyerPrice int64) (*Instructions, error) {
	if len(payers) == 0 {
		return nil, fmt.Errorf("must have at least one payer")
	}
	if firstBuyerPrice < 0 || otherBuyerPrice < 0 {
		return nil, fmt.Errorf("prices cannot be negative")
	}

	inst := &Instructions{
		PayerIDs: make([]string, len(payers)),
		Payments: make([]int64, len(payers)),
	}
	copy(inst.PayerIDs, payers)

	for i := range payers {
		price := otherBuyerPrice
		if i == 0 {
			price = firstBuyerPrice
		}
		inst.Payments[i] = price
		inst.Receivables += price
	}

	return inst, nil
}
