package models

import (
	"errors"
	"strings"
	"testing"
)

func TestEncodeUsesStringFields(t *testing.T) {
	rule := NewDiscountRule("S", "G", 3, 90, 100)

	raw, err := Encode(rule)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	for _, want := range []string{`"docType":"discountRule"`, `"groupNum":"3"`, `"ruleState":"0"`, `"orderIDs":[]`} {
		if !strings.Contains(raw, want) {
			t.Errorf("encoded rule %s missing %s", raw, want)
		}
	}
}

func TestDecodeRejectsOtherDocType(t *testing.T) {
	raw, err := Encode(&GroupBuyingOrder{GroupBuyingID: "O1", GroupNum: 2, CurrentNum: 1})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var rule DiscountRule
	err = Decode(raw, &rule)
	if !errors.Is(err, ErrWrongType) {
		t.Fatalf("expected ErrWrongType, got %v", err)
	}

	var order GroupBuyingOrder
	if err := Decode(raw, &order); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if order.CurrentNum != 1 || order.GroupNum != 2 {
		t.Errorf("decoded order = %+v", order)
	}

	// A credit balance is a bare integer, not a record.
	if err := Decode("100", &rule); !errors.Is(err, ErrWrongType) {
		t.Errorf("expected ErrWrongType for bare value, got %v", err)
	}
}

func TestGroupPhase(t *testing.T) {
	tests := []struct {
		name       string
		groupNum   int
		currentNum int
		want       GroupPhase
	}{
		{"initiator only", 3, 1, PhaseCreated},
		{"partially filled", 3, 2, PhaseFilling},
		{"filled", 3, 3, PhaseFilled},
		{"single buyer group", 1, 1, PhaseFilled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &GroupBuyingOrder{GroupNum: tt.groupNum, CurrentNum: tt.currentNum}
			if got := o.Phase(); got != tt.want {
				t.Errorf("Phase() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseTransState(t *testing.T) {
	tests := []struct {
		in      string
		want    TransState
		wantErr bool
	}{
		{"PendingPayment", TransPendingPayment, false},
		{"completed", TransCompleted, false},
		{"-1", TransDefaulted, false},
		{"1", TransCompleted, false},
		{"2", 0, true},
		{"paid", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseTransState(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTransState(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseTransState(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestKeys(t *testing.T) {
	if got := ParticipationKey("O1", 2); got != "O1-2" {
		t.Errorf("ParticipationKey = %q", got)
	}
	if got := TransactionKey("O1", "R1"); got != "O1-R1" {
		t.Errorf("TransactionKey = %q", got)
	}
	if got := CreditKey("U1"); got != "U1-Credit" {
		t.Errorf("CreditKey = %q", got)
	}
}
