package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mmynk/groupbuy/internal/storage"
)

func TestErrorMatching(t *testing.T) {
	err := fmt.Errorf("participate: %w", ErrRuleClosed.For("R1"))

	if !errors.Is(err, ErrRuleClosed) {
		t.Error("expected match on the closed-rule template")
	}
	if errors.Is(err, ErrRuleOpen) {
		t.Error("closed rule must not match the already-open template")
	}
	if !errors.Is(err, &Error{Kind: InvalidState}) {
		t.Error("expected match on bare kind")
	}
	if errors.Is(err, ErrOrderNotFound) {
		t.Error("unexpected match on another kind")
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrRuleNotFound.For("R1"), "rule 'R1': not found"},
		{ErrRuleMismatch.For("O1", "R2"), "order 'O1', 'R2': order does not belong to rule"},
		{Invalid("delta must be an integer"), "delta must be an integer"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(ErrCapacityExceeded.For("O1")); got != CapacityExceeded {
		t.Errorf("KindOf = %s", got)
	}
	if got := KindOf(fmt.Errorf("commit: %w", storage.ErrConflict)); got != Conflict {
		t.Errorf("KindOf(conflict) = %s", got)
	}
	if got := KindOf(errors.New("disk on fire")); got != Unknown {
		t.Errorf("KindOf(other) = %s", got)
	}
	if got := ParseKind(OrderNotFull.String()); got != OrderNotFull {
		t.Errorf("ParseKind round trip = %s", got)
	}
}
