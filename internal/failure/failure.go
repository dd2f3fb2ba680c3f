// Package failure defines the typed failures returned by the engines.
package failure

import (
	"errors"
	"strings"

	"github.com/mmynk/groupbuy/internal/storage"
)

// Kind classifies a failure.
type Kind int

const (
	Unknown Kind = iota
	NotFound
	AlreadyExists
	InvalidState
	RuleExpired
	CapacityExceeded
	RuleMismatch
	OrderNotFull
	InvalidArgument
	Conflict
)

var kindNames = [...]string{
	Unknown:          "Unknown",
	NotFound:         "NotFound",
	AlreadyExists:    "AlreadyExists",
	InvalidState:     "InvalidState",
	RuleExpired:      "RuleExpired",
	CapacityExceeded: "CapacityExceeded",
	RuleMismatch:     "RuleMismatch",
	OrderNotFull:     "OrderNotFull",
	InvalidArgument:  "InvalidArgument",
	Conflict:         "Conflict",
}

var kindPhrases = [...]string{
	Unknown:          "failed",
	NotFound:         "not found",
	AlreadyExists:    "already exists",
	InvalidState:     "invalid state",
	RuleExpired:      "rule window has ended",
	CapacityExceeded: "group is already full",
	RuleMismatch:     "order does not belong to rule",
	OrderNotFull:     "group is not full yet",
	InvalidArgument:  "invalid argument",
	Conflict:         "concurrent write conflict, retry",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[Unknown]
	}
	return kindNames[k]
}

func (k Kind) phrase() string {
	if k < 0 || int(k) >= len(kindPhrases) {
		return kindPhrases[Unknown]
	}
	return kindPhrases[k]
}

// ParseKind is the inverse of Kind.String. Unrecognized names map to Unknown.
func ParseKind(s string) Kind {
	for k, name := range kindNames {
		if name == s {
			return Kind(k)
		}
	}
	return Unknown
}

// Entities named in failures.
const (
	Rule          = "rule"
	Order         = "order"
	Participation = "participation"
	Transaction   = "transaction"
	Account       = "account"
)

// Error is a failure of a ledger operation: what went wrong and which
// identifiers it concerns.
type Error struct {
	Kind   Kind
	Entity string
	IDs    []string
	Reason string
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Entity != "" {
		b.WriteString(e.Entity)
		if len(e.IDs) > 0 {
			b.WriteString(" '")
			b.WriteString(strings.Join(e.IDs, "', '"))
			b.WriteString("'")
		}
		b.WriteString(": ")
	}
	if e.Reason != "" {
		b.WriteString(e.Reason)
	} else {
		b.WriteString(e.Kind.phrase())
	}
	return b.String()
}

// Is matches target when kinds are equal and target's entity and reason,
// if set, match too. IDs are ignored.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	if t.Entity != "" && t.Entity != e.Entity {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// For returns a copy of e naming ids.
func (e *Error) For(ids ...string) *Error {
	cp := *e
	cp.IDs = ids
	return &cp
}

// Because returns a copy of e with an explanatory reason.
func (e *Error) Because(reason string) *Error {
	cp := *e
	cp.Reason = reason
	return &cp
}

// Templates for the failures the engines return. Use For to attach IDs.
var (
	ErrRuleNotFound          = &Error{Kind: NotFound, Entity: Rule}
	ErrOrderNotFound         = &Error{Kind: NotFound, Entity: Order}
	ErrParticipationNotFound = &Error{Kind: NotFound, Entity: Participation}
	ErrTransactionNotFound   = &Error{Kind: NotFound, Entity: Transaction}
	ErrAccountNotFound       = &Error{Kind: NotFound, Entity: Account}

	ErrRuleExists        = &Error{Kind: AlreadyExists, Entity: Rule}
	ErrOrderExists       = &Error{Kind: AlreadyExists, Entity: Order}
	ErrTransactionExists = &Error{Kind: AlreadyExists, Entity: Transaction}

	ErrParticipationExists = &Error{Kind: AlreadyExists, Entity: Participation}
	ErrAccountKeyTaken     = &Error{Kind: AlreadyExists, Entity: Account, Reason: "key holds another record"}

	ErrRuleClosed  = &Error{Kind: InvalidState, Entity: Rule, Reason: "rule is closed"}
	ErrRuleOpen    = &Error{Kind: InvalidState, Entity: Rule, Reason: "rule is already open"}
	ErrRuleExpired = &Error{Kind: RuleExpired, Entity: Rule}

	ErrCapacityExceeded = &Error{Kind: CapacityExceeded, Entity: Order}
	ErrOrderNotFull     = &Error{Kind: OrderNotFull, Entity: Order}
	ErrRuleMismatch     = &Error{Kind: RuleMismatch, Entity: Order}

	ErrInvalidArgument = &Error{Kind: InvalidArgument}
)

// KindOf returns the failure kind carried by err. Storage conflicts are
// reported as Conflict; anything unclassified is Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, storage.ErrConflict) {
		return Conflict
	}
	return Unknown
}

// Invalid is shorthand for an InvalidArgument failure.
func Invalid(reason string) *Error {
	return ErrInvalidArgument.Because(reason)
}
