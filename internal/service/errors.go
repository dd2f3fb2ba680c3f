package service

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"

	"github.com/mmynk/groupbuy/internal/failure"
	"github.com/mmynk/groupbuy/internal/storage"
)

// Error metadata lets clients rebuild the typed failure. Binary headers
// carry caller-supplied identifiers, which may not be header-safe.
const (
	metaKind   = "Groupbuy-Failure-Kind"
	metaEntity = "Groupbuy-Failure-Entity"
	metaID     = "Groupbuy-Failure-Id-Bin"
	metaReason = "Groupbuy-Failure-Reason-Bin"
)

func codeFor(kind failure.Kind) connect.Code {
	switch kind {
	case failure.NotFound:
		return connect.CodeNotFound
	case failure.AlreadyExists:
		return connect.CodeAlreadyExists
	case failure.InvalidState, failure.RuleExpired, failure.CapacityExceeded,
		failure.RuleMismatch, failure.OrderNotFull:
		return connect.CodeFailedPrecondition
	case failure.InvalidArgument:
		return connect.CodeInvalidArgument
	case failure.Conflict:
		return connect.CodeAborted
	default:
		return connect.CodeInternal
	}
}

// toConnectError converts an engine error to a Connect error.
func toConnectError(err error) *connect.Error {
	switch {
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}

	kind := failure.KindOf(err)
	connectErr := connect.NewError(codeFor(kind), err)
	if kind == failure.Unknown {
		return connectErr
	}

	connectErr.Meta().Set(metaKind, kind.String())
	var fe *failure.Error
	if errors.As(err, &fe) {
		if fe.Entity != "" {
			connectErr.Meta().Set(metaEntity, fe.Entity)
		}
		for _, id := range fe.IDs {
			connectErr.Meta().Add(metaID, connect.EncodeBinaryHeader([]byte(id)))
		}
		if fe.Reason != "" {
			connectErr.Meta().Set(metaReason, connect.EncodeBinaryHeader([]byte(fe.Reason)))
		}
	}
	return connectErr
}

// fromConnectError rebuilds the typed failure carried by a Connect error.
// Errors without failure metadata are returned as is.
func fromConnectError(err error) error {
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		return err
	}
	meta := connectErr.Meta()
	kind := failure.ParseKind(meta.Get(metaKind))
	switch kind {
	case failure.Unknown:
		return err
	case failure.Conflict:
		return fmt.Errorf("%s: %w", connectErr.Message(), storage.ErrConflict)
	}

	fe := &failure.Error{
		Kind:   kind,
		Entity: meta.Get(metaEntity),
	}
	for _, raw := range meta.Values(metaID) {
		id, decodeErr := connect.DecodeBinaryHeader(raw)
		if decodeErr != nil {
			return err
		}
		fe.IDs = append(fe.IDs, string(id))
	}
	if raw := meta.Get(metaReason); raw != "" {
		reason, decodeErr := connect.DecodeBinaryHeader(raw)
		if decodeErr != nil {
			return err
		}
		fe.Reason = string(reason)
	}
	return fe
}
