package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"connectrpc.com/connect"
	"github.com/raulk/clock"

	"github.com/mmynk/groupbuy/internal/credit"
	"github.com/mmynk/groupbuy/internal/failure"
	"github.com/mmynk/groupbuy/internal/groupbuy"
	"github.com/mmynk/groupbuy/internal/metrics"
	"github.com/mmynk/groupbuy/internal/models"
	"github.com/mmynk/groupbuy/internal/rules"
	"github.com/mmynk/groupbuy/internal/settlement"
	"github.com/mmynk/groupbuy/internal/storage"
)

// PromotionService implements the PromotionService RPC interface on top of
// the credit ledger, rule registry, group engine and settlement engine.
type PromotionService struct {
	credits     *credit.Ledger
	rules       *rules.Registry
	groups      *groupbuy.Engine
	settlements *settlement.Engine
	metrics     *metrics.Metrics
	history     storage.Historian
}

// NewPromotionService creates a PromotionService over store. m may be nil.
func NewPromotionService(store storage.Ledger, clk clock.Clock, m *metrics.Metrics) *PromotionService {
	return &PromotionService{
		credits:     credit.NewLedger(store),
		rules:       rules.NewRegistry(store, clk),
		groups:      groupbuy.NewEngine(store, clk),
		settlements: settlement.NewEngine(store),
		metrics:     m,
	}
}

// WithHistory enables QueryHistory over h.
func (s *PromotionService) WithHistory(h storage.Historian) *PromotionService {
	s.history = h
	return s
}

// fail logs a failed operation and converts err for the wire.
func (s *PromotionService) fail(op string, err error, attrs ...any) error {
	kind := failure.KindOf(err)
	if kind == failure.Conflict {
		s.metrics.ObserveConflict(op)
	}
	attrs = append(attrs, "kind", kind.String(), "error", err)
	if kind == failure.Unknown {
		slog.Error(op+" failed", attrs...)
	} else {
		slog.Warn(op+" failed", attrs...)
	}
	return toConnectError(err)
}

// InitCredit sets a user's credit to the initial score.
func (s *PromotionService) InitCredit(ctx context.Context, req *connect.Request[InitCreditRequest]) (*connect.Response[CreditResponse], error) {
	slog.Info("InitCredit request received", "user_id", req.Msg.UserID)

	if err := s.credits.InitCredit(ctx, req.Msg.UserID); err != nil {
		return nil, s.fail("InitCredit", err, "user_id", req.Msg.UserID)
	}

	slog.Info("InitCredit successful", "user_id", req.Msg.UserID, "balance", credit.InitialCredit)

	return connect.NewResponse(&CreditResponse{
		UserID:  req.Msg.UserID,
		Balance: credit.InitialCredit,
	}), nil
}

// ChangeCredit adjusts a user's credit by a signed delta, floored at zero.
func (s *PromotionService) ChangeCredit(ctx context.Context, req *connect.Request[ChangeCreditRequest]) (*connect.Response[CreditResponse], error) {
	slog.Info("ChangeCredit request received", "user_id", req.Msg.UserID, "delta", req.Msg.Delta)

	balance, err := s.credits.ChangeCredit(ctx, req.Msg.UserID, req.Msg.Delta)
	if err != nil {
		return nil, s.fail("ChangeCredit", err, "user_id", req.Msg.UserID)
	}

	slog.Info("ChangeCredit successful", "user_id", req.Msg.UserID, "balance", balance)

	return connect.NewResponse(&CreditResponse{UserID: req.Msg.UserID, Balance: balance}), nil
}

// QueryCredit returns a user's credit.
func (s *PromotionService) QueryCredit(ctx context.Context, req *connect.Request[QueryCreditRequest]) (*connect.Response[CreditResponse], error) {
	slog.Debug("QueryCredit request received", "user_id", req.Msg.UserID)

	balance, err := s.credits.QueryCredit(ctx, req.Msg.UserID)
	if err != nil {
		return nil, s.fail("QueryCredit", err, "user_id", req.Msg.UserID)
	}

	return connect.NewResponse(&CreditResponse{UserID: req.Msg.UserID, Balance: balance}), nil
}

// CreateRule registers a closed discount rule.
func (s *PromotionService) CreateRule(ctx context.Context, req *connect.Request[CreateRuleRequest]) (*connect.Response[RuleResponse], error) {
	msg := req.Msg
	slog.Info("CreateRule request received",
		"seller_id", msg.SellerID,
		"rule_id", msg.RuleID,
		"good_id", msg.GoodID,
		"group_num", msg.GroupNum,
	)

	groupNum, err := parseInt("groupNum", msg.GroupNum)
	if err != nil {
		return nil, s.fail("CreateRule", err, "rule_id", msg.RuleID)
	}
	first, err := parseAmount("firstBuyerPrice", msg.FirstBuyerPrice)
	if err != nil {
		return nil, s.fail("CreateRule", err, "rule_id", msg.RuleID)
	}
	other, err := parseAmount("otherBuyerPrice", msg.OtherBuyerPrice)
	if err != nil {
		return nil, s.fail("CreateRule", err, "rule_id", msg.RuleID)
	}

	rule, err := s.rules.CreateRule(ctx, msg.SellerID, msg.RuleID, msg.GoodID, groupNum, first, other)
	if err != nil {
		return nil, s.fail("CreateRule", err, "rule_id", msg.RuleID)
	}

	slog.Info("Rule created", "rule_id", msg.RuleID)

	return connect.NewResponse(&RuleResponse{RuleID: msg.RuleID, Rule: rule}), nil
}

// OpenRule opens a rule's window for the given number of minutes.
func (s *PromotionService) OpenRule(ctx context.Context, req *connect.Request[OpenRuleRequest]) (*connect.Response[RuleResponse], error) {
	slog.Info("OpenRule request received", "rule_id", req.Msg.RuleID, "duration", req.Msg.Duration)

	minutes, err := parseInt("duration", req.Msg.Duration)
	if err != nil {
		return nil, s.fail("OpenRule", err, "rule_id", req.Msg.RuleID)
	}

	rule, err := s.rules.OpenRule(ctx, req.Msg.RuleID, minutes)
	if err != nil {
		return nil, s.fail("OpenRule", err, "rule_id", req.Msg.RuleID)
	}

	slog.Info("OpenRule successful", "rule_id", req.Msg.RuleID, "end_time", rule.EndTime)

	return connect.NewResponse(&RuleResponse{RuleID: req.Msg.RuleID, Rule: rule}), nil
}

// CloseRule closes a rule's window.
func (s *PromotionService) CloseRule(ctx context.Context, req *connect.Request[CloseRuleRequest]) (*connect.Response[RuleResponse], error) {
	slog.Info("CloseRule request received", "rule_id", req.Msg.RuleID)

	rule, err := s.rules.CloseRule(ctx, req.Msg.RuleID)
	if err != nil {
		return nil, s.fail("CloseRule", err, "rule_id", req.Msg.RuleID)
	}

	slog.Info("CloseRule successful", "rule_id", req.Msg.RuleID)

	return connect.NewResponse(&RuleResponse{RuleID: req.Msg.RuleID, Rule: rule}), nil
}

// RegisterOrder appends an order to a rule's order book.
func (s *PromotionService) RegisterOrder(ctx context.Context, req *connect.Request[RegisterOrderRequest]) (*connect.Response[RuleResponse], error) {
	slog.Info("RegisterOrder request received", "rule_id", req.Msg.RuleID, "group_buying_id", req.Msg.GroupBuyingID)

	rule, err := s.rules.RegisterOrder(ctx, req.Msg.RuleID, req.Msg.GroupBuyingID)
	if err != nil {
		return nil, s.fail("RegisterOrder", err, "rule_id", req.Msg.RuleID)
	}

	slog.Info("RegisterOrder successful", "rule_id", req.Msg.RuleID, "order_num", rule.OrderNum)

	return connect.NewResponse(&RuleResponse{RuleID: req.Msg.RuleID, Rule: rule}), nil
}

// QueryParticipation lists the orders registered against a rule.
func (s *PromotionService) QueryParticipation(ctx context.Context, req *connect.Request[QueryParticipationRequest]) (*connect.Response[ParticipationResponse], error) {
	slog.Debug("QueryParticipation request received", "rule_id", req.Msg.RuleID)

	book, err := s.rules.QueryParticipation(ctx, req.Msg.RuleID)
	if err != nil {
		return nil, s.fail("QueryParticipation", err, "rule_id", req.Msg.RuleID)
	}

	orderIDs := book.OrderIDs
	if orderIDs == nil {
		orderIDs = []string{}
	}
	return connect.NewResponse(&ParticipationResponse{
		RuleID:   book.RuleID,
		OrderNum: book.OrderNum,
		OrderIDs: orderIDs,
	}), nil
}

// QueryState reports a rule's state and remaining window.
func (s *PromotionService) QueryState(ctx context.Context, req *connect.Request[QueryStateRequest]) (*connect.Response[StateResponse], error) {
	slog.Debug("QueryState request received", "rule_id", req.Msg.RuleID)

	status, err := s.rules.QueryState(ctx, req.Msg.RuleID)
	if err != nil {
		return nil, s.fail("QueryState", err, "rule_id", req.Msg.RuleID)
	}

	return connect.NewResponse(&StateResponse{
		RuleID:          status.RuleID,
		State:           status.State.String(),
		StartTime:       status.StartTime,
		EndTime:         status.EndTime,
		RemainingMillis: status.Remaining.Milliseconds(),
		Expired:         status.Expired,
		Summary:         summarize(status),
	}), nil
}

// InitGroup creates a group buying order against an open rule.
func (s *PromotionService) InitGroup(ctx context.Context, req *connect.Request[InitGroupRequest]) (*connect.Response[OrderResponse], error) {
	msg := req.Msg
	slog.Info("InitGroup request received",
		"user_id", msg.UserID,
		"group_buying_id", msg.GroupBuyingID,
		"rule_id", msg.RuleID,
	)

	order, err := s.groups.InitGroup(ctx, msg.UserID, msg.GroupBuyingID, msg.RuleID)
	if err != nil {
		return nil, s.fail("InitGroup", err, "group_buying_id", msg.GroupBuyingID)
	}

	slog.Info("Group created", "group_buying_id", order.GroupBuyingID, "group_num", order.GroupNum)

	return connect.NewResponse(&OrderResponse{Order: order}), nil
}

// Participate admits a buyer into a group buying order.
func (s *PromotionService) Participate(ctx context.Context, req *connect.Request[ParticipateRequest]) (*connect.Response[ParticipateResponse], error) {
	slog.Info("Participate request received", "user_id", req.Msg.UserID, "group_buying_id", req.Msg.GroupBuyingID)

	adm, err := s.groups.Participate(ctx, req.Msg.UserID, req.Msg.GroupBuyingID)
	if err != nil {
		s.metrics.ObserveAdmission(failure.KindOf(err).String())
		return nil, s.fail("Participate", err, "group_buying_id", req.Msg.GroupBuyingID)
	}
	s.metrics.ObserveAdmission("admitted")

	slog.Info("Participate successful",
		"group_buying_id", req.Msg.GroupBuyingID,
		"ordinal", adm.Participation.Ordinal,
		"current_num", adm.Order.CurrentNum,
		"group_num", adm.Order.GroupNum,
	)

	return connect.NewResponse(&ParticipateResponse{
		Order:         adm.Order,
		Participation: adm.Participation,
	}), nil
}

// QueryGroupBuying reports an order's fill level.
func (s *PromotionService) QueryGroupBuying(ctx context.Context, req *connect.Request[QueryGroupBuyingRequest]) (*connect.Response[GroupBuyingResponse], error) {
	slog.Debug("QueryGroupBuying request received", "group_buying_id", req.Msg.GroupBuyingID)

	progress, err := s.groups.QueryGroupBuying(ctx, req.Msg.GroupBuyingID)
	if err != nil {
		return nil, s.fail("QueryGroupBuying", err, "group_buying_id", req.Msg.GroupBuyingID)
	}

	return connect.NewResponse(&GroupBuyingResponse{
		GroupBuyingID: progress.GroupBuyingID,
		RuleID:        progress.RuleID,
		GroupNum:      progress.GroupNum,
		CurrentNum:    progress.CurrentNum,
		Phase:         string(progress.Phase),
	}), nil
}

// InitTransaction settles a full order.
func (s *PromotionService) InitTransaction(ctx context.Context, req *connect.Request[InitTransactionRequest]) (*connect.Response[TransactionResponse], error) {
	slog.Info("InitTransaction request received", "rule_id", req.Msg.RuleID, "group_buying_id", req.Msg.GroupBuyingID)

	txn, err := s.settlements.InitTransaction(ctx, req.Msg.RuleID, req.Msg.GroupBuyingID)
	if err != nil {
		return nil, s.fail("InitTransaction", err, "group_buying_id", req.Msg.GroupBuyingID)
	}
	s.metrics.ObserveSettlement(txn.Receivables)

	slog.Info("Settlement created",
		"transaction_id", txn.ID(),
		"payers", len(txn.PayerIDs),
		"receivables", txn.Receivables,
	)

	return connect.NewResponse(&TransactionResponse{
		TransactionID: txn.ID(),
		State:         txn.TransState.String(),
		Label:         txn.TransState.Label(),
		Transaction:   txn,
	}), nil
}

// ChangeTransactionState overwrites a transaction's payment state.
func (s *PromotionService) ChangeTransactionState(ctx context.Context, req *connect.Request[ChangeTransactionStateRequest]) (*connect.Response[TransactionResponse], error) {
	slog.Info("ChangeTransactionState request received", "transaction_id", req.Msg.TransactionID, "state", req.Msg.State)

	txn, err := s.settlements.ChangeTransactionState(ctx, req.Msg.TransactionID, req.Msg.State)
	if err != nil {
		return nil, s.fail("ChangeTransactionState", err, "transaction_id", req.Msg.TransactionID)
	}

	slog.Info("ChangeTransactionState successful", "transaction_id", req.Msg.TransactionID, "state", txn.TransState)

	return connect.NewResponse(&TransactionResponse{
		TransactionID: req.Msg.TransactionID,
		State:         txn.TransState.String(),
		Label:         txn.TransState.Label(),
		Transaction:   txn,
	}), nil
}

// QueryTransaction returns a transaction and its payment label.
func (s *PromotionService) QueryTransaction(ctx context.Context, req *connect.Request[QueryTransactionRequest]) (*connect.Response[TransactionResponse], error) {
	slog.Debug("QueryTransaction request received", "transaction_id", req.Msg.TransactionID)

	receipt, err := s.settlements.QueryTransaction(ctx, req.Msg.TransactionID)
	if err != nil {
		return nil, s.fail("QueryTransaction", err, "transaction_id", req.Msg.TransactionID)
	}

	return connect.NewResponse(&TransactionResponse{
		TransactionID: receipt.TransactionID,
		State:         receipt.State.String(),
		Label:         receipt.Label,
		Transaction:   receipt.Transaction,
	}), nil
}

// QueryHistory returns every committed value of a ledger key, oldest first.
func (s *PromotionService) QueryHistory(ctx context.Context, req *connect.Request[QueryHistoryRequest]) (*connect.Response[HistoryResponse], error) {
	slog.Debug("QueryHistory request received", "key", req.Msg.Key)

	if s.history == nil {
		return nil, connect.NewError(connect.CodeUnimplemented, errors.New("ledger backend keeps no history"))
	}
	if req.Msg.Key == "" {
		return nil, s.fail("QueryHistory", failure.Invalid("key required"))
	}

	entries, err := s.history.History(ctx, req.Msg.Key)
	if err != nil {
		return nil, s.fail("QueryHistory", err, "key", req.Msg.Key)
	}

	resp := &HistoryResponse{Key: req.Msg.Key, Entries: make([]HistoryEntry, len(entries))}
	for i, e := range entries {
		resp.Entries[i] = HistoryEntry{
			Version:     e.Version,
			Value:       e.Value,
			CommitID:    e.CommitID,
			CommittedAt: e.CommittedAt,
		}
	}
	return connect.NewResponse(resp), nil
}

func parseInt(name, s string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, failure.Invalid(fmt.Sprintf("%s must be an integer, got %q", name, s))
	}
	return int(n), nil
}

func parseAmount(name, s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, failure.Invalid(fmt.Sprintf("%s must be an integer amount, got %q", name, s))
	}
	return n, nil
}

func summarize(status *rules.Status) string {
	switch {
	case status.State != models.RuleOpen:
		return "closed"
	case status.Expired:
		return "window has ended"
	default:
		return fmt.Sprintf("open, closes in %d min", int64(status.Remaining.Minutes()))
	}
}
