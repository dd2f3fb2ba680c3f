package service

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"github.com/jpillora/backoff"
)

const defaultMaxAttempts = 5

// PromotionClient is a typed client for the PromotionService. Calls that
// lose an optimistic ledger race are retried with exponential backoff;
// such calls committed nothing, so retrying is safe. Failures come back
// as *failure.Error where the server sent one.
type PromotionClient struct {
	maxAttempts int
	backoff     backoff.Backoff

	initCredit             *connect.Client[InitCreditRequest, CreditResponse]
	changeCredit           *connect.Client[ChangeCreditRequest, CreditResponse]
	queryCredit            *connect.Client[QueryCreditRequest, CreditResponse]
	createRule             *connect.Client[CreateRuleRequest, RuleResponse]
	openRule               *connect.Client[OpenRuleRequest, RuleResponse]
	closeRule              *connect.Client[CloseRuleRequest, RuleResponse]
	registerOrder          *connect.Client[RegisterOrderRequest, RuleResponse]
	queryParticipation     *connect.Client[QueryParticipationRequest, ParticipationResponse]
	queryState             *connect.Client[QueryStateRequest, StateResponse]
	initGroup              *connect.Client[InitGroupRequest, OrderResponse]
	participate            *connect.Client[ParticipateRequest, ParticipateResponse]
	queryGroupBuying       *connect.Client[QueryGroupBuyingRequest, GroupBuyingResponse]
	initTransaction        *connect.Client[InitTransactionRequest, TransactionResponse]
	changeTransactionState *connect.Client[ChangeTransactionStateRequest, TransactionResponse]
	queryTransaction       *connect.Client[QueryTransactionRequest, TransactionResponse]
	queryHistory           *connect.Client[QueryHistoryRequest, HistoryResponse]
}

// NewPromotionClient constructs a client for the PromotionService at baseURL.
func NewPromotionClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *PromotionClient {
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &PromotionClient{
		maxAttempts: defaultMaxAttempts,
		backoff: backoff.Backoff{
			Min:    10 * time.Millisecond,
			Max:    time.Second,
			Factor: 2,
			Jitter: true,
		},
		initCredit:             connect.NewClient[InitCreditRequest, CreditResponse](httpClient, baseURL+InitCreditProcedure, opts...),
		changeCredit:           connect.NewClient[ChangeCreditRequest, CreditResponse](httpClient, baseURL+ChangeCreditProcedure, opts...),
		queryCredit:            connect.NewClient[QueryCreditRequest, CreditResponse](httpClient, baseURL+QueryCreditProcedure, opts...),
		createRule:             connect.NewClient[CreateRuleRequest, RuleResponse](httpClient, baseURL+CreateRuleProcedure, opts...),
		openRule:               connect.NewClient[OpenRuleRequest, RuleResponse](httpClient, baseURL+OpenRuleProcedure, opts...),
		closeRule:              connect.NewClient[CloseRuleRequest, RuleResponse](httpClient, baseURL+CloseRuleProcedure, opts...),
		registerOrder:          connect.NewClient[RegisterOrderRequest, RuleResponse](httpClient, baseURL+RegisterOrderProcedure, opts...),
		queryParticipation:     connect.NewClient[QueryParticipationRequest, ParticipationResponse](httpClient, baseURL+QueryParticipationProcedure, opts...),
		queryState:             connect.NewClient[QueryStateRequest, StateResponse](httpClient, baseURL+QueryStateProcedure, opts...),
		initGroup:              connect.NewClient[InitGroupRequest, OrderResponse](httpClient, baseURL+InitGroupProcedure, opts...),
		participate:            connect.NewClient[ParticipateRequest, ParticipateResponse](httpClient, baseURL+ParticipateProcedure, opts...),
		queryGroupBuying:       connect.NewClient[QueryGroupBuyingRequest, GroupBuyingResponse](httpClient, baseURL+QueryGroupBuyingProcedure, opts...),
		initTransaction:        connect.NewClient[InitTransactionRequest, TransactionResponse](httpClient, baseURL+InitTransactionProcedure, opts...),
		changeTransactionState: connect.NewClient[ChangeTransactionStateRequest, TransactionResponse](httpClient, baseURL+ChangeTransactionStateProcedure, opts...),
		queryTransaction:       connect.NewClient[QueryTransactionRequest, TransactionResponse](httpClient, baseURL+QueryTransactionProcedure, opts...),
		queryHistory:           connect.NewClient[QueryHistoryRequest, HistoryResponse](httpClient, baseURL+QueryHistoryProcedure, opts...),
	}
}

// WithRetry sets how many times a conflicting call is attempted in total
// and the backoff bounds between attempts.
func (c *PromotionClient) WithRetry(maxAttempts int, min, max time.Duration) *PromotionClient {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	c.maxAttempts = maxAttempts
	c.backoff.Min = min
	c.backoff.Max = max
	return c
}

// call runs a unary RPC, retrying while the server reports an aborted
// (conflicting) commit.
func call[Req, Res any](ctx context.Context, c *PromotionClient, client *connect.Client[Req, Res], msg *Req) (*Res, error) {
	b := c.backoff
	b.Reset()
	for {
		resp, err := client.CallUnary(ctx, connect.NewRequest(msg))
		if err == nil {
			return resp.Msg, nil
		}
		if connect.CodeOf(err) != connect.CodeAborted || int(b.Attempt())+1 >= c.maxAttempts {
			return nil, fromConnectError(err)
		}

		timer := time.NewTimer(b.Duration())
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// InitCredit calls PromotionService.InitCredit.
func (c *PromotionClient) InitCredit(ctx context.Context, req *InitCreditRequest) (*CreditResponse, error) {
	return call(ctx, c, c.initCredit, req)
}

// ChangeCredit calls PromotionService.ChangeCredit.
func (c *PromotionClient) ChangeCredit(ctx context.Context, req *ChangeCreditRequest) (*CreditResponse, error) {
	return call(ctx, c, c.changeCredit, req)
}

// QueryCredit calls PromotionService.QueryCredit.
func (c *PromotionClient) QueryCredit(ctx context.Context, req *QueryCreditRequest) (*CreditResponse, error) {
	return call(ctx, c, c.queryCredit, req)
}

// CreateRule calls PromotionService.CreateRule.
func (c *PromotionClient) CreateRule(ctx context.Context, req *CreateRuleRequest) (*RuleResponse, error) {
	return call(ctx, c, c.createRule, req)
}

// OpenRule calls PromotionService.OpenRule.
func (c *PromotionClient) OpenRule(ctx context.Context, req *OpenRuleRequest) (*RuleResponse, error) {
	return call(ctx, c, c.openRule, req)
}

// CloseRule calls PromotionService.CloseRule.
func (c *PromotionClient) CloseRule(ctx context.Context, req *CloseRuleRequest) (*RuleResponse, error) {
	return call(ctx, c, c.closeRule, req)
}

// RegisterOrder calls PromotionService.RegisterOrder.
func (c *PromotionClient) RegisterOrder(ctx context.Context, req *RegisterOrderRequest) (*RuleResponse, error) {
	return call(ctx, c, c.registerOrder, req)
}

// QueryParticipation calls PromotionService.QueryParticipation.
func (c *PromotionClient) QueryParticipation(ctx context.Context, req *QueryParticipationRequest) (*ParticipationResponse, error) {
	return call(ctx, c, c.queryParticipation, req)
}

// QueryState calls PromotionService.QueryState.
func (c *PromotionClient) QueryState(ctx context.Context, req *QueryStateRequest) (*StateResponse, error) {
	return call(ctx, c, c.queryState, req)
}

// InitGroup calls PromotionService.InitGroup.
func (c *PromotionClient) InitGroup(ctx context.Context, req *InitGroupRequest) (*OrderResponse, error) {
	return call(ctx, c, c.initGroup, req)
}

// Participate calls PromotionService.Participate.
func (c *PromotionClient) Participate(ctx context.Context, req *ParticipateRequest) (*ParticipateResponse, error) {
	return call(ctx, c, c.participate, req)
}

// QueryGroupBuying calls PromotionService.QueryGroupBuying.
func (c *PromotionClient) QueryGroupBuying(ctx context.Context, req *QueryGroupBuyingRequest) (*GroupBuyingResponse, error) {
	return call(ctx, c, c.queryGroupBuying, req)
}

// InitTransaction calls PromotionService.InitTransaction.
func (c *PromotionClient) InitTransaction(ctx context.Context, req *InitTransactionRequest) (*TransactionResponse, error) {
	return call(ctx, c, c.initTransaction, req)
}

// ChangeTransactionState calls PromotionService.ChangeTransactionState.
func (c *PromotionClient) ChangeTransactionState(ctx context.Context, req *ChangeTransactionStateRequest) (*TransactionResponse, error) {
	return call(ctx, c, c.changeTransactionState, req)
}

// QueryTransaction calls PromotionService.QueryTransaction.
func (c *PromotionClient) QueryTransaction(ctx context.Context, req *QueryTransactionRequest) (*TransactionResponse, error) {
	return call(ctx, c, c.queryTransaction, req)
}

// QueryHistory calls PromotionService.QueryHistory.
func (c *PromotionClient) QueryHistory(ctx context.Context, req *QueryHistoryRequest) (*HistoryResponse, error) {
	return call(ctx, c, c.queryHistory, req)
}
