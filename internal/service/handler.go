package service

import (
	"net/http"

	"connectrpc.com/connect"
)

// PromotionServiceName is the fully-qualified name of the PromotionService.
const PromotionServiceName = "groupbuy.v1.PromotionService"

// Procedure paths of the PromotionService.
const (
	InitCreditProcedure             = "/" + PromotionServiceName + "/InitCredit"
	ChangeCreditProcedure           = "/" + PromotionServiceName + "/ChangeCredit"
	QueryCreditProcedure            = "/" + PromotionServiceName + "/QueryCredit"
	CreateRuleProcedure             = "/" + PromotionServiceName + "/CreateRule"
	OpenRuleProcedure               = "/" + PromotionServiceName + "/OpenRule"
	CloseRuleProcedure              = "/" + PromotionServiceName + "/CloseRule"
	RegisterOrderProcedure          = "/" + PromotionServiceName + "/RegisterOrder"
	QueryParticipationProcedure     = "/" + PromotionServiceName + "/QueryParticipation"
	QueryStateProcedure             = "/" + PromotionServiceName + "/QueryState"
	InitGroupProcedure              = "/" + PromotionServiceName + "/InitGroup"
	ParticipateProcedure            = "/" + PromotionServiceName + "/Participate"
	QueryGroupBuyingProcedure       = "/" + PromotionServiceName + "/QueryGroupBuying"
	InitTransactionProcedure        = "/" + PromotionServiceName + "/InitTransaction"
	ChangeTransactionStateProcedure = "/" + PromotionServiceName + "/ChangeTransactionState"
	QueryTransactionProcedure       = "/" + PromotionServiceName + "/QueryTransaction"
	QueryHistoryProcedure           = "/" + PromotionServiceName + "/QueryHistory"
)

// NewPromotionServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself.
func NewPromotionServiceHandler(svc *PromotionService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(InitCreditProcedure, connect.NewUnaryHandler(InitCreditProcedure, svc.InitCredit, opts...))
	mux.Handle(ChangeCreditProcedure, connect.NewUnaryHandler(ChangeCreditProcedure, svc.ChangeCredit, opts...))
	mux.Handle(QueryCreditProcedure, connect.NewUnaryHandler(QueryCreditProcedure, svc.QueryCredit, opts...))
	mux.Handle(CreateRuleProcedure, connect.NewUnaryHandler(CreateRuleProcedure, svc.CreateRule, opts...))
	mux.Handle(OpenRuleProcedure, connect.NewUnaryHandler(OpenRuleProcedure, svc.OpenRule, opts...))
	mux.Handle(CloseRuleProcedure, connect.NewUnaryHandler(CloseRuleProcedure, svc.CloseRule, opts...))
	mux.Handle(RegisterOrderProcedure, connect.NewUnaryHandler(RegisterOrderProcedure, svc.RegisterOrder, opts...))
	mux.Handle(QueryParticipationProcedure, connect.NewUnaryHandler(QueryParticipationProcedure, svc.QueryParticipation, opts...))
	mux.Handle(QueryStateProcedure, connect.NewUnaryHandler(QueryStateProcedure, svc.QueryState, opts...))
	mux.Handle(InitGroupProcedure, connect.NewUnaryHandler(InitGroupProcedure, svc.InitGroup, opts...))
	mux.Handle(ParticipateProcedure, connect.NewUnaryHandler(ParticipateProcedure, svc.Participate, opts...))
	mux.Handle(QueryGroupBuyingProcedure, connect.NewUnaryHandler(QueryGroupBuyingProcedure, svc.QueryGroupBuying, opts...))
	mux.Handle(InitTransactionProcedure, connect.NewUnaryHandler(InitTransactionProcedure, svc.InitTransaction, opts...))
	mux.Handle(ChangeTransactionStateProcedure, connect.NewUnaryHandler(ChangeTransactionStateProcedure, svc.ChangeTransactionState, opts...))
	mux.Handle(QueryTransactionProcedure, connect.NewUnaryHandler(QueryTransactionProcedure, svc.QueryTransaction, opts...))
	mux.Handle(QueryHistoryProcedure, connect.NewUnaryHandler(QueryHistoryProcedure, svc.QueryHistory, opts...))

	return "/" + PromotionServiceName + "/", mux
}
