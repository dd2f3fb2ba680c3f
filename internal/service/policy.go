package service

import (
	"github.com/mmynk/groupbuy/internal/auth"
	"github.com/mmynk/groupbuy/internal/middleware"
)

// AccessPolicy returns which roles may call each mutating procedure.
// Sellers manage rules, buyers form and join groups, and the platform
// may do anything, including reading key history. Other queries are open to every authenticated caller.
func AccessPolicy() middleware.Policy {
	seller := []auth.Role{auth.RoleSeller, auth.RolePlatform}
	buyer := []auth.Role{auth.RoleBuyer, auth.RolePlatform}
	platform := []auth.Role{auth.RolePlatform}

	return middleware.Policy{
		CreateRuleProcedure:    seller,
		OpenRuleProcedure:      seller,
		CloseRuleProcedure:     seller,
		RegisterOrderProcedure: seller,

		InitGroupProcedure:   buyer,
		ParticipateProcedure: buyer,

		InitCreditProcedure:             platform,
		ChangeCreditProcedure:           platform,
		InitTransactionProcedure:        platform,
		ChangeTransactionStateProcedure: platform,
		QueryHistoryProcedure:           platform,
	}
}
