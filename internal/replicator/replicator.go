// Package replicator derives per-code creation requests from a master
// discount template.
package replicator

import (
	"promo-batch/internal/gateway"
)

// Forced single-use semantics for every replicated code. These override
// whatever the template specifies.
const (
	forcedUsageLimit      = 1
	forcedOncePerCustomer = true
)

// Build transforms one master template plus one target code into a creation
// request. The code is the only field that varies across items replicated
// from the same template; everything else is copied or resolved from the
// template.
func Build(tpl *gateway.Template, code string) gateway.CreateRequest {
	return gateway.CreateRequest{
		Code:               code,
		Title:              tpl.Title,
		Value:              resolveValue(tpl.Value),
		ItemScope:          resolveItemScope(tpl.ItemScope),
		Audience:           resolveAudience(tpl.Audience),
		MinimumRequirement: tpl.MinimumRequirement,
		StartsAt:           tpl.StartsAt,
		EndsAt:             tpl.EndsAt,
		UsageLimit:         forcedUsageLimit,
		OncePerCustomer:    forcedOncePerCustomer,
	}
}

func resolveValue(v gateway.Value) gateway.Value {
	switch v.Kind {
	case gateway.ValuePercentage:
		return gateway.Value{Kind: gateway.ValuePercentage, Percentage: v.Percentage}
	case gateway.ValueFixedAmount:
		return gateway.Value{Kind: gateway.ValueFixedAmount, Amount: v.Amount, CurrencyCode: v.CurrencyCode}
	default:
		return v
	}
}

func resolveItemScope(s gateway.ItemScope) gateway.ItemScope {
	switch s.Kind {
	case gateway.ItemsProducts:
		return gateway.ItemScope{Kind: gateway.ItemsProducts, IDs: s.IDs}
	case gateway.ItemsCollections:
		return gateway.ItemScope{Kind: gateway.ItemsCollections, IDs: s.IDs}
	default:
		// Templates without an explicit item scope apply to everything.
		return gateway.ItemScope{Kind: gateway.ItemsAll}
	}
}

func resolveAudience(a gateway.Audience) gateway.Audience {
	switch a.Kind {
	case gateway.AudienceCustomers:
		return gateway.Audience{Kind: gateway.AudienceCustomers, CustomerIDs: a.CustomerIDs}
	default:
		return gateway.Audience{Kind: gateway.AudienceAll}
	}
}
