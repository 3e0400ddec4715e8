package rules

import (
	"github.com/opensource-finance/kestrel/internal/criteria"
	"github.com/opensource-finance/kestrel/internal/domain"
)

// match filters the snapshot to the candidate set for an order context.
// A rule must pass every gate; there are no partial matches. The candidate
// set carries no particular order, ordering is the resolver's job.
func match(snapshot []*CompiledRule, tenantID string, octx *domain.OrderContext) []*CompiledRule {
	var candidates []*CompiledRule
	for _, cr := range snapshot {
		if !tenantGate(cr.Rule, tenantID) {
			continue
		}
		if eligible(cr, octx) {
			candidates = append(candidates, cr)
		}
	}
	return candidates
}

// tenantGate restricts matching to the caller's tenant. A rule with an empty
// tenant id is shared across tenants.
func tenantGate(rule *domain.PricingRule, tenantID string) bool {
	return rule.TenantID == "" || rule.TenantID == tenantID
}

func eligible(cr *CompiledRule, octx *domain.OrderContext) bool {
	rule := cr.Rule

	if !rule.Enabled {
		return false
	}
	if !kindGate(rule, octx) {
		return false
	}
	if !scopeGate(rule, octx) {
		return false
	}
	if cr.Program != nil {
		ok, err := cr.Program.eval(octx)
		if err != nil || !ok {
			// An expression that errors at runtime excludes the rule;
			// the matcher stays total.
			return false
		}
	}
	return true
}

// kindGate applies the rule kind's own condition.
func kindGate(rule *domain.PricingRule, octx *domain.OrderContext) bool {
	switch rule.Kind {
	case domain.RuleVolumeDiscount:
		return quantityInBounds(rule, octx.Quantity)
	case domain.RuleCustomerTier:
		return criteria.Evaluate(rule.Criteria, octx.Attributes)
	case domain.RuleDateRange:
		return dateInWindow(rule, octx)
	case domain.RuleProductBundle:
		return bundleSatisfied(rule, octx)
	}
	return false
}

// quantityInBounds checks the inclusive [min, max] quantity bounds. Either
// bound may be absent, meaning unbounded on that side.
func quantityInBounds(rule *domain.PricingRule, quantity int) bool {
	if rule.MinQuantity != nil && quantity < *rule.MinQuantity {
		return false
	}
	if rule.MaxQuantity != nil && quantity > *rule.MaxQuantity {
		return false
	}
	return true
}

// dateInWindow checks the inclusive [startDate, endDate] validity window.
// An absent bound means always valid on that side.
func dateInWindow(rule *domain.PricingRule, octx *domain.OrderContext) bool {
	if rule.StartDate != nil && octx.OrderDate.Before(*rule.StartDate) {
		return false
	}
	if rule.EndDate != nil && octx.OrderDate.After(*rule.EndDate) {
		return false
	}
	return true
}

// bundleSatisfied requires every bundle product to be on the order.
func bundleSatisfied(rule *domain.PricingRule, octx *domain.OrderContext) bool {
	for _, productID := range rule.BundleProducts {
		if !octx.HasProduct(productID) {
			return false
		}
	}
	return true
}

// scopeGate requires an exact customer/product match whenever the rule
// names one. Empty scope fields are wildcards.
func scopeGate(rule *domain.PricingRule, octx *domain.OrderContext) bool {
	if rule.CustomerID != "" && rule.CustomerID != octx.CustomerID {
		return false
	}
	if rule.ProductID != "" && rule.ProductID != octx.ProductID {
		return false
	}
	return true
}
