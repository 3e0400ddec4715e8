package rules

import (
	"fmt"
	"sort"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// resolve orders the candidates and applies the stacking policy.
//
// Stacking is exclusive-by-default: only the top-ranked rule applies. The
// data model has no combinable flag, and silently stacking unrelated
// discounts risks unbounded compounding.
func resolve(candidates []*CompiledRule, octx *domain.OrderContext) *domain.Resolution {
	res := &domain.Resolution{
		Subtotal: octx.Subtotal(),
		Status:   domain.ResolutionApproved,
		Context:  *octx,
	}

	if len(candidates) == 0 {
		// No discount is a normal outcome, not an error.
		return res
	}

	ranked := make([]*CompiledRule, len(candidates))
	copy(ranked, candidates)
	sortCandidates(ranked)

	winner := ranked[0].Rule
	amount := discountAmount(winner, res.Subtotal)

	res.AppliedRuleIDs = []string{winner.ID}
	res.DiscountType = winner.DiscountType
	res.DiscountValue = winner.DiscountValue
	res.DiscountAmount = amount

	if required, reason := approvalRequired(winner, amount); required {
		res.ApprovalRequired = true
		res.ApprovalReason = reason
		res.Status = domain.ResolutionPending
	}

	return res
}

// sortCandidates ranks by priority descending, then most-specific scope
// first, then rule id ascending for full determinism.
func sortCandidates(candidates []*CompiledRule) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].Rule, candidates[j].Rule
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if sa, sb := a.Specificity(), b.Specificity(); sa != sb {
			return sa > sb
		}
		return a.ID < b.ID
	})
}

// discountAmount computes the monetary discount for a line subtotal.
// A fixed discount is capped at the subtotal so totals never go negative.
func discountAmount(rule *domain.PricingRule, subtotal float64) float64 {
	switch rule.DiscountType {
	case domain.DiscountPercentage:
		return subtotal * rule.DiscountValue / 100
	case domain.DiscountFixed:
		if rule.DiscountValue > subtotal {
			return subtotal
		}
		return rule.DiscountValue
	}
	return 0
}

// approvalRequired applies the rule's approval policy: an explicit
// requiresApproval flag, or a discount amount above the approval limit even
// when the flag is unset.
func approvalRequired(rule *domain.PricingRule, amount float64) (bool, string) {
	if rule.RequiresApproval {
		return true, fmt.Sprintf("rule %s requires approval", rule.ID)
	}
	if rule.ApprovalLimit != nil && amount > *rule.ApprovalLimit {
		return true, fmt.Sprintf("discount %.2f exceeds approval limit %.2f", amount, *rule.ApprovalLimit)
	}
	return false, ""
}
