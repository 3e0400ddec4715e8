package rules

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/opensource-finance/kestrel/internal/domain"
)

// Property-based test: discounts never exceed the subtotal or go negative.
func TestDiscountAmount_PropertyBounded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("discount stays within [0, subtotal]", prop.ForAll(
		func(percentage bool, value float64, quantity int, unitPrice float64) bool {
			rule := &domain.PricingRule{
				DiscountType:  domain.DiscountFixed,
				DiscountValue: value,
			}
			if percentage {
				rule.DiscountType = domain.DiscountPercentage
				// Keep the value in the valid percentage range.
				rule.DiscountValue = float64(int(value) % 101)
			}

			subtotal := float64(quantity) * unitPrice
			amount := discountAmount(rule, subtotal)

			return amount >= 0 && amount <= subtotal
		},
		gen.Bool(),
		gen.Float64Range(0, 100000),
		gen.IntRange(0, 10000),
		gen.Float64Range(0, 10000),
	))

	properties.TestingRun(t)
}

// Property-based test: resolution is deterministic for any candidate order.
func TestResolve_PropertyDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("resolution is independent of candidate order", prop.ForAll(
		func(count int, seed int) bool {
			candidates := make([]*CompiledRule, count)
			for i := 0; i < count; i++ {
				rule := volumeRule(fmt.Sprintf("rule-%03d", i), 1, float64((i*7)%100), (i*seed)%10)
				if i%3 == 0 {
					rule.CustomerID = "cust-001"
				}
				candidates[i] = candidate(rule)
			}

			octx := order(10, 100)
			forward := resolve(candidates, octx)

			reversed := make([]*CompiledRule, count)
			for i, cr := range candidates {
				reversed[count-1-i] = cr
			}
			backward := resolve(reversed, octx)

			if len(forward.AppliedRuleIDs) != len(backward.AppliedRuleIDs) {
				return false
			}
			for i := range forward.AppliedRuleIDs {
				if forward.AppliedRuleIDs[i] != backward.AppliedRuleIDs[i] {
					return false
				}
			}
			return forward.DiscountAmount == backward.DiscountAmount
		},
		gen.IntRange(0, 30),
		gen.IntRange(1, 97),
	))

	properties.TestingRun(t)
}

// Property-based test: the winner always carries the maximum priority among
// the candidates.
func TestResolve_PropertyWinnerHasTopPriority(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("applied rule has the highest candidate priority", prop.ForAll(
		func(priorities []int) bool {
			if len(priorities) == 0 {
				return true
			}

			maxPriority := 0
			candidates := make([]*CompiledRule, len(priorities))
			for i, p := range priorities {
				if p < 0 {
					p = -p
				}
				if p > maxPriority {
					maxPriority = p
				}
				candidates[i] = candidate(volumeRule(fmt.Sprintf("rule-%03d", i), 1, 10, p))
			}

			res := resolve(candidates, order(5, 100))
			if len(res.AppliedRuleIDs) != 1 {
				return false
			}

			for _, cr := range candidates {
				if cr.Rule.ID == res.AppliedRuleIDs[0] {
					return cr.Rule.Priority == maxPriority
				}
			}
			return false
		},
		gen.SliceOf(gen.IntRange(0, 50)),
	))

	properties.TestingRun(t)
}
