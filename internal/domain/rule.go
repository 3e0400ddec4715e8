package domain

import (
	"fmt"
	"time"
)

// RuleKind discriminates the pricing rule variants. Each kind consults only
// its own condition fields; Validate rejects combinations that mix them.
type RuleKind string

const (
	RuleVolumeDiscount RuleKind = "volume_discount"
	RuleCustomerTier   RuleKind = "customer_tier"
	RuleDateRange      RuleKind = "date_range"
	RuleProductBundle  RuleKind = "product_bundle"
)

// DiscountType determines how DiscountValue is applied to a line subtotal.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed_amount"
)

// PricingRule is a named pricing adjustment with eligibility conditions,
// a discount, and usage accounting.
type PricingRule struct {
	ID          string   `json:"id"`
	TenantID    string   `json:"tenantId,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Kind        RuleKind `json:"ruleType"`

	// Scope. Empty means wildcard.
	CustomerID string `json:"customerId,omitempty"`
	ProductID  string `json:"productId,omitempty"`

	// Quantity bounds, volume_discount only. Nil means unbounded on that side.
	MinQuantity *int `json:"minimumQuantity,omitempty"`
	MaxQuantity *int `json:"maximumQuantity,omitempty"`

	// Validity window, date_range only. Bounds are inclusive.
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`

	// Bundle membership, product_bundle only. The order must carry every
	// listed product.
	BundleProducts []string `json:"bundleProducts,omitempty"`

	// Customer eligibility criteria, customer_tier only.
	Criteria *Criteria `json:"criteria,omitempty"`

	// Expression is an optional CEL predicate over the order context,
	// consulted as a final eligibility gate for any kind. Validated and
	// compiled at rule-write time.
	Expression string `json:"expression,omitempty"`

	DiscountType  DiscountType `json:"discountType"`
	DiscountValue float64      `json:"discountValue"`

	// Priority orders candidates, higher first.
	Priority int `json:"priority"`

	RequiresApproval bool `json:"requiresApproval"`

	// ApprovalLimit forces approval for discount amounts above this value
	// even when RequiresApproval is false.
	ApprovalLimit *float64 `json:"approvalLimit,omitempty"`

	Enabled bool `json:"isActive"`

	// Append-only counters, maintained exclusively by the ledger commit.
	// Never written through SaveRule.
	UsageCount   int64   `json:"usageCount"`
	TotalSavings float64 `json:"totalSavings"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Validate enforces the write-time invariants from the rule data model.
// Kind-specific fields on the wrong kind are rejected rather than ignored.
func (r *PricingRule) Validate() error {
	if r.ID == "" || r.Name == "" {
		return fmt.Errorf("%w: id and name are required", ErrInvalidRule)
	}
	if r.Priority < 0 {
		return fmt.Errorf("%w: priority must be >= 0", ErrInvalidRule)
	}
	if r.DiscountValue < 0 {
		return fmt.Errorf("%w: discountValue must be >= 0", ErrInvalidRule)
	}

	switch r.DiscountType {
	case DiscountPercentage:
		if r.DiscountValue > 100 {
			return fmt.Errorf("%w: percentage discount must be <= 100", ErrInvalidRule)
		}
	case DiscountFixed:
	default:
		return fmt.Errorf("%w: unknown discountType %q", ErrInvalidRule, r.DiscountType)
	}

	switch r.Kind {
	case RuleVolumeDiscount:
		if r.MinQuantity != nil && *r.MinQuantity < 0 {
			return fmt.Errorf("%w: minimumQuantity must be >= 0", ErrInvalidRule)
		}
		if r.MinQuantity != nil && r.MaxQuantity != nil && *r.MinQuantity > *r.MaxQuantity {
			return fmt.Errorf("%w: minimumQuantity exceeds maximumQuantity", ErrInvalidRule)
		}
		if r.StartDate != nil || r.EndDate != nil || len(r.BundleProducts) > 0 || r.Criteria != nil {
			return fmt.Errorf("%w: volume_discount carries only quantity bounds", ErrInvalidRule)
		}
	case RuleCustomerTier:
		if r.Criteria == nil {
			return fmt.Errorf("%w: customer_tier requires criteria", ErrInvalidRule)
		}
		if r.MinQuantity != nil || r.MaxQuantity != nil || r.StartDate != nil || r.EndDate != nil || len(r.BundleProducts) > 0 {
			return fmt.Errorf("%w: customer_tier carries only criteria", ErrInvalidRule)
		}
	case RuleDateRange:
		if r.StartDate != nil && r.EndDate != nil && r.EndDate.Before(*r.StartDate) {
			return fmt.Errorf("%w: startDate must not be after endDate", ErrInvalidRule)
		}
		if r.MinQuantity != nil || r.MaxQuantity != nil || len(r.BundleProducts) > 0 || r.Criteria != nil {
			return fmt.Errorf("%w: date_range carries only a validity window", ErrInvalidRule)
		}
	case RuleProductBundle:
		if len(r.BundleProducts) == 0 {
			return fmt.Errorf("%w: product_bundle requires bundleProducts", ErrInvalidRule)
		}
		if r.MinQuantity != nil || r.MaxQuantity != nil || r.StartDate != nil || r.EndDate != nil || r.Criteria != nil {
			return fmt.Errorf("%w: product_bundle carries only bundleProducts", ErrInvalidRule)
		}
	default:
		return fmt.Errorf("%w: unknown ruleType %q", ErrInvalidRule, r.Kind)
	}

	if r.ApprovalLimit != nil && *r.ApprovalLimit < 0 {
		return fmt.Errorf("%w: approvalLimit must be >= 0", ErrInvalidRule)
	}

	return nil
}

// Specificity ranks scope narrowness for resolver tie-breaks: rules naming
// both customer and product rank above rules naming one, which rank above
// wildcard rules.
func (r *PricingRule) Specificity() int {
	n := 0
	if r.CustomerID != "" {
		n++
	}
	if r.ProductID != "" {
		n++
	}
	return n
}

// PricingTier is a spend-threshold lookup used to resolve a customer's tier
// attribute when the caller does not supply one. CustomerCount is derived by
// segment evaluation on demand, never stored truth.
type PricingTier struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenantId,omitempty"`
	Name          string    `json:"tierName"`
	Description   string    `json:"description,omitempty"`
	MinimumValue  float64   `json:"minimumValue"`
	DiscountRate  float64   `json:"discountRate"`
	CustomerCount int       `json:"customerCount,omitempty"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty"`
}

// ResolveTier returns the tier with the highest threshold the spend clears,
// or nil when no tier applies.
func ResolveTier(tiers []*PricingTier, totalSpend float64) *PricingTier {
	var best *PricingTier
	for _, tier := range tiers {
		if totalSpend < tier.MinimumValue {
			continue
		}
		if best == nil || tier.MinimumValue > best.MinimumValue {
			best = tier
		}
	}
	return best
}
