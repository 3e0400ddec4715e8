package domain

import "time"

// ResolutionStatus tracks the approval state machine. Pending moves to
// Approved or Rejected exactly once; both are terminal. Resolutions that
// never needed approval start in Approved.
type ResolutionStatus string

const (
	ResolutionPending  ResolutionStatus = "pending"
	ResolutionApproved ResolutionStatus = "approved"
	ResolutionRejected ResolutionStatus = "rejected"
)

// Resolution is the outcome of applying the priority and stacking policy to
// a candidate rule set. It is computed per request; accepting it triggers
// exactly one ledger commit per applied rule.
type Resolution struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId,omitempty"`

	// AppliedRuleIDs is ordered by application. Exclusive stacking means
	// at most one entry today; the slice shape is the extension point for
	// combinable rules.
	AppliedRuleIDs []string `json:"appliedRuleIds"`

	DiscountType   DiscountType `json:"finalDiscountType,omitempty"`
	DiscountValue  float64      `json:"finalDiscountValue"`
	DiscountAmount float64      `json:"discountAmount"`
	Subtotal       float64      `json:"subtotal"`

	ApprovalRequired bool   `json:"approvalRequired"`
	ApprovalReason   string `json:"approvalReason,omitempty"`

	Status ResolutionStatus `json:"status"`

	// Context is retained for audit of what the resolution was computed
	// against.
	Context OrderContext `json:"context"`

	CreatedAt   time.Time  `json:"createdAt"`
	DecidedAt   *time.Time `json:"decidedAt,omitempty"`
	CommittedAt *time.Time `json:"committedAt,omitempty"`
}

// Discounted reports whether any rule applied.
func (r *Resolution) Discounted() bool {
	return len(r.AppliedRuleIDs) > 0 && r.DiscountAmount > 0
}

// StatsSnapshot is the derived read-only aggregate surface over the rule
// store and ledger. Recomputed on demand, never persisted.
type StatsSnapshot struct {
	ActiveRules     int              `json:"activeRules"`
	TotalRules      int              `json:"totalRules"`
	TotalUsage      int64            `json:"totalUsage"`
	TotalSavings    float64          `json:"totalSavings"`
	AverageDiscount float64          `json:"averageDiscount"`
	RulesByKind     map[RuleKind]int `json:"rulesByKind"`

	// CommitsLastHour comes from the cache counter, best effort.
	CommitsLastHour int64 `json:"commitsLastHour"`
}
