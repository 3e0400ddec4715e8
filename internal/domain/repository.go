// Package domain defines the core interfaces and types for Kestrel.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
// Rule and segment writes are serialized per id by the backing store;
// readers see pre- or post-edit versions, never partial writes.
type Repository interface {
	// Pricing rule operations. SaveRule upserts configuration fields only;
	// usage counters are untouched by rule edits.
	SaveRule(ctx context.Context, tenantID string, rule *PricingRule) error
	GetRule(ctx context.Context, tenantID string, ruleID string) (*PricingRule, error)
	ListRules(ctx context.Context, tenantID string, enabledOnly bool) ([]*PricingRule, error)
	SetRuleEnabled(ctx context.Context, tenantID string, ruleID string, enabled bool) error
	DeleteRule(ctx context.Context, tenantID string, ruleID string) error

	// Customer segment operations.
	SaveSegment(ctx context.Context, tenantID string, segment *CustomerSegment) error
	GetSegment(ctx context.Context, tenantID string, segmentID string) (*CustomerSegment, error)
	ListSegments(ctx context.Context, tenantID string, enabledOnly bool) ([]*CustomerSegment, error)
	DeleteSegment(ctx context.Context, tenantID string, segmentID string) error

	// Pricing tier lookups.
	SaveTier(ctx context.Context, tenantID string, tier *PricingTier) error
	ListTiers(ctx context.Context, tenantID string) ([]*PricingTier, error)

	// Resolution lifecycle.
	SaveResolution(ctx context.Context, tenantID string, res *Resolution) error
	GetResolution(ctx context.Context, tenantID string, resolutionID string) (*Resolution, error)

	// DecideResolution transitions a pending resolution to approved or
	// rejected. Terminal states return ErrApprovalDecided.
	DecideResolution(ctx context.Context, tenantID string, resolutionID string, status ResolutionStatus, decidedAt time.Time) error

	// CommitResolution finalizes a resolution against the ledger in a single
	// transaction: records the commit keyed by resolution id and increments
	// usage_count and total_savings on each applied rule. A resolution id
	// that was already committed returns ErrDuplicateCommit with no counter
	// change.
	CommitResolution(ctx context.Context, tenantID string, resolutionID string, committedAt time.Time) error

	// RuleStats derives the aggregate statistics surface.
	RuleStats(ctx context.Context, tenantID string) (*StatsSnapshot, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
