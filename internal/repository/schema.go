package repository

// Schema definitions for the Kestrel database.
// Compatible with both SQLite and PostgreSQL.

const schemaPricingRules = `
CREATE TABLE IF NOT EXISTS pricing_rules (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    kind TEXT NOT NULL,
    customer_id TEXT NOT NULL DEFAULT '',
    product_id TEXT NOT NULL DEFAULT '',
    min_quantity INTEGER,
    max_quantity INTEGER,
    start_date TIMESTAMP,
    end_date TIMESTAMP,
    bundle_products TEXT,
    criteria TEXT,
    expression TEXT NOT NULL DEFAULT '',
    discount_type TEXT NOT NULL,
    discount_value REAL NOT NULL,
    priority INTEGER NOT NULL DEFAULT 0,
    requires_approval INTEGER NOT NULL DEFAULT 0,
    approval_limit REAL,
    enabled INTEGER NOT NULL DEFAULT 1,
    usage_count INTEGER NOT NULL DEFAULT 0,
    total_savings REAL NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id)
);

CREATE INDEX IF NOT EXISTS idx_pricing_rules_tenant ON pricing_rules(tenant_id);
CREATE INDEX IF NOT EXISTS idx_pricing_rules_enabled ON pricing_rules(tenant_id, enabled);
CREATE INDEX IF NOT EXISTS idx_pricing_rules_kind ON pricing_rules(tenant_id, kind);
`

const schemaCustomerSegments = `
CREATE TABLE IF NOT EXISTS customer_segments (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    criteria TEXT NOT NULL,
    color TEXT,
    enabled INTEGER NOT NULL DEFAULT 1,
    auto_update INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id)
);

CREATE INDEX IF NOT EXISTS idx_customer_segments_tenant ON customer_segments(tenant_id);
CREATE INDEX IF NOT EXISTS idx_customer_segments_enabled ON customer_segments(tenant_id, enabled);
`

const schemaPricingTiers = `
CREATE TABLE IF NOT EXISTS pricing_tiers (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    minimum_value REAL NOT NULL DEFAULT 0,
    discount_rate REAL NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id)
);

CREATE INDEX IF NOT EXISTS idx_pricing_tiers_tenant ON pricing_tiers(tenant_id);
`

const schemaResolutions = `
CREATE TABLE IF NOT EXISTS resolutions (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    applied_rule_ids TEXT NOT NULL,
    discount_type TEXT,
    discount_value REAL NOT NULL DEFAULT 0,
    discount_amount REAL NOT NULL DEFAULT 0,
    subtotal REAL NOT NULL DEFAULT 0,
    approval_required INTEGER NOT NULL DEFAULT 0,
    approval_reason TEXT,
    status TEXT NOT NULL,
    order_context TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    decided_at TIMESTAMP,
    committed_at TIMESTAMP,
    PRIMARY KEY (id, tenant_id)
);

CREATE INDEX IF NOT EXISTS idx_resolutions_tenant ON resolutions(tenant_id);
CREATE INDEX IF NOT EXISTS idx_resolutions_status ON resolutions(tenant_id, status);
`

// schemaLedgerCommits gives the ledger its idempotency: the primary key on
// (resolution_id, tenant_id) makes a duplicate commit a no-op insert that the
// commit transaction detects and reports without touching rule counters.
const schemaLedgerCommits = `
CREATE TABLE IF NOT EXISTS ledger_commits (
    resolution_id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    discount_amount REAL NOT NULL DEFAULT 0,
    committed_at TIMESTAMP NOT NULL,
    PRIMARY KEY (resolution_id, tenant_id)
);

CREATE INDEX IF NOT EXISTS idx_ledger_commits_tenant ON ledger_commits(tenant_id);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaPricingRules,
		schemaCustomerSegments,
		schemaPricingTiers,
		schemaResolutions,
		schemaLedgerCommits,
	}
}
