// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

var (
	ErrNotFound     = domain.ErrNotFound
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveRule upserts a rule's configuration with tenant isolation.
// usage_count and total_savings are deliberately excluded from the update:
// counters move only through CommitResolution.
func (r *SQLRepository) SaveRule(ctx context.Context, tenantID string, rule *domain.PricingRule) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	var bundleProducts, criteriaJSON any
	if len(rule.BundleProducts) > 0 {
		b, err := json.Marshal(rule.BundleProducts)
		if err != nil {
			return err
		}
		bundleProducts = string(b)
	}
	if rule.Criteria != nil {
		b, err := json.Marshal(rule.Criteria)
		if err != nil {
			return err
		}
		criteriaJSON = string(b)
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO pricing_rules (
			id, tenant_id, name, description, kind, customer_id, product_id,
			min_quantity, max_quantity, start_date, end_date,
			bundle_products, criteria, expression,
			discount_type, discount_value, priority,
			requires_approval, approval_limit, enabled,
			usage_count, total_savings, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)
		ON CONFLICT(id, tenant_id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			kind = excluded.kind,
			customer_id = excluded.customer_id,
			product_id = excluded.product_id,
			min_quantity = excluded.min_quantity,
			max_quantity = excluded.max_quantity,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			bundle_products = excluded.bundle_products,
			criteria = excluded.criteria,
			expression = excluded.expression,
			discount_type = excluded.discount_type,
			discount_value = excluded.discount_value,
			priority = excluded.priority,
			requires_approval = excluded.requires_approval,
			approval_limit = excluded.approval_limit,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, tenantID, rule.Name, rule.Description, string(rule.Kind),
		rule.CustomerID, rule.ProductID,
		nullInt(rule.MinQuantity), nullInt(rule.MaxQuantity),
		nullTime(rule.StartDate), nullTime(rule.EndDate),
		bundleProducts, criteriaJSON, rule.Expression,
		string(rule.DiscountType), rule.DiscountValue, rule.Priority,
		boolInt(rule.RequiresApproval), nullFloat(rule.ApprovalLimit), boolInt(rule.Enabled),
		now, now,
	)
	return err
}

// GetRule retrieves a rule by id with tenant isolation.
func (r *SQLRepository) GetRule(ctx context.Context, tenantID string, ruleID string) (*domain.PricingRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := ruleSelectColumns + ` WHERE tenant_id = ? AND id = ?`

	row := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, ruleID)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rule, err
}

// ListRules retrieves rules for a tenant, optionally only enabled ones.
func (r *SQLRepository) ListRules(ctx context.Context, tenantID string, enabledOnly bool) ([]*domain.PricingRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := ruleSelectColumns + ` WHERE tenant_id = ?`
	if enabledOnly {
		query += ` AND enabled = 1`
	}
	query += ` ORDER BY priority DESC, id`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.PricingRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

// SetRuleEnabled toggles a rule without touching its historical counters.
func (r *SQLRepository) SetRuleEnabled(ctx context.Context, tenantID string, ruleID string, enabled bool) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `UPDATE pricing_rules SET enabled = ?, updated_at = ? WHERE tenant_id = ? AND id = ?`

	result, err := r.db.ExecContext(ctx, r.rebind(query), boolInt(enabled), time.Now().UTC(), tenantID, ruleID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// DeleteRule removes a rule. Ledger commit rows referencing it are retained
// for audit.
func (r *SQLRepository) DeleteRule(ctx context.Context, tenantID string, ruleID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	result, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM pricing_rules WHERE tenant_id = ? AND id = ?`), tenantID, ruleID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

const ruleSelectColumns = `
	SELECT id, tenant_id, name, description, kind, customer_id, product_id,
	       min_quantity, max_quantity, start_date, end_date,
	       bundle_products, criteria, expression,
	       discount_type, discount_value, priority,
	       requires_approval, approval_limit, enabled,
	       usage_count, total_savings, created_at, updated_at
	FROM pricing_rules`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*domain.PricingRule, error) {
	var rule domain.PricingRule
	var kind, discountType string
	var description, bundleProducts, criteriaJSON sql.NullString
	var minQty, maxQty sql.NullInt64
	var startDate, endDate sql.NullTime
	var approvalLimit sql.NullFloat64
	var requiresApproval, enabled int

	err := row.Scan(
		&rule.ID, &rule.TenantID, &rule.Name, &description, &kind,
		&rule.CustomerID, &rule.ProductID,
		&minQty, &maxQty, &startDate, &endDate,
		&bundleProducts, &criteriaJSON, &rule.Expression,
		&discountType, &rule.DiscountValue, &rule.Priority,
		&requiresApproval, &approvalLimit, &enabled,
		&rule.UsageCount, &rule.TotalSavings, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.Description = description.String
	rule.Kind = domain.RuleKind(kind)
	rule.DiscountType = domain.DiscountType(discountType)
	rule.RequiresApproval = requiresApproval == 1
	rule.Enabled = enabled == 1

	if minQty.Valid {
		v := int(minQty.Int64)
		rule.MinQuantity = &v
	}
	if maxQty.Valid {
		v := int(maxQty.Int64)
		rule.MaxQuantity = &v
	}
	if startDate.Valid {
		t := startDate.Time
		rule.StartDate = &t
	}
	if endDate.Valid {
		t := endDate.Time
		rule.EndDate = &t
	}
	if approvalLimit.Valid {
		v := approvalLimit.Float64
		rule.ApprovalLimit = &v
	}
	if bundleProducts.Valid && bundleProducts.String != "" {
		if err := json.Unmarshal([]byte(bundleProducts.String), &rule.BundleProducts); err != nil {
			return nil, fmt.Errorf("failed to parse bundle products for %s: %w", rule.ID, err)
		}
	}
	if criteriaJSON.Valid && criteriaJSON.String != "" {
		rule.Criteria = &domain.Criteria{}
		if err := json.Unmarshal([]byte(criteriaJSON.String), rule.Criteria); err != nil {
			return nil, fmt.Errorf("failed to parse criteria for %s: %w", rule.ID, err)
		}
	}

	return &rule, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
