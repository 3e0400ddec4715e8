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

// SaveSegment upserts a customer segment with tenant isolation.
func (r *SQLRepository) SaveSegment(ctx context.Context, tenantID string, segment *domain.CustomerSegment) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	criteriaJSON, err := json.Marshal(segment.Criteria)
	if err != nil {
		return err
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO customer_segments (
			id, tenant_id, name, criteria, color, enabled, auto_update, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id) DO UPDATE SET
			name = excluded.name,
			criteria = excluded.criteria,
			color = excluded.color,
			enabled = excluded.enabled,
			auto_update = excluded.auto_update,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		segment.ID, tenantID, segment.Name, string(criteriaJSON), segment.Color,
		boolInt(segment.Enabled), boolInt(segment.AutoUpdate),
		now, now,
	)
	return err
}

// GetSegment retrieves a segment by id with tenant isolation.
func (r *SQLRepository) GetSegment(ctx context.Context, tenantID string, segmentID string) (*domain.CustomerSegment, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, criteria, color, enabled, auto_update, created_at, updated_at
		FROM customer_segments
		WHERE tenant_id = ? AND id = ?
	`

	row := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, segmentID)
	segment, err := scanSegment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return segment, err
}

// ListSegments retrieves segments for a tenant, optionally only enabled ones.
func (r *SQLRepository) ListSegments(ctx context.Context, tenantID string, enabledOnly bool) ([]*domain.CustomerSegment, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, criteria, color, enabled, auto_update, created_at, updated_at
		FROM customer_segments
		WHERE tenant_id = ?
	`
	if enabledOnly {
		query += ` AND enabled = 1`
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segments []*domain.CustomerSegment
	for rows.Next() {
		segment, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		segments = append(segments, segment)
	}

	return segments, rows.Err()
}

// DeleteSegment removes a segment.
func (r *SQLRepository) DeleteSegment(ctx context.Context, tenantID string, segmentID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	result, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM customer_segments WHERE tenant_id = ? AND id = ?`), tenantID, segmentID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func scanSegment(row rowScanner) (*domain.CustomerSegment, error) {
	var segment domain.CustomerSegment
	var criteriaJSON string
	var color sql.NullString
	var enabled, autoUpdate int

	err := row.Scan(
		&segment.ID, &segment.TenantID, &segment.Name, &criteriaJSON,
		&color, &enabled, &autoUpdate,
		&segment.CreatedAt, &segment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	segment.Color = color.String
	segment.Enabled = enabled == 1
	segment.AutoUpdate = autoUpdate == 1

	if err := json.Unmarshal([]byte(criteriaJSON), &segment.Criteria); err != nil {
		return nil, fmt.Errorf("failed to parse criteria for segment %s: %w", segment.ID, err)
	}

	return &segment, nil
}

// SaveTier upserts a pricing tier with tenant isolation.
func (r *SQLRepository) SaveTier(ctx context.Context, tenantID string, tier *domain.PricingTier) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO pricing_tiers (
			id, tenant_id, name, description, minimum_value, discount_rate, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			minimum_value = excluded.minimum_value,
			discount_rate = excluded.discount_rate,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		tier.ID, tenantID, tier.Name, tier.Description,
		tier.MinimumValue, tier.DiscountRate,
		now, now,
	)
	return err
}

// ListTiers retrieves all tiers for a tenant ordered by spend threshold.
func (r *SQLRepository) ListTiers(ctx context.Context, tenantID string) ([]*domain.PricingTier, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, minimum_value, discount_rate, created_at, updated_at
		FROM pricing_tiers
		WHERE tenant_id = ?
		ORDER BY minimum_value
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tiers []*domain.PricingTier
	for rows.Next() {
		var tier domain.PricingTier
		var description sql.NullString

		if err := rows.Scan(
			&tier.ID, &tier.TenantID, &tier.Name, &description,
			&tier.MinimumValue, &tier.DiscountRate,
			&tier.CreatedAt, &tier.UpdatedAt,
		); err != nil {
			return nil, err
		}

		tier.Description = description.String
		tiers = append(tiers, &tier)
	}

	return tiers, rows.Err()
}
