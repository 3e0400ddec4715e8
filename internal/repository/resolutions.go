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

// SaveResolution persists a freshly computed resolution.
func (r *SQLRepository) SaveResolution(ctx context.Context, tenantID string, res *domain.Resolution) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	ruleIDsJSON, err := json.Marshal(res.AppliedRuleIDs)
	if err != nil {
		return err
	}
	contextJSON, err := json.Marshal(res.Context)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO resolutions (
			id, tenant_id, applied_rule_ids, discount_type, discount_value,
			discount_amount, subtotal, approval_required, approval_reason,
			status, order_context, created_at, decided_at, committed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		res.ID, tenantID, string(ruleIDsJSON),
		string(res.DiscountType), res.DiscountValue,
		res.DiscountAmount, res.Subtotal,
		boolInt(res.ApprovalRequired), res.ApprovalReason,
		string(res.Status), string(contextJSON),
		res.CreatedAt, nullTime(res.DecidedAt), nullTime(res.CommittedAt),
	)
	return err
}

// GetResolution retrieves a resolution by id with tenant isolation.
func (r *SQLRepository) GetResolution(ctx context.Context, tenantID string, resolutionID string) (*domain.Resolution, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, applied_rule_ids, discount_type, discount_value,
		       discount_amount, subtotal, approval_required, approval_reason,
		       status, order_context, created_at, decided_at, committed_at
		FROM resolutions
		WHERE tenant_id = ? AND id = ?
	`

	row := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, resolutionID)
	res, err := scanResolution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return res, err
}

// DecideResolution transitions a pending resolution to a terminal status.
// The status guard in the WHERE clause makes concurrent decisions race-safe:
// exactly one wins, the rest see ErrApprovalDecided.
func (r *SQLRepository) DecideResolution(ctx context.Context, tenantID string, resolutionID string, status domain.ResolutionStatus, decidedAt time.Time) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if status != domain.ResolutionApproved && status != domain.ResolutionRejected {
		return fmt.Errorf("%w: status must be approved or rejected", ErrInvalidInput)
	}

	query := `
		UPDATE resolutions
		SET status = ?, decided_at = ?
		WHERE tenant_id = ? AND id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query),
		string(status), decidedAt, tenantID, resolutionID, string(domain.ResolutionPending))
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	// Nothing updated: either the resolution is missing or already decided.
	if _, err := r.GetResolution(ctx, tenantID, resolutionID); err != nil {
		return err
	}
	return domain.ErrApprovalDecided
}

// CommitResolution finalizes a resolution against the ledger. The commit
// marker insert, the rule counter increments, and the committed_at stamp
// happen in one transaction, so a crash never leaves counters applied
// without the marker or vice versa.
func (r *SQLRepository) CommitResolution(ctx context.Context, tenantID string, resolutionID string, committedAt time.Time) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var ruleIDsJSON string
	var discountAmount float64
	row := tx.QueryRowContext(ctx, r.rebind(`
		SELECT applied_rule_ids, discount_amount
		FROM resolutions
		WHERE tenant_id = ? AND id = ?
	`), tenantID, resolutionID)
	if err := row.Scan(&ruleIDsJSON, &discountAmount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	// The primary key on (resolution_id, tenant_id) turns a replayed commit
	// into a zero-row insert.
	result, err := tx.ExecContext(ctx, r.rebind(`
		INSERT INTO ledger_commits (resolution_id, tenant_id, discount_amount, committed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (resolution_id, tenant_id) DO NOTHING
	`), resolutionID, tenantID, discountAmount, committedAt)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrDuplicateCommit
	}

	var ruleIDs []string
	if err := json.Unmarshal([]byte(ruleIDsJSON), &ruleIDs); err != nil {
		return fmt.Errorf("failed to parse applied rules for resolution %s: %w", resolutionID, err)
	}

	for _, ruleID := range ruleIDs {
		_, err := tx.ExecContext(ctx, r.rebind(`
			UPDATE pricing_rules
			SET usage_count = usage_count + 1,
			    total_savings = total_savings + ?,
			    updated_at = ?
			WHERE tenant_id = ? AND id = ?
		`), discountAmount, committedAt, tenantID, ruleID)
		if err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, r.rebind(`
		UPDATE resolutions SET committed_at = ? WHERE tenant_id = ? AND id = ?
	`), committedAt, tenantID, resolutionID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// RuleStats derives the aggregate statistics surface from the rule store.
// CommitsLastHour is a cache concern and left zero here.
func (r *SQLRepository) RuleStats(ctx context.Context, tenantID string) (*domain.StatsSnapshot, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	snapshot := &domain.StatsSnapshot{
		RulesByKind: make(map[domain.RuleKind]int),
	}

	row := r.db.QueryRowContext(ctx, r.rebind(`
		SELECT COUNT(*),
		       COALESCE(SUM(enabled), 0),
		       COALESCE(SUM(usage_count), 0),
		       COALESCE(SUM(total_savings), 0)
		FROM pricing_rules
		WHERE tenant_id = ?
	`), tenantID)
	if err := row.Scan(&snapshot.TotalRules, &snapshot.ActiveRules, &snapshot.TotalUsage, &snapshot.TotalSavings); err != nil {
		return nil, err
	}

	if snapshot.TotalUsage > 0 {
		snapshot.AverageDiscount = snapshot.TotalSavings / float64(snapshot.TotalUsage)
	}

	rows, err := r.db.QueryContext(ctx, r.rebind(`
		SELECT kind, COUNT(*)
		FROM pricing_rules
		WHERE tenant_id = ?
		GROUP BY kind
	`), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		snapshot.RulesByKind[domain.RuleKind(kind)] = count
	}

	return snapshot, rows.Err()
}

func scanResolution(row rowScanner) (*domain.Resolution, error) {
	var res domain.Resolution
	var ruleIDsJSON, contextJSON string
	var discountType, approvalReason sql.NullString
	var approvalRequired int
	var decidedAt, committedAt sql.NullTime

	err := row.Scan(
		&res.ID, &res.TenantID, &ruleIDsJSON, &discountType, &res.DiscountValue,
		&res.DiscountAmount, &res.Subtotal, &approvalRequired, &approvalReason,
		&res.Status, &contextJSON, &res.CreatedAt, &decidedAt, &committedAt,
	)
	if err != nil {
		return nil, err
	}

	res.DiscountType = domain.DiscountType(discountType.String)
	res.ApprovalReason = approvalReason.String
	res.ApprovalRequired = approvalRequired == 1
	if decidedAt.Valid {
		t := decidedAt.Time
		res.DecidedAt = &t
	}
	if committedAt.Valid {
		t := committedAt.Time
		res.CommittedAt = &t
	}

	if err := json.Unmarshal([]byte(ruleIDsJSON), &res.AppliedRuleIDs); err != nil {
		return nil, fmt.Errorf("failed to parse applied rules for resolution %s: %w", res.ID, err)
	}
	if err := json.Unmarshal([]byte(contextJSON), &res.Context); err != nil {
		return nil, fmt.Errorf("failed to parse order context for resolution %s: %w", res.ID, err)
	}

	return &res, nil
}
