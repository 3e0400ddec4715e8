// Package ledger finalizes accepted resolutions against the usage and
// savings counters.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Service records resolution commits. A commit is idempotent per resolution
// id: the first call moves the counters, replays report ErrDuplicateCommit
// and change nothing.
type Service struct {
	repo  domain.Repository
	cache domain.Cache
	bus   domain.EventBus
}

// NewService creates a new ledger service.
func NewService(repo domain.Repository, cache domain.Cache, bus domain.EventBus) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		bus:   bus,
	}
}

// CommittedEvent is the payload published on TopicPricingCommitted.
type CommittedEvent struct {
	ResolutionID   string   `json:"resolutionId"`
	TenantID       string   `json:"tenantId"`
	DiscountAmount float64  `json:"discountAmount"`
	RuleIDs        []string `json:"ruleIds"`
}

// Commit finalizes a resolution. Pending resolutions are rejected until an
// approver decides them; rejected resolutions never commit.
func (s *Service) Commit(ctx context.Context, tenantID, resolutionID string) (*domain.Resolution, error) {
	if tenantID == "" || resolutionID == "" {
		return nil, fmt.Errorf("tenantID and resolutionID are required")
	}

	res, err := s.repo.GetResolution(ctx, tenantID, resolutionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}

	switch res.Status {
	case domain.ResolutionPending:
		return nil, domain.ErrApprovalPending
	case domain.ResolutionRejected:
		return nil, domain.ErrApprovalRejected
	}

	now := time.Now().UTC()
	err = s.repo.CommitResolution(ctx, tenantID, resolutionID, now)
	if errors.Is(err, domain.ErrDuplicateCommit) {
		// A replayed commit is a success from the caller's point of view;
		// the stored resolution already carries the original timestamp.
		slog.Debug("duplicate ledger commit ignored",
			"tenant_id", tenantID,
			"resolution_id", resolutionID,
		)
		return res, nil
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}

	res.CommittedAt = &now

	// Best effort: the cached copy, the counter, and the event feed readers
	// and downstream consumers. None of these failures undoes the commit.
	if s.cache != nil {
		if err := s.cache.SetResolution(ctx, tenantID, res, 15*time.Minute); err != nil {
			slog.Warn("failed to refresh cached resolution",
				"tenant_id", tenantID,
				"resolution_id", resolutionID,
				"error", err,
			)
		}
		if _, err := s.cache.IncrementCounter(ctx, tenantID, "ledger:commits", time.Hour); err != nil {
			slog.Warn("failed to increment commit counter",
				"tenant_id", tenantID,
				"error", err,
			)
		}
	}

	if s.bus != nil {
		event := CommittedEvent{
			ResolutionID:   res.ID,
			TenantID:       tenantID,
			DiscountAmount: res.DiscountAmount,
			RuleIDs:        res.AppliedRuleIDs,
		}
		payload, err := json.Marshal(event)
		if err == nil {
			if err := s.bus.Publish(ctx, tenantID, domain.TopicPricingCommitted, payload); err != nil {
				slog.Warn("failed to publish commit event",
					"tenant_id", tenantID,
					"resolution_id", res.ID,
					"error", err,
				)
			}
		}
	}

	slog.Info("resolution committed",
		"tenant_id", tenantID,
		"resolution_id", res.ID,
		"discount_amount", res.DiscountAmount,
		"rules", len(res.AppliedRuleIDs),
	)

	return res, nil
}

// CommitsLastHour reads the rolling commit counter for the stats surface.
func (s *Service) CommitsLastHour(ctx context.Context, tenantID string) int64 {
	if s.cache == nil {
		return 0
	}
	count, err := s.cache.GetCounter(ctx, tenantID, "ledger:commits")
	if err != nil {
		return 0
	}
	return count
}
