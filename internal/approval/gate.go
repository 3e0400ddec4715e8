// Package approval implements the manual decision step for resolutions
// whose discount needs sign-off.
package approval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Gate decides pending resolutions. A resolution is decided at most once;
// concurrent decisions race in the store and exactly one wins.
type Gate struct {
	repo  domain.Repository
	cache domain.Cache
	bus   domain.EventBus
}

// NewGate creates a new approval gate.
func NewGate(repo domain.Repository, cache domain.Cache, bus domain.EventBus) *Gate {
	return &Gate{
		repo:  repo,
		cache: cache,
		bus:   bus,
	}
}

// Approve transitions a pending resolution to approved.
func (g *Gate) Approve(ctx context.Context, tenantID, resolutionID string) (*domain.Resolution, error) {
	return g.decide(ctx, tenantID, resolutionID, domain.ResolutionApproved)
}

// Reject transitions a pending resolution to rejected.
func (g *Gate) Reject(ctx context.Context, tenantID, resolutionID string) (*domain.Resolution, error) {
	return g.decide(ctx, tenantID, resolutionID, domain.ResolutionRejected)
}

func (g *Gate) decide(ctx context.Context, tenantID, resolutionID string, status domain.ResolutionStatus) (*domain.Resolution, error) {
	if tenantID == "" || resolutionID == "" {
		return nil, fmt.Errorf("tenantID and resolutionID are required")
	}

	now := time.Now().UTC()
	if err := g.repo.DecideResolution(ctx, tenantID, resolutionID, status, now); err != nil {
		return nil, err
	}

	res, err := g.repo.GetResolution(ctx, tenantID, resolutionID)
	if err != nil {
		return nil, err
	}

	// Refresh the cached copy so a commit right after the decision sees
	// the new status.
	if g.cache != nil {
		if err := g.cache.SetResolution(ctx, tenantID, res, 15*time.Minute); err != nil {
			slog.Warn("failed to refresh cached resolution",
				"tenant_id", tenantID,
				"resolution_id", resolutionID,
				"error", err,
			)
		}
	}

	if g.bus != nil {
		event := domain.ApprovalDecidedEvent{
			ResolutionID: resolutionID,
			TenantID:     tenantID,
			Status:       status,
		}
		payload, err := json.Marshal(event)
		if err == nil {
			if err := g.bus.Publish(ctx, tenantID, domain.TopicApprovalDecided, payload); err != nil {
				slog.Warn("failed to publish approval decision",
					"tenant_id", tenantID,
					"resolution_id", resolutionID,
					"error", err,
				)
			}
		}
	}

	slog.Info("resolution decided",
		"tenant_id", tenantID,
		"resolution_id", resolutionID,
		"status", status,
	)

	return res, nil
}
