// Package stats derives the aggregate usage and savings surface.
package stats

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Service computes statistics snapshots on demand. Nothing is persisted;
// the figures are derived from the rule store plus the rolling commit
// counter in the cache.
type Service struct {
	repo  domain.Repository
	cache domain.Cache
}

// NewService creates a new stats service.
func NewService(repo domain.Repository, cache domain.Cache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

// Snapshot returns the current aggregate figures for a tenant.
func (s *Service) Snapshot(ctx context.Context, tenantID string) (*domain.StatsSnapshot, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenantID is required")
	}

	snapshot, err := s.repo.RuleStats(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		count, err := s.cache.GetCounter(ctx, tenantID, "ledger:commits")
		if err != nil {
			// The counter is advisory, the snapshot is still valid.
			slog.Warn("failed to read commit counter",
				"tenant_id", tenantID,
				"error", err,
			)
		} else {
			snapshot.CommitsLastHour = count
		}
	}

	return snapshot, nil
}
