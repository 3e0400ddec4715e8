package stats

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/cache"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/repository"
)

func TestSnapshot(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "kestrel-stats-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	lru := cache.NewLRUCache(100)
	svc := NewService(repo, lru)

	ctx := context.Background()
	tenantID := "tenant-001"

	rules := []*domain.PricingRule{
		{
			ID: "rule-a", Name: "Bulk order", Kind: domain.RuleVolumeDiscount,
			DiscountType: domain.DiscountPercentage, DiscountValue: 15, Enabled: true,
		},
		{
			ID: "rule-b", Name: "Gold tier", Kind: domain.RuleCustomerTier,
			DiscountType: domain.DiscountFixed, DiscountValue: 50, Enabled: false,
		},
	}
	for _, rule := range rules {
		if err := repo.SaveRule(ctx, tenantID, rule); err != nil {
			t.Fatalf("SaveRule failed: %v", err)
		}
	}

	res := &domain.Resolution{
		ID:             "res-001",
		AppliedRuleIDs: []string{"rule-a"},
		DiscountAmount: 45,
		Subtotal:       300,
		Status:         domain.ResolutionApproved,
		CreatedAt:      time.Now().UTC(),
	}
	if err := repo.SaveResolution(ctx, tenantID, res); err != nil {
		t.Fatalf("SaveResolution failed: %v", err)
	}
	if err := repo.CommitResolution(ctx, tenantID, res.ID, time.Now().UTC()); err != nil {
		t.Fatalf("CommitResolution failed: %v", err)
	}
	if _, err := lru.IncrementCounter(ctx, tenantID, "ledger:commits", time.Hour); err != nil {
		t.Fatalf("IncrementCounter failed: %v", err)
	}

	snapshot, err := svc.Snapshot(ctx, tenantID)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if snapshot.TotalRules != 2 {
		t.Errorf("expected TotalRules 2, got %d", snapshot.TotalRules)
	}
	if snapshot.ActiveRules != 1 {
		t.Errorf("expected ActiveRules 1, got %d", snapshot.ActiveRules)
	}
	if snapshot.TotalUsage != 1 {
		t.Errorf("expected TotalUsage 1, got %d", snapshot.TotalUsage)
	}
	if snapshot.TotalSavings != 45 {
		t.Errorf("expected TotalSavings 45, got %.2f", snapshot.TotalSavings)
	}
	if snapshot.CommitsLastHour != 1 {
		t.Errorf("expected CommitsLastHour 1, got %d", snapshot.CommitsLastHour)
	}
	if snapshot.RulesByKind[domain.RuleVolumeDiscount] != 1 {
		t.Errorf("expected 1 volume rule, got %d", snapshot.RulesByKind[domain.RuleVolumeDiscount])
	}

	t.Run("EmptyTenant", func(t *testing.T) {
		empty, err := svc.Snapshot(ctx, "tenant-empty")
		if err != nil {
			t.Fatalf("Snapshot failed: %v", err)
		}
		if empty.TotalRules != 0 || empty.CommitsLastHour != 0 {
			t.Errorf("expected zero snapshot, got %+v", empty)
		}
	})
}
