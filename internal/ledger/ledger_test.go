package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/bus"
	"github.com/opensource-finance/kestrel/internal/cache"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/repository"
)

func newTestService(t *testing.T) (*Service, domain.Repository, *bus.ChannelBus) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "kestrel-ledger-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	lru := cache.NewLRUCache(100)
	eventBus := bus.NewChannelBus(100)
	t.Cleanup(func() { eventBus.Close() })

	return NewService(repo, lru, eventBus), repo, eventBus
}

func seedResolution(t *testing.T, repo domain.Repository, tenantID string, status domain.ResolutionStatus) *domain.Resolution {
	t.Helper()
	ctx := context.Background()

	rule := &domain.PricingRule{
		ID:            "rule-001",
		Name:          "Volume discount",
		Kind:          domain.RuleVolumeDiscount,
		DiscountType:  domain.DiscountPercentage,
		DiscountValue: 10,
		Enabled:       true,
	}
	if err := repo.SaveRule(ctx, tenantID, rule); err != nil {
		t.Fatalf("SaveRule failed: %v", err)
	}

	res := &domain.Resolution{
		ID:             "res-001",
		AppliedRuleIDs: []string{rule.ID},
		DiscountType:   domain.DiscountPercentage,
		DiscountValue:  10,
		DiscountAmount: 100,
		Subtotal:       1000,
		Status:         status,
		CreatedAt:      time.Now().UTC(),
	}
	if err := repo.SaveResolution(ctx, tenantID, res); err != nil {
		t.Fatalf("SaveResolution failed: %v", err)
	}
	return res
}

func TestCommit(t *testing.T) {
	svc, repo, eventBus := newTestService(t)
	ctx := context.Background()
	tenantID := "tenant-001"

	res := seedResolution(t, repo, tenantID, domain.ResolutionApproved)

	var events atomic.Int32
	var lastEvent CommittedEvent
	_, err := eventBus.Subscribe(ctx, tenantID, domain.TopicPricingCommitted, func(ctx context.Context, msg *domain.Message) error {
		if err := json.Unmarshal(msg.Payload, &lastEvent); err != nil {
			return err
		}
		events.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	committed, err := svc.Commit(ctx, tenantID, res.ID)
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if committed.CommittedAt == nil {
		t.Error("expected CommittedAt to be set")
	}

	rule, err := repo.GetRule(ctx, tenantID, "rule-001")
	if err != nil {
		t.Fatalf("GetRule failed: %v", err)
	}
	if rule.UsageCount != 1 {
		t.Errorf("expected UsageCount 1, got %d", rule.UsageCount)
	}
	if rule.TotalSavings != 100 {
		t.Errorf("expected TotalSavings 100, got %.2f", rule.TotalSavings)
	}

	time.Sleep(50 * time.Millisecond)
	if events.Load() != 1 {
		t.Errorf("expected 1 committed event, got %d", events.Load())
	}
	if lastEvent.ResolutionID != res.ID {
		t.Errorf("expected event for %s, got %s", res.ID, lastEvent.ResolutionID)
	}

	if got := svc.CommitsLastHour(ctx, tenantID); got != 1 {
		t.Errorf("expected CommitsLastHour 1, got %d", got)
	}
}

func TestCommitIdempotent(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	tenantID := "tenant-001"

	res := seedResolution(t, repo, tenantID, domain.ResolutionApproved)

	if _, err := svc.Commit(ctx, tenantID, res.ID); err != nil {
		t.Fatalf("first Commit failed: %v", err)
	}

	// A replay reports success without moving the counters.
	if _, err := svc.Commit(ctx, tenantID, res.ID); err != nil {
		t.Fatalf("replayed Commit failed: %v", err)
	}

	rule, err := repo.GetRule(ctx, tenantID, "rule-001")
	if err != nil {
		t.Fatalf("GetRule failed: %v", err)
	}
	if rule.UsageCount != 1 {
		t.Errorf("expected UsageCount 1 after replay, got %d", rule.UsageCount)
	}
}

func TestCommitRefreshesCache(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	tenantID := "tenant-001"

	res := seedResolution(t, repo, tenantID, domain.ResolutionApproved)

	// The evaluate path caches the pre-commit copy; a commit must replace
	// it so cache-first readers see the committed state.
	if err := svc.cache.SetResolution(ctx, tenantID, res, 15*time.Minute); err != nil {
		t.Fatalf("SetResolution failed: %v", err)
	}

	if _, err := svc.Commit(ctx, tenantID, res.ID); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	cached, err := svc.cache.GetResolution(ctx, tenantID, res.ID)
	if err != nil {
		t.Fatalf("GetResolution from cache failed: %v", err)
	}
	if cached == nil {
		t.Fatal("expected committed resolution in cache")
	}
	if cached.CommittedAt == nil {
		t.Error("expected cached resolution to carry CommittedAt")
	}
}

func TestCommitStoreUnavailable(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	tenantID := "tenant-001"

	res := seedResolution(t, repo, tenantID, domain.ResolutionApproved)

	repo.Close()

	_, err := svc.Commit(ctx, tenantID, res.ID)
	if !errors.Is(err, domain.ErrLedgerUnavailable) {
		t.Errorf("expected ErrLedgerUnavailable, got %v", err)
	}
}

func TestCommitGuards(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("Pending", func(t *testing.T) {
		res := seedResolution(t, repo, tenantID, domain.ResolutionPending)
		_, err := svc.Commit(ctx, tenantID, res.ID)
		if !errors.Is(err, domain.ErrApprovalPending) {
			t.Errorf("expected ErrApprovalPending, got %v", err)
		}
	})

	t.Run("Rejected", func(t *testing.T) {
		now := time.Now().UTC()
		if err := repo.DecideResolution(ctx, tenantID, "res-001", domain.ResolutionRejected, now); err != nil {
			t.Fatalf("DecideResolution failed: %v", err)
		}
		_, err := svc.Commit(ctx, tenantID, "res-001")
		if !errors.Is(err, domain.ErrApprovalRejected) {
			t.Errorf("expected ErrApprovalRejected, got %v", err)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := svc.Commit(ctx, tenantID, "no-such")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("OtherTenant", func(t *testing.T) {
		_, err := svc.Commit(ctx, "tenant-002", "res-001")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound for other tenant, got %v", err)
		}
	})
}
