// Package worker provides async commit processing for the Pro tier.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/ledger"
)

// Worker finalizes approved resolutions asynchronously. It listens for
// approval decisions on the EventBus and commits the approved ones to the
// ledger, so approvers never wait on counter updates.
type Worker struct {
	bus    domain.EventBus
	ledger *ledger.Service

	subscriptions []domain.Subscription

	// wg tracks in-flight decision handlers so Stop can drain them after
	// unsubscribing.
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process.
	TenantIDs []string
}

// NewWorker creates a new async commit worker.
func NewWorker(bus domain.EventBus, ledgerSvc *ledger.Service) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		ledger: ledgerSvc,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing decisions for the given tenants.
func (w *Worker) Start(cfg Config) error {
	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

// startTenantWorker subscribes a tenant to the approval decision topic.
func (w *Worker) startTenantWorker(tenantID string) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicApprovalDecided, func(ctx context.Context, msg *domain.Message) error {
		w.wg.Add(1)
		defer w.wg.Done()
		return w.processDecision(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicApprovalDecided,
	)

	return nil
}

// processDecision commits an approved resolution to the ledger.
func (w *Worker) processDecision(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	var event domain.ApprovalDecidedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		slog.Error("failed to parse approval decision",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	if event.TenantID != "" {
		tenantID = event.TenantID
	}

	if event.Status != domain.ResolutionApproved {
		slog.Debug("skipping non-approved decision",
			"resolution_id", event.ResolutionID,
			"status", event.Status,
		)
		return nil
	}

	res, err := w.ledger.Commit(ctx, tenantID, event.ResolutionID)
	if err != nil {
		// The resolution may already be committed through the HTTP path.
		if errors.Is(err, domain.ErrDuplicateCommit) {
			return nil
		}
		slog.Error("async commit failed",
			"tenant_id", tenantID,
			"resolution_id", event.ResolutionID,
			"error", err,
		)
		return err
	}

	slog.Info("resolution committed async",
		"tenant_id", tenantID,
		"resolution_id", res.ID,
		"discount_amount", res.DiscountAmount,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
