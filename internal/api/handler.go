package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opensource-finance/kestrel/internal/approval"
	"github.com/opensource-finance/kestrel/internal/criteria"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/ledger"
	"github.com/opensource-finance/kestrel/internal/rules"
	"github.com/opensource-finance/kestrel/internal/stats"
)

// resolutionCacheTTL bounds how long an uncommitted resolution stays in
// cache between evaluate and commit.
const resolutionCacheTTL = 15 * time.Minute

// Handler holds dependencies for API handlers.
type Handler struct {
	repo    domain.Repository
	cache   domain.Cache
	bus     domain.EventBus
	engine  *rules.Engine
	ledger  *ledger.Service
	gate    *approval.Gate
	stats   *stats.Service
	version string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, engine *rules.Engine, ledgerSvc *ledger.Service, gate *approval.Gate, statsSvc *stats.Service, version string) *Handler {
	return &Handler{
		repo:    repo,
		cache:   cache,
		bus:     bus,
		engine:  engine,
		ledger:  ledgerSvc,
		gate:    gate,
		stats:   statsSvc,
		version: version,
	}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// ============================================================================
// RULE HANDLERS
// ============================================================================

// CreateRule validates and persists a pricing rule, then loads it into the
// live snapshot. A rejected rule is never stored.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var rule domain.PricingRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	rule.TenantID = tenantID
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	rule.UsageCount = 0
	rule.TotalSavings = 0

	if err := h.engine.ValidateRule(&rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	if err := h.repo.SaveRule(ctx, tenantID, &rule); err != nil {
		slog.Error("failed to save rule", "id", rule.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save rule",
		})
		return
	}

	if err := h.engine.LoadRule(&rule); err != nil {
		slog.Error("failed to load rule into engine", "id", rule.ID, "error", err)
	}

	slog.Info("rule created", "id", rule.ID, "name", rule.Name, "kind", rule.Kind)
	writeJSON(w, http.StatusCreated, &rule)
}

// ListRules returns the tenant's rules from the store. Pass ?enabled=true to
// filter to active rules only.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	enabledOnly := r.URL.Query().Get("enabled") == "true"

	list, err := h.repo.ListRules(ctx, tenantID, enabledOnly)
	if err != nil {
		slog.Error("failed to list rules", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list rules",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules": list,
		"count": len(list),
	})
}

// GetRule retrieves a rule by ID.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	ruleID := chi.URLParam(r, "id")

	rule, err := h.repo.GetRule(ctx, tenantID, ruleID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "rule not found",
			})
			return
		}
		slog.Error("failed to get rule", "id", ruleID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get rule",
		})
		return
	}

	writeJSON(w, http.StatusOK, rule)
}

// UpdateRule applies a partial update to a stored rule. Fields absent from
// the body keep their stored values; usage counters are never writable here.
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	ruleID := chi.URLParam(r, "id")

	existing, err := h.repo.GetRule(ctx, tenantID, ruleID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "rule not found",
			})
			return
		}
		slog.Error("failed to get rule", "id", ruleID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get rule",
		})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "failed to read request body",
		})
		return
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	// A body that only flips isActive is a toggle; it goes through the
	// dedicated store path so nothing else on the rule can change.
	if raw, ok := fields["isActive"]; ok && len(fields) == 1 {
		var enabled bool
		if err := json.Unmarshal(raw, &enabled); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "isActive must be a boolean",
			})
			return
		}

		if err := h.repo.SetRuleEnabled(ctx, tenantID, ruleID, enabled); err != nil {
			slog.Error("failed to toggle rule", "id", ruleID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to toggle rule",
			})
			return
		}

		existing.Enabled = enabled
		existing.UpdatedAt = time.Now().UTC()
		if err := h.engine.LoadRule(existing); err != nil {
			slog.Error("failed to load rule into engine", "id", ruleID, "error", err)
		}

		slog.Info("rule toggled", "id", ruleID, "enabled", enabled)
		writeJSON(w, http.StatusOK, existing)
		return
	}

	updated := *existing
	if err := json.Unmarshal(body, &updated); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	updated.ID = existing.ID
	updated.TenantID = tenantID
	updated.UsageCount = existing.UsageCount
	updated.TotalSavings = existing.TotalSavings
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	if err := h.engine.ValidateRule(&updated); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	if err := h.repo.SaveRule(ctx, tenantID, &updated); err != nil {
		slog.Error("failed to update rule", "id", ruleID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to update rule",
		})
		return
	}

	if err := h.engine.LoadRule(&updated); err != nil {
		slog.Error("failed to load rule into engine", "id", ruleID, "error", err)
	}

	slog.Info("rule updated", "id", ruleID, "enabled", updated.Enabled)
	writeJSON(w, http.StatusOK, &updated)
}

// DeleteRule removes a rule from the store and the live snapshot.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	ruleID := chi.URLParam(r, "id")

	if err := h.repo.DeleteRule(ctx, tenantID, ruleID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "rule not found",
			})
			return
		}
		slog.Error("failed to delete rule", "id", ruleID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to delete rule",
		})
		return
	}

	h.engine.RemoveRule(tenantID, ruleID)

	slog.Info("rule deleted", "id", ruleID)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "rule deleted",
	})
}

// ReloadRules reloads the tenant's rules from the store into the engine.
// This enables hot-reloading without server restart.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	dbRules, err := h.repo.ListRules(ctx, tenantID, false)
	if err != nil {
		slog.Error("failed to list rules from database", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules from database",
		})
		return
	}

	if err := h.engine.ReloadTenantRules(tenantID, dbRules); err != nil {
		slog.Error("failed to reload rules into engine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	slog.Info("rules reloaded from database", "tenant_id", tenantID, "count", len(dbRules))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "rules reloaded successfully",
		"count":   len(dbRules),
	})
}

// ============================================================================
// SEGMENT HANDLERS
// ============================================================================

// CreateSegment validates and persists a customer segment.
func (h *Handler) CreateSegment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var seg domain.CustomerSegment
	if err := json.NewDecoder(r.Body).Decode(&seg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if seg.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "name is required",
		})
		return
	}
	if err := criteria.Validate(&seg.Criteria); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	if seg.ID == "" {
		seg.ID = uuid.New().String()
	}
	seg.TenantID = tenantID
	now := time.Now().UTC()
	seg.CreatedAt = now
	seg.UpdatedAt = now

	if err := h.repo.SaveSegment(ctx, tenantID, &seg); err != nil {
		slog.Error("failed to save segment", "id", seg.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save segment",
		})
		return
	}

	slog.Info("segment created", "id", seg.ID, "name", seg.Name)
	writeJSON(w, http.StatusCreated, &seg)
}

// ListSegments returns the tenant's segments. Pass ?enabled=true to filter
// to active segments only.
func (h *Handler) ListSegments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	enabledOnly := r.URL.Query().Get("enabled") == "true"

	list, err := h.repo.ListSegments(ctx, tenantID, enabledOnly)
	if err != nil {
		slog.Error("failed to list segments", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list segments",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"segments": list,
		"count":    len(list),
	})
}

// GetSegment retrieves a segment by ID.
func (h *Handler) GetSegment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	segmentID := chi.URLParam(r, "id")

	seg, err := h.repo.GetSegment(ctx, tenantID, segmentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "segment not found",
			})
			return
		}
		slog.Error("failed to get segment", "id", segmentID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get segment",
		})
		return
	}

	writeJSON(w, http.StatusOK, seg)
}

// UpdateSegment applies a partial update to a stored segment.
func (h *Handler) UpdateSegment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	segmentID := chi.URLParam(r, "id")

	existing, err := h.repo.GetSegment(ctx, tenantID, segmentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "segment not found",
			})
			return
		}
		slog.Error("failed to get segment", "id", segmentID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get segment",
		})
		return
	}

	updated := *existing
	if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	updated.ID = existing.ID
	updated.TenantID = tenantID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	if err := criteria.Validate(&updated.Criteria); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	if err := h.repo.SaveSegment(ctx, tenantID, &updated); err != nil {
		slog.Error("failed to update segment", "id", segmentID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to update segment",
		})
		return
	}

	slog.Info("segment updated", "id", segmentID)
	writeJSON(w, http.StatusOK, &updated)
}

// DeleteSegment removes a segment.
func (h *Handler) DeleteSegment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	segmentID := chi.URLParam(r, "id")

	if err := h.repo.DeleteSegment(ctx, tenantID, segmentID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "segment not found",
			})
			return
		}
		slog.Error("failed to delete segment", "id", segmentID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to delete segment",
		})
		return
	}

	slog.Info("segment deleted", "id", segmentID)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "segment deleted",
	})
}

// ============================================================================
// PRICING HANDLERS
// ============================================================================

// EvaluateRequest is the request body for POST /pricing/evaluate.
type EvaluateRequest struct {
	CustomerID       string            `json:"customerId"`
	ProductID        string            `json:"productId"`
	BundleProductIDs []string          `json:"bundleProductIds,omitempty"`
	Quantity         int               `json:"quantity"`
	UnitPrice        float64           `json:"unitPrice"`
	OrderDate        *time.Time        `json:"orderDate,omitempty"`
	Attributes       domain.Attributes `json:"attributes,omitempty"`
}

// EvaluateResponse is the response for POST /pricing/evaluate.
type EvaluateResponse struct {
	Resolution *domain.Resolution `json:"resolution"`
	Metadata   struct {
		TraceID string `json:"traceId"`
		TotalMs int64  `json:"totalMs"`
		Version string `json:"version"`
	} `json:"metadata"`
}

// Evaluate handles POST /pricing/evaluate requests. It resolves the order
// against the loaded rules and persists the resolution; there is no ledger
// side effect until the resolution is committed.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	traceID := GetTraceID(ctx)

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.CustomerID == "" || req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "customerId and productId are required",
		})
		return
	}
	if req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "quantity must be positive",
		})
		return
	}
	if req.UnitPrice < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "unitPrice must not be negative",
		})
		return
	}

	orderDate := time.Now().UTC()
	if req.OrderDate != nil {
		orderDate = req.OrderDate.UTC()
	}

	octx := &domain.OrderContext{
		CustomerID:       req.CustomerID,
		Attributes:       req.Attributes,
		ProductID:        req.ProductID,
		BundleProductIDs: req.BundleProductIDs,
		Quantity:         req.Quantity,
		UnitPrice:        req.UnitPrice,
		OrderDate:        orderDate,
	}

	h.enrichTier(ctx, tenantID, octx)

	res, err := h.engine.Resolve(ctx, tenantID, octx)
	if err != nil {
		slog.Error("resolution failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "resolution failed",
		})
		return
	}

	if err := h.repo.SaveResolution(ctx, tenantID, res); err != nil {
		slog.Error("failed to save resolution", "id", res.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save resolution",
		})
		return
	}

	if err := h.cache.SetResolution(ctx, tenantID, res, resolutionCacheTTL); err != nil {
		slog.Warn("failed to cache resolution", "id", res.ID, "error", err)
	}

	h.publishResolved(ctx, tenantID, res)

	resp := EvaluateResponse{Resolution: res}
	resp.Metadata.TraceID = traceID
	resp.Metadata.TotalMs = time.Since(start).Milliseconds()
	resp.Metadata.Version = h.version

	writeJSON(w, http.StatusOK, resp)
}

// enrichTier fills in the tier attribute from the tenant's tier thresholds
// when the caller supplied a total spend but no tier. Lookup failures leave
// the attributes as given.
func (h *Handler) enrichTier(ctx context.Context, tenantID string, octx *domain.OrderContext) {
	if octx.Attributes == nil {
		return
	}
	if _, ok := octx.Attributes[domain.FieldTier]; ok {
		return
	}
	spend, ok := octx.Attributes.Number(domain.FieldTotalSpend)
	if !ok {
		return
	}

	tiers, err := h.repo.ListTiers(ctx, tenantID)
	if err != nil {
		slog.Warn("failed to list tiers for enrichment", "error", err)
		return
	}
	if tier := domain.ResolveTier(tiers, spend); tier != nil {
		octx.Attributes[domain.FieldTier] = tier.Name
	}
}

func (h *Handler) publishResolved(ctx context.Context, tenantID string, res *domain.Resolution) {
	payload, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := h.bus.Publish(ctx, tenantID, domain.TopicPricingResolved, payload); err != nil {
		slog.Warn("failed to publish resolved event", "id", res.ID, "error", err)
	}
	if res.ApprovalRequired && res.Status == domain.ResolutionPending {
		if err := h.bus.Publish(ctx, tenantID, domain.TopicApprovalRequired, payload); err != nil {
			slog.Warn("failed to publish approval event", "id", res.ID, "error", err)
		}
	}
}

// CommitRequest is the request body for POST /pricing/commit.
type CommitRequest struct {
	ResolutionID string `json:"resolutionId"`
}

// Commit handles POST /pricing/commit requests. The ledger commit is
// idempotent: repeating a resolution id returns the original result.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req CommitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.ResolutionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "resolutionId is required",
		})
		return
	}

	res, err := h.ledger.Commit(ctx, tenantID, req.ResolutionID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "resolution not found",
			})
		case errors.Is(err, domain.ErrApprovalPending):
			writeJSON(w, http.StatusConflict, map[string]string{
				"error": "resolution approval is pending",
			})
		case errors.Is(err, domain.ErrApprovalRejected):
			writeJSON(w, http.StatusConflict, map[string]string{
				"error": "resolution was rejected",
			})
		case errors.Is(err, domain.ErrLedgerUnavailable):
			slog.Error("ledger unavailable", "id", req.ResolutionID, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "ledger unavailable, retry later",
			})
		default:
			slog.Error("ledger commit failed", "id", req.ResolutionID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "ledger commit failed",
			})
		}
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// GetResolution retrieves a resolution by ID, consulting the cache before
// the store.
func (h *Handler) GetResolution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	resolutionID := chi.URLParam(r, "id")

	if res, err := h.cache.GetResolution(ctx, tenantID, resolutionID); err == nil && res != nil {
		writeJSON(w, http.StatusOK, res)
		return
	}

	res, err := h.repo.GetResolution(ctx, tenantID, resolutionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "resolution not found",
			})
			return
		}
		slog.Error("failed to get resolution", "id", resolutionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get resolution",
		})
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// ApproveResolution handles POST /pricing/resolutions/{id}/approve.
func (h *Handler) ApproveResolution(w http.ResponseWriter, r *http.Request) {
	h.decideResolution(w, r, true)
}

// RejectResolution handles POST /pricing/resolutions/{id}/reject.
func (h *Handler) RejectResolution(w http.ResponseWriter, r *http.Request) {
	h.decideResolution(w, r, false)
}

func (h *Handler) decideResolution(w http.ResponseWriter, r *http.Request, approve bool) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	resolutionID := chi.URLParam(r, "id")

	var res *domain.Resolution
	var err error
	if approve {
		res, err = h.gate.Approve(ctx, tenantID, resolutionID)
	} else {
		res, err = h.gate.Reject(ctx, tenantID, resolutionID)
	}
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "resolution not found",
			})
		case errors.Is(err, domain.ErrApprovalDecided):
			writeJSON(w, http.StatusConflict, map[string]string{
				"error": "resolution already decided",
			})
		default:
			slog.Error("approval decision failed", "id", resolutionID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "approval decision failed",
			})
		}
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// GetStats returns the tenant's aggregate statistics surface.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	snapshot, err := h.stats.Snapshot(ctx, tenantID)
	if err != nil {
		slog.Error("failed to compute stats", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to compute stats",
		})
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
