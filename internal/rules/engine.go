// Package rules provides the pricing rule resolution engine: matching,
// priority resolution, and the optional CEL eligibility gate.
package rules

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/kestrel/internal/criteria"
	"github.com/opensource-finance/kestrel/internal/domain"
)

// Engine holds an immutable snapshot of compiled pricing rules. Matching and
// resolving read the snapshot without locking beyond the swap; reloads
// replace it wholesale, so concurrent resolutions see either the old or the
// new rule set, never a partial one.
type Engine struct {
	mu       sync.RWMutex
	env      *celEnv
	snapshot []*CompiledRule
}

// CompiledRule pairs a rule with its pre-compiled CEL program, if any.
type CompiledRule struct {
	Rule    *domain.PricingRule
	Program eligibilityProgram
}

// NewEngine creates an empty rule resolution engine.
func NewEngine() (*Engine, error) {
	env, err := newCELEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Engine{env: env}, nil
}

// ValidateRule checks a rule's structural invariants, criteria, and CEL
// expression without mutating the loaded snapshot.
func (e *Engine) ValidateRule(rule *domain.PricingRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule is required", domain.ErrInvalidRule)
	}
	if err := rule.Validate(); err != nil {
		return err
	}
	if rule.Criteria != nil {
		if err := criteria.Validate(rule.Criteria); err != nil {
			return err
		}
	}
	if rule.Expression != "" {
		if _, err := e.env.compile(rule.Expression); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidRule, err)
		}
	}
	return nil
}

// ReloadRules validates, compiles, and atomically swaps in a new rule
// snapshot. Disabled rules are kept in the snapshot and filtered by the
// matcher's active gate, so a toggle shows up on the next reload without
// special casing.
func (e *Engine) ReloadRules(rules []*domain.PricingRule) error {
	compiled := make([]*CompiledRule, 0, len(rules))
	for _, rule := range rules {
		cr, err := e.compileRule(rule)
		if err != nil {
			return err
		}
		compiled = append(compiled, cr)
	}

	e.mu.Lock()
	e.snapshot = compiled
	e.mu.Unlock()
	return nil
}

// ReloadTenantRules swaps one tenant's portion of the snapshot, leaving
// other tenants' rules untouched. Compilation failures leave the snapshot
// unchanged.
func (e *Engine) ReloadTenantRules(tenantID string, rules []*domain.PricingRule) error {
	compiled := make([]*CompiledRule, 0, len(rules))
	for _, rule := range rules {
		cr, err := e.compileRule(rule)
		if err != nil {
			return err
		}
		compiled = append(compiled, cr)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := make([]*CompiledRule, 0, len(e.snapshot)+len(compiled))
	for _, existing := range e.snapshot {
		if existing.Rule.TenantID != tenantID {
			next = append(next, existing)
		}
	}
	e.snapshot = append(next, compiled...)
	return nil
}

// LoadRule compiles and adds or replaces a single rule in the snapshot.
// Rules are keyed by tenant and id, so identical ids in different tenants
// coexist.
func (e *Engine) LoadRule(rule *domain.PricingRule) error {
	cr, err := e.compileRule(rule)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := make([]*CompiledRule, 0, len(e.snapshot)+1)
	for _, existing := range e.snapshot {
		if existing.Rule.ID != rule.ID || existing.Rule.TenantID != rule.TenantID {
			next = append(next, existing)
		}
	}
	e.snapshot = append(next, cr)
	return nil
}

// RemoveRule drops a tenant's rule from the snapshot.
func (e *Engine) RemoveRule(tenantID, ruleID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := make([]*CompiledRule, 0, len(e.snapshot))
	for _, existing := range e.snapshot {
		if existing.Rule.ID != ruleID || existing.Rule.TenantID != tenantID {
			next = append(next, existing)
		}
	}
	e.snapshot = next
}

// GetLoadedRules returns the currently loaded rules.
func (e *Engine) GetLoadedRules() []*domain.PricingRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*domain.PricingRule, 0, len(e.snapshot))
	for _, cr := range e.snapshot {
		out = append(out, cr.Rule)
	}
	return out
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.snapshot)
}

// Resolve matches the loaded rules against the order context and applies
// the priority and stacking policy. It is read-only: the returned resolution
// carries no ledger side effect until committed.
func (e *Engine) Resolve(ctx context.Context, tenantID string, octx *domain.OrderContext) (*domain.Resolution, error) {
	e.mu.RLock()
	snapshot := e.snapshot
	e.mu.RUnlock()

	candidates := match(snapshot, tenantID, octx)

	res := resolve(candidates, octx)
	res.ID = uuid.New().String()
	res.TenantID = tenantID
	res.CreatedAt = time.Now().UTC()
	return res, nil
}

// Close clears the snapshot.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snapshot = nil
	return nil
}

func (e *Engine) compileRule(rule *domain.PricingRule) (*CompiledRule, error) {
	if err := e.ValidateRule(rule); err != nil {
		return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
	}

	cr := &CompiledRule{Rule: rule}
	if rule.Expression != "" {
		program, err := e.env.compile(rule.Expression)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
		}
		cr.Program = program
	}
	return cr, nil
}
