package domain

import "time"

// CustomerSegment is a named, criteria-defined customer grouping. Segments
// share the condition-evaluation machinery with customer_tier rules but are
// independent of pricing.
type CustomerSegment struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenantId,omitempty"`
	Name     string   `json:"name"`
	Criteria Criteria `json:"criteria"`

	// Color is a display hint for the consuming UI.
	Color string `json:"color,omitempty"`

	Enabled bool `json:"isActive"`

	// AutoUpdate controls whether membership is recomputed on a schedule
	// or frozen at creation. The engine itself always evaluates on demand.
	AutoUpdate bool `json:"autoUpdate"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}
