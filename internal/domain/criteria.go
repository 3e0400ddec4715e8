package domain

// Operator is a criterion comparison operator.
type Operator string

const (
	OpEquals       Operator = "equals"
	OpNotEquals    Operator = "not_equals"
	OpContains     Operator = "contains"
	OpNotContains  Operator = "not_contains"
	OpIn           Operator = "in"
	OpNotIn        Operator = "not_in"
	OpGreaterThan  Operator = "greater_than"
	OpLessThan     Operator = "less_than"
	OpGreaterEqual Operator = "greater_equal"
	OpLessEqual    Operator = "less_equal"
	OpBetween      Operator = "between"
	OpIsEmpty      Operator = "is_empty"
	OpIsNotEmpty   Operator = "is_not_empty"
)

// CriteriaMode is the single top-level combination mode for a condition list.
type CriteriaMode string

const (
	// MatchAll requires every condition to hold (logical AND).
	MatchAll CriteriaMode = "all"

	// MatchAny requires at least one condition to hold (logical OR).
	MatchAny CriteriaMode = "any"
)

// Condition is a single (field, operator, value) comparison.
//
// Logic is carried for round-trip compatibility with existing stored criteria
// but is display-only: combination semantics come exclusively from
// Criteria.Mode. Do not consult Logic during evaluation.
type Condition struct {
	Field    Field    `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value,omitempty"`
	Logic    string   `json:"logic,omitempty"`
}

// Criteria is an ordered condition list combined by a single top-level mode.
type Criteria struct {
	Mode       CriteriaMode `json:"conditions"`
	Conditions []Condition  `json:"rules"`
}
