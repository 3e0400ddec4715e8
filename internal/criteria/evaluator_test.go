package criteria

import (
	"errors"
	"testing"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func attrs() domain.Attributes {
	return domain.Attributes{
		domain.FieldTier:           "gold",
		domain.FieldLifecycleStage: "active",
		domain.FieldSegments:       []any{"wholesale", "priority"},
		domain.FieldTotalSpend:     15000.0,
		domain.FieldOrderCount:     42.0,
		domain.FieldCountry:        "DE",
		domain.FieldCompanyName:    "Acme Industrial GmbH",
		domain.FieldFirstOrderDate: "2023-03-15",
		domain.FieldLastOrderDate:  "2026-08-01T10:30:00Z",
	}
}

func one(field domain.Field, op domain.Operator, value any) *domain.Criteria {
	return &domain.Criteria{
		Mode:       domain.MatchAll,
		Conditions: []domain.Condition{{Field: field, Operator: op, Value: value}},
	}
}

func TestEvaluateText(t *testing.T) {
	tests := []struct {
		name     string
		criteria *domain.Criteria
		want     bool
	}{
		{"equals match", one(domain.FieldCountry, domain.OpEquals, "DE"), true},
		{"equals mismatch", one(domain.FieldCountry, domain.OpEquals, "FR"), false},
		{"not_equals", one(domain.FieldCountry, domain.OpNotEquals, "FR"), true},
		{"contains", one(domain.FieldCompanyName, domain.OpContains, "Industrial"), true},
		{"contains mismatch", one(domain.FieldCompanyName, domain.OpContains, "Retail"), false},
		{"not_contains", one(domain.FieldCompanyName, domain.OpNotContains, "Retail"), true},
		{"in", one(domain.FieldCountry, domain.OpIn, []any{"DE", "AT", "CH"}), true},
		{"not_in", one(domain.FieldCountry, domain.OpNotIn, []any{"US", "CA"}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.criteria, attrs()); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEvaluateEnum(t *testing.T) {
	tests := []struct {
		name     string
		criteria *domain.Criteria
		want     bool
	}{
		{"tier equals", one(domain.FieldTier, domain.OpEquals, "gold"), true},
		{"tier mismatch", one(domain.FieldTier, domain.OpEquals, "silver"), false},
		{"tier in", one(domain.FieldTier, domain.OpIn, []any{"gold", "platinum"}), true},
		{"segment membership", one(domain.FieldSegments, domain.OpContains, "wholesale"), true},
		{"segment non-membership", one(domain.FieldSegments, domain.OpContains, "retail"), false},
		{"segment not_contains", one(domain.FieldSegments, domain.OpNotContains, "retail"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.criteria, attrs()); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEvaluateNumber(t *testing.T) {
	tests := []struct {
		name     string
		criteria *domain.Criteria
		want     bool
	}{
		{"greater_than", one(domain.FieldTotalSpend, domain.OpGreaterThan, 10000.0), true},
		{"greater_than false", one(domain.FieldTotalSpend, domain.OpGreaterThan, 20000.0), false},
		{"less_than", one(domain.FieldOrderCount, domain.OpLessThan, 100.0), true},
		{"greater_equal boundary", one(domain.FieldTotalSpend, domain.OpGreaterEqual, 15000.0), true},
		{"less_equal boundary", one(domain.FieldTotalSpend, domain.OpLessEqual, 15000.0), true},
		{"between inclusive low", one(domain.FieldTotalSpend, domain.OpBetween, []any{15000.0, 20000.0}), true},
		{"between inclusive high", one(domain.FieldTotalSpend, domain.OpBetween, []any{10000.0, 15000.0}), true},
		{"between outside", one(domain.FieldTotalSpend, domain.OpBetween, []any{16000.0, 20000.0}), false},
		{"in", one(domain.FieldOrderCount, domain.OpIn, []any{10.0, 42.0}), true},
		{"int comparison value", one(domain.FieldOrderCount, domain.OpEquals, 42), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.criteria, attrs()); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEvaluateDate(t *testing.T) {
	tests := []struct {
		name     string
		criteria *domain.Criteria
		want     bool
	}{
		{"after", one(domain.FieldFirstOrderDate, domain.OpGreaterThan, "2023-01-01"), true},
		{"before", one(domain.FieldFirstOrderDate, domain.OpLessThan, "2024-01-01"), true},
		{"equals plain date", one(domain.FieldFirstOrderDate, domain.OpEquals, "2023-03-15"), true},
		{"between", one(domain.FieldLastOrderDate, domain.OpBetween, []any{"2026-08-01", "2026-08-31"}), true},
		{"between outside", one(domain.FieldLastOrderDate, domain.OpBetween, []any{"2026-09-01", "2026-09-30"}), false},
		{"rfc3339 comparison", one(domain.FieldLastOrderDate, domain.OpGreaterEqual, "2026-08-01T10:30:00Z"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.criteria, attrs()); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEvaluateEmptiness(t *testing.T) {
	sparse := domain.Attributes{
		domain.FieldCountry:  "",
		domain.FieldSegments: []any{},
		domain.FieldTier:     "gold",
	}

	tests := []struct {
		name     string
		criteria *domain.Criteria
		want     bool
	}{
		{"empty string", one(domain.FieldCountry, domain.OpIsEmpty, nil), true},
		{"empty list", one(domain.FieldSegments, domain.OpIsEmpty, nil), true},
		{"missing attribute is empty", one(domain.FieldCompanyName, domain.OpIsEmpty, nil), true},
		{"present value is not empty", one(domain.FieldTier, domain.OpIsNotEmpty, nil), true},
		{"present value is_empty false", one(domain.FieldTier, domain.OpIsEmpty, nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.criteria, sparse); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEvaluateMissingAttribute(t *testing.T) {
	// A missing attribute never matches a comparison operator.
	sparse := domain.Attributes{}

	if Evaluate(one(domain.FieldTier, domain.OpEquals, "gold"), sparse) {
		t.Error("expected missing attribute to be a non-match for equals")
	}
	if Evaluate(one(domain.FieldTotalSpend, domain.OpGreaterThan, 0.0), sparse) {
		t.Error("expected missing attribute to be a non-match for greater_than")
	}
}

func TestEvaluateModes(t *testing.T) {
	both := &domain.Criteria{
		Mode: domain.MatchAll,
		Conditions: []domain.Condition{
			{Field: domain.FieldTier, Operator: domain.OpEquals, Value: "gold"},
			{Field: domain.FieldCountry, Operator: domain.OpEquals, Value: "FR"},
		},
	}
	if Evaluate(both, attrs()) {
		t.Error("all mode: expected one failing condition to fail the set")
	}

	either := &domain.Criteria{
		Mode: domain.MatchAny,
		Conditions: []domain.Condition{
			{Field: domain.FieldTier, Operator: domain.OpEquals, Value: "silver"},
			{Field: domain.FieldCountry, Operator: domain.OpEquals, Value: "DE"},
		},
	}
	if !Evaluate(either, attrs()) {
		t.Error("any mode: expected one passing condition to pass the set")
	}

	neither := &domain.Criteria{
		Mode: domain.MatchAny,
		Conditions: []domain.Condition{
			{Field: domain.FieldTier, Operator: domain.OpEquals, Value: "silver"},
			{Field: domain.FieldCountry, Operator: domain.OpEquals, Value: "FR"},
		},
	}
	if Evaluate(neither, attrs()) {
		t.Error("any mode: expected all failing conditions to fail the set")
	}
}

func TestEvaluateEmptyCriteria(t *testing.T) {
	if !Evaluate(nil, attrs()) {
		t.Error("nil criteria must match everything")
	}
	if !Evaluate(&domain.Criteria{Mode: domain.MatchAll}, attrs()) {
		t.Error("empty condition list must match everything")
	}
}

func TestValidate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		c := &domain.Criteria{
			Mode: domain.MatchAll,
			Conditions: []domain.Condition{
				{Field: domain.FieldTier, Operator: domain.OpEquals, Value: "gold"},
				{Field: domain.FieldTotalSpend, Operator: domain.OpBetween, Value: []any{1000.0, 5000.0}},
				{Field: domain.FieldCountry, Operator: domain.OpIsEmpty},
			},
		}
		if err := Validate(c); err != nil {
			t.Errorf("expected valid criteria, got %v", err)
		}
	})

	t.Run("NilCriteria", func(t *testing.T) {
		if err := Validate(nil); !errors.Is(err, domain.ErrMalformedCriterion) {
			t.Errorf("expected ErrMalformedCriterion, got %v", err)
		}
	})

	t.Run("BadMode", func(t *testing.T) {
		c := &domain.Criteria{Mode: "some"}
		if err := Validate(c); !errors.Is(err, domain.ErrMalformedCriterion) {
			t.Errorf("expected ErrMalformedCriterion, got %v", err)
		}
	})

	t.Run("UnknownField", func(t *testing.T) {
		c := one("favourite_colour", domain.OpEquals, "blue")
		if err := Validate(c); !errors.Is(err, domain.ErrUnknownField) {
			t.Errorf("expected ErrUnknownField, got %v", err)
		}
	})

	t.Run("OperatorTypeMismatch", func(t *testing.T) {
		c := one(domain.FieldCompanyName, domain.OpGreaterThan, "Acme")
		if err := Validate(c); !errors.Is(err, domain.ErrInvalidOperatorForType) {
			t.Errorf("expected ErrInvalidOperatorForType, got %v", err)
		}

		c = one(domain.FieldTotalSpend, domain.OpContains, 5.0)
		if err := Validate(c); !errors.Is(err, domain.ErrInvalidOperatorForType) {
			t.Errorf("expected ErrInvalidOperatorForType, got %v", err)
		}
	})

	t.Run("BetweenShape", func(t *testing.T) {
		c := one(domain.FieldTotalSpend, domain.OpBetween, []any{1000.0})
		if err := Validate(c); !errors.Is(err, domain.ErrMalformedCriterion) {
			t.Errorf("expected ErrMalformedCriterion for one bound, got %v", err)
		}

		c = one(domain.FieldTotalSpend, domain.OpBetween, 1000.0)
		if err := Validate(c); !errors.Is(err, domain.ErrMalformedCriterion) {
			t.Errorf("expected ErrMalformedCriterion for scalar, got %v", err)
		}
	})

	t.Run("InListShape", func(t *testing.T) {
		c := one(domain.FieldTier, domain.OpIn, []any{})
		if err := Validate(c); !errors.Is(err, domain.ErrMalformedCriterion) {
			t.Errorf("expected ErrMalformedCriterion for empty list, got %v", err)
		}

		c = one(domain.FieldTier, domain.OpIn, []any{"gold", 7.0})
		if err := Validate(c); !errors.Is(err, domain.ErrMalformedCriterion) {
			t.Errorf("expected ErrMalformedCriterion for mixed list, got %v", err)
		}
	})

	t.Run("MissingValue", func(t *testing.T) {
		c := one(domain.FieldTier, domain.OpEquals, nil)
		if err := Validate(c); !errors.Is(err, domain.ErrMalformedCriterion) {
			t.Errorf("expected ErrMalformedCriterion for nil value, got %v", err)
		}
	})

	t.Run("BadDateValue", func(t *testing.T) {
		c := one(domain.FieldFirstOrderDate, domain.OpGreaterThan, "soon")
		if err := Validate(c); !errors.Is(err, domain.ErrMalformedCriterion) {
			t.Errorf("expected ErrMalformedCriterion for unparseable date, got %v", err)
		}
	})
}
