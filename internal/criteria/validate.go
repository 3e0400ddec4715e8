package criteria

import (
	"fmt"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// operatorTypes maps each operator to the field types it accepts. Attempting
// an operator against an incompatible type is rejected at validation instead
// of silently coerced at evaluation.
var operatorTypes = map[domain.Operator]map[domain.FieldType]bool{
	domain.OpEquals:       {domain.FieldTypeText: true, domain.FieldTypeEnum: true, domain.FieldTypeNumber: true, domain.FieldTypeDate: true},
	domain.OpNotEquals:    {domain.FieldTypeText: true, domain.FieldTypeEnum: true, domain.FieldTypeNumber: true, domain.FieldTypeDate: true},
	domain.OpContains:     {domain.FieldTypeText: true, domain.FieldTypeEnum: true},
	domain.OpNotContains:  {domain.FieldTypeText: true, domain.FieldTypeEnum: true},
	domain.OpIn:           {domain.FieldTypeText: true, domain.FieldTypeEnum: true, domain.FieldTypeNumber: true},
	domain.OpNotIn:        {domain.FieldTypeText: true, domain.FieldTypeEnum: true, domain.FieldTypeNumber: true},
	domain.OpGreaterThan:  {domain.FieldTypeNumber: true, domain.FieldTypeDate: true},
	domain.OpLessThan:     {domain.FieldTypeNumber: true, domain.FieldTypeDate: true},
	domain.OpGreaterEqual: {domain.FieldTypeNumber: true, domain.FieldTypeDate: true},
	domain.OpLessEqual:    {domain.FieldTypeNumber: true, domain.FieldTypeDate: true},
	domain.OpBetween:      {domain.FieldTypeNumber: true, domain.FieldTypeDate: true},
	domain.OpIsEmpty:      {domain.FieldTypeText: true, domain.FieldTypeEnum: true, domain.FieldTypeNumber: true, domain.FieldTypeDate: true},
	domain.OpIsNotEmpty:   {domain.FieldTypeText: true, domain.FieldTypeEnum: true, domain.FieldTypeNumber: true, domain.FieldTypeDate: true},
}

// Validate checks structural and type validity of criteria before storage.
// Returns ErrMalformedCriterion, ErrUnknownField, or ErrInvalidOperatorForType.
func Validate(c *domain.Criteria) error {
	if c == nil {
		return fmt.Errorf("%w: criteria is required", domain.ErrMalformedCriterion)
	}
	if c.Mode != domain.MatchAll && c.Mode != domain.MatchAny {
		return fmt.Errorf("%w: conditions mode must be all or any, got %q", domain.ErrMalformedCriterion, c.Mode)
	}

	for i, cond := range c.Conditions {
		if err := validateCondition(cond); err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
	}

	return nil
}

func validateCondition(cond domain.Condition) error {
	fieldType, known := cond.Field.Type()
	if !known {
		return fmt.Errorf("%w: %q", domain.ErrUnknownField, cond.Field)
	}

	allowed, validOp := operatorTypes[cond.Operator]
	if !validOp {
		return fmt.Errorf("%w: unknown operator %q", domain.ErrMalformedCriterion, cond.Operator)
	}
	if !allowed[fieldType] {
		return fmt.Errorf("%w: %s on %s field %q", domain.ErrInvalidOperatorForType, cond.Operator, fieldType, cond.Field)
	}

	switch cond.Operator {
	case domain.OpIsEmpty, domain.OpIsNotEmpty:
		// No comparison value.
		return nil

	case domain.OpBetween:
		pair, ok := cond.Value.([]any)
		if !ok || len(pair) != 2 {
			return fmt.Errorf("%w: between requires a two-element [lower, upper] value", domain.ErrMalformedCriterion)
		}
		for _, bound := range pair {
			if !valueMatchesType(bound, fieldType) {
				return fmt.Errorf("%w: between bound %v is not a %s", domain.ErrMalformedCriterion, bound, fieldType)
			}
		}
		return nil

	case domain.OpIn, domain.OpNotIn:
		list, ok := cond.Value.([]any)
		if !ok || len(list) == 0 {
			return fmt.Errorf("%w: %s requires a non-empty list value", domain.ErrMalformedCriterion, cond.Operator)
		}
		for _, elem := range list {
			if !valueMatchesType(elem, fieldType) {
				return fmt.Errorf("%w: list element %v is not a %s", domain.ErrMalformedCriterion, elem, fieldType)
			}
		}
		return nil

	default:
		if cond.Value == nil {
			return fmt.Errorf("%w: %s requires a comparison value", domain.ErrMalformedCriterion, cond.Operator)
		}
		if !valueMatchesType(cond.Value, fieldType) {
			return fmt.Errorf("%w: value %v is not a %s", domain.ErrMalformedCriterion, cond.Value, fieldType)
		}
		return nil
	}
}

func valueMatchesType(v any, fieldType domain.FieldType) bool {
	switch fieldType {
	case domain.FieldTypeText, domain.FieldTypeEnum:
		_, ok := v.(string)
		return ok
	case domain.FieldTypeNumber:
		_, ok := toFloat(v)
		return ok
	case domain.FieldTypeDate:
		_, ok := toTime(v)
		return ok
	}
	return false
}
