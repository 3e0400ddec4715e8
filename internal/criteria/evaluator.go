// Package criteria provides the (field, operator, value) condition engine
// shared by customer segments and customer_tier rule eligibility.
//
// Evaluation is pure and total over validated criteria: a missing attribute
// is present-but-empty for the emptiness operators and an automatic
// non-match for everything else, never an error.
package criteria

import (
	"strings"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Evaluate applies the criteria to an entity's attribute map. Conditions
// combine via the single top-level mode: all (AND) or any (OR). The
// per-condition Logic tag is display-only and never consulted.
func Evaluate(c *domain.Criteria, attrs domain.Attributes) bool {
	if c == nil || len(c.Conditions) == 0 {
		// Empty criteria match everything, mirroring an unscoped rule.
		return true
	}

	for _, cond := range c.Conditions {
		matched := matchCondition(cond, attrs)
		if c.Mode == domain.MatchAny {
			if matched {
				return true
			}
		} else if !matched {
			return false
		}
	}

	return c.Mode != domain.MatchAny
}

func matchCondition(cond domain.Condition, attrs domain.Attributes) bool {
	fieldType, known := cond.Field.Type()
	if !known {
		return false
	}

	switch cond.Operator {
	case domain.OpIsEmpty:
		return isEmpty(attrs, cond.Field)
	case domain.OpIsNotEmpty:
		return !isEmpty(attrs, cond.Field)
	}

	if _, present := attrs[cond.Field]; !present {
		return false
	}

	switch fieldType {
	case domain.FieldTypeText:
		return matchText(cond, attrs)
	case domain.FieldTypeEnum:
		return matchEnum(cond, attrs)
	case domain.FieldTypeNumber:
		return matchNumber(cond, attrs)
	case domain.FieldTypeDate:
		return matchDate(cond, attrs)
	}
	return false
}

// isEmpty treats a missing attribute, nil, the empty string, and an empty
// list all as empty.
func isEmpty(attrs domain.Attributes, f domain.Field) bool {
	v, ok := attrs[f]
	if !ok || v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	}
	return false
}

func matchText(cond domain.Condition, attrs domain.Attributes) bool {
	val, ok := attrs.String(cond.Field)
	if !ok {
		return false
	}

	switch cond.Operator {
	case domain.OpEquals:
		want, ok := cond.Value.(string)
		return ok && val == want
	case domain.OpNotEquals:
		want, ok := cond.Value.(string)
		return ok && val != want
	case domain.OpContains:
		want, ok := cond.Value.(string)
		return ok && strings.Contains(val, want)
	case domain.OpNotContains:
		want, ok := cond.Value.(string)
		return ok && !strings.Contains(val, want)
	case domain.OpIn:
		return inList(val, cond.Value)
	case domain.OpNotIn:
		return !inList(val, cond.Value)
	}
	return false
}

// matchEnum handles single-valued enums (tier, lifecycle_stage) and
// multi-valued ones (segments). contains on a multi-valued enum tests
// membership of the comparison value in the attribute list.
func matchEnum(cond domain.Condition, attrs domain.Attributes) bool {
	switch cond.Operator {
	case domain.OpEquals:
		val, ok := attrs.String(cond.Field)
		want, okw := cond.Value.(string)
		return ok && okw && val == want
	case domain.OpNotEquals:
		val, ok := attrs.String(cond.Field)
		want, okw := cond.Value.(string)
		return ok && okw && val != want
	case domain.OpContains, domain.OpNotContains:
		list, ok := attrs.List(cond.Field)
		if !ok {
			return false
		}
		found := false
		for _, elem := range list {
			if s, ok := elem.(string); ok && s == cond.Value {
				found = true
				break
			}
		}
		if cond.Operator == domain.OpContains {
			return found
		}
		return !found
	case domain.OpIn:
		val, ok := attrs.String(cond.Field)
		return ok && inList(val, cond.Value)
	case domain.OpNotIn:
		val, ok := attrs.String(cond.Field)
		return ok && !inList(val, cond.Value)
	}
	return false
}

func matchNumber(cond domain.Condition, attrs domain.Attributes) bool {
	val, ok := attrs.Number(cond.Field)
	if !ok {
		return false
	}

	switch cond.Operator {
	case domain.OpEquals:
		want, ok := toFloat(cond.Value)
		return ok && val == want
	case domain.OpNotEquals:
		want, ok := toFloat(cond.Value)
		return ok && val != want
	case domain.OpGreaterThan:
		want, ok := toFloat(cond.Value)
		return ok && val > want
	case domain.OpLessThan:
		want, ok := toFloat(cond.Value)
		return ok && val < want
	case domain.OpGreaterEqual:
		want, ok := toFloat(cond.Value)
		return ok && val >= want
	case domain.OpLessEqual:
		want, ok := toFloat(cond.Value)
		return ok && val <= want
	case domain.OpBetween:
		lo, hi, ok := bounds(cond.Value, toFloat)
		return ok && val >= lo && val <= hi
	case domain.OpIn:
		return numberInList(val, cond.Value)
	case domain.OpNotIn:
		return !numberInList(val, cond.Value)
	}
	return false
}

func matchDate(cond domain.Condition, attrs domain.Attributes) bool {
	val, ok := attrs.Time(cond.Field)
	if !ok {
		return false
	}

	switch cond.Operator {
	case domain.OpEquals:
		want, ok := toTime(cond.Value)
		return ok && val.Equal(want)
	case domain.OpNotEquals:
		want, ok := toTime(cond.Value)
		return ok && !val.Equal(want)
	case domain.OpGreaterThan:
		want, ok := toTime(cond.Value)
		return ok && val.After(want)
	case domain.OpLessThan:
		want, ok := toTime(cond.Value)
		return ok && val.Before(want)
	case domain.OpGreaterEqual:
		want, ok := toTime(cond.Value)
		return ok && !val.Before(want)
	case domain.OpLessEqual:
		want, ok := toTime(cond.Value)
		return ok && !val.After(want)
	case domain.OpBetween:
		lo, hi, ok := bounds(cond.Value, toTime)
		return ok && !val.Before(lo) && !val.After(hi)
	}
	return false
}

// toFloat converts a criterion comparison value to float64.
// Handles float64, int, int64 from JSON unmarshaling.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// toTime parses a criterion comparison value as RFC 3339 or a plain date.
func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, true
		}
		if parsed, err := time.Parse("2006-01-02", t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// bounds extracts the inclusive lower/upper pair of a between value.
func bounds[T any](v any, conv func(any) (T, bool)) (T, T, bool) {
	var zero T
	pair, ok := v.([]any)
	if !ok || len(pair) != 2 {
		return zero, zero, false
	}
	lo, okLo := conv(pair[0])
	hi, okHi := conv(pair[1])
	return lo, hi, okLo && okHi
}

func inList(val string, listValue any) bool {
	list, ok := listValue.([]any)
	if !ok {
		return false
	}
	for _, elem := range list {
		if s, ok := elem.(string); ok && s == val {
			return true
		}
	}
	return false
}

func numberInList(val float64, listValue any) bool {
	list, ok := listValue.([]any)
	if !ok {
		return false
	}
	for _, elem := range list {
		if n, ok := toFloat(elem); ok && n == val {
			return true
		}
	}
	return false
}
