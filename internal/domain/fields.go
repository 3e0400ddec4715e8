package domain

import "time"

// FieldType classifies a customer attribute for operator compatibility checks.
type FieldType string

const (
	FieldTypeText   FieldType = "text"
	FieldTypeEnum   FieldType = "enum"
	FieldTypeNumber FieldType = "number"
	FieldTypeDate   FieldType = "date"
)

// Field is a known customer attribute referenced by segment and rule criteria.
// The set is closed: criteria naming fields outside this table are rejected at
// validation time instead of silently never matching at evaluation time.
type Field string

const (
	FieldTier           Field = "tier"
	FieldLifecycleStage Field = "lifecycle_stage"
	FieldSegments       Field = "segments"
	FieldTotalSpend     Field = "total_spend"
	FieldOrderCount     Field = "order_count"
	FieldCountry        Field = "country"
	FieldCompanyName    Field = "company_name"
	FieldFirstOrderDate Field = "first_order_date"
	FieldLastOrderDate  Field = "last_order_date"
)

var fieldTypes = map[Field]FieldType{
	FieldTier:           FieldTypeEnum,
	FieldLifecycleStage: FieldTypeEnum,
	FieldSegments:       FieldTypeEnum,
	FieldTotalSpend:     FieldTypeNumber,
	FieldOrderCount:     FieldTypeNumber,
	FieldCountry:        FieldTypeText,
	FieldCompanyName:    FieldTypeText,
	FieldFirstOrderDate: FieldTypeDate,
	FieldLastOrderDate:  FieldTypeDate,
}

// Type returns the field's type, or false for unknown fields.
func (f Field) Type() (FieldType, bool) {
	t, ok := fieldTypes[f]
	return t, ok
}

// KnownFields returns the complete attribute field table.
func KnownFields() map[Field]FieldType {
	out := make(map[Field]FieldType, len(fieldTypes))
	for f, t := range fieldTypes {
		out[f] = t
	}
	return out
}

// Attributes is the customer attribute map carried by an OrderContext.
// Values are JSON-shaped (string, float64, []any, time formatted as RFC 3339).
type Attributes map[Field]any

// String returns the attribute as a string. Second return is false when the
// attribute is absent or not a string.
func (a Attributes) String(f Field) (string, bool) {
	v, ok := a[f]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Number returns the attribute as a float64, accepting int and int64 for
// JSON compatibility.
func (a Attributes) Number(f Field) (float64, bool) {
	v, ok := a[f]
	if !ok {
		return 0, false
	}
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

// Time returns the attribute as a time.Time, parsing RFC 3339 and plain
// date strings.
func (a Attributes) Time(f Field) (time.Time, bool) {
	v, ok := a[f]
	if !ok {
		return time.Time{}, false
	}
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

// List returns the attribute as a slice. Single scalar values are wrapped in
// a one-element slice so multi-valued operators stay total.
func (a Attributes) List(f Field) ([]any, bool) {
	v, ok := a[f]
	if !ok {
		return nil, false
	}
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	default:
		return []any{v}, true
	}
}
