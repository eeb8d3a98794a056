package db

import (
	"fmt"
	"time"
)

// Helpers for MemSchema.Apply implementations. Each converts one column value
// to the Go type the row field holds and rejects anything else, the way a
// typed column would.

// SetString writes a TEXT NOT NULL column.
func SetString(dst *string, col string, v interface{}) error {
	s, ok := v.(string)
	if !ok {
		return typeError(col, "text", v)
	}
	*dst = s
	return nil
}

// SetNullString writes a nullable TEXT column.
func SetNullString(dst **string, col string, v interface{}) error {
	switch s := v.(type) {
	case nil:
		*dst = nil
	case *string:
		*dst = s
	case string:
		*dst = &s
	default:
		return typeError(col, "text", v)
	}
	return nil
}

// SetFloat writes a NUMERIC column.
func SetFloat(dst *float64, col string, v interface{}) error {
	switch f := v.(type) {
	case float64:
		*dst = f
	case int:
		*dst = float64(f)
	default:
		return typeError(col, "numeric", v)
	}
	return nil
}

// SetBool writes a BOOLEAN column.
func SetBool(dst *bool, col string, v interface{}) error {
	b, ok := v.(bool)
	if !ok {
		return typeError(col, "boolean", v)
	}
	*dst = b
	return nil
}

// SetTime writes a DATE or TIMESTAMPTZ NOT NULL column.
func SetTime(dst *time.Time, col string, v interface{}) error {
	t, ok := v.(time.Time)
	if !ok {
		return typeError(col, "date", v)
	}
	*dst = t
	return nil
}

// SetNullTime writes a nullable DATE or TIMESTAMPTZ column.
func SetNullTime(dst **time.Time, col string, v interface{}) error {
	switch t := v.(type) {
	case nil:
		*dst = nil
	case *time.Time:
		*dst = t
	case time.Time:
		*dst = &t
	default:
		return typeError(col, "date", v)
	}
	return nil
}

// UnknownColumn is returned by Apply for columns the table does not have.
func UnknownColumn(table, col string) error {
	return fmt.Errorf("column %q of relation %q does not exist", col, table)
}

func typeError(col, want string, v interface{}) error {
	return fmt.Errorf("column %q is of type %s but value is %T", col, want, v)
}

// NullString maps "" to NULL.
func NullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue maps NULL to "".
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
