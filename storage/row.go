package storage

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Row is one result row keyed by column name. Drivers disagree on the Go
// types they hand back (int32 vs int64, []byte vs string, integer booleans),
// so values are read through the typed accessors below.
type Row map[string]any

// Text returns the column as a string; NULL and missing columns yield ""
func (r Row) Text(column string) string {
	s := r.OptionalString(column)
	if s == nil {
		return ""
	}
	return *s
}

// value returns the column with driver pointer wrappers removed. gorm scans
// untyped columns such as COUNT(*) into *interface{}.
func (r Row) value(column string) (any, bool) {
	v, ok := r[column]
	if !ok {
		return nil, false
	}
	return deref(v), true
}

func deref(v any) any {
	for {
		p, ok := v.(*any)
		if !ok {
			return v
		}
		if p == nil {
			return nil
		}
		v = *p
	}
}

// OptionalString returns nil for NULL or missing columns
func (r Row) OptionalString(column string) *string {
	v, ok := r.value(column)
	if !ok || v == nil {
		return nil
	}

	var s string
	switch t := v.(type) {
	case string:
		s = t
	case []byte:
		s = string(t)
	case time.Time:
		s = t.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		s = t.String()
	default:
		s = fmt.Sprint(t)
	}
	return &s
}

// Int returns the column as an int64; NULL yields 0
func (r Row) Int(column string) (int64, error) {
	v, ok := r.value(column)
	if !ok || v == nil {
		return 0, nil
	}

	switch t := v.(type) {
	case int64:
		return t, nil
	case int32:
		return int64(t), nil
	case int:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint64:
		return int64(t), nil
	case float64:
		return int64(t), nil
	case float32:
		return int64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return parseInt(column, string(t))
	case string:
		return parseInt(column, t)
	default:
		return 0, fmt.Errorf("column %s: cannot convert %T to integer", column, v)
	}
}

// Bool returns the column as a bool; NULL yields false
func (r Row) Bool(column string) (bool, error) {
	v, ok := r.value(column)
	if !ok || v == nil {
		return false, nil
	}

	switch t := v.(type) {
	case bool:
		return t, nil
	case []byte:
		return parseBool(column, string(t))
	case string:
		return parseBool(column, t)
	default:
		n, err := r.Int(column)
		if err != nil {
			return false, err
		}
		return n != 0, nil
	}
}

func parseInt(column, s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	// NUMERIC aggregates may come back as "3.0"
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: cannot parse %q as integer", column, s)
	}
	return int64(f), nil
}

func parseBool(column, s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "yes", "on":
		return true, nil
	case "", "0", "f", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("column %s: cannot parse %q as boolean", column, s)
}
