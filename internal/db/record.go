package db

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Record is an ordered name → value container. It holds one result row or the
// values of one entity instance.
//
// Keys keep the order in which they were first set (for rows: the column
// order of the result). A Record is not safe for concurrent mutation.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord builds a record from parallel name/value slices. Extra names
// without a value are ignored.
func NewRecord(names []string, values []any) *Record {
	r := &Record{
		keys:   make([]string, 0, len(names)),
		values: make(map[string]any, len(names)),
	}
	for i, name := range names {
		if i >= len(values) {
			break
		}
		r.Set(name, values[i])
	}
	return r
}

// Get returns the value stored under name and whether it was present.
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Attr is Get for callers that treat a missing key as an error.
// The error wraps ErrNoSuchAttribute.
func (r *Record) Attr(name string) (any, error) {
	v, ok := r.values[name]
	if !ok {
		return nil, fmt.Errorf("record has no attribute %q: %w", name, ErrNoSuchAttribute)
	}
	return v, nil
}

// Set stores value under name, appending name to the key order if it is new.
func (r *Record) Set(name string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[name]; !ok {
		r.keys = append(r.keys, name)
	}
	r.values[name] = value
}

// Has reports whether name is present.
func (r *Record) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Keys returns the keys in insertion order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Values returns the values in key order.
func (r *Record) Values() []any {
	out := make([]any, len(r.keys))
	for i, k := range r.keys {
		out[i] = r.values[k]
	}
	return out
}

// Len returns the number of keys.
func (r *Record) Len() int { return len(r.keys) }

// String returns the value under name converted to a string, or "" when the
// key is missing or nil.
func (r *Record) String(name string) string {
	s, _ := asString(r.values[name])
	return s
}

// Int64 returns the value under name converted to an int64, or 0.
func (r *Record) Int64(name string) int64 {
	n, _ := asInt64(r.values[name])
	return n
}

// Float64 returns the value under name converted to a float64, or 0.
func (r *Record) Float64(name string) float64 {
	f, _ := asFloat64(r.values[name])
	return f
}

// Bool returns the value under name converted to a bool, or false.
// Drivers report booleans as integers (sqlite, mysql tinyint) or as bool.
func (r *Record) Bool(name string) bool {
	switch v := r.values[name].(type) {
	case bool:
		return v
	case nil:
		return false
	default:
		n, ok := asInt64(v)
		return ok && n != 0
	}
}

// MarshalJSON encodes the record as a JSON object in key order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("encoding %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// normalize turns driver-specific scan results into plain Go scalars.
// The MySQL text protocol hands back []byte for every column.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func asString(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case []byte:
		return string(x), true
	case time.Time:
		return x.Format(time.RFC3339Nano), true
	default:
		return fmt.Sprint(x), true
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case uint64:
		return int64(x), true
	case float64:
		return int64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	case []byte:
		n, err := strconv.ParseInt(string(x), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(string(x), 64)
		return f, err == nil
	}
	return 0, false
}
