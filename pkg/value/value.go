// Package value defines the record value model shared by linkage and fusion:
// the missing sentinel, kinds, and a stateless structural total order.
package value

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
)

type missing struct{}

func (missing) String() string { return "<missing>" }

// Missing is returned by field access when a path does not resolve. It is
// distinct from nil, which is an explicit null.
var Missing any = missing{}

// IsMissing reports whether v is the Missing sentinel.
func IsMissing(v any) bool {
	_, ok := v.(missing)
	return ok
}

// IsNull reports whether v is an explicit null.
func IsNull(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Kind orders value categories. The declaration order is the comparison order.
type Kind int

const (
	KindMissing Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// KindOf classifies v. Values that are not JSON-shaped classify by their
// reflected kind where possible and otherwise as strings.
func KindOf(v any) Kind {
	switch v.(type) {
	case missing:
		return KindMissing
	case nil:
		return KindNull
	case bool:
		return KindBool
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindNumber
	case json.Number:
		return KindNumber
	case string:
		return KindString
	case []any:
		return KindArray
	case map[string]any:
		return KindObject
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return KindNull
		}
		return KindOf(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return KindNull
		}
		return KindArray
	case reflect.Map:
		if rv.IsNil() {
			return KindNull
		}
		if rv.Type().Key().Kind() == reflect.String {
			return KindObject
		}
	case reflect.Bool:
		return KindBool
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindNumber
	case reflect.String:
		return KindString
	}
	return KindString
}

// ToFloat64 converts numbers and numeric strings to float64.
func ToFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	}
	return 0, false
}

// ToString renders scalars as strings. Arrays, objects, null and missing are
// not strings and report false.
func ToString(v any) (string, bool) {
	switch KindOf(v) {
	case KindString:
		if s, ok := v.(string); ok {
			return s, true
		}
		return deref(v).String(), true
	case KindNumber:
		f, _ := ToFloat64(v)
		return formatNumber(f), true
	case KindBool:
		return strconv.FormatBool(deref(v).Bool()), true
	}
	return "", false
}

// Normalize converts v into the canonical JSON shape: float64 numbers,
// []any arrays and map[string]any objects. Missing is preserved.
func Normalize(v any) any {
	switch KindOf(v) {
	case KindMissing:
		return Missing
	case KindNull:
		return nil
	case KindBool:
		if b, ok := v.(bool); ok {
			return b
		}
		return deref(v).Bool()
	case KindNumber:
		f, _ := ToFloat64(deref(v).Interface())
		return f
	case KindString:
		s, _ := ToString(v)
		return s
	case KindArray:
		items := arrayItems(v)
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = Normalize(item)
		}
		return out
	case KindObject:
		fields := objectFields(v)
		out := make(map[string]any, len(fields))
		for k, item := range fields {
			out[k] = Normalize(item)
		}
		return out
	}
	return v
}

func deref(v any) reflect.Value {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	return rv
}

func arrayItems(v any) []any {
	if arr, ok := v.([]any); ok {
		return arr
	}
	rv := deref(v)
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items
}

func objectFields(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	rv := deref(v)
	fields := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		fields[iter.Key().String()] = iter.Value().Interface()
	}
	return fields
}

func formatNumber(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
