// Defines the closed set of value kinds the conversion engine operates on.

package datamap

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"time"
)

// Kind classifies a value for conversion dispatch. The set is closed: the
// conversion engine switches exhaustively over Kind, so an unclassifiable
// value surfaces as KindInvalid and fails conversion instead of falling
// through silently.
type Kind int

const (
	// KindInvalid marks a value no JSON mapping exists for.
	KindInvalid Kind = iota
	// KindNull is an untyped nil.
	KindNull
	// KindBool is a boolean.
	KindBool
	// KindInt covers all signed and unsigned integer widths. Values widen
	// to int64 on a round trip.
	KindInt
	// KindFloat covers float32 and float64.
	KindFloat
	// KindString is text.
	KindString
	// KindTime is a time.Time instant, stored as ISO-8601 text in UTC.
	KindTime
	// KindBinary is a []byte blob, stored as base64 text.
	KindBinary
	// KindList is any slice other than []byte.
	KindList
	// KindMap is a map with string keys.
	KindMap
)

// String returns the kind name for error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	case KindBinary:
		return "binary"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "invalid"
	}
}

// KindOf classifies an arbitrary value. Unsupported types (channels, funcs,
// structs other than time.Time, maps with non-string keys) classify as
// KindInvalid.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInt
	case float32, float64:
		return KindFloat
	case string:
		return KindString
	case time.Time:
		return KindTime
	case []byte:
		return KindBinary
	}
	// Typed slices ([]string, []time.Time, ...) and typed maps are accepted
	// on the write side for convenience; reflection covers them.
	rv := reflect.ValueOf(v)
	switch rv.Kind() { //nolint:exhaustive // Everything else is KindInvalid.
	case reflect.Slice, reflect.Array:
		return KindList
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return KindMap
		}
	}
	return KindInvalid
}

// Equal reports structural equality between two values of supported kinds.
// Integers compare by their widened int64 value regardless of original
// width, timestamps compare as instants, blobs bytewise, and lists and maps
// recursively. Values of different kinds are never equal.
func Equal(a, b any) bool {
	ka, kb := KindOf(a), KindOf(b)
	if ka != kb {
		return false
	}
	switch ka {
	case KindNull:
		return true
	case KindBool:
		return a.(bool) == b.(bool)
	case KindInt:
		ia, oka := asInt64(a)
		ib, okb := asInt64(b)
		return oka && okb && ia == ib
	case KindFloat:
		fa, fb := asFloat64(a), asFloat64(b)
		return fa == fb || (math.IsNaN(fa) && math.IsNaN(fb))
	case KindString:
		return a.(string) == b.(string)
	case KindTime:
		return a.(time.Time).Equal(b.(time.Time))
	case KindBinary:
		return bytes.Equal(a.([]byte), b.([]byte))
	case KindList:
		la, lb := asList(a), asList(b)
		if len(la) != len(lb) {
			return false
		}
		for i := range la {
			if !Equal(la[i], lb[i]) {
				return false
			}
		}
		return true
	case KindMap:
		ma, err := asStringMap(a)
		if err != nil {
			return false
		}
		mb, err := asStringMap(b)
		if err != nil {
			return false
		}
		if len(ma) != len(mb) {
			return false
		}
		for k, va := range ma {
			vb, ok := mb[k]
			if !ok || !Equal(va, vb) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// asInt64 widens any supported integer type to int64. Returns false for
// uint/uint64 values that exceed the int64 range.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

func asFloat64(v any) float64 {
	switch f := v.(type) {
	case float32:
		return float64(f)
	case float64:
		return f
	}
	return 0
}

// asList flattens any slice or array value into []any. []any passes through
// without copying.
func asList(v any) []any {
	if l, ok := v.([]any); ok {
		return l
	}
	rv := reflect.ValueOf(v)
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// asStringMap converts any string-keyed map value to map[string]any.
// map[string]any passes through without copying.
func asStringMap(v any) (map[string]any, error) {
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("not a string-keyed map: %T", v)
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, nil
}

// listKind reports whether every element of a non-empty list has the given
// kind. Empty lists are never homogeneous; they serialize element-wise
// (trivially) under generic rules.
func listKind(list []any, k Kind) bool {
	if len(list) == 0 {
		return false
	}
	for _, v := range list {
		if KindOf(v) != k {
			return false
		}
	}
	return true
}
