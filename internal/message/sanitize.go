package message

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"
)

// Sanitize converts v into a value encoding/json can always serialize.
//
// Strings, numbers, booleans and nil pass through unchanged. Slices, arrays and
// maps are rebuilt recursively as []any and map[string]any. Every other value
// is replaced by its string representation. Sanitize never panics and is
// idempotent: Sanitize(Sanitize(v)) equals Sanitize(v).
func Sanitize(v any) any {
	return sanitize(v, 0)
}

// SanitizeArguments sanitizes every value of an argument map.
// A nil map stays nil.
func SanitizeArguments(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}

	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = sanitize(v, 1)
	}

	return out
}

// maxSanitizeDepth bounds recursion on self-referencing structures.
const maxSanitizeDepth = 64

func sanitize(v any, depth int) (out any) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("%v", r)
		}
	}()

	if depth > maxSanitizeDepth {
		return fmt.Sprintf("%T", v)
	}

	switch x := v.(type) {
	case nil, string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return x
	case float32:
		return finiteOrString(float64(x), x)
	case float64:
		return finiteOrString(x, x)
	case Value:
		return sanitize(x.Any(), depth+1)
	case []any:
		items := make([]any, len(x))
		for i, item := range x {
			items[i] = sanitize(item, depth+1)
		}

		return items
	case map[string]any:
		fields := make(map[string]any, len(x))
		for k, item := range x {
			fields[k] = sanitize(item, depth+1)
		}

		return fields
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case time.Duration:
		return x.String()
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	case []byte:
		return string(x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}

		return sanitize(rv.Elem().Interface(), depth+1)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []any{}
		}

		items := make([]any, rv.Len())
		for i := range rv.Len() {
			items[i] = sanitize(rv.Index(i).Interface(), depth+1)
		}

		return items
	case reflect.Map:
		fields := make(map[string]any, rv.Len())

		iter := rv.MapRange()
		for iter.Next() {
			fields[fmt.Sprint(iter.Key().Interface())] = sanitize(iter.Value().Interface(), depth+1)
		}

		return fields
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return finiteOrString(rv.Float(), rv.Float())
	default:
		return fmt.Sprintf("%v", v)
	}
}

// finiteOrString keeps finite floats and renders NaN and infinities as strings,
// since encoding/json rejects them.
func finiteOrString(f float64, orig any) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Sprint(f)
	}

	return orig
}
