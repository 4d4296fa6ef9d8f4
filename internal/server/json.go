package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// marshalJSON encodes v for an HTTP response. The analytics mark undefined
// statistics with NaN, which has no JSON encoding; when the straight encode
// rejects the value, a pre-encode pass rewrites NaN and infinite floats to
// null and the result is encoded again. Well-defined payloads take the fast
// path untouched.
func marshalJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err == nil {
		return b, nil
	}
	var unsupported *json.UnsupportedValueError
	if !errors.As(err, &unsupported) {
		return nil, err
	}
	return json.Marshal(sanitizeValue(reflect.ValueOf(v)))
}

var marshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()

// sanitizeValue deep-copies rv into plain maps, slices and scalars, mapping
// NaN and infinities to nil. Struct fields follow their json tags.
func sanitizeValue(rv reflect.Value) any {
	if !rv.IsValid() {
		return nil
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return sanitizeValue(rv.Elem())
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		fallthrough
	case reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = sanitizeValue(rv.Index(i))
		}
		return out
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = sanitizeValue(iter.Value())
		}
		return out
	case reflect.Struct:
		// Types with their own encoding (time.Time) cannot carry NaN.
		if rv.Type().Implements(marshalerType) || reflect.PointerTo(rv.Type()).Implements(marshalerType) {
			return rv.Interface()
		}
		return sanitizeStruct(rv)
	default:
		return rv.Interface()
	}
}

func sanitizeStruct(rv reflect.Value) map[string]any {
	out := make(map[string]any, rv.NumField())
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}

		name := field.Name
		parts := strings.Split(tag, ",")
		if parts[0] != "" {
			name = parts[0]
		}
		omitempty := false
		for _, opt := range parts[1:] {
			if opt == "omitempty" {
				omitempty = true
			}
		}

		value := rv.Field(i)
		if omitempty && value.IsZero() {
			continue
		}
		out[name] = sanitizeValue(value)
	}
	return out
}
