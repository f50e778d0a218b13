package ops

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// canonicalize round-trips v through encoding/json, producing the stable
// JSON value tree representation DryContext stores internally (spec.md
// §3: "round-tripping through the store yields a stable representation").
// A value that cannot be marshaled is a programmer error: canonicalize
// returns an error so the caller can fail loudly at insertion, per spec.
func canonicalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("value is not JSON-serializable: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("value did not round-trip through JSON: %w", err)
	}
	return out, nil
}

// jsonKindName returns one of {null,boolean,number,string,array,object} for
// a canonicalized JSON value, as used in DryContext type-mismatch messages.
func jsonKindName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// decodeInto converts a canonicalized JSON value into T, distinguishing a
// clean type match from a mismatch. It supports both values that already
// happen to be directly assignable (the common fast path for T matching
// the JSON-native representation, e.g. T=string/float64/bool/map/slice)
// and arbitrary struct/slice targets via a marshal/unmarshal bridge.
func decodeInto[T any](raw any) (T, bool) {
	var zero T
	if direct, ok := raw.(T); ok {
		return direct, true
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return zero, false
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, false
	}
	return out, true
}

// typeName returns a human-readable name for T, used in type-mismatch
// error messages.
func typeName[T any]() string {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return fmt.Sprintf("%T", zero)
	}
	return t.String()
}
