package ops

import "fmt"

// Insert canonicalizes v and stores it under k in dc. T is constrained only
// by JSON-marshalability, enforced at insertion (spec.md §4.2, "insert<T:
// Encodable>").
func Insert[T any](dc *DryContext, k string, v T) error {
	return dc.InsertValue(k, v)
}

// Get retrieves the value stored under k, decoded as T. found is false when
// k is absent; err is non-nil when k is present but its value cannot be
// decoded as T (spec.md §4.2, "get<T: Decodable>(k) → T?").
func Get[T any](dc *DryContext, k string) (value T, found bool, err error) {
	raw, ok := dc.rawValue(k)
	if !ok {
		return value, false, nil
	}
	decoded, ok := decodeInto[T](raw)
	if !ok {
		return value, true, fmt.Errorf(
			"Type mismatch for dry context key '%s': expected '%s', but found '%s' value: %v",
			k, typeName[T](), jsonKindName(raw), raw,
		)
	}
	return decoded, true, nil
}

// GetRequired retrieves the value stored under k, decoded as T, or returns a
// KindContext OpError distinguishing a missing key from a type mismatch
// (spec.md §4.2, invariant I3).
func GetRequired[T any](dc *DryContext, k string) (T, error) {
	var zero T
	raw, ok := dc.rawValue(k)
	if !ok {
		return zero, ContextError(fmt.Sprintf("Required dry context key '%s' not found", k))
	}
	decoded, ok := decodeInto[T](raw)
	if !ok {
		return zero, ContextError(fmt.Sprintf(
			"Type mismatch for dry context key '%s': expected '%s', but found '%s' value: %v",
			k, typeName[T](), jsonKindName(raw), raw,
		))
	}
	return decoded, nil
}
