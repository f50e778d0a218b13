package ops

import (
	"fmt"
	"sync"
)

// WetContext is a thread-safe mapping from string keys to opaque typed
// references (services, connections, handles). Values are not serialized;
// the framework never copies them (spec.md §3, §4.3).
//
// WetContext must be created via NewWetContext; the zero value is not
// usable.
type WetContext struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewWetContext creates an empty WetContext.
func NewWetContext() *WetContext {
	return &WetContext{values: make(map[string]any)}
}

// PutRef stores v (any reference type) under k.
func (w *WetContext) PutRef(k string, v any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.values[k] = v
}

// Contains reports whether a reference is present for k.
func (w *WetContext) Contains(k string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.values[k]
	return ok
}

// Keys returns a snapshot copy of the stored keys.
func (w *WetContext) Keys() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	keys := make([]string, 0, len(w.values))
	for k := range w.values {
		keys = append(keys, k)
	}
	return keys
}

// rawRef returns the reference stored under k, if present.
func (w *WetContext) rawRef(k string) (any, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.values[k]
	return v, ok
}

// Merge overwrites self's references with other's for every key in other
// (last-writer-wins). References are never copied; the same value is
// shared between self and other after Merge.
func (w *WetContext) Merge(other *WetContext) {
	other.mu.RLock()
	values := make(map[string]any, len(other.values))
	for k, v := range other.values {
		values[k] = v
	}
	other.mu.RUnlock()

	w.mu.Lock()
	defer w.mu.Unlock()
	for k, v := range values {
		w.values[k] = v
	}
}

// WetGet retrieves the reference stored under k, asserted as T. found is
// false when k is absent; err is non-nil when k is present but holds a
// value of a different type.
func WetGet[T any](wc *WetContext, k string) (value T, found bool, err error) {
	raw, ok := wc.rawRef(k)
	if !ok {
		return value, false, nil
	}
	typed, ok := raw.(T)
	if !ok {
		return value, true, fmt.Errorf(
			"Type mismatch for wet context key '%s': expected '%s', but found '%T'",
			k, typeName[T](), raw,
		)
	}
	return typed, true, nil
}

// WetRequireRef retrieves the reference stored under k, asserted as T, or
// returns a KindContext OpError distinguishing a missing key from a type
// mismatch.
func WetRequireRef[T any](wc *WetContext, k string) (T, error) {
	var zero T
	raw, ok := wc.rawRef(k)
	if !ok {
		return zero, ContextError(fmt.Sprintf("Required wet context key '%s' not found", k))
	}
	typed, ok := raw.(T)
	if !ok {
		return zero, ContextError(fmt.Sprintf(
			"Type mismatch for wet context key '%s': expected '%s', but found '%T'",
			k, typeName[T](), raw,
		))
	}
	return typed, nil
}
