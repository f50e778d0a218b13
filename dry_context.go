package ops

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ControlFlags models DryContext's cooperative abort state (spec.md §3).
type ControlFlags struct {
	Aborted     bool
	AbortReason string
}

// DryContext is a process-local, thread-safe mapping from string keys to
// JSON-compatible values, plus a ControlFlags record. Values are stored
// canonicalized to a JSON value tree, so round-tripping through the store
// yields a stable representation (spec.md §3, §4.2).
//
// DryContext must be created via NewDryContext; the zero value is not
// usable, since its internal map is unallocated.
type DryContext struct {
	mu     sync.Mutex
	values map[string]any
	flags  ControlFlags
	group  singleflight.Group
}

// NewDryContext creates an empty DryContext.
func NewDryContext() *DryContext {
	return &DryContext{values: make(map[string]any)}
}

// InsertValue canonicalizes v to a JSON value tree and stores it under k.
// A value that cannot be marshaled to JSON is a programmer error and fails
// loudly: the store must not silently accept non-serializable values
// (spec.md §4.2, §7).
func (d *DryContext) InsertValue(k string, v any) error {
	canon, err := canonicalize(v)
	if err != nil {
		return fmt.Errorf("dry context insert %q: %w", k, err)
	}
	d.mu.Lock()
	d.values[k] = canon
	d.mu.Unlock()
	return nil
}

// With is a builder-style variant of InsertValue that returns the receiver,
// enabling fluent construction (spec.md §4.2). It panics if v is not
// JSON-serializable, since the builder form has no error return and an
// unserializable value is a programmer error that must fail loudly.
func (d *DryContext) With(k string, v any) *DryContext {
	if err := d.InsertValue(k, v); err != nil {
		panic(err)
	}
	return d
}

// Contains reports whether a value is present for k (invariant I1).
func (d *DryContext) Contains(k string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.values[k]
	return ok
}

// Keys returns a snapshot copy of the stored keys.
func (d *DryContext) Keys() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	keys := make([]string, 0, len(d.values))
	for k := range d.values {
		keys = append(keys, k)
	}
	return keys
}

// rawValue returns the canonicalized value for k, if present.
func (d *DryContext) rawValue(k string) (any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.values[k]
	return v, ok
}

// Merge overwrites self's values with other's for every key in other
// (last-writer-wins), and updates control flags so that an existing abort
// on self is never overridden: aborted is only set true (with other's
// reason) when self was not already aborted (spec.md §4.2, invariant I9).
func (d *DryContext) Merge(other *DryContext) {
	other.mu.Lock()
	values := make(map[string]any, len(other.values))
	for k, v := range other.values {
		values[k] = v
	}
	otherFlags := other.flags
	other.mu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	for k, v := range values {
		d.values[k] = v
	}
	if !d.flags.Aborted && otherFlags.Aborted {
		d.flags.Aborted = true
		d.flags.AbortReason = otherFlags.AbortReason
	}
}

// Copy produces an independent clone, including control flags (invariant
// I10): mutations on the copy never affect the source.
func (d *DryContext) Copy() *DryContext {
	d.mu.Lock()
	defer d.mu.Unlock()
	clone := NewDryContext()
	for k, v := range d.values {
		clone.values[k] = v
	}
	clone.flags = d.flags
	return clone
}

// SetAbort sets the abort flag. Once aborted is true, it remains true
// until ClearControlFlags is called (invariant I2).
func (d *DryContext) SetAbort(reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flags.Aborted = true
	d.flags.AbortReason = reason
}

// IsAborted reports the current abort state.
func (d *DryContext) IsAborted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flags.Aborted
}

// AbortReason returns the current abort reason, which may be empty.
func (d *DryContext) AbortReason() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flags.AbortReason
}

// ClearControlFlags resets the abort flag and reason.
func (d *DryContext) ClearControlFlags() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flags = ControlFlags{}
}

// GetOrInsert returns the existing value for k, or computes and stores
// factory() if absent.
func (d *DryContext) GetOrInsert(k string, factory func() any) (any, error) {
	if v, ok := d.rawValue(k); ok {
		return v, nil
	}
	v := factory()
	if err := d.InsertValue(k, v); err != nil {
		return nil, err
	}
	raw, _ := d.rawValue(k)
	return raw, nil
}

// GetOrCompute returns the existing value for k, or computes and stores
// fn(d, k) if absent. Unlike GetOrInsert, fn observes the DryContext and
// key, enabling derived computations.
func (d *DryContext) GetOrCompute(k string, fn func(ctx *DryContext, key string) any) (any, error) {
	if v, ok := d.rawValue(k); ok {
		return v, nil
	}
	v := fn(d, k)
	if err := d.InsertValue(k, v); err != nil {
		return nil, err
	}
	raw, _ := d.rawValue(k)
	return raw, nil
}

// Ensure computes asyncFactory for k at most once, even when called
// concurrently for the same key from multiple goroutines: concurrent
// callers share one in-flight computation via singleflight, and all
// observe the same stored result (spec.md §4.2 "ensure", SPEC_FULL §4.14).
func (d *DryContext) Ensure(k string, wet *WetContext, asyncFactory func(dry *DryContext, wet *WetContext) (any, error)) (any, error) {
	if v, ok := d.rawValue(k); ok {
		return v, nil
	}
	v, err, _ := d.group.Do(k, func() (any, error) {
		if v, ok := d.rawValue(k); ok {
			return v, nil
		}
		result, err := asyncFactory(d, wet)
		if err != nil {
			return nil, err
		}
		if err := d.InsertValue(k, result); err != nil {
			return nil, err
		}
		raw, _ := d.rawValue(k)
		return raw, nil
	})
	return v, err
}
