package ops

// Op is a polymorphic unit of asynchronous work conforming to the
// perform/metadata/rollback contract (spec.md §4.4). Implementations must
// be safely shareable across goroutines: perform, metadata, and rollback
// may all be invoked concurrently across different op instances, and
// perform/rollback may be invoked sequentially for the same instance from
// different goroutines over its lifetime.
type Op[T any] interface {
	// Perform does the op's work against the given contexts, returning its
	// typed result or failing with an *OpError (or an arbitrary error,
	// which callers normalize via wrapRuntimeException).
	Perform(dry *DryContext, wet *WetContext) (T, error)

	// Metadata describes the op for logging, validation, and data-flow
	// analysis.
	Metadata() OpMetadata

	// Rollback performs the op's compensating action. It is invoked only
	// on ops that have already succeeded, when a sibling in a composite
	// operator subsequently fails.
	Rollback(dry *DryContext, wet *WetContext) error
}

// BaseOp is an embeddable helper providing the spec-mandated default
// rollback (spec.md §4.4, "rollback defaults to a successful no-op"). Leaf
// op implementations embed BaseOp to avoid writing a no-op Rollback method
// by hand, overriding it only when they have a real compensating action.
type BaseOp struct{}

// Rollback is a no-op that always succeeds.
func (BaseOp) Rollback(*DryContext, *WetContext) error { return nil }

// OpFunc adapts a plain function into an Op[T], in the spirit of
// http.HandlerFunc: useful for small inline ops (tests, demos, simple
// leaf steps) that don't warrant a named type.
type OpFunc[T any] struct {
	BaseOp

	Name        string
	Description string

	// Fn performs the op's work. Required.
	Fn func(dry *DryContext, wet *WetContext) (T, error)

	// RollbackFn, if set, overrides BaseOp's no-op rollback.
	RollbackFn func(dry *DryContext, wet *WetContext) error

	// InputSchema, ReferenceSchema, OutputSchema populate Metadata().
	InputSchema     Schema
	ReferenceSchema Schema
	OutputSchema    Schema
}

// Perform invokes Fn.
func (f OpFunc[T]) Perform(dry *DryContext, wet *WetContext) (T, error) {
	return f.Fn(dry, wet)
}

// Metadata returns the metadata assembled from f's fields.
func (f OpFunc[T]) Metadata() OpMetadata {
	return OpMetadata{
		Name:            f.Name,
		Description:     f.Description,
		InputSchema:     f.InputSchema,
		ReferenceSchema: f.ReferenceSchema,
		OutputSchema:    f.OutputSchema,
	}
}

// Rollback invokes RollbackFn if set, otherwise defers to BaseOp's no-op.
func (f OpFunc[T]) Rollback(dry *DryContext, wet *WetContext) error {
	if f.RollbackFn == nil {
		return f.BaseOp.Rollback(dry, wet)
	}
	return f.RollbackFn(dry, wet)
}

// AnyOp is a type-erased handle carrying the Op[T] contract for a fixed
// output type T: a vtable-style value, built once at wrap time, enabling
// heterogeneous concrete Op[T] implementations to share a container
// parameterized only by output type (spec.md §3, §9 "Type erasure"). It is
// a plain value (its fields are closures over the wrapped op, so it is not
// comparable) and is safe to share across goroutines whenever the wrapped
// Op[T] is.
type AnyOp[T any] struct {
	performFn  func(dry *DryContext, wet *WetContext) (T, error)
	metadataFn func() OpMetadata
	rollbackFn func(dry *DryContext, wet *WetContext) error
}

// Wrap captures op's three methods into an AnyOp[T] handle.
func Wrap[T any](op Op[T]) AnyOp[T] {
	return AnyOp[T]{
		performFn:  op.Perform,
		metadataFn: op.Metadata,
		rollbackFn: op.Rollback,
	}
}

// Perform delegates to the wrapped op's Perform.
func (a AnyOp[T]) Perform(dry *DryContext, wet *WetContext) (T, error) {
	return a.performFn(dry, wet)
}

// Metadata delegates to the wrapped op's Metadata.
func (a AnyOp[T]) Metadata() OpMetadata {
	return a.metadataFn()
}

// Rollback delegates to the wrapped op's Rollback.
func (a AnyOp[T]) Rollback(dry *DryContext, wet *WetContext) error {
	return a.rollbackFn(dry, wet)
}
