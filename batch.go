package ops

import (
	"fmt"
	"sync"
)

// BatchOp is an ordered sequence of AnyOp[T], executed strictly in
// declaration order with LIFO rollback on failure (spec.md §3, §4.5).
//
// BatchOp itself implements Op[[]T], so a BatchOp can be nested as a single
// step inside an outer BatchOp or LoopOp of []T: its Rollback re-runs LIFO
// rollback over whichever of its own child ops succeeded on the most
// recent Perform call, letting an outer composite treat "the whole nested
// batch" as one compensatable unit.
type BatchOp[T any] struct {
	mu              sync.Mutex
	ops             []AnyOp[T]
	continueOnError bool

	resultMu      sync.Mutex
	lastSucceeded []AnyOp[T]
}

// NewBatchOp constructs a BatchOp over the given ops, in order.
func NewBatchOp[T any](continueOnError bool, ops ...AnyOp[T]) *BatchOp[T] {
	b := &BatchOp[T]{continueOnError: continueOnError}
	b.ops = append(b.ops, ops...)
	return b
}

// AddOp appends op to the batch's internal, lock-protected list. Perform
// snapshots the list at entry, so a concurrent AddOp during Perform never
// affects the in-flight run (spec.md §4.5).
func (b *BatchOp[T]) AddOp(op AnyOp[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = append(b.ops, op)
}

// Count returns the current number of ops in the batch.
func (b *BatchOp[T]) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ops)
}

// IsEmpty reports whether the batch currently has no ops.
func (b *BatchOp[T]) IsEmpty() bool {
	return b.Count() == 0
}

func (b *BatchOp[T]) snapshot() []AnyOp[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	snap := make([]AnyOp[T], len(b.ops))
	copy(snap, b.ops)
	return snap
}

// rollbackLIFO rolls back succeeded in reverse order, ignoring individual
// rollback failures (best-effort, per spec.md §4.5, §7).
func rollbackLIFO[T any](dry *DryContext, wet *WetContext, succeeded []AnyOp[T]) {
	for i := len(succeeded) - 1; i >= 0; i-- {
		_ = succeeded[i].Rollback(dry, wet)
	}
}

// Perform executes the batch's ops in order against dry/wet, per spec.md
// §4.5:
//
//   - Before each step, if dry is aborted, roll back everything succeeded
//     so far (LIFO) and fail with KindAborted.
//   - On success, the result and op are recorded.
//   - On an aborted failure, roll back LIFO and propagate the abort.
//   - On any other failure: if continueOnError, move on to the next op
//     without rolling back (the error is neither returned nor kept);
//     otherwise roll back LIFO and fail with KindBatchFailed.
func (b *BatchOp[T]) Perform(dry *DryContext, wet *WetContext) ([]T, error) {
	snap := b.snapshot()
	results := make([]T, 0, len(snap))
	succeeded := make([]AnyOp[T], 0, len(snap))

	for i, op := range snap {
		if dry.IsAborted() {
			rollbackLIFO(dry, wet, succeeded)
			b.setLastSucceeded(succeeded)
			return nil, AbortedError(dry.AbortReason())
		}

		result, err := op.Perform(dry, wet)
		if err != nil {
			opErr := asOpError(err)
			if opErr.Kind == KindAborted {
				rollbackLIFO(dry, wet, succeeded)
				b.setLastSucceeded(succeeded)
				return nil, opErr
			}
			if b.continueOnError {
				continue
			}
			rollbackLIFO(dry, wet, succeeded)
			b.setLastSucceeded(succeeded)
			return nil, BatchFailedError(fmt.Sprintf(
				"Op %d-%s failed: %s", i, op.Metadata().Name, opErr.Error(),
			))
		}

		results = append(results, result)
		succeeded = append(succeeded, op)
	}

	b.setLastSucceeded(succeeded)
	return results, nil
}

func (b *BatchOp[T]) setLastSucceeded(succeeded []AnyOp[T]) {
	b.resultMu.Lock()
	defer b.resultMu.Unlock()
	b.lastSucceeded = succeeded
}

// Rollback rolls back, LIFO, whichever child ops succeeded on the most
// recent Perform call. This lets BatchOp itself satisfy Op[[]T] for
// nesting inside an outer composite.
func (b *BatchOp[T]) Rollback(dry *DryContext, wet *WetContext) error {
	b.resultMu.Lock()
	succeeded := b.lastSucceeded
	b.resultMu.Unlock()
	rollbackLIFO(dry, wet, succeeded)
	return nil
}

// Metadata delegates to BatchMetadataBuilder, performing the data-flow
// analysis described in spec.md §4.7.
func (b *BatchOp[T]) Metadata() OpMetadata {
	return BuildBatchMetadata[T](b.snapshot())
}
