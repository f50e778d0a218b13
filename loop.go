package ops

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// CurrentLoopIDKey is the well-known, framework-internal DryContext key
// (spec.md §6) that LoopOp writes at the start of every Perform call, naming
// the LoopId of the most recently started loop. The previous value is not
// restored when a nested loop returns. Ops running inside a LoopOp read this
// key to learn which loop id to pass to ContinueLoop/BreakLoop.
const CurrentLoopIDKey = "__current_loop_id"

// continueVarFormat and breakVarFormat derive the per-instance,
// framework-internal flag keys from a LoopOp's LoopId (spec.md §6).
const (
	continueVarFormat = "__continue_loop_%s"
	breakVarFormat    = "__break_loop_%s"
)

// LoopOp is a counter-driven iterator over a fixed sequence of AnyOp[T],
// with per-iteration LIFO rollback and in-band continue/break control
// signals (spec.md §3, §4.6).
//
// On construction, LoopOp assigns a fresh unique LoopId (via uuid.New, per
// SPEC_FULL.md §4.13) and derives the ContinueVar/BreakVar flag keys from
// it. Unlike BatchOp, LoopOp's op list is fixed at construction: spec.md's
// record definition for LoopOp<T> has no dynamic mutator, so no AddOp is
// provided (SPEC_FULL.md, Open Question (c)).
type LoopOp[T any] struct {
	CounterVar      string
	Limit           int
	ContinueOnError bool
	LoopId          string

	ops         []AnyOp[T]
	continueVar string
	breakVar    string

	resultMu      sync.Mutex
	lastSucceeded []AnyOp[T]
}

// NewLoopOp constructs a LoopOp over the given ops, assigning a fresh
// unique loop id.
func NewLoopOp[T any](counterVar string, limit int, continueOnError bool, ops ...AnyOp[T]) *LoopOp[T] {
	id := uuid.New().String()
	l := &LoopOp[T]{
		CounterVar:      counterVar,
		Limit:           limit,
		ContinueOnError: continueOnError,
		LoopId:          id,
		continueVar:     fmt.Sprintf(continueVarFormat, id),
		breakVar:        fmt.Sprintf(breakVarFormat, id),
	}
	l.ops = append(l.ops, ops...)
	return l
}

// ContinueVar returns the well-known DryContext key used for this loop
// instance's in-band "skip to next iteration" signal.
func (l *LoopOp[T]) ContinueVar() string { return l.continueVar }

// BreakVar returns the well-known DryContext key used for this loop
// instance's in-band "stop the loop now" signal.
func (l *LoopOp[T]) BreakVar() string { return l.breakVar }

// Count returns the number of ops run per iteration.
func (l *LoopOp[T]) Count() int { return len(l.ops) }

// Perform executes the loop per spec.md §4.6.
func (l *LoopOp[T]) Perform(dry *DryContext, wet *WetContext) ([]T, error) {
	counter, found, err := Get[int](dry, l.CounterVar)
	if err != nil {
		return nil, ContextError(err.Error())
	}
	if !found {
		counter = 0
		if err := Insert(dry, l.CounterVar, counter); err != nil {
			return nil, ContextError(err.Error())
		}
	}
	if err := dry.InsertValue(CurrentLoopIDKey, l.LoopId); err != nil {
		return nil, ContextError(err.Error())
	}

	results := make([]T, 0, len(l.ops)*maxIterationsHint(l.Limit, counter))

	for counter < l.Limit {
		if dry.IsAborted() {
			return nil, AbortedError(dry.AbortReason())
		}

		_ = Insert(dry, l.continueVar, false)
		_ = Insert(dry, l.breakVar, false)

		iterationSucceeded := make([]AnyOp[T], 0, len(l.ops))
		iterationStart := len(results)

	opsLoop:
		for _, op := range l.ops {
			if dry.IsAborted() {
				rollbackLIFO(dry, wet, iterationSucceeded)
				l.setLastSucceeded(iterationSucceeded)
				return nil, AbortedError(dry.AbortReason())
			}

			result, err := op.Perform(dry, wet)
			if err != nil {
				opErr := asOpError(err)
				switch {
				case opErr.Kind == KindAborted:
					rollbackLIFO(dry, wet, iterationSucceeded)
					l.setLastSucceeded(iterationSucceeded)
					return nil, opErr
				case opErr.Kind == kindLoopContinue:
					break opsLoop
				case opErr.Kind == kindLoopBreak:
					l.setLastSucceeded(iterationSucceeded)
					return results, nil
				default:
					rollbackLIFO(dry, wet, iterationSucceeded)
					if l.ContinueOnError {
						results = results[:iterationStart]
						break opsLoop
					}
					l.setLastSucceeded(iterationSucceeded)
					return nil, opErr
				}
			}

			results = append(results, result)
			iterationSucceeded = append(iterationSucceeded, op)

			if brk, _, _ := Get[bool](dry, l.continueVar); brk {
				_ = Insert(dry, l.continueVar, false)
				break opsLoop
			}
			if brk, _, _ := Get[bool](dry, l.breakVar); brk {
				l.setLastSucceeded(iterationSucceeded)
				return results, nil
			}
		}

		l.setLastSucceeded(iterationSucceeded)

		counter++
		if err := Insert(dry, l.CounterVar, counter); err != nil {
			return nil, ContextError(err.Error())
		}
	}

	return results, nil
}

func maxIterationsHint(limit, start int) int {
	n := limit - start
	if n < 0 {
		return 0
	}
	return n
}

func (l *LoopOp[T]) setLastSucceeded(succeeded []AnyOp[T]) {
	l.resultMu.Lock()
	defer l.resultMu.Unlock()
	l.lastSucceeded = succeeded
}

// Rollback rolls back, LIFO, whichever child ops succeeded in the most
// recently (partially) completed iteration, letting LoopOp itself satisfy
// Op[[]T] for nesting inside an outer composite.
func (l *LoopOp[T]) Rollback(dry *DryContext, wet *WetContext) error {
	l.resultMu.Lock()
	succeeded := l.lastSucceeded
	l.resultMu.Unlock()
	rollbackLIFO(dry, wet, succeeded)
	return nil
}

// Metadata describes the loop op. Its output is an array (one entry per
// op per iteration); its input schema declares the counter variable as an
// integer property, not as a required field (an absent counter starts at 0).
func (l *LoopOp[T]) Metadata() OpMetadata {
	return OpMetadata{
		Name:        "LoopOp",
		Description: fmt.Sprintf("Loop of %d operations up to %d iterations", len(l.ops), l.Limit),
		InputSchema: Schema{
			"properties": map[string]Schema{
				l.CounterVar: {"type": "integer"},
			},
		},
		OutputSchema: Schema{"type": "array"},
	}
}
