package ops

import (
	"context"
	"fmt"
	"math"
	"time"
)

// nearTimeoutThreshold is the fraction of the time budget past which a
// successful op emits a near-timeout warning (spec.md §4.9).
const nearTimeoutThreshold = 0.8

type timeBoundResult[T any] struct {
	value T
	err   error
}

// TimeBoundWrapper races the wrapped op against a timeout, implemented as a
// single goroutine racing a context.WithTimeout deadline over a buffered
// result channel (SPEC_FULL.md §5): exactly one such race per Perform call,
// so this minimal composition is the right level of machinery.
type TimeBoundWrapper[T any] struct {
	inner          AnyOp[T]
	timeoutSeconds float64
	logger         Logger
	name           string
}

// NewTimeBoundWrapper wraps inner with a deadline of timeoutSeconds.
func NewTimeBoundWrapper[T any](inner AnyOp[T], timeoutSeconds float64, logger Logger, name string) *TimeBoundWrapper[T] {
	return &TimeBoundWrapper[T]{inner: inner, timeoutSeconds: timeoutSeconds, logger: logger, name: name}
}

// NewTimeBoundLoggingOp composes TimeBoundWrapper → LoggingWrapper, per
// spec.md §4.9's "composite helper".
func NewTimeBoundLoggingOp[T any](inner AnyOp[T], timeoutSeconds float64, logger Logger, name string) AnyOp[T] {
	logged := Wrap[T](NewLoggingWrapper(inner, logger, name))
	return Wrap[T](NewTimeBoundWrapper(logged, timeoutSeconds, logger, name))
}

// Perform runs the wrapped op in a goroutine, racing it against a context
// timeout. On a timeout, Perform returns the timeout error at once. The
// wrapped op is not interrupted: Perform's signature carries no context, so
// the op cannot observe the deadline, and its goroutine runs to completion
// with its result discarded.
func (t *TimeBoundWrapper[T]) Perform(dry *DryContext, wet *WetContext) (T, error) {
	budget := time.Duration(t.timeoutSeconds * float64(time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	done := make(chan timeBoundResult[T], 1)
	start := time.Now()

	go func() {
		value, err := t.inner.Perform(dry, wet)
		select {
		case done <- timeBoundResult[T]{value: value, err: err}:
		case <-ctx.Done():
		}
	}()

	select {
	case <-ctx.Done():
		var zero T
		ms := int(math.Round(t.timeoutSeconds * 1000))
		return zero, TimeoutError(ms)
	case res := <-done:
		elapsed := time.Since(start).Seconds()
		if res.err == nil && t.timeoutSeconds > 0 && elapsed > t.timeoutSeconds*nearTimeoutThreshold {
			t.emitNearTimeoutWarning(elapsed)
		}
		return res.value, res.err
	}
}

func (t *TimeBoundWrapper[T]) emitNearTimeoutWarning(elapsed float64) {
	if t.logger == nil {
		return
	}
	t.logger.Event(TraceEvent{
		Phase:   "near-timeout",
		OpName:  t.name,
		Caller:  t.name,
		Message: fmt.Sprintf("Op '%s' completed in %.3f seconds, near %0.fms budget", t.name, elapsed, t.timeoutSeconds*1000),
	})
}

// Metadata delegates to the wrapped op.
func (t *TimeBoundWrapper[T]) Metadata() OpMetadata { return t.inner.Metadata() }

// Rollback delegates to the wrapped op.
func (t *TimeBoundWrapper[T]) Rollback(dry *DryContext, wet *WetContext) error {
	return t.inner.Rollback(dry, wet)
}
