package ops

import (
	"fmt"
	"time"
)

// LoggingWrapper wraps an op, emitting three structured trace events
// (start, success, failure) through a Logger (spec.md §4.8).
type LoggingWrapper[T any] struct {
	inner  AnyOp[T]
	logger Logger
	name   string
}

// NewLoggingWrapper wraps inner with a LoggingWrapper using the given
// trigger name. logger may be nil, in which case no events are emitted
// (useful when logging is not wired up, e.g. in tests of unrelated
// behavior).
func NewLoggingWrapper[T any](inner AnyOp[T], logger Logger, name string) *LoggingWrapper[T] {
	return &LoggingWrapper[T]{inner: inner, logger: logger, name: name}
}

// WithCallerName wraps inner, deriving its trigger name from the call site
// of WithCallerName itself, via createContextAwareLogger (spec.md §4.8).
func WithCallerName[T any](inner AnyOp[T], logger Logger) *LoggingWrapper[T] {
	return NewLoggingWrapper(inner, logger, createContextAwareLogger())
}

func (l *LoggingWrapper[T]) emit(evt TraceEvent) {
	if l.logger != nil {
		l.logger.Event(evt)
	}
}

// Perform runs the wrapped op, emitting start/success/failure events with
// the verbatim trace strings specified in spec.md §6.
func (l *LoggingWrapper[T]) Perform(dry *DryContext, wet *WetContext) (T, error) {
	l.emit(TraceEvent{
		Phase:   "start",
		OpName:  l.name,
		Caller:  l.name,
		Message: fmt.Sprintf("Starting op: %s", l.name),
	})

	start := time.Now()
	result, err := l.inner.Perform(dry, wet)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		if isInternalSignal(asOpError(err)) {
			// Internal control signals pass through untouched: they are not
			// failures, and must reach LoopOp unmodified.
			return result, err
		}
		inner := displayError(err)
		l.emit(TraceEvent{
			Phase:   "failure",
			OpName:  l.name,
			Caller:  l.name,
			Err:     err,
			Message: fmt.Sprintf("Op '%s' failed after %.3f seconds: %s", l.name, elapsed, inner),
		})
		return result, wrapNestedOpException(l.name, ExecutionFailed(inner))
	}

	l.emit(TraceEvent{
		Phase:   "success",
		OpName:  l.name,
		Caller:  l.name,
		Message: fmt.Sprintf("Op '%s' completed in %.3f seconds", l.name, elapsed),
	})
	return result, nil
}

func displayError(err error) string {
	if opErr, ok := err.(*OpError); ok {
		return opErr.Error()
	}
	return err.Error()
}

// Metadata delegates to the wrapped op.
func (l *LoggingWrapper[T]) Metadata() OpMetadata { return l.inner.Metadata() }

// Rollback delegates to the wrapped op.
func (l *LoggingWrapper[T]) Rollback(dry *DryContext, wet *WetContext) error {
	return l.inner.Rollback(dry, wet)
}
