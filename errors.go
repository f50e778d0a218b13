// Package ops provides a composable asynchronous operation framework: a
// small kernel for describing units of work that run against a pair of
// contexts, compose via batches and loops, and provide transactional
// semantics through automatic LIFO rollback on failure.
package ops

import (
	"errors"
	"fmt"
)

// Kind discriminates the closed set of OpError variants. Two values,
// kindLoopContinue and kindLoopBreak, are internal control signals: they
// must never be observed by a caller outside this package.
type Kind int8

const (
	// KindExecutionFailed indicates a leaf op failed to do its work.
	KindExecutionFailed Kind = iota
	// KindTimeout indicates a TimeBoundWrapper deadline elapsed.
	KindTimeout
	// KindContext indicates a DryContext/WetContext lookup or validation failure.
	KindContext
	// KindBatchFailed indicates a BatchOp step failed without continueOnError.
	KindBatchFailed
	// KindAborted indicates cooperative abort was observed.
	KindAborted
	// KindTrigger indicates a wrapper-level (e.g. logging) failure, distinct
	// from the op it wraps.
	KindTrigger
	// KindOther wraps an arbitrary non-OpError error.
	KindOther

	// kindLoopContinue is the internal "skip to next iteration" signal.
	kindLoopContinue
	// kindLoopBreak is the internal "stop the loop now" signal.
	kindLoopBreak
)

// OpError is the unified error taxonomy used throughout this package.
// Equality is structural: two OpError values are equal when Kind, Message,
// and TimeoutMS match and their Causes are both nil or have the same
// Error() text.
type OpError struct {
	Kind      Kind
	Message   string
	TimeoutMS int
	Cause     error
}

// ExecutionFailed builds a KindExecutionFailed OpError.
func ExecutionFailed(msg string) *OpError { return &OpError{Kind: KindExecutionFailed, Message: msg} }

// TimeoutError builds a KindTimeout OpError for a deadline of ms milliseconds.
func TimeoutError(ms int) *OpError { return &OpError{Kind: KindTimeout, TimeoutMS: ms} }

// ContextError builds a KindContext OpError.
func ContextError(msg string) *OpError { return &OpError{Kind: KindContext, Message: msg} }

// BatchFailedError builds a KindBatchFailed OpError.
func BatchFailedError(msg string) *OpError { return &OpError{Kind: KindBatchFailed, Message: msg} }

// AbortedError builds a KindAborted OpError carrying the abort reason.
func AbortedError(reason string) *OpError { return &OpError{Kind: KindAborted, Message: reason} }

// TriggerError builds a KindTrigger OpError.
func TriggerError(msg string) *OpError { return &OpError{Kind: KindTrigger, Message: msg} }

// OtherError wraps an arbitrary error as a KindOther OpError.
func OtherError(err error) *OpError { return &OpError{Kind: KindOther, Cause: err} }

// loopContinueSignal and loopBreakSignal are the two internal control
// signals. They are never exported as constructors; they can only be
// observed via the control-flow helpers in helpers.go, and must be caught
// by LoopOp.perform before it returns.
func loopContinueSignal() *OpError { return &OpError{Kind: kindLoopContinue} }
func loopBreakSignal() *OpError    { return &OpError{Kind: kindLoopBreak} }

// isInternalSignal reports whether err is one of the two internal loop
// control signals.
func isInternalSignal(err *OpError) bool {
	return err != nil && (err.Kind == kindLoopContinue || err.Kind == kindLoopBreak)
}

// Error implements the error interface, producing the stable, test-verified
// display strings documented by this package's specification.
func (e *OpError) Error() string {
	switch e.Kind {
	case KindExecutionFailed:
		return fmt.Sprintf("Op execution failed: %s", e.Message)
	case KindTimeout:
		return fmt.Sprintf("Op timeout after %dms", e.TimeoutMS)
	case KindContext:
		return fmt.Sprintf("Context error: %s", e.Message)
	case KindBatchFailed:
		return fmt.Sprintf("Batch op failed: %s", e.Message)
	case KindAborted:
		return fmt.Sprintf("Op aborted: %s", e.Message)
	case KindTrigger:
		return fmt.Sprintf("Trigger error: %s", e.Message)
	case KindOther:
		if e.Cause != nil {
			return fmt.Sprintf("Op error: %v", e.Cause)
		}
		return "Op error"
	case kindLoopContinue:
		return "Loop continue"
	case kindLoopBreak:
		return "Loop break"
	default:
		return "Op error: unknown"
	}
}

// Unwrap exposes Cause for errors.Is/errors.As, primarily relevant to
// KindOther.
func (e *OpError) Unwrap() error { return e.Cause }

// Is supports errors.Is by matching on Kind for *OpError targets. For any
// other target it reports false; errors.Is then goes on to Cause via Unwrap.
func (e *OpError) Is(target error) bool {
	var other *OpError
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// Equal reports structural equality between two OpError values, per the
// package specification ("equality is structural").
func (e *OpError) Equal(other *OpError) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e.Kind != other.Kind || e.Message != other.Message || e.TimeoutMS != other.TimeoutMS {
		return false
	}
	if e.Cause == nil || other.Cause == nil {
		return e.Cause == other.Cause
	}
	return e.Cause.Error() == other.Cause.Error()
}

// wrapNestedOpException rewrites err's message to "{name}: {message}",
// preserving its Kind. Two kinds differ: a timeout keeps its millisecond
// count and stores name in Message, which its display string does not show;
// an abort keeps its reason unchanged, without the name. A non-OpError
// becomes an ExecutionFailed carrying "{name}: {err}". Internal control
// signals pass through unchanged, since they must never be rewritten or
// mistaken for a regular failure by an enclosing wrapper.
func wrapNestedOpException(name string, err error) *OpError {
	opErr, ok := err.(*OpError)
	if !ok {
		return ExecutionFailed(fmt.Sprintf("%s: %v", name, err))
	}
	if isInternalSignal(opErr) {
		return opErr
	}
	switch opErr.Kind {
	case KindTimeout:
		return &OpError{Kind: KindTimeout, TimeoutMS: opErr.TimeoutMS, Message: name}
	case KindAborted:
		return &OpError{Kind: KindAborted, Message: opErr.Message}
	default:
		return &OpError{Kind: opErr.Kind, Message: fmt.Sprintf("%s: %s", name, opErr.displayMessage())}
	}
}

// displayMessage returns the variant-specific message content used when
// nesting this error under an enclosing op's name.
func (e *OpError) displayMessage() string {
	switch e.Kind {
	case KindTimeout:
		return fmt.Sprintf("timeout after %dms", e.TimeoutMS)
	case KindOther:
		if e.Cause != nil {
			return e.Cause.Error()
		}
		return ""
	default:
		return e.Message
	}
}

// wrapRuntimeException converts an arbitrary recovered/unexpected error
// (e.g. from a panic recovery, or a non-OpError failure) into a
// KindExecutionFailed OpError with a standard "Runtime error" prefix.
func wrapRuntimeException(err error) *OpError {
	return ExecutionFailed(fmt.Sprintf("Runtime error: %v", err))
}

// asOpError normalizes any error returned from user code (which may or may
// not already be an *OpError) into an *OpError, via wrapRuntimeException
// when necessary.
func asOpError(err error) *OpError {
	if err == nil {
		return nil
	}
	if opErr, ok := err.(*OpError); ok {
		return opErr
	}
	return wrapRuntimeException(err)
}
