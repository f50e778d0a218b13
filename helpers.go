package ops

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// callerName captures the call site skip frames above this function as
// "{filenameWithoutExt}::{line}" (spec.md §6). skip follows runtime.Caller
// conventions relative to callerName's own frame.
func callerName(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "unknown::0"
	}
	base := filepath.Base(file)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base + "::" + strconv.Itoa(line)
}

// createContextAwareLogger captures the caller two frames above its own
// call site (i.e. the site that called Perform/LoggingWrapper), for use as
// a LoggingWrapper trigger name (spec.md §4.8).
func createContextAwareLogger() string {
	return callerName(2)
}

// DryPut stores v under k in dry, panicking on a non-serializable value
// (mirrors DryContext.With's builder semantics for the common case of a
// leaf op writing its own output). Exported per spec.md §4.11: op authors
// outside this package use this as the ergonomic façade over InsertValue.
func DryPut(dry *DryContext, k string, v any) {
	dry.With(k, v)
}

// DryGet retrieves the raw value stored under k, if present.
func DryGet(dry *DryContext, k string) (any, bool) {
	return dry.rawValue(k)
}

// DryRequire retrieves the raw value stored under k, or fails with a
// KindContext OpError (spec.md §4.11).
func DryRequire(dry *DryContext, k string) (any, error) {
	v, ok := dry.rawValue(k)
	if !ok {
		return nil, ContextError("Required dry context key '" + k + "' not found")
	}
	return v, nil
}

// DryResult stores v under both opName and the well-known "result" key
// (spec.md §4.11).
func DryResult(v any, opName string, dry *DryContext) {
	dry.With(opName, v)
	dry.With("result", v)
}

// WetPutRef stores ref under k in wet.
func WetPutRef(wet *WetContext, k string, ref any) {
	wet.PutRef(k, ref)
}

// WetRequireRef itself is defined in wet_context.go as a generic function
// (retrieving the reference stored under k, asserted as T, or a KindContext
// OpError), satisfying this façade's spec.md §4.11 role directly.

// Abort sets dry's abort flag and returns the corresponding aborted OpError
// (spec.md §4.11). An empty reason defaults to "Operation aborted". Op
// authors call this from inside Perform to trigger cooperative cancellation
// that BatchOp/LoopOp honor at their next pre-check boundary.
func Abort(dry *DryContext, reason string) error {
	if reason == "" {
		reason = "Operation aborted"
	}
	dry.SetAbort(reason)
	return AbortedError(reason)
}

// CheckAbort returns an aborted OpError if dry is currently aborted,
// otherwise nil.
func CheckAbort(dry *DryContext) error {
	if dry.IsAborted() {
		return AbortedError(dry.AbortReason())
	}
	return nil
}

// ContinueLoop sets the in-band continue flag for the loop identified by
// loopId and returns the internal _loopContinue signal (spec.md §4.11). Ops
// running inside a LoopOp call this (with LoopOp.LoopId, or the value of
// the well-known "__current_loop_id" key) instead of returning the signal
// directly; both paths are observably equivalent.
func ContinueLoop(dry *DryContext, loopId string) error {
	_ = Insert(dry, "__continue_loop_"+loopId, true)
	return loopContinueSignal()
}

// BreakLoop is symmetric with ContinueLoop, for the "stop the loop now"
// signal.
func BreakLoop(dry *DryContext, loopId string) error {
	_ = Insert(dry, "__break_loop_"+loopId, true)
	return loopBreakSignal()
}

// Perform is a façade that wraps op with a LoggingWrapper whose trigger
// name is the call site of Perform itself (spec.md §4.11).
func Perform[T any](op AnyOp[T], dry *DryContext, wet *WetContext, logger Logger) (T, error) {
	name := callerName(1)
	wrapped := Wrap[T](NewLoggingWrapper(op, logger, name))
	return wrapped.Perform(dry, wet)
}
