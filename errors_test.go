package ops

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpError_DisplayStrings(t *testing.T) {
	cases := []struct {
		err  *OpError
		want string
	}{
		{ExecutionFailed("bad input"), "Op execution failed: bad input"},
		{TimeoutError(250), "Op timeout after 250ms"},
		{ContextError("missing key"), "Context error: missing key"},
		{BatchFailedError("Op 1-x failed: bad"), "Batch op failed: Op 1-x failed: bad"},
		{AbortedError("user cancelled"), "Op aborted: user cancelled"},
		{TriggerError("logging broke"), "Trigger error: logging broke"},
		{loopContinueSignal(), "Loop continue"},
		{loopBreakSignal(), "Loop break"},
	}
	for _, c := range cases {
		if got := c.err.Error(); got != c.want {
			t.Errorf("Error() = %q, want %q", got, c.want)
		}
	}
}

func TestOpError_EqualIsStructural(t *testing.T) {
	a := ExecutionFailed("x")
	b := ExecutionFailed("x")
	c := ExecutionFailed("y")
	if !a.Equal(b) {
		t.Fatal("expected equal OpErrors with same fields to be Equal")
	}
	if a.Equal(c) {
		t.Fatal("expected different messages to be unequal")
	}
}

func TestOpError_IsMatchesByKind(t *testing.T) {
	var err error = AbortedError("r1")
	target := AbortedError("r2")
	if !isErr(err, target) {
		t.Fatal("expected Is to match on Kind regardless of message")
	}
}

func isErr(err error, target *OpError) bool {
	opErr, ok := err.(*OpError)
	return ok && opErr.Is(target)
}

func TestIsInternalSignal(t *testing.T) {
	if !isInternalSignal(loopContinueSignal()) {
		t.Fatal("loopContinueSignal should be an internal signal")
	}
	if !isInternalSignal(loopBreakSignal()) {
		t.Fatal("loopBreakSignal should be an internal signal")
	}
	if isInternalSignal(ExecutionFailed("x")) {
		t.Fatal("a regular failure must not be treated as an internal signal")
	}
}

func TestWrapNestedOpException_PreservesInternalSignals(t *testing.T) {
	wrapped := wrapNestedOpException("outer", loopContinueSignal())
	if wrapped.Kind != kindLoopContinue {
		t.Fatalf("expected internal signal passed through unchanged, got %v", wrapped)
	}
}

func TestWrapRuntimeException(t *testing.T) {
	err := wrapRuntimeException(ExecutionFailed("inner detail"))
	want := "Op execution failed: Runtime error: Op execution failed: inner detail"
	require.Equal(t, want, err.Error())
}

func TestOpError_StructuralFieldComparison(t *testing.T) {
	got := TimeoutError(150)
	require.Equal(t, &OpError{Kind: KindTimeout, TimeoutMS: 150}, got)
}
