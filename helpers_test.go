package ops

import (
	"strings"
	"testing"
)

func TestCallerName_Format(t *testing.T) {
	name := callerName(0)
	if !strings.Contains(name, "helpers_test::") {
		t.Fatalf("expected caller name to reference this test file, got %q", name)
	}
}

func TestAbortHelper_SetsFlagAndReturnsAbortedError(t *testing.T) {
	dry := NewDryContext()
	err := Abort(dry, "")
	if !dry.IsAborted() {
		t.Fatal("expected abort to set the flag")
	}
	if dry.AbortReason() != "Operation aborted" {
		t.Fatalf("expected default reason, got %q", dry.AbortReason())
	}
	opErr, ok := err.(*OpError)
	if !ok || opErr.Kind != KindAborted {
		t.Fatalf("expected an aborted OpError, got %v", err)
	}
}

func TestCheckAbort(t *testing.T) {
	dry := NewDryContext()
	if CheckAbort(dry) != nil {
		t.Fatal("expected nil when not aborted")
	}
	dry.SetAbort("r")
	if CheckAbort(dry) == nil {
		t.Fatal("expected an error once aborted")
	}
}

func TestDryResult_StoresUnderBothKeys(t *testing.T) {
	dry := NewDryContext()
	DryResult("value", "myop", dry)
	v1, found, _ := Get[string](dry, "myop")
	v2, found2, _ := Get[string](dry, "result")
	if !found || !found2 || v1 != "value" || v2 != "value" {
		t.Fatalf("expected both keys set to 'value', got myop=%q result=%q", v1, v2)
	}
}

func TestWetRequireRef_MissingProducesContextError(t *testing.T) {
	wet := NewWetContext()
	_, err := WetRequireRef[any](wet, "missing")
	opErr, ok := err.(*OpError)
	if !ok || opErr.Kind != KindContext {
		t.Fatalf("expected KindContext, got %v", err)
	}
}

func TestPerformFacade_WrapsWithLogging(t *testing.T) {
	dry, wet := NewDryContext(), NewWetContext()
	logger := NewTestLogger()

	op := Wrap[string](okOp("done"))
	result, err := Perform[string](op, dry, wet, logger)
	if err != nil || result != "done" {
		t.Fatalf("unexpected result=%q err=%v", result, err)
	}

	events := logger.Events()
	if len(events) != 2 {
		t.Fatalf("expected start+success events, got %d: %+v", len(events), events)
	}
	if events[0].Phase != "start" || events[1].Phase != "success" {
		t.Fatalf("unexpected event phases: %+v", events)
	}
}
