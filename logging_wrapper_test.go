package ops

import "testing"

func TestLoggingWrapper_EmitsStartAndSuccess(t *testing.T) {
	dry, wet := NewDryContext(), NewWetContext()
	logger := NewTestLogger()
	w := NewLoggingWrapper[string](Wrap[string](okOp("hi")), logger, "site::1")

	result, err := w.Perform(dry, wet)
	if err != nil || result != "hi" {
		t.Fatalf("unexpected result=%q err=%v", result, err)
	}

	events := logger.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Message != "Starting op: site::1" {
		t.Fatalf("unexpected start message: %q", events[0].Message)
	}
}

func TestLoggingWrapper_FailureRewrapsWithName(t *testing.T) {
	dry, wet := NewDryContext(), NewWetContext()
	logger := NewTestLogger()
	inner := Wrap[string](failingOp("inner", "boom"))
	w := NewLoggingWrapper[string](inner, logger, "site::2")

	_, err := w.Perform(dry, wet)
	if err == nil {
		t.Fatal("expected an error")
	}
	opErr, ok := err.(*OpError)
	if !ok || opErr.Kind != KindExecutionFailed {
		t.Fatalf("expected KindExecutionFailed, got %v", err)
	}
	if opErr.Message != "site::2: Op execution failed: boom" {
		t.Fatalf("unexpected wrapped message: %q", opErr.Message)
	}

	events := logger.Events()
	if len(events) != 2 || events[1].Phase != "failure" {
		t.Fatalf("expected start+failure events, got %+v", events)
	}
}

func TestLoggingWrapper_InternalSignalsPassThroughWithoutFailureEvent(t *testing.T) {
	dry, wet := NewDryContext(), NewWetContext()
	logger := NewTestLogger()
	inner := Wrap[string](OpFunc[string]{
		Name: "signaler",
		Fn:   func(*DryContext, *WetContext) (string, error) { return "", loopBreakSignal() },
	})
	w := NewLoggingWrapper[string](inner, logger, "site::3")

	_, err := w.Perform(dry, wet)
	opErr, ok := err.(*OpError)
	if !ok || opErr.Kind != kindLoopBreak {
		t.Fatalf("expected the break signal to pass through unchanged, got %v", err)
	}

	events := logger.Events()
	for _, e := range events {
		if e.Phase == "failure" {
			t.Fatalf("internal control signals must not be logged as failures: %+v", events)
		}
	}
}
