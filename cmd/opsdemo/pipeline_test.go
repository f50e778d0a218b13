package main

import (
	"testing"

	"github.com/opslib/ops"
)

func TestBuildStep_FailNthWithAbort_SetsAbortFlag(t *testing.T) {
	dry, wet := ops.NewDryContext(), ops.NewWetContext()
	step := buildStep(stepSpec{Kind: "fail-nth", Name: "flaky", FailOn: 0, Abort: true, Value: "x"})

	_, err := step.Perform(dry, wet)
	if err == nil {
		t.Fatal("expected the first invocation to fail")
	}
	if !dry.IsAborted() {
		t.Fatal("expected fail-nth with abort:true to set the DryContext abort flag")
	}
}

func TestBuildStep_FailNthWithoutAbort_LeavesAbortFlagUnset(t *testing.T) {
	dry, wet := ops.NewDryContext(), ops.NewWetContext()
	step := buildStep(stepSpec{Kind: "fail-nth", Name: "flaky", FailOn: 0, Value: "x"})

	if _, err := step.Perform(dry, wet); err == nil {
		t.Fatal("expected the first invocation to fail")
	}
	if dry.IsAborted() {
		t.Fatal("expected fail-nth without abort:true to leave the abort flag unset")
	}
}

func TestBuildLoop_RetryNthSkipsRestOfIterationWithoutFailingTheLoop(t *testing.T) {
	dry, wet := ops.NewDryContext(), ops.NewWetContext()
	loop := buildLoop(&pipelineSpec{
		Loop: &loopSpec{
			CounterVar: "i",
			Limit:      2,
			Steps: []stepSpec{
				{Kind: "retry-nth", Name: "sometimes", FailOn: 0, Value: "ok"},
			},
		},
	})

	results, err := loop.Perform(dry, wet)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// First iteration's single step hits FailOn==0 and calls ContinueLoop,
	// skipping the rest of that iteration; second iteration succeeds.
	want := []string{"ok"}
	if len(results) != len(want) || results[0] != want[0] {
		t.Fatalf("got %v, want %v", results, want)
	}
}

func TestBuildLoop_NilWhenNoLoopSection(t *testing.T) {
	if buildLoop(&pipelineSpec{}) != nil {
		t.Fatal("expected a nil LoopOp when the pipeline declares no loop section")
	}
}
