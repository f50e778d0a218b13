package main

import (
	"fmt"
	"os"

	"github.com/opslib/ops"
	"gopkg.in/yaml.v3"
)

// pipelineSpec is the YAML shape of a demo pipeline description: a batch of
// steps, plus an optional loop of steps run afterward against the same
// DryContext/WetContext pair (SPEC_FULL.md §1: "demonstrates wiring a batch
// and a loop end to end").
type pipelineSpec struct {
	CounterVar      string     `yaml:"counterVar"`
	ContinueOnError bool       `yaml:"continueOnError"`
	Steps           []stepSpec `yaml:"steps"`
	Loop            *loopSpec  `yaml:"loop"`
}

type loopSpec struct {
	CounterVar      string     `yaml:"counterVar"`
	Limit           int        `yaml:"limit"`
	ContinueOnError bool       `yaml:"continueOnError"`
	Steps           []stepSpec `yaml:"steps"`
}

type stepSpec struct {
	// Kind is one of "echo", "fail-nth", or "retry-nth".
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`
	// Value is echoed verbatim by an "echo" step, and on the non-failing
	// invocations of "fail-nth"/"retry-nth".
	Value string `yaml:"value"`
	// FailOn, for "fail-nth"/"retry-nth", is the 0-based invocation count on
	// which the step fails (it succeeds on every other invocation).
	FailOn int `yaml:"failOn"`
	// Abort, for "fail-nth", makes the simulated failure call ops.Abort
	// instead of just returning an ExecutionFailed error, demonstrating the
	// §4.11 abort façade cooperatively halting the whole pipeline.
	Abort bool `yaml:"abort"`
}

func loadPipeline(path string) (*pipelineSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline file: %w", err)
	}
	var spec pipelineSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing pipeline file: %w", err)
	}
	return &spec, nil
}

// buildBatch turns a pipelineSpec into an executable BatchOp of string
// results, demonstrating how a config-driven graph of leaf ops is wired up
// (SPEC_FULL.md §6).
func buildBatch(spec *pipelineSpec) *ops.BatchOp[string] {
	anyOps := make([]ops.AnyOp[string], 0, len(spec.Steps))
	for _, step := range spec.Steps {
		anyOps = append(anyOps, buildStep(step))
	}
	return ops.NewBatchOp[string](spec.ContinueOnError, anyOps...)
}

// buildLoop turns a pipelineSpec's loop section into an executable LoopOp of
// string results, or nil if the pipeline declares no loop.
func buildLoop(spec *pipelineSpec) *ops.LoopOp[string] {
	if spec.Loop == nil {
		return nil
	}
	anyOps := make([]ops.AnyOp[string], 0, len(spec.Loop.Steps))
	for _, step := range spec.Loop.Steps {
		anyOps = append(anyOps, buildStep(step))
	}
	return ops.NewLoopOp[string](spec.Loop.CounterVar, spec.Loop.Limit, spec.Loop.ContinueOnError, anyOps...)
}

func buildStep(step stepSpec) ops.AnyOp[string] {
	switch step.Kind {
	case "fail-nth":
		calls := 0
		return ops.Wrap[string](ops.OpFunc[string]{
			Name:        step.Name,
			Description: fmt.Sprintf("fails on invocation #%d, echoes otherwise", step.FailOn),
			Fn: func(dry *ops.DryContext, wet *ops.WetContext) (string, error) {
				n := calls
				calls++
				if n == step.FailOn {
					reason := fmt.Sprintf("%s: simulated failure on call %d", step.Name, n)
					if step.Abort {
						return "", ops.Abort(dry, reason)
					}
					return "", ops.ExecutionFailed(reason)
				}
				return step.Value, nil
			},
		})
	case "retry-nth":
		// Demonstrates ContinueLoop (SPEC_FULL.md §4.11): on its designated
		// failing call, this step skips the rest of the current loop
		// iteration instead of failing the whole pipeline. Only meaningful
		// nested inside a pipeline's "loop" section, where CurrentLoopIDKey
		// names the enclosing LoopOp.
		calls := 0
		return ops.Wrap[string](ops.OpFunc[string]{
			Name:        step.Name,
			Description: fmt.Sprintf("skips the rest of iteration #%d via ContinueLoop, echoes otherwise", step.FailOn),
			Fn: func(dry *ops.DryContext, wet *ops.WetContext) (string, error) {
				n := calls
				calls++
				if n == step.FailOn {
					loopId, _, _ := ops.Get[string](dry, ops.CurrentLoopIDKey)
					return "", ops.ContinueLoop(dry, loopId)
				}
				return step.Value, nil
			},
		})
	default: // "echo"
		return ops.Wrap[string](ops.OpFunc[string]{
			Name:        step.Name,
			Description: "echoes a fixed value",
			Fn: func(dry *ops.DryContext, wet *ops.WetContext) (string, error) {
				return step.Value, nil
			},
		})
	}
}
