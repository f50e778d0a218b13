package ops

import (
	"strings"
	"testing"
)

func TestValidatingWrapper_NoSchemasIsANoOp(t *testing.T) {
	// S10: no schemas configured on any toggle -> op runs unmodified.
	dry, wet := NewDryContext(), NewWetContext()
	inner := Wrap[string](okOp("v"))
	w := NewValidatingWrapper[string](inner, true, true)

	result, err := w.Perform(dry, wet)
	if err != nil || result != "v" {
		t.Fatalf("unexpected result=%q err=%v", result, err)
	}
}

func TestValidatingWrapper_InputRequiredFieldMissing(t *testing.T) {
	dry, wet := NewDryContext(), NewWetContext()
	inner := Wrap[string](OpFunc[string]{
		Name: "needs-input",
		Fn:   func(*DryContext, *WetContext) (string, error) { return "v", nil },
		InputSchema: Schema{
			"required": []string{"f"},
		},
	})
	w := NewValidatingWrapper[string](inner, true, false)

	_, err := w.Perform(dry, wet)
	opErr, ok := err.(*OpError)
	if !ok || opErr.Kind != KindContext {
		t.Fatalf("expected KindContext, got %v", err)
	}
}

func TestValidatingWrapper_InputMinimumConstraint(t *testing.T) {
	dry, wet := NewDryContext(), NewWetContext()
	_ = Insert(dry, "age", 5)
	inner := Wrap[string](OpFunc[string]{
		Name: "needs-age",
		Fn:   func(*DryContext, *WetContext) (string, error) { return "v", nil },
		InputSchema: Schema{
			"required":   []string{"age"},
			"properties": map[string]Schema{"age": {"type": "integer", "minimum": 18}},
		},
	})
	w := NewValidatingWrapper[string](inner, true, false)

	_, err := w.Perform(dry, wet)
	if err == nil {
		t.Fatal("expected a minimum constraint violation")
	}
}

// TestValidatingWrapper_SpecScenarioS6 is spec.md §8's S6 verbatim: a
// maximum constraint violation surfaces a context error mentioning
// "maximum".
func TestValidatingWrapper_SpecScenarioS6(t *testing.T) {
	dry, wet := NewDryContext(), NewWetContext()
	_ = Insert(dry, "value", 150)
	inner := Wrap[string](OpFunc[string]{
		Name: "needs-value",
		Fn:   func(*DryContext, *WetContext) (string, error) { return "v", nil },
		InputSchema: Schema{
			"required":   []string{"value"},
			"properties": map[string]Schema{"value": {"type": "integer", "minimum": 0, "maximum": 100}},
		},
	})
	w := NewValidatingWrapper[string](inner, true, false)

	_, err := w.Perform(dry, wet)
	opErr, ok := err.(*OpError)
	if !ok || opErr.Kind != KindContext {
		t.Fatalf("expected KindContext, got %v", err)
	}
	if !strings.Contains(opErr.Message, "maximum") {
		t.Fatalf("expected message to mention 'maximum', got %q", opErr.Message)
	}
}

func TestValidatingWrapper_ReferenceAlwaysValidatedWhenRequired(t *testing.T) {
	dry, wet := NewDryContext(), NewWetContext()
	inner := Wrap[string](OpFunc[string]{
		Name: "needs-ref",
		Fn:   func(*DryContext, *WetContext) (string, error) { return "v", nil },
		ReferenceSchema: Schema{
			"required": []string{"db"},
		},
	})
	// Neither ValidateInput nor ValidateOutput is set, but reference
	// validation should still run since the schema declares it required.
	w := NewValidatingWrapper[string](inner, false, false)

	_, err := w.Perform(dry, wet)
	opErr, ok := err.(*OpError)
	if !ok || opErr.Kind != KindContext {
		t.Fatalf("expected KindContext for missing reference, got %v", err)
	}

	wet.PutRef("db", "connection")
	if _, err := w.Perform(dry, wet); err != nil {
		t.Fatalf("expected success once reference is present, got %v", err)
	}
}

func TestValidatingWrapper_OutputValidation(t *testing.T) {
	dry, wet := NewDryContext(), NewWetContext()
	inner := Wrap[string](OpFunc[string]{
		Name: "bad-output",
		Fn:   func(*DryContext, *WetContext) (string, error) { return "short", nil },
		OutputSchema: Schema{
			"required": []string{"value"},
		},
	})
	w := NewValidatingWrapper[string](inner, false, true)

	// A plain string result is wrapped as {"value": v} before validation, so
	// this should succeed: "value" is present.
	if _, err := w.Perform(dry, wet); err != nil {
		t.Fatalf("expected scalar output wrapped and validated successfully, got %v", err)
	}
}
