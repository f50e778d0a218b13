package ops

import "fmt"

// ValidatingWrapper wraps an op, optionally validating its input (against
// dry), reference (against wet), and output schemas (spec.md §4.10).
// Reference validation runs whenever the wrapped op declares a reference
// schema with required fields; it has no toggle of its own and does not
// depend on ValidateInput or ValidateOutput.
type ValidatingWrapper[T any] struct {
	inner AnyOp[T]

	ValidateInput  bool
	ValidateOutput bool
}

// NewValidatingWrapper wraps inner, validating input and/or output per the
// given toggles. Reference validation is driven entirely by whether inner's
// metadata declares a reference schema with required fields.
func NewValidatingWrapper[T any](inner AnyOp[T], validateInput, validateOutput bool) *ValidatingWrapper[T] {
	return &ValidatingWrapper[T]{inner: inner, ValidateInput: validateInput, ValidateOutput: validateOutput}
}

// Perform validates dry/wet/the result around calling the wrapped op, per
// spec.md §4.10.
func (v *ValidatingWrapper[T]) Perform(dry *DryContext, wet *WetContext) (T, error) {
	var zero T
	md := v.inner.Metadata()

	if v.ValidateInput && md.InputSchema != nil {
		if err := validateInputSchema(md.Name, md.InputSchema, dry); err != nil {
			return zero, err
		}
	}

	if ref := md.ReferenceSchema; ref != nil {
		if required := ref.Required(); len(required) > 0 {
			if err := validateReferenceSchema(md.Name, required, wet); err != nil {
				return zero, err
			}
		}
	}

	result, err := v.inner.Perform(dry, wet)
	if err != nil {
		return result, err
	}

	if v.ValidateOutput && md.OutputSchema != nil {
		if err := validateOutputSchema(md.Name, md.OutputSchema, result); err != nil {
			return zero, err
		}
	}

	return result, nil
}

func validateInputSchema(name string, schema Schema, dry *DryContext) error {
	for _, field := range schema.Required() {
		if !dry.Contains(field) {
			return ContextError(fmt.Sprintf(
				"Input validation failed for %s: /%s: '%s' is a required property",
				name, field, field,
			))
		}
	}
	for field, propSchema := range schema.Properties() {
		raw, ok := dry.rawValue(field)
		if !ok {
			continue
		}
		if err := validateNumericConstraints(name, field, propSchema, raw); err != nil {
			return err
		}
	}
	return nil
}

func validateNumericConstraints(name, field string, schema Schema, raw any) error {
	num, ok := raw.(float64)
	if !ok {
		if i, ok := raw.(int); ok {
			num = float64(i)
		} else {
			return nil
		}
	}
	if min, ok := schema.Minimum(); ok && num < min {
		return ContextError(fmt.Sprintf(
			"Input validation failed for %s: /%s: %v is less than the minimum of %v",
			name, field, raw, min,
		))
	}
	if max, ok := schema.Maximum(); ok && num > max {
		return ContextError(fmt.Sprintf(
			"Input validation failed for %s: /%s: %v is greater than the maximum of %v",
			name, field, raw, max,
		))
	}
	return nil
}

func validateReferenceSchema(name string, required []string, wet *WetContext) error {
	for _, key := range required {
		if !wet.Contains(key) {
			return ContextError(fmt.Sprintf(
				"Required reference '%s' not found in WetContext for op '%s'", key, name,
			))
		}
	}
	return nil
}

func validateOutputSchema(name string, schema Schema, result any) error {
	canon, err := canonicalize(result)
	if err != nil {
		return ContextError("Failed to serialize output for validation")
	}

	obj, ok := canon.(map[string]any)
	if !ok {
		obj = map[string]any{"value": canon}
	}

	for _, field := range schema.Required() {
		if _, ok := obj[field]; !ok {
			return ContextError(fmt.Sprintf(
				"Output validation failed for %s: /%s: '%s' is a required property",
				name, field, field,
			))
		}
	}
	for field, propSchema := range schema.Properties() {
		raw, ok := obj[field]
		if !ok {
			continue
		}
		if err := validateNumericConstraintsOutput(name, field, propSchema, raw); err != nil {
			return err
		}
	}
	return nil
}

func validateNumericConstraintsOutput(name, field string, schema Schema, raw any) error {
	num, ok := raw.(float64)
	if !ok {
		return nil
	}
	if min, ok := schema.Minimum(); ok && num < min {
		return ContextError(fmt.Sprintf(
			"Output validation failed for %s: /%s: %v is less than the minimum of %v",
			name, field, raw, min,
		))
	}
	if max, ok := schema.Maximum(); ok && num > max {
		return ContextError(fmt.Sprintf(
			"Output validation failed for %s: /%s: %v is greater than the maximum of %v",
			name, field, raw, max,
		))
	}
	return nil
}

// Metadata delegates to the wrapped op.
func (v *ValidatingWrapper[T]) Metadata() OpMetadata { return v.inner.Metadata() }

// Rollback delegates to the wrapped op.
func (v *ValidatingWrapper[T]) Rollback(dry *DryContext, wet *WetContext) error {
	return v.inner.Rollback(dry, wet)
}
