package ops

import "fmt"

// BuildBatchMetadata performs the data-flow analysis described in spec.md
// §4.7 in two passes over ops, in declaration order.
//
// Pass 1 tracks which output fields become available as each op runs, so
// that a later op's required input fields are only counted as "externally
// required" (i.e. must come from outside the batch) when no earlier op
// already produces them. This pass alone determines membership in
// externallyRequired, and is inherently order-sensitive: availableOutputs
// only grows as ops are walked.
//
// Pass 2 walks ops again, now against the fully-resolved externallyRequired
// set, carrying forward each externally-required field's property schema
// from whichever op defines one — including an op that defines the
// property without itself requiring it, as long as some later op's
// requirement makes the field externally required overall. A single
// combined pass would miss that case, since at the time the defining op is
// visited the later op's requirement hasn't been seen yet.
func BuildBatchMetadata[T any](ops []AnyOp[T]) OpMetadata {
	availableOutputs := map[string]bool{}
	externallyRequired := map[string]bool{}
	var externallyRequiredOrder []string

	mergedRefProps := map[string]Schema{}
	var mergedRefPropsOrder []string
	mergedRefRequired := map[string]bool{}

	for _, op := range ops {
		md := op.Metadata()

		if in := md.InputSchema; in != nil {
			for _, field := range in.Required() {
				if !availableOutputs[field] && !externallyRequired[field] {
					externallyRequired[field] = true
					externallyRequiredOrder = append(externallyRequiredOrder, field)
				}
			}
		}

		if ref := md.ReferenceSchema; ref != nil {
			for name, propSchema := range ref.Properties() {
				if _, seen := mergedRefProps[name]; !seen {
					mergedRefProps[name] = propSchema
					mergedRefPropsOrder = append(mergedRefPropsOrder, name)
				}
			}
			for _, field := range ref.Required() {
				mergedRefRequired[field] = true
			}
		}

		out := md.OutputSchema
		if out != nil {
			props := out.Properties()
			if len(props) > 0 {
				for name := range props {
					availableOutputs[name] = true
				}
			} else if out.Type() == "string" {
				availableOutputs["result"] = true
			}
		}
	}

	mergedInputProps := map[string]Schema{}
	var mergedInputPropsOrder []string

	for _, op := range ops {
		in := op.Metadata().InputSchema
		if in == nil {
			continue
		}
		for name, propSchema := range in.Properties() {
			if !externallyRequired[name] {
				continue
			}
			if _, seen := mergedInputProps[name]; !seen {
				mergedInputProps[name] = propSchema
				mergedInputPropsOrder = append(mergedInputPropsOrder, name)
			}
		}
	}

	mergedInputSchema := Schema{}
	if len(externallyRequiredOrder) > 0 {
		mergedInputSchema["required"] = append([]string(nil), externallyRequiredOrder...)
	}
	if len(mergedInputPropsOrder) > 0 {
		props := make(map[string]Schema, len(mergedInputPropsOrder))
		for _, name := range mergedInputPropsOrder {
			props[name] = mergedInputProps[name]
		}
		mergedInputSchema["properties"] = props
	}

	var mergedRefSchema Schema
	if len(mergedRefPropsOrder) > 0 || len(mergedRefRequired) > 0 {
		mergedRefSchema = Schema{}
		if len(mergedRefPropsOrder) > 0 {
			props := make(map[string]Schema, len(mergedRefPropsOrder))
			for _, name := range mergedRefPropsOrder {
				props[name] = mergedRefProps[name]
			}
			mergedRefSchema["properties"] = props
		}
		if len(mergedRefRequired) > 0 {
			required := make([]string, 0, len(mergedRefRequired))
			for name := range mergedRefRequired {
				required = append(required, name)
			}
			mergedRefSchema["required"] = required
		}
	}

	opsCount := len(ops)
	outputSchema := Schema{
		"type":     "array",
		"minItems": opsCount,
		"maxItems": opsCount,
		"items":    Schema{"type": "object"},
	}

	return OpMetadata{
		Name:            "BatchOp",
		Description:     fmt.Sprintf("Batch of %d operations with data flow analysis", opsCount),
		InputSchema:     mergedInputSchema,
		ReferenceSchema: mergedRefSchema,
		OutputSchema:    outputSchema,
	}
}
