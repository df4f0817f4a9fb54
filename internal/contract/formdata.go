package contract

import (
	"strings"

	"github.com/getkin/kin-openapi/openapi2"

	"github.com/unbound-force/apicov/internal/model"
)

// formParameters collects the formData parameters of every operation
// in a Swagger 2 document, keyed by operation. Operation-level
// parameters override path-level ones of the same name; references to
// #/parameters are resolved.
func formParameters(doc *openapi2.T) map[model.OperationKey][]model.Parameter {
	forms := map[model.OperationKey][]model.Parameter{}
	for path, item := range doc.Paths {
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			var (
				order  []string
				byName = map[string]*openapi2.Parameter{}
			)
			for _, list := range []openapi2.Parameters{item.Parameters, op.Parameters} {
				for _, p := range list {
					p = resolveParameter(doc, p)
					if p == nil || p.In != string(model.InFormData) {
						continue
					}
					if _, seen := byName[p.Name]; !seen {
						order = append(order, p.Name)
					}
					byName[p.Name] = p
				}
			}
			if len(order) == 0 {
				continue
			}
			params := make([]model.Parameter, 0, len(order))
			for _, name := range order {
				params = append(params, convertFormParameter(byName[name]))
			}
			forms[model.NewOperationKey(method, path)] = params
		}
	}
	return forms
}

func resolveParameter(doc *openapi2.T, p *openapi2.Parameter) *openapi2.Parameter {
	if p == nil || p.Ref == "" {
		return p
	}
	name, ok := strings.CutPrefix(p.Ref, "#/parameters/")
	if !ok {
		return nil
	}
	return doc.Parameters[name]
}

// convertFormParameter reads the sent value from x-example, then the
// declared default.
func convertFormParameter(p *openapi2.Parameter) model.Parameter {
	out := model.Parameter{
		Name:     p.Name,
		In:       model.InFormData,
		Required: p.Required,
	}
	if v, ok := p.Extensions["x-example"]; ok && v != nil {
		out.Value = scalar(v)
	} else if p.Default != nil {
		out.Value = scalar(p.Default)
	}

	values := p.Enum
	if len(values) == 0 && p.Items != nil && p.Items.Value != nil {
		values = p.Items.Value.Enum
	}
	for _, v := range values {
		out.Enum = append(out.Enum, scalar(v))
	}
	return out
}

// applyFormParameters replaces the request body that openapi2conv
// synthesised from form fields with the fields themselves. Swagger 2
// forbids a body parameter next to formData, so the body of such an
// operation is always the synthesised one.
func applyFormParameters(c *model.Contract, forms map[model.OperationKey][]model.Parameter) {
	if len(forms) == 0 {
		return
	}
	for i := range c.Operations {
		op := &c.Operations[i]
		params, ok := forms[op.Key]
		if !ok {
			continue
		}
		kept := op.Parameters[:0]
		for _, p := range op.Parameters {
			if p.In != model.InBody {
				kept = append(kept, p)
			}
		}
		op.Parameters = append(kept, params...)
	}
}
