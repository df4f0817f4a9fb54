// Package rule turns one contract operation into the list of branches
// that captured traffic should exercise.
//
// Each rule belongs to one Kind and inspects one element of the
// operation: the operation itself, each parameter, the request body,
// the declared status codes or the declared enum values. A rule that
// does not apply to an element says so with NotApplicable, which is
// distinct from applying and producing no branches.
package rule

import (
	"github.com/unbound-force/apicov/internal/coverage"
	"github.com/unbound-force/apicov/internal/model"
)

// Kind is the category of element a rule inspects.
type Kind string

// Rule kinds.
const (
	KindOperation Kind = "operation"
	KindParameter Kind = "parameter"
	KindBody      Kind = "body"
	KindStatus    Kind = "status"
	KindEnum      Kind = "enum"
	KindCustom    Kind = "custom"
)

// Outcome is the result of applying a rule to one element.
type Outcome struct {
	applicable bool
	branches   []coverage.Branch
}

// NotApplicable means the rule does not apply to the element.
func NotApplicable() Outcome { return Outcome{} }

// Applies means the rule applies and produced branches (possibly none).
func Applies(branches ...coverage.Branch) Outcome {
	return Outcome{applicable: true, branches: branches}
}

// Applicable reports whether the rule applied.
func (o Outcome) Applicable() bool { return o.applicable }

// Branches returns the produced branches.
func (o Outcome) Branches() []coverage.Branch { return o.branches }

// Rule derives branches from a contract operation. Implementations
// are deterministic and side-effect free.
type Rule interface {
	// ID is the stable identifier used to disable a rule by
	// configuration.
	ID() string

	// Kind is the category of element the rule inspects.
	Kind() Kind

	// Derive applies the rule to op.
	Derive(op model.Operation) Outcome
}

// ParameterDeriver inspects a single parameter.
type ParameterDeriver interface {
	DeriveParameter(p model.Parameter) Outcome
}

// perParameter adapts a ParameterDeriver into an operation Rule by
// invoking it once per parameter.
type perParameter struct {
	id      string
	deriver ParameterDeriver
}

// PerParameter returns a rule that applies d to every parameter of an
// operation. It is applicable when d applies to at least one
// parameter.
func PerParameter(id string, d ParameterDeriver) Rule {
	return perParameter{id: id, deriver: d}
}

func (r perParameter) ID() string { return r.id }
func (r perParameter) Kind() Kind { return KindParameter }

func (r perParameter) Derive(op model.Operation) Outcome {
	var (
		applicable bool
		branches   []coverage.Branch
	)
	for _, p := range op.Parameters {
		out := r.deriver.DeriveParameter(p)
		if !out.Applicable() {
			continue
		}
		applicable = true
		branches = append(branches, out.Branches()...)
	}
	if !applicable {
		return NotApplicable()
	}
	return Applies(branches...)
}

// Apply runs every rule against op and flattens the applicable
// outcomes in rule order.
func Apply(op model.Operation, rules []Rule) []coverage.Branch {
	var branches []coverage.Branch
	for _, r := range rules {
		out := r.Derive(op)
		if !out.Applicable() {
			continue
		}
		branches = append(branches, out.Branches()...)
	}
	return branches
}

// Filter drops the rules whose IDs are listed in disabled.
func Filter(rules []Rule, disabled []string) []Rule {
	if len(disabled) == 0 {
		return rules
	}
	skip := make(map[string]bool, len(disabled))
	for _, id := range disabled {
		skip[id] = true
	}
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if !skip[r.ID()] {
			out = append(out, r)
		}
	}
	return out
}
