package rule

import (
	"fmt"
	"path"

	"github.com/unbound-force/apicov/internal/coverage"
	"github.com/unbound-force/apicov/internal/model"
	"github.com/unbound-force/apicov/internal/predicate"
)

// CustomDefinition declares a user-defined branch.
type CustomDefinition struct {
	// Name is the branch name. Required.
	Name string

	// Description is free text.
	Description string

	// Operations restricts the rule to operation keys matching any of
	// these globs ("GET /pets/*", "* /admin/*"). Empty means every
	// operation.
	Operations []string

	// When is an expr-lang boolean expression over predicate.Env.
	When string
}

// CustomRule is a configured rule backed by an expression predicate.
type CustomRule struct {
	def  CustomDefinition
	pred *predicate.Expr
}

// NewCustom validates def and compiles its expression.
func NewCustom(def CustomDefinition) (*CustomRule, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("custom rule: name is required")
	}
	if def.When == "" {
		return nil, fmt.Errorf("custom rule %q: when is required", def.Name)
	}
	for _, pattern := range def.Operations {
		target, err := model.ParseOperationKey(pattern)
		if err != nil {
			return nil, fmt.Errorf("custom rule %q: %w", def.Name, err)
		}
		if _, err := path.Match(target.Path, ""); err != nil {
			return nil, fmt.Errorf("custom rule %q: invalid operation pattern %q: %w", def.Name, pattern, err)
		}
	}
	pred, err := predicate.NewExpr(def.When)
	if err != nil {
		return nil, fmt.Errorf("custom rule %q: %w", def.Name, err)
	}
	return &CustomRule{def: def, pred: pred}, nil
}

func (r *CustomRule) ID() string { return "custom:" + r.def.Name }
func (r *CustomRule) Kind() Kind { return KindCustom }

func (r *CustomRule) Derive(op model.Operation) Outcome {
	if !r.matches(op.Key) {
		return NotApplicable()
	}
	return Applies(coverage.NewBranch(r.def.Name, r.def.Description, r.pred))
}

// matches compares the globs against "METHOD path". A glob matches
// when both halves match separately, so "*" may stand for any method.
func (r *CustomRule) matches(key model.OperationKey) bool {
	if len(r.def.Operations) == 0 {
		return true
	}
	for _, pattern := range r.def.Operations {
		target, err := model.ParseOperationKey(pattern)
		if err != nil {
			continue
		}
		methodOK, _ := path.Match(target.Method, key.Method)
		pathOK, _ := path.Match(target.Path, key.Path)
		if methodOK && pathOK {
			return true
		}
	}
	return false
}
