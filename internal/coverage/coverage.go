// Package coverage holds the branch checklist of every contract
// operation and the covered state of each branch.
package coverage

import (
	"sync"

	"github.com/unbound-force/apicov/internal/model"
	"github.com/unbound-force/apicov/internal/predicate"
)

// OperationReached names the branch that is covered as soon as any
// captured call hits the operation.
const OperationReached = "operation reached"

// Branch is a named testable condition. A condition is exercised when
// all predicates hold for the same captured call.
type Branch struct {
	// Name is the human-readable label. Names double as the identity
	// of a branch within an operation, so rules must produce them
	// deterministically.
	Name string

	// Description is free text, possibly empty.
	Description string

	// Predicates is empty only for the OperationReached branch.
	Predicates []predicate.Predicate
}

// NewBranch builds a Branch.
func NewBranch(name, description string, preds ...predicate.Predicate) Branch {
	return Branch{Name: name, Description: description, Predicates: preds}
}

// Condition is a Branch plus its covered flag. The flag starts false
// and only Coverage.MarkIfSatisfied sets it.
type Condition struct {
	Branch  Branch
	covered bool
}

// Covered reports the current state.
func (c *Condition) Covered() bool { return c.covered }

// OperationCoverage is the ordered condition list of one operation.
type OperationCoverage struct {
	Operation  model.Operation
	Conditions []*Condition
}

// Coverage maps every contract operation to its conditions. The set of
// operations is fixed at construction; afterwards only covered flags
// change, and only through MarkIfSatisfied.
type Coverage struct {
	mu  sync.Mutex
	ops map[model.OperationKey]*OperationCoverage
}

// DeriveFunc produces the branches of one operation.
type DeriveFunc func(op model.Operation) []Branch

// Build derives the conditions of every operation, all uncovered.
func Build(ops []model.Operation, derive DeriveFunc) *Coverage {
	c := &Coverage{ops: make(map[model.OperationKey]*OperationCoverage, len(ops))}
	for _, op := range ops {
		branches := derive(op)
		conds := make([]*Condition, 0, len(branches))
		for _, b := range branches {
			conds = append(conds, &Condition{Branch: b})
		}
		c.ops[op.Key] = &OperationCoverage{Operation: op, Conditions: conds}
	}
	return c
}

// Has reports whether key is a contract operation.
func (c *Coverage) Has(key model.OperationKey) bool {
	_, ok := c.ops[key]
	return ok
}

// Len returns the number of contract operations.
func (c *Coverage) Len() int { return len(c.ops) }

// MarkIfSatisfied evaluates every still-uncovered condition of key
// against call and marks those whose predicates all hold. Covered
// conditions are skipped. It returns the names of conditions covered
// by this call, and false when key is not a contract operation.
func (c *Coverage) MarkIfSatisfied(key model.OperationKey, call model.Operation) ([]string, bool) {
	oc, ok := c.ops[key]
	if !ok {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var newly []string
	for _, cond := range oc.Conditions {
		if cond.Covered() {
			continue
		}
		if predicate.All(cond.Branch.Predicates, call.Parameters, call.Responses) {
			cond.covered = true
			newly = append(newly, cond.Branch.Name)
		}
	}
	return newly, true
}

// Snapshot returns the current state of every operation, ordered by
// key.
func (c *Coverage) Snapshot() []OperationResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]model.OperationKey, 0, len(c.ops))
	for k := range c.ops {
		keys = append(keys, k)
	}
	model.SortKeys(keys)

	out := make([]OperationResult, 0, len(keys))
	for _, k := range keys {
		oc := c.ops[k]
		res := OperationResult{
			Operation:  oc.Operation,
			Conditions: make([]ConditionResult, 0, len(oc.Conditions)),
		}
		for _, cond := range oc.Conditions {
			res.Conditions = append(res.Conditions, ConditionResult{
				Name:        cond.Branch.Name,
				Description: cond.Branch.Description,
				Covered:     cond.Covered(),
			})
		}
		out = append(out, res)
	}
	return out
}

// ConditionResult is the frozen state of one condition.
type ConditionResult struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Covered     bool   `json:"covered"`
}

// OperationResult is the frozen state of one operation.
type OperationResult struct {
	Operation  model.Operation
	Conditions []ConditionResult
}

// Counts returns covered and total conditions.
func (r OperationResult) Counts() (covered, total int) {
	for _, c := range r.Conditions {
		if c.Covered {
			covered++
		}
	}
	return covered, len(r.Conditions)
}

// Percentage returns the covered share (0-100). Operations without
// conditions report 0.
func (r OperationResult) Percentage() float64 {
	covered, total := r.Counts()
	if total == 0 {
		return 0
	}
	return float64(covered) * 100.0 / float64(total)
}
