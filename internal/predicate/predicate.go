// Package predicate implements branch predicates: the checks that
// decide whether a single captured call exercised a branch.
package predicate

import (
	"fmt"
	"slices"

	"github.com/unbound-force/apicov/internal/model"
)

// Predicate answers whether one captured call satisfies the condition
// it contributes to. params are the parameters as sent, responses are
// the responses received keyed by status code.
type Predicate interface {
	Check(params []model.Parameter, responses map[string]model.Response) bool
	fmt.Stringer
}

// All reports whether every predicate holds for the same call. It
// stops at the first failure. An empty list holds.
func All(preds []Predicate, params []model.Parameter, responses map[string]model.Response) bool {
	for _, p := range preds {
		if !p.Check(params, responses) {
			return false
		}
	}
	return true
}

// Presence checks whether a parameter was sent.
//
// Empty selects the polarity: with Empty set the predicate holds when
// the parameter is absent from the call, otherwise it holds when the
// parameter is present. Every rule in this module uses that one
// convention.
type Presence struct {
	Empty bool
	Name  string
	In    model.Location
}

// NewPresence builds a Presence predicate.
func NewPresence(empty bool, name string, in model.Location) Presence {
	return Presence{Empty: empty, Name: name, In: in}
}

// Check implements Predicate.
func (p Presence) Check(params []model.Parameter, _ map[string]model.Response) bool {
	_, found := model.FindParameter(params, p.Name, p.In)
	return found != p.Empty
}

func (p Presence) String() string {
	if p.Empty {
		return fmt.Sprintf("absent(%s %s)", p.In, p.Name)
	}
	return fmt.Sprintf("present(%s %s)", p.In, p.Name)
}

// Status holds when the call received a response with Code.
type Status struct {
	Code string
}

// Check implements Predicate.
func (s Status) Check(_ []model.Parameter, responses map[string]model.Response) bool {
	_, ok := responses[s.Code]
	return ok
}

func (s Status) String() string { return "status(" + s.Code + ")" }

// Value holds when the parameter (Name, In) was sent with exactly Value.
type Value struct {
	Name  string
	In    model.Location
	Value string
}

// Check implements Predicate.
func (v Value) Check(params []model.Parameter, _ map[string]model.Response) bool {
	p, ok := model.FindParameter(params, v.Name, v.In)
	return ok && p.Value == v.Value
}

func (v Value) String() string {
	return fmt.Sprintf("value(%s %s = %s)", v.In, v.Name, v.Value)
}

// BodyProperty holds when the call sent a body carrying Name as a
// top-level property.
type BodyProperty struct {
	Name string
}

// Check implements Predicate.
func (b BodyProperty) Check(params []model.Parameter, _ map[string]model.Response) bool {
	body, ok := model.FindParameter(params, model.BodyParameterName, model.InBody)
	return ok && slices.Contains(body.Properties, b.Name)
}

func (b BodyProperty) String() string { return "body-property(" + b.Name + ")" }
