package rule

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/unbound-force/apicov/internal/coverage"
	"github.com/unbound-force/apicov/internal/model"
	"github.com/unbound-force/apicov/internal/predicate"
)

// Rule IDs of the default rule set.
const (
	IDOperation         = "operation"
	IDNotEmptyParameter = "not-empty-parameter"
	IDEmptyHeader       = "empty-header"
	IDBody              = "body"
	IDStatus            = "status"
	IDEnum              = "enum"
)

// defaults is built once and never modified.
var defaults = []Rule{
	OperationRule{},
	PerParameter(IDNotEmptyParameter, NotEmptyParameter{}),
	PerParameter(IDEmptyHeader, EmptyHeader{}),
	BodyRule{},
	StatusRule{},
	EnumRule{},
}

// Defaults returns the default rule set in application order. The
// returned slice is a copy.
func Defaults() []Rule {
	out := make([]Rule, len(defaults))
	copy(out, defaults)
	return out
}

// DefaultIDs lists the IDs of the default rules.
func DefaultIDs() []string {
	ids := make([]string, 0, len(defaults))
	for _, r := range defaults {
		ids = append(ids, r.ID())
	}
	return ids
}

// OperationRule produces the OperationReached branch for every
// operation. The branch carries no predicates: any call that matches
// the operation key covers it.
type OperationRule struct{}

func (OperationRule) ID() string { return IDOperation }
func (OperationRule) Kind() Kind { return KindOperation }

func (OperationRule) Derive(model.Operation) Outcome {
	return Applies(coverage.NewBranch(coverage.OperationReached, ""))
}

// NotEmptyParameter produces one branch per query, path, cookie or
// formData parameter, covered when a call sends the parameter. Header
// and body parameters are handled by EmptyHeader and BodyRule.
type NotEmptyParameter struct{}

func (NotEmptyParameter) DeriveParameter(p model.Parameter) Outcome {
	switch p.In {
	case model.InQuery, model.InPath, model.InCookie, model.InFormData:
	default:
		return NotApplicable()
	}
	return Applies(coverage.NewBranch(
		fmt.Sprintf("Not empty «%s»", p.Name),
		fmt.Sprintf("%s parameter %s is sent", p.In, p.Name),
		predicate.NewPresence(false, p.Name, p.In),
	))
}

// EmptyHeader produces one branch per header parameter, covered when
// a call omits the header.
type EmptyHeader struct{}

func (EmptyHeader) DeriveParameter(p model.Parameter) Outcome {
	if p.In != model.InHeader {
		return NotApplicable()
	}
	return Applies(coverage.NewBranch(
		fmt.Sprintf("Empty header «%s»", p.Name),
		"",
		predicate.NewPresence(true, p.Name, p.In),
	))
}

// BodyRule produces a body-presence branch and one branch per
// top-level body property, for operations that declare a request body.
type BodyRule struct{}

func (BodyRule) ID() string { return IDBody }
func (BodyRule) Kind() Kind { return KindBody }

func (BodyRule) Derive(op model.Operation) Outcome {
	body, ok := op.Body()
	if !ok {
		return NotApplicable()
	}
	branches := []coverage.Branch{coverage.NewBranch(
		"Not empty body request",
		"a request body is sent",
		predicate.NewPresence(false, model.BodyParameterName, model.InBody),
	)}
	for _, prop := range body.Properties {
		branches = append(branches, coverage.NewBranch(
			fmt.Sprintf("Body property «%s»", prop),
			fmt.Sprintf("request body carries %s", prop),
			predicate.BodyProperty{Name: prop},
		))
	}
	return Applies(branches...)
}

// StatusRule produces one branch per declared response status code.
// The "default" response and range codes such as "4XX" are not
// concrete codes and are skipped.
type StatusRule struct{}

func (StatusRule) ID() string { return IDStatus }
func (StatusRule) Kind() Kind { return KindStatus }

func (StatusRule) Derive(op model.Operation) Outcome {
	var codes []string
	for code := range op.Responses {
		if _, err := strconv.Atoi(code); err == nil {
			codes = append(codes, code)
		}
	}
	if len(codes) == 0 {
		return NotApplicable()
	}
	sort.Strings(codes)

	branches := make([]coverage.Branch, 0, len(codes))
	for _, code := range codes {
		branches = append(branches, coverage.NewBranch(
			fmt.Sprintf("HTTP status «%s»", code),
			op.Responses[code].Description,
			predicate.Status{Code: code},
		))
	}
	return Applies(branches...)
}

// EnumRule produces one branch per declared enum value of each
// enumerated parameter, covered when a call sends exactly that value.
type EnumRule struct{}

func (EnumRule) ID() string { return IDEnum }
func (EnumRule) Kind() Kind { return KindEnum }

func (EnumRule) Derive(op model.Operation) Outcome {
	var branches []coverage.Branch
	for _, p := range op.Parameters {
		for _, v := range p.Enum {
			branches = append(branches, coverage.NewBranch(
				fmt.Sprintf("«%s» = «%s»", p.Name, v),
				fmt.Sprintf("%s parameter %s is sent with value %s", p.In, p.Name, v),
				predicate.Value{Name: p.Name, In: p.In, Value: v},
			))
		}
	}
	if len(branches) == 0 {
		return NotApplicable()
	}
	return Applies(branches...)
}
