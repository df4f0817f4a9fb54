package predicate

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/unbound-force/apicov/internal/model"
)

// Env is the evaluation environment exposed to expression predicates.
//
// Example expressions:
//
//	Sent("X-Trace") && "201" in statuses
//	query.limit == "10"
//	"name" in body
type Env struct {
	Query    map[string]string `expr:"query"`
	Path     map[string]string `expr:"path"`
	Headers  map[string]string `expr:"headers"`
	Cookies  map[string]string `expr:"cookies"`
	Form     map[string]string `expr:"form"`
	Body     []string          `expr:"body"`
	HasBody  bool              `expr:"hasBody"`
	Statuses []string          `expr:"statuses"`
}

// Sent reports whether any parameter called name was sent. Header
// lookups are case-insensitive.
func (e Env) Sent(name string) bool {
	for _, m := range []map[string]string{e.Query, e.Path, e.Cookies, e.Form} {
		if _, ok := m[name]; ok {
			return true
		}
	}
	_, ok := e.Headers[strings.ToLower(name)]
	return ok
}

// Status reports whether the call received code.
func (e Env) Status(code string) bool {
	return slices.Contains(e.Statuses, code)
}

// NewEnv builds the expression environment for one captured call.
func NewEnv(params []model.Parameter, responses map[string]model.Response) Env {
	env := Env{
		Query:   map[string]string{},
		Path:    map[string]string{},
		Headers: map[string]string{},
		Cookies: map[string]string{},
		Form:    map[string]string{},
	}
	for _, p := range params {
		switch p.In {
		case model.InQuery:
			env.Query[p.Name] = p.Value
		case model.InPath:
			env.Path[p.Name] = p.Value
		case model.InHeader:
			env.Headers[strings.ToLower(p.Name)] = p.Value
		case model.InCookie:
			env.Cookies[p.Name] = p.Value
		case model.InFormData:
			env.Form[p.Name] = p.Value
		case model.InBody:
			env.HasBody = true
			env.Body = append(env.Body, p.Properties...)
		}
	}
	for code := range responses {
		env.Statuses = append(env.Statuses, code)
	}
	sort.Strings(env.Statuses)
	return env
}

// Expr is a predicate defined by an expr-lang boolean expression over
// Env.
type Expr struct {
	source  string
	program *vm.Program
}

// NewExpr compiles source. The expression must evaluate to a bool.
func NewExpr(source string) (*Expr, error) {
	program, err := expr.Compile(source, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compiling expression %q: %w", source, err)
	}
	return &Expr{source: source, program: program}, nil
}

// Check implements Predicate. Evaluation errors count as not satisfied.
func (e *Expr) Check(params []model.Parameter, responses map[string]model.Response) bool {
	out, err := expr.Run(e.program, NewEnv(params, responses))
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}

func (e *Expr) String() string { return "expr(" + e.source + ")" }
