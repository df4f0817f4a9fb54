// Package model defines the API data model shared by contracts and
// captured calls: operation identity, parameters, request bodies and
// responses.
package model

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Location enumerates where a parameter is carried in a request.
type Location string

// Parameter location constants.
const (
	InQuery  Location = "query"
	InHeader Location = "header"
	InPath   Location = "path"
	InCookie Location = "cookie"

	// InFormData is a Swagger 2 form field, sent in a
	// form-encoded or multipart body.
	InFormData Location = "formData"

	// InBody marks the synthetic parameter that represents a request
	// body. A captured call sent a body iff it carries an InBody
	// parameter.
	InBody Location = "body"
)

// BodyParameterName is the name given to the synthetic body parameter.
const BodyParameterName = "body"

// OperationKey identifies an operation by HTTP method and path
// template. It is the join key between contract operations and
// captured operations.
type OperationKey struct {
	// Method is the upper-case HTTP method.
	Method string `json:"method"`

	// Path is the path template as written in the document
	// (e.g. "/pets/{id}").
	Path string `json:"path"`
}

// NewOperationKey normalizes the method to upper case.
func NewOperationKey(method, path string) OperationKey {
	return OperationKey{Method: strings.ToUpper(method), Path: path}
}

// String renders the key as "GET /pets".
func (k OperationKey) String() string {
	return fmt.Sprintf("%s %s", k.Method, k.Path)
}

// Compare orders keys by path, then method.
func (k OperationKey) Compare(other OperationKey) int {
	if c := cmp.Compare(k.Path, other.Path); c != 0 {
		return c
	}
	return cmp.Compare(k.Method, other.Method)
}

// ParseOperationKey is the inverse of OperationKey.String.
func ParseOperationKey(s string) (OperationKey, error) {
	method, path, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok || method == "" || path == "" {
		return OperationKey{}, fmt.Errorf("invalid operation key %q: want \"METHOD /path\"", s)
	}
	return NewOperationKey(method, strings.TrimSpace(path)), nil
}

// Parameter is a declared (contract) or sent (capture) parameter.
type Parameter struct {
	// Name is the parameter name. Header names are compared
	// case-insensitively, see SameParameter.
	Name string `json:"name"`

	// In is the parameter location.
	In Location `json:"in"`

	// Required is the declared requiredness. Meaningless on captures.
	Required bool `json:"required,omitempty"`

	// Enum lists declared enumerated values, rendered as strings.
	Enum []string `json:"enum,omitempty"`

	// Value is the value actually sent. Only set on captures.
	Value string `json:"value,omitempty"`

	// Properties lists top-level schema properties. Only set on the
	// InBody parameter, sorted.
	Properties []string `json:"properties,omitempty"`
}

// SameParameter reports whether p is the parameter (name, in).
func (p Parameter) SameParameter(name string, in Location) bool {
	if p.In != in {
		return false
	}
	if in == InHeader {
		return strings.EqualFold(p.Name, name)
	}
	return p.Name == name
}

// FindParameter returns the first parameter matching (name, in).
func FindParameter(params []Parameter, name string, in Location) (Parameter, bool) {
	for _, p := range params {
		if p.SameParameter(name, in) {
			return p, true
		}
	}
	return Parameter{}, false
}

// Response is a declared or received response, keyed by status code.
type Response struct {
	// Code is the status code as written ("200", "404", "default").
	Code string `json:"code"`

	// Description is the declared description, if any.
	Description string `json:"description,omitempty"`
}

// Operation is one method on one path, either as declared by the
// contract or as observed in a capture.
type Operation struct {
	Key         OperationKey        `json:"key"`
	OperationID string              `json:"operationId,omitempty"`
	Summary     string              `json:"summary,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
	Parameters  []Parameter         `json:"parameters"`
	Responses   map[string]Response `json:"responses"`
}

// Body returns the synthetic body parameter, if present.
func (o Operation) Body() (Parameter, bool) {
	return FindParameter(o.Parameters, BodyParameterName, InBody)
}

// Info describes the contract document.
type Info struct {
	Title       string `json:"title"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

// Contract is a parsed API description. Operations are sorted by key.
type Contract struct {
	Info       Info
	Operations []Operation
}

// OperationsHolder maps the operations observed in one capture source.
// It is built fresh per source and consumed immediately by matching.
type OperationsHolder map[OperationKey]Operation

// Holder indexes the contract's operations by key.
func (c *Contract) Holder() OperationsHolder {
	h := make(OperationsHolder, len(c.Operations))
	for _, op := range c.Operations {
		h[op.Key] = op
	}
	return h
}

// SortedKeys returns the holder's keys in OperationKey order.
func (h OperationsHolder) SortedKeys() []OperationKey {
	keys := make([]OperationKey, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	SortKeys(keys)
	return keys
}

// SortKeys sorts keys in place by OperationKey.Compare.
func SortKeys(keys []OperationKey) {
	slices.SortFunc(keys, func(a, b OperationKey) int { return a.Compare(b) })
}
