// Package contract parses OpenAPI 3 and Swagger 2 documents into the
// model used by coverage generation. The same parser reads contracts
// and captures: a capture is a small document describing exactly the
// operations, parameters and responses that were observed.
package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/unbound-force/apicov/internal/model"
)

// ErrNoOperations is wrapped by ContractError when a contract parses
// but declares no operations.
var ErrNoOperations = errors.New("contract declares no operations")

// ContractError reports a contract that cannot be used. It is fatal
// for a run.
type ContractError struct {
	Path string
	Err  error
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("contract %q: %v", e.Path, e.Err)
}

func (e *ContractError) Unwrap() error { return e.Err }

// Load reads and parses the contract at path. Any failure, including
// a contract without operations, is returned as a *ContractError.
func Load(path string) (*model.Contract, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, &ContractError{Path: path, Err: err}
	}
	c, err := Parse(data)
	if err != nil {
		return nil, &ContractError{Path: path, Err: err}
	}
	if len(c.Operations) == 0 {
		return nil, &ContractError{Path: path, Err: ErrNoOperations}
	}
	return c, nil
}

// LoadCapture reads one capture source and indexes its operations.
// The file is closed before returning.
func LoadCapture(path string) (model.OperationsHolder, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return c.Holder(), nil
}

// header is the minimal shape used to detect the document version.
type header struct {
	Swagger string `yaml:"swagger"`
	OpenAPI string `yaml:"openapi"`
}

// Parse converts a JSON or YAML document into a Contract. Swagger 2
// documents are converted to OpenAPI 3 first.
func Parse(data []byte) (*model.Contract, error) {
	var h header
	if err := yaml.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}

	var (
		doc   *openapi3.T
		forms map[model.OperationKey][]model.Parameter
		err   error
	)
	switch {
	case strings.HasPrefix(h.Swagger, "2."):
		doc, forms, err = parseV2(data, h.Swagger)
	case strings.HasPrefix(h.OpenAPI, "3."):
		loader := openapi3.NewLoader()
		loader.IsExternalRefsAllowed = false
		doc, err = loader.LoadFromData(data)
	default:
		return nil, fmt.Errorf("unrecognised document: missing \"swagger: 2.x\" or \"openapi: 3.x\"")
	}
	if err != nil {
		return nil, err
	}
	c := fromV3(doc)
	applyFormParameters(c, forms)
	return c, nil
}

// parseV2 decodes a Swagger 2 document, converts it to OpenAPI 3 and
// resolves its references. version is the "swagger" value as read by
// Parse from the header; it replaces a bare YAML number such as 2.0. The
// formData parameters are returned separately since the conversion
// folds them into a request body.
func parseV2(data []byte, version string) (*openapi3.T, map[model.OperationKey][]model.Parameter, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("decoding swagger document: %w", err)
	}
	norm := normalize(raw)
	if m, ok := norm.(map[string]any); ok {
		if _, isString := m["swagger"].(string); !isString {
			m["swagger"] = version
		}
	}
	jsonData, err := json.Marshal(norm)
	if err != nil {
		return nil, nil, fmt.Errorf("re-encoding swagger document: %w", err)
	}

	var doc2 openapi2.T
	if err := json.Unmarshal(jsonData, &doc2); err != nil {
		return nil, nil, fmt.Errorf("decoding swagger document: %w", err)
	}
	forms := formParameters(&doc2)

	doc3, err := openapi2conv.ToV3(&doc2)
	if err != nil {
		return nil, nil, fmt.Errorf("converting swagger document: %w", err)
	}
	if err := openapi3.NewLoader().ResolveRefsIn(doc3, nil); err != nil {
		return nil, nil, fmt.Errorf("resolving references: %w", err)
	}
	return doc3, forms, nil
}

// normalize turns YAML maps with non-string keys (status codes written
// as bare integers) into JSON-compatible maps.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalize(val)
		}
		return m
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	default:
		return v
	}
}

// fromV3 maps an OpenAPI 3 document onto the model. Operations are
// sorted by key.
func fromV3(doc *openapi3.T) *model.Contract {
	c := &model.Contract{}
	if doc.Info != nil {
		c.Info = model.Info{
			Title:       doc.Info.Title,
			Version:     doc.Info.Version,
			Description: doc.Info.Description,
		}
	}
	if doc.Paths == nil {
		return c
	}

	for path, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			if op == nil {
				continue
			}
			c.Operations = append(c.Operations, convertOperation(method, path, item.Parameters, op))
		}
	}
	sort.Slice(c.Operations, func(i, j int) bool {
		return c.Operations[i].Key.Compare(c.Operations[j].Key) < 0
	})
	return c
}

func convertOperation(method, path string, shared openapi3.Parameters, op *openapi3.Operation) model.Operation {
	out := model.Operation{
		Key:         model.NewOperationKey(method, path),
		OperationID: op.OperationID,
		Summary:     op.Summary,
		Tags:        op.Tags,
		Responses:   map[string]model.Response{},
	}

	// Operation-level parameters override path-level ones with the
	// same name and location.
	for _, p := range mergeParameters(shared, op.Parameters) {
		out.Parameters = append(out.Parameters, convertParameter(p))
	}
	if body, ok := convertBody(op.RequestBody); ok {
		out.Parameters = append(out.Parameters, body)
	}

	if op.Responses != nil {
		for code, ref := range op.Responses.Map() {
			resp := model.Response{Code: code}
			if ref != nil && ref.Value != nil && ref.Value.Description != nil {
				resp.Description = *ref.Value.Description
			}
			out.Responses[code] = resp
		}
	}
	return out
}

func mergeParameters(shared, own openapi3.Parameters) []*openapi3.Parameter {
	type key struct{ name, in string }
	var (
		order []key
		byKey = map[key]*openapi3.Parameter{}
	)
	for _, list := range []openapi3.Parameters{shared, own} {
		for _, ref := range list {
			if ref == nil || ref.Value == nil {
				continue
			}
			k := key{ref.Value.Name, ref.Value.In}
			if _, seen := byKey[k]; !seen {
				order = append(order, k)
			}
			byKey[k] = ref.Value
		}
	}
	out := make([]*openapi3.Parameter, 0, len(order))
	for _, k := range order {
		out = append(out, byKey[k])
	}
	return out
}

func convertParameter(p *openapi3.Parameter) model.Parameter {
	out := model.Parameter{
		Name:     p.Name,
		In:       model.Location(p.In),
		Required: p.Required,
		Value:    parameterValue(p),
	}
	if p.Schema != nil && p.Schema.Value != nil {
		out.Enum = enumValues(p.Schema.Value)
	}
	return out
}

// parameterValue returns the value a capture recorded for p: the
// parameter example, then x-example, then the schema example or
// default.
func parameterValue(p *openapi3.Parameter) string {
	if p.Example != nil {
		return scalar(p.Example)
	}
	if v, ok := p.Extensions["x-example"]; ok && v != nil {
		return scalar(v)
	}
	if p.Schema != nil && p.Schema.Value != nil {
		if p.Schema.Value.Example != nil {
			return scalar(p.Schema.Value.Example)
		}
		if p.Schema.Value.Default != nil {
			return scalar(p.Schema.Value.Default)
		}
	}
	return ""
}

func enumValues(s *openapi3.Schema) []string {
	values := s.Enum
	if len(values) == 0 && s.Items != nil && s.Items.Value != nil {
		values = s.Items.Value.Enum
	}
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, scalar(v))
	}
	return out
}

// convertBody builds the synthetic body parameter. The properties are
// those of the JSON media type when declared, else of the first media
// type in name order.
func convertBody(ref *openapi3.RequestBodyRef) (model.Parameter, bool) {
	if ref == nil || ref.Value == nil {
		return model.Parameter{}, false
	}
	body := model.Parameter{
		Name:     model.BodyParameterName,
		In:       model.InBody,
		Required: ref.Value.Required,
	}

	media := ref.Value.Content.Get("application/json")
	if media == nil {
		types := make([]string, 0, len(ref.Value.Content))
		for t := range ref.Value.Content {
			types = append(types, t)
		}
		sort.Strings(types)
		if len(types) > 0 {
			media = ref.Value.Content[types[0]]
		}
	}
	if media != nil && media.Schema != nil && media.Schema.Value != nil {
		for name := range media.Schema.Value.Properties {
			body.Properties = append(body.Properties, name)
		}
		sort.Strings(body.Properties)
	}
	return body, true
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
