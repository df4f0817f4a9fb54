package contract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unbound-force/apicov/internal/model"
)

const petstoreV3 = `openapi: 3.0.3
info:
  title: Petstore
  version: 1.0.0
paths:
  /pets:
    parameters:
      - name: X-Trace
        in: header
        schema:
          type: string
    get:
      operationId: listPets
      parameters:
        - name: status
          in: query
          schema:
            type: string
            enum: [available, sold]
        - name: limit
          in: query
          example: 10
          schema:
            type: integer
      responses:
        "200":
          description: ok
        "404":
          description: not found
        default:
          description: error
    post:
      requestBody:
        required: true
        content:
          application/json:
            schema:
              $ref: '#/components/schemas/Pet'
      responses:
        "201":
          description: created
components:
  schemas:
    Pet:
      type: object
      properties:
        name:
          type: string
        tag:
          type: string
`

const petstoreV2 = `{
  "swagger": "2.0",
  "info": {"title": "Legacy", "version": "2"},
  "paths": {
    "/pets/{id}": {
      "put": {
        "parameters": [
          {"name": "id", "in": "path", "required": true, "type": "string", "x-example": "42"},
          {"name": "pet", "in": "body", "schema": {"$ref": "#/definitions/Pet"}}
        ],
        "responses": {"200": {"description": "ok"}}
      }
    }
  },
  "definitions": {
    "Pet": {"type": "object", "properties": {"name": {"type": "string"}}}
  }
}`

const swaggerYAMLIntCodes = `swagger: "2.0"
info:
  title: Codes
  version: "1"
paths:
  /x:
    get:
      responses:
        200:
          description: ok
`

const swaggerUnquotedVersion = `swagger: 2.0
info:
  title: Bare
  version: "1"
paths:
  /pets:
    get:
      responses:
        "200":
          description: ok
`

const swaggerForm = `swagger: "2.0"
info:
  title: Forms
  version: "1"
consumes: [application/x-www-form-urlencoded]
parameters:
  Nick:
    name: nick
    in: formData
    type: string
    x-example: rex
paths:
  /pets:
    post:
      parameters:
        - $ref: '#/parameters/Nick'
        - name: kind
          in: formData
          type: string
          enum: [cat, dog]
          default: cat
        - name: X-Trace
          in: header
          type: string
      responses:
        "201":
          description: created
`

func findOp(t *testing.T, c *model.Contract, method, path string) model.Operation {
	t.Helper()
	for _, op := range c.Operations {
		if op.Key == model.NewOperationKey(method, path) {
			return op
		}
	}
	t.Fatalf("operation %s %s not found", method, path)
	return model.Operation{}
}

func TestParse_OpenAPI3(t *testing.T) {
	c, err := Parse([]byte(petstoreV3))
	require.NoError(t, err)

	assert.Equal(t, "Petstore", c.Info.Title)
	require.Len(t, c.Operations, 2)
	assert.Equal(t, "GET /pets", c.Operations[0].Key.String(), "operations are sorted")

	get := findOp(t, c, "GET", "/pets")
	assert.Equal(t, "listPets", get.OperationID)

	trace, ok := model.FindParameter(get.Parameters, "X-Trace", model.InHeader)
	require.True(t, ok, "path-level parameter is inherited")
	assert.False(t, trace.Required)

	status, ok := model.FindParameter(get.Parameters, "status", model.InQuery)
	require.True(t, ok)
	assert.Equal(t, []string{"available", "sold"}, status.Enum)

	limit, _ := model.FindParameter(get.Parameters, "limit", model.InQuery)
	assert.Equal(t, "10", limit.Value)

	assert.Len(t, get.Responses, 3)
	assert.Equal(t, "not found", get.Responses["404"].Description)

	post := findOp(t, c, "POST", "/pets")
	body, ok := post.Body()
	require.True(t, ok)
	assert.True(t, body.Required)
	assert.Equal(t, []string{"name", "tag"}, body.Properties)
}

func TestParse_Swagger2(t *testing.T) {
	c, err := Parse([]byte(petstoreV2))
	require.NoError(t, err)

	assert.Equal(t, "Legacy", c.Info.Title)
	op := findOp(t, c, "PUT", "/pets/{id}")

	id, ok := model.FindParameter(op.Parameters, "id", model.InPath)
	require.True(t, ok)
	assert.Equal(t, "42", id.Value, "x-example carries the sent value")

	body, ok := op.Body()
	require.True(t, ok, "body parameter becomes the synthetic body")
	assert.Equal(t, []string{"name"}, body.Properties)
	assert.Contains(t, op.Responses, "200")
}

func TestParse_Swagger2YAMLIntegerCodes(t *testing.T) {
	c, err := Parse([]byte(swaggerYAMLIntCodes))
	require.NoError(t, err)
	op := findOp(t, c, "GET", "/x")
	assert.Contains(t, op.Responses, "200")
}

func TestParse_Swagger2UnquotedVersion(t *testing.T) {
	c, err := Parse([]byte(swaggerUnquotedVersion))
	require.NoError(t, err)
	assert.Equal(t, "Bare", c.Info.Title)
	op := findOp(t, c, "GET", "/pets")
	assert.Contains(t, op.Responses, "200")
}

func TestParse_Swagger2FormData(t *testing.T) {
	c, err := Parse([]byte(swaggerForm))
	require.NoError(t, err)
	op := findOp(t, c, "POST", "/pets")

	_, ok := op.Body()
	assert.False(t, ok, "form fields replace the synthesised body")

	nick, ok := model.FindParameter(op.Parameters, "nick", model.InFormData)
	require.True(t, ok, "referenced form parameter is resolved")
	assert.Equal(t, "rex", nick.Value)

	kind, ok := model.FindParameter(op.Parameters, "kind", model.InFormData)
	require.True(t, ok)
	assert.Equal(t, []string{"cat", "dog"}, kind.Enum)
	assert.Equal(t, "cat", kind.Value, "default stands in for a missing example")

	_, ok = model.FindParameter(op.Parameters, "X-Trace", model.InHeader)
	assert.True(t, ok, "non-form parameters are kept")
}

func TestParse_Unrecognised(t *testing.T) {
	_, err := Parse([]byte("title: nothing\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognised document")

	_, err = Parse([]byte("{not yaml"))
	require.Error(t, err)
}

func TestLoad_ContractErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	var ce *ContractError
	require.ErrorAs(t, err, &ce)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("openapi: 3.0.0\ninfo:\n  title: t\n  version: v\npaths: {}\n"), 0o600))
	_, err = Load(empty)
	require.ErrorAs(t, err, &ce)
	assert.True(t, errors.Is(err, ErrNoOperations))

	ok := filepath.Join(dir, "ok.yaml")
	require.NoError(t, os.WriteFile(ok, []byte(petstoreV3), 0o600))
	c, err := Load(ok)
	require.NoError(t, err)
	assert.Len(t, c.Operations, 2)
}

func TestLoadCapture(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "capture.json")
	require.NoError(t, os.WriteFile(path, []byte(petstoreV2), 0o600))

	holder, err := LoadCapture(path)
	require.NoError(t, err)
	_, ok := holder[model.NewOperationKey("PUT", "/pets/{id}")]
	assert.True(t, ok)

	_, err = LoadCapture(filepath.Join(dir, "nope.json"))
	assert.Error(t, err)
}
