package generator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unbound-force/apicov/internal/contract"
	"github.com/unbound-force/apicov/internal/coverage"
	"github.com/unbound-force/apicov/internal/model"
	"github.com/unbound-force/apicov/internal/rule"
)

const traceContract = `openapi: 3.0.3
info:
  title: Pets
  version: "1"
paths:
  /pets:
    get:
      parameters:
        - name: X-Trace
          in: header
          schema:
            type: string
`

const statusContract = `openapi: 3.0.3
info:
  title: Pets
  version: "1"
paths:
  /pets:
    get:
      responses:
        "200":
          description: ok
        "404":
          description: not found
`

const enumContract = `openapi: 3.0.3
info:
  title: Pets
  version: "1"
paths:
  /pets:
    get:
      parameters:
        - name: kind
          in: query
          schema:
            type: string
            enum: [A, B, C]
`

const captureNoTrace = `openapi: 3.0.3
info: {title: capture, version: "1"}
paths:
  /pets:
    get: {}
`

const captureWithTrace = `openapi: 3.0.3
info: {title: capture, version: "1"}
paths:
  /pets:
    get:
      parameters:
        - name: x-trace
          in: header
          example: abc
`

const captureStatus200 = `openapi: 3.0.3
info: {title: capture, version: "1"}
paths:
  /pets:
    get:
      responses:
        "200":
          description: ok
`

const captureMissed = `openapi: 3.0.3
info: {title: capture, version: "1"}
paths:
  /owners:
    delete: {}
`

func captureKind(value string) string {
	return `openapi: 3.0.3
info: {title: capture, version: "1"}
paths:
  /pets:
    get:
      parameters:
        - name: kind
          in: query
          example: ` + value + "\n"
}

type fixture struct {
	spec  string
	input string
}

func newFixture(t *testing.T, spec string, captures map[string]string) fixture {
	t.Helper()
	dir := t.TempDir()
	specPath := filepath.Join(dir, "openapi.yaml")
	require.NoError(t, os.WriteFile(specPath, []byte(spec), 0o600))

	input := filepath.Join(dir, "captures")
	require.NoError(t, os.MkdirAll(input, 0o755))
	for name, body := range captures {
		require.NoError(t, os.WriteFile(filepath.Join(input, name), []byte(body), 0o600))
	}
	return fixture{spec: specPath, input: input}
}

func (f fixture) run(t *testing.T) *coverage.Results {
	t.Helper()
	res, err := New(Options{SpecPath: f.spec, InputPath: f.input}).Run(context.Background())
	require.NoError(t, err)
	return res
}

func conditionStates(t *testing.T, res *coverage.Results, key string) map[string]bool {
	t.Helper()
	for _, op := range res.Operations {
		if op.Operation.Key.String() == key {
			out := map[string]bool{}
			for _, c := range op.Conditions {
				out[c.Name] = c.Covered
			}
			return out
		}
	}
	t.Fatalf("operation %s not in results", key)
	return nil
}

func TestRun_AbsentHeaderCoversBoth(t *testing.T) {
	res := newFixture(t, traceContract, map[string]string{"a.yaml": captureNoTrace}).run(t)

	assert.Equal(t, map[string]bool{
		"operation reached":     true,
		"Empty header «X-Trace»": true,
	}, conditionStates(t, res, "GET /pets"))
}

func TestRun_PresentHeaderCoversOnlyReached(t *testing.T) {
	res := newFixture(t, traceContract, map[string]string{"a.yaml": captureWithTrace}).run(t)

	assert.Equal(t, map[string]bool{
		"operation reached":     true,
		"Empty header «X-Trace»": false,
	}, conditionStates(t, res, "GET /pets"))
}

func TestRun_UncapturedStatusStaysUncovered(t *testing.T) {
	res := newFixture(t, statusContract, map[string]string{"a.yaml": captureStatus200}).run(t)

	states := conditionStates(t, res, "GET /pets")
	assert.True(t, states["HTTP status «200»"])
	assert.False(t, states["HTTP status «404»"])
	assert.Equal(t, int64(1), res.Statistics.ResultFileCount)
	assert.Zero(t, res.Statistics.FailedFileCount)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "Pets", res.Info.Title)
}

func TestRun_EnumValues(t *testing.T) {
	res := newFixture(t, enumContract, map[string]string{
		"1.yaml": captureKind("A"),
		"2.yaml": captureKind("B"),
		"3.yaml": captureKind("C"),
	}).run(t)

	states := conditionStates(t, res, "GET /pets")
	for _, v := range []string{"A", "B", "C"} {
		assert.True(t, states["«kind» = «"+v+"»"], "value %s", v)
	}
	assert.Equal(t, int64(3), res.Statistics.ResultFileCount)
}

func TestRun_FailedCaptureIsCountedNotFatal(t *testing.T) {
	res := newFixture(t, traceContract, map[string]string{
		"a.yaml":   captureNoTrace,
		"bad.json": "{not a document",
	}).run(t)

	assert.Equal(t, int64(1), res.Statistics.ResultFileCount)
	assert.Equal(t, int64(1), res.Statistics.FailedFileCount)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "bad.json")
}

// lockDir creates dir with no permissions. Tests using it are skipped
// when the process can read the directory anyway (running as root).
func lockDir(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hidden.yaml"), []byte(captureNoTrace), 0o600))
	require.NoError(t, os.Chmod(dir, 0o000))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })
	if _, err := os.ReadDir(dir); err == nil {
		t.Skip("directory permissions are not enforced for this user")
	}
}

func TestRun_UnreadableDirectoryIsCountedNotFatal(t *testing.T) {
	f := newFixture(t, traceContract, map[string]string{"a.yaml": captureNoTrace})
	lockDir(t, filepath.Join(f.input, "locked"))

	res := f.run(t)

	assert.Equal(t, int64(1), res.Statistics.ResultFileCount)
	assert.Equal(t, int64(1), res.Statistics.FailedFileCount)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "locked")
	assert.True(t, conditionStates(t, res, "GET /pets")["operation reached"],
		"readable captures are still matched")
}

const formContract = `swagger: 2.0
info:
  title: Forms
  version: "1"
paths:
  /pets:
    post:
      consumes: [application/x-www-form-urlencoded]
      parameters:
        - name: nick
          in: formData
          type: string
        - name: kind
          in: formData
          type: string
          enum: [cat, dog]
      responses:
        "201":
          description: created
`

const formCapture = `swagger: 2.0
info: {title: capture, version: "1"}
paths:
  /pets:
    post:
      consumes: [application/x-www-form-urlencoded]
      parameters:
        - name: nick
          in: formData
          type: string
          x-example: rex
      responses:
        "201":
          description: created
`

func TestRun_Swagger2FormFields(t *testing.T) {
	res := newFixture(t, formContract, map[string]string{"a.yaml": formCapture}).run(t)

	assert.Equal(t, map[string]bool{
		"operation reached": true,
		"Not empty «nick»":  true,
		"Not empty «kind»":  false,
		"HTTP status «201»": true,
		"«kind» = «cat»":    false,
		"«kind» = «dog»":    false,
	}, conditionStates(t, res, "POST /pets"))
}

func TestRun_MissedOperation(t *testing.T) {
	res := newFixture(t, traceContract, map[string]string{
		"a.yaml": captureNoTrace,
		"b.yaml": captureMissed,
	}).run(t)

	missedKey := model.NewOperationKey("DELETE", "/owners")
	assert.Contains(t, res.Missed, missedKey)
	assert.NotContains(t, res.Missed, model.NewOperationKey("GET", "/pets"))
	for _, op := range res.Operations {
		assert.NotEqual(t, missedKey, op.Operation.Key)
	}
}

func TestRun_ContractErrorIsFatal(t *testing.T) {
	f := newFixture(t, "openapi: 3.0.0\ninfo: {title: t, version: v}\npaths: {}\n", nil)
	_, err := New(Options{SpecPath: f.spec, InputPath: f.input}).Run(context.Background())

	var ce *contract.ContractError
	require.ErrorAs(t, err, &ce)
	assert.True(t, errors.Is(err, contract.ErrNoOperations))
}

func TestRun_ParallelReadsMatchSequential(t *testing.T) {
	captures := map[string]string{
		"1.yaml": captureKind("A"),
		"2.yaml": captureKind("B"),
		"3.yaml": captureMissed,
		"4.json": "nope",
	}
	f := newFixture(t, enumContract, captures)

	seq, err := New(Options{SpecPath: f.spec, InputPath: f.input, Workers: 1}).Run(context.Background())
	require.NoError(t, err)
	par, err := New(Options{SpecPath: f.spec, InputPath: f.input, Workers: 4}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, seq.Operations, par.Operations)
	assert.Equal(t, seq.Errors, par.Errors)
	assert.Equal(t, seq.Statistics.ResultFileCount, par.Statistics.ResultFileCount)
}

func TestRun_CancelledContext(t *testing.T) {
	f := newFixture(t, traceContract, map[string]string{"a.yaml": captureNoTrace})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{SpecPath: f.spec, InputPath: f.input}).Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRun_DisabledRules(t *testing.T) {
	f := newFixture(t, traceContract, map[string]string{"a.yaml": captureNoTrace})
	rules := rule.Filter(rule.Defaults(), []string{rule.IDEmptyHeader})

	res, err := New(Options{SpecPath: f.spec, InputPath: f.input, Rules: rules}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"operation reached": true}, conditionStates(t, res, "GET /pets"))
}
