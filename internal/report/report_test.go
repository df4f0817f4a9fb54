package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/unbound-force/apicov/internal/coverage"
	"github.com/unbound-force/apicov/internal/model"
)

func sampleResults() *coverage.Results {
	pets := model.NewOperationKey("GET", "/pets")
	pet := model.NewOperationKey("GET", "/pets/{id}")
	owners := model.NewOperationKey("DELETE", "/owners/{id}")

	return &coverage.Results{
		RunID: "run-1",
		Info:  model.Info{Title: "Petstore", Version: "1.0.0"},
		Operations: []coverage.OperationResult{
			{
				Operation: model.Operation{Key: pets, OperationID: "listPets"},
				Conditions: []coverage.ConditionResult{
					{Name: "operation reached", Covered: true},
					{Name: "Empty header «X-Trace»", Covered: false},
					{Name: "HTTP status «200»", Description: "ok", Covered: true},
				},
			},
			{
				Operation: model.Operation{Key: pet},
				Conditions: []coverage.ConditionResult{
					{Name: "operation reached", Covered: true},
					{Name: "Not empty «id»", Description: strings.Repeat("long ", 30), Covered: true},
				},
			},
		},
		Missed: map[model.OperationKey]model.Operation{
			owners: {
				Key:        owners,
				Parameters: []model.Parameter{{Name: "id", In: model.InPath}},
				Responses:  map[string]model.Response{"204": {Code: "204"}},
			},
		},
		Statistics: coverage.GenerationStatistics{
			ResultFileCount: 3,
			FailedFileCount: 1,
			GenerationTime:  1500 * time.Millisecond,
		},
		Errors: []string{`capture "runs/bad.json": yaml: line 1: did not find expected node content`},
	}
}

func sampleDocument() *Document {
	return Build(sampleResults(), "0.1.0")
}

func compileSchema(t *testing.T) *jsonschema.Schema {
	t.Helper()
	sch, err := jsonschema.UnmarshalJSON(strings.NewReader(Schema))
	if err != nil {
		t.Fatalf("failed to parse schema JSON: %v", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", sch); err != nil {
		t.Fatalf("failed to add schema resource: %v", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		t.Fatalf("failed to compile schema: %v", err)
	}
	return compiled
}

func TestBuild_StatesAndCounts(t *testing.T) {
	doc := sampleDocument()

	if len(doc.Operations) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(doc.Operations))
	}
	first := doc.Operations[0]
	if first.State != StatePartial || first.Covered != 2 || first.Total != 3 {
		t.Errorf("GET /pets: got state=%s %d/%d, want partial 2/3",
			first.State, first.Covered, first.Total)
	}
	if doc.Operations[1].State != StateFull {
		t.Errorf("GET /pets/{id}: got state %s, want full", doc.Operations[1].State)
	}

	missed, ok := doc.Missed["DELETE /owners/{id}"]
	if !ok {
		t.Fatal("missed map lacks DELETE /owners/{id}")
	}
	if len(missed.Parameters) != 1 || missed.Parameters[0] != "path id" {
		t.Errorf("missed parameters = %v, want [path id]", missed.Parameters)
	}
	if doc.Summary.CoveredConditions != 4 || doc.Summary.Conditions != 5 {
		t.Errorf("summary = %d/%d, want 4/5",
			doc.Summary.CoveredConditions, doc.Summary.Conditions)
	}
}

func TestWriteJSON_StableFieldNames(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleDocument()); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v\noutput:\n%s", err, buf.String())
	}
	stats, ok := parsed["generationStatistics"].(map[string]any)
	if !ok {
		t.Fatal("missing generationStatistics object")
	}
	if stats["resultFileCount"] != float64(3) {
		t.Errorf("resultFileCount = %v, want 3", stats["resultFileCount"])
	}
	if stats["generationTime"] != float64(1500) {
		t.Errorf("generationTime = %v, want 1500", stats["generationTime"])
	}
	if _, ok := parsed["missed"].(map[string]any); !ok {
		t.Error("missing missed object")
	}
}

func TestWriteJSON_ValidAgainstSchema(t *testing.T) {
	compiled := compileSchema(t)

	for name, doc := range map[string]*Document{
		"sample": sampleDocument(),
		"empty":  Build(&coverage.Results{}, "dev"),
	} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteJSON(&buf, doc); err != nil {
				t.Fatalf("WriteJSON failed: %v", err)
			}
			inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(buf.Bytes()))
			if err != nil {
				t.Fatalf("failed to parse JSON output: %v", err)
			}
			if err := compiled.Validate(inst); err != nil {
				t.Errorf("JSON output does not conform to schema:\n%v", err)
			}
		})
	}
}

func TestReadJSON_RoundTrip(t *testing.T) {
	doc := sampleDocument()
	var buf bytes.Buffer
	if err := WriteJSON(&buf, doc); err != nil {
		t.Fatal(err)
	}

	back, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if back.RunID != "run-1" || back.Summary.Percentage != doc.Summary.Percentage {
		t.Errorf("round trip lost data: %+v", back.Summary)
	}
	if back.GenerationStatistics.GenerationTime != 1500*time.Millisecond {
		t.Errorf("generationTime = %v, want 1.5s", back.GenerationStatistics.GenerationTime)
	}

	if _, err := ReadJSON(strings.NewReader("{")); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

// stripANSI removes ANSI escape sequences from text for width measurement.
var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

func TestWriteText_Content(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, sampleDocument()); err != nil {
		t.Fatal(err)
	}
	output := stripANSI(buf.String())

	for _, want := range []string{
		"=== GET /pets ===",
		"Empty header «X-Trace»",
		"2/3 conditions covered",
		"=== Missed operations ===",
		"DELETE /owners/{id}",
		"=== Unreadable captures ===",
		"1 failed",
		"1500 ms",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("text output missing %q", want)
		}
	}
}

func TestWriteText_FitsIn80Columns(t *testing.T) {
	doc := sampleDocument()
	doc.Operations[0].Conditions = append(doc.Operations[0].Conditions, coverage.ConditionResult{
		Name: "Body property «" + strings.Repeat("nested", 20) + "»",
	})

	var buf bytes.Buffer
	if err := WriteText(&buf, doc); err != nil {
		t.Fatal(err)
	}

	const maxWidth = 80
	lines := strings.Split(buf.String(), "\n")
	for i, line := range lines {
		plain := stripANSI(line)
		width := utf8.RuneCountInString(plain)
		if width > maxWidth {
			t.Errorf("line %d exceeds %d columns (%d runes): %q",
				i+1, maxWidth, width, plain)
		}
	}
}

func TestWriteHTML_EscapesAndRenders(t *testing.T) {
	doc := sampleDocument()
	doc.Info.Title = "<script>alert(1)</script>"

	var buf bytes.Buffer
	if err := WriteHTML(&buf, doc); err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}
	output := buf.String()

	if strings.Contains(output, "<script>alert(1)</script>") {
		t.Error("title was not escaped")
	}
	for _, want := range []string{"GET /pets", "DELETE /owners/{id}", "path id", "1500 ms"} {
		if !strings.Contains(output, want) {
			t.Errorf("html output missing %q", want)
		}
	}
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := WriteFiles(dir, sampleDocument())
	if err != nil {
		t.Fatalf("WriteFiles: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 files, got %v", paths)
	}

	doc, err := ReadFile(filepath.Join(dir, ResultsFileName))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(doc.Operations) != 2 {
		t.Errorf("persisted report has %d operations, want 2", len(doc.Operations))
	}
	if _, err := os.Stat(filepath.Join(dir, HTMLFileName)); err != nil {
		t.Errorf("html report not written: %v", err)
	}
}

func TestWriteMetrics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apicov.prom")
	if err := WriteMetrics(path, sampleDocument()); err != nil {
		t.Fatalf("WriteMetrics: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	output := string(data)
	for _, want := range []string{
		"apicov_conditions_total 5",
		"apicov_conditions_covered 4",
		"apicov_missed_operations 1",
		"apicov_generation_seconds 1.5",
		`apicov_operation_coverage_ratio{operation="GET /pets/{id}"} 1`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("metrics missing %q\n%s", want, output)
		}
	}
}

func TestWriteLog(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf)
	WriteLog(logger, sampleDocument())

	output := buf.String()
	for _, want := range []string{"operation not fully covered", "GET /pets", "DELETE /owners/{id}", "unreadable captures"} {
		if !strings.Contains(output, want) {
			t.Errorf("log output missing %q\n%s", want, output)
		}
	}
	if strings.Contains(output, "GET /pets/{id}") {
		t.Error("fully covered operation should not be logged")
	}
}

func TestCompare(t *testing.T) {
	prev := sampleDocument()
	next := Build(sampleResults(), "0.1.0")
	next.Operations[0].Conditions[1].Covered = true
	next.Operations[1].Conditions[1].Covered = false
	next.Operations[1].Conditions = append(next.Operations[1].Conditions,
		coverage.ConditionResult{Name: "HTTP status «404»"})
	next.Summary.Percentage = 50

	d := Compare(prev, next)

	want := ConditionRef{Operation: "GET /pets", Condition: "Empty header «X-Trace»"}
	if len(d.NewlyCovered) != 1 || d.NewlyCovered[0] != want {
		t.Errorf("NewlyCovered = %v, want [%v]", d.NewlyCovered, want)
	}
	if len(d.Regressed) != 1 || d.Regressed[0].Condition != "Not empty «id»" {
		t.Errorf("Regressed = %v", d.Regressed)
	}
	if len(d.Added) != 1 || d.Added[0].Condition != "HTTP status «404»" {
		t.Errorf("Added = %v", d.Added)
	}
	if len(d.Removed) != 0 {
		t.Errorf("Removed = %v, want none", d.Removed)
	}
	if d.Delta() != 50-prev.Summary.Percentage {
		t.Errorf("Delta = %v", d.Delta())
	}

	var buf bytes.Buffer
	if err := WriteDiffText(&buf, d); err != nil {
		t.Fatal(err)
	}
	text := stripANSI(buf.String())
	if !strings.Contains(text, "Regressed (1)") || !strings.Contains(text, "Coverage: 80.0% -> 50.0%") {
		t.Errorf("unexpected diff text:\n%s", text)
	}

	buf.Reset()
	if err := WriteDiffJSON(&buf, d); err != nil {
		t.Fatal(err)
	}
	var parsed map[string]any
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("diff JSON invalid: %v", err)
	}
}
