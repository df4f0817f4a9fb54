package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/flosch/pongo2/v6"
)

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{ info.Title }} API coverage</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; color: #222; }
h1 { font-size: 1.4rem; }
table { border-collapse: collapse; margin-bottom: 1.5rem; min-width: 40rem; }
th, td { border: 1px solid #ccc; padding: .3rem .6rem; text-align: left; }
th { background: #f2f2f7; }
.full { color: #1a7f37; }
.partial { color: #9a6700; }
.empty, .missing { color: #cf222e; }
.covered { color: #1a7f37; }
details { margin-bottom: .8rem; }
summary { cursor: pointer; font-family: monospace; }
.muted { color: #777; }
</style>
</head>
<body>
<h1>{{ info.Title }} {{ info.Version }}</h1>
<p class="muted">run {{ runId }} &middot; apicov {{ version }}</p>

<h2>Summary</h2>
<table>
<tr><th>Operations</th><td>{{ summary.Operations }} (full {{ summary.FullyCovered }}, partial {{ summary.PartiallyCovered }}, uncovered {{ summary.Uncovered }})</td></tr>
<tr><th>Conditions</th><td>{{ summary.CoveredConditions }}/{{ summary.Conditions }} ({{ summary.Percentage|floatformat:1 }}%)</td></tr>
<tr><th>Reached</th><td>{{ summary.OperationsReached }}/{{ summary.Operations }}</td></tr>
<tr><th>Missed</th><td>{{ summary.MissedOperations }}</td></tr>
<tr><th>Captures</th><td>{{ resultFileCount }} processed, {{ failedFileCount }} failed</td></tr>
<tr><th>Time</th><td>{{ generationTime }} ms</td></tr>
</table>

<h2>Operations</h2>
{% for op in operations %}
<details{% if op.State != "full" %} open{% endif %}>
<summary class="{{ op.State }}">{{ op.Method }} {{ op.Path }} &middot; {{ op.Covered }}/{{ op.Total }} ({{ op.Percentage|floatformat:1 }}%)</summary>
{% if op.Summary %}<p class="muted">{{ op.Summary }}</p>{% endif %}
<table>
<tr><th>Status</th><th>Condition</th><th>Description</th></tr>
{% for c in op.Conditions %}
<tr>
<td class="{% if c.Covered %}covered{% else %}missing{% endif %}">{% if c.Covered %}covered{% else %}missing{% endif %}</td>
<td>{{ c.Name }}</td>
<td class="muted">{{ c.Description }}</td>
</tr>
{% endfor %}
</table>
</details>
{% endfor %}

{% if missed %}
<h2>Missed operations</h2>
<table>
<tr><th>Operation</th><th>Parameters</th><th>Responses</th></tr>
{% for m in missed %}
<tr>
<td class="missing">{{ m.Method }} {{ m.Path }}</td>
<td>{{ m.Parameters|join:", " }}</td>
<td>{{ m.Responses|join:", " }}</td>
</tr>
{% endfor %}
</table>
{% endif %}

{% if errors %}
<h2>Unreadable captures</h2>
<ul>
{% for e in errors %}<li class="muted">{{ e }}</li>
{% endfor %}
</ul>
{% endif %}
</body>
</html>
`

var (
	htmlOnce sync.Once
	htmlTpl  *pongo2.Template
	htmlErr  error
)

// WriteHTML writes the document as a self-contained HTML page.
func WriteHTML(w io.Writer, doc *Document) error {
	htmlOnce.Do(func() {
		htmlTpl, htmlErr = pongo2.FromString(htmlTemplate)
	})
	if htmlErr != nil {
		return fmt.Errorf("compiling html template: %w", htmlErr)
	}

	missed := make([]MissedOperation, 0, len(doc.Missed))
	for _, key := range sortedKeys(doc.Missed) {
		missed = append(missed, doc.Missed[key])
	}

	ctx := pongo2.Context{
		"version":         doc.Version,
		"runId":           doc.RunID,
		"info":            doc.Info,
		"summary":         doc.Summary,
		"operations":      doc.Operations,
		"missed":          missed,
		"errors":          doc.Errors,
		"resultFileCount": doc.GenerationStatistics.ResultFileCount,
		"failedFileCount": doc.GenerationStatistics.FailedFileCount,
		"generationTime":  doc.GenerationStatistics.GenerationTime.Milliseconds(),
	}
	if err := htmlTpl.ExecuteWriter(ctx, w); err != nil {
		return fmt.Errorf("rendering html report: %w", err)
	}
	return nil
}
