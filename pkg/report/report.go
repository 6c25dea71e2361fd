package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"sort"
	"strings"
	"time"

	"mcp-insight-service/pkg/stats"
	"mcp-insight-service/pkg/tabular"
)

// MaxCategoryValues bounds how many values per categorical column the report lists
const MaxCategoryValues = 10

// ChartRef links a numeric column to its chart file, relative to the report
type ChartRef struct {
	Column string
	Path   string
}

// Data is everything the HTML report shows
type Data struct {
	FileName     string
	AnalysisType string
	GeneratedAt  time.Time
	Stats        stats.Statistics
	Charts       []ChartRef
	SampleRows   []tabular.Row
	InsightsHTML string
}

// ValueCount is one categorical value with its frequency
type ValueCount struct {
	Value string
	Count int
}

type numericRow struct {
	Column string
	Stats  stats.NumericStats
}

type categoricalRow struct {
	Column   string
	Distinct int
	Top      []ValueCount
}

var funcs = template.FuncMap{
	"num": formatNumber,
	"cell": func(r tabular.Row, column string) string {
		v, ok := r.Get(column)
		if !ok {
			return ""
		}
		if f, ok := v.(float64); ok {
			return formatNumber(f)
		}
		return fmt.Sprint(v)
	},
}

var reportTemplate = template.Must(template.New("report").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Data analysis: {{.FileName}}</title>
<style>
  body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; margin: 32px; color: #1f2328; }
  h1 { margin-bottom: 4px; }
  .meta { color: #656d76; margin-bottom: 24px; }
  table { border-collapse: collapse; margin-bottom: 24px; }
  th, td { border: 1px solid #d0d7de; padding: 6px 10px; text-align: right; }
  th:first-child, td:first-child { text-align: left; }
  iframe { border: 0; width: 920px; height: 520px; }
  .insights { max-width: 900px; line-height: 1.6; }
</style>
</head>
<body>
<h1>Data analysis: {{.FileName}}</h1>
<div class="meta">{{.AnalysisType}} analysis · {{.Stats.RowCount}} rows · {{.Stats.ColumnCount}} columns · {{.GeneratedAt.Format "2006-01-02 15:04:05 MST"}}</div>

{{- if .Numeric}}
<h2>Numeric columns</h2>
<table>
<tr><th>Column</th><th>Count</th><th>Mean</th><th>Median</th><th>Std</th><th>Min</th><th>Max</th></tr>
{{- range .Numeric}}
<tr><td>{{.Column}}</td><td>{{.Stats.Count}}</td><td>{{num .Stats.Mean}}</td><td>{{num .Stats.Median}}</td><td>{{num .Stats.Std}}</td><td>{{num .Stats.Min}}</td><td>{{num .Stats.Max}}</td></tr>
{{- end}}
</table>
{{- end}}

{{- if .Categorical}}
<h2>Categorical columns</h2>
<table>
<tr><th>Column</th><th>Distinct values</th><th>Most frequent</th></tr>
{{- range .Categorical}}
<tr><td>{{.Column}}</td><td>{{.Distinct}}</td><td>{{range $i, $v := .Top}}{{if $i}}, {{end}}{{$v.Value}} ({{$v.Count}}){{end}}</td></tr>
{{- end}}
</table>
{{- end}}

{{- if .Charts}}
<h2>Distributions</h2>
{{- range .Charts}}
<h3>{{.Column}}</h3>
<p><a href="{{.Path}}">Open chart</a></p>
<iframe src="{{.Path}}" title="Distribution of {{.Column}}"></iframe>
{{- end}}
{{- end}}

{{- if .SampleRows}}
<h2>Sample rows</h2>
<table>
<tr>{{range .Stats.Columns}}<th>{{.}}</th>{{end}}</tr>
{{- $cols := .Stats.Columns}}
{{- range .SampleRows}}
{{- $row := .}}
<tr>{{range $cols}}<td>{{cell $row .}}</td>{{end}}</tr>
{{- end}}
</table>
{{- end}}

{{- if .Insights}}
<h2>Insights</h2>
<div class="insights">{{.Insights}}</div>
{{- end}}
</body>
</html>
`))

// RenderHTML writes the consolidated report
func RenderHTML(w io.Writer, d Data) error {
	view := struct {
		Data
		Numeric     []numericRow
		Categorical []categoricalRow
		Insights    template.HTML
	}{
		Data:     d,
		Insights: template.HTML(d.InsightsHTML),
	}

	for _, col := range d.Stats.NumericColumns {
		view.Numeric = append(view.Numeric, numericRow{Column: col, Stats: d.Stats.NumericStats[col]})
	}
	for _, col := range categoricalColumns(d.Stats) {
		counts := d.Stats.CategoricalStats[col]
		view.Categorical = append(view.Categorical, categoricalRow{
			Column:   col,
			Distinct: len(counts),
			Top:      TopValues(counts, MaxCategoryValues),
		})
	}

	return reportTemplate.Execute(w, view)
}

// TopValues returns up to n values ordered by descending count, ties by value
func TopValues(counts map[string]int, n int) []ValueCount {
	out := make([]ValueCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, ValueCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// categoricalColumns lists categorical columns in table order
func categoricalColumns(st stats.Statistics) []string {
	var cols []string
	for _, c := range st.Columns {
		if _, ok := st.CategoricalStats[c]; ok {
			cols = append(cols, c)
		}
	}
	return cols
}

// TextSummary renders the statistics as the plain text returned to the caller
func TextSummary(fileName string, st stats.Statistics) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analysis of %s\n", fileName)
	fmt.Fprintf(&sb, "Rows: %d\nColumns: %d\n", st.RowCount, st.ColumnCount)

	if len(st.NumericColumns) > 0 {
		sb.WriteString("\nNumeric columns:\n")
		for _, col := range st.NumericColumns {
			ns := st.NumericStats[col]
			fmt.Fprintf(&sb, "- %s: mean=%s, median=%s, std=%s, min=%s, max=%s\n",
				col, formatNumber(ns.Mean), formatNumber(ns.Median), formatNumber(ns.Std),
				formatNumber(ns.Min), formatNumber(ns.Max))
		}
	}

	if cats := categoricalColumns(st); len(cats) > 0 {
		sb.WriteString("\nCategorical columns:\n")
		for _, col := range cats {
			counts := st.CategoricalStats[col]
			top := TopValues(counts, 3)
			parts := make([]string, len(top))
			for i, v := range top {
				parts[i] = fmt.Sprintf("%s (%d)", v.Value, v.Count)
			}
			fmt.Fprintf(&sb, "- %s: %d distinct, top: %s\n", col, len(counts), strings.Join(parts, ", "))
		}
	}

	return sb.String()
}

// StatisticsJSON renders st as indented JSON for prompts
func StatisticsJSON(st stats.Statistics) (string, error) {
	out, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) && f < 1e15 && f > -1e15 {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%.4f", f)
}
