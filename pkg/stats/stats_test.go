package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcp-insight-service/pkg/tabular"
)

func sampleRows() []tabular.Row {
	return []tabular.Row{
		tabular.NewRow("a", 1.0, "b", "x"),
		tabular.NewRow("a", 2.0, "b", "y"),
		tabular.NewRow("a", 3.0, "b", "z"),
	}
}

func TestSummarizeSampleTable(t *testing.T) {
	st := Summarize(sampleRows())

	assert.Equal(t, 3, st.RowCount)
	assert.Equal(t, 2, st.ColumnCount)
	assert.Equal(t, []string{"a", "b"}, st.Columns)
	assert.Equal(t, []string{"a"}, st.NumericColumns)

	require.Contains(t, st.NumericStats, "a")
	assert.NotContains(t, st.NumericStats, "b")

	a := st.NumericStats["a"]
	assert.InDelta(t, 2.0, a.Mean, 1e-12)
	assert.InDelta(t, 2.0, a.Median, 1e-12)
	assert.InDelta(t, math.Sqrt(2.0/3.0), a.Std, 1e-12)
	assert.Equal(t, 1.0, a.Min)
	assert.Equal(t, 3.0, a.Max)

	assert.Equal(t, map[string]int{"x": 1, "y": 1, "z": 1}, st.CategoricalStats["b"])
}

func TestSummarizeFiltersNonNumeric(t *testing.T) {
	rows := []tabular.Row{
		tabular.NewRow("score", 10.0, "city", "Lyon"),
		tabular.NewRow("score", "n/a", "city", "Lyon"),
		tabular.NewRow("city", "Nice"),
		tabular.NewRow("score", "30", "city", "Nice"),
	}

	st := Summarize(rows)

	score := st.NumericStats["score"]
	assert.Equal(t, 2, score.Count, "non-coercible and missing values are skipped, not zeroed")
	assert.InDelta(t, 20.0, score.Mean, 1e-12)
	assert.Equal(t, map[string]int{"Lyon": 2, "Nice": 2}, st.CategoricalStats["city"])
}

func TestSummarizeFirstRowDecidesType(t *testing.T) {
	rows := []tabular.Row{
		tabular.NewRow("id", "A-1"),
		tabular.NewRow("id", 2.0),
	}

	st := Summarize(rows)
	assert.Empty(t, st.NumericStats)
	assert.Equal(t, map[string]int{"A-1": 1, "2": 1}, st.CategoricalStats["id"])
}

func TestSummarizeCountsColumnsMissingFromFirstRow(t *testing.T) {
	rows := []tabular.Row{
		tabular.NewRow("id", 1.0),
		tabular.NewRow("id", 2.0, "note", "late"),
		tabular.NewRow("id", 3.0, "score", 9.0, "note", "late"),
	}

	st := Summarize(rows)
	assert.Equal(t, 3, st.ColumnCount)
	assert.Equal(t, []string{"id", "note", "score"}, st.Columns)
	assert.Equal(t, []string{"id"}, st.NumericColumns, "numeric-ness is still decided by the first row")
	assert.Equal(t, map[string]int{"late": 2}, st.CategoricalStats["note"])
	assert.Equal(t, map[string]int{"9": 1}, st.CategoricalStats["score"])
}

func TestSummarizeEmpty(t *testing.T) {
	st := Summarize(nil)
	assert.Equal(t, 0, st.RowCount)
	assert.Equal(t, 0, st.ColumnCount)
	assert.Empty(t, st.NumericStats)
	assert.Empty(t, st.CategoricalStats)
}

func TestDescribeProperties(t *testing.T) {
	cases := [][]float64{
		{5},
		{1, 2},
		{3, 1, 2, 10},
		{-4.5, 0, 7.25, 7.25, 100, -3},
		{1e6, 1e6 + 1, 1e6 + 2},
	}

	for _, values := range cases {
		d := Describe(values)

		sum := 0.0
		for _, v := range values {
			sum += v
		}
		assert.InDelta(t, sum/float64(len(values)), d.Mean, 1e-9)
		assert.GreaterOrEqual(t, d.Std, 0.0)
		assert.LessOrEqual(t, d.Min, d.Median)
		assert.LessOrEqual(t, d.Median, d.Max)
		assert.Equal(t, len(values), d.Count)
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"odd", []float64{9, 1, 5}, 5},
		{"even averages the middle pair", []float64{4, 1, 3, 2}, 2.5},
		{"single", []float64{7}, 7},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Median(tt.values))
		})
	}

	values := []float64{3, 1, 2}
	Median(values)
	assert.Equal(t, []float64{3, 1, 2}, values, "input must not be reordered")
}

func TestSummarizeDeterministic(t *testing.T) {
	rows := make([]tabular.Row, 0, 200)
	for i := 0; i < 200; i++ {
		rows = append(rows, tabular.NewRow("v", math.Sin(float64(i))*1000/7, "k", "row"))
	}

	first := Summarize(rows)
	second := Summarize(rows)

	a, b := first.NumericStats["v"], second.NumericStats["v"]
	assert.Equal(t, math.Float64bits(a.Mean), math.Float64bits(b.Mean))
	assert.Equal(t, math.Float64bits(a.Median), math.Float64bits(b.Median))
	assert.Equal(t, math.Float64bits(a.Std), math.Float64bits(b.Std))
	assert.Equal(t, first, second)
}

func TestToNumber(t *testing.T) {
	tests := []struct {
		in   interface{}
		want float64
		ok   bool
	}{
		{1.5, 1.5, true},
		{3, 3, true},
		{" 42 ", 42, true},
		{"abc", 0, false},
		{"NaN", 0, false},
		{math.Inf(1), 0, false},
		{nil, 0, false},
		{true, 0, false},
	}

	for _, tt := range tests {
		got, ok := ToNumber(tt.in)
		assert.Equal(t, tt.ok, ok, "input %v", tt.in)
		assert.Equal(t, tt.want, got, "input %v", tt.in)
	}
}
