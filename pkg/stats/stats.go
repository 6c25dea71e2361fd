// Package stats computes summary statistics and histogram bins over tabular rows.
//
// The table's columns are every column populated in any row, in order of first
// appearance. A column is numeric when the first row holds a number under it.
// Later rows whose value cannot be read as a finite number are left out of
// that column's aggregates. Every other column is categorical and gets
// value-frequency counts, including columns the first row leaves blank.
package stats

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"mcp-insight-service/pkg/tabular"
)

// NumericStats summarises one numeric column
type NumericStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
}

// Statistics is the summary of a whole table
type Statistics struct {
	RowCount         int                       `json:"rowCount"`
	ColumnCount      int                       `json:"columnCount"`
	Columns          []string                  `json:"columns"`
	NumericColumns   []string                  `json:"numericColumns"`
	NumericStats     map[string]NumericStats   `json:"numericStats"`
	CategoricalStats map[string]map[string]int `json:"categoricalStats"`
}

// Summarize computes Statistics for rows. An empty table yields zero counts
// and empty maps.
func Summarize(rows []tabular.Row) Statistics {
	st := Statistics{
		RowCount:         len(rows),
		Columns:          []string{},
		NumericColumns:   []string{},
		NumericStats:     make(map[string]NumericStats),
		CategoricalStats: make(map[string]map[string]int),
	}
	if len(rows) == 0 {
		return st
	}

	first := rows[0]
	st.Columns = tableColumns(rows)
	st.ColumnCount = len(st.Columns)

	for _, column := range st.Columns {
		value, _ := first.Get(column)
		if _, ok := value.(float64); ok {
			st.NumericColumns = append(st.NumericColumns, column)
			st.NumericStats[column] = Describe(ColumnValues(rows, column))
			continue
		}
		st.CategoricalStats[column] = Frequencies(rows, column)
	}

	return st
}

// tableColumns is the union of the rows' columns in order of first appearance
func tableColumns(rows []tabular.Row) []string {
	seen := make(map[string]bool)
	var columns []string
	for _, row := range rows {
		for _, column := range row.Columns() {
			if !seen[column] {
				seen[column] = true
				columns = append(columns, column)
			}
		}
	}
	return columns
}

// ColumnValues returns the numeric values of column in row order, skipping
// missing and non-numeric entries
func ColumnValues(rows []tabular.Row, column string) []float64 {
	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		raw, ok := row.Get(column)
		if !ok {
			continue
		}
		if v, ok := ToNumber(raw); ok {
			values = append(values, v)
		}
	}
	return values
}

// ToNumber coerces a cell value to a finite float64
func ToNumber(v interface{}) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Describe computes mean, median, population standard deviation, min and max.
// An empty slice yields the zero value.
func Describe(values []float64) NumericStats {
	n := len(values)
	if n == 0 {
		return NumericStats{}
	}

	sum := 0.0
	min, max := values[0], values[0]
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean := sum / float64(n)

	sq := 0.0
	for _, v := range values {
		d := v - mean
		sq += d * d
	}

	return NumericStats{
		Mean:   mean,
		Median: Median(values),
		Std:    math.Sqrt(sq / float64(n)),
		Min:    min,
		Max:    max,
		Count:  n,
	}
}

// Median returns the middle value, averaging the two middle values for an
// even count. values is not modified.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// Frequencies counts the textual form of every present value in column
func Frequencies(rows []tabular.Row, column string) map[string]int {
	counts := make(map[string]int)
	for _, row := range rows {
		raw, ok := row.Get(column)
		if !ok || raw == nil {
			continue
		}
		counts[formatValue(raw)]++
	}
	return counts
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
