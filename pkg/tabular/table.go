// Package tabular turns uploaded CSV and spreadsheet buffers into ordered rows.
package tabular

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Cell is one column value within a row. Value is float64 for numeric
// cells and string for textual ones.
type Cell struct {
	Column string
	Value  interface{}
}

// Row is an ordered set of cells. Missing columns are simply absent.
type Row struct {
	cells []Cell
}

// NewRow builds a row from alternating column/value pairs
func NewRow(pairs ...interface{}) Row {
	var r Row
	for i := 0; i+1 < len(pairs); i += 2 {
		col, _ := pairs[i].(string)
		r.Set(col, pairs[i+1])
	}
	return r
}

// Set assigns a value, keeping the column's original position when it already exists
func (r *Row) Set(column string, value interface{}) {
	for i := range r.cells {
		if r.cells[i].Column == column {
			r.cells[i].Value = value
			return
		}
	}
	r.cells = append(r.cells, Cell{Column: column, Value: value})
}

// Get returns the value stored under column
func (r Row) Get(column string) (interface{}, bool) {
	for _, c := range r.cells {
		if c.Column == column {
			return c.Value, true
		}
	}
	return nil, false
}

// Columns returns the column names in insertion order
func (r Row) Columns() []string {
	cols := make([]string, len(r.cells))
	for i, c := range r.cells {
		cols[i] = c.Column
	}
	return cols
}

// Cells returns the row's cells in order
func (r Row) Cells() []Cell {
	return r.cells
}

// Len reports the number of populated columns
func (r Row) Len() int {
	return len(r.cells)
}

// MarshalJSON encodes the row as an object whose keys follow column order
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.cells {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Column)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// cellValue converts raw cell text into a float64 when it reads as a finite
// number, otherwise the trimmed text. Empty text reports ok=false.
func cellValue(raw string) (interface{}, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && isFinite(f) {
		return f, true
	}
	return s, true
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
