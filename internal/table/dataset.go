// Package table holds the in-memory tabular dataset passed between pipeline stages.
package table

import (
	"slices"
)

// Well-known column names.
const (
	ColDate          = "date"
	ColMetricC       = "metric_C"
	ColMetricD       = "metric_D"
	ColRatio         = "c_d_ratio"
	ColDaysFromStart = "days_from_start"
)

// Row maps a column name to its value. Columns absent from the map are Null.
type Row map[string]Value

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	out := make(Row, len(r)+2)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Dataset is an ordered sequence of rows sharing a fixed, ordered set of columns.
type Dataset struct {
	Source  string   // where the rows came from; used in error messages
	Columns []string // header order
	Rows    []Row
}

// New returns an empty dataset with the given columns.
func New(source string, columns ...string) Dataset {
	return Dataset{Source: source, Columns: slices.Clone(columns)}
}

// Len returns the number of rows.
func (d Dataset) Len() int { return len(d.Rows) }

// HasColumn reports whether name is part of the header.
func (d Dataset) HasColumn(name string) bool {
	return slices.Contains(d.Columns, name)
}

// Empty returns a dataset with the same header and no rows.
func (d Dataset) Empty() Dataset {
	return Dataset{Source: d.Source, Columns: slices.Clone(d.Columns), Rows: []Row{}}
}

// Append adds a row built from values in header order. Missing trailing
// values are Null.
func (d *Dataset) Append(values ...Value) {
	row := make(Row, len(d.Columns))
	for i, col := range d.Columns {
		if i < len(values) {
			row[col] = values[i]
		} else {
			row[col] = Null()
		}
	}
	d.Rows = append(d.Rows, row)
}

// Record renders row i in header order.
func (d Dataset) Record(i int) []string {
	rec := make([]string, len(d.Columns))
	for j, col := range d.Columns {
		rec[j] = d.Rows[i][col].String()
	}
	return rec
}
