// Package derive appends the calculated metric columns to a windowed dataset.
package derive

import (
	"math"
	"slices"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/abwindow/internal/table"
)

// SafeRatio returns num/den, or 0 when den is zero or the quotient is not finite.
func SafeRatio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	r := num / den
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// Apply returns a copy of ds with c_d_ratio and days_from_start appended.
// An empty dataset only gains the two header columns, so the output schema
// does not depend on whether any rows survived the window.
func Apply(ds table.Dataset) (table.Dataset, error) {
	if ds.Len() == 0 {
		out := ds.Empty()
		for _, col := range []string{table.ColRatio, table.ColDaysFromStart} {
			if !out.HasColumn(col) {
				out.Columns = append(out.Columns, col)
			}
		}
		return out, nil
	}
	for _, col := range []string{table.ColDate, table.ColMetricC, table.ColMetricD} {
		if !ds.HasColumn(col) {
			return table.Dataset{}, eris.Errorf("derive: %s has no %q column", ds.Source, col)
		}
	}
	for _, col := range []string{table.ColRatio, table.ColDaysFromStart} {
		if ds.HasColumn(col) {
			return table.Dataset{}, eris.Errorf("derive: %s already has a %q column", ds.Source, col)
		}
	}

	minDate, hasMin := earliest(ds)

	out := table.Dataset{
		Source:  ds.Source,
		Columns: append(slices.Clone(ds.Columns), table.ColRatio, table.ColDaysFromStart),
		Rows:    make([]table.Row, 0, ds.Len()),
	}
	for _, row := range ds.Rows {
		cp := row.Clone()
		c, _ := row[table.ColMetricC].Float()
		d, _ := row[table.ColMetricD].Float()
		cp[table.ColRatio] = table.Number(SafeRatio(c, d))

		cp[table.ColDaysFromStart] = table.Null()
		if t, ok := row[table.ColDate].Time(); ok && hasMin {
			cp[table.ColDaysFromStart] = table.Number(float64(table.DaysBetween(minDate, t)))
		}
		out.Rows = append(out.Rows, cp)
	}
	return out, nil
}

// earliest returns the minimum parseable date in ds.
func earliest(ds table.Dataset) (time.Time, bool) {
	var (
		minDate time.Time
		found   bool
	)
	for _, row := range ds.Rows {
		t, ok := row[table.ColDate].Time()
		if !ok {
			continue
		}
		if !found || t.Before(minDate) {
			minDate, found = t, true
		}
	}
	return table.Day(minDate), found
}
