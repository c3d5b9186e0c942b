// Package consolidate unions loaded extracts into a single dataset.
package consolidate

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sells-group/abwindow/internal/table"
)

// NoDataError is returned when there is nothing to consolidate.
type NoDataError struct{}

func (e *NoDataError) Error() string {
	return "consolidate: no datasets to consolidate"
}

// SchemaMismatchError reports a dataset whose columns differ from the first
// dataset's. Consolidation never fills the gap with empty cells.
type SchemaMismatchError struct {
	Source   string   // offending dataset
	Expected string   // dataset whose header sets the schema
	Missing  []string // columns Source lacks
	Extra    []string // columns only Source has
}

func (e *SchemaMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, "unexpected "+strings.Join(e.Extra, ", "))
	}
	return fmt.Sprintf("consolidate: schema of %s does not match %s: %s", e.Source, e.Expected, strings.Join(parts, "; "))
}

// Concat concatenates datasets in order. Every dataset must expose the same
// column set as the first; column order may differ and the first dataset's
// order is kept.
func Concat(datasets []table.Dataset) (table.Dataset, error) {
	if len(datasets) == 0 {
		return table.Dataset{}, &NoDataError{}
	}

	first := datasets[0]
	total := 0
	for _, ds := range datasets {
		if err := compare(first, ds); err != nil {
			return table.Dataset{}, err
		}
		total += ds.Len()
	}

	out := table.New("consolidated", first.Columns...)
	out.Rows = make([]table.Row, 0, total)
	for _, ds := range datasets {
		out.Rows = append(out.Rows, ds.Rows...)
	}
	return out, nil
}

func compare(want, got table.Dataset) error {
	var missing, extra []string
	for _, col := range want.Columns {
		if !got.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	for _, col := range got.Columns {
		if !want.HasColumn(col) {
			extra = append(extra, col)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	slices.Sort(missing)
	slices.Sort(extra)
	return &SchemaMismatchError{
		Source:   got.Source,
		Expected: want.Source,
		Missing:  missing,
		Extra:    extra,
	}
}
