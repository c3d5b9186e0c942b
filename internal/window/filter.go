package window

import (
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/abwindow/internal/table"
)

const maxWarningSamples = 5

// DateParseWarning records date cells that could not be parsed. Those rows
// keep a Null date and never fall inside a window.
type DateParseWarning struct {
	Count   int
	Samples []string
}

func (w *DateParseWarning) String() string {
	return fmt.Sprintf("%d unparseable date(s), e.g. %q", w.Count, w.Samples)
}

// ParseDates returns a copy of ds with the date column coerced to Date
// values, or Null where parsing fails. The warning is nil when every
// non-blank cell parsed.
func ParseDates(ds table.Dataset) (table.Dataset, *DateParseWarning, error) {
	if !ds.HasColumn(table.ColDate) {
		return table.Dataset{}, nil, eris.Errorf("window: %s has no %q column", ds.Source, table.ColDate)
	}

	out := ds.Empty()
	out.Rows = make([]table.Row, 0, ds.Len())
	var warn *DateParseWarning
	for _, row := range ds.Rows {
		raw := row[table.ColDate]
		parsed := table.Null()
		if t, ok := raw.Time(); ok {
			parsed = table.Date(t)
		} else if !raw.Blank() {
			if warn == nil {
				warn = &DateParseWarning{}
			}
			warn.Count++
			if len(warn.Samples) < maxWarningSamples {
				warn.Samples = append(warn.Samples, raw.String())
			}
		}
		cp := row.Clone()
		cp[table.ColDate] = parsed
		out.Rows = append(out.Rows, cp)
	}
	return out, warn, nil
}

// Filter keeps the rows whose date lies inside w. Rows with a Null or
// unparseable date are excluded. Rows are shared with ds, not modified.
func Filter(ds table.Dataset, w Window) (table.Dataset, error) {
	if !ds.HasColumn(table.ColDate) {
		return table.Dataset{}, eris.Errorf("window: %s has no %q column", ds.Source, table.ColDate)
	}

	out := ds.Empty()
	for _, row := range ds.Rows {
		t, ok := row[table.ColDate].Time()
		if ok && w.Contains(t) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}

// Result is the outcome of Apply.
type Result struct {
	Dataset  table.Dataset
	Window   Window
	Warning  *DateParseWarning // nil when every date parsed
	Excluded int               // rows outside the window or without a date
}

// Apply parses the date column and keeps the rows inside w.
func Apply(ds table.Dataset, w Window) (*Result, error) {
	parsed, warn, err := ParseDates(ds)
	if err != nil {
		return nil, err
	}
	if warn != nil {
		zap.L().Warn("window: unparseable dates excluded",
			zap.Int("count", warn.Count),
			zap.Strings("samples", warn.Samples),
		)
	}

	filtered, err := Filter(parsed, w)
	if err != nil {
		return nil, err
	}

	return &Result{
		Dataset:  filtered,
		Window:   w,
		Warning:  warn,
		Excluded: parsed.Len() - filtered.Len(),
	}, nil
}
