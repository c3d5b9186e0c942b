// Package source loads tabular extracts (CSV, XLSX) into datasets.
package source

import (
	"bytes"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/sells-group/abwindow/internal/table"
)

// Status is the per-source outcome of a read.
type Status int

const (
	Loaded  Status = iota + 1 // dataset available
	Skipped                   // source missing; run continues without it
)

// String returns the human-readable status name.
func (s Status) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// NotFoundError reports a source location that does not exist. It is
// recoverable: the Reader skips the source and keeps going.
type NotFoundError struct {
	Location string
	Err      error
}

func (e *NotFoundError) Error() string {
	return "source: not found: " + e.Location
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// Result is the outcome of reading one location.
type Result struct {
	Location string
	Status   Status
	Dataset  table.Dataset  // set when Status == Loaded
	Err      *NotFoundError // set when Status == Skipped
}

// Reader loads tabular extracts from a filesystem.
type Reader struct {
	fs   afero.Fs
	csv  CSVOptions
	xlsx XLSXOptions
}

// Option configures a Reader.
type Option func(*Reader)

// WithCSVOptions sets the CSV parser options.
func WithCSVOptions(opts CSVOptions) Option {
	return func(r *Reader) { r.csv = opts }
}

// WithXLSXOptions sets the XLSX parser options.
func WithXLSXOptions(opts XLSXOptions) Option {
	return func(r *Reader) { r.xlsx = opts }
}

// NewReader creates a Reader over fsys.
func NewReader(fsys afero.Fs, opts ...Option) *Reader {
	r := &Reader{fs: fsys}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Read loads each location in order. Missing locations are logged and
// reported as Skipped; any other failure aborts the read.
func (r *Reader) Read(locations []string) ([]Result, error) {
	results := make([]Result, 0, len(locations))
	for _, loc := range locations {
		ds, err := r.Load(loc)
		var nf *NotFoundError
		switch {
		case errors.As(err, &nf):
			zap.L().Warn("source not found, skipping", zap.String("source", loc))
			results = append(results, Result{Location: loc, Status: Skipped, Err: nf})
		case err != nil:
			return nil, err
		default:
			zap.L().Info("source loaded",
				zap.String("source", loc),
				zap.Int("rows", ds.Len()),
				zap.Int("columns", len(ds.Columns)),
			)
			results = append(results, Result{Location: loc, Status: Loaded, Dataset: ds})
		}
	}
	return results, nil
}

// Load reads a single location. The format is chosen by file extension.
func (r *Reader) Load(location string) (table.Dataset, error) {
	ext := strings.ToLower(filepath.Ext(location))
	if ext != ".csv" && ext != ".xlsx" {
		return table.Dataset{}, eris.Errorf("source: %s: unsupported format %q", location, ext)
	}

	data, err := afero.ReadFile(r.fs, location)
	if errors.Is(err, fs.ErrNotExist) {
		return table.Dataset{}, &NotFoundError{Location: location, Err: err}
	}
	if err != nil {
		return table.Dataset{}, eris.Wrapf(err, "source: read %s", location)
	}

	var rows [][]string
	if ext == ".xlsx" {
		rows, err = ReadXLSX(data, r.xlsx)
	} else {
		rows, err = ReadCSV(bytes.NewReader(data), r.csv)
	}
	if err != nil {
		return table.Dataset{}, eris.Wrapf(err, "source: parse %s", location)
	}

	return build(location, rows)
}

// Datasets returns the loaded datasets, in read order.
func Datasets(results []Result) []table.Dataset {
	var out []table.Dataset
	for _, res := range results {
		if res.Status == Loaded {
			out = append(out, res.Dataset)
		}
	}
	return out
}

// build turns raw rows into a dataset. The first row is the header.
func build(location string, rows [][]string) (table.Dataset, error) {
	if len(rows) == 0 || isBlank(rows[0]) {
		return table.Dataset{}, eris.Errorf("source: %s: missing header row", location)
	}

	header := trimTrailingBlanks(rows[0])
	seen := make(map[string]bool, len(header))
	for i, col := range header {
		col = strings.TrimSpace(col)
		if col == "" {
			return table.Dataset{}, eris.Errorf("source: %s: blank column name at position %d", location, i+1)
		}
		if seen[col] {
			return table.Dataset{}, eris.Errorf("source: %s: duplicate column %q", location, col)
		}
		seen[col] = true
		header[i] = col
	}

	ds := table.New(location, header...)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		if len(row) > len(header) && !isBlank(row[len(header):]) {
			return table.Dataset{}, eris.Errorf("source: %s: row %d has %d cells, header has %d", location, i+2, len(row), len(header))
		}
		values := make([]table.Value, 0, len(header))
		for j := 0; j < len(header) && j < len(row); j++ {
			values = append(values, table.Text(row[j]))
		}
		ds.Append(values...)
	}
	if ds.Rows == nil {
		ds.Rows = []table.Row{}
	}
	return ds, nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func trimTrailingBlanks(cells []string) []string {
	n := len(cells)
	for n > 0 && strings.TrimSpace(cells[n-1]) == "" {
		n--
	}
	out := make([]string, n)
	copy(out, cells[:n])
	return out
}
