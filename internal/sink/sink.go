// Package sink persists the final dataset as a CSV or XLSX file.
package sink

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/abwindow/internal/table"
)

// WriteError reports a failure to persist the output. Err is the underlying
// I/O error, unchanged.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return "sink: write " + e.Path + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// SheetName is the worksheet name used for XLSX output.
const SheetName = "data"

// Writer writes datasets to a filesystem.
type Writer struct {
	fs afero.Fs
}

// NewWriter returns a Writer backed by fsys.
func NewWriter(fsys afero.Fs) *Writer {
	return &Writer{fs: fsys}
}

// Write stores ds at path, replacing any existing file. The format follows
// the extension: .xlsx writes a workbook, anything else CSV. The header is
// always written, so an empty dataset yields a header-only file.
func (w *Writer) Write(ds table.Dataset, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := w.fs.MkdirAll(dir, 0o755); err != nil {
			return &WriteError{Path: path, Err: err}
		}
	}

	f, err := w.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		err = writeXLSX(f, ds)
	} else {
		err = writeCSV(f, ds)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}

	zap.L().Info("sink: output written",
		zap.String("path", path),
		zap.Int("rows", ds.Len()),
		zap.Int("columns", len(ds.Columns)),
	)
	return nil
}

func writeCSV(out io.Writer, ds table.Dataset) error {
	w := csv.NewWriter(out)
	if err := w.Write(ds.Columns); err != nil {
		return err
	}
	for i := range ds.Rows {
		if err := w.Write(ds.Record(i)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeXLSX(out io.Writer, ds table.Dataset) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(SheetName)
	if err != nil {
		return err
	}

	header := sheet.AddRow()
	for _, col := range ds.Columns {
		header.AddCell().SetString(col)
	}
	for _, row := range ds.Rows {
		r := sheet.AddRow()
		for _, col := range ds.Columns {
			v := row[col]
			cell := r.AddCell()
			if f, ok := v.Float(); ok && v.Kind() == table.KindNumber {
				cell.SetFloat(f)
				continue
			}
			cell.SetString(v.String())
		}
	}
	return file.Write(out)
}
