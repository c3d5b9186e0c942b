package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/abwindow/internal/config"
	"github.com/sells-group/abwindow/internal/consolidate"
	"github.com/sells-group/abwindow/internal/sink"
	"github.com/sells-group/abwindow/internal/source"
	"github.com/sells-group/abwindow/internal/table"
)

// Wednesday; with a Friday anchor and lag 3 the window is [2024-01-20, 2024-03-08].
var refDate = time.Date(2024, time.March, 13, 0, 0, 0, 0, time.UTC)

func defaultOptions(sources ...string) Options {
	return Options{
		Sources:       sources,
		Anchor:        time.Friday,
		WindowDays:    49,
		LagDays:       3,
		ReferenceDate: refDate,
		Output:        "output_data/consolidated_ab_data.csv",
	}
}

// writeExtract writes n rows starting at start, one day apart per 50 rows.
func writeExtract(t *testing.T, fsys afero.Fs, path string, start time.Time, n int) {
	t.Helper()
	var b strings.Builder
	b.WriteString("date,user_id,variant,metric_C,metric_D,conversions\n")
	for i := range n {
		d := start.AddDate(0, 0, i/50)
		fmt.Fprintf(&b, "%s,u%d,%s,%d,%d,%d\n", d.Format(table.DateLayout), i, []string{"A", "B"}[i%2], i%10, i%4, i%3)
	}
	require.NoError(t, afero.WriteFile(fsys, path, []byte(b.String()), 0o644))
}

func TestRun_SkipsMissingSource(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeExtract(t, fsys, "input_data/last_week.csv", time.Date(2024, time.February, 26, 0, 0, 0, 0, time.UTC), 1000)
	writeExtract(t, fsys, "input_data/this_week.csv", time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC), 500)

	opts := defaultOptions("input_data/monthly.csv", "input_data/last_week.csv", "input_data/this_week.csv")
	res, err := New(fsys).Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Loaded())
	assert.Equal(t, 1, res.Skipped())
	require.Len(t, res.Sources, 3)
	assert.Equal(t, source.Skipped, res.Sources[0].Status)
	require.NotNil(t, res.Sources[0].Err)
	assert.True(t, errors.Is(res.Sources[0].Err, fs.ErrNotExist))

	assert.Equal(t, 1500, res.Consolidated.Len())
	assert.Equal(t, "2024-01-20", res.Window.Start.Format(table.DateLayout))
	assert.Equal(t, "2024-03-08", res.Window.End.Format(table.DateLayout))
	assert.NotEmpty(t, res.RunID)

	// last_week spans Feb 26..Mar 16 and this_week spans Mar 4..Mar 13;
	// only dates up to Mar 8 survive.
	assert.Equal(t, 12*50+5*50, res.Final.Len())
	assert.True(t, res.Final.HasColumn(table.ColRatio))
	assert.True(t, res.Final.HasColumn(table.ColDaysFromStart))

	written, err := source.NewReader(fsys).Load(opts.Output)
	require.NoError(t, err)
	assert.Equal(t, res.Final.Len(), written.Len())
	assert.Equal(t, res.Final.Columns, written.Columns)
	assert.Equal(t, "0", written.Rows[0][table.ColDaysFromStart].String())

	require.Len(t, res.Phases, 5)
	for i, name := range []string{PhaseLoad, PhaseConsolidate, PhaseWindow, PhaseDerive, PhaseWrite} {
		assert.Equal(t, name, res.Phases[i].Name)
		assert.Equal(t, PhaseStatusComplete, res.Phases[i].Status)
	}
}

func TestRun_AllOutsideWindowWritesHeaderOnly(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeExtract(t, fsys, "old.csv", time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC), 100)

	opts := defaultOptions("old.csv")
	res, err := New(fsys).Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 100, res.Consolidated.Len())
	assert.Equal(t, 0, res.Final.Len())

	data, err := afero.ReadFile(fsys, opts.Output)
	require.NoError(t, err)
	assert.Equal(t, "date,user_id,variant,metric_C,metric_D,conversions,c_d_ratio,days_from_start\n", string(data))
}

func TestRun_UnparseableDatesCounted(t *testing.T) {
	fsys := afero.NewMemMapFs()
	csv := "date,metric_C,metric_D\n2024-03-01,4,2\nnot-a-date,1,1\n03/05/2024,1,0\n"
	require.NoError(t, afero.WriteFile(fsys, "a.csv", []byte(csv), 0o644))

	res, err := New(fsys).Run(context.Background(), defaultOptions("a.csv"))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Unparsed)
	require.Equal(t, 2, res.Final.Len())
	assert.Equal(t, "2", res.Final.Rows[0][table.ColRatio].String())
	assert.Equal(t, "0", res.Final.Rows[1][table.ColRatio].String())
	assert.Equal(t, "4", res.Final.Rows[1][table.ColDaysFromStart].String())
}

func TestRun_NoSourcesFound(t *testing.T) {
	res, err := New(afero.NewMemMapFs()).Run(context.Background(), defaultOptions("a.csv", "b.xlsx"))
	require.Error(t, err)

	var nd *consolidate.NoDataError
	assert.True(t, errors.As(err, &nd))
	assert.Equal(t, 2, res.Skipped())
	require.Len(t, res.Phases, 2)
	assert.Equal(t, PhaseStatusFailed, res.Phases[1].Status)
}

func TestRun_SchemaMismatch(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "a.csv", []byte("date,metric_C,metric_D\n2024-03-01,1,1\n"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "b.csv", []byte("date,metric_C\n2024-03-01,1\n"), 0o644))

	_, err := New(fsys).Run(context.Background(), defaultOptions("a.csv", "b.csv"))
	require.Error(t, err)

	var sm *consolidate.SchemaMismatchError
	require.True(t, errors.As(err, &sm))
	assert.Equal(t, "b.csv", sm.Source)
	assert.Equal(t, []string{"metric_D"}, sm.Missing)

	exists, _ := afero.Exists(fsys, "output_data/consolidated_ab_data.csv")
	assert.False(t, exists, "nothing is written on a fatal error")
}

func TestRun_InvalidWindow(t *testing.T) {
	opts := defaultOptions("a.csv")
	opts.WindowDays = 0

	_, err := New(afero.NewMemMapFs()).Run(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "window_days must be positive")
}

func TestRun_CancelledContext(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeExtract(t, fsys, "a.csv", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(fsys).Run(ctx, defaultOptions("a.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Write(ds table.Dataset, path string) error {
	args := m.Called(ds, path)
	return args.Error(0)
}

type mockLoader struct {
	mock.Mock
}

func (m *mockLoader) Read(locations []string) ([]source.Result, error) {
	args := m.Called(locations)
	if v := args.Get(0); v != nil {
		return v.([]source.Result), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestRun_SinkFailure(t *testing.T) {
	ds := table.New("a.csv", table.ColDate, table.ColMetricC, table.ColMetricD)
	ds.Append(table.Text("2024-03-01"), table.Text("1"), table.Text("2"))

	loader := &mockLoader{}
	loader.On("Read", []string{"a.csv"}).Return([]source.Result{{Location: "a.csv", Status: source.Loaded, Dataset: ds}}, nil)

	diskErr := errors.New("no space left on device")
	sk := &mockSink{}
	sk.On("Write", mock.AnythingOfType("table.Dataset"), "out.csv").
		Return(&sink.WriteError{Path: "out.csv", Err: diskErr})

	opts := defaultOptions("a.csv")
	opts.Output = "out.csv"

	res, err := New(afero.NewMemMapFs(), WithLoader(loader), WithSink(sk)).Run(context.Background(), opts)
	require.Error(t, err)

	var we *sink.WriteError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, "out.csv", we.Path)
	assert.ErrorIs(t, err, diskErr)
	assert.Equal(t, 1, res.Final.Len())

	loader.AssertExpectations(t)
	sk.AssertExpectations(t)
}

func TestRun_LoaderFailure(t *testing.T) {
	loader := &mockLoader{}
	loader.On("Read", mock.Anything).Return(nil, errors.New("corrupt workbook"))
	sk := &mockSink{}

	_, err := New(afero.NewMemMapFs(), WithLoader(loader), WithSink(sk)).Run(context.Background(), defaultOptions("a.xlsx"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt workbook")
	sk.AssertNotCalled(t, "Write", mock.Anything, mock.Anything)
}

func TestOptionsFromConfig(t *testing.T) {
	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	cfg := config.PipelineConfig{
		Sources:       []string{"a.csv"},
		AnchorWeekday: "Fri",
		WindowDays:    49,
		LagDays:       3,
		Output:        "out.csv",
	}

	opts, err := OptionsFromConfig(cfg, now)
	require.NoError(t, err)
	assert.Equal(t, time.Friday, opts.Anchor)
	assert.Equal(t, now, opts.ReferenceDate)
	assert.Equal(t, []string{"a.csv"}, opts.Sources)
	assert.Equal(t, "out.csv", opts.Output)

	cfg.ReferenceDate = "2024-03-13"
	opts, err = OptionsFromConfig(cfg, now)
	require.NoError(t, err)
	assert.Equal(t, refDate, opts.ReferenceDate)

	cfg.ReferenceDate = "March 13"
	_, err = OptionsFromConfig(cfg, now)
	assert.Error(t, err)

	cfg.ReferenceDate = ""
	cfg.AnchorWeekday = "caturday"
	_, err = OptionsFromConfig(cfg, now)
	assert.Error(t, err)
}

func TestRun_XLSXDateCellsKeepTheirDate(t *testing.T) {
	formats := []string{"yyyy-mm-dd", "m/d/yyyy", "d/m/yyyy", "mm-dd-yy", "yyyy-mm-dd hh:mm:ss"}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	header := sheet.AddRow()
	for _, col := range []string{"date", "metric_C", "metric_D"} {
		header.AddCell().SetString(col)
	}
	for i, format := range formats {
		row := sheet.AddRow()
		day := time.Date(2024, time.March, 1+i, 0, 0, 0, 0, time.UTC)
		row.AddCell().SetDateWithOptions(day, xlsx.DateTimeOptions{Location: time.UTC, ExcelTimeFormat: format})
		row.AddCell().SetFloat(10)
		row.AddCell().SetFloat(5)
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "dates.xlsx", buf.Bytes(), 0o644))

	res, err := New(fsys).Run(context.Background(), defaultOptions("dates.xlsx"))
	require.NoError(t, err)

	assert.Equal(t, 0, res.Unparsed)
	require.Equal(t, len(formats), res.Final.Len())
	for i := range formats {
		want := time.Date(2024, time.March, 1+i, 0, 0, 0, 0, time.UTC).Format(table.DateLayout)
		assert.Equal(t, want, res.Final.Rows[i][table.ColDate].String(), formats[i])
		assert.Equal(t, fmt.Sprint(i), res.Final.Rows[i][table.ColDaysFromStart].String())
	}
}
