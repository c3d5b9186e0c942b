package sink

import (
	"errors"
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/abwindow/internal/source"
	"github.com/sells-group/abwindow/internal/table"
)

func sample() table.Dataset {
	ds := table.New("final", "date", "user_id", "metric_C", "metric_D", "c_d_ratio", "days_from_start")
	ds.Append(table.Text("2024-03-01"), table.Text("u-1"), table.Text("10"), table.Text("4"), table.Number(2.5), table.Number(0))
	ds.Append(table.Text("2024-03-02"), table.Text("u,2"), table.Text("3"), table.Text("0"), table.Number(0), table.Number(1))
	ds.Append(table.Text("2024-03-03"), table.Null(), table.Text("1"), table.Text("2"), table.Number(0.5), table.Null())
	return ds
}

func TestWrite_CSV(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, NewWriter(fs).Write(sample(), "out/final.csv"))

	data, err := afero.ReadFile(fs, "out/final.csv")
	require.NoError(t, err)
	assert.Equal(t,
		"date,user_id,metric_C,metric_D,c_d_ratio,days_from_start\n"+
			"2024-03-01,u-1,10,4,2.5,0\n"+
			"2024-03-02,\"u,2\",3,0,0,1\n"+
			"2024-03-03,,1,2,0.5,\n",
		string(data))
}

func TestWrite_DateValues(t *testing.T) {
	fs := afero.NewMemMapFs()
	ds := table.New("final", "date")
	d, ok := table.ParseDate("03/08/2024")
	require.True(t, ok)
	ds.Append(table.Date(d))

	require.NoError(t, NewWriter(fs).Write(ds, "final.csv"))
	data, err := afero.ReadFile(fs, "final.csv")
	require.NoError(t, err)
	assert.Equal(t, "date\n2024-03-08\n", string(data))
}

func TestWrite_RoundTrip(t *testing.T) {
	for _, path := range []string{"output_data/final.csv", "output_data/final.xlsx"} {
		t.Run(path, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			ds := sample()
			require.NoError(t, NewWriter(fs).Write(ds, path))

			back, err := source.NewReader(fs).Load(path)
			require.NoError(t, err)
			assert.Equal(t, ds.Len(), back.Len())
			assert.ElementsMatch(t, ds.Columns, back.Columns)
			assert.Equal(t, "u-1", back.Rows[0]["user_id"].String())
			assert.Equal(t, "2024-03-02", back.Rows[1]["date"].String())
		})
	}
}

func TestWrite_EmptyDatasetWritesHeader(t *testing.T) {
	fs := afero.NewMemMapFs()
	ds := table.New("final", "date", "metric_C", "metric_D").Empty()

	require.NoError(t, NewWriter(fs).Write(ds, "empty.csv"))

	data, err := afero.ReadFile(fs, "empty.csv")
	require.NoError(t, err)
	assert.Equal(t, "date,metric_C,metric_D\n", string(data))

	back, err := source.NewReader(fs).Load("empty.csv")
	require.NoError(t, err)
	assert.Equal(t, 0, back.Len())
	assert.Equal(t, ds.Columns, back.Columns)
}

func TestWrite_EmptyDatasetXLSX(t *testing.T) {
	fs := afero.NewMemMapFs()
	ds := table.New("final", "date", "metric_C").Empty()

	require.NoError(t, NewWriter(fs).Write(ds, "empty.xlsx"))

	back, err := source.NewReader(fs).Load("empty.xlsx")
	require.NoError(t, err)
	assert.Equal(t, 0, back.Len())
	assert.Equal(t, ds.Columns, back.Columns)
}

func TestWrite_Overwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "final.csv", []byte("old,content,that,is,longer\n1,2,3,4,5\n6,7,8,9,10\n"), 0o644))

	ds := table.New("final", "date")
	ds.Append(table.Text("2024-03-01"))
	require.NoError(t, NewWriter(fs).Write(ds, "final.csv"))

	data, err := afero.ReadFile(fs, "final.csv")
	require.NoError(t, err)
	assert.Equal(t, "date\n2024-03-01\n", string(data))
}

func TestWrite_Failure(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())

	err := NewWriter(fs).Write(sample(), "out/final.csv")
	require.Error(t, err)

	var we *WriteError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, "out/final.csv", we.Path)
	assert.True(t, errors.Is(err, os.ErrPermission))
	assert.Contains(t, err.Error(), "sink: write out/final.csv")
}

func TestWriteError_Unwrap(t *testing.T) {
	inner := errors.New("disk full")
	err := &WriteError{Path: "x.csv", Err: inner}
	assert.Equal(t, "sink: write x.csv: disk full", err.Error())
	assert.ErrorIs(t, err, inner)
}

func TestWrite_WhitespaceCellsPassThrough(t *testing.T) {
	fs := afero.NewMemMapFs()
	in := "date,variant,notes\n2024-03-01,  ,a\n2024-03-02,Control, \n"
	require.NoError(t, afero.WriteFile(fs, "in.csv", []byte(in), 0o644))

	ds, err := source.NewReader(fs).Load("in.csv")
	require.NoError(t, err)
	require.NoError(t, NewWriter(fs).Write(ds, "out.csv"))

	data, err := afero.ReadFile(fs, "out.csv")
	require.NoError(t, err)
	assert.Equal(t, "date,variant,notes\n2024-03-01,\"  \",a\n2024-03-02,Control,\" \"\n", string(data))

	back, err := source.NewReader(fs).Load("out.csv")
	require.NoError(t, err)
	assert.Equal(t, "  ", back.Rows[0]["variant"].String())
	assert.Equal(t, " ", back.Rows[1]["notes"].String())
}
