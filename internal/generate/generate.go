// Package generate produces synthetic experiment extracts for demos and tests.
package generate

import (
	"context"
	"encoding/binary"
	"math/rand/v2"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/abwindow/internal/sink"
	"github.com/sells-group/abwindow/internal/table"
)

// Columns of every generated extract.
var Columns = []string{table.ColDate, "user_id", "variant", table.ColMetricC, table.ColMetricD, "conversions"}

// dateSpread is the number of distinct consecutive dates rows cycle through.
const dateSpread = 30

// Extract describes one synthetic file.
type Extract struct {
	Name  string // file name without extension
	Start time.Time
	Rows  int
}

// Plan returns the default extracts relative to today: a monthly file from
// the first of the month, last week's file from its Sunday, and this week's
// file from its Monday.
func Plan(today time.Time) []Extract {
	today = table.Day(today)
	sinceMonday := (int(today.Weekday()) + 6) % 7
	thisWeek := today.AddDate(0, 0, -sinceMonday)
	lastWeek := thisWeek.AddDate(0, 0, -8)

	return []Extract{
		{Name: "mock_monthly_data", Start: time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC), Rows: 8000},
		{Name: "mock_last_week_data", Start: lastWeek, Rows: 1000},
		{Name: "mock_this_week_data", Start: thisWeek, Rows: 500},
	}
}

// Generator writes synthetic extracts.
type Generator struct {
	writer *sink.Writer
	seed   uint64
}

// New returns a Generator writing to fsys. The same seed always yields the
// same rows.
func New(fsys afero.Fs, seed uint64) *Generator {
	return &Generator{writer: sink.NewWriter(fsys), seed: seed}
}

// Dataset builds the rows for e. index distinguishes extracts sharing a seed.
func (g *Generator) Dataset(e Extract, index int) table.Dataset {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[0:], g.seed)
	binary.LittleEndian.PutUint64(key[8:], uint64(index))
	src := rand.NewChaCha8(key)
	rng := rand.New(src)

	ds := table.New(e.Name, Columns...)
	ds.Rows = make([]table.Row, 0, e.Rows)
	for i := range e.Rows {
		variant := "Control"
		if rng.IntN(2) == 1 {
			variant = "Treatment"
		}
		ds.Append(
			table.Date(e.Start.AddDate(0, 0, i%dateSpread)),
			table.Text(uuid.Must(uuid.NewRandomFromReader(src)).String()),
			table.Text(variant),
			table.Number(float64(100+rng.IntN(901))),
			table.Number(0.1+rng.Float64()*4.9),
			table.Number(float64(rng.IntN(2))),
		)
	}
	return ds
}

// Generate writes every extract into dir using the given extension (".xlsx"
// or ".csv") and returns the written paths in plan order.
func (g *Generator) Generate(ctx context.Context, dir, ext string, extracts []Extract) ([]string, error) {
	if ext != ".xlsx" && ext != ".csv" {
		return nil, eris.Errorf("generate: unsupported format %q", ext)
	}

	paths := make([]string, len(extracts))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, e := range extracts {
		paths[i] = filepath.Join(dir, e.Name+ext)
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			ds := g.Dataset(e, i)
			if err := g.writer.Write(ds, paths[i]); err != nil {
				return eris.Wrapf(err, "generate: write %s", e.Name)
			}
			zap.L().Info("generate: extract written",
				zap.String("path", paths[i]),
				zap.Int("rows", ds.Len()),
				zap.String("start", e.Start.Format(table.DateLayout)),
			)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}
