// Package pipeline runs the load, consolidate, window, derive and write
// stages in order for a single run.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/sells-group/abwindow/internal/config"
	"github.com/sells-group/abwindow/internal/consolidate"
	"github.com/sells-group/abwindow/internal/derive"
	"github.com/sells-group/abwindow/internal/sink"
	"github.com/sells-group/abwindow/internal/source"
	"github.com/sells-group/abwindow/internal/table"
	"github.com/sells-group/abwindow/internal/window"
)

// Loader reads the configured extracts.
type Loader interface {
	Read(locations []string) ([]source.Result, error)
}

// Sink persists the final dataset.
type Sink interface {
	Write(ds table.Dataset, path string) error
}

// Options parameterise a single run.
type Options struct {
	Sources       []string
	Anchor        time.Weekday
	WindowDays    int
	LagDays       int
	ReferenceDate time.Time
	Output        string
}

// OptionsFromConfig converts pipeline configuration into run options. An
// unset reference date falls back to now.
func OptionsFromConfig(cfg config.PipelineConfig, now time.Time) (Options, error) {
	anchor, err := window.ParseWeekday(cfg.AnchorWeekday)
	if err != nil {
		return Options{}, eris.Wrap(err, "pipeline: anchor weekday")
	}

	ref := now
	if cfg.ReferenceDate != "" {
		ref, err = time.Parse(table.DateLayout, cfg.ReferenceDate)
		if err != nil {
			return Options{}, eris.Wrapf(err, "pipeline: parse reference date %q", cfg.ReferenceDate)
		}
	}

	return Options{
		Sources:       cfg.Sources,
		Anchor:        anchor,
		WindowDays:    cfg.WindowDays,
		LagDays:       cfg.LagDays,
		ReferenceDate: ref,
		Output:        cfg.Output,
	}, nil
}

// Pipeline wires the stages together.
type Pipeline struct {
	loader Loader
	sink   Sink
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithLoader replaces the filesystem source reader.
func WithLoader(l Loader) Option {
	return func(p *Pipeline) { p.loader = l }
}

// WithSink replaces the filesystem sink writer.
func WithSink(s Sink) Option {
	return func(p *Pipeline) { p.sink = s }
}

// New creates a Pipeline reading from and writing to fsys.
func New(fsys afero.Fs, opts ...Option) *Pipeline {
	p := &Pipeline{
		loader: source.NewReader(fsys),
		sink:   sink.NewWriter(fsys),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run executes every stage once. Stages run strictly in sequence; ctx is
// checked between them.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	result := &Result{
		RunID:      uuid.NewString(),
		OutputPath: opts.Output,
	}
	log := zap.L().With(zap.String("run_id", result.RunID))
	log.Info("pipeline: starting run",
		zap.Strings("sources", opts.Sources),
		zap.String("reference_date", opts.ReferenceDate.Format(table.DateLayout)),
	)

	trackPhase := func(name string, fn func() (int, error)) error {
		if err := ctx.Err(); err != nil {
			return eris.Wrapf(err, "pipeline: %s", name)
		}

		start := time.Now()
		rows, err := fn()
		phase := PhaseResult{
			Name:     name,
			Rows:     rows,
			Duration: time.Since(start).Milliseconds(),
		}
		if err != nil {
			phase.Status = PhaseStatusFailed
			phase.Error = err.Error()
			log.Error("pipeline: phase failed",
				zap.String("phase", name),
				zap.Int64("duration_ms", phase.Duration),
				zap.Error(err),
			)
			result.Phases = append(result.Phases, phase)
			return eris.Wrapf(err, "pipeline: %s", name)
		}

		phase.Status = PhaseStatusComplete
		log.Info("pipeline: phase complete",
			zap.String("phase", name),
			zap.Int("rows", rows),
			zap.Int64("duration_ms", phase.Duration),
		)
		result.Phases = append(result.Phases, phase)
		return nil
	}

	w, err := window.Resolve(opts.ReferenceDate, opts.Anchor, opts.LagDays, opts.WindowDays)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: resolve window")
	}
	result.Window = w
	log.Info("pipeline: window resolved",
		zap.String("start", w.Start.Format(table.DateLayout)),
		zap.String("end", w.End.Format(table.DateLayout)),
	)

	if err := trackPhase(PhaseLoad, func() (int, error) {
		results, err := p.loader.Read(opts.Sources)
		if err != nil {
			return 0, err
		}
		result.Sources = results
		rows := 0
		for _, ds := range source.Datasets(results) {
			rows += ds.Len()
		}
		return rows, nil
	}); err != nil {
		return result, err
	}

	if err := trackPhase(PhaseConsolidate, func() (int, error) {
		merged, err := consolidate.Concat(source.Datasets(result.Sources))
		if err != nil {
			return 0, err
		}
		result.Consolidated = merged
		return merged.Len(), nil
	}); err != nil {
		return result, err
	}

	var filtered table.Dataset
	if err := trackPhase(PhaseWindow, func() (int, error) {
		res, err := window.Apply(result.Consolidated, w)
		if err != nil {
			return 0, err
		}
		if res.Warning != nil {
			result.Unparsed = res.Warning.Count
		}
		filtered = res.Dataset
		return filtered.Len(), nil
	}); err != nil {
		return result, err
	}

	if err := trackPhase(PhaseDerive, func() (int, error) {
		derived, err := derive.Apply(filtered)
		if err != nil {
			return 0, err
		}
		result.Final = derived
		return derived.Len(), nil
	}); err != nil {
		return result, err
	}

	if err := trackPhase(PhaseWrite, func() (int, error) {
		return result.Final.Len(), p.sink.Write(result.Final, opts.Output)
	}); err != nil {
		return result, err
	}

	log.Info("pipeline: run complete",
		zap.Int("loaded", result.Loaded()),
		zap.Int("skipped", result.Skipped()),
		zap.Int("consolidated_rows", result.Consolidated.Len()),
		zap.Int("output_rows", result.Final.Len()),
		zap.String("output", opts.Output),
	)
	return result, nil
}
