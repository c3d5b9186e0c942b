package pipeline

import (
	"github.com/sells-group/abwindow/internal/source"
	"github.com/sells-group/abwindow/internal/table"
	"github.com/sells-group/abwindow/internal/window"
)

// Phase names, in execution order.
const (
	PhaseLoad        = "load"
	PhaseConsolidate = "consolidate"
	PhaseWindow      = "window"
	PhaseDerive      = "derive"
	PhaseWrite       = "write"
)

// PhaseStatus is the outcome of one phase.
type PhaseStatus string

const (
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
)

// PhaseResult records one executed phase.
type PhaseResult struct {
	Name     string      `json:"name"`
	Status   PhaseStatus `json:"status"`
	Rows     int         `json:"rows"`
	Duration int64       `json:"duration_ms"`
	Error    string      `json:"error,omitempty"`
}

// Result summarises a run. On failure it holds whatever the completed
// phases produced.
type Result struct {
	RunID        string
	Window       window.Window
	Sources      []source.Result
	Consolidated table.Dataset
	Final        table.Dataset
	Unparsed     int // date cells that could not be parsed
	OutputPath   string
	Phases       []PhaseResult
}

// Loaded returns the number of sources that were read.
func (r *Result) Loaded() int {
	return r.count(source.Loaded)
}

// Skipped returns the number of sources that were missing.
func (r *Result) Skipped() int {
	return r.count(source.Skipped)
}

func (r *Result) count(s source.Status) int {
	n := 0
	for _, sr := range r.Sources {
		if sr.Status == s {
			n++
		}
	}
	return n
}
