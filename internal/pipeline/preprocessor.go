package pipeline

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/gidavehub/mlstudio-sub000/internal/dataset"
)

// Preprocessor owns one working Table and the log of every transformation
// applied to it. All methods are synchronous and must be called from a
// single goroutine; concurrent pipelines each own an independent
// Preprocessor.
type Preprocessor struct {
	logger *slog.Logger
	table  *dataset.Table
	steps  []Step
	split  *SplitResult
	order  int
}

// New creates an empty preprocessor. A nil logger falls back to the default.
func New(logger *slog.Logger) *Preprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preprocessor{logger: logger.With(slog.String("component", "preprocessor"))}
}

// Table returns the current working table, or nil before any load.
func (p *Preprocessor) Table() *dataset.Table { return p.table }

// Split returns the result of the last SplitData call, or nil.
func (p *Preprocessor) Split() *SplitResult { return p.split }

// Steps returns a copy of the step log sorted by execution order.
func (p *Preprocessor) Steps() []Step {
	steps := make([]Step, len(p.steps))
	copy(steps, p.steps)
	SortSteps(steps)
	return steps
}

// Reset clears the step log and any derived split state in one operation.
// The working table is left as-is so the caller may keep inspecting it.
func (p *Preprocessor) Reset() {
	p.steps = nil
	p.split = nil
	p.order = 0
	p.logger.Info("pipeline reset")
}

// LoadCSV parses raw CSV text and makes it the working table.
func (p *Preprocessor) LoadCSV(raw string) error {
	t, err := dataset.ParseCSV(raw)
	if err != nil {
		return err
	}
	p.adopt(t, "csv")
	return nil
}

// LoadJSON parses a JSON array of objects and makes it the working table.
func (p *Preprocessor) LoadJSON(data []byte) error {
	t, err := dataset.ParseJSON(data)
	if err != nil {
		return err
	}
	p.adopt(t, "json")
	return nil
}

// LoadExcel parses the first sheet of an XLSX workbook and makes it the
// working table.
func (p *Preprocessor) LoadExcel(r io.Reader) error {
	t, err := dataset.ParseExcel(r)
	if err != nil {
		return err
	}
	p.adopt(t, "xlsx")
	return nil
}

// LoadTable adopts an already-built table, for callers that constructed one
// directly (replay against an equivalent dataset, tests).
func (p *Preprocessor) LoadTable(t *dataset.Table) {
	p.adopt(t, "table")
}

func (p *Preprocessor) adopt(t *dataset.Table, format string) {
	p.table = t
	p.split = nil
	p.appendStep(StepLoad, map[string]any{
		"format":      format,
		"rows":        t.NumRows(),
		"columns":     t.NumColumns(),
		"fingerprint": fmt.Sprintf("%016x", t.Fingerprint()),
	})
	p.logger.Info("dataset loaded",
		slog.String("format", format),
		slog.Int("rows", t.NumRows()),
		slog.Int("columns", t.NumColumns()))
}

func (p *Preprocessor) appendStep(t StepType, params map[string]any) Step {
	step := newStep(t, p.order, params)
	p.order++
	p.steps = append(p.steps, step)
	return step
}

func (p *Preprocessor) requireTable() error {
	if p.table == nil {
		return ErrNoDataset
	}
	return nil
}

// targetIndexes resolves targetColumns to column indexes. An empty target
// list selects every column. Unknown names fail the transform before any
// mutation happens.
func (p *Preprocessor) targetIndexes(targetColumns []string) ([]int, error) {
	if len(targetColumns) == 0 {
		all := make([]int, p.table.NumColumns())
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	idxs := make([]int, 0, len(targetColumns))
	for _, name := range targetColumns {
		idx, ok := p.table.ColumnIndex(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", dataset.ErrColumnNotFound, name)
		}
		idxs = append(idxs, idx)
	}
	return idxs, nil
}
