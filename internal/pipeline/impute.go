package pipeline

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"

	"github.com/gidavehub/mlstudio-sub000/internal/dataset"
)

// MissingStrategy selects how HandleMissingValues treats missing cells.
type MissingStrategy string

const (
	StrategyDropRows     MissingStrategy = "drop_rows"
	StrategyDropColumns  MissingStrategy = "drop_columns"
	StrategyMean         MissingStrategy = "mean"
	StrategyMedian       MissingStrategy = "median"
	StrategyMode         MissingStrategy = "mode"
	StrategyForwardFill  MissingStrategy = "forward_fill"
	StrategyBackwardFill MissingStrategy = "backward_fill"
)

// HandleMissingValues fills or removes missing cells according to strategy.
// Statistic strategies (mean, median, mode) compute the replacement from the
// non-missing values of each column; categorical columns always fall back to
// mode. A column whose statistic cannot be computed (all values missing) is
// left untouched rather than failing the transform. When targetColumns is
// non-empty only those columns are affected; drop_rows and drop_columns
// always consider the whole table.
func (p *Preprocessor) HandleMissingValues(strategy MissingStrategy, targetColumns []string) error {
	if err := p.requireTable(); err != nil {
		return err
	}

	switch strategy {
	case StrategyDropRows:
		if err := p.dropMissingRows(); err != nil {
			return err
		}
	case StrategyDropColumns:
		p.dropMissingColumns()
	case StrategyMean, StrategyMedian, StrategyMode:
		idxs, err := p.targetIndexes(targetColumns)
		if err != nil {
			return err
		}
		for _, idx := range idxs {
			p.imputeColumn(idx, strategy)
		}
	case StrategyForwardFill, StrategyBackwardFill:
		idxs, err := p.targetIndexes(targetColumns)
		if err != nil {
			return err
		}
		for _, idx := range idxs {
			p.fillColumn(idx, strategy == StrategyBackwardFill)
		}
	default:
		return fmt.Errorf("%w: unknown missing-value strategy %q", ErrConfiguration, strategy)
	}

	p.table.InferTypes()
	p.appendStep(StepHandleMissing, map[string]any{
		"strategy":       string(strategy),
		"target_columns": targetColumns,
	})
	p.logger.Info("missing values handled",
		slog.String("strategy", string(strategy)),
		slog.Int("rows", p.table.NumRows()),
		slog.Int("columns", p.table.NumColumns()))
	return nil
}

func (p *Preprocessor) dropMissingRows() error {
	kept := make([][]dataset.Cell, 0, p.table.NumRows())
	for _, row := range p.table.Rows() {
		complete := true
		for _, cell := range row {
			if cell.IsMissing() {
				complete = false
				break
			}
		}
		if complete {
			kept = append(kept, row)
		}
	}
	if len(kept) == 0 {
		return fmt.Errorf("%w: drop_rows removed every row", dataset.ErrEmptyDataset)
	}
	p.table.SetRows(kept)
	return nil
}

func (p *Preprocessor) dropMissingColumns() {
	hasMissing := make([]bool, p.table.NumColumns())
	for _, row := range p.table.Rows() {
		for j, cell := range row {
			if cell.IsMissing() {
				hasMissing[j] = true
			}
		}
	}

	var columns []string
	for j, name := range p.table.Columns() {
		if !hasMissing[j] {
			columns = append(columns, name)
		}
	}

	rows := make([][]dataset.Cell, p.table.NumRows())
	for i, row := range p.table.Rows() {
		newRow := make([]dataset.Cell, 0, len(columns))
		for j, cell := range row {
			if !hasMissing[j] {
				newRow = append(newRow, cell)
			}
		}
		rows[i] = newRow
	}
	p.table.ReplaceSchema(columns, rows)
}

// imputeColumn fills missing cells in one column with the requested
// statistic. Numeric columns use the named statistic; anything else uses the
// mode of the observed values.
func (p *Preprocessor) imputeColumn(idx int, strategy MissingStrategy) {
	if p.table.Types()[idx] == dataset.TypeNumeric {
		vals := p.table.NumericColumn(idx)
		if len(vals) == 0 {
			return
		}
		var replacement float64
		switch strategy {
		case StrategyMean:
			replacement = stat.Mean(vals, nil)
		case StrategyMedian:
			replacement = quantile(vals, 0.5)
		case StrategyMode:
			replacement = numericMode(vals)
		}
		fillMissing(p.table.Rows(), idx, dataset.Number(replacement))
		return
	}

	mode, ok := cellMode(p.table.Column(idx))
	if !ok {
		return
	}
	fillMissing(p.table.Rows(), idx, mode)
}

func fillMissing(rows [][]dataset.Cell, idx int, replacement dataset.Cell) {
	for _, row := range rows {
		if row[idx].IsMissing() {
			row[idx] = replacement
		}
	}
}

// numericMode returns the most frequent value, first-seen winning ties.
func numericMode(vals []float64) float64 {
	counts := make(map[float64]int, len(vals))
	best, bestCount := vals[0], 0
	for _, v := range vals {
		counts[v]++
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}

// cellMode returns the most frequent non-missing cell, first-seen winning
// ties, and false when every cell is missing.
func cellMode(cells []dataset.Cell) (dataset.Cell, bool) {
	counts := make(map[dataset.Cell]int, len(cells))
	var best dataset.Cell
	bestCount := 0
	for _, c := range cells {
		if c.IsMissing() {
			continue
		}
		counts[c]++
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	return best, bestCount > 0
}

// fillColumn propagates the nearest non-missing value forward (or backward)
// through one column. Cells before the first observed value stay missing.
func (p *Preprocessor) fillColumn(idx int, backward bool) {
	rows := p.table.Rows()
	last := dataset.Missing()
	if backward {
		for i := len(rows) - 1; i >= 0; i-- {
			if rows[i][idx].IsMissing() {
				rows[i][idx] = last
			} else {
				last = rows[i][idx]
			}
		}
		return
	}
	for i := range rows {
		if rows[i][idx].IsMissing() {
			rows[i][idx] = last
		} else {
			last = rows[i][idx]
		}
	}
}
