package pipeline

import (
	"fmt"
	"log/slog"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/gidavehub/mlstudio-sub000/internal/dataset"
)

// EncodeMethod selects how EncodeCategorical converts categories to numbers.
type EncodeMethod string

const (
	EncodeOneHot EncodeMethod = "onehot"
	EncodeLabel  EncodeMethod = "label"
	EncodeTarget EncodeMethod = "target"
)

// targetSmoothing is the additive count used to blend a category's local
// target mean against the global mean: weight = count / (count + 10).
const targetSmoothing = 10

// EncodeOptions narrows EncodeCategorical to specific columns and, for
// target encoding, names the label column.
type EncodeOptions struct {
	// TargetColumns limits encoding to the named columns; empty means every
	// categorical column.
	TargetColumns []string
	// TargetColumn is the label column whose mean drives target encoding.
	TargetColumn string
}

// EncodeCategorical converts categorical columns to numeric representations.
// onehot replaces each targeted column, at its original position, with one
// 0/1 column per distinct value in first-seen order; label maps distinct
// values to integer codes 0..k-1; target replaces each category with its
// smoothed mean of the label column. Missing cells stay missing (one-hot
// rows for a missing original value are all zero).
func (p *Preprocessor) EncodeCategorical(method EncodeMethod, opts EncodeOptions) error {
	if err := p.requireTable(); err != nil {
		return err
	}

	targeted, err := p.categoricalTargets(opts.TargetColumns)
	if err != nil {
		return err
	}

	switch method {
	case EncodeOneHot:
		if err := p.encodeOneHot(targeted); err != nil {
			return err
		}
	case EncodeLabel:
		p.encodeLabel(targeted)
	case EncodeTarget:
		if err := p.encodeTarget(targeted, opts.TargetColumn); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown encoding method %q", ErrConfiguration, method)
	}

	p.table.InferTypes()
	p.appendStep(StepEncodeCategorical, map[string]any{
		"method":         string(method),
		"target_columns": opts.TargetColumns,
		"target_column":  opts.TargetColumn,
	})
	p.logger.Info("categorical columns encoded",
		slog.String("method", string(method)),
		slog.Int("encoded", len(targeted)),
		slog.Int("columns", p.table.NumColumns()))
	return nil
}

// categoricalTargets returns the indexes of the categorical columns to
// encode, honoring the optional filter.
func (p *Preprocessor) categoricalTargets(targetColumns []string) (map[int]bool, error) {
	idxs, err := p.targetIndexes(targetColumns)
	if err != nil {
		return nil, err
	}
	targeted := make(map[int]bool)
	for _, idx := range idxs {
		if p.table.Types()[idx] == dataset.TypeCategorical {
			targeted[idx] = true
		}
	}
	return targeted, nil
}

// distinctValues collects the distinct textual values of a column in
// first-seen order.
func distinctValues(cells []dataset.Cell) []string {
	seen := make(map[string]bool)
	var values []string
	for _, c := range cells {
		s, ok := c.Text()
		if !ok || seen[s] {
			continue
		}
		seen[s] = true
		values = append(values, s)
	}
	return values
}

// encodeOneHot rebuilds the whole schema in one pass: untouched columns pass
// through at their position and each targeted column expands into one column
// per distinct value, named "<column>_<value>". Generated names that would
// collide with another column are disambiguated with a numeric suffix so two
// categories can never silently share a column.
func (p *Preprocessor) encodeOneHot(targeted map[int]bool) error {
	oldColumns := p.table.Columns()
	oldRows := p.table.Rows()

	used := make(map[string]bool, len(oldColumns))
	for j, name := range oldColumns {
		if !targeted[j] {
			used[name] = true
		}
	}

	type expansion struct {
		values []string
		names  []string
	}
	expansions := make(map[int]expansion, len(targeted))

	var columns []string
	for j, name := range oldColumns {
		if !targeted[j] {
			columns = append(columns, name)
			continue
		}
		values := distinctValues(p.table.Column(j))
		names := make([]string, len(values))
		for k, v := range values {
			generated := name + "_" + v
			for n := 2; used[generated]; n++ {
				generated = name + "_" + v + "_" + strconv.Itoa(n)
			}
			used[generated] = true
			names[k] = generated
		}
		expansions[j] = expansion{values: values, names: names}
		columns = append(columns, names...)
	}

	rows := make([][]dataset.Cell, len(oldRows))
	for i, row := range oldRows {
		newRow := make([]dataset.Cell, 0, len(columns))
		for j, cell := range row {
			if !targeted[j] {
				newRow = append(newRow, cell)
				continue
			}
			exp := expansions[j]
			original, hasText := cell.Text()
			for _, v := range exp.values {
				if hasText && original == v {
					newRow = append(newRow, dataset.Number(1))
				} else {
					newRow = append(newRow, dataset.Number(0))
				}
			}
		}
		rows[i] = newRow
	}

	p.table.ReplaceSchema(columns, rows)
	return nil
}

// encodeLabel maps each targeted column's distinct values to integer codes
// in first-seen order and replaces the values in place.
func (p *Preprocessor) encodeLabel(targeted map[int]bool) {
	rows := p.table.Rows()
	for idx := range targeted {
		codes := make(map[string]int)
		for _, v := range distinctValues(p.table.Column(idx)) {
			codes[v] = len(codes)
		}
		for _, row := range rows {
			if s, ok := row[idx].Text(); ok {
				row[idx] = dataset.Number(float64(codes[s]))
			}
		}
	}
}

// encodeTarget replaces each category with its per-category mean of the
// label column, blended against the global mean with weight
// count/(count+10) so rare categories shrink toward the global statistic.
func (p *Preprocessor) encodeTarget(targeted map[int]bool, targetColumn string) error {
	if targetColumn == "" {
		return fmt.Errorf("%w: target encoding requires a target column", ErrConfiguration)
	}
	labelIdx, ok := p.table.ColumnIndex(targetColumn)
	if !ok {
		return fmt.Errorf("%w: target column %q not found", ErrConfiguration, targetColumn)
	}

	labels := p.table.NumericColumn(labelIdx)
	globalMean := 0.0
	if len(labels) > 0 {
		globalMean = stat.Mean(labels, nil)
	}

	rows := p.table.Rows()
	for idx := range targeted {
		if idx == labelIdx {
			continue
		}

		sums := make(map[string]float64)
		counts := make(map[string]float64)
		for _, row := range rows {
			s, ok := row[idx].Text()
			if !ok {
				continue
			}
			if v, numeric := row[labelIdx].Number(); numeric {
				sums[s] += v
				counts[s]++
			}
		}

		blended := make(map[string]float64, len(counts))
		for category, count := range counts {
			local := sums[category] / count
			weight := count / (count + targetSmoothing)
			blended[category] = weight*local + (1-weight)*globalMean
		}

		for _, row := range rows {
			if s, ok := row[idx].Text(); ok {
				if v, known := blended[s]; known {
					row[idx] = dataset.Number(v)
				} else {
					// Category never co-occurred with a numeric label.
					row[idx] = dataset.Number(globalMean)
				}
			}
		}
	}
	return nil
}
