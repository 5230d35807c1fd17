package pipeline

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/gidavehub/mlstudio-sub000/internal/dataset"
)

// ScaleMethod selects the normalization applied by NormalizeData.
type ScaleMethod string

const (
	ScaleMinMax ScaleMethod = "minmax"
	ScaleZScore ScaleMethod = "zscore"
	ScaleRobust ScaleMethod = "robust"
)

// NormalizeData rescales numeric columns in place. minmax maps values into
// [0, 1]; zscore centers on the mean and divides by the population standard
// deviation; robust centers on the median and divides by the interquartile
// range. A zero denominator (constant column) is treated as 1 so the
// transform always completes. Non-numeric columns are skipped even when
// explicitly targeted.
func (p *Preprocessor) NormalizeData(method ScaleMethod, targetColumns []string) error {
	if err := p.requireTable(); err != nil {
		return err
	}
	switch method {
	case ScaleMinMax, ScaleZScore, ScaleRobust:
	default:
		return fmt.Errorf("%w: unknown normalization method %q", ErrConfiguration, method)
	}
	idxs, err := p.targetIndexes(targetColumns)
	if err != nil {
		return err
	}

	for _, idx := range idxs {
		if p.table.Types()[idx] != dataset.TypeNumeric {
			continue
		}
		vals := p.table.NumericColumn(idx)
		if len(vals) == 0 {
			continue
		}

		var transform func(float64) float64
		switch method {
		case ScaleMinMax:
			lo, hi := floats.Min(vals), floats.Max(vals)
			span := safeDivisor(hi - lo)
			transform = func(v float64) float64 { return (v - lo) / span }
		case ScaleZScore:
			mean := stat.Mean(vals, nil)
			std := safeDivisor(populationStd(vals))
			transform = func(v float64) float64 { return (v - mean) / std }
		case ScaleRobust:
			median := quantile(vals, 0.5)
			iqr := safeDivisor(quantile(vals, 0.75) - quantile(vals, 0.25))
			transform = func(v float64) float64 { return (v - median) / iqr }
		}

		applyNumeric(p.table.Rows(), idx, transform)
	}

	p.appendStep(StepNormalize, map[string]any{
		"method":         string(method),
		"target_columns": targetColumns,
	})
	p.logger.Info("numeric columns normalized", slog.String("method", string(method)))
	return nil
}

// applyNumeric maps f over the numeric cells of one column, leaving missing
// and textual cells untouched.
func applyNumeric(rows [][]dataset.Cell, idx int, f func(float64) float64) {
	for _, row := range rows {
		if v, ok := row[idx].Number(); ok {
			row[idx] = dataset.Number(f(v))
		}
	}
}
