package pipeline

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"

	"github.com/gidavehub/mlstudio-sub000/internal/dataset"
)

// ClipMethod selects how ClipOutliers computes its bounds.
type ClipMethod string

const (
	ClipIQR        ClipMethod = "iqr"
	ClipZScore     ClipMethod = "zscore"
	ClipPercentile ClipMethod = "percentile"
)

// Defaults applied when the corresponding ClipConfig field is zero.
const (
	defaultZScoreThreshold = 3.0
	defaultLowerPercentile = 1.0
	defaultUpperPercentile = 99.0
)

// ClipConfig configures ClipOutliers.
type ClipConfig struct {
	Method ClipMethod
	// Threshold is the z-score cutoff for the zscore method (default 3).
	Threshold float64
	// LowerPercentile and UpperPercentile bound the percentile method
	// (defaults 1 and 99).
	LowerPercentile float64
	UpperPercentile float64
	// TargetColumns limits clipping to the named columns; empty means every
	// numeric column.
	TargetColumns []string
}

// ClipOutliers bounds extreme numeric values in place. iqr clips into
// [q1 - 1.5*iqr, q3 + 1.5*iqr]; zscore replaces values beyond the threshold
// with mean ± threshold*std and leaves the rest untouched; percentile clips
// into the configured percentile bounds. IQR clipping is idempotent: a second
// pass finds every value already inside the fences.
func (p *Preprocessor) ClipOutliers(cfg ClipConfig) error {
	if err := p.requireTable(); err != nil {
		return err
	}
	switch cfg.Method {
	case ClipIQR, ClipZScore, ClipPercentile:
	default:
		return fmt.Errorf("%w: unknown outlier method %q", ErrConfiguration, cfg.Method)
	}

	if cfg.Threshold == 0 {
		cfg.Threshold = defaultZScoreThreshold
	}
	if cfg.LowerPercentile == 0 {
		cfg.LowerPercentile = defaultLowerPercentile
	}
	if cfg.UpperPercentile == 0 {
		cfg.UpperPercentile = defaultUpperPercentile
	}
	if cfg.Method == ClipPercentile && cfg.LowerPercentile >= cfg.UpperPercentile {
		return fmt.Errorf("%w: lower percentile %g must be below upper percentile %g",
			ErrConfiguration, cfg.LowerPercentile, cfg.UpperPercentile)
	}

	idxs, err := p.targetIndexes(cfg.TargetColumns)
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

		switch cfg.Method {
		case ClipIQR:
			q1, q3 := quantile(vals, 0.25), quantile(vals, 0.75)
			iqr := q3 - q1
			clampColumn(p.table.Rows(), idx, q1-1.5*iqr, q3+1.5*iqr)
		case ClipZScore:
			mean := stat.Mean(vals, nil)
			std := populationStd(vals)
			p.clipZScore(idx, mean, std, cfg.Threshold)
		case ClipPercentile:
			lo := quantile(vals, cfg.LowerPercentile/100)
			hi := quantile(vals, cfg.UpperPercentile/100)
			clampColumn(p.table.Rows(), idx, lo, hi)
		}
	}

	p.appendStep(StepFeatureEngineering, map[string]any{
		"action":           "clip_outliers",
		"method":           string(cfg.Method),
		"threshold":        cfg.Threshold,
		"lower_percentile": cfg.LowerPercentile,
		"upper_percentile": cfg.UpperPercentile,
		"target_columns":   cfg.TargetColumns,
	})
	p.logger.Info("outliers clipped", slog.String("method", string(cfg.Method)))
	return nil
}

func clampColumn(rows [][]dataset.Cell, idx int, lo, hi float64) {
	applyNumeric(rows, idx, func(v float64) float64 {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	})
}

// clipZScore replaces only the values whose |z| exceeds the threshold; a
// zero std means every z-score is zero and nothing moves.
func (p *Preprocessor) clipZScore(idx int, mean, std, threshold float64) {
	if std == 0 {
		return
	}
	applyNumeric(p.table.Rows(), idx, func(v float64) float64 {
		z := (v - mean) / std
		switch {
		case z > threshold:
			return mean + threshold*std
		case z < -threshold:
			return mean - threshold*std
		default:
			return v
		}
	})
}
