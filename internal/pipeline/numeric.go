package pipeline

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// populationStd returns the population standard deviation (divisor n).
func populationStd(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := stat.Mean(xs, nil)
	return math.Sqrt(stat.MomentAbout(2, xs, mean, nil))
}

// quantile returns the p-th quantile of xs using sorted-array indexing
// floor(p * (n-1)). This is the quantile rule shared by robust scaling, IQR
// fences, and percentile clipping.
func quantile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	idx := int(math.Floor(p * float64(len(sorted)-1)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// safeDivisor substitutes 1 for a zero denominator so degenerate columns
// (zero range, zero variance, zero IQR) never abort the pipeline.
func safeDivisor(d float64) float64 {
	if d == 0 {
		return 1
	}
	return d
}
