package pipeline

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/gidavehub/mlstudio-sub000/internal/dataset"
)

// SplitRatios are the train/validation/test proportions. They are intended
// to sum to 1.0; the test partition always receives every row the first two
// floors leave behind.
type SplitRatios struct {
	Train      float64 `json:"train"`
	Validation float64 `json:"validation"`
	Test       float64 `json:"test"`
}

// SplitOptions configures SplitData. A zero Seed asks for a fresh random
// seed; whichever seed is used ends up in the recorded step parameters so a
// replayed pipeline shuffles identically.
type SplitOptions struct {
	Ratios SplitRatios
	Seed   int64
}

// SplitResult holds the three disjoint row partitions produced by
// SplitData. Rows are full-width copies taken at split time; later table
// mutations do not propagate into them.
type SplitResult struct {
	Columns    []string
	Training   [][]dataset.Cell
	Validation [][]dataset.Cell
	Testing    [][]dataset.Cell
	Seed       int64
}

// SplitData shuffles the rows with a seeded Fisher–Yates shuffle and
// partitions them: floor(n*train) rows for training, floor(n*validation)
// for validation, and everything remaining for testing. Splitting is meant
// to be the last schema-relevant operation; the partitions are snapshots and
// are not re-synced if the table mutates afterwards.
func (p *Preprocessor) SplitData(opts SplitOptions) (*SplitResult, error) {
	if err := p.requireTable(); err != nil {
		return nil, err
	}
	r := opts.Ratios
	if r.Train < 0 || r.Validation < 0 || r.Test < 0 || r.Train+r.Validation+r.Test <= 0 {
		return nil, fmt.Errorf("%w: invalid split ratios %+v", ErrConfiguration, r)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = randomSeed()
	}

	rows := p.table.Rows()
	n := len(rows)
	perm := rand.New(rand.NewSource(seed)).Perm(n)

	shuffled := make([][]dataset.Cell, n)
	for i, src := range perm {
		row := make([]dataset.Cell, len(rows[src]))
		copy(row, rows[src])
		shuffled[i] = row
	}

	trainEnd := int(math.Floor(float64(n) * r.Train))
	valEnd := trainEnd + int(math.Floor(float64(n)*r.Validation))
	if trainEnd > n {
		trainEnd = n
	}
	if valEnd > n {
		valEnd = n
	}

	columns := make([]string, p.table.NumColumns())
	copy(columns, p.table.Columns())

	p.split = &SplitResult{
		Columns:    columns,
		Training:   shuffled[:trainEnd],
		Validation: shuffled[trainEnd:valEnd],
		Testing:    shuffled[valEnd:],
		Seed:       seed,
	}

	p.appendStep(StepSplitData, map[string]any{
		"split_ratios": map[string]any{
			"train":      r.Train,
			"validation": r.Validation,
			"test":       r.Test,
		},
		"seed": seed,
	})
	p.logger.Info("dataset split",
		slog.Int("training", len(p.split.Training)),
		slog.Int("validation", len(p.split.Validation)),
		slog.Int("testing", len(p.split.Testing)),
		slog.Int64("seed", seed))
	return p.split, nil
}

// maxGeneratedSeed caps generated seeds at 2^53-1 so the recorded value
// survives a JSON round-trip intact (float64 holds 53 mantissa bits).
const maxGeneratedSeed = 1<<53 - 1

// randomSeed draws a non-zero seed from the OS entropy source.
func randomSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		// Entropy exhaustion is effectively unreachable; fall back to a
		// fixed odd constant rather than failing the split.
		return 0x5DEECE66D
	}
	seed := int64(binary.LittleEndian.Uint64(b[:]) & maxGeneratedSeed)
	if seed == 0 {
		seed = 1
	}
	return seed
}
