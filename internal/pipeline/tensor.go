package pipeline

import (
	"log/slog"

	"github.com/gidavehub/mlstudio-sub000/internal/dataset"
)

// TensorMetadata describes the shape and provenance of a TensorBundle.
type TensorMetadata struct {
	InputShape         []int    `json:"input_shape"`
	OutputShape        []int    `json:"output_shape"`
	FeatureNames       []string `json:"feature_names"`
	LabelNames         []string `json:"label_names"`
	PreprocessingSteps []Step   `json:"preprocessing_steps"`
}

// TensorBundle is the pipeline's final output: flat numeric feature and
// label arrays per partition, ready for a training collaborator. Features
// are flattened row-major.
type TensorBundle struct {
	TrainingData     []float64      `json:"training_data"`
	TrainingLabels   []float64      `json:"training_labels"`
	ValidationData   []float64      `json:"validation_data"`
	ValidationLabels []float64      `json:"validation_labels"`
	TestingData      []float64      `json:"testing_data"`
	TestingLabels    []float64      `json:"testing_labels"`
	Metadata         TensorMetadata `json:"metadata"`
}

// ConvertToTensors flattens the split partitions into a TensorBundle. The
// last column at materialization time is the label; all preceding columns
// are features. Cells that are not numeric by this point (missing values or
// unencoded text) are coerced to 0. SplitData must have been called first.
func (p *Preprocessor) ConvertToTensors() (*TensorBundle, error) {
	if err := p.requireTable(); err != nil {
		return nil, err
	}
	if p.split == nil {
		return nil, ErrSplitRequired
	}

	columns := p.split.Columns
	labelIdx := len(columns) - 1
	featureNames := make([]string, labelIdx)
	copy(featureNames, columns[:labelIdx])
	labelName := columns[labelIdx]

	bundle := &TensorBundle{
		Metadata: TensorMetadata{
			InputShape:   []int{len(featureNames)},
			OutputShape:  []int{1},
			FeatureNames: featureNames,
			LabelNames:   []string{labelName},
		},
	}
	bundle.TrainingData, bundle.TrainingLabels = flatten(p.split.Training, labelIdx)
	bundle.ValidationData, bundle.ValidationLabels = flatten(p.split.Validation, labelIdx)
	bundle.TestingData, bundle.TestingLabels = flatten(p.split.Testing, labelIdx)

	p.appendStep(StepConvertToTensor, map[string]any{
		"feature_columns": featureNames,
		"label_column":    labelName,
	})
	bundle.Metadata.PreprocessingSteps = p.Steps()

	p.logger.Info("tensors materialized",
		slog.Int("features", len(featureNames)),
		slog.String("label", labelName))
	return bundle, nil
}

// flatten lays the feature cells of each row out row-major and pairs them
// with the label cell, coercing non-numeric residue to 0.
func flatten(rows [][]dataset.Cell, labelIdx int) (data, labels []float64) {
	data = make([]float64, 0, len(rows)*labelIdx)
	labels = make([]float64, 0, len(rows))
	for _, row := range rows {
		for j := 0; j < labelIdx; j++ {
			data = append(data, numericOrZero(row[j]))
		}
		labels = append(labels, numericOrZero(row[labelIdx]))
	}
	return data, labels
}

func numericOrZero(c dataset.Cell) float64 {
	if v, ok := c.Number(); ok {
		return v
	}
	return 0
}
