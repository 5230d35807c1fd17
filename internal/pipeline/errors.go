package pipeline

import "errors"

// Pipeline errors. These are deterministic input or configuration problems;
// there is no retry path.
var (
	// ErrNoDataset indicates a transform was requested before any data was
	// loaded into the preprocessor.
	ErrNoDataset = errors.New("no dataset loaded")

	// ErrConfiguration indicates an invalid transform configuration, such
	// as target encoding without a valid target column or an unknown
	// strategy name.
	ErrConfiguration = errors.New("invalid pipeline configuration")

	// ErrSplitRequired indicates tensor conversion was requested before
	// the dataset was split.
	ErrSplitRequired = errors.New("split data before converting to tensors")
)
