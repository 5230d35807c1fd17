package pipeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// StepType identifies the kind of transformation a step recorded.
type StepType string

const (
	StepLoad               StepType = "load"
	StepHandleMissing      StepType = "handle_missing"
	StepNormalize          StepType = "normalize"
	StepEncodeCategorical  StepType = "encode_categorical"
	StepFeatureEngineering StepType = "feature_engineering"
	StepSplitData          StepType = "split_data"
	StepConvertToTensor    StepType = "convert_to_tensor"
	StepReshape            StepType = "reshape"
	StepScale              StepType = "scale"
)

// Step is one immutable entry in the pipeline log: the exact transformation
// applied, its configuration, and when it ran. Steps are kept sorted by
// Order and the log is append-only during normal operation.
type Step struct {
	ID         string         `json:"id"`
	Type       StepType       `json:"type"`
	Parameters map[string]any `json:"parameters"`
	Order      int            `json:"order"`
	AppliedAt  time.Time      `json:"applied_at"`
}

func newStep(t StepType, order int, params map[string]any) Step {
	if params == nil {
		params = map[string]any{}
	}
	return Step{
		ID:         fmt.Sprintf("%s-%s", t, uuid.NewString()),
		Type:       t,
		Parameters: params,
		Order:      order,
		AppliedAt:  time.Now().UTC(),
	}
}

// SortSteps orders a recorded step log by Order, the execution order used by
// Replay.
func SortSteps(steps []Step) {
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Order < steps[j].Order })
}
