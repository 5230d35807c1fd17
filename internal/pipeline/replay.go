package pipeline

import (
	"encoding/json"
	"fmt"
)

// Replay applies a recorded step log to the currently loaded table, in step
// order. It is the mechanism behind saved pipelines: the same ordered steps
// against an equivalent table reproduce the same table, including the split,
// which reuses its recorded seed. Load steps are skipped (the caller already
// supplied the table); unknown or unreplayable step types fail with
// ErrConfiguration before any further mutation.
func (p *Preprocessor) Replay(steps []Step) error {
	if err := p.requireTable(); err != nil {
		return err
	}

	ordered := make([]Step, len(steps))
	copy(ordered, steps)
	SortSteps(ordered)

	for _, step := range ordered {
		if err := p.replayStep(step); err != nil {
			return fmt.Errorf("replay step %s (order %d): %w", step.Type, step.Order, err)
		}
	}
	return nil
}

func (p *Preprocessor) replayStep(step Step) error {
	params := step.Parameters
	switch step.Type {
	case StepLoad:
		return nil
	case StepHandleMissing:
		return p.HandleMissingValues(
			MissingStrategy(paramString(params, "strategy")),
			paramStringSlice(params, "target_columns"),
		)
	case StepNormalize, StepScale:
		return p.NormalizeData(
			ScaleMethod(paramString(params, "method")),
			paramStringSlice(params, "target_columns"),
		)
	case StepEncodeCategorical:
		return p.EncodeCategorical(
			EncodeMethod(paramString(params, "method")),
			EncodeOptions{
				TargetColumns: paramStringSlice(params, "target_columns"),
				TargetColumn:  paramString(params, "target_column"),
			},
		)
	case StepFeatureEngineering:
		if action := paramString(params, "action"); action != "clip_outliers" {
			return fmt.Errorf("%w: unknown feature engineering action %q", ErrConfiguration, action)
		}
		return p.ClipOutliers(ClipConfig{
			Method:          ClipMethod(paramString(params, "method")),
			Threshold:       paramFloat(params, "threshold"),
			LowerPercentile: paramFloat(params, "lower_percentile"),
			UpperPercentile: paramFloat(params, "upper_percentile"),
			TargetColumns:   paramStringSlice(params, "target_columns"),
		})
	case StepSplitData:
		ratios := paramMap(params, "split_ratios")
		_, err := p.SplitData(SplitOptions{
			Ratios: SplitRatios{
				Train:      paramFloat(ratios, "train"),
				Validation: paramFloat(ratios, "validation"),
				Test:       paramFloat(ratios, "test"),
			},
			Seed: paramInt64(params, "seed"),
		})
		return err
	case StepConvertToTensor:
		_, err := p.ConvertToTensors()
		return err
	default:
		return fmt.Errorf("%w: unknown step type %q", ErrConfiguration, step.Type)
	}
}

// Parameter extraction tolerant of JSON round-trips, where ints become
// float64 and string slices become []any.

func paramString(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

func paramFloat(params map[string]any, key string) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	default:
		return 0
	}
}

func paramInt64(params map[string]any, key string) int64 {
	switch v := params[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	default:
		return 0
	}
}

func paramStringSlice(params map[string]any, key string) []string {
	switch v := params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func paramMap(params map[string]any, key string) map[string]any {
	switch v := params[key].(type) {
	case map[string]any:
		return v
	default:
		return map[string]any{}
	}
}
