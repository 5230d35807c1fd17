package services

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gidavehub/mlstudio-sub000/internal/analytics"
	"github.com/gidavehub/mlstudio-sub000/internal/dataset"
	"github.com/gidavehub/mlstudio-sub000/internal/infrastructure"
	"github.com/gidavehub/mlstudio-sub000/internal/pipeline"
	ws "github.com/gidavehub/mlstudio-sub000/internal/websocket"
)

// PreprocessService executes pipeline operations against a session's
// preprocessor, wrapping each one with tracing, metrics, and step-event
// broadcast. It is the only code path through which transports touch a
// Preprocessor.
type PreprocessService struct {
	logger   *slog.Logger
	sessions *SessionService
	metrics  *infrastructure.Metrics
	tracer   trace.Tracer
	hub      *ws.Hub
}

// NewPreprocessService wires the service. The hub may be nil in contexts
// without event delivery (CLI, tests).
func NewPreprocessService(
	logger *slog.Logger,
	sessions *SessionService,
	metrics *infrastructure.Metrics,
	tracer trace.Tracer,
	hub *ws.Hub,
) *PreprocessService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PreprocessService{
		logger:   logger.With(slog.String("component", "preprocess_service")),
		sessions: sessions,
		metrics:  metrics,
		tracer:   tracer,
		hub:      hub,
	}
}

// DataFormat names an ingestion format accepted by Load.
type DataFormat string

const (
	FormatCSV   DataFormat = "csv"
	FormatJSON  DataFormat = "json"
	FormatExcel DataFormat = "xlsx"
)

// Load ingests a raw payload into the session's working table, replacing
// whatever was loaded before.
func (s *PreprocessService) Load(ctx context.Context, sessionID string, format DataFormat, payload []byte) error {
	return s.run(ctx, sessionID, "load", func(p *pipeline.Preprocessor) error {
		var err error
		switch format {
		case FormatJSON:
			err = p.LoadJSON(payload)
		case FormatExcel:
			err = p.LoadExcel(bytes.NewReader(payload))
		default:
			err = p.LoadCSV(string(payload))
		}
		if err != nil {
			return err
		}
		s.metrics.DatasetsIngested.Inc()
		s.metrics.RowsIngested.Add(float64(p.Table().NumRows()))
		return nil
	})
}

// HandleMissing applies a missing-value strategy.
func (s *PreprocessService) HandleMissing(ctx context.Context, sessionID string, strategy pipeline.MissingStrategy, targetColumns []string) error {
	return s.run(ctx, sessionID, "handle_missing", func(p *pipeline.Preprocessor) error {
		return p.HandleMissingValues(strategy, targetColumns)
	})
}

// Normalize rescales numeric columns.
func (s *PreprocessService) Normalize(ctx context.Context, sessionID string, method pipeline.ScaleMethod, targetColumns []string) error {
	return s.run(ctx, sessionID, "normalize", func(p *pipeline.Preprocessor) error {
		return p.NormalizeData(method, targetColumns)
	})
}

// Encode converts categorical columns to numeric form.
func (s *PreprocessService) Encode(ctx context.Context, sessionID string, method pipeline.EncodeMethod, opts pipeline.EncodeOptions) error {
	return s.run(ctx, sessionID, "encode_categorical", func(p *pipeline.Preprocessor) error {
		return p.EncodeCategorical(method, opts)
	})
}

// ClipOutliers bounds extreme numeric values.
func (s *PreprocessService) ClipOutliers(ctx context.Context, sessionID string, cfg pipeline.ClipConfig) error {
	return s.run(ctx, sessionID, "clip_outliers", func(p *pipeline.Preprocessor) error {
		return p.ClipOutliers(cfg)
	})
}

// SplitData partitions the rows into train/validation/test sets.
func (s *PreprocessService) SplitData(ctx context.Context, sessionID string, opts pipeline.SplitOptions) (result *pipeline.SplitResult, err error) {
	err = s.run(ctx, sessionID, "split_data", func(p *pipeline.Preprocessor) error {
		result, err = p.SplitData(opts)
		return err
	})
	return result, err
}

// ConvertToTensors materializes the split partitions into flat arrays.
func (s *PreprocessService) ConvertToTensors(ctx context.Context, sessionID string) (bundle *pipeline.TensorBundle, err error) {
	err = s.run(ctx, sessionID, "convert_to_tensor", func(p *pipeline.Preprocessor) error {
		bundle, err = p.ConvertToTensors()
		return err
	})
	return bundle, err
}

// Replay applies a recorded step log to the session's current table.
func (s *PreprocessService) Replay(ctx context.Context, sessionID string, steps []pipeline.Step) error {
	return s.run(ctx, sessionID, "replay", func(p *pipeline.Preprocessor) error {
		return p.Replay(steps)
	})
}

// Reset clears the session's step log and split state.
func (s *PreprocessService) Reset(ctx context.Context, sessionID string) error {
	return s.run(ctx, sessionID, "reset", func(p *pipeline.Preprocessor) error {
		p.Reset()
		return nil
	})
}

// Steps returns the session's recorded step log.
func (s *PreprocessService) Steps(sessionID string) ([]pipeline.Step, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	var steps []pipeline.Step
	err = session.with(func(p *pipeline.Preprocessor) error {
		steps = p.Steps()
		return nil
	})
	return steps, err
}

// Summarize computes per-column descriptive statistics.
func (s *PreprocessService) Summarize(sessionID string) ([]analytics.ColumnSummary, error) {
	var summaries []analytics.ColumnSummary
	err := s.read(sessionID, func(t *dataset.Table) error {
		summaries = analytics.Summarize(t)
		return nil
	})
	return summaries, err
}

// Histogram bins a numeric column.
func (s *PreprocessService) Histogram(sessionID, column string, bins int) (*analytics.Histogram, error) {
	var hist *analytics.Histogram
	err := s.read(sessionID, func(t *dataset.Table) error {
		var err error
		hist, err = analytics.ComputeHistogram(t, column, bins)
		return err
	})
	return hist, err
}

// Scatter pairs two numeric columns.
func (s *PreprocessService) Scatter(sessionID, columnX, columnY string) (*analytics.ScatterSeries, error) {
	var series *analytics.ScatterSeries
	err := s.read(sessionID, func(t *dataset.Table) error {
		var err error
		series, err = analytics.ComputeScatter(t, columnX, columnY)
		return err
	})
	return series, err
}

// Correlation builds the Pearson correlation matrix.
func (s *PreprocessService) Correlation(sessionID string, columns []string) (*analytics.CorrelationMatrix, error) {
	var matrix *analytics.CorrelationMatrix
	err := s.read(sessionID, func(t *dataset.Table) error {
		var err error
		matrix, err = analytics.ComputeCorrelation(t, columns)
		return err
	})
	return matrix, err
}

// Export serializes the session's current table.
func (s *PreprocessService) Export(sessionID string, format DataFormat) ([]byte, error) {
	var out []byte
	err := s.read(sessionID, func(t *dataset.Table) error {
		switch format {
		case FormatJSON:
			data, err := t.ExportJSON()
			if err != nil {
				return err
			}
			out = data
		default:
			text, err := t.ExportCSV()
			if err != nil {
				return err
			}
			out = []byte(text)
		}
		return nil
	})
	return out, err
}

// run executes one mutating pipeline operation under the session lock, with
// a span, step metrics, and a step-applied broadcast on success.
func (s *PreprocessService) run(ctx context.Context, sessionID, operation string, fn func(*pipeline.Preprocessor) error) error {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}

	ctx, span := s.tracer.Start(ctx, "pipeline."+operation,
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	start := time.Now()
	var lastStep *pipeline.Step
	err = session.with(func(p *pipeline.Preprocessor) error {
		before := len(p.Steps())
		if err := fn(p); err != nil {
			return err
		}
		if steps := p.Steps(); len(steps) > before {
			lastStep = &steps[len(steps)-1]
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		s.logger.ErrorContext(ctx, "pipeline operation failed",
			slog.String("operation", operation),
			slog.String("session_id", sessionID),
			slog.Any("error", err))
		return err
	}

	s.metrics.StepsApplied.WithLabelValues(operation).Inc()
	s.metrics.StepDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	if s.hub != nil && lastStep != nil {
		s.hub.Broadcast(ws.Event{
			Type:    ws.TypeStepApplied,
			Session: sessionID,
			Payload: lastStep,
		})
	}
	return nil
}

// read executes a read-only operation against the session's table under the
// session lock.
func (s *PreprocessService) read(sessionID string, fn func(*dataset.Table) error) error {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	return session.with(func(p *pipeline.Preprocessor) error {
		if p.Table() == nil {
			return pipeline.ErrNoDataset
		}
		return fn(p.Table())
	})
}
