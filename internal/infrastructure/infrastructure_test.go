package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gidavehub/mlstudio-sub000/internal/config"
)

func TestTraceIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	ctx = WithTraceID(ctx, "abc-123")
	assert.Equal(t, "abc-123", GetTraceID(ctx))

	// EnsureTraceID keeps an existing ID and mints one otherwise.
	assert.Equal(t, "abc-123", GetTraceID(EnsureTraceID(ctx)))
	assert.NotEmpty(t, GetTraceID(EnsureTraceID(context.Background())))
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "info", want: slog.LevelInfo},
		{in: "WARN", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "garbage", want: slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLevel(tt.in), tt.in)
	}
}

// TestTraceHandlerInjectsTraceID logs through the trace-aware handler with a
// trace ID in the context and expects it as a record attribute.
func TestTraceHandlerInjectsTraceID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&traceHandler{Handler: slog.NewJSONHandler(&buf, nil)})

	ctx := WithTraceID(context.Background(), "trace-xyz")
	logger.InfoContext(ctx, "hello")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "trace-xyz", record["trace_id"])

	// Without a trace ID the attribute is absent.
	buf.Reset()
	record = nil
	logger.Info("plain")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	_, present := record["trace_id"]
	assert.False(t, present)
}

func TestInitTracingDisabled(t *testing.T) {
	tracer, shutdown, err := InitTracing(config.TracingConfig{Enabled: false}, slog.Default())
	require.NoError(t, err)
	require.NotNil(t, tracer)
	assert.Nil(t, shutdown)

	// No-op spans are safe to use.
	_, span := tracer.Start(context.Background(), "noop")
	span.End()
}

func TestMetricsRegistry(t *testing.T) {
	m := NewMetrics()

	m.DatasetsIngested.Inc()
	m.RowsIngested.Add(42)
	m.StepsApplied.WithLabelValues("normalize").Inc()
	m.ActiveSessions.Set(3)

	families, err := m.Registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, fam := range families {
		names = append(names, fam.GetName())
	}
	joined := strings.Join(names, ",")
	for _, want := range []string{
		"mlstudio_datasets_ingested_total",
		"mlstudio_rows_ingested_total",
		"mlstudio_pipeline_steps_applied_total",
		"mlstudio_active_sessions",
	} {
		assert.Contains(t, joined, want)
	}
}

// TestMetricsIsolated: two instances own independent registries, so tests
// and embedded uses never collide on registration.
func TestMetricsIsolated(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.DatasetsIngested.Inc()

	families, err := b.Registry.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() == "mlstudio_datasets_ingested_total" {
			assert.Equal(t, 0.0, fam.GetMetric()[0].GetCounter().GetValue())
		}
	}
}
