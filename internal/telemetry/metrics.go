package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentstation/contactsync/pkg/differ"
	"github.com/agentstation/contactsync/pkg/report"
)

// Metrics records run and action telemetry.
type Metrics struct {
	tracer     trace.Tracer
	actions    metric.Int64Counter
	runs       metric.Int64Counter
	duration   metric.Float64Histogram
	mirrorSize metric.Int64Gauge
}

// NewMetrics uses the global providers installed by Init.
func NewMetrics() *Metrics {
	return NewMetricsWith(otel.GetMeterProvider(), otel.GetTracerProvider())
}

// NewMetricsWith uses explicit providers.
func NewMetricsWith(mp metric.MeterProvider, tp trace.TracerProvider) *Metrics {
	m := mp.Meter(instrumentationScope)
	actions, _ := m.Int64Counter("contactsync.actions",
		metric.WithDescription("Directory actions by kind and outcome"),
	)
	runs, _ := m.Int64Counter("contactsync.runs",
		metric.WithDescription("Reconciliation runs by result"),
	)
	duration, _ := m.Float64Histogram("contactsync.run.duration",
		metric.WithDescription("Reconciliation run duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	mirrorSize, _ := m.Int64Gauge("contactsync.mirror.contacts",
		metric.WithDescription("Contacts in the mirror after refresh"),
	)
	return &Metrics{
		tracer:     tp.Tracer(instrumentationScope),
		actions:    actions,
		runs:       runs,
		duration:   duration,
		mirrorSize: mirrorSize,
	}
}

// RecordAction counts one action outcome.
func (m *Metrics) RecordAction(ctx context.Context, kind differ.ActionKind, outcome report.Outcome) {
	m.actions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", string(kind)),
		attribute.String("outcome", string(outcome)),
	))
}

// RecordMirrorSize records the number of contacts observed by a refresh.
func (m *Metrics) RecordMirrorSize(ctx context.Context, n int) {
	m.mirrorSize.Record(ctx, int64(n))
}

// StartRun opens a span for one run. The returned function ends it and
// records the run's result.
func (m *Metrics) StartRun(ctx context.Context, runID string) (context.Context, func(err error)) {
	ctx, span := m.tracer.Start(ctx, "contactsync.run",
		trace.WithAttributes(attribute.String("run.id", runID)),
	)
	start := time.Now()

	return ctx, func(err error) {
		result := "ok"
		if err != nil {
			result = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		attrs := metric.WithAttributes(attribute.String("result", result))
		m.runs.Add(ctx, 1, attrs)
		m.duration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
		span.End()
	}
}

// StartStage opens a child span for a pipeline stage.
func (m *Metrics) StartStage(ctx context.Context, stage string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "contactsync."+stage)
}
