// Package observe holds the OpenTelemetry instruments and logger setup shared
// by the recording and analysis pipeline.
//
// Instruments are created from a [metric.MeterProvider] so tests can attach a
// manual reader. All recording helpers are safe to call on a nil *Metrics.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "reviewcap"

// Metrics holds the application's metric instruments.
type Metrics struct {
	// RecordingsCompleted counts recordings that reached the completion handler.
	RecordingsCompleted metric.Int64Counter

	// RecordingFailures counts recordings that ended in the error state. Use with
	//   attribute.String("code", ...)
	RecordingFailures metric.Int64Counter

	// FramesExtracted and FramesSkipped count frame extraction outcomes.
	FramesExtracted metric.Int64Counter
	FramesSkipped   metric.Int64Counter

	// AnalysisDuration tracks post-recording analysis latency per stage. Use with
	//   attribute.String("stage", ...)
	AnalysisDuration metric.Float64Histogram
}

var durationBuckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}

// NewMetrics creates all instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.RecordingsCompleted, err = m.Int64Counter("reviewcap.recordings.completed",
		metric.WithDescription("Recordings finalized and handed to analysis."),
	); err != nil {
		return nil, err
	}
	if met.RecordingFailures, err = m.Int64Counter("reviewcap.recordings.failures",
		metric.WithDescription("Recordings that ended in the error state, by error code."),
	); err != nil {
		return nil, err
	}
	if met.FramesExtracted, err = m.Int64Counter("reviewcap.frames.extracted",
		metric.WithDescription("Screenshots extracted from recordings."),
	); err != nil {
		return nil, err
	}
	if met.FramesSkipped, err = m.Int64Counter("reviewcap.frames.skipped",
		metric.WithDescription("Frame offsets that failed to extract and were skipped."),
	); err != nil {
		return nil, err
	}
	if met.AnalysisDuration, err = m.Float64Histogram("reviewcap.analysis.duration",
		metric.WithDescription("Latency of post-recording analysis stages."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

func (m *Metrics) RecordingCompleted(ctx context.Context) {
	if m == nil {
		return
	}
	m.RecordingsCompleted.Add(ctx, 1)
}

func (m *Metrics) RecordingFailed(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.RecordingFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

func (m *Metrics) FrameExtracted(ctx context.Context) {
	if m == nil {
		return
	}
	m.FramesExtracted.Add(ctx, 1)
}

func (m *Metrics) FrameSkipped(ctx context.Context) {
	if m == nil {
		return
	}
	m.FramesSkipped.Add(ctx, 1)
}

// ObserveStage records how long an analysis stage took since start.
func (m *Metrics) ObserveStage(ctx context.Context, stage string, start time.Time) {
	if m == nil {
		return
	}
	m.AnalysisDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("stage", stage)))
}
