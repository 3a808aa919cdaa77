package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CycleMetrics holds the per-cycle lifecycle instruments.
type CycleMetrics struct {
	// Counters
	CandidatesProcessed metric.Int64Counter
	CandidatesExcluded  metric.Int64Counter
	CandidatesFailed    metric.Int64Counter
	ResourcesMarked     metric.Int64Counter
	ResourcesUnmarked   metric.Int64Counter
	ResourcesDeleted    metric.Int64Counter
	ResourcesNotified   metric.Int64Counter

	// Gauges
	MarkedCurrent metric.Int64Gauge

	// Histograms
	CycleDuration metric.Float64Histogram
}

// InitCycleMetrics initializes all lifecycle instruments.
func InitCycleMetrics(meter metric.Meter) (*CycleMetrics, error) {
	m := &CycleMetrics{}

	if err := m.initCounters(meter); err != nil {
		return nil, err
	}

	var err error
	m.MarkedCurrent, err = meter.Int64Gauge(
		"sweeper.resources.marked.current",
		metric.WithDescription("Current number of marked resources per namespace"),
		metric.WithUnit("resources"),
	)
	if err != nil {
		return nil, err
	}

	m.CycleDuration, err = meter.Float64Histogram(
		"sweeper.cycle.duration.ms",
		metric.WithDescription("Time taken to complete a lifecycle cycle"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *CycleMetrics) initCounters(meter metric.Meter) error {
	var err error

	m.CandidatesProcessed, err = meter.Int64Counter(
		"sweeper.candidates.processed.total",
		metric.WithDescription("Total number of candidates processed"),
		metric.WithUnit("candidates"),
	)
	if err != nil {
		return err
	}

	m.CandidatesExcluded, err = meter.Int64Counter(
		"sweeper.candidates.excluded.total",
		metric.WithDescription("Total number of candidates excluded from a cycle"),
		metric.WithUnit("candidates"),
	)
	if err != nil {
		return err
	}

	m.CandidatesFailed, err = meter.Int64Counter(
		"sweeper.candidates.failed.total",
		metric.WithDescription("Total number of candidates skipped after failure"),
		metric.WithUnit("candidates"),
	)
	if err != nil {
		return err
	}

	m.ResourcesMarked, err = meter.Int64Counter(
		"sweeper.resources.marked.total",
		metric.WithDescription("Total number of resources marked for deletion"),
		metric.WithUnit("resources"),
	)
	if err != nil {
		return err
	}

	m.ResourcesUnmarked, err = meter.Int64Counter(
		"sweeper.resources.unmarked.total",
		metric.WithDescription("Total number of marks retracted"),
		metric.WithUnit("resources"),
	)
	if err != nil {
		return err
	}

	m.ResourcesDeleted, err = meter.Int64Counter(
		"sweeper.resources.deleted.total",
		metric.WithDescription("Total number of resources deleted"),
		metric.WithUnit("resources"),
	)
	if err != nil {
		return err
	}

	m.ResourcesNotified, err = meter.Int64Counter(
		"sweeper.resources.notified.total",
		metric.WithDescription("Total number of owner notifications stamped"),
		metric.WithUnit("resources"),
	)
	return err
}

// RecordExclusion counts an excluded candidate for an action.
func (m *CycleMetrics) RecordExclusion(ctx context.Context, namespace, action, reason string) {
	m.CandidatesExcluded.Add(ctx, 1,
		metric.WithAttributeSet(attribute.NewSet(
			attribute.String("namespace", namespace),
			attribute.String("action", action),
			attribute.String("reason", reason),
		)),
	)
}

// RecordFailure counts an isolated per-candidate failure.
func (m *CycleMetrics) RecordFailure(ctx context.Context, namespace, action string) {
	m.CandidatesFailed.Add(ctx, 1,
		metric.WithAttributeSet(attribute.NewSet(
			attribute.String("namespace", namespace),
			attribute.String("action", action),
		)),
	)
}

// RecordCycleDuration records how long a cycle took.
func (m *CycleMetrics) RecordCycleDuration(ctx context.Context, namespace, action string, durationMs float64) {
	m.CycleDuration.Record(ctx, durationMs,
		metric.WithAttributeSet(attribute.NewSet(
			attribute.String("namespace", namespace),
			attribute.String("action", action),
		)),
	)
}

// RecordProcessed counts processed candidates for an action.
func (m *CycleMetrics) RecordProcessed(ctx context.Context, namespace, action string, count int64) {
	m.CandidatesProcessed.Add(ctx, count,
		metric.WithAttributeSet(attribute.NewSet(
			attribute.String("namespace", namespace),
			attribute.String("action", action),
		)),
	)
}
