// Package observe provides logging, OpenTelemetry metrics and HTTP middleware.
//
// Components take a *Metrics explicitly; tests build one with NewMetrics over
// a ManualReader so recordings never leak between tests.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ppiankov/symptomlog/internal/model"
)

const meterName = "github.com/ppiankov/symptomlog"

// Metrics holds the OpenTelemetry instruments. Safe for concurrent use.
type Metrics struct {
	// Extractions counts transcripts processed. Attribute "cache": hit, miss or off.
	Extractions metric.Int64Counter

	// SymptomsExtracted counts symptom values by attribute "kind" (bool, score, category).
	SymptomsExtracted metric.Int64Counter

	// Confidence records the confidence index of each analysis.
	Confidence metric.Int64Histogram

	// ExtractionDuration tracks end-to-end analysis latency.
	ExtractionDuration metric.Float64Histogram

	// CacheLookups counts result cache lookups by attribute "result" (hit, miss).
	CacheLookups metric.Int64Counter

	// EntriesRecorded counts persisted entries by attribute "status" (ok, error).
	EntriesRecorded metric.Int64Counter

	// RateLimited counts submissions rejected by the per-user limiter.
	RateLimited metric.Int64Counter

	// RecapRequests counts LLM recap calls by "provider" and "status".
	RecapRequests metric.Int64Counter

	// HTTPRequestDuration tracks HTTP latency by "method", "route" and "status".
	HTTPRequestDuration metric.Float64Histogram
}

var latencyBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

var confidenceBuckets = []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

// NewMetrics creates all instruments from mp
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Extractions, err = m.Int64Counter("symptomlog.extractions",
		metric.WithDescription("Transcripts analyzed."),
	); err != nil {
		return nil, err
	}
	if met.SymptomsExtracted, err = m.Int64Counter("symptomlog.symptoms.extracted",
		metric.WithDescription("Symptom values extracted by value kind."),
	); err != nil {
		return nil, err
	}
	if met.Confidence, err = m.Int64Histogram("symptomlog.confidence",
		metric.WithDescription("Confidence index per analysis."),
		metric.WithExplicitBucketBoundaries(confidenceBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ExtractionDuration, err = m.Float64Histogram("symptomlog.extraction.duration",
		metric.WithDescription("Latency of transcript analysis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CacheLookups, err = m.Int64Counter("symptomlog.cache.lookups",
		metric.WithDescription("Result cache lookups by outcome."),
	); err != nil {
		return nil, err
	}
	if met.EntriesRecorded, err = m.Int64Counter("symptomlog.entries.recorded",
		metric.WithDescription("Journal entries recorded by status."),
	); err != nil {
		return nil, err
	}
	if met.RateLimited, err = m.Int64Counter("symptomlog.rate_limited",
		metric.WithDescription("Submissions rejected by the per-user rate limiter."),
	); err != nil {
		return nil, err
	}
	if met.RecapRequests, err = m.Int64Counter("symptomlog.recap.requests",
		metric.WithDescription("LLM recap requests by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("symptomlog.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns a process-wide Metrics bound to the global
// MeterProvider. Panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordAnalysis records one analysis: its cache outcome, the symptom kinds
// found, the confidence index and the elapsed time
func (m *Metrics) RecordAnalysis(ctx context.Context, a *model.Analysis, cacheState string, elapsed time.Duration) {
	m.Extractions.Add(ctx, 1, metric.WithAttributes(attribute.String("cache", cacheState)))

	counts := map[model.ValueKind]int64{}
	for _, v := range a.Result.Symptoms {
		counts[v.Kind()]++
	}
	for kind, n := range counts {
		m.SymptomsExtracted.Add(ctx, n, metric.WithAttributes(attribute.String("kind", kind.String())))
	}

	m.Confidence.Record(ctx, int64(a.Confidence.Index))
	m.ExtractionDuration.Record(ctx, elapsed.Seconds())
}

// RecordCacheLookup records a cache hit or miss
func (m *Metrics) RecordCacheLookup(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordEntry records the outcome of persisting an entry
func (m *Metrics) RecordEntry(ctx context.Context, err error) {
	m.EntriesRecorded.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status(err))))
}

// RecordRecap records an LLM recap call
func (m *Metrics) RecordRecap(ctx context.Context, provider string, err error) {
	m.RecapRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status(err)),
	))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
