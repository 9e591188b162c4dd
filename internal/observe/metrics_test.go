package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/ppiankov/symptomlog/internal/model"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumByAttr(t *testing.T, met *metricdata.Metrics, key string) map[string]int64 {
	t.Helper()
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not an int64 sum", met.Name)
	}
	out := map[string]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key(key))
		out[v.AsString()] += dp.Value
	}
	return out
}

func TestRecordAnalysis(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	a := &model.Analysis{Result: model.NewExtractionResult()}
	a.Result.Symptoms["pain_level"] = model.ScoreValue(6)
	a.Result.Symptoms["stiffness_level"] = model.ScoreValue(3)
	a.Result.Symptoms["swelling"] = model.BoolValue(true)
	a.Confidence.Index = 45

	m.RecordAnalysis(ctx, a, "miss", 2*time.Millisecond)
	m.RecordAnalysis(ctx, a, "hit", time.Millisecond)

	rm := collect(t, reader)

	met := findMetric(rm, "symptomlog.extractions")
	if met == nil {
		t.Fatal("extractions metric not found")
	}
	byCache := sumByAttr(t, met, "cache")
	if byCache["miss"] != 1 || byCache["hit"] != 1 {
		t.Errorf("Unexpected extraction counts %v", byCache)
	}

	met = findMetric(rm, "symptomlog.symptoms.extracted")
	if met == nil {
		t.Fatal("symptoms metric not found")
	}
	byKind := sumByAttr(t, met, "kind")
	if byKind["score"] != 4 || byKind["bool"] != 2 {
		t.Errorf("Unexpected symptom counts %v", byKind)
	}

	met = findMetric(rm, "symptomlog.confidence")
	if met == nil {
		t.Fatal("confidence metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[int64])
	if !ok {
		t.Fatal("confidence is not an int64 histogram")
	}
	if hist.DataPoints[0].Count != 2 || hist.DataPoints[0].Sum != 90 {
		t.Errorf("Unexpected confidence histogram count=%d sum=%d", hist.DataPoints[0].Count, hist.DataPoints[0].Sum)
	}

	if findMetric(rm, "symptomlog.extraction.duration") == nil {
		t.Error("duration metric not found")
	}
}

func TestRecordCacheLookupAndEntries(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCacheLookup(ctx, true)
	m.RecordCacheLookup(ctx, false)
	m.RecordCacheLookup(ctx, false)
	m.RecordEntry(ctx, nil)
	m.RecordEntry(ctx, errors.New("disk full"))
	m.RecordRecap(ctx, "ollama", nil)

	rm := collect(t, reader)

	lookups := sumByAttr(t, findMetric(rm, "symptomlog.cache.lookups"), "result")
	if lookups["hit"] != 1 || lookups["miss"] != 2 {
		t.Errorf("Unexpected cache lookups %v", lookups)
	}

	entries := sumByAttr(t, findMetric(rm, "symptomlog.entries.recorded"), "status")
	if entries["ok"] != 1 || entries["error"] != 1 {
		t.Errorf("Unexpected entry counts %v", entries)
	}

	recaps := sumByAttr(t, findMetric(rm, "symptomlog.recap.requests"), "provider")
	if recaps["ollama"] != 1 {
		t.Errorf("Unexpected recap counts %v", recaps)
	}
}

func TestDefaultMetrics_Singleton(t *testing.T) {
	if DefaultMetrics() != DefaultMetrics() {
		t.Error("Expected DefaultMetrics to return the same instance")
	}
}
