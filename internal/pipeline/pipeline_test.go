package pipeline

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/symptomlog/internal/cache"
	"github.com/ppiankov/symptomlog/internal/model"
	"github.com/ppiankov/symptomlog/internal/taxonomy"
)

type memStore struct {
	mu      sync.Mutex
	entries []*model.Entry
	err     error
}

func (m *memStore) Save(ctx context.Context, e *model.Entry) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

type stubRecapper struct {
	recap *model.Recap
	err   error
	seen  *model.Entry
}

func (s *stubRecapper) Recap(ctx context.Context, e *model.Entry) (*model.Recap, error) {
	s.seen = e
	return s.recap, s.err
}

var fixedNow = time.Date(2026, 4, 2, 9, 15, 0, 0, time.UTC)

func newTestPipeline(opts Options) *Pipeline {
	opts.Now = func() time.Time { return fixedNow }
	opts.NewID = func() string { return "entry-1" }
	return New(opts)
}

func TestAnalyze(t *testing.T) {
	p := newTestPipeline(Options{})

	a, err := p.Analyze(context.Background(), "PAIN LEVEL 8 AND VERY TIRED")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if n, ok := a.Result.Symptoms["pain_level"].Score(); !ok || n != 8 {
		t.Errorf("Expected pain_level 8, got %v", a.Result.Symptoms["pain_level"])
	}
	if a.Confidence.Index != 30 {
		t.Errorf("Expected confidence 30, got %d", a.Confidence.Index)
	}
	if a.Confidence.Level != "low" {
		t.Errorf("Expected low level, got %s", a.Confidence.Level)
	}
}

func TestAnalyze_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newTestPipeline(Options{}).Analyze(ctx, "pain 3/10"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestAnalyze_CacheDoesNotChangeResults(t *testing.T) {
	c := cache.NewMemoryCache(time.Minute, time.Minute)
	cached := newTestPipeline(Options{Cache: c})
	plain := newTestPipeline(Options{})

	transcript := "Pain about 6 out of 10, grip weak, walked in the cold"

	first, err := cached.Analyze(context.Background(), transcript)
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 1 {
		t.Fatalf("Expected result to be cached, cache has %d items", c.Len())
	}
	second, err := cached.Analyze(context.Background(), transcript)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := plain.Analyze(context.Background(), transcript)

	if !reflect.DeepEqual(first.Result, want.Result) || !reflect.DeepEqual(second.Result, want.Result) {
		t.Errorf("Cached results differ from fresh extraction")
	}
	if hits, _ := c.Stats(); hits != 1 {
		t.Errorf("Expected one cache hit, got %d", hits)
	}
}

func TestAnalyze_CacheKeyedByTaxonomy(t *testing.T) {
	c := cache.NewMemoryCache(time.Minute, time.Minute)
	custom := taxonomy.MustNew(taxonomy.Spec{
		Symptoms: []taxonomy.SymptomPattern{{Name: "cough", Keywords: []string{"cough"}, Mode: taxonomy.ModeBoolean}},
	})

	transcript := "pain 4/10 and a cough"
	if _, err := newTestPipeline(Options{Cache: c}).Analyze(context.Background(), transcript); err != nil {
		t.Fatal(err)
	}
	a, err := newTestPipeline(Options{Cache: c, Taxonomy: custom}).Analyze(context.Background(), transcript)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := a.Result.Symptoms["pain_level"]; ok {
		t.Error("Custom taxonomy must not reuse results cached for the default taxonomy")
	}
	if _, ok := a.Result.Symptoms["cough"]; !ok {
		t.Error("Expected cough from custom taxonomy")
	}
}

func TestAnalyze_CacheKeyedByWindow(t *testing.T) {
	c := cache.NewDiskCache(t.TempDir(), time.Hour)
	wideAfter, narrowAfter := 60, 10
	wide := newTestPipeline(Options{Cache: c, WindowAfter: &wideAfter})
	narrow := newTestPipeline(Options{Cache: c, WindowAfter: &narrowAfter})

	transcript := "pain" + strings.Repeat(" ", 50) + "4"

	a, err := wide.Analyze(context.Background(), transcript)
	if err != nil {
		t.Fatal(err)
	}
	if n, ok := a.Result.Symptoms["pain_level"].Score(); !ok || n != 4 {
		t.Fatalf("Expected wide window to find pain_level 4, got %v", a.Result.Symptoms)
	}

	b, err := narrow.Analyze(context.Background(), transcript)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := b.Result.Symptoms["pain_level"]; ok {
		t.Errorf("Narrow window must not reuse the result cached for the wide window, got %v", b.Result.Symptoms)
	}
}

func TestNew_ZeroWindowIsKept(t *testing.T) {
	zero := 0
	p := newTestPipeline(Options{WindowBefore: &zero, WindowAfter: &zero})
	if before, after := p.extractor.Window(); before != 0 || after != 0 {
		t.Errorf("Expected window 0/0, got %d/%d", before, after)
	}

	if before, after := newTestPipeline(Options{}).extractor.Window(); before != 30 || after != 40 {
		t.Errorf("Expected default window 30/40, got %d/%d", before, after)
	}
}

func TestRecord(t *testing.T) {
	store := &memStore{}
	p := newTestPipeline(Options{Store: store})

	entry, err := p.Record(context.Background(), Submission{UserID: " alice ", Transcript: "Pain about 5/10 after walking"})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	if entry.ID != "entry-1" || entry.UserID != "alice" {
		t.Errorf("Unexpected identity %q/%q", entry.ID, entry.UserID)
	}
	if !entry.RecordedAt.Equal(fixedNow) {
		t.Errorf("Expected clock time, got %v", entry.RecordedAt)
	}
	if entry.Confidence.Index != 35 {
		t.Errorf("Expected confidence 35, got %d", entry.Confidence.Index)
	}
	if len(store.entries) != 1 || store.entries[0] != entry {
		t.Errorf("Expected entry to be saved once")
	}
}

func TestRecord_KeepsSubmittedTime(t *testing.T) {
	at := time.Date(2026, 1, 5, 22, 0, 0, 0, time.FixedZone("CET", 3600))
	entry, err := newTestPipeline(Options{}).Record(context.Background(), Submission{UserID: "alice", Transcript: "tired", RecordedAt: at})
	if err != nil {
		t.Fatal(err)
	}
	if !entry.RecordedAt.Equal(at) || entry.RecordedAt.Location() != time.UTC {
		t.Errorf("Expected submitted time in UTC, got %v", entry.RecordedAt)
	}
}

func TestRecord_EmptyUser(t *testing.T) {
	_, err := newTestPipeline(Options{}).Record(context.Background(), Submission{UserID: "  ", Transcript: "pain"})
	if !errors.Is(err, ErrEmptyUserID) {
		t.Errorf("Expected ErrEmptyUserID, got %v", err)
	}
}

func TestRecord_StoreError(t *testing.T) {
	boom := errors.New("disk full")
	_, err := newTestPipeline(Options{Store: &memStore{err: boom}}).Record(context.Background(), Submission{UserID: "alice", Transcript: "pain"})
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped store error, got %v", err)
	}
}

func TestRecord_Recap(t *testing.T) {
	recapper := &stubRecapper{recap: &model.Recap{Enabled: true, Provider: "stub", Text: "Pain was moderate."}}
	p := newTestPipeline(Options{Recapper: recapper})

	entry, err := p.Record(context.Background(), Submission{UserID: "alice", Transcript: "pain 5/10"})
	if err != nil {
		t.Fatal(err)
	}
	if entry.Recap == nil || entry.Recap.Text != "Pain was moderate." {
		t.Errorf("Expected recap to be attached, got %+v", entry.Recap)
	}
	if recapper.seen == nil || recapper.seen.Confidence.Index != entry.Confidence.Index {
		t.Error("Recapper must see the scored entry")
	}
}

func TestRecord_RecapFailureIsNotFatal(t *testing.T) {
	p := newTestPipeline(Options{Recapper: &stubRecapper{err: errors.New("provider down")}})

	entry, err := p.Record(context.Background(), Submission{UserID: "alice", Transcript: "pain 5/10"})
	if err != nil {
		t.Fatalf("Expected recap failure to be swallowed, got %v", err)
	}
	if entry.Recap != nil {
		t.Errorf("Expected no recap, got %+v", entry.Recap)
	}
}
