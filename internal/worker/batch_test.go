package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/symptomlog/internal/model"
	"github.com/ppiankov/symptomlog/internal/pipeline"
)

type mockRecorder struct {
	failOn string
}

func (m *mockRecorder) Record(ctx context.Context, sub pipeline.Submission) (*model.Entry, error) {
	// Uneven delays so completion order differs from input order
	time.Sleep(time.Duration(len(sub.Transcript)%5) * time.Millisecond)
	if m.failOn != "" && strings.Contains(sub.Transcript, m.failOn) {
		return nil, errors.New("record error")
	}
	return &model.Entry{ID: "id-" + sub.Transcript, UserID: sub.UserID}, nil
}

func TestReadSubmissions(t *testing.T) {
	input := `# morning entries
pain 5/10 after walking

{"user_id": "bob", "transcript": "tired and stiff", "recorded_at": "2026-03-01T08:00:00Z"}
{"transcript": "headache again"}
`
	items, err := ReadSubmissions(strings.NewReader(input), "alice")
	if err != nil {
		t.Fatalf("ReadSubmissions failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	if items[0].Line != 2 || items[0].Submission.UserID != "alice" || items[0].Submission.Transcript != "pain 5/10 after walking" {
		t.Errorf("unexpected plain item %+v", items[0])
	}
	if items[1].Submission.UserID != "bob" || !items[1].Submission.RecordedAt.Equal(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected JSON item %+v", items[1])
	}
	if items[2].Submission.UserID != "alice" {
		t.Errorf("expected default user for JSON line without user_id, got %q", items[2].Submission.UserID)
	}
}

func TestReadSubmissions_BadJSON(t *testing.T) {
	_, err := ReadSubmissions(strings.NewReader("ok line\n{not json}\n"), "alice")
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected line-numbered error, got %v", err)
	}
}

func TestBatchProcessor_PreservesOrder(t *testing.T) {
	processor := NewBatchProcessor(&mockRecorder{failOn: "bad"}, 3)

	var items []BatchItem
	for i, tr := range []string{"a", "bbbb", "bad entry", "cc", "ddd", "e", "ffff", "gg"} {
		items = append(items, BatchItem{Line: i + 1, Submission: pipeline.Submission{UserID: "alice", Transcript: tr}})
	}

	results := processor.Process(context.Background(), items)

	if len(results) != len(items) {
		t.Fatalf("expected %d results, got %d", len(items), len(results))
	}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("result %d has index %d", i, r.Index)
		}
		if i == 2 {
			if r.Error == nil {
				t.Error("expected error for the failing item")
			}
			continue
		}
		if r.Error != nil || r.Entry == nil || r.Entry.ID != "id-"+items[i].Submission.Transcript {
			t.Errorf("unexpected result %d: %+v", i, r)
		}
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	results := NewBatchProcessor(&mockRecorder{}, 2).Process(context.Background(), nil)
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil results, got %#v", results)
	}
}

func TestBatchProcessor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := make([]BatchItem, 20)
	for i := range items {
		items[i] = BatchItem{Line: i + 1, Submission: pipeline.Submission{UserID: "alice", Transcript: "x"}}
	}

	results := NewBatchProcessor(&mockRecorder{}, 2).Process(ctx, items)
	if len(results) != len(items) {
		t.Fatalf("expected a result per item, got %d", len(results))
	}
	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
		}
	}
	if failed == 0 {
		t.Error("expected cancelled items to report errors")
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.txt")
	if err := os.WriteFile(path, []byte("one\n# skip\ntwo\n"), 0644); err != nil {
		t.Fatal(err)
	}

	results, err := NewBatchProcessor(&mockRecorder{}, 2).ProcessFile(context.Background(), path, "alice")
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 2 || results[1].Line != 3 {
		t.Errorf("unexpected results %+v", results)
	}

	if _, err := NewBatchProcessor(&mockRecorder{}, 2).ProcessFile(context.Background(), filepath.Join(t.TempDir(), "missing"), "alice"); err == nil {
		t.Error("expected error for missing file")
	}
}
