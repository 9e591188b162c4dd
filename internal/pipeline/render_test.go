package pipeline

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/symptomlog/internal/model"
	"github.com/ppiankov/symptomlog/internal/score"
)

func sampleEntry() *model.Entry {
	r := model.NewExtractionResult()
	r.Symptoms["pain_level"] = model.ScoreValue(7)
	r.Symptoms["hand_grip"] = model.CategoryValue("bad")
	r.Activities = []string{"walk"}
	r.Notes = "Pain 7/10, grip bad\nwent for a walk"

	return &model.Entry{
		ID:         "e-42",
		UserID:     "alice",
		RecordedAt: time.Date(2026, 4, 2, 9, 15, 0, 0, time.UTC),
		Result:     r,
		Confidence: score.NewScorer().Calculate(r),
		Recap:      &model.Recap{Enabled: true, Provider: "ollama", Text: "A painful morning.", Warnings: []string{"mentions headache"}},
	}
}

func TestMarkdown(t *testing.T) {
	md := NewRenderer(true).Markdown(sampleEntry())

	for _, want := range []string{
		"# Symptom Journal Entry",
		"- **Entry:** `e-42`",
		"- **Confidence:** 40/100 (medium)",
		"| hand_grip | bad |\n| pain_level | 7/10 |",
		"## Activities\n\nwalk",
		"## Triggers\n\nnone",
		"`min(symptoms * 15, 60)`",
		"## Recap (ollama)",
		"> ⚠ mentions headache",
		"> Pain 7/10, grip bad\n> went for a walk",
		"not a diagnosis",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown missing %q:\n%s", want, md)
		}
	}

	if strings.Contains(NewRenderer(false).Markdown(sampleEntry()), "not a diagnosis") {
		t.Error("Footer should be omitted when disabled")
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(true).RenderSummary(&buf, sampleEntry())
	out := buf.String()

	for _, want := range []string{"Entry e-42 (alice,", "Confidence: 40/100 (medium)", "Symptoms (2):", "pain_level", "7/10", "Triggers: none"} {
		if !strings.Contains(out, want) {
			t.Errorf("Summary missing %q:\n%s", want, out)
		}
	}
}

func TestRenderFiles(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(true)
	e := sampleEntry()

	jsonPath := filepath.Join(dir, "out", "entry.json")
	if err := r.RenderJSON(e, jsonPath); err != nil {
		t.Fatalf("RenderJSON failed: %v", err)
	}
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	var decoded model.Entry
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Rendered JSON does not decode: %v", err)
	}
	if decoded.ID != "e-42" || decoded.Result.Symptoms["hand_grip"] != model.CategoryValue("bad") {
		t.Errorf("Unexpected decoded entry %+v", decoded)
	}

	mdPath := filepath.Join(dir, "entry.md")
	if err := r.RenderMarkdown(e, mdPath); err != nil {
		t.Fatalf("RenderMarkdown failed: %v", err)
	}
	if info, err := os.Stat(mdPath); err != nil || info.Size() == 0 {
		t.Error("Expected non-empty markdown file")
	}
}
