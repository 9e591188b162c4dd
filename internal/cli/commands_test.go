package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/symptomlog/internal/model"
	"github.com/ppiankov/symptomlog/internal/store"
	"github.com/ppiankov/symptomlog/internal/taxonomy"
)

const defaultTestTimeout = time.Minute

func testConfig(t *testing.T) *model.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := model.DefaultConfig()
	cfg.Cache.Dir = filepath.Join(dir, "cache")
	cfg.Store.Path = filepath.Join(dir, "journal.db")
	return cfg
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunExtract_NotPersisted(t *testing.T) {
	cfg := testConfig(t)
	src := writeFile(t, "today.txt", "Pain about 6/10, grip weak, walked in the cold\n")
	out := filepath.Join(t.TempDir(), "entry.json")
	md := filepath.Join(t.TempDir(), "entry.md")

	var stderr bytes.Buffer
	err := runExtract(context.Background(), cfg, src, extractOptions{outJSON: out, outMD: md}, &stderr)
	if err != nil {
		t.Fatalf("runExtract failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var entry model.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if n, ok := entry.Result.Symptoms["pain_level"].Score(); !ok || n != 6 {
		t.Errorf("Expected pain_level 6, got %v", entry.Result.Symptoms["pain_level"])
	}
	if c, ok := entry.Result.Symptoms["hand_grip"].Category(); !ok || c != "bad" {
		t.Errorf("Expected hand_grip bad, got %v", entry.Result.Symptoms["hand_grip"])
	}
	if entry.ID != "" {
		t.Errorf("Expected no ID without --user, got %s", entry.ID)
	}

	mdData, err := os.ReadFile(md)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(mdData), "## Symptoms") {
		t.Errorf("Expected Markdown report, got %s", mdData)
	}

	if _, err := os.Stat(cfg.Store.Path); !os.IsNotExist(err) {
		t.Error("Expected no journal to be created without --user")
	}
}

func TestRunExtract_PersistsWithUser(t *testing.T) {
	cfg := testConfig(t)
	src := writeFile(t, "today.txt", "very tired, headache after a deadline")

	var stderr bytes.Buffer
	opts := extractOptions{userID: "alice", recordedAt: "2026-03-01T09:00:00Z"}
	if err := runExtract(context.Background(), cfg, src, opts, &stderr); err != nil {
		t.Fatalf("runExtract failed: %v", err)
	}
	if !strings.Contains(stderr.String(), "✓ Saved entry") {
		t.Errorf("Expected save confirmation, got %q", stderr.String())
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = st.Close() }()

	entries, err := st.ListByUser(context.Background(), "alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].RecordedAt.Format("2006-01-02") != "2026-03-01" {
		t.Errorf("Expected --at to be used, got %v", entries[0].RecordedAt)
	}
	if len(entries[0].Result.Triggers) != 1 || entries[0].Result.Triggers[0] != "deadline" {
		t.Errorf("Unexpected triggers %v", entries[0].Result.Triggers)
	}
}

func TestRunExtract_Errors(t *testing.T) {
	cfg := testConfig(t)
	src := writeFile(t, "today.txt", "pain 3")

	var stderr bytes.Buffer
	if err := runExtract(context.Background(), cfg, src, extractOptions{recordedAt: "yesterday"}, &stderr); err == nil {
		t.Error("Expected error for invalid --at")
	}
	if err := runExtract(context.Background(), cfg, src, extractOptions{llm: true}, &stderr); err == nil {
		t.Error("Expected error for --llm without a provider")
	}
	if err := runExtract(context.Background(), cfg, filepath.Join(t.TempDir(), "missing.txt"), extractOptions{}, &stderr); err == nil {
		t.Error("Expected error for missing source")
	}
}

func TestRunBatchAndStats(t *testing.T) {
	cfg := testConfig(t)
	input := writeFile(t, "week.jsonl", `# one week
{"user_id":"bob","transcript":"Pain 4/10 after yoga","recorded_at":"2026-03-01T08:00:00Z"}
{"user_id":"bob","transcript":"Pain 8 out of 10, stress","recorded_at":"2026-03-02T08:00:00Z"}

Pain 6/10 and swelling
`)
	outDir := filepath.Join(t.TempDir(), "entries")

	var stderr bytes.Buffer
	opts := batchOptions{userID: "bob", concurrency: 2, outputDir: outDir, timeout: defaultTestTimeout}
	if err := runBatch(context.Background(), cfg, input, opts, &stderr); err != nil {
		t.Fatalf("runBatch failed: %v\n%s", err, stderr.String())
	}
	if !strings.Contains(stderr.String(), "Success:   3") {
		t.Errorf("Expected 3 successes, got:\n%s", stderr.String())
	}

	files, err := filepath.Glob(filepath.Join(outDir, "*.json"))
	if err != nil || len(files) != 3 {
		t.Errorf("Expected 3 entry files, got %v (err=%v)", files, err)
	}

	var out bytes.Buffer
	if err := runStats(context.Background(), cfg, "bob", &out); err != nil {
		t.Fatalf("runStats failed: %v", err)
	}
	table := out.String()
	if !strings.Contains(table, "pain_level") || !strings.Contains(table, "6.0") {
		t.Errorf("Expected pain_level average 6.0 in table:\n%s", table)
	}
	if !strings.Contains(table, "swelling") {
		t.Errorf("Expected swelling row:\n%s", table)
	}
}

func TestRunBatch_AllFailed(t *testing.T) {
	cfg := testConfig(t)
	// Plain lines without --user have no user
	input := writeFile(t, "notes.txt", "pain 3\npain 4\n")

	var stderr bytes.Buffer
	err := runBatch(context.Background(), cfg, input, batchOptions{timeout: defaultTestTimeout}, &stderr)
	if err == nil {
		t.Error("Expected error when every submission fails")
	}
}

func TestWriteStatsTable_Empty(t *testing.T) {
	var out bytes.Buffer
	if err := writeStatsTable(&out, statsReport{UserID: "nobody"}); err != nil {
		t.Fatal(err)
	}
	if out.String() != "No symptoms recorded for nobody\n" {
		t.Errorf("Unexpected output %q", out.String())
	}
}

func TestTaxonomyCommands(t *testing.T) {
	clean := taxonomy.MustNew(taxonomy.Spec{
		Symptoms: []taxonomy.SymptomPattern{
			{Name: "tremor", Keywords: []string{"tremor"}, Mode: taxonomy.ModeBoolean},
		},
		Activities: []string{"walk"},
	})

	var out bytes.Buffer
	if err := writeTaxonomy(&out, clean); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "# fingerprint: "+clean.Fingerprint()) {
		t.Errorf("Expected fingerprint header, got %q", out.String())
	}
	if !strings.Contains(out.String(), "tremor") {
		t.Errorf("Expected symptom in YAML, got %q", out.String())
	}

	out.Reset()
	if err := lintTaxonomy(&out, clean, 0); err != nil {
		t.Errorf("Expected clean lint, got %v", err)
	}

	dup := taxonomy.MustNew(taxonomy.Spec{
		Symptoms: []taxonomy.SymptomPattern{
			{Name: "tremor", Keywords: []string{"shaky"}, Mode: taxonomy.ModeBoolean},
			{Name: "dizziness", Keywords: []string{"shaky"}, Mode: taxonomy.ModeBoolean},
		},
	})
	out.Reset()
	if err := lintTaxonomy(&out, dup, 0); err == nil {
		t.Error("Expected lint failure for colliding keywords")
	}
	if !strings.Contains(out.String(), "[collision]") {
		t.Errorf("Expected collision line, got %q", out.String())
	}
}

func TestLoadTaxonomy(t *testing.T) {
	tax, err := loadTaxonomy("")
	if err != nil || tax != taxonomy.Default() {
		t.Errorf("Expected built-in taxonomy, got %v (err=%v)", tax, err)
	}

	path := writeFile(t, "tax.yaml", "symptoms:\n  - name: tremor\n    keywords: [tremor]\n    mode: boolean\n")
	tax, err = loadTaxonomy(path)
	if err != nil {
		t.Fatalf("loadTaxonomy failed: %v", err)
	}
	if _, ok := tax.Lookup("tremor"); !ok {
		t.Error("Expected tremor in loaded taxonomy")
	}
}
