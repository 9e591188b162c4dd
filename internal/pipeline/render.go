package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/symptomlog/internal/model"
)

// Renderer writes entries as JSON, Markdown or a terminal summary
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes v as indented JSON to path
func (r *Renderer) RenderJSON(v any, path string) error {
	return writeFile(path, func(w io.Writer) error { return WriteJSON(w, v) })
}

// WriteJSON writes v as indented JSON followed by a newline
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// RenderMarkdown writes the Markdown report for e to path
func (r *Renderer) RenderMarkdown(e *model.Entry, path string) error {
	return writeFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, r.Markdown(e))
		return err
	})
}

// Markdown returns the Markdown report for e
func (r *Renderer) Markdown(e *model.Entry) string {
	var b strings.Builder

	b.WriteString("# Symptom Journal Entry\n\n")
	if e.ID != "" {
		fmt.Fprintf(&b, "- **Entry:** `%s`\n", e.ID)
	}
	fmt.Fprintf(&b, "- **User:** %s\n", e.UserID)
	fmt.Fprintf(&b, "- **Recorded:** %s\n", e.RecordedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Confidence:** %d/100 (%s)\n\n", e.Confidence.Index, e.Confidence.Level)

	b.WriteString("## Symptoms\n\n")
	names := sortedSymptoms(e.Result)
	if len(names) == 0 {
		b.WriteString("_None detected._\n\n")
	} else {
		b.WriteString("| Symptom | Value |\n|---|---|\n")
		for _, name := range names {
			fmt.Fprintf(&b, "| %s | %s |\n", name, e.Result.Symptoms[name])
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Activities\n\n%s\n\n", listOrNone(e.Result.Activities))
	fmt.Fprintf(&b, "## Triggers\n\n%s\n\n", listOrNone(e.Result.Triggers))

	b.WriteString("## Confidence Breakdown\n\n")
	for _, s := range e.Confidence.Signals {
		fmt.Fprintf(&b, "- **%s**: %s", s.Type, s.Description)
		if formula, ok := s.Data["formula"]; ok {
			fmt.Fprintf(&b, " (`%v`)", formula)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if e.Recap != nil && e.Recap.Text != "" {
		fmt.Fprintf(&b, "## Recap (%s)\n\n%s\n\n", e.Recap.Provider, e.Recap.Text)
		for _, w := range e.Recap.Warnings {
			fmt.Fprintf(&b, "> ⚠ %s\n", w)
		}
		if len(e.Recap.Warnings) > 0 {
			b.WriteString("\n")
		}
	}

	if e.Result.Notes != "" {
		b.WriteString("## Notes\n\n")
		for _, line := range strings.Split(e.Result.Notes, "\n") {
			fmt.Fprintf(&b, "> %s\n", line)
		}
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\n_Rule-based keyword extraction. Values reflect what was said, not a diagnosis._\n")
	}

	return b.String()
}

// RenderSummary prints a short human-readable summary of e
func (r *Renderer) RenderSummary(w io.Writer, e *model.Entry) {
	if e.ID != "" {
		fmt.Fprintf(w, "Entry %s (%s, %s)\n", e.ID, e.UserID, e.RecordedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Confidence: %d/100 (%s)\n", e.Confidence.Index, e.Confidence.Level)

	names := sortedSymptoms(e.Result)
	fmt.Fprintf(w, "Symptoms (%d):\n", len(names))
	for _, name := range names {
		fmt.Fprintf(w, "  %-22s %s\n", name, e.Result.Symptoms[name])
	}
	fmt.Fprintf(w, "Activities: %s\n", listOrNone(e.Result.Activities))
	fmt.Fprintf(w, "Triggers: %s\n", listOrNone(e.Result.Triggers))

	if e.Recap != nil && e.Recap.Text != "" {
		fmt.Fprintf(w, "\nRecap (%s):\n%s\n", e.Recap.Provider, e.Recap.Text)
		for _, warning := range e.Recap.Warnings {
			fmt.Fprintf(w, "  ⚠ %s\n", warning)
		}
	}
}

func sortedSymptoms(r model.ExtractionResult) []string {
	names := make([]string, 0, len(r.Symptoms))
	for name := range r.Symptoms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func writeFile(path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(os.Stdout)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
