package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/symptomlog/internal/model"
)

// Provider generates plain-language recaps of journal entries
type Provider interface {
	// Name returns the provider name
	Name() string

	// Recap summarizes an already-extracted entry
	Recap(ctx context.Context, req RecapRequest) (*RecapResponse, error)

	// IsAvailable checks the provider is configured and reachable
	IsAvailable(ctx context.Context) bool
}

// RecapRequest is the input for a recap
type RecapRequest struct {
	Entry     model.Entry
	Prompt    string // Empty = BuildPrompt(Entry)
	Model     string // Empty = provider default
	MaxTokens int
}

// RecapResponse is the provider output
type RecapResponse struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds provider configuration
type Config struct {
	Provider   string // "openai", "ollama" or "" (disabled)
	Model      string
	APIKey     string
	BaseURL    string
	Timeout    int // seconds
	MaxTokens  int
	Strict     bool // Warn when the recap mentions symptoms that were not extracted
	HTTPProxy  string
	HTTPSProxy string
}

// DefaultConfig returns the defaults; recaps are disabled
func DefaultConfig() Config {
	return Config{
		Timeout:   30,
		MaxTokens: 400,
		Strict:    true,
	}
}

const systemPrompt = "You write short, neutral recaps of symptom journal entries. You never diagnose or give medical advice."

// BuildPrompt builds the default recap prompt. Only extracted data is
// included, so the model has nothing else to draw on.
func BuildPrompt(e model.Entry) string {
	var b strings.Builder

	b.WriteString(`Write a 2-3 sentence recap of this symptom journal entry.

RULES:
1. Mention ONLY the symptoms, activities and triggers listed below.
2. Do not infer causes, diagnose, or recommend treatment.
3. Numeric values are on a 0-10 scale; quote them as given.
4. If nothing was detected, say so plainly.

`)

	names := make([]string, 0, len(e.Result.Symptoms))
	for name := range e.Result.Symptoms {
		names = append(names, name)
	}
	sort.Strings(names)

	b.WriteString("Symptoms:\n")
	if len(names) == 0 {
		b.WriteString("- (none detected)\n")
	}
	for _, name := range names {
		fmt.Fprintf(&b, "- %s: %s\n", name, e.Result.Symptoms[name])
	}

	fmt.Fprintf(&b, "Activities: %s\n", joinOrNone(e.Result.Activities))
	fmt.Fprintf(&b, "Triggers: %s\n", joinOrNone(e.Result.Triggers))
	fmt.Fprintf(&b, "Extraction confidence: %d/100 (%s)\n", e.Confidence.Index, e.Confidence.Level)

	return b.String()
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
