// Package extract turns a free-form symptom narrative into structured data.
//
// Extraction is rule based: every taxonomy keyword is tested against the
// lower-cased transcript with plain substring search, numeric severities are read
// from a bounded window around the entry's first keyword, and categorical values
// resolve to the first declared category with a matching keyword. An Extractor
// holds no mutable state and is safe for concurrent use.
package extract

import (
	"fmt"
	"strings"

	"github.com/ppiankov/symptomlog/internal/model"
	"github.com/ppiankov/symptomlog/internal/taxonomy"
)

// Option configures an Extractor
type Option func(*Extractor)

// WithWindow sets the numeric search window. Negative values are treated as zero.
func WithWindow(before, after int) Option {
	return func(e *Extractor) {
		e.before = max(0, before)
		e.after = max(0, after)
	}
}

type compiledCategory struct {
	name     string
	keywords []string
}

type compiledPattern struct {
	name       string
	mode       taxonomy.Mode
	keywords   []string // lower-cased
	categories []compiledCategory
}

// Extractor applies a taxonomy to transcripts
type Extractor struct {
	taxonomy *taxonomy.Taxonomy
	before   int
	after    int

	patterns        []compiledPattern
	activities      []string
	activitiesLower []string
	triggers        []string
	triggersLower   []string
}

// New returns an Extractor for t. A nil taxonomy selects taxonomy.Default().
func New(t *taxonomy.Taxonomy, opts ...Option) *Extractor {
	if t == nil {
		t = taxonomy.Default()
	}

	e := &Extractor{
		taxonomy:        t,
		before:          DefaultWindowBefore,
		after:           DefaultWindowAfter,
		activities:      t.Activities(),
		activitiesLower: lowerAll(t.Activities()),
		triggers:        t.Triggers(),
		triggersLower:   lowerAll(t.Triggers()),
	}
	for _, o := range opts {
		o(e)
	}

	for _, p := range t.Symptoms() {
		cp := compiledPattern{
			name:     p.Name,
			mode:     p.Mode,
			keywords: lowerAll(p.Keywords),
		}
		for _, c := range p.Categories {
			cp.categories = append(cp.categories, compiledCategory{name: c.Name, keywords: lowerAll(c.Keywords)})
		}
		e.patterns = append(e.patterns, cp)
	}

	return e
}

// Taxonomy returns the taxonomy the extractor was built with
func (e *Extractor) Taxonomy() *taxonomy.Taxonomy { return e.taxonomy }

// Window returns the numeric search window
func (e *Extractor) Window() (before, after int) { return e.before, e.after }

// Fingerprint identifies every input that shapes Extract besides the
// transcript: the taxonomy fingerprint and the numeric window. Two extractors
// with equal fingerprints produce equal results.
func (e *Extractor) Fingerprint() string {
	return fmt.Sprintf("%s:w%d-%d", e.taxonomy.Fingerprint(), e.before, e.after)
}

// Extract converts a transcript into an ExtractionResult. It never fails: a
// symptom whose keywords are present but whose value cannot be resolved is
// omitted from the result.
func (e *Extractor) Extract(transcript string) model.ExtractionResult {
	result := model.NewExtractionResult()
	result.Notes = strings.TrimSpace(transcript)

	lower := strings.ToLower(transcript)

	for _, p := range e.patterns {
		if !containsLower(lower, p.keywords) {
			continue
		}

		switch p.mode {
		case taxonomy.ModeBoolean:
			result.Symptoms[p.name] = model.BoolValue(true)

		case taxonomy.ModeNumeric:
			// Anchored on the first keyword even when another keyword matched
			if n, ok := extractNumericLower(lower, p.keywords[0], e.before, e.after); ok {
				result.Symptoms[p.name] = model.ScoreValue(n)
			}

		case taxonomy.ModeCategorical:
			if name, ok := resolveCategoryLower(lower, p.categories); ok {
				result.Symptoms[p.name] = model.CategoryValue(name)
			}
		}
	}

	result.Activities = scanLower(lower, e.activities, e.activitiesLower)
	result.Triggers = scanLower(lower, e.triggers, e.triggersLower)

	return result
}

// ResolveCategory returns the name of the first category, in declared order, with
// a keyword present in transcript
func ResolveCategory(transcript string, categories []taxonomy.Category) (string, bool) {
	compiled := make([]compiledCategory, len(categories))
	for i, c := range categories {
		compiled[i] = compiledCategory{name: c.Name, keywords: lowerAll(c.Keywords)}
	}
	return resolveCategoryLower(strings.ToLower(transcript), compiled)
}

func resolveCategoryLower(lower string, categories []compiledCategory) (string, bool) {
	for _, c := range categories {
		if containsLower(lower, c.keywords) {
			return c.name, true
		}
	}
	return "", false
}
