// Package taxonomy defines the catalogue of symptoms, activities and triggers
// that the extractor looks for.
//
// A Taxonomy is validated once when it is built and is read-only afterwards,
// so a single value can be shared by any number of goroutines.
package taxonomy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Mode selects how a matched symptom's value is derived
type Mode string

const (
	ModeBoolean     Mode = "boolean"     // Presence of any keyword => true
	ModeNumeric     Mode = "numeric"     // 0-10 value near the first keyword
	ModeCategorical Mode = "categorical" // First declared category whose keywords appear
)

// Category is one named value of a categorical symptom
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// SymptomPattern is one taxonomy entry
type SymptomPattern struct {
	Name       string     `yaml:"name"`
	Keywords   []string   `yaml:"keywords"`             // Keywords[0] anchors numeric extraction
	Mode       Mode       `yaml:"mode"`
	Categories []Category `yaml:"categories,omitempty"` // Declared order is the tie-break order
}

// Spec is the raw, unvalidated description of a taxonomy
type Spec struct {
	Symptoms   []SymptomPattern `yaml:"symptoms"`
	Activities []string         `yaml:"activities"`
	Triggers   []string         `yaml:"triggers"`
}

// Taxonomy is a validated, immutable symptom catalogue
type Taxonomy struct {
	symptoms    []SymptomPattern
	activities  []string
	triggers    []string
	fingerprint string
}

// ValidationError describes why a taxonomy was rejected
type ValidationError struct {
	Entry  string // Symptom name, "activities" or "triggers"
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid taxonomy entry %q: %s", e.Entry, e.Reason)
}

// New validates spec and returns an immutable Taxonomy. The input is deep-copied.
func New(spec Spec) (*Taxonomy, error) {
	if len(spec.Symptoms) == 0 {
		return nil, &ValidationError{Entry: "symptoms", Reason: "at least one symptom is required"}
	}

	seen := make(map[string]bool, len(spec.Symptoms))
	symptoms := make([]SymptomPattern, 0, len(spec.Symptoms))

	for i, p := range spec.Symptoms {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, &ValidationError{Entry: fmt.Sprintf("#%d", i), Reason: "name is empty"}
		}
		if seen[name] {
			return nil, &ValidationError{Entry: name, Reason: "duplicate name"}
		}
		seen[name] = true

		if err := checkKeywords(name, "keywords", p.Keywords); err != nil {
			return nil, err
		}

		switch p.Mode {
		case ModeBoolean, ModeNumeric:
			if len(p.Categories) > 0 {
				return nil, &ValidationError{Entry: name, Reason: fmt.Sprintf("%s entries cannot declare categories", p.Mode)}
			}
		case ModeCategorical:
			if len(p.Categories) == 0 {
				return nil, &ValidationError{Entry: name, Reason: "categorical entries need at least one category"}
			}
			catSeen := make(map[string]bool, len(p.Categories))
			for _, c := range p.Categories {
				if strings.TrimSpace(c.Name) == "" {
					return nil, &ValidationError{Entry: name, Reason: "category name is empty"}
				}
				if catSeen[c.Name] {
					return nil, &ValidationError{Entry: name, Reason: fmt.Sprintf("duplicate category %q", c.Name)}
				}
				catSeen[c.Name] = true
				if err := checkKeywords(name, "category "+c.Name, c.Keywords); err != nil {
					return nil, err
				}
			}
		default:
			return nil, &ValidationError{Entry: name, Reason: fmt.Sprintf("unknown mode %q", p.Mode)}
		}

		symptoms = append(symptoms, clonePattern(p, name))
	}

	if err := checkList("activities", spec.Activities); err != nil {
		return nil, err
	}
	if err := checkList("triggers", spec.Triggers); err != nil {
		return nil, err
	}

	t := &Taxonomy{
		symptoms:   symptoms,
		activities: append([]string(nil), spec.Activities...),
		triggers:   append([]string(nil), spec.Triggers...),
	}
	t.fingerprint = t.computeFingerprint()

	return t, nil
}

// MustNew is like New but panics on an invalid spec. Use it for tables built at
// process start.
func MustNew(spec Spec) *Taxonomy {
	t, err := New(spec)
	if err != nil {
		panic(err)
	}
	return t
}

// Symptoms returns the symptom entries in declared order. Callers must not modify
// the returned slice or its contents.
func (t *Taxonomy) Symptoms() []SymptomPattern { return t.symptoms }

// Activities returns the activity keywords in declared order. Read-only.
func (t *Taxonomy) Activities() []string { return t.activities }

// Triggers returns the trigger keywords in declared order. Read-only.
func (t *Taxonomy) Triggers() []string { return t.triggers }

// Lookup returns the symptom entry with the given name
func (t *Taxonomy) Lookup(name string) (SymptomPattern, bool) {
	for _, p := range t.symptoms {
		if p.Name == name {
			return p, true
		}
	}
	return SymptomPattern{}, false
}

// Fingerprint identifies the taxonomy content; two taxonomies with identical
// entries share a fingerprint.
func (t *Taxonomy) Fingerprint() string { return t.fingerprint }

// Spec returns a deep copy of the taxonomy as a Spec, e.g. for YAML export
func (t *Taxonomy) Spec() Spec {
	spec := Spec{
		Symptoms:   make([]SymptomPattern, len(t.symptoms)),
		Activities: append([]string(nil), t.activities...),
		Triggers:   append([]string(nil), t.triggers...),
	}
	for i, p := range t.symptoms {
		spec.Symptoms[i] = clonePattern(p, p.Name)
	}
	return spec
}

func (t *Taxonomy) computeFingerprint() string {
	h := sha256.New()
	for _, p := range t.symptoms {
		fmt.Fprintf(h, "s|%s|%s|%q\n", p.Name, p.Mode, p.Keywords)
		for _, c := range p.Categories {
			fmt.Fprintf(h, "c|%s|%q\n", c.Name, c.Keywords)
		}
	}
	fmt.Fprintf(h, "a|%q\nt|%q\n", t.activities, t.triggers)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func checkKeywords(entry, field string, keywords []string) error {
	if len(keywords) == 0 {
		return &ValidationError{Entry: entry, Reason: field + " list is empty"}
	}
	for _, kw := range keywords {
		if strings.TrimSpace(kw) == "" {
			return &ValidationError{Entry: entry, Reason: field + " contains a blank keyword"}
		}
	}
	return nil
}

func checkList(entry string, keywords []string) error {
	seen := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		if strings.TrimSpace(kw) == "" {
			return &ValidationError{Entry: entry, Reason: "contains a blank keyword"}
		}
		if seen[kw] {
			return &ValidationError{Entry: entry, Reason: fmt.Sprintf("duplicate keyword %q", kw)}
		}
		seen[kw] = true
	}
	return nil
}

func clonePattern(p SymptomPattern, name string) SymptomPattern {
	out := SymptomPattern{
		Name:     name,
		Keywords: append([]string(nil), p.Keywords...),
		Mode:     p.Mode,
	}
	if len(p.Categories) > 0 {
		out.Categories = make([]Category, len(p.Categories))
		for i, c := range p.Categories {
			out.Categories[i] = Category{Name: c.Name, Keywords: append([]string(nil), c.Keywords...)}
		}
	}
	return out
}
