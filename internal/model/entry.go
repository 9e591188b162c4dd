package model

import "time"

// ExtractionResult is the structured output of a single transcript extraction
type ExtractionResult struct {
	Symptoms   map[string]SymptomValue `json:"symptoms"`   // Symptom name -> value; absent means not detected
	Activities []string                `json:"activities"` // Canonical activity keywords, taxonomy order
	Triggers   []string                `json:"triggers"`   // Canonical trigger keywords, taxonomy order
	Notes      string                  `json:"notes"`      // Trimmed transcript
}

// NewExtractionResult returns an empty, non-nil result
func NewExtractionResult() ExtractionResult {
	return ExtractionResult{
		Symptoms:   make(map[string]SymptomValue),
		Activities: []string{},
		Triggers:   []string{},
	}
}

// Confidence is the transparent breakdown of the extraction confidence score
type Confidence struct {
	Index   int      `json:"index"`   // 0-100
	Level   string   `json:"level"`   // "low", "medium", "high"
	Signals []Signal `json:"signals"` // One signal per sub-score
}

// Signal explains one component of the confidence score
type Signal struct {
	Type        SignalType     `json:"type"`
	Description string         `json:"description"`
	Data        map[string]any `json:"data,omitempty"` // Inputs, weights and formula
}

// SignalType classifies a confidence signal
type SignalType string

const (
	SignalSymptomCoverage  SignalType = "symptom_coverage"
	SignalActivityCoverage SignalType = "activity_coverage"
	SignalTriggerCoverage  SignalType = "trigger_coverage"
)

// Analysis pairs an extraction with its confidence score
type Analysis struct {
	Result     ExtractionResult `json:"result"`
	Confidence Confidence       `json:"confidence"`
}

// Entry is an analysis attached to a user and a point in time, ready for storage
type Entry struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	RecordedAt time.Time        `json:"recorded_at"`
	Result     ExtractionResult `json:"result"`
	Confidence Confidence       `json:"confidence"`

	Recap *Recap `json:"recap,omitempty"` // Optional LLM recap (never affects confidence)
}

// Recap contains an optional LLM-generated plain-language recap of an entry
type Recap struct {
	Enabled  bool     `json:"enabled"`
	Provider string   `json:"provider,omitempty"`
	Model    string   `json:"model,omitempty"`
	Strict   bool     `json:"strict"`
	Text     string   `json:"text,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// SymptomStat aggregates one symptom across a user's stored entries
type SymptomStat struct {
	Name         string    `json:"name"`
	Kind         ValueKind `json:"-"`
	KindName     string    `json:"kind"`
	Occurrences  int       `json:"occurrences"`
	AverageScore *float64  `json:"average_score,omitempty"` // KindScore only
	MinScore     *int      `json:"min_score,omitempty"`
	MaxScore     *int      `json:"max_score,omitempty"`
	TopCategory  string    `json:"top_category,omitempty"` // KindCategory only
}
