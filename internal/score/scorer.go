package score

import (
	"fmt"

	"github.com/ppiankov/symptomlog/internal/model"
)

// Component is the weighting of one sub-score: each item is worth PerItem points,
// capped at Cap
type Component struct {
	PerItem int `json:"per_item" yaml:"per_item"`
	Cap     int `json:"cap" yaml:"cap"`
}

// Weights controls the confidence formula
type Weights struct {
	Symptoms   Component `json:"symptoms" yaml:"symptoms"`
	Activities Component `json:"activities" yaml:"activities"`
	Triggers   Component `json:"triggers" yaml:"triggers"`
	TotalCap   int       `json:"total_cap" yaml:"total_cap"`
}

// DefaultWeights returns the standard weights. With these the sub-score caps add up
// to exactly TotalCap, so the outer clamp never binds; it is kept for custom weights.
func DefaultWeights() Weights {
	return Weights{
		Symptoms:   Component{PerItem: 15, Cap: 60},
		Activities: Component{PerItem: 10, Cap: 20},
		Triggers:   Component{PerItem: 10, Cap: 20},
		TotalCap:   100,
	}
}

// Confidence level thresholds
const (
	MediumThreshold = 40
	HighThreshold   = 70
)

// Scorer calculates the extraction confidence and explains it with signals
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the default weights
func NewScorer() *Scorer {
	return &Scorer{weights: DefaultWeights()}
}

// NewScorerWithWeights creates a scorer with custom weights
func NewScorerWithWeights(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// Weights returns the weights in use
func (s *Scorer) Weights() Weights { return s.weights }

// Score returns the 0-100 confidence index for an extraction result.
// It reflects how much was found, not correctness.
func (s *Scorer) Score(result model.ExtractionResult) int {
	symptoms, _ := s.component(model.SignalSymptomCoverage, "symptoms", len(result.Symptoms), s.weights.Symptoms)
	activities, _ := s.component(model.SignalActivityCoverage, "activities", len(result.Activities), s.weights.Activities)
	triggers, _ := s.component(model.SignalTriggerCoverage, "triggers", len(result.Triggers), s.weights.Triggers)

	return min(symptoms+activities+triggers, s.weights.TotalCap)
}

// Calculate returns the confidence index together with its level and one signal
// per sub-score
func (s *Scorer) Calculate(result model.ExtractionResult) model.Confidence {
	var signals []model.Signal

	// 1. Symptoms (0-60 points)
	symptoms, sig := s.component(model.SignalSymptomCoverage, "symptoms", len(result.Symptoms), s.weights.Symptoms)
	signals = append(signals, sig)

	// 2. Activities (0-20 points)
	activities, sig := s.component(model.SignalActivityCoverage, "activities", len(result.Activities), s.weights.Activities)
	signals = append(signals, sig)

	// 3. Triggers (0-20 points)
	triggers, sig := s.component(model.SignalTriggerCoverage, "triggers", len(result.Triggers), s.weights.Triggers)
	signals = append(signals, sig)

	index := min(symptoms+activities+triggers, s.weights.TotalCap)

	return model.Confidence{
		Index:   index,
		Level:   Level(index),
		Signals: signals,
	}
}

// Level maps an index to "low", "medium" or "high"
func Level(index int) string {
	switch {
	case index >= HighThreshold:
		return "high"
	case index >= MediumThreshold:
		return "medium"
	default:
		return "low"
	}
}

func (s *Scorer) component(typ model.SignalType, label string, count int, c Component) (int, model.Signal) {
	score := min(count*c.PerItem, c.Cap)

	description := fmt.Sprintf("%d %s detected", count, label)
	if count*c.PerItem > c.Cap {
		description = fmt.Sprintf("%d %s detected (capped at %d points)", count, label, c.Cap)
	}

	return score, model.Signal{
		Type:        typ,
		Description: description,
		Data: map[string]any{
			"count":    count,
			"per_item": c.PerItem,
			"cap":      c.Cap,
			"score":    score,
			"formula":  fmt.Sprintf("min(%s * %d, %d)", label, c.PerItem, c.Cap),
		},
	}
}
