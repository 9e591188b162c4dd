package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// ValueKind identifies which variant a SymptomValue holds
type ValueKind int

const (
	KindBool     ValueKind = iota + 1 // Presence of a boolean symptom
	KindScore                         // Numeric severity 0-10
	KindCategory                      // Named category (e.g. "bad", "low")
)

func (k ValueKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindScore:
		return "score"
	case KindCategory:
		return "category"
	default:
		return "unknown"
	}
}

// MaxScore is the upper bound of a numeric symptom value
const MaxScore = 10

// SymptomValue is a tagged union over the three value shapes a symptom can take.
// The zero value is invalid and is never produced by the extractor.
type SymptomValue struct {
	kind     ValueKind
	flag     bool
	score    uint8
	category string
}

// BoolValue returns a boolean symptom value
func BoolValue(b bool) SymptomValue {
	return SymptomValue{kind: KindBool, flag: b}
}

// ScoreValue returns a numeric symptom value. Values above MaxScore are clamped.
func ScoreValue(n uint8) SymptomValue {
	if n > MaxScore {
		n = MaxScore
	}
	return SymptomValue{kind: KindScore, score: n}
}

// CategoryValue returns a categorical symptom value
func CategoryValue(name string) SymptomValue {
	return SymptomValue{kind: KindCategory, category: name}
}

// Kind reports which variant the value holds
func (v SymptomValue) Kind() ValueKind { return v.kind }

// Bool returns the boolean payload and whether the value is a KindBool
func (v SymptomValue) Bool() (bool, bool) { return v.flag, v.kind == KindBool }

// Score returns the numeric payload and whether the value is a KindScore
func (v SymptomValue) Score() (uint8, bool) { return v.score, v.kind == KindScore }

// Category returns the category payload and whether the value is a KindCategory
func (v SymptomValue) Category() (string, bool) { return v.category, v.kind == KindCategory }

// String renders the payload for human-readable output
func (v SymptomValue) String() string {
	switch v.kind {
	case KindBool:
		return fmt.Sprintf("%t", v.flag)
	case KindScore:
		return fmt.Sprintf("%d/10", v.score)
	case KindCategory:
		return v.category
	default:
		return "<invalid>"
	}
}

// MarshalJSON encodes the payload as a bare JSON bool, number or string
func (v SymptomValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(v.flag)
	case KindScore:
		return json.Marshal(v.score)
	case KindCategory:
		return json.Marshal(v.category)
	default:
		return nil, fmt.Errorf("marshal symptom value: invalid kind %d", v.kind)
	}
}

// UnmarshalJSON infers the variant from the JSON type
func (v *SymptomValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("unmarshal symptom value: empty input")
	}

	switch data[0] {
	case 'n':
		return fmt.Errorf("unmarshal symptom value: null is not a symptom value")
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("unmarshal symptom value: %w", err)
		}
		*v = BoolValue(b)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("unmarshal symptom value: %w", err)
		}
		*v = CategoryValue(s)
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("unmarshal symptom value: %w", err)
		}
		if f < 0 || f > MaxScore || f != math.Trunc(f) {
			return fmt.Errorf("unmarshal symptom value: score %v outside 0-%d", f, MaxScore)
		}
		*v = ScoreValue(uint8(f))
	}
	return nil
}
