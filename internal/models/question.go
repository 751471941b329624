package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type Subject string

const (
	SubjectMath     Subject = "math"
	SubjectReading  Subject = "reading"
	SubjectWriting  Subject = "writing"
	SubjectScience  Subject = "science"
	SubjectLanguage Subject = "language"
)

type DifficultyTier string

const (
	DifficultyEasy   DifficultyTier = "easy"
	DifficultyMedium DifficultyTier = "medium"
	DifficultyHard   DifficultyTier = "hard"
)

// AnswerKind is the declared shape of a question's expected answer.
type AnswerKind string

const (
	AnswerText    AnswerKind = "text"
	AnswerNumber  AnswerKind = "number"
	AnswerList    AnswerKind = "list"
	AnswerBoolean AnswerKind = "boolean"
)

type Question struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	Subject    Subject        `json:"subject" gorm:"not null;index;size:50"`
	Skill      string         `json:"skill" gorm:"index;size:100"` // e.g. "decoding", "arithmetic", "comprehension"
	Text       string         `json:"text" gorm:"type:text;not null"`
	Difficulty DifficultyTier `json:"difficulty" gorm:"default:medium;index"`

	// Expected answer stored as JSONB, decoded through AnswerValue using Kind
	Kind     AnswerKind     `json:"kind" gorm:"not null;size:20"`
	Expected datatypes.JSON `json:"expected" gorm:"type:jsonb"`

	// Baseline answering time for the speed term of the quality score
	ExpectedTimeMs int `json:"expected_time_ms" gorm:"default:30000"`

	// Optional wording/rendering overlays keyed by culture code and
	// accessibility need ("visual", "hearing", "motor", "cognitive")
	CulturalVariants      datatypes.JSON `json:"cultural_variants" gorm:"type:jsonb"`
	AccessibilityVariants datatypes.JSON `json:"accessibility_variants" gorm:"type:jsonb"`

	CreatedBy string    `json:"created_by" gorm:"index;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QuestionVariant is an overlay applied to a question before it is issued.
type QuestionVariant struct {
	Text          string `json:"text,omitempty"`
	RenderingHint string `json:"rendering_hint,omitempty"` // e.g. "large_font", "audio_first", "high_contrast"
}

// AnswerValue is the tagged union behind Question.Expected and Response.RawAnswer.
// Exactly one of the value fields is meaningful, selected by Kind.
type AnswerValue struct {
	Kind   AnswerKind `json:"kind"`
	Text   string     `json:"text,omitempty"`
	Number float64    `json:"number,omitempty"`
	List   []string   `json:"list,omitempty"`
	Bool   bool       `json:"bool,omitempty"`
}

// DecodeAnswer decodes raw JSON into an AnswerValue of the given kind.
// A shape mismatch returns an error; callers decide whether that is a
// rejection or a graceful "wrong answer" degradation.
func DecodeAnswer(kind AnswerKind, raw json.RawMessage) (AnswerValue, error) {
	v := AnswerValue{Kind: kind}
	if len(raw) == 0 {
		return v, nil
	}

	switch kind {
	case AnswerText:
		if err := json.Unmarshal(raw, &v.Text); err != nil {
			return v, fmt.Errorf("expected text answer: %w", err)
		}
	case AnswerNumber:
		if err := json.Unmarshal(raw, &v.Number); err != nil {
			return v, fmt.Errorf("expected numeric answer: %w", err)
		}
	case AnswerList:
		if err := json.Unmarshal(raw, &v.List); err != nil {
			var single string
			if err2 := json.Unmarshal(raw, &single); err2 != nil {
				return v, fmt.Errorf("expected list answer: %w", err)
			}
			v.List = []string{single}
		}
	case AnswerBoolean:
		if err := json.Unmarshal(raw, &v.Bool); err != nil {
			return v, fmt.Errorf("expected boolean answer: %w", err)
		}
	default:
		return v, fmt.Errorf("unsupported answer kind: %s", kind)
	}

	return v, nil
}

// IsEmpty reports whether the value carries no usable answer content.
func (v AnswerValue) IsEmpty() bool {
	switch v.Kind {
	case AnswerText:
		return v.Text == ""
	case AnswerList:
		return len(v.List) == 0
	default:
		return false
	}
}

// ExpectedValue decodes the stored expected answer.
func (q *Question) ExpectedValue() (AnswerValue, error) {
	return DecodeAnswer(q.Kind, json.RawMessage(q.Expected))
}

// CulturalVariant returns the overlay for a culture code, if present.
func (q *Question) CulturalVariant(culture string) (*QuestionVariant, bool) {
	return lookupVariant(q.CulturalVariants, culture)
}

// AccessibilityVariant returns the overlay for an accessibility need, if present.
func (q *Question) AccessibilityVariant(need string) (*QuestionVariant, bool) {
	return lookupVariant(q.AccessibilityVariants, need)
}

func lookupVariant(raw datatypes.JSON, key string) (*QuestionVariant, bool) {
	if len(raw) == 0 || key == "" {
		return nil, false
	}
	var variants map[string]QuestionVariant
	if err := json.Unmarshal(raw, &variants); err != nil {
		return nil, false
	}
	v, ok := variants[key]
	if !ok {
		return nil, false
	}
	return &v, true
}
