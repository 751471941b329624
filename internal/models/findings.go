package models

import (
	"time"

	"gorm.io/datatypes"
)

// ErrorClass is the normalized taxonomy of an incorrect answer.
type ErrorClass string

const (
	ErrorNone          ErrorClass = "none"
	ErrorSubstitution  ErrorClass = "substitution"
	ErrorOmission      ErrorClass = "omission"
	ErrorInsertion     ErrorClass = "insertion"
	ErrorReversal      ErrorClass = "reversal"
	ErrorTransposition ErrorClass = "transposition"
	ErrorConceptual    ErrorClass = "conceptual"
	ErrorProcedural    ErrorClass = "procedural"
	ErrorCalculation   ErrorClass = "calculation"
	ErrorTimeout       ErrorClass = "timeout"
)

// EvaluationResult is the pure outcome of scoring one response.
type EvaluationResult struct {
	Correct      bool       `json:"correct"`
	ErrorClass   ErrorClass `json:"error_class"`
	QualityScore float64    `json:"quality_score"`
	Feedback     string     `json:"feedback,omitempty"`
}

type AdjustmentDirection string

const (
	AdjustIncrease AdjustmentDirection = "increase"
	AdjustDecrease AdjustmentDirection = "decrease"
	AdjustHold     AdjustmentDirection = "hold"
)

// DifficultyAdjustment is the controller's per-response decision.
type DifficultyAdjustment struct {
	Direction AdjustmentDirection `json:"direction"`
	NewTier   DifficultyTier      `json:"new_tier"`
	Rationale []string            `json:"rationale"`
}

type DifficultyType string

const (
	DifficultyDyslexia        DifficultyType = "DYSLEXIA"
	DifficultyDyscalculia     DifficultyType = "DYSCALCULIA"
	DifficultyAttention       DifficultyType = "ATTENTION"
	DifficultyProcessingSpeed DifficultyType = "PROCESSING_SPEED"
)

type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// LearningDifficulty is a heuristic signal, not a diagnosis. Confidence and
// supporting indicators always accompany a finding so consumers can present
// it accordingly.
type LearningDifficulty struct {
	Type                      DifficultyType `json:"type"`
	Severity                  Severity       `json:"severity"`
	Confidence                float64        `json:"confidence"`
	SupportingIndicators      []string       `json:"supporting_indicators"`
	RecommendedAccommodations []string       `json:"recommended_accommodations"`
}

type RecommendationPriority string

const (
	PriorityLow    RecommendationPriority = "low"
	PriorityNormal RecommendationPriority = "normal"
	PriorityHigh   RecommendationPriority = "high"
)

type LearningRecommendation struct {
	LessonID             uint                   `json:"lesson_id"`
	Title                string                 `json:"title"`
	Priority             RecommendationPriority `json:"priority"`
	Rationale            string                 `json:"rationale"`
	EstimatedTimeMinutes int                    `json:"estimated_time_minutes"`
	CulturalFit          float64                `json:"cultural_fit"`
	AccessibilityFit     float64                `json:"accessibility_fit"`
}

// AssessmentResult is the frozen payload of a completed session.
type AssessmentResult struct {
	SessionID       string                   `json:"session_id"`
	Score           float64                  `json:"score"`
	Mastery         float64                  `json:"mastery"`
	Difficulties    []LearningDifficulty     `json:"difficulties"`
	Recommendations []LearningRecommendation `json:"recommendations"`
	Summary         string                   `json:"summary"`
	CompletedAt     time.Time                `json:"completed_at"`
}

// AssessmentResultRecord is the persisted form of AssessmentResult; the
// findings and recommendations live in JSONB so the schema stays stable for
// cross-session aggregation.
type AssessmentResultRecord struct {
	SessionID string  `json:"session_id" gorm:"primaryKey;size:36"`
	StudentID string  `json:"student_id" gorm:"not null;index;size:255"`
	Subject   Subject `json:"subject" gorm:"not null;index;size:50"`

	Score   float64 `json:"score"`
	Mastery float64 `json:"mastery"`
	Summary string  `json:"summary" gorm:"type:text"`

	Difficulties    datatypes.JSON `json:"difficulties" gorm:"type:jsonb"`
	Recommendations datatypes.JSON `json:"recommendations" gorm:"type:jsonb"`

	CompletedAt time.Time `json:"completed_at"`
	CreatedAt   time.Time `json:"created_at"`
}
