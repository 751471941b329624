package validator

import (
	"encoding/json"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/models"
)

// CreateSessionRequest starts a new assessment session for a student.
type CreateSessionRequest struct {
	StudentID string                `json:"student_id" validate:"required,max=255"`
	Subject   models.Subject        `json:"subject" validate:"required,subject"`
	Type      models.AssessmentType `json:"type" validate:"required,assessment_type"`

	// Optional starting tier; defaults to medium for diagnostic sessions
	StartDifficulty *models.DifficultyTier `json:"start_difficulty" validate:"omitempty,difficulty_tier"`
	QuestionBudget  *int                   `json:"question_budget"`

	CulturalContext      *models.CulturalContext      `json:"cultural_context"`
	AccessibilityProfile *models.AccessibilityProfile `json:"accessibility_profile"`
}

// SubmitResponseRequest carries one answer to the session's current question.
type SubmitResponseRequest struct {
	QuestionID  uint            `json:"question_id" validate:"required"`
	Answer      json.RawMessage `json:"answer"`
	TimeSpentMs int             `json:"time_spent_ms" validate:"min=0"`
	Confidence  *float64        `json:"confidence" validate:"omitempty,fraction"`
	HintsUsed   int             `json:"hints_used" validate:"min=0,max=10"`
	Attempts    int             `json:"attempts" validate:"omitempty,min=1,max=10"`

	EmotionalState *models.EmotionalState `json:"emotional_state" validate:"omitempty,emotional_state"`
}

// AbandonSessionRequest cancels an in-flight session.
type AbandonSessionRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// CreateQuestionRequest adds one question to the bank.
type CreateQuestionRequest struct {
	Subject    models.Subject        `json:"subject" validate:"required,subject"`
	Skill      string                `json:"skill" validate:"omitempty,max=100"`
	Text       string                `json:"text" validate:"required,min=1,max=2000"`
	Difficulty models.DifficultyTier `json:"difficulty" validate:"required,difficulty_tier"`
	Kind       models.AnswerKind     `json:"kind" validate:"required,answer_kind"`

	Expected       json.RawMessage `json:"expected" validate:"required"`
	ExpectedTimeMs int             `json:"expected_time_ms" validate:"omitempty,min=1000,max=600000"`

	CulturalVariants      map[string]models.QuestionVariant `json:"cultural_variants"`
	AccessibilityVariants map[string]models.QuestionVariant `json:"accessibility_variants"`
}

// CreateLessonRequest adds one lesson to the recommendation catalog.
type CreateLessonRequest struct {
	Subject              models.Subject        `json:"subject" validate:"required,subject"`
	Title                string                `json:"title" validate:"required,min=1,max=200"`
	Difficulty           models.DifficultyTier `json:"difficulty" validate:"required,difficulty_tier"`
	EstimatedTimeMinutes int                   `json:"estimated_time_minutes" validate:"omitempty,min=1,max=240"`

	Formats        []string `json:"formats" validate:"omitempty,dive,oneof=text audio visual interactive"`
	Accommodations []string `json:"accommodations"`
	Cultures       []string `json:"cultures"`
}
