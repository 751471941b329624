package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionCreated   SessionStatus = "created"
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// Terminal reports whether no further mutation is allowed.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionAbandoned
}

type AssessmentType string

const (
	AssessmentDiagnostic AssessmentType = "diagnostic"
	AssessmentProgress   AssessmentType = "progress"
	AssessmentMastery    AssessmentType = "mastery"
	AssessmentRemedial   AssessmentType = "remedial"
)

type EmotionalState string

const (
	EmotionFrustrated EmotionalState = "frustrated"
	EmotionConfident  EmotionalState = "confident"
	EmotionConfused   EmotionalState = "confused"
	EmotionEngaged    EmotionalState = "engaged"
)

// CulturalContext is resolved by an upstream collaborator and carried as data.
type CulturalContext struct {
	Culture  string `json:"culture,omitempty"`
	Language string `json:"language,omitempty"`
	Region   string `json:"region,omitempty"`
}

// AccessibilityProfile flags declared accessibility needs for a session.
type AccessibilityProfile struct {
	Visual    bool `json:"visual,omitempty"`
	Hearing   bool `json:"hearing,omitempty"`
	Motor     bool `json:"motor,omitempty"`
	Cognitive bool `json:"cognitive,omitempty"`
}

// Any reports whether at least one accessibility need is declared.
func (p AccessibilityProfile) Any() bool {
	return p.Visual || p.Hearing || p.Motor || p.Cognitive
}

type AssessmentSession struct {
	ID                string         `json:"id" gorm:"primaryKey;size:36"`
	StudentID         string         `json:"student_id" gorm:"not null;index;size:255"`
	Subject           Subject        `json:"subject" gorm:"not null;index;size:50"`
	Type              AssessmentType `json:"type" gorm:"not null;size:20"`
	CurrentDifficulty DifficultyTier `json:"current_difficulty" gorm:"default:medium"`
	Status            SessionStatus  `json:"status" gorm:"default:created;index"`

	QuestionBudget  int `json:"question_budget" gorm:"default:10"`
	QuestionsAsked  int `json:"questions_asked"`
	ResponsesScored int `json:"responses_scored"`

	CulturalContext      datatypes.JSON `json:"cultural_context" gorm:"type:jsonb"`
	AccessibilityProfile datatypes.JSON `json:"accessibility_profile" gorm:"type:jsonb"`

	// IDs already issued to this session, never repeated
	UsedQuestionIDs datatypes.JSON `json:"used_question_ids" gorm:"type:jsonb"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at"`

	Responses []Response `json:"responses,omitempty" gorm:"foreignKey:SessionID"`
}

// Cultural decodes the stored cultural context; zero value when absent.
func (s *AssessmentSession) Cultural() CulturalContext {
	var ctx CulturalContext
	if len(s.CulturalContext) > 0 {
		_ = json.Unmarshal(s.CulturalContext, &ctx)
	}
	return ctx
}

// Accessibility decodes the stored accessibility profile; zero value when absent.
func (s *AssessmentSession) Accessibility() AccessibilityProfile {
	var p AccessibilityProfile
	if len(s.AccessibilityProfile) > 0 {
		_ = json.Unmarshal(s.AccessibilityProfile, &p)
	}
	return p
}

// UsedIDs decodes the issued-question ID list.
func (s *AssessmentSession) UsedIDs() []uint {
	var ids []uint
	if len(s.UsedQuestionIDs) > 0 {
		_ = json.Unmarshal(s.UsedQuestionIDs, &ids)
	}
	return ids
}

// Response is one submitted answer. Rows are immutable after creation;
// corrections arrive as new responses with a higher attempt count.
type Response struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	SessionID  string `json:"session_id" gorm:"not null;index;size:36"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`

	RawAnswer   datatypes.JSON  `json:"raw_answer" gorm:"type:jsonb"`
	TimeSpentMs int             `json:"time_spent_ms"`
	Confidence  float64         `json:"confidence" gorm:"default:0.5"`
	HintsUsed   int             `json:"hints_used"`
	Attempts    int             `json:"attempts" gorm:"default:1"`
	Emotional   *EmotionalState `json:"emotional_state" gorm:"size:20"`

	// Evaluation snapshot. Derived deterministically from (question, response);
	// stored so cross-session read paths can aggregate without re-evaluating.
	Correct      bool       `json:"correct"`
	ErrorClass   ErrorClass `json:"error_class" gorm:"size:20"`
	QualityScore float64    `json:"quality_score"`

	EvaluatedAt time.Time `json:"evaluated_at"`
	CreatedAt   time.Time `json:"created_at"`

	Session  AssessmentSession `json:"-" gorm:"foreignKey:SessionID"`
	Question Question          `json:"-" gorm:"foreignKey:QuestionID"`
}
