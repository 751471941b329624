package services

import (
	"context"
	"io"
	"time"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/models"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/repositories"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type ValidationErrors = validator.ValidationErrors
type CreateSessionRequest = validator.CreateSessionRequest
type SubmitResponseRequest = validator.SubmitResponseRequest
type AbandonSessionRequest = validator.AbandonSessionRequest
type CreateQuestionRequest = validator.CreateQuestionRequest
type CreateLessonRequest = validator.CreateLessonRequest

// NextQuestionResponse is the student-facing view of the next question. The
// expected answer never leaves the service layer.
type NextQuestionResponse struct {
	QuestionID     uint                  `json:"question_id"`
	Subject        models.Subject        `json:"subject"`
	Skill          string                `json:"skill,omitempty"`
	Text           string                `json:"text"`
	RenderingHint  string                `json:"rendering_hint,omitempty"`
	Kind           models.AnswerKind     `json:"kind"`
	Difficulty     models.DifficultyTier `json:"difficulty"`
	ExpectedTimeMs int                   `json:"expected_time_ms"`
}

type SessionResponse struct {
	*models.AssessmentSession
	NextQuestion *NextQuestionResponse `json:"next_question,omitempty"`
}

type SubmitResponseResult struct {
	Evaluation   models.EvaluationResult     `json:"evaluation"`
	Adjustment   models.DifficultyAdjustment `json:"difficulty_adjustment"`
	NextQuestion *NextQuestionResponse       `json:"next_question,omitempty"`

	// BudgetExhausted signals the client should call Complete
	BudgetExhausted bool `json:"budget_exhausted"`
}

type StudentDifficultiesResponse struct {
	StudentID        string                      `json:"student_id"`
	Subject          *models.Subject             `json:"subject,omitempty"`
	Difficulties     []models.LearningDifficulty `json:"difficulties"`
	SessionsAnalyzed int                         `json:"sessions_analyzed"`
}

type RecommendationsResponse struct {
	StudentID       string                          `json:"student_id"`
	Subject         models.Subject                  `json:"subject"`
	Mastery         float64                         `json:"mastery"`
	Recommendations []models.LearningRecommendation `json:"recommendations"`
}

type StudentStatsResponse struct {
	StudentID string                             `json:"student_id"`
	Subjects  []repositories.StudentSubjectStats `json:"subjects"`
}

type QuestionListResponse struct {
	Questions []*models.Question `json:"questions"`
	Total     int64              `json:"total"`
}

type LessonListResponse struct {
	Lessons []*models.Lesson `json:"lessons"`
	Total   int64            `json:"total"`
}

// ImportResult summarizes a bulk question import. Row numbers are 1-based as
// they appear in the sheet.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// ===== SERVICE INTERFACES =====

type AssessmentService interface {
	Create(ctx context.Context, req *CreateSessionRequest) (*SessionResponse, error)
	GetByID(ctx context.Context, sessionID string) (*SessionResponse, error)
	SubmitResponse(ctx context.Context, sessionID string, req *SubmitResponseRequest) (*SubmitResponseResult, error)
	Complete(ctx context.Context, sessionID string) (*models.AssessmentResult, error)
	Abandon(ctx context.Context, sessionID string, req *AbandonSessionRequest) error
	GetResults(ctx context.Context, sessionID string) (*models.AssessmentResult, error)

	// ExpireStale abandons sessions untouched for longer than maxIdle and
	// returns how many it swept
	ExpireStale(ctx context.Context, maxIdle time.Duration, limit int) (int, error)
}

type InsightService interface {
	GetStudentDifficulties(ctx context.Context, studentID string, subject *models.Subject) (*StudentDifficultiesResponse, error)
	GetRecommendations(ctx context.Context, studentID string, subject models.Subject) (*RecommendationsResponse, error)
	GetStudentStats(ctx context.Context, studentID string) (*StudentStatsResponse, error)
}

type QuestionBankService interface {
	Create(ctx context.Context, req *CreateQuestionRequest, creatorID string) (*models.Question, error)
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	Update(ctx context.Context, id uint, req *CreateQuestionRequest) (*models.Question, error)
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filters repositories.QuestionFilters) (*QuestionListResponse, error)

	// ImportFromExcel loads questions from an .xlsx sheet, one question per
	// row, and creates the valid ones in a single batch
	ImportFromExcel(ctx context.Context, reader io.Reader, creatorID string) (*ImportResult, error)
}

type LessonService interface {
	Create(ctx context.Context, req *CreateLessonRequest) (*models.Lesson, error)
	GetByID(ctx context.Context, id uint) (*models.Lesson, error)
	List(ctx context.Context, filters repositories.LessonFilters) (*LessonListResponse, error)
}

// ServiceManager provides access to all services
type ServiceManager interface {
	Assessment() AssessmentService
	Insight() InsightService
	QuestionBank() QuestionBankService
	Lesson() LessonService

	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
