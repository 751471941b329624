package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type SessionFilters struct {
	Status    *models.SessionStatus  `json:"status"`
	StudentID *string                `json:"student_id"`
	Subject   *models.Subject        `json:"subject"`
	Type      *models.AssessmentType `json:"type"`
	DateFrom  *time.Time             `json:"date_from"`
	DateTo    *time.Time             `json:"date_to"`
	Limit     int                    `json:"limit"`
	Offset    int                    `json:"offset"`
	SortBy    string                 `json:"sort_by"`    // "created_at", "updated_at", "status"
	SortOrder string                 `json:"sort_order"` // "asc", "desc"
}

type QuestionFilters struct {
	Subject    *models.Subject        `json:"subject"`
	Skill      *string                `json:"skill"`
	Difficulty *models.DifficultyTier `json:"difficulty"`
	Kind       *models.AnswerKind     `json:"kind"`
	CreatedBy  *string                `json:"created_by"`
	Limit      int                    `json:"limit"`
	Offset     int                    `json:"offset"`
	SortBy     string                 `json:"sort_by"`
	SortOrder  string                 `json:"sort_order"`
}

// PoolFilters selects candidate questions for a running session.
type PoolFilters struct {
	Subject    models.Subject         `json:"subject"`
	Difficulty *models.DifficultyTier `json:"difficulty"`
	ExcludeIDs []uint                 `json:"exclude_ids"`
	Limit      int                    `json:"limit"`
}

type LessonFilters struct {
	Subject    *models.Subject        `json:"subject"`
	Difficulty *models.DifficultyTier `json:"difficulty"`
	Limit      int                    `json:"limit"`
	Offset     int                    `json:"offset"`
}

type ResultFilters struct {
	Subject  *models.Subject `json:"subject"`
	DateFrom *time.Time      `json:"date_from"`
	DateTo   *time.Time      `json:"date_to"`
	Limit    int             `json:"limit"`
	Offset   int             `json:"offset"`
}

// ===== SHARED STATISTICS STRUCTS =====

type StudentSubjectStats struct {
	Subject           models.Subject `json:"subject"`
	CompletedSessions int            `json:"completed_sessions"`
	AverageScore      float64        `json:"average_score"`
	AverageMastery    float64        `json:"average_mastery"`
	LastCompletedAt   *time.Time     `json:"last_completed_at"`
}

// ===== REPOSITORY INTERFACES =====

type SessionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, session *models.AssessmentSession) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.AssessmentSession, error)
	GetByIDWithResponses(ctx context.Context, tx *gorm.DB, id string) (*models.AssessmentSession, error)
	Update(ctx context.Context, tx *gorm.DB, session *models.AssessmentSession) error
	List(ctx context.Context, tx *gorm.DB, filters SessionFilters) ([]*models.AssessmentSession, int64, error)
	GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters SessionFilters) ([]*models.AssessmentSession, int64, error)

	// GetStale returns non-terminal sessions untouched since the cutoff, for
	// the expiry sweep
	GetStale(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]*models.AssessmentSession, error)
}

type ResponseRepository interface {
	Create(ctx context.Context, tx *gorm.DB, response *models.Response) error
	GetBySession(ctx context.Context, tx *gorm.DB, sessionID string) ([]*models.Response, error)
	CountBySession(ctx context.Context, tx *gorm.DB, sessionID string) (int64, error)

	// GetByStudentAndSubject returns evaluated responses across the student's
	// completed sessions for cross-session pattern aggregation
	GetByStudentAndSubject(ctx context.Context, tx *gorm.DB, studentID string, subject models.Subject, limit int) ([]*models.Response, error)
}

type QuestionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Question, error)
	Update(ctx context.Context, tx *gorm.DB, question *models.Question) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, filters QuestionFilters) ([]*models.Question, int64, error)

	// GetPool returns selection candidates for a session
	GetPool(ctx context.Context, tx *gorm.DB, filters PoolFilters) ([]models.Question, error)
}

type LessonRepository interface {
	Create(ctx context.Context, tx *gorm.DB, lesson *models.Lesson) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Lesson, error)
	List(ctx context.Context, tx *gorm.DB, filters LessonFilters) ([]*models.Lesson, int64, error)
	GetBySubject(ctx context.Context, tx *gorm.DB, subject models.Subject) ([]models.Lesson, error)
}

type ResultRepository interface {
	// Save upserts on session ID so a completion retry never duplicates rows
	Save(ctx context.Context, tx *gorm.DB, record *models.AssessmentResultRecord) error
	GetBySession(ctx context.Context, tx *gorm.DB, sessionID string) (*models.AssessmentResultRecord, error)
	GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters ResultFilters) ([]*models.AssessmentResultRecord, int64, error)
	GetStudentSubjectStats(ctx context.Context, tx *gorm.DB, studentID string) ([]StudentSubjectStats, error)
}
