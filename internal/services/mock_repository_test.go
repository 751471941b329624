package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/models"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/repositories"
)

// In-memory Repository implementation backing the service tests.

type memoryRepository struct {
	mu sync.Mutex

	sessions  map[string]*models.AssessmentSession
	responses []*models.Response
	questions map[uint]*models.Question
	lessons   map[uint]*models.Lesson
	records   map[string]*models.AssessmentResultRecord

	nextQuestionID uint
	nextLessonID   uint
	nextResponseID uint
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		sessions:  make(map[string]*models.AssessmentSession),
		questions: make(map[uint]*models.Question),
		lessons:   make(map[uint]*models.Lesson),
		records:   make(map[string]*models.AssessmentResultRecord),
	}
}

func (m *memoryRepository) Session() repositories.SessionRepository   { return &memorySessionRepo{m} }
func (m *memoryRepository) Response() repositories.ResponseRepository { return &memoryResponseRepo{m} }
func (m *memoryRepository) Question() repositories.QuestionRepository { return &memoryQuestionRepo{m} }
func (m *memoryRepository) Lesson() repositories.LessonRepository     { return &memoryLessonRepo{m} }
func (m *memoryRepository) Result() repositories.ResultRepository     { return &memoryResultRepo{m} }

func (m *memoryRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}
func (m *memoryRepository) Ping(ctx context.Context) error { return nil }
func (m *memoryRepository) Close() error                   { return nil }

// seedQuestion registers a question and returns its assigned ID.
func (m *memoryRepository) seedQuestion(q models.Question) uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextQuestionID++
	q.ID = m.nextQuestionID
	m.questions[q.ID] = &q
	return q.ID
}

func (m *memoryRepository) seedLesson(l models.Lesson) uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextLessonID++
	l.ID = m.nextLessonID
	m.lessons[l.ID] = &l
	return l.ID
}

func (m *memoryRepository) seedSession(s models.AssessmentSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := s
	m.sessions[s.ID] = &copied
}

// ===== SESSIONS =====

type memorySessionRepo struct{ m *memoryRepository }

func (r *memorySessionRepo) Create(ctx context.Context, tx *gorm.DB, session *models.AssessmentSession) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, exists := r.m.sessions[session.ID]; exists {
		return fmt.Errorf("duplicate session id %s", session.ID)
	}
	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt
	copied := *session
	r.m.sessions[session.ID] = &copied
	return nil
}

func (r *memorySessionRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.AssessmentSession, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.sessions[id]
	if !ok {
		return nil, repositories.NewNotFoundError("session", id)
	}
	copied := *stored
	copied.Responses = nil
	return &copied, nil
}

func (r *memorySessionRepo) GetByIDWithResponses(ctx context.Context, tx *gorm.DB, id string) (*models.AssessmentSession, error) {
	session, err := r.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, resp := range r.m.responses {
		if resp.SessionID == id {
			session.Responses = append(session.Responses, *resp)
		}
	}
	return session, nil
}

func (r *memorySessionRepo) Update(ctx context.Context, tx *gorm.DB, session *models.AssessmentSession) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.sessions[session.ID]; !ok {
		return repositories.NewNotFoundError("session", session.ID)
	}
	session.UpdatedAt = time.Now()
	copied := *session
	copied.Responses = nil
	r.m.sessions[session.ID] = &copied
	return nil
}

func (r *memorySessionRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.SessionFilters) ([]*models.AssessmentSession, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.AssessmentSession
	for _, s := range r.m.sessions {
		if filters.StudentID != nil && s.StudentID != *filters.StudentID {
			continue
		}
		if filters.Subject != nil && s.Subject != *filters.Subject {
			continue
		}
		if filters.Status != nil && s.Status != *filters.Status {
			continue
		}
		copied := *s
		out = append(out, &copied)
	}
	return out, int64(len(out)), nil
}

func (r *memorySessionRepo) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.SessionFilters) ([]*models.AssessmentSession, int64, error) {
	filters.StudentID = &studentID
	return r.List(ctx, tx, filters)
}

func (r *memorySessionRepo) GetStale(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]*models.AssessmentSession, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.AssessmentSession
	for _, s := range r.m.sessions {
		if s.Status.Terminal() || !s.UpdatedAt.Before(cutoff) {
			continue
		}
		copied := *s
		out = append(out, &copied)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ===== RESPONSES =====

type memoryResponseRepo struct{ m *memoryRepository }

func (r *memoryResponseRepo) Create(ctx context.Context, tx *gorm.DB, response *models.Response) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.nextResponseID++
	response.ID = r.m.nextResponseID
	response.CreatedAt = time.Now()
	copied := *response
	r.m.responses = append(r.m.responses, &copied)
	return nil
}

func (r *memoryResponseRepo) GetBySession(ctx context.Context, tx *gorm.DB, sessionID string) ([]*models.Response, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Response
	for _, resp := range r.m.responses {
		if resp.SessionID == sessionID {
			copied := *resp
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memoryResponseRepo) CountBySession(ctx context.Context, tx *gorm.DB, sessionID string) (int64, error) {
	responses, _ := r.GetBySession(ctx, tx, sessionID)
	return int64(len(responses)), nil
}

func (r *memoryResponseRepo) GetByStudentAndSubject(ctx context.Context, tx *gorm.DB, studentID string, subject models.Subject, limit int) ([]*models.Response, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Response
	for _, resp := range r.m.responses {
		session, ok := r.m.sessions[resp.SessionID]
		if !ok || session.StudentID != studentID || session.Subject != subject {
			continue
		}
		copied := *resp
		out = append(out, &copied)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ===== QUESTIONS =====

type memoryQuestionRepo struct{ m *memoryRepository }

func (r *memoryQuestionRepo) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.nextQuestionID++
	question.ID = r.m.nextQuestionID
	copied := *question
	r.m.questions[question.ID] = &copied
	return nil
}

func (r *memoryQuestionRepo) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error {
	for _, q := range questions {
		if err := r.Create(ctx, tx, q); err != nil {
			return err
		}
	}
	return nil
}

func (r *memoryQuestionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.questions[id]
	if !ok {
		return nil, repositories.NewNotFoundError("question", fmt.Sprintf("%d", id))
	}
	copied := *stored
	return &copied, nil
}

func (r *memoryQuestionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Question, error) {
	var out []*models.Question
	for _, id := range ids {
		q, err := r.GetByID(ctx, tx, id)
		if err != nil {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (r *memoryQuestionRepo) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.questions[question.ID]; !ok {
		return repositories.NewNotFoundError("question", fmt.Sprintf("%d", question.ID))
	}
	copied := *question
	r.m.questions[question.ID] = &copied
	return nil
}

func (r *memoryQuestionRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.questions[id]; !ok {
		return repositories.NewNotFoundError("question", fmt.Sprintf("%d", id))
	}
	delete(r.m.questions, id)
	return nil
}

func (r *memoryQuestionRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Question
	for _, q := range r.m.questions {
		if filters.Subject != nil && q.Subject != *filters.Subject {
			continue
		}
		if filters.Difficulty != nil && q.Difficulty != *filters.Difficulty {
			continue
		}
		copied := *q
		out = append(out, &copied)
	}
	return out, int64(len(out)), nil
}

func (r *memoryQuestionRepo) GetPool(ctx context.Context, tx *gorm.DB, filters repositories.PoolFilters) ([]models.Question, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	excluded := make(map[uint]bool, len(filters.ExcludeIDs))
	for _, id := range filters.ExcludeIDs {
		excluded[id] = true
	}
	var out []models.Question
	for _, q := range r.m.questions {
		if q.Subject != filters.Subject || excluded[q.ID] {
			continue
		}
		if filters.Difficulty != nil && q.Difficulty != *filters.Difficulty {
			continue
		}
		out = append(out, *q)
	}
	return out, nil
}

// ===== LESSONS =====

type memoryLessonRepo struct{ m *memoryRepository }

func (r *memoryLessonRepo) Create(ctx context.Context, tx *gorm.DB, lesson *models.Lesson) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.nextLessonID++
	lesson.ID = r.m.nextLessonID
	copied := *lesson
	r.m.lessons[lesson.ID] = &copied
	return nil
}

func (r *memoryLessonRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Lesson, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.lessons[id]
	if !ok {
		return nil, repositories.NewNotFoundError("lesson", fmt.Sprintf("%d", id))
	}
	copied := *stored
	return &copied, nil
}

func (r *memoryLessonRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.LessonFilters) ([]*models.Lesson, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Lesson
	for _, l := range r.m.lessons {
		if filters.Subject != nil && l.Subject != *filters.Subject {
			continue
		}
		copied := *l
		out = append(out, &copied)
	}
	return out, int64(len(out)), nil
}

func (r *memoryLessonRepo) GetBySubject(ctx context.Context, tx *gorm.DB, subject models.Subject) ([]models.Lesson, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []models.Lesson
	for _, l := range r.m.lessons {
		if l.Subject == subject {
			out = append(out, *l)
		}
	}
	return out, nil
}

// ===== RESULTS =====

type memoryResultRepo struct{ m *memoryRepository }

func (r *memoryResultRepo) Save(ctx context.Context, tx *gorm.DB, record *models.AssessmentResultRecord) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	copied := *record
	r.m.records[record.SessionID] = &copied
	return nil
}

func (r *memoryResultRepo) GetBySession(ctx context.Context, tx *gorm.DB, sessionID string) (*models.AssessmentResultRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.records[sessionID]
	if !ok {
		return nil, repositories.NewNotFoundError("result", sessionID)
	}
	copied := *stored
	return &copied, nil
}

func (r *memoryResultRepo) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.ResultFilters) ([]*models.AssessmentResultRecord, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.AssessmentResultRecord
	for _, rec := range r.m.records {
		if rec.StudentID != studentID {
			continue
		}
		if filters.Subject != nil && rec.Subject != *filters.Subject {
			continue
		}
		copied := *rec
		out = append(out, &copied)
		if filters.Limit > 0 && len(out) >= filters.Limit {
			break
		}
	}
	return out, int64(len(out)), nil
}

func (r *memoryResultRepo) GetStudentSubjectStats(ctx context.Context, tx *gorm.DB, studentID string) ([]repositories.StudentSubjectStats, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	bySubject := make(map[models.Subject]*repositories.StudentSubjectStats)
	for _, rec := range r.m.records {
		if rec.StudentID != studentID {
			continue
		}
		stats, ok := bySubject[rec.Subject]
		if !ok {
			stats = &repositories.StudentSubjectStats{Subject: rec.Subject}
			bySubject[rec.Subject] = stats
		}
		n := float64(stats.CompletedSessions)
		stats.AverageScore = (stats.AverageScore*n + rec.Score) / (n + 1)
		stats.AverageMastery = (stats.AverageMastery*n + rec.Mastery) / (n + 1)
		stats.CompletedSessions++
		completedAt := rec.CompletedAt
		if stats.LastCompletedAt == nil || completedAt.After(*stats.LastCompletedAt) {
			stats.LastCompletedAt = &completedAt
		}
	}
	var out []repositories.StudentSubjectStats
	for _, stats := range bySubject {
		out = append(out, *stats)
	}
	return out, nil
}
