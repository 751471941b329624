package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/models"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/repositories"
)

// Responses are append-only; there is no update or delete path, so this
// repository skips the cache layer entirely.
type ResponsePostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewResponsePostgreSQL(db *gorm.DB) repositories.ResponseRepository {
	return &ResponsePostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (r *ResponsePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *ResponsePostgreSQL) Create(ctx context.Context, tx *gorm.DB, response *models.Response) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(response).Error; err != nil {
		return fmt.Errorf("failed to create response: %w", err)
	}
	return nil
}

func (r *ResponsePostgreSQL) GetBySession(ctx context.Context, tx *gorm.DB, sessionID string) ([]*models.Response, error) {
	db := r.getDB(tx)

	var responses []*models.Response
	if err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&responses).Error; err != nil {
		return nil, fmt.Errorf("failed to get session responses: %w", err)
	}
	return responses, nil
}

func (r *ResponsePostgreSQL) CountBySession(ctx context.Context, tx *gorm.DB, sessionID string) (int64, error) {
	var count int64
	err := r.getDB(tx).WithContext(ctx).
		Model(&models.Response{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count session responses: %w", err)
	}
	return count, nil
}

// GetByStudentAndSubject joins through sessions to collect a student's
// evaluated responses in one subject, newest sessions first.
func (r *ResponsePostgreSQL) GetByStudentAndSubject(ctx context.Context, tx *gorm.DB, studentID string, subject models.Subject, limit int) ([]*models.Response, error) {
	db := r.getDB(tx)

	query := db.WithContext(ctx).
		Joins("JOIN assessment_sessions ON assessment_sessions.id = responses.session_id").
		Where("assessment_sessions.student_id = ? AND assessment_sessions.subject = ?", studentID, subject).
		Order("responses.created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var responses []*models.Response
	if err := query.Find(&responses).Error; err != nil {
		return nil, fmt.Errorf("failed to get student responses: %w", err)
	}
	return responses, nil
}
