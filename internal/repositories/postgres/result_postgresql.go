package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/cache"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/models"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/repositories"
)

type ResultPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewResultPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ResultRepository {
	return &ResultPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *ResultPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Save upserts on session ID so a completion retry never duplicates rows
func (r *ResultPostgreSQL) Save(ctx context.Context, tx *gorm.DB, record *models.AssessmentResultRecord) error {
	db := r.getDB(tx)

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			UpdateAll: true,
		}).
		Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	cache.SafeDelete(ctx, r.cacheManager.Results, fmt.Sprintf("session:%s", record.SessionID))
	cache.InvalidateStudentInsights(ctx, r.cacheManager, record.StudentID)
	return nil
}

// GetBySession retrieves the frozen result for a completed session. Results
// never change once written, so they cache aggressively.
func (r *ResultPostgreSQL) GetBySession(ctx context.Context, tx *gorm.DB, sessionID string) (*models.AssessmentResultRecord, error) {
	db := r.getDB(tx)
	cacheKey := fmt.Sprintf("session:%s", sessionID)
	var record models.AssessmentResultRecord

	err := r.cacheManager.Results.CacheOrExecute(ctx, cacheKey, &record, cache.ResultsCacheConfig.TTL, func() (interface{}, error) {
		var dbRecord models.AssessmentResultRecord
		if err := db.WithContext(ctx).First(&dbRecord, "session_id = ?", sessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, repositories.NewNotFoundError("result", sessionID)
			}
			return nil, fmt.Errorf("failed to get result: %w", err)
		}
		return &dbRecord, nil
	})

	if err != nil {
		return nil, err
	}

	return &record, nil
}

func (r *ResultPostgreSQL) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.ResultFilters) ([]*models.AssessmentResultRecord, int64, error) {
	db := r.getDB(tx)

	query := db.WithContext(ctx).Model(&models.AssessmentResultRecord{}).Where("student_id = ?", studentID)
	if filters.Subject != nil {
		query = query.Where("subject = ?", *filters.Subject)
	}
	if filters.DateFrom != nil {
		query = query.Where("completed_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("completed_at <= ?", *filters.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count results: %w", err)
	}

	query = query.Order("completed_at DESC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var records []*models.AssessmentResultRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to get student results: %w", err)
	}

	return records, total, nil
}

// GetStudentSubjectStats aggregates a student's completed results per subject
func (r *ResultPostgreSQL) GetStudentSubjectStats(ctx context.Context, tx *gorm.DB, studentID string) ([]repositories.StudentSubjectStats, error) {
	db := r.getDB(tx)

	var stats []repositories.StudentSubjectStats
	err := db.WithContext(ctx).
		Model(&models.AssessmentResultRecord{}).
		Select("subject, COUNT(*) as completed_sessions, AVG(score) as average_score, AVG(mastery) as average_mastery, MAX(completed_at) as last_completed_at").
		Where("student_id = ?", studentID).
		Group("subject").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get student subject stats: %w", err)
	}
	return stats, nil
}
