package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/cache"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/models"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/repositories"
)

type LessonPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewLessonPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.LessonRepository {
	return &LessonPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *LessonPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *LessonPostgreSQL) Create(ctx context.Context, tx *gorm.DB, lesson *models.Lesson) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(lesson).Error; err != nil {
		return fmt.Errorf("failed to create lesson: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, r.cacheManager.Fast, fmt.Sprintf("lessons:%s*", lesson.Subject))
	return nil
}

func (r *LessonPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Lesson, error) {
	db := r.getDB(tx)

	var lesson models.Lesson
	if err := db.WithContext(ctx).First(&lesson, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.NewNotFoundError("lesson", fmt.Sprintf("%d", id))
		}
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	return &lesson, nil
}

func (r *LessonPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.LessonFilters) ([]*models.Lesson, int64, error) {
	db := r.getDB(tx)

	query := db.WithContext(ctx).Model(&models.Lesson{})
	if filters.Subject != nil {
		query = query.Where("subject = ?", *filters.Subject)
	}
	if filters.Difficulty != nil {
		query = query.Where("difficulty = ?", *filters.Difficulty)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count lessons: %w", err)
	}

	query = query.Order("subject, difficulty, estimated_time_minutes")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var lessons []*models.Lesson
	if err := query.Find(&lessons).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list lessons: %w", err)
	}

	return lessons, total, nil
}

// GetBySubject returns the full recommendation pool for one subject with
// caching; the ranking happens in memory against session state.
func (r *LessonPostgreSQL) GetBySubject(ctx context.Context, tx *gorm.DB, subject models.Subject) ([]models.Lesson, error) {
	db := r.getDB(tx)
	cacheKey := fmt.Sprintf("lessons:%s", subject)

	var lessons []models.Lesson
	err := r.cacheManager.Fast.CacheOrExecute(ctx, cacheKey, &lessons, cache.FastCacheConfig.TTL, func() (interface{}, error) {
		var dbLessons []models.Lesson
		if err := db.WithContext(ctx).Where("subject = ?", subject).Find(&dbLessons).Error; err != nil {
			return nil, fmt.Errorf("failed to get lessons for subject: %w", err)
		}
		return dbLessons, nil
	})
	if err != nil {
		return nil, err
	}
	return lessons, nil
}
