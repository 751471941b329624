package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/cache"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/models"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/repositories"
)

type SessionPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewSessionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.SessionRepository {
	return &SessionPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *SessionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Create inserts a new session row
func (r *SessionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, session *models.AssessmentSession) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, r.cacheManager.Session, "list:*")
	return nil
}

// GetByID retrieves a session by ID with caching
func (r *SessionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.AssessmentSession, error) {
	db := r.getDB(tx)
	cacheKey := fmt.Sprintf("id:%s", id)
	var session models.AssessmentSession

	err := r.cacheManager.Session.CacheOrExecute(ctx, cacheKey, &session, cache.SessionCacheConfig.TTL, func() (interface{}, error) {
		var dbSession models.AssessmentSession
		if err := db.WithContext(ctx).First(&dbSession, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, repositories.NewNotFoundError("session", id)
			}
			return nil, fmt.Errorf("failed to get session: %w", err)
		}
		return &dbSession, nil
	})

	if err != nil {
		return nil, err
	}

	return &session, nil
}

// GetByIDWithResponses loads the session and its full ordered response history.
// Not cached: it backs mutating operations that need current state.
func (r *SessionPostgreSQL) GetByIDWithResponses(ctx context.Context, tx *gorm.DB, id string) (*models.AssessmentSession, error) {
	db := r.getDB(tx)
	var session models.AssessmentSession
	if err := db.WithContext(ctx).
		Preload("Responses", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&session, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.NewNotFoundError("session", id)
		}
		return nil, fmt.Errorf("failed to get session with responses: %w", err)
	}
	return &session, nil
}

// Update saves the session and invalidates its cached copy
func (r *SessionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, session *models.AssessmentSession) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Save(session).Error; err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	cache.InvalidateSessionCache(ctx, r.cacheManager, session.ID)
	return nil
}

// List returns sessions matching the filters with a total count
func (r *SessionPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.SessionFilters) ([]*models.AssessmentSession, int64, error) {
	db := r.getDB(tx)

	query := db.WithContext(ctx).Model(&models.AssessmentSession{})
	query = r.helpers.ApplySessionFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	query = r.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var sessions []*models.AssessmentSession
	if err := query.Find(&sessions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	return sessions, total, nil
}

// GetByStudent returns a student's sessions matching the filters
func (r *SessionPostgreSQL) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.SessionFilters) ([]*models.AssessmentSession, int64, error) {
	filters.StudentID = &studentID
	return r.List(ctx, tx, filters)
}

// GetStale returns non-terminal sessions untouched since the cutoff
func (r *SessionPostgreSQL) GetStale(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]*models.AssessmentSession, error) {
	db := r.getDB(tx)

	query := db.WithContext(ctx).
		Where("status IN ?", []models.SessionStatus{models.SessionCreated, models.SessionActive}).
		Where("updated_at < ?", cutoff).
		Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var sessions []*models.AssessmentSession
	if err := query.Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to get stale sessions: %w", err)
	}
	return sessions, nil
}
