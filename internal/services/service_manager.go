package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/engine"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/events"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/repositories"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	EnableDebugLogging bool
	LogLevel           slog.Level

	// Adaptive engine thresholds shared by all services
	Engine engine.Config

	// Event publisher; a mock is substituted when no broker is configured
	Publisher events.EventPublisher

	// Redis client for insight caching; nil disables caching gracefully
	RedisClient *redis.Client

	// Expiry sweep settings
	SessionMaxIdle time.Duration
	SweepLimit     int
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	config    ServiceManagerConfig

	// Service instances
	assessmentService   AssessmentService
	insightService      InsightService
	questionBankService QuestionBankService
	lessonService       LessonService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: validator,
		config:    config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) ServiceManager {
	config := ServiceManagerConfig{
		EnableDebugLogging: false,
		LogLevel:           slog.LevelInfo,
		Engine:             engine.DefaultConfig(),
		Publisher:          events.NewMockEventPublisher(logger),
		SessionMaxIdle:     30 * time.Minute,
		SweepLimit:         100,
	}

	return NewServiceManager(db, repo, logger, validator, config)
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if sm.repo == nil {
		return fmt.Errorf("repository is required")
	}
	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	sm.assessmentService = NewAssessmentService(sm.repo, sm.db, sm.logger, sm.validator, sm.config.Publisher, sm.config.Engine)
	sm.logger.Info("Assessment service initialized")

	sm.insightService = NewInsightService(sm.repo, sm.db, sm.logger, sm.config.Engine, sm.config.RedisClient)
	sm.logger.Info("Insight service initialized")

	sm.questionBankService = NewQuestionBankService(sm.repo, sm.db, sm.logger, sm.validator)
	sm.logger.Info("QuestionBank service initialized")

	sm.lessonService = NewLessonService(sm.repo, sm.db, sm.logger, sm.validator)
	sm.logger.Info("Lesson service initialized")

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

// Service getters
func (sm *serviceManager) Assessment() AssessmentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.assessmentService == nil {
		panic("assessment service not initialized")
	}
	return sm.assessmentService
}

func (sm *serviceManager) Insight() InsightService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.insightService == nil {
		panic("insight service not initialized")
	}
	return sm.insightService
}

func (sm *serviceManager) QuestionBank() QuestionBankService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.questionBankService == nil {
		panic("question bank service not initialized")
	}
	return sm.questionBankService
}

func (sm *serviceManager) Lesson() LessonService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.lessonService == nil {
		panic("lesson service not initialized")
	}
	return sm.lessonService
}

// Shutdown flushes the publisher and marks the manager unusable
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.config.Publisher != nil {
		if err := sm.config.Publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	sm.initialized = false

	return nil
}
