package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/models"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/repositories"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/validator"
)

type lessonService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewLessonService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) LessonService {
	return &lessonService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

func (s *lessonService) Create(ctx context.Context, req *CreateLessonRequest) (*models.Lesson, error) {
	if errs := s.validator.Validate(req); len(errs) > 0 {
		return nil, errs
	}

	lesson := &models.Lesson{
		Subject:              req.Subject,
		Title:                req.Title,
		Difficulty:           req.Difficulty,
		EstimatedTimeMinutes: req.EstimatedTimeMinutes,
	}

	if len(req.Formats) > 0 {
		raw, err := json.Marshal(req.Formats)
		if err != nil {
			return nil, fmt.Errorf("failed to encode formats: %w", err)
		}
		lesson.Formats = raw
	}
	if len(req.Accommodations) > 0 {
		raw, err := json.Marshal(req.Accommodations)
		if err != nil {
			return nil, fmt.Errorf("failed to encode accommodations: %w", err)
		}
		lesson.Accommodations = raw
	}
	if len(req.Cultures) > 0 {
		raw, err := json.Marshal(req.Cultures)
		if err != nil {
			return nil, fmt.Errorf("failed to encode cultures: %w", err)
		}
		lesson.Cultures = raw
	}

	if err := s.repo.Lesson().Create(ctx, nil, lesson); err != nil {
		return nil, fmt.Errorf("failed to create lesson: %w", err)
	}

	s.logger.Info("Lesson created", "lesson_id", lesson.ID, "subject", lesson.Subject)

	return lesson, nil
}

func (s *lessonService) GetByID(ctx context.Context, id uint) (*models.Lesson, error) {
	lesson, err := s.repo.Lesson().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrLessonNotFound
		}
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	return lesson, nil
}

func (s *lessonService) List(ctx context.Context, filters repositories.LessonFilters) (*LessonListResponse, error) {
	lessons, total, err := s.repo.Lesson().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}

	return &LessonListResponse{Lessons: lessons, Total: total}, nil
}
