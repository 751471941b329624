package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/engine"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/events"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/models"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/repositories"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/validator"
)

type assessmentService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator

	engine    *engine.Engine
	selector  *engine.Selector
	locks     *engine.SessionLocks
	publisher events.EventPublisher
}

func NewAssessmentService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, cfg engine.Config) AssessmentService {
	return &assessmentService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		engine:    engine.New(cfg),
		selector:  engine.NewSelector(time.Now().UnixNano()),
		locks:     engine.NewSessionLocks(),
		publisher: publisher,
	}
}

// ===== SESSION LIFECYCLE =====

func (s *assessmentService) Create(ctx context.Context, req *CreateSessionRequest) (*SessionResponse, error) {
	s.logger.Info("Creating assessment session", "student_id", req.StudentID, "subject", req.Subject, "type", req.Type)

	if errs := s.validator.GetBusinessValidator().ValidateSessionCreate(req); len(errs) > 0 {
		return nil, errs
	}

	session, err := s.buildSession(req)
	if err != nil {
		return nil, err
	}

	// Activate and issue the first question before the session is persisted,
	// so a stored session always has a question in flight
	sess := s.engine.NewSession(session, nil, nil)
	if err := sess.Activate(); err != nil {
		return nil, fmt.Errorf("failed to activate session: %w", err)
	}

	next, err := s.issueNextQuestion(ctx, session)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Session().Create(ctx, nil, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("Assessment session created", "session_id", session.ID, "difficulty", session.CurrentDifficulty)

	return &SessionResponse{AssessmentSession: session, NextQuestion: next}, nil
}

func (s *assessmentService) GetByID(ctx context.Context, sessionID string) (*SessionResponse, error) {
	session, err := s.repo.Session().GetByID(ctx, nil, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &SessionResponse{AssessmentSession: session}, nil
}

func (s *assessmentService) SubmitResponse(ctx context.Context, sessionID string, req *SubmitResponseRequest) (*SubmitResponseResult, error) {
	if errs := s.validator.GetBusinessValidator().ValidateResponseSubmit(req); len(errs) > 0 {
		return nil, errs
	}

	// One writer per session; concurrent submissions are serialized here
	release := s.locks.Acquire(sessionID)
	defer release()

	session, err := s.repo.Session().GetByIDWithResponses(ctx, nil, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if session.Status != models.SessionActive {
		return nil, NewStateError(sessionID, string(session.Status), "submit response to")
	}

	if !s.wasIssued(session, req.QuestionID) {
		return nil, ErrQuestionNotIssued
	}

	question, err := s.repo.Question().GetByID(ctx, nil, req.QuestionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	scored, err := s.rebuildScored(ctx, session)
	if err != nil {
		return nil, err
	}

	sess := s.engine.NewSession(session, scored, nil)
	response := s.buildResponse(session.ID, req)

	evaluation, adjustment, err := sess.SubmitResponse(question, response)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidState) {
			return nil, NewStateError(sessionID, string(session.Status), "submit response to")
		}
		return nil, fmt.Errorf("failed to evaluate response: %w", err)
	}

	var next *NextQuestionResponse
	if !sess.BudgetExhausted() {
		next, err = s.issueNextQuestion(ctx, session)
		if err != nil && !errors.Is(err, ErrBankExhausted) {
			return nil, err
		}
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Response().Create(ctx, nil, response); err != nil {
			return fmt.Errorf("failed to save response: %w", err)
		}
		if err := txRepo.Session().Update(ctx, nil, session); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Response scored",
		"session_id", sessionID,
		"question_id", req.QuestionID,
		"correct", evaluation.Correct,
		"error_class", evaluation.ErrorClass,
		"difficulty", session.CurrentDifficulty)

	return &SubmitResponseResult{
		Evaluation:      evaluation,
		Adjustment:      adjustment,
		NextQuestion:    next,
		BudgetExhausted: next == nil,
	}, nil
}

func (s *assessmentService) Complete(ctx context.Context, sessionID string) (*models.AssessmentResult, error) {
	release := s.locks.Acquire(sessionID)
	defer release()

	session, err := s.repo.Session().GetByIDWithResponses(ctx, nil, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	// Completion is idempotent: a repeated call returns the frozen result
	if session.Status == models.SessionCompleted {
		return s.loadResult(ctx, sessionID)
	}

	if session.Status != models.SessionActive {
		return nil, NewStateError(sessionID, string(session.Status), "complete")
	}

	scored, err := s.rebuildScored(ctx, session)
	if err != nil {
		return nil, err
	}

	lessons, err := s.repo.Lesson().GetBySubject(ctx, nil, session.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to load lesson catalog: %w", err)
	}

	sess := s.engine.NewSession(session, scored, nil)
	result, err := sess.Complete(lessons, time.Now())
	if err != nil {
		if errors.Is(err, engine.ErrInvalidState) {
			return nil, NewStateError(sessionID, string(session.Status), "complete")
		}
		return nil, fmt.Errorf("failed to complete session: %w", err)
	}

	record, err := recordFromResult(session, result)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Session().Update(ctx, nil, session); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		if err := txRepo.Result().Save(ctx, nil, record); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishCompletion(ctx, session, result)

	s.logger.Info("Assessment session completed",
		"session_id", sessionID,
		"score", result.Score,
		"mastery", result.Mastery,
		"difficulties", len(result.Difficulties))

	return result, nil
}

func (s *assessmentService) Abandon(ctx context.Context, sessionID string, req *AbandonSessionRequest) error {
	if req != nil {
		if errs := s.validator.Validate(req); len(errs) > 0 {
			return errs
		}
	}

	release := s.locks.Acquire(sessionID)
	defer release()

	session, err := s.repo.Session().GetByID(ctx, nil, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to get session: %w", err)
	}

	sess := s.engine.NewSession(session, nil, nil)
	if err := sess.Abandon(); err != nil {
		if errors.Is(err, engine.ErrInvalidState) {
			return ErrSessionTerminal
		}
		return fmt.Errorf("failed to abandon session: %w", err)
	}

	if err := s.repo.Session().Update(ctx, nil, session); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	reason := "cancelled"
	if req != nil && req.Reason != "" {
		reason = req.Reason
	}
	s.publishAbandonment(ctx, session, reason)

	s.logger.Info("Assessment session abandoned", "session_id", sessionID, "reason", reason)

	return nil
}

func (s *assessmentService) GetResults(ctx context.Context, sessionID string) (*models.AssessmentResult, error) {
	result, err := s.loadResult(ctx, sessionID)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, ErrResultNotFound) {
		return nil, err
	}

	// Distinguish an unknown session from one that just has not finished
	if _, err := s.repo.Session().GetByID(ctx, nil, sessionID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return nil, ErrSessionNotCompleted
}

// ===== EXPIRY SWEEP =====

func (s *assessmentService) ExpireStale(ctx context.Context, maxIdle time.Duration, limit int) (int, error) {
	cutoff := time.Now().Add(-maxIdle)

	stale, err := s.repo.Session().GetStale(ctx, nil, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale sessions: %w", err)
	}

	swept := 0
	for _, session := range stale {
		sess := s.engine.NewSession(session, nil, nil)
		if err := sess.Abandon(); err != nil {
			continue
		}
		if err := s.repo.Session().Update(ctx, nil, session); err != nil {
			s.logger.Error("Failed to expire session", "session_id", session.ID, "error", err)
			continue
		}
		s.publishAbandonment(ctx, session, "expired")
		swept++
	}

	if swept > 0 {
		s.logger.Info("Expired stale sessions", "count", swept, "cutoff", cutoff)
	}

	return swept, nil
}
