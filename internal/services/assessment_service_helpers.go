package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/engine"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/events"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/models"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/repositories"
)

// ===== SESSION CONSTRUCTION =====

func (s *assessmentService) buildSession(req *CreateSessionRequest) (*models.AssessmentSession, error) {
	cfg := s.engine.Config()

	session := &models.AssessmentSession{
		ID:                uuid.New().String(),
		StudentID:         req.StudentID,
		Subject:           req.Subject,
		Type:              req.Type,
		CurrentDifficulty: models.DifficultyMedium,
		Status:            models.SessionCreated,
		QuestionBudget:    cfg.QuestionBudget,
	}

	if req.StartDifficulty != nil {
		session.CurrentDifficulty = *req.StartDifficulty
	}
	if req.QuestionBudget != nil {
		session.QuestionBudget = *req.QuestionBudget
	}

	if req.CulturalContext != nil {
		raw, err := json.Marshal(req.CulturalContext)
		if err != nil {
			return nil, fmt.Errorf("failed to encode cultural context: %w", err)
		}
		session.CulturalContext = raw
	}
	if req.AccessibilityProfile != nil {
		raw, err := json.Marshal(req.AccessibilityProfile)
		if err != nil {
			return nil, fmt.Errorf("failed to encode accessibility profile: %w", err)
		}
		session.AccessibilityProfile = raw
	}

	return session, nil
}

// ===== QUESTION SELECTION =====

// issueNextQuestion picks an unseen question for the session's current tier,
// records it as used, and returns the student-facing view.
func (s *assessmentService) issueNextQuestion(ctx context.Context, session *models.AssessmentSession) (*NextQuestionResponse, error) {
	pool, err := s.repo.Question().GetPool(ctx, nil, repositories.PoolFilters{Subject: session.Subject})
	if err != nil {
		return nil, fmt.Errorf("failed to load question pool: %w", err)
	}

	used := make(map[uint]bool)
	for _, id := range session.UsedIDs() {
		used[id] = true
	}

	question, err := s.selector.Next(session, pool, used)
	if err != nil {
		if errors.Is(err, engine.ErrBankExhausted) {
			return nil, ErrBankExhausted
		}
		return nil, fmt.Errorf("failed to select question: %w", err)
	}

	if err := markIssued(session, question.ID); err != nil {
		return nil, err
	}

	presented := engine.Present(question, session)

	return &NextQuestionResponse{
		QuestionID:     question.ID,
		Subject:        question.Subject,
		Skill:          question.Skill,
		Text:           presented.Text,
		RenderingHint:  presented.RenderingHint,
		Kind:           question.Kind,
		Difficulty:     question.Difficulty,
		ExpectedTimeMs: question.ExpectedTimeMs,
	}, nil
}

func markIssued(session *models.AssessmentSession, questionID uint) error {
	ids := append(session.UsedIDs(), questionID)
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode used question ids: %w", err)
	}
	session.UsedQuestionIDs = raw
	session.QuestionsAsked = len(ids)
	return nil
}

func (s *assessmentService) wasIssued(session *models.AssessmentSession, questionID uint) bool {
	for _, id := range session.UsedIDs() {
		if id == questionID {
			return true
		}
	}
	return false
}

// ===== SCORED HISTORY =====

// rebuildScored reconstructs the engine's evaluated history from the stored
// response snapshots, so the session survives process restarts.
func (s *assessmentService) rebuildScored(ctx context.Context, session *models.AssessmentSession) ([]engine.ScoredResponse, error) {
	if len(session.Responses) == 0 {
		return nil, nil
	}

	ids := make([]uint, 0, len(session.Responses))
	for _, r := range session.Responses {
		ids = append(ids, r.QuestionID)
	}

	questions, err := s.repo.Question().GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load answered questions: %w", err)
	}

	byID := make(map[uint]*models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	scored := make([]engine.ScoredResponse, 0, len(session.Responses))
	for i := range session.Responses {
		response := &session.Responses[i]
		question, ok := byID[response.QuestionID]
		if !ok {
			// Question deleted after it was answered; the snapshot still counts
			question = &models.Question{ID: response.QuestionID, Subject: session.Subject}
		}
		scored = append(scored, engine.ScoredResponse{
			Response: response,
			Question: question,
			Result: models.EvaluationResult{
				Correct:      response.Correct,
				ErrorClass:   response.ErrorClass,
				QualityScore: response.QualityScore,
			},
		})
	}

	return scored, nil
}

func (s *assessmentService) buildResponse(sessionID string, req *SubmitResponseRequest) *models.Response {
	response := &models.Response{
		SessionID:   sessionID,
		QuestionID:  req.QuestionID,
		TimeSpentMs: req.TimeSpentMs,
		Confidence:  0.5,
		HintsUsed:   req.HintsUsed,
		Attempts:    req.Attempts,
		Emotional:   req.EmotionalState,
	}
	if len(req.Answer) > 0 {
		response.RawAnswer = datatypes.JSON(req.Answer)
	}
	if req.Confidence != nil {
		response.Confidence = *req.Confidence
	}
	if response.Attempts == 0 {
		response.Attempts = 1
	}
	return response
}

// ===== RESULT PERSISTENCE =====

func recordFromResult(session *models.AssessmentSession, result *models.AssessmentResult) (*models.AssessmentResultRecord, error) {
	difficulties, err := json.Marshal(result.Difficulties)
	if err != nil {
		return nil, fmt.Errorf("failed to encode difficulties: %w", err)
	}
	recommendations, err := json.Marshal(result.Recommendations)
	if err != nil {
		return nil, fmt.Errorf("failed to encode recommendations: %w", err)
	}

	return &models.AssessmentResultRecord{
		SessionID:       result.SessionID,
		StudentID:       session.StudentID,
		Subject:         session.Subject,
		Score:           result.Score,
		Mastery:         result.Mastery,
		Summary:         result.Summary,
		Difficulties:    difficulties,
		Recommendations: recommendations,
		CompletedAt:     result.CompletedAt,
	}, nil
}

func resultFromRecord(record *models.AssessmentResultRecord) (*models.AssessmentResult, error) {
	result := &models.AssessmentResult{
		SessionID:   record.SessionID,
		Score:       record.Score,
		Mastery:     record.Mastery,
		Summary:     record.Summary,
		CompletedAt: record.CompletedAt,
	}

	if len(record.Difficulties) > 0 {
		if err := json.Unmarshal(record.Difficulties, &result.Difficulties); err != nil {
			return nil, fmt.Errorf("failed to decode difficulties: %w", err)
		}
	}
	if len(record.Recommendations) > 0 {
		if err := json.Unmarshal(record.Recommendations, &result.Recommendations); err != nil {
			return nil, fmt.Errorf("failed to decode recommendations: %w", err)
		}
	}

	return result, nil
}

func (s *assessmentService) loadResult(ctx context.Context, sessionID string) (*models.AssessmentResult, error) {
	record, err := s.repo.Result().GetBySession(ctx, nil, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return resultFromRecord(record)
}

// ===== EVENT PUBLISHING =====

// Publishing is best effort; a broker outage never fails the request.
func (s *assessmentService) publishCompletion(ctx context.Context, session *models.AssessmentSession, result *models.AssessmentResult) {
	s.publish(ctx, events.NewEvent(events.TypeSessionCompleted, events.SessionCompletedEvent{
		SessionID:       session.ID,
		StudentID:       session.StudentID,
		Subject:         string(session.Subject),
		Score:           result.Score,
		Mastery:         result.Mastery,
		ResponseCount:   session.ResponsesScored,
		DifficultyCount: len(result.Difficulties),
	}))

	for _, finding := range result.Difficulties {
		s.publish(ctx, events.NewEvent(events.TypeDifficultyDetected, events.DifficultyDetectedEvent{
			SessionID:      session.ID,
			StudentID:      session.StudentID,
			Subject:        string(session.Subject),
			DifficultyType: string(finding.Type),
			Severity:       string(finding.Severity),
			Confidence:     finding.Confidence,
			Accommodations: finding.RecommendedAccommodations,
		}))
	}
}

func (s *assessmentService) publishAbandonment(ctx context.Context, session *models.AssessmentSession, reason string) {
	s.publish(ctx, events.NewEvent(events.TypeSessionAbandoned, events.SessionAbandonedEvent{
		SessionID:     session.ID,
		StudentID:     session.StudentID,
		Subject:       string(session.Subject),
		ResponseCount: session.ResponsesScored,
		Reason:        reason,
	}))
}

func (s *assessmentService) publish(ctx context.Context, event *events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "event_type", event.Type, "error", err)
	}
}
