package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/cache"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/engine"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/models"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/repositories"
)

// crossSessionSampleSize bounds how many historical responses feed the
// cross-session detector pass
const crossSessionSampleSize = 100

type insightService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger

	detector     *engine.DifficultyDetector
	recommender  *engine.RecommendationGenerator
	cacheManager *cache.CacheManager
}

func NewInsightService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, cfg engine.Config, redisClient *redis.Client) InsightService {
	return &insightService{
		repo:         repo,
		db:           db,
		logger:       logger,
		detector:     engine.NewDifficultyDetector(cfg),
		recommender:  engine.NewRecommendationGenerator(cfg),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// ===== DIFFICULTY AGGREGATION =====

func (s *insightService) GetStudentDifficulties(ctx context.Context, studentID string, subject *models.Subject) (*StudentDifficultiesResponse, error) {
	cacheKey := fmt.Sprintf("student:%s:difficulties:%s", studentID, subjectKey(subject))

	var response StudentDifficultiesResponse
	err := s.cacheManager.Insights.CacheOrExecute(ctx, cacheKey, &response, cache.InsightsCacheConfig.TTL, func() (interface{}, error) {
		return s.computeStudentDifficulties(ctx, studentID, subject)
	})
	if err != nil {
		return nil, err
	}
	return &response, nil
}

func (s *insightService) computeStudentDifficulties(ctx context.Context, studentID string, subject *models.Subject) (*StudentDifficultiesResponse, error) {
	records, _, err := s.repo.Result().GetByStudent(ctx, nil, studentID, repositories.ResultFilters{Subject: subject})
	if err != nil {
		return nil, fmt.Errorf("failed to load student results: %w", err)
	}

	// Per-session findings first, strongest confidence per type wins
	merged := make(map[models.DifficultyType]models.LearningDifficulty)
	for _, record := range records {
		var findings []models.LearningDifficulty
		if len(record.Difficulties) == 0 {
			continue
		}
		if err := json.Unmarshal(record.Difficulties, &findings); err != nil {
			s.logger.Warn("Skipping undecodable difficulty record", "session_id", record.SessionID, "error", err)
			continue
		}
		mergeFindings(merged, findings)
	}

	// A single-subject query also re-runs detection across the student's full
	// response history, which can surface patterns no single session had
	// enough samples for
	if subject != nil {
		crossSession, err := s.detectAcrossSessions(ctx, studentID, *subject)
		if err != nil {
			s.logger.Warn("Cross-session detection failed", "student_id", studentID, "error", err)
		} else {
			mergeFindings(merged, crossSession)
		}
	}

	difficulties := make([]models.LearningDifficulty, 0, len(merged))
	for _, finding := range merged {
		difficulties = append(difficulties, finding)
	}
	sortFindings(difficulties)

	return &StudentDifficultiesResponse{
		StudentID:        studentID,
		Subject:          subject,
		Difficulties:     difficulties,
		SessionsAnalyzed: len(records),
	}, nil
}

func (s *insightService) detectAcrossSessions(ctx context.Context, studentID string, subject models.Subject) ([]models.LearningDifficulty, error) {
	responses, err := s.repo.Response().GetByStudentAndSubject(ctx, nil, studentID, subject, crossSessionSampleSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load response history: %w", err)
	}
	if len(responses) == 0 {
		return nil, nil
	}

	ids := make([]uint, 0, len(responses))
	for _, r := range responses {
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

	scored := make([]engine.ScoredResponse, 0, len(responses))
	for _, response := range responses {
		question, ok := byID[response.QuestionID]
		if !ok {
			continue
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

	// Detector context comes from the student's most recent session so the
	// language and accessibility baselines stay personal
	virtual := &models.AssessmentSession{StudentID: studentID, Subject: subject}
	sessions, _, err := s.repo.Session().GetByStudent(ctx, nil, studentID, repositories.SessionFilters{
		Subject: &subject,
		Limit:   1,
		SortBy:  "created_at",
	})
	if err == nil && len(sessions) > 0 {
		virtual.CulturalContext = sessions[0].CulturalContext
		virtual.AccessibilityProfile = sessions[0].AccessibilityProfile
	}

	return s.detector.Detect(virtual, scored), nil
}

// ===== RECOMMENDATIONS =====

func (s *insightService) GetRecommendations(ctx context.Context, studentID string, subject models.Subject) (*RecommendationsResponse, error) {
	cacheKey := fmt.Sprintf("student:%s:recommendations:%s", studentID, subject)

	var response RecommendationsResponse
	err := s.cacheManager.Insights.CacheOrExecute(ctx, cacheKey, &response, cache.InsightsCacheConfig.TTL, func() (interface{}, error) {
		return s.computeRecommendations(ctx, studentID, subject)
	})
	if err != nil {
		return nil, err
	}
	return &response, nil
}

func (s *insightService) computeRecommendations(ctx context.Context, studentID string, subject models.Subject) (*RecommendationsResponse, error) {
	records, _, err := s.repo.Result().GetByStudent(ctx, nil, studentID, repositories.ResultFilters{
		Subject: &subject,
		Limit:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load student results: %w", err)
	}

	// A student with no completed assessments starts from the middle of the
	// mastery scale
	mastery := 0.5
	var difficulties []models.LearningDifficulty
	if len(records) > 0 {
		mastery = records[0].Mastery
		if len(records[0].Difficulties) > 0 {
			if err := json.Unmarshal(records[0].Difficulties, &difficulties); err != nil {
				s.logger.Warn("Skipping undecodable difficulty record", "session_id", records[0].SessionID, "error", err)
			}
		}
	}

	lessons, err := s.repo.Lesson().GetBySubject(ctx, nil, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to load lesson catalog: %w", err)
	}

	virtual := &models.AssessmentSession{StudentID: studentID, Subject: subject}
	sessions, _, err := s.repo.Session().GetByStudent(ctx, nil, studentID, repositories.SessionFilters{
		Subject: &subject,
		Limit:   1,
	})
	if err == nil && len(sessions) > 0 {
		virtual.CulturalContext = sessions[0].CulturalContext
		virtual.AccessibilityProfile = sessions[0].AccessibilityProfile
	}

	recommendations := s.recommender.Recommend(virtual, difficulties, mastery, lessons)

	return &RecommendationsResponse{
		StudentID:       studentID,
		Subject:         subject,
		Mastery:         mastery,
		Recommendations: recommendations,
	}, nil
}

// ===== STATS =====

func (s *insightService) GetStudentStats(ctx context.Context, studentID string) (*StudentStatsResponse, error) {
	stats, err := s.repo.Result().GetStudentSubjectStats(ctx, nil, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load student stats: %w", err)
	}

	return &StudentStatsResponse{
		StudentID: studentID,
		Subjects:  stats,
	}, nil
}

// ===== HELPERS =====

func subjectKey(subject *models.Subject) string {
	if subject == nil {
		return "all"
	}
	return string(*subject)
}

func mergeFindings(merged map[models.DifficultyType]models.LearningDifficulty, findings []models.LearningDifficulty) {
	for _, finding := range findings {
		existing, ok := merged[finding.Type]
		if !ok || finding.Confidence > existing.Confidence {
			merged[finding.Type] = finding
		}
	}
}

func sortFindings(findings []models.LearningDifficulty) {
	sort.Slice(findings, func(i, j int) bool {
		return findings[i].Confidence > findings[j].Confidence
	})
}
