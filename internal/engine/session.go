package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/models"
)

// ErrInvalidState is returned when an operation is attempted on a session
// whose lifecycle state does not allow it. It is distinct from not-found
// conditions, which are the persistence layer's concern.
var ErrInvalidState = errors.New("invalid session state")

// Engine bundles the pure components of the adaptive core. It holds no
// per-session state and is safe for concurrent use.
type Engine struct {
	cfg         Config
	Evaluator   *Evaluator
	Controller  *DifficultyController
	Detector    *DifficultyDetector
	Recommender *RecommendationGenerator
}

func New(cfg Config) *Engine {
	return &Engine{
		cfg:         cfg,
		Evaluator:   NewEvaluator(cfg),
		Controller:  NewDifficultyController(cfg),
		Detector:    NewDifficultyDetector(cfg),
		Recommender: NewRecommendationGenerator(cfg),
	}
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Session is the in-memory aggregate for one assessment run: the session row,
// its evaluated response history, and the frozen result once completed. It is
// not safe for concurrent use; callers serialize access per session ID.
type Session struct {
	engine *Engine

	Model  *models.AssessmentSession
	scored []ScoredResponse
	result *models.AssessmentResult
}

// NewSession wraps a loaded session row and its evaluated history. cached may
// carry a previously computed result for completed sessions.
func (e *Engine) NewSession(model *models.AssessmentSession, history []ScoredResponse, cached *models.AssessmentResult) *Session {
	return &Session{engine: e, Model: model, scored: history, result: cached}
}

// Scored returns the evaluated history snapshot.
func (s *Session) Scored() []ScoredResponse {
	return s.scored
}

// Activate moves created → active. Status only ever advances forward.
func (s *Session) Activate() error {
	if s.Model.Status != models.SessionCreated {
		return fmt.Errorf("%w: cannot activate session in status %q", ErrInvalidState, s.Model.Status)
	}
	s.Model.Status = models.SessionActive
	return nil
}

// SubmitResponse evaluates one answer and updates the difficulty tier. Valid
// only while active; a terminal session rejects the submission before any
// state is touched, so no response record is created for it.
func (s *Session) SubmitResponse(question *models.Question, response *models.Response) (models.EvaluationResult, models.DifficultyAdjustment, error) {
	if s.Model.Status != models.SessionActive {
		return models.EvaluationResult{}, models.DifficultyAdjustment{},
			fmt.Errorf("%w: cannot submit response in status %q", ErrInvalidState, s.Model.Status)
	}

	result := s.engine.Evaluator.Evaluate(question, response)

	now := time.Now().UTC()
	response.Correct = result.Correct
	response.ErrorClass = result.ErrorClass
	response.QualityScore = result.QualityScore
	response.EvaluatedAt = now

	s.scored = append(s.scored, ScoredResponse{Response: response, Question: question, Result: result})
	s.Model.ResponsesScored++

	adjustment := s.engine.Controller.Decide(s.Model.CurrentDifficulty, s.windowEntries())
	s.Model.CurrentDifficulty = adjustment.NewTier

	return result, adjustment, nil
}

func (s *Session) windowEntries() []WindowEntry {
	entries := make([]WindowEntry, len(s.scored))
	for i, sc := range s.scored {
		entries[i] = WindowEntry{
			QualityScore: sc.Result.QualityScore,
			TimeSpentMs:  sc.Response.TimeSpentMs,
		}
	}
	return entries
}

// BudgetExhausted reports whether the session has used up its question budget.
func (s *Session) BudgetExhausted() bool {
	budget := s.Model.QuestionBudget
	if budget <= 0 {
		budget = s.engine.cfg.QuestionBudget
	}
	return s.Model.ResponsesScored >= budget
}

// Complete freezes the session and computes the final results payload.
// Calling Complete on an already-completed session returns the previously
// computed results: the derivation is deterministic over frozen input, so
// recomputation is safe but unnecessary.
func (s *Session) Complete(pool []models.Lesson, now time.Time) (*models.AssessmentResult, error) {
	if s.Model.Status == models.SessionCompleted {
		if s.result != nil {
			return s.result, nil
		}
		// Completed in a previous process without a cached payload: rebuild
		// deterministically from the frozen history.
		return s.buildResult(pool, derefTime(s.Model.CompletedAt, now)), nil
	}

	if s.Model.Status != models.SessionActive {
		return nil, fmt.Errorf("%w: cannot complete session in status %q", ErrInvalidState, s.Model.Status)
	}

	s.Model.Status = models.SessionCompleted
	completedAt := now.UTC()
	s.Model.CompletedAt = &completedAt

	s.result = s.buildResult(pool, completedAt)
	return s.result, nil
}

func (s *Session) buildResult(pool []models.Lesson, completedAt time.Time) *models.AssessmentResult {
	difficulties := s.engine.Detector.Detect(s.Model, s.scored)
	mastery := EstimateMastery(s.scored)
	recommendations := s.engine.Recommender.Recommend(s.Model, difficulties, mastery, pool)

	correct := 0
	for _, sc := range s.scored {
		if sc.Result.Correct {
			correct++
		}
	}
	score := 0.0
	if len(s.scored) > 0 {
		score = float64(correct) / float64(len(s.scored)) * 100
	}

	return &models.AssessmentResult{
		SessionID:       s.Model.ID,
		Score:           score,
		Mastery:         mastery,
		Difficulties:    difficulties,
		Recommendations: recommendations,
		Summary:         s.summary(score, mastery, difficulties),
		CompletedAt:     completedAt,
	}
}

func (s *Session) summary(score, mastery float64, difficulties []models.LearningDifficulty) string {
	if len(s.scored) == 0 {
		return "No responses were recorded for this session."
	}
	msg := fmt.Sprintf("Answered %d questions in %s with %.0f%% accuracy (mastery %.2f).",
		len(s.scored), s.Model.Subject, score, mastery)
	if len(difficulties) > 0 {
		msg += fmt.Sprintf(" %d learning-difficulty signal(s) detected; see findings for indicators.", len(difficulties))
	}
	return msg
}

// Abandon terminates the session from created or active. It is safe to apply
// at any point because it does not depend on in-progress computation.
func (s *Session) Abandon() error {
	if s.Model.Status.Terminal() {
		return fmt.Errorf("%w: cannot abandon session in status %q", ErrInvalidState, s.Model.Status)
	}
	s.Model.Status = models.SessionAbandoned
	return nil
}

func derefTime(t *time.Time, fallback time.Time) time.Time {
	if t != nil {
		return *t
	}
	return fallback
}
