package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/engine"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/events"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/models"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/validator"
)

func newTestAssessmentService(repo *memoryRepository) (AssessmentService, *events.MockEventPublisher) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	publisher := events.NewMockEventPublisher(logger)
	service := NewAssessmentService(repo, nil, logger, validator.New(), publisher, engine.DefaultConfig())
	return service, publisher
}

// seedMathBank loads four questions per tier, all expecting the answer 7.
func seedMathBank(repo *memoryRepository) {
	for _, tier := range []models.DifficultyTier{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard} {
		for i := 0; i < 4; i++ {
			repo.seedQuestion(models.Question{
				Subject:        models.SubjectMath,
				Skill:          "arithmetic",
				Text:           fmt.Sprintf("%s question %d", tier, i),
				Difficulty:     tier,
				Kind:           models.AnswerNumber,
				Expected:       []byte(`7`),
				ExpectedTimeMs: 30000,
			})
		}
	}
}

func createMathSession(t *testing.T, service AssessmentService, budget int) *SessionResponse {
	t.Helper()
	session, err := service.Create(context.Background(), &CreateSessionRequest{
		StudentID:      "student-1",
		Subject:        models.SubjectMath,
		Type:           models.AssessmentDiagnostic,
		QuestionBudget: &budget,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return session
}

func submitAnswer(t *testing.T, service AssessmentService, sessionID string, questionID uint, answer string) *SubmitResponseResult {
	t.Helper()
	result, err := service.SubmitResponse(context.Background(), sessionID, &SubmitResponseRequest{
		QuestionID:  questionID,
		Answer:      json.RawMessage(answer),
		TimeSpentMs: 20000,
		Attempts:    1,
	})
	if err != nil {
		t.Fatalf("SubmitResponse failed: %v", err)
	}
	return result
}

func TestAssessmentService_Create(t *testing.T) {
	repo := newMemoryRepository()
	seedMathBank(repo)
	service, _ := newTestAssessmentService(repo)

	t.Run("creates an active session with a first question", func(t *testing.T) {
		session := createMathSession(t, service, 5)

		if session.Status != models.SessionActive {
			t.Errorf("status = %q, want active", session.Status)
		}
		if session.NextQuestion == nil {
			t.Fatal("expected a first question")
		}
		if session.NextQuestion.Difficulty != models.DifficultyMedium {
			t.Errorf("first question tier = %q, want medium", session.NextQuestion.Difficulty)
		}
		if session.QuestionsAsked != 1 {
			t.Errorf("QuestionsAsked = %d, want 1", session.QuestionsAsked)
		}

		stored, err := repo.Session().GetByID(context.Background(), nil, session.ID)
		if err != nil {
			t.Fatalf("session was not persisted: %v", err)
		}
		if stored.Status != models.SessionActive {
			t.Errorf("persisted status = %q, want active", stored.Status)
		}
	})

	t.Run("rejects a request without a student", func(t *testing.T) {
		_, err := service.Create(context.Background(), &CreateSessionRequest{
			Subject: models.SubjectMath,
			Type:    models.AssessmentDiagnostic,
		})
		if err == nil {
			t.Fatal("expected validation error")
		}
	})

	t.Run("honors an explicit starting tier", func(t *testing.T) {
		easy := models.DifficultyEasy
		session, err := service.Create(context.Background(), &CreateSessionRequest{
			StudentID:       "student-2",
			Subject:         models.SubjectMath,
			Type:            models.AssessmentRemedial,
			StartDifficulty: &easy,
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if session.CurrentDifficulty != models.DifficultyEasy {
			t.Errorf("CurrentDifficulty = %q, want easy", session.CurrentDifficulty)
		}
		if session.NextQuestion.Difficulty != models.DifficultyEasy {
			t.Errorf("first question tier = %q, want easy", session.NextQuestion.Difficulty)
		}
	})
}

func TestAssessmentService_SubmitResponse(t *testing.T) {
	repo := newMemoryRepository()
	seedMathBank(repo)
	service, _ := newTestAssessmentService(repo)

	t.Run("scores the answer and issues the next question", func(t *testing.T) {
		session := createMathSession(t, service, 5)
		first := session.NextQuestion

		result := submitAnswer(t, service, session.ID, first.QuestionID, `7`)

		if !result.Evaluation.Correct {
			t.Error("expected a correct evaluation")
		}
		if result.NextQuestion == nil {
			t.Fatal("expected a next question")
		}
		if result.NextQuestion.QuestionID == first.QuestionID {
			t.Error("next question repeated the first one")
		}

		responses, _ := repo.Response().GetBySession(context.Background(), nil, session.ID)
		if len(responses) != 1 {
			t.Fatalf("persisted responses = %d, want 1", len(responses))
		}
		if !responses[0].Correct {
			t.Error("persisted snapshot lost the evaluation")
		}
	})

	t.Run("steps up after a strong window", func(t *testing.T) {
		session := createMathSession(t, service, 10)
		next := session.NextQuestion

		var last *SubmitResponseResult
		for i := 0; i < 3; i++ {
			last = submitAnswer(t, service, session.ID, next.QuestionID, `7`)
			next = last.NextQuestion
		}

		if last.Adjustment.Direction != models.AdjustIncrease {
			t.Errorf("direction = %q, want increase", last.Adjustment.Direction)
		}
		if last.Adjustment.NewTier != models.DifficultyHard {
			t.Errorf("new tier = %q, want hard", last.Adjustment.NewTier)
		}
		if next.Difficulty != models.DifficultyHard {
			t.Errorf("next question tier = %q, want hard", next.Difficulty)
		}
	})

	t.Run("signals when the budget is spent", func(t *testing.T) {
		session := createMathSession(t, service, 2)
		next := session.NextQuestion

		first := submitAnswer(t, service, session.ID, next.QuestionID, `7`)
		if first.BudgetExhausted {
			t.Fatal("budget reported spent after one answer")
		}

		second := submitAnswer(t, service, session.ID, first.NextQuestion.QuestionID, `7`)
		if !second.BudgetExhausted {
			t.Error("expected the budget to be spent")
		}
		if second.NextQuestion != nil {
			t.Error("no further question should be issued")
		}
	})

	t.Run("rejects a question the session never saw", func(t *testing.T) {
		session := createMathSession(t, service, 5)
		unissued := repo.seedQuestion(models.Question{
			Subject:  models.SubjectMath,
			Kind:     models.AnswerNumber,
			Expected: []byte(`3`),
		})

		_, err := service.SubmitResponse(context.Background(), session.ID, &SubmitResponseRequest{
			QuestionID: unissued,
			Answer:     json.RawMessage(`3`),
		})
		if !errors.Is(err, ErrQuestionNotIssued) {
			t.Errorf("err = %v, want ErrQuestionNotIssued", err)
		}
	})

	t.Run("rejects submissions to a finished session", func(t *testing.T) {
		session := createMathSession(t, service, 1)
		submitAnswer(t, service, session.ID, session.NextQuestion.QuestionID, `7`)
		if _, err := service.Complete(context.Background(), session.ID); err != nil {
			t.Fatalf("Complete failed: %v", err)
		}

		_, err := service.SubmitResponse(context.Background(), session.ID, &SubmitResponseRequest{
			QuestionID: session.NextQuestion.QuestionID,
			Answer:     json.RawMessage(`7`),
		})
		if !errors.Is(err, ErrSessionNotActive) {
			t.Errorf("err = %v, want ErrSessionNotActive", err)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := service.SubmitResponse(context.Background(), "missing", &SubmitResponseRequest{QuestionID: 1})
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("err = %v, want ErrSessionNotFound", err)
		}
	})
}

func TestAssessmentService_Complete(t *testing.T) {
	t.Run("freezes the session and publishes completion", func(t *testing.T) {
		repo := newMemoryRepository()
		seedMathBank(repo)
		service, publisher := newTestAssessmentService(repo)

		session := createMathSession(t, service, 2)
		next := session.NextQuestion
		first := submitAnswer(t, service, session.ID, next.QuestionID, `7`)
		submitAnswer(t, service, session.ID, first.NextQuestion.QuestionID, `2`)

		result, err := service.Complete(context.Background(), session.ID)
		if err != nil {
			t.Fatalf("Complete failed: %v", err)
		}
		if result.Score != 50.0 {
			t.Errorf("score = %.1f, want 50.0", result.Score)
		}

		stored, _ := repo.Session().GetByID(context.Background(), nil, session.ID)
		if stored.Status != models.SessionCompleted {
			t.Errorf("status = %q, want completed", stored.Status)
		}
		if stored.CompletedAt == nil {
			t.Error("CompletedAt was not set")
		}

		published := publisher.GetPublishedEvents()
		var completed *events.Event
		for i := range published {
			if published[i].Type == events.TypeSessionCompleted {
				completed = &published[i]
			}
		}
		if completed == nil {
			t.Fatal("no session_completed event published")
		}
		payload, ok := completed.Data.(events.SessionCompletedEvent)
		if !ok {
			t.Fatalf("unexpected payload type %T", completed.Data)
		}
		if payload.SessionID != session.ID || payload.Score != 50.0 {
			t.Errorf("payload = %+v", payload)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		repo := newMemoryRepository()
		seedMathBank(repo)
		service, publisher := newTestAssessmentService(repo)

		session := createMathSession(t, service, 1)
		submitAnswer(t, service, session.ID, session.NextQuestion.QuestionID, `7`)

		first, err := service.Complete(context.Background(), session.ID)
		if err != nil {
			t.Fatalf("Complete failed: %v", err)
		}
		publisher.ClearEvents()

		second, err := service.Complete(context.Background(), session.ID)
		if err != nil {
			t.Fatalf("second Complete failed: %v", err)
		}
		if second.SessionID != first.SessionID || second.Score != first.Score {
			t.Errorf("repeat completion changed the result: %+v vs %+v", first, second)
		}
		if len(publisher.GetPublishedEvents()) != 0 {
			t.Error("repeat completion published events again")
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		repo := newMemoryRepository()
		service, _ := newTestAssessmentService(repo)

		_, err := service.Complete(context.Background(), "missing")
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("err = %v, want ErrSessionNotFound", err)
		}
	})
}

func TestAssessmentService_Abandon(t *testing.T) {
	repo := newMemoryRepository()
	seedMathBank(repo)
	service, publisher := newTestAssessmentService(repo)

	t.Run("cancels an active session", func(t *testing.T) {
		session := createMathSession(t, service, 5)

		if err := service.Abandon(context.Background(), session.ID, &AbandonSessionRequest{}); err != nil {
			t.Fatalf("Abandon failed: %v", err)
		}

		stored, _ := repo.Session().GetByID(context.Background(), nil, session.ID)
		if stored.Status != models.SessionAbandoned {
			t.Errorf("status = %q, want abandoned", stored.Status)
		}

		published := publisher.GetPublishedEvents()
		last := published[len(published)-1]
		if last.Type != events.TypeSessionAbandoned {
			t.Fatalf("last event type = %q", last.Type)
		}
		payload := last.Data.(events.SessionAbandonedEvent)
		if payload.Reason != "cancelled" {
			t.Errorf("reason = %q, want cancelled", payload.Reason)
		}
	})

	t.Run("rejects a second abandonment", func(t *testing.T) {
		session := createMathSession(t, service, 5)
		if err := service.Abandon(context.Background(), session.ID, nil); err != nil {
			t.Fatalf("Abandon failed: %v", err)
		}

		err := service.Abandon(context.Background(), session.ID, nil)
		if !errors.Is(err, ErrSessionTerminal) {
			t.Errorf("err = %v, want ErrSessionTerminal", err)
		}
	})
}

func TestAssessmentService_GetResults(t *testing.T) {
	repo := newMemoryRepository()
	seedMathBank(repo)
	service, _ := newTestAssessmentService(repo)

	t.Run("unfinished session has no results", func(t *testing.T) {
		session := createMathSession(t, service, 5)

		_, err := service.GetResults(context.Background(), session.ID)
		if !errors.Is(err, ErrSessionNotCompleted) {
			t.Errorf("err = %v, want ErrSessionNotCompleted", err)
		}
	})

	t.Run("returns the stored result after completion", func(t *testing.T) {
		session := createMathSession(t, service, 1)
		submitAnswer(t, service, session.ID, session.NextQuestion.QuestionID, `7`)
		if _, err := service.Complete(context.Background(), session.ID); err != nil {
			t.Fatalf("Complete failed: %v", err)
		}

		result, err := service.GetResults(context.Background(), session.ID)
		if err != nil {
			t.Fatalf("GetResults failed: %v", err)
		}
		if result.SessionID != session.ID || result.Score != 100.0 {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := service.GetResults(context.Background(), "missing")
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("err = %v, want ErrSessionNotFound", err)
		}
	})
}

func TestAssessmentService_ExpireStale(t *testing.T) {
	repo := newMemoryRepository()
	seedMathBank(repo)
	service, publisher := newTestAssessmentService(repo)

	repo.seedSession(models.AssessmentSession{
		ID:        "stale-1",
		StudentID: "student-9",
		Subject:   models.SubjectMath,
		Type:      models.AssessmentDiagnostic,
		Status:    models.SessionActive,
		UpdatedAt: time.Now().Add(-2 * time.Hour),
	})
	repo.seedSession(models.AssessmentSession{
		ID:        "fresh-1",
		StudentID: "student-9",
		Subject:   models.SubjectMath,
		Type:      models.AssessmentDiagnostic,
		Status:    models.SessionActive,
		UpdatedAt: time.Now(),
	})

	swept, err := service.ExpireStale(context.Background(), time.Hour, 10)
	if err != nil {
		t.Fatalf("ExpireStale failed: %v", err)
	}
	if swept != 1 {
		t.Fatalf("swept = %d, want 1", swept)
	}

	stale, _ := repo.Session().GetByID(context.Background(), nil, "stale-1")
	if stale.Status != models.SessionAbandoned {
		t.Errorf("stale session status = %q, want abandoned", stale.Status)
	}
	fresh, _ := repo.Session().GetByID(context.Background(), nil, "fresh-1")
	if fresh.Status != models.SessionActive {
		t.Errorf("fresh session status = %q, want active", fresh.Status)
	}

	published := publisher.GetPublishedEvents()
	last := published[len(published)-1]
	payload := last.Data.(events.SessionAbandonedEvent)
	if payload.Reason != "expired" {
		t.Errorf("reason = %q, want expired", payload.Reason)
	}
}
