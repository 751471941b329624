package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/models"
)

func newTestSession(subject models.Subject) *Session {
	e := New(DefaultConfig())
	return e.NewSession(&models.AssessmentSession{
		ID:                "sess-test",
		StudentID:         "student-1",
		Subject:           subject,
		Type:              models.AssessmentDiagnostic,
		CurrentDifficulty: models.DifficultyMedium,
		Status:            models.SessionCreated,
		QuestionBudget:    10,
	}, nil, nil)
}

func submit(t *testing.T, s *Session, q *models.Question, raw string, timeMs int) models.DifficultyAdjustment {
	t.Helper()
	resp := &models.Response{
		SessionID:   s.Model.ID,
		QuestionID:  q.ID,
		RawAnswer:   datatypes.JSON(raw),
		TimeSpentMs: timeMs,
		Confidence:  0.9,
	}
	_, adj, err := s.SubmitResponse(q, resp)
	if err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}
	return adj
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestSession(models.SubjectMath)

	if err := s.Activate(); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if s.Model.Status != models.SessionActive {
		t.Fatalf("Status = %q, want active", s.Model.Status)
	}

	// Activating twice is a state error.
	if err := s.Activate(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second Activate: err = %v, want ErrInvalidState", err)
	}
}

func TestSessionSubmitBeforeActivation(t *testing.T) {
	s := newTestSession(models.SubjectMath)

	_, _, err := s.SubmitResponse(numberQuestion("12"), answer("12"))
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("submit on created session: err = %v, want ErrInvalidState", err)
	}
}

func TestSessionDifficultyProgression(t *testing.T) {
	s := newTestSession(models.SubjectMath)
	if err := s.Activate(); err != nil {
		t.Fatal(err)
	}

	// Three strong answers on medium push the session to hard.
	q := numberQuestion("12")
	for i := 0; i < 2; i++ {
		adj := submit(t, s, q, "12", 10000)
		if adj.Direction != models.AdjustHold {
			t.Fatalf("response %d: Direction = %q, want hold before the window fills", i+1, adj.Direction)
		}
	}
	adj := submit(t, s, q, "12", 10000)
	if adj.Direction != models.AdjustIncrease {
		t.Fatalf("Direction = %q, want increase", adj.Direction)
	}
	if s.Model.CurrentDifficulty != models.DifficultyHard {
		t.Errorf("CurrentDifficulty = %q, want hard", s.Model.CurrentDifficulty)
	}
	if s.Model.ResponsesScored != 3 {
		t.Errorf("ResponsesScored = %d, want 3", s.Model.ResponsesScored)
	}
}

func TestSessionSubmitStampsEvaluation(t *testing.T) {
	s := newTestSession(models.SubjectMath)
	if err := s.Activate(); err != nil {
		t.Fatal(err)
	}

	resp := &models.Response{RawAnswer: datatypes.JSON("12"), TimeSpentMs: 10000, Confidence: 0.9}
	result, _, err := s.SubmitResponse(numberQuestion("12"), resp)
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Correct || resp.ErrorClass != models.ErrorNone {
		t.Errorf("response row not stamped: correct=%v class=%q", resp.Correct, resp.ErrorClass)
	}
	if resp.QualityScore != result.QualityScore {
		t.Errorf("QualityScore on row = %.3f, result = %.3f", resp.QualityScore, result.QualityScore)
	}
	if resp.EvaluatedAt.IsZero() {
		t.Error("EvaluatedAt not set")
	}
}

func TestSessionCompleteIsIdempotent(t *testing.T) {
	s := newTestSession(models.SubjectMath)
	if err := s.Activate(); err != nil {
		t.Fatal(err)
	}
	q := numberQuestion("12")
	for i := 0; i < 3; i++ {
		submit(t, s, q, "12", 10000)
	}

	first, err := s.Complete(nil, time.Now())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if s.Model.Status != models.SessionCompleted {
		t.Fatalf("Status = %q, want completed", s.Model.Status)
	}
	if s.Model.CompletedAt == nil {
		t.Fatal("CompletedAt not set")
	}

	second, err := s.Complete(nil, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("second Complete: %v", err)
	}
	if first != second {
		t.Error("second Complete recomputed instead of returning the frozen result")
	}
}

func TestSessionMutationAfterCompletion(t *testing.T) {
	s := newTestSession(models.SubjectMath)
	if err := s.Activate(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Complete(nil, time.Now()); err != nil {
		t.Fatal(err)
	}

	_, _, err := s.SubmitResponse(numberQuestion("12"), answer("12"))
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("submit after complete: err = %v, want ErrInvalidState", err)
	}
	if err := s.Abandon(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("abandon after complete: err = %v, want ErrInvalidState", err)
	}
}

func TestSessionAbandon(t *testing.T) {
	s := newTestSession(models.SubjectMath)

	// Abandon is legal straight from created.
	if err := s.Abandon(); err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	if s.Model.Status != models.SessionAbandoned {
		t.Fatalf("Status = %q, want abandoned", s.Model.Status)
	}

	if _, err := s.Complete(nil, time.Now()); !errors.Is(err, ErrInvalidState) {
		t.Errorf("complete after abandon: err = %v, want ErrInvalidState", err)
	}
	if _, _, err := s.SubmitResponse(numberQuestion("12"), answer("12")); !errors.Is(err, ErrInvalidState) {
		t.Errorf("submit after abandon: err = %v, want ErrInvalidState", err)
	}
}

func TestSessionResultContents(t *testing.T) {
	s := newTestSession(models.SubjectMath)
	if err := s.Activate(); err != nil {
		t.Fatal(err)
	}

	q := numberQuestion("12")
	submit(t, s, q, "12", 10000)
	submit(t, s, q, "12", 10000)
	submit(t, s, q, "99", 10000)
	submit(t, s, q, "12", 10000)

	result, err := s.Complete(nil, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if result.SessionID != s.Model.ID {
		t.Errorf("SessionID = %q, want %q", result.SessionID, s.Model.ID)
	}
	if result.Score != 75.0 {
		t.Errorf("Score = %.1f, want 75.0 for 3 of 4 correct", result.Score)
	}
	if result.Mastery <= 0 || result.Mastery > 1 {
		t.Errorf("Mastery = %.3f, want in (0,1]", result.Mastery)
	}
	if result.Difficulties == nil {
		t.Error("Difficulties is nil, want empty slice below the sample minimum")
	}
	if result.Summary == "" {
		t.Error("Summary is empty")
	}
}

func TestSessionBudget(t *testing.T) {
	s := newTestSession(models.SubjectMath)
	if err := s.Activate(); err != nil {
		t.Fatal(err)
	}
	if s.BudgetExhausted() {
		t.Fatal("budget exhausted before any responses")
	}

	q := numberQuestion("12")
	for i := 0; i < 10; i++ {
		submit(t, s, q, "12", 10000)
	}
	if !s.BudgetExhausted() {
		t.Errorf("budget not exhausted after %d responses", s.Model.ResponsesScored)
	}
}

func TestSessionLocksSerializePerID(t *testing.T) {
	locks := NewSessionLocks()

	const workers = 16
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.Acquire("same-session")
			defer release()
			counter++
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Errorf("counter = %d, want %d", counter, workers)
	}
}

func TestSessionLocksIndependentIDs(t *testing.T) {
	locks := NewSessionLocks()

	releaseA := locks.Acquire("a")
	defer releaseA()

	// A different session must not block behind "a".
	done := make(chan struct{})
	go func() {
		release := locks.Acquire("b")
		release()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Acquire(b) blocked behind the lock for a")
	}
}
