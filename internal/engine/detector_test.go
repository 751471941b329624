package engine

import (
	"testing"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/models"
)

func readingSession() *models.AssessmentSession {
	return &models.AssessmentSession{
		ID:      "sess-1",
		Subject: models.SubjectReading,
		Status:  models.SessionActive,
	}
}

func mathSession() *models.AssessmentSession {
	return &models.AssessmentSession{
		ID:      "sess-2",
		Subject: models.SubjectMath,
		Status:  models.SessionActive,
	}
}

// scoredWith builds one evaluated response with an expected time of 30s.
func scoredWith(subject models.Subject, class models.ErrorClass, correct bool, timeSpentMs int) ScoredResponse {
	return ScoredResponse{
		Question: &models.Question{Subject: subject, ExpectedTimeMs: 30000},
		Response: &models.Response{TimeSpentMs: timeSpentMs},
		Result: models.EvaluationResult{
			Correct:    correct,
			ErrorClass: class,
		},
	}
}

func findingOf(findings []models.LearningDifficulty, kind models.DifficultyType) *models.LearningDifficulty {
	for i := range findings {
		if findings[i].Type == kind {
			return &findings[i]
		}
	}
	return nil
}

func TestDetectBelowMinimumSample(t *testing.T) {
	d := NewDifficultyDetector(DefaultConfig())

	scored := []ScoredResponse{
		scoredWith(models.SubjectReading, models.ErrorReversal, false, 60000),
		scoredWith(models.SubjectReading, models.ErrorReversal, false, 60000),
		scoredWith(models.SubjectReading, models.ErrorReversal, false, 60000),
		scoredWith(models.SubjectReading, models.ErrorReversal, false, 60000),
	}
	findings := d.Detect(readingSession(), scored)
	if findings == nil {
		t.Fatal("Detect returned nil, want empty slice")
	}
	if len(findings) != 0 {
		t.Errorf("got %d findings from %d responses, want 0", len(findings), len(scored))
	}
}

func TestDetectDyslexiaPattern(t *testing.T) {
	d := NewDifficultyDetector(DefaultConfig())

	// Four reversal-class errors out of six reading responses, several slow.
	scored := []ScoredResponse{
		scoredWith(models.SubjectReading, models.ErrorReversal, false, 60000),
		scoredWith(models.SubjectReading, models.ErrorReversal, false, 55000),
		scoredWith(models.SubjectReading, models.ErrorTransposition, false, 20000),
		scoredWith(models.SubjectReading, models.ErrorSubstitution, false, 25000),
		scoredWith(models.SubjectReading, models.ErrorNone, true, 20000),
		scoredWith(models.SubjectReading, models.ErrorNone, true, 22000),
	}
	findings := d.Detect(readingSession(), scored)

	f := findingOf(findings, models.DifficultyDyslexia)
	if f == nil {
		t.Fatalf("no DYSLEXIA finding in %v", findings)
	}
	if f.Confidence < d.cfg.ConfidenceThreshold {
		t.Errorf("Confidence = %.2f, want >= %.2f", f.Confidence, d.cfg.ConfidenceThreshold)
	}
	if len(f.SupportingIndicators) == 0 {
		t.Error("finding has no supporting indicators")
	}
	if len(f.RecommendedAccommodations) == 0 {
		t.Error("finding has no recommended accommodations")
	}
}

func TestDetectNoDyslexiaOnCleanRun(t *testing.T) {
	d := NewDifficultyDetector(DefaultConfig())

	var scored []ScoredResponse
	for i := 0; i < 6; i++ {
		scored = append(scored, scoredWith(models.SubjectReading, models.ErrorNone, true, 20000))
	}
	findings := d.Detect(readingSession(), scored)
	if len(findings) != 0 {
		t.Errorf("clean run produced findings: %v", findings)
	}
}

func TestDetectDyscalculiaPattern(t *testing.T) {
	d := NewDifficultyDetector(DefaultConfig())

	scored := []ScoredResponse{
		scoredWith(models.SubjectMath, models.ErrorCalculation, false, 60000),
		scoredWith(models.SubjectMath, models.ErrorReversal, false, 58000),
		scoredWith(models.SubjectMath, models.ErrorCalculation, false, 55000),
		scoredWith(models.SubjectMath, models.ErrorReversal, false, 50000),
		scoredWith(models.SubjectMath, models.ErrorNone, true, 30000),
		scoredWith(models.SubjectMath, models.ErrorCalculation, false, 52000),
	}
	findings := d.Detect(mathSession(), scored)

	f := findingOf(findings, models.DifficultyDyscalculia)
	if f == nil {
		t.Fatalf("no DYSCALCULIA finding in %v", findings)
	}
	if f.Severity == "" {
		t.Error("finding has no severity")
	}
}

func TestDetectProcessingSpeedPattern(t *testing.T) {
	d := NewDifficultyDetector(DefaultConfig())

	// Consistently slow but accurate: processing speed, not a knowledge gap.
	var scored []ScoredResponse
	for i := 0; i < 6; i++ {
		scored = append(scored, scoredWith(models.SubjectMath, models.ErrorNone, true, 90000))
	}
	findings := d.Detect(mathSession(), scored)

	f := findingOf(findings, models.DifficultyProcessingSpeed)
	if f == nil {
		t.Fatalf("no PROCESSING_SPEED finding in %v", findings)
	}
	if f.Severity != models.SeveritySevere {
		t.Errorf("Severity = %q, want severe for an all-slow accurate run", f.Severity)
	}
}

func TestDetectProcessingSpeedDampedByLowAccuracy(t *testing.T) {
	d := NewDifficultyDetector(DefaultConfig())

	// Slow and mostly wrong reads as a knowledge gap; the score is halved
	// below the reporting threshold.
	var scored []ScoredResponse
	for i := 0; i < 6; i++ {
		scored = append(scored, scoredWith(models.SubjectMath, models.ErrorConceptual, false, 90000))
	}
	findings := d.Detect(mathSession(), scored)
	if f := findingOf(findings, models.DifficultyProcessingSpeed); f != nil {
		t.Errorf("slow inaccurate run produced PROCESSING_SPEED finding with confidence %.2f", f.Confidence)
	}
}

func TestDetectAttentionPattern(t *testing.T) {
	d := NewDifficultyDetector(DefaultConfig())

	frustrated := models.EmotionFrustrated
	times := []int{2000, 90000, 3000, 85000, 2500, 95000}
	var scored []ScoredResponse
	for i, ms := range times {
		s := scoredWith(models.SubjectMath, models.ErrorConceptual, i%2 == 0, ms)
		s.Response.HintsUsed = 2
		s.Response.Emotional = &frustrated
		scored = append(scored, s)
	}
	findings := d.Detect(mathSession(), scored)

	if f := findingOf(findings, models.DifficultyAttention); f == nil {
		t.Fatalf("no ATTENTION finding in %v", findings)
	}
}

func TestDetectFindingsAreNonExclusive(t *testing.T) {
	d := NewDifficultyDetector(DefaultConfig())

	// Reversal-heavy AND persistently slow reading run: dyslexia and
	// processing speed may both fire.
	scored := []ScoredResponse{
		scoredWith(models.SubjectReading, models.ErrorReversal, false, 90000),
		scoredWith(models.SubjectReading, models.ErrorReversal, false, 90000),
		scoredWith(models.SubjectReading, models.ErrorTransposition, false, 95000),
		scoredWith(models.SubjectReading, models.ErrorNone, true, 90000),
		scoredWith(models.SubjectReading, models.ErrorNone, true, 85000),
		scoredWith(models.SubjectReading, models.ErrorNone, true, 90000),
	}
	findings := d.Detect(readingSession(), scored)

	if findingOf(findings, models.DifficultyDyslexia) == nil {
		t.Errorf("no DYSLEXIA finding in %v", findings)
	}
	if findingOf(findings, models.DifficultyProcessingSpeed) == nil {
		t.Errorf("no PROCESSING_SPEED finding in %v", findings)
	}
}

func TestDetectIgnoresOtherSubjects(t *testing.T) {
	d := NewDifficultyDetector(DefaultConfig())

	// Only two responses match the session's subject; the math noise must
	// not push the sample over the minimum.
	scored := []ScoredResponse{
		scoredWith(models.SubjectReading, models.ErrorReversal, false, 60000),
		scoredWith(models.SubjectReading, models.ErrorReversal, false, 60000),
		scoredWith(models.SubjectMath, models.ErrorCalculation, false, 60000),
		scoredWith(models.SubjectMath, models.ErrorCalculation, false, 60000),
		scoredWith(models.SubjectMath, models.ErrorCalculation, false, 60000),
		scoredWith(models.SubjectMath, models.ErrorCalculation, false, 60000),
	}
	findings := d.Detect(readingSession(), scored)
	if len(findings) != 0 {
		t.Errorf("got findings from off-subject responses: %v", findings)
	}
}

func TestDetectWidensBaselineForSecondLanguage(t *testing.T) {
	d := NewDifficultyDetector(DefaultConfig())

	// 50s on a 30s question is slow at the default 1.4 baseline but inside
	// the widened second-language baseline (1.4 * 1.25 = 1.75 -> 52.5s).
	build := func() []ScoredResponse {
		var scored []ScoredResponse
		for i := 0; i < 6; i++ {
			scored = append(scored, scoredWith(models.SubjectReading, models.ErrorNone, true, 50000))
		}
		return scored
	}

	base := readingSession()
	if f := findingOf(d.Detect(base, build()), models.DifficultyProcessingSpeed); f == nil {
		t.Fatal("native-language baseline: expected PROCESSING_SPEED finding")
	}

	esl := readingSession()
	esl.CulturalContext = []byte(`{"culture":"mx","language":"es"}`)
	if f := findingOf(d.Detect(esl, build()), models.DifficultyProcessingSpeed); f != nil {
		t.Errorf("second-language baseline still flagged: confidence %.2f", f.Confidence)
	}
}

func TestSeverityBands(t *testing.T) {
	d := NewDifficultyDetector(DefaultConfig())

	tests := []struct {
		score float64
		want  models.Severity
	}{
		{0.65, models.SeverityMild},
		{0.80, models.SeverityModerate},
		{0.95, models.SeveritySevere},
	}
	for _, tt := range tests {
		if got := d.severity(tt.score); got != tt.want {
			t.Errorf("severity(%.2f) = %q, want %q", tt.score, got, tt.want)
		}
	}
}
