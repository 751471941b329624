package engine

import (
	"fmt"
	"math"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/models"
)

// ScoredResponse pairs a response with its question and evaluation so the
// detector and downstream consumers work on one consistent snapshot.
type ScoredResponse struct {
	Response *models.Response
	Question *models.Question
	Result   models.EvaluationResult
}

// DifficultyDetector scans an evaluated response history for statistical
// signatures associated with known learning-difficulty categories. It is a
// heuristic signal generator, not a diagnostic tool: every finding carries a
// confidence and the indicators that produced it.
type DifficultyDetector struct {
	cfg Config
}

func NewDifficultyDetector(cfg Config) *DifficultyDetector {
	return &DifficultyDetector{cfg: cfg}
}

// Detect returns zero or more findings. Categories are non-exclusive;
// comorbidity is expected and representable. Below the minimum sample size
// for the session's subject it returns an empty list rather than guessing.
func (d *DifficultyDetector) Detect(session *models.AssessmentSession, scored []ScoredResponse) []models.LearningDifficulty {
	var sample []ScoredResponse
	for _, s := range scored {
		if s.Question != nil && s.Question.Subject == session.Subject {
			sample = append(sample, s)
		}
	}

	if len(sample) < d.cfg.MinSampleSize {
		return []models.LearningDifficulty{}
	}

	baseline := d.timeBaseline(session)

	findings := []models.LearningDifficulty{}
	for _, check := range []func(*models.AssessmentSession, []ScoredResponse, float64) (float64, []string, models.DifficultyType){
		d.scoreDyslexia,
		d.scoreDyscalculia,
		d.scoreAttention,
		d.scoreProcessingSpeed,
	} {
		score, indicators, kind := check(session, sample, baseline)
		if score < d.cfg.ConfidenceThreshold {
			continue
		}
		findings = append(findings, models.LearningDifficulty{
			Type:                      kind,
			Severity:                  d.severity(score),
			Confidence:                clamp(score, 0, 1),
			SupportingIndicators:      indicators,
			RecommendedAccommodations: accommodationsFor(kind),
		})
	}

	return findings
}

// timeBaseline is the multiplier applied to each question's expected time
// before a response counts as slow. Second-language students and students
// with a declared cognitive need get a wider baseline.
func (d *DifficultyDetector) timeBaseline(session *models.AssessmentSession) float64 {
	baseline := d.cfg.SlowFactor
	cultural := session.Cultural()
	if cultural.Language != "" && cultural.Language != "en" {
		baseline *= 1.25
	}
	if session.Accessibility().Cognitive {
		baseline *= 1.3
	}
	return baseline
}

func (d *DifficultyDetector) severity(score float64) models.Severity {
	switch {
	case score >= d.cfg.SevereThreshold:
		return models.SeveritySevere
	case score >= d.cfg.ModerateThreshold:
		return models.SeverityModerate
	default:
		return models.SeverityMild
	}
}

// DYSLEXIA: reversal/substitution clusters on reading-type questions combined
// with reading speed below the adjusted baseline.
func (d *DifficultyDetector) scoreDyslexia(session *models.AssessmentSession, sample []ScoredResponse, baseline float64) (float64, []string, models.DifficultyType) {
	var reading, reversals, slow int
	for _, s := range sample {
		if !isReadingSubject(s.Question.Subject) {
			continue
		}
		reading++
		switch s.Result.ErrorClass {
		case models.ErrorReversal, models.ErrorTransposition, models.ErrorSubstitution:
			reversals++
		}
		if isSlow(s, baseline) {
			slow++
		}
	}

	if reading < d.cfg.MinSampleSize {
		return 0, nil, models.DifficultyDyslexia
	}

	reversalRate := float64(reversals) / float64(reading)
	slowRate := float64(slow) / float64(reading)
	// Half the reading responses showing reversal-class errors saturates the
	// error component.
	score := 0.6*math.Min(1, reversalRate/0.5) + 0.4*slowRate

	indicators := []string{
		fmt.Sprintf("reversal_class_error_rate=%.2f over %d reading responses", reversalRate, reading),
		fmt.Sprintf("reading_speed_below_baseline_rate=%.2f", slowRate),
	}
	return score, indicators, models.DifficultyDyslexia
}

// DYSCALCULIA: calculation and digit-reversal errors on math questions with
// depressed accuracy.
func (d *DifficultyDetector) scoreDyscalculia(session *models.AssessmentSession, sample []ScoredResponse, baseline float64) (float64, []string, models.DifficultyType) {
	var totalMath, numErrors, correct, slow int
	for _, s := range sample {
		if s.Question.Subject != models.SubjectMath {
			continue
		}
		totalMath++
		if s.Result.Correct {
			correct++
		}
		switch s.Result.ErrorClass {
		case models.ErrorCalculation, models.ErrorReversal, models.ErrorSubstitution:
			numErrors++
		}
		if isSlow(s, baseline) {
			slow++
		}
	}

	if totalMath < d.cfg.MinSampleSize {
		return 0, nil, models.DifficultyDyscalculia
	}

	errRate := float64(numErrors) / float64(totalMath)
	accuracy := float64(correct) / float64(totalMath)
	slowRate := float64(slow) / float64(totalMath)
	score := 0.5*math.Min(1, errRate/0.5) + 0.3*(1-accuracy) + 0.2*slowRate

	indicators := []string{
		fmt.Sprintf("numeric_error_rate=%.2f over %d math responses", errRate, totalMath),
		fmt.Sprintf("accuracy=%.2f", accuracy),
		fmt.Sprintf("slow_response_rate=%.2f", slowRate),
	}
	return score, indicators, models.DifficultyDyscalculia
}

// ATTENTION: high variance in time spent plus elevated hint usage and
// frustrated/confused self-reports.
func (d *DifficultyDetector) scoreAttention(session *models.AssessmentSession, sample []ScoredResponse, baseline float64) (float64, []string, models.DifficultyType) {
	times := make([]float64, 0, len(sample))
	hints := 0
	distracted := 0
	for _, s := range sample {
		if s.Response.TimeSpentMs > 0 {
			times = append(times, float64(s.Response.TimeSpentMs))
		}
		hints += s.Response.HintsUsed
		if s.Response.Emotional != nil &&
			(*s.Response.Emotional == models.EmotionFrustrated || *s.Response.Emotional == models.EmotionConfused) {
			distracted++
		}
	}

	if len(times) < d.cfg.MinSampleSize {
		return 0, nil, models.DifficultyAttention
	}

	cv := coefficientOfVariation(times)
	hintRate := float64(hints) / float64(len(sample))
	distractRate := float64(distracted) / float64(len(sample))
	// CV of 1.0 (stddev equal to the mean) saturates the variance component;
	// two hints per question saturates hint usage.
	score := 0.5*math.Min(1, cv) + 0.3*math.Min(1, hintRate/2) + 0.2*distractRate

	indicators := []string{
		fmt.Sprintf("time_coefficient_of_variation=%.2f", cv),
		fmt.Sprintf("hints_per_response=%.2f", hintRate),
		fmt.Sprintf("frustrated_or_confused_rate=%.2f", distractRate),
	}
	return score, indicators, models.DifficultyAttention
}

// PROCESSING_SPEED: acceptable quality but persistently slow responses.
func (d *DifficultyDetector) scoreProcessingSpeed(session *models.AssessmentSession, sample []ScoredResponse, baseline float64) (float64, []string, models.DifficultyType) {
	var slow, correct int
	for _, s := range sample {
		if isSlow(s, baseline) {
			slow++
		}
		if s.Result.Correct {
			correct++
		}
	}

	slowRate := float64(slow) / float64(len(sample))
	accuracy := float64(correct) / float64(len(sample))

	// Slowness with poor accuracy reads as a knowledge gap, not a processing
	// bottleneck; halve the score in that case.
	score := slowRate
	if accuracy < 0.5 {
		score *= 0.5
	}

	indicators := []string{
		fmt.Sprintf("slow_response_rate=%.2f", slowRate),
		fmt.Sprintf("accuracy=%.2f", accuracy),
	}
	return score, indicators, models.DifficultyProcessingSpeed
}

func accommodationsFor(kind models.DifficultyType) []string {
	switch kind {
	case models.DifficultyDyslexia:
		return []string{"audio_support", "extended_time", "larger_font", "phonics_practice"}
	case models.DifficultyDyscalculia:
		return []string{"visual_aids", "step_by_step_worksheets", "extended_time"}
	case models.DifficultyAttention:
		return []string{"short_sessions", "frequent_breaks", "reduced_distraction"}
	case models.DifficultyProcessingSpeed:
		return []string{"extended_time", "reduced_question_count", "untimed_practice"}
	}
	return nil
}

func isReadingSubject(subject models.Subject) bool {
	return subject == models.SubjectReading || subject == models.SubjectWriting || subject == models.SubjectLanguage
}

func isSlow(s ScoredResponse, baseline float64) bool {
	if s.Response.TimeSpentMs <= 0 || s.Question.ExpectedTimeMs <= 0 {
		return false
	}
	return float64(s.Response.TimeSpentMs) > float64(s.Question.ExpectedTimeMs)*baseline
}

func coefficientOfVariation(values []float64) float64 {
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	if mean == 0 {
		return 0
	}

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	return math.Sqrt(variance) / mean
}
