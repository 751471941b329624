package engine

import (
	"math"
	"testing"

	"gorm.io/datatypes"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/models"
)

func textQuestion(expected string) *models.Question {
	return &models.Question{
		ID:             1,
		Subject:        models.SubjectReading,
		Skill:          "sight_words",
		Kind:           models.AnswerText,
		Expected:       datatypes.JSON(`"` + expected + `"`),
		ExpectedTimeMs: 30000,
	}
}

func numberQuestion(expected string) *models.Question {
	return &models.Question{
		ID:             2,
		Subject:        models.SubjectMath,
		Skill:          "arithmetic",
		Kind:           models.AnswerNumber,
		Expected:       datatypes.JSON(expected),
		ExpectedTimeMs: 30000,
	}
}

func answer(raw string) *models.Response {
	return &models.Response{
		RawAnswer:   datatypes.JSON(raw),
		TimeSpentMs: 15000,
		Confidence:  0.5,
	}
}

func TestEvaluateTextAnswers(t *testing.T) {
	ev := NewEvaluator(DefaultConfig())

	tests := []struct {
		name      string
		expected  string
		given     string
		correct   bool
		wantClass models.ErrorClass
	}{
		{"exact match", "cat", `"cat"`, true, models.ErrorNone},
		{"case and whitespace insensitive", "The Cat", `"  the   cat "`, true, models.ErrorNone},
		{"diacritics insensitive", "café", `"cafe"`, true, models.ErrorNone},
		{"full reversal", "was", `"saw"`, false, models.ErrorReversal},
		{"adjacent swap", "from", `"form"`, false, models.ErrorReversal},
		{"single missing letter", "house", `"hose"`, false, models.ErrorOmission},
		{"single extra letter", "cat", `"caat"`, false, models.ErrorInsertion},
		{"single wrong letter", "dog", `"dig"`, false, models.ErrorSubstitution},
		{"unrelated answer", "photosynthesis", `"gravity"`, false, models.ErrorConceptual},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ev.Evaluate(textQuestion(tt.expected), answer(tt.given))
			if result.Correct != tt.correct {
				t.Errorf("Correct = %v, want %v", result.Correct, tt.correct)
			}
			if result.ErrorClass != tt.wantClass {
				t.Errorf("ErrorClass = %q, want %q", result.ErrorClass, tt.wantClass)
			}
		})
	}
}

func TestEvaluateNumericAnswers(t *testing.T) {
	ev := NewEvaluator(DefaultConfig())

	tests := []struct {
		name      string
		expected  string
		given     string
		correct   bool
		wantClass models.ErrorClass
	}{
		{"exact", "12", "12", true, models.ErrorNone},
		{"digit reversal", "12", "21", false, models.ErrorReversal},
		{"three digit reversal", "123", "321", false, models.ErrorReversal},
		{"near miss is a calculation slip", "100", "90", false, models.ErrorCalculation},
		{"far off falls back to skill table", "100", "7", false, models.ErrorCalculation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ev.Evaluate(numberQuestion(tt.expected), answer(tt.given))
			if result.Correct != tt.correct {
				t.Errorf("Correct = %v, want %v", result.Correct, tt.correct)
			}
			if result.ErrorClass != tt.wantClass {
				t.Errorf("ErrorClass = %q, want %q", result.ErrorClass, tt.wantClass)
			}
		})
	}
}

func TestEvaluateDomainErrorBySkill(t *testing.T) {
	ev := NewEvaluator(DefaultConfig())

	q := numberQuestion("240")
	q.Skill = "word_problem"
	result := ev.Evaluate(q, answer("13"))
	if result.ErrorClass != models.ErrorProcedural {
		t.Errorf("word_problem miss: ErrorClass = %q, want %q", result.ErrorClass, models.ErrorProcedural)
	}

	q = numberQuestion("240")
	q.Skill = "fractions"
	result = ev.Evaluate(q, answer("13"))
	if result.ErrorClass != models.ErrorConceptual {
		t.Errorf("fractions miss: ErrorClass = %q, want %q", result.ErrorClass, models.ErrorConceptual)
	}
}

func TestEvaluateTypeMismatchDoesNotFail(t *testing.T) {
	ev := NewEvaluator(DefaultConfig())

	// Numeric question answered with free text: scored wrong, never an error.
	result := ev.Evaluate(numberQuestion("12"), answer(`"twelve-ish nonsense"`))
	if result.Correct {
		t.Error("mistyped answer scored as correct")
	}
	if result.ErrorClass != models.ErrorConceptual {
		t.Errorf("ErrorClass = %q, want %q", result.ErrorClass, models.ErrorConceptual)
	}
}

func TestEvaluateUndecodableExpectedAnswer(t *testing.T) {
	ev := NewEvaluator(DefaultConfig())

	broken := numberQuestion("12")
	broken.Expected = datatypes.JSON(`{`)

	resp := answer(`7`)
	resp.Confidence = 0.9
	result := ev.Evaluate(broken, resp)
	if result.Correct {
		t.Error("unscorable question scored as correct")
	}
	if result.ErrorClass != models.ErrorConceptual {
		t.Errorf("ErrorClass = %q, want %q", result.ErrorClass, models.ErrorConceptual)
	}

	// Confidence and speed still count, the same as any other incorrect answer.
	mistyped := ev.Evaluate(numberQuestion("12"), func() *models.Response {
		r := answer(`"nonsense"`)
		r.Confidence = 0.9
		return r
	}())
	if result.QualityScore != mistyped.QualityScore {
		t.Errorf("QualityScore = %v, want %v to match other incorrect paths", result.QualityScore, mistyped.QualityScore)
	}
	if result.QualityScore == 0 {
		t.Error("QualityScore = 0, want the confidence and speed components applied")
	}
}

func TestEvaluateEmptyAnswer(t *testing.T) {
	ev := NewEvaluator(DefaultConfig())

	resp := answer(`""`)
	result := ev.Evaluate(textQuestion("cat"), resp)
	if result.ErrorClass != models.ErrorOmission {
		t.Errorf("empty answer: ErrorClass = %q, want %q", result.ErrorClass, models.ErrorOmission)
	}

	resp = answer(`""`)
	resp.TimeSpentMs = 61000
	result = ev.Evaluate(textQuestion("cat"), resp)
	if result.ErrorClass != models.ErrorTimeout {
		t.Errorf("empty answer at limit: ErrorClass = %q, want %q", result.ErrorClass, models.ErrorTimeout)
	}
}

func TestEvaluateListAnswers(t *testing.T) {
	ev := NewEvaluator(DefaultConfig())

	q := &models.Question{
		ID:             3,
		Subject:        models.SubjectScience,
		Kind:           models.AnswerList,
		Expected:       datatypes.JSON(`["solid","liquid","gas"]`),
		ExpectedTimeMs: 30000,
	}

	tests := []struct {
		name      string
		given     string
		correct   bool
		wantClass models.ErrorClass
	}{
		{"exact order", `["solid","liquid","gas"]`, true, models.ErrorNone},
		{"same elements reordered", `["gas","solid","liquid"]`, false, models.ErrorTransposition},
		{"missing element", `["solid","liquid"]`, false, models.ErrorOmission},
		{"extra element", `["solid","liquid","gas","plasma"]`, false, models.ErrorInsertion},
		{"wrong element", `["solid","liquid","magma"]`, false, models.ErrorSubstitution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ev.Evaluate(q, answer(tt.given))
			if result.Correct != tt.correct {
				t.Errorf("Correct = %v, want %v", result.Correct, tt.correct)
			}
			if result.ErrorClass != tt.wantClass {
				t.Errorf("ErrorClass = %q, want %q", result.ErrorClass, tt.wantClass)
			}
		})
	}
}

func TestEvaluateBooleanAnswer(t *testing.T) {
	ev := NewEvaluator(DefaultConfig())

	q := &models.Question{
		ID:             4,
		Subject:        models.SubjectScience,
		Kind:           models.AnswerBoolean,
		Expected:       datatypes.JSON(`true`),
		ExpectedTimeMs: 30000,
	}

	if result := ev.Evaluate(q, answer(`true`)); !result.Correct {
		t.Error("matching boolean scored incorrect")
	}
	result := ev.Evaluate(q, answer(`false`))
	if result.Correct || result.ErrorClass != models.ErrorConceptual {
		t.Errorf("got (%v, %q), want (false, conceptual)", result.Correct, result.ErrorClass)
	}
}

func TestQualityScore(t *testing.T) {
	ev := NewEvaluator(DefaultConfig())

	// Correct, full confidence, faster than expected: all three terms maxed.
	resp := answer(`"cat"`)
	resp.Confidence = 1.0
	resp.TimeSpentMs = 10000
	result := ev.Evaluate(textQuestion("cat"), resp)
	if math.Abs(result.QualityScore-1.0) > 1e-9 {
		t.Errorf("QualityScore = %.4f, want 1.0", result.QualityScore)
	}

	// Correct, confidence 0.5, exactly on expected time: 0.6 + 0.1 + 0.2.
	resp = answer(`"cat"`)
	resp.TimeSpentMs = 30000
	result = ev.Evaluate(textQuestion("cat"), resp)
	if math.Abs(result.QualityScore-0.9) > 1e-9 {
		t.Errorf("QualityScore = %.4f, want 0.9", result.QualityScore)
	}

	// Incorrect, double the expected time: 0.2*0.5 + 0.2*0.5.
	resp = answer(`"dog"`)
	resp.TimeSpentMs = 60000
	result = ev.Evaluate(textQuestion("cat"), resp)
	if math.Abs(result.QualityScore-0.2) > 1e-9 {
		t.Errorf("QualityScore = %.4f, want 0.2", result.QualityScore)
	}
}

func TestQualityScoreOutOfRangeConfidence(t *testing.T) {
	ev := NewEvaluator(DefaultConfig())

	resp := answer(`"cat"`)
	resp.Confidence = 3.5
	resp.TimeSpentMs = 30000
	result := ev.Evaluate(textQuestion("cat"), resp)
	// Falls back to neutral 0.5 confidence.
	if math.Abs(result.QualityScore-0.9) > 1e-9 {
		t.Errorf("QualityScore = %.4f, want 0.9", result.QualityScore)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	ev := NewEvaluator(DefaultConfig())

	q := textQuestion("bicycle")
	for i := 0; i < 5; i++ {
		resp := answer(`"bycicle"`)
		resp.Confidence = 0.7
		result := ev.Evaluate(q, resp)
		first := ev.Evaluate(q, resp)
		if result != first {
			t.Fatalf("evaluation diverged between runs: %+v vs %+v", result, first)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "abc", 3},
		{"abc", "abc", 0},
		{"kitten", "sitting", 3},
		{"cat", "cut", 1},
	}
	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
