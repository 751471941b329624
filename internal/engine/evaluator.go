package engine

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/models"
)

// Evaluator scores a single submitted answer against a question's expected
// answer. Evaluation is a pure function of its inputs: re-evaluating the same
// (question, response) pair yields an identical result.
type Evaluator struct {
	cfg Config
}

func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Evaluate never returns an error: malformed or mistyped answers degrade to an
// incorrect result with a conceptual error class rather than aborting the
// session.
func (e *Evaluator) Evaluate(question *models.Question, response *models.Response) models.EvaluationResult {
	expected, err := question.ExpectedValue()
	if err != nil {
		// A question with an undecodable expected answer cannot be scored;
		// treat the response as unscorable rather than failing the session.
		return e.finish(question, response, models.EvaluationResult{
			Correct:    false,
			ErrorClass: models.ErrorConceptual,
			Feedback:   "This question could not be scored automatically.",
		})
	}

	given, decodeErr := models.DecodeAnswer(question.Kind, json.RawMessage(response.RawAnswer))
	if decodeErr != nil {
		return e.finish(question, response, models.EvaluationResult{
			Correct:    false,
			ErrorClass: models.ErrorConceptual,
			Feedback:   "The answer did not match the expected format.",
		})
	}

	if given.IsEmpty() || len(response.RawAnswer) == 0 {
		class := models.ErrorOmission
		if response.TimeSpentMs >= e.cfg.TimeoutMs {
			class = models.ErrorTimeout
		}
		return e.finish(question, response, models.EvaluationResult{
			Correct:    false,
			ErrorClass: class,
			Feedback:   "No answer was given.",
		})
	}

	correct, class := e.classify(question, expected, given, response)
	result := models.EvaluationResult{Correct: correct, ErrorClass: class}
	if correct {
		result.ErrorClass = models.ErrorNone
		result.Feedback = "Correct! Well done."
	} else {
		result.Feedback = feedbackFor(class)
	}
	return e.finish(question, response, result)
}

// finish applies the quality score to a classified result.
// qualityScore = correctness weight + confidence term + time-normalized speed term.
func (e *Evaluator) finish(question *models.Question, response *models.Response, result models.EvaluationResult) models.EvaluationResult {
	score := 0.0
	if result.Correct {
		score += e.cfg.CorrectnessWeight
	}

	confidence := response.Confidence
	if confidence < 0 || confidence > 1 {
		confidence = 0.5
	}
	score += e.cfg.ConfidenceWeight * confidence

	if response.TimeSpentMs > 0 && question.ExpectedTimeMs > 0 {
		speed := float64(question.ExpectedTimeMs) / float64(response.TimeSpentMs)
		score += e.cfg.SpeedWeight * clamp(speed, 0, 1)
	}

	result.QualityScore = clamp(score, 0, 1)
	return result
}

func (e *Evaluator) classify(question *models.Question, expected, given models.AnswerValue, response *models.Response) (bool, models.ErrorClass) {
	switch question.Kind {
	case models.AnswerBoolean:
		if given.Bool == expected.Bool {
			return true, models.ErrorNone
		}
		return false, models.ErrorConceptual

	case models.AnswerNumber:
		if given.Number == expected.Number {
			return true, models.ErrorNone
		}
		return false, e.classifyNumeric(question, expected.Number, given.Number)

	case models.AnswerList:
		return e.classifyList(expected.List, given.List)

	default: // free text
		return e.classifyText(question, expected.Text, given.Text)
	}
}

// classifyNumeric distinguishes digit reversals ("21" for "12") from
// calculation slips and genuine conceptual errors.
func (e *Evaluator) classifyNumeric(question *models.Question, expected, given float64) models.ErrorClass {
	expStr := strconv.FormatFloat(expected, 'f', -1, 64)
	gotStr := strconv.FormatFloat(given, 'f', -1, 64)

	if reverseString(gotStr) == expStr || hasAdjacentSwap(gotStr, expStr) {
		return models.ErrorReversal
	}

	// Near-miss magnitudes read as arithmetic slips rather than missing
	// understanding of the concept.
	if expected != 0 {
		relative := math.Abs(given-expected) / math.Abs(expected)
		if relative <= 0.25 {
			return models.ErrorCalculation
		}
	}
	return domainErrorClass(question.Subject, question.Skill)
}

func (e *Evaluator) classifyList(expected, given []string) (bool, models.ErrorClass) {
	if len(expected) == len(given) {
		exact := true
		for i := range expected {
			if normalizeText(given[i]) != normalizeText(expected[i]) {
				exact = false
				break
			}
		}
		if exact {
			return true, models.ErrorNone
		}

		// Same elements, wrong order
		if sameElements(expected, given) {
			return false, models.ErrorTransposition
		}
	}

	if len(given) < len(expected) {
		return false, models.ErrorOmission
	}
	if len(given) > len(expected) {
		return false, models.ErrorInsertion
	}
	return false, models.ErrorSubstitution
}

func (e *Evaluator) classifyText(question *models.Question, expected, given string) (bool, models.ErrorClass) {
	normExpected := normalizeText(expected)
	normGiven := normalizeText(given)

	if normGiven == normExpected {
		return true, models.ErrorNone
	}

	distance := levenshtein(normGiven, normExpected)
	if distance <= e.cfg.EditDistanceTolerance {
		// Near miss: choose by character pattern, reversal first.
		if reverseString(normGiven) == normExpected || hasAdjacentSwap(normGiven, normExpected) {
			return false, models.ErrorReversal
		}
		switch {
		case len(normGiven) < len(normExpected):
			return false, models.ErrorOmission
		case len(normGiven) > len(normExpected):
			return false, models.ErrorInsertion
		default:
			return false, models.ErrorSubstitution
		}
	}

	return false, domainErrorClass(question.Subject, question.Skill)
}

// domainErrorClass is the per-subject rule table for errors that are not
// near-miss mechanical slips.
func domainErrorClass(subject models.Subject, skill string) models.ErrorClass {
	switch subject {
	case models.SubjectMath, models.SubjectScience:
		switch skill {
		case "procedure", "multi_step", "word_problem":
			return models.ErrorProcedural
		case "arithmetic", "calculation":
			return models.ErrorCalculation
		}
		return models.ErrorConceptual
	default:
		return models.ErrorConceptual
	}
}

func feedbackFor(class models.ErrorClass) string {
	switch class {
	case models.ErrorReversal, models.ErrorTransposition:
		return "Very close! Check the order of the characters in your answer."
	case models.ErrorSubstitution, models.ErrorOmission, models.ErrorInsertion:
		return "Almost there. Check your spelling and try again."
	case models.ErrorCalculation:
		return "Your approach looks right, but check your arithmetic."
	case models.ErrorProcedural:
		return "Review the steps for this kind of problem."
	case models.ErrorTimeout:
		return "Time ran out before an answer was given."
	default:
		return "Not quite. Review the concept and try a similar problem."
	}
}

// ===== TEXT NORMALIZATION AND DISTANCE =====

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeText lowercases, collapses whitespace and removes diacritics so
// that "Café  du  Monde" and "cafe du monde" compare equal.
func normalizeText(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

func levenshtein(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	matrix := make([][]int, len(s1)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(s2)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			matrix[i][j] = minOf(
				matrix[i-1][j]+1,
				matrix[i][j-1]+1,
				matrix[i-1][j-1]+cost,
			)
		}
	}

	return matrix[len(s1)][len(s2)]
}

// hasAdjacentSwap reports whether swapping one adjacent character pair in got
// produces want.
func hasAdjacentSwap(got, want string) bool {
	if len(got) != len(want) || len(got) < 2 {
		return false
	}
	for i := 0; i < len(got)-1; i++ {
		if got[i] == want[i] {
			continue
		}
		if got[i] == want[i+1] && got[i+1] == want[i] && got[i+2:] == want[i+2:] {
			return true
		}
		return false
	}
	return false
}

func reverseString(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

func sameElements(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, s := range a {
		seen[normalizeText(s)]++
	}
	for _, s := range b {
		seen[normalizeText(s)]--
	}
	for _, n := range seen {
		if n != 0 {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func minOf(a, b, c int) int {
	if a < b && a < c {
		return a
	}
	if b < c {
		return b
	}
	return c
}
