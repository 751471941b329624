package validator

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/models"
)

func newValidate() *validator.Validate {
	validate := validator.New()
	registerDomainRules(validate)
	return validate
}

// registerDomainRules registers custom field validators shared by struct-tag
// and business validation.
func registerDomainRules(validate *validator.Validate) {
	_ = validate.RegisterValidation("subject", func(fl validator.FieldLevel) bool {
		switch models.Subject(fl.Field().String()) {
		case models.SubjectMath, models.SubjectReading, models.SubjectWriting,
			models.SubjectScience, models.SubjectLanguage:
			return true
		}
		return false
	})

	_ = validate.RegisterValidation("difficulty_tier", func(fl validator.FieldLevel) bool {
		switch models.DifficultyTier(fl.Field().String()) {
		case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
			return true
		}
		return false
	})

	_ = validate.RegisterValidation("assessment_type", func(fl validator.FieldLevel) bool {
		switch models.AssessmentType(fl.Field().String()) {
		case models.AssessmentDiagnostic, models.AssessmentProgress,
			models.AssessmentMastery, models.AssessmentRemedial:
			return true
		}
		return false
	})

	_ = validate.RegisterValidation("answer_kind", func(fl validator.FieldLevel) bool {
		switch models.AnswerKind(fl.Field().String()) {
		case models.AnswerText, models.AnswerNumber, models.AnswerList, models.AnswerBoolean:
			return true
		}
		return false
	})

	_ = validate.RegisterValidation("emotional_state", func(fl validator.FieldLevel) bool {
		switch models.EmotionalState(fl.Field().String()) {
		case models.EmotionFrustrated, models.EmotionConfident,
			models.EmotionConfused, models.EmotionEngaged:
			return true
		}
		return false
	})

	// Confidence and similar self-reports live on a 0..1 scale
	_ = validate.RegisterValidation("fraction", func(fl validator.FieldLevel) bool {
		v := fl.Field().Float()
		return v >= 0 && v <= 1
	})
}

// BusinessValidator handles business rule validation beyond struct tags.
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	return &BusinessValidator{validate: newValidate()}
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	if err := bv.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateSessionCreate validates session creation business rules
func (bv *BusinessValidator) ValidateSessionCreate(req *CreateSessionRequest) ValidationErrors {
	errors := bv.Validate(req)

	if req.QuestionBudget != nil && (*req.QuestionBudget < 1 || *req.QuestionBudget > 50) {
		errors = append(errors, ValidationError{
			Field:   "question_budget",
			Message: "must be between 1 and 50",
			Value:   *req.QuestionBudget,
			Rule:    "business_logic",
		})
	}

	if strings.TrimSpace(req.StudentID) == "" {
		errors = append(errors, ValidationError{
			Field:   "student_id",
			Message: "must not be blank",
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateResponseSubmit validates response submission business rules
func (bv *BusinessValidator) ValidateResponseSubmit(req *SubmitResponseRequest) ValidationErrors {
	errors := bv.Validate(req)

	// A missing answer is a scorable omission; a syntactically broken one
	// is a request error.
	if len(req.Answer) > 0 && !json.Valid(req.Answer) {
		errors = append(errors, ValidationError{
			Field:   "answer",
			Message: "must be valid JSON",
			Rule:    "business_logic",
		})
	}

	if req.TimeSpentMs > 3_600_000 {
		errors = append(errors, ValidationError{
			Field:   "time_spent_ms",
			Message: "exceeds the one hour per-question ceiling",
			Value:   req.TimeSpentMs,
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateQuestionCreate validates question creation business rules
func (bv *BusinessValidator) ValidateQuestionCreate(req *CreateQuestionRequest) ValidationErrors {
	errors := bv.Validate(req)

	if len(req.Expected) == 0 || !json.Valid(req.Expected) {
		errors = append(errors, ValidationError{
			Field:   "expected",
			Message: "must be a valid JSON answer value",
			Rule:    "business_logic",
		})
	} else if _, err := models.DecodeAnswer(req.Kind, req.Expected); err != nil {
		errors = append(errors, ValidationError{
			Field:   "expected",
			Message: "does not match the declared answer kind",
			Value:   string(req.Expected),
			Rule:    "business_logic",
		})
	}

	return errors
}
