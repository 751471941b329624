package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/models"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/repositories"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/validator"
)

type questionBankService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewQuestionBankService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) QuestionBankService {
	return &questionBankService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *questionBankService) Create(ctx context.Context, req *CreateQuestionRequest, creatorID string) (*models.Question, error) {
	s.logger.Info("Creating question", "creator_id", creatorID, "subject", req.Subject, "difficulty", req.Difficulty)

	if errs := s.validator.GetBusinessValidator().ValidateQuestionCreate(req); len(errs) > 0 {
		return nil, errs
	}

	question, err := questionFromRequest(req, creatorID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Question().Create(ctx, nil, question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	s.logger.Info("Question created", "question_id", question.ID)

	return question, nil
}

func (s *questionBankService) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	question, err := s.repo.Question().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return question, nil
}

func (s *questionBankService) Update(ctx context.Context, id uint, req *CreateQuestionRequest) (*models.Question, error) {
	if errs := s.validator.GetBusinessValidator().ValidateQuestionCreate(req); len(errs) > 0 {
		return nil, errs
	}

	question, err := s.repo.Question().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	updated, err := questionFromRequest(req, question.CreatedBy)
	if err != nil {
		return nil, err
	}
	updated.ID = question.ID
	updated.CreatedAt = question.CreatedAt

	if err := s.repo.Question().Update(ctx, nil, updated); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	return updated, nil
}

func (s *questionBankService) Delete(ctx context.Context, id uint) error {
	if _, err := s.repo.Question().GetByID(ctx, nil, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to get question: %w", err)
	}

	if err := s.repo.Question().Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}

	s.logger.Info("Question deleted", "question_id", id)
	return nil
}

func (s *questionBankService) List(ctx context.Context, filters repositories.QuestionFilters) (*QuestionListResponse, error) {
	questions, total, err := s.repo.Question().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	return &QuestionListResponse{Questions: questions, Total: total}, nil
}

// ===== EXCEL IMPORT =====

// Expected column order: subject, skill, text, difficulty, kind, expected
// answer (JSON or plain text), expected time in ms. The first row is a header
// and is skipped.
var importColumns = []string{"subject", "skill", "text", "difficulty", "kind", "expected", "expected_time_ms"}

func (s *questionBankService) ImportFromExcel(ctx context.Context, reader io.Reader, creatorID string) (*ImportResult, error) {
	file, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer file.Close()

	sheet := file.GetSheetName(0)
	rows, err := file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	result := &ImportResult{}
	var questions []*models.Question

	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		rowNum := i + 1

		req, err := parseImportRow(row)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}

		if errs := s.validator.GetBusinessValidator().ValidateQuestionCreate(req); len(errs) > 0 {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, errs))
			continue
		}

		question, err := questionFromRequest(req, creatorID)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		questions = append(questions, question)
	}

	if len(questions) > 0 {
		if err := s.repo.Question().CreateBatch(ctx, nil, questions); err != nil {
			return nil, fmt.Errorf("failed to import questions: %w", err)
		}
	}
	result.Imported = len(questions)

	s.logger.Info("Question import finished",
		"imported", result.Imported,
		"skipped", result.Skipped,
		"creator_id", creatorID)

	return result, nil
}

func parseImportRow(row []string) (*CreateQuestionRequest, error) {
	if len(row) < 6 {
		return nil, fmt.Errorf("expected at least 6 columns (%s)", strings.Join(importColumns, ", "))
	}

	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	req := &CreateQuestionRequest{
		Subject:    models.Subject(strings.ToLower(cell(0))),
		Skill:      cell(1),
		Text:       cell(2),
		Difficulty: models.DifficultyTier(strings.ToLower(cell(3))),
		Kind:       models.AnswerKind(strings.ToLower(cell(4))),
	}

	// The expected cell may hold raw JSON or a bare literal; bare text is
	// quoted into a JSON string
	expected := cell(5)
	if expected == "" {
		return nil, fmt.Errorf("expected answer is empty")
	}
	if json.Valid([]byte(expected)) {
		req.Expected = json.RawMessage(expected)
	} else {
		quoted, err := json.Marshal(expected)
		if err != nil {
			return nil, fmt.Errorf("invalid expected answer: %w", err)
		}
		req.Expected = quoted
	}

	if timeCell := cell(6); timeCell != "" {
		ms, err := strconv.Atoi(timeCell)
		if err != nil {
			return nil, fmt.Errorf("invalid expected_time_ms %q", timeCell)
		}
		req.ExpectedTimeMs = ms
	}

	return req, nil
}

// ===== HELPERS =====

func questionFromRequest(req *CreateQuestionRequest, creatorID string) (*models.Question, error) {
	question := &models.Question{
		Subject:        req.Subject,
		Skill:          req.Skill,
		Text:           req.Text,
		Difficulty:     req.Difficulty,
		Kind:           req.Kind,
		Expected:       []byte(req.Expected),
		ExpectedTimeMs: req.ExpectedTimeMs,
		CreatedBy:      creatorID,
	}

	if len(req.CulturalVariants) > 0 {
		raw, err := json.Marshal(req.CulturalVariants)
		if err != nil {
			return nil, fmt.Errorf("failed to encode cultural variants: %w", err)
		}
		question.CulturalVariants = raw
	}
	if len(req.AccessibilityVariants) > 0 {
		raw, err := json.Marshal(req.AccessibilityVariants)
		if err != nil {
			return nil, fmt.Errorf("failed to encode accessibility variants: %w", err)
		}
		question.AccessibilityVariants = raw
	}

	return question, nil
}
