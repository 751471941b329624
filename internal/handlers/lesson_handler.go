package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/models"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/repositories"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/services"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/utils"
)

type LessonHandler struct {
	BaseHandler
	lessonService services.LessonService
}

func NewLessonHandler(lessonService services.LessonService, logger utils.Logger) *LessonHandler {
	return &LessonHandler{
		BaseHandler:   NewBaseHandler(logger),
		lessonService: lessonService,
	}
}

// CreateLesson adds a lesson to the recommendation catalog
// @Summary Create lesson
// @Tags lessons
// @Accept json
// @Produce json
// @Param lesson body services.CreateLessonRequest true "Lesson data"
// @Success 201 {object} models.Lesson
// @Failure 400 {object} ErrorResponse
// @Router /lessons [post]
func (h *LessonHandler) CreateLesson(c *gin.Context) {
	var req services.CreateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	lesson, err := h.lessonService.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, lesson)
}

// GetLesson retrieves a lesson by ID
// @Summary Get lesson
// @Tags lessons
// @Produce json
// @Param id path uint true "Lesson ID"
// @Success 200 {object} models.Lesson
// @Failure 404 {object} ErrorResponse
// @Router /lessons/{id} [get]
func (h *LessonHandler) GetLesson(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	lesson, err := h.lessonService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, lesson)
}

// ListLessons lists lessons with filters
// @Summary List lessons
// @Tags lessons
// @Produce json
// @Param subject query string false "Subject filter"
// @Param difficulty query string false "Difficulty filter"
// @Success 200 {object} services.LessonListResponse
// @Router /lessons [get]
func (h *LessonHandler) ListLessons(c *gin.Context) {
	filters := repositories.LessonFilters{
		Limit:  h.parseIntQuery(c, "size", 50),
		Offset: (h.parseIntQuery(c, "page", 1) - 1) * h.parseIntQuery(c, "size", 50),
	}
	if subject := c.Query("subject"); subject != "" {
		parsed := models.Subject(subject)
		filters.Subject = &parsed
	}
	if difficulty := c.Query("difficulty"); difficulty != "" {
		parsed := models.DifficultyTier(difficulty)
		filters.Difficulty = &parsed
	}

	list, err := h.lessonService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *LessonHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrLessonNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Lesson not found",
		})
	default:
		h.logger.Error("Unhandled service error", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
