package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/models"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/services"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/utils"
)

type InsightHandler struct {
	BaseHandler
	insightService services.InsightService
}

func NewInsightHandler(insightService services.InsightService, logger utils.Logger) *InsightHandler {
	return &InsightHandler{
		BaseHandler:    NewBaseHandler(logger),
		insightService: insightService,
	}
}

// GetStudentDifficulties aggregates detected difficulties across sessions
// @Summary Get student difficulties
// @Tags insights
// @Produce json
// @Param student_id path string true "Student ID"
// @Param subject query string false "Subject filter"
// @Success 200 {object} services.StudentDifficultiesResponse
// @Failure 400 {object} ErrorResponse
// @Router /students/{student_id}/difficulties [get]
func (h *InsightHandler) GetStudentDifficulties(c *gin.Context) {
	studentID := h.parseStringIDParam(c, "student_id")
	if studentID == "" {
		return
	}

	var subject *models.Subject
	if value := c.Query("subject"); value != "" {
		parsed := models.Subject(value)
		subject = &parsed
	}

	response, err := h.insightService.GetStudentDifficulties(c.Request.Context(), studentID, subject)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetRecommendations returns lesson recommendations for a student and subject
// @Summary Get lesson recommendations
// @Tags insights
// @Produce json
// @Param student_id path string true "Student ID"
// @Param subject query string true "Subject"
// @Success 200 {object} services.RecommendationsResponse
// @Failure 400 {object} ErrorResponse
// @Router /students/{student_id}/recommendations [get]
func (h *InsightHandler) GetRecommendations(c *gin.Context) {
	studentID := h.parseStringIDParam(c, "student_id")
	if studentID == "" {
		return
	}

	subject := c.Query("subject")
	if subject == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "subject query parameter is required",
		})
		return
	}

	response, err := h.insightService.GetRecommendations(c.Request.Context(), studentID, models.Subject(subject))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetStudentStats returns per-subject aggregates for a student
// @Summary Get student stats
// @Tags insights
// @Produce json
// @Param student_id path string true "Student ID"
// @Success 200 {object} services.StudentStatsResponse
// @Failure 400 {object} ErrorResponse
// @Router /students/{student_id}/stats [get]
func (h *InsightHandler) GetStudentStats(c *gin.Context) {
	studentID := h.parseStringIDParam(c, "student_id")
	if studentID == "" {
		return
	}

	response, err := h.insightService.GetStudentStats(c.Request.Context(), studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *InsightHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	h.logger.Error("Unhandled service error", "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Message: "Internal server error",
	})
}
