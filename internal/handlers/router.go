package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/mindpath-edu/adaptive-assessment-service/internal/services"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/utils"
	"github.com/mindpath-edu/adaptive-assessment-service/internal/validator"
)

type HandlerManager struct {
	assessmentHandler   *AssessmentHandler
	insightHandler      *InsightHandler
	questionBankHandler *QuestionBankHandler
	lessonHandler       *LessonHandler
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		assessmentHandler:   NewAssessmentHandler(serviceManager.Assessment(), validator, logger),
		insightHandler:      NewInsightHandler(serviceManager.Insight(), logger),
		questionBankHandler: NewQuestionBankHandler(serviceManager.QuestionBank(), validator, logger),
		lessonHandler:       NewLessonHandler(serviceManager.Lesson(), logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		// Assessment session routes
		assessments := v1.Group("/assessments")
		{
			assessments.POST("", hm.assessmentHandler.CreateSession)
			assessments.GET("/:id", hm.assessmentHandler.GetSession)
			assessments.POST("/:id/responses", hm.assessmentHandler.SubmitResponse)
			assessments.POST("/:id/complete", hm.assessmentHandler.CompleteSession)
			assessments.POST("/:id/abandon", hm.assessmentHandler.AbandonSession)
			assessments.GET("/:id/results", hm.assessmentHandler.GetResults)
		}

		// Question bank routes
		questions := v1.Group("/questions")
		{
			questions.POST("", hm.questionBankHandler.CreateQuestion)
			questions.POST("/import", hm.questionBankHandler.ImportQuestions)
			questions.GET("", hm.questionBankHandler.ListQuestions)
			questions.GET("/:id", hm.questionBankHandler.GetQuestion)
			questions.PUT("/:id", hm.questionBankHandler.UpdateQuestion)
			questions.DELETE("/:id", hm.questionBankHandler.DeleteQuestion)
		}

		// Lesson catalog routes
		lessons := v1.Group("/lessons")
		{
			lessons.POST("", hm.lessonHandler.CreateLesson)
			lessons.GET("", hm.lessonHandler.ListLessons)
			lessons.GET("/:id", hm.lessonHandler.GetLesson)
		}

		// Student insight routes
		students := v1.Group("/students")
		{
			students.GET("/:student_id/difficulties", hm.insightHandler.GetStudentDifficulties)
			students.GET("/:student_id/recommendations", hm.insightHandler.GetRecommendations)
			students.GET("/:student_id/stats", hm.insightHandler.GetStudentStats)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "adaptive-assessment-service",
		})
	})
}
