// Package handler provides HTTP request handlers for the application.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vidpulse/video-analytics-bot/internal/service"
	"github.com/vidpulse/video-analytics-bot/pkg/logger"
)

// QuestionRequest is the body of POST /api/v1/questions.
type QuestionRequest struct {
	Question string `json:"question" binding:"required"`
}

// QuestionResponse is the successful answer payload.
type QuestionResponse struct {
	Answer   string `json:"answer"`
	SQL      string `json:"sql,omitempty"`
	Attempts int    `json:"attempts"`
	Answered bool   `json:"answered"`
}

// ErrorResponse is the error payload shared by all endpoints.
type ErrorResponse struct {
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
}

// QuestionHandler handles question-answering HTTP requests.
type QuestionHandler struct {
	analytics *service.AnalyticsService
}

// NewQuestionHandler creates a new QuestionHandler instance.
func NewQuestionHandler(analytics *service.AnalyticsService) *QuestionHandler {
	return &QuestionHandler{analytics: analytics}
}

// AskQuestion answers one natural-language question about video
// statistics.
func (h *QuestionHandler) AskQuestion(c *gin.Context) {
	var req QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Status:    http.StatusBadRequest,
			Error:     "Bad Request",
			Message:   "Invalid request payload: " + err.Error(),
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	answer, err := h.analytics.AnswerQuestion(c.Request.Context(), req.Question)
	if err != nil {
		if errors.Is(err, c.Request.Context().Err()) && c.Request.Context().Err() != nil {
			// Client went away; nothing useful to write.
			c.Status(http.StatusRequestTimeout)
			return
		}
		logger.Log.Error("failed to answer question",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Status:    http.StatusInternalServerError,
			Error:     "Internal Server Error",
			Message:   "Failed to process the question",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	c.JSON(http.StatusOK, QuestionResponse{
		Answer:   answer.Text,
		SQL:      answer.SQL,
		Attempts: answer.Attempts,
		Answered: answer.Answered,
	})
}
