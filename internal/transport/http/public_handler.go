package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"quiz-portal-service/internal/app"
	"quiz-portal-service/internal/domain"
)

// PublicHandler serves anonymous quiz takers.
type PublicHandler struct {
	submissions *app.SubmissionService
}

func NewPublicHandler(submissions *app.SubmissionService) *PublicHandler {
	return &PublicHandler{submissions: submissions}
}

type submitRequest struct {
	Answers []domain.AnswerSubmission `json:"answers"`
}

func (h *PublicHandler) GetQuiz(c *gin.Context) {
	quiz, err := h.submissions.GetPublicQuiz(c.Request.Context(), c.Param("slug"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

// Submit grades the posted answers. An empty body counts as no answers.
func (h *PublicHandler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		abortWithError(c, domain.Invalid("answers", "malformed JSON: %v", err))
		return
	}
	submission, err := h.submissions.Submit(c.Request.Context(), c.Param("slug"), req.Answers)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, submission)
}
