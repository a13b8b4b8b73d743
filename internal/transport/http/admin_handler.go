package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"quiz-portal-service/internal/app"
	"quiz-portal-service/internal/domain"
)

// AdminHandler serves quiz and question authoring plus submission history.
type AdminHandler struct {
	catalog     *app.CatalogService
	submissions *app.SubmissionService
}

func NewAdminHandler(catalog *app.CatalogService, submissions *app.SubmissionService) *AdminHandler {
	return &AdminHandler{catalog: catalog, submissions: submissions}
}

type quizRequest struct {
	Title       *string        `json:"title"`
	Slug        *string        `json:"slug"`
	Description optionalString `json:"description"`
	IsActive    *bool          `json:"is_active"`
}

// optionalString tells an omitted field apart from an explicit null.
type optionalString struct {
	Set   bool
	Value *string
}

func (o *optionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

type optionRequest struct {
	OptionText string `json:"option_text"`
	IsCorrect  bool   `json:"is_correct"`
	Order      *int   `json:"order"`
}

type questionRequest struct {
	QuestionText      *string         `json:"question_text"`
	QuestionType      *string         `json:"question_type"`
	Points            *int            `json:"points"`
	Order             *int            `json:"order"`
	Options           []optionRequest `json:"options"`
	CorrectAnswerText *string         `json:"correct_answer_text"`
}

func (r questionRequest) options() []app.OptionInput {
	if r.Options == nil {
		return nil
	}
	out := make([]app.OptionInput, 0, len(r.Options))
	for _, opt := range r.Options {
		out = append(out, app.OptionInput{Text: opt.OptionText, IsCorrect: opt.IsCorrect, Order: opt.Order})
	}
	return out
}

func (h *AdminHandler) ListQuizzes(c *gin.Context) {
	quizzes, err := h.catalog.ListQuizzes(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, quizzes)
}

func (h *AdminHandler) CreateQuiz(c *gin.Context) {
	var req quizRequest
	if !bindJSON(c, &req) {
		return
	}
	in := app.QuizInput{Slug: req.Slug, Description: req.Description.Value, IsActive: req.IsActive}
	if req.Title != nil {
		in.Title = *req.Title
	}
	quiz, err := h.catalog.CreateQuiz(c.Request.Context(), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quiz)
}

// GetQuiz accepts either the quiz id or its slug.
func (h *AdminHandler) GetQuiz(c *gin.Context) {
	ref := c.Param("id")
	var (
		quiz domain.Quiz
		err  error
	)
	if _, parseErr := uuid.Parse(ref); parseErr == nil {
		quiz, err = h.catalog.GetQuiz(c.Request.Context(), ref)
	} else {
		quiz, err = h.catalog.GetQuizBySlug(c.Request.Context(), ref)
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *AdminHandler) UpdateQuiz(c *gin.Context) {
	var req quizRequest
	if !bindJSON(c, &req) {
		return
	}
	quiz, err := h.catalog.UpdateQuiz(c.Request.Context(), c.Param("id"), app.QuizPatch{
		Title:            req.Title,
		Slug:             req.Slug,
		Description:      req.Description.Value,
		ClearDescription: req.Description.Set && req.Description.Value == nil,
		IsActive:         req.IsActive,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *AdminHandler) DeleteQuiz(c *gin.Context) {
	if err := h.catalog.DeleteQuiz(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) AddQuestion(c *gin.Context) {
	var req questionRequest
	if !bindJSON(c, &req) {
		return
	}
	in := app.QuestionInput{
		Points:            req.Points,
		Order:             req.Order,
		Options:           req.options(),
		CorrectAnswerText: req.CorrectAnswerText,
	}
	if req.QuestionText != nil {
		in.Text = *req.QuestionText
	}
	if req.QuestionType != nil {
		in.Type = domain.QuestionType(*req.QuestionType)
	}
	question, err := h.catalog.AddQuestion(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, question)
}

func (h *AdminHandler) UpdateQuestion(c *gin.Context) {
	var req questionRequest
	if !bindJSON(c, &req) {
		return
	}
	patch := app.QuestionPatch{
		Text:              req.QuestionText,
		Points:            req.Points,
		Order:             req.Order,
		Options:           req.options(),
		CorrectAnswerText: req.CorrectAnswerText,
	}
	if req.QuestionType != nil {
		qt := domain.QuestionType(*req.QuestionType)
		patch.Type = &qt
	}
	question, err := h.catalog.UpdateQuestion(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

func (h *AdminHandler) DeleteQuestion(c *gin.Context) {
	if err := h.catalog.DeleteQuestion(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) ListSubmissions(c *gin.Context) {
	submissions, err := h.submissions.ListSubmissions(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, submissions)
}

func (h *AdminHandler) GetSubmission(c *gin.Context) {
	submission, err := h.submissions.GetSubmission(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, submission)
}

// bindJSON decodes the request body into dst and writes a 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			abortWithError(c, domain.Invalid("body", "request body is required"))
			return false
		}
		abortWithError(c, domain.Invalid("body", "malformed JSON: %v", err))
		return false
	}
	return true
}
