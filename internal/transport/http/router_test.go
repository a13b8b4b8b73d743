package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"quiz-portal-service/internal/app"
	"quiz-portal-service/internal/domain"
	"quiz-portal-service/internal/infra/memory"
)

func newTestRouter(t *testing.T, cfg RouterConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	cache := memory.NewQuizRepository(store, time.Minute)
	catalog := app.NewCatalogService(store, cache, nil)
	submissions := app.NewSubmissionService(app.SubmissionDeps{
		Quizzes:     cache,
		Catalog:     store,
		Submissions: store,
		Grader:      app.NewGrader(app.TextPolicyExact),
	})
	if cfg.BasePath == "" {
		cfg.BasePath = "/api"
	}
	return NewRouter(catalog, submissions, cfg)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return out
}

// seedHTTPQuiz authors the MCQ + TRUE_FALSE quiz through the admin API.
func seedHTTPQuiz(t *testing.T, router http.Handler, headers ...string) domain.Quiz {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/admin/quizzes/", map[string]any{
		"title":       "World Capitals Quiz",
		"description": "Warm-up round",
	}, headers...)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create quiz: %d %s", rec.Code, rec.Body.String())
	}
	quiz := decode[domain.Quiz](t, rec)

	rec = doJSON(t, router, http.MethodPost, "/api/admin/quizzes/"+quiz.ID+"/questions/", map[string]any{
		"question_text": "Capital of France?",
		"question_type": "MCQ",
		"points":        2,
		"options": []map[string]any{
			{"option_text": "Paris", "is_correct": true},
			{"option_text": "Lyon", "is_correct": false},
		},
	}, headers...)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add mcq: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, router, http.MethodPost, "/api/admin/quizzes/"+quiz.ID+"/questions/", map[string]any{
		"question_text":       "Berlin is in Germany.",
		"question_type":       "TRUE_FALSE",
		"points":              1,
		"correct_answer_text": "True",
	}, headers...)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add true/false: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/api/admin/quizzes/"+quiz.ID+"/", nil, headers...)
	if rec.Code != http.StatusOK {
		t.Fatalf("get quiz: %d %s", rec.Code, rec.Body.String())
	}
	return decode[domain.Quiz](t, rec)
}

func TestAdminAndPublicFlow(t *testing.T) {
	router := newTestRouter(t, RouterConfig{})
	quiz := seedHTTPQuiz(t, router)
	if quiz.Slug != "world-capitals-quiz" || len(quiz.Questions) != 2 {
		t.Fatalf("unexpected quiz: %+v", quiz)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/quizzes/world-capitals-quiz/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("public get: %d %s", rec.Code, rec.Body.String())
	}
	if body := rec.Body.String(); strings.Contains(body, "is_correct") || strings.Contains(body, "correct_answer") {
		t.Fatalf("public quiz leaks answers: %s", body)
	}

	mcq := quiz.Questions[0]
	var correctOpt, wrongOpt string
	for _, opt := range mcq.Options {
		if opt.IsCorrect {
			correctOpt = opt.ID
		} else {
			wrongOpt = opt.ID
		}
	}
	tf := quiz.Questions[1]

	rec = doJSON(t, router, http.MethodPost, "/api/quizzes/world-capitals-quiz/submit/", map[string]any{
		"answers": []map[string]string{
			{"question_id": mcq.ID, "answer_text": correctOpt},
			{"question_id": tf.ID, "answer_text": "True"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body.String())
	}
	full := decode[domain.Submission](t, rec)
	if full.Score == nil || *full.Score != 3 || full.TotalPoints != 3 {
		t.Fatalf("expected 3/3, got %+v", full)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/quizzes/world-capitals-quiz/submit/", map[string]any{
		"answers": []map[string]string{
			{"question_id": mcq.ID, "answer_text": wrongOpt},
			{"question_id": tf.ID, "answer_text": "False"},
		},
	})
	zero := decode[domain.Submission](t, rec)
	if zero.Score == nil || *zero.Score != 0 || zero.TotalPoints != 3 {
		t.Fatalf("expected 0/3, got %+v", zero)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/admin/quizzes/"+quiz.ID+"/submissions/", nil)
	if history := decode[[]domain.Submission](t, rec); len(history) != 2 {
		t.Fatalf("expected 2 submissions in history, got %d", len(history))
	}
	rec = doJSON(t, router, http.MethodGet, "/api/admin/submissions/"+full.ID+"/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get submission: %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/admin/quizzes/"+quiz.ID+"/", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete quiz: %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/api/quizzes/world-capitals-quiz/", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestSubmitWithEmptyBody(t *testing.T) {
	router := newTestRouter(t, RouterConfig{})
	seedHTTPQuiz(t, router)

	req := httptest.NewRequest(http.MethodPost, "/api/quizzes/world-capitals-quiz/submit/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit without body: %d %s", rec.Code, rec.Body.String())
	}
	sub := decode[domain.Submission](t, rec)
	for _, a := range sub.Answers {
		if a.AnswerText != "" || a.IsCorrect == nil || *a.IsCorrect {
			t.Fatalf("expected empty incorrect answer, got %+v", a)
		}
	}
}

func TestErrorStatuses(t *testing.T) {
	router := newTestRouter(t, RouterConfig{})
	quiz := seedHTTPQuiz(t, router)

	cases := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"unknown slug", http.MethodGet, "/api/quizzes/nope/", nil, http.StatusNotFound},
		{"unknown quiz id", http.MethodGet, "/api/admin/quizzes/not-a-uuid/", nil, http.StatusNotFound},
		{"missing title", http.MethodPost, "/api/admin/quizzes/", map[string]any{"description": "x"}, http.StatusBadRequest},
		{"duplicate slug", http.MethodPost, "/api/admin/quizzes/", map[string]any{"title": "World Capitals Quiz"}, http.StatusConflict},
		{"mcq without options", http.MethodPost, "/api/admin/quizzes/" + quiz.ID + "/questions/", map[string]any{"question_text": "?", "question_type": "MCQ"}, http.StatusBadRequest},
		{"unknown question", http.MethodDelete, "/api/admin/questions/6c1f9f9e-1b2a-4f7e-9a51-2b0d3c4e5f60/", nil, http.StatusNotFound},
		{"malformed submit", http.MethodPost, "/api/quizzes/world-capitals-quiz/submit/", "not an object", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, tc.method, tc.path, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			if resp := decode[errorResponse](t, rec); resp.Error == "" {
				t.Fatalf("expected error message in body")
			}
		})
	}
}

func TestInactiveQuizHiddenFromPublic(t *testing.T) {
	router := newTestRouter(t, RouterConfig{})
	quiz := seedHTTPQuiz(t, router)

	rec := doJSON(t, router, http.MethodPut, "/api/admin/quizzes/"+quiz.ID+"/", map[string]any{"is_active": false})
	if rec.Code != http.StatusOK {
		t.Fatalf("deactivate: %d %s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(t, router, http.MethodGet, "/api/quizzes/"+quiz.Slug+"/", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for inactive quiz, got %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodGet, "/api/admin/quizzes/"+quiz.ID+"/", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected admin access to inactive quiz, got %d", rec.Code)
	}
}

func TestUpdateAndDeleteQuestion(t *testing.T) {
	router := newTestRouter(t, RouterConfig{})
	quiz := seedHTTPQuiz(t, router)
	tf := quiz.Questions[1]

	rec := doJSON(t, router, http.MethodPut, "/api/admin/questions/"+tf.ID+"/", map[string]any{
		"question_text":       "Berlin is in France.",
		"correct_answer_text": "False",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update question: %d %s", rec.Code, rec.Body.String())
	}
	updated := decode[domain.Question](t, rec)
	if updated.Text != "Berlin is in France." || updated.CorrectAnswer == nil || updated.CorrectAnswer.Text != "False" {
		t.Fatalf("unexpected updated question: %+v", updated)
	}

	rec = doJSON(t, router, http.MethodPut, "/api/admin/questions/"+tf.ID+"/", map[string]any{"correct_answer_text": "Maybe"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid true/false answer, got %d", rec.Code)
	}
	if resp := decode[errorResponse](t, rec); resp.Field != "correct_answer_text" {
		t.Fatalf("expected field in error, got %+v", resp)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/admin/questions/"+tf.ID+"/", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete question: %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/api/quizzes/"+quiz.Slug+"/", nil)
	if public := decode[domain.PublicQuiz](t, rec); public.QuestionCount != 1 {
		t.Fatalf("expected one question after delete, got %d", public.QuestionCount)
	}
}

func TestListQuizzesAndHealth(t *testing.T) {
	router := newTestRouter(t, RouterConfig{})
	seedHTTPQuiz(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/admin/quizzes/", nil)
	quizzes := decode[[]map[string]any](t, rec)
	if len(quizzes) != 1 || quizzes[0]["question_count"] != float64(2) {
		t.Fatalf("unexpected quiz list: %v", quizzes)
	}

	rec = doJSON(t, router, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
}

func TestAdminGetQuizBySlug(t *testing.T) {
	router := newTestRouter(t, RouterConfig{})
	quiz := seedHTTPQuiz(t, router)

	if rec := doJSON(t, router, http.MethodPut, "/api/admin/quizzes/"+quiz.ID+"/", map[string]any{"is_active": false}); rec.Code != http.StatusOK {
		t.Fatalf("deactivate: %d", rec.Code)
	}
	rec := doJSON(t, router, http.MethodGet, "/api/admin/quizzes/"+quiz.Slug+"/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected admin lookup by slug, got %d %s", rec.Code, rec.Body.String())
	}
	if got := decode[domain.Quiz](t, rec); got.ID != quiz.ID || got.IsActive {
		t.Fatalf("unexpected quiz: %+v", got)
	}
}

func TestUpdateQuizDescriptionNullClears(t *testing.T) {
	router := newTestRouter(t, RouterConfig{})
	quiz := seedHTTPQuiz(t, router)
	path := "/api/admin/quizzes/" + quiz.ID + "/"

	rec := doJSON(t, router, http.MethodPut, path, map[string]any{"title": "Renamed"})
	if got := decode[domain.Quiz](t, rec); got.Description == nil || *got.Description != "Warm-up round" {
		t.Fatalf("omitted description should be kept, got %v", got.Description)
	}

	rec = doJSON(t, router, http.MethodPut, path, map[string]any{"description": nil})
	if rec.Code != http.StatusOK {
		t.Fatalf("clear description: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode[domain.Quiz](t, rec); got.Description != nil {
		t.Fatalf("expected description cleared, got %q", *got.Description)
	}

	rec = doJSON(t, router, http.MethodPut, path, map[string]any{"description": 42})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-string description, got %d", rec.Code)
	}
}
