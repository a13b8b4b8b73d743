package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-portal-service/internal/app"
	"quiz-portal-service/internal/domain"
	"quiz-portal-service/internal/infra/memory"
)

type testEnv struct {
	store       *memory.Store
	cache       *memory.QuizRepository
	catalog     *app.CatalogService
	submissions *app.SubmissionService
	feed        *app.SubmissionFeed
}

func newTestEnv(policy app.TextPolicy) testEnv {
	store := memory.NewStore()
	cache := memory.NewQuizRepository(store, time.Minute)
	feed := app.NewSubmissionFeed()
	return testEnv{
		store:   store,
		cache:   cache,
		catalog: app.NewCatalogService(store, cache, nil),
		submissions: app.NewSubmissionService(app.SubmissionDeps{
			Quizzes:     cache,
			Catalog:     store,
			Submissions: store,
			Grader:      app.NewGrader(policy),
			Feed:        feed,
		}),
		feed: feed,
	}
}

func ptr[T any](v T) *T { return &v }

// seedQuiz creates the two-question quiz used across the service tests and
// returns it with its questions.
func seedQuiz(t *testing.T, env testEnv) domain.Quiz {
	t.Helper()
	ctx := context.Background()
	quiz, err := env.catalog.CreateQuiz(ctx, app.QuizInput{Title: "World Capitals Quiz"})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if _, err := env.catalog.AddQuestion(ctx, quiz.ID, app.QuestionInput{
		Text:   "Capital of France?",
		Type:   domain.QuestionTypeMCQ,
		Points: ptr(2),
		Options: []app.OptionInput{
			{Text: "Paris", IsCorrect: true},
			{Text: "Lyon"},
		},
	}); err != nil {
		t.Fatalf("add mcq: %v", err)
	}
	if _, err := env.catalog.AddQuestion(ctx, quiz.ID, app.QuestionInput{
		Text:              "Berlin is in Germany.",
		Type:              domain.QuestionTypeTrueFalse,
		CorrectAnswerText: ptr("True"),
	}); err != nil {
		t.Fatalf("add true/false: %v", err)
	}
	quiz, err = env.catalog.GetQuiz(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("reload quiz: %v", err)
	}
	return quiz
}

func TestCreateQuizDerivesSlugAndDefaults(t *testing.T) {
	env := newTestEnv(app.TextPolicyExact)
	quiz := seedQuiz(t, env)

	if quiz.Slug != "world-capitals-quiz" {
		t.Fatalf("expected derived slug, got %q", quiz.Slug)
	}
	if !quiz.IsActive {
		t.Fatalf("expected new quiz to be active")
	}
	if len(quiz.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(quiz.Questions))
	}
	if quiz.Questions[0].Order != 0 || quiz.Questions[1].Order != 1 {
		t.Fatalf("expected sequential default order, got %d and %d", quiz.Questions[0].Order, quiz.Questions[1].Order)
	}
	if quiz.Questions[1].Points != 1 {
		t.Fatalf("expected default point value 1, got %d", quiz.Questions[1].Points)
	}
}

func TestCreateQuizRejectsDuplicateSlug(t *testing.T) {
	env := newTestEnv(app.TextPolicyExact)
	ctx := context.Background()
	if _, err := env.catalog.CreateQuiz(ctx, app.QuizInput{Title: "Capitals"}); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	_, err := env.catalog.CreateQuiz(ctx, app.QuizInput{Title: "Other", Slug: ptr("capitals")})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateQuizValidation(t *testing.T) {
	env := newTestEnv(app.TextPolicyExact)
	ctx := context.Background()
	for name, in := range map[string]app.QuizInput{
		"missing title": {Title: " "},
		"bad slug":      {Title: "Fine", Slug: ptr("Not OK")},
		"empty slug":    {Title: "???"},
	} {
		if _, err := env.catalog.CreateQuiz(ctx, in); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestAddQuestionValidation(t *testing.T) {
	env := newTestEnv(app.TextPolicyExact)
	quiz := seedQuiz(t, env)
	ctx := context.Background()

	_, err := env.catalog.AddQuestion(ctx, quiz.ID, app.QuestionInput{Text: "No options", Type: domain.QuestionTypeMCQ})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for mcq without options, got %v", err)
	}

	_, err = env.catalog.AddQuestion(ctx, quiz.ID, app.QuestionInput{
		Text:              "Duplicate order",
		Type:              domain.QuestionTypeText,
		Order:             ptr(0),
		CorrectAnswerText: ptr("x"),
	})
	if !errors.Is(err, domain.ErrOrderTaken) {
		t.Fatalf("expected order clash, got %v", err)
	}

	_, err = env.catalog.AddQuestion(ctx, "5f0c9b9e-6f7e-4d55-9f0b-6a3c7f1f2a10", app.QuestionInput{Text: "x", Type: domain.QuestionTypeText, CorrectAnswerText: ptr("x")})
	if !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

func TestUpdateQuestionReplacesOptionsAndRevalidates(t *testing.T) {
	env := newTestEnv(app.TextPolicyExact)
	quiz := seedQuiz(t, env)
	ctx := context.Background()
	mcq := quiz.Questions[0]

	updated, err := env.catalog.UpdateQuestion(ctx, mcq.ID, app.QuestionPatch{
		Options: []app.OptionInput{{Text: "Marseille"}, {Text: "Paris", IsCorrect: true}, {Text: "Nice"}},
	})
	if err != nil {
		t.Fatalf("update options: %v", err)
	}
	if len(updated.Options) != 3 || updated.Text != mcq.Text || updated.Points != 2 {
		t.Fatalf("unexpected updated question: %+v", updated)
	}

	_, err = env.catalog.UpdateQuestion(ctx, mcq.ID, app.QuestionPatch{Type: ptr(domain.QuestionTypeText)})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("changing to TEXT without an answer must fail, got %v", err)
	}

	converted, err := env.catalog.UpdateQuestion(ctx, mcq.ID, app.QuestionPatch{
		Type:              ptr(domain.QuestionTypeText),
		CorrectAnswerText: ptr("Paris"),
	})
	if err != nil {
		t.Fatalf("convert to text: %v", err)
	}
	if converted.Options != nil || converted.CorrectAnswer == nil {
		t.Fatalf("expected options dropped for text question, got %+v", converted)
	}

	_, err = env.catalog.UpdateQuestion(ctx, mcq.ID, app.QuestionPatch{Order: ptr(1)})
	if !errors.Is(err, domain.ErrOrderTaken) {
		t.Fatalf("expected order clash, got %v", err)
	}
}

func TestDeleteQuizCascades(t *testing.T) {
	env := newTestEnv(app.TextPolicyExact)
	quiz := seedQuiz(t, env)
	ctx := context.Background()

	sub, err := env.submissions.Submit(ctx, quiz.Slug, nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := env.catalog.DeleteQuiz(ctx, quiz.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, q := range quiz.Questions {
		if _, err := env.store.GetQuestion(ctx, q.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("question %s survived quiz delete: %v", q.ID, err)
		}
	}
	if _, err := env.submissions.GetSubmission(ctx, sub.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("submission survived quiz delete: %v", err)
	}
	if _, err := env.submissions.GetPublicQuiz(ctx, quiz.Slug); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("deleted quiz still served from cache: %v", err)
	}
}

func TestCatalogMutationsInvalidateCache(t *testing.T) {
	env := newTestEnv(app.TextPolicyExact)
	quiz := seedQuiz(t, env)
	ctx := context.Background()

	if _, err := env.submissions.GetPublicQuiz(ctx, quiz.Slug); err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	if _, err := env.catalog.AddQuestion(ctx, quiz.ID, app.QuestionInput{
		Text: "Capital of Spain?", Type: domain.QuestionTypeText, CorrectAnswerText: ptr("Madrid"),
	}); err != nil {
		t.Fatalf("add question: %v", err)
	}
	public, err := env.submissions.GetPublicQuiz(ctx, quiz.Slug)
	if err != nil {
		t.Fatalf("get public quiz: %v", err)
	}
	if public.QuestionCount != 3 {
		t.Fatalf("expected fresh snapshot with 3 questions, got %d", public.QuestionCount)
	}

	renamed, err := env.catalog.UpdateQuiz(ctx, quiz.ID, app.QuizPatch{Slug: ptr("capitals")})
	if err != nil {
		t.Fatalf("rename slug: %v", err)
	}
	if _, err := env.submissions.GetPublicQuiz(ctx, quiz.Slug); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("old slug still served: %v", err)
	}
	if _, err := env.submissions.GetPublicQuiz(ctx, renamed.Slug); err != nil {
		t.Fatalf("new slug not served: %v", err)
	}
}

func TestGetQuizWithMalformedIDIsNotFound(t *testing.T) {
	env := newTestEnv(app.TextPolicyExact)
	if _, err := env.catalog.GetQuiz(context.Background(), "not-a-uuid"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := env.catalog.DeleteQuestion(context.Background(), "nope"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}
}

func TestGetQuizBySlugIncludesInactive(t *testing.T) {
	env := newTestEnv(app.TextPolicyExact)
	quiz := seedQuiz(t, env)
	ctx := context.Background()

	if _, err := env.catalog.UpdateQuiz(ctx, quiz.ID, app.QuizPatch{IsActive: ptr(false)}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	got, err := env.catalog.GetQuizBySlug(ctx, quiz.Slug)
	if err != nil {
		t.Fatalf("get inactive quiz by slug: %v", err)
	}
	if got.ID != quiz.ID || got.IsActive || len(got.Questions) != 2 {
		t.Fatalf("unexpected quiz: %+v", got)
	}
	if _, err := env.catalog.GetQuizBySlug(ctx, "no-such-quiz"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateQuizClearsDescription(t *testing.T) {
	env := newTestEnv(app.TextPolicyExact)
	ctx := context.Background()
	quiz, err := env.catalog.CreateQuiz(ctx, app.QuizInput{Title: "Described", Description: ptr("to be removed")})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	kept, err := env.catalog.UpdateQuiz(ctx, quiz.ID, app.QuizPatch{Title: ptr("Described Again")})
	if err != nil {
		t.Fatalf("update title: %v", err)
	}
	if kept.Description == nil || *kept.Description != "to be removed" {
		t.Fatalf("omitted description should be kept, got %v", kept.Description)
	}

	cleared, err := env.catalog.UpdateQuiz(ctx, quiz.ID, app.QuizPatch{ClearDescription: true})
	if err != nil {
		t.Fatalf("clear description: %v", err)
	}
	if cleared.Description != nil {
		t.Fatalf("expected description cleared, got %q", *cleared.Description)
	}
}
