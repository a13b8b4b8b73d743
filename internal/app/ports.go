package app

import (
	"context"

	"quiz-portal-service/internal/domain"
)

// CatalogRepository persists quizzes together with their questions, options
// and canonical answers.
type CatalogRepository interface {
	CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
	GetQuiz(ctx context.Context, id string) (domain.Quiz, error)
	GetQuizBySlug(ctx context.Context, slug string) (domain.Quiz, error)
	UpdateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	// DeleteQuiz removes the quiz, its questions and its submissions.
	DeleteQuiz(ctx context.Context, id string) error

	CreateQuestion(ctx context.Context, question domain.Question) (domain.Question, error)
	GetQuestion(ctx context.Context, id string) (domain.Question, error)
	// UpdateQuestion replaces the question row and all of its options and answers.
	UpdateQuestion(ctx context.Context, question domain.Question) (domain.Question, error)
	DeleteQuestion(ctx context.Context, id string) error
}

// SubmissionRepository stores graded submissions.
type SubmissionRepository interface {
	SaveSubmission(ctx context.Context, submission domain.Submission) error
	// ListSubmissions returns the submissions of a quiz, newest first.
	ListSubmissions(ctx context.Context, quizID string) ([]domain.Submission, error)
	GetSubmission(ctx context.Context, id string) (domain.Submission, error)
}

// QuizLoader fetches an active quiz with its answer key from the backing store.
// Inactive or unknown slugs yield domain.ErrQuizNotFound.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, slug string) (domain.Quiz, error)
}

// QuizRepository serves quiz snapshots by slug, usually through a cache.
type QuizRepository interface {
	GetQuiz(ctx context.Context, slug string) (domain.Quiz, error)
	// Invalidate drops any cached snapshot for slug.
	Invalidate(ctx context.Context, slug string) error
}
