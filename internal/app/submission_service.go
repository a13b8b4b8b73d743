package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"quiz-portal-service/internal/domain"
)

// SubmissionMetrics receives one observation per graded submission.
type SubmissionMetrics interface {
	ObserveSubmission(slug string, score *int, totalPoints int, elapsed time.Duration)
}

// SubmissionPublisher announces stored submissions to live listeners.
type SubmissionPublisher interface {
	Publish(submission domain.Submission)
}

// SubmissionDeps wires a SubmissionService. Feed, Publisher, Metrics and
// Logger are optional. Publisher defaults to Feed; set it when submissions
// must reach listeners on other instances.
type SubmissionDeps struct {
	Quizzes     QuizRepository
	Catalog     CatalogRepository
	Submissions SubmissionRepository
	Grader      Grader
	Feed        *SubmissionFeed
	Publisher   SubmissionPublisher
	Metrics     SubmissionMetrics
	Logger      *zap.Logger
}

// SubmissionService implements the public quiz-taking use cases and the
// admin views over submission history.
type SubmissionService struct {
	quizzes     QuizRepository
	catalog     CatalogRepository
	submissions SubmissionRepository
	grader      Grader
	feed        *SubmissionFeed
	publisher   SubmissionPublisher
	metrics     SubmissionMetrics
	logger      *zap.Logger
	now         func() time.Time
}

func NewSubmissionService(deps SubmissionDeps) *SubmissionService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	feed := deps.Feed
	if feed == nil {
		feed = NewSubmissionFeed()
	}
	var publisher SubmissionPublisher = feed
	if deps.Publisher != nil {
		publisher = deps.Publisher
	}
	return &SubmissionService{
		quizzes:     deps.Quizzes,
		catalog:     deps.Catalog,
		submissions: deps.Submissions,
		grader:      deps.Grader,
		feed:        feed,
		publisher:   publisher,
		metrics:     deps.Metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// GetPublicQuiz returns the redacted view of an active quiz.
func (s *SubmissionService) GetPublicQuiz(ctx context.Context, slug string) (domain.PublicQuiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, slug)
	if err != nil {
		return domain.PublicQuiz{}, err
	}
	return quiz.Public(), nil
}

// Submit grades answers against the active quiz identified by slug, stores the
// submission and notifies live subscribers.
func (s *SubmissionService) Submit(ctx context.Context, slug string, answers []domain.AnswerSubmission) (domain.Submission, error) {
	ctx, span := otel.Tracer("quiz-portal-service/app").Start(ctx, "SubmissionService.Submit")
	defer span.End()
	span.SetAttributes(attribute.String("quiz.slug", slug), attribute.Int("answers.count", len(answers)))

	start := s.now()
	quiz, err := s.quizzes.GetQuiz(ctx, slug)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load quiz")
		return domain.Submission{}, err
	}

	result := s.grader.Grade(quiz, answers)
	submission := domain.Submission{
		ID:          uuid.NewString(),
		QuizID:      quiz.ID,
		QuizTitle:   quiz.Title,
		SubmittedAt: start.UTC(),
		Score:       result.Score,
		TotalPoints: result.TotalPoints,
		Answers:     result.Answers,
	}
	for i := range submission.Answers {
		submission.Answers[i].ID = uuid.NewString()
	}

	if err := s.submissions.SaveSubmission(ctx, submission); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save submission")
		return domain.Submission{}, fmt.Errorf("save submission: %w", err)
	}

	s.publisher.Publish(submission)
	if s.metrics != nil {
		s.metrics.ObserveSubmission(slug, submission.Score, submission.TotalPoints, s.now().Sub(start))
	}
	s.logger.Info("submission graded",
		zap.String("quiz_id", quiz.ID),
		zap.String("submission_id", submission.ID),
		zap.Intp("score", submission.Score),
		zap.Int("total_points", submission.TotalPoints),
	)
	return submission, nil
}

// ListSubmissions returns the submissions of a quiz, newest first.
func (s *SubmissionService) ListSubmissions(ctx context.Context, quizID string) ([]domain.Submission, error) {
	if !validID(quizID) {
		return nil, domain.ErrQuizNotFound
	}
	if _, err := s.catalog.GetQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	return s.submissions.ListSubmissions(ctx, quizID)
}

func (s *SubmissionService) GetSubmission(ctx context.Context, id string) (domain.Submission, error) {
	if !validID(id) {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	return s.submissions.GetSubmission(ctx, id)
}

// Subscribe streams new submissions of a quiz. The caller must invoke the
// returned cancel function to avoid leaks.
func (s *SubmissionService) Subscribe(ctx context.Context, quizID string) (<-chan domain.Submission, func(), error) {
	if !validID(quizID) {
		return nil, nil, domain.ErrQuizNotFound
	}
	if _, err := s.catalog.GetQuiz(ctx, quizID); err != nil {
		return nil, nil, err
	}
	ch, cancel := s.feed.Subscribe(quizID)
	return ch, cancel, nil
}
