package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quiz-portal-service/internal/domain"
)

// QuizInput is the payload for creating a quiz. A nil or empty Slug is derived
// from the title.
type QuizInput struct {
	Title       string
	Slug        *string
	Description *string
	IsActive    *bool
}

// QuizPatch updates only the fields that are set. ClearDescription removes
// the description and takes precedence over Description.
type QuizPatch struct {
	Title            *string
	Slug             *string
	Description      *string
	ClearDescription bool
	IsActive         *bool
}

type OptionInput struct {
	Text      string
	IsCorrect bool
	Order     *int
}

// QuestionInput is the payload for adding a question. Points default to 1 and
// Order defaults to the next free index of the quiz.
type QuestionInput struct {
	Text              string
	Type              domain.QuestionType
	Points            *int
	Order             *int
	Options           []OptionInput
	CorrectAnswerText *string
}

// QuestionPatch updates only the fields that are set. A non-nil Options slice,
// even an empty one, replaces the whole option set.
type QuestionPatch struct {
	Text              *string
	Type              *domain.QuestionType
	Points            *int
	Order             *int
	Options           []OptionInput
	CorrectAnswerText *string
}

// CatalogService implements quiz and question authoring.
type CatalogService struct {
	catalog CatalogRepository
	quizzes QuizRepository
	logger  *zap.Logger
	now     func() time.Time
}

func NewCatalogService(catalog CatalogRepository, quizzes QuizRepository, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{catalog: catalog, quizzes: quizzes, logger: logger, now: time.Now}
}

func (s *CatalogService) CreateQuiz(ctx context.Context, in QuizInput) (domain.Quiz, error) {
	now := s.now().UTC()
	quiz := domain.Quiz{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.IsActive != nil {
		quiz.IsActive = *in.IsActive
	}
	if in.Slug != nil && strings.TrimSpace(*in.Slug) != "" {
		quiz.Slug = strings.TrimSpace(*in.Slug)
	} else {
		quiz.Slug = domain.MakeSlug(quiz.Title)
	}
	if err := domain.ValidateQuiz(quiz); err != nil {
		return domain.Quiz{}, err
	}

	created, err := s.catalog.CreateQuiz(ctx, quiz)
	if err != nil {
		return domain.Quiz{}, err
	}
	s.invalidate(ctx, created.Slug)
	s.logger.Info("quiz created", zap.String("quiz_id", created.ID), zap.String("slug", created.Slug))
	return created, nil
}

func (s *CatalogService) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return s.catalog.ListQuizzes(ctx)
}

func (s *CatalogService) GetQuiz(ctx context.Context, id string) (domain.Quiz, error) {
	if !validID(id) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return s.catalog.GetQuiz(ctx, id)
}

// GetQuizBySlug returns a quiz regardless of its active flag, so admins can
// look up inactive quizzes by their public address.
func (s *CatalogService) GetQuizBySlug(ctx context.Context, slug string) (domain.Quiz, error) {
	return s.catalog.GetQuizBySlug(ctx, slug)
}

func (s *CatalogService) UpdateQuiz(ctx context.Context, id string, patch QuizPatch) (domain.Quiz, error) {
	current, err := s.GetQuiz(ctx, id)
	if err != nil {
		return domain.Quiz{}, err
	}
	oldSlug := current.Slug

	updated := current
	if patch.Title != nil {
		updated.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Slug != nil {
		updated.Slug = strings.TrimSpace(*patch.Slug)
	}
	switch {
	case patch.ClearDescription:
		updated.Description = nil
	case patch.Description != nil:
		updated.Description = patch.Description
	}
	if patch.IsActive != nil {
		updated.IsActive = *patch.IsActive
	}
	updated.UpdatedAt = s.now().UTC()
	if err := domain.ValidateQuiz(updated); err != nil {
		return domain.Quiz{}, err
	}

	saved, err := s.catalog.UpdateQuiz(ctx, updated)
	if err != nil {
		return domain.Quiz{}, err
	}
	s.invalidate(ctx, oldSlug, saved.Slug)
	return saved, nil
}

func (s *CatalogService) DeleteQuiz(ctx context.Context, id string) error {
	quiz, err := s.GetQuiz(ctx, id)
	if err != nil {
		return err
	}
	if err := s.catalog.DeleteQuiz(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, quiz.Slug)
	s.logger.Info("quiz deleted", zap.String("quiz_id", id))
	return nil
}

func (s *CatalogService) AddQuestion(ctx context.Context, quizID string, in QuestionInput) (domain.Question, error) {
	quiz, err := s.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Question{}, err
	}

	question := domain.Question{
		ID:        uuid.NewString(),
		QuizID:    quiz.ID,
		Text:      strings.TrimSpace(in.Text),
		Type:      domain.QuestionType(strings.ToUpper(string(in.Type))),
		Points:    1,
		Order:     nextOrder(quiz.Questions),
		Options:   buildOptions(in.Options),
		CreatedAt: s.now().UTC(),
	}
	if in.Points != nil {
		question.Points = *in.Points
	}
	if in.Order != nil {
		question.Order = *in.Order
	}
	if in.CorrectAnswerText != nil {
		question.CorrectAnswer = &domain.CorrectAnswer{ID: uuid.NewString(), Text: strings.TrimSpace(*in.CorrectAnswerText)}
	}
	question.Normalize()
	if err := domain.ValidateQuestion(question); err != nil {
		return domain.Question{}, err
	}
	if orderTaken(quiz.Questions, question) {
		return domain.Question{}, domain.ErrOrderTaken
	}

	created, err := s.catalog.CreateQuestion(ctx, question)
	if err != nil {
		return domain.Question{}, err
	}
	s.invalidate(ctx, quiz.Slug)
	return created, nil
}

func (s *CatalogService) UpdateQuestion(ctx context.Context, id string, patch QuestionPatch) (domain.Question, error) {
	if !validID(id) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	current, err := s.catalog.GetQuestion(ctx, id)
	if err != nil {
		return domain.Question{}, err
	}
	quiz, err := s.catalog.GetQuiz(ctx, current.QuizID)
	if err != nil {
		return domain.Question{}, err
	}

	updated := current
	if patch.Text != nil {
		updated.Text = strings.TrimSpace(*patch.Text)
	}
	if patch.Type != nil {
		updated.Type = domain.QuestionType(strings.ToUpper(string(*patch.Type)))
	}
	if patch.Points != nil {
		updated.Points = *patch.Points
	}
	if patch.Order != nil {
		updated.Order = *patch.Order
	}
	if patch.Options != nil {
		updated.Options = buildOptions(patch.Options)
	}
	if patch.CorrectAnswerText != nil {
		answer := &domain.CorrectAnswer{ID: uuid.NewString(), Text: strings.TrimSpace(*patch.CorrectAnswerText)}
		if current.CorrectAnswer != nil {
			answer.ID = current.CorrectAnswer.ID
		}
		updated.CorrectAnswer = answer
	}
	updated.Normalize()
	if err := domain.ValidateQuestion(updated); err != nil {
		return domain.Question{}, err
	}
	if orderTaken(quiz.Questions, updated) {
		return domain.Question{}, domain.ErrOrderTaken
	}

	saved, err := s.catalog.UpdateQuestion(ctx, updated)
	if err != nil {
		return domain.Question{}, err
	}
	s.invalidate(ctx, quiz.Slug)
	return saved, nil
}

func (s *CatalogService) DeleteQuestion(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrQuestionNotFound
	}
	question, err := s.catalog.GetQuestion(ctx, id)
	if err != nil {
		return err
	}
	if err := s.catalog.DeleteQuestion(ctx, id); err != nil {
		return err
	}
	if quiz, err := s.catalog.GetQuiz(ctx, question.QuizID); err == nil {
		s.invalidate(ctx, quiz.Slug)
	}
	return nil
}

// invalidate drops cached public snapshots. Failures only cost staleness
// until the TTL expires, so they are logged and not returned.
func (s *CatalogService) invalidate(ctx context.Context, slugs ...string) {
	if s.quizzes == nil {
		return
	}
	seen := make(map[string]struct{}, len(slugs))
	for _, slug := range slugs {
		if _, ok := seen[slug]; ok || slug == "" {
			continue
		}
		seen[slug] = struct{}{}
		if err := s.quizzes.Invalidate(ctx, slug); err != nil {
			s.logger.Warn("invalidate quiz cache", zap.String("slug", slug), zap.Error(err))
		}
	}
}

func buildOptions(in []OptionInput) []domain.Option {
	if in == nil {
		return nil
	}
	options := make([]domain.Option, 0, len(in))
	for i, opt := range in {
		order := i
		if opt.Order != nil {
			order = *opt.Order
		}
		options = append(options, domain.Option{
			ID:        uuid.NewString(),
			Text:      strings.TrimSpace(opt.Text),
			IsCorrect: opt.IsCorrect,
			Order:     order,
		})
	}
	return options
}

func nextOrder(questions []domain.Question) int {
	next := 0
	for _, q := range questions {
		if q.Order >= next {
			next = q.Order + 1
		}
	}
	return next
}

func orderTaken(questions []domain.Question, candidate domain.Question) bool {
	for _, q := range questions {
		if q.ID != candidate.ID && q.Order == candidate.Order {
			return true
		}
	}
	return false
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
