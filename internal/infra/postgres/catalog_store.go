package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"quiz-portal-service/internal/domain"
)

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes,alias:qz"`

	ID          string         `bun:"id,pk,type:uuid"`
	Title       string         `bun:"title,notnull"`
	Slug        string         `bun:"slug,notnull"`
	Description *string        `bun:"description"`
	IsActive    bool           `bun:"is_active,notnull"`
	CreatedAt   time.Time      `bun:"created_at,notnull"`
	UpdatedAt   time.Time      `bun:"updated_at,notnull"`
	Questions   []*questionRow `bun:"rel:has-many,join:id=quiz_id"`
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:qs"`

	ID        string       `bun:"id,pk,type:uuid"`
	QuizID    string       `bun:"quiz_id,notnull,type:uuid"`
	Text      string       `bun:"question_text,notnull"`
	Type      string       `bun:"question_type,notnull"`
	Position  int          `bun:"position,notnull"`
	Points    int          `bun:"points,notnull"`
	CreatedAt time.Time    `bun:"created_at,notnull"`
	Options   []*optionRow `bun:"rel:has-many,join:id=question_id"`
	Answers   []*answerRow `bun:"rel:has-many,join:id=question_id"`
}

type optionRow struct {
	bun.BaseModel `bun:"table:options,alias:op"`

	ID         string `bun:"id,pk,type:uuid"`
	QuestionID string `bun:"question_id,notnull,type:uuid"`
	Text       string `bun:"option_text,notnull"`
	IsCorrect  bool   `bun:"is_correct,notnull"`
	Position   int    `bun:"position,notnull"`
}

type answerRow struct {
	bun.BaseModel `bun:"table:correct_answers,alias:ca"`

	ID         string `bun:"id,pk,type:uuid"`
	QuestionID string `bun:"question_id,notnull,type:uuid"`
	Text       string `bun:"answer_text,notnull"`
}

// CatalogStore persists quizzes and questions through bun.
type CatalogStore struct {
	db *bun.DB
}

func NewCatalogStore(db *bun.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

func (s *CatalogStore) CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	row := quizFromDomain(quiz)
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return domain.Quiz{}, mapWriteError("insert quiz", err)
	}
	return row.toDomain(), nil
}

// ListQuizzes returns every quiz with its questions, newest first.
func (s *CatalogStore) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	var rows []*quizRow
	err := s.selectQuizzes(&rows).
		OrderExpr("qz.created_at DESC, qz.id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	quizzes := make([]domain.Quiz, 0, len(rows))
	for _, row := range rows {
		quizzes = append(quizzes, row.toDomain())
	}
	return quizzes, nil
}

func (s *CatalogStore) GetQuiz(ctx context.Context, id string) (domain.Quiz, error) {
	return s.getQuiz(ctx, "qz.id = ?", id)
}

func (s *CatalogStore) GetQuizBySlug(ctx context.Context, slug string) (domain.Quiz, error) {
	return s.getQuiz(ctx, "qz.slug = ?", slug)
}

func (s *CatalogStore) UpdateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	row := quizFromDomain(quiz)
	res, err := s.db.NewUpdate().
		Model(row).
		Column("title", "slug", "description", "is_active", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Quiz{}, mapWriteError("update quiz", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return s.GetQuiz(ctx, quiz.ID)
}

// DeleteQuiz relies on ON DELETE CASCADE for questions, options, answers and submissions.
func (s *CatalogStore) DeleteQuiz(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().Model((*quizRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *CatalogStore) CreateQuestion(ctx context.Context, question domain.Question) (domain.Question, error) {
	row := questionFromDomain(question)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
			return mapWriteError("insert question", err)
		}
		return insertChildren(ctx, tx, row)
	})
	if err != nil {
		return domain.Question{}, err
	}
	return row.toDomain(), nil
}

func (s *CatalogStore) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	row := new(questionRow)
	err := s.db.NewSelect().
		Model(row).
		Relation("Options", orderOptions).
		Relation("Answers").
		Where("qs.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("get question: %w", err)
	}
	return row.toDomain(), nil
}

// UpdateQuestion rewrites the question row and replaces its options and answer.
func (s *CatalogStore) UpdateQuestion(ctx context.Context, question domain.Question) (domain.Question, error) {
	row := questionFromDomain(question)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model(row).
			Column("question_text", "question_type", "position", "points").
			WherePK().
			Exec(ctx)
		if err != nil {
			return mapWriteError("update question", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrQuestionNotFound
		}
		if _, err := tx.NewDelete().Model((*optionRow)(nil)).Where("question_id = ?", row.ID).Exec(ctx); err != nil {
			return fmt.Errorf("delete options: %w", err)
		}
		if _, err := tx.NewDelete().Model((*answerRow)(nil)).Where("question_id = ?", row.ID).Exec(ctx); err != nil {
			return fmt.Errorf("delete answer: %w", err)
		}
		return insertChildren(ctx, tx, row)
	})
	if err != nil {
		return domain.Question{}, err
	}
	return row.toDomain(), nil
}

func (s *CatalogStore) DeleteQuestion(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().Model((*questionRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (s *CatalogStore) getQuiz(ctx context.Context, where string, arg string) (domain.Quiz, error) {
	row := new(quizRow)
	err := s.selectQuizzes(row).Where(where, arg).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("get quiz: %w", err)
	}
	return row.toDomain(), nil
}

func (s *CatalogStore) selectQuizzes(model interface{}) *bun.SelectQuery {
	return s.db.NewSelect().
		Model(model).
		Relation("Questions", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("qs.position ASC, qs.created_at ASC")
		}).
		Relation("Questions.Options", orderOptions).
		Relation("Questions.Answers")
}

func orderOptions(q *bun.SelectQuery) *bun.SelectQuery {
	return q.OrderExpr("op.position ASC")
}

func insertChildren(ctx context.Context, tx bun.Tx, row *questionRow) error {
	if len(row.Options) > 0 {
		if _, err := tx.NewInsert().Model(&row.Options).Exec(ctx); err != nil {
			return fmt.Errorf("insert options: %w", err)
		}
	}
	if len(row.Answers) > 0 {
		if _, err := tx.NewInsert().Model(&row.Answers).Exec(ctx); err != nil {
			return fmt.Errorf("insert answer: %w", err)
		}
	}
	return nil
}

// mapWriteError translates constraint violations into domain errors.
func mapWriteError(op string, err error) error {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		switch pgErr.Field('C') {
		case "23505":
			switch pgErr.Field('n') {
			case "quizzes_slug_key":
				return domain.ErrSlugTaken
			case "questions_quiz_position_key":
				return domain.ErrOrderTaken
			}
			return fmt.Errorf("%s: %w", op, domain.ErrConflict)
		case "23503":
			return domain.ErrQuizNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func quizFromDomain(q domain.Quiz) *quizRow {
	return &quizRow{
		ID:          q.ID,
		Title:       q.Title,
		Slug:        q.Slug,
		Description: q.Description,
		IsActive:    q.IsActive,
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   q.UpdatedAt,
	}
}

func (r *quizRow) toDomain() domain.Quiz {
	quiz := domain.Quiz{
		ID:          r.ID,
		Title:       r.Title,
		Slug:        r.Slug,
		Description: r.Description,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	for _, q := range r.Questions {
		quiz.Questions = append(quiz.Questions, q.toDomain())
	}
	return quiz
}

func questionFromDomain(q domain.Question) *questionRow {
	row := &questionRow{
		ID:        q.ID,
		QuizID:    q.QuizID,
		Text:      q.Text,
		Type:      string(q.Type),
		Position:  q.Order,
		Points:    q.Points,
		CreatedAt: q.CreatedAt,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	for _, opt := range q.Options {
		row.Options = append(row.Options, &optionRow{
			ID:         opt.ID,
			QuestionID: q.ID,
			Text:       opt.Text,
			IsCorrect:  opt.IsCorrect,
			Position:   opt.Order,
		})
	}
	if q.CorrectAnswer != nil {
		row.Answers = append(row.Answers, &answerRow{
			ID:         q.CorrectAnswer.ID,
			QuestionID: q.ID,
			Text:       q.CorrectAnswer.Text,
		})
	}
	return row
}

func (r *questionRow) toDomain() domain.Question {
	question := domain.Question{
		ID:        r.ID,
		QuizID:    r.QuizID,
		Text:      r.Text,
		Type:      domain.QuestionType(r.Type),
		Order:     r.Position,
		Points:    r.Points,
		CreatedAt: r.CreatedAt,
	}
	for _, opt := range r.Options {
		question.Options = append(question.Options, domain.Option{
			ID:        opt.ID,
			Text:      opt.Text,
			IsCorrect: opt.IsCorrect,
			Order:     opt.Position,
		})
	}
	if len(r.Answers) > 0 {
		question.CorrectAnswer = &domain.CorrectAnswer{ID: r.Answers[0].ID, Text: r.Answers[0].Text}
	}
	question.Normalize()
	return question
}
