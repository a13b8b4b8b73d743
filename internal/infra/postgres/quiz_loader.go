package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-portal-service/internal/domain"
)

// QuizLoader builds public quiz snapshots, answer key included, straight
// from Postgres. Only active quizzes are visible.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, slug string) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := l.pool.QueryRow(ctx, `
		SELECT id::text, title, slug, description, is_active, created_at, updated_at
		FROM quizzes
		WHERE slug = $1 AND is_active`, slug).
		Scan(&quiz.ID, &quiz.Title, &quiz.Slug, &quiz.Description, &quiz.IsActive, &quiz.CreatedAt, &quiz.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}

	if err := l.loadQuestions(ctx, &quiz); err != nil {
		return domain.Quiz{}, err
	}
	if err := l.loadOptions(ctx, &quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func (l *QuizLoader) loadQuestions(ctx context.Context, quiz *domain.Quiz) error {
	rows, err := l.pool.Query(ctx, `
		SELECT q.id::text, q.question_text, q.question_type, q.position, q.points, q.created_at,
		       ca.id::text, ca.answer_text
		FROM questions q
		LEFT JOIN correct_answers ca ON ca.question_id = q.id
		WHERE q.quiz_id = $1
		ORDER BY q.position, q.created_at`, quiz.ID)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			q          domain.Question
			qType      string
			answerID   *string
			answerText *string
		)
		if err := rows.Scan(&q.ID, &q.Text, &qType, &q.Order, &q.Points, &q.CreatedAt, &answerID, &answerText); err != nil {
			return fmt.Errorf("scan question: %w", err)
		}
		q.QuizID = quiz.ID
		q.Type = domain.QuestionType(qType)
		if answerID != nil && answerText != nil {
			q.CorrectAnswer = &domain.CorrectAnswer{ID: *answerID, Text: *answerText}
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	return rows.Err()
}

func (l *QuizLoader) loadOptions(ctx context.Context, quiz *domain.Quiz) error {
	index := make(map[string]int, len(quiz.Questions))
	for i, q := range quiz.Questions {
		index[q.ID] = i
	}

	rows, err := l.pool.Query(ctx, `
		SELECT o.id::text, o.question_id::text, o.option_text, o.is_correct, o.position
		FROM options o
		JOIN questions q ON q.id = o.question_id
		WHERE q.quiz_id = $1
		ORDER BY o.position`, quiz.ID)
	if err != nil {
		return fmt.Errorf("load options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			opt        domain.Option
			questionID string
		)
		if err := rows.Scan(&opt.ID, &questionID, &opt.Text, &opt.IsCorrect, &opt.Order); err != nil {
			return fmt.Errorf("scan option: %w", err)
		}
		if i, ok := index[questionID]; ok {
			quiz.Questions[i].Options = append(quiz.Questions[i].Options, opt)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range quiz.Questions {
		quiz.Questions[i].Normalize()
	}
	return nil
}
