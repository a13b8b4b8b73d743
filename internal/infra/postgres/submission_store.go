package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-portal-service/internal/domain"
)

// SubmissionStore keeps graded submissions in Postgres. A submission and its
// answers are written in one transaction.
type SubmissionStore struct {
	pool *pgxpool.Pool
}

func NewSubmissionStore(pool *pgxpool.Pool) *SubmissionStore {
	return &SubmissionStore{pool: pool}
}

func (s *SubmissionStore) SaveSubmission(ctx context.Context, submission domain.Submission) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
		INSERT INTO submissions (id, quiz_id, quiz_title, submitted_at, score, total_points)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		submission.ID, submission.QuizID, submission.QuizTitle, submission.SubmittedAt, submission.Score, submission.TotalPoints)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domain.ErrQuizNotFound
		}
		return fmt.Errorf("insert submission: %w", err)
	}

	batch := &pgx.Batch{}
	for i, a := range submission.Answers {
		batch.Queue(`
			INSERT INTO submission_answers
				(id, submission_id, question_id, question_text, question_type, answer_text, is_correct, points_earned, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			a.ID, submission.ID, a.QuestionID, a.QuestionText, string(a.QuestionType), a.AnswerText, a.IsCorrect, a.PointsEarned, i)
	}
	results := tx.SendBatch(ctx, batch)
	for range submission.Answers {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("insert submission answer: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	return tx.Commit(ctx)
}

// ListSubmissions returns the submissions of a quiz, newest first.
func (s *SubmissionStore) ListSubmissions(ctx context.Context, quizID string) ([]domain.Submission, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, quiz_id::text, quiz_title, submitted_at, score, total_points
		FROM submissions
		WHERE quiz_id = $1
		ORDER BY submitted_at DESC, id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	submissions, err := scanSubmissions(rows)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(submissions))
	for i, sub := range submissions {
		index[sub.ID] = i
	}
	answerRows, err := s.pool.Query(ctx, `
		SELECT a.submission_id::text, a.id::text, a.question_id::text, a.question_text, a.question_type,
		       a.answer_text, a.is_correct, a.points_earned
		FROM submission_answers a
		JOIN submissions s ON s.id = a.submission_id
		WHERE s.quiz_id = $1
		ORDER BY a.submission_id, a.position`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list submission answers: %w", err)
	}
	defer answerRows.Close()
	for answerRows.Next() {
		subID, answer, err := scanAnswer(answerRows, true)
		if err != nil {
			return nil, err
		}
		if i, ok := index[subID]; ok {
			submissions[i].Answers = append(submissions[i].Answers, answer)
		}
	}
	return submissions, answerRows.Err()
}

func (s *SubmissionStore) GetSubmission(ctx context.Context, id string) (domain.Submission, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, quiz_id::text, quiz_title, submitted_at, score, total_points
		FROM submissions
		WHERE id = $1`, id)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("get submission: %w", err)
	}
	submissions, err := scanSubmissions(rows)
	if err != nil {
		return domain.Submission{}, err
	}
	if len(submissions) == 0 {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	submission := submissions[0]

	answerRows, err := s.pool.Query(ctx, `
		SELECT id::text, question_id::text, question_text, question_type, answer_text, is_correct, points_earned
		FROM submission_answers
		WHERE submission_id = $1
		ORDER BY position`, id)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("get submission answers: %w", err)
	}
	defer answerRows.Close()
	for answerRows.Next() {
		_, answer, err := scanAnswer(answerRows, false)
		if err != nil {
			return domain.Submission{}, err
		}
		submission.Answers = append(submission.Answers, answer)
	}
	return submission, answerRows.Err()
}

func scanSubmissions(rows pgx.Rows) ([]domain.Submission, error) {
	defer rows.Close()
	submissions := make([]domain.Submission, 0)
	for rows.Next() {
		var sub domain.Submission
		if err := rows.Scan(&sub.ID, &sub.QuizID, &sub.QuizTitle, &sub.SubmittedAt, &sub.Score, &sub.TotalPoints); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		sub.Answers = []domain.SubmissionAnswer{}
		submissions = append(submissions, sub)
	}
	return submissions, rows.Err()
}

// scanAnswer reads one submission_answers row. withSubmission expects the
// submission id as the leading column.
func scanAnswer(rows pgx.Rows, withSubmission bool) (string, domain.SubmissionAnswer, error) {
	var (
		subID  string
		answer domain.SubmissionAnswer
		qType  string
	)
	dest := []interface{}{&answer.ID, &answer.QuestionID, &answer.QuestionText, &qType, &answer.AnswerText, &answer.IsCorrect, &answer.PointsEarned}
	if withSubmission {
		dest = append([]interface{}{&subID}, dest...)
	}
	if err := rows.Scan(dest...); err != nil {
		return "", domain.SubmissionAnswer{}, fmt.Errorf("scan submission answer: %w", err)
	}
	answer.QuestionType = domain.QuestionType(qType)
	return subID, answer, nil
}
