package domain

import (
	"encoding/json"
	"time"
)

// QuestionType discriminates how a question is answered and graded.
type QuestionType string

const (
	QuestionTypeMCQ       QuestionType = "MCQ"
	QuestionTypeTrueFalse QuestionType = "TRUE_FALSE"
	QuestionTypeText      QuestionType = "TEXT"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeMCQ, QuestionTypeTrueFalse, QuestionTypeText:
		return true
	}
	return false
}

// Quiz is a named, ordered collection of questions reachable publicly by slug.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Description *string    `json:"description"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Questions   []Question `json:"questions"`
}

// MarshalJSON adds question_count so list and detail views always agree.
func (q Quiz) MarshalJSON() ([]byte, error) {
	type alias Quiz
	questions := q.Questions
	if questions == nil {
		questions = []Question{}
	}
	return json.Marshal(struct {
		alias
		Questions     []Question `json:"questions"`
		QuestionCount int        `json:"question_count"`
	}{
		alias:         alias(q),
		Questions:     questions,
		QuestionCount: len(questions),
	})
}

// TotalPoints sums the point value of every question.
func (q Quiz) TotalPoints() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

// Question is a single gradable item. MCQ questions carry Options; TRUE_FALSE
// and TEXT questions carry a CorrectAnswer. Normalize drops whichever does not
// belong to the type.
type Question struct {
	ID            string         `json:"id"`
	QuizID        string         `json:"quiz"`
	Text          string         `json:"question_text"`
	Type          QuestionType   `json:"question_type"`
	Order         int            `json:"order"`
	Points        int            `json:"points"`
	Options       []Option       `json:"options,omitempty"`
	CorrectAnswer *CorrectAnswer `json:"correct_answer,omitempty"`
	CreatedAt     time.Time      `json:"-"`
}

// Normalize clears the variant data that does not apply to the question type.
func (q *Question) Normalize() {
	switch q.Type {
	case QuestionTypeMCQ:
		q.CorrectAnswer = nil
	default:
		q.Options = nil
	}
}

// Option is one selectable choice of an MCQ question.
type Option struct {
	ID        string `json:"id"`
	Text      string `json:"option_text"`
	IsCorrect bool   `json:"is_correct"`
	Order     int    `json:"order"`
}

// CorrectAnswer holds the canonical answer of a TRUE_FALSE or TEXT question.
type CorrectAnswer struct {
	ID   string `json:"id"`
	Text string `json:"correct_answer"`
}

// AnswerSubmission is one raw answer sent by a quiz taker.
type AnswerSubmission struct {
	QuestionID string `json:"question_id"`
	AnswerText string `json:"answer_text"`
}

// Submission is one graded attempt at a quiz. Score is nil while any answer
// is pending manual review.
type Submission struct {
	ID          string             `json:"id"`
	QuizID      string             `json:"quiz"`
	QuizTitle   string             `json:"quiz_title"`
	SubmittedAt time.Time          `json:"submitted_at"`
	Score       *int               `json:"score"`
	TotalPoints int                `json:"total_points"`
	Answers     []SubmissionAnswer `json:"answers"`
}

// SubmissionAnswer records the grading outcome for one question. IsCorrect is
// nil when the answer needs manual review.
type SubmissionAnswer struct {
	ID           string       `json:"id"`
	QuestionID   string       `json:"question"`
	QuestionText string       `json:"question_text"`
	QuestionType QuestionType `json:"question_type"`
	AnswerText   string       `json:"answer_text"`
	IsCorrect    *bool        `json:"is_correct"`
	PointsEarned int          `json:"points_earned"`
}
