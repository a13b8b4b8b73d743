package domain

import "time"

// PublicQuiz is the pre-submission view of a quiz: no option correctness and
// no canonical answers.
type PublicQuiz struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Slug          string           `json:"slug"`
	Description   *string          `json:"description"`
	IsActive      bool             `json:"is_active"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	Questions     []PublicQuestion `json:"questions"`
	QuestionCount int              `json:"question_count"`
}

type PublicQuestion struct {
	ID      string         `json:"id"`
	Text    string         `json:"question_text"`
	Type    QuestionType   `json:"question_type"`
	Order   int            `json:"order"`
	Points  int            `json:"points"`
	Options []PublicOption `json:"options,omitempty"`
}

type PublicOption struct {
	ID    string `json:"id"`
	Text  string `json:"option_text"`
	Order int    `json:"order"`
}

// Public returns the redacted view of the quiz.
func (q Quiz) Public() PublicQuiz {
	out := PublicQuiz{
		ID:            q.ID,
		Title:         q.Title,
		Slug:          q.Slug,
		Description:   q.Description,
		IsActive:      q.IsActive,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
		Questions:     make([]PublicQuestion, 0, len(q.Questions)),
		QuestionCount: len(q.Questions),
	}
	for _, question := range q.Questions {
		pq := PublicQuestion{
			ID:     question.ID,
			Text:   question.Text,
			Type:   question.Type,
			Order:  question.Order,
			Points: question.Points,
		}
		for _, opt := range question.Options {
			pq.Options = append(pq.Options, PublicOption{ID: opt.ID, Text: opt.Text, Order: opt.Order})
		}
		out.Questions = append(out.Questions, pq)
	}
	return out
}
