package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/gosimple/slug"
)

const (
	maxTitleLength      = 200
	maxSlugLength       = 200
	maxOptionTextLength = 500
)

// MakeSlug derives a URL-safe slug from a title.
func MakeSlug(title string) string {
	s := slug.Make(title)
	if len(s) > maxSlugLength {
		s = strings.TrimRight(s[:maxSlugLength], "-_")
	}
	return s
}

// ValidateQuiz checks the quiz level fields. Questions are validated separately.
func ValidateQuiz(q Quiz) error {
	title := strings.TrimSpace(q.Title)
	if title == "" {
		return Invalid("title", "is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return Invalid("title", "must be at most %d characters", maxTitleLength)
	}
	if q.Slug == "" {
		return Invalid("slug", "could not be derived from the title")
	}
	if len(q.Slug) > maxSlugLength || !slug.IsSlug(q.Slug) {
		return Invalid("slug", "must be lowercase letters, digits, hyphens or underscores")
	}
	return nil
}

// ValidateQuestion enforces the per-type invariants: MCQ questions need at
// least one option and exactly one correct option, TRUE_FALSE and TEXT
// questions need exactly one canonical answer.
func ValidateQuestion(q Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return Invalid("question_text", "is required")
	}
	if !q.Type.Valid() {
		return Invalid("question_type", "must be one of MCQ, TRUE_FALSE, TEXT")
	}
	if q.Points <= 0 {
		return Invalid("points", "must be a positive integer")
	}
	if q.Order < 0 {
		return Invalid("order", "must not be negative")
	}

	switch q.Type {
	case QuestionTypeMCQ:
		if len(q.Options) == 0 {
			return Invalid("options", "multiple choice questions need at least one option")
		}
		correct := 0
		for _, opt := range q.Options {
			if strings.TrimSpace(opt.Text) == "" {
				return Invalid("options", "option_text is required")
			}
			if utf8.RuneCountInString(opt.Text) > maxOptionTextLength {
				return Invalid("options", "option_text must be at most %d characters", maxOptionTextLength)
			}
			if opt.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			return Invalid("options", "exactly one option must be marked correct, got %d", correct)
		}
	case QuestionTypeTrueFalse:
		if q.CorrectAnswer == nil {
			return Invalid("correct_answer_text", "is required for true/false questions")
		}
		switch strings.ToLower(strings.TrimSpace(q.CorrectAnswer.Text)) {
		case "true", "false":
		default:
			return Invalid("correct_answer_text", "must be \"True\" or \"False\"")
		}
	case QuestionTypeText:
		if q.CorrectAnswer == nil || strings.TrimSpace(q.CorrectAnswer.Text) == "" {
			return Invalid("correct_answer_text", "is required for text questions")
		}
	}
	return nil
}
