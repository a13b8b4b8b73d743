package app

import (
	"fmt"
	"strings"

	"quiz-portal-service/internal/domain"
)

// TextPolicy controls how free-text answers are graded.
type TextPolicy string

const (
	// TextPolicyExact auto-grades TEXT answers by trimmed, case-insensitive match.
	TextPolicyExact TextPolicy = "exact"
	// TextPolicyReview leaves TEXT answers ungraded for manual review.
	TextPolicyReview TextPolicy = "review"
)

// ParseTextPolicy maps a config value to a TextPolicy. Empty means exact.
func ParseTextPolicy(raw string) (TextPolicy, error) {
	switch TextPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", TextPolicyExact:
		return TextPolicyExact, nil
	case TextPolicyReview:
		return TextPolicyReview, nil
	}
	return "", fmt.Errorf("unknown text grading policy %q", raw)
}

// GradeResult is the outcome of grading one answer set. Score is nil when any
// answer is pending review.
type GradeResult struct {
	Answers     []domain.SubmissionAnswer
	Score       *int
	TotalPoints int
}

// Grader scores answers against a quiz snapshot. It holds no mutable state.
type Grader struct {
	textPolicy TextPolicy
}

func NewGrader(policy TextPolicy) Grader {
	if policy == "" {
		policy = TextPolicyExact
	}
	return Grader{textPolicy: policy}
}

// Grade walks the quiz questions in order and grades the matching answer of
// each. Questions without an answer are graded as the empty string and answers
// to unknown questions are ignored.
func (g Grader) Grade(quiz domain.Quiz, answers []domain.AnswerSubmission) GradeResult {
	byQuestion := make(map[string]string, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a.AnswerText
	}

	result := GradeResult{Answers: make([]domain.SubmissionAnswer, 0, len(quiz.Questions))}
	score := 0
	pending := false
	for _, q := range quiz.Questions {
		result.TotalPoints += q.Points
		answer := byQuestion[q.ID]
		correct := g.gradeQuestion(q, answer)

		earned := 0
		switch {
		case correct == nil:
			pending = true
		case *correct:
			earned = q.Points
			score += earned
		}
		result.Answers = append(result.Answers, domain.SubmissionAnswer{
			QuestionID:   q.ID,
			QuestionText: q.Text,
			QuestionType: q.Type,
			AnswerText:   answer,
			IsCorrect:    correct,
			PointsEarned: earned,
		})
	}
	if !pending {
		result.Score = &score
	}
	return result
}

func (g Grader) gradeQuestion(q domain.Question, answer string) *bool {
	switch q.Type {
	case domain.QuestionTypeMCQ:
		selected := strings.TrimSpace(answer)
		for _, opt := range q.Options {
			if selected != "" && opt.ID == selected {
				return boolPtr(opt.IsCorrect)
			}
		}
		return boolPtr(false)
	case domain.QuestionTypeTrueFalse:
		return boolPtr(matchesAnswer(q, answer))
	case domain.QuestionTypeText:
		if g.textPolicy == TextPolicyReview {
			return nil
		}
		return boolPtr(matchesAnswer(q, answer))
	}
	return boolPtr(false)
}

func matchesAnswer(q domain.Question, answer string) bool {
	if q.CorrectAnswer == nil {
		return false
	}
	given := strings.TrimSpace(answer)
	return given != "" && strings.EqualFold(given, strings.TrimSpace(q.CorrectAnswer.Text))
}

func boolPtr(v bool) *bool {
	return &v
}
