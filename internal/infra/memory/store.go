package memory

import (
	"context"
	"sort"
	"sync"

	"quiz-portal-service/internal/domain"
)

// Store is an in-memory implementation of app.CatalogRepository,
// app.SubmissionRepository and the quiz loader used by the snapshot caches.
// Every value crossing its boundary is deep-copied.
type Store struct {
	mu          sync.RWMutex
	quizzes     map[string]*domain.Quiz
	submissions map[string]domain.Submission
}

func NewStore() *Store {
	return &Store{
		quizzes:     make(map[string]*domain.Quiz),
		submissions: make(map[string]domain.Submission),
	}
}

func (s *Store) CreateQuiz(_ context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slugTakenLocked(quiz.Slug, quiz.ID) {
		return domain.Quiz{}, domain.ErrSlugTaken
	}
	stored := copyQuiz(quiz)
	stored.Questions = nil
	s.quizzes[quiz.ID] = &stored
	return copyQuiz(stored), nil
}

// ListQuizzes returns every quiz, newest first.
func (s *Store) ListQuizzes(_ context.Context) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0, len(s.quizzes))
	for _, quiz := range s.quizzes {
		out = append(out, copyQuiz(*quiz))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetQuiz(_ context.Context, id string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return copyQuiz(*quiz), nil
}

func (s *Store) GetQuizBySlug(_ context.Context, slug string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if quiz := s.bySlugLocked(slug); quiz != nil {
		return copyQuiz(*quiz), nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

// LoadQuiz returns the active quiz owning slug.
func (s *Store) LoadQuiz(_ context.Context, slug string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz := s.bySlugLocked(slug)
	if quiz == nil || !quiz.IsActive {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return copyQuiz(*quiz), nil
}

func (s *Store) UpdateQuiz(_ context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.quizzes[quiz.ID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if s.slugTakenLocked(quiz.Slug, quiz.ID) {
		return domain.Quiz{}, domain.ErrSlugTaken
	}
	current.Title = quiz.Title
	current.Slug = quiz.Slug
	current.Description = copyString(quiz.Description)
	current.IsActive = quiz.IsActive
	current.UpdatedAt = quiz.UpdatedAt
	return copyQuiz(*current), nil
}

// DeleteQuiz removes the quiz with its questions and submissions.
func (s *Store) DeleteQuiz(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[id]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, id)
	for subID, sub := range s.submissions {
		if sub.QuizID == id {
			delete(s.submissions, subID)
		}
	}
	return nil
}

func (s *Store) CreateQuestion(_ context.Context, question domain.Question) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[question.QuizID]
	if !ok {
		return domain.Question{}, domain.ErrQuizNotFound
	}
	if orderTakenLocked(quiz, question) {
		return domain.Question{}, domain.ErrOrderTaken
	}
	quiz.Questions = append(quiz.Questions, copyQuestion(question))
	sortQuestions(quiz.Questions)
	return copyQuestion(question), nil
}

func (s *Store) GetQuestion(_ context.Context, id string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, idx := s.questionLocked(id)
	if quiz == nil {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return copyQuestion(quiz.Questions[idx]), nil
}

func (s *Store) UpdateQuestion(_ context.Context, question domain.Question) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, idx := s.questionLocked(question.ID)
	if quiz == nil {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if orderTakenLocked(quiz, question) {
		return domain.Question{}, domain.ErrOrderTaken
	}
	question.QuizID = quiz.ID
	question.CreatedAt = quiz.Questions[idx].CreatedAt
	quiz.Questions[idx] = copyQuestion(question)
	sortQuestions(quiz.Questions)
	return copyQuestion(question), nil
}

func (s *Store) DeleteQuestion(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, idx := s.questionLocked(id)
	if quiz == nil {
		return domain.ErrQuestionNotFound
	}
	quiz.Questions = append(quiz.Questions[:idx], quiz.Questions[idx+1:]...)
	return nil
}

func (s *Store) SaveSubmission(_ context.Context, submission domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[submission.QuizID]; !ok {
		return domain.ErrQuizNotFound
	}
	s.submissions[submission.ID] = copySubmission(submission)
	return nil
}

// ListSubmissions returns the submissions of a quiz, newest first.
func (s *Store) ListSubmissions(_ context.Context, quizID string) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Submission, 0)
	for _, sub := range s.submissions {
		if sub.QuizID == quizID {
			out = append(out, copySubmission(sub))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.After(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetSubmission(_ context.Context, id string) (domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[id]
	if !ok {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	return copySubmission(sub), nil
}

func (s *Store) bySlugLocked(slug string) *domain.Quiz {
	for _, quiz := range s.quizzes {
		if quiz.Slug == slug {
			return quiz
		}
	}
	return nil
}

func (s *Store) slugTakenLocked(slug, ownerID string) bool {
	quiz := s.bySlugLocked(slug)
	return quiz != nil && quiz.ID != ownerID
}

func (s *Store) questionLocked(id string) (*domain.Quiz, int) {
	for _, quiz := range s.quizzes {
		for i, q := range quiz.Questions {
			if q.ID == id {
				return quiz, i
			}
		}
	}
	return nil, -1
}

func orderTakenLocked(quiz *domain.Quiz, question domain.Question) bool {
	for _, q := range quiz.Questions {
		if q.ID != question.ID && q.Order == question.Order {
			return true
		}
	}
	return false
}

func sortQuestions(questions []domain.Question) {
	sort.SliceStable(questions, func(i, j int) bool {
		if questions[i].Order != questions[j].Order {
			return questions[i].Order < questions[j].Order
		}
		return questions[i].CreatedAt.Before(questions[j].CreatedAt)
	})
}

func copyQuiz(q domain.Quiz) domain.Quiz {
	out := q
	out.Description = copyString(q.Description)
	if q.Questions != nil {
		out.Questions = make([]domain.Question, len(q.Questions))
		for i, question := range q.Questions {
			out.Questions[i] = copyQuestion(question)
		}
	}
	return out
}

func copyQuestion(q domain.Question) domain.Question {
	out := q
	if q.Options != nil {
		out.Options = append([]domain.Option(nil), q.Options...)
		sort.SliceStable(out.Options, func(i, j int) bool { return out.Options[i].Order < out.Options[j].Order })
	}
	if q.CorrectAnswer != nil {
		answer := *q.CorrectAnswer
		out.CorrectAnswer = &answer
	}
	return out
}

func copySubmission(s domain.Submission) domain.Submission {
	out := s
	if s.Score != nil {
		score := *s.Score
		out.Score = &score
	}
	out.Answers = make([]domain.SubmissionAnswer, len(s.Answers))
	for i, a := range s.Answers {
		out.Answers[i] = a
		if a.IsCorrect != nil {
			correct := *a.IsCorrect
			out.Answers[i].IsCorrect = &correct
		}
	}
	return out
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
