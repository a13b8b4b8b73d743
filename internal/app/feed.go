package app

import (
	"sync"

	"quiz-portal-service/internal/domain"
)

const feedBuffer = 8

// SubmissionFeed fans new submissions out to live subscribers of a quiz.
type SubmissionFeed struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.Submission]struct{}
}

func NewSubmissionFeed() *SubmissionFeed {
	return &SubmissionFeed{subscribers: make(map[string]map[chan domain.Submission]struct{})}
}

// Subscribe registers a listener for quizID. The caller must invoke the
// returned cancel function, which closes the channel.
func (f *SubmissionFeed) Subscribe(quizID string) (<-chan domain.Submission, func()) {
	ch := make(chan domain.Submission, feedBuffer)

	f.mu.Lock()
	subs, ok := f.subscribers[quizID]
	if !ok {
		subs = make(map[chan domain.Submission]struct{})
		f.subscribers[quizID] = subs
	}
	subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		subs := f.subscribers[quizID]
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(f.subscribers, quizID)
		}
	}
	return ch, cancel
}

// Publish delivers submission to every subscriber of its quiz without
// blocking. A full subscriber loses its oldest pending update.
func (f *SubmissionFeed) Publish(submission domain.Submission) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers[submission.QuizID] {
		select {
		case ch <- submission:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- submission
		}
	}
}

// Subscribers reports how many listeners quizID currently has.
func (f *SubmissionFeed) Subscribers(quizID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers[quizID])
}
