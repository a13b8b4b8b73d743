package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"quiz-portal-service/internal/domain"
)

const submissionsChannel = "quiz:submissions"

// LocalFeed delivers submissions to listeners on this instance.
type LocalFeed interface {
	Publish(submission domain.Submission)
}

// SubmissionRelay fans submissions out across instances through Redis
// pub/sub. Publish sends to the channel; Start forwards everything received
// on the channel, including this instance's own messages, to the local feed.
type SubmissionRelay struct {
	client *redis.Client
	local  LocalFeed
	logger *zap.Logger
}

func NewSubmissionRelay(client *redis.Client, local LocalFeed, logger *zap.Logger) *SubmissionRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionRelay{client: client, local: local, logger: logger}
}

// Publish sends submission to every instance. When Redis is unreachable the
// submission is still delivered locally.
func (r *SubmissionRelay) Publish(submission domain.Submission) {
	raw, err := json.Marshal(submission)
	if err != nil {
		r.logger.Error("encode submission", zap.String("submission_id", submission.ID), zap.Error(err))
		r.local.Publish(submission)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.client.Publish(ctx, submissionsChannel, raw).Err(); err != nil {
		r.logger.Warn("publish submission", zap.String("submission_id", submission.ID), zap.Error(err))
		r.local.Publish(submission)
	}
}

// Start subscribes to the channel and forwards messages until ctx is done.
// It returns once the subscription is confirmed.
func (r *SubmissionRelay) Start(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, submissionsChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}

	go func() {
		defer pubsub.Close()
		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var submission domain.Submission
				if err := json.Unmarshal([]byte(msg.Payload), &submission); err != nil {
					r.logger.Warn("decode relayed submission", zap.Error(err))
					continue
				}
				r.local.Publish(submission)
			}
		}
	}()
	return nil
}
