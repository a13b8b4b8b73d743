package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"quiz-portal-service/internal/domain"
)

// QuizLoader fetches an active quiz by slug from the backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, slug string) (domain.Quiz, error)
}

// fillScript stores a snapshot only if the slug version still matches the one
// read before loading. Invalidate bumps the version, so a load that raced with
// it is discarded.
var fillScript = redis.NewScript(`
local current = redis.call('GET', KEYS[2])
if (current or '0') ~= ARGV[1] then
	return 0
end
if ARGV[3] == '0' then
	redis.call('SET', KEYS[1], ARGV[2])
else
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
end
return 1
`)

// QuizRepository caches quiz snapshots in Redis and falls back to a loader on
// cache miss. Snapshots are stored as JSON under quiz:slug:{slug}, guarded by
// a counter under quiz:version:{slug}.
type QuizRepository struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	logger *zap.Logger
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader QuizLoader, ttl time.Duration, logger *zap.Logger) *QuizRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		logger: logger,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, slug string) (domain.Quiz, error) {
	if quiz, ok := r.lookup(ctx, slug); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(slug, func() (interface{}, error) {
		// Re-check cache in case another instance filled it.
		if quiz, ok := r.lookup(ctx, slug); ok {
			return quiz, nil
		}

		version, err := r.client.Get(ctx, r.versionKey(slug)).Result()
		switch {
		case errors.Is(err, redis.Nil):
			version = "0"
		case err != nil:
			r.logger.Warn("read quiz snapshot version", zap.String("slug", slug), zap.Error(err))
			version = ""
		}

		quiz, err := r.loader.LoadQuiz(ctx, slug)
		if err != nil {
			return domain.Quiz{}, err
		}
		if version == "" {
			return quiz, nil
		}

		raw, err := json.Marshal(quiz)
		if err != nil {
			return quiz, nil
		}
		keys := []string{r.key(slug), r.versionKey(slug)}
		ttl := r.ttlWithJitter().Milliseconds()
		stored, err := fillScript.Run(ctx, r.client, keys, version, raw, ttl).Int()
		if err != nil {
			r.logger.Warn("cache quiz snapshot", zap.String("slug", slug), zap.Error(err))
		} else if stored == 0 {
			r.logger.Debug("discarded snapshot invalidated during load", zap.String("slug", slug))
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate deletes the cached snapshot for slug and bumps its version so
// loads already in flight do not write it back.
func (r *QuizRepository) Invalidate(ctx context.Context, slug string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, r.versionKey(slug))
		pipe.Del(ctx, r.key(slug))
		return nil
	})
	return err
}

func (r *QuizRepository) lookup(ctx context.Context, slug string) (domain.Quiz, bool) {
	raw, err := r.client.Get(ctx, r.key(slug)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("read quiz snapshot", zap.String("slug", slug), zap.Error(err))
		}
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		r.logger.Warn("decode quiz snapshot", zap.String("slug", slug), zap.Error(err))
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (r *QuizRepository) key(slug string) string {
	return "quiz:slug:" + slug
}

func (r *QuizRepository) versionKey(slug string) string {
	return "quiz:version:" + slug
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
