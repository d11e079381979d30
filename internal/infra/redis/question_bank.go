package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"pair-quiz-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const publishedKey = "quiz:questions:published"

// QuestionSource fetches published questions from the system of record.
type QuestionSource interface {
	PublishedQuestions(ctx context.Context) ([]domain.Question, error)
}

// QuestionBank caches the published pool in Redis and falls back to a source on cache miss.
// Questions are stored as: HSET quiz:questions:published {questionID} {json}
type QuestionBank struct {
	client *redis.Client
	source QuestionSource
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionBank(client *redis.Client, source QuestionSource, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *QuestionBank) DrawRandomSet(ctx context.Context, n int) ([]domain.Question, error) {
	pool, err := b.published(ctx)
	if err != nil {
		return nil, err
	}
	return domain.DrawQuestions(pool, n, b.intn)
}

// Invalidate drops the cached pool so the next draw reloads it.
func (b *QuestionBank) Invalidate(ctx context.Context) error {
	return b.client.Del(ctx, publishedKey).Err()
}

func (b *QuestionBank) published(ctx context.Context) ([]domain.Question, error) {
	if pool, ok := b.cached(ctx); ok {
		return pool, nil
	}

	result, err, _ := b.sf.Do(publishedKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if pool, ok := b.cached(ctx); ok {
			return pool, nil
		}

		pool, err := b.source.PublishedQuestions(ctx)
		if err != nil {
			return nil, err
		}
		if len(pool) == 0 {
			return pool, nil
		}

		pipe := b.client.TxPipeline()
		pipe.Del(ctx, publishedKey)
		for _, q := range pool {
			raw, err := json.Marshal(q)
			if err != nil {
				return nil, fmt.Errorf("marshal question %s: %w", q.ID, err)
			}
			pipe.HSet(ctx, publishedKey, q.ID, raw)
		}
		if ttl := b.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, publishedKey, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (b *QuestionBank) cached(ctx context.Context) ([]domain.Question, bool) {
	entries, err := b.client.HGetAll(ctx, publishedKey).Result()
	if err != nil || len(entries) == 0 {
		return nil, false
	}
	pool := make([]domain.Question, 0, len(entries))
	for _, raw := range entries {
		var q domain.Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return nil, false
		}
		pool = append(pool, q)
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })
	return pool, true
}

func (b *QuestionBank) intn(n int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rnd.Intn(n)
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	jitterMax := int64(b.ttl) / 10
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}
