package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"pair-quiz-service/internal/domain"

	"golang.org/x/sync/singleflight"
)

// QuestionSource fetches the published questions from a backing store.
type QuestionSource interface {
	PublishedQuestions(ctx context.Context) ([]domain.Question, error)
}

// QuestionBank caches the published question pool with a TTL to avoid repeated DB hits
// and draws random sets from it.
type QuestionBank struct {
	source QuestionSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu        sync.RWMutex
	pool      []domain.Question
	expiresAt time.Time
}

func NewQuestionBank(source QuestionSource, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
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

func (b *QuestionBank) published(ctx context.Context) ([]domain.Question, error) {
	now := b.clock()

	b.mu.RLock()
	if b.pool != nil && b.expiresAt.After(now) {
		pool := b.pool
		b.mu.RUnlock()
		return pool, nil
	}
	b.mu.RUnlock()

	result, err, _ := b.sf.Do("published", func() (interface{}, error) {
		now := b.clock()
		b.mu.RLock()
		if b.pool != nil && b.expiresAt.After(now) {
			pool := b.pool
			b.mu.RUnlock()
			return pool, nil
		}
		b.mu.RUnlock()

		pool, err := b.source.PublishedQuestions(ctx)
		if err != nil {
			return nil, err
		}

		b.mu.Lock()
		b.pool = pool
		b.expiresAt = now.Add(b.ttlWithJitter())
		b.mu.Unlock()
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (b *QuestionBank) intn(n int) int {
	b.rndMu.Lock()
	defer b.rndMu.Unlock()
	return b.rnd.Intn(n)
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(b.ttl) / 10
	b.rndMu.Lock()
	defer b.rndMu.Unlock()
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}

// StaticQuestionSource is a simple source backed by a slice (useful for tests/demos).
type StaticQuestionSource struct {
	mu        sync.RWMutex
	questions []domain.Question
}

func NewStaticQuestionSource(questions []domain.Question) *StaticQuestionSource {
	return &StaticQuestionSource{questions: questions}
}

func (s *StaticQuestionSource) PublishedQuestions(_ context.Context) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0, len(s.questions))
	for _, q := range s.questions {
		if q.Published {
			out = append(out, q)
		}
	}
	return out, nil
}

// Replace swaps the question set, as the question admin would.
func (s *StaticQuestionSource) Replace(questions []domain.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions = questions
}
