package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"pair-quiz-service/internal/domain"
	"pair-quiz-service/internal/infra/memory"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestQuestionBankCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	source := &countingSource{QuestionSource: memory.NewStaticQuestionSource(sampleQuestions(6))}
	bank := NewQuestionBank(newClient(mr), source, time.Minute)

	set, err := bank.DrawRandomSet(context.Background(), domain.QuestionsPerGame)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if len(set) != domain.QuestionsPerGame {
		t.Fatalf("expected %d questions, got %d", domain.QuestionsPerGame, len(set))
	}
	if source.calls != 1 {
		t.Fatalf("expected source called once, got %d", source.calls)
	}
	if !mr.Exists(publishedKey) {
		t.Fatalf("expected redis hash to be filled")
	}

	// Second call should hit cache, source not incremented.
	if _, err := bank.DrawRandomSet(context.Background(), domain.QuestionsPerGame); err != nil {
		t.Fatalf("draw 2: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected cache hit, source calls=%d", source.calls)
	}
}

func TestQuestionBankInvalidate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	source := &countingSource{QuestionSource: memory.NewStaticQuestionSource(sampleQuestions(5))}
	bank := NewQuestionBank(newClient(mr), source, time.Minute)
	ctx := context.Background()

	if _, err := bank.DrawRandomSet(ctx, 5); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if err := bank.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := bank.DrawRandomSet(ctx, 5); err != nil {
		t.Fatalf("draw after invalidate: %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("expected reload after invalidate, source calls=%d", source.calls)
	}
}

func TestQuestionBankInsufficient(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	bank := NewQuestionBank(newClient(mr), memory.NewStaticQuestionSource(sampleQuestions(3)), time.Minute)
	if _, err := bank.DrawRandomSet(context.Background(), domain.QuestionsPerGame); !errors.Is(err, domain.ErrInsufficientQuestions) {
		t.Fatalf("expected insufficient questions, got %v", err)
	}
}

type countingSource struct {
	QuestionSource
	calls int
}

func (s *countingSource) PublishedQuestions(ctx context.Context) ([]domain.Question, error) {
	s.calls++
	return s.QuestionSource.PublishedQuestions(ctx)
}

func sampleQuestions(n int) []domain.Question {
	qs := make([]domain.Question, 0, n)
	for i := 1; i <= n; i++ {
		qs = append(qs, domain.Question{
			ID:             fmt.Sprintf("q%d", i),
			Body:           fmt.Sprintf("What is %d + %d?", i, i),
			CorrectAnswers: []string{fmt.Sprint(2 * i)},
			Published:      true,
		})
	}
	return qs
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
